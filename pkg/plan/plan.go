package plan

// Audience identifies who a plan is sold to.
type Audience string

const (
	AudienceCoach   Audience = "coach"
	AudienceStudent Audience = "student"
)

// BillingInterval represents the billing frequency for a plan.
type BillingInterval string

const (
	BillingIntervalNone    BillingInterval = "none" // free plans with no billing
	BillingIntervalMonthly BillingInterval = "monthly"
	BillingIntervalAnnual  BillingInterval = "annual"
)

// Money represents a monetary amount in the smallest currency unit.
// For example, R$49.90 BRL would be Amount: 4990, Currency: "BRL".
type Money struct {
	Amount   int64  `yaml:"amount" json:"amount"`
	Currency string `yaml:"currency" json:"currency"`
}

const (
	// Unlimited indicates no cap for a numeric plan limit (-1 for SQL compatibility).
	Unlimited int64 = -1
)

// Plan describes one immutable version of a coach or student plan.
// Once a subscription references a plan, catalog edits must never alter
// entitlements already resolved for that subscription; resolution copies
// the FeatureSet onto the subscription at creation time.
type Plan struct {
	ID             string          `yaml:"id" json:"id"`
	Name           string          `yaml:"name" json:"name"`
	Audience       Audience        `yaml:"audience" json:"audience"`
	Price          Money           `yaml:"price" json:"price"`
	Interval       BillingInterval `yaml:"interval" json:"interval"`
	Features       FeatureSet      `yaml:"features" json:"features"`
	MaxStudents    int64           `yaml:"max_students" json:"maxStudents"`       // -1 means unlimited
	CommissionRate int64           `yaml:"commission_rate" json:"commissionRate"` // basis points
	Tier           int             `yaml:"tier" json:"tier"`                      // ordering, 1 = lowest
	Public         bool            `yaml:"public" json:"public"`
}

// IsFree reports whether the plan bypasses billing entirely.
func (p Plan) IsFree() bool {
	return p.Interval == BillingIntervalNone
}
