package subscription_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/fitlab/coachbill/pkg/subscription"
)

var now = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

func activeSub(periodEnd time.Time) subscription.Subscription {
	return subscription.Subscription{
		ID:                 uuid.New(),
		SubscriberID:       uuid.New(),
		PlanID:             "coach_power_monthly",
		Status:             subscription.StatusActive,
		CurrentPeriodStart: periodEnd.AddDate(0, -1, 0),
		CurrentPeriodEnd:   periodEnd,
	}
}

func TestDeriveAccessStatus(t *testing.T) {
	t.Parallel()

	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name        string
		subs        []subscription.Subscription
		trialEndsAt *time.Time
		want        subscription.AccessStatus
	}{
		{
			name: "active subscription within period",
			subs: []subscription.Subscription{activeSub(now.AddDate(0, 0, 10))},
			want: subscription.AccessActive,
		},
		{
			name: "active status but period elapsed is expired",
			subs: []subscription.Subscription{activeSub(now.Add(-time.Hour))},
			want: subscription.AccessExpired,
		},
		{
			name: "period ending exactly now is expired",
			subs: []subscription.Subscription{activeSub(now)},
			want: subscription.AccessExpired,
		},
		{
			name: "zero period end fails closed",
			subs: []subscription.Subscription{activeSub(time.Time{})},
			want: subscription.AccessExpired,
		},
		{
			name: "latest period end wins among active rows",
			subs: []subscription.Subscription{
				activeSub(now.Add(-time.Hour)),
				activeSub(now.AddDate(0, 0, 20)),
			},
			want: subscription.AccessActive,
		},
		{
			name: "canceled rows are ignored",
			subs: []subscription.Subscription{
				{Status: subscription.StatusCanceled, CurrentPeriodEnd: now.AddDate(0, 1, 0)},
			},
			want: subscription.AccessInactive,
		},
		{
			name: "past_due row grants nothing",
			subs: []subscription.Subscription{
				{Status: subscription.StatusPastDue, CurrentPeriodEnd: now.AddDate(0, 1, 0)},
			},
			want: subscription.AccessInactive,
		},
		{
			name:        "trial valid through its whole last day",
			trialEndsAt: ptr(time.Date(2026, 3, 15, 0, 0, 1, 0, time.UTC)), // today, just after midnight
			want:        subscription.AccessTrial,
		},
		{
			name:        "trial ended yesterday",
			trialEndsAt: ptr(now.AddDate(0, 0, -1)),
			want:        subscription.AccessExpired,
		},
		{
			name:        "trial in the future",
			trialEndsAt: ptr(now.AddDate(0, 0, 7)),
			want:        subscription.AccessTrial,
		},
		{
			name:        "zero trial date fails closed",
			trialEndsAt: &time.Time{},
			want:        subscription.AccessExpired,
		},
		{
			name:        "active subscription takes priority over trial",
			subs:        []subscription.Subscription{activeSub(now.AddDate(0, 0, 10))},
			trialEndsAt: ptr(now.AddDate(0, 0, -30)),
			want:        subscription.AccessActive,
		},
		{
			name:        "expired subscription still shadows trial",
			subs:        []subscription.Subscription{activeSub(now.Add(-time.Hour))},
			trialEndsAt: ptr(now.AddDate(0, 0, 7)),
			want:        subscription.AccessExpired,
		},
		{
			name: "no subscriptions and no trial",
			want: subscription.AccessInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := subscription.DeriveAccessStatus(tt.subs, tt.trialEndsAt, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveAccessStatus_Deterministic(t *testing.T) {
	t.Parallel()

	subs := []subscription.Subscription{
		activeSub(now.AddDate(0, 0, 3)),
		{Status: subscription.StatusPastDue, CurrentPeriodEnd: now.AddDate(0, 1, 0)},
	}
	trial := now.AddDate(0, 0, 5)

	first := subscription.DeriveAccessStatus(subs, &trial, now)
	for range 100 {
		assert.Equal(t, first, subscription.DeriveAccessStatus(subs, &trial, now))
	}
}

func TestDeriveAccessStatus_TrialBoundaryIgnoresTimeOfDay(t *testing.T) {
	t.Parallel()

	// Any time-of-day on the trial's last calendar day still grants trial.
	for _, hour := range []int{0, 6, 12, 23} {
		trial := time.Date(2026, 3, 15, hour, 59, 0, 0, time.UTC)
		got := subscription.DeriveAccessStatus(nil, &trial, now)
		assert.Equal(t, subscription.AccessTrial, got, "hour %d", hour)
	}

	yesterday := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, subscription.AccessExpired, subscription.DeriveAccessStatus(nil, &yesterday, now))
}
