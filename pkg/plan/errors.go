package plan

import "errors"

var (
	ErrPlanNotFound             = errors.New("plan not found")
	ErrInvalidPlanConfiguration = errors.New("invalid plan configuration")
	ErrNoBaselinePlan           = errors.New("no baseline coach plan configured")
	ErrFailedToLoadPlans        = errors.New("failed to load plans")
)
