package preference

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrPreferenceNotFound = errors.New("preference not found")
	ErrInvalidPreference  = errors.New("invalid preference")
)

// LockedError indicates the change was denied by the once-per-period lock.
// It carries the next eligible date for the API error payload. This is a
// normal business outcome, not a system failure.
type LockedError struct {
	NextEligibleAt time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("preference change locked until %s", e.NextEligibleAt.Format(time.RFC3339))
}

// IsLocked reports whether err is a lock denial and returns it if so.
func IsLocked(err error) (*LockedError, bool) {
	var locked *LockedError
	if errors.As(err, &locked) {
		return locked, true
	}
	return nil, false
}
