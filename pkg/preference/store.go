package preference

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Preference is one student's discipline/level selection. LastChangeAt is
// stamped on every accepted change and never touched by reads.
type Preference struct {
	StudentID    uuid.UUID
	DisciplineID uuid.UUID
	LevelID      uuid.UUID
	LastChangeAt *time.Time
	UpdatedAt    time.Time
}

// Change is one requested preference update.
type Change struct {
	StudentID    uuid.UUID
	DisciplineID uuid.UUID
	LevelID      uuid.UUID
}

// Store persists student preferences.
type Store interface {
	// Get returns the student's preference row.
	// Returns ErrPreferenceNotFound if the student never set one.
	Get(ctx context.Context, studentID uuid.UUID) (*Preference, error)

	// ApplyGuarded upserts the preference and stamps LastChangeAt = now as
	// one conditional write. When periodStart is non-nil the write succeeds
	// only if the row's LastChangeAt is null or before periodStart;
	// otherwise it fails with a *LockedError carrying nextEligibleAt.
	// Keeping decision and mutation in one storage operation means two
	// concurrent requests cannot both slip through the lock window.
	ApplyGuarded(ctx context.Context, ch Change, periodStart *time.Time, nextEligibleAt time.Time, now time.Time) (*Preference, error)
}
