package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fitlab/coachbill/pkg/pg"
	"github.com/fitlab/coachbill/pkg/preference"
)

// PreferenceStore implements preference.Store on the student_preferences
// table. The once-per-period lock is evaluated inside the upsert's WHERE
// clause, so two concurrent changes in the same billing window cannot
// both commit.
type PreferenceStore struct {
	pool *pgxpool.Pool
}

// NewPreferenceStore returns a store backed by the student_preferences table.
func NewPreferenceStore(pool *pgxpool.Pool) *PreferenceStore {
	if pool == nil {
		panic("postgres.NewPreferenceStore: nil pool")
	}
	return &PreferenceStore{pool: pool}
}

func (s *PreferenceStore) Get(ctx context.Context, studentID uuid.UUID) (*preference.Preference, error) {
	var pref preference.Preference
	err := s.pool.QueryRow(ctx, `
SELECT student_id, discipline_id, level_id, last_change_at, updated_at
FROM student_preferences WHERE student_id = $1`, studentID).Scan(
		&pref.StudentID, &pref.DisciplineID, &pref.LevelID, &pref.LastChangeAt, &pref.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, preference.ErrPreferenceNotFound
		}
		return nil, err
	}
	return &pref, nil
}

func (s *PreferenceStore) ApplyGuarded(ctx context.Context, ch preference.Change, periodStart *time.Time, nextEligibleAt time.Time, now time.Time) (*preference.Preference, error) {
	// With no live billing window there is nothing to guard; the upsert
	// is unconditional.
	if periodStart == nil {
		return s.apply(ctx, ch, now)
	}

	var pref preference.Preference
	err := s.pool.QueryRow(ctx, `
INSERT INTO student_preferences (student_id, discipline_id, level_id, last_change_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (student_id) DO UPDATE
SET discipline_id = EXCLUDED.discipline_id,
    level_id = EXCLUDED.level_id,
    last_change_at = EXCLUDED.last_change_at,
    updated_at = EXCLUDED.updated_at
WHERE student_preferences.last_change_at IS NULL
   OR student_preferences.last_change_at < $5
RETURNING student_id, discipline_id, level_id, last_change_at, updated_at`,
		ch.StudentID, ch.DisciplineID, ch.LevelID, now, *periodStart).Scan(
		&pref.StudentID, &pref.DisciplineID, &pref.LevelID, &pref.LastChangeAt, &pref.UpdatedAt,
	)
	if err != nil {
		// DO UPDATE ... WHERE filtering out the row means the lock held:
		// the insert conflicts, the update is skipped, RETURNING is empty.
		if pg.IsNotFoundError(err) {
			return nil, &preference.LockedError{NextEligibleAt: nextEligibleAt}
		}
		return nil, err
	}
	return &pref, nil
}

func (s *PreferenceStore) apply(ctx context.Context, ch preference.Change, now time.Time) (*preference.Preference, error) {
	var pref preference.Preference
	err := s.pool.QueryRow(ctx, `
INSERT INTO student_preferences (student_id, discipline_id, level_id, last_change_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (student_id) DO UPDATE
SET discipline_id = EXCLUDED.discipline_id,
    level_id = EXCLUDED.level_id,
    last_change_at = EXCLUDED.last_change_at,
    updated_at = EXCLUDED.updated_at
RETURNING student_id, discipline_id, level_id, last_change_at, updated_at`,
		ch.StudentID, ch.DisciplineID, ch.LevelID, now).Scan(
		&pref.StudentID, &pref.DisciplineID, &pref.LevelID, &pref.LastChangeAt, &pref.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pref, nil
}
