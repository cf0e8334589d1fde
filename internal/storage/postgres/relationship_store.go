package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fitlab/coachbill/pkg/entitlement"
	"github.com/fitlab/coachbill/pkg/pg"
)

// RelationshipStore implements entitlement.RelationshipStore on the
// coach_students table. A partial unique index guarantees a student has
// at most one row with a null unlinked_at.
type RelationshipStore struct {
	pool *pgxpool.Pool
}

// NewRelationshipStore returns a store backed by the coach_students table.
func NewRelationshipStore(pool *pgxpool.Pool) *RelationshipStore {
	if pool == nil {
		panic("postgres.NewRelationshipStore: nil pool")
	}
	return &RelationshipStore{pool: pool}
}

func (s *RelationshipStore) ActiveCoachForStudent(ctx context.Context, studentID uuid.UUID) (uuid.UUID, error) {
	var coachID uuid.UUID
	err := s.pool.QueryRow(ctx, `
SELECT coach_id FROM coach_students
WHERE student_id = $1 AND unlinked_at IS NULL`, studentID).Scan(&coachID)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return uuid.Nil, entitlement.ErrNoActiveCoach
		}
		return uuid.Nil, err
	}
	return coachID, nil
}

// Link attaches the student to a coach, closing any previous link first.
func (s *RelationshipStore) Link(ctx context.Context, studentID, coachID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
UPDATE coach_students SET unlinked_at = $2
WHERE student_id = $1 AND unlinked_at IS NULL`, studentID, now); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO coach_students (student_id, coach_id, linked_at)
VALUES ($1, $2, $3)`, studentID, coachID, now); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Unlink closes the student's active coach link. It is a no-op when the
// student has none.
func (s *RelationshipStore) Unlink(ctx context.Context, studentID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
UPDATE coach_students SET unlinked_at = $2
WHERE student_id = $1 AND unlinked_at IS NULL`, studentID, time.Now().UTC())
	return err
}

// TrialStore implements entitlement.TrialStore on the coach_trials table.
type TrialStore struct {
	pool *pgxpool.Pool
}

// NewTrialStore returns a store backed by the coach_trials table.
func NewTrialStore(pool *pgxpool.Pool) *TrialStore {
	if pool == nil {
		panic("postgres.NewTrialStore: nil pool")
	}
	return &TrialStore{pool: pool}
}

func (s *TrialStore) TrialEndsAt(ctx context.Context, coachID uuid.UUID) (*time.Time, error) {
	var endsAt time.Time
	err := s.pool.QueryRow(ctx, `
SELECT trial_ends_at FROM coach_trials WHERE coach_id = $1`, coachID).Scan(&endsAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return &endsAt, nil
}

// SetTrial records or extends the coach's trial window.
func (s *TrialStore) SetTrial(ctx context.Context, coachID uuid.UUID, endsAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO coach_trials (coach_id, trial_ends_at)
VALUES ($1, $2)
ON CONFLICT (coach_id) DO UPDATE SET trial_ends_at = EXCLUDED.trial_ends_at`, coachID, endsAt)
	return err
}
