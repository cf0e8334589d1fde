package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fitlab/coachbill/pkg/scorelog"
)

// ScoreStore implements scorelog.Store on the scores table. Access
// control happens upstream in the feature gate; the store itself accepts
// any write.
type ScoreStore struct {
	pool *pgxpool.Pool
}

// NewScoreStore returns a store backed by the scores table.
func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	if pool == nil {
		panic("postgres.NewScoreStore: nil pool")
	}
	return &ScoreStore{pool: pool}
}

func (s *ScoreStore) Create(ctx context.Context, score *scorelog.Score) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO scores (id, student_id, exercise, reps, weight_kg, recorded_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		score.ID, score.StudentID, score.Exercise, score.Reps, score.WeightKg,
		score.RecordedAt, score.CreatedAt)
	return err
}

func (s *ScoreStore) ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]scorelog.Score, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, student_id, exercise, reps, weight_kg, recorded_at, created_at
FROM scores WHERE student_id = $1
ORDER BY recorded_at DESC LIMIT $2`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []scorelog.Score
	for rows.Next() {
		var sc scorelog.Score
		if err := rows.Scan(&sc.ID, &sc.StudentID, &sc.Exercise, &sc.Reps,
			&sc.WeightKg, &sc.RecordedAt, &sc.CreatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}
