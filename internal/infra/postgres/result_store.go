package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"trivia-duel-service/internal/domain"
)

// ResultStore appends and scans quiz results through a pgx pool.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) AppendResult(ctx context.Context, r domain.QuizResult) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_results (id, user_id, score, completed_at, mode, topic, difficulty)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.UserID, r.Score, r.CompletedAt, string(r.Mode), r.Topic, r.Difficulty)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *ResultStore) ResultsSince(ctx context.Context, since time.Time) ([]domain.QuizResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, score, completed_at, mode, topic, difficulty
		   FROM quiz_results
		  WHERE completed_at >= $1
		  ORDER BY completed_at, id`, since)
	if err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}
	defer rows.Close()

	var results []domain.QuizResult
	for rows.Next() {
		var (
			r    domain.QuizResult
			mode string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Score, &r.CompletedAt, &mode, &r.Topic, &r.Difficulty); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Mode = domain.Mode(mode)
		r.CompletedAt = r.CompletedAt.UTC()
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
