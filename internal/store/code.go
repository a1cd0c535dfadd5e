package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CodeRecord is a row of micro_problem_code.
type CodeRecord struct {
	ID        int64
	ProblemID int64
	UserID    int64
	Language  string
	Code      string
}

// CodeStore is the Durable Code Sink: the database of record for
// autosaved problem code, behind the Redis debounce buffer.
type CodeStore struct {
	pool *pgxpool.Pool
}

// NewCodeStore builds a CodeStore.
func NewCodeStore(pool *pgxpool.Pool) *CodeStore {
	return &CodeStore{pool: pool}
}

// FindOne loads the code saved for a given problem/user/language triple,
// or nil if none exists.
func (s *CodeStore) FindOne(ctx context.Context, problemID, userID int64, language string) (*CodeRecord, error) {
	var rec CodeRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, problem_id, user_id, language, code
		   FROM micro_problem_code
		  WHERE problem_id = $1 AND user_id = $2 AND language = $3`,
		problemID, userID, language,
	).Scan(&rec.ID, &rec.ProblemID, &rec.UserID, &rec.Language, &rec.Code)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("finding saved code: %w", err)
	}
	return &rec, nil
}

// Upsert writes code for the problem/user/language triple, inserting a
// new row or updating the existing one on conflict.
func (s *CodeStore) Upsert(ctx context.Context, problemID, userID int64, language, code string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO micro_problem_code (problem_id, user_id, language, code, created_time, updated_time)
		      VALUES ($1, $2, $3, $4, now(), now())
		 ON CONFLICT (problem_id, user_id, language)
		 DO UPDATE SET code = EXCLUDED.code, updated_time = now()`,
		problemID, userID, language, code,
	)
	if err != nil {
		return fmt.Errorf("upserting saved code: %w", err)
	}
	return nil
}
