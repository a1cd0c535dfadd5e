// Package store holds judgecore's hand-written raw-SQL pgx data access
// against the shared online-judge schema.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserStore provides read-only access to the "user" table judgecore does
// not own but must validate sessions against.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore builds a UserStore.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// ExistsByUsername reports whether a user row with the given username
// still exists.
func (s *UserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM "user" WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking user existence: %w", err)
	}
	return exists, nil
}

// UserRecord is a projection of the "user" table.
type UserRecord struct {
	ID        int64
	Username  string
	AdminType string
}

// FindByUsername loads a user record by username.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	var u UserRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, admin_type FROM "user" WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.AdminType)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("finding user by username: %w", err)
	}
	return &u, nil
}
