package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting callers
// run the same SQL inside or outside an explicit transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// JudgeServerRow is a row of the judge_server table.
type JudgeServerRow struct {
	ID            int64
	Hostname      string
	IP            string
	JudgerVersion string
	CPUCore       int
	MemoryUsage   float64
	CPUUsage      float64
	LastHeartbeat *time.Time
	ServiceURL    string
	TaskNumber    int
	IsDisabled    bool
}

// JudgeStore provides raw-SQL access to judge_server and
// options_sysoptions.
type JudgeStore struct {
	pool *pgxpool.Pool
}

// NewJudgeStore builds a JudgeStore.
func NewJudgeStore(pool *pgxpool.Pool) *JudgeStore {
	return &JudgeStore{pool: pool}
}

// Pool exposes the underlying pool so callers can run their own explicit
// transactions (the Judge Scheduler's lease acquire/release).
func (s *JudgeStore) Pool() *pgxpool.Pool {
	return s.pool
}

// ListNotDisabled returns every non-disabled judge_server row ordered by
// task_number ascending, for read-only fleet snapshots.
func (s *JudgeStore) ListNotDisabled(ctx context.Context) ([]JudgeServerRow, error) {
	return listNotDisabled(ctx, s.pool, false)
}

// ListNotDisabledForUpdate returns every non-disabled judge_server row,
// locked FOR UPDATE and ordered by task_number ascending, for use inside
// a caller-managed transaction.
func ListNotDisabledForUpdate(ctx context.Context, q Querier) ([]JudgeServerRow, error) {
	return listNotDisabled(ctx, q, true)
}

func listNotDisabled(ctx context.Context, q Querier, forUpdate bool) ([]JudgeServerRow, error) {
	sql := `
		SELECT id, hostname, ip, judger_version, cpu_core, memory_usage, cpu_usage,
		       last_heartbeat, service_url, task_number, is_disabled
		  FROM judge_server
		 WHERE is_disabled = false
		 ORDER BY task_number ASC`
	if forUpdate {
		sql += `
		   FOR UPDATE`
	}

	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("listing judge servers: %w", err)
	}
	defer rows.Close()

	var out []JudgeServerRow
	for rows.Next() {
		var r JudgeServerRow
		if err := rows.Scan(&r.ID, &r.Hostname, &r.IP, &r.JudgerVersion, &r.CPUCore,
			&r.MemoryUsage, &r.CPUUsage, &r.LastHeartbeat, &r.ServiceURL, &r.TaskNumber, &r.IsDisabled); err != nil {
			return nil, fmt.Errorf("scanning judge server row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// IncrementTaskNumber bumps task_number by one for the given judge server.
func IncrementTaskNumber(ctx context.Context, q Querier, id int64) error {
	_, err := q.Exec(ctx, `UPDATE judge_server SET task_number = task_number + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("incrementing task_number: %w", err)
	}
	return nil
}

// DecrementTaskNumber reduces task_number by one for the given judge
// server.
func DecrementTaskNumber(ctx context.Context, q Querier, id int64) error {
	_, err := q.Exec(ctx, `UPDATE judge_server SET task_number = task_number - 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("decrementing task_number: %w", err)
	}
	return nil
}

// GetSysOptionJSON fetches a raw JSONB sysoption value by key. Returns
// nil, nil if the key does not exist.
func (s *JudgeStore) GetSysOptionJSON(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM options_sysoptions WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sysoption %q: %w", key, err)
	}
	return raw, nil
}
