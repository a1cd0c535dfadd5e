package judge

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/judgecore/judgecore/internal/apperr"
	"github.com/judgecore/judgecore/internal/store"
)

// Lease is a held claim on one judge worker's execution slot. Release
// must always be called, even on panic, to avoid leaking task_number.
type Lease struct {
	Worker     Worker
	scheduler  *Scheduler
	released   bool
}

// Scheduler picks an available judge worker for each dispatch and tracks
// its outstanding load via the row-locked task_number counter.
type Scheduler struct {
	pool *pgxpool.Pool
}

// NewScheduler builds a Scheduler.
func NewScheduler(pool *pgxpool.Pool) *Scheduler {
	return &Scheduler{pool: pool}
}

// Acquire opens a short-lived transaction, locks the non-disabled judge
// worker rows FOR UPDATE ordered by task_number ascending, and picks the
// first worker that is "normal" (a live heartbeat) and not already
// saturated (task_number <= cpu_core*2). It increments that worker's
// task_number before committing. Returns apperr.KindNoAvailableWorker if
// no worker qualifies.
func (s *Scheduler) Acquire(ctx context.Context) (*Lease, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning acquire transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := store.ListNotDisabledForUpdate(ctx, tx)
	if err != nil {
		return nil, err
	}

	picked := pickWorker(rows, time.Now())
	if picked == nil {
		return nil, apperr.New(apperr.KindNoAvailableWorker, "No available judge server")
	}

	if err := store.IncrementTaskNumber(ctx, tx, picked.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing acquire transaction: %w", err)
	}

	return &Lease{
		Worker: Worker{
			ID:         picked.ID,
			Hostname:   picked.Hostname,
			ServiceURL: picked.ServiceURL,
			CPUCore:    picked.CPUCore,
			TaskNumber: picked.TaskNumber + 1,
			IsDisabled: picked.IsDisabled,
			Status:     StatusNormal,
		},
		scheduler: s,
	}, nil
}

// pickWorker selects the first row, in the caller's lock-ordered slice,
// that is live (a recent heartbeat) and not saturated
// (task_number <= cpu_core*2). Rows must already be ordered by
// task_number ascending.
func pickWorker(rows []store.JudgeServerRow, now time.Time) *store.JudgeServerRow {
	for i := range rows {
		row := rows[i]
		if DeriveStatus(row.LastHeartbeat, now) != StatusNormal {
			continue
		}
		if row.TaskNumber > row.CPUCore*2 {
			continue
		}
		return &row
	}
	return nil
}

// Release decrements the leased worker's task_number in a fresh
// transaction. It is safe to call multiple times; only the first call has
// effect. Callers must defer Release immediately after a successful
// Acquire so the counter is freed even if a panic unwinds the dispatch.
func (l *Lease) Release(ctx context.Context) error {
	if l.released {
		return nil
	}
	l.released = true

	tx, err := l.scheduler.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning release transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := store.DecrementTaskNumber(ctx, tx, l.Worker.ID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing release transaction: %w", err)
	}
	return nil
}
