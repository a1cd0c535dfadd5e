package judge

import (
	"context"
	"fmt"
	"time"

	"github.com/judgecore/judgecore/internal/store"
)

// heartbeatStaleAfter is how long a judge worker's last_heartbeat may age
// before it is considered abnormal.
const heartbeatStaleAfter = 6 * time.Second

// Status is the derived liveness state of a judge worker.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusAbnormal Status = "abnormal"
)

// Worker is a Judge-Fleet Registry snapshot entry: a judge_server row
// plus its derived Status.
type Worker struct {
	ID         int64
	Hostname   string
	ServiceURL string
	CPUCore    int
	TaskNumber int
	IsDisabled bool
	Status     Status
}

// DeriveStatus computes a worker's liveness from its last heartbeat: no
// heartbeat, or one older than heartbeatStaleAfter, is abnormal.
func DeriveStatus(lastHeartbeat *time.Time, now time.Time) Status {
	if lastHeartbeat == nil {
		return StatusAbnormal
	}
	if now.Sub(*lastHeartbeat) > heartbeatStaleAfter {
		return StatusAbnormal
	}
	return StatusNormal
}

// Registry provides read-only snapshots of the judge worker fleet.
type Registry struct {
	judgeStore *store.JudgeStore
}

// NewRegistry builds a Registry.
func NewRegistry(judgeStore *store.JudgeStore) *Registry {
	return &Registry{judgeStore: judgeStore}
}

// List returns every non-disabled judge worker with its derived status.
func (r *Registry) List(ctx context.Context) ([]Worker, error) {
	rows, err := r.judgeStore.ListNotDisabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing judge fleet: %w", err)
	}

	now := time.Now()
	out := make([]Worker, 0, len(rows))
	for _, row := range rows {
		out = append(out, Worker{
			ID:         row.ID,
			Hostname:   row.Hostname,
			ServiceURL: row.ServiceURL,
			CPUCore:    row.CPUCore,
			TaskNumber: row.TaskNumber,
			IsDisabled: row.IsDisabled,
			Status:     DeriveStatus(row.LastHeartbeat, now),
		})
	}
	return out, nil
}
