package judge

import (
	"testing"
	"time"

	"github.com/judgecore/judgecore/internal/store"
)

func TestPickWorkerSkipsAbnormalAndSaturated(t *testing.T) {
	now := time.Now()
	recent := now.Add(-1 * time.Second)
	stale := now.Add(-30 * time.Second)

	rows := []store.JudgeServerRow{
		{ID: 2, CPUCore: 2, TaskNumber: 0, LastHeartbeat: &recent}, // W2: normal, 0 <= 4
		{ID: 1, CPUCore: 2, TaskNumber: 1, LastHeartbeat: &recent}, // W1: normal, 1 <= 4
		{ID: 3, CPUCore: 1, TaskNumber: 3, LastHeartbeat: &stale},  // W3: abnormal heartbeat
	}

	picked := pickWorker(rows, now)
	if picked == nil {
		t.Fatal("expected a worker to be picked")
	}
	if picked.ID != 2 {
		t.Errorf("expected first eligible worker (id=2) by task_number order, got id=%d", picked.ID)
	}
}

func TestPickWorkerRejectsSaturatedWorker(t *testing.T) {
	now := time.Now()
	recent := now.Add(-1 * time.Second)

	rows := []store.JudgeServerRow{
		{ID: 9, CPUCore: 1, TaskNumber: 3, LastHeartbeat: &recent}, // saturated: 3 > 1*2
	}

	if picked := pickWorker(rows, now); picked != nil {
		t.Fatalf("expected no worker picked, got id=%d", picked.ID)
	}
}

func TestPickWorkerNoCandidatesReturnsNil(t *testing.T) {
	if picked := pickWorker(nil, time.Now()); picked != nil {
		t.Fatal("expected nil for empty candidate list")
	}
}

func TestDeriveStatusNilHeartbeat(t *testing.T) {
	if got := DeriveStatus(nil, time.Now()); got != StatusAbnormal {
		t.Errorf("expected abnormal for nil heartbeat, got %s", got)
	}
}

func TestDeriveStatusStaleHeartbeat(t *testing.T) {
	now := time.Now()
	old := now.Add(-7 * time.Second)
	if got := DeriveStatus(&old, now); got != StatusAbnormal {
		t.Errorf("expected abnormal for heartbeat older than 6s, got %s", got)
	}
}

func TestDeriveStatusFreshHeartbeat(t *testing.T) {
	now := time.Now()
	recent := now.Add(-3 * time.Second)
	if got := DeriveStatus(&recent, now); got != StatusNormal {
		t.Errorf("expected normal for heartbeat within 6s, got %s", got)
	}
}
