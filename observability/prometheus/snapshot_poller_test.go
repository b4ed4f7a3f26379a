package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/novafiber/nova/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type schedulerStub struct {
	stats core.Stats
}

func (s schedulerStub) Snapshot() core.Stats { return s.stats }

func TestSchedulerSnapshotPoller_CollectsStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSchedulerSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSchedulerSnapshotPoller failed: %v", err)
	}

	poller.AddScheduler("sched-a", schedulerStub{stats: core.Stats{
		WorkerCount:  8,
		GlobalDepth:  3,
		MainDepth:    1,
		ShuttingDown: true,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		workers := testutil.ToFloat64(poller.workerCount.WithLabelValues("sched-a"))
		global := testutil.ToFloat64(poller.globalDepth.WithLabelValues("sched-a"))
		return workers == 8 && global == 3
	})

	if got := testutil.ToFloat64(poller.mainDepth.WithLabelValues("sched-a")); got != 1 {
		t.Fatalf("main depth gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.shuttingDown.WithLabelValues("sched-a")); got != 1 {
		t.Fatalf("shutting down gauge = %v, want 1", got)
	}
}

func TestSchedulerSnapshotPoller_RemoveSchedulerStopsUpdates(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSchedulerSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSchedulerSnapshotPoller failed: %v", err)
	}

	poller.AddScheduler("sched-a", schedulerStub{stats: core.Stats{WorkerCount: 4}})
	poller.collectOnce()
	poller.RemoveScheduler("sched-a")
	poller.AddScheduler("sched-a", schedulerStub{stats: core.Stats{WorkerCount: 99}})
	poller.RemoveScheduler("sched-a")
	poller.collectOnce()

	if got := testutil.ToFloat64(poller.workerCount.WithLabelValues("sched-a")); got != 4 {
		t.Fatalf("worker count gauge = %v, want stale value 4 after removal", got)
	}
}

func TestSchedulerSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSchedulerSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSchedulerSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
