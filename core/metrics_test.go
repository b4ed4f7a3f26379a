package core

import (
	"context"
	"sync"
	"testing"
)

// recordingMetrics captures how many times, and with what arguments,
// each Metrics method was invoked, so tests can assert the scheduler
// actually drives every metric rather than merely defining them.
type recordingMetrics struct {
	mu sync.Mutex

	jobPanics         int
	queueDepthCalls   int
	activeWorkerPeaks []int
	tokenCompletions  int
	fiberPoolCalls    int
	lastLive          int
	lastRecycled      int
	batchSections     []int
}

func (m *recordingMetrics) RecordJobPanic(panicInfo any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobPanics++
}

func (m *recordingMetrics) RecordQueueDepth(lane string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueDepthCalls++
}

func (m *recordingMetrics) RecordActiveWorkers(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeWorkerPeaks = append(m.activeWorkerPeaks, count)
}

func (m *recordingMetrics) RecordTokenCompletion() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenCompletions++
}

func (m *recordingMetrics) RecordFiberPoolSize(live, recycled int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fiberPoolCalls++
	m.lastLive = live
	m.lastRecycled = recycled
}

func (m *recordingMetrics) RecordBatchSection(rangeSize int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchSections = append(m.batchSections, rangeSize)
}

func (m *recordingMetrics) snapshot() recordingMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return recordingMetrics{
		jobPanics:        m.jobPanics,
		queueDepthCalls:  m.queueDepthCalls,
		tokenCompletions: m.tokenCompletions,
		fiberPoolCalls:   m.fiberPoolCalls,
		lastLive:         m.lastLive,
		lastRecycled:     m.lastRecycled,
		batchSections:    append([]int(nil), m.batchSections...),
	}
}

func TestMetrics_ParallelForRecordsBatchSectionsAndQueueDepth(t *testing.T) {
	metrics := &recordingMetrics{}
	cfg := testConfig(4)
	cfg.Metrics = metrics

	StartSync(cfg, func(ctx context.Context) {
		ParallelFor(ctx, 0, 100, func(ctx context.Context, start, end int) {})
	})

	snap := metrics.snapshot()
	if len(snap.batchSections) == 0 {
		t.Fatalf("expected RecordBatchSection to be called at least once")
	}
	total := 0
	for _, n := range snap.batchSections {
		total += n
	}
	if total != 100 {
		t.Fatalf("batch sections summed to %d, want 100", total)
	}
	if snap.queueDepthCalls == 0 {
		t.Fatalf("expected RecordQueueDepth to be called at least once")
	}
	if snap.fiberPoolCalls == 0 {
		t.Fatalf("expected RecordFiberPoolSize to be called at least once")
	}
}

func TestMetrics_CallRecordsTokenCompletion(t *testing.T) {
	metrics := &recordingMetrics{}
	cfg := testConfig(2)
	cfg.Metrics = metrics

	StartSync(cfg, func(ctx context.Context) {
		Call(ctx, CallOptions{}, Bind(func(ctx context.Context) {}))
	})

	// One completion for the inner Call, one for StartSync's own Call
	// around entry.
	if got := metrics.snapshot().tokenCompletions; got < 1 {
		t.Fatalf("token completions = %d, want at least 1", got)
	}
}

func TestMetrics_RecordsActiveWorkersDuringExecution(t *testing.T) {
	metrics := &recordingMetrics{}
	cfg := testConfig(4)
	cfg.Metrics = metrics

	StartSync(cfg, func(ctx context.Context) {
		ParallelFor(ctx, 0, 4, func(ctx context.Context, start, end int) {})
	})

	snap := metrics.snapshot()
	if len(snap.activeWorkerPeaks) == 0 {
		t.Fatalf("expected RecordActiveWorkers to be called at least once")
	}
}

func TestMetrics_RecordsJobPanic(t *testing.T) {
	metrics := &recordingMetrics{}
	cfg := testConfig(2)
	cfg.Metrics = metrics

	StartSync(cfg, func(ctx context.Context) {
		Call(ctx, CallOptions{}, Bind(func(context.Context) { panic("boom") }))
	})

	if got := metrics.snapshot().jobPanics; got != 1 {
		t.Fatalf("job panics recorded = %d, want 1", got)
	}
}
