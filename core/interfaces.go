package core

import (
	"context"
	"fmt"
	"runtime/debug"
)

// =============================================================================
// PanicHandler: Interface for handling job panics
// =============================================================================

// PanicHandler is called when a job's callable panics during execution.
// Per spec.md §7, a panicking job never returns an error from the
// scheduler core; instead it is recovered here, the worker logs it, and
// the worker's loop continues popping the next job.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a job panics.
	//
	// Parameters:
	// - ctx: the context the panicked job was running under
	// - schedulerName: identifies which scheduler instance this is, for
	//   deployments running more than one
	// - workerID: the id of the worker that was executing the job
	// - panicInfo: the panic value recovered from the job
	// - stackTrace: the stack trace at the time of panic
	HandlePanic(ctx context.Context, schedulerName string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler prints panic information to stdout. It is the
// zero-configuration fallback; production code should supply one
// backed by core.Logger instead.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, schedulerName string, workerID int, panicInfo any, stackTrace []byte) {
	fmt.Printf("[worker %d @ %s] panic: %v\nstack trace:\n%s", workerID, schedulerName, panicInfo, stackTrace)
}

// LoggingPanicHandler routes job panics through a core.Logger.
type LoggingPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic as an error-level structured log entry.
func (h *LoggingPanicHandler) HandlePanic(ctx context.Context, schedulerName string, workerID int, panicInfo any, stackTrace []byte) {
	if h.Logger == nil {
		return
	}
	h.Logger.Error("job panicked",
		F("scheduler", schedulerName),
		F("worker_id", workerID),
		F("panic", fmt.Sprintf("%v", panicInfo)),
		F("stack", string(stackTrace)),
	)
}

func handleJobPanic(wc *workerContext, ctx context.Context, r any) {
	stack := debug.Stack()
	if wc.sched.panicHandler != nil {
		wc.sched.panicHandler.HandlePanic(ctx, wc.sched.name, wc.id, r, stack)
	}
	if wc.sched.metrics != nil {
		wc.sched.metrics.RecordJobPanic(r)
	}
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduler runtime
// metrics. Implementations can send metrics to monitoring systems
// (Prometheus, StatsD, etc.). All methods must be safe to call
// concurrently and should be non-blocking and fast.
//
// Unlike the teacher's per-task-priority metrics surface, this
// scheduler has no priority concept (spec.md Non-goals): metrics are
// keyed by queue lane and worker id instead.
type Metrics interface {
	// RecordJobPanic records that a job panicked during execution.
	RecordJobPanic(panicInfo any)

	// RecordQueueDepth records the current depth of one queue lane
	// ("global" or "main").
	RecordQueueDepth(lane string, depth int)

	// RecordActiveWorkers records how many ordinary jobs are currently
	// inside their callable. A job suspended in a Call is still counted,
	// so the value can exceed the worker count; resume jobs and workers
	// idle in Pop are not counted.
	RecordActiveWorkers(count int)

	// RecordTokenCompletion records that a dependency token's
	// continuation fired.
	RecordTokenCompletion()

	// RecordFiberPoolSize records the number of live and recycled
	// fiber goroutines, for tracking Testable Property 6's bound.
	RecordFiberPoolSize(live, recycled int)

	// RecordBatchSection records that one batch section finished,
	// tagged with how large its claimed subrange was.
	RecordBatchSection(rangeSize int)
}

// NilMetrics is a no-op Metrics implementation, the default when
// nothing is wired up.
type NilMetrics struct{}

func (m *NilMetrics) RecordJobPanic(panicInfo any)               {}
func (m *NilMetrics) RecordQueueDepth(lane string, depth int)    {}
func (m *NilMetrics) RecordActiveWorkers(count int)              {}
func (m *NilMetrics) RecordTokenCompletion()                     {}
func (m *NilMetrics) RecordFiberPoolSize(live, recycled int)     {}
func (m *NilMetrics) RecordBatchSection(rangeSize int)           {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected jobs
// =============================================================================

// RejectedTaskHandler is called when a job is pushed after the
// scheduler has begun shutting down and can no longer accept work.
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	HandleRejectedTask(schedulerName string, reason string)
}

// DefaultRejectedTaskHandler logs rejected jobs to stdout.
type DefaultRejectedTaskHandler struct{}

func (h *DefaultRejectedTaskHandler) HandleRejectedTask(schedulerName string, reason string) {
	fmt.Printf("[scheduler %s] job rejected: %s", schedulerName, reason)
}

// =============================================================================
// SchedulerConfig: runtime configuration for Scheduler
// =============================================================================

// SchedulerConfig holds the tunables and pluggable handlers a Scheduler
// is constructed with. All fields are optional; NewScheduler fills in
// defaults for anything left zero.
type SchedulerConfig struct {
	// Name identifies this scheduler instance in logs and metrics.
	Name string

	// WorkerCount is the fixed number of OS-thread-equivalent workers
	// (spec.md §1's central invariant: worker count never grows).
	WorkerCount int

	// SpinIterations bounds how many times a worker retries an empty
	// pop before blocking on its queue's wakeup channel.
	SpinIterations int

	// BatchSliceHint is accepted and defaulted by NewScheduler but is not
	// consulted anywhere: batch envelope slices are sized by the number
	// of sections each batch actually produces, not by this hint.
	BatchSliceHint int

	PanicHandler        PanicHandler
	Metrics             Metrics
	RejectedTaskHandler RejectedTaskHandler
	Logger              Logger
}

// DefaultSchedulerConfig returns a config with default handlers and a
// WorkerCount of 1.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Name:                "nova",
		WorkerCount:         1,
		SpinIterations:      1000,
		BatchSliceHint:      4,
		PanicHandler:        &DefaultPanicHandler{},
		Metrics:             &NilMetrics{},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{},
		Logger:              NewDefaultLogger(),
	}
}
