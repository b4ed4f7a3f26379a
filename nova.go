package nova

import (
	"context"

	"github.com/novafiber/nova/core"
	"go.uber.org/zap"
)

// Runnable is a callable job body.
type Runnable = core.Runnable

// BatchRunnable is a callable invoked once per claimed subrange of a
// BindBatch job.
type BatchRunnable = core.BatchRunnable

// Job is anything Push, PushToMain, PushDependent, Call, or
// ParallelFor can accept.
type Job = core.Job

// CallOptions controls Call's affinity behavior.
type CallOptions = core.CallOptions

// SchedulerConfig configures a Scheduler's worker count and pluggable
// ambient handlers.
type SchedulerConfig = core.SchedulerConfig

// Scheduler is the running scheduler instance returned by StartAsync.
type Scheduler = core.Scheduler

// Stats is a point-in-time scheduler snapshot.
type Stats = core.Stats

// Logger, Field, PanicHandler, Metrics, and RejectedTaskHandler are the
// ambient interfaces a SchedulerConfig can be given.
type (
	Logger              = core.Logger
	Field               = core.Field
	PanicHandler        = core.PanicHandler
	Metrics             = core.Metrics
	RejectedTaskHandler = core.RejectedTaskHandler
)

// DefaultPanicHandler and LoggingPanicHandler are the concrete
// PanicHandler implementations callers can construct directly, without
// reaching into core.
type (
	DefaultPanicHandler = core.DefaultPanicHandler
	LoggingPanicHandler = core.LoggingPanicHandler
)

// DefaultRejectedTaskHandler is the concrete RejectedTaskHandler that
// logs rejected jobs to stdout.
type DefaultRejectedTaskHandler = core.DefaultRejectedTaskHandler

// Bind wraps f as a single-envelope Job.
func Bind(f Runnable) Job { return core.Bind(f) }

// BindBatch wraps f as a batch Job over [start, end).
func BindBatch(f BatchRunnable, start, end int) Job { return core.BindBatch(f, start, end) }

// Push submits jobs for fire-and-forget execution on the global queue.
func Push(ctx context.Context, jobs ...Job) { core.Push(ctx, jobs...) }

// PushToMain submits jobs that must run on worker 0.
func PushToMain(ctx context.Context, jobs ...Job) { core.PushToMain(ctx, jobs...) }

// PushDependent submits jobs attached to the currently running job's
// dependency token, if any.
func PushDependent(ctx context.Context, jobs ...Job) { core.PushDependent(ctx, jobs...) }

// PushWithContinuation submits jobs and runs continuation, exactly
// once, after all of them complete, without suspending the caller.
func PushWithContinuation(ctx context.Context, continuation Runnable, jobs ...Job) {
	core.PushWithContinuation(ctx, continuation, jobs...)
}

// Call suspends the calling job until every submitted job completes.
func Call(ctx context.Context, opts CallOptions, jobs ...Job) { core.Call(ctx, opts, jobs...) }

// ParallelFor splits [start, end) into up to WorkerCount sections and
// waits for every section to finish.
func ParallelFor(ctx context.Context, start, end int, f BatchRunnable) {
	core.ParallelFor(ctx, start, end, f)
}

// SwitchToMain suspends the calling job and resumes it running as
// worker 0.
func SwitchToMain(ctx context.Context) { core.SwitchToMain(ctx) }

// WorkerID returns the id of the worker running the current job, or -1
// outside a running job.
func WorkerID(ctx context.Context) int { return core.WorkerID(ctx) }

// IsMainWorker reports whether the current job is running on worker 0.
func IsMainWorker(ctx context.Context) bool { return core.IsMainWorker(ctx) }

// F creates a logging Field.
func F(key string, value any) Field { return core.F(key, value) }

// NewDefaultLogger creates the dependency-free fallback Logger.
func NewDefaultLogger() *core.DefaultLogger { return core.NewDefaultLogger() }

// NewNoOpLogger creates a Logger that discards everything.
func NewNoOpLogger() *core.NoOpLogger { return core.NewNoOpLogger() }

// NewZapLogger adapts an existing zap logger to Logger.
func NewZapLogger(z *zap.Logger) Logger { return core.NewZapLogger(z) }

// DefaultSchedulerConfig returns a SchedulerConfig with default handlers.
func DefaultSchedulerConfig() *SchedulerConfig { return core.DefaultSchedulerConfig() }

// StartSync boots a scheduler, converts the caller into worker 0, and
// blocks until entry's dependency group completes.
func StartSync(cfg SchedulerConfig, entry Runnable) *Scheduler {
	return core.StartSync(cfg, entry)
}

// StartAsync boots a scheduler and returns immediately with a handle.
func StartAsync(cfg SchedulerConfig, entry Runnable) *Scheduler {
	return core.StartAsync(cfg, entry)
}
