// Package nova provides a fiber-based job scheduler for fanning small
// units of work out across a fixed pool of workers and, when needed,
// waiting on them without blocking a worker's OS thread.
//
// Unlike a plain goroutine pool, jobs that need to wait on other jobs
// (via Call or ParallelFor) suspend only the logical fiber that issued
// the wait — the worker slot that was running it is immediately free to
// pick up other work. This is the same trick a userspace fiber runtime
// gives you, built here on top of goroutines parked on rendezvous
// channels rather than a manual stack switch.
//
// # Quick start
//
// Boot a scheduler and run an entry point synchronously:
//
//	nova.StartSync(nova.SchedulerConfig{WorkerCount: 4}, func(ctx context.Context) {
//		nova.ParallelFor(ctx, 0, 1_000_000, func(ctx context.Context, start, end int) {
//			// process items [start, end)
//		})
//	})
//
// StartSync converts the calling goroutine into worker 0 and does not
// return until entry, and everything it transitively depends on, has
// finished.
//
// # Key concepts
//
// A Job is a unit of work: Bind wraps an ordinary closure, BindBatch
// wraps a closure meant to run once per claimed subrange of a range.
// Push submits jobs for fire-and-forget execution; PushToMain submits
// jobs that must run on worker 0; PushDependent attaches newly pushed
// jobs to the currently running job's completion, so an enclosing Call
// won't consider it done until they finish too.
//
// Call suspends the calling job until every job it submits (and
// anything they push with PushDependent) completes. ParallelFor is
// Call plus BindBatch: split a range across the worker pool and wait
// for it. SwitchToMain suspends the calling job and resumes it running
// as worker 0.
//
// # Thread safety
//
// Every exported function here is safe to call concurrently from any
// number of jobs. Push, PushToMain, PushDependent, Call, ParallelFor,
// and SwitchToMain must all be called from within a running job (i.e.
// with a context.Context descended from one the scheduler handed to a
// job) — calling them from outside a job is a programmer error and
// panics.
package nova
