package core

import (
	"context"

	"github.com/emirpasic/gods/stacks/arraystack"
)

type workerContextKeyType struct{}

var workerContextKey = workerContextKeyType{}

// workerContext is the per-worker "thread-local" state of spec.md §3:
// the fixed identity of one worker slot for the scheduler's entire
// lifetime — its id, its scheduler, its recyclable-fiber stack, and
// whether it should keep looping. Exactly one *workerContext exists per
// slot; whichever fiber currently drives that slot's job loop holds
// this same pointer, handed along by activateFiber across every switch.
type workerContext struct {
	id    int
	sched *Scheduler

	// recycled holds *fiber values that have been shelved (parked inside
	// the resume job that handed this slot back to a resumed caller) and
	// can be reactivated as some future Call's target,
	// avoiding an unbounded number of fresh goroutines.
	recycled *arraystack.Stack

	running bool
}

func newWorkerContext(id int, sched *Scheduler) *workerContext {
	return &workerContext{
		id:       id,
		sched:    sched,
		recycled: arraystack.New(),
		running:  true,
	}
}

// acquireFiber returns a recycled fiber if one is available for this
// worker, otherwise a fresh, not-yet-started one.
func (wc *workerContext) acquireFiber() *fiber {
	if v, ok := wc.recycled.Pop(); ok {
		wc.sched.fiberReactivated()
		return v.(*fiber)
	}
	wc.sched.fiberCreated()
	return newFiber()
}

// jobBinding is the per-execution-path state threaded through
// context.Context: which physical worker slot the currently running job
// is pinned to right now, and the dependency token (if any)
// PushDependent should attach clones to. dependentToken is fixed for
// the job's whole execution; wc is not — Call and SwitchToMain repoint
// it in place when the job resumes on a different worker slot than the
// one it suspended on (spec.md §4.6 resume step 2: "possibly different
// from W"), so the job's own driveLoop, and any code downstream of the
// Call still holding the same ctx, observe the new slot.
//
// This indirection exists because a *workerContext must remain a
// stable, shared identity for whichever fiber is currently driving a
// slot — including a brand new fiber activated the instant a Call
// suspends its caller — while the suspended caller's own eventual
// resumption must not disturb that. Splitting "the slot" from "which
// slot this execution is currently bound to" is what lets both hold
// simultaneously.
type jobBinding struct {
	wc             *workerContext
	dependentToken *DependencyToken
}

func newJobBinding(wc *workerContext) *jobBinding {
	return &jobBinding{wc: wc}
}

func withWorkerContext(ctx context.Context, jb *jobBinding) context.Context {
	return context.WithValue(ctx, workerContextKey, jb)
}

func jobBindingFromContext(ctx context.Context) *jobBinding {
	jb, _ := ctx.Value(workerContextKey).(*jobBinding)
	return jb
}

// requireJobBinding fetches the calling job's full binding, panicking if
// ctx was not produced by this scheduler.
func requireJobBinding(ctx context.Context) *jobBinding {
	jb := jobBindingFromContext(ctx)
	if jb == nil {
		panic("core: called from a context with no active worker; must run inside a scheduled job")
	}
	return jb
}

// requireWorkerContext fetches the worker slot the calling job is
// currently pinned to, panicking if ctx was not produced by this
// scheduler — calling Push, PushDependent, Call, or ParallelFor from
// outside a running job is a programmer error (spec.md §7's debug-time
// assertion preconditions).
func requireWorkerContext(ctx context.Context) *workerContext {
	return requireJobBinding(ctx).wc
}

// WorkerID returns the id of the worker currently running the calling
// job, or -1 if ctx did not originate from this package's scheduler.
func WorkerID(ctx context.Context) int {
	jb := jobBindingFromContext(ctx)
	if jb == nil {
		return -1
	}
	return jb.wc.id
}

// IsMainWorker reports whether the currently executing job is running
// on worker 0, the main-affine worker.
func IsMainWorker(ctx context.Context) bool {
	return WorkerID(ctx) == 0
}
