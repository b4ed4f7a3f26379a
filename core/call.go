package core

import "context"

// CallOptions controls the affinity behavior of Call, mirroring
// spec.md §4.6/§6's ToMain and FromMain flags.
type CallOptions struct {
	// ToMain routes jobs onto the main-affine queue instead of the
	// global queue, so they only run on worker 0.
	ToMain bool

	// FromMain routes the resume job onto the main-affine queue, so the
	// caller resumes running as worker 0's active fiber. Passing
	// FromMain with no jobs performs a pure affinity switch — see
	// SwitchToMain.
	FromMain bool
}

// Call is spec.md §4.6's synchronous wait: submit jobs, suspend the
// calling fiber without blocking the underlying goroutine's worker slot
// from doing other work, and resume exactly where Call was invoked once
// every submitted job (and anything they transitively push with
// PushDependent) has completed.
func Call(ctx context.Context, opts CallOptions, jobs ...Job) {
	jb := requireJobBinding(ctx)
	wc := jb.wc
	envs := expandJobs(jobs, wc.sched.workerCount)

	if len(envs) == 0 {
		// Only a literal no-jobs, no-FromMain call has nothing to do at
		// all — that is a programmer error. A non-empty jobs slice that
		// happened to expand to zero envelopes (an empty ParallelFor
		// range, spec.md §4.2's edge case: "callable is not invoked") is
		// valid input and must be a clean no-op, not a panic.
		if len(jobs) == 0 && !opts.FromMain {
			panic("core: Call with no jobs and FromMain unset has nothing to wait for and requests no affinity change")
		}
		if opts.FromMain && !IsMainWorker(ctx) {
			switchAffinity(jb, true)
		}
		return
	}

	done := make(chan *workerContext)

	continuation := newResumeContinuation(wc.sched, opts.FromMain, done)
	token := NewDependencyToken(continuation)
	for _, e := range envs {
		e.AttachToken(token.Clone())
	}

	// Enqueue every envelope, then switch, then open the arming
	// reference — never the reverse (SPEC_FULL.md §14 item 3). The
	// arming token is handed to the target fiber via activateFiber, so
	// its Open() call physically cannot happen before the switch.
	if opts.ToMain {
		wc.sched.queue.PushMainBulk(envs)
	} else {
		wc.sched.queue.PushGlobalBulk(envs)
	}
	wc.sched.recordQueueDepths()

	target := wc.acquireFiber()
	activateFiber(wc, target, token)

	// The worker that resumes us may not be the one we suspended on
	// (spec.md §4.6 resume step 2). Repoint this job's binding at it in
	// place, so driveLoop's own loop — paused further up this same
	// goroutine's stack, inside executeEnvelope — picks up the new
	// worker once this call returns, and anything this job does with ctx
	// afterward (WorkerID, Push, another Call) sees it too.
	jb.wc = <-done
}

// newResumeContinuation builds the Envelope that, once every job in a
// Call's group has completed, pushes a resume job to reactivate the
// suspended caller (spec.md §4.6 step 2).
func newResumeContinuation(sched *Scheduler, fromMain bool, done chan *workerContext) *Envelope {
	return NewEnvelope(func(ctx context.Context) {
		if sched.metrics != nil {
			sched.metrics.RecordTokenCompletion()
		}
		resumeEnv := newResumeEnvelope(done)
		if fromMain {
			sched.queue.PushMain(resumeEnv)
		} else {
			sched.queue.PushGlobal(resumeEnv)
		}
	})
}

// switchAffinity performs the zero-job affinity move of SwitchToMain
// when the caller isn't already on worker 0: submit no work, but still
// suspend onto a fresh fiber and arrange for the resume job to land on
// the main queue.
func switchAffinity(jb *jobBinding, toMain bool) {
	wc := jb.wc
	done := make(chan *workerContext)
	continuation := newResumeContinuation(wc.sched, toMain, done)
	token := NewDependencyToken(continuation)

	// No jobs are attached, so token's only reference is the arming
	// one; target's activation opens it, exactly as in Call.
	target := wc.acquireFiber()
	activateFiber(wc, target, token)
	jb.wc = <-done
}

// SwitchToMain suspends the calling fiber and resumes it running as
// worker 0's active fiber (spec.md §6's switch_to_main). It is Call
// with no jobs and FromMain set.
func SwitchToMain(ctx context.Context) {
	jb := requireJobBinding(ctx)
	if IsMainWorker(ctx) {
		return
	}
	switchAffinity(jb, true)
}

// ParallelFor is sugar over Call + BindBatch: it splits [start, end)
// into up to workerCount sections, runs f once per claimed subrange
// concurrently with any other pushed work, and does not return until
// every section has finished (spec.md §6's parallel_for).
func ParallelFor(ctx context.Context, start, end int, f BatchRunnable) {
	Call(ctx, CallOptions{}, BindBatch(f, start, end))
}
