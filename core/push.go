package core

import "context"

// Job is anything Push, PushToMain, PushDependent, or Call can accept:
// an ordinary Runnable wrapped with Bind, or a batch job wrapped with
// BindBatch. This is the Go analogue of spec.md §6's heterogeneous
// runnable/batch-job parameter pack — expressed as an interface with
// one unexported method rather than the original's compile-time
// argument-pack classification, since the pre-sizing that
// classification exists for is an optimization, not a contract.
type Job interface {
	buildEnvelopes(workerCount int) []*Envelope
}

type plainJob struct{ run Runnable }

func (j plainJob) buildEnvelopes(int) []*Envelope {
	return []*Envelope{NewEnvelope(j.run)}
}

// Bind wraps f as a single-envelope Job — the analogue of spec.md §6's
// bind(f, args...). Arguments are captured directly by the closure
// passed in, since Go has no positional argument tuple to marshal.
func Bind(f Runnable) Job { return plainJob{run: f} }

type batchJob struct {
	fn         BatchRunnable
	start, end int
}

func (j batchJob) buildEnvelopes(workerCount int) []*Envelope {
	return NewBatchTask(j.fn, j.start, j.end, workerCount).splitEnvelopes()
}

// BindBatch wraps f as a batch Job over [start, end) — the analogue of
// spec.md §6's bind_batch(f, start, end, args...).
func BindBatch(f BatchRunnable, start, end int) Job {
	return batchJob{fn: f, start: start, end: end}
}

func expandJobs(jobs []Job, workerCount int) []*Envelope {
	envs := make([]*Envelope, 0, len(jobs))
	for _, j := range jobs {
		envs = append(envs, j.buildEnvelopes(workerCount)...)
	}
	return envs
}

// Push submits jobs for fire-and-forget execution on the global queue
// (spec.md §6's push). Push never attaches jobs to a dependency token,
// whatever job it is called from; PushDependent does that.
func Push(ctx context.Context, jobs ...Job) {
	wc := requireWorkerContext(ctx)
	if wc.sched.isShuttingDown() {
		wc.sched.rejectedTaskHandler.HandleRejectedTask(wc.sched.name, "shutting down")
		return
	}
	envs := expandJobs(jobs, wc.sched.workerCount)
	wc.sched.queue.PushGlobalBulk(envs)
	wc.sched.recordQueueDepths()
}

// PushToMain submits jobs that must run on worker 0 (spec.md §6's
// push_to_main).
func PushToMain(ctx context.Context, jobs ...Job) {
	wc := requireWorkerContext(ctx)
	if wc.sched.isShuttingDown() {
		wc.sched.rejectedTaskHandler.HandleRejectedTask(wc.sched.name, "shutting down")
		return
	}
	envs := expandJobs(jobs, wc.sched.workerCount)
	wc.sched.queue.PushMainBulk(envs)
	wc.sched.recordQueueDepths()
}

// PushDependent submits jobs and, if the currently running job carries
// a dependency token, attaches a clone of that token to each of them
// (spec.md §4.7's push_dependent): the currently running job's group
// will not be considered complete until these newly pushed jobs also
// complete. If the currently running job carries no token (it was
// pushed with plain Push, not as part of a Call or another
// PushDependent), the jobs are pushed exactly like Push.
func PushDependent(ctx context.Context, jobs ...Job) {
	jb := requireJobBinding(ctx)
	wc := jb.wc
	if wc.sched.isShuttingDown() {
		wc.sched.rejectedTaskHandler.HandleRejectedTask(wc.sched.name, "shutting down")
		return
	}
	envs := expandJobs(jobs, wc.sched.workerCount)
	if jb.dependentToken != nil {
		for _, e := range envs {
			e.AttachToken(jb.dependentToken.Clone())
		}
	}
	wc.sched.queue.PushGlobalBulk(envs)
	wc.sched.recordQueueDepths()
}

// PushWithContinuation submits jobs and arranges for continuation to
// run, exactly once, after every one of them has completed — without
// suspending the calling job. This is the fire-and-forget analogue of
// Call, additive sugar grounded on original_source's Push(Envelope&
// next, Runnables...) overloads (SPEC_FULL.md §13): the original shows
// that a non-blocking, dependency-driven continuation is a distinct use
// case from Call's blocking wait, and this method gives it a first
// class entry point rather than requiring callers to hand-roll a token.
func PushWithContinuation(ctx context.Context, continuation Runnable, jobs ...Job) {
	wc := requireWorkerContext(ctx)
	if wc.sched.isShuttingDown() {
		wc.sched.rejectedTaskHandler.HandleRejectedTask(wc.sched.name, "shutting down")
		return
	}
	envs := expandJobs(jobs, wc.sched.workerCount)

	cont := NewEnvelope(func(ctx context.Context) {
		if wc.sched.metrics != nil {
			wc.sched.metrics.RecordTokenCompletion()
		}
		continuation(ctx)
	})
	token := NewDependencyToken(cont)
	for _, e := range envs {
		e.AttachToken(token.Clone())
	}
	wc.sched.queue.PushGlobalBulk(envs)
	wc.sched.recordQueueDepths()
	token.Open(ctx)
}
