package core

import "context"

// StartSync boots a Scheduler, spawns workerCount-1 additional workers,
// converts the calling goroutine into worker 0, and blocks until entry
// (and everything it transitively pushes as a dependency) has finished,
// per spec.md §4.8's "Start (sync)". It then kills every worker and
// waits for them to exit before returning.
func StartSync(cfg SchedulerConfig, entry Runnable) *Scheduler {
	sched := NewScheduler(cfg)
	sched.logger.Info("starting scheduler", F("scheduler", sched.name), F("worker_count", sched.workerCount), F("mode", "sync"))
	sched.spawnWorkers()

	wc := newWorkerContext(0, sched)
	sched.fiberCreated()

	ctx := withWorkerContext(context.Background(), newJobBinding(wc))
	// FromMain: true ensures the initiating goroutine resumes back on
	// worker 0's affinity once entry's dependency group completes,
	// matching the "the initiating thread performs a call on the user
	// entry" description in spec.md §4.8.
	Call(ctx, CallOptions{FromMain: true}, Bind(entry))

	sched.KillAllWorkers()
	sched.Join()
	sched.logger.Info("scheduler stopped", F("scheduler", sched.name))
	return sched
}

// StartAsync boots a Scheduler, spawns workerCount-1 additional
// workers, seeds entry as a job on the main queue, and returns
// immediately with a handle the caller can use to push further work or
// call KillAllWorkers later. Per spec.md §4.8's "Start (async)": the
// seed job is pushed onto the main queue, and worker 0's job loop runs
// on its own background goroutine rather than blocking the caller —
// the Go re-expression of "the initiating thread itself enters the
// worker loop as thread 0" for callers that want a non-blocking start.
func StartAsync(cfg SchedulerConfig, entry Runnable) *Scheduler {
	sched := NewScheduler(cfg)
	sched.logger.Info("starting scheduler", F("scheduler", sched.name), F("worker_count", sched.workerCount), F("mode", "async"))
	sched.spawnWorkers()

	sched.wg.Add(1)
	go func() {
		defer sched.wg.Done()
		wc := newWorkerContext(0, sched)
		self := newFiber()
		sched.fiberCreated()
		self.started = true
		sched.queue.PushMain(NewEnvelope(entry))
		sched.recordQueueDepths()
		driveLoop(wc, self)
	}()

	return sched
}
