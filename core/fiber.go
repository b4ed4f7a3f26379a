package core

import "context"

// activation is what one fiber switch hands to the fiber being switched
// into: the worker slot it now drives, and the arming dependency token
// (if any) it must open immediately upon activation — spec.md §4.6
// step 8, generalized: this applies whether the fiber is fresh or a
// recycled fiber reactivated as a new Call's target, since both are "a
// fiber taking over a worker's active slot." A suspended caller (F_old)
// is not resumed through an activation: runResumeJob wakes it over its
// Call's done channel, with no token to open.
//
// Handing the token through this struct, rather than releasing it
// before the switch, is what structurally enforces the arm-release
// ordering decided in SPEC_FULL.md §14 item 3: the release cannot
// happen before the switch, because it IS part of what the switch
// delivers.
type activation struct {
	wc    *workerContext
	token *DependencyToken
}

// fiber is a cooperatively-scheduled execution context realized on top
// of a goroutine parked on a private, unbuffered rendezvous channel.
// See SPEC_FULL.md §10 for why goroutines are the correct substrate:
// they are already stackful, independently-scheduled execution
// contexts, so the only thing this type adds is the suspend/resume
// discipline and the bound on how many are concurrently active.
type fiber struct {
	started bool
	resume  chan activation
}

func newFiber() *fiber {
	return &fiber{resume: make(chan activation)}
}

// enter is the body a fresh fiber's goroutine runs the first time it is
// switched into. It opens the arming token handed to it (spec.md §4.6
// step 8) before entering the pop→execute loop.
func (f *fiber) enter(act activation) {
	if act.token != nil {
		act.token.Open(withWorkerContext(context.Background(), newJobBinding(act.wc)))
	}
	driveLoop(act.wc, f)
}

// driveLoop is the worker job loop: pop an envelope for wc's worker,
// execute it, repeat, until a kill job clears wc's running flag, the pop
// fails (shutdown), or executeEnvelope returns nil (this fiber was
// parked in a resume job when shutdown began). When an executed
// envelope leaves this fiber serving a different worker context, the
// loop keeps running, just bound to the new wc.
func driveLoop(wc *workerContext, self *fiber) {
	for wc.running {
		env, ok := popForWorker(wc)
		if !ok {
			return
		}
		wc = executeEnvelope(wc, self, env)
		if wc == nil {
			return
		}
	}
}

func popForWorker(wc *workerContext) (*Envelope, bool) {
	var env *Envelope
	var ok bool
	if wc.id == 0 {
		env, ok = wc.sched.queue.PopMain(wc.sched.stopCh)
	} else {
		env, ok = wc.sched.queue.PopAny(wc.sched.stopCh)
	}
	if ok {
		wc.sched.recordQueueDepths()
	}
	return env, ok
}

// executeEnvelope runs one envelope on behalf of fiber self, currently
// serving worker wc, and returns the worker context the caller's loop
// should continue with next. For an ordinary job this is wc itself,
// unless the job called Call/SwitchToMain and got resumed on a
// different worker — in which case it is that worker (jb.wc, mutated
// in place by Call across the resume). For an internal resume job it is
// whatever worker eventually reactivates self as a later Call's target
// fiber.
func executeEnvelope(wc *workerContext, self *fiber, env *Envelope) *workerContext {
	if env.resume != nil {
		return runResumeJob(wc, self, env.resume)
	}

	jb := &jobBinding{wc: wc, dependentToken: env.token}
	ctx := withWorkerContext(context.Background(), jb)
	wc.sched.incActiveWorkers()
	func() {
		defer func() {
			wc.sched.decActiveWorkers()
			if r := recover(); r != nil {
				handleJobPanic(jb.wc, ctx, r)
			}
		}()
		env.invoke(ctx)
	}()
	return jb.wc
}

// runResumeJob implements spec.md §4.6's "resume job": shelve the fiber
// presently active on wc (self) into wc's recycled stack, hand wc
// itself to F_old (the caller blocked in Call) so it takes over driving
// this slot, then park self until it is itself chosen as some future
// Call's target fiber.
//
// wc — the slot this resume job actually ran on — is sent rather than a
// bare wake signal, because F_old must resume bound to whichever worker
// happened to run the resume job, not the one it originally suspended
// on (spec.md §4.6 resume step 2, Property 6/§5): self is shelved off
// of wc here, and F_old is exactly what takes its place.
//
// The wake of F_old and the eventual reactivation of self are two
// separate, unrelated events: F_old resumes because its own dependency
// group finished, with nothing further to open; self is reactivated
// later, independently, when some other worker's Call acquires it from
// the recycled stack — at which point it opens whatever token THAT call
// is arming, symmetric to a fresh fiber's first activation.
//
// self's park on <-self.resume is raced against wc.sched.stopCh so that
// KillAllWorkers's close(stopCh) reaches every shelved fiber, not just
// the ones actively driving a worker's pop loop — without this, a fiber
// parked here (including the one left behind on worker 0 once
// StartSync's entry job finishes) would block forever, since it is
// never popping from any queue and the kill envelopes never reach it.
// Returning nil signals driveLoop to exit rather than continue with a
// nonexistent worker context.
func runResumeJob(wc *workerContext, self *fiber, op *resumeOp) *workerContext {
	wc.recycled.Push(self)
	wc.sched.fiberRecycled()
	op.done <- wc

	select {
	case act := <-self.resume:
		if act.token != nil {
			act.token.Open(withWorkerContext(context.Background(), newJobBinding(act.wc)))
		}
		return act.wc
	case <-wc.sched.stopCh:
		return nil
	}
}

// activateFiber switches the worker driving wc onto target, carrying
// token as the arming reference target must open once active. If
// target has never run before, its goroutine is spawned now; otherwise
// it is a recycled fiber parked on its own resume channel and is woken
// via a rendezvous send.
func activateFiber(wc *workerContext, target *fiber, token *DependencyToken) {
	act := activation{wc: wc, token: token}
	if target.started {
		target.resume <- act
		return
	}
	target.started = true
	go target.enter(act)
}
