package core

import (
	"context"
	"sync"
	"sync/atomic"
)

// Scheduler is the top-level engine: a DualQueue plus a fixed set of
// worker contexts, wired together per spec.md §3–§5. It is grounded on
// the teacher's TaskScheduler (the signal-channel wakeup pattern that
// became DualQueue's per-lane signal channels) and pool.go's
// Start/Stop/global-singleton lifecycle shape.
type Scheduler struct {
	name        string
	workerCount int
	queue       *DualQueue

	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler
	logger              Logger

	stopCh      chan struct{}
	stopOnce    sync.Once
	shuttingDown int32

	activeWorkers  int32
	liveFibers     int32
	recycledFibers int32

	idMu   sync.Mutex
	nextID int

	wg sync.WaitGroup
}

// NewScheduler constructs a Scheduler from cfg, filling in defaults for
// anything left zero. It does not start any workers; call StartAsync or
// StartSync to do that.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	def := DefaultSchedulerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.SpinIterations <= 0 {
		cfg.SpinIterations = def.SpinIterations
	}
	if cfg.BatchSliceHint <= 0 {
		cfg.BatchSliceHint = def.BatchSliceHint
	}
	if cfg.PanicHandler == nil {
		cfg.PanicHandler = def.PanicHandler
	}
	if cfg.Metrics == nil {
		cfg.Metrics = def.Metrics
	}
	if cfg.RejectedTaskHandler == nil {
		cfg.RejectedTaskHandler = def.RejectedTaskHandler
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}

	return &Scheduler{
		name:                cfg.Name,
		workerCount:         cfg.WorkerCount,
		queue:               NewDualQueue(cfg.SpinIterations),
		panicHandler:        cfg.PanicHandler,
		metrics:             cfg.Metrics,
		rejectedTaskHandler: cfg.RejectedTaskHandler,
		logger:              cfg.Logger,
		stopCh:              make(chan struct{}),
		nextID:              1, // 0 is reserved for the initiating goroutine
	}
}

// WorkerCount returns the fixed number of workers this scheduler runs.
func (s *Scheduler) WorkerCount() int { return s.workerCount }

// isShuttingDown reports whether KillAllWorkers has been called.
func (s *Scheduler) isShuttingDown() bool {
	return atomic.LoadInt32(&s.shuttingDown) != 0
}

// allocateWorkerID hands out ascending worker ids under a shared
// counter lock, grounded on original_source's WorkerThread::InitThread
// (SPEC_FULL.md §13): worker 0 is reserved for the goroutine that calls
// StartSync/StartAsync, so spawned workers start at id 1.
func (s *Scheduler) allocateWorkerID() int {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	id := s.nextID
	s.nextID++
	return id
}

// spawnWorkers starts (workerCount-1) additional worker goroutines
// (ids 1..workerCount-1); the initiating goroutine itself becomes
// worker 0, per spec.md §4.8.
func (s *Scheduler) spawnWorkers() {
	for i := 1; i < s.workerCount; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			id := s.allocateWorkerID()
			s.logger.Debug("worker spawned", F("scheduler", s.name), F("worker_id", id))
			wc := newWorkerContext(id, s)
			self := newFiber()
			s.fiberCreated()
			self.started = true
			driveLoop(wc, self)
			s.logger.Debug("worker exited", F("scheduler", s.name), F("worker_id", id))
		}()
	}
}

// KillAllWorkers stops every worker at its next loop iteration (after
// finishing whatever job it is currently running), per spec.md §4.8.
// It closes stopCh, which unblocks every worker's blocked Pop
// immediately, and additionally pushes one kill job per worker, which
// clears the running flag of whichever worker pops it, matching the
// original's "N kill jobs" vocabulary — the closed
// channel is what makes shutdown deterministic; the kill jobs exist for
// fidelity and to unstick a worker that is mid-spin rather than
// blocked.
func (s *Scheduler) KillAllWorkers() {
	if !atomic.CompareAndSwapInt32(&s.shuttingDown, 0, 1) {
		return
	}
	s.logger.Info("shutting down scheduler", F("scheduler", s.name), F("worker_count", s.workerCount))
	s.stopOnce.Do(func() { close(s.stopCh) })

	kills := make([]*Envelope, s.workerCount)
	for i := range kills {
		kills[i] = NewEnvelope(func(ctx context.Context) {
			wc := requireWorkerContext(ctx)
			wc.running = false
		})
	}
	s.queue.PushGlobalBulk(kills)
}

// Join blocks until every spawned worker (ids 1..workerCount-1) has
// exited its loop. Under StartAsync it also waits for worker 0's
// background goroutine; under StartSync, worker 0 is not waited on,
// since it is driven by the goroutine that called StartSync.
func (s *Scheduler) Join() {
	s.wg.Wait()
	s.logger.Debug("all workers joined", F("scheduler", s.name))
}

// recordQueueDepths reports both lanes' current depth to Metrics. Called
// after every push and every successful pop, so a polling exporter and a
// push/pop-driven one agree on freshness.
func (s *Scheduler) recordQueueDepths() {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordQueueDepth("global", s.queue.GlobalDepth())
	s.metrics.RecordQueueDepth("main", s.queue.MainDepth())
}

// incActiveWorkers and decActiveWorkers bracket the execution of an
// ordinary job (as opposed to a resume job or an idle Pop), reporting
// the live count to Metrics on every change.
func (s *Scheduler) incActiveWorkers() {
	n := atomic.AddInt32(&s.activeWorkers, 1)
	if s.metrics != nil {
		s.metrics.RecordActiveWorkers(int(n))
	}
}

func (s *Scheduler) decActiveWorkers() {
	n := atomic.AddInt32(&s.activeWorkers, -1)
	if s.metrics != nil {
		s.metrics.RecordActiveWorkers(int(n))
	}
}

// fiberCreated, fiberRecycled, and fiberReactivated track the live and
// recycled fiber counts spec.md §9's Testable Property 6 bounds, and
// report both to Metrics on every change.
func (s *Scheduler) fiberCreated() {
	atomic.AddInt32(&s.liveFibers, 1)
	s.reportFiberPoolSize()
}

func (s *Scheduler) fiberRecycled() {
	atomic.AddInt32(&s.recycledFibers, 1)
	s.reportFiberPoolSize()
}

func (s *Scheduler) fiberReactivated() {
	atomic.AddInt32(&s.recycledFibers, -1)
	s.reportFiberPoolSize()
}

func (s *Scheduler) reportFiberPoolSize() {
	if s.metrics == nil {
		return
	}
	live := atomic.LoadInt32(&s.liveFibers)
	recycled := atomic.LoadInt32(&s.recycledFibers)
	s.metrics.RecordFiberPoolSize(int(live), int(recycled))
}

// Stats is a point-in-time snapshot of scheduler runtime state, the
// polling surface for observability/prometheus.SchedulerSnapshotPoller.
type Stats struct {
	WorkerCount int
	GlobalDepth int
	MainDepth   int
	ShuttingDown bool
}

// Snapshot returns the current Stats.
func (s *Scheduler) Snapshot() Stats {
	return Stats{
		WorkerCount:  s.workerCount,
		GlobalDepth:  s.queue.GlobalDepth(),
		MainDepth:    s.queue.MainDepth(),
		ShuttingDown: s.isShuttingDown(),
	}
}
