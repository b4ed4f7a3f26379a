package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/novafiber/nova/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SnapshotProvider provides a point-in-time scheduler snapshot.
// *core.Scheduler satisfies this directly via its Snapshot method.
type SnapshotProvider interface {
	Snapshot() core.Stats
}

// SchedulerSnapshotPoller periodically exports Scheduler.Snapshot()
// results into Prometheus gauges, grounded on the teacher's
// SnapshotPoller polling-loop shape but retargeted at the Stats of any
// number of named schedulers rather than runner/pool providers.
type SchedulerSnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SnapshotProvider

	workerCount  *prom.GaugeVec
	globalDepth  *prom.GaugeVec
	mainDepth    *prom.GaugeVec
	shuttingDown *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSchedulerSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSchedulerSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SchedulerSnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	workerCount := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "nova",
		Name:      "scheduler_worker_count",
		Help:      "Number of workers configured for the scheduler.",
	}, []string{"scheduler"})
	globalDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "nova",
		Name:      "scheduler_global_queue_depth",
		Help:      "Depth of the scheduler's global queue lane.",
	}, []string{"scheduler"})
	mainDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "nova",
		Name:      "scheduler_main_queue_depth",
		Help:      "Depth of the scheduler's main-worker queue lane.",
	}, []string{"scheduler"})
	shuttingDown := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "nova",
		Name:      "scheduler_shutting_down",
		Help:      "Whether the scheduler is shutting down (1) or not (0).",
	}, []string{"scheduler"})

	var err error
	if workerCount, err = registerCollector(reg, workerCount); err != nil {
		return nil, err
	}
	if globalDepth, err = registerCollector(reg, globalDepth); err != nil {
		return nil, err
	}
	if mainDepth, err = registerCollector(reg, mainDepth); err != nil {
		return nil, err
	}
	if shuttingDown, err = registerCollector(reg, shuttingDown); err != nil {
		return nil, err
	}

	return &SchedulerSnapshotPoller{
		interval:     interval,
		schedulers:   make(map[string]SnapshotProvider),
		workerCount:  workerCount,
		globalDepth:  globalDepth,
		mainDepth:    mainDepth,
		shuttingDown: shuttingDown,
	}, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SchedulerSnapshotPoller) AddScheduler(name string, provider SnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// RemoveScheduler drops a previously added scheduler by name.
func (p *SchedulerSnapshotPoller) RemoveScheduler(name string) {
	if p == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	delete(p.schedulers, name)
	p.schedulersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SchedulerSnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SchedulerSnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SchedulerSnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SchedulerSnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	defer p.schedulersMu.RUnlock()

	for name, provider := range p.schedulers {
		stats := provider.Snapshot()
		p.workerCount.WithLabelValues(name).Set(float64(stats.WorkerCount))
		p.globalDepth.WithLabelValues(name).Set(float64(stats.GlobalDepth))
		p.mainDepth.WithLabelValues(name).Set(float64(stats.MainDepth))
		if stats.ShuttingDown {
			p.shuttingDown.WithLabelValues(name).Set(1)
		} else {
			p.shuttingDown.WithLabelValues(name).Set(0)
		}
	}
}
