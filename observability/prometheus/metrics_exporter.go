package prometheus

import (
	"errors"
	"fmt"

	"github.com/novafiber/nova/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	BatchSectionBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors, grounded
// on the teacher's exporter shape but retargeted at a fiber scheduler's
// metric surface: queue depth per lane, active worker count, dependency
// token completions, fiber-pool size, and batch-section throughput.
type MetricsExporter struct {
	jobPanicTotal        prom.Counter
	queueDepth           *prom.GaugeVec
	activeWorkers        prom.Gauge
	tokenCompletionTotal prom.Counter
	fiberPoolSize        *prom.GaugeVec
	batchSectionElements prom.Histogram
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "nova"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.BatchSectionBuckets
	if len(buckets) == 0 {
		buckets = prom.ExponentialBuckets(1, 2, 16)
	}

	panicTotal := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "job_panic_total",
		Help:      "Total number of job panics recovered by the scheduler.",
	})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current queue depth per lane (global, main).",
	}, []string{"lane"})
	activeWorkers := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "active_workers",
		Help:      "Number of jobs currently executing, including jobs suspended in a Call.",
	})
	tokenCompletionTotal := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "token_completion_total",
		Help:      "Total number of dependency token continuations fired.",
	})
	fiberPoolSizeVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "fiber_pool_size",
		Help:      "Number of fiber goroutines, by state (live, recycled).",
	}, []string{"state"})
	batchSectionElements := prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_section_elements",
		Help:      "Size of the subrange each completed batch section claimed.",
		Buckets:   buckets,
	})

	var err error
	if panicTotal, err = registerCollector(reg, panicTotal); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}
	if activeWorkers, err = registerCollector(reg, activeWorkers); err != nil {
		return nil, err
	}
	if tokenCompletionTotal, err = registerCollector(reg, tokenCompletionTotal); err != nil {
		return nil, err
	}
	if fiberPoolSizeVec, err = registerCollector(reg, fiberPoolSizeVec); err != nil {
		return nil, err
	}
	if batchSectionElements, err = registerCollector(reg, batchSectionElements); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		jobPanicTotal:        panicTotal,
		queueDepth:           queueDepthVec,
		activeWorkers:        activeWorkers,
		tokenCompletionTotal: tokenCompletionTotal,
		fiberPoolSize:        fiberPoolSizeVec,
		batchSectionElements: batchSectionElements,
	}, nil
}

// RecordJobPanic increments the job-panic counter.
func (m *MetricsExporter) RecordJobPanic(panicInfo any) {
	if m == nil {
		return
	}
	m.jobPanicTotal.Inc()
}

// RecordQueueDepth records the current depth of one queue lane.
func (m *MetricsExporter) RecordQueueDepth(lane string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(lane, "unknown")).Set(float64(depth))
}

// RecordActiveWorkers records the current active-worker count.
func (m *MetricsExporter) RecordActiveWorkers(count int) {
	if m == nil {
		return
	}
	m.activeWorkers.Set(float64(count))
}

// RecordTokenCompletion increments the token-completion counter.
func (m *MetricsExporter) RecordTokenCompletion() {
	if m == nil {
		return
	}
	m.tokenCompletionTotal.Inc()
}

// RecordFiberPoolSize records live and recycled fiber counts.
func (m *MetricsExporter) RecordFiberPoolSize(live, recycled int) {
	if m == nil {
		return
	}
	m.fiberPoolSize.WithLabelValues("live").Set(float64(live))
	m.fiberPoolSize.WithLabelValues("recycled").Set(float64(recycled))
}

// RecordBatchSection observes the size of a completed batch section.
func (m *MetricsExporter) RecordBatchSection(rangeSize int) {
	if m == nil {
		return
	}
	m.batchSectionElements.Observe(float64(rangeSize))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
