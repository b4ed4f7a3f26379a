package prometheus

import (
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("nova", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordJobPanic("boom")
	exporter.RecordQueueDepth("global", 7)
	exporter.RecordActiveWorkers(3)
	exporter.RecordTokenCompletion()
	exporter.RecordFiberPoolSize(5, 2)
	exporter.RecordBatchSection(128)

	if got := testutil.ToFloat64(exporter.jobPanicTotal); got != 1 {
		t.Fatalf("panic total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.queueDepth.WithLabelValues("global")); got != 7 {
		t.Fatalf("queue depth = %v, want 7", got)
	}
	if got := testutil.ToFloat64(exporter.activeWorkers); got != 3 {
		t.Fatalf("active workers = %v, want 3", got)
	}
	if got := testutil.ToFloat64(exporter.tokenCompletionTotal); got != 1 {
		t.Fatalf("token completion total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.fiberPoolSize.WithLabelValues("live")); got != 5 {
		t.Fatalf("live fiber gauge = %v, want 5", got)
	}
	if got := testutil.ToFloat64(exporter.fiberPoolSize.WithLabelValues("recycled")); got != 2 {
		t.Fatalf("recycled fiber gauge = %v, want 2", got)
	}

	histCount, err := histogramSampleCount(exporter.batchSectionElements)
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("batch section sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("nova", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("nova", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordJobPanic(nil)
	second.RecordJobPanic(nil)

	got := testutil.ToFloat64(first.jobPanicTotal)
	if got != 2 {
		t.Fatalf("shared panic counter = %v, want 2", got)
	}
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
