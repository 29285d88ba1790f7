package prometheus

import (
	"context"
	"time"

	"github.com/turtacn/platemap/internal/intelligence/common"
)

// Stage names used as the "stage" label.
const (
	StageAnalyze   = "analyze"
	StageEnumerate = "enumerate"
	StageMerge     = "merge"
	StagePublish   = "publish"
	StageRun       = "run"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Default buckets
var (
	DefaultStageDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300}
	DefaultBatchDurationBuckets = []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600}
)

// PlatemapMetrics holds the metrics of one platemap process. A nil
// *PlatemapMetrics is valid and records nothing.
type PlatemapMetrics struct {
	StageDuration     HistogramVec
	RunsTotal         CounterVec
	ProtocolWells     GaugeVec
	ExcludedTransfers CounterVec
	Conflicts         CounterVec
	ProductsTotal     CounterVec
	MergedWells       GaugeVec
	MissingWells      GaugeVec
	CacheAccessTotal  CounterVec
	BatchItemsTotal   CounterVec
	BatchDuration     HistogramVec
	BatchConcurrency  GaugeVec
}

// NewPlatemapMetrics registers all metrics on collector.
func NewPlatemapMetrics(collector MetricsCollector) *PlatemapMetrics {
	m := &PlatemapMetrics{}

	m.StageDuration = collector.RegisterHistogram("stage_duration_seconds", "Duration of a pipeline stage", DefaultStageDurationBuckets, "stage", "outcome")
	m.RunsTotal = collector.RegisterCounter("runs_total", "Completed pipeline runs", "status")

	m.ProtocolWells = collector.RegisterGauge("protocol_destination_wells", "Destination wells recovered from the last analyzed protocol")
	m.ExcludedTransfers = collector.RegisterCounter("protocol_excluded_transfers_total", "Transfers the analyzer could not resolve", "reason")
	m.Conflicts = collector.RegisterCounter("protocol_conflicts_total", "Second same-class writes to a destination well")

	m.ProductsTotal = collector.RegisterCounter("products_total", "Enumerated products", "status")

	m.MergedWells = collector.RegisterGauge("merge_wells", "Destination wells in the last merge")
	m.MissingWells = collector.RegisterGauge("merge_missing_wells", "Destination wells without a product in the last merge")

	m.CacheAccessTotal = collector.RegisterCounter("cache_access_total", "Cache lookups", "cache", "result")

	m.BatchItemsTotal = collector.RegisterCounter("batch_items_total", "Items processed by the worker pool", "batch", "result")
	m.BatchDuration = collector.RegisterHistogram("batch_duration_seconds", "Worker pool batch duration", DefaultBatchDurationBuckets, "batch")
	m.BatchConcurrency = collector.RegisterGauge("batch_max_concurrency", "Configured worker pool size", "batch")

	return m
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// ObserveStage records the duration and outcome of one pipeline stage.
func (m *PlatemapMetrics) ObserveStage(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage, outcome(err)).Observe(d.Seconds())
}

// RecordRun counts one finished run by its status ("complete",
// "incomplete" or "failed").
func (m *PlatemapMetrics) RecordRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// RecordProtocol records the size of an analysis result. excluded is keyed
// by exclusion reason.
func (m *PlatemapMetrics) RecordProtocol(wells int, excluded map[string]int, conflicts int) {
	if m == nil {
		return
	}
	m.ProtocolWells.WithLabelValues().Set(float64(wells))
	for reason, n := range excluded {
		m.ExcludedTransfers.WithLabelValues(reason).Add(float64(n))
	}
	m.Conflicts.WithLabelValues().Add(float64(conflicts))
}

// RecordProducts counts enumerated products by status label.
func (m *PlatemapMetrics) RecordProducts(byStatus map[string]int) {
	if m == nil {
		return
	}
	for status, n := range byStatus {
		m.ProductsTotal.WithLabelValues(status).Add(float64(n))
	}
}

// RecordMerge sets the size and the gap of the last merge.
func (m *PlatemapMetrics) RecordMerge(total, missing int) {
	if m == nil {
		return
	}
	m.MergedWells.WithLabelValues().Set(float64(total))
	m.MissingWells.WithLabelValues().Set(float64(missing))
}

// RecordCacheAccess counts one cache lookup.
func (m *PlatemapMetrics) RecordCacheAccess(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheAccessTotal.WithLabelValues(cache, result).Inc()
}

// RecordBatchProcessing implements common.BatchMetrics.
func (m *PlatemapMetrics) RecordBatchProcessing(_ context.Context, p *common.BatchMetricParams) {
	if m == nil || p == nil {
		return
	}
	m.BatchItemsTotal.WithLabelValues(p.BatchName, "success").Add(float64(p.SuccessItems))
	m.BatchItemsTotal.WithLabelValues(p.BatchName, "failed").Add(float64(p.FailedItems))
	m.BatchDuration.WithLabelValues(p.BatchName).Observe(p.TotalDurationMs / 1000)
	m.BatchConcurrency.WithLabelValues(p.BatchName).Set(float64(p.MaxConcurrency))
}

var _ common.BatchMetrics = (*PlatemapMetrics)(nil)

//Personal.AI order the ending
