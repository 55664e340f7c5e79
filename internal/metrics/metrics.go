// Package metrics exposes Prometheus instrumentation for ingestion jobs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ingestor"

// Chunk write results.
const (
	ChunkOK       = "ok"
	ChunkPartial  = "partial"
	ChunkRejected = "rejected"
	ChunkError    = "error"
)

// Metrics holds the job and step collectors.
type Metrics struct {
	ItemsRead     *prometheus.CounterVec
	ItemsSkipped  *prometheus.CounterVec
	ItemsWritten  *prometheus.CounterVec
	ItemsRejected *prometheus.CounterVec
	ChunkWrites   *prometheus.CounterVec
	JobRuns       *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
	JobsRunning   prometheus.Gauge
}

// New registers every collector on reg. A nil reg uses a private registry so
// tests and repeated construction never collide on the default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	itemCounter := func(name, help string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step",
			Name:      name,
			Help:      help,
		}, []string{"job", "step"})
	}

	return &Metrics{
		ItemsRead:     itemCounter("items_read_total", "Raw items returned by readers"),
		ItemsSkipped:  itemCounter("items_skipped_total", "Raw items dropped by processors"),
		ItemsWritten:  itemCounter("items_written_total", "Requests accepted by the downstream store"),
		ItemsRejected: itemCounter("items_rejected_total", "Requests reported as failed inside accepted chunks"),
		ChunkWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step",
			Name:      "chunk_writes_total",
			Help:      "Chunk writes by result",
		}, []string{"job", "result"}),
		JobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "runs_total",
			Help:      "Job executions by terminal status",
		}, []string{"job", "status"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "duration_seconds",
			Help:      "Job execution time",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 15),
		}, []string{"job"}),
		JobsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "running",
			Help:      "Jobs currently executing",
		}),
	}
}

// ObserveJob records a finished job. Safe on a nil receiver.
func (m *Metrics) ObserveJob(job, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, status).Inc()
	m.JobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// ObserveChunk records one chunk write.
func (m *Metrics) ObserveChunk(job, step, result string, written, rejected int) {
	if m == nil {
		return
	}
	m.ChunkWrites.WithLabelValues(job, result).Inc()
	if written > 0 {
		m.ItemsWritten.WithLabelValues(job, step).Add(float64(written))
	}
	if rejected > 0 {
		m.ItemsRejected.WithLabelValues(job, step).Add(float64(rejected))
	}
}

// ObservePage records the items of one page and how many were dropped.
func (m *Metrics) ObservePage(job, step string, read, skipped int) {
	if m == nil {
		return
	}
	m.ItemsRead.WithLabelValues(job, step).Add(float64(read))
	if skipped > 0 {
		m.ItemsSkipped.WithLabelValues(job, step).Add(float64(skipped))
	}
}

// Running adjusts the running-jobs gauge by delta.
func (m *Metrics) Running(delta float64) {
	if m == nil {
		return
	}
	m.JobsRunning.Add(delta)
}
