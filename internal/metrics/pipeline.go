// Package metrics provides Prometheus collectors for motion analysis runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks analysis throughput and per-frame flags. A nil
// *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	FramesProcessed  prometheus.Counter
	PeaksDetected    prometheus.Counter
	DegenerateFrames prometheus.Counter
	TruncatedRuns    prometheus.Counter
	RunsTotal        *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	RunDuration      prometheus.Histogram
	ActiveRuns       prometheus.Gauge

	registry *prometheus.Registry
}

// NewPipelineMetrics creates the collectors and registers them on registry.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.FramesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "motionbeat_frames_processed_total",
		Help: "Motion records appended to a table.",
	})
	m.PeaksDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "motionbeat_peaks_detected_total",
		Help: "Records flagged as peak moments.",
	})
	m.DegenerateFrames = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "motionbeat_degenerate_frames_total",
		Help: "Records whose time step was zero or negative.",
	})
	m.TruncatedRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "motionbeat_truncated_runs_total",
		Help: "Runs whose source ended before the declared frame count.",
	})
	m.RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "motionbeat_runs_total",
		Help: "Analysis runs by outcome.",
	}, []string{"status"})
	m.StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "motionbeat_stage_duration_seconds",
		Help:    "Per-frame time spent in each pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16), // 10µs to ~330ms
	}, []string{"stage"})
	m.RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "motionbeat_run_duration_seconds",
		Help:    "Wall time of complete analysis runs.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	m.ActiveRuns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "motionbeat_active_runs",
		Help: "Analysis runs currently in progress.",
	})
}

// RecordStage observes one frame's time in a stage.
func (m *PipelineMetrics) RecordStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordFrame counts an appended record.
func (m *PipelineMetrics) RecordFrame(peak, degenerate bool) {
	if m == nil {
		return
	}
	m.FramesProcessed.Inc()
	if peak {
		m.PeaksDetected.Inc()
	}
	if degenerate {
		m.DegenerateFrames.Inc()
	}
}

// RunStarted marks a run in progress.
func (m *PipelineMetrics) RunStarted() {
	if m == nil {
		return
	}
	m.ActiveRuns.Inc()
}

// RunFinished records the outcome of a run.
func (m *PipelineMetrics) RunFinished(d time.Duration, truncated bool, err error) {
	if m == nil {
		return
	}
	m.ActiveRuns.Dec()
	m.RunDuration.Observe(d.Seconds())
	switch {
	case err != nil:
		m.RunsTotal.WithLabelValues("error").Inc()
	case truncated:
		m.TruncatedRuns.Inc()
		m.RunsTotal.WithLabelValues("truncated").Inc()
	default:
		m.RunsTotal.WithLabelValues("complete").Inc()
	}
}

// WriteTextfile dumps the registry in the text exposition format.
func (m *PipelineMetrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.FramesProcessed.Describe(ch)
	m.PeaksDetected.Describe(ch)
	m.DegenerateFrames.Describe(ch)
	m.TruncatedRuns.Describe(ch)
	m.RunsTotal.Describe(ch)
	m.StageDuration.Describe(ch)
	m.RunDuration.Describe(ch)
	m.ActiveRuns.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.FramesProcessed.Collect(ch)
	m.PeaksDetected.Collect(ch)
	m.DegenerateFrames.Collect(ch)
	m.TruncatedRuns.Collect(ch)
	m.RunsTotal.Collect(ch)
	m.StageDuration.Collect(ch)
	m.RunDuration.Collect(ch)
	m.ActiveRuns.Collect(ch)
}
