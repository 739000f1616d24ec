// Package telemetry exposes pipeline counters to Prometheus.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors updated by a pipeline run. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	records     *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	alerts      prometheus.Gauge
	lastRun     prometheus.Gauge
}

// New registers the pipeline collectors on a fresh registry, alongside the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_records_total",
				Help: "ECG records by the stage they ended in and outcome.",
			},
			[]string{"stage", "outcome"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_runs_total",
				Help: "Pipeline runs by result.",
			},
			[]string{"result"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pulse_run_duration_seconds",
				Help:    "Wall time of a full pipeline run.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		alerts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulse_hrv_alerts",
				Help: "Records labelled HRV Alert in the latest run.",
			},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulse_last_run_timestamp_seconds",
				Help: "Unix time the latest run finished.",
			},
		),
	}
	reg.MustRegister(
		m.records, m.runs, m.runDuration, m.alerts, m.lastRun,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordOutcome counts one record leaving the pipeline at stage.
func (m *Metrics) RecordOutcome(stage, outcome string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(stage, outcome).Inc()
}

// RunFinished records a completed or failed run.
func (m *Metrics) RunFinished(elapsed time.Duration, alerts int, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runs.WithLabelValues(result).Inc()
	if err != nil {
		return
	}
	m.runDuration.Observe(elapsed.Seconds())
	m.alerts.Set(float64(alerts))
	m.lastRun.SetToCurrentTime()
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
