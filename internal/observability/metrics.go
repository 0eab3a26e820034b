// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	// Engine metrics
	EventsLoaded      prometheus.Counter
	EventsSkipped     *prometheus.CounterVec
	ReactionsComputed *prometheus.CounterVec
	GroupsComputed    *prometheus.CounterVec
	ScoresComputed    prometheus.Counter

	// Cache metrics
	CacheRequests *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	ReportsGenerated  *prometheus.CounterVec
	RecordsPublished  *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg uses a fresh registry so independent instances never collide.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = "fx_impact_lab"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Engine metrics
		EventsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_loaded_total",
			Help:      "Total number of events loaded for analysis",
		}),
		EventsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_skipped_total",
			Help:      "Total number of event-horizon pairs skipped by reason",
		}, []string{"reason"}),
		ReactionsComputed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "reactions_computed_total",
			Help:      "Total number of reactions computed by horizon",
		}, []string{"horizon"}),
		GroupsComputed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "groups_computed_total",
			Help:      "Total number of family groups aggregated by sufficiency",
		}, []string{"status"}),
		ScoresComputed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "scores_computed_total",
			Help:      "Total number of family scores computed",
		}),

		// Cache metrics
		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Stats cache lookups by result",
		}, []string{"result"}),

		// Pipeline metrics
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"status"}),
		PipelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline phase duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"phase"}),
		ReportsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of report files written by format",
		}, []string{"format"}),
		RecordsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "records_total",
			Help:      "Total number of records published by topic",
		}, []string{"topic"}),

		// HTTP metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method"}),

		// Health metrics
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful engine run",
		}),
	}
}

// Handler returns an HTTP handler exposing this instance's registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEventsLoaded adds n loaded events.
func (m *Metrics) RecordEventsLoaded(n int) {
	if m == nil {
		return
	}
	m.EventsLoaded.Add(float64(n))
}

// RecordSkip counts one skipped event-horizon pair.
func (m *Metrics) RecordSkip(reason string) {
	if m == nil {
		return
	}
	m.EventsSkipped.WithLabelValues(reason).Inc()
}

// RecordReaction counts one computed reaction.
func (m *Metrics) RecordReaction(horizon string) {
	if m == nil {
		return
	}
	m.ReactionsComputed.WithLabelValues(horizon).Inc()
}

// RecordGroup counts one aggregated group.
func (m *Metrics) RecordGroup(sufficient bool) {
	if m == nil {
		return
	}
	status := "insufficient"
	if sufficient {
		status = "sufficient"
	}
	m.GroupsComputed.WithLabelValues(status).Inc()
}

// RecordScores adds n computed scores.
func (m *Metrics) RecordScores(n int) {
	if m == nil {
		return
	}
	m.ScoresComputed.Add(float64(n))
}

// RecordCache counts a cache lookup.
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// RecordPhase observes the duration of one pipeline phase.
func (m *Metrics) RecordPhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordRun records a finished pipeline run.
func (m *Metrics) RecordRun(status string, at time.Time) {
	if m == nil {
		return
	}
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.LastSuccessfulRun.Set(float64(at.Unix()))
	}
}

// RecordReport counts one written report file.
func (m *Metrics) RecordReport(format string) {
	if m == nil {
		return
	}
	m.ReportsGenerated.WithLabelValues(format).Inc()
}

// RecordPublished adds n records published to topic.
func (m *Metrics) RecordPublished(topic string, n int) {
	if m == nil {
		return
	}
	m.RecordsPublished.WithLabelValues(topic).Add(float64(n))
}
