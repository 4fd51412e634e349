// Package metrics exposes Prometheus counters for the long-running
// sweep service. All record methods are nil-safe so callers can run
// without a collector.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Resolution metrics
	TicketsProcessedTotal *prometheus.CounterVec
	SweepDuration         prometheus.Histogram

	// Model metrics
	ModelCallsTotal *prometheus.CounterVec

	// Notification metrics
	NotificationsSentTotal prometheus.Counter
}

// New creates and registers all metrics
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		TicketsProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "querydesk_tickets_processed_total",
				Help: "Total number of tickets handled by the resolver",
			},
			[]string{"closure", "resolved"},
		),
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "querydesk_sweep_duration_seconds",
				Help:    "Duration of full resolution sweeps in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		ModelCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "querydesk_model_calls_total",
				Help: "Total number of model API calls",
			},
			[]string{"provider", "status"},
		),
		NotificationsSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "querydesk_notifications_sent_total",
				Help: "Total number of notifications handed to the notifier",
			},
		),
	}

	registry.MustRegister(
		m.TicketsProcessedTotal,
		m.SweepDuration,
		m.ModelCallsTotal,
		m.NotificationsSentTotal,
	)

	return m
}

// Handler returns the scrape endpoint handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordOutcome counts one processed ticket
func (m *Metrics) RecordOutcome(closure string, resolved bool) {
	if m == nil {
		return
	}
	if closure == "" {
		closure = "none"
	}
	status := "false"
	if resolved {
		status = "true"
	}
	m.TicketsProcessedTotal.WithLabelValues(closure, status).Inc()
}

// RecordModelCall counts one model API call
func (m *Metrics) RecordModelCall(provider string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ModelCallsTotal.WithLabelValues(provider, status).Inc()
}

// RecordNotification counts one outbound notification
func (m *Metrics) RecordNotification() {
	if m == nil {
		return
	}
	m.NotificationsSentTotal.Inc()
}

// ObserveSweep records the duration of one full sweep
func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(d.Seconds())
}
