package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/review-impact/impact-sim/sim/impact"
)

// Request sources, used as the "source" metric label.
const (
	SourceBus  = "bus"
	SourceHTTP = "http"
)

// Metrics holds the service collectors on a private registry, so several
// services (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	Reports         *prometheus.CounterVec
	Duration        prometheus.Histogram
	SimulatedEvents prometheus.Counter
	BusErrors       prometheus.Counter
}

// NewMetrics creates and registers the service collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "impact_requests_total", Help: "Change requests received",
		}, []string{"source"}),
		Reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "impact_reports_total", Help: "Impact reports produced, by status",
		}, []string{"status"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "impact_analysis_duration_seconds",
			Help:    "Wall time of one impact analysis, baseline load included",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		SimulatedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "impact_simulated_events_total", Help: "Events processed by successful simulations",
		}),
		BusErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "impact_bus_errors_total", Help: "Redis failures while reading requests or publishing reports",
		}),
	}
	m.registry.MustRegister(m.Requests, m.Reports, m.Duration, m.SimulatedEvents, m.BusErrors)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) observe(source string, r impact.Report, elapsed time.Duration) {
	m.Requests.WithLabelValues(source).Inc()
	m.Reports.WithLabelValues(string(r.Status)).Inc()
	m.Duration.Observe(elapsed.Seconds())
	if r.OK() {
		m.SimulatedEvents.Add(float64(r.SimulatedEvents))
	}
}
