// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache outcome label values.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Metrics groups the application collectors.
type Metrics struct {
	// HTTP requests by method, route pattern and status code
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP latency by method and route pattern
	HTTPRequestDuration *prometheus.HistogramVec

	// Monthly reports served, by cache outcome
	ReportsComputed *prometheus.CounterVec

	// Sheets imported, by source (upload, seed, sheets)
	SheetsImported *prometheus.CounterVec

	// Reservation rows ingested across all imports
	ReservationsIngested prometheus.Counter

	// Figures of the most recent report on the latest sheet
	UnreservedCapacity prometheus.Gauge
	MonthlyRevenue     prometheus.Gauge

	// Requests rejected by the rate limiter
	RateLimited prometheus.Counter

	// Requests flagged by the security detector
	SuspiciousRequests prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates a Metrics instance on its own registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ReportsComputed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "occupancy_reports_total",
				Help: "Monthly reports served, labelled by cache outcome",
			},
			[]string{"cache"},
		),
		SheetsImported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "occupancy_sheets_imported_total",
				Help: "Reservation sheets imported",
			},
			[]string{"source"},
		),
		ReservationsIngested: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "occupancy_reservations_ingested_total",
				Help: "Reservation rows ingested",
			},
		),
		UnreservedCapacity: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "occupancy_unreserved_capacity",
				Help: "Unreserved capacity of the last report computed on the latest sheet",
			},
		),
		MonthlyRevenue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "occupancy_monthly_revenue",
				Help: "Revenue of the last report computed on the latest sheet",
			},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "http_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
		SuspiciousRequests: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "http_suspicious_requests_total",
				Help: "Requests flagged as suspicious",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReportsComputed,
		m.SheetsImported,
		m.ReservationsIngested,
		m.UnreservedCapacity,
		m.MonthlyRevenue,
		m.RateLimited,
		m.SuspiciousRequests,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	g := m.gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
