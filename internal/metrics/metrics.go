// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laocinema_http_requests_total",
			Help: "Total number of HTTP requests by route pattern and status",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "laocinema_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// Activity
	MigratedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laocinema_migrated_rows_total",
			Help: "Anonymous rows reassigned to a user, by kind",
		},
		[]string{"kind"}, // "rental", "progress"
	)

	RentalsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laocinema_rentals_created_total",
			Help: "Rentals created, by owner type",
		},
		[]string{"owner"}, // "user", "anonymous"
	)

	// TMDB
	TMDBRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laocinema_tmdb_requests_total",
			Help: "Outbound TMDB requests by outcome",
		},
		[]string{"outcome"}, // "success", "error", "not_found", "circuit_open"
	)

	TMDBRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "laocinema_tmdb_request_duration_seconds",
			Help:    "Outbound TMDB request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TMDBCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "laocinema_tmdb_circuit_state",
			Help: "TMDB circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// RecordHTTPRequest records one completed request
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordMigration adds the rows moved by one anonymous-to-user migration
func RecordMigration(rentals, progress int) {
	MigratedRowsTotal.WithLabelValues("rental").Add(float64(rentals))
	MigratedRowsTotal.WithLabelValues("progress").Add(float64(progress))
}

// RecordRentalCreated counts a new rental
func RecordRentalCreated(anonymous bool) {
	owner := "user"
	if anonymous {
		owner = "anonymous"
	}
	RentalsCreatedTotal.WithLabelValues(owner).Inc()
}

// RecordTMDBRequest records one TMDB call outcome
func RecordTMDBRequest(outcome string, duration time.Duration) {
	TMDBRequestsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		TMDBRequestDuration.Observe(duration.Seconds())
	}
}
