// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarydesk_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "librarydesk_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "librarydesk_http_active_requests",
			Help: "Requests currently being served",
		},
	)

	BooksAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "librarydesk_books_added_total",
			Help: "Books added to catalogues",
		},
	)

	CirculationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarydesk_circulation_events_total",
			Help: "Borrowing events by kind (issue, return, renew)",
		},
		[]string{"event"},
	)

	ReservationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarydesk_reservation_transitions_total",
			Help: "Reservation status changes by target status and outcome",
		},
		[]string{"status", "outcome"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "librarydesk_emails_total",
			Help: "Outgoing emails by template and outcome",
		},
		[]string{"template", "outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "librarydesk_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	OverdueBorrowings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "librarydesk_overdue_borrowings",
			Help: "Overdue borrowings found by the last sweep",
		},
	)

	LoginLockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "librarydesk_login_lockouts_total",
			Help: "Logins blocked by the per-IP rate limiter",
		},
	)
)

// RecordCirculation increments the circulation counter for event.
func RecordCirculation(event string) {
	CirculationEvents.WithLabelValues(event).Inc()
}

// RecordReservation increments the reservation counter.
func RecordReservation(status string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "conflict"
	}
	ReservationTransitions.WithLabelValues(status, outcome).Inc()
}

// RecordEmail increments the email counter.
func RecordEmail(template string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	EmailsSent.WithLabelValues(template, outcome).Inc()
}

// GinMiddleware records request count and latency per matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		HTTPActiveRequests.Inc()
		defer HTTPActiveRequests.Dec()

		start := time.Now()
		c.Next()

		// Use the route template so ids do not explode label cardinality.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
