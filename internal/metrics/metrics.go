// Package metrics exposes SeatServe's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records booking, suggestion and HTTP metrics. It satisfies
// application.Metrics.
type Collector struct {
	bookingsCreated   prometheus.Counter
	bookingsRejected  *prometheus.CounterVec
	bookingsCancelled prometheus.Counter
	suggestions       *prometheus.CounterVec
	suggestionLatency prometheus.Histogram
	httpStatus        *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seatserve_bookings_created_total",
			Help: "Bookings successfully created.",
		}),
		bookingsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seatserve_bookings_rejected_total",
			Help: "Booking requests refused by policy, by reason.",
		}, []string{"reason"}),
		bookingsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seatserve_bookings_cancelled_total",
			Help: "Bookings cancelled.",
		}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seatserve_suggestions_total",
			Help: "Seating suggestions by outcome.",
		}, []string{"outcome"}),
		suggestionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "seatserve_suggestion_latency_seconds",
			Help:    "Time spent producing a seating suggestion.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seatserve_http_responses_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.bookingsCreated,
		c.bookingsRejected,
		c.bookingsCancelled,
		c.suggestions,
		c.suggestionLatency,
		c.httpStatus,
	)

	return c
}

func (c *Collector) BookingCreated() {
	c.bookingsCreated.Inc()
}

func (c *Collector) BookingRejected(reason string) {
	c.bookingsRejected.WithLabelValues(reason).Inc()
}

func (c *Collector) BookingCancelled() {
	c.bookingsCancelled.Inc()
}

// SuggestionCompleted counts a suggestion attempt and observes its latency.
func (c *Collector) SuggestionCompleted(outcome string, elapsed time.Duration) {
	c.suggestions.WithLabelValues(outcome).Inc()
	c.suggestionLatency.Observe(elapsed.Seconds())
}

// RecordHTTPStatus counts a response by status code.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler serves the gathered metrics for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
