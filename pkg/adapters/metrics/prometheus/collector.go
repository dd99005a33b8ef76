package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UnmatchedRoute labels requests that matched no registered route
const UnmatchedRoute = "unmatched"

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	predictions  *prometheus.CounterVec
	rateLimited  *prometheus.CounterVec
}

// NewCollector creates a new Prometheus metrics collector registered on reg.
// Pass prometheus.DefaultRegisterer to expose through promhttp.Handler.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aiui_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aiui_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		),
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aiui_predictions_total",
				Help: "Total number of predictions served",
			},
			[]string{"provider"},
		),
		rateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aiui_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
	}
}

// RecordRequest records a served HTTP request
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = UnmatchedRoute
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncPredictions increments the count of predictions served
func (c *Collector) IncPredictions(provider string) {
	c.predictions.WithLabelValues(provider).Inc()
}

// IncRateLimited increments the count of rejected requests
func (c *Collector) IncRateLimited(route string) {
	c.rateLimited.WithLabelValues(route).Inc()
}
