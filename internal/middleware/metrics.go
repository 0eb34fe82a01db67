package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics records requests served by the worker's HTTP endpoints.
type HTTPMetrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorCount      *prometheus.CounterVec
}

// NewHTTPMetrics registers the request metrics on reg.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)

	return &HTTPMetrics{
		// Request counter - tracks total requests by method, route, and status
		RequestCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mayday_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mayday_http_request_duration_seconds",
				Help:    "Histogram of request durations by method, route, and status",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		ErrorCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mayday_http_errors_total",
				Help: "Total number of HTTP responses with status >= 400",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// Handler returns middleware that records request metrics
func (m *HTTPMetrics) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		c.Locals("request_start_time", start)

		err := c.Next()

		// the route is only known once the router matched
		route := c.Route().Path
		method := c.Method()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		statusStr := strconv.Itoa(status)

		m.RequestCount.WithLabelValues(method, route, statusStr).Inc()
		m.RequestDuration.WithLabelValues(method, route, statusStr).Observe(time.Since(start).Seconds())
		if status >= 400 {
			m.ErrorCount.WithLabelValues(method, route, statusStr).Inc()
		}

		return err
	}
}

// GetRequestStartTime retrieves the request start time from the context
func GetRequestStartTime(c *fiber.Ctx) (time.Time, bool) {
	startTime, ok := c.Locals("request_start_time").(time.Time)
	return startTime, ok
}
