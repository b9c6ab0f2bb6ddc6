package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attendance_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	CheckInsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_checkins_created_total",
		Help: "Check-ins recorded.",
	})

	CheckInTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_checkin_transitions_total",
		Help: "Check-in status transitions by outcome.",
	}, []string{"status", "result"})

	EventsPublishFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_events_publish_failed_total",
		Help: "Lifecycle events that could not be queued.",
	})

	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_events_consumed_total",
		Help: "Lifecycle events folded into the daily tally.",
	}, []string{"type", "result"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	})
)

// Gin records request counts and latency keyed by the matched route pattern.
func Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		HTTPRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
