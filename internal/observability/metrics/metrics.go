package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics exposes request-level Prometheus instruments.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Metrics exposes application-level instruments.
type Metrics struct {
	accessDenied  *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	loginAttempts *prometheus.CounterVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadway_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leadway_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func New() *Metrics {
	return &Metrics{
		accessDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadway_access_denied_total",
			Help: "Guard denials by stage and reason.",
		}, []string{"stage", "reason"}),
		webhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadway_billing_webhook_events_total",
			Help: "Billing provider webhook events by type and outcome.",
		}, []string{"event_type", "outcome"}),
		loginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadway_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// RecordAccessDenied increments guard denial counts.
func (m *Metrics) RecordAccessDenied(stage, reason string) {
	if m == nil {
		return
	}
	m.accessDenied.WithLabelValues(strings.TrimSpace(stage), strings.TrimSpace(reason)).Inc()
}

// RecordWebhookEvent increments webhook ingestion counts.
func (m *Metrics) RecordWebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(strings.TrimSpace(eventType), strings.TrimSpace(outcome)).Inc()
}

// RecordLoginAttempt increments login attempt counts.
func (m *Metrics) RecordLoginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(strings.TrimSpace(outcome)).Inc()
}

// GinMiddleware records per-request metrics.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
