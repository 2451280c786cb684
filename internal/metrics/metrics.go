package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "disaster_reports"

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	DisastersCreated prometheus.Counter
	AlertsCreated    prometheus.Counter
	AlertsDelivered  prometheus.Counter
	AlertsDropped    prometheus.Counter
	SessionsPurged   prometheus.Counter

	LoginAttempts   *prometheus.CounterVec   // labels: outcome={success,unknown_user,bad_password,inactive}
	RequestDuration *prometheus.HistogramVec // labels: method, route, status
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DisastersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disasters_created_total",
			Help:      "Total disasters recorded.",
		}),
		AlertsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Total alerts recorded.",
		}),
		AlertsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_delivered_total",
			Help:      "Total alerts handed to the notifier and sent.",
		}),
		AlertsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_dropped_total",
			Help:      "Alerts not sent because the notifier queue was full or stopped.",
		}),
		SessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_purged_total",
			Help:      "Expired sessions removed by the janitor.",
		}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.DisastersCreated,
		m.AlertsCreated,
		m.AlertsDelivered,
		m.AlertsDropped,
		m.SessionsPurged,
		m.LoginAttempts,
		m.RequestDuration,
	)

	return m
}

// NewForTesting registers against a throwaway registry so tests can build
// as many instances as they like.
func NewForTesting() *Metrics {
	return New(prometheus.NewRegistry())
}

// Middleware records request latency. Unmatched routes are grouped under
// "unmatched" to keep label cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
