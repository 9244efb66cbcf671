// Package metrics exposes application-level Prometheus instruments.
package metrics

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics holds the reconciliation and HTTP instruments.
type Metrics struct {
	chargeEvents *prometheus.CounterVec
	storeWrites  *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		chargeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workfolio_charge_events_total",
			Help: "Charge events processed by the reconciliation engine.",
		}, []string{"source", "outcome"}),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workfolio_subscription_writes_total",
			Help: "Subscription store writes by result.",
		}, []string{"source", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workfolio_http_requests_total",
			Help: "HTTP requests by route and status class.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workfolio_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	for _, c := range []prometheus.Collector{m.chargeEvents, m.storeWrites, m.httpRequests, m.httpDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Charge event outcomes.
const (
	OutcomeApplied    = "applied"
	OutcomeIgnored    = "ignored"
	OutcomeNoTeam     = "no_team"
	OutcomeRejected   = "rejected"
	OutcomeStoreError = "store_error"
)

func (m *Metrics) RecordChargeEvent(source, outcome string) {
	if m == nil {
		return
	}
	m.chargeEvents.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) RecordStoreWrite(source string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeWrites.WithLabelValues(source, result).Inc()
}

// GinMiddleware records per-route request counts and latency.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, statusClass(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func provideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func provideRegisterer(reg *prometheus.Registry) prometheus.Registerer {
	return reg
}

var Module = fx.Module("metrics",
	fx.Provide(
		provideRegistry,
		provideRegisterer,
		New,
	),
)
