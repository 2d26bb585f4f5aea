package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values shared by bridge and handoff counters.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "already_authenticated"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Bridge metrics
	BridgeAttemptsTotal     *prometheus.CounterVec
	InterceptorDecisions    *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec
	ProvisionedTotal        *prometheus.CounterVec
	HandoffExchangesTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papermark_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "papermark_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		BridgeAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papermark_bridge_attempts_total",
				Help: "Bridge attempts by outcome; failures are labelled with their error kind",
			},
			[]string{"outcome"},
		),
		InterceptorDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papermark_interceptor_decisions_total",
				Help: "Request interceptor decisions on federation-eligible hosts",
			},
			[]string{"decision"},
		),
		UpstreamRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "papermark_upstream_request_duration_seconds",
				Help:    "Upstream session validation latency in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"result"},
		),
		ProvisionedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papermark_provisioned_records_total",
				Help: "Local records created on first bridge",
			},
			[]string{"record"},
		),
		HandoffExchangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papermark_handoff_exchanges_total",
				Help: "Handoff token exchanges by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BridgeAttemptsTotal,
		m.InterceptorDecisions,
		m.UpstreamRequestDuration,
		m.ProvisionedTotal,
		m.HandoffExchangesTotal,
	)
	return m
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// BridgeAttempt counts one sign-in bridge attempt by outcome. Safe on a nil receiver.
func (m *Metrics) BridgeAttempt(outcome string) {
	if m == nil {
		return
	}
	m.BridgeAttemptsTotal.WithLabelValues(outcome).Inc()
}

// InterceptorDecision counts one interceptor decision.
func (m *Metrics) InterceptorDecision(decision string) {
	if m == nil {
		return
	}
	m.InterceptorDecisions.WithLabelValues(decision).Inc()
}

// UpstreamRequest observes the latency of one upstream session check.
func (m *Metrics) UpstreamRequest(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequestDuration.WithLabelValues(result).Observe(d.Seconds())
}

// Provisioned counts a newly created user or account record.
func (m *Metrics) Provisioned(record string) {
	if m == nil {
		return
	}
	m.ProvisionedTotal.WithLabelValues(record).Inc()
}

// HandoffExchange counts one handoff exchange by outcome.
func (m *Metrics) HandoffExchange(outcome string) {
	if m == nil {
		return
	}
	m.HandoffExchangesTotal.WithLabelValues(outcome).Inc()
}

// HTTPMiddleware records request counts and latency by matched route.
// Unmatched requests are grouped under "unmatched" to bound cardinality.
func HTTPMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(registry *prometheus.Registry) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
