// Package metrics holds the prometheus collectors shared by the gateway.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tron_mcp"

type Metrics struct {
	toolCalls        *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
	upstreamAttempts *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	rpcRequests      *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid clashing with the default registerer.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool dispatches by tool name and result code.",
		}, []string{"tool", "code"}),
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Tool dispatch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		upstreamAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_attempts_total",
			Help:      "Outbound HTTP attempts by host and outcome.",
		}, []string{"host", "outcome"}),
		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_attempt_duration_seconds",
			Help:      "Outbound HTTP attempt latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"}),
		rpcRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC messages by transport, method and outcome.",
		}, []string{"transport", "method", "outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP bridge requests by route pattern and status.",
		}, []string{"route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP bridge request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		gatherer: reg,
	}
}

// ObserveTool records one dispatch. code is "ok" for successful envelopes.
func (m *Metrics) ObserveTool(tool, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, code).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveUpstream satisfies upstream.Observer.
func (m *Metrics) ObserveUpstream(host, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamAttempts.WithLabelValues(host, outcome).Inc()
	m.upstreamDuration.WithLabelValues(host).Observe(elapsed.Seconds())
}

// ObserveRPC records one JSON-RPC message.
func (m *Metrics) ObserveRPC(transport, method, outcome string) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(transport, method, outcome).Inc()
}

// ObserveHTTP satisfies middleware.HTTPObserver.
func (m *Metrics) ObserveHTTP(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
