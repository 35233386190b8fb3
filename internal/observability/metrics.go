// Metrics collector (§4.7): a process-wide, concurrency-safe aggregator of
// tool-call counters, cache-status counters, and per-tool latency running
// averages, exported in Prometheus text format (which already satisfies the
// "# HELP / # TYPE / one data line per metric+labels" requirement verbatim).
// Adapted from the teacher's internal/observability/metrics.go, generalised
// from a single weather-lookup service to a multi-tool dispatch pipeline.
package observability

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/kjstillabower/weathertools/internal/models"
)

var (
	registry *prometheus.Registry

	// ToolCallsTotal counts tool invocations by (tool, outcome).
	ToolCallsTotal *prometheus.CounterVec

	// ToolLatencySeconds is the per-tool latency histogram; the running
	// sum/count it's built from also backs the §4.7 average gauge below.
	ToolLatencySeconds *prometheus.HistogramVec

	// CacheStatusTotal counts upstream cache statuses, recorded once per
	// fetch at the upstream engine (internal/upstream/engine.go), the only
	// site that sees the real per-response header value.
	CacheStatusTotal *prometheus.CounterVec

	// CircuitBreakerState is a per-component gauge (0=closed,1=open,2=half_open).
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerTransitionsTotal counts state transitions by component.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// UpstreamCallsTotal counts calls to the upstream clients by (client, status).
	UpstreamCallsTotal *prometheus.CounterVec

	// HTTPRequestsInFlight tracks concurrent HTTP transport requests.
	HTTPRequestsInFlight prometheus.Gauge

	// HTTPRequestsTotal counts HTTP transport requests by (method, route, status class).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration is the per-(method, route) HTTP transport latency histogram.
	HTTPRequestDuration *prometheus.HistogramVec

	avgMu     sync.Mutex
	latencies = map[string]*runningAvg{}
)

type runningAvg struct {
	sumMs float64
	count int64
}

func init() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tool_calls_total", Help: "Total tool calls by tool name and outcome"},
		[]string{"tool", "outcome"},
	)
	ToolLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "tool_latency_seconds", Help: "Tool call latency in seconds", Buckets: prometheus.DefBuckets},
		[]string{"tool"},
	)
	CacheStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_status_total", Help: "Upstream cache status observed per fetch"},
		[]string{"status"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "circuit_breaker_state", Help: "0=closed 1=open 2=half_open"},
		[]string{"component"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "circuit_breaker_transitions_total", Help: "Circuit breaker state transitions"},
		[]string{"component", "from", "to"},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "upstream_calls_total", Help: "Upstream HTTP calls by client and status class"},
		[]string{"client", "status"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_requests_in_flight", Help: "HTTP transport requests currently being served"},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "httpRequestsTotal", Help: "HTTP transport requests by method, route, and status class"},
		[]string{"method", "route", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "httpRequestDurationSeconds", Help: "HTTP transport request duration in seconds", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)

	registry.MustRegister(
		ToolCallsTotal, ToolLatencySeconds, CacheStatusTotal,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
		UpstreamCallsTotal, HTTPRequestsInFlight,
		HTTPRequestsTotal, HTTPRequestDuration,
	)
}

// RecordToolCall increments the (tool, outcome) counter, observes latency,
// and updates the tool's running-average accumulator. Mirrors §4.8 steps 9.
func RecordToolCall(tool, outcome string, latencyMs float64) {
	ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
	ToolLatencySeconds.WithLabelValues(tool).Observe(latencyMs / 1000)

	avgMu.Lock()
	a, ok := latencies[tool]
	if !ok {
		a = &runningAvg{}
		latencies[tool] = a
	}
	a.sumMs += latencyMs
	a.count++
	avgMu.Unlock()
}

// AverageLatencyMs returns sum/count for tool, or 0 when count is 0 (§4.7).
func AverageLatencyMs(tool string) float64 {
	avgMu.Lock()
	defer avgMu.Unlock()
	a, ok := latencies[tool]
	if !ok || a.count == 0 {
		return 0
	}
	return a.sumMs / float64(a.count)
}

// RecordCacheStatus increments the cache-status counter (§4.7).
func RecordCacheStatus(status models.CacheStatus) {
	CacheStatusTotal.WithLabelValues(string(status)).Inc()
}

// CacheHitRatio returns hits/(hits+misses), 0 when the denominator is 0.
func CacheHitRatio() float64 {
	hits := counterValue(CacheStatusTotal, string(models.CacheStatusHit)) + counterValue(CacheStatusTotal, string(models.CacheStatusExpired))
	misses := counterValue(CacheStatusTotal, string(models.CacheStatusMiss)) + counterValue(CacheStatusTotal, string(models.CacheStatusBypass))
	if hits+misses == 0 {
		return 0
	}
	return hits / (hits + misses)
}

func counterValue(cv *prometheus.CounterVec, label string) float64 {
	c, err := cv.GetMetricWithLabelValues(label)
	if err != nil {
		return 0
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// RecordUpstreamCall increments the per-client upstream call counter.
func RecordUpstreamCall(client, statusClass string) {
	UpstreamCallsTotal.WithLabelValues(client, statusClass).Inc()
}

// RecordCircuitBreakerTransition records a state transition and updates the gauge.
func RecordCircuitBreakerTransition(component, from, to string, stateValue float64) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
	CircuitBreakerState.WithLabelValues(component).Set(stateValue)
}

// MetricsHandler returns an http.Handler serving the Prometheus text export
// used to satisfy GET /metrics, plus a plain-text averages/ratio footer
// matching the §4.7 rendering rules (two decimals for averages, four for ratios).
func MetricsHandler() http.Handler {
	base := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		base.ServeHTTP(w, r)
		fmt.Fprintf(w, "# HELP tool_cache_hit_ratio Cache hit ratio across all tools\n")
		fmt.Fprintf(w, "# TYPE tool_cache_hit_ratio gauge\n")
		fmt.Fprintf(w, "tool_cache_hit_ratio %.4f\n", CacheHitRatio())

		avgMu.Lock()
		tools := make([]string, 0, len(latencies))
		for tool := range latencies {
			tools = append(tools, tool)
		}
		avgMu.Unlock()
		sort.Strings(tools)
		fmt.Fprintf(w, "# HELP tool_latency_avg_ms Average tool call latency in milliseconds\n")
		fmt.Fprintf(w, "# TYPE tool_latency_avg_ms gauge\n")
		for _, tool := range tools {
			fmt.Fprintf(w, "tool_latency_avg_ms{tool=%q} %.2f\n", tool, AverageLatencyMs(tool))
		}
	})
}
