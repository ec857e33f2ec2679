// Package monitoring - metrics.go provides counters and Prometheus export.
//
// DESIGN: Every counter exists twice: an atomic for the JSON /stats view and
// a Prometheus collector for /metrics. Collectors live on a private registry
// per MetricsCollector so tests can build as many as they like.
//   - requests:        answered requests by route and outcome
//   - provider calls:  outbound calls by provider, model and outcome, latency
//   - fallbacks:       cheap-model retries by provider
//   - tokens:          provider-reported input and output tokens
package monitoring

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time
	registry  *prometheus.Registry

	requests      atomic.Int64
	successes     atomic.Int64
	providerCalls atomic.Int64
	providerFails atomic.Int64
	fallbacks     atomic.Int64
	inputTokens   atomic.Int64
	outputTokens  atomic.Int64

	routesMu sync.Mutex
	routes   map[string]int64

	promRequests     *prometheus.CounterVec
	promDuration     *prometheus.HistogramVec
	promCalls        *prometheus.CounterVec
	promCallLatency  *prometheus.HistogramVec
	promFallbacks    *prometheus.CounterVec
	promTokens       *prometheus.CounterVec
	promELMSaved     prometheus.Counter
	promFilesHandled prometheus.Counter
}

// NewMetricsCollector creates a collector with its own Prometheus registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &MetricsCollector{
		startedAt: time.Now(),
		registry:  reg,
		routes:    make(map[string]int64),

		promRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gaia_requests_total",
			Help: "Answered requests by route and outcome",
		}, []string{"route", "outcome"}),
		promDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gaia_request_duration_seconds",
			Help:    "End-to-end answer latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"route"}),
		promCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gaia_provider_calls_total",
			Help: "Outbound provider calls",
		}, []string{"provider", "model", "outcome"}),
		promCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gaia_provider_call_duration_seconds",
			Help:    "Provider call latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"provider"}),
		promFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gaia_fallbacks_total",
			Help: "Cheap-model fallback retries",
		}, []string{"provider"}),
		promTokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gaia_provider_tokens_total",
			Help: "Provider-reported tokens",
		}, []string{"provider", "direction"}),
		promELMSaved: f.NewCounter(prometheus.CounterOpts{
			Name: "gaia_elm_tokens_saved_total",
			Help: "Estimated prompt tokens removed by compress-then-answer",
		}),
		promFilesHandled: f.NewCounter(prometheus.CounterOpts{
			Name: "gaia_files_ingested_total",
			Help: "Uploaded files received",
		}),
	}
}

// RecordRequest records one answered request.
func (mc *MetricsCollector) RecordRequest(route Route, success bool, latency time.Duration) {
	mc.requests.Add(1)
	outcome := "error"
	if success {
		mc.successes.Add(1)
		outcome = "ok"
	}
	mc.routesMu.Lock()
	mc.routes[string(route)]++
	mc.routesMu.Unlock()

	mc.promRequests.WithLabelValues(string(route), outcome).Inc()
	mc.promDuration.WithLabelValues(string(route)).Observe(latency.Seconds())
}

// RecordProviderCall records one outbound provider call.
func (mc *MetricsCollector) RecordProviderCall(provider, model string, ok bool, latency time.Duration, inputTokens, outputTokens int) {
	mc.providerCalls.Add(1)
	outcome := "ok"
	if !ok {
		mc.providerFails.Add(1)
		outcome = "error"
	}
	mc.inputTokens.Add(int64(inputTokens))
	mc.outputTokens.Add(int64(outputTokens))

	mc.promCalls.WithLabelValues(provider, model, outcome).Inc()
	mc.promCallLatency.WithLabelValues(provider).Observe(latency.Seconds())
	mc.promTokens.WithLabelValues(provider, "input").Add(float64(inputTokens))
	mc.promTokens.WithLabelValues(provider, "output").Add(float64(outputTokens))
}

// RecordFallback records a cheap-model retry.
func (mc *MetricsCollector) RecordFallback(provider string) {
	mc.fallbacks.Add(1)
	mc.promFallbacks.WithLabelValues(provider).Inc()
}

// RecordELMSavings records tokens removed by one compress-then-answer run.
func (mc *MetricsCollector) RecordELMSavings(saved int) {
	if saved > 0 {
		mc.promELMSaved.Add(float64(saved))
	}
}

// RecordFiles records uploaded files.
func (mc *MetricsCollector) RecordFiles(n int) {
	if n > 0 {
		mc.promFilesHandled.Add(float64(n))
	}
}

// Handler serves the Prometheus exposition format.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{Registry: mc.registry})
}

// Registry returns the collector's Prometheus registry.
func (mc *MetricsCollector) Registry() *prometheus.Registry { return mc.registry }

// StartedAt returns when the metrics collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// FullStats returns all counters for the /stats endpoint.
func (mc *MetricsCollector) FullStats() StatsResponse {
	uptime := time.Since(mc.startedAt)
	requests := mc.requests.Load()
	successes := mc.successes.Load()

	mc.routesMu.Lock()
	byRoute := make(map[string]int64, len(mc.routes))
	for k, v := range mc.routes {
		byRoute[k] = v
	}
	mc.routesMu.Unlock()

	return StatsResponse{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     mc.startedAt.Format(time.RFC3339),
		Requests: RequestStats{
			Total:      requests,
			Successful: successes,
			Failed:     requests - successes,
			ByRoute:    byRoute,
		},
		Providers: ProviderStats{
			Calls:     mc.providerCalls.Load(),
			Failures:  mc.providerFails.Load(),
			Fallbacks: mc.fallbacks.Load(),
		},
		Tokens: TokenStatsData{
			InputTokens:  mc.inputTokens.Load(),
			OutputTokens: mc.outputTokens.Load(),
		},
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
