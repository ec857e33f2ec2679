// Package monitoring - types.go defines shared types.
//
// DESIGN: These types are used by the orchestrator, the gateway and this
// package. Defined here once to avoid circular imports.
package monitoring

import "time"

// Route identifies how a request was answered.
type Route string

const (
	RouteDirect Route = "direct"
	RouteELM    Route = "elm"
	RouteFiles  Route = "files"
	RouteBudget Route = "budget"
	RouteEmpty  Route = "empty"
)

// RequestEvent captures one answered request.
type RequestEvent struct {
	RequestID     string    `json:"request_id"`
	Timestamp     time.Time `json:"timestamp"`
	Transport     string    `json:"transport"` // json, multipart, sse, ws, cli
	ChatID        string    `json:"chat_id,omitempty"`
	ModelKey      string    `json:"model_key"`
	Provider      string    `json:"provider"`
	ModelUsed     string    `json:"model_used"`
	Route         Route     `json:"route"`
	FallbackState string    `json:"fallback_state,omitempty"`
	FileCount     int       `json:"file_count,omitempty"`
	ProviderCalls int       `json:"provider_calls"`
	InputTokens   int       `json:"input_tokens,omitempty"`
	OutputTokens  int       `json:"output_tokens,omitempty"`
	CostUSD       float64   `json:"cost_usd"`
	LatencyMs     int64     `json:"latency_ms"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
}

// StatsResponse is the structured response for the /stats endpoint.
type StatsResponse struct {
	Uptime        string         `json:"uptime"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartedAt     string         `json:"started_at"`
	Requests      RequestStats   `json:"requests"`
	Providers     ProviderStats  `json:"providers"`
	Tokens        TokenStatsData `json:"tokens"`
	ELM           SavingsReport  `json:"elm"`
	Recent        []RequestEvent `json:"recent,omitempty"`
}

// RequestStats holds request count metrics.
type RequestStats struct {
	Total      int64            `json:"total"`
	Successful int64            `json:"successful"`
	Failed     int64            `json:"failed"`
	ByRoute    map[string]int64 `json:"by_route"`
}

// ProviderStats holds outbound call metrics.
type ProviderStats struct {
	Calls     int64 `json:"calls"`
	Failures  int64 `json:"failures"`
	Fallbacks int64 `json:"fallbacks"`
}

// TokenStatsData holds provider-reported token usage.
type TokenStatsData struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}
