// Package providers types - the capability every LLM provider exposes.
//
// DESIGN: Dispatch never branches on provider names. Each provider is a
// Generator registered in a Registry under its Provider id; failures are
// always *CallError so callers can tell auth problems from rate limits
// from outages with errors.As.
package providers

import (
	"context"
	"strings"

	"github.com/gaia-chat/gaia-gateway/internal/chat"
)

// =============================================================================
// PROVIDER TYPES - Used for identification and routing
// =============================================================================

// Provider identifies an LLM vendor.
type Provider string

const (
	ProviderGroq      Provider = "groq"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderCohere    Provider = "cohere"
	ProviderOllama    Provider = "ollama"
	ProviderBedrock   Provider = "bedrock"
	ProviderUnknown   Provider = "unknown"
)

// All lists every known provider.
var All = []Provider{
	ProviderGroq, ProviderOpenAI, ProviderAnthropic, ProviderGemini,
	ProviderCohere, ProviderOllama, ProviderBedrock,
}

// String returns the provider name.
func (p Provider) String() string {
	return string(p)
}

// FromString converts a string to a Provider type.
func FromString(s string) Provider {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "groq":
		return ProviderGroq
	case "openai", "gpt":
		return ProviderOpenAI
	case "anthropic", "claude":
		return ProviderAnthropic
	case "gemini", "google":
		return ProviderGemini
	case "cohere":
		return ProviderCohere
	case "ollama":
		return ProviderOllama
	case "bedrock":
		return ProviderBedrock
	default:
		return ProviderUnknown
	}
}

// =============================================================================
// CAPABILITY
// =============================================================================

// Request is one generation call. Messages wins over Prompt when non-empty;
// a lone Prompt is sent as a single user message.
type Request struct {
	Model       string
	Prompt      string
	Messages    []chat.Message
	Temperature *float64
	MaxTokens   int
}

// Usage holds token usage reported by the provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Result is a normalized reply. Reply may be empty; Model is the id the
// provider reported, or the requested one.
type Result struct {
	Reply    string
	Model    string
	Provider Provider
	Usage    Usage
}

// Generator produces a reply for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// ModelLister lists the model ids a provider currently serves.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}
