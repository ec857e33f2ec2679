package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/gaia-chat/gaia-gateway/external"
	"github.com/gaia-chat/gaia-gateway/internal/config"
	"github.com/gaia-chat/gaia-gateway/internal/utils"
)

// HTTPGenerator calls a hosted provider API through external.CallLLM.
type HTTPGenerator struct {
	provider   Provider
	cfg        config.ProviderConfig
	requireKey bool

	// endpoint overrides cfg.Endpoint per model (Bedrock puts the model in the URL)
	endpoint func(model string) string
	// client returns the HTTP client to use; nil means a plain client with cfg.Timeout
	client func() (*http.Client, error)
}

// NewHTTPGenerator creates a generator for a key-authenticated provider.
func NewHTTPGenerator(p Provider, cfg config.ProviderConfig) *HTTPGenerator {
	return &HTTPGenerator{provider: p, cfg: cfg, requireKey: true}
}

// Generate sends req to the provider.
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	if g.requireKey && g.cfg.APIKey == "" {
		return Result{}, &CallError{
			Kind:     KindNotConfigured,
			Provider: g.provider,
			Model:    req.Model,
			Err:      fmt.Errorf("no API key configured for %s", g.provider),
		}
	}

	params := external.CallLLMParams{
		Provider:    g.provider.String(),
		Endpoint:    g.endpointFor(req.Model),
		APISecret:   g.cfg.APIKey,
		Model:       req.Model,
		Messages:    toExternal(req),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Timeout:     g.cfg.Timeout,
	}
	if g.client != nil {
		client, err := g.client()
		if err != nil {
			return Result{}, &CallError{Kind: KindNotConfigured, Provider: g.provider, Model: req.Model, Err: err}
		}
		params.HTTPClient = client
	}

	log.Debug().
		Str("provider", g.provider.String()).
		Str("model", req.Model).
		Str("key", utils.MaskKey(g.cfg.APIKey)).
		Int("messages", len(params.Messages)).
		Msg("provider: generate")

	out, err := external.CallLLM(ctx, params)
	if err != nil {
		return Result{}, classify(g.provider, req.Model, err)
	}

	return Result{
		Reply:    out.Content,
		Model:    out.Model,
		Provider: g.provider,
		Usage:    Usage{InputTokens: out.InputTokens, OutputTokens: out.OutputTokens},
	}, nil
}

// ListModels lists the ids the provider serves.
func (g *HTTPGenerator) ListModels(ctx context.Context) ([]string, error) {
	if g.requireKey && g.cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for %s", g.provider)
	}
	return external.ListModels(ctx, external.ListModelsParams{
		Provider:  g.provider.String(),
		Endpoint:  g.cfg.Endpoint,
		APISecret: g.cfg.APIKey,
		Timeout:   g.cfg.Timeout,
	})
}

func (g *HTTPGenerator) endpointFor(model string) string {
	if g.endpoint != nil {
		return g.endpoint(model)
	}
	return g.cfg.Endpoint
}

func toExternal(req Request) []external.Message {
	if len(req.Messages) == 0 {
		return []external.Message{{Role: "user", Content: req.Prompt}}
	}
	out := make([]external.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		out = append(out, external.Message{Role: m.Role.String(), Content: m.Content})
	}
	return out
}

// =============================================================================
// WIRING
// =============================================================================

// FromConfig registers a generator for every known provider. Hosted
// providers without a key still register; their calls fail with
// KindNotConfigured so dispatch can report it.
func FromConfig(cfg *config.Config) *Registry {
	r := NewRegistry()
	for _, p := range All {
		pc := cfg.Provider(p.String())
		switch p {
		case ProviderOllama:
			r.Register(p, NewOllama(pc))
		case ProviderBedrock:
			r.Register(p, NewBedrock(pc))
		default:
			r.Register(p, NewHTTPGenerator(p, pc))
		}
		if pc.APIKey != "" {
			log.Info().Str("provider", p.String()).Str("key", utils.MaskKey(pc.APIKey)).Msg("provider configured")
		}
	}
	return r
}
