package providers

import "github.com/gaia-chat/gaia-gateway/internal/config"

// NewOllama creates a generator for a local Ollama server.
// Ollama takes the OpenAI message shape on /api/chat and needs no key; it
// reports usage as prompt_eval_count/eval_count, which the response
// normalizer already reads.
func NewOllama(cfg config.ProviderConfig) *HTTPGenerator {
	if cfg.Endpoint == "" {
		cfg.Endpoint = config.DefaultEndpoint(ProviderOllama.String())
	}
	return &HTTPGenerator{provider: ProviderOllama, cfg: cfg, requireKey: false}
}
