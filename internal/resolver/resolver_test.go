package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaia-chat/gaia-gateway/internal/catalog"
	"github.com/gaia-chat/gaia-gateway/internal/providers"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	entries, err := catalog.Default()
	require.NoError(t, err)
	return New(catalog.NewCache(entries))
}

func TestResolve_SelectorPrecedence(t *testing.T) {
	r := newResolver(t)

	tests := []struct {
		name     string
		key      string
		selector string
		want     string
	}{
		{"empty uses default tier", "grok", "", "llama-3.3-70b-versatile"},
		{"latest uses default tier", "GPT-5", "Latest", "gpt-5.2-pro-2025-12-11"},
		{"cheap tier overrides default", "grok", "cheap", "llama-3.1-8b-instant"},
		{"good tier", "claude-sonnet", "GOOD", "claude-3-opus-20240229"},
		{"exact id", "gemini-pro", "gemini-2.5-flash", "gemini-2.5-flash"},
		{"label case-insensitive", "gpt-5", "5.1", "gpt-5.1-2025-11-13"},
		{"label with spaces", "grok", "mixtral 8X7B", "mixtral-8x7b-32768"},
		{"verbatim passthrough", "cohere-plus", "command-a-03-2025", "command-a-03-2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.key, tt.selector).ModelID)
		})
	}
}

func TestResolve_UnknownKeyDefaults(t *testing.T) {
	rm := newResolver(t).Resolve("does-not-exist", "best")
	assert.Equal(t, providers.ProviderGroq, rm.Provider)
	assert.Equal(t, "llama-3.3-70b-versatile", rm.ModelID)
}

func TestResolve_Aliases(t *testing.T) {
	r := newResolver(t)

	rm := r.Resolve("gemini", "")
	assert.Equal(t, providers.ProviderGemini, rm.Provider)
	assert.Equal(t, "gemini-2.5-flash", rm.ModelID)

	rm = r.Resolve(" Groq ", "")
	assert.Equal(t, providers.ProviderGroq, rm.Provider)
	assert.Equal(t, "groq", rm.LogicalKey)
}

func TestResolve_EmptyCatalogEntryUsesBuiltin(t *testing.T) {
	cache := catalog.NewCache(map[string]catalog.Entry{
		"gpt-5": {Key: "gpt-5", Provider: "openai", DefaultTier: catalog.TierBest},
	})
	rm := New(cache).Resolve("gpt-5", "")
	assert.Equal(t, "gpt-5", rm.ModelID)
	assert.Equal(t, providers.ProviderOpenAI, rm.Provider)
}

func TestResolve_NilCache(t *testing.T) {
	rm := New(nil).Resolve("grok", "cheap")
	assert.Equal(t, "cheap", rm.ModelID, "no catalog means the selector passes through")
	assert.Equal(t, "llama-3.3-70b-versatile", New(nil).Resolve("grok", "").ModelID)
}

func TestCheapModel(t *testing.T) {
	r := newResolver(t)

	assert.Equal(t, "llama-3.1-8b-instant", r.CheapModel(r.Resolve("grok", "")))
	assert.Equal(t, "gpt-5-2025-08-07", r.CheapModel(r.Resolve("gpt-5", "")))
	assert.Equal(t, "gemini-2.5-flash", r.CheapModel(r.Resolve("gemini", "")), "alias without catalog uses static fallback")

	odd := ResolvedModel{LogicalKey: "x", Provider: providers.Provider("mistral"), ModelID: "m"}
	assert.Equal(t, "m", r.CheapModel(odd))
}
