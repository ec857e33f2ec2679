// Package resolver maps a logical model key and an optional version selector
// to a concrete (provider, model id) pair.
//
// DESIGN: Resolution only reads the catalog cache (Lookup), so it never
// triggers a remote refresh on the request path. Unknown keys are not an
// error: they resolve to the default Groq model.
//
// Selector precedence for a cataloged key:
//
//	"" or "latest"   default tier, else first version, else built-in id
//	best|good|cheap  that tier's id
//	exact id         returned unchanged
//	label            case-insensitive match, mapped to its id
//	anything else    returned verbatim (lets callers try raw ids)
package resolver

import (
	"strings"

	"github.com/gaia-chat/gaia-gateway/internal/catalog"
	"github.com/gaia-chat/gaia-gateway/internal/providers"
)

// Default resolution for unknown logical keys.
const (
	DefaultProvider = providers.ProviderGroq
	DefaultModelID  = "llama-3.3-70b-versatile"
)

// ResolvedModel is the outcome of resolution. It is a value and never mutated.
type ResolvedModel struct {
	LogicalKey string             `json:"logical_key"`
	Provider   providers.Provider `json:"provider"`
	ModelID    string             `json:"model_id"`
}

type builtin struct {
	provider providers.Provider
	modelID  string
}

// builtins cover the catalog keys plus the direct aliases older clients send.
var builtins = map[string]builtin{
	"gpt-5":         {providers.ProviderOpenAI, "gpt-5"},
	"gemini-pro":    {providers.ProviderGemini, "gemini-2.5-pro"},
	"grok":          {providers.ProviderGroq, "llama-3.3-70b-versatile"},
	"claude-sonnet": {providers.ProviderAnthropic, "claude-3-5-sonnet-20240620"},
	"cohere-plus":   {providers.ProviderCohere, "command-r-plus"},

	"groq":                    {providers.ProviderGroq, "llama-3.3-70b-versatile"},
	"llama-3.3-70b-versatile": {providers.ProviderGroq, "llama-3.3-70b-versatile"},
	"llama-3.1-8b-instant":    {providers.ProviderGroq, "llama-3.1-8b-instant"},
	"mixtral-8x7b-32768":      {providers.ProviderGroq, "mixtral-8x7b-32768"},
	"gemini":                  {providers.ProviderGemini, "gemini-2.5-flash"},
	"gemini-2.5-flash":        {providers.ProviderGemini, "gemini-2.5-flash"},
	"gemini-2.5-pro":          {providers.ProviderGemini, "gemini-2.5-pro"},
	"ollama":                  {providers.ProviderOllama, "llama3.2"},
	"bedrock-claude":          {providers.ProviderBedrock, "anthropic.claude-3-5-sonnet-20240620-v1:0"},
}

// staticCheap is the per-provider cheap model used for fallback retries.
var staticCheap = map[providers.Provider]string{
	providers.ProviderGroq:      "llama-3.1-8b-instant",
	providers.ProviderOpenAI:    "gpt-4o",
	providers.ProviderAnthropic: "claude-3-haiku-20240307",
	providers.ProviderGemini:    "gemini-2.5-flash",
	providers.ProviderCohere:    "command-r",
	providers.ProviderOllama:    "llama3.2:1b",
	providers.ProviderBedrock:   "anthropic.claude-3-haiku-20240307-v1:0",
}

// StaticFallback returns the cheap fallback model for a provider.
func StaticFallback(p providers.Provider) (string, bool) {
	id, ok := staticCheap[p]
	return id, ok
}

// Resolver resolves logical keys against a catalog cache.
type Resolver struct {
	cache *catalog.Cache
}

// New creates a resolver. A nil cache resolves from built-ins only.
func New(cache *catalog.Cache) *Resolver {
	return &Resolver{cache: cache}
}

// Resolve maps key and selector to a concrete model.
func (r *Resolver) Resolve(key, selector string) ResolvedModel {
	k := catalog.NormalizeKey(key)
	entry, hasEntry := r.lookup(k)
	b, hasBuiltin := builtins[k]

	if !hasEntry && !hasBuiltin {
		return ResolvedModel{LogicalKey: k, Provider: DefaultProvider, ModelID: DefaultModelID}
	}

	provider := b.provider
	if hasEntry {
		provider = providers.FromString(entry.Provider)
	}
	fallbackID := b.modelID
	if fallbackID == "" {
		fallbackID = DefaultModelID
	}

	return ResolvedModel{
		LogicalKey: k,
		Provider:   provider,
		ModelID:    selectVersion(entry, strings.TrimSpace(selector), fallbackID),
	}
}

// CheapModel returns the cheapest model id for rm's logical key: the cheap
// tier, else the last cataloged version, else the provider's static
// fallback, else rm's own model.
func (r *Resolver) CheapModel(rm ResolvedModel) string {
	if entry, ok := r.lookup(rm.LogicalKey); ok && len(entry.Versions) > 0 {
		if v, ok := entry.VersionByTier(catalog.TierCheap); ok && v.ID != "" {
			return v.ID
		}
		if last := entry.Versions[len(entry.Versions)-1].ID; last != "" {
			return last
		}
	}
	if id, ok := StaticFallback(rm.Provider); ok {
		return id
	}
	return rm.ModelID
}

func (r *Resolver) lookup(key string) (catalog.Entry, bool) {
	if r.cache == nil {
		return catalog.Entry{}, false
	}
	return r.cache.Lookup(key)
}

func selectVersion(e catalog.Entry, sel, fallbackID string) string {
	if sel == "" || strings.EqualFold(sel, "latest") {
		if v, ok := e.VersionByTier(e.DefaultTier); ok && v.ID != "" {
			return v.ID
		}
		if len(e.Versions) > 0 && e.Versions[0].ID != "" {
			return e.Versions[0].ID
		}
		return fallbackID
	}

	if t, ok := catalog.ParseTier(sel); ok {
		if v, ok := e.VersionByTier(t); ok && v.ID != "" {
			return v.ID
		}
	}
	for _, v := range e.Versions {
		if v.ID == sel {
			return v.ID
		}
	}
	for _, v := range e.Versions {
		if strings.EqualFold(strings.TrimSpace(v.Label), sel) {
			return v.ID
		}
	}
	return sel
}
