package costcontrol

import "strings"

// ModelPricing holds per-million-token pricing for a model.
type ModelPricing struct {
	InputPerMTok  float64 // USD per million input tokens
	OutputPerMTok float64 // USD per million output tokens
}

// modelPricingTable maps served model ids to their pricing.
var modelPricingTable = map[string]ModelPricing{
	// Groq
	"llama-3.3-70b-versatile": {InputPerMTok: 0.59, OutputPerMTok: 0.79},
	"llama-3.1-8b-instant":    {InputPerMTok: 0.05, OutputPerMTok: 0.08},
	"openai/gpt-oss-120b":     {InputPerMTok: 0.15, OutputPerMTok: 0.75},

	// OpenAI
	"gpt-5":       {InputPerMTok: 1.25, OutputPerMTok: 10},
	"gpt-5-mini":  {InputPerMTok: 0.25, OutputPerMTok: 2},
	"gpt-5-nano":  {InputPerMTok: 0.05, OutputPerMTok: 0.40},
	"gpt-4o":      {InputPerMTok: 2.5, OutputPerMTok: 10},
	"gpt-4o-mini": {InputPerMTok: 0.15, OutputPerMTok: 0.60},

	// Anthropic
	"claude-sonnet-4-5-20250929": {InputPerMTok: 3, OutputPerMTok: 15},
	"claude-3-5-haiku-20241022":  {InputPerMTok: 0.8, OutputPerMTok: 4},
	"claude-3-haiku-20240307":    {InputPerMTok: 0.25, OutputPerMTok: 1.25},

	// Gemini
	"gemini-2.5-pro":        {InputPerMTok: 1.25, OutputPerMTok: 10},
	"gemini-2.5-flash":      {InputPerMTok: 0.30, OutputPerMTok: 2.50},
	"gemini-2.5-flash-lite": {InputPerMTok: 0.10, OutputPerMTok: 0.40},

	// Cohere
	"command-a-03-2025":      {InputPerMTok: 2.5, OutputPerMTok: 10},
	"command-r-plus-08-2024": {InputPerMTok: 2.5, OutputPerMTok: 10},
	"command-r-08-2024":      {InputPerMTok: 0.15, OutputPerMTok: 0.60},
	"command-r7b-12-2024":    {InputPerMTok: 0.0375, OutputPerMTok: 0.15},
}

// defaultPricing is used for unknown models. Conservative so unknown ids
// count against caps.
var defaultPricing = ModelPricing{InputPerMTok: 5, OutputPerMTok: 15}

// modelFamilyPricing maps model id prefixes to pricing. The longest matching
// prefix wins, so "gpt-5-mini" beats "gpt-5".
var modelFamilyPricing = map[string]ModelPricing{
	"llama-3.3-70b":         {InputPerMTok: 0.59, OutputPerMTok: 0.79},
	"llama-3.1-8b":          {InputPerMTok: 0.05, OutputPerMTok: 0.08},
	"llama":                 {InputPerMTok: 0.59, OutputPerMTok: 0.79},
	"gpt-5-nano":            {InputPerMTok: 0.05, OutputPerMTok: 0.40},
	"gpt-5-mini":            {InputPerMTok: 0.25, OutputPerMTok: 2},
	"gpt-5":                 {InputPerMTok: 1.25, OutputPerMTok: 10},
	"gpt-4o-mini":           {InputPerMTok: 0.15, OutputPerMTok: 0.60},
	"gpt-4o":                {InputPerMTok: 2.5, OutputPerMTok: 10},
	"claude-sonnet":         {InputPerMTok: 3, OutputPerMTok: 15},
	"claude-opus":           {InputPerMTok: 15, OutputPerMTok: 75},
	"claude-3-haiku":        {InputPerMTok: 0.25, OutputPerMTok: 1.25},
	"claude-haiku":          {InputPerMTok: 1, OutputPerMTok: 5},
	"gemini-2.5-pro":        {InputPerMTok: 1.25, OutputPerMTok: 10},
	"gemini-2.5-flash-lite": {InputPerMTok: 0.10, OutputPerMTok: 0.40},
	"gemini-2.5-flash":      {InputPerMTok: 0.30, OutputPerMTok: 2.50},
	"command-r-plus":        {InputPerMTok: 2.5, OutputPerMTok: 10},
	"command-r":             {InputPerMTok: 0.15, OutputPerMTok: 0.60},
	"command-a":             {InputPerMTok: 2.5, OutputPerMTok: 10},

	// Bedrock ids carry a vendor prefix.
	"anthropic.claude-3-haiku":    {InputPerMTok: 0.25, OutputPerMTok: 1.25},
	"anthropic.claude-3-5-sonnet": {InputPerMTok: 3, OutputPerMTok: 15},
	"anthropic.claude-sonnet":     {InputPerMTok: 3, OutputPerMTok: 15},
}

// localPrefixes are self-hosted models; they cost nothing.
var localPrefixes = []string{"ollama/", "llama3.2", "llama3.1", "qwen", "mistral:"}

// GetModelPricing returns pricing for a model.
// Tries exact match, then local models, then the longest family prefix, then
// the default.
func GetModelPricing(model string) ModelPricing {
	model = strings.ToLower(strings.TrimSpace(model))
	if p, ok := modelPricingTable[model]; ok {
		return p
	}
	for _, prefix := range localPrefixes {
		if strings.HasPrefix(model, prefix) {
			return ModelPricing{}
		}
	}

	bestPrefix := ""
	var bestPricing ModelPricing
	for prefix, p := range modelFamilyPricing {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(bestPrefix) {
			bestPrefix = prefix
			bestPricing = p
		}
	}
	if bestPrefix != "" {
		return bestPricing
	}
	return defaultPricing
}

// CalculateCost computes the cost in USD from token counts.
func CalculateCost(inputTokens, outputTokens int, pricing ModelPricing) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * pricing.InputPerMTok
	outputCost := float64(outputTokens) / 1_000_000 * pricing.OutputPerMTok
	return inputCost + outputCost
}
