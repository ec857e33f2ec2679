// LLM provider request types for OpenAI-compatible APIs, Anthropic, Gemini,
// Cohere and Ollama.
//
// These types are used by:
//   - llm.go: CallLLM() for direct provider calls
//   - llm_requests.go: Build*Request() from a role-tagged message list
//
// Responses are not decoded into typed structs; normalize.go reads them
// with gjson so one code path handles every shape.
package external

// Message is a provider-neutral role-tagged message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// OpenAI Types (also Groq, which serves the same API)
// =============================================================================

// OpenAIMessage represents a message in OpenAI chat format.
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIChatRequest is the request body for OpenAI chat completions.
// Temperature and token limits are set with sjson so that zero stays unset.
type OpenAIChatRequest struct {
	Model    string          `json:"model"`
	Messages []OpenAIMessage `json:"messages"`
}

// =============================================================================
// Anthropic Types
// =============================================================================

// AnthropicMessage represents a message in Anthropic format.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicRequest is the request body for Anthropic messages API.
// Also used for Bedrock with Anthropic models (set AnthropicVersion to "bedrock-2023-05-31").
type AnthropicRequest struct {
	Model            string             `json:"model,omitempty"`
	MaxTokens        int                `json:"max_tokens"`
	System           string             `json:"system,omitempty"`
	Messages         []AnthropicMessage `json:"messages"`
	AnthropicVersion string             `json:"anthropic_version,omitempty"`
}

// =============================================================================
// Gemini Types
// =============================================================================

// GeminiPart represents a content part in Gemini format.
type GeminiPart struct {
	Text string `json:"text"`
}

// GeminiContent represents a content block in Gemini format.
type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiRequest is the request body for Gemini generateContent API.
type GeminiRequest struct {
	SystemInstruction *GeminiContent `json:"systemInstruction,omitempty"`
	Contents          []GeminiContent `json:"contents"`
}

// =============================================================================
// Cohere Types (v2 chat)
// =============================================================================

// CohereMessage represents a message in Cohere v2 chat format.
type CohereMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CohereChatRequest is the request body for Cohere v2 chat.
type CohereChatRequest struct {
	Model    string          `json:"model"`
	Messages []CohereMessage `json:"messages"`
}

// =============================================================================
// Ollama Types
// =============================================================================

// OllamaChatRequest is the request body for Ollama /api/chat.
// Ollama accepts the OpenAI message shape.
type OllamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []OpenAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

// =============================================================================
// Usage
// =============================================================================

// Usage holds token usage reported by a provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
