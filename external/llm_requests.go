// Request builders for each provider wire format.
//
// USAGE:
//   - BuildRequestBody(provider, model, messages, maxTokens, temperature)
//
// Each builder takes the provider-neutral message list and produces the
// provider's JSON body. System messages are lifted into the provider's
// dedicated system field where one exists.
package external

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/sjson"
)

// anthropicDefaultMaxTokens is required by the messages API when the caller sets none.
const anthropicDefaultMaxTokens = 1024

// BuildRequestBody marshals messages for provider and applies the optional
// sampling fields. A nil temperature and zero maxTokens leave the provider
// defaults in place.
func BuildRequestBody(provider, model string, messages []Message, maxTokens int, temperature *float64) ([]byte, error) {
	var (
		body []byte
		err  error
	)

	switch provider {
	case "anthropic", "bedrock":
		body, err = json.Marshal(BuildAnthropicRequest(provider, model, messages, maxTokens))
		if err == nil && temperature != nil {
			body, err = sjson.SetBytes(body, "temperature", *temperature)
		}
	case "gemini":
		body, err = json.Marshal(BuildGeminiRequest(messages))
		if err == nil && maxTokens > 0 {
			body, err = sjson.SetBytes(body, "generationConfig.maxOutputTokens", maxTokens)
		}
		if err == nil && temperature != nil {
			body, err = sjson.SetBytes(body, "generationConfig.temperature", *temperature)
		}
	case "cohere":
		body, err = json.Marshal(BuildCohereRequest(model, messages))
		if err == nil && maxTokens > 0 {
			body, err = sjson.SetBytes(body, "max_tokens", maxTokens)
		}
		if err == nil && temperature != nil {
			body, err = sjson.SetBytes(body, "temperature", *temperature)
		}
	case "ollama":
		body, err = json.Marshal(BuildOllamaRequest(model, messages))
		if err == nil && maxTokens > 0 {
			body, err = sjson.SetBytes(body, "options.num_predict", maxTokens)
		}
		if err == nil && temperature != nil {
			body, err = sjson.SetBytes(body, "options.temperature", *temperature)
		}
	case "openai", "groq":
		body, err = json.Marshal(BuildOpenAIRequest(model, messages))
		if err == nil && maxTokens > 0 {
			field := "max_tokens"
			if provider == "openai" {
				field = "max_completion_tokens"
			}
			body, err = sjson.SetBytes(body, field, maxTokens)
		}
		if err == nil && temperature != nil {
			body, err = sjson.SetBytes(body, "temperature", *temperature)
		}
	default:
		return nil, fmt.Errorf("no request format for provider %q", provider)
	}

	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", provider, err)
	}
	return body, nil
}

// BuildOpenAIRequest creates an OpenAI chat request.
func BuildOpenAIRequest(model string, messages []Message) *OpenAIChatRequest {
	return &OpenAIChatRequest{Model: model, Messages: toOpenAI(messages)}
}

// BuildOllamaRequest creates a non-streaming Ollama chat request.
func BuildOllamaRequest(model string, messages []Message) *OllamaChatRequest {
	return &OllamaChatRequest{Model: model, Messages: toOpenAI(messages), Stream: false}
}

// BuildCohereRequest creates a Cohere v2 chat request.
func BuildCohereRequest(model string, messages []Message) *CohereChatRequest {
	out := make([]CohereMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, CohereMessage{Role: m.Role, Content: m.Content})
	}
	return &CohereChatRequest{Model: model, Messages: out}
}

// BuildAnthropicRequest creates an Anthropic messages request. For Bedrock the
// model travels in the URL and the body carries the Bedrock API version.
func BuildAnthropicRequest(provider, model string, messages []Message, maxTokens int) *AnthropicRequest {
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	system, rest := splitSystem(messages)

	req := &AnthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  make([]AnthropicMessage, 0, len(rest)),
	}
	if provider == "bedrock" {
		req.Model = ""
		req.AnthropicVersion = "bedrock-2023-05-31"
	}
	for _, m := range rest {
		req.Messages = append(req.Messages, AnthropicMessage{Role: m.Role, Content: m.Content})
	}
	return req
}

// BuildGeminiRequest creates a Gemini generateContent request. Gemini calls
// the assistant role "model".
func BuildGeminiRequest(messages []Message) *GeminiRequest {
	system, rest := splitSystem(messages)

	req := &GeminiRequest{Contents: make([]GeminiContent, 0, len(rest))}
	if system != "" {
		req.SystemInstruction = &GeminiContent{Parts: []GeminiPart{{Text: system}}}
	}
	for _, m := range rest {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		req.Contents = append(req.Contents, GeminiContent{Role: role, Parts: []GeminiPart{{Text: m.Content}}})
	}
	// contents must not be empty
	if len(req.Contents) == 0 && system != "" {
		req.SystemInstruction = nil
		req.Contents = []GeminiContent{{Role: "user", Parts: []GeminiPart{{Text: system}}}}
	}
	return req
}

func toOpenAI(messages []Message) []OpenAIMessage {
	out := make([]OpenAIMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, OpenAIMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// splitSystem joins system messages and returns the rest in order.
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
