// Direct provider calls.
//
// USAGE:
//   - CallLLM(ctx, CallLLMParams{...}) for one chat completion
//   - ListModels(ctx, ListModelsParams{...}) for the ids a provider serves
//
// Errors: a non-2xx status returns *HTTPError carrying the status code; any
// other failure is a transport or encoding error.
package external

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gaia-chat/gaia-gateway/internal/config"
)

const (
	defaultCallTimeout  = 120 * time.Second
	anthropicAPIVersion = "2023-06-01"
)

// CallLLMParams describes one completion call.
type CallLLMParams struct {
	Provider  string
	Endpoint  string
	APISecret string
	Model     string

	// Messages takes precedence over SystemPrompt/UserPrompt.
	Messages     []Message
	SystemPrompt string
	UserPrompt   string

	MaxTokens   int
	Temperature *float64
	Timeout     time.Duration

	HTTPClient   *http.Client // optional; Bedrock passes a signing client
	ExtraHeaders map[string]string
}

// CallLLMResult is the normalized outcome of a call.
type CallLLMResult struct {
	Content      string
	Model        string
	Provider     string
	InputTokens  int
	OutputTokens int
}

// HTTPError is returned when the provider answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// CallLLM sends one chat request and normalizes the response.
func CallLLM(ctx context.Context, p CallLLMParams) (*CallLLMResult, error) {
	messages := p.Messages
	if len(messages) == 0 {
		if p.SystemPrompt != "" {
			messages = append(messages, Message{Role: "system", Content: p.SystemPrompt})
		}
		messages = append(messages, Message{Role: "user", Content: p.UserPrompt})
	}

	body, err := BuildRequestBody(p.Provider, p.Model, messages, p.MaxTokens, p.Temperature)
	if err != nil {
		return nil, err
	}

	endpoint := p.Endpoint
	if p.Provider == "gemini" {
		endpoint = GeminiEndpoint(endpoint, p.Model)
	}
	if endpoint == "" {
		return nil, fmt.Errorf("no endpoint for provider %q", p.Provider)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setAuth(req, p.Provider, p.APISecret)
	for k, v := range p.ExtraHeaders {
		req.Header.Set(k, v)
	}

	raw, err := do(httpClient(p.HTTPClient, p.Timeout), req)
	if err != nil {
		return nil, err
	}

	usage := ExtractUsage(raw)
	return &CallLLMResult{
		Content:      ExtractReply(raw),
		Model:        ExtractModel(raw, p.Model),
		Provider:     p.Provider,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
	}, nil
}

// =============================================================================
// Model listing
// =============================================================================

// ListModelsParams describes a model listing call.
type ListModelsParams struct {
	Provider   string
	Endpoint   string // the chat endpoint; the listing URL is derived from it
	APISecret  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ListModels returns the model ids a provider currently serves.
func ListModels(ctx context.Context, p ListModelsParams) ([]string, error) {
	url, path := modelsURL(p.Provider, p.Endpoint)
	if url == "" {
		return nil, fmt.Errorf("model listing not supported for provider %q", p.Provider)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	setAuth(req, p.Provider, p.APISecret)

	raw, err := do(httpClient(p.HTTPClient, p.Timeout), req)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, v := range gjson.GetBytes(raw, path).Array() {
		if id := strings.TrimPrefix(v.String(), "models/"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// modelsURL maps a chat endpoint to the provider's listing URL and the gjson
// path of the ids in its response.
func modelsURL(provider, endpoint string) (string, string) {
	switch provider {
	case "openai", "groq":
		return strings.TrimSuffix(endpoint, "/chat/completions") + "/models", "data.#.id"
	case "anthropic":
		return strings.TrimSuffix(endpoint, "/messages") + "/models", "data.#.id"
	case "gemini":
		return strings.TrimSuffix(endpoint, "/"), "models.#.name"
	case "cohere":
		base := strings.TrimSuffix(strings.TrimSuffix(endpoint, "/chat"), "/v2")
		return strings.TrimSuffix(base, "/v1") + "/v1/models", "models.#.name"
	case "ollama":
		return strings.TrimSuffix(endpoint, "/api/chat") + "/api/tags", "models.#.name"
	}
	return "", ""
}

// GeminiEndpoint appends the generateContent method for model to a models
// base URL. Full method URLs are returned unchanged.
func GeminiEndpoint(base, model string) string {
	if base == "" || strings.Contains(base, ":generateContent") {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + model + ":generateContent"
}

// =============================================================================
// Helpers
// =============================================================================

func setAuth(req *http.Request, provider, secret string) {
	if secret == "" {
		return
	}
	switch provider {
	case "anthropic":
		req.Header.Set("x-api-key", secret)
		req.Header.Set("anthropic-version", anthropicAPIVersion)
	case "gemini":
		req.Header.Set("x-goog-api-key", secret)
	case "bedrock":
		// signed by the transport
	default:
		req.Header.Set("Authorization", "Bearer "+secret)
	}
}

func httpClient(c *http.Client, timeout time.Duration) *http.Client {
	if c != nil {
		return c
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &http.Client{Timeout: timeout}
}

func do(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: ExtractErrorMessage(raw)}
	}
	return raw, nil
}
