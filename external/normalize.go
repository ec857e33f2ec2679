// Response normalization across provider shapes.
//
// DESIGN: Providers disagree on where the reply text lives. Rather than a
// typed struct per provider, the body is probed with gjson in a fixed order:
//
//	choices.0.message.content     OpenAI, Groq
//	content[type=text].text       Anthropic, Bedrock
//	candidates.0.content.parts    Gemini
//	message.content[].text        Cohere v2
//	message.content (string)      Ollama
//	text                          Cohere v1
//	reply, output_text, response  generic
//
// A body that is not JSON, or is a bare JSON string, is the reply itself.
package external

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/gaia-chat/gaia-gateway/internal/config"
)

// ExtractReply returns the reply text of a provider response, or "".
func ExtractReply(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}

	r := gjson.ParseBytes(body)
	if r.Type == gjson.String {
		return r.String()
	}

	if v := r.Get("choices.0.message.content"); v.Exists() {
		return v.String()
	}
	if v := r.Get("choices.0.text"); v.Exists() {
		return v.String()
	}
	if blocks := r.Get("content"); blocks.IsArray() {
		return joinTexts(blocks.Array())
	}
	if parts := r.Get("candidates.0.content.parts"); parts.IsArray() {
		return joinTexts(parts.Array())
	}
	if msg := r.Get("message.content"); msg.Exists() {
		if msg.IsArray() {
			return joinTexts(msg.Array())
		}
		return msg.String()
	}
	for _, path := range []string{"text", "reply", "output_text", "response"} {
		if v := r.Get(path); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}

// ExtractModel returns the model id the provider reports, or requested.
func ExtractModel(body []byte, requested string) string {
	if !gjson.ValidBytes(body) {
		return requested
	}
	r := gjson.ParseBytes(body)
	for _, path := range []string{"model", "modelVersion"} {
		if v := r.Get(path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return requested
}

// ExtractUsage reads token usage from any supported shape.
func ExtractUsage(body []byte) Usage {
	if !gjson.ValidBytes(body) {
		return Usage{}
	}
	r := gjson.ParseBytes(body)
	pairs := [][2]string{
		{"usage.prompt_tokens", "usage.completion_tokens"},
		{"usage.input_tokens", "usage.output_tokens"},
		{"usageMetadata.promptTokenCount", "usageMetadata.candidatesTokenCount"},
		{"usage.tokens.input_tokens", "usage.tokens.output_tokens"},
		{"meta.billed_units.input_tokens", "meta.billed_units.output_tokens"},
		{"prompt_eval_count", "eval_count"},
	}
	for _, p := range pairs {
		in, out := r.Get(p[0]), r.Get(p[1])
		if in.Exists() || out.Exists() {
			return Usage{InputTokens: int(in.Int()), OutputTokens: int(out.Int())}
		}
	}
	return Usage{}
}

// ExtractErrorMessage pulls a readable message out of an error body.
func ExtractErrorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		r := gjson.ParseBytes(body)
		for _, path := range []string{"error.message", "message", "error"} {
			if v := r.Get(path); v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > config.MaxErrorBodyLogLen {
		s = s[:config.MaxErrorBodyLogLen]
	}
	return s
}

func joinTexts(items []gjson.Result) string {
	var parts []string
	for _, it := range items {
		if t := it.Get("type"); t.Exists() && t.String() != "text" {
			continue
		}
		if txt := it.Get("text"); txt.Exists() {
			parts = append(parts, txt.String())
		}
	}
	return strings.Join(parts, "")
}
