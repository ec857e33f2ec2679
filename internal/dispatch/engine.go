// Package dispatch - engine.go calls a provider with two-tier fallback.
//
// DESIGN: One call walks a small state machine:
//
//	Primary ──ok──────────────────────────▶ Succeeded
//	   │ error
//	   ▼
//	FallbackAttempted ──ok──▶ Succeeded
//	   │ error, or no cheap model, or cheap == primary
//	   ▼
//	Failed
//
// At most two outbound calls, never across providers. Every path ends in a
// user-visible reply string; provider errors never escape as Go errors.
// The retry sends the flattened prompt with no message list, the shape every
// provider accepts.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaia-chat/gaia-gateway/internal/chat"
	"github.com/gaia-chat/gaia-gateway/internal/providers"
	"github.com/gaia-chat/gaia-gateway/internal/resolver"
)

var tracer = otel.Tracer("gaia-gateway/dispatch")

// State is the fallback state machine position.
type State string

const (
	StatePrimary           State = "primary"
	StateFallbackAttempted State = "fallback_attempted"
	StateSucceeded         State = "succeeded"
	StateFailed            State = "failed"
)

// Caller routes a request to a provider. *providers.Registry implements it.
type Caller interface {
	Generate(ctx context.Context, p providers.Provider, req providers.Request) (providers.Result, error)
}

// Recorder receives per-call metrics. *monitoring.MetricsCollector implements it.
type Recorder interface {
	RecordProviderCall(provider, model string, ok bool, latency time.Duration, inputTokens, outputTokens int)
	RecordFallback(provider string)
}

// FallbackFunc returns the cheap retry model for a provider.
type FallbackFunc func(p providers.Provider) (string, bool)

// Options tune a single call.
type Options struct {
	MaxTokens   int
	Temperature *float64
}

// Outcome is the terminal result of a dispatch.
type Outcome struct {
	Reply     string
	ModelUsed string
	State     State
	FellBack  bool
	Attempts  int
	Usage     providers.Usage
}

// Engine dispatches calls with fallback.
type Engine struct {
	caller   Caller
	fallback FallbackFunc
	metrics  Recorder
}

// NewEngine creates an engine. A nil fallback uses the static per-provider
// table; a nil recorder disables metrics.
func NewEngine(caller Caller, fallback FallbackFunc, metrics Recorder) *Engine {
	if fallback == nil {
		fallback = resolver.StaticFallback
	}
	return &Engine{caller: caller, fallback: fallback, metrics: metrics}
}

// Call sends seq to rm with two-tier fallback.
func (e *Engine) Call(ctx context.Context, rm resolver.ResolvedModel, seq chat.Sequence, opts Options) Outcome {
	out := Outcome{State: StatePrimary, ModelUsed: rm.ModelID}

	primary := providers.Request{
		Model:       rm.ModelID,
		Messages:    seq.Messages(),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	// Gemini gets the standing instruction inline as part of one prompt.
	if rm.Provider == providers.ProviderGemini {
		primary.Prompt = seq.FlattenPrompt()
		primary.Messages = nil
	}

	res, err1 := e.Try(ctx, rm.Provider, primary, "primary")
	out.Attempts++
	if err1 == nil {
		return e.finish(out, rm.Provider, res, rm.ModelID)
	}

	cheap, ok := e.fallback(rm.Provider)
	if !ok || cheap == "" || cheap == rm.ModelID {
		out.State = StateFailed
		out.Reply = fmt.Sprintf("Error from %s (%s): %v", rm.Provider, rm.ModelID, err1)
		log.Warn().Err(err1).Str("provider", rm.Provider.String()).Str("model", rm.ModelID).Msg("dispatch: primary failed, no fallback")
		return out
	}

	out.State = StateFallbackAttempted
	out.FellBack = true
	if e.metrics != nil {
		e.metrics.RecordFallback(rm.Provider.String())
	}
	log.Warn().Err(err1).
		Str("provider", rm.Provider.String()).
		Str("model", rm.ModelID).
		Str("fallback", cheap).
		Msg("dispatch: primary failed, retrying with cheap model")

	retry := providers.Request{
		Model:       cheap,
		Prompt:      seq.FlattenPrompt(),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	res, err2 := e.Try(ctx, rm.Provider, retry, "fallback")
	out.Attempts++
	if err2 != nil {
		out.State = StateFailed
		out.Reply = fmt.Sprintf("Error from %s (%s) and fallback (%s): %v; %v", rm.Provider, rm.ModelID, cheap, err1, err2)
		log.Warn().Err(err2).Str("provider", rm.Provider.String()).Str("fallback", cheap).Msg("dispatch: fallback failed")
		return out
	}
	return e.finish(out, rm.Provider, res, cheap)
}

// Complete is Call for a single system+user exchange.
func (e *Engine) Complete(ctx context.Context, rm resolver.ResolvedModel, system, user string, opts Options) Outcome {
	seq := chat.NewSequence()
	if system != "" {
		seq = seq.Append(chat.System(system))
	}
	return e.Call(ctx, rm, seq.Append(chat.User(user)), opts)
}

// Try makes exactly one instrumented call with no fallback. Callers that
// degrade locally on failure use it directly.
func (e *Engine) Try(ctx context.Context, p providers.Provider, req providers.Request, attempt string) (providers.Result, error) {
	ctx, span := tracer.Start(ctx, "dispatch.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", p.String()),
			attribute.String("llm.model", req.Model),
			attribute.String("dispatch.attempt", attempt),
		),
	)
	defer span.End()

	start := time.Now()
	res, err := e.caller.Generate(ctx, p, req)
	latency := time.Since(start)

	if e.metrics != nil {
		e.metrics.RecordProviderCall(p.String(), req.Model, err == nil, latency, res.Usage.InputTokens, res.Usage.OutputTokens)
	}
	if led := LedgerFrom(ctx); led != nil {
		led.add(CallRecord{Provider: p, Model: req.Model, OK: err == nil, Latency: latency, Usage: res.Usage})
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if kind := providers.KindOf(err); kind != "" {
			span.SetAttributes(attribute.String("llm.error_kind", string(kind)))
		}
		return res, err
	}
	span.SetAttributes(
		attribute.Int("llm.input_tokens", res.Usage.InputTokens),
		attribute.Int("llm.output_tokens", res.Usage.OutputTokens),
	)
	return res, nil
}

func (e *Engine) finish(out Outcome, p providers.Provider, res providers.Result, requested string) Outcome {
	out.State = StateSucceeded
	out.Usage = res.Usage
	out.ModelUsed = res.Model
	if out.ModelUsed == "" {
		out.ModelUsed = requested
	}
	out.Reply = res.Reply
	if strings.TrimSpace(out.Reply) == "" {
		out.Reply = fmt.Sprintf("%s (%s) returned an empty response.", p, out.ModelUsed)
	}
	return out
}
