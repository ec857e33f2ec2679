// Package lowcost - pipeline.go implements compress-then-answer for long prompts.
//
// DESIGN: When the assembled conversation is large, a cheap model first
// compresses the whole transcript, then the expensive model answers from the
// compressed context:
//
//  1. Compress: cheap model, transcript as "ROLE: content" lines, must not answer
//  2. Answer:   expensive model, compressed context + the question
//
// Either stage failing (error or empty text) returns an error and the caller
// dispatches the original sequence directly. The summary lives only for the
// request that produced it.
package lowcost

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gaia-chat/gaia-gateway/internal/chat"
	"github.com/gaia-chat/gaia-gateway/internal/config"
	"github.com/gaia-chat/gaia-gateway/internal/dispatch"
	"github.com/gaia-chat/gaia-gateway/internal/providers"
	"github.com/gaia-chat/gaia-gateway/internal/resolver"
	"github.com/gaia-chat/gaia-gateway/internal/tokens"
)

// CompressSystemPrompt instructs the cheap model.
const CompressSystemPrompt = "Compress the content WITHOUT losing any information. " +
	"Preserve facts, numbers, requirements, constraints, steps, and code. " +
	"Do NOT answer the question."

// AnswerSystemPrompt instructs the expensive model.
const AnswerSystemPrompt = "Answer the user using the compressed context as if you had the full context. " +
	"Do not mention summarization."

// Pipeline runs the two-stage flow.
type Pipeline struct {
	engine    *dispatch.Engine
	estimator tokens.Estimator
	threshold int
}

// New creates a pipeline triggered at threshold estimated tokens.
func New(engine *dispatch.Engine, estimator tokens.Estimator, threshold int) *Pipeline {
	if threshold <= 0 {
		threshold = config.DefaultELMThreshold
	}
	if estimator == nil {
		estimator = tokens.Heuristic{}
	}
	return &Pipeline{engine: engine, estimator: estimator, threshold: threshold}
}

// ShouldRun reports whether seq is large enough to compress first.
func (p *Pipeline) ShouldRun(seq chat.Sequence) bool {
	return tokens.EstimateMessages(p.estimator, seq) >= p.threshold
}

// Output is a successful run.
type Output struct {
	Reply         string
	ModelUsed     string
	Summary       string
	InputTokens   int
	SummaryTokens int
	Duration      time.Duration
}

// Run compresses seq with cheap and answers question with expensive.
func (p *Pipeline) Run(ctx context.Context, cheap, expensive resolver.ResolvedModel, seq chat.Sequence, question string) (*Output, error) {
	startTime := time.Now()
	inputTokens := tokens.EstimateMessages(p.estimator, seq)

	summary, err := p.stage(ctx, cheap, CompressSystemPrompt, seq.FlattenTranscript(), "compress")
	if err != nil {
		return nil, fmt.Errorf("compress stage: %w", err)
	}

	user := fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", summary.Reply, question)
	answer, err := p.stage(ctx, expensive, AnswerSystemPrompt, user, "answer")
	if err != nil {
		return nil, fmt.Errorf("answer stage: %w", err)
	}

	out := &Output{
		Reply:         answer.Reply,
		ModelUsed:     expensive.ModelID,
		Summary:       summary.Reply,
		InputTokens:   inputTokens,
		SummaryTokens: p.estimator.Estimate(summary.Reply),
		Duration:      time.Since(startTime),
	}

	log.Debug().
		Str("cheap", cheap.ModelID).
		Str("expensive", expensive.ModelID).
		Int("input_tokens", out.InputTokens).
		Int("summary_tokens", out.SummaryTokens).
		Dur("duration", out.Duration).
		Msg("lowcost: compress-then-answer completed")

	return out, nil
}

func (p *Pipeline) stage(ctx context.Context, rm resolver.ResolvedModel, system, user, name string) (providers.Result, error) {
	req := providers.Request{
		Model:    rm.ModelID,
		Messages: []chat.Message{chat.System(system), chat.User(user)},
	}
	res, err := p.engine.Try(ctx, rm.Provider, req, "lowcost."+name)
	if err != nil {
		return res, err
	}
	if strings.TrimSpace(res.Reply) == "" {
		return res, fmt.Errorf("%s (%s) returned empty text", rm.Provider, rm.ModelID)
	}
	return res, nil
}
