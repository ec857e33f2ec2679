package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaia-chat/gaia-gateway/internal/chat"
	"github.com/gaia-chat/gaia-gateway/internal/providers"
	"github.com/gaia-chat/gaia-gateway/internal/resolver"
)

type scripted struct {
	reply string
	err   error
}

type fakeCaller struct {
	mu     sync.Mutex
	script map[string]scripted // by model id
	calls  []providers.Request
}

func (f *fakeCaller) Generate(_ context.Context, p providers.Provider, req providers.Request) (providers.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	s, ok := f.script[req.Model]
	if !ok {
		return providers.Result{}, &providers.CallError{Kind: providers.KindUpstream, Provider: p, Model: req.Model, Err: errors.New("unscripted")}
	}
	if s.err != nil {
		return providers.Result{}, &providers.CallError{Kind: providers.KindUpstream, Provider: p, Model: req.Model, Err: s.err}
	}
	return providers.Result{Reply: s.reply, Usage: providers.Usage{InputTokens: 10, OutputTokens: 2}}, nil
}

type fakeRecorder struct {
	calls     int
	fallbacks int
}

func (r *fakeRecorder) RecordProviderCall(string, string, bool, time.Duration, int, int) { r.calls++ }
func (r *fakeRecorder) RecordFallback(string)                                         { r.fallbacks++ }

var grok = resolver.ResolvedModel{LogicalKey: "grok", Provider: providers.ProviderGroq, ModelID: "llama-3.3-70b-versatile"}

func seq() chat.Sequence {
	return chat.NewSequence(chat.System("be helpful"), chat.User("What is 2+2?"))
}

func TestCall_PrimarySucceeds(t *testing.T) {
	caller := &fakeCaller{script: map[string]scripted{grok.ModelID: {reply: "4"}}}
	rec := &fakeRecorder{}

	out := NewEngine(caller, nil, rec).Call(context.Background(), grok, seq(), Options{})

	assert.Equal(t, StateSucceeded, out.State)
	assert.Equal(t, "4", out.Reply)
	assert.Equal(t, grok.ModelID, out.ModelUsed)
	assert.False(t, out.FellBack)
	require.Len(t, caller.calls, 1)
	assert.Len(t, caller.calls[0].Messages, 2)
	assert.Equal(t, 1, rec.calls)
}

func TestCall_FallbackSucceedsWithFlattenedPrompt(t *testing.T) {
	caller := &fakeCaller{script: map[string]scripted{
		grok.ModelID:           {err: errors.New("HTTP 503")},
		"llama-3.1-8b-instant": {reply: "four"},
	}}
	rec := &fakeRecorder{}

	out := NewEngine(caller, nil, rec).Call(context.Background(), grok, seq(), Options{})

	assert.Equal(t, StateSucceeded, out.State)
	assert.True(t, out.FellBack)
	assert.Equal(t, "four", out.Reply)
	assert.Equal(t, "llama-3.1-8b-instant", out.ModelUsed)
	require.Len(t, caller.calls, 2)
	assert.Empty(t, caller.calls[1].Messages)
	assert.Equal(t, "system: be helpful\nuser: What is 2+2?", caller.calls[1].Prompt)
	assert.Equal(t, 1, rec.fallbacks)
}

func TestCall_BothFailNamesBothModels(t *testing.T) {
	caller := &fakeCaller{script: map[string]scripted{
		grok.ModelID:           {err: errors.New("primary down")},
		"llama-3.1-8b-instant": {err: errors.New("cheap down")},
	}}

	out := NewEngine(caller, nil, nil).Call(context.Background(), grok, seq(), Options{})

	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, 2, out.Attempts)
	assert.Len(t, caller.calls, 2, "never more than two outbound calls")
	assert.Contains(t, out.Reply, "Error from groq (llama-3.3-70b-versatile) and fallback (llama-3.1-8b-instant):")
	assert.Contains(t, out.Reply, "primary down")
	assert.Contains(t, out.Reply, "cheap down")
	assert.Equal(t, grok.ModelID, out.ModelUsed)
}

func TestCall_NoFallbackForProvider(t *testing.T) {
	rm := resolver.ResolvedModel{LogicalKey: "x", Provider: providers.Provider("mistral"), ModelID: "m-large"}
	caller := &fakeCaller{script: map[string]scripted{}}

	out := NewEngine(caller, nil, nil).Call(context.Background(), rm, seq(), Options{})

	assert.Equal(t, StateFailed, out.State)
	assert.Len(t, caller.calls, 1)
	assert.Contains(t, out.Reply, "Error from mistral (m-large): ")
	assert.Equal(t, "m-large", out.ModelUsed)
}

func TestCall_FallbackEqualsPrimaryDoesNotRetry(t *testing.T) {
	rm := resolver.ResolvedModel{LogicalKey: "groq-small", Provider: providers.ProviderGroq, ModelID: "llama-3.1-8b-instant"}
	caller := &fakeCaller{script: map[string]scripted{rm.ModelID: {err: errors.New("down")}}}

	out := NewEngine(caller, nil, nil).Call(context.Background(), rm, seq(), Options{})

	assert.Len(t, caller.calls, 1)
	assert.Equal(t, StateFailed, out.State)
	assert.Contains(t, out.Reply, "Error from groq (llama-3.1-8b-instant): ")
}

func TestCall_EmptyReplyDiagnostic(t *testing.T) {
	caller := &fakeCaller{script: map[string]scripted{grok.ModelID: {reply: "  \n"}}}

	out := NewEngine(caller, nil, nil).Call(context.Background(), grok, seq(), Options{})

	assert.Equal(t, "groq (llama-3.3-70b-versatile) returned an empty response.", out.Reply)
}

func TestCall_GeminiPrimaryIsFlattened(t *testing.T) {
	rm := resolver.ResolvedModel{LogicalKey: "gemini", Provider: providers.ProviderGemini, ModelID: "gemini-2.5-pro"}
	caller := &fakeCaller{script: map[string]scripted{rm.ModelID: {reply: "ok"}}}

	NewEngine(caller, nil, nil).Call(context.Background(), rm, seq(), Options{})

	require.Len(t, caller.calls, 1)
	assert.Empty(t, caller.calls[0].Messages)
	assert.Contains(t, caller.calls[0].Prompt, "system: be helpful")
}

func TestComplete_AndLedger(t *testing.T) {
	caller := &fakeCaller{script: map[string]scripted{grok.ModelID: {reply: "done"}}}
	ctx, led := WithLedger(context.Background())

	out := NewEngine(caller, nil, nil).Complete(ctx, grok, "sys", "user text", Options{MaxTokens: 100})

	assert.Equal(t, "done", out.Reply)
	require.Len(t, caller.calls, 1)
	assert.Equal(t, 100, caller.calls[0].MaxTokens)
	assert.Equal(t, chat.RoleSystem, caller.calls[0].Messages[0].Role)

	calls := led.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].OK)
	assert.Equal(t, 10, calls[0].Usage.InputTokens)
	assert.Nil(t, LedgerFrom(context.Background()))
}
