package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaia-chat/gaia-gateway/internal/chat"
	"github.com/gaia-chat/gaia-gateway/internal/config"
	"github.com/gaia-chat/gaia-gateway/internal/costcontrol"
	"github.com/gaia-chat/gaia-gateway/internal/dispatch"
	"github.com/gaia-chat/gaia-gateway/internal/ingest"
	"github.com/gaia-chat/gaia-gateway/internal/lowcost"
	"github.com/gaia-chat/gaia-gateway/internal/monitoring"
	"github.com/gaia-chat/gaia-gateway/internal/providers"
	"github.com/gaia-chat/gaia-gateway/internal/resolver"
	"github.com/gaia-chat/gaia-gateway/internal/store"
)

const (
	groqPrimary = "llama-3.3-70b-versatile"
	groqCheap   = "llama-3.1-8b-instant"
)

// fakeCaller answers by stage and fails any model listed in fail.
type fakeCaller struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []providers.Request
}

func (f *fakeCaller) Generate(_ context.Context, p providers.Provider, req providers.Request) (providers.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)

	if f.fail[req.Model] {
		return providers.Result{}, &providers.CallError{Kind: providers.KindUpstream, Provider: p, Model: req.Model, Err: errors.New("boom")}
	}
	usage := providers.Usage{InputTokens: 100, OutputTokens: 20}

	system := ""
	if len(req.Messages) > 0 && req.Messages[0].Role == chat.RoleSystem {
		system = req.Messages[0].Content
	}
	switch {
	case system == lowcost.CompressSystemPrompt:
		return providers.Result{Reply: "compressed context", Usage: usage}, nil
	case system == lowcost.AnswerSystemPrompt:
		return providers.Result{Reply: "elm answer", Usage: usage}, nil
	case strings.HasPrefix(system, "You are GAIA"):
		return providers.Result{Reply: "file answer", Usage: usage}, nil
	}
	return providers.Result{Reply: "4", Usage: usage}, nil
}

func (f *fakeCaller) models() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Model
	}
	return out
}

func (f *fakeCaller) last() providers.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func newService(t *testing.T, c *fakeCaller, mutate func(*Deps)) *Service {
	t.Helper()
	d := Deps{
		Resolver: resolver.New(nil),
		Engine:   dispatch.NewEngine(c, nil, nil),
	}
	if mutate != nil {
		mutate(&d)
	}
	return New(config.Default().Orchestration, d)
}

func TestAnswer_DirectGrok(t *testing.T) {
	c := &fakeCaller{}
	svc := newService(t, c, nil)

	out := svc.Answer(context.Background(), Request{Question: "What is 2+2?", ModelKey: "grok"})

	assert.Equal(t, "4", out.Reply)
	assert.Equal(t, groqPrimary, out.ModelUsed)
	assert.Equal(t, monitoring.RouteDirect, out.Route)
	assert.False(t, out.Failed)
	assert.NotEmpty(t, out.RequestID)

	require.Equal(t, []string{groqPrimary}, c.models())
	last, ok := chat.NewSequence(c.last().Messages...).Last()
	require.True(t, ok)
	assert.Equal(t, chat.User("What is 2+2?"), last)
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	c := &fakeCaller{}
	svc := newService(t, c, nil)

	out := svc.Answer(context.Background(), Request{Question: "   "})

	assert.Equal(t, EmptyQuestionMessage, out.Reply)
	assert.Equal(t, monitoring.RouteEmpty, out.Route)
	assert.Empty(t, c.models())
}

func TestAnswer_DefaultModel(t *testing.T) {
	c := &fakeCaller{}
	svc := newService(t, c, nil)

	out := svc.Answer(context.Background(), Request{Question: "hi"})
	assert.Equal(t, groqPrimary, out.ModelUsed)
}

func TestAnswer_FallsBackToCheapModel(t *testing.T) {
	c := &fakeCaller{fail: map[string]bool{groqPrimary: true}}
	svc := newService(t, c, nil)

	out := svc.Answer(context.Background(), Request{Question: "What is 2+2?", ModelKey: "grok"})

	assert.Equal(t, "4", out.Reply)
	assert.Equal(t, groqCheap, out.ModelUsed)
	assert.Equal(t, []string{groqPrimary, groqCheap}, c.models())
}

func TestAnswer_BothTiersFail(t *testing.T) {
	c := &fakeCaller{fail: map[string]bool{groqPrimary: true, groqCheap: true}}
	log, err := monitoring.NewRequestLog("")
	require.NoError(t, err)
	svc := newService(t, c, func(d *Deps) { d.Requests = log })

	out := svc.Answer(context.Background(), Request{Question: "What is 2+2?", ModelKey: "grok"})

	assert.True(t, out.Failed)
	assert.True(t, strings.HasPrefix(out.Reply, "Error from groq"), out.Reply)

	recent := log.Recent(1)
	require.Len(t, recent, 1)
	assert.False(t, recent[0].Success)
	assert.Equal(t, string(dispatch.StateFailed), recent[0].FallbackState)
	assert.Equal(t, 2, recent[0].ProviderCalls)
}

func longHistory() []chat.RawTurn {
	return []chat.RawTurn{
		{Role: "user", Content: strings.Repeat("background detail ", 200)},
		{Role: "assistant", Content: "noted"},
	}
}

func TestAnswer_CompressThenAnswer(t *testing.T) {
	c := &fakeCaller{}
	savings := monitoring.NewSavingsTracker()
	svc := newService(t, c, func(d *Deps) { d.Savings = savings })

	out := svc.Answer(context.Background(), Request{Question: "Summarize the plan", ModelKey: "grok", History: longHistory()})

	assert.Equal(t, "elm answer", out.Reply)
	assert.Equal(t, groqPrimary, out.ModelUsed)
	assert.Equal(t, monitoring.RouteELM, out.Route)
	assert.Equal(t, []string{groqCheap, groqPrimary}, c.models())

	rep := savings.Report()
	assert.Equal(t, 1, rep.Runs)
	assert.Greater(t, rep.TokensSaved, 0)
}

func TestAnswer_CompressFailureDispatchesDirectly(t *testing.T) {
	c := &fakeCaller{fail: map[string]bool{groqCheap: true}}
	svc := newService(t, c, nil)

	out := svc.Answer(context.Background(), Request{Question: "Summarize the plan", ModelKey: "grok", History: longHistory()})

	assert.Equal(t, "4", out.Reply)
	assert.Equal(t, monitoring.RouteDirect, out.Route)
	assert.Equal(t, []string{groqCheap, groqPrimary}, c.models())
}

func TestAnswer_BudgetExhausted(t *testing.T) {
	c := &fakeCaller{}
	costs := costcontrol.NewTracker(config.CostControlConfig{Enabled: true, SessionCap: 0.0001}, 0)
	costs.RecordRequest("chat:c1", groqPrimary, []costcontrol.Call{{Model: groqPrimary, InputTokens: 100000, OutputTokens: 100000}})
	svc := newService(t, c, func(d *Deps) { d.Costs = costs })

	out := svc.Answer(context.Background(), Request{Question: "hi", ChatID: "c1"})

	assert.Equal(t, monitoring.RouteBudget, out.Route)
	assert.Contains(t, out.Reply, "spending limit")
	assert.Empty(t, c.models())
}

func TestAnswer_RecordsCost(t *testing.T) {
	c := &fakeCaller{}
	costs := costcontrol.NewTracker(config.CostControlConfig{Enabled: true}, 0)
	svc := newService(t, c, func(d *Deps) { d.Costs = costs })

	out := svc.Answer(context.Background(), Request{Question: "hi", ModelKey: "gpt-5"})

	assert.Greater(t, out.CostUSD, 0.0)
	assert.InDelta(t, out.CostUSD, costs.ChatCost("anonymous"), 1e-12)
}

func TestAnswer_FilesRoute(t *testing.T) {
	c := &fakeCaller{}
	svc := newService(t, c, nil)

	f := ingest.Wrap("notes.txt", []byte("The launch is on Tuesday."), "text/plain")
	out := svc.Answer(context.Background(), Request{
		Question: "When is the launch?",
		ModelKey: "grok",
		History:  []chat.RawTurn{{Role: "user", Content: "earlier"}, {Role: "assistant", Content: "ok"}},
		Files:    []ingest.UploadedFile{f},
	})

	assert.Equal(t, monitoring.RouteFiles, out.Route)
	require.NotNil(t, out.Meta)
	assert.Equal(t, 1, out.Meta.FileCount)
	assert.Equal(t, "used", out.Meta.Manifest[0].Status)
	assert.Equal(t, "file answer", out.Reply)

	user := c.last().Messages[len(c.last().Messages)-1].Content
	assert.Contains(t, user, "Context (recent turns):\nuser: earlier\nassistant: ok")
}

func TestAnswer_PersistsTurns(t *testing.T) {
	c := &fakeCaller{}
	st, err := store.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "chats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	svc := newService(t, c, func(d *Deps) { d.Store = st })

	out := svc.Answer(context.Background(), Request{Question: "What is 2+2?", ModelKey: "grok", UserID: "u1"})
	require.NotEmpty(t, out.ChatID)

	got, err := st.GetChat(context.Background(), "u1", out.ChatID)
	require.NoError(t, err)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, "What is 2+2?", got.Turns[0].Content)
	assert.Equal(t, "4", got.Turns[1].Content)
	assert.Equal(t, groqPrimary, got.Turns[1].Model)
}

func TestAnswer_AnonymousNotPersisted(t *testing.T) {
	c := &fakeCaller{}
	st, err := store.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "chats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	svc := newService(t, c, func(d *Deps) { d.Store = st })

	out := svc.Answer(context.Background(), Request{Question: "hi"})
	assert.Empty(t, out.ChatID)
}

func TestFileQuestion(t *testing.T) {
	raw := []chat.RawTurn{
		{Role: "system", Content: "Answer in French."},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "bonjour"},
	}

	assert.Equal(t, "what?", FileQuestion("what?", nil, 16))
	assert.Equal(t,
		"System instruction:\nAnswer in French.\n\nContext (recent turns):\nuser: hello\nassistant: bonjour\n\nUser:\nwhat?",
		FileQuestion("what?", raw, 16))
}

func TestNormalizeStyle(t *testing.T) {
	assert.Equal(t, config.StyleStructured, normalizeStyle(" Structured ", config.StyleSimple))
	assert.Equal(t, config.StyleSimple, normalizeStyle("fancy", ""))
	assert.Equal(t, config.StyleStructured, normalizeStyle("", config.StyleStructured))
}
