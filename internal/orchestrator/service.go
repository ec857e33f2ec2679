// Package orchestrator - service.go is the single entry point for answering.
//
// DESIGN: Every transport (JSON, multipart, SSE, websocket, CLI) calls
// Service.Answer and gets a ReplyResult back. Answer never returns an error:
// provider, extraction and SQL faults all end up as reply text.
//
//	question ──▶ resolve model ──▶ budget check
//	   files?  ──yes──▶ file router (history as context block)
//	     │no
//	     ▼
//	build sequence ──▶ estimate ≥ threshold? ──yes──▶ compress-then-answer
//	                        │no                          │ stage failed
//	                        ▼                            ▼
//	                   direct dispatch ◀─────────────────┘
//
// After the reply: persist turns, price the calls, record metrics.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gaia-chat/gaia-gateway/internal/chat"
	"github.com/gaia-chat/gaia-gateway/internal/config"
	"github.com/gaia-chat/gaia-gateway/internal/costcontrol"
	"github.com/gaia-chat/gaia-gateway/internal/dispatch"
	"github.com/gaia-chat/gaia-gateway/internal/history"
	"github.com/gaia-chat/gaia-gateway/internal/ingest"
	"github.com/gaia-chat/gaia-gateway/internal/lowcost"
	"github.com/gaia-chat/gaia-gateway/internal/monitoring"
	"github.com/gaia-chat/gaia-gateway/internal/resolver"
	"github.com/gaia-chat/gaia-gateway/internal/store"
	"github.com/gaia-chat/gaia-gateway/internal/tokens"
)

// EmptyQuestionMessage is the reply to a request with no question and no files.
const EmptyQuestionMessage = "Please type a question."

// Request is one question from any transport.
type Request struct {
	Question  string
	ModelKey  string
	Version   string
	History   []chat.RawTurn
	Files     []ingest.UploadedFile
	Style     string
	UserID    string
	ChatID    string
	Transport string
}

// ReplyResult is the answer to a Request.
type ReplyResult struct {
	Reply     string       `json:"reply"`
	ModelUsed string       `json:"model,omitempty"`
	Meta      *ingest.Meta `json:"meta,omitempty"`
	ChatID    string       `json:"chat_id,omitempty"`

	RequestID string           `json:"-"`
	Route     monitoring.Route `json:"-"`
	Failed    bool             `json:"-"`
	CostUSD   float64          `json:"-"`
}

// Deps are the collaborators of a Service. Engine and Resolver are
// required; everything else is optional. A nil or Noop store disables
// persistence.
type Deps struct {
	Resolver  *resolver.Resolver
	Engine    *dispatch.Engine
	Estimator tokens.Estimator
	Opener    ingest.EngineOpener
	Store     store.Store
	Costs     *costcontrol.Tracker
	Metrics   *monitoring.MetricsCollector
	Savings   *monitoring.SavingsTracker
	Requests  *monitoring.RequestLog
}

// Service answers questions.
type Service struct {
	cfg      config.OrchestrationConfig
	resolver *resolver.Resolver
	engine   *dispatch.Engine
	builder  *history.Builder
	elm      *lowcost.Pipeline
	files    *ingest.Router

	store    store.Store
	costs    *costcontrol.Tracker
	metrics  *monitoring.MetricsCollector
	savings  *monitoring.SavingsTracker
	requests *monitoring.RequestLog

	now   func() time.Time
	newID func() string
}

// New wires a Service from cfg and d.
func New(cfg config.OrchestrationConfig, d Deps) *Service {
	est := d.Estimator
	if est == nil {
		est = tokens.New(cfg.TokenEstimator)
	}
	st := d.Store
	if _, ok := st.(store.Noop); ok {
		st = nil
	}
	return &Service{
		cfg:      cfg,
		resolver: d.Resolver,
		engine:   d.Engine,
		builder:  history.NewBuilder(cfg.MaxHistoryPairs),
		elm:      lowcost.New(d.Engine, est, cfg.ELMThreshold),
		files:    ingest.NewRouter(d.Engine, est, ingest.OptionsFrom(cfg), d.Opener),
		store:    st,
		costs:    d.Costs,
		metrics:  d.Metrics,
		savings:  d.Savings,
		requests: d.Requests,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// Resolver returns the service's model resolver.
func (s *Service) Resolver() *resolver.Resolver { return s.resolver }

// StreamWords is the number of words per streamed delta event.
func (s *Service) StreamWords() int {
	if s.cfg.StreamWords <= 0 {
		return config.DefaultStreamWords
	}
	return s.cfg.StreamWords
}

// Answer answers req.
func (s *Service) Answer(ctx context.Context, req Request) ReplyResult {
	start := s.now()
	out := ReplyResult{RequestID: s.newID()}
	question := strings.TrimSpace(req.Question)

	if question == "" && len(req.Files) == 0 {
		out.Reply = EmptyQuestionMessage
		out.Route = monitoring.RouteEmpty
		s.record(req, out, start, nil, resolver.ResolvedModel{})
		return out
	}

	key := req.ModelKey
	if strings.TrimSpace(key) == "" {
		key = s.cfg.DefaultModel
	}
	rm := s.resolver.Resolve(key, req.Version)
	cheap := resolver.ResolvedModel{LogicalKey: rm.LogicalKey, Provider: rm.Provider, ModelID: s.resolver.CheapModel(rm)}
	style := normalizeStyle(req.Style, s.cfg.DefaultStyle)

	log.Debug().
		Str("request_id", out.RequestID).
		Str("key", rm.LogicalKey).
		Str("provider", rm.Provider.String()).
		Str("model", rm.ModelID).
		Str("cheap", cheap.ModelID).
		Int("files", len(req.Files)).
		Msg("orchestrator: resolved model")

	if req.UserID != "" && req.ChatID == "" && s.store != nil {
		req.ChatID = s.newID()
	}
	out.ChatID = req.ChatID

	budgetKey := costKey(req)
	if s.costs != nil {
		if check := s.costs.CheckBudget(budgetKey); !check.Allowed {
			log.Warn().Str("key", budgetKey).Float64("cost", check.CurrentCost).Msg("orchestrator: budget exhausted")
			out.Reply = check.Message()
			out.ModelUsed = rm.ModelID
			out.Route = monitoring.RouteBudget
			s.record(req, out, start, nil, rm)
			return out
		}
	}

	ctx, ledger := dispatch.WithLedger(ctx)

	if len(req.Files) > 0 {
		s.answerFiles(ctx, &out, req, question, rm, cheap, style)
	} else {
		s.answerChat(ctx, &out, req, question, rm, cheap)
	}

	s.persist(ctx, req, question, out)

	calls := ledger.Calls()
	if s.costs != nil {
		priced := make([]costcontrol.Call, len(calls))
		for i, c := range calls {
			priced[i] = costcontrol.Call{Model: c.Model, InputTokens: c.Usage.InputTokens, OutputTokens: c.Usage.OutputTokens}
		}
		out.CostUSD = s.costs.RecordRequest(budgetKey, out.ModelUsed, priced)
	}
	s.record(req, out, start, calls, rm)
	return out
}

func (s *Service) answerFiles(ctx context.Context, out *ReplyResult, req Request, question string, rm, cheap resolver.ResolvedModel, style string) {
	if s.metrics != nil {
		s.metrics.RecordFiles(len(req.Files))
	}
	reply := s.files.Answer(ctx, ingest.Request{
		Question: FileQuestion(question, req.History, s.cfg.FileHistoryTurns),
		Files:    req.Files,
		Model:    rm,
		Cheap:    cheap,
		Style:    style,
	})

	out.Reply = reply.Text
	out.ModelUsed = reply.ModelUsed
	if out.ModelUsed == "" {
		out.ModelUsed = cheap.ModelID
	}
	out.Meta = &reply.Meta
	out.Route = monitoring.RouteFiles
}

func (s *Service) answerChat(ctx context.Context, out *ReplyResult, req Request, question string, rm, cheap resolver.ResolvedModel) {
	seq := s.builder.Build(question, req.History)

	if s.elm.ShouldRun(seq) {
		res, err := s.elm.Run(ctx, cheap, rm, seq, question)
		if err == nil {
			out.Reply = res.Reply
			out.ModelUsed = res.ModelUsed
			out.Route = monitoring.RouteELM
			if s.savings != nil {
				s.savings.Record(rm.ModelID, cheap.ModelID, res.InputTokens, res.SummaryTokens)
			}
			if s.metrics != nil {
				s.metrics.RecordELMSavings(res.InputTokens - res.SummaryTokens)
			}
			return
		}
		log.Warn().Err(err).Str("model", rm.ModelID).Msg("orchestrator: compress-then-answer failed, dispatching directly")
	}

	o := s.engine.Call(ctx, rm, seq, dispatch.Options{})
	out.Reply = o.Reply
	out.ModelUsed = o.ModelUsed
	out.Route = monitoring.RouteDirect
	out.Failed = o.State == dispatch.StateFailed
}

// FileQuestion prefixes question with the recent history and any standing
// system instructions, the context block the file pipeline sees.
func FileQuestion(question string, raw []chat.RawTurn, turns int) string {
	if turns <= 0 {
		turns = config.DefaultFileHistoryTurns
	}
	q := question
	if recent := history.Recent(raw, turns); len(recent) > 0 {
		lines := make([]string, len(recent))
		for i, m := range recent {
			lines[i] = fmt.Sprintf("%s: %s", m.Role, m.Content)
		}
		q = strings.TrimSpace(fmt.Sprintf("Context (recent turns):\n%s\n\nUser:\n%s", strings.Join(lines, "\n"), question))
	}
	if standing := history.StandingInstructions(raw); standing != "" {
		q = strings.TrimSpace("System instruction:\n" + standing + "\n\n" + q)
	}
	return q
}

func (s *Service) persist(ctx context.Context, req Request, question string, out ReplyResult) {
	if s.store == nil || req.UserID == "" || req.ChatID == "" {
		return
	}
	userText := question
	if len(req.Files) > 0 {
		names := make([]string, len(req.Files))
		for i, f := range req.Files {
			names[i] = f.Name
		}
		userText = strings.TrimSpace(fmt.Sprintf("%s\n[attached: %s]", question, strings.Join(names, ", ")))
	}
	err := s.store.AppendTurns(ctx, req.UserID, req.ChatID,
		store.Turn{Role: string(chat.RoleUser), Content: userText},
		store.Turn{Role: string(chat.RoleAssistant), Content: out.Reply, Model: out.ModelUsed},
	)
	if err != nil {
		log.Warn().Err(err).Str("chat_id", req.ChatID).Msg("orchestrator: persisting turns failed")
	}
}

func (s *Service) record(req Request, out ReplyResult, start time.Time, calls []dispatch.CallRecord, rm resolver.ResolvedModel) {
	latency := s.now().Sub(start)
	if s.metrics != nil {
		s.metrics.RecordRequest(out.Route, !out.Failed, latency)
	}
	if s.requests == nil {
		return
	}

	ev := monitoring.RequestEvent{
		RequestID:     out.RequestID,
		Timestamp:     start.UTC(),
		Transport:     req.Transport,
		ChatID:        req.ChatID,
		ModelKey:      rm.LogicalKey,
		Provider:      rm.Provider.String(),
		ModelUsed:     out.ModelUsed,
		Route:         out.Route,
		FileCount:     len(req.Files),
		ProviderCalls: len(calls),
		CostUSD:       out.CostUSD,
		LatencyMs:     latency.Milliseconds(),
		Success:       !out.Failed,
	}
	for _, c := range calls {
		ev.InputTokens += c.Usage.InputTokens
		ev.OutputTokens += c.Usage.OutputTokens
		if !c.OK {
			ev.FallbackState = "retried"
		}
	}
	if out.Failed {
		ev.FallbackState = string(dispatch.StateFailed)
		ev.Error = out.Reply
	}
	s.requests.Record(ev)
}

func costKey(req Request) string {
	switch {
	case req.ChatID != "":
		return "chat:" + req.ChatID
	case req.UserID != "":
		return "user:" + req.UserID
	}
	return "anonymous"
}

func normalizeStyle(style, def string) string {
	switch s := strings.ToLower(strings.TrimSpace(style)); s {
	case config.StyleSimple, config.StyleStructured:
		return s
	}
	if def == "" {
		return config.DefaultStyle
	}
	return def
}
