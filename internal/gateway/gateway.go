// Package gateway - gateway.go builds the HTTP surface of the chat gateway.
//
// DESIGN: One chi router, one middleware chain, one orchestrator. Every
// answering route (JSON, multipart, SSE, websocket) decodes into an
// orchestrator.Request and renders the same ReplyResult:
//
//	POST /ask              JSON or multipart with files[]
//	GET  /ask/stream       SSE start/delta/done
//	GET  /ask/ws           websocket, same events as JSON frames
//	GET  /models/versions  catalog listing, ?force=1 refreshes
//	GET  /chats[/{id}]     persisted chats for X-User-Id
//	GET  /health, /metrics
//	GET  /stats, /costs, /dashboard   loopback only
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/gaia-chat/gaia-gateway/internal/catalog"
	"github.com/gaia-chat/gaia-gateway/internal/config"
	"github.com/gaia-chat/gaia-gateway/internal/costcontrol"
	"github.com/gaia-chat/gaia-gateway/internal/monitoring"
	"github.com/gaia-chat/gaia-gateway/internal/orchestrator"
	"github.com/gaia-chat/gaia-gateway/internal/store"
)

// Deps are the collaborators served by the gateway. Service is required.
type Deps struct {
	Service  *orchestrator.Service
	Catalog  *catalog.Cache
	Store    store.Store
	Costs    *costcontrol.Tracker
	Metrics  *monitoring.MetricsCollector
	Savings  *monitoring.SavingsTracker
	Requests *monitoring.RequestLog
}

// Gateway is the HTTP server.
type Gateway struct {
	cfg      *config.Config
	svc      *orchestrator.Service
	catalog  *catalog.Cache
	store    store.Store
	costs    *costcontrol.Tracker
	metrics  *monitoring.MetricsCollector
	savings  *monitoring.SavingsTracker
	requests *monitoring.RequestLog

	// maxUploadBytes bounds a whole multipart request body.
	maxUploadBytes int64

	handler http.Handler
	server  *http.Server
}

// New creates a gateway. Missing optional collaborators are replaced with
// empty in-memory ones so every route stays servable.
func New(cfg *config.Config, d Deps) *Gateway {
	g := &Gateway{
		cfg:      cfg,
		svc:      d.Service,
		catalog:  d.Catalog,
		store:    d.Store,
		costs:    d.Costs,
		metrics:  d.Metrics,
		savings:  d.Savings,
		requests: d.Requests,

		maxUploadBytes: config.MaxRequestBodySize,
	}
	if g.store == nil {
		g.store = store.Noop{}
	}
	if g.costs == nil {
		g.costs = costcontrol.NewTracker(cfg.CostControl, 0)
	}
	if g.metrics == nil {
		g.metrics = monitoring.NewMetricsCollector()
	}
	if g.savings == nil {
		g.savings = monitoring.NewSavingsTracker()
	}
	g.handler = g.routes()
	g.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           g.handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return g
}

// Handler returns the HTTP handler with all middleware applied.
func (g *Gateway) Handler() http.Handler { return g.handler }

func (g *Gateway) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)
	r.Use(telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins(g.cfg.Server.CORSOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-Id", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", g.handleHealth)
	r.Method(http.MethodGet, "/metrics", g.metrics.Handler())

	r.Route("/ask", func(r chi.Router) {
		r.Post("/", g.handleAsk)
		r.Get("/stream", g.handleStream)
		r.Get("/ws", g.handleWebsocket)
	})

	r.Get("/models/versions", g.handleVersions)

	r.Route("/chats", func(r chi.Router) {
		r.Get("/", g.handleListChats)
		r.Get("/{chatID}", g.handleGetChat)
	})

	r.Group(func(r chi.Router) {
		r.Use(loopbackOnly)
		r.Get("/stats", g.handleStats)
		r.Get("/costs", g.costs.HandleCosts)
		r.Get("/dashboard", g.handleDashboard)
	})

	return r
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start listens on the configured port and blocks until the server stops.
func (g *Gateway) Start() error {
	logStartup(g.cfg)

	err := g.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (g *Gateway) Shutdown(ctx context.Context) error {
	log.Info().Msg("gateway: shutting down")
	return g.server.Shutdown(ctx)
}
