package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/gaia-chat/gaia-gateway/internal/catalog"
	"github.com/gaia-chat/gaia-gateway/internal/config"
	"github.com/gaia-chat/gaia-gateway/internal/costcontrol"
	"github.com/gaia-chat/gaia-gateway/internal/dispatch"
	"github.com/gaia-chat/gaia-gateway/internal/ingest"
	"github.com/gaia-chat/gaia-gateway/internal/monitoring"
	"github.com/gaia-chat/gaia-gateway/internal/orchestrator"
	"github.com/gaia-chat/gaia-gateway/internal/providers"
	"github.com/gaia-chat/gaia-gateway/internal/resolver"
	"github.com/gaia-chat/gaia-gateway/internal/store"
	"github.com/gaia-chat/gaia-gateway/internal/tokens"
)

const costSweepInterval = 5 * time.Minute

// app holds every long-lived collaborator built from the config.
type app struct {
	cfg      *config.Config
	registry *providers.Registry
	catalog  *catalog.Cache
	store    store.Store
	costs    *costcontrol.Tracker
	metrics  *monitoring.MetricsCollector
	savings  *monitoring.SavingsTracker
	requests *monitoring.RequestLog
	service  *orchestrator.Service
	warmer   *cron.Cron
}

// newApp wires the orchestrator and its collaborators. Background work
// (cost sweeps, catalog warm-up) runs until ctx is done.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		registry: providers.FromConfig(cfg),
		metrics:  monitoring.NewMetricsCollector(),
		savings:  monitoring.NewSavingsTracker(),
		costs:    costcontrol.NewTracker(cfg.CostControl, 0),
	}

	cache, err := newCatalog(cfg, a.registry)
	if err != nil {
		return nil, err
	}
	a.catalog = cache

	a.requests, err = monitoring.NewRequestLog(cfg.Monitoring.RequestLogPath)
	if err != nil {
		return nil, fmt.Errorf("open request log: %w", err)
	}

	a.store, err = store.New(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open chat store: %w", err)
	}

	a.service = orchestrator.New(cfg.Orchestration, orchestrator.Deps{
		Resolver:  resolver.New(cache),
		Engine:    dispatch.NewEngine(a.registry, resolver.StaticFallback, a.metrics),
		Estimator: tokens.New(cfg.Orchestration.TokenEstimator),
		Opener:    ingest.OpenSQLite,
		Store:     a.store,
		Costs:     a.costs,
		Metrics:   a.metrics,
		Savings:   a.savings,
		Requests:  a.requests,
	})

	go a.costs.Run(ctx, costSweepInterval)

	if schedule := cfg.Catalog.WarmSchedule; schedule != "" {
		a.warmer, err = cache.StartWarmer(ctx, schedule)
		if err != nil {
			_ = a.store.Close()
			return nil, fmt.Errorf("catalog warm_schedule %q: %w", schedule, err)
		}
	}
	return a, nil
}

// newCatalog loads catalog.file (or the built-in catalog) and refreshes
// entries from the providers' model listings.
func newCatalog(cfg *config.Config, registry *providers.Registry) (*catalog.Cache, error) {
	var (
		entries map[string]catalog.Entry
		err     error
	)
	if file := cfg.Catalog.File; file != "" {
		entries, err = catalog.LoadFile(file)
	} else {
		entries, err = catalog.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	refresh := func(ctx context.Context, provider string) ([]string, error) {
		return registry.ListModels(ctx, providers.FromString(provider))
	}
	return catalog.NewCache(entries,
		catalog.WithRefresh(refresh),
		catalog.WithInterval(cfg.Catalog.RefreshInterval),
		catalog.WithMaxVersions(cfg.Catalog.MaxVersions),
	), nil
}

// Close releases the store and stops the warm-up scheduler.
func (a *app) Close() error {
	if a.warmer != nil {
		<-a.warmer.Stop().Done()
	}
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Msg("gaia: shutdown incomplete")
		return err
	}
	return nil
}
