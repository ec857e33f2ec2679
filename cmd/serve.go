package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gaia-chat/gaia-gateway/internal/gateway"
	"github.com/gaia-chat/gaia-gateway/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry)
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					log.Warn().Err(err).Msg("telemetry: shutdown failed")
				}
			}()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			gw := gateway.New(cfg, gateway.Deps{
				Service:  a.service,
				Catalog:  a.catalog,
				Store:    a.store,
				Costs:    a.costs,
				Metrics:  a.metrics,
				Savings:  a.savings,
				Requests: a.requests,
			})

			errCh := make(chan error, 1)
			go func() { errCh <- gw.Start() }()
			log.Info().Int("port", cfg.Server.Port).Str("version", telemetry.Version).Msg("gaia: gateway listening")

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return gw.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	return cmd
}
