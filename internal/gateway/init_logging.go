package gateway

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/gaia-chat/gaia-gateway/internal/config"
	"github.com/gaia-chat/gaia-gateway/internal/utils"
)

// logStartup logs the effective configuration once at boot. API keys are
// masked.
func logStartup(cfg *config.Config) {
	o := cfg.Orchestration
	log.Info().
		Int("port", cfg.Server.Port).
		Dur("read_timeout", cfg.Server.ReadTimeout).
		Dur("write_timeout", cfg.Server.WriteTimeout).
		Str("default_model", o.DefaultModel).
		Str("default_style", o.DefaultStyle).
		Str("token_estimator", o.TokenEstimator).
		Int("elm_threshold", o.ELMThreshold).
		Int("text_threshold", o.TextThreshold).
		Str("store", cfg.Store.Driver).
		Bool("telemetry", cfg.Telemetry.Enabled).
		Bool("cost_control", cfg.CostControl.Enabled).
		Msg("gateway_init")

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := cfg.Provider(name)
		log.Info().
			Str("provider", name).
			Str("endpoint", p.Endpoint).
			Str("api_key", utils.MaskKey(p.APIKey)).
			Dur("timeout", p.Timeout).
			Msg("gateway_init: provider")
	}
}
