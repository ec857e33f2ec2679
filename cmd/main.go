// Package main is the gaia command: the chat gateway server plus one-shot
// and catalog utilities sharing its configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaia-chat/gaia-gateway/internal/config"
	"github.com/gaia-chat/gaia-gateway/internal/telemetry"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorRed+"Error:"+colorReset, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "gaia",
		Short:         "GAIA chat gateway",
		Long:          "GAIA routes chat questions and attached files to LLM providers with cost-aware fallback.",
		Version:       telemetry.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", os.Getenv("GAIA_CONFIG"), "path to the YAML config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "override logging.format (json|console)")

	root.AddCommand(newServeCmd(flags), newAskCmd(flags), newModelsCmd(flags))
	return root
}

// load reads the configuration and sets up logging from it.
func (f *rootFlags) load() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Logging.Format = f.logFormat
	}
	setupLogging(cfg.Logging)
	return cfg, nil
}
