package main

import (
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gaia-chat/gaia-gateway/internal/providers"
)

func newModelsCmd(flags *rootFlags) *cobra.Command {
	var (
		keys    string
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Print the model version catalog as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			cache, err := newCatalog(cfg, providers.FromConfig(cfg))
			if err != nil {
				return err
			}

			var selected []string
			for _, k := range strings.Split(keys, ",") {
				if k = strings.TrimSpace(k); k != "" {
					selected = append(selected, k)
				}
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cache.List(cmd.Context(), selected, refresh)); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVarP(&keys, "keys", "k", "", "comma-separated logical keys (default all)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refresh entries from the providers first")
	return cmd
}
