package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zen-systems/routegate/pkg/catalog"
	"github.com/zen-systems/routegate/pkg/dispatch"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config, credential references and providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			resolver, err := cfg.Credentials.Resolver(nil)
			if err != nil {
				return err
			}
			if err := catalog.New(cfg.Catalog, resolver).Validate(); err != nil {
				return fmt.Errorf("catalog: %w", err)
			}
			if err := dispatch.CheckCatalog(cfg.Catalog); err != nil {
				return fmt.Errorf("catalog: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
			return nil
		},
	}
}
