package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zen-systems/routegate/pkg/config"
	"github.com/zen-systems/routegate/pkg/logging"
)

var (
	configFile string
	logLevel   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "routegate",
		Short: "Admission control and routing decisions for LLM provider calls",
		Long: `Routegate picks a provider model for a task, checks each candidate's
credentials against circuit breakers and spend caps, and records every
decision as telemetry.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML or TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(explainCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(telemetryCmd())
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// loadRuntime loads config, builds the logger, and wires the routing core.
func loadRuntime() (*config.Config, *config.Runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	rt, err := config.Build(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rt, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
