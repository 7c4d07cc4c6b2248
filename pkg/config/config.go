// Package config loads routegate configuration and wires the routing core
// from it.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/zen-systems/routegate/pkg/budget"
	"github.com/zen-systems/routegate/pkg/catalog"
	"github.com/zen-systems/routegate/pkg/logging"
	"github.com/zen-systems/routegate/pkg/router"
	"github.com/zen-systems/routegate/pkg/telemetry"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ROUTEGATE_"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Telemetry side channels.
const (
	WriterNone   = "none"
	WriterLog    = "log"
	WriterSQLite = "sqlite"
)

// Credential resolution modes.
const (
	CredentialsEnv    = "env"
	CredentialsStatic = "static"
	CredentialsAny    = "any"
)

// Config is the full routegate configuration.
type Config struct {
	Catalog     map[catalog.Category]catalog.Entry `yaml:"catalog" toml:"catalog"`
	Budgets     map[string]budget.Limit            `yaml:"budgets" toml:"budgets"`
	Pricing     router.CostModel                   `yaml:"pricing" toml:"pricing"`
	Breaker     BreakerConfig                      `yaml:"breaker" toml:"breaker" envPrefix:"BREAKER_"`
	Telemetry   TelemetryConfig                    `yaml:"telemetry" toml:"telemetry" envPrefix:"TELEMETRY_"`
	Credentials CredentialsConfig                  `yaml:"credentials" toml:"credentials" envPrefix:"CREDENTIALS_"`
	Server      ServerConfig                       `yaml:"server" toml:"server" envPrefix:"SERVER_"`
	Log         logging.Config                     `yaml:"log" toml:"log" envPrefix:"LOG_"`
}

// BreakerConfig configures the per-credential circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold" env:"FAILURE_THRESHOLD"`
	CooldownSeconds  int `yaml:"cooldown_seconds" toml:"cooldown_seconds" env:"COOLDOWN_SECONDS"`
}

// TelemetryConfig configures the event buffer and its side channel.
type TelemetryConfig struct {
	Capacity int    `yaml:"capacity" toml:"capacity" env:"CAPACITY"`
	Writer   string `yaml:"writer" toml:"writer" env:"WRITER"`
	Path     string `yaml:"path" toml:"path" env:"PATH"`
}

// CredentialsConfig controls how credential references are resolved.
// In env mode a reference names an environment variable that must be set.
type CredentialsConfig struct {
	Mode   string   `yaml:"mode" toml:"mode" env:"MODE"`
	Static []string `yaml:"static" toml:"static" env:"STATIC"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Listen string `yaml:"listen" toml:"listen" env:"LISTEN"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Catalog: catalog.DefaultEntries(),
		Breaker: BreakerConfig{
			FailureThreshold: 3,
			CooldownSeconds:  60,
		},
		Telemetry: TelemetryConfig{
			Capacity: telemetry.DefaultCapacity,
			Writer:   WriterNone,
		},
		Credentials: CredentialsConfig{Mode: CredentialsEnv},
		Server:      ServerConfig{Listen: ":8080"},
		Log:         logging.Config{Level: "info"},
	}
}

// applyDefaults fills fields a file may have zeroed.
func applyDefaults(cfg *Config) {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.DefaultEntries()
	}
	if cfg.Telemetry.Writer == "" {
		cfg.Telemetry.Writer = WriterNone
	}
	if cfg.Credentials.Mode == "" {
		cfg.Credentials.Mode = CredentialsEnv
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
}

// Validate reports every problem in cfg. Each error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Breaker.FailureThreshold < 1 {
		invalid("breaker.failure_threshold must be at least 1, got %d", c.Breaker.FailureThreshold)
	}
	if c.Breaker.CooldownSeconds < 1 {
		invalid("breaker.cooldown_seconds must be at least 1, got %d", c.Breaker.CooldownSeconds)
	}

	if c.Telemetry.Capacity < 1 {
		invalid("telemetry.capacity must be at least 1, got %d", c.Telemetry.Capacity)
	}
	switch c.Telemetry.Writer {
	case WriterNone, WriterLog:
	case WriterSQLite:
		if strings.TrimSpace(c.Telemetry.Path) == "" {
			invalid("telemetry.path is required for the sqlite writer")
		}
	default:
		invalid("telemetry.writer %q is not one of none, log, sqlite", c.Telemetry.Writer)
	}

	switch c.Credentials.Mode {
	case CredentialsEnv, CredentialsAny:
	case CredentialsStatic:
		if len(c.Credentials.Static) == 0 {
			invalid("credentials.static is required in static mode")
		}
	default:
		invalid("credentials.mode %q is not one of env, static, any", c.Credentials.Mode)
	}

	for cred, limit := range c.Budgets {
		if !finiteNonNegative(limit.SoftCapUSD) || !finiteNonNegative(limit.HardCapUSD) {
			invalid("budgets.%s caps must be finite and non-negative", cred)
			continue
		}
		if limit.SoftCapUSD > limit.HardCapUSD {
			invalid("budgets.%s soft cap %.4f exceeds hard cap %.4f", cred, limit.SoftCapUSD, limit.HardCapUSD)
		}
	}

	for cat, rate := range c.Pricing {
		if rate.ExpectedTokens < 0 || !finiteNonNegative(rate.USDPer1K) {
			invalid("pricing.%s must have non-negative tokens and price", cat)
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level, c.Log.Development); err != nil {
		invalid("log.level: %v", err)
	}

	// Structure only; credential resolution is checked separately.
	if err := catalog.New(c.Catalog, catalog.AllowAll).Validate(); err != nil {
		invalid("catalog: %v", err)
	}

	return errors.Join(errs...)
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
