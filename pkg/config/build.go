package config

import (
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/zen-systems/routegate/pkg/breaker"
	"github.com/zen-systems/routegate/pkg/budget"
	"github.com/zen-systems/routegate/pkg/catalog"
	"github.com/zen-systems/routegate/pkg/dispatch"
	"github.com/zen-systems/routegate/pkg/router"
	"github.com/zen-systems/routegate/pkg/telemetry"
)

// Runtime is the wired routing core.
type Runtime struct {
	Catalog  *catalog.Catalog
	Ledger   *budget.Ledger
	Breaker  *breaker.Breaker
	Sink     *telemetry.Sink
	Router   *router.Router
	Recorder *dispatch.Recorder

	// Archive is set when telemetry is mirrored to SQLite.
	Archive *telemetry.SQLiteWriter
	Logger  *zap.Logger
}

// BuildOption adjusts wiring.
type BuildOption func(*buildOptions)

type buildOptions struct {
	lookup        func(string) (string, bool)
	meterProvider metric.MeterProvider
	now           func() time.Time
}

// WithLookupEnv overrides how env-mode credential references are resolved.
func WithLookupEnv(lookup func(string) (string, bool)) BuildOption {
	return func(o *buildOptions) { o.lookup = lookup }
}

// WithMeterProvider sets the meter provider for routing metrics.
func WithMeterProvider(provider metric.MeterProvider) BuildOption {
	return func(o *buildOptions) { o.meterProvider = provider }
}

// WithClock sets the clock shared by the breaker, sink and router.
func WithClock(now func() time.Time) BuildOption {
	return func(o *buildOptions) { o.now = now }
}

// Resolver returns the credential resolver selected by the config.
func (c CredentialsConfig) Resolver(lookup func(string) (string, bool)) (catalog.Resolver, error) {
	switch c.Mode {
	case CredentialsEnv, "":
		if lookup == nil {
			lookup = os.LookupEnv
		}
		return catalog.EnvResolver{Lookup: lookup}, nil
	case CredentialsStatic:
		return catalog.NewStaticResolver(c.Static...), nil
	case CredentialsAny:
		return catalog.AllowAll, nil
	default:
		return nil, fmt.Errorf("%w: credentials.mode %q", ErrInvalidConfig, c.Mode)
	}
}

// Build wires the routing core from cfg. Catalog entries whose credentials
// do not resolve are logged, not rejected: routing to them fails at call
// time with catalog.ErrUnresolvedCredential.
func Build(cfg *Config, logger *zap.Logger, opts ...BuildOption) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := buildOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	resolver, err := cfg.Credentials.Resolver(o.lookup)
	if err != nil {
		return nil, err
	}
	cat := catalog.New(cfg.Catalog, resolver)
	if err := cat.Validate(); err != nil {
		logger.Warn("catalog has unusable entries", zap.Error(err))
	}

	ledger := budget.NewLedger(cfg.Budgets, budget.WithLogger(logger.Named("budget")))
	brk := breaker.New(
		cfg.Breaker.FailureThreshold,
		time.Duration(cfg.Breaker.CooldownSeconds)*time.Second,
		breaker.WithClock(o.now),
		breaker.WithLogger(logger.Named("breaker")),
	)

	rt := &Runtime{
		Catalog:  cat,
		Ledger:   ledger,
		Breaker:  brk,
		Recorder: dispatch.NewRecorder(brk, dispatch.WithRecorderLogger(logger.Named("dispatch"))),
		Logger:   logger,
	}

	sinkOpts := []telemetry.Option{
		telemetry.WithClock(o.now),
		telemetry.WithLogger(logger.Named("telemetry")),
	}
	switch cfg.Telemetry.Writer {
	case WriterLog:
		sinkOpts = append(sinkOpts, telemetry.WithWriter(telemetry.NewLogWriter(logger.Named("telemetry"))))
	case WriterSQLite:
		archive, err := telemetry.OpenSQLite(cfg.Telemetry.Path)
		if err != nil {
			return nil, fmt.Errorf("open telemetry archive: %w", err)
		}
		rt.Archive = archive
		sinkOpts = append(sinkOpts, telemetry.WithWriter(archive))
	}
	rt.Sink = telemetry.NewSink(cfg.Telemetry.Capacity, sinkOpts...)

	rtr, err := router.New(cat, ledger, brk, rt.Sink,
		router.WithCostModel(router.DefaultCostModel().Merge(cfg.Pricing)),
		router.WithLogger(logger.Named("router")),
		router.WithMeterProvider(o.meterProvider),
		router.WithClock(o.now),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Router = rtr
	return rt, nil
}

// Close releases the telemetry archive, if any.
func (r *Runtime) Close() error {
	if r.Archive != nil {
		return r.Archive.Close()
	}
	return nil
}
