// Package router turns a task description into an ordered, admitted set of
// provider calls. It composes the catalog, the circuit breaker, the budget
// ledger, and the telemetry sink, and owns none of their state.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/zen-systems/routegate/pkg/budget"
	"github.com/zen-systems/routegate/pkg/catalog"
	"github.com/zen-systems/routegate/pkg/telemetry"
)

// ErrMissingDependency is returned by New when a required collaborator is nil.
var ErrMissingDependency = errors.New("router: missing dependency")

// Catalog builds call specifications for categories.
type Catalog interface {
	Build(category catalog.Category, subkey string) (*catalog.CallSpec, error)
	Fallbacks(category catalog.Category) ([]*catalog.CallSpec, error)
}

// Ledger admits spend against credentials.
type Ledger interface {
	CheckAndReserve(credential string, estimatedCostUSD float64) budget.Decision
}

// HealthGate reports credentials that must not be used.
type HealthGate interface {
	IsOpen(credential string) bool
}

// EventSink receives the telemetry of one routing call as a single batch.
type EventSink interface {
	EmitBatch(events ...telemetry.Event)
}

type closedGate struct{}

func (closedGate) IsOpen(string) bool { return false }

type discardSink struct{}

func (discardSink) EmitBatch(...telemetry.Event) {}

// Router selects and admits calls. It holds no mutable state of its own and
// is safe for concurrent use.
type Router struct {
	catalog Catalog
	ledger  Ledger
	health  HealthGate
	sink    EventSink

	rules         *RuleSet
	costs         CostModel
	logger        *zap.Logger
	meterProvider metric.MeterProvider
	metrics       *metrics
	now           func() time.Time
	newID         func() string
}

// Option configures a Router.
type Option func(*Router)

// WithRules replaces the default category rules.
func WithRules(rules *RuleSet) Option {
	return func(r *Router) {
		if rules != nil {
			r.rules = rules
		}
	}
}

// WithCostModel replaces the default cost model.
func WithCostModel(costs CostModel) Option {
	return func(r *Router) {
		if costs != nil {
			r.costs = costs
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMeterProvider sets the meter provider used for routing counters.
// The global provider is used otherwise.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(r *Router) {
		r.meterProvider = provider
	}
}

// WithClock overrides the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides route and event ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(r *Router) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// New creates a router. The catalog and ledger are required; a nil health
// gate treats every credential as healthy and a nil sink drops telemetry.
func New(cat Catalog, ledger Ledger, health HealthGate, sink EventSink, opts ...Option) (*Router, error) {
	if cat == nil {
		return nil, fmt.Errorf("%w: catalog", ErrMissingDependency)
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: ledger", ErrMissingDependency)
	}
	if health == nil {
		health = closedGate{}
	}
	if sink == nil {
		sink = discardSink{}
	}

	r := &Router{
		catalog: cat,
		ledger:  ledger,
		health:  health,
		sink:    sink,
		rules:   DefaultRules(),
		costs:   DefaultCostModel(),
		logger:  zap.NewNop(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}

	m, err := newMetrics(r.meterProvider)
	if err != nil {
		r.logger.Warn("router metrics disabled", zap.Error(err))
		m = noopMetrics()
	}
	r.metrics = m
	return r, nil
}

// Select reports the category a task would be routed to without admitting anything.
func (r *Router) Select(task TaskSpec) Selection {
	return r.rules.Select(task)
}

// Rules returns the router's rule set.
func (r *Router) Rules() *RuleSet { return r.rules }

// CostModel returns the router's cost model.
func (r *Router) CostModel() CostModel { return r.costs }

// Route selects a category for task, builds the primary and fallback calls,
// and admits each candidate in order. Catalog errors are returned unchanged
// in meaning and nothing is reserved or emitted.
//
// A blocked primary does not fail the call: the returned route carries the
// blocked decision so the caller can decide what to do.
func (r *Router) Route(ctx context.Context, task TaskSpec) (*SelectedRoute, error) {
	sel := r.rules.Select(task)

	primary, err := r.catalog.Build(sel.Category, sel.Subkey)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", sel.Category, err)
	}
	fallbacks, err := r.catalog.Fallbacks(sel.Category)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", sel.Category, err)
	}

	candidates := dedupe(append([]*catalog.CallSpec{primary}, fallbacks...))
	cost := r.costs.Estimate(sel.Category, task)
	routeID := r.newID()
	ts := r.now()
	category := string(sel.Category)

	events := make([]telemetry.Event, 0, len(candidates)+1)
	admitted := make([]*catalog.CallSpec, 0, len(candidates))
	for i, c := range candidates {
		c.Decision, c.SelectedCredential = r.admit(c, cost)
		if c.Decision.Admitted() {
			admitted = append(admitted, c)
		}

		events = append(events, telemetry.Event{
			ID:               r.newID(),
			TraceID:          routeID,
			Kind:             telemetry.KindRouteCandidate,
			Category:         category,
			Subkey:           sel.Subkey,
			Order:            i,
			ProviderModel:    c.ProviderModel,
			Decision:         string(c.Decision),
			Credential:       c.SelectedCredential,
			EstimatedCostUSD: cost,
			Timestamp:        ts,
		})
		r.metrics.candidate(ctx, category, string(c.Decision))
		r.logger.Debug("candidate evaluated",
			zap.String("route_id", routeID),
			zap.Int("order", i),
			zap.String("provider_model", c.ProviderModel),
			zap.String("decision", string(c.Decision)),
			zap.String("credential", c.SelectedCredential),
		)
	}

	route := &SelectedRoute{
		ID:               routeID,
		Category:         sel.Category,
		Subkey:           sel.Subkey,
		Rule:             sel.Rule,
		EstimatedCostUSD: cost,
		Primary:          candidates[0],
		Fallbacks:        []*catalog.CallSpec{},
	}
	if len(admitted) > 0 {
		route.Primary = admitted[0]
		route.Fallbacks = admitted[1:]
	} else {
		r.logger.Warn("no candidate admitted",
			zap.String("route_id", routeID),
			zap.String("category", category),
			zap.Int("candidates", len(candidates)),
		)
	}

	events = append(events, telemetry.Event{
		ID:               r.newID(),
		TraceID:          routeID,
		Kind:             telemetry.KindRouteDecision,
		Category:         category,
		Subkey:           sel.Subkey,
		Order:            len(candidates),
		ProviderModel:    route.Primary.ProviderModel,
		Decision:         string(route.Primary.Decision),
		Credential:       route.Primary.SelectedCredential,
		EstimatedCostUSD: cost,
		FallbackCount:    len(route.Fallbacks),
		Timestamp:        ts,
	})
	r.sink.EmitBatch(events...)
	r.metrics.decision(ctx, category, string(route.Primary.Decision))

	r.logger.Debug("routed task",
		zap.String("route_id", routeID),
		zap.String("task_type", task.TaskType),
		zap.String("rule", sel.Rule),
		zap.String("category", category),
		zap.String("subkey", sel.Subkey),
		zap.String("primary", route.Primary.ProviderModel),
		zap.String("decision", string(route.Primary.Decision)),
		zap.Int("fallbacks", len(route.Fallbacks)),
		zap.Float64("estimated_cost_usd", cost),
	)
	return route, nil
}

// admit walks the candidate's credentials in order. Open circuits are
// skipped without touching the ledger; the first credential the ledger does
// not block wins.
func (r *Router) admit(c *catalog.CallSpec, cost float64) (budget.Decision, string) {
	for _, cred := range c.CredentialRefs {
		if r.health.IsOpen(cred) {
			r.logger.Debug("credential circuit open",
				zap.String("credential", cred),
				zap.String("provider_model", c.ProviderModel),
			)
			continue
		}
		if d := r.ledger.CheckAndReserve(cred, cost); d.Admitted() {
			return d, cred
		}
	}
	return budget.DecisionBlocked, ""
}

// dedupe drops candidates whose provider model already appeared earlier.
func dedupe(candidates []*catalog.CallSpec) []*catalog.CallSpec {
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		key := c.Provider + "/" + c.ProviderModel
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
