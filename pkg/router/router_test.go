package router

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/zen-systems/routegate/pkg/breaker"
	"github.com/zen-systems/routegate/pkg/budget"
	"github.com/zen-systems/routegate/pkg/catalog"
	"github.com/zen-systems/routegate/pkg/telemetry"
)

type harness struct {
	router  *Router
	ledger  *budget.Ledger
	breaker *breaker.Breaker
	sink    *telemetry.Sink
}

func newHarness(t *testing.T, entries map[catalog.Category]catalog.Entry, limits map[string]budget.Limit, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		ledger:  budget.NewLedger(limits),
		breaker: breaker.New(3, time.Minute),
		sink:    telemetry.NewSink(256),
	}
	r, err := New(catalog.New(entries, nil), h.ledger, h.breaker, h.sink, opts...)
	require.NoError(t, err)
	h.router = r
	return h
}

// flatCost makes every category cost exactly usd.
func flatCost(usd float64) CostModel {
	m := CostModel{}
	for _, cat := range []catalog.Category{
		catalog.CategoryFastOperations, catalog.CategoryAdvancedContext, catalog.CategorySpecialized,
		catalog.CategoryCoding, catalog.CategoryReasoning, catalog.CategoryGeneral,
	} {
		m[cat] = Rate{ExpectedTokens: 1000, USDPer1K: usd}
	}
	return m
}

func TestRouteFallsThroughBlockedPrimary(t *testing.T) {
	entries := map[catalog.Category]catalog.Entry{
		catalog.CategoryGeneral: {
			Provider:    "anthropic",
			Model:       "G",
			Credentials: []string{"cred_g"},
			Fallbacks: []catalog.Template{
				{Provider: "openai", Model: "Z", Credentials: []string{"cred_z"}},
			},
		},
	}
	h := newHarness(t, entries, map[string]budget.Limit{
		"cred_g": {SoftCapUSD: 1.00, HardCapUSD: 1.00},
	}, WithCostModel(flatCost(0.10)))
	require.Equal(t, budget.DecisionAllow, h.ledger.CheckAndReserve("cred_g", 0.95))

	route, err := h.router.Route(context.Background(), TaskSpec{TaskType: "chat"})
	require.NoError(t, err)

	assert.Equal(t, "Z", route.Primary.ProviderModel)
	assert.Equal(t, budget.DecisionAllow, route.Primary.Decision)
	assert.Equal(t, "cred_z", route.Primary.SelectedCredential)
	assert.Empty(t, route.Fallbacks)
	assert.InDelta(t, 0.95, h.ledger.Usage("cred_g"), 1e-9, "blocked reservation does not increment")
	assert.InDelta(t, 0.10, h.ledger.Usage("cred_z"), 1e-9)
}

func TestRouteCodingHasSecondary(t *testing.T) {
	h := newHarness(t, catalog.DefaultEntries(), nil)

	route, err := h.router.Route(context.Background(), TaskSpec{TaskType: "code_generation"})
	require.NoError(t, err)

	assert.Equal(t, catalog.CategoryCoding, route.Category)
	assert.Equal(t, "claude-sonnet-4-20250514", route.Primary.ProviderModel)
	require.Len(t, route.Fallbacks, 1)
	assert.Equal(t, "gpt-5.2-codex", route.Fallbacks[0].ProviderModel)
	assert.Equal(t, budget.DecisionAllow, route.Fallbacks[0].Decision)
}

func TestRouteCreativeHasNoFallbacks(t *testing.T) {
	h := newHarness(t, catalog.DefaultEntries(), nil)

	route, err := h.router.Route(context.Background(), TaskSpec{TaskType: "creative", Creative: true})
	require.NoError(t, err)

	assert.Equal(t, catalog.CategorySpecialized, route.Category)
	assert.Equal(t, catalog.SubkeyMaverick, route.Subkey)
	assert.Equal(t, "claude-opus-4-20250514", route.Primary.ProviderModel)
	assert.NotNil(t, route.Fallbacks)
	assert.Empty(t, route.Fallbacks)
}

func TestRouteReasoningChainOrder(t *testing.T) {
	h := newHarness(t, catalog.DefaultEntries(), nil)

	route, err := h.router.Route(context.Background(), TaskSpec{TaskType: "analysis"})
	require.NoError(t, err)

	assert.Equal(t, "claude-opus-4-20250514", route.Primary.ProviderModel)
	require.Len(t, route.Fallbacks, 2)
	assert.Equal(t, "gpt-5.2-pro", route.Fallbacks[0].ProviderModel)
	assert.Equal(t, "deepseek-reasoner", route.Fallbacks[1].ProviderModel)
}

func TestRouteSkipsOpenCircuit(t *testing.T) {
	h := newHarness(t, catalog.DefaultEntries(), nil)
	for i := 0; i < 3; i++ {
		h.breaker.OnError(catalog.CredentialAnthropic)
	}
	require.True(t, h.breaker.IsOpen(catalog.CredentialAnthropic))

	route, err := h.router.Route(context.Background(), TaskSpec{TaskType: "refactor"})
	require.NoError(t, err)

	assert.Equal(t, "gpt-5.2-codex", route.Primary.ProviderModel)
	assert.Equal(t, catalog.CredentialOpenAI, route.Primary.SelectedCredential)
	assert.Empty(t, route.Fallbacks)
	assert.Zero(t, h.ledger.Usage(catalog.CredentialAnthropic), "open circuit never reaches the ledger")
}

func TestRouteTriesCredentialsInOrder(t *testing.T) {
	entries := map[catalog.Category]catalog.Entry{
		catalog.CategoryGeneral: {
			Provider:    "anthropic",
			Model:       "G",
			Credentials: []string{"primary_key", "overflow_key"},
		},
	}
	h := newHarness(t, entries, map[string]budget.Limit{
		"primary_key": {SoftCapUSD: 0.5, HardCapUSD: 0.5},
	}, WithCostModel(flatCost(1)))

	route, err := h.router.Route(context.Background(), TaskSpec{})
	require.NoError(t, err)
	assert.Equal(t, "overflow_key", route.Primary.SelectedCredential)
	assert.Equal(t, budget.DecisionAllow, route.Primary.Decision)
}

func TestRouteSoftCapIsAdmitted(t *testing.T) {
	h := newHarness(t, catalog.DefaultEntries(), map[string]budget.Limit{
		catalog.CredentialAnthropic: {SoftCapUSD: 0.5, HardCapUSD: 5},
	}, WithCostModel(flatCost(1)))

	route, err := h.router.Route(context.Background(), TaskSpec{})
	require.NoError(t, err)
	assert.Equal(t, budget.DecisionSoftCap, route.Primary.Decision)
	assert.True(t, route.Admitted())
}

func TestRouteAllBlocked(t *testing.T) {
	h := newHarness(t, catalog.DefaultEntries(), map[string]budget.Limit{
		catalog.CredentialAnthropic: {HardCapUSD: 0},
		catalog.CredentialOpenAI:    {HardCapUSD: 0},
	})

	route, err := h.router.Route(context.Background(), TaskSpec{TaskType: "chat"})
	require.NoError(t, err)

	assert.False(t, route.Admitted())
	assert.Equal(t, "claude-sonnet-4-20250514", route.Primary.ProviderModel)
	assert.Equal(t, budget.DecisionBlocked, route.Primary.Decision)
	assert.Empty(t, route.Primary.SelectedCredential)
	assert.Empty(t, route.Fallbacks)

	events := h.sink.Snapshot()
	require.Len(t, events, 3)
	last := events[2]
	assert.Equal(t, telemetry.KindRouteDecision, last.Kind)
	assert.Equal(t, string(budget.DecisionBlocked), last.Decision)
}

func TestRouteCatalogErrorsPropagate(t *testing.T) {
	tests := []struct {
		name    string
		entries map[catalog.Category]catalog.Entry
		want    error
	}{
		{
			name:    "missing category",
			entries: map[catalog.Category]catalog.Entry{},
			want:    catalog.ErrUnknownCategory,
		},
		{
			name: "too many fallbacks",
			entries: map[catalog.Category]catalog.Entry{
				catalog.CategoryGeneral: {
					Provider: "anthropic", Model: "G", Credentials: []string{"k"},
					Fallbacks: []catalog.Template{{Provider: "openai", Model: "A"}, {Provider: "openai", Model: "B"}},
				},
			},
			want: catalog.ErrInvalidFallbacks,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.entries, nil)
			route, err := h.router.Route(context.Background(), TaskSpec{})
			assert.Nil(t, route)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, h.sink.Len(), "nothing emitted")
			assert.Zero(t, h.ledger.Usage("k"), "nothing reserved")
		})
	}
}

func TestRouteUnresolvedCredential(t *testing.T) {
	ledger := budget.NewLedger(nil)
	r, err := New(catalog.Default(catalog.NewStaticResolver(catalog.CredentialOpenAI)), ledger, nil, nil)
	require.NoError(t, err)

	_, err = r.Route(context.Background(), TaskSpec{TaskType: "chat"})
	assert.ErrorIs(t, err, catalog.ErrUnresolvedCredential)
}

func TestRouteDropsDuplicateModels(t *testing.T) {
	entries := map[catalog.Category]catalog.Entry{
		catalog.CategoryReasoning: {
			Provider: "anthropic", Model: "A", Credentials: []string{"k"},
			Fallbacks: []catalog.Template{
				{Provider: "anthropic", Model: "A"},
				{Provider: "openai", Model: "B"},
				{Provider: "openai", Model: "B"},
			},
		},
	}
	h := newHarness(t, entries, nil, WithCostModel(flatCost(1)))

	route, err := h.router.Route(context.Background(), TaskSpec{TaskType: "analysis"})
	require.NoError(t, err)
	require.Len(t, route.Fallbacks, 1)
	assert.Equal(t, "B", route.Fallbacks[0].ProviderModel)
	assert.InDelta(t, 2.0, h.ledger.Usage("k"), 1e-9, "one reservation per distinct candidate")
	assert.Len(t, h.sink.Snapshot(), 3)
}

func TestRouteTelemetry(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	ids := func() string { n++; return fmt.Sprintf("id-%d", n) }
	h := newHarness(t, catalog.DefaultEntries(), nil,
		WithClock(func() time.Time { return ts }),
		WithIDGenerator(ids),
	)

	route, err := h.router.Route(context.Background(), TaskSpec{TaskType: "architecture"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", route.ID)

	events := h.sink.Snapshot()
	require.Len(t, events, 4)
	for i, e := range events[:3] {
		assert.Equal(t, telemetry.KindRouteCandidate, e.Kind)
		assert.Equal(t, i, e.Order)
		assert.Equal(t, route.ID, e.TraceID)
		assert.Equal(t, "reasoning", e.Category)
		assert.Equal(t, "allow", e.Decision)
		assert.Equal(t, ts, e.Timestamp)
		assert.InDelta(t, route.EstimatedCostUSD, e.EstimatedCostUSD, 1e-12)
	}
	assert.Equal(t, "claude-opus-4-20250514", events[0].ProviderModel)
	assert.Equal(t, "gpt-5.2-pro", events[1].ProviderModel)
	assert.Equal(t, "deepseek-reasoner", events[2].ProviderModel)

	decision := events[3]
	assert.Equal(t, telemetry.KindRouteDecision, decision.Kind)
	assert.Equal(t, route.ID, decision.TraceID)
	assert.Equal(t, route.Primary.ProviderModel, decision.ProviderModel)
	assert.Equal(t, catalog.CredentialAnthropic, decision.Credential)
	assert.Equal(t, 2, decision.FallbackCount)

	seen := map[string]bool{}
	for _, e := range events {
		assert.False(t, seen[e.ID], "event ids are unique")
		seen[e.ID] = true
	}
}

func TestRouteAdmittedSetsDisjoint(t *testing.T) {
	h := newHarness(t, catalog.DefaultEntries(), nil)

	route, err := h.router.Route(context.Background(), TaskSpec{TaskType: "decision"})
	require.NoError(t, err)

	models := map[string]bool{route.Primary.ProviderModel: true}
	for _, fb := range route.Fallbacks {
		assert.False(t, models[fb.ProviderModel], "fallback repeats %s", fb.ProviderModel)
		models[fb.ProviderModel] = true
		assert.True(t, fb.Decision.Admitted())
		assert.NotEmpty(t, fb.SelectedCredential)
	}
}

func TestRouteConcurrentHardCap(t *testing.T) {
	entries := map[catalog.Category]catalog.Entry{
		catalog.CategoryGeneral: {Provider: "anthropic", Model: "G", Credentials: []string{"k"}},
	}
	h := newHarness(t, entries, map[string]budget.Limit{
		"k": {SoftCapUSD: 5, HardCapUSD: 10},
	}, WithCostModel(flatCost(1)))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			route, err := h.router.Route(context.Background(), TaskSpec{})
			if err != nil || !route.Admitted() {
				return
			}
			mu.Lock()
			admitted++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, admitted)
	assert.InDelta(t, 10.0, h.ledger.Usage("k"), 1e-9)

	// Each call's events stay together.
	events := h.sink.Snapshot()
	require.Len(t, events, 100)
	for i := 0; i < len(events); i += 2 {
		assert.Equal(t, events[i].TraceID, events[i+1].TraceID)
		assert.Equal(t, telemetry.KindRouteDecision, events[i+1].Kind)
	}
}

func TestRouteMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	h := newHarness(t, catalog.DefaultEntries(), nil, WithMeterProvider(provider))

	_, err := h.router.Route(context.Background(), TaskSpec{TaskType: "analysis"})
	require.NoError(t, err)
	_, err = h.router.Route(context.Background(), TaskSpec{TaskType: "fix"})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.Equal(t, int64(5), counterTotal(t, rm, "routegate.route.candidates"))
	assert.Equal(t, int64(2), counterTotal(t, rm, "routegate.route.decisions"))
}

func counterTotal(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return 0
}

func TestNewRequiresCatalogAndLedger(t *testing.T) {
	_, err := New(nil, budget.NewLedger(nil), nil, nil)
	assert.ErrorIs(t, err, ErrMissingDependency)

	_, err = New(catalog.Default(nil), nil, nil, nil)
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestSelectDoesNotReserve(t *testing.T) {
	h := newHarness(t, catalog.DefaultEntries(), nil)

	sel := h.router.Select(TaskSpec{TaskType: "research"})
	assert.Equal(t, catalog.CategorySpecialized, sel.Category)
	assert.Equal(t, catalog.SubkeyScout, sel.Subkey)
	assert.Zero(t, h.sink.Len())
	assert.Empty(t, h.ledger.Snapshot())
}
