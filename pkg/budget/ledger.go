package budget

import (
	"math"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Decision is the admission result for one reservation attempt.
type Decision string

const (
	// DecisionAllow admits the call; projected spend stays within the soft cap.
	DecisionAllow Decision = "allow"
	// DecisionSoftCap admits the call but signals a preference for cheaper models.
	DecisionSoftCap Decision = "soft_cap"
	// DecisionBlocked rejects the call; nothing was reserved.
	DecisionBlocked Decision = "blocked"
)

// Admitted reports whether the decision lets the call through.
func (d Decision) Admitted() bool {
	return d == DecisionAllow || d == DecisionSoftCap
}

// Limit is the static spend cap pair for one credential.
type Limit struct {
	SoftCapUSD float64 `json:"soft_cap_usd" yaml:"soft_cap_usd" toml:"soft_cap_usd"`
	HardCapUSD float64 `json:"hard_cap_usd" yaml:"hard_cap_usd" toml:"hard_cap_usd"`
}

// Status reports usage for one credential.
type Status struct {
	Credential string  `json:"credential"`
	UsageUSD   float64 `json:"usage_usd"`
	Limit      *Limit  `json:"limit,omitempty"`
}

type caps struct {
	soft decimal.Decimal
	hard decimal.Decimal
}

// Ledger tracks cumulative reserved spend per credential. State lives in
// memory only and starts from zero on every process start.
//
// Every reservation runs under one mutex shared by all credentials, so the
// check and the increment can never interleave with another caller. Under
// very high concurrency this lock is the first thing to contend.
type Ledger struct {
	mu     sync.Mutex
	limits map[string]Limit
	caps   map[string]caps
	usage  map[string]decimal.Decimal
	logger *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the ledger logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLedger creates a ledger. Limits are copied and never change afterwards.
func NewLedger(limits map[string]Limit, opts ...Option) *Ledger {
	l := &Ledger{
		limits: make(map[string]Limit, len(limits)),
		caps:   make(map[string]caps, len(limits)),
		usage:  make(map[string]decimal.Decimal),
		logger: zap.NewNop(),
	}
	for credential, limit := range limits {
		l.limits[credential] = limit
		l.caps[credential] = caps{
			soft: decimal.NewFromFloat(limit.SoftCapUSD),
			hard: decimal.NewFromFloat(limit.HardCapUSD),
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckAndReserve decides whether estimatedCostUSD may be spent on credential
// and, when admitted, adds it to the credential's usage.
//
// Credentials without a limit are unrestricted. Negative costs count as zero.
// Non-finite costs are blocked because they cannot be reserved.
func (l *Ledger) CheckAndReserve(credential string, estimatedCostUSD float64) Decision {
	if math.IsNaN(estimatedCostUSD) || math.IsInf(estimatedCostUSD, 0) {
		l.logger.Warn("non-finite cost estimate rejected",
			zap.String("credential", credential),
			zap.Float64("estimated_cost_usd", estimatedCostUSD),
		)
		return DecisionBlocked
	}
	cost := decimal.NewFromFloat(math.Max(estimatedCostUSD, 0))

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.usage[credential]
	c, limited := l.caps[credential]
	if !limited {
		l.usage[credential] = current.Add(cost)
		return DecisionAllow
	}

	projected := current.Add(cost)
	switch {
	case projected.GreaterThan(c.hard):
		l.logger.Debug("reservation blocked",
			zap.String("credential", credential),
			zap.String("usage_usd", current.String()),
			zap.String("projected_usd", projected.String()),
		)
		return DecisionBlocked
	case projected.GreaterThan(c.soft):
		l.usage[credential] = projected
		return DecisionSoftCap
	default:
		l.usage[credential] = projected
		return DecisionAllow
	}
}

// Usage returns cumulative reserved spend, 0 for unknown credentials.
func (l *Ledger) Usage(credential string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usage[credential].InexactFloat64()
}

// Limit returns the configured limit for credential, if any.
func (l *Ledger) Limit(credential string) (Limit, bool) {
	limit, ok := l.limits[credential]
	return limit, ok
}

// Snapshot returns the status of every credential that has a limit or has
// reserved spend, sorted by credential.
func (l *Ledger) Snapshot() []Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]struct{}, len(l.limits)+len(l.usage))
	for credential := range l.limits {
		seen[credential] = struct{}{}
	}
	for credential := range l.usage {
		seen[credential] = struct{}{}
	}

	out := make([]Status, 0, len(seen))
	for credential := range seen {
		st := Status{Credential: credential, UsageUSD: l.usage[credential].InexactFloat64()}
		if limit, ok := l.limits[credential]; ok {
			limit := limit
			st.Limit = &limit
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Credential < out[j].Credential })
	return out
}
