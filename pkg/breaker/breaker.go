// Package breaker tracks per-credential health with a two-state circuit
// breaker.
//
// A credential is open while the current time is before its open-until
// instant and closed otherwise. There is no half-open phase: once the cooldown
// elapses the credential is eligible again, and because the failure count is
// not reset when the breaker opens, the next error reopens it immediately.
// Only OnSuccess clears the count.
package breaker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultFailureThreshold is the number of errors that opens a credential.
	DefaultFailureThreshold = 3
	// DefaultCooldown is how long an opened credential stays open.
	DefaultCooldown = 60 * time.Second
)

// State is a point-in-time view of one credential. OpenUntil is nil while
// the credential has never opened or has been closed by a success.
type State struct {
	Credential string     `json:"credential"`
	Failures   int        `json:"failures"`
	OpenUntil  *time.Time `json:"open_until,omitempty"`
	Open       bool       `json:"open"`
}

type entry struct {
	failures  int
	openUntil time.Time
}

// Breaker holds the state of every credential behind one mutex.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	states    map[string]*entry
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger sets the logger used for open/close transitions.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Breaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a Breaker. Non-positive arguments fall back to the defaults.
func New(failureThreshold int, cooldown time.Duration, opts ...Option) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	b := &Breaker{
		threshold: failureThreshold,
		cooldown:  cooldown,
		states:    make(map[string]*entry),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// IsOpen reports whether the credential is currently rejected.
// Unknown credentials are closed.
func (b *Breaker) IsOpen(credential string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.states[credential]
	if !ok {
		return false
	}
	return b.now().Before(e.openUntil)
}

// OnError records a failure and opens the credential once the threshold is
// reached.
func (b *Breaker) OnError(credential string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.states[credential]
	if !ok {
		e = &entry{}
		b.states[credential] = e
	}
	e.failures++
	if e.failures < b.threshold {
		return
	}

	e.openUntil = b.now().Add(b.cooldown)
	b.logger.Warn("circuit opened",
		zap.String("credential", credential),
		zap.Int("failures", e.failures),
		zap.Time("open_until", e.openUntil),
	)
}

// OnSuccess closes the credential and clears its failure count. Unknown
// credentials are already closed and are not recorded.
func (b *Breaker) OnSuccess(credential string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.states[credential]
	if !ok {
		return
	}
	if !e.openUntil.IsZero() {
		b.logger.Info("circuit closed", zap.String("credential", credential))
	}
	e.failures = 0
	e.openUntil = time.Time{}
}

// State returns a snapshot for one credential.
func (b *Breaker) State(credential string) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := State{Credential: credential}
	if e, ok := b.states[credential]; ok {
		st.Failures = e.failures
		st.Open = b.now().Before(e.openUntil)
		if !e.openUntil.IsZero() {
			until := e.openUntil
			st.OpenUntil = &until
		}
	}
	return st
}

// Threshold returns the configured failure threshold.
func (b *Breaker) Threshold() int { return b.threshold }

// Cooldown returns the configured cooldown.
func (b *Breaker) Cooldown() time.Duration { return b.cooldown }

// Len returns the number of credentials with recorded state.
func (b *Breaker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.states)
}
