package telemetry

import "time"

// Kind identifies the type of a telemetry event.
type Kind string

const (
	// KindRouteCandidate is emitted once per evaluated candidate.
	KindRouteCandidate Kind = "route_candidate"
	// KindRouteDecision summarizes a routing call.
	KindRouteDecision Kind = "route_decision"
)

// Event is an immutable record of one routing step.
type Event struct {
	ID               string    `json:"id"`
	TraceID          string    `json:"trace_id"`
	Kind             Kind      `json:"kind"`
	Category         string    `json:"category"`
	Subkey           string    `json:"subkey,omitempty"`
	Order            int       `json:"order"`
	ProviderModel    string    `json:"provider_model"`
	Decision         string    `json:"decision"`
	Credential       string    `json:"credential,omitempty"`
	EstimatedCostUSD float64   `json:"estimated_cost_usd"`
	FallbackCount    int       `json:"fallback_count,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Writer is a synchronous side channel that receives every emitted event.
type Writer interface {
	Write(Event) error
}
