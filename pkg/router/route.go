package router

import (
	"github.com/zen-systems/routegate/pkg/catalog"
)

// TaskSpec describes an inbound task. Nil pointer fields are absent.
type TaskSpec struct {
	TaskType      string `json:"task_type"`
	UrgencyMS     *int   `json:"urgency_ms,omitempty"`
	ContextTokens *int   `json:"context_tokens,omitempty"`
	Creative      bool   `json:"creative"`
	StrictQuality bool   `json:"strict_quality"`
}

// Int returns a pointer to v, for the optional TaskSpec fields.
func Int(v int) *int { return &v }

// SelectedRoute is the outcome of one routing call. Primary is always set;
// when nothing was admitted it is the catalog primary with a blocked decision
// and Fallbacks is empty.
type SelectedRoute struct {
	ID               string              `json:"id"`
	Category         catalog.Category    `json:"category"`
	Subkey           string              `json:"subkey,omitempty"`
	Rule             string              `json:"rule"`
	EstimatedCostUSD float64             `json:"estimated_cost_usd"`
	Primary          *catalog.CallSpec   `json:"primary"`
	Fallbacks        []*catalog.CallSpec `json:"fallbacks"`
}

// Admitted reports whether the primary call may proceed.
func (r *SelectedRoute) Admitted() bool {
	return r != nil && r.Primary != nil && r.Primary.Decision.Admitted()
}
