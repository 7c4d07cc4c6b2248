package catalog

import (
	"github.com/zen-systems/routegate/pkg/budget"
)

// Category is a logical task category.
type Category string

const (
	CategoryFastOperations  Category = "fast_operations"
	CategoryAdvancedContext Category = "advanced_context"
	CategorySpecialized     Category = "specialized"
	CategoryCoding          Category = "coding"
	CategoryReasoning       Category = "reasoning"
	CategoryGeneral         Category = "general"
)

// Subkeys of the specialized category.
const (
	SubkeyMaverick = "maverick"
	SubkeyScout    = "scout"
)

// canonicalOrder is the listing order for known categories.
var canonicalOrder = []Category{
	CategoryFastOperations,
	CategoryAdvancedContext,
	CategorySpecialized,
	CategoryCoding,
	CategoryReasoning,
	CategoryGeneral,
}

// Tunables are the per-call knobs passed to a provider. Extra carries
// provider-specific keys that have no dedicated field.
type Tunables struct {
	MaxTokens     int            `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	ContextWindow int            `json:"context_window,omitempty" yaml:"context_window,omitempty" toml:"context_window,omitempty"`
	Extra         map[string]any `json:"extra,omitempty" yaml:"extra,omitempty" toml:"extra,omitempty"`
}

// Merge returns t overlaid with the non-zero fields of override.
func (t Tunables) Merge(override Tunables) Tunables {
	out := t.Clone()
	if override.MaxTokens != 0 {
		out.MaxTokens = override.MaxTokens
	}
	if override.Temperature != nil {
		temp := *override.Temperature
		out.Temperature = &temp
	}
	if override.ContextWindow != 0 {
		out.ContextWindow = override.ContextWindow
	}
	if len(override.Extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]any, len(override.Extra))
		}
		for k, v := range override.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Clone returns a copy that shares no mutable state with t.
func (t Tunables) Clone() Tunables {
	out := Tunables{MaxTokens: t.MaxTokens, ContextWindow: t.ContextWindow}
	if t.Temperature != nil {
		temp := *t.Temperature
		out.Temperature = &temp
	}
	if t.Extra != nil {
		out.Extra = make(map[string]any, len(t.Extra))
		for k, v := range t.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Template describes one provider model and how to pay for it.
// Empty Credentials and zero Tunables fields inherit from the owning Entry.
type Template struct {
	Provider    string   `json:"provider" yaml:"provider" toml:"provider"`
	Model       string   `json:"model" yaml:"model" toml:"model"`
	Credentials []string `json:"credentials,omitempty" yaml:"credentials,omitempty" toml:"credentials,omitempty"`
	Tunables    Tunables `json:"tunables,omitempty" yaml:"tunables,omitempty" toml:"tunables,omitempty"`
}

// Entry is the catalog record for a category. Categories with Subkeys take
// their primary template from the subkey; Provider and Model are ignored.
type Entry struct {
	Provider    string              `json:"provider,omitempty" yaml:"provider,omitempty" toml:"provider,omitempty"`
	Model       string              `json:"model,omitempty" yaml:"model,omitempty" toml:"model,omitempty"`
	Credentials []string            `json:"credentials,omitempty" yaml:"credentials,omitempty" toml:"credentials,omitempty"`
	Tunables    Tunables            `json:"tunables,omitempty" yaml:"tunables,omitempty" toml:"tunables,omitempty"`
	Fallbacks   []Template          `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty" toml:"fallbacks,omitempty"`
	Subkeys     map[string]Template `json:"subkeys,omitempty" yaml:"subkeys,omitempty" toml:"subkeys,omitempty"`
}

// CallSpec is a fully assembled provider call. SelectedCredential and
// Decision are filled in during admission.
type CallSpec struct {
	Provider           string          `json:"provider"`
	ProviderModel      string          `json:"provider_model"`
	CredentialRefs     []string        `json:"credential_refs"`
	Tunables           Tunables        `json:"tunables"`
	SelectedCredential string          `json:"selected_credential,omitempty"`
	Decision           budget.Decision `json:"decision,omitempty"`
}
