// Package dispatch turns admitted call specifications into provider SDK
// requests and reports call outcomes back to the circuit breaker. It does no
// network I/O; callers own the clients.
package dispatch

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"

	"github.com/zen-systems/routegate/pkg/catalog"
)

// Provider names with a request shape.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderDeepSeek  = "deepseek"
	ProviderGoogle    = "google"
)

// DefaultMaxTokens is used when a spec does not set MaxTokens.
const DefaultMaxTokens = 4096

// DeepSeekBaseURL is the OpenAI-compatible endpoint for deepseek specs.
const DeepSeekBaseURL = "https://api.deepseek.com/v1"

// Request is a provider-native request for one admitted call. Exactly one of
// Anthropic, OpenAI and Google is set.
type Request struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Credential string `json:"credential"`
	BaseURL    string `json:"base_url,omitempty"`

	Anthropic *anthropic.MessageNewParams     `json:"anthropic,omitempty"`
	OpenAI    *openai.ChatCompletionNewParams `json:"openai,omitempty"`
	Google    *GoogleRequest                  `json:"google,omitempty"`
}

// Providers lists the providers Shape understands.
func Providers() []string {
	out := []string{ProviderAnthropic, ProviderOpenAI, ProviderDeepSeek, ProviderGoogle}
	sort.Strings(out)
	return out
}

// CheckCatalog reports every catalog template whose provider Shape cannot
// handle. Each error wraps ErrUnknownProvider.
func CheckCatalog(entries map[catalog.Category]catalog.Entry) error {
	known := Providers()
	categories := make([]catalog.Category, 0, len(entries))
	for c := range entries {
		categories = append(categories, c)
	}
	slices.Sort(categories)

	var errs []error
	check := func(where, provider string) {
		if !slices.Contains(known, provider) {
			errs = append(errs, fmt.Errorf("%w: %s provider %q", ErrUnknownProvider, where, provider))
		}
	}
	for _, c := range categories {
		entry := entries[c]
		if len(entry.Subkeys) > 0 {
			subkeys := make([]string, 0, len(entry.Subkeys))
			for k := range entry.Subkeys {
				subkeys = append(subkeys, k)
			}
			slices.Sort(subkeys)
			for _, k := range subkeys {
				check(fmt.Sprintf("%s/%s", c, k), entry.Subkeys[k].Provider)
			}
		} else {
			check(string(c), entry.Provider)
		}
		for i, fb := range entry.Fallbacks {
			check(fmt.Sprintf("%s fallback %d", c, i+1), fb.Provider)
		}
	}
	return errors.Join(errs...)
}

// Shape builds the request for spec. Specs the router did not admit are
// rejected with ErrNotAdmitted.
func Shape(spec *catalog.CallSpec, prompt string) (*Request, error) {
	if spec == nil || !spec.Decision.Admitted() || spec.SelectedCredential == "" {
		return nil, ErrNotAdmitted
	}

	req := &Request{
		Provider:   spec.Provider,
		Model:      spec.ProviderModel,
		Credential: spec.SelectedCredential,
	}
	switch spec.Provider {
	case ProviderAnthropic:
		p := AnthropicParams(spec, prompt)
		req.Anthropic = &p
	case ProviderOpenAI:
		p := OpenAIParams(spec, prompt)
		req.OpenAI = &p
	case ProviderDeepSeek:
		p := OpenAIParams(spec, prompt)
		req.OpenAI = &p
		req.BaseURL = DeepSeekBaseURL
	case ProviderGoogle:
		req.Google = GoogleParams(spec, prompt)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, spec.Provider)
	}
	return req, nil
}

func maxTokens(t catalog.Tunables) int64 {
	if t.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	if t.MaxTokens > math.MaxInt32 {
		return math.MaxInt32
	}
	return int64(t.MaxTokens)
}
