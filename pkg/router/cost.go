package router

import (
	"github.com/zen-systems/routegate/pkg/catalog"
)

// AdvancedContextMinTokens is the floor on expected tokens for advanced_context.
const AdvancedContextMinTokens = 100_000

// Rate is the expected token count and price for calls in one category.
type Rate struct {
	ExpectedTokens int     `json:"expected_tokens" yaml:"expected_tokens" toml:"expected_tokens"`
	USDPer1K       float64 `json:"usd_per_1k" yaml:"usd_per_1k" toml:"usd_per_1k"`
}

// CostModel maps categories to rates.
type CostModel map[catalog.Category]Rate

// DefaultCostModel returns the built-in per-category rates.
func DefaultCostModel() CostModel {
	return CostModel{
		catalog.CategoryFastOperations:  {ExpectedTokens: 1_000, USDPer1K: 0.0005},
		catalog.CategoryAdvancedContext: {ExpectedTokens: AdvancedContextMinTokens, USDPer1K: 0.00125},
		catalog.CategorySpecialized:     {ExpectedTokens: 4_000, USDPer1K: 0.015},
		catalog.CategoryCoding:          {ExpectedTokens: 8_000, USDPer1K: 0.003},
		catalog.CategoryReasoning:       {ExpectedTokens: 8_000, USDPer1K: 0.015},
		catalog.CategoryGeneral:         {ExpectedTokens: 2_000, USDPer1K: 0.003},
	}
}

// Merge returns m with the entries of override replacing its own.
func (m CostModel) Merge(override CostModel) CostModel {
	out := make(CostModel, len(m)+len(override))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Estimate returns the expected USD cost of a call in category. Categories
// without a rate use the general rate; with neither the estimate is 0.
// advanced_context counts the largest of the configured expected tokens,
// AdvancedContextMinTokens and the task's context size.
func (m CostModel) Estimate(category catalog.Category, task TaskSpec) float64 {
	rate, ok := m[category]
	if !ok {
		rate, ok = m[catalog.CategoryGeneral]
		if !ok {
			return 0
		}
	}

	tokens := rate.ExpectedTokens
	if category == catalog.CategoryAdvancedContext {
		tokens = max(tokens, AdvancedContextMinTokens)
		if task.ContextTokens != nil {
			tokens = max(tokens, *task.ContextTokens)
		}
	}
	return (float64(tokens) / 1000.0) * rate.USDPer1K
}
