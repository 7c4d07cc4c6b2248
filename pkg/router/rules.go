package router

import (
	"strings"

	"github.com/zen-systems/routegate/pkg/catalog"
)

const (
	// FastUrgencyMS is the urgency at or below which tasks go to fast_operations.
	FastUrgencyMS = 500
	// AdvancedContextTokens is the context size at or above which tasks go to advanced_context.
	AdvancedContextTokens = 500_000
)

// Selection is the category chosen for a task and the rule that chose it.
type Selection struct {
	Category catalog.Category `json:"category"`
	Subkey   string           `json:"subkey,omitempty"`
	Rule     string           `json:"rule"`
}

// Rule maps a predicate over a task to a category.
type Rule struct {
	Name     string
	Category catalog.Category
	Subkey   string
	Match    func(TaskSpec) bool
}

// RuleSet evaluates rules in order; the first match wins.
type RuleSet struct {
	rules    []Rule
	fallback Selection
}

// NewRuleSet creates a rule set. Tasks that match nothing get fallback.
func NewRuleSet(rules []Rule, fallback Selection) *RuleSet {
	return &RuleSet{rules: append([]Rule(nil), rules...), fallback: fallback}
}

// DefaultRules returns the standard category rules. The order is part of the
// contract: urgency, context size, creative, code, reasoning or strict
// quality, research, then general.
func DefaultRules() *RuleSet {
	return NewRuleSet([]Rule{
		{
			Name:     "urgency",
			Category: catalog.CategoryFastOperations,
			Match: func(t TaskSpec) bool {
				return t.UrgencyMS != nil && *t.UrgencyMS <= FastUrgencyMS
			},
		},
		{
			Name:     "context_size",
			Category: catalog.CategoryAdvancedContext,
			Match: func(t TaskSpec) bool {
				return t.ContextTokens != nil && *t.ContextTokens >= AdvancedContextTokens
			},
		},
		{
			Name:     "creative",
			Category: catalog.CategorySpecialized,
			Subkey:   catalog.SubkeyMaverick,
			Match: func(t TaskSpec) bool {
				return t.Creative && taskTypeIn(t, "creative", "ideation", "design")
			},
		},
		{
			Name:     "code",
			Category: catalog.CategoryCoding,
			Match: func(t TaskSpec) bool {
				return taskTypeIn(t, "code_generation", "refactor", "fix", "test")
			},
		},
		{
			Name:     "reasoning",
			Category: catalog.CategoryReasoning,
			Match: func(t TaskSpec) bool {
				return t.StrictQuality || taskTypeIn(t, "analysis", "architecture", "decision", "reasoning")
			},
		},
		{
			Name:     "research",
			Category: catalog.CategorySpecialized,
			Subkey:   catalog.SubkeyScout,
			Match: func(t TaskSpec) bool {
				return taskTypeIn(t, "research", "exploration")
			},
		},
	}, Selection{Category: catalog.CategoryGeneral, Rule: "default"})
}

// Select returns the category for task.
func (rs *RuleSet) Select(task TaskSpec) Selection {
	for _, rule := range rs.rules {
		if rule.Match(task) {
			return Selection{Category: rule.Category, Subkey: rule.Subkey, Rule: rule.Name}
		}
	}
	return rs.fallback
}

// Rules returns the rules in evaluation order.
func (rs *RuleSet) Rules() []Rule {
	return append([]Rule(nil), rs.rules...)
}

// taskTypeIn compares case-insensitively, ignoring surrounding whitespace.
func taskTypeIn(t TaskSpec, types ...string) bool {
	tt := strings.ToLower(strings.TrimSpace(t.TaskType))
	for _, candidate := range types {
		if tt == candidate {
			return true
		}
	}
	return false
}
