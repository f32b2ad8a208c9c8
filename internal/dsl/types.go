// Package dsl implements the policy condition/action language: a small,
// declarative rule format that lets a policy author block,
// warn, require approval for, or merely audit a resource change without
// writing Go. Grounded on the teacher's internal/policy/cel.go
// (CELEvaluator/CompiledRule compile-once-evaluate-many pattern),
// generalized from AgentWarden's action-classification expressions to
// CostPilot's Condition/Operator/Action model.
package dsl

import "fmt"

// Operator is a condition's comparison kind.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "not_in"
	OpMatches            Operator = "matches"
	OpContains           Operator = "contains"
)

// Condition compares one field of an EvaluationContext's attribute map
// against Value (or Values, for In/NotIn) using Operator. A Rule matches
// only when every one of its Conditions matches (conjunctive AND; there is
// no OR primitive at this level — compose multiple rules instead).
type Condition struct {
	Field    string   `yaml:"field" json:"field"`
	Operator Operator `yaml:"operator" json:"operator"`
	Value    any      `yaml:"value,omitempty" json:"value,omitempty"`
	Values   []any    `yaml:"values,omitempty" json:"values,omitempty"` // used by OpIn / OpNotIn
}

// ActionKind is what a matched rule does.
type ActionKind string

const (
	ActionBlock           ActionKind = "block"
	ActionRequireApproval ActionKind = "require_approval"
	ActionWarn            ActionKind = "warn"
	ActionAudit           ActionKind = "audit"
)

// Action is what happens when a Rule's conditions all match.
type Action struct {
	Kind      ActionKind `yaml:"kind" json:"kind"`
	Approvers []string   `yaml:"approvers,omitempty" json:"approvers,omitempty"` // populated only when Kind == ActionRequireApproval
	Message   string     `yaml:"message,omitempty" json:"message,omitempty"`
}

// Rule is one named condition set plus the action it triggers. Expression
// is an optional raw CEL expression evaluated in addition to Conditions,
// for logic the flat Condition/Operator model can't express (cross-field
// comparisons, arithmetic); when both are present, a Rule matches only if
// Conditions AND Expression both hold.
type Rule struct {
	Name       string      `yaml:"name" json:"name"`
	Conditions []Condition `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Expression string      `yaml:"expression,omitempty" json:"expression,omitempty"`
	Action     Action      `yaml:"action" json:"action"`
}

// EvaluationContext is the flat variable set a Rule is checked against,
// mirroring original_source's EvaluationContext: the resource type under
// evaluation plus whatever cost/attribute data the caller has to hand.
type EvaluationContext struct {
	ResourceType        string
	MonthlyCost         *float64
	CostIncreasePercent *float64
	Attributes          map[string]any
}

// lookup resolves a condition's Field against the context, checking the
// well-known top-level fields before falling back to Attributes.
func (c EvaluationContext) lookup(field string) (any, bool) {
	switch field {
	case "resource_type":
		return c.ResourceType, true
	case "monthly_cost":
		if c.MonthlyCost == nil {
			return nil, false
		}
		return *c.MonthlyCost, true
	case "cost_increase_percent":
		if c.CostIncreasePercent == nil {
			return nil, false
		}
		return *c.CostIncreasePercent, true
	default:
		if c.Attributes == nil {
			return nil, false
		}
		v, ok := c.Attributes[field]
		return v, ok
	}
}

// RuleEvaluationResult is the outcome of checking one compiled rule
// against one EvaluationContext.
type RuleEvaluationResult struct {
	Rule    Rule
	Matches bool
}

// HasBlocks reports whether any matched result in results carries a Block
// action.
func HasBlocks(results []RuleEvaluationResult) bool {
	for _, r := range results {
		if r.Matches && r.Rule.Action.Kind == ActionBlock {
			return true
		}
	}
	return false
}

// RequiresApproval reports whether any matched result requires approval,
// and if so, the union of their declared approvers.
func RequiresApproval(results []RuleEvaluationResult) ([]string, bool) {
	var approvers []string
	found := false
	seen := make(map[string]bool)
	for _, r := range results {
		if !r.Matches || r.Rule.Action.Kind != ActionRequireApproval {
			continue
		}
		found = true
		for _, a := range r.Rule.Action.Approvers {
			if !seen[a] {
				seen[a] = true
				approvers = append(approvers, a)
			}
		}
	}
	return approvers, found
}

func (o Operator) validate() error {
	switch o {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual, OpIn, OpNotIn, OpMatches, OpContains:
		return nil
	default:
		return fmt.Errorf("unknown operator %q", o)
	}
}
