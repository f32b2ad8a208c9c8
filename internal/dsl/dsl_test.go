package dsl

import "testing"

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	ev, err := NewEvaluator(nil)
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}
	return ev
}

func floatPtr(f float64) *float64 { return &f }

func TestConjunctiveConditionsAllMustMatch(t *testing.T) {
	ev := newEvaluator(t)
	rule := Rule{
		Name: "expensive-prod-nat",
		Conditions: []Condition{
			{Field: "resource_type", Operator: OpEquals, Value: "aws_nat_gateway"},
			{Field: "monthly_cost", Operator: OpGreaterThan, Value: 100.0},
		},
		Action: Action{Kind: ActionBlock},
	}
	compiled, err := ev.Compile(rule)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	matches, err := ev.Evaluate(compiled, EvaluationContext{ResourceType: "aws_nat_gateway", MonthlyCost: floatPtr(150)})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if !matches.Matches {
		t.Error("expected both conditions to match")
	}

	partial, err := ev.Evaluate(compiled, EvaluationContext{ResourceType: "aws_nat_gateway", MonthlyCost: floatPtr(50)})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if partial.Matches {
		t.Error("a rule must not match when only one of its conditions holds")
	}
}

func TestMatchesOperatorCompilesRegexAtLoadTime(t *testing.T) {
	ev := newEvaluator(t)
	rule := Rule{
		Name: "bad-regex",
		Conditions: []Condition{
			{Field: "resource_type", Operator: OpMatches, Value: "(unterminated"},
		},
	}
	if _, err := ev.Compile(rule); err == nil {
		t.Error("an invalid regex must fail at Compile time, not be silently skipped")
	}
}

func TestMatchesOperatorEvaluation(t *testing.T) {
	ev := newEvaluator(t)
	rule := Rule{
		Name: "aws-resources",
		Conditions: []Condition{
			{Field: "resource_type", Operator: OpMatches, Value: "^aws_"},
		},
	}
	compiled, err := ev.Compile(rule)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	yes, _ := ev.Evaluate(compiled, EvaluationContext{ResourceType: "aws_instance"})
	if !yes.Matches {
		t.Error("expected aws_instance to match ^aws_")
	}
	no, _ := ev.Evaluate(compiled, EvaluationContext{ResourceType: "gcp_instance"})
	if no.Matches {
		t.Error("expected gcp_instance not to match ^aws_")
	}
}

func TestInAndNotInOperators(t *testing.T) {
	ev := newEvaluator(t)
	rule := Rule{
		Name: "restricted-family",
		Conditions: []Condition{
			{Field: "family", Operator: OpNotIn, Values: []any{"t3", "m5"}},
		},
	}
	compiled, err := ev.Compile(rule)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	result, _ := ev.Evaluate(compiled, EvaluationContext{Attributes: map[string]any{"family": "r5"}})
	if !result.Matches {
		t.Error("r5 should match not_in [t3, m5]")
	}
	result2, _ := ev.Evaluate(compiled, EvaluationContext{Attributes: map[string]any{"family": "t3"}})
	if result2.Matches {
		t.Error("t3 should not match not_in [t3, m5]")
	}
}

func TestUnknownOperatorRejectedAtCompile(t *testing.T) {
	ev := newEvaluator(t)
	rule := Rule{Conditions: []Condition{{Field: "x", Operator: "bogus"}}}
	if _, err := ev.Compile(rule); err == nil {
		t.Error("expected an error for an unknown operator")
	}
}

func TestExpressionMustTypeCheckAsBool(t *testing.T) {
	ev := newEvaluator(t)
	rule := Rule{Name: "bad-expr", Expression: "monthly_cost + 1"}
	if _, err := ev.Compile(rule); err == nil {
		t.Error("a non-bool expression must be rejected at compile time")
	}
}

func TestExpressionCombinesWithConditions(t *testing.T) {
	ev := newEvaluator(t)
	rule := Rule{
		Name:       "combined",
		Conditions: []Condition{{Field: "resource_type", Operator: OpEquals, Value: "aws_instance"}},
		Expression: "cost_increase_percent > 25.0",
		Action:     Action{Kind: ActionWarn},
	}
	compiled, err := ev.Compile(rule)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	match, _ := ev.Evaluate(compiled, EvaluationContext{ResourceType: "aws_instance", CostIncreasePercent: floatPtr(30)})
	if !match.Matches {
		t.Error("expected both the condition and the expression to hold")
	}

	noMatch, _ := ev.Evaluate(compiled, EvaluationContext{ResourceType: "aws_instance", CostIncreasePercent: floatPtr(10)})
	if noMatch.Matches {
		t.Error("expression failing should block the overall match even though the condition holds")
	}
}

func TestHasBlocksAndRequiresApproval(t *testing.T) {
	results := []RuleEvaluationResult{
		{Rule: Rule{Name: "r1", Action: Action{Kind: ActionWarn}}, Matches: true},
		{Rule: Rule{Name: "r2", Action: Action{Kind: ActionRequireApproval, Approvers: []string{"alice"}}}, Matches: true},
		{Rule: Rule{Name: "r3", Action: Action{Kind: ActionBlock}}, Matches: false},
	}

	if HasBlocks(results) {
		t.Error("no matched Block action should be present")
	}
	approvers, required := RequiresApproval(results)
	if !required || len(approvers) != 1 || approvers[0] != "alice" {
		t.Errorf("RequiresApproval() = %v, %v, want ([alice], true)", approvers, required)
	}
}

func TestHasBlocksTrueWhenBlockMatches(t *testing.T) {
	results := []RuleEvaluationResult{
		{Rule: Rule{Name: "r1", Action: Action{Kind: ActionBlock}}, Matches: true},
	}
	if !HasBlocks(results) {
		t.Error("expected HasBlocks to report true")
	}
}
