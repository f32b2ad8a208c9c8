package dsl

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/google/cel-go/cel"
)

// CompiledRule wraps a Rule with its load-time-validated artifacts: a
// pre-compiled regexp per Matches condition, and (if Rule.Expression is
// set) a pre-compiled CEL program. Compiling once at load time, not per
// evaluation, mirrors the teacher's CompiledRule/CELEvaluator split.
type CompiledRule struct {
	rule     Rule
	patterns map[int]*regexp.Regexp // condition index -> compiled pattern
	program  cel.Program            // nil unless rule.Expression != ""
}

// Evaluator compiles Rules into CompiledRules and evaluates them against
// an EvaluationContext. The CEL environment exposes exactly the fields
// EvaluationContext carries, so an Expression can reference
// resource_type, monthly_cost, cost_increase_percent, and attrs.
type Evaluator struct {
	env    *cel.Env
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator with the standard EvaluationContext
// variable declarations.
func NewEvaluator(logger *slog.Logger) (*Evaluator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	env, err := cel.NewEnv(
		cel.Variable("resource_type", cel.StringType),
		cel.Variable("monthly_cost", cel.DoubleType),
		cel.Variable("cost_increase_percent", cel.DoubleType),
		cel.Variable("attrs", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create DSL CEL environment: %w", err)
	}
	return &Evaluator{env: env, logger: logger.With("component", "dsl.Evaluator")}, nil
}

// Compile validates and pre-compiles a Rule. A Matches condition with an
// invalid regex, an unknown Operator, or an Expression that fails to
// compile or type-check as bool are all load-time errors — the rule is
// rejected outright, never silently skipped.
func (e *Evaluator) Compile(rule Rule) (CompiledRule, error) {
	compiled := CompiledRule{rule: rule, patterns: make(map[int]*regexp.Regexp)}

	for i, cond := range rule.Conditions {
		if err := cond.Operator.validate(); err != nil {
			return CompiledRule{}, fmt.Errorf("rule %q condition %d: %w", rule.Name, i, err)
		}
		if cond.Operator != OpMatches {
			continue
		}
		pattern, ok := cond.Value.(string)
		if !ok {
			return CompiledRule{}, fmt.Errorf("rule %q condition %d: matches operator requires a string pattern", rule.Name, i)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return CompiledRule{}, fmt.Errorf("rule %q condition %d: invalid regex %q: %w", rule.Name, i, pattern, err)
		}
		compiled.patterns[i] = re
	}

	if rule.Expression != "" {
		ast, issues := e.env.Compile(rule.Expression)
		if issues != nil && issues.Err() != nil {
			return CompiledRule{}, fmt.Errorf("rule %q expression: %w", rule.Name, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return CompiledRule{}, fmt.Errorf("rule %q expression must evaluate to bool, got %s", rule.Name, ast.OutputType())
		}
		prg, err := e.env.Program(ast)
		if err != nil {
			return CompiledRule{}, fmt.Errorf("rule %q expression: program creation failed: %w", rule.Name, err)
		}
		compiled.program = prg
	}

	e.logger.Debug("compiled dsl rule", "name", rule.Name, "conditions", len(rule.Conditions), "has_expression", rule.Expression != "")
	return compiled, nil
}

// Evaluate checks a compiled rule against ctx, ANDing every typed
// condition with the optional CEL expression.
func (e *Evaluator) Evaluate(cr CompiledRule, ctx EvaluationContext) (RuleEvaluationResult, error) {
	for i, cond := range cr.rule.Conditions {
		matched, err := evaluateCondition(cond, cr.patterns[i], ctx)
		if err != nil {
			return RuleEvaluationResult{}, fmt.Errorf("rule %q: %w", cr.rule.Name, err)
		}
		if !matched {
			return RuleEvaluationResult{Rule: cr.rule, Matches: false}, nil
		}
	}

	if cr.program != nil {
		out, _, err := cr.program.Eval(map[string]any{
			"resource_type":         ctx.ResourceType,
			"monthly_cost":          derefOrZero(ctx.MonthlyCost),
			"cost_increase_percent": derefOrZero(ctx.CostIncreasePercent),
			"attrs":                 attrsOrEmpty(ctx.Attributes),
		})
		if err != nil {
			return RuleEvaluationResult{}, fmt.Errorf("rule %q: expression evaluation error: %w", cr.rule.Name, err)
		}
		matched, ok := out.Value().(bool)
		if !ok {
			return RuleEvaluationResult{}, fmt.Errorf("rule %q: expression returned non-bool %T", cr.rule.Name, out.Value())
		}
		if !matched {
			return RuleEvaluationResult{Rule: cr.rule, Matches: false}, nil
		}
	}

	return RuleEvaluationResult{Rule: cr.rule, Matches: true}, nil
}

func derefOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func attrsOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
