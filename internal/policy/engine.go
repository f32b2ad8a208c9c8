package policy

import (
	"log/slog"
	"time"

	"github.com/costpilot/costpilot/internal/dsl"
	"github.com/costpilot/costpilot/internal/exemption"
	"github.com/costpilot/costpilot/internal/governance"
)

// CostEstimate is the monthly-cost figure the Pipeline Coordinator hands
// the engine alongside a change set. ModuleCosts attributes spend to each
// "module.<name>" scope for per-module budget rules; resources with no
// module attribution roll up under "root".
type CostEstimate struct {
	Monthly     float64            `json:"monthly"`
	ModuleCosts map[string]float64 `json:"module_costs,omitempty"`
}

// Violation is one policy breach surfaced by the engine.
type Violation struct {
	PolicyID       string
	PolicyName     string
	Severity       governance.Severity
	ResourceID     string
	Message        string
	ActualValue    string
	ExpectedValue  string
	RegressionType RegressionType
}

// Result is the outcome of evaluating every enforceable policy against one
// change set and cost estimate. AppliedExemptions lists the ID of every
// exemption that suppressed a would-be violation during this run, in the
// order encountered.
type Result struct {
	Violations        []Violation
	Warnings          []string
	AppliedExemptions []string
}

// Passed reports whether no blocking violation was found. Non-blocking
// (below Error severity) violations and warnings do not fail a Result.
func (r Result) Passed() bool {
	for _, v := range r.Violations {
		if v.Severity.Blocking() {
			return false
		}
	}
	return true
}

func (r *Result) addViolation(v Violation) { r.Violations = append(r.Violations, v) }
func (r *Result) addWarning(w string)      { r.Warnings = append(r.Warnings, w) }

// Engine evaluates a Repository's enforceable policies against a change
// set and cost estimate, applying exemptions before a breach is counted.
// Evaluation never fails the calling pipeline: a malformed rule body is
// logged and skipped (fail-open per-rule) rather than aborting the run.
// Engine.Evaluate does no zero-network check of its own; the pipeline
// coordinator validates its zero-network token before each run and only
// logs a failure, returning no error for it.
type Engine struct {
	repo       *Repository
	exemptVal  *exemption.Validator
	exemptFile *exemption.File
	clock      governance.Clock
	logger     *slog.Logger
	dslEval    *dsl.Evaluator
}

// NewEngine creates an Engine with no exemptions file loaded. A DSL
// evaluator is built eagerly so DSLRule policies can compile on first use;
// a failure here (only possible if the CEL environment itself can't be
// constructed) disables DSL rule evaluation rather than failing engine
// construction, since most policies never use one.
func NewEngine(repo *Repository, clock governance.Clock, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "policy.Engine")
	dslEval, err := dsl.NewEvaluator(logger)
	if err != nil {
		logger.Warn("failed to build DSL evaluator, DSLRule policies will be skipped", "error", err)
		dslEval = nil
	}
	return &Engine{repo: repo, clock: clock, logger: logger, dslEval: dslEval}
}

// WithExemptions attaches an exemptions file and its validator; violations
// matching an active exemption are filtered from the result.
func (e *Engine) WithExemptions(v *exemption.Validator, file exemption.File) *Engine {
	e.exemptVal = v
	e.exemptFile = &file
	return e
}

// checkExemption reports whether an active exemption currently covers
// p.Name and resourceID. When one does, every matching exemption's ID is
// recorded on result.AppliedExemptions and the policy's exemption counter
// is bumped, so a suppressed violation still leaves an audit trail.
func (e *Engine) checkExemption(p Policy, resourceID string, result *Result) bool {
	if e.exemptVal == nil || e.exemptFile == nil {
		return false
	}
	matches := e.exemptVal.FindExemptions(*e.exemptFile, p.Name, resourceID)
	if len(matches) == 0 {
		return false
	}
	for _, m := range matches {
		result.AppliedExemptions = append(result.AppliedExemptions, m.ID)
	}
	_ = e.repo.Mutate(p.ID, func(mp *Policy) { mp.Metrics.RecordExemption() })
	return true
}

// Evaluate runs every enforceable policy's rule against changes and cost,
// recording evaluation/violation metrics on each policy as it goes.
func (e *Engine) Evaluate(changes ChangeSet, cost CostEstimate) Result {
	result := Result{}
	now := e.clock.Now()

	for _, p := range e.repo.Enforceable(now) {
		hasViolation := e.evaluatePolicy(p, changes, cost, &result)
		_ = e.repo.Mutate(p.ID, func(mp *Policy) {
			mp.Metrics.RecordEvaluation(hasViolation, now)
		})
	}

	return result
}

// evaluatePolicy dispatches on the policy's Spec type and reports whether
// it produced at least one (non-exempted) violation.
func (e *Engine) evaluatePolicy(p Policy, changes ChangeSet, cost CostEstimate, result *Result) bool {
	switch spec := p.Spec.(type) {
	case BudgetRule:
		return e.evaluateBudget(p, spec, cost, result)
	case ResourceCountRule:
		return e.evaluateResourceCount(p, spec, changes, result)
	case EC2FamilyRule:
		return e.evaluateEC2Family(p, spec, changes, result)
	case S3LifecycleRule:
		return e.evaluateS3Lifecycle(p, spec, changes, result)
	case LambdaConcurrencyRule:
		return e.evaluateLambdaConcurrency(p, spec, changes, result)
	case DynamoBillingModeRule:
		return e.evaluateDynamoBilling(p, spec, changes, result)
	case DSLRule:
		return e.evaluateDSL(p, spec, changes, cost, result)
	case nil:
		e.logger.Warn("policy has no rule body, skipping", "policy", p.Name)
		return false
	default:
		e.logger.Warn("policy has an unrecognized rule type, skipping", "policy", p.Name)
		return false
	}
}

func (e *Engine) evaluateBudget(p Policy, rule BudgetRule, cost CostEstimate, result *Result) bool {
	actual := cost.Monthly
	scopeLabel := "global"
	if rule.Scope != "" {
		actual = cost.ModuleCosts[rule.Scope]
		scopeLabel = rule.Scope
	}

	if actual > rule.MonthlyLimit {
		if e.checkExemption(p, scopeLabel, result) {
			return false
		}
		result.addViolation(Violation{
			PolicyID: p.ID, PolicyName: p.Name, Severity: p.Severity, ResourceID: scopeLabel,
			Message:       "monthly cost exceeds budget limit for " + scopeLabel,
			ActualValue:   formatUSD(actual),
			ExpectedValue: "<= " + formatUSD(rule.MonthlyLimit),
		})
		return true
	}
	if actual > rule.MonthlyLimit*rule.warningThreshold() {
		result.addWarning("monthly cost for " + scopeLabel + " is approaching its budget limit")
	}
	return false
}

func (e *Engine) evaluateResourceCount(p Policy, rule ResourceCountRule, changes ChangeSet, result *Result) bool {
	count := 0
	for _, c := range changes.Changes {
		if c.ResourceType == rule.ResourceType && c.Action != ActionDelete {
			count++
		}
	}
	if count <= rule.MaxCount {
		return false
	}
	if e.checkExemption(p, rule.ResourceType, result) {
		return false
	}
	result.addViolation(Violation{
		PolicyID: p.ID, PolicyName: p.Name, Severity: p.Severity, ResourceID: rule.ResourceType,
		Message:       "resource count exceeds configured limit",
		ActualValue:   itoaCount(count),
		ExpectedValue: "<= " + itoaCount(rule.MaxCount),
	})
	return true
}

func (e *Engine) evaluateEC2Family(p Policy, rule EC2FamilyRule, changes ChangeSet, result *Result) bool {
	violated := false
	for _, c := range changes.Changes {
		if c.ResourceType != "aws_instance" || c.Action == ActionDelete {
			continue
		}
		instanceType, _ := c.NewConfig["instance_type"].(string)
		if instanceType == "" {
			continue
		}
		family := ResourceFamily(instanceType)
		size := ResourceSize(instanceType)

		if len(rule.AllowedFamilies) > 0 && !containsString(rule.AllowedFamilies, family) {
			if !e.checkExemption(p, c.ResourceID, result) {
				result.addViolation(Violation{
					PolicyID: p.ID, PolicyName: p.Name, Severity: p.Severity, ResourceID: c.ResourceID,
					Message:       "EC2 instance family not in allowed list",
					ActualValue:   family,
					ExpectedValue: "one of " + joinStrings(rule.AllowedFamilies),
				})
				violated = true
			}
		}
		if rule.MaxSize != "" && exceedsSize(size, rule.MaxSize) {
			if !e.checkExemption(p, c.ResourceID, result) {
				result.addViolation(Violation{
					PolicyID: p.ID, PolicyName: p.Name, Severity: p.Severity, ResourceID: c.ResourceID,
					Message:       "EC2 instance size exceeds limit",
					ActualValue:   size,
					ExpectedValue: "<= " + rule.MaxSize,
				})
				violated = true
			}
		}
	}
	return violated
}

func (e *Engine) evaluateS3Lifecycle(p Policy, rule S3LifecycleRule, changes ChangeSet, result *Result) bool {
	if !rule.Enabled {
		return false
	}
	violated := false
	for _, c := range changes.Changes {
		if c.ResourceType != "aws_s3_bucket" || c.Action == ActionDelete {
			continue
		}
		if _, has := c.NewConfig["lifecycle_rule"]; !has {
			if !e.checkExemption(p, c.ResourceID, result) {
				result.addViolation(Violation{
					PolicyID: p.ID, PolicyName: p.Name, Severity: p.Severity, ResourceID: c.ResourceID,
					Message: "S3 bucket missing lifecycle rules",
					ActualValue: "no lifecycle rules", ExpectedValue: "lifecycle_rule configured",
				})
				violated = true
			}
		}
	}
	return violated
}

func (e *Engine) evaluateLambdaConcurrency(p Policy, rule LambdaConcurrencyRule, changes ChangeSet, result *Result) bool {
	if !rule.Enabled {
		return false
	}
	violated := false
	for _, c := range changes.Changes {
		if c.ResourceType != "aws_lambda_function" || c.Action == ActionDelete {
			continue
		}
		if _, has := c.NewConfig["reserved_concurrent_executions"]; !has {
			if !e.checkExemption(p, c.ResourceID, result) {
				result.addViolation(Violation{
					PolicyID: p.ID, PolicyName: p.Name, Severity: p.Severity, ResourceID: c.ResourceID,
					Message: "Lambda function missing a concurrency limit",
					ActualValue: "no concurrency limit", ExpectedValue: "reserved_concurrent_executions configured",
				})
				violated = true
			}
		}
	}
	return violated
}

// evaluateDSL checks rule.Rule against every change in the set, using the
// resource's own config as EvaluationContext.Attributes and the overall
// monthly cost as EvaluationContext.MonthlyCost (CostIncreasePercent is
// left unset: the engine has no baseline access of its own). A Block
// match becomes a violation; RequireApproval and Warn both become a
// warning, since the engine itself has no approval-queue to route to.
func (e *Engine) evaluateDSL(p Policy, rule DSLRule, changes ChangeSet, cost CostEstimate, result *Result) bool {
	if e.dslEval == nil {
		e.logger.Warn("DSL evaluator unavailable, skipping DSLRule policy", "policy", p.Name)
		return false
	}
	compiled, err := e.dslEval.Compile(rule.Rule)
	if err != nil {
		e.logger.Warn("failed to compile DSL rule, skipping", "policy", p.Name, "error", err)
		return false
	}

	monthly := cost.Monthly
	violated := false
	for _, c := range changes.Changes {
		ctx := dsl.EvaluationContext{ResourceType: c.ResourceType, MonthlyCost: &monthly, Attributes: c.NewConfig}
		eval, err := e.dslEval.Evaluate(compiled, ctx)
		if err != nil {
			e.logger.Warn("DSL rule evaluation error, skipping resource", "policy", p.Name, "resource", c.ResourceID, "error", err)
			continue
		}
		if !eval.Matches {
			continue
		}
		if e.checkExemption(p, c.ResourceID, result) {
			continue
		}
		switch rule.Rule.Action.Kind {
		case dsl.ActionBlock:
			result.addViolation(Violation{
				PolicyID: p.ID, PolicyName: p.Name, Severity: p.Severity, ResourceID: c.ResourceID,
				Message: ruleMessage(rule.Rule, "blocked by DSL rule"),
			})
			violated = true
		case dsl.ActionRequireApproval:
			result.addWarning(c.ResourceID + ": " + ruleMessage(rule.Rule, "requires approval"))
		case dsl.ActionWarn:
			result.addWarning(c.ResourceID + ": " + ruleMessage(rule.Rule, "flagged by DSL rule"))
		case dsl.ActionAudit:
			// no violation or warning; the rule matching is itself the record.
		}
	}
	return violated
}

func ruleMessage(r dsl.Rule, fallback string) string {
	if r.Action.Message != "" {
		return r.Action.Message
	}
	return fallback
}

func (e *Engine) evaluateDynamoBilling(p Policy, rule DynamoBillingModeRule, changes ChangeSet, result *Result) bool {
	if !rule.PreferProvisioned {
		return false
	}
	violated := false
	for _, c := range changes.Changes {
		if c.ResourceType != "aws_dynamodb_table" || c.Action == ActionDelete {
			continue
		}
		mode, _ := c.NewConfig["billing_mode"].(string)
		if mode == "" {
			mode = "PROVISIONED"
		}
		if mode == "PAY_PER_REQUEST" {
			if !e.checkExemption(p, c.ResourceID, result) {
				result.addViolation(Violation{
					PolicyID: p.ID, PolicyName: p.Name, Severity: p.Severity, ResourceID: c.ResourceID,
					Message: "DynamoDB table uses on-demand billing",
					ActualValue: "PAY_PER_REQUEST", ExpectedValue: "PROVISIONED",
				})
				violated = true
			}
		}
	}
	return violated
}
