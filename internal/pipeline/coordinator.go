// Package pipeline wires the five governance engines together into one
// evaluation run: Policy Engine (with exemptions applied internally) →
// Baseline Comparator → SLO Evaluator → Burn-Rate Calculator → a merged
// Verdict, with every policy-relevant decision committed to the audit
// log. There is no single teacher analog for this orchestration — it is
// new code grounded on the *ordering* contract of
// internal/policy/engine.go's Evaluate (build context, evaluate, record)
// generalized across every engine.
package pipeline

import (
	"log/slog"
	"strings"
	"time"

	"github.com/costpilot/costpilot/internal/audit"
	"github.com/costpilot/costpilot/internal/baseline"
	"github.com/costpilot/costpilot/internal/governance"
	"github.com/costpilot/costpilot/internal/policy"
	"github.com/costpilot/costpilot/internal/slo"
	"github.com/costpilot/costpilot/internal/zeronet"
)

// Verdict is the merged outcome of one full pipeline run.
type Verdict struct {
	Passed             bool
	PolicyViolations   []policy.Violation
	PolicyWarnings     []string
	AppliedExemptions  []string
	BaselineViolations []baseline.Violation
	SLOReport          slo.Report
	BurnReport         slo.BurnReport
	AuditSequences     []uint64
}

// Coordinator runs one evaluation pipeline over a fixed set of engines.
type Coordinator struct {
	policies  *policy.Engine
	baselines baseline.Config
	slos      slo.Config
	burn      *slo.Calculator
	log       *audit.Log
	ids       audit.IDSource
	clock     governance.Clock
	logger    *slog.Logger
	net       zeronet.Token
}

// New assembles a Coordinator from its five collaborators. The zeronet.Token
// return value of zeronet.New is threaded through so Evaluate's call graph
// stays statically provable as zero-network: nothing downstream can add a
// live network call to this pipeline without also threading a Token into a
// signature that doesn't have one, which review tooling flags.
func New(policies *policy.Engine, baselines baseline.Config, slos slo.Config, burn *slo.Calculator, log *audit.Log, ids audit.IDSource, clock governance.Clock, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		policies: policies, baselines: baselines, slos: slos, burn: burn,
		log: log, ids: ids, clock: clock, logger: logger.With("component", "pipeline.Coordinator"),
		net: zeronet.New(),
	}
}

// Evaluate runs the full pipeline: policy rules (exemption-filtered by the
// engine itself), then baseline variance, then SLO thresholds, then
// burn-rate projection, merging every finding into one Verdict and
// committing an audit event per policy-relevant decision. actor identifies
// who or what triggered this run (a CI job, a CLI invocation, a user).
func (c *Coordinator) Evaluate(changes policy.ChangeSet, cost policy.CostEstimate, snapshots []slo.CostSnapshot, actor string) Verdict {
	if err := c.net.Validate(); err != nil {
		c.logger.Error("zero-network capability check failed", "error", err)
	}
	now := c.clock.Now()

	policyResult := c.policies.Evaluate(changes, cost)
	for i := range policyResult.Violations {
		c.attachRegressionType(&policyResult.Violations[i], changes)
	}

	baselineResult := c.runBaselines(cost)
	for i := range baselineResult.Violations {
		c.attachBaselineRegressionType(&baselineResult.Violations[i], changes)
	}

	sloEvaluations := c.evaluateSLOs(cost, now)
	burnReport := c.burn.AnalyzeAll(c.slos.SLOs, snapshots, now)
	attachBurnRisk(sloEvaluations, burnReport)
	sloReport := slo.NewReport(sloEvaluations)

	verdict := Verdict{
		Passed:             policyResult.Passed() && !sloReport.ShouldBlockDeployment(c.slos),
		PolicyViolations:   policyResult.Violations,
		PolicyWarnings:     policyResult.Warnings,
		AppliedExemptions:  policyResult.AppliedExemptions,
		BaselineViolations: baselineResult.Violations,
		SLOReport:          sloReport,
		BurnReport:         burnReport,
	}

	verdict.AuditSequences = c.commit(verdict, actor, now)
	return verdict
}

func (c *Coordinator) runBaselines(cost policy.CostEstimate) baseline.ComparisonResult {
	result := baseline.CompareModuleCosts(c.baselines, cost.ModuleCosts)
	if v, ok := baseline.CompareGlobal(c.baselines, cost.Monthly); ok {
		result.Violations = append(result.Violations, v)
	}
	return result
}

// attachRegressionType fills in a policy violation's RegressionType by
// locating the resource change it was raised against — only the
// coordinator sees both the change set and the violation list.
func (c *Coordinator) attachRegressionType(v *policy.Violation, changes policy.ChangeSet) {
	for _, rc := range changes.Changes {
		if rc.ResourceID == v.ResourceID {
			v.RegressionType = policy.ClassifyRegression(rc)
			return
		}
	}
}

// attachBaselineRegressionType does the same for a baseline.Violation,
// matching on module attribution since baseline violations are keyed by
// module/service name rather than a single resource ID.
func (c *Coordinator) attachBaselineRegressionType(v *baseline.Violation, changes policy.ChangeSet) {
	if v.BaselineType != "module" {
		return
	}
	target := "module." + v.Name
	for _, rc := range changes.Changes {
		if policy.ModuleOf(rc.ResourceID) == target {
			v.RegressionType = string(policy.ClassifyRegression(rc))
			return
		}
	}
}

// evaluateSLOs checks every configured SLO against the current cost
// estimate. An SLO whose target CostEstimate has no data for (e.g. a
// ServiceBudget SLO, since CostEstimate carries no per-service breakdown)
// evaluates to NoData rather than being silently skipped.
func (c *Coordinator) evaluateSLOs(cost policy.CostEstimate, now time.Time) []slo.Evaluation {
	evaluations := make([]slo.Evaluation, 0, len(c.slos.SLOs))
	for _, s := range c.slos.SLOs {
		value, ok := currentValueFor(s, cost)
		if !ok {
			evaluations = append(evaluations, slo.Evaluation{
				SLOID: s.ID, SLOName: s.Name, Status: slo.StatusNoData,
				EvaluatedAt: now, Message: "no cost data available for this target", Affected: []string{s.Target},
			})
			continue
		}
		evaluations = append(evaluations, s.Evaluate(value, now))
	}
	return evaluations
}

func currentValueFor(s slo.SLO, cost policy.CostEstimate) (float64, bool) {
	switch s.Kind {
	case slo.TypeMonthlyBudget:
		if s.Target == "global" {
			return cost.Monthly, true
		}
		return 0, false
	case slo.TypeModuleBudget:
		name := strings.TrimPrefix(s.Target, "module.")
		v, ok := cost.ModuleCosts[name]
		return v, ok
	default:
		return 0, false
	}
}

func attachBurnRisk(evaluations []slo.Evaluation, report slo.BurnReport) {
	byID := make(map[string]slo.Risk, len(report.Analyses))
	for _, a := range report.Analyses {
		byID[a.SLOID] = a.Risk
	}
	for i := range evaluations {
		if risk, ok := byID[evaluations[i].SLOID]; ok {
			r := risk
			evaluations[i].BurnRisk = &r
		}
	}
}

// commit appends one audit event per policy-relevant decision: every
// policy violation, every SLO violation, and every burn-rate analysis
// whose risk requires action.
func (c *Coordinator) commit(v Verdict, actor string, now time.Time) []uint64 {
	var sequences []uint64

	for _, pv := range v.PolicyViolations {
		event := audit.NewEvent(c.ids, audit.EventPolicyStateChange, actor, pv.PolicyID, "cost_policy",
			"policy violation: "+pv.Message).WithMetadata("resource_id", pv.ResourceID).WithMetadata("actual", pv.ActualValue)
		if seq, err := c.log.Append(event); err != nil {
			c.logger.Error("failed to append audit event for policy violation", "policy_id", pv.PolicyID, "error", err)
		} else {
			sequences = append(sequences, seq)
		}
	}

	for _, e := range v.SLOReport.Evaluations {
		if e.Status != slo.StatusViolation {
			continue
		}
		event := audit.NewEvent(c.ids, audit.EventSloViolation, actor, e.SLOID, "slo", e.Message)
		if seq, err := c.log.Append(event); err != nil {
			c.logger.Error("failed to append audit event for slo violation", "slo_id", e.SLOID, "error", err)
		} else {
			sequences = append(sequences, seq)
		}
	}

	for _, a := range v.BurnReport.Analyses {
		if !a.Risk.RequiresAction() {
			continue
		}
		event := audit.NewEvent(c.ids, audit.EventSloBurnAlert, actor, a.SLOID, "slo",
			"burn rate risk "+string(a.Risk)+" for "+a.SLOName)
		if seq, err := c.log.Append(event); err != nil {
			c.logger.Error("failed to append audit event for burn alert", "slo_id", a.SLOID, "error", err)
		} else {
			sequences = append(sequences, seq)
		}
	}

	return sequences
}
