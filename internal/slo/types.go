// Package slo implements Service Level Objective thresholds over cost
// snapshots — pass/warning/violation classification and blocking-deploy
// decisions — plus a burn-rate calculator that projects time-to-breach
// from historical snapshots via linear regression. Grounded on
// original_source/src/engines/slo/{slo_types,burn_rate}.rs.
package slo

import (
	"fmt"
	"time"
)

// Type names what an SLO measures.
type Type string

const (
	TypeMonthlyBudget  Type = "monthly_budget"
	TypeModuleBudget   Type = "module_budget"
	TypeServiceBudget  Type = "service_budget"
	TypeResourceBudget Type = "resource_budget"
	TypeCostGrowthRate Type = "cost_growth_rate"
	TypeResourceCount  Type = "resource_count"
)

// EnforcementLevel governs what happens when an SLO is violated.
type EnforcementLevel string

const (
	EnforcementObserve     EnforcementLevel = "observe"
	EnforcementWarn        EnforcementLevel = "warn"
	EnforcementBlock       EnforcementLevel = "block"
	EnforcementStrictBlock EnforcementLevel = "strict_block"
)

// Threshold configures the limit an SLO checks actual values against.
type Threshold struct {
	MaxValue                float64  `json:"max_value" yaml:"max_value"`
	MinValue                *float64 `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	WarningThresholdPercent float64  `json:"warning_threshold_percent,omitempty" yaml:"warning_threshold_percent,omitempty"` // percent of MaxValue, default 80
	TimeWindow              string   `json:"time_window,omitempty" yaml:"time_window,omitempty"`                            // e.g. "30d"
	UseBaseline             bool     `json:"use_baseline,omitempty" yaml:"use_baseline,omitempty"`
	BaselineMultiplier      *float64 `json:"baseline_multiplier,omitempty" yaml:"baseline_multiplier,omitempty"`
}

func (t Threshold) warningPercent() float64 {
	if t.WarningThresholdPercent <= 0 {
		return 80.0
	}
	return t.WarningThresholdPercent
}

// SLO is one Service Level Objective: a named threshold check over a
// target (module, service, or "global"), with an owner and enforcement
// policy.
type SLO struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        Type              `json:"kind" yaml:"kind"`
	Target      string            `json:"target" yaml:"target"`
	Threshold   Threshold         `json:"threshold" yaml:"threshold"`
	Enforcement EnforcementLevel  `json:"enforcement" yaml:"enforcement"`
	Owner       string            `json:"owner" yaml:"owner"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Tags        map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// New creates an SLO stamped with now as its creation time.
func New(id, name, description string, kind Type, target string, threshold Threshold, enforcement EnforcementLevel, owner string, now time.Time) SLO {
	return SLO{
		ID: id, Name: name, Description: description, Kind: kind, Target: target,
		Threshold: threshold, Enforcement: enforcement, Owner: owner, CreatedAt: now,
	}
}

// ShouldBlock reports whether a violation of this SLO should block the
// pipeline.
func (s SLO) ShouldBlock() bool {
	return s.Enforcement == EnforcementBlock || s.Enforcement == EnforcementStrictBlock
}

// RequiresStrictApproval reports whether overriding a violation needs an
// explicit approval, not just a block.
func (s SLO) RequiresStrictApproval() bool {
	return s.Enforcement == EnforcementStrictBlock
}

// WarningThreshold returns the absolute value at which a Warning status
// begins.
func (s SLO) WarningThreshold() float64 {
	return s.Threshold.MaxValue * (s.Threshold.warningPercent() / 100)
}

// IsWarning reports whether value falls in [WarningThreshold, MaxValue).
func (s SLO) IsWarning(value float64) bool {
	w := s.WarningThreshold()
	return value >= w && value < s.Threshold.MaxValue
}

// IsViolation reports whether value exceeds MaxValue.
func (s SLO) IsViolation(value float64) bool {
	return value > s.Threshold.MaxValue
}

// Status is the outcome of checking one value against one SLO.
type Status string

const (
	StatusPass      Status = "pass"
	StatusWarning   Status = "warning"
	StatusViolation Status = "violation"
	StatusNoData    Status = "no_data"
)

// Evaluation is the recorded result of checking one SLO against one
// actual value.
type Evaluation struct {
	SLOID                string
	SLOName              string
	Status               Status
	ActualValue          float64
	ThresholdValue       float64
	ThresholdUsagePercent float64
	EvaluatedAt          time.Time
	Message              string
	Affected             []string
	BurnRisk             *Risk
}

// Evaluate checks value against the SLO's threshold and produces a
// message matching original_source's exact phrasing.
func (s SLO) Evaluate(value float64, now time.Time) Evaluation {
	var status Status
	switch {
	case s.IsViolation(value):
		status = StatusViolation
	case s.IsWarning(value):
		status = StatusWarning
	default:
		status = StatusPass
	}

	usage := 0.0
	if s.Threshold.MaxValue != 0 {
		usage = (value / s.Threshold.MaxValue) * 100
	}

	var message string
	switch status {
	case StatusPass:
		message = fmt.Sprintf("Within SLO: $%.2f of $%.2f (%.1f%%)", value, s.Threshold.MaxValue, usage)
	case StatusWarning:
		message = fmt.Sprintf("Approaching limit: $%.2f of $%.2f (%.1f%%)", value, s.Threshold.MaxValue, usage)
	case StatusViolation:
		message = fmt.Sprintf("SLO violated: $%.2f exceeds $%.2f (%.1f%%)", value, s.Threshold.MaxValue, usage)
	}

	return Evaluation{
		SLOID: s.ID, SLOName: s.Name, Status: status,
		ActualValue: value, ThresholdValue: s.Threshold.MaxValue, ThresholdUsagePercent: usage,
		EvaluatedAt: now, Message: message, Affected: []string{s.Target},
	}
}

// Config is the on-disk collection of every configured SLO.
type Config struct {
	Version string `json:"version" yaml:"version"`
	SLOs    []SLO  `json:"slos" yaml:"slos"`
}

// Get returns the SLO with the given ID.
func (c Config) Get(id string) (SLO, bool) {
	for _, s := range c.SLOs {
		if s.ID == id {
			return s, true
		}
	}
	return SLO{}, false
}

// ForTarget returns every SLO whose Target matches target.
func (c Config) ForTarget(target string) []SLO {
	var out []SLO
	for _, s := range c.SLOs {
		if s.Target == target {
			out = append(out, s)
		}
	}
	return out
}

// GlobalBudget returns the monthly-budget SLO targeting "global", if any.
func (c Config) GlobalBudget() (SLO, bool) {
	for _, s := range c.SLOs {
		if s.Kind == TypeMonthlyBudget && s.Target == "global" {
			return s, true
		}
	}
	return SLO{}, false
}
