// Package baseline implements the expected-cost comparator: stored
// per-module/service/global cost expectations checked against observed
// spend, classified by variance severity. Grounded on
// original_source/src/engines/baselines/{baseline_types,baselines_manager}.rs
// and, for the windowed-comparison idiom, the teacher's (now removed)
// internal/detection/anomaly.go.
package baseline

import "time"

// Baseline is an expected monthly cost for a module, service, or the whole
// estate, with an acceptable variance band.
type Baseline struct {
	Name                      string            `json:"name" yaml:"name"`
	ExpectedMonthlyCost       float64           `json:"expected_monthly_cost" yaml:"expected_monthly_cost"`
	AcceptableVariancePercent float64           `json:"acceptable_variance_percent" yaml:"acceptable_variance_percent"`
	LastUpdated               string            `json:"last_updated" yaml:"last_updated"`
	Justification             string            `json:"justification" yaml:"justification"`
	Owner                     string            `json:"owner" yaml:"owner"`
	Reference                 string            `json:"reference,omitempty" yaml:"reference,omitempty"`
	Tags                      map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// New creates a Baseline with the default 10% variance band.
func New(name string, expectedMonthlyCost float64, justification, owner string, now time.Time) Baseline {
	return Baseline{
		Name:                      name,
		ExpectedMonthlyCost:       expectedMonthlyCost,
		AcceptableVariancePercent: 10.0,
		LastUpdated:               now.Format(time.RFC3339),
		Justification:             justification,
		Owner:                     owner,
	}
}

// UpperBound returns expected cost plus the acceptable variance.
func (b Baseline) UpperBound() float64 {
	return b.ExpectedMonthlyCost * (1 + b.AcceptableVariancePercent/100)
}

// LowerBound returns expected cost minus the acceptable variance.
func (b Baseline) LowerBound() float64 {
	return b.ExpectedMonthlyCost * (1 - b.AcceptableVariancePercent/100)
}

// IsStale reports whether this baseline was last updated more than
// reviewCadenceDays ago, as of now. A malformed LastUpdated counts as stale.
func (b Baseline) IsStale(reviewCadenceDays int, now time.Time) bool {
	last, err := time.Parse(time.RFC3339, b.LastUpdated)
	if err != nil {
		return true
	}
	return now.Sub(last).Hours()/24 > float64(reviewCadenceDays)
}

// StatusKind classifies an actual cost relative to a baseline.
type StatusKind string

const (
	StatusWithin     StatusKind = "within"
	StatusExceeded   StatusKind = "exceeded"
	StatusBelow      StatusKind = "below"
	StatusNoBaseline StatusKind = "no_baseline"
)

// Status is the result of comparing an actual cost to a baseline.
type Status struct {
	Kind            StatusKind
	Expected        float64
	Actual          float64
	VariancePercent float64
}

// CheckVariance compares actualCost against the baseline's expected cost
// and acceptable band.
func (b Baseline) CheckVariance(actualCost float64) Status {
	variance := absPercent(actualCost, b.ExpectedMonthlyCost)
	if variance <= b.AcceptableVariancePercent {
		return Status{Kind: StatusWithin, Expected: b.ExpectedMonthlyCost, Actual: actualCost, VariancePercent: variance}
	}
	if actualCost > b.ExpectedMonthlyCost {
		return Status{Kind: StatusExceeded, Expected: b.ExpectedMonthlyCost, Actual: actualCost, VariancePercent: variance}
	}
	return Status{Kind: StatusBelow, Expected: b.ExpectedMonthlyCost, Actual: actualCost, VariancePercent: variance}
}

func absPercent(actual, expected float64) float64 {
	if expected == 0 {
		return 0
	}
	v := (actual - expected) / expected * 100
	if v < 0 {
		return -v
	}
	return v
}

// Severity classifies a variance percentage into a display band, grounded
// on calculate_severity in original_source's baselines_manager.rs.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// VarianceSeverity bands an Exceeded variance into a severity; callers
// should treat a Below status as Info regardless of magnitude, matching
// original_source's "below baseline might be good" note.
func VarianceSeverity(variancePercent float64) Severity {
	switch {
	case variancePercent > 50:
		return SeverityCritical
	case variancePercent > 25:
		return SeverityHigh
	case variancePercent > 10:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Violation reports one module/service/global baseline breach.
// RegressionType is filled in by the caller (the Pipeline Coordinator,
// which has visibility into the change set) using its regression
// classifier; it is left empty when no change set was available for
// classification.
type Violation struct {
	Name               string
	BaselineType       string
	ExpectedCost       float64
	ActualCost         float64
	VariancePercent    float64
	AcceptableVariance float64
	Severity           Severity
	RegressionType     string
	Owner              string
	Justification      string
}

// Metadata carries review bookkeeping for a baseline set.
type Metadata struct {
	LastReviewed      string `json:"last_reviewed,omitempty" yaml:"last_reviewed,omitempty"`
	ReviewCadenceDays int    `json:"review_cadence_days,omitempty" yaml:"review_cadence_days,omitempty"`
	OwnerTeam         string `json:"owner_team,omitempty" yaml:"owner_team,omitempty"`
}

// Config is the on-disk baselines document: one optional global baseline
// plus per-module and per-service baselines.
type Config struct {
	Version  string              `json:"version" yaml:"version"`
	Global   *Baseline           `json:"global,omitempty" yaml:"global,omitempty"`
	Modules  map[string]Baseline `json:"modules,omitempty" yaml:"modules,omitempty"`
	Services map[string]Baseline `json:"services,omitempty" yaml:"services,omitempty"`
	Metadata *Metadata           `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewConfig creates an empty Config with a 90-day default review cadence.
func NewConfig(now time.Time) Config {
	reviewed := now.Format(time.RFC3339)
	return Config{
		Version:  "1.0",
		Modules:  make(map[string]Baseline),
		Services: make(map[string]Baseline),
		Metadata: &Metadata{LastReviewed: reviewed, ReviewCadenceDays: 90},
	}
}

func (c Config) reviewCadence() int {
	if c.Metadata != nil && c.Metadata.ReviewCadenceDays > 0 {
		return c.Metadata.ReviewCadenceDays
	}
	return 90
}

// StaleEntry names one stale baseline for reporting.
type StaleEntry struct {
	Name     string
	Baseline Baseline
}

// StaleBaselines returns every baseline (global/module/service) whose
// LastUpdated predates the configured review cadence.
func (c Config) StaleBaselines(now time.Time) []StaleEntry {
	cadence := c.reviewCadence()
	var stale []StaleEntry
	if c.Global != nil && c.Global.IsStale(cadence, now) {
		stale = append(stale, StaleEntry{Name: "global", Baseline: *c.Global})
	}
	for name, b := range c.Modules {
		if b.IsStale(cadence, now) {
			stale = append(stale, StaleEntry{Name: name, Baseline: b})
		}
	}
	for name, b := range c.Services {
		if b.IsStale(cadence, now) {
			stale = append(stale, StaleEntry{Name: name, Baseline: b})
		}
	}
	return stale
}
