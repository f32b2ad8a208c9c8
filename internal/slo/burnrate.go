package slo

import (
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Risk classifies how urgently a burn-rate trend threatens to breach its
// SLO.
type Risk string

const (
	RiskLow      Risk = "low"
	RiskMedium   Risk = "medium"
	RiskHigh     Risk = "high"
	RiskCritical Risk = "critical"
)

var riskSeverity = map[Risk]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3}

// Severity returns an ordinal (0-3) for comparing two Risk values.
func (r Risk) Severity() int {
	return riskSeverity[r]
}

// RequiresAction reports whether this risk level warrants intervention
// before the next deploy.
func (r Risk) RequiresAction() bool {
	return r == RiskHigh || r == RiskCritical
}

// BurnAnalysis is the projected trajectory of one SLO's cost against its
// limit, derived from a linear regression over historical snapshots.
type BurnAnalysis struct {
	SLOID         string
	SLOName       string
	BurnRate      float64 // dollars per day
	ProjectedCost float64 // projected cost daysAhead days after the latest snapshot
	SLOLimit      float64
	DaysToBreach  *float64
	Risk          Risk
	Confidence    float64
	TrendSlope    float64
	TrendIntercept float64
	RSquared      float64
	AnalyzedAt    time.Time
}

// BurnReport aggregates burn analyses across every SLO that had enough
// history to analyze.
type BurnReport struct {
	Analyses    []BurnAnalysis
	OverallRisk Risk
	SLOsAtRisk  int
}

// NewBurnReport aggregates analyses into a BurnReport. OverallRisk is the
// maximum severity among analyses, defaulting to RiskLow when empty.
func NewBurnReport(analyses []BurnAnalysis) BurnReport {
	overall := RiskLow
	atRisk := 0
	for _, a := range analyses {
		if a.Risk.Severity() > overall.Severity() {
			overall = a.Risk
		}
		if a.Risk.RequiresAction() {
			atRisk++
		}
	}
	return BurnReport{Analyses: analyses, OverallRisk: overall, SLOsAtRisk: atRisk}
}

// RequiresAction reports whether any analyzed SLO needs intervention.
func (r BurnReport) RequiresAction() bool {
	return r.SLOsAtRisk > 0
}

// CriticalSLOs returns every analysis whose risk is RiskCritical.
func (r BurnReport) CriticalSLOs() []BurnAnalysis {
	var out []BurnAnalysis
	for _, a := range r.Analyses {
		if a.Risk == RiskCritical {
			out = append(out, a)
		}
	}
	return out
}

const (
	defaultMinSnapshots = 3
	defaultMinRSquared  = 0.7
	daysAhead           = 30.0
)

// Calculator projects cost trajectories from historical snapshots via
// ordinary least squares, grounded on
// original_source/src/engines/slo/burn_rate.rs's BurnRateCalculator.
type Calculator struct {
	minSnapshots int
	minRSquared  float64
	logger       *slog.Logger
}

// NewCalculator returns a Calculator with the teacher's default
// thresholds: at least 3 snapshots, and a confidence penalty below an R²
// of 0.7.
func NewCalculator(logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{minSnapshots: defaultMinSnapshots, minRSquared: defaultMinRSquared, logger: logger.With("component", "slo.Calculator")}
}

// WithThresholds overrides the minimum snapshot count and R² confidence
// threshold.
func WithThresholds(logger *slog.Logger, minSnapshots int, minRSquared float64) *Calculator {
	c := NewCalculator(logger)
	c.minSnapshots = minSnapshots
	c.minRSquared = minRSquared
	return c
}

type dataPoint struct {
	day  float64
	cost float64
}

// Analyze projects s's burn rate from snapshots. It returns false if
// there are fewer usable data points than minSnapshots, or if s's Kind
// has no defined cost series (ResourceBudget, CostGrowthRate,
// ResourceCount).
func (c *Calculator) Analyze(s SLO, snapshots []CostSnapshot, now time.Time) (BurnAnalysis, bool) {
	if len(snapshots) < c.minSnapshots {
		return BurnAnalysis{}, false
	}

	points := extractDataPoints(s, snapshots)
	if len(points) < c.minSnapshots {
		return BurnAnalysis{}, false
	}

	slope, intercept, rSquared := linearRegression(points)
	confidence := rSquared
	if rSquared < c.minRSquared {
		confidence = rSquared * 0.7
	}

	last := points[len(points)-1]
	currentDay, currentCost := last.day, last.cost
	projectedCost := slope*(currentDay+daysAhead) + intercept

	var daysToBreach *float64
	if slope > 0.0 && currentCost < s.Threshold.MaxValue {
		days := (s.Threshold.MaxValue-intercept)/slope - currentDay
		if days > 0.0 {
			daysToBreach = &days
		}
	}

	risk := classifyRisk(daysToBreach, currentCost, s.Threshold.MaxValue)

	c.logger.Debug("analyzed slo burn rate", "slo_id", s.ID, "slope", slope, "r_squared", rSquared, "risk", risk)

	return BurnAnalysis{
		SLOID: s.ID, SLOName: s.Name, BurnRate: slope, ProjectedCost: projectedCost,
		SLOLimit: s.Threshold.MaxValue, DaysToBreach: daysToBreach, Risk: risk,
		Confidence: confidence, TrendSlope: slope, TrendIntercept: intercept, RSquared: rSquared,
		AnalyzedAt: now,
	}, true
}

// AnalyzeAll analyzes every SLO in slos, silently skipping any that don't
// have enough history or a supported Kind, and wraps the result in a
// BurnReport.
func (c *Calculator) AnalyzeAll(slos []SLO, snapshots []CostSnapshot, now time.Time) BurnReport {
	var analyses []BurnAnalysis
	for _, s := range slos {
		if a, ok := c.Analyze(s, snapshots, now); ok {
			analyses = append(analyses, a)
		}
	}
	return NewBurnReport(analyses)
}

// extractDataPoints sorts snapshots by timestamp, anchors day 0 at the
// earliest one, and maps each snapshot to the (day, cost) pair relevant
// to s's Kind. Snapshot kinds this SLO doesn't track a cost series for
// (ResourceBudget, CostGrowthRate, ResourceCount) yield no points.
func extractDataPoints(s SLO, snapshots []CostSnapshot) []dataPoint {
	sorted := make([]CostSnapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	if len(sorted) == 0 {
		return nil
	}
	origin := sorted[0].Timestamp

	moduleName := strings.TrimPrefix(s.Target, "module.")

	var points []dataPoint
	for _, snap := range sorted {
		day := snap.Timestamp.Sub(origin).Hours() / 24

		switch s.Kind {
		case TypeMonthlyBudget:
			points = append(points, dataPoint{day: day, cost: snap.TotalMonthlyCost})
		case TypeModuleBudget:
			cost, ok := snap.ModuleCosts[moduleName]
			if !ok {
				continue
			}
			points = append(points, dataPoint{day: day, cost: cost})
		case TypeServiceBudget:
			sum := 0.0
			matched := false
			for name, cost := range snap.ServiceCosts {
				if strings.Contains(s.Target, name) {
					sum += cost
					matched = true
				}
			}
			if !matched {
				continue
			}
			points = append(points, dataPoint{day: day, cost: sum})
		default:
			continue
		}
	}
	return points
}

// linearRegression fits y = slope*x + intercept via ordinary least
// squares and reports the coefficient of determination, clamped to
// [0, 1].
func linearRegression(points []dataPoint) (slope, intercept, rSquared float64) {
	n := float64(len(points))
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.day
		sumY += p.cost
	}
	meanX, meanY := sumX/n, sumY/n

	var num, den float64
	for _, p := range points {
		dx := p.day - meanX
		num += dx * (p.cost - meanY)
		den += dx * dx
	}
	if den != 0 {
		slope = num / den
	}
	intercept = meanY - slope*meanX

	var ssRes, ssTot float64
	for _, p := range points {
		predicted := slope*p.day + intercept
		ssRes += (p.cost - predicted) * (p.cost - predicted)
		ssTot += (p.cost - meanY) * (p.cost - meanY)
	}
	if ssTot != 0 {
		rSquared = 1 - ssRes/ssTot
	}
	if rSquared < 0 {
		rSquared = 0
	}
	if rSquared > 1 {
		rSquared = 1
	}
	return slope, intercept, rSquared
}

// classifyRisk checks the already-exceeded case first: a current cost at
// or above the limit is always Critical, regardless of trend. Otherwise
// it buckets by days remaining until projected breach.
func classifyRisk(daysToBreach *float64, current, limit float64) Risk {
	if current >= limit {
		return RiskCritical
	}
	if daysToBreach == nil {
		return RiskLow
	}
	switch {
	case *daysToBreach < 7.0:
		return RiskCritical
	case *daysToBreach < 14.0:
		return RiskHigh
	case *daysToBreach < 30.0:
		return RiskMedium
	default:
		return RiskLow
	}
}
