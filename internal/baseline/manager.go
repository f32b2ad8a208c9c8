package baseline

// ComparisonResult aggregates the outcome of comparing a cost snapshot
// against every applicable baseline.
type ComparisonResult struct {
	Violations      []Violation
	WithinCount     int
	NoBaselineCount int
}

// HasCritical reports whether any violation is Critical severity.
func (r ComparisonResult) HasCritical() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// FilterBySeverity returns only the violations matching severity.
func (r ComparisonResult) FilterBySeverity(severity Severity) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == severity {
			out = append(out, v)
		}
	}
	return out
}

// CompareModuleCosts checks each named module's actual cost against its
// configured baseline. Modules with no baseline are counted but produce no
// violation: absence of a baseline is not itself a finding.
func CompareModuleCosts(cfg Config, moduleCosts map[string]float64) ComparisonResult {
	result := ComparisonResult{}
	for name, actual := range moduleCosts {
		b, ok := cfg.Modules[name]
		if !ok {
			result.NoBaselineCount++
			continue
		}
		status := b.CheckVariance(actual)
		switch status.Kind {
		case StatusWithin:
			result.WithinCount++
		case StatusExceeded:
			result.Violations = append(result.Violations, Violation{
				Name:               name,
				BaselineType:       "module",
				ExpectedCost:       status.Expected,
				ActualCost:         status.Actual,
				VariancePercent:    status.VariancePercent,
				AcceptableVariance: b.AcceptableVariancePercent,
				Severity:           VarianceSeverity(status.VariancePercent),
				Owner:              b.Owner,
				Justification:      b.Justification,
			})
		case StatusBelow:
			result.Violations = append(result.Violations, Violation{
				Name:               name,
				BaselineType:       "module",
				ExpectedCost:       status.Expected,
				ActualCost:         status.Actual,
				VariancePercent:    status.VariancePercent,
				AcceptableVariance: b.AcceptableVariancePercent,
				Severity:           SeverityInfo,
				Owner:              b.Owner,
				Justification:      b.Justification,
			})
		}
	}
	return result
}

// CompareGlobal checks the estate-wide actual cost against the global
// baseline, if one is configured.
func CompareGlobal(cfg Config, actualTotal float64) (Violation, bool) {
	if cfg.Global == nil {
		return Violation{}, false
	}
	status := cfg.Global.CheckVariance(actualTotal)
	switch status.Kind {
	case StatusExceeded:
		return Violation{
			Name: "global", BaselineType: "global",
			ExpectedCost: status.Expected, ActualCost: status.Actual,
			VariancePercent: status.VariancePercent, AcceptableVariance: cfg.Global.AcceptableVariancePercent,
			Severity: VarianceSeverity(status.VariancePercent), Owner: cfg.Global.Owner, Justification: cfg.Global.Justification,
		}, true
	case StatusBelow:
		return Violation{
			Name: "global", BaselineType: "global",
			ExpectedCost: status.Expected, ActualCost: status.Actual,
			VariancePercent: status.VariancePercent, AcceptableVariance: cfg.Global.AcceptableVariancePercent,
			Severity: SeverityInfo, Owner: cfg.Global.Owner, Justification: cfg.Global.Justification,
		}, true
	default:
		return Violation{}, false
	}
}
