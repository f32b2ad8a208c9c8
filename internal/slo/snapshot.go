package slo

import "time"

// CostSnapshot is one point-in-time cost observation, the input history
// the burn-rate calculator regresses over. Grounded on the CostSnapshot
// shape referenced throughout original_source/src/engines/slo/burn_rate.rs.
type CostSnapshot struct {
	Timestamp        time.Time
	TotalMonthlyCost float64
	ModuleCosts      map[string]float64
	ServiceCosts     map[string]float64
}
