package baseline

import (
	"testing"
	"time"
)

func TestCheckVarianceWithin(t *testing.T) {
	b := New("test", 1000, "Test", "owner", time.Now())
	for _, actual := range []float64{1050, 950, 1000} {
		if status := b.CheckVariance(actual); status.Kind != StatusWithin {
			t.Errorf("CheckVariance(%v) = %v, want Within", actual, status.Kind)
		}
	}
}

func TestCheckVarianceExceeded(t *testing.T) {
	b := New("test", 1000, "Test", "owner", time.Now())
	status := b.CheckVariance(1200)
	if status.Kind != StatusExceeded {
		t.Fatalf("status = %v, want Exceeded", status.Kind)
	}
	if status.VariancePercent <= 10 {
		t.Errorf("variance = %v, want > 10", status.VariancePercent)
	}
}

func TestCheckVarianceBelow(t *testing.T) {
	b := New("test", 1000, "Test", "owner", time.Now())
	status := b.CheckVariance(800)
	if status.Kind != StatusBelow {
		t.Fatalf("status = %v, want Below", status.Kind)
	}
}

func TestBounds(t *testing.T) {
	b := New("test", 1000, "Test", "owner", time.Now())
	if b.UpperBound() != 1100 {
		t.Errorf("UpperBound() = %v, want 1100", b.UpperBound())
	}
	if b.LowerBound() != 900 {
		t.Errorf("LowerBound() = %v, want 900", b.LowerBound())
	}
}

// TestSeverityBanding is invariant #3: variance severity bands are strict
// and non-overlapping.
func TestSeverityBanding(t *testing.T) {
	cases := []struct {
		variance float64
		want     Severity
	}{
		{5.0, SeverityLow},
		{10.0, SeverityLow},
		{10.1, SeverityMedium},
		{25.0, SeverityMedium},
		{25.1, SeverityHigh},
		{50.0, SeverityHigh},
		{50.1, SeverityCritical},
		{200.0, SeverityCritical},
	}
	for _, c := range cases {
		if got := VarianceSeverity(c.variance); got != c.want {
			t.Errorf("VarianceSeverity(%v) = %v, want %v", c.variance, got, c.want)
		}
	}
}

func TestStaleDetection(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	b := Baseline{LastUpdated: now.Add(-100 * 24 * time.Hour).Format(time.RFC3339)}
	if !b.IsStale(90, now) {
		t.Error("baseline 100 days old should be stale under a 90-day cadence")
	}
	if b.IsStale(120, now) {
		t.Error("baseline 100 days old should not be stale under a 120-day cadence")
	}
}

func TestMalformedLastUpdatedIsStale(t *testing.T) {
	b := Baseline{LastUpdated: "not-a-timestamp"}
	if !b.IsStale(90, time.Now()) {
		t.Error("a malformed last_updated must be treated as stale")
	}
}

func TestCompareModuleCosts(t *testing.T) {
	now := time.Now()
	cfg := NewConfig(now)
	cfg.Modules["module.vpc"] = New("module.vpc", 1000, "VPC baseline", "network-team", now)

	result := CompareModuleCosts(cfg, map[string]float64{
		"module.vpc":     1600, // 60% over -> Critical
		"module.unknown": 500,  // no baseline
	})

	if result.NoBaselineCount != 1 {
		t.Errorf("NoBaselineCount = %d, want 1", result.NoBaselineCount)
	}
	if len(result.Violations) != 1 {
		t.Fatalf("len(Violations) = %d, want 1", len(result.Violations))
	}
	if result.Violations[0].Severity != SeverityCritical {
		t.Errorf("severity = %v, want Critical", result.Violations[0].Severity)
	}
	if !result.HasCritical() {
		t.Error("HasCritical() should be true")
	}
}

func TestCompareGlobalNoBaseline(t *testing.T) {
	cfg := NewConfig(time.Now())
	if _, ok := CompareGlobal(cfg, 5000); ok {
		t.Error("CompareGlobal should return ok=false with no global baseline configured")
	}
}

func TestStaleBaselines(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg := NewConfig(now)
	cfg.Modules["fresh"] = New("fresh", 1000, "Test", "owner", now)
	stale := New("stale", 1000, "Test", "owner", now.Add(-100*24*time.Hour))
	cfg.Modules["stale"] = stale

	got := cfg.StaleBaselines(now)
	if len(got) != 1 || got[0].Name != "stale" {
		t.Errorf("StaleBaselines() = %+v, want only 'stale'", got)
	}
}
