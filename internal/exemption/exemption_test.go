package exemption

import (
	"testing"
	"time"

	"github.com/costpilot/costpilot/internal/governance"
)

func validExemption(expiresAt string) Exemption {
	createdAt := "2025-12-01T00:00:00Z"
	return Exemption{
		ID:              "EXE-001",
		PolicyName:      "NAT_GATEWAY_LIMIT",
		ResourcePattern: "module.vpc.*",
		Justification:   "Production requirement",
		ExpiresAt:       expiresAt,
		ApprovedBy:      "ops@example.com",
		CreatedAt:       createdAt,
	}
}

// TestWildcardMatch is invariant #6: a trailing-wildcard resource pattern
// matches any resource sharing its prefix, nothing else.
func TestWildcardMatch(t *testing.T) {
	e := Exemption{PolicyName: "EC2_INSTANCE_TYPE", ResourcePattern: "module.app.*"}
	if !e.Matches("EC2_INSTANCE_TYPE", "module.app.instance[0]") {
		t.Error("expected wildcard match on module.app.instance[0]")
	}
	if !e.Matches("EC2_INSTANCE_TYPE", "module.app.web_server") {
		t.Error("expected wildcard match on module.app.web_server")
	}
	if e.Matches("EC2_INSTANCE_TYPE", "module.vpc.instance[0]") {
		t.Error("wildcard should not match a different prefix")
	}
}

func TestExactMatch(t *testing.T) {
	e := Exemption{PolicyName: "NAT_GATEWAY_LIMIT", ResourcePattern: "module.vpc.nat_gateway[0]"}
	if !e.Matches("NAT_GATEWAY_LIMIT", "module.vpc.nat_gateway[0]") {
		t.Error("expected exact match")
	}
	if e.Matches("NAT_GATEWAY_LIMIT", "module.vpc.nat_gateway[1]") {
		t.Error("exact pattern should not match a different resource")
	}
	if e.Matches("EC2_INSTANCE_TYPE", "module.vpc.nat_gateway[0]") {
		t.Error("policy name mismatch should never match")
	}
}

func TestValidateExemptionRejectsEmptyFields(t *testing.T) {
	v := NewValidator(governance.FixedClock{At: time.Now()})
	e := validExemption("2026-06-01")
	e.ID = ""
	if err := v.ValidateExemption(e); err == nil {
		t.Error("expected error for empty ID")
	}
}

func TestValidateExemptionRejectsBadDateFormat(t *testing.T) {
	v := NewValidator(governance.FixedClock{At: time.Now()})
	e := validExemption("2026/06/01")
	if err := v.ValidateExemption(e); err == nil {
		t.Error("expected error for non-YYYY-MM-DD expires_at")
	}
}

func TestValidateExemptionRejectsExpiryBeforeCreation(t *testing.T) {
	v := NewValidator(governance.FixedClock{At: time.Now()})
	e := validExemption("2025-11-01") // before created_at 2025-12-01
	if err := v.ValidateExemption(e); err == nil {
		t.Error("expected error when expires_at predates created_at")
	}
}

// TestCheckStatusBoundaries covers the expires_at==today, today+1, and
// today-1 boundary cases.
func TestCheckStatusBoundaries(t *testing.T) {
	today := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	v := NewValidator(governance.FixedClock{At: today})

	e := validExemption(today.Format(dateLayout))
	e.CreatedAt = "2026-01-01T00:00:00Z"
	if status := v.CheckStatus(e); status.Kind != StatusExpiringSoon && status.Kind != StatusActive {
		t.Errorf("expires_at==today should be Active or ExpiringSoon (0 days left), got %v", status.Kind)
	}

	tomorrow := today.AddDate(0, 0, 1)
	e2 := e
	e2.ExpiresAt = tomorrow.Format(dateLayout)
	if status := v.CheckStatus(e2); status.Kind == StatusExpired {
		t.Error("expires_at==today+1 must not be Expired")
	}

	yesterday := today.AddDate(0, 0, -1)
	e3 := e
	e3.ExpiresAt = yesterday.Format(dateLayout)
	if status := v.CheckStatus(e3); status.Kind != StatusExpired {
		t.Errorf("expires_at==today-1 should be Expired, got %v", status.Kind)
	}
}

func TestIsExemptedWithEnforcement(t *testing.T) {
	clock := governance.FixedClock{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	v := NewValidator(clock)

	active := validExemption("2026-06-01")
	expired := validExemption("2025-06-01")
	expired.CreatedAt = "2025-01-01T00:00:00Z"

	if !v.IsExempted(active, "NAT_GATEWAY_LIMIT", "module.vpc.nat[0]") {
		t.Error("active exemption matching policy/resource should be exempted")
	}
	if v.IsExempted(expired, "NAT_GATEWAY_LIMIT", "module.vpc.nat[0]") {
		t.Error("expired exemption should not be exempted when enforcement is on")
	}
}

func TestParseYAMLRejectsDuplicateIDs(t *testing.T) {
	v := NewValidator(governance.FixedClock{At: time.Now()})
	doc := []byte(`
version: "1.0"
exemptions:
  - id: "EXE-001"
    policy_name: "NAT_GATEWAY_LIMIT"
    resource_pattern: "module.vpc.*"
    justification: "Production requirement"
    expires_at: "2026-06-01"
    approved_by: "ops@example.com"
    created_at: "2025-12-01T00:00:00Z"
  - id: "EXE-001"
    policy_name: "EC2_INSTANCE_TYPE"
    resource_pattern: "module.app.*"
    justification: "Another requirement"
    expires_at: "2026-06-01"
    approved_by: "dev@example.com"
    created_at: "2025-12-01T00:00:00Z"
`)
	if _, err := v.ParseYAML(doc); err == nil {
		t.Error("expected error for duplicate exemption IDs")
	}
}

func TestParseYAMLValid(t *testing.T) {
	v := NewValidator(governance.FixedClock{At: time.Now()})
	doc := []byte(`
version: "1.0"
exemptions:
  - id: "EXE-001"
    policy_name: "NAT_GATEWAY_LIMIT"
    resource_pattern: "module.vpc.*"
    justification: "Production requirement"
    expires_at: "2026-06-01"
    approved_by: "ops@example.com"
    created_at: "2025-12-01T00:00:00Z"
    ticket_ref: "JIRA-123"
`)
	file, err := v.ParseYAML(doc)
	if err != nil {
		t.Fatalf("ParseYAML() error: %v", err)
	}
	if len(file.Exemptions) != 1 || file.Exemptions[0].ID != "EXE-001" {
		t.Errorf("unexpected parse result: %+v", file)
	}
}

func TestFindExemptions(t *testing.T) {
	clock := governance.FixedClock{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	v := NewValidator(clock)
	file := File{
		Version: "1.0",
		Exemptions: []Exemption{
			validExemption("2026-06-01"),
			{
				ID:              "EXE-002",
				PolicyName:      "EC2_INSTANCE_TYPE",
				ResourcePattern: "module.app.*",
				Justification:   "Legacy app",
				ExpiresAt:       "2026-06-01",
				ApprovedBy:      "dev@example.com",
				CreatedAt:       "2025-12-01T00:00:00Z",
			},
		},
	}

	matches := v.FindExemptions(file, "NAT_GATEWAY_LIMIT", "module.vpc.nat[0]")
	if len(matches) != 1 || matches[0].ID != "EXE-001" {
		t.Errorf("unexpected matches: %+v", matches)
	}
}

func TestCheckForCI(t *testing.T) {
	clock := governance.FixedClock{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	v := NewValidator(clock)

	expired := validExemption("2024-06-01")
	expired.ID = "EXE-EXPIRED"
	expired.CreatedAt = "2024-01-01T00:00:00Z"
	active := validExemption("2026-06-01")
	active.ID = "EXE-ACTIVE"

	file := File{Version: "1.0", Exemptions: []Exemption{expired, active}}
	result := v.CheckForCI(file)

	if result.TotalExemptions != 2 {
		t.Errorf("TotalExemptions = %d, want 2", result.TotalExemptions)
	}
	if result.Expired != 1 || result.Active != 1 {
		t.Errorf("Expired/Active = %d/%d, want 1/1", result.Expired, result.Active)
	}
	if result.ShouldPass() {
		t.Error("ShouldPass() should be false with an expired exemption")
	}
	if result.ExitCode() != ExitExpired {
		t.Errorf("ExitCode() = %d, want ExitExpired", result.ExitCode())
	}
	if len(result.ExpiredDetails) != 1 || result.ExpiredDetails[0].ID != "EXE-EXPIRED" {
		t.Errorf("unexpected expired details: %+v", result.ExpiredDetails)
	}
}

func TestCheckForCIEmptyFilePasses(t *testing.T) {
	v := NewValidator(governance.FixedClock{At: time.Now()})
	result := v.CheckForCI(File{Version: "1.0"})
	if !result.ShouldPass() || result.ExitCode() != ExitSuccess {
		t.Error("an empty exemptions file should always pass")
	}
}
