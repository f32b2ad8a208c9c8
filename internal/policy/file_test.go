package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSpecToPolicyRoundTripsBudgetRule(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	spec := FileSpec{
		ID:       "POL-001",
		Name:     "global-budget-cap",
		Category: "budget",
		Severity: "error",
		Owner:    "finops@example.com",
		Tags:     []string{"core"},
		RuleType: RuleTypeBudget,
		Budget:   &BudgetRule{MonthlyLimit: 5000, WarningThreshold: 0.75},
	}

	p, err := spec.ToPolicy(now)
	if err != nil {
		t.Fatalf("ToPolicy() error: %v", err)
	}
	if p.Status != StatusDraft {
		t.Errorf("Status = %v, want StatusDraft", p.Status)
	}
	rule, ok := p.Spec.(BudgetRule)
	if !ok {
		t.Fatalf("Spec type = %T, want BudgetRule", p.Spec)
	}
	if rule.MonthlyLimit != 5000 {
		t.Errorf("MonthlyLimit = %v, want 5000", rule.MonthlyLimit)
	}
	if !p.HasTag("core") {
		t.Error("expected tag \"core\" to survive conversion")
	}

	back, err := FromPolicy(p)
	if err != nil {
		t.Fatalf("FromPolicy() error: %v", err)
	}
	if back.RuleType != RuleTypeBudget || back.Budget == nil || back.Budget.MonthlyLimit != 5000 {
		t.Errorf("FromPolicy() = %+v, want round-tripped budget rule", back)
	}
}

func TestToPolicyRejectsUnknownSeverity(t *testing.T) {
	spec := FileSpec{ID: "POL-002", Name: "x", Category: "budget", Severity: "catastrophic", RuleType: RuleTypeBudget, Budget: &BudgetRule{MonthlyLimit: 1}}
	if _, err := spec.ToPolicy(time.Now()); err == nil {
		t.Fatal("expected error for unrecognized severity")
	}
}

func TestToPolicyRejectsRuleTypeMismatch(t *testing.T) {
	spec := FileSpec{ID: "POL-003", Name: "x", Category: "resource", Severity: "warning", RuleType: RuleTypeResourceCount}
	if _, err := spec.ToPolicy(time.Now()); err == nil {
		t.Fatal("expected error when rule_type has no matching block")
	}
}

func TestLoadDirReadsOnlyYAMLFilesNonRecursively(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "budgets.yaml"), `
version: "1"
policies:
  - id: POL-010
    name: nat-gateway-cap
    category: resource
    severity: warning
    owner: platform@example.com
    rule_type: resource_count
    resource_count:
      resource_type: aws_nat_gateway
      max_count: 2
`)
	writeFile(t, filepath.Join(dir, "README.md"), "not a policy file")
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatalf("Mkdir() error: %v", err)
	}
	writeFile(t, filepath.Join(dir, "subdir", "ignored.yaml"), `
version: "1"
policies: []
`)

	policies, err := LoadDir(dir, time.Now())
	if err != nil {
		t.Fatalf("LoadDir() error: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("got %d policies, want 1", len(policies))
	}
	rule, ok := policies[0].Spec.(ResourceCountRule)
	if !ok || rule.MaxCount != 2 {
		t.Errorf("policies[0].Spec = %+v, want ResourceCountRule{MaxCount: 2}", policies[0].Spec)
	}
}

func TestLoadFileMissingReturnsGovernanceError(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), time.Now()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}
