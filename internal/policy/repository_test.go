package policy

import (
	"testing"
	"time"

	"github.com/costpilot/costpilot/internal/governance"
)

func samplePolicy(id string, sev governance.Severity, status Status) Policy {
	p := New(id, "policy "+id, Category{Kind: CategoryBudget}, sev, "ops", time.Now())
	p.Status = status
	return p
}

func TestRepositoryAddRejectsDuplicateID(t *testing.T) {
	repo := NewRepository()
	if err := repo.Add(samplePolicy("p1", governance.SeverityError, StatusDraft)); err != nil {
		t.Fatalf("first Add() error: %v", err)
	}
	if err := repo.Add(samplePolicy("p1", governance.SeverityError, StatusDraft)); err == nil {
		t.Error("expected error adding a duplicate policy ID")
	}
}

func TestRepositoryUpdateRequiresExisting(t *testing.T) {
	repo := NewRepository()
	if err := repo.Update(samplePolicy("missing", governance.SeverityInfo, StatusDraft)); err == nil {
		t.Error("expected error updating a nonexistent policy")
	}
}

func TestRepositoryByMinSeverity(t *testing.T) {
	repo := NewRepository()
	_ = repo.Add(samplePolicy("low", governance.SeverityInfo, StatusActive))
	_ = repo.Add(samplePolicy("mid", governance.SeverityWarning, StatusActive))
	_ = repo.Add(samplePolicy("high", governance.SeverityCritical, StatusActive))

	got := repo.ByMinSeverity(governance.SeverityWarning)
	if len(got) != 2 {
		t.Fatalf("ByMinSeverity(Warning) = %d results, want 2", len(got))
	}
}

func TestRepositoryEnforceableRespectsStatusAndDates(t *testing.T) {
	repo := NewRepository()
	now := time.Now()

	active := samplePolicy("active", governance.SeverityError, StatusActive)
	_ = repo.Add(active)

	future := now.AddDate(0, 0, 10)
	notYet := samplePolicy("not-yet", governance.SeverityError, StatusActive)
	notYet.Lifecycle.EffectiveFrom = &future
	_ = repo.Add(notYet)

	draft := samplePolicy("draft", governance.SeverityError, StatusDraft)
	_ = repo.Add(draft)

	got := repo.Enforceable(now)
	if len(got) != 1 || got[0].ID != "active" {
		t.Errorf("Enforceable() = %+v, want only 'active'", got)
	}
}

func TestRepositoryBulkActivateSkipsUnknownIDs(t *testing.T) {
	repo := NewRepository()
	_ = repo.Add(samplePolicy("p1", governance.SeverityError, StatusDraft))

	count := repo.ActivatePolicies([]string{"p1", "missing"}, time.Now())
	if count != 1 {
		t.Errorf("ActivatePolicies() = %d, want 1", count)
	}
	p, _ := repo.Get("p1")
	if p.Status != StatusActive {
		t.Error("p1 should now be Active")
	}
}

func TestRepositoryArchiveDeprecatedOlderThan(t *testing.T) {
	repo := NewRepository()
	now := time.Now()

	old := samplePolicy("old", governance.SeverityInfo, StatusDeprecated)
	old.Lifecycle.Deprecation = &DeprecationInfo{DeprecatedAt: now.AddDate(0, 0, -100)}
	_ = repo.Add(old)

	recent := samplePolicy("recent", governance.SeverityInfo, StatusDeprecated)
	recent.Lifecycle.Deprecation = &DeprecationInfo{DeprecatedAt: now.AddDate(0, 0, -5)}
	_ = repo.Add(recent)

	count := repo.ArchiveDeprecated(30, now)
	if count != 1 {
		t.Fatalf("ArchiveDeprecated(30) = %d, want 1", count)
	}
	p, _ := repo.Get("old")
	if p.Status != StatusArchived {
		t.Error("'old' should be archived")
	}
	p2, _ := repo.Get("recent")
	if p2.Status != StatusDeprecated {
		t.Error("'recent' should remain deprecated")
	}
}

func TestRepositoryHighViolationPolicies(t *testing.T) {
	repo := NewRepository()
	noisy := samplePolicy("noisy", governance.SeverityWarning, StatusActive)
	noisy.Metrics = Metrics{EvaluationCount: 10, ViolationCount: 8, ViolationRate: 0.8}
	_ = repo.Add(noisy)

	quiet := samplePolicy("quiet", governance.SeverityWarning, StatusActive)
	quiet.Metrics = Metrics{EvaluationCount: 10, ViolationCount: 1, ViolationRate: 0.1}
	_ = repo.Add(quiet)

	got := repo.HighViolationPolicies(0.5)
	if len(got) != 1 || got[0].ID != "noisy" {
		t.Errorf("HighViolationPolicies(0.5) = %+v, want only 'noisy'", got)
	}
}

func TestRepositoryStatistics(t *testing.T) {
	repo := NewRepository()
	_ = repo.Add(samplePolicy("a", governance.SeverityCritical, StatusActive))
	_ = repo.Add(samplePolicy("b", governance.SeverityInfo, StatusDeprecated))

	stats := repo.Statistics()
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
	if stats.Blocking != 1 {
		t.Errorf("Blocking = %d, want 1", stats.Blocking)
	}
	if stats.Deprecated != 1 {
		t.Errorf("Deprecated = %d, want 1", stats.Deprecated)
	}
}

func TestRepositoryDelegateOwnership(t *testing.T) {
	repo := NewRepository()
	_ = repo.Add(samplePolicy("p1", governance.SeverityInfo, StatusDraft))

	if err := repo.DelegateOwnership("p1", "new-owner", time.Now()); err != nil {
		t.Fatalf("DelegateOwnership() error: %v", err)
	}
	p, _ := repo.Get("p1")
	if p.Ownership.Owner != "new-owner" {
		t.Errorf("Owner = %q, want new-owner", p.Ownership.Owner)
	}
}

func TestRepositoryReviseSpecBumpsPatchOnChange(t *testing.T) {
	repo := NewRepository()
	p := samplePolicy("p1", governance.SeverityError, StatusActive)
	p.Spec = BudgetRule{MonthlyLimit: 1000}
	_ = repo.Add(p)

	entry, err := repo.ReviseSpec("p1", BudgetRule{MonthlyLimit: 2000}, "alice", "raise budget", false, time.Now())
	if err != nil {
		t.Fatalf("ReviseSpec() error: %v", err)
	}
	if entry.Version != "1.0.1" {
		t.Errorf("Version = %q, want 1.0.1", entry.Version)
	}
	updated, _ := repo.Get("p1")
	if updated.Spec != (BudgetRule{MonthlyLimit: 2000}) {
		t.Errorf("Spec = %+v, want the revised rule", updated.Spec)
	}
	if len(updated.Lifecycle.Revisions) != 1 || updated.Lifecycle.Revisions[0].Version != "1.0.1" {
		t.Errorf("Revisions = %+v, want one entry at 1.0.1", updated.Lifecycle.Revisions)
	}
}

func TestRepositoryReviseSpecMajorBump(t *testing.T) {
	repo := NewRepository()
	p := samplePolicy("p1", governance.SeverityError, StatusActive)
	p.Spec = BudgetRule{MonthlyLimit: 1000}
	_ = repo.Add(p)

	entry, err := repo.ReviseSpec("p1", BudgetRule{MonthlyLimit: 2000}, "alice", "overhaul", true, time.Now())
	if err != nil {
		t.Fatalf("ReviseSpec() error: %v", err)
	}
	if entry.Version != "2.0.0" {
		t.Errorf("Version = %q, want 2.0.0", entry.Version)
	}
}

func TestRepositoryReviseSpecRejectsNoChange(t *testing.T) {
	repo := NewRepository()
	p := samplePolicy("p1", governance.SeverityError, StatusActive)
	p.Spec = BudgetRule{MonthlyLimit: 1000}
	_ = repo.Add(p)

	if _, err := repo.ReviseSpec("p1", BudgetRule{MonthlyLimit: 1000}, "alice", "no-op", false, time.Now()); err == nil {
		t.Fatal("expected an error reviewing identical content")
	} else if gerr, ok := err.(*governance.Error); !ok || gerr.Kind != governance.KindNoPolicyChange {
		t.Errorf("error kind = %v, want NoPolicyChange", err)
	}
}

func TestRepositoryRollbackSpecAddsForwardVersion(t *testing.T) {
	repo := NewRepository()
	p := samplePolicy("p1", governance.SeverityError, StatusActive)
	p.Spec = BudgetRule{MonthlyLimit: 1000}
	_ = repo.Add(p)
	_, _ = repo.ReviseSpec("p1", BudgetRule{MonthlyLimit: 5000}, "alice", "spike", false, time.Now())

	entry, err := repo.RollbackSpec("p1", "1.0.0", "oncall", "spike was a mistake", time.Now())
	if err != nil {
		t.Fatalf("RollbackSpec() error: %v", err)
	}
	if entry.Version != "1.0.2" {
		t.Errorf("Version = %q, want 1.0.2 (a new forward version, not a rewrite)", entry.Version)
	}
	updated, _ := repo.Get("p1")
	if updated.Spec != (BudgetRule{MonthlyLimit: 1000}) {
		t.Errorf("Spec = %+v, want the rolled-back rule", updated.Spec)
	}

	hist, ok := repo.History("p1")
	if !ok || len(hist.Versions) != 3 {
		t.Fatalf("History(p1) versions = %+v, want 3 (initial, spike, rollback)", hist)
	}
}

func TestRepositoryRollbackSpecUnknownVersion(t *testing.T) {
	repo := NewRepository()
	p := samplePolicy("p1", governance.SeverityError, StatusActive)
	p.Spec = BudgetRule{MonthlyLimit: 1000}
	_ = repo.Add(p)

	if _, err := repo.RollbackSpec("p1", "9.9.9", "oncall", "typo", time.Now()); err == nil {
		t.Fatal("expected an error rolling back to a nonexistent version")
	} else if gerr, ok := err.(*governance.Error); !ok || gerr.Kind != governance.KindVersionNotFound {
		t.Errorf("error kind = %v, want VersionNotFound", err)
	}
}
