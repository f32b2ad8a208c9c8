// Package policy holds the Policy data model, an in-memory repository over
// it, and the evaluation engine that checks budget and resource rules
// against a change set. Grounded on original_source's
// engines/policy/{policy_metadata,policy_repository,policy_engine}.rs, with
// Go-side naming and logging texture from the teacher's
// internal/policy/{engine,loader}.go.
package policy

import (
	"sort"
	"strings"
	"time"

	"github.com/costpilot/costpilot/internal/governance"
)

// Category classifies what a policy governs.
type Category struct {
	Kind  CategoryKind
	Label string // set only when Kind == CategoryCustom
}

type CategoryKind string

const (
	CategoryBudget      CategoryKind = "budget"
	CategoryResource    CategoryKind = "resource"
	CategorySecurity    CategoryKind = "security"
	CategoryGovernance  CategoryKind = "governance"
	CategoryPerformance CategoryKind = "performance"
	CategorySLO         CategoryKind = "slo"
	CategoryEnvironment CategoryKind = "environment"
	CategoryCustom      CategoryKind = "custom"
)

func (c Category) String() string {
	if c.Kind == CategoryCustom && c.Label != "" {
		return c.Label
	}
	return string(c.Kind)
}

// Status is a policy's lifecycle position within its own authoring
// workflow. This is distinct from internal/lifecycle.State: Status here
// tracks whether the policy content itself is in force, while
// internal/lifecycle tracks the approval workflow that got it there.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusActive     Status = "active"
	StatusDisabled   Status = "disabled"
	StatusDeprecated Status = "deprecated"
	StatusArchived   Status = "archived"
)

// IsEnforced reports whether a policy in this status should be evaluated.
func (s Status) IsEnforced() bool { return s == StatusActive }

// Ownership records who is accountable for a policy.
type Ownership struct {
	Author    string
	Owner     string
	Team      string
	Contact   string
	Reviewers []string
}

// DeprecationInfo explains why and when a policy was deprecated, and what
// (if anything) should replace it.
type DeprecationInfo struct {
	DeprecatedAt time.Time
	Reason       string
	ReplacedBy   string
}

// Revision is one historical edit to a policy's rule content.
type Revision struct {
	Version  string
	EditedAt time.Time
	EditedBy string
	Summary  string
}

// Links points to related external resources (runbook, ticket, dashboard).
type Links struct {
	Runbook   string
	Ticket    string
	Dashboard string
}

// Lifecycle carries the policy's effective-dating window, independent of
// internal/lifecycle's approval state machine.
type Lifecycle struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	EffectiveFrom  *time.Time
	EffectiveUntil *time.Time
	Deprecation    *DeprecationInfo
	Revisions      []Revision
}

// IsEffectiveNow reports whether now falls within [EffectiveFrom,
// EffectiveUntil]. A nil bound on either side is unconstrained.
func (l Lifecycle) IsEffectiveNow(now time.Time) bool {
	if l.EffectiveFrom != nil && now.Before(*l.EffectiveFrom) {
		return false
	}
	if l.EffectiveUntil != nil && now.After(*l.EffectiveUntil) {
		return false
	}
	return true
}

// Metrics tracks how often a policy has fired, enforcing the invariant
// that a policy can never record more violations than evaluations.
type Metrics struct {
	EvaluationCount int
	ViolationCount  int
	ExemptionCount  int
	LastEvaluated   *time.Time
	LastViolation   *time.Time
	ViolationRate   float64
}

// RecordEvaluation logs one evaluation outcome and recomputes ViolationRate.
func (m *Metrics) RecordEvaluation(hasViolation bool, now time.Time) {
	m.EvaluationCount++
	m.LastEvaluated = &now
	if hasViolation {
		m.ViolationCount++
		m.LastViolation = &now
	}
	if m.EvaluationCount > 0 {
		m.ViolationRate = float64(m.ViolationCount) / float64(m.EvaluationCount)
	}
}

// RecordExemption logs one exempted-would-be-violation occurrence.
func (m *Metrics) RecordExemption() { m.ExemptionCount++ }

// Policy is a named, owned, versioned governance rule together with its
// evaluation metadata. Spec is the typed rule body (one of the rule types
// in rules.go: BudgetRule, ResourceCountRule, EC2FamilyRule,
// S3LifecycleRule, LambdaConcurrencyRule, DynamoBillingModeRule, or
// DSLRule wrapping an internal/dsl rule); policy.Engine type-switches on
// it at evaluation time.
type Policy struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Severity    governance.Severity
	Status      Status
	Ownership   Ownership
	Lifecycle   Lifecycle
	Links       Links
	Metrics     Metrics
	Tags        []string
	Spec        any
}

// New creates a Draft policy with fresh lifecycle timestamps.
func New(id, name string, category Category, severity governance.Severity, owner string, now time.Time) Policy {
	return Policy{
		ID:        id,
		Name:      name,
		Category:  category,
		Severity:  severity,
		Status:    StatusDraft,
		Ownership: Ownership{Author: owner, Owner: owner},
		Lifecycle: Lifecycle{CreatedAt: now, UpdatedAt: now},
	}
}

// ShouldEnforce reports whether this policy is both Active and currently
// within its effective-dating window.
func (p Policy) ShouldEnforce(now time.Time) bool {
	return p.Status.IsEnforced() && p.Lifecycle.IsEffectiveNow(now)
}

// IsBlocking reports whether a violation of this policy should block the
// pipeline, per its declared severity.
func (p Policy) IsBlocking() bool { return p.Severity.Blocking() }

// Activate transitions the policy to Active, stamping UpdatedAt.
func (p *Policy) Activate(now time.Time) {
	p.Status = StatusActive
	p.Lifecycle.UpdatedAt = now
}

// Disable transitions the policy to Disabled, stamping UpdatedAt.
func (p *Policy) Disable(now time.Time) {
	p.Status = StatusDisabled
	p.Lifecycle.UpdatedAt = now
}

// Deprecate marks the policy deprecated with a reason and optional
// replacement, stamping UpdatedAt.
func (p *Policy) Deprecate(reason, replacedBy string, now time.Time) {
	p.Status = StatusDeprecated
	p.Lifecycle.UpdatedAt = now
	p.Lifecycle.Deprecation = &DeprecationInfo{DeprecatedAt: now, Reason: reason, ReplacedBy: replacedBy}
}

// Archive marks the policy archived, stamping UpdatedAt.
func (p *Policy) Archive(now time.Time) {
	p.Status = StatusArchived
	p.Lifecycle.UpdatedAt = now
}

// AddRevision appends one entry to the policy's edit history.
func (p *Policy) AddRevision(version, editedBy, summary string, now time.Time) {
	p.Lifecycle.Revisions = append(p.Lifecycle.Revisions, Revision{
		Version: version, EditedAt: now, EditedBy: editedBy, Summary: summary,
	})
	p.Lifecycle.UpdatedAt = now
}

// AddTag adds tag if it isn't already present, keeping Tags sorted.
func (p *Policy) AddTag(tag string) {
	if p.HasTag(tag) {
		return
	}
	p.Tags = append(p.Tags, tag)
	sort.Strings(p.Tags)
}

// HasTag reports whether tag is present, case-sensitive.
func (p Policy) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// matchesQuery reports whether q (case-insensitive) appears in the
// policy's name, description, or ID, for Repository.Search.
func (p Policy) matchesQuery(q string) bool {
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.ID), q)
}
