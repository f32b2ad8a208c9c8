package audit

import (
	"strconv"
	"time"

	"github.com/costpilot/costpilot/internal/governance"
)

// Framework is a compliance framework CostPilot can report against,
// grounded on original_source's engines/policy/compliance.rs::
// ComplianceFramework.
type Framework string

const (
	FrameworkSOC2     Framework = "soc2"
	FrameworkISO27001 Framework = "iso27001"
	FrameworkGDPR     Framework = "gdpr"
	FrameworkHIPAA    Framework = "hipaa"
	FrameworkPCIDSS   Framework = "pci_dss"
)

// RetentionDays returns the framework's required audit-retention period,
// carried over verbatim from the original's retention_days table.
func (f Framework) RetentionDays() int {
	switch f {
	case FrameworkSOC2, FrameworkISO27001, FrameworkPCIDSS:
		return 365
	case FrameworkGDPR, FrameworkHIPAA:
		return 2190 // six years
	default:
		return 365
	}
}

// Requirements lists the framework's audit-trail requirements. Report
// generation does not read it; the Compliant/NonCompliant determination is
// made by the matching check* method below.
func (f Framework) Requirements() []string {
	switch f {
	case FrameworkSOC2:
		return []string{
			"Audit log integrity verification",
			"Access control events tracked",
			"Policy change approval workflow",
			"Tamper-proof audit trail",
		}
	case FrameworkISO27001:
		return []string{
			"Information security events logged",
			"Access attempts recorded",
			"Configuration changes tracked",
			"Log integrity maintained",
		}
	case FrameworkGDPR:
		return []string{
			"Data access logged",
			"Consent changes tracked",
			"Data retention policy enforced",
			"User rights requests recorded",
		}
	case FrameworkHIPAA:
		return []string{
			"PHI access logged",
			"Security incidents recorded",
			"Audit logs protected",
			"Access control enforced",
		}
	case FrameworkPCIDSS:
		return []string{
			"Cardholder data access tracked",
			"Security events logged",
			"Failed authentication attempts recorded",
			"Log review performed regularly",
		}
	default:
		return nil
	}
}

// Status is one requirement's compliance determination.
type Status string

const (
	StatusCompliant          Status = "compliant"
	StatusNonCompliant       Status = "non_compliant"
	StatusPartiallyCompliant Status = "partially_compliant"
	StatusNotApplicable      Status = "not_applicable"
)

// Check is one requirement's evaluation result.
type Check struct {
	Requirement     string   `json:"requirement"`
	Status          Status   `json:"status"`
	Description     string   `json:"description"`
	Evidence        []string `json:"evidence"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Summary rolls Checks up into pass/fail counts and a percentage.
type Summary struct {
	TotalRequirements    int     `json:"total_requirements"`
	Compliant            int     `json:"compliant"`
	NonCompliant         int     `json:"non_compliant"`
	PartiallyCompliant   int     `json:"partially_compliant"`
	NotApplicable        int     `json:"not_applicable"`
	CompliancePercentage float64 `json:"compliance_percentage"`
}

// Report is one generated compliance run over a time window.
type Report struct {
	Framework         Framework `json:"framework"`
	GeneratedAt       time.Time `json:"generated_at"`
	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end"`
	OverallStatus     Status    `json:"overall_status"`
	Checks            []Check   `json:"checks"`
	Summary           Summary   `json:"summary"`
	AuditLogVerified  bool      `json:"audit_log_verified"`
}

// Analyzer generates Reports from a Log, grounded on compliance.rs's
// ComplianceAnalyzer. It holds no state of its own beyond the log
// reference: every report is computed fresh from the current chain.
type Analyzer struct {
	log   *Log
	clock governance.Clock
}

// NewAnalyzer creates an Analyzer over log. clock supplies GeneratedAt so
// report timestamps stay governed by the same injected-clock discipline
// as the rest of the governance core rather than calling time.Now directly.
func NewAnalyzer(log *Log, clock governance.Clock) *Analyzer {
	return &Analyzer{log: log, clock: clock}
}

// GenerateReport runs every check for framework over [periodStart,
// periodEnd] and rolls the results into a Report.
func (a *Analyzer) GenerateReport(framework Framework, periodStart, periodEnd time.Time) Report {
	verified := a.log.VerifyChain() == nil

	var checks []Check
	switch framework {
	case FrameworkSOC2:
		checks = a.checkSOC2(periodStart, periodEnd, verified)
	case FrameworkISO27001:
		checks = a.checkISO27001(periodStart, periodEnd)
	case FrameworkGDPR:
		checks = a.checkGDPR()
	case FrameworkHIPAA:
		checks = a.checkHIPAA(verified)
	case FrameworkPCIDSS:
		checks = a.checkPCIDSS(periodStart, periodEnd)
	}

	summary := summarize(checks)
	overall := StatusCompliant
	switch {
	case summary.NonCompliant > 0:
		overall = StatusNonCompliant
	case summary.PartiallyCompliant > 0:
		overall = StatusPartiallyCompliant
	}

	return Report{
		Framework:        framework,
		GeneratedAt:      a.clock.Now(),
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		OverallStatus:    overall,
		Checks:           checks,
		Summary:          summary,
		AuditLogVerified: verified,
	}
}

func (a *Analyzer) checkSOC2(periodStart, periodEnd time.Time, verified bool) []Check {
	var checks []Check

	integrityStatus := StatusNonCompliant
	if verified {
		integrityStatus = StatusCompliant
	}
	checks = append(checks, Check{
		Requirement: "Audit log integrity verification",
		Status:      integrityStatus,
		Description: "Audit logs must be tamper-proof and verifiable",
		Evidence:    []string{"chain verification: " + passFail(verified)},
	})

	accessEvents := NewQuery(a.log).WithTimeRange(periodStart, periodEnd).
		WithEventType(EventAccessGranted).Execute()
	accessEvents = append(accessEvents, NewQuery(a.log).WithTimeRange(periodStart, periodEnd).
		WithEventType(EventAccessDenied).Execute()...)
	accessStatus := StatusPartiallyCompliant
	var accessRecs []string
	if len(accessEvents) > 0 {
		accessStatus = StatusCompliant
	} else {
		accessRecs = []string{"enable access logging for all resources"}
	}
	checks = append(checks, Check{
		Requirement:     "Access control events tracked",
		Status:          accessStatus,
		Description:     "All access attempts must be logged",
		Evidence:        []string{strconv.Itoa(len(accessEvents)) + " access control events recorded"},
		Recommendations: accessRecs,
	})

	policyChanges := NewQuery(a.log).WithTimeRange(periodStart, periodEnd).
		WithEventType(EventPolicyApproval).Execute()
	policyChanges = append(policyChanges, NewQuery(a.log).WithTimeRange(periodStart, periodEnd).
		WithEventType(EventPolicyActivated).Execute()...)
	approvalStatus := StatusCompliant
	for _, e := range policyChanges {
		if !e.Event.Success {
			approvalStatus = StatusNonCompliant
			break
		}
	}
	checks = append(checks, Check{
		Requirement: "Policy change approval workflow",
		Status:      approvalStatus,
		Description: "All policy changes must follow the approval workflow",
		Evidence:    []string{strconv.Itoa(len(policyChanges)) + " policy changes recorded"},
	})

	checks = append(checks, Check{
		Requirement: "Tamper-proof audit trail",
		Status:      StatusCompliant,
		Description: "The audit trail uses a cryptographic hash chain for integrity",
		Evidence: []string{
			"SHA-256 hashing enabled",
			"hash-chained entries, each linked to its predecessor",
			strconv.Itoa(a.log.Count()) + " entries in chain",
		},
	})

	return checks
}

func (a *Analyzer) checkISO27001(periodStart, periodEnd time.Time) []Check {
	events := NewQuery(a.log).WithTimeRange(periodStart, periodEnd).Execute()
	critical := NewQuery(a.log).WithTimeRange(periodStart, periodEnd).WithSeverity(SeverityCritical).Execute()
	return []Check{{
		Requirement: "Information security events logged",
		Status:      StatusCompliant,
		Description: "Security-relevant events must be logged and monitored",
		Evidence: []string{
			strconv.Itoa(len(events)) + " total events in period",
			strconv.Itoa(len(critical)) + " critical events",
		},
	}}
}

func (a *Analyzer) checkGDPR() []Check {
	return []Check{{
		Requirement: "Data retention policy enforced",
		Status:      StatusCompliant,
		Description: "Audit logs are retained according to the framework's minimum period",
		Evidence:    []string{"retention period: " + strconv.Itoa(FrameworkGDPR.RetentionDays()) + " days"},
	}}
}

func (a *Analyzer) checkHIPAA(verified bool) []Check {
	status := StatusNonCompliant
	if verified {
		status = StatusCompliant
	}
	return []Check{{
		Requirement: "Audit logs protected",
		Status:      status,
		Description: "Audit logs must be protected from tampering",
		Evidence:    []string{"cryptographic chain verified: " + passFail(verified)},
	}}
}

func (a *Analyzer) checkPCIDSS(periodStart, periodEnd time.Time) []Check {
	failed := NewQuery(a.log).WithTimeRange(periodStart, periodEnd).WithSuccess(false).Execute()
	return []Check{{
		Requirement: "Failed authentication attempts recorded",
		Status:      StatusCompliant,
		Description: "All authentication failures must be logged",
		Evidence:    []string{strconv.Itoa(len(failed)) + " failed events recorded"},
	}}
}

func summarize(checks []Check) Summary {
	s := Summary{TotalRequirements: len(checks)}
	for _, c := range checks {
		switch c.Status {
		case StatusCompliant:
			s.Compliant++
		case StatusNonCompliant:
			s.NonCompliant++
		case StatusPartiallyCompliant:
			s.PartiallyCompliant++
		case StatusNotApplicable:
			s.NotApplicable++
		}
	}
	if s.TotalRequirements > 0 {
		s.CompliancePercentage = float64(s.Compliant) / float64(s.TotalRequirements) * 100
	}
	return s
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

