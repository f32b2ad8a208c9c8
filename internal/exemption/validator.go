package exemption

import (
	"strconv"
	"strings"
	"time"

	"github.com/costpilot/costpilot/internal/governance"
)

const dateLayout = "2006-01-02"

// Validator validates exemptions and checks their lifecycle status against
// a clock, grounded on original_source's ExemptionValidator.
type Validator struct {
	config Config
	clock  governance.Clock
}

// NewValidator creates a Validator with the default config.
func NewValidator(clock governance.Clock) *Validator {
	return NewValidatorWithConfig(DefaultConfig(), clock)
}

// NewValidatorWithConfig creates a Validator with a custom config.
func NewValidatorWithConfig(cfg Config, clock governance.Clock) *Validator {
	return &Validator{config: cfg, clock: clock}
}

// ValidateExemption checks that all required fields are present and that
// the dates are well-formed and internally consistent.
func (v *Validator) ValidateExemption(e Exemption) error {
	if e.ID == "" {
		return governance.New(governance.KindValidationError, "exemption ID cannot be empty")
	}
	if e.PolicyName == "" {
		return governance.New(governance.KindValidationError, "policy name cannot be empty")
	}
	if e.ResourcePattern == "" {
		return governance.New(governance.KindValidationError, "resource pattern cannot be empty")
	}
	if e.Justification == "" {
		return governance.New(governance.KindValidationError, "justification cannot be empty")
	}
	if e.ApprovedBy == "" {
		return governance.New(governance.KindValidationError, "approved_by cannot be empty")
	}

	expires, err := time.Parse(dateLayout, e.ExpiresAt)
	if err != nil {
		return governance.New(governance.KindValidationError, "invalid expiration date format, expected YYYY-MM-DD: "+e.ExpiresAt)
	}
	if !strings.Contains(e.CreatedAt, "T") {
		return governance.New(governance.KindValidationError, "invalid ISO 8601 timestamp for created_at: "+e.CreatedAt)
	}

	created, err := parseCreatedDate(e.CreatedAt)
	if err != nil {
		return err
	}

	durationDays := int(expires.Sub(created).Hours() / 24)
	if durationDays < 0 {
		return governance.New(governance.KindValidationError, "expiration date must be after creation date")
	}
	if durationDays > v.config.MaxDurationDays {
		return governance.New(governance.KindValidationError,
			"exemption duration exceeds maximum allowed days")
	}

	return nil
}

func parseCreatedDate(createdAt string) (time.Time, error) {
	datePart := createdAt
	if idx := strings.Index(createdAt, "T"); idx >= 0 {
		datePart = createdAt[:idx]
	}
	t, err := time.Parse(dateLayout, datePart)
	if err != nil {
		return time.Time{}, governance.New(governance.KindValidationError, "invalid created_at date format: "+createdAt)
	}
	return t, nil
}

// CheckStatus classifies an exemption relative to the validator's clock.
func (v *Validator) CheckStatus(e Exemption) Status {
	if err := v.ValidateExemption(e); err != nil {
		return Status{Kind: StatusInvalid, InvalidReason: err.Error()}
	}

	expires, err := time.Parse(dateLayout, e.ExpiresAt)
	if err != nil {
		return Status{Kind: StatusInvalid, InvalidReason: "invalid expiration date format"}
	}

	today := v.clock.Now().UTC()
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	daysUntilExpiry := int(expires.Sub(todayDate).Hours() / 24)

	switch {
	case daysUntilExpiry < 0:
		return Status{Kind: StatusExpired, ExpiredOn: e.ExpiresAt}
	case daysUntilExpiry <= v.config.WarningThresholdDays:
		return Status{Kind: StatusExpiringSoon, ExpiresInDays: daysUntilExpiry}
	default:
		return Status{Kind: StatusActive}
	}
}

// IsExempted reports whether e is currently in force (status-gated when
// EnforceExpiration is set) and matches policyName/resourceID.
func (v *Validator) IsExempted(e Exemption, policyName, resourceID string) bool {
	if v.config.EnforceExpiration {
		status := v.CheckStatus(e)
		if status.Kind != StatusActive && status.Kind != StatusExpiringSoon {
			return false
		}
	}
	return e.Matches(policyName, resourceID)
}

// FindExemptions returns every exemption in file that currently covers the
// given policy/resource pair.
func (v *Validator) FindExemptions(file File, policyName, resourceID string) []Exemption {
	var out []Exemption
	for _, e := range file.Exemptions {
		if v.IsExempted(e, policyName, resourceID) {
			out = append(out, e)
		}
	}
	return out
}

// ValidateFile validates the file's version format, every exemption, and
// rejects duplicate IDs.
func (v *Validator) ValidateFile(file File) error {
	if !strings.Contains(file.Version, ".") {
		return governance.New(governance.KindValidationError, "exemptions file version must be in semver format (e.g., '1.0')")
	}

	seen := make(map[string]struct{}, len(file.Exemptions))
	for idx, e := range file.Exemptions {
		if err := v.ValidateExemption(e); err != nil {
			return governance.Wrap(governance.KindValidationError, "invalid exemption at index "+strconv.Itoa(idx), err)
		}
		if _, dup := seen[e.ID]; dup {
			return governance.New(governance.KindValidationError, "duplicate exemption ID: "+e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}
