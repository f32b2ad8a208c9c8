package exemption

import (
	"strconv"
	"strings"
)

// CI exit codes, grounded on original_source's exemption_ci.rs.
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitExpired         = 2
)

// ExpiredDetail names one expired exemption for the CI summary.
type ExpiredDetail struct {
	ID              string
	PolicyName      string
	ResourcePattern string
	ExpiredOn       string
}

// CICheck is the aggregate result of checking every exemption in a file.
type CICheck struct {
	TotalExemptions int
	Active          int
	ExpiringSoon    int
	Expired         int
	Invalid         int
	ExpiredDetails  []ExpiredDetail
}

// ShouldPass reports whether CI should continue: no expired exemptions.
func (c CICheck) ShouldPass() bool { return c.Expired == 0 }

// ExitCode returns the process exit code CI should use.
func (c CICheck) ExitCode() int {
	switch {
	case c.Expired > 0:
		return ExitExpired
	case c.Invalid > 0:
		return ExitValidationError
	default:
		return ExitSuccess
	}
}

// Summary renders a human-readable report, matching original_source's
// CIExemptionCheck::summary layout.
func (c CICheck) Summary() string {
	var b strings.Builder
	b.WriteString("Exemption Check Summary:\n")
	b.WriteString("  Total exemptions: " + strconv.Itoa(c.TotalExemptions) + "\n")
	b.WriteString("  Active: " + strconv.Itoa(c.Active) + "\n")
	b.WriteString("  Expiring soon: " + strconv.Itoa(c.ExpiringSoon) + "\n")
	b.WriteString("  Expired: " + strconv.Itoa(c.Expired) + "\n")
	b.WriteString("  Invalid: " + strconv.Itoa(c.Invalid) + "\n")

	if len(c.ExpiredDetails) > 0 {
		b.WriteString("\nExpired exemptions (blocking CI):\n")
		for _, d := range c.ExpiredDetails {
			b.WriteString("  - " + d.ID + " [" + d.PolicyName + "] for " + d.ResourcePattern + " (expired: " + d.ExpiredOn + ")\n")
		}
	}
	return b.String()
}

// CheckForCI classifies every exemption in file for CI consumption.
func (v *Validator) CheckForCI(file File) CICheck {
	result := CICheck{TotalExemptions: len(file.Exemptions)}

	for _, e := range file.Exemptions {
		status := v.CheckStatus(e)
		switch status.Kind {
		case StatusActive:
			result.Active++
		case StatusExpiringSoon:
			result.ExpiringSoon++
		case StatusExpired:
			result.Expired++
			result.ExpiredDetails = append(result.ExpiredDetails, ExpiredDetail{
				ID:              e.ID,
				PolicyName:      e.PolicyName,
				ResourcePattern: e.ResourcePattern,
				ExpiredOn:       status.ExpiredOn,
			})
		case StatusInvalid:
			result.Invalid++
		}
	}

	return result
}
