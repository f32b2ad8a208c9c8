// Package exemption implements time-bound policy exemptions: suppression
// of a specific policy's findings against a resource pattern, subject to
// expiration and a warning window. Grounded on
// original_source/src/engines/policy/{exemption_types,exemption_validator,
// exemption_ci}.rs.
package exemption

import "strings"

// Exemption suppresses one policy's findings against a resource pattern
// until it expires.
type Exemption struct {
	ID              string `yaml:"id" json:"id"`
	PolicyName      string `yaml:"policy_name" json:"policy_name"`
	ResourcePattern string `yaml:"resource_pattern" json:"resource_pattern"`
	Justification   string `yaml:"justification" json:"justification"`
	ExpiresAt       string `yaml:"expires_at" json:"expires_at"`
	ApprovedBy      string `yaml:"approved_by" json:"approved_by"`
	CreatedAt       string `yaml:"created_at" json:"created_at"`
	TicketRef       string `yaml:"ticket_ref,omitempty" json:"ticket_ref,omitempty"`
}

// Matches reports whether this exemption covers the given policy/resource
// pair. ResourcePattern either matches resourceID exactly or, if it ends
// in '*', matches by prefix.
func (e Exemption) Matches(policyName, resourceID string) bool {
	if e.PolicyName != policyName {
		return false
	}
	if e.ResourcePattern == resourceID {
		return true
	}
	if strings.HasSuffix(e.ResourcePattern, "*") {
		prefix := strings.TrimSuffix(e.ResourcePattern, "*")
		return strings.HasPrefix(resourceID, prefix)
	}
	return false
}

// Metadata is optional bookkeeping carried alongside the exemption list.
type Metadata struct {
	LastReviewed string `yaml:"last_reviewed,omitempty" json:"last_reviewed,omitempty"`
	Owner        string `yaml:"owner,omitempty" json:"owner,omitempty"`
}

// File is the on-disk exemptions document.
type File struct {
	Version    string      `yaml:"version" json:"version"`
	Exemptions []Exemption `yaml:"exemptions" json:"exemptions"`
	Metadata   *Metadata   `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// StatusKind classifies where an exemption stands relative to its
// expiration date.
type StatusKind string

const (
	StatusActive       StatusKind = "active"
	StatusExpiringSoon StatusKind = "expiring_soon"
	StatusExpired      StatusKind = "expired"
	StatusInvalid      StatusKind = "invalid"
)

// Status is the result of checking one exemption against the clock.
type Status struct {
	Kind          StatusKind
	ExpiredOn     string // set when Kind == StatusExpired
	ExpiresInDays int    // set when Kind == StatusExpiringSoon
	InvalidReason string // set when Kind == StatusInvalid
}

func (s Status) String() string {
	switch s.Kind {
	case StatusActive:
		return "Active"
	case StatusExpired:
		return "Expired on " + s.ExpiredOn
	case StatusExpiringSoon:
		return "Expiring soon"
	case StatusInvalid:
		return "Invalid: " + s.InvalidReason
	default:
		return "unknown"
	}
}

// Config controls validation and status-check behavior.
type Config struct {
	WarningThresholdDays int
	EnforceExpiration    bool
	MaxDurationDays      int
}

// DefaultConfig matches original_source's ExemptionConfig::default.
func DefaultConfig() Config {
	return Config{
		WarningThresholdDays: 30,
		EnforceExpiration:    true,
		MaxDurationDays:      365,
	}
}
