package lifecycle

import "time"

// ApprovalStatus is the status of a single pending or resolved approval
// request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalExpired  ApprovalStatus = "expired"
)

// ApprovalRequest tracks one approver's response to a review.
type ApprovalRequest struct {
	ID          string
	Approver    string
	Role        string
	Status      ApprovalStatus
	RequestedAt time.Time
	RespondedAt *time.Time
	Comment     string
}

// Config configures how many and which approvers a policy review needs.
type Config struct {
	MinApprovals         int
	RequiredRoles        []string
	AllowedApprovers     []string
	AutoApproveRoles     []string
	ReviewExpirationDays int
}

// DefaultConfig matches original_source's ApprovalConfig::default: one
// approval from the policy-approver role, seven-day review window.
func DefaultConfig() Config {
	return Config{
		MinApprovals:         1,
		RequiredRoles:        []string{"policy-approver"},
		ReviewExpirationDays: 7,
	}
}

// StateTransition records one step in a policy's history.
type StateTransition struct {
	From        State
	To          State
	Actor       string
	Timestamp   time.Time
	Reason      string
	ApprovalIDs []string
}
