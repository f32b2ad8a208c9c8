package governance

import "fmt"

// Kind is the closed catalog of error kinds shared across the governance
// core. Names are semantic so callers can match on them without string
// parsing.
type Kind string

const (
	KindFileNotFound            Kind = "file_not_found"
	KindIoError                 Kind = "io_error"
	KindParseError              Kind = "parse_error"
	KindValidationError         Kind = "validation_error"
	KindInvalidState            Kind = "invalid_state"
	KindInvalidTransition       Kind = "invalid_transition"
	KindInsufficientApprovals   Kind = "insufficient_approvals"
	KindApprovalNotFound        Kind = "approval_not_found"
	KindUnauthorizedApprover    Kind = "unauthorized_approver"
	KindMissingApprovalRef      Kind = "missing_approval_reference"
	KindInvalidApprovalRef      Kind = "invalid_approval_reference"
	KindPolicyNotFound          Kind = "policy_not_found"
	KindDuplicatePolicy         Kind = "duplicate_policy"
	KindRoleNotFound            Kind = "role_not_found"
	KindNoApproversFound        Kind = "no_approvers_found"
	KindBrokenChain             Kind = "broken_chain"
	KindInvalidAuditEntry       Kind = "invalid_audit_entry"
	KindZeroNetworkViolation    Kind = "zero_network_violation"
	KindUpgradeRequired         Kind = "upgrade_required"
	KindNoPolicyChange          Kind = "no_policy_change"
	KindVersionNotFound         Kind = "version_not_found"
)

// codes maps each kind to the machine-readable code surfaced to users.
var codes = map[Kind]string{
	KindFileNotFound:          "E100",
	KindIoError:               "E101",
	KindParseError:            "E102",
	KindValidationError:       "E103",
	KindInvalidState:          "E200",
	KindInvalidTransition:     "E201",
	KindInsufficientApprovals: "E202",
	KindApprovalNotFound:      "E203",
	KindUnauthorizedApprover:  "E204",
	KindMissingApprovalRef:    "E205",
	KindInvalidApprovalRef:    "E206",
	KindPolicyNotFound:        "POLICY_001",
	KindDuplicatePolicy:       "POLICY_002",
	KindRoleNotFound:          "POLICY_003",
	KindNoApproversFound:      "POLICY_004",
	KindBrokenChain:           "AUDIT_001",
	KindInvalidAuditEntry:     "AUDIT_002",
	KindZeroNetworkViolation:  "E300",
	KindUpgradeRequired:       "E400",
	KindNoPolicyChange:        "POLICY_005",
	KindVersionNotFound:       "POLICY_006",
}

// hints carries a short human-readable nudge shown alongside the code.
var hints = map[Kind]string{
	KindFileNotFound:          "check that the path exists and is readable",
	KindIoError:               "check file permissions and disk state",
	KindParseError:            "validate the file against its expected schema",
	KindValidationError:       "fix the named field and reload",
	KindInvalidState:          "the operation is not valid in the resource's current state",
	KindInvalidTransition:     "see State.ValidTransitions for the allowed next states",
	KindInsufficientApprovals: "collect additional approvals before transitioning",
	KindApprovalNotFound:      "the named approver has no pending approval request",
	KindUnauthorizedApprover:  "the approver is not in the resolved approver set",
	KindMissingApprovalRef:    "an approval reference (ticket/PR) is required",
	KindInvalidApprovalRef:    "reference must contain '-', start with '#', or be 5+ characters",
	KindPolicyNotFound:        "check the policy identifier",
	KindDuplicatePolicy:       "an add() was attempted for an existing identifier",
	KindRoleNotFound:          "no approvers are assigned to the required role",
	KindNoApproversFound:      "resolve allowed_approvers or required_roles to a non-empty set",
	KindBrokenChain:           "the audit chain failed verification; do not trust entries after this point",
	KindInvalidAuditEntry:     "recomputed hash/signature did not match; append was rejected",
	KindZeroNetworkViolation:  "evaluation attempted network I/O or a non-deterministic operation",
	KindUpgradeRequired:       "this feature requires a newer schema or enforcement level",
	KindNoPolicyChange:        "the policy's rule content is identical to its current version; nothing to increment",
	KindVersionNotFound:       "check the version string against history.Versions",
}

// Error is the governance core's single error type. It carries a Kind for
// programmatic dispatch, a stable machine code, a human hint, and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	code := codes[e.Kind]
	hint := hints[e.Kind]
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%s)", code, e.Message, e.Cause.Error(), hint)
	}
	return fmt.Sprintf("[%s] %s (%s)", code, e.Message, hint)
}

func (e *Error) Unwrap() error { return e.Cause }

// Code returns the machine-readable code for this error's kind.
func (e *Error) Code() string { return codes[e.Kind] }

// Is allows errors.Is(err, governance.New(KindX, "")) to match on Kind
// alone, ignoring Message/Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
