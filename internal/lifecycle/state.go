// Package lifecycle implements the policy lifecycle state machine and
// multi-party approval workflow. It is grounded on original_source's
// engines/policy/lifecycle.rs for state/approval semantics, rewritten as
// a synchronous Go state machine in the naming and logging idiom of the
// teacher's internal/approval/queue.go — but not its channel-blocking
// control flow, which evaluation code must never suspend on.
package lifecycle

// State is a policy's position on the lifecycle path.
type State string

const (
	StateDraft      State = "draft"
	StateReview     State = "review"
	StateApproved   State = "approved"
	StateActive     State = "active"
	StateDeprecated State = "deprecated"
	StateArchived   State = "archived"
)

func (s State) Description() string {
	switch s {
	case StateDraft:
		return "Policy is being drafted or edited"
	case StateReview:
		return "Policy is pending approval from reviewers"
	case StateApproved:
		return "Policy has been approved and is ready to activate"
	case StateActive:
		return "Policy is currently enforced in production"
	case StateDeprecated:
		return "Policy is marked for removal but still active"
	case StateArchived:
		return "Policy is no longer active and archived"
	default:
		return "unknown state"
	}
}

func (s State) IsEditable() bool   { return s == StateDraft }
func (s State) IsEnforceable() bool {
	return s == StateActive || s == StateDeprecated
}
func (s State) RequiresApproval() bool { return s == StateReview }

// ValidTransitions returns the states reachable directly from s.
func (s State) ValidTransitions() []State {
	switch s {
	case StateDraft:
		return []State{StateReview, StateArchived}
	case StateReview:
		return []State{StateDraft, StateApproved, StateArchived}
	case StateApproved:
		return []State{StateActive, StateArchived}
	case StateActive:
		return []State{StateDeprecated, StateArchived}
	case StateDeprecated:
		return []State{StateArchived, StateActive}
	case StateArchived:
		return nil
	default:
		return nil
	}
}

// CanTransitionTo reports whether target is reachable directly from s.
func (s State) CanTransitionTo(target State) bool {
	for _, t := range s.ValidTransitions() {
		if t == target {
			return true
		}
	}
	return false
}
