package lifecycle

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/costpilot/costpilot/internal/audit"
	"github.com/costpilot/costpilot/internal/governance"
)

// Summary is a read-only projection of a Record, grounded on
// original_source's PolicyLifecycle::summary and used by Scenario E's
// assertions.
type Summary struct {
	PolicyID          string
	CurrentState      State
	StateDescription  string
	IsEditable        bool
	IsEnforceable     bool
	RequiresApproval  bool
	ApprovalsReceived int
	ApprovalsRequired int
	HasRejections     bool
	TransitionCount   int
}

// Record is one policy's lifecycle state machine. A Record is owned
// exclusively by one policy; concurrent use of the same Record is guarded
// by an internal mutex.
type Record struct {
	mu sync.Mutex

	policyID         string
	currentState     State
	history          []StateTransition
	approvalConfig   Config
	pendingApprovals []ApprovalRequest

	clock  governance.Clock
	logger *slog.Logger

	log *audit.Log
	ids audit.IDSource
}

// WithAudit attaches an audit log so every transition, approval, and
// rejection this Record makes from here on appends a chained AuditEvent.
// A Record with no audit log attached behaves exactly as before: state
// changes still happen, they're just never recorded to the chain.
func (r *Record) WithAudit(log *audit.Log, ids audit.IDSource) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = log
	r.ids = ids
	return r
}

// appendAuditLocked is a no-op when no audit log is attached. Callers must
// hold r.mu.
func (r *Record) appendAuditLocked(eventType audit.EventType, actor, description string) {
	if r.log == nil {
		return
	}
	event := audit.NewEvent(r.ids, eventType, actor, r.policyID, "policy_lifecycle", description)
	if _, err := r.log.Append(event); err != nil {
		r.logger.Error("failed to append lifecycle audit event", "event_type", eventType, "error", err)
	}
}

// New creates a Record in Draft state with the default approval config.
func New(policyID string, clock governance.Clock, logger *slog.Logger) *Record {
	return NewWithConfig(policyID, DefaultConfig(), clock, logger)
}

// NewWithConfig creates a Record in Draft state with a custom approval config.
func NewWithConfig(policyID string, cfg Config, clock governance.Clock, logger *slog.Logger) *Record {
	if logger == nil {
		logger = slog.Default()
	}
	return &Record{
		policyID:       policyID,
		currentState:   StateDraft,
		approvalConfig: cfg,
		clock:          clock,
		logger:         logger.With("component", "lifecycle.Record", "policy_id", policyID),
	}
}

func (r *Record) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentState
}

func (r *Record) History() []StateTransition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StateTransition, len(r.history))
	copy(out, r.history)
	return out
}

// transition is the single low-level state-change primitive; callers hold
// r.mu.
func (r *Record) transition(target State, actor, reason string) error {
	if !r.currentState.CanTransitionTo(target) {
		return governance.New(governance.KindInvalidTransition,
			"cannot transition from "+string(r.currentState)+" to "+string(target))
	}

	if target == StateApproved && r.currentState == StateReview && !r.hasSufficientApprovalsLocked() {
		return governance.New(governance.KindInsufficientApprovals,
			"insufficient approvals to transition to approved")
	}

	t := StateTransition{
		From:        r.currentState,
		To:          target,
		Actor:       actor,
		Timestamp:   r.clock.Now(),
		Reason:      reason,
		ApprovalIDs: r.approvedIDsLocked(),
	}
	r.history = append(r.history, t)
	r.currentState = target

	if target != StateReview {
		r.pendingApprovals = nil
	}

	r.logger.Info("lifecycle transition", "from", t.From, "to", t.To, "actor", actor)
	r.appendAuditLocked(transitionEventType(target), actor,
		string(t.From)+" -> "+string(t.To)+": "+reason)
	return nil
}

// transitionEventType maps a transition's destination state to its audit
// event type; states with no dedicated type fall back to the generic
// state-change event.
func transitionEventType(target State) audit.EventType {
	switch target {
	case StateActive:
		return audit.EventPolicyActivated
	case StateDeprecated:
		return audit.EventPolicyDeprecated
	case StateArchived:
		return audit.EventPolicyArchived
	default:
		return audit.EventPolicyStateChange
	}
}

// SubmitForReview requires state=Draft. Approvers are resolved from
// {allowed_approvers} ∪ ⋃{roleAssignments[r] : r ∈ required_roles},
// deduplicated and sorted; resolving to an empty set is an error.
func (r *Record) SubmitForReview(actor string, roleAssignments map[string][]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentState != StateDraft {
		return governance.New(governance.KindInvalidState, "submit_for_review requires state=draft, got "+string(r.currentState))
	}

	approvers := resolveApprovers(r.approvalConfig, roleAssignments)
	if len(approvers) == 0 {
		return governance.New(governance.KindNoApproversFound, "no approvers resolved from allowed_approvers/required_roles")
	}

	r.pendingApprovals = make([]ApprovalRequest, 0, len(approvers))
	requestedAt := r.clock.Now()
	for i, approver := range approvers {
		r.pendingApprovals = append(r.pendingApprovals, ApprovalRequest{
			ID:          r.policyID + "-approval-" + strconv.Itoa(i),
			Approver:    approver,
			Status:      ApprovalPending,
			RequestedAt: requestedAt,
		})
	}

	return r.transition(StateReview, actor, "submitted for approval")
}

func resolveApprovers(cfg Config, roleAssignments map[string][]string) []string {
	set := make(map[string]struct{})
	for _, a := range cfg.AllowedApprovers {
		set[a] = struct{}{}
	}
	for _, role := range cfg.RequiredRoles {
		for _, a := range roleAssignments[role] {
			set[a] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Approve requires state=Review and that approver has a pending request,
// and that reference passes ValidApprovalReference. It returns
// (sufficientApprovals, error).
func (r *Record) Approve(approver, reference, comment string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentState != StateReview {
		return false, governance.New(governance.KindInvalidState, "approve requires state=review, got "+string(r.currentState))
	}
	if !ValidApprovalReference(reference) {
		return false, governance.New(governance.KindInvalidApprovalRef, "approval reference is not valid: "+reference)
	}

	idx := -1
	for i, a := range r.pendingApprovals {
		if a.Approver == approver && a.Status == ApprovalPending {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, governance.New(governance.KindApprovalNotFound, "no pending approval for approver "+approver)
	}

	now := r.clock.Now()
	r.pendingApprovals[idx].Status = ApprovalApproved
	r.pendingApprovals[idx].RespondedAt = &now
	r.pendingApprovals[idx].Comment = comment

	r.logger.Info("approval recorded", "approver", approver, "reference", reference)
	r.appendAuditLocked(audit.EventPolicyApproval, approver, "approved via "+reference)
	return r.hasSufficientApprovalsLocked(), nil
}

// Reject marks approver's pending request Rejected. A rejection does not
// itself force a Draft transition; a follow-up transition is the caller's
// responsibility.
func (r *Record) Reject(approver, comment string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentState != StateReview {
		return governance.New(governance.KindInvalidState, "reject requires state=review, got "+string(r.currentState))
	}

	idx := -1
	for i, a := range r.pendingApprovals {
		if a.Approver == approver && a.Status == ApprovalPending {
			idx = i
			break
		}
	}
	if idx == -1 {
		return governance.New(governance.KindApprovalNotFound, "no pending approval for approver "+approver)
	}

	now := r.clock.Now()
	r.pendingApprovals[idx].Status = ApprovalRejected
	r.pendingApprovals[idx].RespondedAt = &now
	r.pendingApprovals[idx].Comment = comment
	r.logger.Info("approval rejected", "approver", approver)
	r.appendAuditLocked(audit.EventPolicyApproval, approver, "rejected: "+comment)
	return nil
}

// Transition applies an explicit, caller-requested state change (used for
// Draft<-Review, Review->Approved once sufficient, Active<->Deprecated,
// anything ->Archived).
func (r *Record) Transition(target State, actor, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transition(target, actor, reason)
}

// Activate requires state=Approved.
func (r *Record) Activate(actor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentState != StateApproved {
		return governance.New(governance.KindInvalidState, "activate requires state=approved, got "+string(r.currentState))
	}
	return r.transition(StateActive, actor, "policy activated")
}

// Deprecate requires state=Active.
func (r *Record) Deprecate(actor, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentState != StateActive {
		return governance.New(governance.KindInvalidState, "deprecate requires state=active, got "+string(r.currentState))
	}
	return r.transition(StateDeprecated, actor, reason)
}

// Archive is valid from any non-terminal state.
func (r *Record) Archive(actor, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transition(StateArchived, actor, reason)
}

func (r *Record) hasSufficientApprovalsLocked() bool {
	return r.countApprovalsLocked() >= r.approvalConfig.MinApprovals
}

func (r *Record) countApprovalsLocked() int {
	n := 0
	for _, a := range r.pendingApprovals {
		if a.Status == ApprovalApproved {
			n++
		}
	}
	return n
}

func (r *Record) approvedIDsLocked() []string {
	var ids []string
	for _, a := range r.pendingApprovals {
		if a.Status == ApprovalApproved {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// HasRejections reports whether any pending approval was rejected.
func (r *Record) HasRejections() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.pendingApprovals {
		if a.Status == ApprovalRejected {
			return true
		}
	}
	return false
}

// IsReviewExpired reports whether the last transition into Review predates
// the configured review window.
func (r *Record) IsReviewExpired() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentState != StateReview || len(r.history) == 0 {
		return false
	}
	last := r.history[len(r.history)-1]
	days := r.clock.Now().Sub(last.Timestamp).Hours() / 24
	return days > float64(r.approvalConfig.ReviewExpirationDays)
}

// SweepExpiredReviews marks pending approvals Expired once the review
// window has elapsed. Returns the number of requests expired.
func (r *Record) SweepExpiredReviews() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isReviewExpiredLocked() {
		return 0
	}
	n := 0
	for i := range r.pendingApprovals {
		if r.pendingApprovals[i].Status == ApprovalPending {
			r.pendingApprovals[i].Status = ApprovalExpired
			n++
		}
	}
	if n > 0 {
		r.logger.Info("review expired, approvals swept", "count", n)
	}
	return n
}

func (r *Record) isReviewExpiredLocked() bool {
	if r.currentState != StateReview || len(r.history) == 0 {
		return false
	}
	last := r.history[len(r.history)-1]
	days := r.clock.Now().Sub(last.Timestamp).Hours() / 24
	return days > float64(r.approvalConfig.ReviewExpirationDays)
}

// Summary returns a read-only snapshot for display/assertions.
func (r *Record) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Summary{
		PolicyID:          r.policyID,
		CurrentState:      r.currentState,
		StateDescription:  r.currentState.Description(),
		IsEditable:        r.currentState.IsEditable(),
		IsEnforceable:     r.currentState.IsEnforceable(),
		RequiresApproval:  r.currentState.RequiresApproval(),
		ApprovalsReceived: r.countApprovalsLocked(),
		ApprovalsRequired: r.approvalConfig.MinApprovals,
		HasRejections:     r.hasRejectionsLocked(),
		TransitionCount:   len(r.history),
	}
}

func (r *Record) hasRejectionsLocked() bool {
	for _, a := range r.pendingApprovals {
		if a.Status == ApprovalRejected {
			return true
		}
	}
	return false
}

// ValidApprovalReference requires a non-empty reference that either
// contains '-', starts with '#', or is at least 5 characters —
// covering JIRA/GitHub PR/ServiceNow/custom formats.
func ValidApprovalReference(ref string) bool {
	if ref == "" {
		return false
	}
	return strings.Contains(ref, "-") || strings.HasPrefix(ref, "#") || len(ref) >= 5
}
