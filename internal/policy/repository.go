package policy

import (
	"sort"
	"time"

	"github.com/costpilot/costpilot/internal/governance"
)

// Repository is an in-memory store of Policy values keyed by ID. Unlike
// original_source's generic PolicyRepository<T>, this is concrete to
// Policy: CostPilot only ever stores one policy shape, so the generic
// parameter in the Rust original buys nothing in Go (see DESIGN.md).
type Repository struct {
	byID      map[string]Policy
	histories map[string]*History
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{byID: make(map[string]Policy), histories: make(map[string]*History)}
}

// Add inserts a new policy, rejecting a duplicate ID, and seeds its content
// History at version 1.0.0.
func (r *Repository) Add(p Policy) error {
	if _, exists := r.byID[p.ID]; exists {
		return governance.New(governance.KindDuplicatePolicy, "policy already exists: "+p.ID)
	}
	hist, err := NewHistory(p.ID, p.Spec, p.Ownership.Author, p.Lifecycle.CreatedAt)
	if err != nil {
		return governance.Wrap(governance.KindValidationError, "failed to hash initial policy content", err)
	}
	r.byID[p.ID] = p
	r.histories[p.ID] = hist
	return nil
}

// History returns the content-version history tracked for id, if any.
func (r *Repository) History(id string) (*History, bool) {
	h, ok := r.histories[id]
	return h, ok
}

// ReviseSpec replaces id's rule body with newSpec, recording a content-hash
// version bump (major or patch per major) and an AddRevision entry on the
// policy itself. Unchanged content is rejected with
// governance.KindNoPolicyChange rather than silently accepted.
func (r *Repository) ReviseSpec(id string, newSpec any, author, changeDescription string, major bool, now time.Time) (VersionEntry, error) {
	hist, ok := r.histories[id]
	if !ok {
		return VersionEntry{}, governance.New(governance.KindPolicyNotFound, "no such policy: "+id)
	}
	entry, err := hist.AddVersion(newSpec, author, changeDescription, major, now)
	if err != nil {
		return VersionEntry{}, err
	}
	if err := r.Mutate(id, func(p *Policy) {
		p.Spec = newSpec
		p.AddRevision(entry.Version, author, changeDescription, now)
	}); err != nil {
		return VersionEntry{}, err
	}
	return entry, nil
}

// RollbackSpec reverts id's rule body to targetVersion's content, recorded
// as a new forward-only version rather than a rewrite of history.
func (r *Repository) RollbackSpec(id, targetVersion, actor, reason string, now time.Time) (VersionEntry, error) {
	hist, ok := r.histories[id]
	if !ok {
		return VersionEntry{}, governance.New(governance.KindPolicyNotFound, "no such policy: "+id)
	}
	entry, err := hist.Rollback(targetVersion, actor, reason, now)
	if err != nil {
		return VersionEntry{}, err
	}
	if err := r.Mutate(id, func(p *Policy) {
		p.Spec = entry.Spec
		p.AddRevision(entry.Version, actor, "rollback to "+targetVersion+": "+reason, now)
	}); err != nil {
		return VersionEntry{}, err
	}
	return entry, nil
}

// Get returns the policy with the given ID.
func (r *Repository) Get(id string) (Policy, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Update replaces an existing policy, requiring the ID already exist.
func (r *Repository) Update(p Policy) error {
	if _, exists := r.byID[p.ID]; !exists {
		return governance.New(governance.KindPolicyNotFound, "no such policy: "+p.ID)
	}
	r.byID[p.ID] = p
	return nil
}

// Mutate looks up a policy, applies fn, and writes the result back.
func (r *Repository) Mutate(id string, fn func(*Policy)) error {
	p, ok := r.byID[id]
	if !ok {
		return governance.New(governance.KindPolicyNotFound, "no such policy: "+id)
	}
	fn(&p)
	r.byID[id] = p
	return nil
}

// Remove deletes a policy by ID. Removing an unknown ID is a no-op.
func (r *Repository) Remove(id string) {
	delete(r.byID, id)
	delete(r.histories, id)
}

// All returns every policy, sorted by ID for deterministic iteration.
func (r *Repository) All() []Policy {
	out := make([]Policy, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByStatus returns every policy with the given status.
func (r *Repository) ByStatus(status Status) []Policy {
	return r.filter(func(p Policy) bool { return p.Status == status })
}

// ByCategory returns every policy in the given category kind.
func (r *Repository) ByCategory(kind CategoryKind) []Policy {
	return r.filter(func(p Policy) bool { return p.Category.Kind == kind })
}

// BySeverity returns every policy at exactly the given severity.
func (r *Repository) BySeverity(sev governance.Severity) []Policy {
	return r.filter(func(p Policy) bool { return p.Severity == sev })
}

// ByMinSeverity returns every policy at or above the given severity,
// using governance.Severity's total order.
func (r *Repository) ByMinSeverity(min governance.Severity) []Policy {
	return r.filter(func(p Policy) bool { return p.Severity >= min })
}

// ByTag returns every policy carrying the given tag.
func (r *Repository) ByTag(tag string) []Policy {
	return r.filter(func(p Policy) bool { return p.HasTag(tag) })
}

// ByOwner returns every policy owned by the given individual.
func (r *Repository) ByOwner(owner string) []Policy {
	return r.filter(func(p Policy) bool { return p.Ownership.Owner == owner })
}

// ByTeam returns every policy owned by the given team.
func (r *Repository) ByTeam(team string) []Policy {
	return r.filter(func(p Policy) bool { return p.Ownership.Team == team })
}

// Search does a case-insensitive substring match over name, description,
// and ID.
func (r *Repository) Search(query string) []Policy {
	return r.filter(func(p Policy) bool { return p.matchesQuery(query) })
}

// Blocking returns every policy whose severity is Error or above.
func (r *Repository) Blocking() []Policy {
	return r.filter(func(p Policy) bool { return p.IsBlocking() })
}

// Deprecated returns every Deprecated-status policy.
func (r *Repository) Deprecated() []Policy {
	return r.ByStatus(StatusDeprecated)
}

// Enforceable returns every policy that should currently be enforced:
// Active status and within its effective-dating window.
func (r *Repository) Enforceable(now time.Time) []Policy {
	return r.filter(func(p Policy) bool { return p.ShouldEnforce(now) })
}

// NeverEvaluated returns every policy with zero recorded evaluations.
func (r *Repository) NeverEvaluated() []Policy {
	return r.filter(func(p Policy) bool { return p.Metrics.EvaluationCount == 0 })
}

// HighViolationPolicies returns every policy whose violation rate is at
// least threshold (0.0-1.0) and that has been evaluated at least once.
func (r *Repository) HighViolationPolicies(threshold float64) []Policy {
	return r.filter(func(p Policy) bool {
		return p.Metrics.EvaluationCount > 0 && p.Metrics.ViolationRate >= threshold
	})
}

func (r *Repository) filter(pred func(Policy) bool) []Policy {
	var out []Policy
	for _, p := range r.All() {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

// ActivatePolicies bulk-activates the named policies, skipping unknown
// IDs, and returns how many were activated.
func (r *Repository) ActivatePolicies(ids []string, now time.Time) int {
	return r.bulkStatus(ids, now, (*Policy).Activate)
}

// DisablePolicies bulk-disables the named policies, skipping unknown IDs,
// and returns how many were disabled.
func (r *Repository) DisablePolicies(ids []string, now time.Time) int {
	return r.bulkStatus(ids, now, (*Policy).Disable)
}

func (r *Repository) bulkStatus(ids []string, now time.Time, apply func(*Policy, time.Time)) int {
	count := 0
	for _, id := range ids {
		p, ok := r.byID[id]
		if !ok {
			continue
		}
		apply(&p, now)
		r.byID[id] = p
		count++
	}
	return count
}

// ArchiveDeprecated archives every Deprecated policy whose deprecation
// happened more than olderThanDays ago, returning how many were archived.
func (r *Repository) ArchiveDeprecated(olderThanDays int, now time.Time) int {
	count := 0
	for id, p := range r.byID {
		if p.Status != StatusDeprecated || p.Lifecycle.Deprecation == nil {
			continue
		}
		age := now.Sub(p.Lifecycle.Deprecation.DeprecatedAt).Hours() / 24
		if age > float64(olderThanDays) {
			p.Archive(now)
			r.byID[id] = p
			count++
		}
	}
	return count
}

// DelegateOwnership reassigns a policy's individual owner.
func (r *Repository) DelegateOwnership(id, newOwner string, now time.Time) error {
	return r.Mutate(id, func(p *Policy) {
		p.Ownership.Owner = newOwner
		p.Lifecycle.UpdatedAt = now
	})
}

// TransferToTeam reassigns a policy's owning team.
func (r *Repository) TransferToTeam(id, team string, now time.Time) error {
	return r.Mutate(id, func(p *Policy) {
		p.Ownership.Team = team
		p.Lifecycle.UpdatedAt = now
	})
}

// Statistics summarizes the repository's contents.
type Statistics struct {
	Total      int
	ByStatus   map[Status]int
	ByCategory map[CategoryKind]int
	Blocking   int
	Deprecated int
}

// Statistics computes aggregate counts across every stored policy.
func (r *Repository) Statistics() Statistics {
	stats := Statistics{
		ByStatus:   make(map[Status]int),
		ByCategory: make(map[CategoryKind]int),
	}
	for _, p := range r.byID {
		stats.Total++
		stats.ByStatus[p.Status]++
		stats.ByCategory[p.Category.Kind]++
		if p.IsBlocking() {
			stats.Blocking++
		}
		if p.Status == StatusDeprecated {
			stats.Deprecated++
		}
	}
	return stats
}
