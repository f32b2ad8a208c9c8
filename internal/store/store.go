// Package store is the caller-side persistence adapter for the audit
// chain and cost-snapshot history. It is never imported by the
// governance core (policy, baseline, slo, pipeline): those packages work
// entirely in memory and take their inputs as plain Go values, exactly
// as the teacher's internal/policy and internal/lifecycle never reach
// into internal/trace directly. Only cmd/costpilot wires a Store in.
//
// Grounded on internal/trace/store.go (the Store interface) and
// internal/trace/sqlite.go (the SQLite implementation), adapted from
// agent-trace rows to audit entries and cost snapshots.
package store

import (
	"time"

	"github.com/costpilot/costpilot/internal/audit"
	"github.com/costpilot/costpilot/internal/slo"
)

// Store defines the persistence operations cmd/costpilot needs: durable
// storage for the audit chain across restarts, and a cost-snapshot
// history for the burn-rate calculator to regress over.
type Store interface {
	Initialize() error
	Close() error

	// Audit chain
	AppendAuditEntry(e audit.Entry) error
	LoadAuditEntries() ([]audit.Entry, error)
	CountAuditEntries() (int, error)

	// Cost snapshots
	InsertCostSnapshot(snap slo.CostSnapshot) error
	ListCostSnapshots(since, until *time.Time) ([]slo.CostSnapshot, error)
	PruneSnapshotsOlderThan(days int) (int64, error)
}
