// Package audit implements the tamper-evident, hash-chained audit log.
// It generalizes the chaining pattern of the teacher's
// internal/trace/hashchain.go (ComputeHash/VerifyChain) to the richer
// AuditEvent/AuditLogEntry model, with the exact formula, genesis
// constant, and signature placeholder taken from original_source's
// engines/policy/audit_log.rs.
package audit

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/costpilot/costpilot/internal/governance"
)

// Entry is one immutable, chained record.
type Entry struct {
	Sequence     uint64 `json:"sequence"`
	Event        Event  `json:"event"`
	Hash         string `json:"hash"`
	PreviousHash string `json:"previous_hash"`
	Signature    string `json:"signature"`
}

func newEntry(sequence uint64, event Event, previousHash string) (Entry, error) {
	eventHash, err := event.hash()
	if err != nil {
		return Entry{}, err
	}
	hash := entryHash(sequence, eventHash, previousHash)
	return Entry{
		Sequence:     sequence,
		Event:        event,
		Hash:         hash,
		PreviousHash: previousHash,
		Signature:    entrySignature(hash),
	}, nil
}

// verify checks that the entry's stored hash/signature are reproducible
// and that its previous_hash matches the given expected value.
func (e Entry) verify(expectedPreviousHash string) bool {
	if e.PreviousHash != expectedPreviousHash {
		return false
	}
	eventHash, err := e.Event.hash()
	if err != nil {
		return false
	}
	if e.Hash != entryHash(e.Sequence, eventHash, e.PreviousHash) {
		return false
	}
	return e.Signature == entrySignature(e.Hash)
}

// Log is the append-only chain manager. Appends are serialized by mu;
// reads (query/verify/export) take a snapshot-consistent read lock, never
// mutating the log.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	genesis string
	logger  *slog.Logger
}

// New creates an empty audit log.
func New(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		genesis: genesisHash(),
		logger:  logger.With("component", "audit.Log"),
	}
}

// GenesisHash returns the chain's anchor hash.
func (l *Log) GenesisHash() string {
	return l.genesis
}

// previousHashLocked returns the hash the next entry must chain from. Must
// be called with mu held.
func (l *Log) previousHashLocked() string {
	if len(l.entries) == 0 {
		return l.genesis
	}
	return l.entries[len(l.entries)-1].Hash
}

// Append adds event to the chain, returning its assigned sequence number.
// Before committing, it recomputes and verifies the candidate entry; a
// mismatch is a governance.Error(KindInvalidAuditEntry) and the log is left
// unchanged.
func (l *Log) Append(event Event) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sequence := uint64(len(l.entries))
	previousHash := l.previousHashLocked()

	entry, err := newEntry(sequence, event, previousHash)
	if err != nil {
		return 0, governance.Wrap(governance.KindInvalidAuditEntry, "failed to hash audit entry", err)
	}
	if !entry.verify(previousHash) {
		return 0, governance.New(governance.KindInvalidAuditEntry, "audit entry failed self-verification before append")
	}

	l.entries = append(l.entries, entry)
	l.logger.Debug("audit event appended",
		"sequence", sequence,
		"event_type", event.EventType,
		"resource_id", event.ResourceID,
		"severity", event.Severity,
	)
	return sequence, nil
}

// VerifyChain walks every entry in order, checking sequence continuity,
// hash linkage, and self-consistency. The first failure is returned
// identifying its sequence number.
func (l *Log) VerifyChain() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	previousHash := l.genesis
	for i, entry := range l.entries {
		if entry.Sequence != uint64(i) {
			return governance.New(governance.KindBrokenChain,
				brokenChainMsg("sequence mismatch", i, int(entry.Sequence)))
		}
		if !entry.verify(previousHash) {
			return governance.New(governance.KindBrokenChain,
				brokenChainMsg("entry failed verification", i, i))
		}
		previousHash = entry.Hash
	}
	return nil
}

func brokenChainMsg(reason string, index, got int) string {
	return reason + " at sequence " + strconv.Itoa(index) + " (got " + strconv.Itoa(got) + ")"
}

// Restore rebuilds a Log from entries persisted by a caller-side store
// (internal/store), verifying the chain before accepting it so a corrupted
// or tampered database surfaces as a governance.Error(KindBrokenChain) at
// startup rather than silently resuming from bad state.
func Restore(entries []Entry, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Log{
		genesis: genesisHash(),
		logger:  logger.With("component", "audit.Log"),
	}
	l.entries = make([]Entry, len(entries))
	copy(l.entries, entries)
	if err := l.VerifyChain(); err != nil {
		return nil, err
	}
	return l, nil
}

// Entries returns a read-only snapshot of the chain.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Count returns the number of appended entries.
func (l *Log) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Last returns the most recently appended entry, if any.
func (l *Log) Last() (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// ByEventType returns every entry whose event matches the given type.
func (l *Log) ByEventType(t EventType) []Entry {
	return l.filter(func(e Entry) bool { return e.Event.EventType == t })
}

// ByActor returns every entry whose event was initiated by actor.
func (l *Log) ByActor(actor string) []Entry {
	return l.filter(func(e Entry) bool { return e.Event.Actor == actor })
}

// ByResource returns every entry concerning the given resource ID.
func (l *Log) ByResource(resourceID string) []Entry {
	return l.filter(func(e Entry) bool { return e.Event.ResourceID == resourceID })
}

// BySeverity returns every entry at the given severity.
func (l *Log) BySeverity(sev Severity) []Entry {
	return l.filter(func(e Entry) bool { return e.Event.Severity == sev })
}

// ByTimeRange returns every entry whose timestamp falls within [start, end].
func (l *Log) ByTimeRange(start, end time.Time) []Entry {
	return l.filter(func(e Entry) bool {
		ts := e.Event.Timestamp
		return !ts.Before(start) && !ts.After(end)
	})
}

func (l *Log) filter(pred func(Entry) bool) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	for _, e := range l.entries {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}
