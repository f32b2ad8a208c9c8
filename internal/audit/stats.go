package audit

import (
	"time"

	"github.com/costpilot/costpilot/internal/governance"
)

// Statistics aggregates the log, computed on demand (never cached) because
// the "last 24h/7d/30d" windows depend on the caller-supplied clock,
// never a package-level global.
type Statistics struct {
	TotalEvents      int            `json:"total_events"`
	EventsByType     map[string]int `json:"events_by_type"`
	EventsBySeverity map[string]int `json:"events_by_severity"`
	UniqueActors     int            `json:"unique_actors"`
	UniqueResources  int            `json:"unique_resources"`
	FailedEvents     int            `json:"failed_events"`
	EventsLast24h    int            `json:"events_last_24h"`
	EventsLast7d     int            `json:"events_last_7d"`
	EventsLast30d    int            `json:"events_last_30d"`
	ChainVerified    bool           `json:"chain_verified"`
}

// Statistics computes aggregate counts as of the given clock reading.
func (l *Log) Statistics(clock governance.Clock) Statistics {
	l.mu.RLock()
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	l.mu.RUnlock()

	now := clock.Now()
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	stats := Statistics{
		EventsByType:     make(map[string]int),
		EventsBySeverity: make(map[string]int),
	}
	actors := make(map[string]struct{})
	resources := make(map[string]struct{})

	for _, entry := range entries {
		e := entry.Event
		stats.EventsByType[string(e.EventType)]++
		stats.EventsBySeverity[string(e.Severity)]++
		actors[e.Actor] = struct{}{}
		resources[e.ResourceID] = struct{}{}
		if !e.Success {
			stats.FailedEvents++
		}
		if !e.Timestamp.Before(dayAgo) {
			stats.EventsLast24h++
		}
		if !e.Timestamp.Before(weekAgo) {
			stats.EventsLast7d++
		}
		if !e.Timestamp.Before(monthAgo) {
			stats.EventsLast30d++
		}
	}

	stats.TotalEvents = len(entries)
	stats.UniqueActors = len(actors)
	stats.UniqueResources = len(resources)
	stats.ChainVerified = l.VerifyChain() == nil
	return stats
}
