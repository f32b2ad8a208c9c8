package audit

import "time"

// Query is a fluent, reusable filter over a Log's entries, grounded on
// original_source's engines/policy/compliance.rs::AuditQuery. Each With*
// call narrows the result set; an unset filter dimension matches
// everything.
type Query struct {
	log          *Log
	eventTypes   []EventType
	actors       []string
	resources    []string
	severities   []Severity
	start, end   *time.Time
	successOnly  *bool
}

// NewQuery starts a query over log.
func NewQuery(log *Log) *Query {
	return &Query{log: log}
}

func (q *Query) WithEventType(t EventType) *Query {
	q.eventTypes = append(q.eventTypes, t)
	return q
}

func (q *Query) WithActor(actor string) *Query {
	q.actors = append(q.actors, actor)
	return q
}

func (q *Query) WithResource(resourceID string) *Query {
	q.resources = append(q.resources, resourceID)
	return q
}

func (q *Query) WithSeverity(sev Severity) *Query {
	q.severities = append(q.severities, sev)
	return q
}

func (q *Query) WithTimeRange(start, end time.Time) *Query {
	q.start, q.end = &start, &end
	return q
}

func (q *Query) WithSuccess(success bool) *Query {
	q.successOnly = &success
	return q
}

// Execute returns every entry matching every filter set on q.
func (q *Query) Execute() []Entry {
	return q.log.filter(q.matches)
}

// Count returns how many entries match q, without building the slice
// twice over (filter already builds it; Count just reports its length).
func (q *Query) Count() int {
	return len(q.Execute())
}

func (q *Query) matches(e Entry) bool {
	ev := e.Event
	if len(q.eventTypes) > 0 && !containsEventType(q.eventTypes, ev.EventType) {
		return false
	}
	if len(q.actors) > 0 && !containsString(q.actors, ev.Actor) {
		return false
	}
	if len(q.resources) > 0 && !containsString(q.resources, ev.ResourceID) {
		return false
	}
	if len(q.severities) > 0 && !containsSeverity(q.severities, ev.Severity) {
		return false
	}
	if q.start != nil && ev.Timestamp.Before(*q.start) {
		return false
	}
	if q.end != nil && ev.Timestamp.After(*q.end) {
		return false
	}
	if q.successOnly != nil && ev.Success != *q.successOnly {
		return false
	}
	return true
}

func containsEventType(set []EventType, t EventType) bool {
	for _, s := range set {
		if s == t {
			return true
		}
	}
	return false
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsSeverity(set []Severity, sev Severity) bool {
	for _, s := range set {
		if s == sev {
			return true
		}
	}
	return false
}
