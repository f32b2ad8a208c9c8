package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/costpilot/costpilot/internal/audit"
	"github.com/costpilot/costpilot/internal/governance"
)

func newTestServer(t *testing.T) (*Server, *audit.Log) {
	t.Helper()
	clock := governance.FixedClock{At: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	ids := audit.IDSource{Clock: clock}
	log := audit.New(nil)

	events := []audit.Event{
		audit.NewEvent(ids, audit.EventPolicyActivated, "user-1", "pol-budget", "cost_policy", "activated"),
		audit.NewEvent(ids, audit.EventSloViolation, "ci-runner", "slo-global", "slo", "violated"),
	}
	for _, e := range events {
		if _, err := log.Append(e); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}
	return NewServer(Config{}, log, clock, nil), log
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleListEntriesDefaultReturnsAll(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit", nil))

	var body struct {
		Entries []audit.Entry `json:"entries"`
		Total   int           `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Total != 2 || len(body.Entries) != 2 {
		t.Errorf("got total=%d entries=%d, want 2/2", body.Total, len(body.Entries))
	}
}

func TestHandleListEntriesFiltersByEventType(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit?event_type=slo_violation", nil))

	var body struct {
		Entries []audit.Entry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Entries) != 1 || body.Entries[0].Event.EventType != audit.EventSloViolation {
		t.Errorf("filtered entries = %+v, want exactly one slo_violation", body.Entries)
	}
}

func TestHandleVerifyChainReportsValid(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/verify", nil))

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["valid"] != true {
		t.Errorf("valid = %v, want true", body["valid"])
	}
}

func TestHandleStatsReflectsAppendedEntries(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/stats", nil))

	var stats audit.Statistics
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stats.TotalEvents != 2 || !stats.ChainVerified {
		t.Errorf("stats = %+v, want TotalEvents=2 ChainVerified=true", stats)
	}
}

func TestHandleExportNDJSONIsDefault(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/export", nil))
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Content-Type = %q, want application/x-ndjson", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected non-empty NDJSON body")
	}
}

func TestHandleExportCSV(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/export?format=csv", nil))
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
}

func TestBroadcastEntryWithNoClientsIsNoop(t *testing.T) {
	s, log := newTestServer(t)
	// Exercised indirectly: BroadcastEntry must not panic with zero clients.
	last, ok := log.Last()
	if !ok {
		t.Fatal("expected at least one entry")
	}
	s.BroadcastEntry(last)
	if s.hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0 with no connected viewers", s.hub.ClientCount())
	}
}
