package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/costpilot/costpilot/internal/audit"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleListEntries supports the same filter-by-query-param shape as the
// teacher's handleListTraces: event_type, actor, resource_id, severity,
// since/until (RFC3339), applied in that precedence order.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var entries []audit.Entry

	switch {
	case q.Get("event_type") != "":
		entries = s.log.ByEventType(audit.EventType(q.Get("event_type")))
	case q.Get("actor") != "":
		entries = s.log.ByActor(q.Get("actor"))
	case q.Get("resource_id") != "":
		entries = s.log.ByResource(q.Get("resource_id"))
	case q.Get("severity") != "":
		entries = s.log.BySeverity(audit.Severity(q.Get("severity")))
	case q.Get("since") != "" && q.Get("until") != "":
		since, errS := time.Parse(time.RFC3339, q.Get("since"))
		until, errU := time.Parse(time.RFC3339, q.Get("until"))
		if errS != nil || errU != nil {
			writeError(w, http.StatusBadRequest, "since/until must be RFC3339 timestamps")
			return
		}
		entries = s.log.ByTimeRange(since, until)
	default:
		entries = s.log.Entries()
	}

	limit := queryInt(r, "limit", 100)
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	writeJSON(w, map[string]interface{}{
		"entries": entries,
		"total":   s.log.Count(),
	})
}

func (s *Server) handleVerifyChain(w http.ResponseWriter, r *http.Request) {
	if err := s.log.VerifyChain(); err != nil {
		writeJSON(w, map[string]interface{}{"valid": false, "error": err.Error()})
		return
	}
	writeJSON(w, map[string]interface{}{"valid": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.log.Statistics(s.clock))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("format") {
	case "csv":
		out, err := s.log.ExportCSV()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(out))
	default:
		out, err := s.log.ExportNDJSON()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(out))
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
