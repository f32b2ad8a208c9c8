package audit

import (
	"encoding/json"
	"strconv"
	"strings"
)

// csvHeader is the exact fixed header every exported audit CSV carries.
const csvHeader = "sequence,timestamp,event_type,actor,resource_id,resource_type,severity,description,success,hash"

// ExportNDJSON writes one JSON object per line, each line terminated with
// a newline, matching original_source's export_ndjson.
func (l *Log) ExportNDJSON() (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var b strings.Builder
	for _, entry := range l.entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return "", err
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// ExportCSV writes the fixed header followed by one row per entry, quoting
// fields that contain a comma, quote, or newline (internal quotes doubled),
// matching original_source's export_csv.
func (l *Log) ExportCSV() (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteByte('\n')

	for _, entry := range l.entries {
		e := entry.Event
		fields := []string{
			strconv.FormatUint(entry.Sequence, 10),
			e.Timestamp.Format(timeRFC3339),
			string(e.EventType),
			csvEscape(e.Actor),
			csvEscape(e.ResourceID),
			csvEscape(e.ResourceType),
			string(e.Severity),
			csvEscape(e.Description),
			strconv.FormatBool(e.Success),
			entry.Hash,
		}
		b.WriteString(strings.Join(fields, ","))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

const timeRFC3339 = "2006-01-02T15:04:05Z07:00"

func csvEscape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
