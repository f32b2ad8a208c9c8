package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/costpilot/costpilot/internal/audit"
	"github.com/costpilot/costpilot/internal/slo"
)

// SQLiteStore implements Store using SQLite, following the connection and
// pragma settings of internal/trace/sqlite.go's NewSQLiteStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (but does not yet initialize) a SQLite-backed store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Initialize() error {
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Audit chain ---

// AppendAuditEntry persists one already hash-chained entry. It is an
// INSERT, never an upsert: the sequence column is the chain's own
// monotonic counter, so a conflicting sequence means the caller is
// re-appending and is a programming error, not a record to merge.
func (s *SQLiteStore) AppendAuditEntry(e audit.Entry) error {
	metadata, err := nullableJSONMap(e.Event.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO audit_entries (sequence, event_id, event_type, timestamp, actor,
		resource_id, resource_type, severity, description, metadata, old_value, new_value,
		ip_address, user_agent, success, error_message, hash, previous_hash, signature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Sequence, e.Event.ID, string(e.Event.EventType), e.Event.Timestamp, e.Event.Actor,
		e.Event.ResourceID, e.Event.ResourceType, string(e.Event.Severity), e.Event.Description,
		metadata, nullPtr(e.Event.OldValue), nullPtr(e.Event.NewValue),
		nullPtr(e.Event.IPAddress), nullPtr(e.Event.UserAgent), e.Event.Success, nullPtr(e.Event.ErrorMessage),
		e.Hash, e.PreviousHash, e.Signature,
	)
	return err
}

// LoadAuditEntries returns every persisted entry in sequence order, the
// shape audit.Restore needs to rebuild an in-memory Log at startup.
func (s *SQLiteStore) LoadAuditEntries() ([]audit.Entry, error) {
	rows, err := s.db.Query(`SELECT sequence, event_id, event_type, timestamp, actor, resource_id,
		resource_type, severity, description, metadata, old_value, new_value, ip_address,
		user_agent, success, error_message, hash, previous_hash, signature
		FROM audit_entries ORDER BY sequence ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var metadata sql.NullString
		var oldValue, newValue, ipAddress, userAgent, errorMessage sql.NullString
		var eventType, severity string

		if err := rows.Scan(&e.Sequence, &e.Event.ID, &eventType, &e.Event.Timestamp, &e.Event.Actor,
			&e.Event.ResourceID, &e.Event.ResourceType, &severity, &e.Event.Description, &metadata,
			&oldValue, &newValue, &ipAddress, &userAgent, &e.Event.Success, &errorMessage,
			&e.Hash, &e.PreviousHash, &e.Signature); err != nil {
			return nil, err
		}

		e.Event.EventType = audit.EventType(eventType)
		e.Event.Severity = audit.Severity(severity)
		if metadata.Valid {
			m := make(map[string]string)
			if err := json.Unmarshal([]byte(metadata.String), &m); err != nil {
				return nil, fmt.Errorf("audit entry %d: decode metadata: %w", e.Sequence, err)
			}
			e.Event.Metadata = m
		}
		e.Event.OldValue = strPtr(oldValue)
		e.Event.NewValue = strPtr(newValue)
		e.Event.IPAddress = strPtr(ipAddress)
		e.Event.UserAgent = strPtr(userAgent)
		e.Event.ErrorMessage = strPtr(errorMessage)

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) CountAuditEntries() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM audit_entries").Scan(&count)
	return count, err
}

// --- Cost snapshots ---

func (s *SQLiteStore) InsertCostSnapshot(snap slo.CostSnapshot) error {
	moduleCosts, err := nullableJSONMapF(snap.ModuleCosts)
	if err != nil {
		return err
	}
	serviceCosts, err := nullableJSONMapF(snap.ServiceCosts)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO cost_snapshots (timestamp, total_monthly_cost, module_costs, service_costs)
		VALUES (?, ?, ?, ?)`,
		snap.Timestamp, snap.TotalMonthlyCost, moduleCosts, serviceCosts,
	)
	return err
}

// ListCostSnapshots returns snapshots within [since, until], either bound
// optional, ordered oldest first so they feed directly into
// slo.Calculator.Analyze's regression.
func (s *SQLiteStore) ListCostSnapshots(since, until *time.Time) ([]slo.CostSnapshot, error) {
	query := "SELECT timestamp, total_monthly_cost, module_costs, service_costs FROM cost_snapshots"
	var conditions []string
	var args []interface{}
	if since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, *since)
	}
	if until != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, *until)
	}
	if len(conditions) > 0 {
		query += " WHERE " + conditions[0]
		for _, c := range conditions[1:] {
			query += " AND " + c
		}
	}
	query += " ORDER BY timestamp ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []slo.CostSnapshot
	for rows.Next() {
		var snap slo.CostSnapshot
		var moduleCosts, serviceCosts sql.NullString
		if err := rows.Scan(&snap.Timestamp, &snap.TotalMonthlyCost, &moduleCosts, &serviceCosts); err != nil {
			return nil, err
		}
		if moduleCosts.Valid {
			if err := json.Unmarshal([]byte(moduleCosts.String), &snap.ModuleCosts); err != nil {
				return nil, fmt.Errorf("decode module_costs: %w", err)
			}
		}
		if serviceCosts.Valid {
			if err := json.Unmarshal([]byte(serviceCosts.String), &snap.ServiceCosts); err != nil {
				return nil, fmt.Errorf("decode service_costs: %w", err)
			}
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

func (s *SQLiteStore) PruneSnapshotsOlderThan(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result, err := s.db.Exec("DELETE FROM cost_snapshots WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// --- Helpers ---

func nullPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullableJSONMap(m map[string]string) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullableJSONMapF(m map[string]float64) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
