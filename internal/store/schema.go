package store

const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	sequence        INTEGER PRIMARY KEY,
	event_id        TEXT NOT NULL,
	event_type      TEXT NOT NULL,
	timestamp       DATETIME NOT NULL,
	actor           TEXT NOT NULL,
	resource_id     TEXT NOT NULL,
	resource_type   TEXT NOT NULL,
	severity        TEXT NOT NULL,
	description     TEXT NOT NULL,
	metadata        TEXT,
	old_value       TEXT,
	new_value       TEXT,
	ip_address      TEXT,
	user_agent      TEXT,
	success         BOOLEAN NOT NULL DEFAULT 1,
	error_message   TEXT,
	hash            TEXT NOT NULL,
	previous_hash   TEXT NOT NULL,
	signature       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_entries_event_type ON audit_entries(event_type);
CREATE INDEX IF NOT EXISTS idx_audit_entries_actor ON audit_entries(actor);
CREATE INDEX IF NOT EXISTS idx_audit_entries_resource ON audit_entries(resource_id);
CREATE INDEX IF NOT EXISTS idx_audit_entries_timestamp ON audit_entries(timestamp);

CREATE TABLE IF NOT EXISTS cost_snapshots (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp           DATETIME NOT NULL,
	total_monthly_cost  REAL NOT NULL,
	module_costs        TEXT,
	service_costs       TEXT
);

CREATE INDEX IF NOT EXISTS idx_cost_snapshots_timestamp ON cost_snapshots(timestamp);
`
