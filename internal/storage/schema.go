package storage

const schemaSQL = `
-- Audited targets. Immutable after creation except for the label.
CREATE TABLE IF NOT EXISTS websites (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT NOT NULL,
    url TEXT UNIQUE NOT NULL,
    label TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_websites_url ON websites(url);

-- One row per engine execution. Append-only: rows are never updated.
CREATE TABLE IF NOT EXISTS audit_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT NOT NULL,
    website_id INTEGER NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
    started_at DATETIME NOT NULL,

    -- NULL status_code means the fetch never produced a response
    status_code INTEGER,
    elapsed_ms INTEGER NOT NULL DEFAULT 0,
    payload_bytes INTEGER NOT NULL DEFAULT 0,
    score INTEGER NOT NULL DEFAULT 0 CHECK (score BETWEEN 0 AND 100),
    outcome TEXT NOT NULL CHECK (outcome IN ('succeeded', 'failed-to-fetch')),
    summary TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_website ON audit_runs(website_id, started_at);
CREATE INDEX IF NOT EXISTS idx_runs_uuid ON audit_runs(uuid);

-- Findings point only up to their owning run; order_index preserves
-- evaluation order.
CREATE TABLE IF NOT EXISTS audit_findings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES audit_runs(id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    severity TEXT NOT NULL CHECK (severity IN ('info', 'warning', 'critical')),
    message TEXT NOT NULL,
    recommendation TEXT NOT NULL DEFAULT '',
    order_index INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_findings_run ON audit_findings(run_id, order_index);

CREATE TABLE IF NOT EXISTS audit_metrics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES audit_runs(id) ON DELETE CASCADE,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    UNIQUE(run_id, key)
);

CREATE INDEX IF NOT EXISTS idx_metrics_run ON audit_metrics(run_id);

-- View joining runs to their website for reporting
CREATE VIEW IF NOT EXISTS run_history AS
SELECT
    r.id, r.uuid, r.started_at, r.status_code, r.elapsed_ms,
    r.payload_bytes, r.score, r.outcome, r.summary,
    w.url, w.label
FROM audit_runs r
JOIN websites w ON w.id = r.website_id;

-- Key-value bookkeeping (schema version, last run timestamp)
CREATE TABLE IF NOT EXISTS audit_meta (
    key TEXT PRIMARY KEY NOT NULL,
    value TEXT NOT NULL
);
`
