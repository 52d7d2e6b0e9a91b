// Package storage provides data persistence for audit runs.
// It implements SQLite-based storage for websites, runs, findings and
// metrics, with the guarantee that one run and all of its children are
// committed in a single transaction.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qainsight/siteaudit/internal/audit"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// SQLiteStorage implements the audit.Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	storage := &SQLiteStorage{db: db}

	if err := storage.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// InitSchema creates the database schema
func (s *SQLiteStorage) InitSchema() error {
	// Enable foreign keys and WAL mode for better performance
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000", // 30 second timeout for locks
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return s.SetMeta("schema_version", schemaVersion)
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// UpsertWebsite finds or registers the website identified by url.
// A non-empty label updates the stored display label; everything else is
// immutable once created.
func (s *SQLiteStorage) UpsertWebsite(url, label string) (*audit.Website, error) {
	if url == "" {
		return nil, fmt.Errorf("website url cannot be empty")
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO websites (uuid, url, label, created_at)
		VALUES (?, ?, ?, ?)
	`, uuid.NewString(), url, label, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to insert website: %w", err)
	}

	if label != "" {
		if _, err := s.db.Exec(`UPDATE websites SET label = ? WHERE url = ? AND label != ?`,
			label, url, label); err != nil {
			return nil, fmt.Errorf("failed to update website label: %w", err)
		}
	}

	return s.GetWebsiteByURL(url)
}

// GetWebsiteByURL loads a website by its normalized URL
func (s *SQLiteStorage) GetWebsiteByURL(url string) (*audit.Website, error) {
	var w audit.Website
	err := s.db.QueryRow(`
		SELECT id, uuid, url, label, created_at
		FROM websites WHERE url = ?
	`, url).Scan(&w.ID, &w.UUID, &w.URL, &w.Label, &w.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query website: %w", err)
	}

	return &w, nil
}

// SaveRun persists a run with its findings and metrics in one
// transaction. Either every row becomes visible or none do, so a reader
// never observes a run with some but not all of its findings.
func (s *SQLiteStorage) SaveRun(run *audit.AuditRun) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(`
		INSERT INTO audit_runs (
			uuid, website_id, started_at, status_code, elapsed_ms,
			payload_bytes, score, outcome, summary
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.UUID, run.WebsiteID, run.StartedAt, nullableInt(run.StatusCode),
		run.ElapsedMS, run.PayloadBytes, run.Score, string(run.Outcome), run.Summary)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get run ID: %w", err)
	}

	findingStmt, err := tx.Prepare(`
		INSERT INTO audit_findings (run_id, category, severity, message, recommendation, order_index)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare finding insert: %w", err)
	}
	defer func() { _ = findingStmt.Close() }()

	for i := range run.Findings {
		f := &run.Findings[i]
		res, err := findingStmt.Exec(runID, string(f.Category), string(f.Severity),
			f.Message, f.Recommendation, f.OrderIndex)
		if err != nil {
			return fmt.Errorf("failed to insert finding %d: %w", f.OrderIndex, err)
		}
		f.RunID = runID
		f.ID, _ = res.LastInsertId()
	}

	metricStmt, err := tx.Prepare(`
		INSERT INTO audit_metrics (run_id, key, value) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare metric insert: %w", err)
	}
	defer func() { _ = metricStmt.Close() }()

	for i := range run.Metrics {
		m := &run.Metrics[i]
		res, err := metricStmt.Exec(runID, m.Key, m.Value)
		if err != nil {
			return fmt.Errorf("failed to insert metric %s: %w", m.Key, err)
		}
		m.RunID = runID
		m.ID, _ = res.LastInsertId()
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO audit_meta (key, value) VALUES ('last_audit_at', ?)
	`, run.StartedAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to update meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	run.ID = runID
	return nil
}

// GetRunByUUID loads one run with its findings and metrics
func (s *SQLiteStorage) GetRunByUUID(runUUID string) (*audit.AuditRun, error) {
	var run audit.AuditRun
	var statusCode sql.NullInt64
	var outcome string

	err := s.db.QueryRow(`
		SELECT id, uuid, website_id, started_at, status_code, elapsed_ms,
		       payload_bytes, score, outcome, summary
		FROM audit_runs WHERE uuid = ?
	`, runUUID).Scan(&run.ID, &run.UUID, &run.WebsiteID, &run.StartedAt, &statusCode,
		&run.ElapsedMS, &run.PayloadBytes, &run.Score, &outcome, &run.Summary)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	run.Outcome = audit.Outcome(outcome)
	if statusCode.Valid {
		code := int(statusCode.Int64)
		run.StatusCode = &code
	}

	if run.Findings, err = s.runFindings(run.ID); err != nil {
		return nil, err
	}
	if run.Metrics, err = s.runMetrics(run.ID); err != nil {
		return nil, err
	}

	return &run, nil
}

// ListRuns returns a website's runs ordered newest first, without
// children. limit <= 0 means no limit.
func (s *SQLiteStorage) ListRuns(websiteID int64, limit int) ([]audit.AuditRun, error) {
	query := `
		SELECT id, uuid, website_id, started_at, status_code, elapsed_ms,
		       payload_bytes, score, outcome, summary
		FROM audit_runs
		WHERE website_id = ?
		ORDER BY started_at DESC, id DESC
	`
	args := []interface{}{websiteID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []audit.AuditRun
	for rows.Next() {
		var run audit.AuditRun
		var statusCode sql.NullInt64
		var outcome string

		if err := rows.Scan(&run.ID, &run.UUID, &run.WebsiteID, &run.StartedAt, &statusCode,
			&run.ElapsedMS, &run.PayloadBytes, &run.Score, &outcome, &run.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.Outcome = audit.Outcome(outcome)
		if statusCode.Valid {
			code := int(statusCode.Int64)
			run.StatusCode = &code
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// RecentScores returns the last limit scores for a website, oldest first
func (s *SQLiteStorage) RecentScores(websiteID int64, limit int) ([]int, error) {
	rows, err := s.db.Query(`
		SELECT score FROM audit_runs
		WHERE website_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, websiteID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scores []int
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order for trend display
	for i, j := 0, len(scores)-1; i < j; i, j = i+1, j-1 {
		scores[i], scores[j] = scores[j], scores[i]
	}

	return scores, nil
}

// CountRuns returns the number of rows persisted for a website
func (s *SQLiteStorage) CountRuns(websiteID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM audit_runs WHERE website_id = ?`, websiteID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// GetMeta retrieves a metadata value
func (s *SQLiteStorage) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM audit_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta: %w", err)
	}
	return value, nil
}

// SetMeta stores a metadata value
func (s *SQLiteStorage) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO audit_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set meta: %w", err)
	}
	return nil
}

// runFindings loads a run's findings in evaluation order
func (s *SQLiteStorage) runFindings(runID int64) ([]audit.Finding, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, category, severity, message, recommendation, order_index
		FROM audit_findings
		WHERE run_id = ?
		ORDER BY order_index ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var findings []audit.Finding
	for rows.Next() {
		var f audit.Finding
		var category, severity string
		if err := rows.Scan(&f.ID, &f.RunID, &category, &severity,
			&f.Message, &f.Recommendation, &f.OrderIndex); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.Category = audit.Category(category)
		f.Severity = audit.Severity(severity)
		findings = append(findings, f)
	}

	return findings, rows.Err()
}

// runMetrics loads a run's metrics
func (s *SQLiteStorage) runMetrics(runID int64) ([]audit.Metric, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, key, value
		FROM audit_metrics
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var metrics []audit.Metric
	for rows.Next() {
		var m audit.Metric
		if err := rows.Scan(&m.ID, &m.RunID, &m.Key, &m.Value); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

// Ensure SQLiteStorage satisfies the engine's persistence contract
var _ audit.Storage = (*SQLiteStorage)(nil)

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
