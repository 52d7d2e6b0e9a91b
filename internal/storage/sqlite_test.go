package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/qainsight/siteaudit/internal/audit"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	storage, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close() })

	return storage
}

func sampleRun(websiteID int64) *audit.AuditRun {
	statusCode := 200
	return &audit.AuditRun{
		UUID:         uuid.NewString(),
		WebsiteID:    websiteID,
		StartedAt:    time.Now().UTC(),
		StatusCode:   &statusCode,
		ElapsedMS:    150,
		PayloadBytes: 2048,
		Score:        90,
		Outcome:      audit.OutcomeSucceeded,
		Summary:      "Example page",
		Findings: []audit.Finding{
			{
				Category:       audit.CategorySEO,
				Severity:       audit.SeverityWarning,
				Message:        "The page does not define a meta description tag.",
				Recommendation: "Add a meta description.",
				OrderIndex:     0,
			},
		},
		Metrics: []audit.Metric{
			{Key: "status_code", Value: "200"},
			{Key: "response_time_ms", Value: "150"},
		},
	}
}

func TestInitSchema(t *testing.T) {
	storage := newTestStorage(t)

	version, err := storage.GetMeta("schema_version")
	if err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if version != "1" {
		t.Errorf("Expected schema version 1, got %q", version)
	}
}

func TestUpsertWebsite(t *testing.T) {
	storage := newTestStorage(t)

	first, err := storage.UpsertWebsite("https://example.com", "Example")
	if err != nil {
		t.Fatalf("Failed to upsert website: %v", err)
	}
	if first.ID == 0 || first.UUID == "" {
		t.Errorf("Expected assigned ID and UUID, got %+v", first)
	}
	if first.Label != "Example" {
		t.Errorf("Expected label Example, got %q", first.Label)
	}

	// Same URL must resolve to the same row
	second, err := storage.UpsertWebsite("https://example.com", "")
	if err != nil {
		t.Fatalf("Failed to upsert website again: %v", err)
	}
	if second.ID != first.ID || second.UUID != first.UUID {
		t.Errorf("Expected same website row, got %+v vs %+v", first, second)
	}
	if second.Label != "Example" {
		t.Errorf("Empty label should not clear the stored one, got %q", second.Label)
	}

	// A new non-empty label replaces the stored one
	third, err := storage.UpsertWebsite("https://example.com", "Example Site")
	if err != nil {
		t.Fatalf("Failed to upsert website with new label: %v", err)
	}
	if third.Label != "Example Site" {
		t.Errorf("Expected updated label, got %q", third.Label)
	}
}

func TestUpsertWebsiteEmptyURL(t *testing.T) {
	storage := newTestStorage(t)

	if _, err := storage.UpsertWebsite("", ""); err == nil {
		t.Error("Expected error for empty URL")
	}
}

func TestSaveRunRoundtrip(t *testing.T) {
	storage := newTestStorage(t)

	website, err := storage.UpsertWebsite("https://example.com", "")
	if err != nil {
		t.Fatalf("Failed to upsert website: %v", err)
	}

	run := sampleRun(website.ID)
	if err := storage.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	if run.ID == 0 {
		t.Error("Expected run ID to be assigned")
	}

	loaded, err := storage.GetRunByUUID(run.UUID)
	if err != nil {
		t.Fatalf("Failed to load run: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected run to be found")
	}

	if loaded.Score != 90 || loaded.Outcome != audit.OutcomeSucceeded {
		t.Errorf("Expected score 90 / succeeded, got %d / %s", loaded.Score, loaded.Outcome)
	}
	if loaded.StatusCode == nil || *loaded.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %v", loaded.StatusCode)
	}
	if loaded.Summary != "Example page" {
		t.Errorf("Expected summary preserved, got %q", loaded.Summary)
	}

	if len(loaded.Findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(loaded.Findings))
	}
	f := loaded.Findings[0]
	if f.Category != audit.CategorySEO || f.Severity != audit.SeverityWarning {
		t.Errorf("Expected seo/warning, got %s/%s", f.Category, f.Severity)
	}
	if f.RunID != loaded.ID {
		t.Errorf("Expected finding linked to run %d, got %d", loaded.ID, f.RunID)
	}

	if len(loaded.Metrics) != 2 {
		t.Fatalf("Expected 2 metrics, got %d", len(loaded.Metrics))
	}
	if loaded.Metrics[0].Key != "status_code" || loaded.Metrics[0].Value != "200" {
		t.Errorf("Unexpected first metric: %+v", loaded.Metrics[0])
	}

	lastAuditAt, err := storage.GetMeta("last_audit_at")
	if err != nil {
		t.Fatalf("Failed to read meta: %v", err)
	}
	if lastAuditAt == "" {
		t.Error("Expected last_audit_at meta to be set")
	}
}

func TestSaveRunNullStatusCode(t *testing.T) {
	storage := newTestStorage(t)

	website, err := storage.UpsertWebsite("https://example.com", "")
	if err != nil {
		t.Fatalf("Failed to upsert website: %v", err)
	}

	run := &audit.AuditRun{
		UUID:      uuid.NewString(),
		WebsiteID: website.ID,
		StartedAt: time.Now().UTC(),
		ElapsedMS: 10000,
		Score:     80,
		Outcome:   audit.OutcomeFailedToFetch,
		Summary:   "Fetch failed: timeout",
		Findings: []audit.Finding{{
			Category:       audit.CategoryAvailability,
			Severity:       audit.SeverityCritical,
			Message:        "The target URL could not be fetched (timeout).",
			Recommendation: "Verify hosting availability.",
		}},
		Metrics: []audit.Metric{
			{Key: "response_time_ms", Value: "10000"},
			{Key: "error_class", Value: "timeout"},
		},
	}

	if err := storage.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	loaded, err := storage.GetRunByUUID(run.UUID)
	if err != nil {
		t.Fatalf("Failed to load run: %v", err)
	}
	if loaded.StatusCode != nil {
		t.Errorf("Expected null status code, got %d", *loaded.StatusCode)
	}
	if loaded.Outcome != audit.OutcomeFailedToFetch {
		t.Errorf("Expected failed-to-fetch, got %s", loaded.Outcome)
	}
}

// SaveRun is atomic: a mid-transaction failure must leave no trace of the
// run. The severity check constraint is used to force the failure after
// the run row was already inserted.
func TestSaveRunRollsBackOnFailure(t *testing.T) {
	storage := newTestStorage(t)

	website, err := storage.UpsertWebsite("https://example.com", "")
	if err != nil {
		t.Fatalf("Failed to upsert website: %v", err)
	}

	run := sampleRun(website.ID)
	run.Findings = append(run.Findings, audit.Finding{
		Category:   audit.CategorySEO,
		Severity:   audit.Severity("catastrophic"),
		Message:    "bad severity",
		OrderIndex: 1,
	})

	if err := storage.SaveRun(run); err == nil {
		t.Fatal("Expected save to fail on invalid severity")
	}

	count, err := storage.CountRuns(website.ID)
	if err != nil {
		t.Fatalf("Failed to count runs: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no runs after rollback, got %d", count)
	}

	loaded, err := storage.GetRunByUUID(run.UUID)
	if err != nil {
		t.Fatalf("Failed to query run: %v", err)
	}
	if loaded != nil {
		t.Error("Expected no run row after rollback")
	}

	var orphans int
	if err := storage.db.QueryRow(`SELECT COUNT(*) FROM audit_findings`).Scan(&orphans); err != nil {
		t.Fatalf("Failed to count findings: %v", err)
	}
	if orphans != 0 {
		t.Errorf("Expected no orphan findings after rollback, got %d", orphans)
	}
}

func TestSaveRunDuplicateMetricKeyFails(t *testing.T) {
	storage := newTestStorage(t)

	website, err := storage.UpsertWebsite("https://example.com", "")
	if err != nil {
		t.Fatalf("Failed to upsert website: %v", err)
	}

	run := sampleRun(website.ID)
	run.Metrics = append(run.Metrics, audit.Metric{Key: "status_code", Value: "500"})

	if err := storage.SaveRun(run); err == nil {
		t.Error("Expected duplicate metric key to fail the save")
	}
}

func TestListRunsAndScores(t *testing.T) {
	storage := newTestStorage(t)

	website, err := storage.UpsertWebsite("https://example.com", "")
	if err != nil {
		t.Fatalf("Failed to upsert website: %v", err)
	}

	base := time.Now().UTC().Add(-time.Hour)
	scores := []int{100, 90, 48}
	for i, score := range scores {
		run := sampleRun(website.ID)
		run.UUID = uuid.NewString()
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		run.Score = score
		if err := storage.SaveRun(run); err != nil {
			t.Fatalf("Failed to save run %d: %v", i, err)
		}
	}

	runs, err := storage.ListRuns(website.ID, 2)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs with limit, got %d", len(runs))
	}
	// Newest first
	if runs[0].Score != 48 || runs[1].Score != 90 {
		t.Errorf("Expected newest-first order, got %d then %d", runs[0].Score, runs[1].Score)
	}

	all, err := storage.ListRuns(website.ID, 0)
	if err != nil {
		t.Fatalf("Failed to list all runs: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 runs without limit, got %d", len(all))
	}

	trend, err := storage.RecentScores(website.ID, 10)
	if err != nil {
		t.Fatalf("Failed to query scores: %v", err)
	}
	// Chronological for trend display
	if len(trend) != 3 || trend[0] != 100 || trend[1] != 90 || trend[2] != 48 {
		t.Errorf("Expected chronological scores [100 90 48], got %v", trend)
	}

	count, err := storage.CountRuns(website.ID)
	if err != nil {
		t.Fatalf("Failed to count runs: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 runs, got %d", count)
	}
}

func TestGetRunByUUIDNotFound(t *testing.T) {
	storage := newTestStorage(t)

	run, err := storage.GetRunByUUID("does-not-exist")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if run != nil {
		t.Errorf("Expected nil for unknown UUID, got %+v", run)
	}
}

func TestMetaRoundtrip(t *testing.T) {
	storage := newTestStorage(t)

	if err := storage.SetMeta("note", "first"); err != nil {
		t.Fatalf("Failed to set meta: %v", err)
	}
	if err := storage.SetMeta("note", "second"); err != nil {
		t.Fatalf("Failed to replace meta: %v", err)
	}

	value, err := storage.GetMeta("note")
	if err != nil {
		t.Fatalf("Failed to get meta: %v", err)
	}
	if value != "second" {
		t.Errorf("Expected second, got %q", value)
	}

	missing, err := storage.GetMeta("unset")
	if err != nil {
		t.Fatalf("Failed to get missing meta: %v", err)
	}
	if missing != "" {
		t.Errorf("Expected empty value for unset key, got %q", missing)
	}
}
