package audit

// Storage is the persistence surface the orchestrator depends on.
// SaveRun must be atomic: either the run and all of its findings and
// metrics become visible together, or none of them do.
type Storage interface {
	// UpsertWebsite finds or registers the website for a normalized URL.
	// A non-empty label updates the display label.
	UpsertWebsite(url, label string) (*Website, error)

	// SaveRun persists a run with its findings and metrics in one
	// transaction, filling in the generated IDs.
	SaveRun(run *AuditRun) error
}
