package audit

import (
	"time"

	"github.com/qainsight/siteaudit/internal/parser"
)

// Severity classifies how serious a finding is
type Severity string

// Severity levels ordered info < warning < critical
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Category groups findings by the concern they report on
type Category string

// Finding categories
const (
	CategoryAvailability  Category = "availability"
	CategoryPerformance   Category = "performance"
	CategorySEO           Category = "seo"
	CategoryStructure     Category = "structure"
	CategoryAccessibility Category = "accessibility"
	CategoryLinks         Category = "links"
	CategoryCrawlability  Category = "crawlability"
)

// Outcome is the top-level result classification of a run
type Outcome string

// Run outcomes
const (
	OutcomeSucceeded     Outcome = "succeeded"
	OutcomeFailedToFetch Outcome = "failed-to-fetch"
)

// ErrorKind classifies an expected fetch failure
type ErrorKind string

// Fetch failure kinds
const (
	ErrKindTimeout          ErrorKind = "timeout"
	ErrKindConnection       ErrorKind = "connection-error"
	ErrKindTLS              ErrorKind = "tls-error"
	ErrKindTooManyRedirects ErrorKind = "too-many-redirects"
	ErrKindInvalidURL       ErrorKind = "invalid-url"
)

// Website is the identity of an audited target
type Website struct {
	ID        int64     // Database ID
	UUID      string    // Stable public identifier
	URL       string    // Normalized origin URL
	Label     string    // Display label (only mutable field)
	CreatedAt time.Time // Registration timestamp (UTC)
}

// AuditRun is one execution of the engine against a Website.
// Runs are append-only: once persisted they are never modified.
type AuditRun struct {
	ID           int64
	UUID         string    // Stable public identifier
	WebsiteID    int64     // Owning website
	StartedAt    time.Time // When the run began (UTC)
	StatusCode   *int      // HTTP status of the main fetch, nil on hard failure
	ElapsedMS    int64     // Main fetch duration in milliseconds
	PayloadBytes int64     // Response body size in bytes
	Score        int       // Severity-weighted score in [0, 100]
	Outcome      Outcome   // succeeded or failed-to-fetch
	Summary      string    // Page title, or the failure reason

	Findings []Finding // In evaluation order
	Metrics  []Metric  // Keys unique within the run
}

// Finding is one heuristic violation or observation tied to a run
type Finding struct {
	ID             int64
	RunID          int64
	Category       Category
	Severity       Severity
	Message        string
	Recommendation string
	OrderIndex     int // Evaluation order, stable for identical input
}

// Metric is one named measurement captured during a run
type Metric struct {
	ID    int64
	RunID int64
	Key   string
	Value string
}

// FetchResult is the outcome of the single GET against the target URL.
// Exactly one of the two shapes applies: a completed response
// (Failed=false) or a classified failure (Failed=true).
type FetchResult struct {
	Failed       bool
	ErrorKind    ErrorKind // Set when Failed
	ErrorMessage string    // Underlying error text, for logs and metrics
	StatusCode   int
	Elapsed      time.Duration // Time until body fully read, or until failure
	TTFB         time.Duration // Time to first byte
	Body         []byte
	FinalURL     string // After following redirects
}

// LinkSample summarizes the probe results for the sampled hrefs
type LinkSample struct {
	Sampled    int      // Number of hrefs actually probed
	Reachable  int      // Probes answered with 2xx/3xx
	Broken     int      // Probes answered with 4xx/5xx or a transport error
	BrokenURLs []string // The broken hrefs, in sample order
}

// Evaluation is the shared context every finding rule reads from
type Evaluation struct {
	Fetch         *FetchResult
	Page          *parser.PageSummary // nil when the fetch failed
	Links         *LinkSample         // nil when the fetch failed
	RobotsPresent bool
	SlowThreshold time.Duration
}
