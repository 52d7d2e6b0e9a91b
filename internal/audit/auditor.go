package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qainsight/siteaudit/internal/config"
	"github.com/qainsight/siteaudit/internal/parser"
)

// Auditor orchestrates one audit per RunAudit call: fetch, parse, sample
// links, check robots, evaluate findings, score, and persist atomically.
// It keeps no per-run state; every invocation is a fresh read of network
// state and a fresh insert of rows.
type Auditor struct {
	cfg     *config.AuditConfig
	storage Storage
}

// Options are the per-run overrides callers may pass to RunAudit
type Options struct {
	Timeout    time.Duration // Overrides the fetch/robots timeout when > 0
	SampleSize *int          // Overrides the link sample cap when set (0 disables probing)
	Label      string        // Display label for the website
}

// New creates an auditor. The configuration is validated up front;
// invalid configuration or a nil storage is a programming error and is
// reported immediately rather than surfacing mid-run.
func New(cfg *config.AuditConfig, store Storage) (*Auditor, error) {
	if cfg == nil {
		return nil, errors.New("audit: nil configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("audit: invalid configuration: %w", err)
	}
	if store == nil {
		return nil, errors.New("audit: nil storage")
	}

	return &Auditor{cfg: cfg, storage: store}, nil
}

// RunAudit executes one audit against rawURL and returns the persisted
// run. Expected network failures (timeout, connection, TLS, redirect
// loop, invalid URL) become a failed-to-fetch run; storage failures and
// programming errors are returned as errors since no run was recorded.
func (a *Auditor) RunAudit(ctx context.Context, rawURL string, opts Options) (*AuditRun, error) {
	timeout := a.cfg.RequestTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	sampleSize := a.cfg.SampleSize
	if opts.SampleSize != nil {
		if *opts.SampleSize < 0 {
			return nil, config.ErrInvalidSampleSize
		}
		sampleSize = *opts.SampleSize
	}

	website, err := a.storage.UpsertWebsite(NormalizeURL(rawURL), opts.Label)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve website: %w", err)
	}

	startedAt := time.Now().UTC()

	fetcher := NewFetcher(a.cfg.UserAgent, timeout)
	defer fetcher.Close()

	slog.Info("Starting audit", "url", website.URL, "timeout", timeout, "sample_size", sampleSize)

	result := fetcher.Fetch(ctx, website.URL)

	var run *AuditRun
	if result.Failed {
		run = a.assembleFailedRun(website, startedAt, result)
	} else {
		run = a.assembleRun(ctx, website, startedAt, result, sampleSize, timeout)
	}
	run.UUID = uuid.NewString()

	if err := a.storage.SaveRun(run); err != nil {
		return nil, fmt.Errorf("failed to persist audit run: %w", err)
	}

	slog.Info("Audit completed", "url", website.URL, "run", run.UUID,
		"outcome", run.Outcome, "score", run.Score, "findings", len(run.Findings))

	return run, nil
}

// assembleFailedRun builds the failed-to-fetch run: one critical
// availability finding and fetch-attempt metrics only.
func (a *Auditor) assembleFailedRun(website *Website, startedAt time.Time, result *FetchResult) *AuditRun {
	slog.Warn("Fetch failed", "url", website.URL, "kind", result.ErrorKind, "error", result.ErrorMessage)

	findings := Evaluate(&Evaluation{Fetch: result})

	return &AuditRun{
		WebsiteID: website.ID,
		StartedAt: startedAt,
		ElapsedMS: result.Elapsed.Milliseconds(),
		Score:     Score(findings),
		Outcome:   OutcomeFailedToFetch,
		Summary:   fmt.Sprintf("Fetch failed: %s", result.ErrorKind),
		Findings:  findings,
		Metrics: []Metric{
			{Key: "response_time_ms", Value: strconv.FormatInt(result.Elapsed.Milliseconds(), 10)},
			{Key: "error_class", Value: string(result.ErrorKind)},
		},
	}
}

// assembleRun builds the succeeded run from the fetched response
func (a *Auditor) assembleRun(ctx context.Context, website *Website, startedAt time.Time,
	result *FetchResult, sampleSize int, timeout time.Duration) *AuditRun {

	page := a.parsePage(result)

	sampler := NewLinkSampler(a.cfg.UserAgent, sampleSize, a.cfg.ProbeTimeout, a.cfg.ProbeDelay)
	links := sampler.Sample(ctx, page.AnchorURLs)

	robots := NewRobotsChecker(a.cfg.UserAgent, timeout)
	robotsPresent := robots.Present(ctx, result.FinalURL)

	findings := Evaluate(&Evaluation{
		Fetch:         result,
		Page:          page,
		Links:         links,
		RobotsPresent: robotsPresent,
		SlowThreshold: a.cfg.SlowThreshold,
	})

	summary := strings.TrimSpace(page.Title)
	if summary == "" {
		summary = "Untitled page"
	}

	statusCode := result.StatusCode

	return &AuditRun{
		WebsiteID:    website.ID,
		StartedAt:    startedAt,
		StatusCode:   &statusCode,
		ElapsedMS:    result.Elapsed.Milliseconds(),
		PayloadBytes: int64(len(result.Body)),
		Score:        Score(findings),
		Outcome:      OutcomeSucceeded,
		Summary:      summary,
		Findings:     findings,
		Metrics:      buildMetrics(result, page, links, robotsPresent),
	}
}

// parsePage runs the tolerant parser. Parse anomalies are never fatal:
// if the document cannot be processed at all the page degrades to an
// empty summary and the heuristics report what is missing.
func (a *Auditor) parsePage(result *FetchResult) *parser.PageSummary {
	empty := &parser.PageSummary{
		Headings:   map[string]int{"h1": 0, "h2": 0, "h3": 0, "h4": 0, "h5": 0, "h6": 0},
		Images:     []parser.Image{},
		AnchorURLs: []string{},
	}

	pageParser, err := parser.NewPageParser(result.FinalURL)
	if err != nil {
		slog.Warn("Skipping parse, final URL unusable as base", "url", result.FinalURL, "error", err)
		return empty
	}

	page, err := pageParser.Parse(result.Body)
	if err != nil {
		slog.Warn("HTML parse degraded to empty summary", "url", result.FinalURL, "error", err)
		return empty
	}

	return page
}

// buildMetrics captures the measurement set of a succeeded run.
// Keys are unique within a run; the storage schema enforces that.
func buildMetrics(result *FetchResult, page *parser.PageSummary, links *LinkSample, robotsPresent bool) []Metric {
	missingAlt := 0
	for _, img := range page.Images {
		if !img.HasAlt {
			missingAlt++
		}
	}

	return []Metric{
		{Key: "status_code", Value: strconv.Itoa(result.StatusCode)},
		{Key: "response_time_ms", Value: strconv.FormatInt(result.Elapsed.Milliseconds(), 10)},
		{Key: "ttfb_ms", Value: strconv.FormatInt(result.TTFB.Milliseconds(), 10)},
		{Key: "payload_bytes", Value: strconv.Itoa(len(result.Body))},
		{Key: "link_count", Value: strconv.Itoa(len(page.AnchorURLs))},
		{Key: "sampled_link_count", Value: strconv.Itoa(links.Sampled)},
		{Key: "broken_link_count", Value: strconv.Itoa(links.Broken)},
		{Key: "image_count", Value: strconv.Itoa(len(page.Images))},
		{Key: "missing_alt_count", Value: strconv.Itoa(missingAlt)},
		{Key: "form_count", Value: strconv.Itoa(page.FormCount)},
		{Key: "h1_count", Value: strconv.Itoa(page.Headings["h1"])},
		{Key: "robots_txt_present", Value: strconv.FormatBool(robotsPresent)},
	}
}

// NormalizeURL produces the canonical form used as website identity:
// lowercased scheme and host, default port stripped, fragment dropped.
// Unparseable input is returned as-is; the fetcher will classify it as
// an invalid-url failure so the run is still recorded.
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return trimmed
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	return u.String()
}
