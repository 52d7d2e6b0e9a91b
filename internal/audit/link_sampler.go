package audit

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LinkSampler probes the first N anchor hrefs of a page and classifies
// each one as reachable or broken. Hrefs beyond the cap are not checked;
// this bounds the worst-case latency of one audit.
type LinkSampler struct {
	client     *http.Client
	userAgent  string
	sampleSize int
	limiters   map[string]*rate.Limiter
	mu         sync.RWMutex
	delay      time.Duration
}

// NewLinkSampler creates a sampler that probes at most sampleSize hrefs.
// Probes use HEAD with a short timeout and do not follow redirects, so a
// 3xx answer counts as reachable. delay is the minimum spacing between
// probes against the same host.
func NewLinkSampler(userAgent string, sampleSize int, timeout, delay time.Duration) *LinkSampler {
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &LinkSampler{
		client:     client,
		userAgent:  userAgent,
		sampleSize: sampleSize,
		limiters:   make(map[string]*rate.Limiter),
		delay:      delay,
	}
}

// Sample probes the first sampleSize hrefs and returns the classification.
// The hrefs must already be absolute; the parser guarantees that.
// Per-link failures are recorded as broken and never abort the run.
func (s *LinkSampler) Sample(ctx context.Context, hrefs []string) *LinkSample {
	limit := min(len(hrefs), s.sampleSize)

	sample := &LinkSample{Sampled: limit}

	for _, href := range hrefs[:limit] {
		if err := s.waitForHost(ctx, href); err != nil {
			// Context gone, count the remaining probes as broken
			sample.Broken++
			sample.BrokenURLs = append(sample.BrokenURLs, href)
			continue
		}

		if s.probe(ctx, href) {
			sample.Reachable++
		} else {
			sample.Broken++
			sample.BrokenURLs = append(sample.BrokenURLs, href)
		}
	}

	return sample
}

// probe issues a HEAD request and reports whether the link is reachable
func (s *LinkSampler) probe(ctx context.Context, href string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, href, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Debug("Link probe failed", "url", href, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// waitForHost applies the per-host rate limit before a probe
func (s *LinkSampler) waitForHost(ctx context.Context, href string) error {
	parsedURL, err := url.Parse(href)
	if err != nil {
		// Probe will classify it as broken
		return nil
	}

	return s.getLimiter(parsedURL.Host).Wait(ctx)
}

// getLimiter gets or creates a rate limiter for a host
func (s *LinkSampler) getLimiter(host string) *rate.Limiter {
	s.mu.RLock()
	limiter, exists := s.limiters[host]
	s.mu.RUnlock()

	if exists {
		return limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check again in case another goroutine created it
	if limiter, exists := s.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Every(s.delay), 1)
	s.limiters[host] = limiter

	return limiter
}
