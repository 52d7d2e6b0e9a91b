package audit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// RobotsChecker reports whether a site serves a robots.txt resource.
// It does not parse directives; presence is all the evaluator needs.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
}

// NewRobotsChecker creates a presence checker with the given timeout
func NewRobotsChecker(userAgent string, timeout time.Duration) *RobotsChecker {
	return &RobotsChecker{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Present fetches {origin}/robots.txt for the given page URL and reports
// whether it answered with 2xx. Any non-2xx status or fetch error means
// absent.
func (r *RobotsChecker) Present(ctx context.Context, pageURL string) bool {
	parsedURL, err := url.Parse(pageURL)
	if err != nil || parsedURL.Host == "" {
		return false
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", parsedURL.Scheme, parsedURL.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
