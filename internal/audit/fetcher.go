// Package audit implements the single-page audit engine: fetch, parse,
// probe, evaluate, score, and persist one run per invocation.
package audit

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"
)

var errTooManyRedirects = errors.New("too many redirects")

// Fetcher performs the single HTTP GET against the target URL
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a fetcher with the given timeout and redirect cap of 10
func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	transport := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  false,
		TLSHandshakeTimeout: timeout,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errTooManyRedirects
			}
			return nil
		},
	}

	return &Fetcher{
		client:    client,
		userAgent: userAgent,
	}
}

// Fetch performs one GET with no retries. Expected network failures are
// returned as a classified FetchResult, never as an error.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) *FetchResult {
	startTime := time.Now()

	parsed, err := url.Parse(targetURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return failedResult(ErrKindInvalidURL, "not an absolute http(s) URL", time.Since(startTime))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return failedResult(ErrKindInvalidURL, err.Error(), time.Since(startTime))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	// Track time to first byte
	var firstByteTime time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			firstByteTime = time.Now()
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	resp, err := f.client.Do(req)
	if err != nil {
		return failedResult(classifyFetchError(err), err.Error(), time.Since(startTime))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		kind := classifyFetchError(err)
		return failedResult(kind, err.Error(), time.Since(startTime))
	}

	result := &FetchResult{
		StatusCode: resp.StatusCode,
		Elapsed:    time.Since(startTime),
		Body:       body,
		FinalURL:   resp.Request.URL.String(),
	}
	if !firstByteTime.IsZero() {
		result.TTFB = firstByteTime.Sub(startTime)
	}

	return result
}

// Close closes idle connections
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

func failedResult(kind ErrorKind, message string, elapsed time.Duration) *FetchResult {
	return &FetchResult{
		Failed:       true,
		ErrorKind:    kind,
		ErrorMessage: message,
		Elapsed:      elapsed,
	}
}

// classifyFetchError maps transport errors onto the fixed failure taxonomy
func classifyFetchError(err error) ErrorKind {
	if errors.Is(err, errTooManyRedirects) {
		return ErrKindTooManyRedirects
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrKindTimeout
	}

	if isTLSError(err) {
		return ErrKindTLS
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var opErr *net.OpError
		if errors.As(urlErr.Err, &opErr) {
			return ErrKindConnection
		}
		if strings.Contains(urlErr.Err.Error(), "unsupported protocol scheme") {
			return ErrKindInvalidURL
		}
	}

	return ErrKindConnection
}

func isTLSError(err error) bool {
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var invalidCert x509.CertificateInvalidError
	return errors.As(err, &invalidCert)
}
