// Package fetch retrieves raw careers-page bytes under a deadline.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"
)

// ErrorKind classifies a failed fetch for operator-facing diagnostics.
// Classification never changes control flow in the scrape pipeline.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindUnreachable ErrorKind = "unreachable"
	KindBlocked     ErrorKind = "blocked"
	KindOther       ErrorKind = "other"
)

// Error is a classified fetch failure.
type Error struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// blockMarkers are response fragments that indicate a bot-protection
// interstitial rather than a real careers page.
var blockMarkers = []string{
	"captcha",
	"cf-challenge",
	"cloudflare",
	"attention required",
	"access denied",
	"are you a robot",
}

const (
	defaultMaxRedirects = 5
	maxBodyBytes        = 4 << 20 // pathological pages are truncated, not fatal
)

// Fetcher performs a single-attempt HTTP GET with a redirect cap and
// realistic desktop-browser headers. Retries are the caller's concern.
type Fetcher struct {
	client *http.Client
}

// New constructs a Fetcher. maxRedirects <= 0 selects the default cap of 5.
func New(maxRedirects int) *Fetcher {
	if maxRedirects <= 0 {
		maxRedirects = defaultMaxRedirects
	}
	return &Fetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

// Fetch retrieves the page at url, honoring ctx's deadline across the whole
// operation (connect + transfer). On success it returns the body bytes even
// when the markup is malformed or truncated — parsing tolerance is the
// extractor's job. On failure it returns a classified *Error.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: KindOther, URL: url, Err: err}
	}

	req.Header.Set("User-Agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept",
		"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: classifyTransport(err), URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Kind: classifyTransport(err), URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := KindOther
		if looksBlocked(resp.StatusCode, body) {
			kind = KindBlocked
		}
		return nil, &Error{
			Kind: kind,
			URL:  url,
			Err:  fmt.Errorf("status %d after redirects", resp.StatusCode),
		}
	}

	return body, nil
}

func classifyTransport(err error) ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err):
		return KindTimeout
	case errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || isDNSError(err):
		return KindUnreachable
	default:
		return KindOther
	}
}

func isDNSError(err error) bool {
	// net.DNSError wraps deep; string matching is the pragmatic check and
	// only affects diagnostics, never control flow.
	msg := err.Error()
	return strings.Contains(msg, "no such host") || strings.Contains(msg, "dns")
}

func looksBlocked(status int, body []byte) bool {
	if status != http.StatusForbidden && status != http.StatusTooManyRequests && status != http.StatusServiceUnavailable {
		return false
	}
	lower := strings.ToLower(string(body))
	for _, marker := range blockMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	// 403/429 without a recognizable marker still smells like blocking.
	return status == http.StatusForbidden || status == http.StatusTooManyRequests
}

// IsTimeout reports whether err is a fetch timeout, either classified or a
// raw context deadline error.
func IsTimeout(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == KindTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}
