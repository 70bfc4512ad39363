// Package fetch downloads source media over HTTP into local files.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultHeaderTimeout = 30 * time.Second
	userAgent            = "clip-worker/1.0"
)

// ErrEmptyBody is returned when the source responds without any content.
var ErrEmptyBody = errors.New("response has no body")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %s", e.URL, e.Status)
}

// Fetcher streams remote resources to writers.
type Fetcher struct {
	client *http.Client
}

// NewClient builds the HTTP client used for source downloads. Only
// connection setup and response headers are bounded; the body may take
// as long as it needs.
func NewClient(headerTimeout time.Duration) *http.Client {
	if headerTimeout <= 0 {
		headerTimeout = defaultHeaderTimeout
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSHandshakeTimeout = 10 * time.Second
	base.ResponseHeaderTimeout = headerTimeout

	return &http.Client{Transport: base}
}

// New creates a Fetcher. A nil client uses NewClient with defaults.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = NewClient(0)
	}
	return &Fetcher{client: client}
}

// Fetch issues a GET for rawURL and copies the body into dst without
// buffering it in memory. It returns the number of bytes written.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, dst io.Writer) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return 0, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{URL: u.Redacted(), StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if resp.StatusCode == http.StatusNoContent || resp.Body == http.NoBody {
		return 0, ErrEmptyBody
	}

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read response body: %w", err)
	}
	if n == 0 {
		return 0, ErrEmptyBody
	}
	return n, nil
}
