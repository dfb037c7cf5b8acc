package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voyagen/m3ucatalog/internal/logging"
	"github.com/voyagen/m3ucatalog/internal/metrics"
)

// ProgressFunc receives byte progress during a download. total <= 0 means
// the size is unknown and progress is indeterminate.
type ProgressFunc func(loaded, total int64)

// Fetcher downloads playlist documents, falling back to alternate sources.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// New creates a Fetcher. timeout bounds each attempt; zero means no timeout.
func New(userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: timeout}, userAgent: userAgent}
}

// NewWithClient creates a Fetcher around an existing HTTP client.
func NewWithClient(client *http.Client, userAgent string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, userAgent: userAgent}
}

// ProxyURLs builds alternate locators by prefixing each proxy with the
// query-escaped primary URL (e.g. "https://proxy/raw?url=" + escaped).
func ProxyURLs(primary string, prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p+url.QueryEscape(primary))
		}
	}
	return out
}

// Fetch returns the document text from primary, or from the first alternate
// that succeeds. Each locator is attempted once, in order. When every
// attempt fails the error is a *NetworkError.
func (f *Fetcher) Fetch(ctx context.Context, primary string, alternates []string, onProgress ProgressFunc) (*Result, error) {
	locators := append([]string{primary}, alternates...)
	nerr := &NetworkError{}

	for i, loc := range locators {
		if loc == "" {
			continue
		}
		role := "primary"
		if i > 0 {
			role = "alternate"
		}
		start := time.Now()
		text, n, err := f.fetchOne(ctx, loc, onProgress)
		if err == nil {
			metrics.FetchAttemptsTotal.WithLabelValues(role, "ok").Inc()
			return &Result{
				Text:     text,
				Source:   loc,
				Bytes:    n,
				Attempts: i + 1,
				Duration: time.Since(start),
			}, nil
		}

		metrics.FetchAttemptsTotal.WithLabelValues(role, outcome(err)).Inc()
		logging.Warn("fetch %s %s failed: %v", role, loc, err)
		nerr.Attempts = append(nerr.Attempts, AttemptError{Locator: loc, Err: err})

		// No point trying alternates once the caller has given up.
		if ctx.Err() != nil {
			break
		}
	}
	return nil, nerr
}

func (f *Fetcher) fetchOne(ctx context.Context, loc string, onProgress ProgressFunc) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return "", 0, fmt.Errorf("NewRequest: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, &StatusError{Code: resp.StatusCode}
	}

	var body []byte
	if total := resp.ContentLength; total > 0 {
		body, err = readWithProgress(resp.Body, total, onProgress)
	} else {
		if onProgress != nil {
			onProgress(0, -1)
		}
		body, err = io.ReadAll(resp.Body)
	}
	if err != nil {
		return "", int64(len(body)), err
	}
	if len(body) == 0 {
		return "", 0, ErrEmptyBody
	}
	metrics.FetchBytesTotal.Add(float64(len(body)))
	return strings.ToValidUTF8(string(body), "�"), int64(len(body)), nil
}

// maxPrealloc bounds the buffer reserved up front from a declared
// Content-Length; larger bodies grow as they arrive.
const maxPrealloc = 64 << 20

// readWithProgress accumulates the body chunk by chunk, reporting progress
// after each one, and rejects bodies whose size differs from total.
func readWithProgress(r io.Reader, total int64, onProgress ProgressFunc) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(min(total, maxPrealloc)))
	counter := &progressCounter{total: total, onProgress: onProgress}
	if _, err := io.Copy(&buf, io.TeeReader(r, counter)); err != nil {
		return buf.Bytes(), fmt.Errorf("read body: %w", err)
	}
	if int64(buf.Len()) != total {
		return buf.Bytes(), &TruncatedError{Got: int64(buf.Len()), Want: total}
	}
	return buf.Bytes(), nil
}

// progressCounter counts bytes passing through a TeeReader.
type progressCounter struct {
	loaded     int64
	total      int64
	onProgress ProgressFunc
}

func (c *progressCounter) Write(p []byte) (int, error) {
	c.loaded += int64(len(p))
	if c.onProgress != nil {
		c.onProgress(c.loaded, c.total)
	}
	return len(p), nil
}

func outcome(err error) string {
	var se *StatusError
	var te *TruncatedError
	switch {
	case errors.As(err, &se):
		return "status"
	case errors.As(err, &te):
		return "truncated"
	case errors.Is(err, ErrEmptyBody):
		return "empty"
	}
	return "error"
}
