package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds a single HTTP fetch.
const DefaultFetchTimeout = 30 * time.Second

// Fetcher retrieves the raw content of an external resource. The location
// has already been resolved against the task's base path.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FileFetcher reads resources from the local filesystem.
type FileFetcher struct{}

// NewFileFetcher creates a filesystem fetcher.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// Fetch reads the file at location.
func (f *FileFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(location) //nolint:gosec // G304: locations come from the host's own resource lists
	if err != nil {
		return nil, fmt.Errorf("reading resource %s: %w", location, err)
	}
	return data, nil
}

// HTTPFetcher retrieves resources over HTTP(S).
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTP fetcher. A timeout <= 0 falls back to
// DefaultFetchTimeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch performs a GET against location. Non-2xx responses are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", location, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", location, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", location, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response for %s: %w", location, err)
	}
	return data, nil
}

// SchemeFetcher routes locations to an HTTP or file fetcher based on the
// URL scheme. Anything without an http(s) prefix is treated as a path.
type SchemeFetcher struct {
	httpFetcher Fetcher
	fileFetcher Fetcher
}

// NewSchemeFetcher creates the default fetcher mux.
func NewSchemeFetcher(timeout time.Duration) *SchemeFetcher {
	return &SchemeFetcher{
		httpFetcher: NewHTTPFetcher(timeout),
		fileFetcher: NewFileFetcher(),
	}
}

// Fetch dispatches to the fetcher matching the location's scheme.
func (f *SchemeFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return f.httpFetcher.Fetch(ctx, location)
	}
	return f.fileFetcher.Fetch(ctx, strings.TrimPrefix(location, "file://"))
}
