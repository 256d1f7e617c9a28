package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ralt/releasetap/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultTimeout bounds one artifact download
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxSize bounds the artifact body
	DefaultMaxSize int64 = 512 << 20

	// DefaultUserAgent is sent with every request
	DefaultUserAgent = "releasetap/1.0"
)

// Fetcher downloads release artifacts with a single HTTP GET
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxSize    int64
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxSize sets the largest accepted body in bytes
func WithMaxSize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxSize = n
		}
	}
}

// WithTimeout sets the client timeout
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.httpClient.Timeout = d
		}
	}
}

// New creates a fetcher
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		userAgent: DefaultUserAgent,
		maxSize:   DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the artifact bytes for d. There are no retries: a
// transport failure is a Network error and HTTP 404 is NotFound.
func (f *Fetcher) Fetch(ctx context.Context, d *models.Descriptor) ([]byte, error) {
	log := logrus.WithFields(logrus.Fields{
		"version":  d.Version,
		"platform": d.Platform.String(),
	})
	log.Debugf("Fetching %s", d.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, &models.TapError{
			Type:    models.ErrNetwork,
			Package: d.URL,
			Err:     fmt.Errorf("failed to create request: %w", err),
		}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &models.TapError{
			Type:    models.ErrNetwork,
			Package: d.URL,
			Err:     fmt.Errorf("HTTP request failed: %w", err),
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, models.NewError(models.ErrNotFound, d.URL, "release artifact not found (HTTP 404)")
	case resp.StatusCode != http.StatusOK:
		return nil, models.NewError(models.ErrNetwork, d.URL, "unexpected HTTP status %s", resp.Status)
	}

	if resp.ContentLength > f.maxSize {
		return nil, models.NewError(models.ErrNetwork, d.URL,
			"artifact is %d bytes, limit is %d", resp.ContentLength, f.maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, &models.TapError{
			Type:    models.ErrNetwork,
			Package: d.URL,
			Err:     fmt.Errorf("failed to read body: %w", err),
		}
	}
	if int64(len(data)) > f.maxSize {
		return nil, models.NewError(models.ErrNetwork, d.URL, "artifact exceeds %d bytes", f.maxSize)
	}

	log.Infof("Downloaded %s (%d bytes)", d.URL, len(data))
	return data, nil
}
