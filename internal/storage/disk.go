package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// DiskStore downloads media resources and writes them under a
// destination directory. It implements engine.Storage and tolerates
// concurrent calls; distinct destination paths never conflict, and
// writes to the same path are last-writer-wins.
type DiskStore struct {
	httpClient *http.Client
	maxSize    int64
	logger     *slog.Logger
}

// Option configures a DiskStore.
type Option func(*DiskStore)

// WithHTTPClient replaces the HTTP client used for downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *DiskStore) {
		d.httpClient = hc
	}
}

// WithMaxSize limits how many bytes of a media resource are written.
func WithMaxSize(n int64) Option {
	return func(d *DiskStore) {
		if n > 0 {
			d.maxSize = n
		}
	}
}

// WithLogger sets the store's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DiskStore) {
		d.logger = logger
	}
}

// NewDiskStore creates a DiskStore with a 60 second download timeout
// and a 100MB per-file size limit.
func NewDiskStore(opts ...Option) *DiskStore {
	d := &DiskStore{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		maxSize:    100 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Store downloads sourceURL and writes it into the destPath directory,
// creating intermediate directories as needed. The file name is taken
// from the URL path; URLs without a usable name get one derived from
// the URL's hash so concurrent saves never collide accidentally.
func (d *DiskStore) Store(ctx context.Context, sourceURL, destPath string) error {
	name := fileName(sourceURL)
	dest := filepath.Join(destPath, name)

	if err := os.MkdirAll(destPath, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("invalid media URL %q: %w", sourceURL, err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", sourceURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d downloading %s", resp.StatusCode, sourceURL)
	}

	f, err := os.Create(dest) //nolint:gosec // Destination comes from the user's own script
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	written, err := io.Copy(f, io.LimitReader(resp.Body, d.maxSize))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Remove the partial file so a failed save leaves no debris.
		_ = os.Remove(dest)
		return fmt.Errorf("writing %s: %w", dest, err)
	}

	d.logger.Debug("stored media",
		"source", sourceURL,
		"dest", dest,
		"bytes", written,
	)
	return nil
}

// fileName derives a file name from a media URL. Query strings and
// fragments are dropped. When the URL path has no usable final
// segment, a short hash of the URL stands in.
func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}

	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:8])
}
