package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// cacheDirName is the subdirectory of the user cache dir that holds
// downloaded checkpoints.
const cacheDirName = "mobilevision"

// defaultFetchTimeout bounds a single checkpoint download.
const defaultFetchTimeout = 5 * time.Minute

// Fetcher resolves checkpoint sources to local file paths, downloading and
// caching remote checkpoints.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a fetcher caching under the user cache directory.
func NewFetcher() (*Fetcher, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine cache directory: %w", err)
	}
	return NewFetcherWithCache(filepath.Join(base, cacheDirName))
}

// NewFetcherWithCache creates a fetcher caching under dir.
func NewFetcherWithCache(dir string) (*Fetcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory: %w", err)
	}
	return &Fetcher{
		client:   &http.Client{Timeout: defaultFetchTimeout},
		cacheDir: dir,
	}, nil
}

// Fetch resolves source to a local file path. Local paths are returned as
// is; http(s) URLs are downloaded into the cache on first use and served
// from the cache afterwards.
func (f *Fetcher) Fetch(ctx context.Context, source string) (string, error) {
	if !isRemote(source) {
		if _, err := os.Stat(source); err != nil {
			return "", fmt.Errorf("checkpoint not found: %w", err)
		}
		return source, nil
	}

	cached := filepath.Join(f.cacheDir, cacheKey(source))
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}

	if err := f.download(ctx, source, cached); err != nil {
		return "", err
	}
	return cached, nil
}

// download fetches url into dest via a temp file, so an interrupted
// download never leaves a partial checkpoint in the cache.
func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("invalid checkpoint URL: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("checkpoint download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("checkpoint download failed: %s returned %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(f.cacheDir, "download-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("checkpoint download failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cannot finalize download: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("cannot move checkpoint into cache: %w", err)
	}
	return nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// cacheKey derives a stable cache file name from a URL.
func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:16]) + ".mvis"
}
