// Package datasource retrieves drillmap assets (hierarchy JSON, SVG maps and
// flags) from a local directory or an HTTP base URL, with an optional sqlite
// cache for remote bodies and deduplication of concurrent identical fetches.
package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/drillmap/pkg/assetpath"
	"github.com/vanderheijden86/drillmap/pkg/debug"
	"github.com/vanderheijden86/drillmap/pkg/metrics"
)

// SourceType identifies where a resolved reference is read from.
type SourceType string

const (
	SourceTypeHTTP SourceType = "http"
	SourceTypeFile SourceType = "file"
)

const (
	// DefaultTimeout bounds a single HTTP fetch.
	DefaultTimeout = 15 * time.Second
	// DefaultMaxSize bounds the body of a single asset.
	DefaultMaxSize int64 = 32 << 20
)

var (
	// ErrUnsupportedScheme is returned for absolute references that are
	// neither http nor https.
	ErrUnsupportedScheme = errors.New("unsupported asset scheme")
	// ErrTooLarge is returned when a body exceeds the configured limit.
	ErrTooLarge = errors.New("asset too large")
)

// Source fetches the bytes behind an asset reference.
type Source interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// HTTPSource fetches absolute http(s) URLs.
type HTTPSource struct {
	Client  *http.Client
	MaxSize int64
}

// Fetch performs a GET and returns the body.
func (s *HTTPSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	t0 := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: ref, Code: resp.StatusCode}
	}

	body, err := readLimited(resp.Body, s.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ref, err)
	}
	debug.LogTiming("fetch "+ref, time.Since(t0))
	return body, nil
}

// FileSource reads files, relative references resolved against Root.
type FileSource struct {
	Root    string
	MaxSize int64
}

// Fetch reads the file behind ref.
func (s *FileSource) Fetch(_ context.Context, ref string) ([]byte, error) {
	path := ref
	if !filepath.IsAbs(path) && s.Root != "" {
		path = filepath.Join(s.Root, filepath.FromSlash(ref))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f, s.MaxSize)
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		max = DefaultMaxSize
	}
	body, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > max {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, max)
	}
	return body, nil
}

// Options configures Open.
type Options struct {
	// Timeout bounds each HTTP fetch. Zero means DefaultTimeout.
	Timeout time.Duration
	// MaxSize bounds each asset body. Zero means DefaultMaxSize.
	MaxSize int64
	// CachePath enables the sqlite cache for remote bodies when set.
	CachePath string
	// CacheTTL expires cached bodies. Zero keeps them forever.
	CacheTTL time.Duration
	// Client overrides the HTTP client (tests).
	Client *http.Client
}

// Fetcher resolves references against a base (directory or URL) and routes
// them to the right source. It is safe for concurrent use.
type Fetcher struct {
	base    string
	baseURL *url.URL

	http  *HTTPSource
	file  *FileSource
	cache *Cache

	group singleflight.Group
}

// Open creates a Fetcher for base. An http(s) base resolves relative
// references as URLs, anything else as a directory.
func Open(base string, opts Options) (*Fetcher, error) {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	f := &Fetcher{
		base: base,
		http: &HTTPSource{Client: client, MaxSize: opts.MaxSize},
		file: &FileSource{Root: base, MaxSize: opts.MaxSize},
	}
	if isRemote(base) {
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parsing asset base %q: %w", base, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		f.baseURL = u
		f.file.Root = ""
	}

	if opts.CachePath != "" {
		cache, err := OpenCache(opts.CachePath, opts.CacheTTL)
		if err != nil {
			return nil, err
		}
		f.cache = cache
	}
	return f, nil
}

// Close releases the cache, if any.
func (f *Fetcher) Close() error {
	if f.cache != nil {
		return f.cache.Close()
	}
	return nil
}

// Base returns the base the fetcher was opened with.
func (f *Fetcher) Base() string { return f.base }

// Resolve returns the absolute location a reference is fetched from and
// the source type serving it.
func (f *Fetcher) Resolve(ref string) (string, SourceType, error) {
	if assetpath.IsAbsolute(ref) {
		if !isRemote(ref) {
			return "", "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, ref)
		}
		return ref, SourceTypeHTTP, nil
	}
	if f.baseURL != nil {
		rel, err := url.Parse(strings.TrimPrefix(ref, "/"))
		if err != nil {
			return "", "", fmt.Errorf("parsing asset reference %q: %w", ref, err)
		}
		return f.baseURL.ResolveReference(rel).String(), SourceTypeHTTP, nil
	}
	if filepath.IsAbs(ref) || f.base == "" {
		return filepath.Clean(ref), SourceTypeFile, nil
	}
	return filepath.Join(f.base, filepath.FromSlash(ref)), SourceTypeFile, nil
}

// Fetch resolves ref and returns its bytes. Concurrent fetches of the same
// location share one underlying read.
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	loc, typ, err := f.Resolve(ref)
	if err != nil {
		return nil, err
	}
	defer metrics.Timer(metrics.AssetFetch)()

	v, err, shared := f.group.Do(loc, func() (any, error) {
		return f.fetch(ctx, loc, typ)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", ref, err)
	}
	if shared {
		debug.Log("datasource: shared fetch of %s", loc)
	}
	return bytes.Clone(v.([]byte)), nil
}

func (f *Fetcher) fetch(ctx context.Context, loc string, typ SourceType) ([]byte, error) {
	if typ == SourceTypeFile {
		return f.file.Fetch(ctx, loc)
	}

	if f.cache != nil {
		if body, ok, err := f.cache.Get(ctx, loc); err != nil {
			debug.Warn("asset cache read failed for %s: %v", loc, err)
		} else if ok {
			metrics.AssetCache.Hit()
			debug.Log("datasource: cache hit %s", loc)
			return body, nil
		}
		metrics.AssetCache.Miss()
	}

	body, err := f.http.Fetch(ctx, loc)
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		if err := f.cache.Put(ctx, loc, body); err != nil {
			debug.Warn("asset cache write failed for %s: %v", loc, err)
		}
	}
	return body, nil
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
