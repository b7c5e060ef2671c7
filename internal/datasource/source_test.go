package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vanderheijden86/drillmap/pkg/loader"
)

func assetServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/app/maps/santafe.svg", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`<svg id="santafe"/>`))
	})
	mux.HandleFunc("/app/data.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"country":{"name":"Argentina"},"provinces":[{"id":"sf","name":"Santa Fe"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	local, err := Open(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	remote, err := Open("https://maps.example.org/app", Options{})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		f        *Fetcher
		ref      string
		wantLoc  string
		wantType SourceType
		wantErr  error
	}{
		{"relative file", local, "maps/santafe.svg", filepath.Join(dir, "maps", "santafe.svg"), SourceTypeFile, nil},
		{"relative url", remote, "maps/santafe.svg", "https://maps.example.org/app/maps/santafe.svg", SourceTypeHTTP, nil},
		{"rooted ref stays under base", remote, "/maps/a.svg", "https://maps.example.org/app/maps/a.svg", SourceTypeHTTP, nil},
		{"absolute url verbatim", local, "https://cdn.example.org/f.svg", "https://cdn.example.org/f.svg", SourceTypeHTTP, nil},
		{"data uri unsupported", remote, "data:image/svg+xml;base64,AAAA", "", "", ErrUnsupportedScheme},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, typ, err := tt.f.Resolve(tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if loc != tt.wantLoc || typ != tt.wantType {
				t.Errorf("Resolve(%q) = %q, %s; want %q, %s", tt.ref, loc, typ, tt.wantLoc, tt.wantType)
			}
		})
	}
}

func TestFetch_File(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "maps"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "maps", "country.svg"), []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Open(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.Fetch(context.Background(), "maps/country.svg")
	if err != nil || string(got) != "<svg/>" {
		t.Fatalf("Fetch = %q, %v", got, err)
	}
	if _, err := f.Fetch(context.Background(), "maps/missing.svg"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestFetch_HTTP(t *testing.T) {
	var hits atomic.Int32
	srv := assetServer(t, &hits)

	f, err := Open(srv.URL+"/app/", Options{Client: srv.Client()})
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.Fetch(context.Background(), "maps/santafe.svg")
	if err != nil || !strings.Contains(string(got), "santafe") {
		t.Fatalf("Fetch = %q, %v", got, err)
	}

	_, err = f.Fetch(context.Background(), "maps/nope.svg")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("err = %v, want 404 StatusError", err)
	}
}

func TestFetch_MaxSize(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "big.svg"), []byte(strings.Repeat("x", 64)), 0o644); err != nil {
		t.Fatal(err)
	}
	f, _ := Open(dir, Options{MaxSize: 16})
	if _, err := f.Fetch(context.Background(), "big.svg"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v", err)
	}
}

func TestFetch_Cached(t *testing.T) {
	var hits atomic.Int32
	srv := assetServer(t, &hits)
	cachePath := filepath.Join(t.TempDir(), "cache", "assets.db")

	f, err := Open(srv.URL+"/app", Options{Client: srv.Client(), CachePath: cachePath})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(context.Background(), "maps/santafe.svg"); err != nil {
			t.Fatal(err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
	f.Close()

	// a new session reads the persisted entry
	f, err = Open(srv.URL+"/app", Options{Client: srv.Client(), CachePath: cachePath})
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.Fetch(context.Background(), "maps/santafe.svg"); err != nil {
		t.Fatal(err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits after reopen = %d, want 1", n)
	}
}

func TestCache_TTL(t *testing.T) {
	c, err := OpenCache(filepath.Join(t.TempDir(), "assets.db"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	if err := c.Put(ctx, "https://x/a.svg", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if body, ok, err := c.Get(ctx, "https://x/a.svg"); err != nil || !ok || string(body) != "a" {
		t.Fatalf("Get = %q, %v, %v", body, ok, err)
	}

	now = now.Add(2 * time.Hour)
	if _, ok, _ := c.Get(ctx, "https://x/a.svg"); ok {
		t.Error("expired entry should miss")
	}
	if n, _ := c.Len(ctx); n != 1 {
		t.Errorf("Len = %d", n)
	}
	if err := c.Purge(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.Len(ctx); n != 0 {
		t.Errorf("Len after purge = %d", n)
	}
}

func TestLoadHierarchy(t *testing.T) {
	var hits atomic.Int32
	srv := assetServer(t, &hits)
	f, _ := Open(srv.URL+"/app/", Options{Client: srv.Client()})

	h, err := LoadHierarchy(context.Background(), f, "data.json", loader.ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if h.Country.Name != "Argentina" || len(h.Provinces) != 1 {
		t.Errorf("hierarchy = %+v", h)
	}

	if _, err := LoadHierarchy(context.Background(), f, "missing.json", loader.ParseOptions{}); err == nil {
		t.Error("expected error for missing document")
	}
}
