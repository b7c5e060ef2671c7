// Package server serves a drillmap asset tree (hierarchy JSON, maps and
// flags) over HTTP so the viewer can point its asset base at a URL.
package server

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/cors"

	"github.com/vanderheijden86/drillmap/pkg/debug"
	"github.com/vanderheijden86/drillmap/pkg/version"
)

// Config configures the asset server.
type Config struct {
	Addr           string
	Root           string
	AllowedOrigins []string
	RateLimit      RateLimitConfig
	CORSDebug      bool
}

// Server is a static asset server with CORS and per-client rate limiting.
type Server struct {
	cfg     Config
	limiter *RateLimiter
	handler http.Handler
}

func init() {
	// some platforms ship without an svg mime entry
	_ = mime.AddExtensionType(".svg", "image/svg+xml")
}

// New validates the root directory and builds the handler chain.
func New(cfg Config) (*Server, error) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("asset root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset root %s is not a directory", cfg.Root)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{cfg: cfg, limiter: NewRateLimiter(cfg.RateLimit)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /", http.FileServer(noListing{http.Dir(cfg.Root)}))

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		Debug:          cfg.CORSDebug,
	})
	debug.Log("server: cors origins=%v rate=%v/s burst=%d", cfg.AllowedOrigins, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)

	s.handler = c.Handler(s.limiter.Middleware(logRequests(mux)))
	return s, nil
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler { return s.handler }

// Limiter exposes the rate limiter.
func (s *Server) Limiter() *RateLimiter { return s.limiter }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	defer close(done)
	if s.cfg.RateLimit.Enabled {
		go s.limiter.Run(time.Minute, done)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Root    string `json:"root"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	root, err := filepath.Abs(s.cfg.Root)
	if err != nil {
		root = s.cfg.Root
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(health{Status: "ok", Version: version.Version, Root: root})
}

// noListing hides directory indexes.
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status >= 400 && !strings.HasSuffix(r.URL.Path, "favicon.ico") {
			debug.Warn("%s %s -> %d", r.Method, r.URL.Path, rec.status)
		}
		debug.LogTiming(r.Method+" "+r.URL.Path, time.Since(start))
	})
}
