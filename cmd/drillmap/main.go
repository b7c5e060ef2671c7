package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/vanderheijden86/drillmap/internal/check"
	"github.com/vanderheijden86/drillmap/internal/datasource"
	"github.com/vanderheijden86/drillmap/internal/server"
	"github.com/vanderheijden86/drillmap/pkg/assetpath"
	"github.com/vanderheijden86/drillmap/pkg/config"
	"github.com/vanderheijden86/drillmap/pkg/debug"
	"github.com/vanderheijden86/drillmap/pkg/export"
	"github.com/vanderheijden86/drillmap/pkg/loader"
	"github.com/vanderheijden86/drillmap/pkg/metrics"
	"github.com/vanderheijden86/drillmap/pkg/navigator"
	"github.com/vanderheijden86/drillmap/pkg/ui"
	"github.com/vanderheijden86/drillmap/pkg/version"
)

const usage = `Usage: drillmap [options]
       drillmap check  [options]
       drillmap export [options]
       drillmap serve  [options]

An interactive drill-down map of a country's provinces, departments and cities.
`

func main() {
	_ = godotenv.Load(".env")
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches to a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "check":
			return runCheck(args[1:], stdout, stderr)
		case "export":
			return runExport(args[1:], stdout, stderr)
		case "serve":
			return runServe(args[1:], stdout, stderr)
		}
	}
	return runView(args, stdout, stderr)
}

// common holds the flags every subcommand shares.
type common struct {
	country    string
	configPath string
	assets     string
	noCache    bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.country, "country", "", "Country key (default: detected from the asset base, then default_country)")
	fs.StringVar(&c.configPath, "config", "", "Config file (default: "+config.ConfigPath()+")")
	fs.StringVar(&c.assets, "assets", "", "Asset base directory or http(s) URL (overrides asset_base)")
	fs.BoolVar(&c.noCache, "no-cache", false, "Bypass the remote asset cache")
}

// loadConfig reads the config file. A broken file is reported and replaced
// by the defaults so the viewer still starts.
func (c *common) loadConfig(stderr io.Writer) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFrom(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(stderr, "Warning: %v; using defaults\n", err)
		cfg = config.DefaultConfig()
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if c.assets != "" {
		cfg.AssetBase = c.assets
	}
	if c.noCache {
		cfg.Cache.Enabled = false
	}
	return cfg, nil
}

// countryKey applies the precedence -country > asset base path > default.
func (c *common) countryKey(cfg config.Config) (string, error) {
	if c.country != "" {
		key := strings.ToLower(c.country)
		if _, ok := cfg.Country(key); !ok {
			return "", fmt.Errorf("unknown country %q (configured: %s)", c.country, strings.Join(cfg.CountryKeys(), ", "))
		}
		return key, nil
	}
	return cfg.SelectCountry(cfg.AssetBase), nil
}

// session is one loaded country: its assets, dataset and navigator.
type session struct {
	key     string
	country config.Country
	fetcher *datasource.Fetcher
	nav     *navigator.Navigator
}

func openSession(ctx context.Context, cfg config.Config, key string) (*session, error) {
	cc, ok := cfg.Country(key)
	if !ok {
		return nil, fmt.Errorf("country %q is not configured", key)
	}

	var ttl time.Duration
	if cfg.Cache.TTL != "" {
		d, err := time.ParseDuration(cfg.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("cache ttl %q: %w", cfg.Cache.TTL, err)
		}
		ttl = d
	}
	fetcher, err := datasource.Open(cfg.AssetBase, datasource.Options{
		CachePath: cfg.CachePath(),
		CacheTTL:  ttl,
	})
	if err != nil {
		return nil, err
	}

	h, err := datasource.LoadHierarchy(ctx, fetcher, cc.DataURL, loader.ParseOptions{
		WarningHandler: func(msg string) { debug.Warn("%s", msg) },
	})
	if err != nil {
		fetcher.Close()
		return nil, err
	}
	provinces, departments, cities := h.Counts()
	debug.Log("session: %s loaded %d provinces, %d departments, %d cities", key, provinces, departments, cities)

	nav := navigator.New(navigator.Options{
		Hierarchy:     h,
		Resolver:      assetpath.Resolver{ProvincesRoot: cc.ProvincesPath, MapsRoot: cc.MapsPath},
		CountryMapURL: cc.SVGURL,
	})
	return &session{key: key, country: cc, fetcher: fetcher, nav: nav}, nil
}

func (s *session) Close() error { return s.fetcher.Close() }

// load fetches req synchronously and applies it.
func (s *session) load(ctx context.Context, req *navigator.MapRequest) error {
	if req == nil {
		return nil
	}
	body, err := s.fetcher.Fetch(ctx, req.URL)
	return s.nav.ApplyMap(navigator.MapResult{Request: *req, Markup: body, Err: err})
}

func runView(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("drillmap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	help := fs.Bool("help", false, "Show help")
	versionFlag := fs.Bool("version", false, "Show version")
	pick := fs.Bool("pick", false, "Choose the country interactively")
	plain := fs.Bool("plain", false, "Print the country panel and regions instead of starting the TUI")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *help {
		fmt.Fprint(stdout, usage)
		fmt.Fprintln(stdout)
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}
	if *versionFlag {
		fmt.Fprintf(stdout, "drillmap %s\n", version.Version)
		return 0
	}

	cfg, err := c.loadConfig(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := c.countryKey(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if *pick && c.country == "" {
		if key, err = pickCountry(cfg, key); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg, key)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading %s: %v\n", key, err)
		return 1
	}
	defer s.Close()

	interactive := !*plain && isTerminal(os.Stdout) && stdout == os.Stdout
	if !interactive {
		if err := s.load(ctx, s.nav.Start()); err != nil {
			// the panel is still meaningful without the map
			fmt.Fprintf(stderr, "Warning: %v\n", err)
		}
		fmt.Fprintln(stdout, ui.RenderPlain(s.nav))
		return 0
	}

	if err := runTUI(s, cfg); err != nil {
		fmt.Fprintf(stderr, "Error running drillmap: %v\n", err)
		return 1
	}
	return 0
}

func runTUI(s *session, cfg config.Config) error {
	// Warnings would corrupt the alternate screen; send them to a log file
	// when DRILLMAP_LOG is set and to the status line always.
	if path := os.Getenv("DRILLMAP_LOG"); path != "" {
		f, err := tea.LogToFile(path, "drillmap")
		if err != nil {
			return fmt.Errorf("opening log %s: %w", path, err)
		}
		defer f.Close()
		debug.SetOutput(f)
	} else {
		debug.SetOutput(io.Discard)
	}
	defer debug.SetOutput(nil)

	warnings := make(chan string, 32)
	debug.SetWarnHook(func(msg string) {
		select {
		case warnings <- msg:
		default:
		}
	})
	defer debug.SetWarnHook(nil)

	m := ui.NewModel(ui.Options{
		Navigator:  s.nav,
		Source:     s.fetcher,
		Title:      s.key,
		SplitRatio: cfg.UI.SplitRatio,
		WordWrap:   cfg.UI.WordWrap,
		Warnings:   warnings,
	})
	return runTUIProgram(m)
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated runs: set DRILLMAP_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("DRILLMAP_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}
				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

func pickCountry(cfg config.Config, current string) (string, error) {
	key := current
	opts := make([]huh.Option[string], 0, len(cfg.Countries))
	for _, k := range cfg.CountryKeys() {
		cc := cfg.Countries[k]
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", k, cc.DataURL), k))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which country?").
				Options(opts...).
				Value(&key),
		),
	).WithTheme(huh.ThemeDracula())
	if !isTerminal(os.Stdin) {
		form = form.WithAccessible(true)
	}
	if err := form.Run(); err != nil {
		return "", err
	}
	return key, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func runCheck(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("drillmap check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	mapsOnly := fs.Bool("maps-only", false, "Only check map documents, not flags")
	concurrency := fs.Int("concurrency", check.DefaultConcurrency, "Parallel fetches")
	progress := fs.Bool("progress", isTerminal(os.Stderr), "Show a progress bar on stderr")
	stats := fs.Bool("stats", false, "Print fetch timings and cache counters as JSON after the report")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := c.loadConfig(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := c.countryKey(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg, key)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading %s: %v\n", key, err)
		return 1
	}
	defer s.Close()

	assets, skipped := check.Collect(s.nav.Hierarchy(), s.nav.Resolver(), s.country.SVGURL, *mapsOnly)
	opts := check.Options{Concurrency: *concurrency}
	if *progress {
		opts.Progress = stderr
	}
	report, err := check.Run(ctx, s.fetcher, assets, opts)
	report.Skipped = skipped
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s @ %s\n", key, s.fetcher.Base())
	check.WriteReport(stdout, report)
	if *stats {
		data, err := metrics.JSON()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(data))
	}
	if !report.OK() {
		return 1
	}
	return 0
}

func runExport(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("drillmap export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	province := fs.String("province", "", "Province id to select")
	department := fs.String("department", "", "Department id to select (requires -province)")
	out := fs.String("o", "", "Output path (.svg, .png or .md; default drillmap-<name>.svg)")
	format := fs.String("format", "", "Output format, overrides the extension")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *department != "" && *province == "" {
		fmt.Fprintln(stderr, "Error: -department requires -province")
		return 2
	}

	cfg, err := c.loadConfig(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := c.countryKey(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cfg, key)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading %s: %v\n", key, err)
		return 1
	}
	defer s.Close()

	if err := s.drill(ctx, *province, *department); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	path := *out
	if path == "" {
		ext := "svg"
		if *format != "" {
			ext = strings.ToLower(*format)
		}
		path = ui.SnapshotName(s.nav, ext)
	}
	opts := ui.SnapshotOptions(s.nav, path)
	opts.Format = *format
	if err := export.SaveSnapshot(opts); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	abs, _ := filepath.Abs(path)
	fmt.Fprintf(stdout, "Snapshot saved to %s\n", abs)
	return 0
}

// drill replays the navigation a user would do to reach the given province
// and department.
func (s *session) drill(ctx context.Context, provinceID, departmentID string) error {
	if err := s.load(ctx, s.nav.Start()); err != nil {
		return err
	}
	if provinceID == "" {
		return nil
	}
	if err := s.nav.SelectProvince(provinceID); err != nil {
		return err
	}
	if departmentID == "" {
		return nil
	}
	req := s.nav.RequestDetailMap()
	if req == nil {
		return fmt.Errorf("province %q has no detail map", provinceID)
	}
	if err := s.load(ctx, req); err != nil {
		return err
	}
	return s.nav.SelectDepartment(departmentID)
}

func runServe(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("drillmap serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Config file (default: "+config.ConfigPath()+")")
	addr := fs.String("addr", "", "Listen address (overrides serve.addr)")
	root := fs.String("root", "", "Directory to serve (overrides serve.root)")
	origins := fs.String("origins", "", "Comma-separated allowed CORS origins")
	rps := fs.Float64("rps", 0, "Requests per second per client (0 keeps the config value)")
	trustProxy := fs.Bool("trust-proxy", false, "Take client addresses from X-Forwarded-For")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	c := common{configPath: *configPath}
	cfg, err := c.loadConfig(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	sc := cfg.Serve
	if *addr != "" {
		sc.Addr = *addr
	}
	if *root != "" {
		sc.Root = *root
	}
	if *origins != "" {
		sc.AllowedOrigins = strings.Split(*origins, ",")
	}
	if *rps > 0 {
		sc.RequestsPerSecond = *rps
	}

	srv, err := server.New(server.Config{
		Addr:           sc.Addr,
		Root:           sc.Root,
		AllowedOrigins: sc.AllowedOrigins,
		RateLimit: server.RateLimitConfig{
			Enabled:           sc.RequestsPerSecond > 0,
			RequestsPerSecond: sc.RequestsPerSecond,
			BurstSize:         sc.Burst,
			TrustProxy:        *trustProxy,
		},
		CORSDebug: debug.Enabled(),
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(stdout, "drillmap %s serving %s on %s\n", version.Version, sc.Root, sc.Addr)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
