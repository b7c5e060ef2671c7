// Package config handles loading and saving drillmap configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/drillmap/config.yaml
//   - Cache:   ~/.cache/drillmap/ (remote asset cache)
//   - State:   ~/.local/state/drillmap/ (debug log)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment overrides applied by ApplyEnv.
const (
	EnvCountry   = "DRILLMAP_COUNTRY"
	EnvAssetBase = "DRILLMAP_ASSET_BASE"
)

// Country holds the asset locations of one country, relative to the asset
// base unless absolute.
type Country struct {
	DataURL       string `yaml:"data_url"`
	SVGURL        string `yaml:"svg_url"`
	ProvincesPath string `yaml:"provinces_path"` // Root of province/department/city flags
	MapsPath      string `yaml:"maps_path"`      // Root of province detail maps
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	SplitRatio float64 `yaml:"split_ratio,omitempty"` // Map pane share of the width (0.2-0.8)
	WordWrap   int     `yaml:"word_wrap,omitempty"`   // Panel markdown wrap column
}

// CacheConfig controls the sqlite cache for remote assets.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
	TTL     string `yaml:"ttl,omitempty"` // Go duration, empty keeps entries forever
}

// ServeConfig controls `drillmap serve`.
type ServeConfig struct {
	Addr              string   `yaml:"addr,omitempty"`
	Root              string   `yaml:"root,omitempty"`
	AllowedOrigins    []string `yaml:"allowed_origins,omitempty"`
	RequestsPerSecond float64  `yaml:"requests_per_second,omitempty"`
	Burst             int      `yaml:"burst,omitempty"`
}

// Config is the top-level configuration for drillmap.
type Config struct {
	Countries      map[string]Country `yaml:"countries,omitempty"`
	DefaultCountry string             `yaml:"default_country,omitempty"`
	AssetBase      string             `yaml:"asset_base,omitempty"` // Directory or http(s) URL
	Cache          CacheConfig        `yaml:"cache,omitempty"`
	UI             UIConfig           `yaml:"ui,omitempty"`
	Serve          ServeConfig        `yaml:"serve,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Countries: map[string]Country{
			"argentina": {
				DataURL:       "data/argentina.json",
				SVGURL:        "maps/argentina.svg",
				ProvincesPath: "flags/provinces/",
				MapsPath:      "maps/provinces/",
			},
			"chile": {
				DataURL:       "data/chile.json",
				SVGURL:        "maps/chile.svg",
				ProvincesPath: "flags/provinces/",
				MapsPath:      "maps/provinces/",
			},
		},
		DefaultCountry: "argentina",
		AssetBase:      ".",
		UI: UIConfig{
			SplitRatio: 0.5,
			WordWrap:   60,
		},
		Serve: ServeConfig{
			Addr:              ":8080",
			Root:              ".",
			AllowedOrigins:    []string{"*"},
			RequestsPerSecond: 20,
			Burst:             40,
		},
	}
}

// ConfigDir returns the XDG config directory for drillmap.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// CacheDir returns the XDG cache directory for drillmap.
func CacheDir() string {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// StateDir returns the XDG state directory for drillmap.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, "drillmap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fallback, "drillmap")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	// a countries table in the file replaces the built-in one
	var override struct {
		Countries map[string]Country `yaml:"countries"`
	}
	if err := yaml.Unmarshal(data, &override); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if len(override.Countries) > 0 {
		cfg.Countries = nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.AssetBase = expandHome(cfg.AssetBase)
	cfg.Cache.Path = expandHome(cfg.Cache.Path)
	cfg.Serve.Root = expandHome(cfg.Serve.Root)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks that the default country exists and that every country
// names its data and map documents.
func (c Config) Validate() error {
	if len(c.Countries) == 0 {
		return fmt.Errorf("config: no countries configured")
	}
	if _, ok := c.Countries[c.DefaultCountry]; !ok {
		return fmt.Errorf("config: default_country %q is not configured", c.DefaultCountry)
	}
	for _, key := range c.CountryKeys() {
		cc := c.Countries[key]
		if cc.DataURL == "" || cc.SVGURL == "" {
			return fmt.Errorf("config: country %q needs data_url and svg_url", key)
		}
	}
	if r := c.UI.SplitRatio; r != 0 && (r < 0.2 || r > 0.8) {
		return fmt.Errorf("config: ui.split_ratio %.2f out of range 0.2-0.8", r)
	}
	return nil
}

// CountryKeys returns the configured country keys, sorted.
func (c Config) CountryKeys() []string {
	keys := make([]string, 0, len(c.Countries))
	for k := range c.Countries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Country returns the configuration for key.
func (c Config) Country(key string) (Country, bool) {
	cc, ok := c.Countries[strings.ToLower(key)]
	return cc, ok
}

// SelectCountry picks the country whose key appears in path, falling back
// to the default country. Longer keys win so "chile" inside "chilecito"
// style paths stays deterministic.
func (c Config) SelectCountry(path string) string {
	lower := strings.ToLower(path)
	keys := c.CountryKeys()
	sort.SliceStable(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		if strings.Contains(lower, k) {
			return k
		}
	}
	return c.DefaultCountry
}

// ApplyEnv overrides fields from DRILLMAP_* environment variables. Unknown
// countries are reported as an error and leave the config unchanged.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvCountry)); v != "" {
		v = strings.ToLower(v)
		if _, ok := c.Countries[v]; !ok {
			return fmt.Errorf("%s=%q is not a configured country", EnvCountry, v)
		}
		c.DefaultCountry = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAssetBase)); v != "" {
		c.AssetBase = expandHome(v)
	}
	return nil
}

// CachePath returns the cache database path, or "" when caching is off.
func (c Config) CachePath() string {
	if !c.Cache.Enabled {
		return ""
	}
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	dir := CacheDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "assets.db")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
