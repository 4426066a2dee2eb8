package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/msalah0e/kgx/internal/cache"
	"github.com/msalah0e/kgx/internal/layout"
	"github.com/msalah0e/kgx/internal/merge"
	"github.com/msalah0e/kgx/internal/neo4jsrc"
	"github.com/msalah0e/kgx/internal/telemetry"
)

// ProjectFile is the per-project override looked up from the working
// directory upwards.
const ProjectFile = ".kgx.toml"

// Config holds kgx configuration.
type Config struct {
	UI        UIConfig        `toml:"ui"`
	Backend   BackendConfig   `toml:"backend"`
	Layout    LayoutConfig    `toml:"layout"`
	Viewer    ViewerConfig    `toml:"viewer"`
	Cache     CacheConfig     `toml:"cache"`
	Neo4j     Neo4jConfig     `toml:"neo4j"`
	Log       LogConfig       `toml:"log"`
	Parallel  ParallelConfig  `toml:"parallel"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// UIConfig controls display options.
type UIConfig struct {
	Emoji bool `toml:"emoji"`
	Color bool `toml:"color"`
}

// BackendConfig selects where graph data comes from.
type BackendConfig struct {
	// Source is "backend" (HTTP service) or "neo4j" (direct Cypher).
	Source    string   `toml:"source"`
	URL       string   `toml:"url"`
	Timeout   Duration `toml:"timeout"`
	UseHybrid bool     `toml:"use_hybrid"`
	UseLLM    bool     `toml:"use_llm"`
}

// LayoutConfig overrides simulation and framing constants. Zero values keep
// the built-in defaults.
type LayoutConfig struct {
	Width         float64  `toml:"width"`
	Height        float64  `toml:"height"`
	Charge        float64  `toml:"charge"`
	LinkDistance  float64  `toml:"link_distance"`
	CollideRadius float64  `toml:"collide_radius"`
	ReleaseDelay  Duration `toml:"release_delay"`
	MinScale      float64  `toml:"min_scale"`
	MaxScale      float64  `toml:"max_scale"`
	FramePadding  float64  `toml:"frame_padding"`
	RingRadius    float64  `toml:"ring_radius"`
	RingPerNode   float64  `toml:"ring_per_node"`
	RingMax       float64  `toml:"ring_max"`
}

// ViewerConfig controls the local viewer server.
type ViewerConfig struct {
	Addr         string   `toml:"addr"`
	Open         bool     `toml:"open"`
	AllowOrigins []string `toml:"allow_origins"`
}

// CacheConfig controls association caching.
type CacheConfig struct {
	Backend   string   `toml:"backend"` // "none", "memory", "disk", "redis"
	Dir       string   `toml:"dir"`
	TTL       Duration `toml:"ttl"`
	RedisAddr string   `toml:"redis_addr"`
	RedisDB   int      `toml:"redis_db"`
	Prefix    string   `toml:"prefix"`
}

// Neo4jConfig holds direct database settings.
type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Mode  string `toml:"mode"` // "dev" or "prod"
	Level string `toml:"level"`
}

// ParallelConfig controls concurrent execution.
type ParallelConfig struct {
	Enabled     bool `toml:"enabled"`
	Concurrency int  `toml:"concurrency"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Exporter    string  `toml:"exporter"` // "", "stdout", "otlp"
	Endpoint    string  `toml:"endpoint"`
	Insecure    bool    `toml:"insecure"`
	SampleRatio float64 `toml:"sample_ratio"`
}

// Duration is a time.Duration written as a string such as "60s".
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		UI:       UIConfig{Emoji: true, Color: true},
		Backend:  BackendConfig{Source: "backend", URL: "http://localhost:8000", Timeout: Duration{60 * time.Second}, UseHybrid: true, UseLLM: true},
		Viewer:   ViewerConfig{Addr: "127.0.0.1:7474", Open: true},
		Cache:    CacheConfig{Backend: "memory", TTL: Duration{10 * time.Minute}},
		Neo4j:    Neo4jConfig{URI: "neo4j://localhost:7687", User: "neo4j", Database: "neo4j"},
		Log:      LogConfig{Mode: "dev", Level: "warn"},
		Parallel: ParallelConfig{Enabled: true, Concurrency: 4},
	}
}

// ConfigDir returns the kgx config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "kgx")
}

// Path returns the user config file path.
func Path() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the user config, then the nearest project override, then the
// environment. Missing or unreadable files leave defaults in place.
func Load() *Config {
	cfg := Default()
	_ = decodeFile(Path(), cfg)
	if p := findProjectConfig(); p != "" {
		_ = decodeFile(p, cfg)
	}
	cfg.applyEnv()
	return cfg
}

// LoadFile reads path over the defaults and applies the environment. Unlike
// Load it reports missing files and syntax errors.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// findProjectConfig walks up from the working directory looking for
// ProjectFile.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		p := filepath.Join(dir, ProjectFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Backend.URL, "KGX_BACKEND_URL")
	set(&c.Cache.RedisAddr, "KGX_REDIS_ADDR")
	set(&c.Log.Level, "KGX_LOG_LEVEL")
	set(&c.Neo4j.URI, "NEO4J_URI")
	set(&c.Neo4j.User, "NEO4J_USER")
	set(&c.Neo4j.Password, "NEO4J_PASSWORD")
	set(&c.Neo4j.Database, "NEO4J_DATABASE")
}

// Save writes the config to the user config file.
func Save(cfg *Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureExists creates the config file with defaults if it doesn't exist.
func EnsureExists() error {
	if _, err := os.Stat(Path()); err == nil {
		return nil
	}
	return Save(Default())
}

// LayoutParams returns simulation parameters with zero fields defaulted.
func (c *Config) LayoutParams() layout.Params {
	l := c.Layout
	p := layout.Params{
		Width:         l.Width,
		Height:        l.Height,
		Charge:        l.Charge,
		LinkDistance:  l.LinkDistance,
		CollideRadius: l.CollideRadius,
		ReleaseDelay:  l.ReleaseDelay.Duration,
		MinScale:      l.MinScale,
		MaxScale:      l.MaxScale,
		FramePadding:  l.FramePadding,
	}
	return p.WithDefaults()
}

// MergeOptions returns the association ring geometry.
func (c *Config) MergeOptions() merge.Options {
	o := merge.DefaultOptions()
	if c.Layout.RingRadius > 0 {
		o.BaseRadius = c.Layout.RingRadius
	}
	if c.Layout.RingPerNode > 0 {
		o.PerNode = c.Layout.RingPerNode
	}
	if c.Layout.RingMax > 0 {
		o.MaxRadius = c.Layout.RingMax
	}
	return o
}

// CacheOptions returns the cache backend selection.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:   c.Cache.Backend,
		Dir:       c.Cache.Dir,
		RedisAddr: c.Cache.RedisAddr,
		RedisDB:   c.Cache.RedisDB,
		Prefix:    c.Cache.Prefix,
	}
}

// Neo4jSource returns the direct database settings.
func (c *Config) Neo4jSource() neo4jsrc.Config {
	return neo4jsrc.Config{
		URI:      c.Neo4j.URI,
		User:     c.Neo4j.User,
		Password: c.Neo4j.Password,
		Database: c.Neo4j.Database,
	}
}

// TelemetrySettings returns the exporter settings for version.
func (c *Config) TelemetrySettings(version string) telemetry.Config {
	return telemetry.Config{
		Exporter:    c.Telemetry.Exporter,
		Endpoint:    c.Telemetry.Endpoint,
		Insecure:    c.Telemetry.Insecure,
		SampleRatio: c.Telemetry.SampleRatio,
		ServiceName: "kgx",
		Version:     version,
	}
}
