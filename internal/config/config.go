package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and YAML-based load/save
// behavior, including first-run config creation and 0600 permissions.
// Environment variables (EVENTBOARD_*) override file values after loading.

const (
	defaultListen          = "127.0.0.1:8080"
	defaultAPIBaseURL      = "http://localhost:3000"
	defaultTimezone        = "Europe/Amsterdam"
	defaultCategoryID      = 1
	defaultRequestTimeout  = 15
	defaultMaxImageBytes   = 5 << 20
	defaultLogLevel        = "info"
	defaultSnapshotCron    = "*/15 * * * *"
	defaultSnapshotOutput  = "./cache/preview.png"
	defaultSnapshotWidth   = 1280
	defaultSnapshotHeight  = 960
	defaultSnapshotPageURL = "/"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for operator access.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" env:"USERNAME"`
	Password string `yaml:"password" json:"password" env:"PASSWORD"`
}

// SnapshotConfig controls the periodic kiosk snapshot of the listing page.
type SnapshotConfig struct {
	// Enabled turns on the cron-driven capture when serving.
	Enabled bool `yaml:"enabled" json:"enabled" env:"ENABLED"`
	// Cron is a cron-style schedule string (e.g. "*/15 * * * *").
	Cron string `yaml:"cron" json:"cron" env:"CRON"`
	// OutputPath is where the PNG is written and served from /preview.png.
	OutputPath string `yaml:"output_path" json:"output_path" env:"OUTPUT_PATH"`
	// Page is the path captured, relative to the listen address.
	Page   string `yaml:"page" json:"page" env:"PAGE"`
	Width  int    `yaml:"width" json:"width" env:"WIDTH"`
	Height int    `yaml:"height" json:"height" env:"HEIGHT"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the web UI.
	Listen string `yaml:"listen" json:"listen" env:"LISTEN"`

	// APIBaseURL is the origin of the remote event store.
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url" env:"API_BASE_URL"`

	// Timezone is the IANA zone event times are displayed in.
	Timezone string `yaml:"timezone" json:"timezone" env:"TIMEZONE"`

	// DefaultCategoryID is the category uncategorized events are listed under.
	DefaultCategoryID int64 `yaml:"default_category_id" json:"default_category_id" env:"DEFAULT_CATEGORY_ID"`

	// RequestTimeoutSeconds bounds each call to the event store.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" json:"request_timeout_seconds" env:"REQUEST_TIMEOUT_SECONDS"`

	// MaxImageBytes caps uploaded event images.
	MaxImageBytes int64 `yaml:"max_image_bytes" json:"max_image_bytes" env:"MAX_IMAGE_BYTES"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" env:"LOG_LEVEL"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty" envPrefix:"BASIC_AUTH_"`

	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot" envPrefix:"SNAPSHOT_"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:                defaultListen,
		APIBaseURL:            defaultAPIBaseURL,
		Timezone:              defaultTimezone,
		DefaultCategoryID:     defaultCategoryID,
		RequestTimeoutSeconds: defaultRequestTimeout,
		MaxImageBytes:         defaultMaxImageBytes,
		LogLevel:              defaultLogLevel,
		BasicAuth:             nil,
		Snapshot: SnapshotConfig{
			Enabled:    false,
			Cron:       defaultSnapshotCron,
			OutputPath: defaultSnapshotOutput,
			Page:       defaultSnapshotPageURL,
			Width:      defaultSnapshotWidth,
			Height:     defaultSnapshotHeight,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.DefaultCategoryID == 0 {
		c.DefaultCategoryID = defaultCategoryID
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = defaultRequestTimeout
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = defaultMaxImageBytes
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}

	s := &c.Snapshot
	if s.Cron == "" {
		s.Cron = defaultSnapshotCron
	}
	if s.OutputPath == "" {
		s.OutputPath = defaultSnapshotOutput
	}
	if s.Page == "" {
		s.Page = defaultSnapshotPageURL
	}
	if s.Width <= 0 {
		s.Width = defaultSnapshotWidth
	}
	if s.Height <= 0 {
		s.Height = defaultSnapshotHeight
	}
}

// RequestTimeout returns the store request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ApplyEnv overrides fields from EVENTBOARD_* environment variables.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(env.Options{Prefix: "EVENTBOARD_"})
}

func (c *Config) applyEnv(opts env.Options) error {
	if c.BasicAuth == nil {
		c.BasicAuth = &BasicAuthConfig{}
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	// The unprefixed LOG_LEVEL is honoured when the prefixed one is unset.
	if _, ok := lookupEnv(opts, opts.Prefix+"LOG_LEVEL"); !ok {
		if v, ok := lookupEnv(opts, "LOG_LEVEL"); ok && v != "" {
			c.LogLevel = v
		}
	}
	c.Normalize()
	return nil
}

func lookupEnv(opts env.Options, key string) (string, bool) {
	if opts.Environment != nil {
		v, ok := opts.Environment[key]
		return v, ok
	}
	return os.LookupEnv(key)
}

// Load loads configuration from the given YAML path and applies environment
// overrides.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventboard-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
