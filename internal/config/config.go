// Package config loads and persists the news reader's configuration.
//
// Precedence, lowest to highest: embedded defaults, the user's YAML file
// at $XDG_CONFIG_HOME/newsreader/config.yaml, then NEWSREADER_*
// environment variables. A .env file in the working directory is loaded
// into the environment first, so it participates at the environment
// level.
package config

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultYAML []byte

// appDir is the subdirectory used under every XDG base directory.
const appDir = "newsreader"

// Duration wraps time.Duration so YAML can carry values like "15s".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration back in string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the persistent application configuration.
type Config struct {
	Feed    FeedConfig    `yaml:"feed"`
	List    ListConfig    `yaml:"list"`
	Sync    SyncConfig    `yaml:"sync"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// FeedConfig holds remote feed client settings.
type FeedConfig struct {
	BaseURL       string   `yaml:"base_url"`
	Timeout       Duration `yaml:"timeout"`
	RatePerSecond float64  `yaml:"rate_per_second"`
	SearchBatch   int      `yaml:"search_batch"`
}

// ListConfig holds browsing list settings.
type ListConfig struct {
	PageSize int `yaml:"page_size"`
}

// SyncConfig holds cache priming settings.
type SyncConfig struct {
	PageSize int `yaml:"page_size"`
	Pages    int `yaml:"pages"`
}

// StorageConfig holds file locations. Empty values fall back to the XDG
// base directories.
type StorageConfig struct {
	CachePath string `yaml:"cache_path"`
	StatePath string `yaml:"state_path"`
	EventLog  string `yaml:"event_log"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns the embedded defaults.
func DefaultConfig() *Config {
	var c Config
	// The default ships inside the binary; failing to parse it is a
	// build defect, not a runtime condition.
	if err := yaml.Unmarshal(defaultYAML, &c); err != nil {
		panic(fmt.Sprintf("invalid embedded default config: %v", err))
	}
	return &c
}

// Path returns the location of the user's config file.
func Path() string {
	return filepath.Join(xdg.ConfigHome, appDir, "config.yaml")
}

// Load builds the effective configuration: embedded defaults, overlaid
// with the user's file when present, overlaid with environment
// variables. A missing file is fine; a malformed one is an error so
// hand-edit typos don't silently vanish.
func Load() (*Config, error) {
	// A .env in the working directory is optional.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", Path(), err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the user's config file.
func (c *Config) Save() error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnv overlays NEWSREADER_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("NEWSREADER_FEED_URL"); v != "" {
		c.Feed.BaseURL = v
	}
	if v := os.Getenv("NEWSREADER_FEED_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Feed.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("NEWSREADER_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.List.PageSize = n
		}
	}
	if v := os.Getenv("NEWSREADER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NEWSREADER_CACHE_DB"); v != "" {
		c.Storage.CachePath = v
	}
	if v := os.Getenv("NEWSREADER_STATE_DB"); v != "" {
		c.Storage.StatePath = v
	}
}

// Validate rejects configurations the rest of the program cannot run on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Feed.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid feed base URL %q", c.Feed.BaseURL)
	}
	if c.Feed.SearchBatch <= 0 {
		return fmt.Errorf("feed search_batch must be positive, got %d", c.Feed.SearchBatch)
	}
	if c.List.PageSize <= 0 {
		return fmt.Errorf("list page_size must be positive, got %d", c.List.PageSize)
	}
	if c.Sync.PageSize <= 0 || c.Sync.Pages <= 0 {
		return fmt.Errorf("sync page_size and pages must be positive, got %d and %d", c.Sync.PageSize, c.Sync.Pages)
	}
	return nil
}

// CacheDBPath returns the article cache location.
func (c *Config) CacheDBPath() string {
	if c.Storage.CachePath != "" {
		return c.Storage.CachePath
	}
	return filepath.Join(xdg.CacheHome, appDir, "articles.db")
}

// StateDBPath returns the user-state store location.
func (c *Config) StateDBPath() string {
	if c.Storage.StatePath != "" {
		return c.Storage.StatePath
	}
	return filepath.Join(xdg.DataHome, appDir, "userstate.db")
}

// EventLogPath returns the JSONL event log location.
func (c *Config) EventLogPath() string {
	if c.Storage.EventLog != "" {
		return c.Storage.EventLog
	}
	return filepath.Join(xdg.StateHome, appDir, "events.jsonl")
}

// LogDir returns the structured log directory.
func (c *Config) LogDir() string {
	if c.Logging.Dir != "" {
		return c.Logging.Dir
	}
	return filepath.Join(xdg.StateHome, appDir, "logs")
}

// EnsureDirs creates the parent directories for every file this
// configuration points at.
func (c *Config) EnsureDirs() error {
	dirs := []string{
		filepath.Dir(c.CacheDBPath()),
		filepath.Dir(c.StateDBPath()),
		filepath.Dir(c.EventLogPath()),
		c.LogDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
