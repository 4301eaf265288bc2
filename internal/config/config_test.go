package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every XDG base directory at a temp dir so tests never
// touch the real user configuration.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("HOME", dir)
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	return dir
}

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NEWSREADER_FEED_URL",
		"NEWSREADER_FEED_TIMEOUT",
		"NEWSREADER_PAGE_SIZE",
		"NEWSREADER_LOG_LEVEL",
		"NEWSREADER_CACHE_DB",
		"NEWSREADER_STATE_DB",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://127.0.0.1:8090", cfg.Feed.BaseURL)
	assert.Equal(t, 15*time.Second, time.Duration(cfg.Feed.Timeout))
	assert.Equal(t, 5.0, cfg.Feed.RatePerSecond)
	assert.Equal(t, 100, cfg.Feed.SearchBatch)
	assert.Equal(t, 10, cfg.List.PageSize)
	assert.Equal(t, 20, cfg.Sync.PageSize)
	assert.Equal(t, 3, cfg.Sync.Pages)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	isolate(t)
	clearEnvOverrides(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	isolate(t)
	clearEnvOverrides(t)

	path := Path()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	content := "feed:\n  base_url: http://news.example.com\n  timeout: 3s\nlist:\n  page_size: 25\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://news.example.com", cfg.Feed.BaseURL)
	assert.Equal(t, 3*time.Second, time.Duration(cfg.Feed.Timeout))
	assert.Equal(t, 25, cfg.List.PageSize)
	// Fields the file omits keep their defaults.
	assert.Equal(t, 100, cfg.Feed.SearchBatch)
	assert.Equal(t, 3, cfg.Sync.Pages)
}

func TestLoadMalformedFileFails(t *testing.T) {
	isolate(t)
	clearEnvOverrides(t)

	path := Path()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("feed: [not: valid"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadBadDurationFails(t *testing.T) {
	isolate(t)
	clearEnvOverrides(t)

	path := Path()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  timeout: soon\n"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestEnvOverridesFileAndDefaults(t *testing.T) {
	isolate(t)
	clearEnvOverrides(t)

	path := Path()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  base_url: http://file.example.com\n"), 0644))

	t.Setenv("NEWSREADER_FEED_URL", "http://env.example.com")
	t.Setenv("NEWSREADER_FEED_TIMEOUT", "7s")
	t.Setenv("NEWSREADER_PAGE_SIZE", "42")
	t.Setenv("NEWSREADER_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://env.example.com", cfg.Feed.BaseURL)
	assert.Equal(t, 7*time.Second, time.Duration(cfg.Feed.Timeout))
	assert.Equal(t, 42, cfg.List.PageSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvIgnoresInvalidValues(t *testing.T) {
	isolate(t)
	clearEnvOverrides(t)

	t.Setenv("NEWSREADER_FEED_TIMEOUT", "whenever")
	t.Setenv("NEWSREADER_PAGE_SIZE", "-4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, time.Duration(cfg.Feed.Timeout))
	assert.Equal(t, 10, cfg.List.PageSize)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	isolate(t)
	clearEnvOverrides(t)

	cfg := DefaultConfig()
	cfg.Feed.BaseURL = "http://saved.example.com"
	cfg.Feed.Timeout = Duration(45 * time.Second)
	cfg.List.PageSize = 30
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://saved.example.com", loaded.Feed.BaseURL)
	assert.Equal(t, 45*time.Second, time.Duration(loaded.Feed.Timeout))
	assert.Equal(t, 30, loaded.List.PageSize)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base URL", func(c *Config) { c.Feed.BaseURL = "" }},
		{"relative base URL", func(c *Config) { c.Feed.BaseURL = "not-a-url" }},
		{"zero page size", func(c *Config) { c.List.PageSize = 0 }},
		{"negative search batch", func(c *Config) { c.Feed.SearchBatch = -1 }},
		{"zero sync pages", func(c *Config) { c.Sync.Pages = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestStoragePathsHonorOverrides(t *testing.T) {
	isolate(t)

	cfg := DefaultConfig()
	assert.Contains(t, cfg.CacheDBPath(), filepath.Join("newsreader", "articles.db"))
	assert.Contains(t, cfg.StateDBPath(), filepath.Join("newsreader", "userstate.db"))
	assert.Contains(t, cfg.EventLogPath(), filepath.Join("newsreader", "events.jsonl"))

	cfg.Storage.CachePath = "/custom/cache.db"
	cfg.Storage.StatePath = "/custom/state.db"
	cfg.Storage.EventLog = "/custom/events.jsonl"
	cfg.Logging.Dir = "/custom/logs"
	assert.Equal(t, "/custom/cache.db", cfg.CacheDBPath())
	assert.Equal(t, "/custom/state.db", cfg.StateDBPath())
	assert.Equal(t, "/custom/events.jsonl", cfg.EventLogPath())
	assert.Equal(t, "/custom/logs", cfg.LogDir())
}

func TestEnsureDirs(t *testing.T) {
	dir := isolate(t)

	cfg := DefaultConfig()
	cfg.Storage.CachePath = filepath.Join(dir, "a", "cache.db")
	cfg.Storage.StatePath = filepath.Join(dir, "b", "state.db")
	cfg.Storage.EventLog = filepath.Join(dir, "c", "events.jsonl")
	cfg.Logging.Dir = filepath.Join(dir, "d")

	require.NoError(t, cfg.EnsureDirs())
	for _, p := range []string{
		filepath.Join(dir, "a"),
		filepath.Join(dir, "b"),
		filepath.Join(dir, "c"),
		filepath.Join(dir, "d"),
	} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
