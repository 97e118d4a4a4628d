package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/memosync/pkg/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memosync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func loadOpts(t *testing.T, file string) LoadOptions {
	return LoadOptions{File: file, EnvFile: filepath.Join(t.TempDir(), "missing.env")}
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
memos:
  url: https://memos.example.com/api/v1
  token: secret
sync:
  dir: /tmp/vault
  interval: 2h
  timezone: UTC
ai:
  enabled: true
  provider: ollama
  base_url: http://localhost:11434
`)

	cfg, used, err := Load(loadOpts(t, path))
	require.NoError(t, err)
	assert.Equal(t, path, used)

	assert.Equal(t, "secret", cfg.Memos.Token)
	assert.Equal(t, 100, cfg.Memos.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Memos.Timeout)
	assert.Equal(t, 2*time.Hour, cfg.Sync.Interval)
	assert.Equal(t, 1000, cfg.Sync.Limit)
	assert.Equal(t, ModeManual, cfg.Sync.Mode)
	assert.True(t, cfg.Sync.Frontmatter)
	assert.False(t, cfg.Sync.UpdateChanged)
	assert.Equal(t, "ollama", cfg.AI.Provider)
	assert.Equal(t, "en", cfg.AI.Language)
	assert.Equal(t, time.Second, cfg.AI.RetryDelay)
	assert.Equal(t, 4, cfg.AI.DigestWeeks)

	loc, err := cfg.Sync.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
memos:
  url: https://memos.example.com/api/v1
  token: from-file
`)
	t.Setenv("MEMOSYNC_MEMOS_TOKEN", "from-env")
	t.Setenv("MEMOSYNC_SYNC_LIMIT", "25")
	t.Setenv("MEMOSYNC_SYNC_UPDATE_CHANGED", "true")

	cfg, _, err := Load(loadOpts(t, path))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Memos.Token)
	assert.Equal(t, 25, cfg.Sync.Limit)
	assert.True(t, cfg.Sync.UpdateChanged)
}

func TestLoad_DotEnv(t *testing.T) {
	path := writeConfig(t, "memos:\n  url: https://memos.example.com/api/v1\n")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MEMOSYNC_MEMOS_TOKEN=dotenv-token\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("MEMOSYNC_MEMOS_TOKEN") })

	cfg, _, err := Load(LoadOptions{File: path, EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "dotenv-token", cfg.Memos.Token)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, _, err := Load(loadOpts(t, filepath.Join(t.TempDir(), "nope.yaml")))
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Defaults()
		c.Memos.URL = "https://memos.example.com/api/v1"
		c.Memos.Token = "secret"
		return c
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing token", func(c *Config) { c.Memos.Token = "" }, "memos.token: is required"},
		{"missing url", func(c *Config) { c.Memos.URL = "" }, "memos.url: is required"},
		{"url without api path", func(c *Config) { c.Memos.URL = "https://memos.example.com" }, "/api/v1"},
		{"page size", func(c *Config) { c.Memos.PageSize = 0 }, "memos.page_size: must be at least 1"},
		{"mode", func(c *Config) { c.Sync.Mode = "hourly" }, "sync.mode: must be one of"},
		{"interval", func(c *Config) { c.Sync.Interval = time.Second }, "sync.interval"},
		{"timezone", func(c *Config) { c.Sync.Timezone = "Mars/Olympus" }, "sync.timezone"},
		{"provider", func(c *Config) { c.AI.Provider = "hal" }, "ai.provider: must be one of"},
		{"key required", func(c *Config) { c.AI.Enabled = true; c.AI.Provider = "claude" }, "ai.api_key: required by provider claude"},
		{"digest weeks", func(c *Config) { c.AI.DigestWeeks = 0 }, "ai.digest_weeks: must be at least 1"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			require.ErrorIs(t, err, core.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger_FileSink(t *testing.T) {
	file := filepath.Join(t.TempDir(), "memosync.log")
	logger, closer := NewLogger(LogConfig{Level: "debug", File: file, MaxSizeMB: 1}, &discard{})
	logger.Debug("hello", "memo", "memos/1")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello memo=memos/1")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("debug").String())
	assert.Equal(t, "WARN", ParseLevel("warning").String())
	assert.Equal(t, "INFO", ParseLevel("bogus").String())
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }
