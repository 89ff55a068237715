// file: internal/config/config_test.go
// version: 2.0.0
// guid: b2c3d4e5-f6a7-8b9c-0d1e-2f3a4b5c6d7e

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "memory", cfg.Store.Type)
	assert.InDelta(t, 0.70, cfg.Quota.SoftCeiling, 1e-9)
	assert.InDelta(t, 0.85, cfg.Quota.HardCeiling, 1e-9)
	assert.Equal(t, int64(1000), cfg.Quota.Limits["google_books"])
	assert.Equal(t, 12*time.Second, cfg.Orchestrator.ResolutionTimeout)
	assert.Equal(t, 10*time.Second, cfg.Orchestrator.CoverTimeout)
	assert.Equal(t, 15*time.Second, cfg.Orchestrator.LookupTimeout)
	assert.Equal(t, 60*time.Second, cfg.Orchestrator.FanOutTimeout)
	assert.Equal(t, 5*time.Second, cfg.Orchestrator.AvailabilityTimeout)
	assert.InDelta(t, 0.70, cfg.Orchestrator.ResolutionThreshold, 1e-9)
	assert.Equal(t, []string{"open-library", "google-books"}, cfg.Orchestrator.PriorityFor(provider.CapISBNResolution))
	assert.Equal(t, 60, cfg.RateLimits.PerMinute["google-books"])
	assert.Equal(t, "read-write", cfg.Context.CachePolicy)
	assert.Equal(t, "enforce", cfg.Context.RateLimitPolicy)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Providers.Enabled("openai"))
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bookmeta.yaml", `
store:
  type: sqlite3
  path: /tmp/quota.db
quota:
  soft_ceiling: 0.5
  hard_ceiling: 0.9
  limits:
    openai: 50
orchestrator:
  cover_timeout: 3s
  priorities:
    cover_images: [google-books]
providers:
  disabled: [OpenAI]
`)
	v := viper.New()
	Configure(v, path)
	require.NoError(t, ReadConfig(v))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "/tmp/quota.db", cfg.Store.Path)
	assert.InDelta(t, 0.5, cfg.Quota.SoftCeiling, 1e-9)
	assert.Equal(t, int64(50), cfg.Quota.Limits["openai"])
	assert.Equal(t, 3*time.Second, cfg.Orchestrator.CoverTimeout)
	assert.Equal(t, []string{"google-books"}, cfg.Orchestrator.PriorityFor(provider.CapCoverImages))
	assert.False(t, cfg.Providers.Enabled("openai"))
	assert.True(t, cfg.Providers.Enabled("open-library"))
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BOOKMETA_STORE_TYPE", "pebble")
	t.Setenv("BOOKMETA_STORE_PATH", "/var/lib/bookmeta")
	t.Setenv("BOOKMETA_LOGGING_LEVEL", "debug")

	v := viper.New()
	Configure(v, "")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "pebble", cfg.Store.Type)
	assert.Equal(t, "/var/lib/bookmeta", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestReadConfigMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	v := viper.New()
	Configure(v, "")
	assert.NoError(t, ReadConfig(v))

	v = viper.New()
	Configure(v, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, ReadConfig(v))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown store", func(c *Config) { c.Store.Type = "redis" }, "unknown store type"},
		{"soft above hard", func(c *Config) { c.Quota.SoftCeiling = 0.9 }, "ceilings"},
		{"hard above one", func(c *Config) { c.Quota.HardCeiling = 1.5 }, "ceilings"},
		{"zero soft", func(c *Config) { c.Quota.SoftCeiling = 0 }, "ceilings"},
		{"negative limit", func(c *Config) { c.Quota.Limits = map[string]int64{"x": -1} }, "negative"},
		{"threshold", func(c *Config) { c.Orchestrator.DedupThreshold = 0 }, "dedup_threshold"},
		{"timeout", func(c *Config) { c.Orchestrator.CoverTimeout = 0 }, "cover_timeout"},
		{"capability", func(c *Config) { c.Orchestrator.Priorities = map[string][]string{"teleport": nil} }, "unknown capability"},
		{"cache policy", func(c *Config) { c.Context.CachePolicy = "sometimes" }, "cache_policy"},
		{"rate limit policy", func(c *Config) { c.Context.RateLimitPolicy = "strict" }, "rate_limit_policy"},
		{"context timeout", func(c *Config) { c.Context.Timeout = -time.Second }, "context.timeout"},
	}
	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "BOOKMETA_TEST_FROM_FILE=loaded\nBOOKMETA_TEST_EXISTING=file\n")
	t.Setenv("BOOKMETA_TEST_EXISTING", "process")
	t.Cleanup(func() { os.Unsetenv("BOOKMETA_TEST_FROM_FILE") })

	require.NoError(t, LoadEnvFile(path, filepath.Join(dir, "absent.env")))
	assert.Equal(t, "loaded", os.Getenv("BOOKMETA_TEST_FROM_FILE"))
	assert.Equal(t, "process", os.Getenv("BOOKMETA_TEST_EXISTING"))

	bad := writeFile(t, dir, "bad.env", "BOOKMETA-BAD=1\n")
	assert.Error(t, LoadEnvFile(bad))
}

func TestInitConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Chdir(t.TempDir())

	path := writeFile(t, t.TempDir(), "bookmeta.yaml", "store:\n  type: pebble\n  path: ./quota\n")
	require.NoError(t, InitConfig(path))
	assert.Equal(t, "pebble", AppConfig.Store.Type)
	assert.Equal(t, "pebble", viper.GetString("store.type"))
}

func TestWatchAppliesValidChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bookmeta.yaml", "quota:\n  limits:\n    openai: 10\n")

	v := viper.New()
	Configure(v, path)
	require.NoError(t, ReadConfig(v))

	changes := make(chan Config, 8)
	Watch(v, zap.NewNop(), func(cfg Config) {
		select {
		case changes <- cfg:
		default:
		}
	})

	// Invalid edits are ignored; the following valid edit is delivered.
	require.NoError(t, os.WriteFile(path, []byte("quota:\n  soft_ceiling: 2\n"), 0o600))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("quota:\n  limits:\n    openai: 25\n"), 0o600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.Quota.Limits["openai"] == 25 {
				return
			}
		case <-deadline:
			t.Fatal("config change was not delivered")
		}
	}
}
