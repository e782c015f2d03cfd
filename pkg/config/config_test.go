package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
environment: test
upstream:
  portfolio_url: http://portfolio.local/api
  market_url: http://market.local/api
  forum_url: http://forum.local/api
  prediction_url: http://model.local
polling:
  symbols: [AAPL]
metrics:
  enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndExplicitFalse(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 3, c.Runner.MaxRetries)
	assert.Equal(t, time.Second, c.Runner.RetryDelay)
	assert.Equal(t, 5*time.Minute, c.Runner.CacheTTL)
	assert.Equal(t, 256, c.Runner.MaxKeyed)
	assert.Equal(t, 15*time.Second, c.Polling.QuotesInterval)
	assert.True(t, c.Preload.Concurrent)
	assert.False(t, c.Metrics.Enabled, "explicit false survives defaulting")
	assert.Equal(t, "localhost:6379", c.Cache.Redis.RedisAddr())
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "environment: test\n"))
	assert.ErrorContains(t, err, "is required")

	_, err = Load(writeConfig(t, minimalYAML+"preload:\n  priority: [nope]\n"))
	assert.ErrorContains(t, err, "unknown loader")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	env := map[string]string{
		"SYMBOLS":            "msft, nvda",
		"PREDICTION_API_URL": "http://other.local",
		"REDIS_ADDR":         "redis:6380",
		"LOG_LEVEL":          "debug",
		"PORT":               "9090",
	}
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, []string{"msft", "nvda"}, c.Polling.Symbols)
	assert.Equal(t, "http://other.local", c.Upstream.PredictionURL)
	assert.True(t, c.Cache.Redis.Enabled)
	assert.Equal(t, "redis:6380", c.Cache.Redis.RedisAddr())
	assert.Equal(t, "debug", c.Logger.Level)
	assert.Equal(t, 9090, c.Server.Port)
	require.NoError(t, c.Validate())
}

func TestLoadWithEnv_EnvSatisfiesRequired(t *testing.T) {
	body := `
environment: test
upstream:
  portfolio_url: http://portfolio.local/api
  market_url: http://market.local/api
  forum_url: http://forum.local/api
polling:
  symbols: [AAPL]
`
	t.Setenv("PREDICTION_API_URL", "http://model.local")
	c, err := LoadWithEnv(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "http://model.local", c.Upstream.PredictionURL)
}
