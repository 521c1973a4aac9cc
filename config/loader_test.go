package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "openai", cfg.Formatter.Provider)
	assert.Equal(t, 30, cfg.Memory.MsgThreshold)
	assert.Equal(t, 64000, cfg.Memory.MaxTokens)
	assert.InDelta(t, 0.75, cfg.Memory.TokenRatio, 1e-9)
	assert.Equal(t, "none", cfg.Persistence.Backend)
	assert.Equal(t, "agentcore", cfg.Metrics.Namespace)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log:
  level: debug
  format: console
formatter:
  provider: dashscope
  multi_agent: true
memory:
  msg_threshold: 50
  plan_tool_names: [plan, note]
persistence:
  backend: redis
  redis:
    addr: redis.internal:6379
    ttl: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "dashscope", cfg.Formatter.Provider)
	assert.True(t, cfg.Formatter.MultiAgent)
	assert.Equal(t, 50, cfg.Memory.MsgThreshold)
	assert.Equal(t, []string{"plan", "note"}, cfg.Memory.PlanToolNames)
	assert.Equal(t, "redis", cfg.Persistence.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Persistence.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Persistence.Redis.TTL)

	// Untouched sections keep their defaults.
	assert.Equal(t, 64000, cfg.Memory.MaxTokens)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AGENTCORE_LOG_LEVEL", "warn")
	t.Setenv("AGENTCORE_MEMORY_MSG_THRESHOLD", "12")
	t.Setenv("AGENTCORE_MEMORY_TOKEN_RATIO", "0.5")
	t.Setenv("AGENTCORE_FORMATTER_MULTI_AGENT", "true")
	t.Setenv("AGENTCORE_MEMORY_PLAN_TOOL_NAMES", "plan, scratchpad")
	t.Setenv("AGENTCORE_PERSISTENCE_DATABASE_CONN_MAX_LIFETIME", "30m")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 12, cfg.Memory.MsgThreshold)
	assert.InDelta(t, 0.5, cfg.Memory.TokenRatio, 1e-9)
	assert.True(t, cfg.Formatter.MultiAgent)
	assert.Equal(t, []string{"plan", "scratchpad"}, cfg.Memory.PlanToolNames)
	assert.Equal(t, 30*time.Minute, cfg.Persistence.Database.ConnMaxLifetime)
}

func TestEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644))
	t.Setenv("AGENTCORE_LOG_LEVEL", "error")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestValidation(t *testing.T) {
	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("AGENTCORE_LOG_LEVEL", "loud")
		_, err := NewLoader().Load()
		assert.Error(t, err)
	})

	t.Run("bad provider", func(t *testing.T) {
		t.Setenv("AGENTCORE_FORMATTER_PROVIDER", "telegraph")
		_, err := NewLoader().Load()
		assert.Error(t, err)
	})

	t.Run("bad token ratio", func(t *testing.T) {
		t.Setenv("AGENTCORE_MEMORY_TOKEN_RATIO", "1.5")
		_, err := NewLoader().Load()
		assert.Error(t, err)
	})

	t.Run("bad backend", func(t *testing.T) {
		t.Setenv("AGENTCORE_PERSISTENCE_BACKEND", "tape")
		_, err := NewLoader().Load()
		assert.Error(t, err)
	})

	t.Run("custom validator", func(t *testing.T) {
		_, err := NewLoader().WithValidator(func(c *Config) error {
			if c.Memory.KeepLast < 20 {
				return assert.AnError
			}
			return nil
		}).Load()
		assert.Error(t, err)
	})
}

func TestBuildLogger(t *testing.T) {
	logger, err := LogConfig{Level: "debug", Format: "console", OutputPaths: []string{"stdout"}}.BuildLogger()
	require.NoError(t, err)
	logger.Debug("configured")

	_, err = LogConfig{Level: "shout"}.BuildLogger()
	assert.Error(t, err)
}
