package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/weave/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, config.DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 2*time.Minute, cfg.Agent.Timeout)
	assert.Equal(t, 16*1024, cfg.Input.MaxSize)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
store:
  driver: redis
  redis:
    addr: cache:6379
    ttl: 1h
log:
  format: json
`), 0o644))

	t.Setenv("WEAVE_SERVER_PORT", "9191")
	t.Setenv("WEAVE_INPUT_MAX_SIZE", "2048")
	t.Setenv("WEAVE_STORE_POSTGRES_MAX_CONNS", "4")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, config.DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "cache:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2048, cfg.Input.MaxSize)
	assert.Equal(t, int32(4), cfg.Store.Postgres.MaxConns)
}

func TestLoad_DefaultFileAndDotenv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultFile), []byte("agent:\n  url: http://agent:3000\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WEAVE_SERVER_PRODUCTION=true\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("WEAVE_SERVER_PRODUCTION") })

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://agent:3000", cfg.Agent.URL)
	assert.True(t, cfg.Server.Production)
}

func TestLoad_Invalid(t *testing.T) {
	inTempDir(t)

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("WEAVE_STORE_DRIVER", "mongo")
		_, err := config.Load("")
		assert.ErrorContains(t, err, "unknown store driver")
	})

	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("WEAVE_STORE_DRIVER", "postgres")
		_, err := config.Load("")
		assert.ErrorContains(t, err, "store.postgres.url")
	})

	t.Run("two agents", func(t *testing.T) {
		t.Setenv("WEAVE_AGENT_URL", "http://localhost:9000")
		t.Setenv("WEAVE_AGENT_COMMAND", "agent.yaml")
		_, err := config.Load("")
		assert.ErrorContains(t, err, "mutually exclusive")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load("nope.yaml")
		assert.Error(t, err)
	})
}
