package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "tongyi", cfg.Provider)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: zhipu
workers: 8
outputDir: /tmp/out
cache:
  backend: redis
  redisAddr: redis:6379
server:
  addr: ":9000"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "zhipu", cfg.Provider)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	// 未覆盖的字段保持缺省
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "local", cfg.Storage.Type)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: openai\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
