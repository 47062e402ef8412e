package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnvExpansion(t *testing.T) {
	t.Setenv("KDS_API_TOKEN", "secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
remote:
  base_url: "https://api.example.com/"
  headers:
    Authorization: "Bearer ${KDS_API_TOKEN}"
database:
  driver: sqlite
  dsn: "file:kds.db"
cache:
  backend: memory
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "Bearer secret", cfg.Remote.Headers["Authorization"])
	assert.Equal(t, 100, cfg.Remote.PageSize)
	assert.Zero(t, cfg.Remote.Timeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 3, cfg.Linking.ConfirmAttempts)
	assert.Equal(t, 300*time.Millisecond, cfg.Linking.ConfirmDelay)
	assert.Equal(t, time.Minute, cfg.Prefetch.Interval)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
