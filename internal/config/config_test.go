package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORAGE_DRIVER", StorageMemory)
	t.Setenv("DB_LOCK_TIMEOUT", "750ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, 750*time.Millisecond, cfg.Postgres.LockTimeout)
	assert.Equal(t, "events", cfg.RabbitMQ.Exchange)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, 2.0, cfg.Retry.Backoff)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
logger:
  level: debug
  format: text
storage:
  driver: postgres
postgres:
  host: db
  port: 6543
  database: events
stats:
  url: http://stats:9090
`), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, slog.LevelDebug, cfg.Logger.SlogLevel())
	assert.Equal(t, "http://stats:9090", cfg.Stats.URL)
	assert.Contains(t, cfg.Postgres.DSN(), "host=db port=6543")
	assert.Contains(t, cfg.Postgres.DSN(), "dbname=events")
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORAGE_DRIVER", "sqlite")

	_, err := Load()
	assert.Error(t, err)
}
