package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 15*time.Minute, cfg.Alarm.CoarseWindow)
	assert.True(t, cfg.Alarm.AllowExact)
	assert.Zero(t, cfg.Reconcile.Interval)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "postgres://taskreminder:@localhost:5432/taskreminder?sslmode=disable", cfg.Database.URL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "7")
	t.Setenv("RECONCILE_INTERVAL", "30s")
	t.Setenv("ALARM_ALLOW_EXACT", "false")
	t.Setenv("REDIS_URL", "redis://cache:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, 7*time.Second, cfg.Context.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.Reconcile.Interval)
	assert.False(t, cfg.Alarm.AllowExact)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "storage_driver: postgres\ndatabase_url: postgres://u:p@db:5432/app\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://u:p@db:5432/app", cfg.Database.URL)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported STORAGE_DRIVER")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
