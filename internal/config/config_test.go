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

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.Equal(t, "data/globaldex.db", cfg.DBPath)
	assert.Equal(t, 5*time.Second, cfg.DBBusyTimeout)
	assert.Equal(t, 1998, cfg.MaxSpecies)
	assert.Equal(t, "Global-Dex-Admin", cfg.AdminUserAgent)

	assert.Equal(t, QueueConfig{QueueSize: 500, Workers: 1, Timeout: 60 * time.Second, ImmediateAck: true}, cfg.Register)
	assert.Equal(t, QueueConfig{QueueSize: 500, Workers: 1, Timeout: 60 * time.Second, ImmediateAck: false}, cfg.Capture)
	assert.Equal(t, 60*time.Second, cfg.UncaptureTimeout)
	assert.Equal(t, time.Minute, cfg.MaintenanceInterval)
	assert.Equal(t, time.Hour, cfg.CheckpointInterval)
	assert.Equal(t, "auto", cfg.Backup.Region)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("GLOBALDEX_HTTP_PORT", "9090")
	t.Setenv("GLOBALDEX_STORAGE", " Memory ")
	t.Setenv("GLOBALDEX_REGISTER_IMMEDIATE_ACK", "false")
	t.Setenv("GLOBALDEX_CAPTURE_IMMEDIATE_ACK", "true")
	t.Setenv("GLOBALDEX_CAPTURE_QUEUE_SIZE", "3")
	t.Setenv("GLOBALDEX_CAPTURE_WORKERS", "0")
	t.Setenv("GLOBALDEX_CAPTURE_TIMEOUT", "250ms")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.False(t, cfg.Register.ImmediateAck)
	assert.True(t, cfg.Capture.ImmediateAck)
	assert.Equal(t, 3, cfg.Capture.QueueSize)
	assert.Equal(t, 1, cfg.Capture.Workers, "workers clamp to at least one")
	assert.Equal(t, 250*time.Millisecond, cfg.Capture.Timeout)
}

func TestParseInvalid(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("GLOBALDEX_CAPTURE_TIMEOUT", "soon")
		_, err := Parse()
		assert.ErrorContains(t, err, "parse env")
	})

	t.Run("unknown storage", func(t *testing.T) {
		t.Setenv("GLOBALDEX_STORAGE", "postgres")
		_, err := Parse()
		assert.ErrorContains(t, err, "STORAGE")
	})

	t.Run("redis without url", func(t *testing.T) {
		t.Setenv("GLOBALDEX_STORAGE", "redis")
		_, err := Parse()
		assert.ErrorContains(t, err, "REDIS_URL")
	})
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GLOBALDEX_MAX_SPECIES=151\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("GLOBALDEX_MAX_SPECIES") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 151, cfg.MaxSpecies)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{LogLevel: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "WARN"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "loud"}.SlogLevel())
}

func TestLoadAdmin(t *testing.T) {
	t.Setenv("GLOBALDEX_ADMIN_SERVER", "http://dex.example:9000")
	t.Setenv("GLOBALDEX_BACKUP_BUCKET", "dex-backups")

	cfg, err := LoadAdmin(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "http://dex.example:9000", cfg.ServerURL)
	assert.Equal(t, "Global-Dex-Admin", cfg.AdminUserAgent)
	assert.Equal(t, "data/globaldex.db", cfg.DBPath)
	assert.Equal(t, "dex-backups", cfg.Backup.Bucket)
	assert.Equal(t, "auto", cfg.Backup.Region)
}
