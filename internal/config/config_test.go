package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.6, cfg.Matching.DistanceThreshold)
	assert.Equal(t, 128, cfg.Matching.EmbeddingDim)
	assert.Equal(t, 60*time.Second, cfg.Dedup.Window("ppe"))
	assert.Equal(t, time.Hour, cfg.Dedup.Retention)
	assert.Equal(t, 30*time.Second, cfg.Attendance.MergeInterval)
	assert.Equal(t, 60*time.Second, cfg.Notify.RecencyWindow)
	assert.Equal(t, 10*time.Second, cfg.Notify.DedupWindow)
	assert.Equal(t, 4, cfg.Worker.Count)
}

func TestWindowFallsBackToDefault(t *testing.T) {
	path := writeConfig(t, `
dedup:
  windows:
    default: 45s
    access: 90s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Dedup.Window("access"))
	assert.Equal(t, 45*time.Second, cfg.Dedup.Window("attendance"))
}

func TestLoadRejectsWindowLongerThanRetention(t *testing.T) {
	path := writeConfig(t, `
dedup:
  windows:
    ppe: 2h
  retention: 1h
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention")
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	path := writeConfig(t, `
attendance:
  timezone: Mars/Olympus
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SW_SERVER_PORT", "9999")
	t.Setenv("SW_DB_HOST", "db.internal")
	t.Setenv("SW_NATS_URL", "nats://broker:4222")

	path := writeConfig(t, `
server:
  port: 8080
database:
  host: localhost
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "h", Port: 5433, Name: "n", User: "u", Password: "p"}
	assert.Equal(t, "postgres://u:p@h:5433/n?sslmode=disable", db.DSN())
}
