package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "planor.db", cfg.DBPath)
	assert.Equal(t, 3, cfg.TxMaxAttempts)
	assert.True(t, cfg.Development())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("DB_PATH", "/data/planor.db")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "/data/planor.db", cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.Development())
}

func TestLoadWithPrefix(t *testing.T) {
	t.Setenv("PLANOR_LISTEN_ADDR", ":7070")

	cfg, err := LoadWithPrefix("PLANOR")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.ListenAddr)
}

func TestCORSOriginList(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.CORSOriginList())

	cfg.CORSOrigins = "https://app.example.com, https://admin.example.com ,"
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOriginList())
}
