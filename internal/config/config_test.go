package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"DB_HOST", "DB_PORT", "DB_NAME", "DB_SSLMODE", "DB_MAX_OPEN_CONNS",
		"DB_CONN_MAX_LIFETIME", "SERVER_PORT", "DATA_DIR", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "./wx_data", cfg.Ingestion.DataDir)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "weather_prod")
	t.Setenv("DB_CONN_MAX_LIFETIME", "1h")
	t.Setenv("DATA_DIR", "/srv/wx_data")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "weather_prod", cfg.Database.Database)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "/srv/wx_data", cfg.Ingestion.DataDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Database.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg.Database.Port = 5432
	cfg.Database.Database = ""
	assert.Error(t, cfg.Validate())
}
