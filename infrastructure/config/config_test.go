package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverSqlite, cfg.Database.Driver)
	assert.Equal(t, LogDriverGorm, cfg.Storage.LogDriver)
	assert.Equal(t, 0.85, cfg.Proctoring.PlagiarismThreshold)
	assert.Equal(t, 50.0, cfg.Proctoring.PlagiarismPenalty)
	assert.Equal(t, 5, cfg.Proctoring.FlagLogThreshold)
	assert.Equal(t, 30*time.Second, cfg.Proctoring.LookupCacheTTL)
	assert.Equal(t, 6*time.Hour, cfg.Proctoring.OrphanCleanupInterval)
}

func TestLoadConfig_Development(t *testing.T) {
	v, err := LoadConfig("config-development", "yml")
	require.NoError(t, err)

	cfg, err := ParseConfig(v)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "integrity-dev.db", cfg.Database.Sqlite.Path)
	assert.Equal(t, 2, cfg.Proctoring.FinalizeWorkers)
	assert.Equal(t, time.Hour, cfg.Proctoring.OrphanCleanupInterval)
	assert.Equal(t, "http://localhost:5173, http://localhost:4173", cfg.Cors.AllowOrigins)
	assert.Equal(t, time.Minute, cfg.Cors.MaxAge)
	// unset keys fall back to defaults
	assert.Equal(t, 500, cfg.Proctoring.MaxBatchSize)
	assert.Equal(t, "GET, POST, PUT, OPTIONS", cfg.Cors.AllowMethods)
	assert.True(t, cfg.Cors.AllowCredentials)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("PROCTORING_PLAGIARISMTHRESHOLD", "0.9")
	t.Setenv("DATABASE_POSTGRES_HOST", "db.internal")

	v, err := LoadConfig("config-development", "yml")
	require.NoError(t, err)

	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Proctoring.PlagiarismThreshold)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing port", mutate: func(c *Config) { c.Server.InternalPort = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "oracle" }},
		{name: "postgres without host", mutate: func(c *Config) { c.Database.Driver = DriverPostgres }},
		{name: "redis logs without host", mutate: func(c *Config) { c.Storage.LogDriver = LogDriverRedis }},
		{name: "unknown log driver", mutate: func(c *Config) { c.Storage.LogDriver = "kafka" }},
		{name: "threshold above one", mutate: func(c *Config) { c.Proctoring.PlagiarismThreshold = 1.5 }},
		{name: "negative penalty", mutate: func(c *Config) { c.Proctoring.PlagiarismPenalty = -1 }},
		{name: "no workers", mutate: func(c *Config) { c.Proctoring.FinalizeWorkers = 0 }},
		{name: "no batch size", mutate: func(c *Config) { c.Proctoring.MaxBatchSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
