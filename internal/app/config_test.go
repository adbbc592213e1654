package app

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahems/SportsLeague/internal/testutil"
	"github.com/ahems/SportsLeague/internal/testutil/fixtures"
	sserr "github.com/ahems/SportsLeague/pkg/errors"
	"github.com/ahems/SportsLeague/pkg/store"
)

func tenantEnv() map[string]string {
	return map[string]string{
		"SPORTSLEAGUE_AUTH_TENANT_NAME": fixtures.TenantName,
		"SPORTSLEAGUE_AUTH_TENANT_ID":   fixtures.TenantID,
		"SPORTSLEAGUE_AUTH_AUDIENCE":    fixtures.Audience,
		"SPORTSLEAGUE_AUTH_CLIENT_ID":   fixtures.ClientID,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", testutil.EnvLookup(tenantEnv()))
	require.NoError(t, err)

	assert.Equal(t, fixtures.TenantName, cfg.Auth.TenantName)
	assert.Equal(t, 5*time.Minute, cfg.Auth.ClockSkew)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, LogFormatJSON, cfg.Log.Format)
	assert.Equal(t, store.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "https://sportsleague.azure-api.net/api/", cfg.Catalog.BaseURL)
}

func TestLoadConfig_Environment(t *testing.T) {
	env := tenantEnv()
	env["SPORTSLEAGUE_HTTP_ADDR"] = "127.0.0.1:9090"
	env["SPORTSLEAGUE_LOG_FORMAT"] = "text"
	env["SPORTSLEAGUE_LOG_LEVEL"] = "debug"
	env["SPORTSLEAGUE_STORE_BACKEND"] = "redis"
	env["SPORTSLEAGUE_STORE_REDIS_HOST"] = "cache.internal"
	env["SPORTSLEAGUE_CATALOG_SUBSCRIPTION_KEY"] = fixtures.SubscriptionKey

	cfg, err := LoadConfig("", testutil.EnvLookup(env))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr)
	assert.Equal(t, LogFormatText, cfg.Log.Format)
	assert.Equal(t, store.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache.internal", cfg.Store.Redis.Host)
	assert.Equal(t, fixtures.SubscriptionKey, cfg.Catalog.SubscriptionKey.Value())
	assert.NotContains(t, cfg.Catalog.SubscriptionKey.String(), fixtures.SubscriptionKey)
}

func TestLoadConfig_File(t *testing.T) {
	path := testutil.TempConfigFile(t, `
http:
  addr: ":7070"
  write_timeout: 1m
log:
  level: warn
store:
  backend: postgres
  table: league_documents
`, ".yaml")

	env := tenantEnv()
	env["SPORTSLEAGUE_HTTP_ADDR"] = ":6060"

	cfg, err := LoadConfig(path, testutil.EnvLookup(env))
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.HTTP.Addr, "environment wins over the file")
	assert.Equal(t, time.Minute, cfg.HTTP.WriteTimeout)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, store.BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "league_documents", cfg.Store.Table)
}

func TestLoadConfig_MissingTenant(t *testing.T) {
	env := tenantEnv()
	delete(env, "SPORTSLEAGUE_AUTH_TENANT_NAME")

	_, err := LoadConfig("", testutil.EnvLookup(env))
	require.Error(t, err)
	assert.True(t, sserr.IsValidation(err))
}

func TestLoadConfig_Rejections(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad log level", "SPORTSLEAGUE_LOG_LEVEL", "loud"},
		{"bad log format", "SPORTSLEAGUE_LOG_FORMAT", "xml"},
		{"negative timeout", "SPORTSLEAGUE_HTTP_READ_TIMEOUT", "-1s"},
		{"blank addr", "SPORTSLEAGUE_HTTP_ADDR", " "},
		{"unknown backend", "SPORTSLEAGUE_STORE_BACKEND", "cosmos"},
		{"catalog without scheme", "SPORTSLEAGUE_CATALOG_BASE_URL", "sportsleague.azure-api.net/api"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := tenantEnv()
			env[tt.key] = tt.val
			_, err := LoadConfig("", testutil.EnvLookup(env))
			assert.Error(t, err)
		})
	}
}

func TestLogConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info+2", slog.LevelInfo + 2},
	}
	for _, tt := range tests {
		c := LogConfig{Level: tt.in}
		got, err := c.SlogLevel()
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
