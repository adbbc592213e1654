package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahems/SportsLeague/pkg/config"
)

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://sportsleague.azure-api.net/api/GetProducts", cfg.productsURL())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "bad scheme", modify: func(c *Config) { c.BaseURL = "ftp://example.com/api/" }, wantErr: "scheme"},
		{name: "no host", modify: func(c *Config) { c.BaseURL = "https:///api/" }, wantErr: "no host"},
		{name: "negative timeout", modify: func(c *Config) { c.Timeout = -time.Second }, wantErr: "timeout"},
		{name: "negative threshold", modify: func(c *Config) { c.BreakerFailures = -1 }, wantErr: "thresholds"},
		{name: "negative cooldown", modify: func(c *Config) { c.BreakerCooldown = -time.Second }, wantErr: "breaker_cooldown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Validate_FillsZeroValues(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultBreakerFailures, cfg.BreakerFailures)
	assert.Equal(t, DefaultBreakerSuccesses, cfg.BreakerSuccesses)
	assert.Equal(t, DefaultBreakerCooldown, cfg.BreakerCooldown)
}

func TestConfig_ProductsURL(t *testing.T) {
	for _, base := range []string{"https://apim.example.com/api", "https://apim.example.com/api/"} {
		cfg := Config{BaseURL: base}
		assert.Equal(t, "https://apim.example.com/api/GetProducts", cfg.productsURL(), base)
	}
}

func TestConfig_LoadsFromEnvironment(t *testing.T) {
	env := map[string]string{
		"CATALOG_BASE_URL":         "https://apim.internal/api/",
		"CATALOG_SUBSCRIPTION_KEY": "s3cret",
		"CATALOG_BREAKER_FAILURES": "3",
	}
	var wrapper struct {
		Catalog Config `env:"CATALOG"`
	}
	err := config.New().
		WithLookup(func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}).
		Load(&wrapper)
	require.NoError(t, err)

	assert.Equal(t, "https://apim.internal/api/", wrapper.Catalog.BaseURL)
	assert.Equal(t, "s3cret", wrapper.Catalog.SubscriptionKey.Value())
	assert.Equal(t, 3, wrapper.Catalog.BreakerFailures)
	assert.Equal(t, 30*time.Second, wrapper.Catalog.BreakerCooldown)
	assert.NotContains(t, wrapper.Catalog.SubscriptionKey.String(), "s3cret")
}
