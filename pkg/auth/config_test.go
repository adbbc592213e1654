package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

func completeConfig() ValidatorConfig {
	cfg := DefaultValidatorConfig()
	cfg.TenantName = testTenantName
	cfg.TenantID = testTenantID
	cfg.Audience = testAudience
	cfg.ClientID = testClientID
	return cfg
}

func TestValidatorConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*ValidatorConfig)
		code   sserr.Code
	}{
		{"complete", func(*ValidatorConfig) {}, ""},
		{"missing tenant name", func(c *ValidatorConfig) { c.TenantName = "" }, sserr.CodeValidationRequired},
		{"blank tenant id", func(c *ValidatorConfig) { c.TenantID = "  " }, sserr.CodeValidationRequired},
		{"missing audience", func(c *ValidatorConfig) { c.Audience = "" }, sserr.CodeValidationRequired},
		{"missing client id", func(c *ValidatorConfig) { c.ClientID = "" }, sserr.CodeValidationRequired},
		{"template without placeholder", func(c *ValidatorConfig) { c.AuthorityTemplate = "https://idp.example.com" }, sserr.CodeValidation},
		{"template with two placeholders", func(c *ValidatorConfig) { c.AuthorityTemplate = "https://%s/%s" }, sserr.CodeValidation},
		{"authority url overrides template", func(c *ValidatorConfig) {
			c.AuthorityTemplate = ""
			c.AuthorityURL = "https://idp.example.com/tenant/v2.0"
		}, ""},
		{"relative authority url", func(c *ValidatorConfig) { c.AuthorityURL = "/tenant/v2.0" }, sserr.CodeValidation},
		{"non-http authority url", func(c *ValidatorConfig) { c.AuthorityURL = "ftp://idp.example.com" }, sserr.CodeValidation},
		{"negative skew", func(c *ValidatorConfig) { c.ClockSkew = -time.Second }, sserr.CodeValidation},
		{"zero skew", func(c *ValidatorConfig) { c.ClockSkew = 0 }, ""},
		{"zero refresh interval", func(c *ValidatorConfig) { c.MetadataRefreshInterval = 0 }, sserr.CodeValidation},
		{"negative min refresh", func(c *ValidatorConfig) { c.MinRefreshInterval = -time.Second }, sserr.CodeValidation},
		{"zero fetch timeout", func(c *ValidatorConfig) { c.FetchTimeout = 0 }, sserr.CodeValidation},
		{"no algorithms", func(c *ValidatorConfig) { c.AllowedAlgorithms = nil }, sserr.CodeValidation},
		{"symmetric algorithm", func(c *ValidatorConfig) { c.AllowedAlgorithms = []string{"RS256", "HS256"} }, sserr.CodeValidation},
		{"restricted algorithms", func(c *ValidatorConfig) { c.AllowedAlgorithms = []string{"RS256"} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := completeConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, sserr.GetCode(err))
		})
	}
}

func TestValidatorConfig_Tenant(t *testing.T) {
	t.Parallel()

	cfg := completeConfig()
	assert.Equal(t, "contoso.onmicrosoft.com", cfg.Tenant())

	cfg.TenantName = "sports.example.com"
	assert.Equal(t, "sports.example.com", cfg.Tenant())
}

func TestValidatorConfig_Authority(t *testing.T) {
	t.Parallel()

	cfg := completeConfig()
	assert.Equal(t, "https://login.microsoftonline.com/contoso.onmicrosoft.com/v2.0", cfg.Authority())
	assert.Equal(t,
		"https://login.microsoftonline.com/contoso.onmicrosoft.com/v2.0/.well-known/openid-configuration",
		cfg.DiscoveryURL())

	cfg.AuthorityURL = "https://idp.example.com/contoso/"
	assert.Equal(t, "https://idp.example.com/contoso", cfg.Authority())
	assert.Equal(t, "https://idp.example.com/contoso/.well-known/openid-configuration", cfg.DiscoveryURL())
}

func TestValidatorConfig_AcceptedIssuers(t *testing.T) {
	t.Parallel()

	cfg := completeConfig()
	assert.Equal(t, []string{
		"https://login.microsoftonline.com/contoso.onmicrosoft.com/",
		"https://login.microsoftonline.com/contoso.onmicrosoft.com/v2.0",
		"https://login.windows.net/contoso.onmicrosoft.com/",
		"https://login.microsoft.com/contoso.onmicrosoft.com/",
		"https://sts.windows.net/" + testTenantID + "/",
	}, cfg.AcceptedIssuers())

	cfg.AdditionalIssuers = []string{"https://idp.example.com/contoso"}
	issuers := cfg.AcceptedIssuers()
	assert.Len(t, issuers, 6)
	assert.Equal(t, "https://idp.example.com/contoso", issuers[5])
}

func TestValidatorConfig_AcceptedAudiences(t *testing.T) {
	t.Parallel()

	cfg := completeConfig()
	assert.Equal(t, []string{testAudience, testClientID}, cfg.AcceptedAudiences())

	cfg.Audience = testClientID
	assert.Equal(t, []string{testClientID}, cfg.AcceptedAudiences(), "duplicates collapse")
}

func TestNewValidator_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := completeConfig()
	cfg.Audience = ""

	v, err := NewValidator(cfg)
	assert.Nil(t, v)
	assert.True(t, sserr.IsValidation(err))
}

func TestNewValidator_CopiesConfig(t *testing.T) {
	t.Parallel()

	cfg := completeConfig()
	v, err := NewValidator(cfg)
	require.NoError(t, err)

	cfg.AllowedAlgorithms[0] = "ES256"
	assert.Equal(t, "RS256", v.Config().AllowedAlgorithms[0])
}
