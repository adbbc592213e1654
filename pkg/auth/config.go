package auth

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

// HTTPClient fetches the discovery document and key set. *http.Client
// satisfies it; tests inject clients pointed at httptest servers.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultAuthorityTemplate is the Microsoft identity platform v2.0
// authority. The single %s receives [ValidatorConfig.Tenant].
const DefaultAuthorityTemplate = "https://login.microsoftonline.com/%s/v2.0"

// DefaultAllowedAlgorithms lists every asymmetric JWS algorithm the
// verifier supports. Symmetric (HS*) algorithms are never accepted.
var DefaultAllowedAlgorithms = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
}

// MaxTokenSize bounds the accepted length of a compact token.
const MaxTokenSize = 8192

// ValidatorConfig is the static configuration of a [Validator]. It is
// loaded once at startup (see pkg/config) and copied into the validator,
// so later changes to the caller's value have no effect.
//
// In the service configuration this struct is nested under the AUTH
// prefix, giving AUTH_TENANT_NAME, AUTH_TENANT_ID, AUTH_AUDIENCE and
// AUTH_CLIENT_ID as the required variables.
type ValidatorConfig struct {
	// TenantName is the directory name without the ".onmicrosoft.com"
	// suffix, e.g. "contoso".
	TenantName string `json:"tenant_name" yaml:"tenant_name" env:"TENANT_NAME" required:"true"`

	// TenantID is the directory GUID. Tokens from the v1 endpoint carry it
	// in their issuer.
	TenantID string `json:"tenant_id" yaml:"tenant_id" env:"TENANT_ID" required:"true"`

	// Audience is the application ID URI the API is registered under.
	Audience string `json:"audience" yaml:"audience" env:"AUDIENCE" required:"true"`

	// ClientID is the application (client) ID. Tokens may name it as
	// their audience instead of the ID URI.
	ClientID string `json:"client_id" yaml:"client_id" env:"CLIENT_ID" required:"true"`

	// AuthorityTemplate builds the authority from the tenant.
	AuthorityTemplate string `json:"authority_template" yaml:"authority_template" env:"AUTHORITY_TEMPLATE" envDefault:"https://login.microsoftonline.com/%s/v2.0"`

	// AuthorityURL overrides AuthorityTemplate entirely. Discovery is
	// fetched from AuthorityURL + "/.well-known/openid-configuration".
	AuthorityURL string `json:"authority_url,omitempty" yaml:"authority_url,omitempty" env:"AUTHORITY_URL"`

	// AdditionalIssuers are accepted alongside the five tenant-derived
	// issuers.
	AdditionalIssuers []string `json:"additional_issuers,omitempty" yaml:"additional_issuers,omitempty" env:"ADDITIONAL_ISSUERS"`

	// ClockSkew is tolerated on both ends of the validity window.
	ClockSkew time.Duration `json:"clock_skew" yaml:"clock_skew" env:"CLOCK_SKEW" envDefault:"5m"`

	// MetadataRefreshInterval is the age after which the cached discovery
	// document and key set are refetched.
	MetadataRefreshInterval time.Duration `json:"metadata_refresh_interval" yaml:"metadata_refresh_interval" env:"METADATA_REFRESH_INTERVAL" envDefault:"12h"`

	// MinRefreshInterval throttles refreshes forced by unknown key ids.
	// Zero lets every unknown key id trigger a refresh.
	MinRefreshInterval time.Duration `json:"min_refresh_interval" yaml:"min_refresh_interval" env:"MIN_REFRESH_INTERVAL"`

	// FetchTimeout bounds one discovery plus key set fetch.
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout" env:"FETCH_TIMEOUT" envDefault:"10s"`

	// AllowedAlgorithms restricts the accepted "alg" header values.
	AllowedAlgorithms []string `json:"allowed_algorithms" yaml:"allowed_algorithms" env:"ALLOWED_ALGORITHMS" envDefault:"RS256,RS384,RS512,PS256,PS384,PS512,ES256,ES384,ES512,EdDSA"`

	// HTTPClient is used for metadata fetches. When nil, an
	// otelhttp-instrumented client with FetchTimeout is built.
	HTTPClient HTTPClient `json:"-" yaml:"-"`
}

// DefaultValidatorConfig returns a configuration with every default
// applied and the four identity fields left for the caller.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		AuthorityTemplate:       DefaultAuthorityTemplate,
		ClockSkew:               5 * time.Minute,
		MetadataRefreshInterval: 12 * time.Hour,
		FetchTimeout:            10 * time.Second,
		AllowedAlgorithms:       slices.Clone(DefaultAllowedAlgorithms),
	}
}

// Validate reports the first problem that would make the validator
// unusable. Missing identity fields carry [sserr.CodeValidationRequired];
// everything else carries [sserr.CodeValidation].
func (c *ValidatorConfig) Validate() error {
	required := []struct{ name, value string }{
		{"TenantName", c.TenantName},
		{"TenantID", c.TenantID},
		{"Audience", c.Audience},
		{"ClientID", c.ClientID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return sserr.Newf(sserr.CodeValidationRequired, "auth: %s is required", r.name)
		}
	}

	if c.AuthorityURL == "" && strings.Count(c.AuthorityTemplate, "%s") != 1 {
		return sserr.New(sserr.CodeValidation,
			"auth: authority template must contain exactly one %s placeholder")
	}
	u, err := url.Parse(c.Authority())
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return sserr.Newf(sserr.CodeValidation, "auth: authority %q is not an absolute http(s) URL", c.Authority())
	}

	switch {
	case c.ClockSkew < 0:
		return sserr.New(sserr.CodeValidation, "auth: clock skew must be non-negative")
	case c.MetadataRefreshInterval <= 0:
		return sserr.New(sserr.CodeValidation, "auth: metadata refresh interval must be positive")
	case c.MinRefreshInterval < 0:
		return sserr.New(sserr.CodeValidation, "auth: minimum refresh interval must be non-negative")
	case c.FetchTimeout <= 0:
		return sserr.New(sserr.CodeValidation, "auth: fetch timeout must be positive")
	case len(c.AllowedAlgorithms) == 0:
		return sserr.New(sserr.CodeValidation, "auth: at least one signing algorithm must be allowed")
	}
	for _, alg := range c.AllowedAlgorithms {
		if !slices.Contains(DefaultAllowedAlgorithms, alg) {
			return sserr.Newf(sserr.CodeValidation,
				"auth: algorithm %q is not supported (allowed: %s)", alg, strings.Join(DefaultAllowedAlgorithms, ", "))
		}
	}
	return nil
}

// Tenant returns the fully qualified tenant domain. A TenantName that
// already contains a dot is used as is.
func (c *ValidatorConfig) Tenant() string {
	if strings.Contains(c.TenantName, ".") {
		return c.TenantName
	}
	return c.TenantName + ".onmicrosoft.com"
}

// Authority returns the OIDC authority base URL without a trailing slash.
func (c *ValidatorConfig) Authority() string {
	if c.AuthorityURL != "" {
		return strings.TrimRight(c.AuthorityURL, "/")
	}
	return strings.TrimRight(fmt.Sprintf(c.AuthorityTemplate, c.Tenant()), "/")
}

// DiscoveryURL returns the well-known OpenID configuration URL.
func (c *ValidatorConfig) DiscoveryURL() string {
	return c.Authority() + "/.well-known/openid-configuration"
}

// AcceptedIssuers returns the issuer values a token may carry: the v1
// and v2 formats of every Microsoft login host that has issued tokens
// for the tenant, then AdditionalIssuers.
func (c *ValidatorConfig) AcceptedIssuers() []string {
	tenant := c.Tenant()
	issuers := []string{
		"https://login.microsoftonline.com/" + tenant + "/",
		"https://login.microsoftonline.com/" + tenant + "/v2.0",
		"https://login.windows.net/" + tenant + "/",
		"https://login.microsoft.com/" + tenant + "/",
		"https://sts.windows.net/" + c.TenantID + "/",
	}
	return append(issuers, c.AdditionalIssuers...)
}

// AcceptedAudiences returns the audience values a token may carry.
func (c *ValidatorConfig) AcceptedAudiences() []string {
	auds := make([]string, 0, 2)
	for _, a := range []string{c.Audience, c.ClientID} {
		if a != "" && !slices.Contains(auds, a) {
			auds = append(auds, a)
		}
	}
	return auds
}

func (c *ValidatorConfig) allowedAlgorithms() []string {
	if len(c.AllowedAlgorithms) == 0 {
		return DefaultAllowedAlgorithms
	}
	return c.AllowedAlgorithms
}
