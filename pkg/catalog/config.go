package catalog

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ahems/SportsLeague/pkg/config"
)

// Default configuration values.
const (
	DefaultBaseURL          = "https://sportsleague.azure-api.net/api/"
	DefaultTimeout          = 10 * time.Second
	DefaultBreakerFailures  = 5
	DefaultBreakerSuccesses = 1
	DefaultBreakerCooldown  = 30 * time.Second

	// maxResponseBytes bounds the product list read from the upstream.
	maxResponseBytes = 4 << 20
)

// HTTPClient sends catalog requests. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the catalog client. In the service it sits under
// CATALOG, so the key is read from CATALOG_SUBSCRIPTION_KEY.
type Config struct {
	// BaseURL is the API Management base; "GetProducts" is resolved
	// against it.
	BaseURL string `json:"base_url" yaml:"base_url" env:"BASE_URL" envDefault:"https://sportsleague.azure-api.net/api/"`

	// SubscriptionKey is sent as Ocp-Apim-Subscription-Key. The service
	// starts without it, but every catalog call then fails.
	SubscriptionKey config.Secret `json:"subscription_key,omitempty" yaml:"subscription_key,omitempty" env:"SUBSCRIPTION_KEY"`

	Timeout time.Duration `json:"timeout" yaml:"timeout" env:"TIMEOUT" envDefault:"10s"`

	// The breaker opens after BreakerFailures consecutive upstream
	// failures and tries again after BreakerCooldown.
	BreakerFailures  int           `json:"breaker_failures" yaml:"breaker_failures" env:"BREAKER_FAILURES" envDefault:"5"`
	BreakerSuccesses int           `json:"breaker_successes" yaml:"breaker_successes" env:"BREAKER_SUCCESSES" envDefault:"1"`
	BreakerCooldown  time.Duration `json:"breaker_cooldown" yaml:"breaker_cooldown" env:"BREAKER_COOLDOWN" envDefault:"30s"`

	// HTTPClient overrides the default instrumented client, which also
	// forwards the caller's bearer token.
	HTTPClient HTTPClient `json:"-" yaml:"-"`
}

// DefaultConfig returns the production catalog settings without a key.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          DefaultBaseURL,
		Timeout:          DefaultTimeout,
		BreakerFailures:  DefaultBreakerFailures,
		BreakerSuccesses: DefaultBreakerSuccesses,
		BreakerCooldown:  DefaultBreakerCooldown,
	}
}

// Validate fills zero values with defaults and checks the base URL.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = DefaultBreakerFailures
	}
	if c.BreakerSuccesses == 0 {
		c.BreakerSuccesses = DefaultBreakerSuccesses
	}
	if c.BreakerCooldown == 0 {
		c.BreakerCooldown = DefaultBreakerCooldown
	}

	u, err := url.Parse(c.BaseURL)
	switch {
	case err != nil:
		return fmt.Errorf("catalog: invalid base_url: %w", err)
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("catalog: base_url scheme must be http or https, got %q", u.Scheme)
	case u.Host == "":
		return fmt.Errorf("catalog: base_url %q has no host", c.BaseURL)
	case c.Timeout < 0:
		return fmt.Errorf("catalog: timeout must not be negative, got %s", c.Timeout)
	case c.BreakerFailures < 0 || c.BreakerSuccesses < 0:
		return fmt.Errorf("catalog: breaker thresholds must not be negative")
	case c.BreakerCooldown < 0:
		return fmt.Errorf("catalog: breaker_cooldown must not be negative, got %s", c.BreakerCooldown)
	}
	return nil
}

// productsURL resolves GetProducts against the base, which is treated as
// a directory whether or not it ends in a slash.
func (c *Config) productsURL() string {
	base := c.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, _ := url.Parse(base)
	return u.JoinPath("GetProducts").String()
}
