package app

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahems/SportsLeague/pkg/auth"
	"github.com/ahems/SportsLeague/pkg/catalog"
	"github.com/ahems/SportsLeague/pkg/config"
	"github.com/ahems/SportsLeague/pkg/store"
)

// EnvPrefix prefixes every environment variable, e.g.
// SPORTSLEAGUE_AUTH_TENANT_NAME or SPORTSLEAGUE_STORE_BACKEND.
const EnvPrefix = "SPORTSLEAGUE"

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config is the whole service configuration.
type Config struct {
	Log     LogConfig            `json:"log" yaml:"log" env:"LOG"`
	Auth    auth.ValidatorConfig `json:"auth" yaml:"auth" env:"AUTH"`
	HTTP    HTTPConfig           `json:"http" yaml:"http" env:"HTTP"`
	Catalog catalog.Config       `json:"catalog" yaml:"catalog" env:"CATALOG"`
	Store   store.Config         `json:"store" yaml:"store" env:"STORE"`
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Addr              string        `json:"addr" yaml:"addr" env:"ADDR" envDefault:":8080"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT" envDefault:"10s"`
	ReadTimeout       time.Duration `json:"read_timeout" yaml:"read_timeout" env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout      time.Duration `json:"write_timeout" yaml:"write_timeout" env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout       time.Duration `json:"idle_timeout" yaml:"idle_timeout" env:"IDLE_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Validate rejects an empty address and negative timeouts.
func (c *HTTPConfig) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("http: addr is required")
	}
	for name, d := range map[string]time.Duration{
		"read_header_timeout": c.ReadHeaderTimeout,
		"read_timeout":        c.ReadTimeout,
		"write_timeout":       c.WriteTimeout,
		"idle_timeout":        c.IdleTimeout,
		"shutdown_timeout":    c.ShutdownTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("http: %s must not be negative", name)
		}
	}
	return nil
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" env:"LEVEL" envDefault:"info"`
	Format string `json:"format" yaml:"format" env:"FORMAT" envDefault:"json"`
}

// Validate checks the level parses and the format is known.
func (c *LogConfig) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case LogFormatJSON, LogFormatText:
		return nil
	default:
		return fmt.Errorf("log: unknown format %q (use %q or %q)", c.Format, LogFormatJSON, LogFormatText)
	}
}

// SlogLevel parses Level. Accepts debug, info, warn and error, with an
// optional offset such as "info+2".
func (c *LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log: %w", err)
	}
	return level, nil
}

// LoadConfig reads defaults, the optional file at path (skipped when
// empty or missing), then SPORTSLEAGUE_* variables through lookup. A nil
// lookup reads the process environment.
func LoadConfig(path string, lookup config.LookupFunc) (Config, error) {
	loader := config.New().WithEnvPrefix(EnvPrefix)
	if path != "" {
		loader = loader.WithFile(path)
	}
	if lookup != nil {
		loader = loader.WithLookup(lookup)
	}

	var cfg Config
	if err := loader.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
