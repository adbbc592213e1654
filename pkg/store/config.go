package store

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/eapache/go-resiliency/retrier"

	"github.com/ahems/SportsLeague/pkg/clients/postgres"
	"github.com/ahems/SportsLeague/pkg/clients/redis"
	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

// Backend names a storage backend.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Config selects and configures the backend. In the service it sits under
// STORE: STORE_BACKEND, STORE_POSTGRES_HOST, STORE_REDIS_URI and so on.
// Only the selected backend's section is used.
type Config struct {
	Backend Backend `json:"backend" yaml:"backend" env:"BACKEND" envDefault:"memory"`

	// ConnectAttempts and ConnectBackoff govern how [Open] retries an
	// unreachable database at startup.
	ConnectAttempts int           `json:"connect_attempts" yaml:"connect_attempts" env:"CONNECT_ATTEMPTS" envDefault:"5"`
	ConnectBackoff  time.Duration `json:"connect_backoff" yaml:"connect_backoff" env:"CONNECT_BACKOFF" envDefault:"2s"`

	Postgres postgres.Config `json:"postgres" yaml:"postgres" env:"POSTGRES"`
	Table    string          `json:"table" yaml:"table" env:"TABLE" envDefault:"documents"`
	// Migrate creates Table on open when it is missing.
	Migrate bool `json:"migrate" yaml:"migrate" env:"MIGRATE" envDefault:"true"`

	Redis     redis.Config `json:"redis" yaml:"redis" env:"REDIS"`
	KeyPrefix string       `json:"key_prefix" yaml:"key_prefix" env:"KEY_PREFIX" envDefault:"sportsleague"`
}

// Validate checks the backend selection and its settings.
func (c *Config) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.ConnectAttempts < 1 {
		c.ConnectAttempts = 1
	}

	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendPostgres:
		if !tableName.MatchString(c.Table) {
			return sserr.Validationf("store: table %q is not a valid identifier", c.Table)
		}
		if err := c.Postgres.Validate(); err != nil {
			return sserr.Wrap(err, sserr.CodeValidation, "store: invalid postgres settings")
		}
	case BackendRedis:
		if c.KeyPrefix == "" {
			return sserr.Required("store key_prefix")
		}
		if err := c.Redis.Validate(); err != nil {
			return sserr.Wrap(err, sserr.CodeValidation, "store: invalid redis settings")
		}
	default:
		return sserr.Validationf("store: unknown backend %q (use memory, postgres or redis)", c.Backend)
	}
	return nil
}

// Open validates cfg and connects the selected backend. An unreachable
// database is retried up to ConnectAttempts times with exponential
// backoff starting at ConnectBackoff.
func Open(ctx context.Context, cfg Config, opts ...Option) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	settings := newDocumentStore(nil, opts...)
	logger := settings.logger.With("backend", string(cfg.Backend))

	if cfg.Backend == BackendMemory {
		logger.Info("opened document store")
		return NewMemory(opts...), nil
	}

	return openRetrying(ctx, cfg, logger, func(ctx context.Context) (Store, error) {
		return connect(ctx, cfg, opts)
	})
}

// connectBackoff returns the waits between connect attempts: one fewer
// than ConnectAttempts, doubling from ConnectBackoff.
func connectBackoff(cfg Config) []time.Duration {
	return retrier.ExponentialBackoff(max(cfg.ConnectAttempts-1, 0), cfg.ConnectBackoff)
}

func openRetrying(ctx context.Context, cfg Config, logger *slog.Logger, dial func(context.Context) (Store, error)) (Store, error) {
	r := retrier.New(connectBackoff(cfg), retryUnavailable{})
	var s Store
	attempt := 0
	err := r.RunCtx(ctx, func(ctx context.Context) error {
		attempt++
		var err error
		s, err = dial(ctx)
		if err != nil {
			logger.Warn("document store connect failed", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("opened document store", "attempts", attempt)
	return s, nil
}

func connect(ctx context.Context, cfg Config, opts []Option) (Store, error) {
	switch cfg.Backend {
	case BackendPostgres:
		client, err := postgres.NewClient(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := EnsureSchema(ctx, client, cfg.Table); err != nil {
				client.Close()
				return nil, fmt.Errorf("store: create table %s: %w", cfg.Table, err)
			}
		}
		return NewPostgres(client, cfg.Table, opts...), nil
	case BackendRedis:
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedis(client, cfg.KeyPrefix, opts...), nil
	}
	return nil, sserr.Validationf("store: unknown backend %q", cfg.Backend)
}

// retryUnavailable retries only while the database is unreachable.
// Configuration and schema errors fail immediately.
type retryUnavailable struct{}

func (retryUnavailable) Classify(err error) retrier.Action {
	switch {
	case err == nil:
		return retrier.Succeed
	case sserr.IsUnavailable(err), sserr.IsTimeout(err):
		return retrier.Retry
	default:
		return retrier.Fail
	}
}
