// Package app wires the SportsLeague service together: configuration,
// the token validator, the document store, the product catalog client
// and the HTTP server, run under a lifecycle.Service.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ahems/SportsLeague/internal/handlers"
	"github.com/ahems/SportsLeague/pkg/auth"
	"github.com/ahems/SportsLeague/pkg/catalog"
	sserr "github.com/ahems/SportsLeague/pkg/errors"
	"github.com/ahems/SportsLeague/pkg/lifecycle"
	"github.com/ahems/SportsLeague/pkg/store"
)

// ServiceName names the process in logs and spans.
const ServiceName = "sportsleague"

// Warmer preloads state before the listener opens. *auth.MetadataCache
// implements it.
type Warmer interface {
	Warm(ctx context.Context) error
}

// App is the assembled service. Create it with [New] and drive it with
// [App.Run], or [App.Start] and [App.Stop].
type App struct {
	validator auth.RequestValidator
	warmer    Warmer
	products  catalog.ProductSource
	logger    *slog.Logger
	svc       *lifecycle.Service
	server    *http.Server
	store     store.Store
	listener  net.Listener
	handlers  []handlers.Option
	cfg       Config
	mu        sync.Mutex
	ownsStore bool
}

// Option configures an App.
type Option func(*App)

// WithValidator replaces the validator built from cfg.Auth. Metadata is
// not warmed unless [WithWarmer] is also given.
func WithValidator(v auth.RequestValidator) Option {
	return func(a *App) { a.validator = v }
}

// WithWarmer sets what to warm before listening.
func WithWarmer(w Warmer) Option {
	return func(a *App) { a.warmer = w }
}

// WithStore uses s instead of opening cfg.Store. The caller keeps
// ownership and closes it.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithProductSource replaces the catalog client built from cfg.Catalog.
func WithProductSource(p catalog.ProductSource) Option {
	return func(a *App) { a.products = p }
}

// WithHandlerOptions passes options through to handlers.New.
func WithHandlerOptions(opts ...handlers.Option) Option {
	return func(a *App) { a.handlers = append(a.handlers, opts...) }
}

// New builds the service without touching the network. The store is
// opened and the listener bound when the service starts.
func New(cfg Config, version string, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	if a.validator == nil {
		v, err := auth.NewValidator(cfg.Auth, auth.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		a.validator = v
		a.warmer = v.Metadata()
	}
	if a.products == nil {
		c, err := catalog.New(cfg.Catalog, catalog.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		a.products = c
	}
	a.ownsStore = a.store == nil

	svc, err := lifecycle.NewBuilder(ServiceName, version).
		WithLogger(logger).
		OnStart(a.openStore).
		OnStop(a.closeStore).
		OnStart(a.warm).
		OnStart(a.listen).
		OnStop(a.shutdown).
		OnStateChange(func(old, new lifecycle.State) {
			logger.Debug("state transition", "from", old.String(), "to", new.String())
		}).
		Build()
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return a, nil
}

// Run serves until ctx is done or the listener fails, then shuts down
// within cfg.HTTP.ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	return a.svc.Run(ctx, a.shutdownTimeout())
}

// Start opens the store and begins serving.
func (a *App) Start(ctx context.Context) error { return a.svc.Start(ctx) }

// Stop drains the server and closes the store.
func (a *App) Stop(ctx context.Context) error { return a.svc.Stop(ctx) }

// Service exposes the lifecycle, mainly for its state.
func (a *App) Service() *lifecycle.Service { return a.svc }

// Addr returns the bound listener address, or "" before start.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Handler builds the routing tree:
//
//	GET /healthz        store reachability, unauthenticated
//	GET /livez          lifecycle state, unauthenticated
//	/api/{Function}     bearer token required
//
// Everything is traced through otelhttp.
func (a *App) Handler() http.Handler {
	h := handlers.New(a.store, a.products, append([]handlers.Option{handlers.WithLogger(a.logger)}, a.handlers...)...)

	api := http.NewServeMux()
	h.Register(api)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", h.Healthz)
	root.HandleFunc("GET /livez", a.livez)
	root.Handle("/api/", auth.HTTPMiddleware(a.validator)(api))

	return otelhttp.NewHandler(root, ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}

func (a *App) livez(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if err := a.svc.Health(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(a.svc.Info())
}

func (a *App) openStore(ctx context.Context) error {
	if !a.ownsStore {
		return nil
	}
	s, err := store.Open(ctx, a.cfg.Store, store.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.store = s
	return nil
}

func (a *App) closeStore(context.Context) error {
	if !a.ownsStore || a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// warm preloads identity provider metadata. A failure is logged, not
// fatal: the first request retries the fetch.
func (a *App) warm(ctx context.Context) error {
	if a.warmer == nil {
		return nil
	}
	if err := a.warmer.Warm(ctx); err != nil {
		a.logger.WarnContext(ctx, "metadata warmup failed; first request will retry", "error", err)
	}
	return nil
}

func (a *App) listen(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", a.cfg.HTTP.Addr)
	if err != nil {
		return sserr.Wrapf(err, sserr.CodeInternalConfiguration, "app: listen on %s", a.cfg.HTTP.Addr)
	}

	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: a.cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.HTTP.ReadTimeout,
		WriteTimeout:      a.cfg.HTTP.WriteTimeout,
		IdleTimeout:       a.cfg.HTTP.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(a.logger.Handler(), slog.LevelWarn),
	}

	a.mu.Lock()
	a.listener, a.server = ln, srv
	a.mu.Unlock()

	a.logger.InfoContext(ctx, "listening", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.svc.Fail(sserr.Wrap(err, sserr.CodeUnavailable, "app: server stopped"))
		}
	}()
	return nil
}

func (a *App) shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv := a.server
	a.server, a.listener = nil, nil
	a.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.HTTP.ShutdownTimeout > 0 {
		return a.cfg.HTTP.ShutdownTimeout
	}
	return lifecycle.DefaultShutdownTimeout
}
