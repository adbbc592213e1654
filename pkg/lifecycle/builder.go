package lifecycle

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

// Builder assembles a [Service].
//
//	svc, err := lifecycle.NewBuilder("sportsleague", version).
//	    WithLogger(logger).
//	    OnStart(openStore).
//	    OnStop(closeStore).
//	    OnStart(listen).
//	    OnStop(shutdownServer).
//	    Build()
//
// Stop hooks run in reverse, so pairing each OnStart with its OnStop
// tears resources down in the opposite order they were brought up.
type Builder struct {
	tracerProvider trace.TracerProvider
	logger         *slog.Logger
	name           string
	version        string
	onStart        []Hook
	onStop         []Hook
	stateHandlers  []StateChangeHandler
}

// NewBuilder starts a builder for a service called name at version.
func NewBuilder(name, version string) *Builder {
	return &Builder{name: name, version: version}
}

// WithLogger sets the logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithTracerProvider sets the tracer provider. Defaults to the global
// provider.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// OnStart appends a start hook. Nil hooks are ignored.
func (b *Builder) OnStart(hook Hook) *Builder {
	if hook != nil {
		b.onStart = append(b.onStart, hook)
	}
	return b
}

// OnStop appends a stop hook. Nil hooks are ignored.
func (b *Builder) OnStop(hook Hook) *Builder {
	if hook != nil {
		b.onStop = append(b.onStop, hook)
	}
	return b
}

// OnStateChange appends a transition observer.
func (b *Builder) OnStateChange(handler StateChangeHandler) *Builder {
	if handler != nil {
		b.stateHandlers = append(b.stateHandlers, handler)
	}
	return b
}

// Build validates the builder and returns a service in [StateUnknown].
// The hook slices are copied, so the builder may be reused.
func (b *Builder) Build() (*Service, error) {
	if b.name == "" {
		return nil, sserr.New(sserr.CodeValidation,
			"lifecycle: service name must not be empty")
	}
	if b.version == "" {
		return nil, sserr.New(sserr.CodeValidation,
			"lifecycle: service version must not be empty")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := b.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Service{
		tracer:        tp.Tracer(tracerName),
		logger:        logger,
		failed:        make(chan struct{}),
		name:          b.name,
		version:       b.version,
		state:         StateUnknown,
		onStart:       append([]Hook(nil), b.onStart...),
		onStop:        append([]Hook(nil), b.onStop...),
		stateHandlers: append([]StateChangeHandler(nil), b.stateHandlers...),
	}, nil
}
