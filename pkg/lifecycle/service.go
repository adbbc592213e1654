package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

const tracerName = "github.com/ahems/SportsLeague/pkg/lifecycle"

// DefaultShutdownTimeout bounds the stop hooks when [Service.Run] shuts
// down.
const DefaultShutdownTimeout = 15 * time.Second

// StateChangeHandler observes every transition. Handlers run under the
// state lock, so they must not block or call back into the service. A
// panicking handler is recovered and logged.
type StateChangeHandler func(old, new State)

// Hook runs during start or stop. A start hook error aborts the start and
// moves the service to [StateFailed]; stop hooks all run and their errors
// are joined.
type Hook func(ctx context.Context) error

// Info is a snapshot of a service, suitable for a status endpoint or a
// log line.
type Info struct {
	StartedAt *time.Time    `json:"started_at,omitempty"`
	Name      string        `json:"name"`
	Version   string        `json:"version"`
	State     State         `json:"state"`
	Uptime    time.Duration `json:"uptime,omitempty"`
}

// Service runs start hooks, waits, and runs stop hooks in reverse order.
// Build one with [Builder].
type Service struct {
	tracer        trace.Tracer
	logger        *slog.Logger
	startedAt     *time.Time
	failure       error
	failed        chan struct{}
	name          string
	version       string
	state         State
	onStart       []Hook
	onStop        []Hook
	stateHandlers []StateChangeHandler
	mu            sync.RWMutex
	failOnce      sync.Once
}

func (s *Service) Name() string    { return s.name }
func (s *Service) Version() string { return s.version }

// State returns the current state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Info returns a snapshot of the service. Uptime is set only while
// running.
func (s *Service) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{Name: s.name, Version: s.version, State: s.state}
	if s.startedAt != nil && s.state == StateRunning {
		t := *s.startedAt
		info.StartedAt = &t
		info.Uptime = time.Since(t)
	}
	return info
}

// Health returns nil while the service is running and a
// [sserr.CodeUnavailable] error otherwise.
func (s *Service) Health(context.Context) error {
	if state := s.State(); state != StateRunning {
		return sserr.Newf(sserr.CodeUnavailable,
			"lifecycle: %s is not running, current state is %q", s.name, state)
	}
	return nil
}

// SetState moves the service to new, or returns a [sserr.CodeConflict]
// error if the transition is not allowed.
func (s *Service) SetState(new State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.state
	if !ValidTransition(old, new) {
		return sserr.Newf(sserr.CodeConflict,
			"lifecycle: invalid state transition from %q to %q", old, new)
	}
	s.state = new

	for _, h := range s.stateHandlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("lifecycle: state change handler panicked",
						"panic", r,
						"service", s.name,
						"old_state", string(old),
						"new_state", string(new),
					)
				}
			}()
			h(old, new)
		}()
	}
	return nil
}

// Fail reports a runtime failure from a background goroutine, such as a
// listener that stopped accepting. [Service.Run] wakes up, runs the stop
// hooks and returns err. Only the first failure is kept.
func (s *Service) Fail(err error) {
	if err == nil {
		return
	}
	s.failOnce.Do(func() {
		s.mu.Lock()
		s.failure = err
		s.mu.Unlock()
		close(s.failed)
	})
}

// Failure returns the error passed to [Service.Fail], if any.
func (s *Service) Failure() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failure
}

// Start moves the service through [StateStarting] to [StateRunning],
// running the start hooks in order between the two.
func (s *Service) Start(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "lifecycle.Start")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return s.endSpan(span, sserr.Wrap(err, sserr.CodeTimeout,
			"lifecycle: start canceled before execution"))
	}
	if err := s.SetState(StateStarting); err != nil {
		return s.endSpan(span, err)
	}

	s.logger.InfoContext(ctx, "lifecycle: starting",
		"service", s.name,
		"version", s.version,
	)

	for _, hook := range s.onStart {
		if err := hook(ctx); err != nil {
			s.logger.ErrorContext(ctx, "lifecycle: start hook failed",
				"service", s.name,
				"error", err,
			)
			_ = s.SetState(StateFailed)
			return s.endSpan(span, sserr.Wrap(err, sserr.CodeInternal,
				"lifecycle: start hook failed"))
		}
	}

	if err := s.SetState(StateRunning); err != nil {
		return s.endSpan(span, err)
	}
	now := time.Now().UTC()
	s.mu.Lock()
	s.startedAt = &now
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "lifecycle: started", "service", s.name)
	return s.endSpan(span, nil)
}

// Stop moves the service through [StateStopping] and runs every stop hook
// in reverse registration order. It ends in [StateStopped], or in
// [StateFailed] when a hook failed or [Service.Fail] was called. Stopping
// a service in a terminal state is a no-op.
func (s *Service) Stop(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "lifecycle.Stop")
	defer span.End()

	if s.State().IsTerminal() {
		return s.endSpan(span, nil)
	}
	if err := s.SetState(StateStopping); err != nil {
		return s.endSpan(span, err)
	}

	s.logger.InfoContext(ctx, "lifecycle: stopping", "service", s.name)

	var errs []error
	for i := len(s.onStop) - 1; i >= 0; i-- {
		if err := s.onStop[i](ctx); err != nil {
			s.logger.ErrorContext(ctx, "lifecycle: stop hook failed",
				"service", s.name,
				"error", err,
			)
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.startedAt = nil
	s.mu.Unlock()

	if len(errs) > 0 {
		_ = s.SetState(StateFailed)
		return s.endSpan(span, sserr.Wrap(errors.Join(errs...), sserr.CodeInternal,
			"lifecycle: stop hook failed"))
	}

	final := StateStopped
	if s.Failure() != nil {
		final = StateFailed
	}
	if err := s.SetState(final); err != nil {
		return s.endSpan(span, err)
	}
	s.logger.InfoContext(ctx, "lifecycle: stopped", "service", s.name, "state", string(final))
	return s.endSpan(span, nil)
}

// Run starts the service, blocks until ctx is done or [Service.Fail] is
// called, then stops it within timeout. The stop hooks get a fresh
// context because ctx is usually already canceled by then. Run returns
// the first of: the start error, the reported failure, the stop error.
func (s *Service) Run(ctx context.Context, timeout time.Duration) error {
	if err := s.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		s.cleanupAfterFailedStart(stopCtx)
		return err
	}

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "lifecycle: shutdown requested", "service", s.name)
	case <-s.failed:
		s.logger.ErrorContext(ctx, "lifecycle: runtime failure", "service", s.name, "error", s.Failure())
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	stopErr := s.Stop(stopCtx)

	if err := s.Failure(); err != nil {
		return err
	}
	return stopErr
}

// cleanupAfterFailedStart runs the stop hooks directly, since a failed
// service cannot transition through Stopping. Hooks must tolerate being
// called for resources that were never opened.
func (s *Service) cleanupAfterFailedStart(ctx context.Context) {
	for i := len(s.onStop) - 1; i >= 0; i-- {
		if err := s.onStop[i](ctx); err != nil {
			s.logger.WarnContext(ctx, "lifecycle: cleanup after failed start",
				"service", s.name,
				"error", err,
			)
		}
	}
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.name", s.name),
			attribute.String("service.version", s.version),
		),
	)
}

func (s *Service) endSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
