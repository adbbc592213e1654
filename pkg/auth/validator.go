// Package auth validates the bearer tokens that gate every SportsLeague
// endpoint against a Microsoft Entra ID (OpenID Connect) tenant.
//
// # Validation
//
// A [Validator] takes the raw Authorization header and either returns a
// [Principal] or an *sserr.Error with one of two codes:
//
//   - [sserr.CodeAuthentication]: the token was missing, malformed,
//     badly signed, or carried the wrong issuer, audience or validity
//     window. Callers answer 401. The precise [Reason] is in the error's
//     "reason" detail and in logs and metrics, never in the response.
//   - [sserr.CodeUnavailableDependency]: the identity provider's
//     discovery document or key set could not be fetched, so no token can
//     be judged. Callers answer 503.
//
// The pipeline is [ParseToken], [VerifySignature] and [ValidateClaims].
// Each stage can be called alone; the validator adds the metadata lookup,
// the unknown-key retry and telemetry around them.
//
//	cfg := auth.DefaultValidatorConfig()
//	cfg.TenantName, cfg.TenantID = "contoso", tenantID
//	cfg.Audience, cfg.ClientID = "api://sportsleague", clientID
//	v, err := auth.NewValidator(cfg, auth.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	p, err := v.ValidateRequest(ctx, r.Header.Get("Authorization"))
//
// # Provider Metadata
//
// Discovery documents and signing keys live in a [MetadataCache] owned by
// the validator. A stale snapshot keeps serving while one background
// refresh runs; a failed refresh keeps the last good keys and waits
// [DefaultRefreshRetryDelay] (or MinRefreshInterval) before trying again.
// A token naming an unknown key id causes exactly one forced refresh and
// one retry, which covers key rotation between scheduled refreshes.
//
// # HTTP and gRPC
//
// [HTTPMiddleware], [UnaryServerInterceptor] and [StreamServerInterceptor]
// wire the validator into servers and store the principal in the request
// context, where handlers read it back:
//
//	p := auth.MustPrincipalFromContext(r.Context())
//	logger.Info("cart created", "user", p)
//
// [NewBearerTransport] and [UnaryClientInterceptor] forward the caller's
// token to downstream services.
//
// # Telemetry
//
// Validation and metadata fetches run inside OpenTelemetry spans and count
// into the auth.validations counter (by outcome and [Reason]) and the
// auth.metadata.fetches counter (by outcome and trigger). Providers are
// injected with [WithTelemetry].
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ahems/SportsLeague/pkg/auth"

// RequestValidator is the contract the transport adapters depend on.
type RequestValidator interface {
	ValidateRequest(ctx context.Context, authHeader string) (*Principal, error)
}

// Validator orchestrates parsing, signature verification and claim
// checks. It is safe for concurrent use.
type Validator struct {
	cfg      ValidatorConfig
	metadata *MetadataCache

	now            func() time.Time
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	validations    metric.Int64Counter
}

var _ RequestValidator = (*Validator)(nil)

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for validation outcomes and metadata
// fetches. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithClock replaces time.Now for claim checks and metadata ageing.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithTelemetry replaces the global tracer and meter providers for the
// validator and the metadata cache it builds. Either may be nil.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(v *Validator) {
		if tp != nil {
			v.tracerProvider = tp
		}
		if mp != nil {
			v.meterProvider = mp
		}
	}
}

// WithMetadataCache shares an existing cache, e.g. one warmed at startup.
func WithMetadataCache(c *MetadataCache) Option {
	return func(v *Validator) {
		if c != nil {
			v.metadata = c
		}
	}
}

// NewValidator validates cfg and builds a Validator with its own
// metadata cache. An invalid cfg is a startup error.
func NewValidator(cfg ValidatorConfig, opts ...Option) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.AllowedAlgorithms = append([]string(nil), cfg.AllowedAlgorithms...)
	cfg.AdditionalIssuers = append([]string(nil), cfg.AdditionalIssuers...)

	v := &Validator{
		cfg:            cfg,
		now:            time.Now,
		logger:         slog.Default(),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.metadata == nil {
		v.metadata = NewMetadataCache(&v.cfg,
			WithMetadataLogger(v.logger),
			WithMetadataClock(v.now),
			WithMetadataTelemetry(v.tracerProvider, v.meterProvider))
	}

	v.tracer = v.tracerProvider.Tracer(instrumentationName)
	v.validations, _ = v.meterProvider.Meter(instrumentationName).Int64Counter("auth.validations",
		metric.WithDescription("Bearer token validations by outcome and reason."),
		metric.WithUnit("{validation}"))
	return v, nil
}

// Config returns a copy of the validator's configuration.
func (v *Validator) Config() ValidatorConfig { return v.cfg }

// Metadata returns the validator's metadata cache.
func (v *Validator) Metadata() *MetadataCache { return v.metadata }

// ValidateRequest authenticates an Authorization header value. An empty
// header is treated as absent.
func (v *Validator) ValidateRequest(ctx context.Context, authHeader string) (*Principal, error) {
	ctx, span := startSpan(ctx, v.tracer, "auth.ValidateRequest")
	defer span.End()

	token, err := ExtractBearerToken(authHeader)
	if err != nil {
		return nil, v.finish(ctx, span, nil, err)
	}
	p, err := v.validate(ctx, span, token)
	return p, v.finish(ctx, span, p, err)
}

// ValidateToken authenticates a bare compact token, for callers that
// have already stripped the scheme.
func (v *Validator) ValidateToken(ctx context.Context, token string) (*Principal, error) {
	ctx, span := startSpan(ctx, v.tracer, "auth.ValidateToken")
	defer span.End()

	p, err := v.validate(ctx, span, token)
	return p, v.finish(ctx, span, p, err)
}

func (v *Validator) validate(ctx context.Context, span trace.Span, token string) (*Principal, error) {
	seg, err := ParseToken(token)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("auth.alg", seg.Algorithm()),
		attribute.String("auth.kid", seg.KeyID()),
	)

	md, err := v.metadata.Get(ctx)
	if err != nil {
		return nil, err
	}

	allowed := v.cfg.allowedAlgorithms()
	payload, err := VerifySignature(seg, md, allowed)
	if errors.Is(err, ErrUnknownKey) {
		// Keys may have rotated since the snapshot. One refresh, one retry.
		span.AddEvent("auth.metadata_refresh")
		if md, err = v.metadata.Refresh(ctx); err != nil {
			return nil, err
		}
		payload, err = VerifySignature(seg, md, allowed)
	}
	if err != nil {
		return nil, err
	}

	return ValidateClaims(payload, &v.cfg, v.now())
}

// finish converts a stage error into the public result and records the
// outcome in logs, the span and the validations counter.
func (v *Validator) finish(ctx context.Context, span trace.Span, p *Principal, err error) error {
	if err == nil {
		span.SetAttributes(attribute.String("auth.subject", p.Subject()))
		v.validations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", "authenticated"),
		))
		v.logger.DebugContext(ctx, "auth: request authenticated", "principal", p)
		return nil
	}

	reason := ReasonOf(err)
	span.SetAttributes(attribute.String("auth.reason", string(reason)))

	if errors.Is(err, ErrMetadataUnavailable) {
		out := unavailable(err)
		finishSpan(span, out)
		v.validations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", "unavailable"),
			attribute.String("reason", string(reason)),
		))
		v.logger.WarnContext(ctx, "auth: cannot validate token, provider metadata unavailable",
			"error", err)
		return out
	}

	out := unauthorized(reason, err)
	span.SetStatus(codes.Error, string(reason))
	v.validations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", "unauthorized"),
		attribute.String("reason", string(reason)),
	))
	v.logger.InfoContext(ctx, "auth: token rejected", "reason", string(reason), "error", err)
	return out
}

// ExtractBearerToken returns the token from an "Authorization: Bearer
// <token>" value. The header must split on whitespace into exactly two
// fields and the scheme is matched case-insensitively. Errors wrap
// [ErrMissingHeader] or [ErrInvalidScheme].
func ExtractBearerToken(authHeader string) (string, error) {
	fields := strings.Fields(authHeader)
	switch {
	case len(fields) == 0:
		return "", ErrMissingHeader
	case len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer"):
		return "", ErrInvalidScheme
	}
	return fields[1], nil
}

func startSpan(ctx context.Context, tracer trace.Tracer, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// finishSpan records err on span and marks it failed. nil is a no-op.
func finishSpan(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
