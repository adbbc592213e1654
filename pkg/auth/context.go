package auth

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type contextKey int

const (
	principalKey contextKey = iota
	bearerTokenKey
)

// ContextWithPrincipal attaches the authenticated principal. The HTTP
// middleware and gRPC interceptors call it after validation succeeds.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal stored by the middleware.
//
//	p, ok := auth.PrincipalFromContext(r.Context())
//	if !ok {
//	    return sserr.Unauthorized("unauthorized")
//	}
//	logger.Info("GetCarts called", "user", p.Name())
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// MustPrincipalFromContext panics when no principal is present. Use it
// only behind the authentication middleware.
func MustPrincipalFromContext(ctx context.Context) *Principal {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		panic("auth: no principal in context; ensure authentication middleware is configured")
	}
	return p
}

// ContextWithBearerToken keeps the caller's validated token so it can be
// forwarded to upstream APIs that accept the same audience.
func ContextWithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey, token)
}

// BearerTokenFromContext returns the token stored by the middleware.
func BearerTokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(bearerTokenKey).(string)
	return t, ok && t != ""
}

// TraceIDFromContext returns the active OpenTelemetry trace id in hex.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.HasTraceID() {
		return "", false
	}
	return sc.TraceID().String(), true
}
