package auth

import (
	"net/http"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

// HeaderAuthorization is the header carrying the bearer token.
const HeaderAuthorization = "Authorization"

// HTTPMiddleware authenticates every request before next runs.
//
//   - Rejected tokens get 401 with a WWW-Authenticate challenge.
//   - Metadata outages get 503 with Retry-After, so clients retry instead
//     of discarding their credentials.
//
// On success the principal and the raw token are stored in the request
// context (see [PrincipalFromContext] and [BearerTokenFromContext]).
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("GET /api/GetCarts", h.GetCarts)
//	http.ListenAndServe(":8080", auth.HTTPMiddleware(validator)(mux))
func HTTPMiddleware(validator RequestValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(HeaderAuthorization)
			principal, err := validator.ValidateRequest(r.Context(), header)
			if err != nil {
				if sserr.IsUnavailable(err) {
					w.Header().Set("Retry-After", "5")
					http.Error(w, "authentication temporarily unavailable", http.StatusServiceUnavailable)
					return
				}
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			if token, err := ExtractBearerToken(header); err == nil {
				ctx = ContextWithBearerToken(ctx, token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerTransport forwards the caller's token from the request context
// to outgoing requests. Requests without a token in context, or that
// already set Authorization, pass through unchanged.
//
//	client := &http.Client{Transport: auth.NewBearerTransport(nil)}
type BearerTransport struct {
	wrapped http.RoundTripper
}

// NewBearerTransport wraps transport, or http.DefaultTransport when nil.
func NewBearerTransport(transport http.RoundTripper) *BearerTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &BearerTransport{wrapped: transport}
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	token, ok := BearerTokenFromContext(r.Context())
	if !ok || r.Header.Get(HeaderAuthorization) != "" {
		return t.wrapped.RoundTrip(r)
	}
	clone := r.Clone(r.Context())
	clone.Header.Set(HeaderAuthorization, "Bearer "+token)
	return t.wrapped.RoundTrip(clone)
}
