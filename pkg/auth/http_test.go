package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

// stubValidator returns a fixed outcome and records the header it saw.
type stubValidator struct {
	principal *Principal
	err       error
	header    string
}

func (s *stubValidator) ValidateRequest(_ context.Context, header string) (*Principal, error) {
	s.header = header
	return s.principal, s.err
}

func testPrincipal(t *testing.T) *Principal {
	t.Helper()
	c, err := NewClaims(payloadOf(t, validClaims()).Claims)
	require.NoError(t, err)
	return newPrincipal(c)
}

func TestHTTPMiddleware_Authenticated(t *testing.T) {
	t.Parallel()

	stub := &stubValidator{principal: testPrincipal(t)}
	var gotPrincipal *Principal
	var gotToken string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal = MustPrincipalFromContext(r.Context())
		gotToken, _ = BearerTokenFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/GetCarts", nil)
	req.Header.Set(HeaderAuthorization, "Bearer tok-123")
	rec := httptest.NewRecorder()
	HTTPMiddleware(stub)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Bearer tok-123", stub.header)
	assert.Same(t, stub.principal, gotPrincipal)
	assert.Equal(t, "tok-123", gotToken)
}

func TestHTTPMiddleware_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		status     int
		challenge  string
		retryAfter string
	}{
		{"unauthorized", unauthorized(ReasonTokenExpired, ErrTokenExpired), http.StatusUnauthorized, `Bearer error="invalid_token"`, ""},
		{"unavailable", unavailable(ErrMetadataUnavailable), http.StatusServiceUnavailable, "", "5"},
		{"unexpected error", sserr.Internal("boom"), http.StatusUnauthorized, `Bearer error="invalid_token"`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			called := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

			req := httptest.NewRequest(http.MethodGet, "/api/GetOrders", nil)
			rec := httptest.NewRecorder()
			HTTPMiddleware(&stubValidator{err: tt.err})(next).ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.challenge, rec.Header().Get("WWW-Authenticate"))
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))
			assert.NotContains(t, rec.Body.String(), "expired", "reasons stay out of responses")
		})
	}
}

func TestHTTPMiddleware_EndToEnd(t *testing.T) {
	t.Parallel()

	key := newRSAKey(t, "rsa")
	v := newTestValidator(t, newFakeProvider(t, key), nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/GetCarts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(MustPrincipalFromContext(r.Context()).Name()))
	})
	srv := httptest.NewServer(HTTPMiddleware(v)(mux))
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/GetCarts", nil)
	require.NoError(t, err)
	req.Header.Set(HeaderAuthorization, bearer(key.sign(t, validClaims())))
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := srv.Client().Get(srv.URL + "/api/GetCarts")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestBearerTransport(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		seen []string
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get(HeaderAuthorization))
		mu.Unlock()
	}))
	t.Cleanup(upstream.Close)

	client := &http.Client{Transport: NewBearerTransport(upstream.Client().Transport)}

	do := func(ctx context.Context, preset string) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstream.URL, nil)
		require.NoError(t, err)
		if preset != "" {
			req.Header.Set(HeaderAuthorization, preset)
		}
		resp, err := client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, preset, req.Header.Get(HeaderAuthorization), "caller's request is not mutated")
	}

	withToken := ContextWithBearerToken(context.Background(), "tok-abc")
	do(withToken, "")
	do(context.Background(), "")
	do(withToken, "Bearer explicit")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Bearer tok-abc", "", "Bearer explicit"}, seen)
}

func TestContext_Principal(t *testing.T) {
	t.Parallel()

	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)
	assert.Panics(t, func() { MustPrincipalFromContext(context.Background()) })

	_, ok = PrincipalFromContext(ContextWithPrincipal(context.Background(), nil))
	assert.False(t, ok, "nil principal is not a principal")

	p := testPrincipal(t)
	got, ok := PrincipalFromContext(ContextWithPrincipal(context.Background(), p))
	assert.True(t, ok)
	assert.Same(t, p, got)

	_, ok = BearerTokenFromContext(ContextWithBearerToken(context.Background(), ""))
	assert.False(t, ok)

	_, ok = TraceIDFromContext(context.Background())
	assert.False(t, ok)
}
