// Package testutil provides shared test helpers for the SportsLeague
// packages.
//
// Helpers accept [testing.TB]. Those that halt on failure use [require];
// those that only record a failure use [assert].
package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahems/SportsLeague/internal/testutil/fixtures"
	"github.com/ahems/SportsLeague/pkg/auth"
	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

// RequireErrorCode halts the test unless err is an *sserr.Error with
// the given code.
//
//	err := s.Get(ctx, models.PartitionCart, "missing", &cart)
//	testutil.RequireErrorCode(t, err, sserr.CodeNotFoundResource)
func RequireErrorCode(t testing.TB, err error, code sserr.Code, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	ssErr, ok := sserr.AsError(err)
	require.True(t, ok, "expected *sserr.Error, got %T: %v", err, err)
	require.Equal(t, code, ssErr.Code,
		"error code mismatch: got %q, want %q (message: %s)",
		ssErr.Code, code, ssErr.Message)
}

// AssertErrorCode is [RequireErrorCode] without halting, for table rows.
func AssertErrorCode(t testing.TB, err error, code sserr.Code, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Error(t, err, msgAndArgs...) {
		return false
	}
	ssErr, ok := sserr.AsError(err)
	if !assert.True(t, ok, "expected *sserr.Error, got %T: %v", err, err) {
		return false
	}
	return assert.Equal(t, code, ssErr.Code,
		"error code mismatch: got %q, want %q (message: %s)",
		ssErr.Code, code, ssErr.Message)
}

// TempConfigFile writes content to config<ext> in t.TempDir() with mode
// 0600 and returns its path.
func TempConfigFile(t testing.TB, content, ext string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config"+ext)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600), "failed to write temp config file %s", path)
	return path
}

// EnvLookup returns a config.LookupFunc-compatible function over env so
// tests never touch the process environment.
func EnvLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// AssertJSONContains asserts that v encodes to JSON containing expected.
func AssertJSONContains(t testing.TB, v any, expected string) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err, "json.Marshal failed")
	assert.Contains(t, string(data), expected,
		"expected JSON to contain %q, got: %s", expected, string(data))
}

// ValidatorConfig returns a validator configuration for the fixtures
// tenant.
func ValidatorConfig() auth.ValidatorConfig {
	cfg := auth.DefaultValidatorConfig()
	cfg.TenantName = fixtures.TenantName
	cfg.TenantID = fixtures.TenantID
	cfg.Audience = fixtures.Audience
	cfg.ClientID = fixtures.ClientID
	return cfg
}

// Principal returns an authenticated caller named name. It runs the real
// claim checks over a well-formed payload, so the principal is exactly
// what the validator would produce.
func Principal(t testing.TB, name string) *auth.Principal {
	t.Helper()
	cfg := ValidatorConfig()
	now := time.Now()
	p, err := auth.ValidateClaims(&auth.VerifiedPayload{
		Claims: jwt.MapClaims{
			"iss":  cfg.AcceptedIssuers()[1],
			"aud":  cfg.Audience,
			"sub":  fixtures.UserSubject,
			"name": name,
			"exp":  float64(now.Add(time.Hour).Unix()),
			"iat":  float64(now.Unix()),
		},
		KeyID:     "test-key",
		Algorithm: "RS256",
	}, &cfg, now)
	require.NoError(t, err, "failed to build test principal")
	return p
}

// AuthenticatedContext returns ctx carrying [Principal] and a bearer
// token, as the HTTP middleware would leave it.
func AuthenticatedContext(t testing.TB, ctx context.Context, name string) context.Context {
	t.Helper()
	ctx = auth.ContextWithPrincipal(ctx, Principal(t, name))
	return auth.ContextWithBearerToken(ctx, "test-access-token")
}
