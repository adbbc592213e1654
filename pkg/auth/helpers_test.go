package auth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const (
	testTenantName = "contoso"
	testTenantID   = "72f988bf-86f1-41af-91ab-2d7cd011db47"
	testAudience   = "api://sportsleague"
	testClientID   = "6e74172b-be56-4843-9ff4-e66a39bb12e3"
	testIssuer     = "https://login.microsoftonline.com/contoso.onmicrosoft.com/v2.0"
	testSubject    = "user-42"
)

// testNow is whole seconds so NumericDate truncation cannot move a
// boundary.
var testNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// testKey is a signing key pair plus the metadata a provider publishes.
type testKey struct {
	kid     string
	alg     string
	private crypto.Signer
	public  crypto.PublicKey
	// publishAlg controls whether the JWK carries "alg".
	publishAlg bool
}

func newRSAKey(t *testing.T, kid string) *testKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "generate RSA key")
	return &testKey{kid: kid, alg: "RS256", private: priv, public: &priv.PublicKey, publishAlg: true}
}

func newECKey(t *testing.T, kid string, curve elliptic.Curve, alg string) *testKey {
	t.Helper()
	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err, "generate ECDSA key")
	return &testKey{kid: kid, alg: alg, private: priv, public: &priv.PublicKey}
}

func newEdKey(t *testing.T, kid string) *testKey {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err, "generate Ed25519 key")
	return &testKey{kid: kid, alg: "EdDSA", private: priv, public: pub}
}

func (k *testKey) jwk() jose.JSONWebKey {
	jwk := jose.JSONWebKey{Key: k.public, KeyID: k.kid, Use: "sig"}
	if k.publishAlg {
		jwk.Algorithm = k.alg
	}
	return jwk
}

// signingKey returns the key in the form VerifySignature expects, for
// tests that build ProviderMetadata directly.
func (k *testKey) signingKey() SigningKey {
	sk := SigningKey{ID: k.kid, Key: k.public}
	if k.publishAlg {
		sk.Algorithm = k.alg
	}
	switch pub := k.public.(type) {
	case *rsa.PublicKey:
		sk.KeyType = "RSA"
	case *ecdsa.PublicKey:
		sk.KeyType, sk.Curve = "EC", pub.Curve.Params().Name
	case ed25519.PublicKey:
		sk.KeyType, sk.Curve = "OKP", "Ed25519"
	}
	return sk
}

// sign mints a token with the key's own algorithm.
func (k *testKey) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	return k.signAs(t, k.alg, claims)
}

// signAs mints a token with an arbitrary algorithm using this key.
func (k *testKey) signAs(t *testing.T, alg string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.GetSigningMethod(alg), claims)
	tok.Header["kid"] = k.kid
	s, err := tok.SignedString(k.private)
	require.NoError(t, err, "sign %s token", alg)
	return s
}

// validClaims is a payload that passes every check at testNow.
func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":  testIssuer,
		"aud":  testAudience,
		"sub":  testSubject,
		"name": "Jordan Rivers",
		"oid":  "0c5c7a0e-4f0e-4d43-9a59-2d2b8e0f4c11",
		"iat":  testNow.Add(-5 * time.Minute).Unix(),
		"nbf":  testNow.Add(-5 * time.Minute).Unix(),
		"exp":  testNow.Add(time.Hour).Unix(),
	}
}

func withClaims(overrides map[string]any) jwt.MapClaims {
	c := validClaims()
	for k, v := range overrides {
		if v == nil {
			delete(c, k)
			continue
		}
		c[k] = v
	}
	return c
}

// flipSignatureBit flips the lowest bit of the first signature byte.
func flipSignatureBit(t *testing.T, token string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	sig[0] ^= 0x01
	parts[2] = base64.RawURLEncoding.EncodeToString(sig)
	return strings.Join(parts, ".")
}

const base64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// flipEncodedBit flips one of the six bits carried by the last character
// of the encoded signature segment, leaving the rest of the text as is.
func flipEncodedBit(t *testing.T, token string, bit uint) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	last := len(sig) - 1
	idx := strings.IndexByte(base64URLAlphabet, sig[last])
	require.GreaterOrEqual(t, idx, 0)
	sig[last] = base64URLAlphabet[idx^(1<<bit)]
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}

// ---------------------------------------------------------------------------
// Fake identity provider
// ---------------------------------------------------------------------------

// fakeProvider serves a discovery document and key set and counts hits.
type fakeProvider struct {
	srv *httptest.Server

	mu    sync.Mutex
	keys  []jose.JSONWebKey
	delay time.Duration

	failing       atomic.Bool
	discoveryHits atomic.Int32
	keySetHits    atomic.Int32
}

const fakeAuthorityPath = "/contoso.onmicrosoft.com/v2.0"

func newFakeProvider(t *testing.T, keys ...*testKey) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}
	p.setKeys(keys...)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+fakeAuthorityPath+"/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		p.discoveryHits.Add(1)
		if !p.pause(r) {
			return
		}
		if p.failing.Load() {
			http.Error(w, "unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{
			"issuer":                 testIssuer,
			"jwks_uri":               p.srv.URL + "/discovery/v2.0/keys",
			"token_endpoint":         p.srv.URL + fakeAuthorityPath + "/oauth2/v2.0/token",
			"authorization_endpoint": p.srv.URL + fakeAuthorityPath + "/oauth2/v2.0/authorize",
		})
	})
	mux.HandleFunc("GET /discovery/v2.0/keys", func(w http.ResponseWriter, r *http.Request) {
		p.keySetHits.Add(1)
		if p.failing.Load() {
			http.Error(w, "unavailable", http.StatusInternalServerError)
			return
		}
		p.mu.Lock()
		set := jose.JSONWebKeySet{Keys: append([]jose.JSONWebKey(nil), p.keys...)}
		p.mu.Unlock()
		writeJSON(w, set)
	})

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

// pause applies the configured delay, giving up when the client does.
func (p *fakeProvider) pause(r *http.Request) bool {
	p.mu.Lock()
	d := p.delay
	p.mu.Unlock()
	if d == 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-r.Context().Done():
		return false
	}
}

func (p *fakeProvider) setKeys(keys ...*testKey) {
	jwks := make([]jose.JSONWebKey, 0, len(keys))
	for _, k := range keys {
		jwks = append(jwks, k.jwk())
	}
	p.mu.Lock()
	p.keys = jwks
	p.mu.Unlock()
}

func (p *fakeProvider) setDelay(d time.Duration) {
	p.mu.Lock()
	p.delay = d
	p.mu.Unlock()
}

func (p *fakeProvider) authority() string { return p.srv.URL + fakeAuthorityPath }

// config returns a complete ValidatorConfig pointed at the provider.
func (p *fakeProvider) config() ValidatorConfig {
	cfg := DefaultValidatorConfig()
	cfg.TenantName = testTenantName
	cfg.TenantID = testTenantID
	cfg.Audience = testAudience
	cfg.ClientID = testClientID
	cfg.AuthorityURL = p.authority()
	cfg.HTTPClient = p.srv.Client()
	return cfg
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
