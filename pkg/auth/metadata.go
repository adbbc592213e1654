package auth

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// maxMetadataBytes caps discovery and key set response bodies.
const maxMetadataBytes = 1 << 20

// SigningKey is one verification key from the provider's key set.
type SigningKey struct {
	ID string
	// Algorithm is the key's declared "alg", possibly empty.
	Algorithm string
	// KeyType is "RSA", "EC" or "OKP".
	KeyType string
	// Curve is set for EC and OKP keys ("P-256", "Ed25519", ...).
	Curve string
	// Key is *rsa.PublicKey, *ecdsa.PublicKey or ed25519.PublicKey.
	Key crypto.PublicKey
}

// ProviderMetadata is one immutable snapshot of the discovery document
// and key set. The cache replaces snapshots whole and never mutates one.
type ProviderMetadata struct {
	Issuer                string
	JWKSURI               string
	TokenEndpoint         string
	AuthorizationEndpoint string
	SigningKeys           map[string]SigningKey
	FetchedAt             time.Time
}

// Key looks up a signing key by id.
func (m *ProviderMetadata) Key(kid string) (SigningKey, bool) {
	k, ok := m.SigningKeys[kid]
	return k, ok
}

type discoveryDocument struct {
	Issuer                string `json:"issuer"`
	JWKSURI               string `json:"jwks_uri"`
	TokenEndpoint         string `json:"token_endpoint"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
}

type keySetDocument struct {
	Keys []json.RawMessage `json:"keys"`
}

// MetadataCache owns the provider metadata for one authority. It is the
// only shared mutable state in the validation path:
//
//   - Get returns the current snapshot, fetching synchronously when the
//     cache is cold. A snapshot older than the refresh interval is still
//     served while one background fetch replaces it. After a failed
//     fetch, interval refreshes wait MinRefreshInterval (or
//     [DefaultRefreshRetryDelay]) before trying again.
//   - Refresh forces a fetch and waits for it. The validator calls it when
//     a token names a key id the snapshot does not contain.
//
// Concurrent fetch triggers share one in-flight fetch. The fetch runs on
// a context detached from the caller that started it and is bounded by
// the fetch timeout, so one caller giving up does not fail the others.
type MetadataCache struct {
	discoveryURL    string
	client          HTTPClient
	fetchTimeout    time.Duration
	refreshInterval time.Duration
	minRefresh      time.Duration

	now            func() time.Time
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	fetches        metric.Int64Counter

	current atomic.Pointer[ProviderMetadata]
	group   singleflight.Group
	// failedAt is the clock reading, in Unix nanoseconds, of the last
	// failed fetch, or 0 after a success.
	failedAt atomic.Int64
}

// DefaultRefreshRetryDelay spaces out interval refreshes after a failed
// fetch when MinRefreshInterval is zero.
const DefaultRefreshRetryDelay = 30 * time.Second

// MetadataOption configures a MetadataCache.
type MetadataOption func(*MetadataCache)

// WithMetadataLogger sets the logger. Defaults to slog.Default().
func WithMetadataLogger(l *slog.Logger) MetadataOption {
	return func(c *MetadataCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetadataClock replaces time.Now for snapshot ageing.
func WithMetadataClock(now func() time.Time) MetadataOption {
	return func(c *MetadataCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMetadataTelemetry replaces the global tracer and meter providers.
// Either may be nil to keep the global one.
func WithMetadataTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) MetadataOption {
	return func(c *MetadataCache) {
		if tp != nil {
			c.tracerProvider = tp
		}
		if mp != nil {
			c.meterProvider = mp
		}
	}
}

// NewMetadataCache builds an empty cache for cfg's authority. Nothing is
// fetched until the first Get, Refresh or Warm.
func NewMetadataCache(cfg *ValidatorConfig, opts ...MetadataOption) *MetadataCache {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout:   cfg.FetchTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	c := &MetadataCache{
		discoveryURL:    cfg.DiscoveryURL(),
		client:          client,
		fetchTimeout:    cfg.FetchTimeout,
		refreshInterval: cfg.MetadataRefreshInterval,
		minRefresh:      cfg.MinRefreshInterval,
		now:             time.Now,
		logger:          slog.Default(),
		tracerProvider:  otel.GetTracerProvider(),
		meterProvider:   otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.tracer = c.tracerProvider.Tracer(instrumentationName)
	// Counter creation only fails for invalid names.
	c.fetches, _ = c.meterProvider.Meter(instrumentationName).Int64Counter("auth.metadata.fetches",
		metric.WithDescription("Identity provider metadata fetches by outcome."),
		metric.WithUnit("{fetch}"))
	return c
}

// Current returns the cached snapshot without fetching, or nil.
func (c *MetadataCache) Current() *ProviderMetadata {
	return c.current.Load()
}

// Get returns provider metadata, fetching it on a cold cache. A failed
// cold fetch returns an error wrapping [ErrMetadataUnavailable].
func (c *MetadataCache) Get(ctx context.Context) (*ProviderMetadata, error) {
	md := c.current.Load()
	if md == nil {
		return c.wait(ctx, "cold", nil)
	}
	now := c.now()
	if now.Sub(md.FetchedAt) >= c.refreshInterval && !c.coolingDown(now) {
		// Serve the stale snapshot; the fetch replaces it when it lands.
		c.group.DoChan(fetchKey, c.fetchFunc(ctx, "interval", md))
	}
	return md, nil
}

// coolingDown reports whether a fetch failed within the retry delay.
// Only interval refreshes wait; cold and forced fetches do not.
func (c *MetadataCache) coolingDown(now time.Time) bool {
	failed := c.failedAt.Load()
	if failed == 0 {
		return false
	}
	delay := c.minRefresh
	if delay <= 0 {
		delay = DefaultRefreshRetryDelay
	}
	return now.Sub(time.Unix(0, failed)) < delay
}

// Refresh forces a fetch and returns the new snapshot. When
// MinRefreshInterval is set and the current snapshot is younger than it,
// the current snapshot is returned without fetching.
func (c *MetadataCache) Refresh(ctx context.Context) (*ProviderMetadata, error) {
	md := c.current.Load()
	if c.minRefresh > 0 && md != nil && c.now().Sub(md.FetchedAt) < c.minRefresh {
		return md, nil
	}
	return c.wait(ctx, "forced", md)
}

// Warm fetches metadata once at startup so the first request does not
// pay for it.
func (c *MetadataCache) Warm(ctx context.Context) error {
	_, err := c.wait(ctx, "warmup", c.current.Load())
	return err
}

const fetchKey = "metadata"

func (c *MetadataCache) wait(ctx context.Context, trigger string, seen *ProviderMetadata) (*ProviderMetadata, error) {
	ch := c.group.DoChan(fetchKey, c.fetchFunc(ctx, trigger, seen))
	select {
	case <-ctx.Done():
		return nil, abandoned(ctx)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ProviderMetadata), nil
	}
}

// fetchFunc returns the shared fetch. seen is the snapshot the trigger
// observed; if another fetch already replaced it, that result is reused.
func (c *MetadataCache) fetchFunc(ctx context.Context, trigger string, seen *ProviderMetadata) func() (any, error) {
	return func() (any, error) {
		if cur := c.current.Load(); cur != nil && cur != seen {
			return cur, nil
		}

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		md, err := c.fetch(fctx)
		if err != nil {
			c.failedAt.Store(c.now().UnixNano())
			c.fetches.Add(fctx, 1, metric.WithAttributes(
				attribute.String("outcome", "failure"), attribute.String("trigger", trigger)))
			if stale := c.current.Load(); stale != nil {
				c.logger.WarnContext(fctx, "auth: metadata refresh failed, keeping previous key set",
					"trigger", trigger,
					"age", c.now().Sub(stale.FetchedAt).String(),
					"error", err,
				)
			} else {
				c.logger.ErrorContext(fctx, "auth: metadata fetch failed",
					"trigger", trigger, "error", err)
			}
			return nil, err
		}

		c.current.Store(md)
		c.failedAt.Store(0)
		c.fetches.Add(fctx, 1, metric.WithAttributes(
			attribute.String("outcome", "success"), attribute.String("trigger", trigger)))
		c.logger.InfoContext(fctx, "auth: metadata refreshed",
			"trigger", trigger,
			"issuer", md.Issuer,
			"keys", len(md.SigningKeys),
		)
		return md, nil
	}
}

// fetch loads the discovery document and the key set it references.
func (c *MetadataCache) fetch(ctx context.Context) (_ *ProviderMetadata, err error) {
	ctx, span := startSpan(ctx, c.tracer, "auth.FetchMetadata")
	defer func() {
		finishSpan(span, err)
		span.End()
	}()
	span.SetAttributes(attribute.String("auth.discovery_url", c.discoveryURL))

	var doc discoveryDocument
	if err := c.getJSON(ctx, c.discoveryURL, &doc); err != nil {
		return nil, fetchError("discovery: %w", err)
	}
	if doc.JWKSURI == "" {
		return nil, fetchError("discovery document at %s has no jwks_uri", c.discoveryURL)
	}

	var set keySetDocument
	if err := c.getJSON(ctx, doc.JWKSURI, &set); err != nil {
		return nil, fetchError("key set: %w", err)
	}
	keys := c.decodeKeys(ctx, set.Keys)
	if len(keys) == 0 {
		return nil, fetchError("key set at %s has no usable signing keys", doc.JWKSURI)
	}
	span.SetAttributes(attribute.Int("auth.signing_keys", len(keys)))

	return &ProviderMetadata{
		Issuer:                doc.Issuer,
		JWKSURI:               doc.JWKSURI,
		TokenEndpoint:         doc.TokenEndpoint,
		AuthorizationEndpoint: doc.AuthorizationEndpoint,
		SigningKeys:           keys,
		FetchedAt:             c.now(),
	}, nil
}

func (c *MetadataCache) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return fmt.Errorf("read %s: %w", url, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// decodeKeys keeps the public signature keys that have an id. Keys that
// fail to decode, are symmetric, or are marked for encryption are
// skipped so one bad entry cannot take the whole set down.
func (c *MetadataCache) decodeKeys(ctx context.Context, raw []json.RawMessage) map[string]SigningKey {
	keys := make(map[string]SigningKey, len(raw))
	for i, r := range raw {
		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(r); err != nil {
			c.logger.DebugContext(ctx, "auth: skipping undecodable key", "index", i, "error", err)
			continue
		}
		if jwk.KeyID == "" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		if !jwk.IsPublic() {
			pub := jwk.Public()
			if !pub.Valid() {
				// Symmetric keys have no public half.
				continue
			}
			jwk = pub
		}

		sk := SigningKey{ID: jwk.KeyID, Algorithm: jwk.Algorithm, Key: jwk.Key}
		switch k := jwk.Key.(type) {
		case *rsa.PublicKey:
			sk.KeyType = "RSA"
		case *ecdsa.PublicKey:
			sk.KeyType = "EC"
			sk.Curve = k.Curve.Params().Name
		case ed25519.PublicKey:
			sk.KeyType = "OKP"
			sk.Curve = "Ed25519"
		default:
			continue
		}
		keys[sk.ID] = sk
	}
	return keys
}
