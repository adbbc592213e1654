// Package catalog reads the product list from the SportsLeague API
// Management endpoint. The random cart and order generators draw their
// products from it.
//
// Requests carry the subscription key and forward the caller's bearer
// token from the request context (see auth.ContextWithBearerToken). A
// circuit breaker stops calling an upstream that keeps failing.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/eapache/go-resiliency/breaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahems/SportsLeague/pkg/auth"
	"github.com/ahems/SportsLeague/pkg/config"
	sserr "github.com/ahems/SportsLeague/pkg/errors"
	"github.com/ahems/SportsLeague/pkg/models"
)

const (
	tracerName = "github.com/ahems/SportsLeague/pkg/catalog"

	// HeaderSubscriptionKey authenticates the service to API Management.
	HeaderSubscriptionKey = "Ocp-Apim-Subscription-Key"
)

// ProductSource lists catalog products. *Client implements it.
type ProductSource interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
}

// Client is safe for concurrent use.
type Client struct {
	url     string
	key     config.Secret
	http    HTTPClient
	breaker *breaker.Breaker
	tracer  trace.Tracer
	logger  *slog.Logger
}

var _ ProductSource = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTracer sets the tracer. Defaults to the global provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// New validates cfg and returns a client. A missing subscription key is
// not an error here; see [Client.GetProducts].
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, sserr.Wrap(err, sserr.CodeValidation, "catalog: invalid configuration")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(auth.NewBearerTransport(http.DefaultTransport)),
		}
	}

	c := &Client{
		url:     cfg.productsURL(),
		key:     cfg.SubscriptionKey,
		http:    httpClient,
		breaker: breaker.New(cfg.BreakerFailures, cfg.BreakerSuccesses, cfg.BreakerCooldown),
		tracer:  otel.Tracer(tracerName),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetProducts returns every product in the catalog, possibly none.
//
// Error codes:
//   - [sserr.CodeInternalConfiguration]: no subscription key configured
//   - [sserr.CodeAuthentication]: no bearer token in ctx to forward
//   - [sserr.CodeUnavailableDependency]: upstream failure, or the breaker is open
//   - [sserr.CodeTimeoutDependency]: ctx ended first
func (c *Client) GetProducts(ctx context.Context) ([]models.Product, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.GetProducts", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	products, err := c.getProducts(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("catalog.products", len(products)))
	span.SetStatus(codes.Ok, "")
	return products, nil
}

func (c *Client) getProducts(ctx context.Context) ([]models.Product, error) {
	if !c.key.IsSet() {
		return nil, sserr.New(sserr.CodeInternalConfiguration,
			"catalog: missing subscription key (CATALOG_SUBSCRIPTION_KEY)")
	}
	if _, ok := auth.BearerTokenFromContext(ctx); !ok {
		return nil, sserr.Unauthorized("catalog: no bearer token to forward")
	}

	var (
		products []models.Product
		rejected error
	)
	err := c.breaker.Run(func() error {
		var err error
		products, err = c.fetch(ctx)
		// Only upstream faults count toward opening the breaker.
		if err != nil && !sserr.IsUnavailable(err) {
			rejected = err
			return nil
		}
		return err
	})
	switch {
	case errors.Is(err, breaker.ErrBreakerOpen):
		c.logger.WarnContext(ctx, "catalog circuit open, failing fast", "url", c.url)
		return nil, sserr.Wrap(err, sserr.CodeUnavailableDependency, "catalog: circuit open")
	case err != nil:
		return nil, err
	case rejected != nil:
		return nil, rejected
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (c *Client) fetch(ctx context.Context) ([]models.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, sserr.Wrap(err, sserr.CodeInternal, "catalog: build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderSubscriptionKey, c.key.Value())

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, sserr.Wrap(err, sserr.CodeTimeoutDependency, "catalog: request abandoned")
		}
		return nil, sserr.Wrap(err, sserr.CodeUnavailableDependency, "catalog: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, sserr.Newf(sserr.CodeUnavailableDependency,
			"catalog: GetProducts returned status %d", resp.StatusCode).
			WithDetail("status", resp.StatusCode)
	}

	var products []models.Product
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	if err := dec.Decode(&products); err != nil {
		return nil, sserr.Wrap(err, sserr.CodeUnavailableDependency,
			fmt.Sprintf("catalog: invalid product list from %s", c.url))
	}
	c.logger.DebugContext(ctx, "catalog products fetched", "count", len(products))
	return products, nil
}
