// Package handlers implements the SportsLeague HTTP functions: category
// and product reads, and cart and order CRUD including the random
// generators used for load and demo data.
//
// Every function is mounted at /api/{FunctionName} and expects
// auth.HTTPMiddleware in front of it; a request that reaches a function
// without a principal in its context is rejected with 401.
package handlers

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/ahems/SportsLeague/pkg/auth"
	"github.com/ahems/SportsLeague/pkg/catalog"
	"github.com/ahems/SportsLeague/pkg/store"
)

// Query string parameters naming a document id.
const (
	ParamCategoryID = "CategoryId"
	ParamProductID  = "productId"
	ParamCartID     = "CartId"
	ParamOrderID    = "OrderId"
)

// maxBodyBytes bounds a cart or order request body.
const maxBodyBytes = 1 << 20

// Random is the source of randomness for generated carts and orders.
type Random interface {
	// IntN returns a value in [0, n).
	IntN(n int) int
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
}

// globalRandom uses the math/rand/v2 top-level functions, which are safe
// for concurrent use.
type globalRandom struct{}

func (globalRandom) IntN(n int) int   { return rand.IntN(n) }
func (globalRandom) Float64() float64 { return rand.Float64() }

// Handler serves the functions. Create it with [New].
type Handler struct {
	store    store.Store
	catalog  catalog.ProductSource
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
	random   Random
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithClock overrides time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithRandom overrides the generator behind CreateRandomCart and
// CreateRandomOrder.
func WithRandom(r Random) Option {
	return func(h *Handler) { h.random = r }
}

// New returns a Handler over the document store and product catalog.
func New(s store.Store, products catalog.ProductSource, opts ...Option) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil function.
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	h := &Handler{
		store:    s,
		catalog:  products,
		validate: v,
		logger:   slog.Default(),
		now:      time.Now,
		random:   globalRandom{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts every function on mux under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	routes := []struct {
		method string
		name   string
		fn     http.HandlerFunc
	}{
		{http.MethodGet, "GetCategory", h.GetCategory},
		{http.MethodGet, "GetCategories", h.GetCategories},
		{http.MethodGet, "GetProduct", h.GetProduct},
		{http.MethodGet, "GetProducts", h.GetProducts},

		{http.MethodPost, "CreateCart", h.CreateCart},
		{http.MethodPost, "CreateRandomCart", h.CreateRandomCart},
		{http.MethodPut, "UpdateCart", h.UpdateCart},
		{http.MethodDelete, "DeleteCart", h.DeleteCart},
		{http.MethodGet, "GetCart", h.GetCart},
		{http.MethodGet, "GetCarts", h.GetCarts},

		{http.MethodPost, "CreateOrder", h.CreateOrder},
		{http.MethodPost, "CreateRandomOrder", h.CreateRandomOrder},
		{http.MethodPut, "UpdateOrder", h.UpdateOrder},
		{http.MethodDelete, "DeleteOrder", h.DeleteOrder},
		{http.MethodGet, "GetOrder", h.GetOrder},
		{http.MethodGet, "GetOrders", h.GetOrders},
	}
	for _, rt := range routes {
		mux.Handle(rt.method+" /api/"+rt.name, h.function(rt.name, rt.fn))
	}
}

// Healthz reports whether the document store is reachable. It is meant
// to be mounted outside the authentication middleware.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Health(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// function wraps fn with the principal check and the "<name> called"
// trace every function emits.
func (h *Handler) function(name string, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h.logger.InfoContext(r.Context(), name+" called", "function", name, "user", p.Name())
		fn(w, r)
	})
}

// queryParam reads a query parameter, matching its name without regard
// to case.
func queryParam(r *http.Request, name string) string {
	q := r.URL.Query()
	if v := q.Get(name); v != "" {
		return v
	}
	for k, vs := range q {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

// missingID is the 400 message for an absent id parameter. article is
// "a" or "an".
func missingID(article, param string) string {
	return "Please provide " + article + " " + param +
		" on the querystring e.g. ?" + param + "=f44774dc-7982-4dee-81ef-cfb462ceac8d"
}
