package handlers

import (
	"errors"
	"io"
	"net/http"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
	"github.com/ahems/SportsLeague/pkg/models"
	"github.com/ahems/SportsLeague/pkg/store"
)

// Generated carts hold between 1 and 14 of each product.
const maxRandomCartQuantity = 14

// CreateCart stores the posted cart, filling in a missing id and
// creation time. An empty body creates an empty cart.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var cart models.Cart
	switch err := decodeBody(w, r, &cart); {
	case errors.Is(err, io.EOF):
		cart = *models.NewCart(h.now())
	case err != nil:
		writeError(w, r, h.logger, err)
		return
	default:
		if models.Blank(cart.ID) {
			cart.ID = models.NewID()
		}
		if cart.DateCreated.IsZero() {
			cart.DateCreated = h.now().UTC()
		}
		if cart.CartItems == nil {
			cart.CartItems = []models.CartItem{}
		}
	}
	h.saveCart(w, r, &cart)
}

// CreateRandomCart builds a cart from distinct catalog products with
// random quantities.
func (h *Handler) CreateRandomCart(w http.ResponseWriter, r *http.Request) {
	products, ok := h.catalogProducts(w, r)
	if !ok {
		return
	}

	picked := h.pickProducts(products)
	h.logger.InfoContext(r.Context(), "making a random cart", "cart_items", len(picked))

	cart := models.NewCart(h.now())
	for _, p := range picked {
		cart.CartItems = append(cart.CartItems, models.CartItem{
			CartItemID: models.NewID(),
			ProductID:  p.ID,
			Quantity:   1 + h.random.IntN(maxRandomCartQuantity),
		})
	}
	h.saveCart(w, r, cart)
}

// UpdateCart replaces a cart. The body must carry the cart's id.
func (h *Handler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	var cart models.Cart
	if err := decodeBody(w, r, &cart); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, h.logger, err)
		return
	}
	if models.Blank(cart.ID) {
		writeText(w, http.StatusBadRequest, "Please provide a Cart ID")
		return
	}
	if cart.DateCreated.IsZero() {
		cart.DateCreated = h.now().UTC()
	}
	h.saveCart(w, r, &cart)
}

// DeleteCart removes the cart named by ?CartId.
func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	h.deleteDocument(w, r, models.PartitionCart, queryParam(r, ParamCartID), missingID("a", ParamCartID))
}

// GetCart returns the cart named by ?CartId.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	id := queryParam(r, ParamCartID)
	if models.Blank(id) {
		writeText(w, http.StatusBadRequest, missingID("a", ParamCartID))
		return
	}
	var cart models.Cart
	if err := h.store.Get(r.Context(), models.PartitionCart, id, &cart); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &cart)
}

// GetCarts lists carts, oldest first. No carts is an empty list.
func (h *Handler) GetCarts(w http.ResponseWriter, r *http.Request) {
	var carts []models.Cart
	if err := h.store.Query(r.Context(), models.PartitionCart, store.Query{OrderBy: "DateCreated"}, &carts); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, carts)
}

func (h *Handler) saveCart(w http.ResponseWriter, r *http.Request, cart *models.Cart) {
	models.Stamp(cart)
	if err := h.store.Upsert(r.Context(), models.PartitionCart, cart.ID, cart); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// deleteDocument answers 404 when nothing was removed and 400 for any
// other store failure.
func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request, partition, id, missing string) {
	if models.Blank(id) {
		writeText(w, http.StatusBadRequest, missing)
		return
	}
	err := h.store.Delete(r.Context(), partition, id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case sserr.IsNotFound(err):
		w.WriteHeader(http.StatusNotFound)
	default:
		h.logger.WarnContext(r.Context(), "delete failed", "partition", partition, "id", id, "error", err)
		writeText(w, http.StatusBadRequest, err.Error())
	}
}
