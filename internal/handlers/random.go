package handlers

import (
	"net/http"

	"github.com/ahems/SportsLeague/pkg/models"
)

// catalogProducts fetches the catalog for a random generator. It writes
// the response itself and returns false when there is nothing to pick
// from.
func (h *Handler) catalogProducts(w http.ResponseWriter, r *http.Request) ([]models.Product, bool) {
	products, err := h.catalog.GetProducts(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return nil, false
	}
	if len(products) == 0 {
		writeText(w, http.StatusBadRequest, "No Products Found")
		return nil, false
	}
	return products, true
}

// pickProducts draws between 1 and max(n-1, 1) distinct products
// uniformly at random. products is not modified.
func (h *Handler) pickProducts(products []models.Product) []models.Product {
	pool := append([]models.Product(nil), products...)
	count := 1 + h.random.IntN(max(len(pool)-1, 1))

	picked := make([]models.Product, 0, count)
	for range count {
		i := h.random.IntN(len(pool))
		picked = append(picked, pool[i])
		pool[i] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}
	return picked
}
