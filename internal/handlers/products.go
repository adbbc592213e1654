package handlers

import (
	"net/http"

	"github.com/ahems/SportsLeague/pkg/models"
	"github.com/ahems/SportsLeague/pkg/store"
)

// GetCategory returns the category named by ?CategoryId.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id := queryParam(r, ParamCategoryID)
	if models.Blank(id) {
		writeText(w, http.StatusBadRequest, missingID("a", ParamCategoryID))
		return
	}
	var c models.Category
	if err := h.store.Get(r.Context(), models.PartitionCategory, id, &c); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &c)
}

// GetCategories lists categories by CategoryId. An empty list is 404.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	var cs []models.Category
	if err := h.store.Query(r.Context(), models.PartitionCategory, store.Query{OrderBy: "CategoryId"}, &cs); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if len(cs) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// GetProduct returns the product named by ?productId.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := queryParam(r, ParamProductID)
	if models.Blank(id) {
		writeText(w, http.StatusBadRequest, missingID("a", ParamProductID))
		return
	}
	var p models.Product
	if err := h.store.Get(r.Context(), models.PartitionProduct, id, &p); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &p)
}

// GetProducts lists products by ProductId. An empty list is 404.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	var ps []models.Product
	if err := h.store.Query(r.Context(), models.PartitionProduct, store.Query{OrderBy: "ProductId"}, &ps); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if len(ps) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}
