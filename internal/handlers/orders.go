package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/ahems/SportsLeague/pkg/models"
	"github.com/ahems/SportsLeague/pkg/store"
)

const (
	maxRandomOrderQuantity = 9
	maxRandomUnitPrice     = 98
)

// CreateOrder validates and stores the posted order, assigning an id when
// it has none.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var order models.Order
	if err := decodeBody(w, r, &order); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, h.logger, err)
		return
	}
	if len(order.OrderDetails) == 0 {
		writeText(w, http.StatusBadRequest, "Order Details are required.")
		return
	}
	if err := h.validate.Struct(&order); err != nil {
		h.logger.DebugContext(r.Context(), "order rejected", "error", err)
		writeText(w, http.StatusBadRequest, "Incomplete Order Data")
		return
	}
	if models.Blank(order.ID) {
		order.ID = models.NewID()
	}
	h.saveOrder(w, r, &order)
}

// CreateRandomOrder builds an order from distinct catalog products with
// random quantities and prices and placeholder customer details.
func (h *Handler) CreateRandomOrder(w http.ResponseWriter, r *http.Request) {
	products, ok := h.catalogProducts(w, r)
	if !ok {
		return
	}

	picked := h.pickProducts(products)
	h.logger.InfoContext(r.Context(), "making a random order", "order_details", len(picked))

	details := make([]models.OrderDetail, 0, len(picked))
	for i, p := range picked {
		details = append(details, models.OrderDetail{
			LineItemNumber: i,
			ProductID:      p.ID,
			Quantity:       1 + h.random.IntN(maxRandomOrderQuantity),
			UnitPrice:      float64(1+h.random.IntN(maxRandomUnitPrice)) + h.random.Float64(),
		})
	}

	order := placeholderOrder()
	order.ID = models.NewID()
	order.OrderDate = h.now().UTC()
	order.OrderDetails = details
	h.saveOrder(w, r, order)
}

// UpdateOrder replaces an order with the posted body as is.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var order models.Order
	if err := decodeBody(w, r, &order); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, h.logger, err)
		return
	}
	h.saveOrder(w, r, &order)
}

// DeleteOrder removes the order named by ?OrderId.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	h.deleteDocument(w, r, models.PartitionOrder, queryParam(r, ParamOrderID), missingID("an", ParamOrderID))
}

// GetOrder returns the order named by ?OrderId.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := queryParam(r, ParamOrderID)
	if models.Blank(id) {
		writeText(w, http.StatusBadRequest, missingID("a", ParamOrderID))
		return
	}
	var order models.Order
	if err := h.store.Get(r.Context(), models.PartitionOrder, id, &order); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &order)
}

// GetOrders lists orders, newest first. An empty list is 404.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	var orders []models.Order
	q := store.Query{OrderBy: "OrderDate", Descending: true}
	if err := h.store.Query(r.Context(), models.PartitionOrder, q, &orders); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) saveOrder(w http.ResponseWriter, r *http.Request, order *models.Order) {
	models.Stamp(order)
	if err := h.store.Upsert(r.Context(), models.PartitionOrder, order.ID, order); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func placeholderOrder() *models.Order {
	return &models.Order{
		Address:              "Address Line 1",
		City:                 "City",
		Country:              "Country",
		Email:                "email@address.com",
		FirstName:            "First Name",
		HasBeenShipped:       true,
		LastName:             "Last Name",
		PaymentTransactionID: "PaymentTransdactionId",
		Phone:                "(555) 123-4567",
		PostalCode:           "PostalCode",
		ReceiptURL:           "http://www.ReceiptUrl.com",
		SMSOptIn:             "true",
		SMSStatus:            "SMSStatus",
		State:                "State",
		Total:                123.45,
	}
}
