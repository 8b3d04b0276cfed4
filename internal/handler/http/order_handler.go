package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
)

// CreateOrderRequest is the checkout payload. Client-supplied id, total,
// status and date are not part of it and are ignored if sent.
type CreateOrderRequest struct {
	UserID          string              `json:"userId" validate:"required"`
	UserName        string              `json:"userName"`
	UserPhone       string              `json:"userPhone"`
	Items           []order.Item        `json:"items" validate:"required,min=1"`
	PaymentMethod   order.PaymentMethod `json:"paymentMethod" validate:"required,oneof=cash pickup"`
	DeliveryAddress string              `json:"deliveryAddress"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Get("/orders", h.handleListOrders)
	router.Post("/orders", h.handleCreateOrder)
	router.Get("/orders/{id}", h.handleGetOrder)
	router.Get("/orders/{id}/summary", h.handleGetSummary)
	router.Put("/orders/{id}", h.handleUpdateOrder)
	router.Delete("/orders/{id}", h.handleDeleteOrder)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to read orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateOrderRequest
	if err := decodeJSON(r, &requestPayload, false); err != nil {
		respondWithDecodeError(w, err)
		return
	}
	if !validateRequest(w, h.validate, requestPayload) {
		return
	}

	created, err := h.service.CreateOrder(r.Context(), &order.Order{
		UserID:          requestPayload.UserID,
		UserName:        requestPayload.UserName,
		UserPhone:       requestPayload.UserPhone,
		Items:           requestPayload.Items,
		PaymentMethod:   requestPayload.PaymentMethod,
		DeliveryAddress: requestPayload.DeliveryAddress,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to save order")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	found, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to read order")
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}

func (h *OrderHandler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	summary, err := h.service.Summarize(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to summarize order")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// handleUpdateOrder accepts only {status?, deliveryAddress?}; any other field
// is rejected rather than merged into the stored order.
func (h *OrderHandler) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	var requestPayload order.UpdateRequest
	if err := decodeJSON(r, &requestPayload, true); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	updated, err := h.service.UpdateOrder(r.Context(), id, requestPayload)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order")
		return
	}

	log.Info().Str("order_id", id).Str("status", updated.Status.String()).Msg("Order updated")
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *OrderHandler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete order")
		return
	}
	respondWithSuccess(w)
}
