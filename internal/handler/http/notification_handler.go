package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/notify"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
)

// Notifier sends emails on explicit request. *notify.Dispatcher implements it.
type Notifier interface {
	SendConfirmationCode(ctx context.Context, req notify.ConfirmationCodeRequest) error
	SendOrderConfirmation(ctx context.Context, o order.Order, creds notify.Credentials) error
}

// Sender credentials are optional; the configured store account is used
// when they are absent.
type ConfirmationCodeRequest struct {
	Email       string `json:"email" validate:"required"`
	UserName    string `json:"userName"`
	Code        string `json:"code" validate:"required"`
	SenderEmail string `json:"senderEmail"`
	AppPassword string `json:"appPassword"`
}

// OrderConfirmationRequest asks for another copy of an order's confirmation.
// Creating an order already queues one, so callers use this only to resend.
type OrderConfirmationRequest struct {
	Order       *order.Order `json:"order" validate:"required"`
	SenderEmail string       `json:"senderEmail"`
	AppPassword string       `json:"appPassword"`
}

type DispatchResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type NotificationHandler struct {
	notifier Notifier
	validate *validator.Validate
}

func NewNotificationHandler(notifier Notifier) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		validate: newValidator(),
	}
}

func (h *NotificationHandler) RegisterRoutes(router chi.Router) {
	router.Post("/send-confirmation-code", h.handleSendConfirmationCode)
	router.Post("/send-order-confirmation", h.handleSendOrderConfirmation)
}

func (h *NotificationHandler) handleSendConfirmationCode(w http.ResponseWriter, r *http.Request) {
	var requestPayload ConfirmationCodeRequest
	if err := decodeJSON(r, &requestPayload, false); err != nil {
		respondWithDecodeError(w, err)
		return
	}
	if !validateRequest(w, h.validate, requestPayload) {
		return
	}

	err := h.notifier.SendConfirmationCode(r.Context(), notify.ConfirmationCodeRequest{
		To:   requestPayload.Email,
		Name: requestPayload.UserName,
		Code: requestPayload.Code,
		Credentials: notify.Credentials{
			Email:       requestPayload.SenderEmail,
			AppPassword: requestPayload.AppPassword,
		},
	})
	if err != nil {
		respondWithDispatchError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, DispatchResponse{Success: true, Message: "Confirmation code email sent"})
}

// handleSendOrderConfirmation mails the confirmation synchronously. It is a
// resend; checkout must not call it after POST /orders.
func (h *NotificationHandler) handleSendOrderConfirmation(w http.ResponseWriter, r *http.Request) {
	var requestPayload OrderConfirmationRequest
	if err := decodeJSON(r, &requestPayload, false); err != nil {
		respondWithDecodeError(w, err)
		return
	}
	if !validateRequest(w, h.validate, requestPayload) {
		return
	}

	err := h.notifier.SendOrderConfirmation(r.Context(), *requestPayload.Order, notify.Credentials{
		Email:       requestPayload.SenderEmail,
		AppPassword: requestPayload.AppPassword,
	})
	if err != nil {
		respondWithDispatchError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, DispatchResponse{Success: true, Message: "Order confirmation email sent"})
}

func respondWithDispatchError(w http.ResponseWriter, err error) {
	code := mapErrorToStatusCode(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Failed to send email")
		respondWithJSON(w, code, DispatchResponse{Success: false, Error: err.Error()})
		return
	}
	respondWithError(w, code, clientMessage(err))
}
