package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/settings"
)

type SettingsHandler struct {
	service settings.Service
}

func NewSettingsHandler(service settings.Service) *SettingsHandler {
	return &SettingsHandler{service: service}
}

func (h *SettingsHandler) RegisterRoutes(router chi.Router) {
	router.Get("/config", h.handleGetConfig)
	router.Put("/config", h.handleReplaceConfig)
}

func (h *SettingsHandler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Get(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to read config")
		return
	}
	respondWithJSON(w, http.StatusOK, doc)
}

func (h *SettingsHandler) handleReplaceConfig(w http.ResponseWriter, r *http.Request) {
	var doc settings.Document
	if err := decodeJSON(r, &doc, false); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	if err := h.service.Replace(r.Context(), doc); err != nil {
		respondWithServiceError(w, err, "Failed to save config")
		return
	}
	respondWithSuccess(w)
}
