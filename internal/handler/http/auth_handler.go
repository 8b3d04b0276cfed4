package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/user"
)

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	Name        string `json:"name" validate:"required"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"dateOfBirth"`
}

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Email           string  `json:"email" validate:"required"`
	Phone           *string `json:"phone,omitempty"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword" validate:"omitempty,min=6"`
}

// PasswordResetRequest may carry sender credentials from older clients.
// Reset codes are always mailed from the configured store account, so
// those fields are accepted and ignored.
type PasswordResetRequest struct {
	Email       string `json:"email" validate:"required"`
	SenderEmail string `json:"senderEmail,omitempty"`
	AppPassword string `json:"appPassword,omitempty"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required"`
	ResetCode   string `json:"resetCode" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

type UserResponse struct {
	Success bool          `json:"success"`
	User    *user.Profile `json:"user"`
}

type ValidateResponse struct {
	Valid bool          `json:"valid"`
	User  *user.Profile `json:"user"`
	Error string        `json:"error,omitempty"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type AuthHandler struct {
	service  user.Service
	validate *validator.Validate
}

func NewAuthHandler(service user.Service) *AuthHandler {
	return &AuthHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Get("/users", h.handleListUsers)
	router.Post("/auth/register", h.handleRegister)
	router.Post("/auth/login", h.handleLogin)
	router.Post("/auth/validate", h.handleValidate)
	router.Post("/auth/update-profile", h.handleUpdateProfile)
	router.Post("/auth/request-password-reset", h.handleRequestPasswordReset)
	router.Post("/auth/reset-password", h.handleResetPassword)
}

func (h *AuthHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to read users")
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var requestPayload RegisterRequest
	if err := decodeJSON(r, &requestPayload, false); err != nil {
		respondWithDecodeError(w, err)
		return
	}
	if !validateRequest(w, h.validate, requestPayload) {
		return
	}

	profile, err := h.service.Register(r.Context(), user.Registration{
		Email:       requestPayload.Email,
		Password:    requestPayload.Password,
		Name:        requestPayload.Name,
		Phone:       requestPayload.Phone,
		DateOfBirth: requestPayload.DateOfBirth,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to register user")
		return
	}
	respondWithJSON(w, http.StatusCreated, UserResponse{Success: true, User: profile})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload CredentialsRequest
	if err := decodeJSON(r, &requestPayload, false); err != nil {
		respondWithDecodeError(w, err)
		return
	}
	if !validateRequest(w, h.validate, requestPayload) {
		return
	}

	profile, err := h.service.Login(r.Context(), requestPayload.Email, requestPayload.Password)
	if err != nil {
		respondWithServiceError(w, err, "Failed to login")
		return
	}
	respondWithJSON(w, http.StatusOK, UserResponse{Success: true, User: profile})
}

// handleValidate answers 200 with valid=false for unknown users and wrong
// passwords; only a malformed request is an error.
func (h *AuthHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var requestPayload CredentialsRequest
	if err := decodeJSON(r, &requestPayload, false); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	profile, valid, err := h.service.Validate(r.Context(), requestPayload.Email, requestPayload.Password)
	if err != nil {
		code := mapErrorToStatusCode(err)
		respondWithJSON(w, code, ValidateResponse{Valid: false, Error: clientMessage(err)})
		return
	}
	respondWithJSON(w, http.StatusOK, ValidateResponse{Valid: valid, User: profile})
}

func (h *AuthHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var requestPayload UpdateProfileRequest
	if err := decodeJSON(r, &requestPayload, false); err != nil {
		respondWithDecodeError(w, err)
		return
	}
	if !validateRequest(w, h.validate, requestPayload) {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), user.ProfileUpdate{
		Email:           requestPayload.Email,
		Phone:           requestPayload.Phone,
		CurrentPassword: requestPayload.CurrentPassword,
		NewPassword:     requestPayload.NewPassword,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update profile")
		return
	}
	respondWithJSON(w, http.StatusOK, UserResponse{Success: true, User: profile})
}

func (h *AuthHandler) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var requestPayload PasswordResetRequest
	if err := decodeJSON(r, &requestPayload, false); err != nil {
		respondWithDecodeError(w, err)
		return
	}
	if !validateRequest(w, h.validate, requestPayload) {
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), requestPayload.Email); err != nil {
		respondWithServiceError(w, err, "Failed to process reset request")
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Reset code sent to email if account exists"})
}

func (h *AuthHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var requestPayload ResetPasswordRequest
	if err := decodeJSON(r, &requestPayload, false); err != nil {
		respondWithDecodeError(w, err)
		return
	}
	if !validateRequest(w, h.validate, requestPayload) {
		return
	}

	err := h.service.ResetPassword(r.Context(), requestPayload.Email, requestPayload.ResetCode, requestPayload.NewPassword)
	if err != nil {
		respondWithServiceError(w, err, "Failed to reset password")
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Password has been reset successfully"})
}
