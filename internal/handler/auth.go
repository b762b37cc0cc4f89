package handler

import (
	"log/slog"
	"net/http"

	"automatonbot/internal/domain/services"
	"automatonbot/internal/httputil"
)

// AuthHandler serves account registration and token issuance
type AuthHandler struct {
	authService services.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register creates an account
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var creds services.Credentials
	if err := httputil.ParseJSON(w, r, &creds); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.authService.Register(r.Context(), &creds)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, token)
}

// Login exchanges credentials for a token
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds services.Credentials
	if err := httputil.ParseJSON(w, r, &creds); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.authService.Login(r.Context(), &creds)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, token)
}

// Logout is client-side; tokens are stateless and simply expire
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	httputil.RespondMessage(w, http.StatusOK, "Logged out successfully")
}

// Refresh issues a new token for the authenticated caller
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	token, err := h.authService.Refresh(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, token)
}
