package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"automatonbot/internal/domain"
	"automatonbot/internal/httputil"
)

// OverloadedMessage is shown when the model provider keeps rejecting requests
const OverloadedMessage = "The Gemini API is currently overloaded. Please try again in a few minutes."

// PathParam reads a required path value, answering 400 when it is empty
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		httputil.RespondError(w, http.StatusBadRequest, label+" is required")
		return "", false
	}
	return value, true
}

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var httpErr domain.HTTPError

	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidStructure):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &httpErr):
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUpstreamOverloaded):
		httputil.RespondError(w, http.StatusServiceUnavailable, OverloadedMessage)
	case errors.Is(err, domain.ErrUpstreamError):
		httputil.RespondError(w, http.StatusBadGateway, upstreamMessage(err))
	default:
		slog.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func upstreamMessage(err error) string {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) && upstream.Message != "" {
		return "LLM request failed: " + upstream.Message
	}
	return "LLM request failed"
}
