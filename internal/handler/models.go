package handler

import (
	"log/slog"
	"net/http"
	"time"

	"automatonbot/internal/capabilities"
	"automatonbot/internal/config"
	"automatonbot/internal/httputil"
)

// ModelsHandler handles HTTP requests for model capabilities
type ModelsHandler struct {
	config   *config.Config
	logger   *slog.Logger
	registry *capabilities.Registry
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(cfg *config.Config, logger *slog.Logger, registry *capabilities.Registry) *ModelsHandler {
	return &ModelsHandler{
		config:   cfg,
		logger:   logger,
		registry: registry,
	}
}

// ProviderResponse represents a provider with its models
type ProviderResponse struct {
	ID     string          `json:"id"`
	Active bool            `json:"active"`
	Models []ModelResponse `json:"models"`
}

// ModelResponse represents a model's capabilities for the API response
type ModelResponse struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Description   string `json:"description,omitempty"`
	ContextWindow int    `json:"context_window"`
	MaxOutput     int    `json:"max_output"`
	Default       bool   `json:"default"`
	Active        bool   `json:"active"`
}

// GetCapabilities returns the model catalog, flagging the model requests are sent to
// GET /api/models
func (h *ModelsHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	activeModel, err := h.registry.ResolveModel(h.config.LLMProvider, h.config.LLMModel)
	if err != nil {
		// misconfigured provider: still list the catalog
		h.logger.Warn("active model unresolved", "provider", h.config.LLMProvider, "error", err)
	}

	providers := []ProviderResponse{}
	for _, id := range h.registry.GetAllProviders() {
		models, err := h.registry.ListProviderModels(id)
		if err != nil {
			continue
		}
		providers = append(providers, h.convertProvider(id, activeModel, models))
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providers,
	})
}

func (h *ModelsHandler) convertProvider(id, activeModel string, models []capabilities.ModelCapabilities) ProviderResponse {
	active := id == h.config.LLMProvider
	out := ProviderResponse{
		ID:     id,
		Active: active,
		Models: make([]ModelResponse, 0, len(models)),
	}
	for _, m := range models {
		out.Models = append(out.Models, ModelResponse{
			ID:            m.ID,
			DisplayName:   m.DisplayName,
			Description:   m.Description,
			ContextWindow: m.ContextWindow,
			MaxOutput:     m.MaxOutput,
			Default:       m.Default,
			Active:        active && m.ID == activeModel,
		})
	}
	return out
}

// HealthCheck is a simple health check endpoint
// GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}
