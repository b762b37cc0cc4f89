package gateway

import (
	"fmt"
	"log/slog"
	"time"

	"automatonbot/internal/capabilities"
	"automatonbot/internal/config"
	"automatonbot/internal/domain"
	llmSvc "automatonbot/internal/domain/services/llm"
	"automatonbot/internal/metrics"
)

// Setup builds the gateway selected by LLM_PROVIDER.
// The model is resolved against the capability registry so a typo falls back
// to the provider default instead of failing every request upstream.
func Setup(cfg *config.Config, registry *capabilities.Registry, collector *metrics.Collector, logger *slog.Logger) (llmSvc.Gateway, error) {
	model, err := registry.ResolveModel(cfg.LLMProvider, cfg.LLMModel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	if model != cfg.LLMModel {
		logger.Warn("configured model not in catalog, using provider default",
			"provider", cfg.LLMProvider,
			"configured", cfg.LLMModel,
			"model", model,
		)
	}

	switch cfg.LLMProvider {
	case "gemini":
		caps, _ := registry.GetModelCapabilities(cfg.LLMProvider, model)

		endpoint := cfg.LLMAPIURL
		if endpoint == "" {
			endpoint = EndpointForModel(model)
		}
		if cfg.LLMAPIKey == "" {
			// Requests fail with a configuration error until a key is set
			logger.Warn("LLM_API_KEY not set - gemini requests will fail")
		}

		gcfg := Config{
			APIKey:     cfg.LLMAPIKey,
			Endpoint:   endpoint,
			MaxRetries: cfg.LLMMaxRetries,
			BaseDelay:  cfg.LLMRetryBaseDelay,
			Timeout:    cfg.LLMTimeout,
		}
		if caps != nil {
			gcfg.RetryableStatuses = caps.RetryableStatuses
		}
		if gcfg.MaxRetries == 0 {
			// LLM_MAX_RETRIES=0 means no retries here, not "use the default"
			gcfg.MaxRetries = -1
		}

		logger.Info("llm gateway initialized", "provider", "gemini", "model", model)
		return NewGeminiClient(gcfg, collector, logger), nil

	case "lorem":
		logger.Info("llm gateway initialized", "provider", "lorem", "model", model)
		return NewLoremGateway(model), nil

	default:
		return nil, fmt.Errorf("%w: unsupported LLM_PROVIDER %q", domain.ErrConfiguration, cfg.LLMProvider)
	}
}

// WorstCaseLatency is the longest a single Send can take: every attempt
// timing out plus every backoff wait.
func WorstCaseLatency(cfg *config.Config) time.Duration {
	retries := max(cfg.LLMMaxRetries, 0)
	timeout := cfg.LLMTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := cfg.LLMRetryBaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}

	total := time.Duration(retries+1) * timeout
	for i := 0; i < retries; i++ {
		total += base << i
	}
	return total
}
