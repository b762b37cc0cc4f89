package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"automatonbot/internal/domain"
	"automatonbot/internal/metrics"
)

const (
	// DefaultModel is used when no model is configured
	DefaultModel = "gemini-1.5-flash"
	// DefaultMaxRetries is how many overload responses are retried before giving up
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the wait after the first overload; it doubles each retry
	DefaultBaseDelay = 5 * time.Second
	// DefaultTimeout bounds a single attempt
	DefaultTimeout = 60 * time.Second

	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/"
)

// EndpointForModel returns the generateContent URL for a Gemini model
func EndpointForModel(model string) string {
	if model == "" {
		model = DefaultModel
	}
	return geminiBaseURL + model + ":generateContent"
}

// Config is built once at startup and never mutated afterwards.
// Zero values take the defaults above; a negative MaxRetries disables retrying.
type Config struct {
	APIKey     string
	Endpoint   string
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration
	// RetryableStatuses defaults to 429 and 503
	RetryableStatuses []int
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = EndpointForModel(DefaultModel)
	}
	switch {
	case c.MaxRetries == 0:
		c.MaxRetries = DefaultMaxRetries
	case c.MaxRetries < 0:
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if len(c.RetryableStatuses) == 0 {
		c.RetryableStatuses = []int{http.StatusTooManyRequests, http.StatusServiceUnavailable}
	}
	return c
}

// GeminiClient calls the Gemini generateContent endpoint, retrying overload
// responses with exponential backoff.
type GeminiClient struct {
	cfg        Config
	httpClient *http.Client
	metrics    *metrics.Collector
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewGeminiClient creates a Gemini client. collector may be nil.
func NewGeminiClient(cfg Config, collector *metrics.Collector, logger *slog.Logger) *GeminiClient {
	cfg = cfg.withDefaults()
	return &GeminiClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: collector,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Name returns the provider name.
func (c *GeminiClient) Name() string {
	return "gemini"
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Send posts prompt to Gemini and returns candidates[0].content.parts[0].text.
// After the i-th overload response it waits BaseDelay*2^i; once MaxRetries
// retries are spent the overload is returned.
func (c *GeminiClient) Send(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: LLM_API_KEY is not configured", domain.ErrConfiguration)
	}

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		text, err := c.attempt(ctx, payload)
		if err == nil {
			return text, nil
		}

		if !errors.Is(err, domain.ErrUpstreamOverloaded) || attempt >= c.cfg.MaxRetries {
			return "", err
		}

		delay := c.cfg.BaseDelay << attempt
		c.logger.Warn("llm provider overloaded, retrying",
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"delay", delay,
		)
		c.metrics.IncLLMRetry()

		if err := c.sleep(ctx, delay); err != nil {
			return "", &domain.UpstreamError{Message: "retry wait cancelled", Err: err}
		}
	}
}

// attempt performs one HTTP round trip
func (c *GeminiClient) attempt(ctx context.Context, payload []byte) (string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveLLMAttempt(metrics.OutcomeUnavailable, time.Since(start))
		return "", &domain.UpstreamError{Message: "unable to connect to LLM API", Err: err}
	}
	defer func() { _ = resp.Body.Close() }() // Error ignored: response consumed

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveLLMAttempt(metrics.OutcomeUnavailable, time.Since(start))
		return "", &domain.UpstreamError{StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstream := &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(resp.StatusCode, body),
			Overloaded: slices.Contains(c.cfg.RetryableStatuses, resp.StatusCode),
		}
		outcome := metrics.OutcomeError
		if upstream.Overloaded {
			outcome = metrics.OutcomeOverloaded
		}
		c.metrics.ObserveLLMAttempt(outcome, time.Since(start))
		return "", upstream
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.metrics.ObserveLLMAttempt(metrics.OutcomeError, time.Since(start))
		return "", &domain.UpstreamError{StatusCode: resp.StatusCode, Message: "failed to parse response", Err: err}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		c.metrics.ObserveLLMAttempt(metrics.OutcomeError, time.Since(start))
		return "", &domain.UpstreamError{StatusCode: resp.StatusCode, Message: "response contained no candidates"}
	}

	c.metrics.ObserveLLMAttempt(metrics.OutcomeSuccess, time.Since(start))
	c.logger.Debug("llm response received",
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// upstreamMessage prefers error.message from a Gemini error body
func upstreamMessage(status int, body []byte) string {
	var errBody geminiErrorBody
	if err := json.Unmarshal(body, &errBody); err == nil && errBody.Error.Message != "" {
		return errBody.Error.Message
	}
	if len(body) > 0 && len(body) <= 512 {
		return string(body)
	}
	return http.StatusText(status)
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
