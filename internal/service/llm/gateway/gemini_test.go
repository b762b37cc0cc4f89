package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automatonbot/internal/domain"
	"automatonbot/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedServer replies with the given statuses in order, then 200 forever.
func scriptedServer(t *testing.T, statuses []int, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(calls, 1)) - 1

		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		var body geminiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body.Contents[0].Parts[0].Text)

		if n < len(statuses) {
			w.WriteHeader(statuses[n])
			_, _ = w.Write([]byte(`{"error":{"code":503,"message":"The model is overloaded.","status":"UNAVAILABLE"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"model says hi"}]}}]}`))
	}))
}

func newTestClient(endpoint string, collector *metrics.Collector) (*GeminiClient, *[]time.Duration) {
	client := NewGeminiClient(Config{
		APIKey:     "test-key",
		Endpoint:   endpoint,
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
	}, collector, discardLogger())

	var waits []time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return client, &waits
}

func TestGeminiClient_Success(t *testing.T) {
	var calls int32
	srv := scriptedServer(t, nil, &calls)
	defer srv.Close()

	client, waits := newTestClient(srv.URL, nil)
	text, err := client.Send(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "model says hi", text)
	assert.Equal(t, int32(1), calls)
	assert.Empty(t, *waits)
}

func TestGeminiClient_ThreeOverloadsThenSuccess(t *testing.T) {
	var calls int32
	srv := scriptedServer(t, []int{503, 503, 503}, &calls)
	defer srv.Close()

	collector := metrics.NewCollector("test")
	client, waits := newTestClient(srv.URL, collector)
	text, err := client.Send(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "model says hi", text)
	assert.Equal(t, int32(4), calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}, *waits)
}

func TestGeminiClient_FourthOverloadSurfaces(t *testing.T) {
	var calls int32
	srv := scriptedServer(t, []int{503, 429, 503, 503, 503}, &calls)
	defer srv.Close()

	client, waits := newTestClient(srv.URL, nil)
	_, err := client.Send(context.Background(), "hello")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamOverloaded))
	assert.Equal(t, int32(4), calls, "no attempt after the cap")
	assert.Len(t, *waits, 3)

	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)
	assert.Equal(t, "The model is overloaded.", upstream.Message)
}

func TestGeminiClient_NonRetryableStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid.","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	client, waits := newTestClient(srv.URL, nil)
	_, err := client.Send(context.Background(), "hello")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamError))
	assert.False(t, errors.Is(err, domain.ErrUpstreamOverloaded))
	assert.Contains(t, err.Error(), "API key not valid.")
	assert.Equal(t, int32(1), calls)
	assert.Empty(t, *waits)
}

func TestGeminiClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL, nil)
	_, err := client.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrUpstreamError)
}

func TestGeminiClient_MissingAPIKey(t *testing.T) {
	var calls int32
	srv := scriptedServer(t, nil, &calls)
	defer srv.Close()

	client := NewGeminiClient(Config{Endpoint: srv.URL}, nil, discardLogger())
	_, err := client.Send(context.Background(), "hello")

	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, int32(0), calls, "no network attempt without a key")
}

func TestGeminiClient_CancelledDuringBackoff(t *testing.T) {
	var calls int32
	srv := scriptedServer(t, []int{503, 503, 503, 503}, &calls)
	defer srv.Close()

	client := NewGeminiClient(Config{
		APIKey:    "test-key",
		Endpoint:  srv.URL,
		BaseDelay: time.Hour,
	}, nil, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Send(ctx, "hello")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), calls)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestEndpointForModel(t *testing.T) {
	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent",
		EndpointForModel(""))
	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent",
		EndpointForModel("gemini-2.0-flash"))
}
