package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automatonbot/internal/auth"
	"automatonbot/internal/httputil"
	"automatonbot/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoUser replies with the user id the middleware stored
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, "user="+httputil.GetUserID(r))
})

func TestAuth(t *testing.T) {
	verifier, err := auth.NewHS256Verifier("secret", time.Hour, "automatonbot", discardLogger())
	require.NoError(t, err)
	token, err := verifier.Generate("user-1")
	require.NoError(t, err)

	handler := Auth(verifier, discardLogger())(echoUser)

	tests := []struct {
		name       string
		method     string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", http.MethodGet, "/api/automaton/history", "Bearer " + token, http.StatusOK, "user=user-1"},
		{"missing header", http.MethodGet, "/api/automaton/history", "", http.StatusUnauthorized, "missing authorization header"},
		{"wrong scheme", http.MethodGet, "/api/automaton/history", "Basic abc", http.StatusUnauthorized, "invalid authorization header format"},
		{"empty token", http.MethodGet, "/api/automaton/history", "Bearer ", http.StatusUnauthorized, "empty token"},
		{"garbage token", http.MethodPost, "/api/automaton", "Bearer not.a.jwt", http.StatusUnauthorized, "invalid or expired token"},
		{"public login", http.MethodPost, "/api/auth/login", "", http.StatusOK, "user="},
		{"public health", http.MethodGet, "/health", "", http.StatusOK, "user="},
		{"preflight", http.MethodOptions, "/api/automaton", "", http.StatusOK, "user="},
		{"refresh needs a token", http.MethodPost, "/api/auth/refresh", "", http.StatusUnauthorized, "missing authorization header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	collector := metrics.NewCollector("test")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/automaton/{conversationId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	handler := Metrics(collector, mux)(mux)
	for _, path := range []string{"/api/automaton/a", "/api/automaton/b", "/nowhere"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body,
		`test_http_requests_total{method="GET",route="GET /api/automaton/{conversationId}",status="404"} 2`)
	assert.Contains(t, body, `test_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.True(t, strings.Contains(body, "test_http_request_duration_seconds_count"))
}
