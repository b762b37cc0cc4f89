package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusNotFound, "conversation not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"conversation not found"}`, rec.Body.String())
}

func TestRespondAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondAttachment(rec, "DFA_automaton_x.txt", "text/plain; charset=utf-8", []byte("body"))

	assert.Equal(t, `attachment; filename="DFA_automaton_x.txt"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "body", rec.Body.String())
}

func TestParseJSON(t *testing.T) {
	var dest struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	require.NoError(t, ParseJSON(httptest.NewRecorder(), req, &dest))
	assert.Equal(t, "x", dest.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.Error(t, ParseJSON(httptest.NewRecorder(), req, &dest))
}

func TestUserIDContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetUserID(req))

	req = WithUserID(req, "user-1")
	assert.Equal(t, "user-1", GetUserID(req))
}
