package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automatonbot/internal/capabilities"
	"automatonbot/internal/config"
	"automatonbot/internal/domain"
	"automatonbot/internal/domain/models"
	"automatonbot/internal/domain/models/formal"
	"automatonbot/internal/domain/services"
	"automatonbot/internal/httputil"
)

type fakeConversations struct {
	lastProcess *services.ProcessRequest
	processErr  error
	renamed     string
	deleted     string
	err         error
}

func (f *fakeConversations) Process(ctx context.Context, req *services.ProcessRequest) (*services.ProcessResult, error) {
	f.lastProcess = req
	if f.processErr != nil {
		return nil, f.processErr
	}
	return &services.ProcessResult{Message: "answer", ConversationID: "conv-1"}, nil
}

func (f *fakeConversations) ListConversations(ctx context.Context, ownerID string) ([]models.Conversation, error) {
	return []models.Conversation{{ID: "conv-1", OwnerID: ownerID}}, f.err
}

func (f *fakeConversations) GetConversation(ctx context.Context, id, ownerID string) (*models.Conversation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Conversation{ID: id, OwnerID: ownerID}, nil
}

func (f *fakeConversations) RenameConversation(ctx context.Context, id, ownerID, name string) (*models.Conversation, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.renamed = id
	return &models.Conversation{ID: id, OwnerID: ownerID, Name: name}, nil
}

func (f *fakeConversations) DeleteConversation(ctx context.Context, id, ownerID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = id
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newAutomatonMux registers the routes the way the server does, with a fixed caller
func newAutomatonMux(h *AutomatonHandler, userID string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/automaton", h.Process)
	mux.HandleFunc("POST /api/automaton/export", h.Export)
	mux.HandleFunc("GET /api/automaton/history", h.History)
	mux.HandleFunc("GET /api/automaton/{conversationId}", h.GetConversation)
	mux.HandleFunc("PUT /api/automaton/{conversationId}/name", h.RenameConversation)
	mux.HandleFunc("DELETE /api/automaton/{conversationId}", h.DeleteConversation)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID != "" {
			r = httputil.WithUserID(r, userID)
		}
		mux.ServeHTTP(w, r)
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func TestProcess_SelectsStructure(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind formal.StructureKind
	}{
		{
			name: "automaton",
			body: `{"type":"DFA","states":["q0","q1"],"alphabet":["a"],"transitions":[["q0","a","q1"]],
				"initialState":"q0","acceptStates":["q1"],"question":"what?"}`,
			wantKind: formal.KindAutomaton,
		},
		{
			name: "automaton with empty accept states",
			body: `{"type":"DFA","states":["q0"],"alphabet":["a"],"transitions":[],
				"initialState":"q0","acceptStates":[],"question":"what?"}`,
			wantKind: formal.KindAutomaton,
		},
		{
			name: "grammar",
			body: `{"variables":["S"],"terminals":["a"],"productions":{"S":[["a"]]},
				"startSymbol":"S","question":"what?"}`,
			wantKind: formal.KindGrammar,
		},
		{
			name: "partial automaton is ignored",
			body: `{"type":"DFA","states":["q0"],"question":"what?"}`,
		},
		{
			name: "question only",
			body: `{"question":"Generate a DFA for a*","conversationId":"abc"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeConversations{}
			rec := do(t, newAutomatonMux(NewAutomatonHandler(svc, discardLogger()), "user-1"),
				http.MethodPost, "/api/automaton", tt.body)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, `{"message":"answer","conversationId":"conv-1"}`, rec.Body.String())

			require.NotNil(t, svc.lastProcess)
			assert.Equal(t, "user-1", svc.lastProcess.OwnerID)
			if tt.wantKind == "" {
				assert.Nil(t, svc.lastProcess.Structure)
			} else {
				require.NotNil(t, svc.lastProcess.Structure)
				assert.Equal(t, tt.wantKind, svc.lastProcess.Structure.Kind())
			}
		})
	}
}

func TestProcess_Errors(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		body       string
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{
			name:       "unauthenticated",
			body:       `{"question":"q"}`,
			wantStatus: http.StatusUnauthorized,
			wantError:  "User not authenticated",
		},
		{
			name:       "missing question",
			userID:     "user-1",
			body:       `{"type":"DFA"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Question is required",
		},
		{
			name:       "malformed body",
			userID:     "user-1",
			body:       `{"question":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request body",
		},
		{
			name:       "invalid structure",
			userID:     "user-1",
			body:       `{"question":"q"}`,
			serviceErr: domain.ErrInvalidStructure,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid structure",
		},
		{
			name:       "unknown conversation",
			userID:     "user-1",
			body:       `{"question":"q","conversationId":"gone"}`,
			serviceErr: domain.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  "not found",
		},
		{
			name:       "overloaded",
			userID:     "user-1",
			body:       `{"question":"q"}`,
			serviceErr: &domain.UpstreamError{StatusCode: 503, Overloaded: true},
			wantStatus: http.StatusServiceUnavailable,
			wantError:  OverloadedMessage,
		},
		{
			name:       "upstream failure",
			userID:     "user-1",
			body:       `{"question":"q"}`,
			serviceErr: &domain.UpstreamError{StatusCode: 400, Message: "API key not valid"},
			wantStatus: http.StatusBadGateway,
			wantError:  "LLM request failed: API key not valid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeConversations{processErr: tt.serviceErr}
			rec := do(t, newAutomatonMux(NewAutomatonHandler(svc, discardLogger()), tt.userID),
				http.MethodPost, "/api/automaton", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestConversationRoutes(t *testing.T) {
	svc := &fakeConversations{}
	mux := newAutomatonMux(NewAutomatonHandler(svc, discardLogger()), "user-1")

	rec := do(t, mux, http.MethodGet, "/api/automaton/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "user-1", list[0]["ownerId"])

	rec = do(t, mux, http.MethodPut, "/api/automaton/conv-9/name", `{"name":"My DFA"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "conv-9", svc.renamed)
	assert.Contains(t, rec.Body.String(), `"name":"My DFA"`)

	rec = do(t, mux, http.MethodDelete, "/api/automaton/conv-9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Conversation deleted successfully"}`, rec.Body.String())
	assert.Equal(t, "conv-9", svc.deleted)

	svc.err = domain.ErrNotFound
	rec = do(t, mux, http.MethodGet, "/api/automaton/conv-9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	svc.err = domain.ErrValidation
	rec = do(t, mux, http.MethodPut, "/api/automaton/conv-9/name", `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport(t *testing.T) {
	h := NewAutomatonHandler(&fakeConversations{}, discardLogger())
	h.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	mux := newAutomatonMux(h, "user-1")

	rec := do(t, mux, http.MethodPost, "/api/automaton/export", `{"automaton":{"type":"DFA","states":["q0","q1"],
		"alphabet":["a"],"transitions":[["q0","a","q1"]],"initialState":"q0","acceptStates":["q1"]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="DFA_automaton_2024-03-09T14-05-07-000Z.txt"`,
		rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Body.String(), "δ(q0, a) = q1")

	rec = do(t, mux, http.MethodPost, "/api/automaton/export", `{"cfg":{"variables":["S"],"terminals":["a"],
		"productions":{"S":[["a"],[]]},"startSymbol":"S"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "CFG_grammar_")

	rec = do(t, mux, http.MethodPost, "/api/automaton/export", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no automaton or CFG data provided")
}

type fakeAuth struct {
	err error
}

func (f *fakeAuth) Register(ctx context.Context, creds *services.Credentials) (*services.AuthToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.AuthToken{Token: "registered-" + creds.Username}, nil
}

func (f *fakeAuth) Login(ctx context.Context, creds *services.Credentials) (*services.AuthToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.AuthToken{Token: "login-" + creds.Username}, nil
}

func (f *fakeAuth) Refresh(ctx context.Context, userID string) (*services.AuthToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.AuthToken{Token: "refresh-" + userID}, nil
}

func TestAuthHandler(t *testing.T) {
	svc := &fakeAuth{}
	h := NewAuthHandler(svc, discardLogger())

	rec := do(t, http.HandlerFunc(h.Register), http.MethodPost, "/api/auth/register", `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"registered-alice"}`, rec.Body.String())

	rec = do(t, http.HandlerFunc(h.Login), http.MethodPost, "/api/auth/login", `{"username":"alice","password":"secret1"}`)
	assert.JSONEq(t, `{"token":"login-alice"}`, rec.Body.String())

	rec = do(t, http.HandlerFunc(h.Logout), http.MethodPost, "/api/auth/logout", "")
	assert.JSONEq(t, `{"message":"Logged out successfully"}`, rec.Body.String())

	rec = do(t, http.HandlerFunc(h.Refresh), http.MethodPost, "/api/auth/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httputil.WithUserID(httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil), "user-1")
	rec = httptest.NewRecorder()
	h.Refresh(rec, req)
	assert.JSONEq(t, `{"token":"refresh-user-1"}`, rec.Body.String())

	svc.err = &domain.ConflictError{Message: "username already taken", ResourceType: "user"}
	rec = do(t, http.HandlerFunc(h.Register), http.MethodPost, "/api/auth/register", `{"username":"alice","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	svc.err = domain.ErrUnauthorized
	rec = do(t, http.HandlerFunc(h.Login), http.MethodPost, "/api/auth/login", `{"username":"alice","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestModelsHandler(t *testing.T) {
	registry, err := capabilities.NewRegistry()
	require.NoError(t, err)

	h := NewModelsHandler(&config.Config{LLMProvider: "gemini", LLMModel: "gemini-1.5-pro"}, discardLogger(), registry)
	rec := do(t, http.HandlerFunc(h.GetCapabilities), http.MethodGet, "/api/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Providers []ProviderResponse `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Providers, 2)

	var active []string
	for _, p := range body.Providers {
		for _, m := range p.Models {
			if m.Active {
				active = append(active, p.ID+"/"+m.ID)
			}
		}
	}
	assert.Equal(t, []string{"gemini/gemini-1.5-pro"}, active)
}

func TestHealthCheck(t *testing.T) {
	rec := do(t, http.HandlerFunc(HealthCheck), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
