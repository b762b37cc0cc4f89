package handler

import (
	"log/slog"
	"net/http"
	"time"

	"automatonbot/internal/domain/models/formal"
	"automatonbot/internal/domain/services"
	"automatonbot/internal/httputil"
	formalSvc "automatonbot/internal/service/formal"
)

// AutomatonHandler serves the question endpoint and conversation history
type AutomatonHandler struct {
	conversationService services.ConversationService
	logger              *slog.Logger
	now                 func() time.Time
}

// NewAutomatonHandler creates a new automaton handler
func NewAutomatonHandler(conversationService services.ConversationService, logger *slog.Logger) *AutomatonHandler {
	return &AutomatonHandler{
		conversationService: conversationService,
		logger:              logger,
		now:                 time.Now,
	}
}

// processRequest is the flat body of POST /api/automaton. Automaton and grammar
// fields share the top level, so presence decides which structure was meant.
type processRequest struct {
	Type         formal.AutomatonType `json:"type"`
	States       []string             `json:"states"`
	Alphabet     []string             `json:"alphabet"`
	Transitions  []formal.Transition  `json:"transitions"`
	InitialState string               `json:"initialState"`
	AcceptStates []string             `json:"acceptStates"`

	Variables   []string           `json:"variables"`
	Terminals   []string           `json:"terminals"`
	Productions formal.Productions `json:"productions"`
	StartSymbol string             `json:"startSymbol"`

	Question       string `json:"question"`
	ConversationID string `json:"conversationId"`
}

// structure picks the automaton when all six of its fields were sent, else the
// grammar when all four of its fields were sent. Empty lists count as sent.
func (req *processRequest) structure() formal.Structure {
	if req.Type != "" && req.States != nil && req.Alphabet != nil && req.Transitions != nil &&
		req.InitialState != "" && req.AcceptStates != nil {
		return &formal.Automaton{
			Type:         req.Type,
			States:       req.States,
			Alphabet:     req.Alphabet,
			Transitions:  req.Transitions,
			InitialState: req.InitialState,
			AcceptStates: req.AcceptStates,
		}
	}
	if req.Variables != nil && req.Terminals != nil && req.Productions != nil && req.StartSymbol != "" {
		return &formal.Grammar{
			Variables:   req.Variables,
			Terminals:   req.Terminals,
			Productions: req.Productions,
			StartSymbol: req.StartSymbol,
		}
	}
	return nil
}

// Process answers a question about an optional automaton or grammar
// POST /api/automaton
func (h *AutomatonHandler) Process(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req processRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Question == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Question is required")
		return
	}

	result, err := h.conversationService.Process(r.Context(), &services.ProcessRequest{
		OwnerID:        userID,
		Question:       req.Question,
		Structure:      req.structure(),
		ConversationID: req.ConversationID,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// History lists the caller's conversations, newest first
// GET /api/automaton/history
func (h *AutomatonHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	conversations, err := h.conversationService.ListConversations(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conversations)
}

// GetConversation retrieves one conversation with its turns
// GET /api/automaton/{conversationId}
func (h *AutomatonHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := PathParam(w, r, "conversationId", "Conversation ID")
	if !ok {
		return
	}

	conversation, err := h.conversationService.GetConversation(r.Context(), conversationID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conversation)
}

type renameRequest struct {
	Name string `json:"name"`
}

// RenameConversation sets a conversation's display name
// PUT /api/automaton/{conversationId}/name
func (h *AutomatonHandler) RenameConversation(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := PathParam(w, r, "conversationId", "Conversation ID")
	if !ok {
		return
	}

	var req renameRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	conversation, err := h.conversationService.RenameConversation(r.Context(), conversationID, httputil.GetUserID(r), req.Name)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conversation)
}

// DeleteConversation soft-deletes a conversation
// DELETE /api/automaton/{conversationId}
func (h *AutomatonHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := PathParam(w, r, "conversationId", "Conversation ID")
	if !ok {
		return
	}

	if err := h.conversationService.DeleteConversation(r.Context(), conversationID, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondMessage(w, http.StatusOK, "Conversation deleted successfully")
}

type exportRequest struct {
	Automaton *formal.Automaton `json:"automaton"`
	CFG       *formal.Grammar   `json:"cfg"`
}

// Export renders the posted structure as a downloadable text file
// POST /api/automaton/export
func (h *AutomatonHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var structure formal.Structure
	switch {
	case req.Automaton != nil:
		structure = req.Automaton
	case req.CFG != nil:
		structure = req.CFG
	}

	doc, err := formalSvc.Export(structure, h.now())
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("structure exported", "user_id", httputil.GetUserID(r), "filename", doc.Filename)
	httputil.RespondAttachment(w, doc.Filename, "text/plain; charset=utf-8", []byte(doc.Content))
}
