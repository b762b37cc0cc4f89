package services

import (
	"context"

	"automatonbot/internal/domain/models"
	"automatonbot/internal/domain/models/formal"
)

// ProcessRequest is one question, optionally about a structure, optionally continuing a conversation.
type ProcessRequest struct {
	OwnerID        string
	Question       string
	Structure      formal.Structure // nil when the caller sent none
	ConversationID string           // empty starts a new conversation
}

// ProcessResult is the user-facing reply
type ProcessResult struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// ConversationService runs the question workflow and manages conversation history.
// All operations are scoped to the owner and ignore soft-deleted conversations.
type ConversationService interface {
	Process(ctx context.Context, req *ProcessRequest) (*ProcessResult, error)
	ListConversations(ctx context.Context, ownerID string) ([]models.Conversation, error)
	GetConversation(ctx context.Context, id, ownerID string) (*models.Conversation, error)
	RenameConversation(ctx context.Context, id, ownerID, name string) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, id, ownerID string) error
}
