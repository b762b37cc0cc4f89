package repositories

import (
	"context"

	"automatonbot/internal/domain/models"
)

// ConversationRepository persists conversations and their turns.
// Every read excludes soft-deleted conversations.
type ConversationRepository interface {
	// FindByID retrieves a conversation with its turns (scoped to owner)
	// Returns domain.ErrNotFound if missing or soft-deleted
	FindByID(ctx context.Context, id, ownerID string) (*models.Conversation, error)

	// Save creates or updates the conversation row and inserts any turns not yet stored.
	// Stored turns are never rewritten.
	Save(ctx context.Context, conversation *models.Conversation) error

	// ListByOwner returns the owner's conversations, newest first, turns included
	// Returns empty slice if none found
	ListByOwner(ctx context.Context, ownerID string) ([]models.Conversation, error)

	// SoftDelete marks a conversation deleted
	// Returns domain.ErrNotFound if not found or already deleted
	SoftDelete(ctx context.Context, id, ownerID string) error
}
