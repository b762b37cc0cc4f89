package repositories

import (
	"context"

	"automatonbot/internal/domain/models"
)

// UserRepository defines the interface for account data access
type UserRepository interface {
	// Create inserts a new user
	// Returns domain.ErrConflict if an active user already has the username
	Create(ctx context.Context, user *models.User) error

	// GetByUsername retrieves an active user
	// Returns domain.ErrNotFound if not found
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByID retrieves an active user
	// Returns domain.ErrNotFound if not found
	GetByID(ctx context.Context, id string) (*models.User, error)
}
