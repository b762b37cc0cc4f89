package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"automatonbot/internal/domain"
	"automatonbot/internal/domain/models"
	"automatonbot/internal/domain/repositories"
)

// PostgresUserRepository implements repositories.UserRepository
type PostgresUserRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewUserRepository creates a new user repository
func NewUserRepository(config *RepositoryConfig) repositories.UserRepository {
	return &PostgresUserRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, user.ID, user.Username, user.PasswordHash, user.CreatedAt); err != nil {
		if IsPgDuplicateError(err) {
			existing, getErr := r.GetByUsername(ctx, user.Username)
			if getErr != nil {
				return fmt.Errorf("username '%s' already taken: %w", user.Username, domain.ErrConflict)
			}
			return &domain.ConflictError{
				Message:      fmt.Sprintf("username '%s' already taken", user.Username),
				ResourceType: "user",
				ResourceID:   existing.ID,
			}
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByUsername retrieves an active user by name
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "username", username)
}

// GetByID retrieves an active user by id
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	// Subjects from an external identity provider need not be UUIDs
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return r.getOne(ctx, "id", id)
}

// getOne looks a user up by a column name chosen by this package, never by callers
func (r *PostgresUserRepository) getOne(ctx context.Context, column, value string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, password_hash, created_at
		FROM %s
		WHERE %s = $1 AND NOT is_deleted
	`, r.tables.Users, column)

	var user models.User
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, value).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("user %s: %w", value, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}
