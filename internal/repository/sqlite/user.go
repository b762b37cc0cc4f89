package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"automatonbot/internal/domain"
	"automatonbot/internal/domain/models"
	"automatonbot/internal/domain/repositories"
)

// UserRepository implements repositories.UserRepository
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) repositories.UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		formatTime(user.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("username '%s' already taken", user.Username),
				ResourceType: "user",
			}
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetByUsername retrieves an active user by name
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ? AND is_deleted = 0
	`, username)
}

// GetByID retrieves an active user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ? AND is_deleted = 0
	`, id)
}

func (r *UserRepository) getOne(ctx context.Context, query, arg string) (*models.User, error) {
	var (
		user      models.User
		createdAt string
	)
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", arg, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &user, nil
}
