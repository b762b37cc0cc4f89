package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	authPkg "automatonbot/internal/auth"
	"automatonbot/internal/config"
	"automatonbot/internal/domain"
	"automatonbot/internal/domain/models"
	"automatonbot/internal/domain/repositories"
	"automatonbot/internal/domain/services"
)

// BcryptCost is the work factor for stored password hashes
const BcryptCost = 10

// errBadCredentials is the single message for unknown users and wrong passwords
var errBadCredentials = fmt.Errorf("%w: invalid username or password", domain.ErrUnauthorized)

type authService struct {
	users  repositories.UserRepository
	tokens authPkg.TokenIssuer
	logger *slog.Logger
	now    func() time.Time
	cost   int
}

// NewAuthService creates the account service
func NewAuthService(
	users repositories.UserRepository,
	tokens authPkg.TokenIssuer,
	logger *slog.Logger,
) services.AuthService {
	return &authService{
		users:  users,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
		cost:   BcryptCost,
	}
}

// Register creates an account and signs a token for it
func (s *authService) Register(ctx context.Context, creds *services.Credentials) (*services.AuthToken, error) {
	if creds == nil {
		return nil, fmt.Errorf("%w: missing credentials", domain.ErrValidation)
	}
	input := *creds
	input.Username = strings.TrimSpace(input.Username)

	if err := validation.ValidateStruct(&input,
		validation.Field(&input.Username,
			validation.Required,
			validation.RuneLength(config.MinUsernameLength, config.MaxUsernameLength),
		),
		validation.Field(&input.Password,
			validation.Required,
			validation.RuneLength(config.MinPasswordLength, 0),
			validation.Length(0, config.MaxPasswordLength),
		),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)

	return s.issue(user.ID)
}

// Login verifies the password and signs a fresh token
func (s *authService) Login(ctx context.Context, creds *services.Credentials) (*services.AuthToken, error) {
	if creds == nil || strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		s.logger.Debug("password mismatch", "user_id", user.ID)
		return nil, errBadCredentials
	}

	return s.issue(user.ID)
}

// Refresh signs a new token for a user that still exists
// Subjects from an external identity provider are not local user ids.
func (s *authService) Refresh(ctx context.Context, userID string) (*services.AuthToken, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%w: unknown user", domain.ErrUnauthorized)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", domain.ErrUnauthorized)
		}
		return nil, err
	}
	return s.issue(userID)
}

func (s *authService) issue(userID string) (*services.AuthToken, error) {
	token, err := s.tokens.Generate(userID)
	if err != nil {
		return nil, err
	}
	return &services.AuthToken{Token: token}, nil
}
