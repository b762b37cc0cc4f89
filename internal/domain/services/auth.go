package services

import "context"

// Credentials is the body of register and login requests
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthToken is returned by every operation that issues a token
type AuthToken struct {
	Token string `json:"token"`
}

// AuthService registers users and issues signed bearer tokens.
type AuthService interface {
	// Register creates an account and returns a token for it
	// Returns domain.ErrValidation for bad input, domain.ErrConflict for a taken username
	Register(ctx context.Context, creds *Credentials) (*AuthToken, error)

	// Login checks the password and returns a fresh token
	// Returns domain.ErrUnauthorized for unknown users and wrong passwords alike
	Login(ctx context.Context, creds *Credentials) (*AuthToken, error)

	// Refresh issues a new token for an already authenticated user
	Refresh(ctx context.Context, userID string) (*AuthToken, error)
}
