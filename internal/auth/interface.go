package auth

import "automatonbot/internal/domain/models"

// TokenVerifier validates bearer tokens for the auth middleware.
type TokenVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns domain.ErrUnauthorized if the token is invalid, expired, or has an invalid signature.
	VerifyToken(tokenString string) (*models.TokenClaims, error)

	// Close releases any resources held by the verifier (e.g., HTTP connections for JWKS).
	Close() error
}

// TokenIssuer signs tokens for authenticated users.
type TokenIssuer interface {
	Generate(subject string) (string, error)
}
