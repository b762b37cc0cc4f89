package auth

import (
	"errors"
	"fmt"

	"automatonbot/internal/domain"
	"automatonbot/internal/domain/models"
)

// ChainVerifier accepts a token if any of its verifiers does, trying them in order.
type ChainVerifier struct {
	verifiers []TokenVerifier
}

// NewChainVerifier combines verifiers. With JWKS_URL set the server accepts both
// its own HS256 tokens and tokens from the external identity provider.
func NewChainVerifier(verifiers ...TokenVerifier) *ChainVerifier {
	return &ChainVerifier{verifiers: verifiers}
}

// VerifyToken returns the claims from the first verifier that accepts the token
func (c *ChainVerifier) VerifyToken(tokenString string) (*models.TokenClaims, error) {
	var errs []error
	for _, v := range c.verifiers {
		claims, err := v.VerifyToken(tokenString)
		if err == nil {
			return claims, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no token verifier configured", domain.ErrUnauthorized)
	}
	return nil, errors.Join(errs...)
}

// Close closes every verifier
func (c *ChainVerifier) Close() error {
	var errs []error
	for _, v := range c.verifiers {
		if err := v.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
