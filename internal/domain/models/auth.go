package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims is the JWT claim set issued at login and accepted by the auth middleware.
type TokenClaims struct {
	jwt.RegisteredClaims // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *TokenClaims) GetUserID() string {
	return c.Subject
}
