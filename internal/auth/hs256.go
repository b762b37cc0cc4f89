package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"automatonbot/internal/domain"
	"automatonbot/internal/domain/models"
)

// HS256Verifier issues and verifies tokens signed with a shared secret.
type HS256Verifier struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	logger *slog.Logger
}

// NewHS256Verifier creates a verifier. Tokens it generates expire after ttl.
func NewHS256Verifier(secret string, ttl time.Duration, issuer string, logger *slog.Logger) (*HS256Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET cannot be empty", domain.ErrConfiguration)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &HS256Verifier{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Generate creates a token whose subject is the user ID
func (v *HS256Verifier) Generate(subject string) (string, error) {
	now := v.now()
	claims := models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates signature, expiry and subject
func (v *HS256Verifier) VerifyToken(tokenString string) (*models.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			v.logger.Debug("token expired")
		} else {
			v.logger.Debug("token parse failed", "error", err)
		}
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token missing subject", domain.ErrUnauthorized)
	}

	return claims, nil
}

// Close is a no-op
func (v *HS256Verifier) Close() error {
	return nil
}
