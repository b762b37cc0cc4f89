package auth

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automatonbot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHS256Verifier_RoundTrip(t *testing.T) {
	v, err := NewHS256Verifier("secret", time.Hour, "automatonbot", discardLogger())
	require.NoError(t, err)

	token, err := v.Generate("user-123")
	require.NoError(t, err)

	claims, err := v.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.GetUserID())
	assert.Equal(t, "automatonbot", claims.Issuer)
	assert.WithinDuration(t, claims.IssuedAt.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestHS256Verifier_Rejects(t *testing.T) {
	v, err := NewHS256Verifier("secret", time.Hour, "automatonbot", discardLogger())
	require.NoError(t, err)

	other, err := NewHS256Verifier("other-secret", time.Hour, "automatonbot", discardLogger())
	require.NoError(t, err)
	foreign, err := other.Generate("user-123")
	require.NoError(t, err)

	expiredIssuer, err := NewHS256Verifier("secret", time.Minute, "automatonbot", discardLogger())
	require.NoError(t, err)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredIssuer.Generate("user-123")
	require.NoError(t, err)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "automatonbot",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-123",
		"iss": "automatonbot",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":        "not.a.token",
		"empty":          "",
		"wrong secret":   foreign,
		"expired":        expired,
		"missing sub":    noSub,
		"none algorithm": noneAlg,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.VerifyToken(token)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestNewHS256Verifier_RequiresSecret(t *testing.T) {
	_, err := NewHS256Verifier("", time.Hour, "", discardLogger())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
