package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/ledgerops/go-console-auth/session"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestAlwaysValidAcceptsAnything(t *testing.T) {
	require.NoError(t, session.AlwaysValid.Validate(context.Background(), "not-even-a-jwt"))
	require.NoError(t, session.AlwaysValid.Validate(context.Background(), ""))
}

func TestExpiryValidatorAcceptsFutureExpiry(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, session.ExpiryValidator{}.Validate(context.Background(), token))
}

func TestExpiryValidatorRejectsPastExpiry(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	require.Error(t, session.ExpiryValidator{}.Validate(context.Background(), token))
}

func TestExpiryValidatorAcceptsMissingExpiry(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "admin"})
	require.NoError(t, session.ExpiryValidator{}.Validate(context.Background(), token))
}

func TestExpiryValidatorRejectsMalformedToken(t *testing.T) {
	require.Error(t, session.ExpiryValidator{}.Validate(context.Background(), "garbage"))
}
