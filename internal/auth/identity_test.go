package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	provider := NewJWTIdentityProvider("test-secret")

	token, err := provider.IssueToken(Identity{UserID: 7, Username: "alice"})
	require.NoError(t, err)

	identity, err := provider.CurrentUser(token)
	require.NoError(t, err)
	assert.Equal(t, 7, identity.UserID)
	assert.Equal(t, "alice", identity.Username)
}

func TestCurrentUserRejectsGarbage(t *testing.T) {
	provider := NewJWTIdentityProvider("test-secret")

	_, err := provider.CurrentUser("not-a-token")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCurrentUserRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTIdentityProvider("secret-a")
	verifier := NewJWTIdentityProvider("secret-b")

	token, err := issuer.IssueToken(Identity{UserID: 7, Username: "alice"})
	require.NoError(t, err)

	_, err = verifier.CurrentUser(token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCurrentUserRejectsMissingClaims(t *testing.T) {
	provider := NewJWTIdentityProvider("test-secret")

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7"},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = provider.CurrentUser(token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}
