package auth

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the authenticated user bound to a connection.
type Identity struct {
	UserID   int
	Username string
}

// IdentityProvider maps a bearer token to an authenticated identity.
type IdentityProvider interface {
	CurrentUser(token string) (Identity, error)
}

// JWTIdentityProvider validates HMAC-signed session tokens issued by the
// auth service.
type JWTIdentityProvider struct {
	secret []byte
}

// NewJWTIdentityProvider constructs the provider.
func NewJWTIdentityProvider(secret string) *JWTIdentityProvider {
	return &JWTIdentityProvider{secret: []byte(secret)}
}

type sessionClaims struct {
	Username string `json:"name"`
	jwt.RegisteredClaims
}

// CurrentUser parses and validates the token.
func (p *JWTIdentityProvider) CurrentUser(token string) (Identity, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrUnauthenticated
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID == 0 || claims.Username == "" {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: userID, Username: claims.Username}, nil
}

// IssueToken signs a session token. Used by tests and the debug login
// endpoint; the real issuer is the external auth service.
func (p *JWTIdentityProvider) IssueToken(id Identity) (string, error) {
	claims := sessionClaims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: strconv.Itoa(id.UserID),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
