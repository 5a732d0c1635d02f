// Package jwt signs the browser session cookie. The token carries only the
// opaque session id as its subject; session data is looked up by that id.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrSigningKeyTooShort = errors.New("jwt: HS512 key must be at least 64 bytes")
	ErrTokenExpired       = errors.New("jwt: token expired")
	ErrInvalidToken       = errors.New("jwt: invalid token")
	ErrMissingSessionID   = errors.New("jwt: session id is required")
)

type JWT interface {
	Generate(sessionID string) (string, error)
	Verify(token string) (Claims, error)
}

type Config struct {
	Secret    []byte
	Issuer    string
	Audiences []string
	TTL       time.Duration
	Clock     interface{ Now() time.Time }
	// UUID names each token (jti).
	UUID interface{ Generate() string }
}

type Claims struct {
	jwt.RegisteredClaims
}

func (c Claims) SessionID() string { return c.Subject }
