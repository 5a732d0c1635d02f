package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type staticID struct{}

func (staticID) Generate() string { return "jti-1" }

func newTestJWT(t *testing.T, clk *fixedClock) *HS512 {
	t.Helper()

	s, err := NewHS512(Config{
		Secret:    []byte(strings.Repeat("k", 64)),
		Issuer:    "wapilot",
		Audiences: []string{"wapilot-web"},
		TTL:       time.Hour,
		Clock:     clk,
		UUID:      staticID{},
	})
	require.NoError(t, err)
	return s
}

func TestHS512(t *testing.T) {
	t.Run("ShortSecret", func(t *testing.T) {
		_, err := NewHS512(Config{Secret: []byte("short")})
		assert.ErrorIs(t, err, ErrSigningKeyTooShort)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		// Arrange
		clk := &fixedClock{now: time.Now()}
		s := newTestJWT(t, clk)

		// Act
		token, err := s.Generate("sid-123")
		require.NoError(t, err)
		claims, err := s.Verify(token)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "sid-123", claims.SessionID())
		assert.Equal(t, "jti-1", claims.ID)
	})

	t.Run("EmptySession", func(t *testing.T) {
		s := newTestJWT(t, &fixedClock{now: time.Now()})
		_, err := s.Generate("")
		assert.ErrorIs(t, err, ErrMissingSessionID)
	})

	t.Run("Expired", func(t *testing.T) {
		// Arrange
		clk := &fixedClock{now: time.Now()}
		s := newTestJWT(t, clk)
		token, err := s.Generate("sid-123")
		require.NoError(t, err)

		// Act
		clk.now = clk.now.Add(2 * time.Hour)
		_, err = s.Verify(token)

		// Assert
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("Tampered", func(t *testing.T) {
		s := newTestJWT(t, &fixedClock{now: time.Now()})
		token, err := s.Generate("sid-123")
		require.NoError(t, err)

		_, err = s.Verify(token + "x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongAudience", func(t *testing.T) {
		// Arrange
		clk := &fixedClock{now: time.Now()}
		token, err := newTestJWT(t, clk).Generate("sid-123")
		require.NoError(t, err)
		other, err := NewHS512(Config{
			Secret:    []byte(strings.Repeat("k", 64)),
			Issuer:    "wapilot",
			Audiences: []string{"admin"},
			TTL:       time.Hour,
			Clock:     clk,
			UUID:      staticID{},
		})
		require.NoError(t, err)

		// Act
		_, err = other.Verify(token)

		// Assert
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
