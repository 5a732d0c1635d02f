package jwt

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

const minHS512Key = 64

type HS512 struct {
	cfg    Config
	parser *jwt.Parser
}

func NewHS512(cfg Config) (*HS512, error) {
	if len(cfg.Secret) < minHS512Key {
		return nil, ErrSigningKeyTooShort
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if len(cfg.Audiences) > 0 {
		opts = append(opts, jwt.WithAudience(cfg.Audiences...))
	}
	if cfg.Clock != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Clock.Now))
	}

	return &HS512{cfg: cfg, parser: jwt.NewParser(opts...)}, nil
}

func (h *HS512) Generate(sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrMissingSessionID
	}

	now := jwt.NewNumericDate(h.cfg.Clock.Now())
	claims := Claims{jwt.RegisteredClaims{
		ID:        h.cfg.UUID.Generate(),
		Subject:   sessionID,
		Issuer:    h.cfg.Issuer,
		Audience:  h.cfg.Audiences,
		IssuedAt:  now,
		NotBefore: now,
		ExpiresAt: jwt.NewNumericDate(now.Add(h.cfg.TTL)),
	}}

	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(h.cfg.Secret)
}

func (h *HS512) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := h.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return h.cfg.Secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case err != nil:
		return Claims{}, errors.Join(ErrInvalidToken, err)
	case claims.Subject == "":
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
