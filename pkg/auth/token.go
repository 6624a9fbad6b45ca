// Package auth issues and validates the bearer tokens that the eventing
// infrastructure presents on webhook deliveries.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify the event source a webhook token was issued to.
type Claims struct {
	Source string `json:"source"`
	jwt.RegisteredClaims
}

// TokenService signs and validates webhook bearer tokens with a shared
// secret (HS256).
type TokenService struct {
	secret      []byte
	expireHours int
}

// NewTokenService creates a webhook token service.
func NewTokenService(secret string, expireHours int) *TokenService {
	return &TokenService{secret: []byte(secret), expireHours: expireHours}
}

// Generate creates a token for an event source ("storage", "transcode").
// Used by the operator tooling to provision the notification targets.
func (s *TokenService) Generate(source string) (string, error) {
	claims := Claims{
		Source: source,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(s.expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a token, returning its claims.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
