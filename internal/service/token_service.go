// Package service contains the business logic behind the HTTP handlers.
package service

import (
	"errors"
	"time"

	"townsquare/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenIssuer   = "townsquare-api"
	TokenAudience = "townsquare-client"
)

// TokenService issues and verifies signed identity tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for issuing and for expiry checks.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue signs a token for userID that expires after the configured TTL.
func (s *TokenService) Issue(userID uuid.UUID) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iss": TokenIssuer,
		"aud": TokenAudience,
		"exp": now.Add(s.ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify returns the user id carried by a valid token. Every failure is an
// INVALID_TOKEN AppError.
func (s *TokenService) Verify(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString,
		func(_ *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return uuid.Nil, models.NewInvalidTokenError(err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, models.NewInvalidTokenError(err)
	}
	userID, err := uuid.Parse(sub)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, models.NewInvalidTokenError(errors.New("invalid subject claim"))
	}
	return userID, nil
}
