// Package auth provides authentication utilities for JWT token management.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type constants for the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Token expiration durations.
const (
	AccessTokenExpiry  = 15 * time.Minute
	RefreshTokenExpiry = 7 * 24 * time.Hour
)

// DefaultLeeway for token validation.
const DefaultLeeway = 30 * time.Second

// ErrInvalidToken is returned when token validation fails.
var ErrInvalidToken = errors.New("invalid token")

// ErrExpiredToken is returned when the token has expired.
var ErrExpiredToken = errors.New("token has expired")

// ErrEmptyUserID is returned when userID is empty.
var ErrEmptyUserID = errors.New("userID cannot be empty")

// ErrMissingBearer is returned when no bearer token is present on a
// request.
var ErrMissingBearer = errors.New("missing bearer token")

// Claims represents custom JWT claims for the application. The subject
// is the viewer's user id.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"` // Token type: "access" or "refresh"
}

// JWTService handles JWT token operations.
// Supports dual-key rotation: tokens are signed with currentSecret but
// can be validated with either currentSecret or previousSecret.
type JWTService struct {
	currentSecret  []byte
	previousSecret []byte
	leeway         time.Duration
}

// NewJWTService creates a new JWTService with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		currentSecret: []byte(secret),
		leeway:        DefaultLeeway,
	}
}

// NewJWTServiceWithRotation creates a JWTService with dual-key support
// for zero-downtime secret rotation. Pass an empty previousSecret when
// no rotation is in progress.
func NewJWTServiceWithRotation(currentSecret, previousSecret string) *JWTService {
	svc := &JWTService{
		currentSecret: []byte(currentSecret),
		leeway:        DefaultLeeway,
	}
	if previousSecret != "" {
		svc.previousSecret = []byte(previousSecret)
	}
	return svc
}

// GenerateAccessToken creates a new access token (15m expiry) for userID.
func (s *JWTService) GenerateAccessToken(userID string) (string, error) {
	return s.generate(userID, TokenTypeAccess, AccessTokenExpiry)
}

// GenerateRefreshToken creates a new refresh token (7d expiry) for userID.
func (s *JWTService) GenerateRefreshToken(userID string) (string, error) {
	return s.generate(userID, TokenTypeRefresh, RefreshTokenExpiry)
}

func (s *JWTService) generate(userID, tokenType string, expiry time.Duration) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Type: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.currentSecret)
}

// ValidateToken parses and validates a JWT token, returning the claims
// if valid. Tries currentSecret first, then previousSecret if rotation
// is in progress.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := s.parseWith(tokenString, s.currentSecret)
	if err == nil {
		return claims, nil
	}

	if s.previousSecret != nil {
		if claims, perr := s.parseWith(tokenString, s.previousSecret); perr == nil {
			return claims, nil
		}
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	return nil, ErrInvalidToken
}

func (s *JWTService) parseWith(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithLeeway(s.leeway))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ViewerFromRequest extracts and validates the bearer token from an
// HTTP request, returning the authenticated viewer's id. Only access
// tokens are accepted.
func (s *JWTService) ViewerFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingBearer
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrInvalidToken
	}

	claims, err := s.ValidateToken(strings.TrimPrefix(header, prefix))
	if err != nil {
		return "", err
	}
	if claims.Type != TokenTypeAccess {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
