// Package middleware provides HTTP middleware and request-scoped helpers for the application.
package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "typ" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrMissingToken is returned when no bearer token was supplied.
	ErrMissingToken = errors.New("authorization header required")
	// ErrMalformedHeader is returned for an Authorization header that is not "Bearer <token>".
	ErrMalformedHeader = errors.New("invalid authorization header format")
	// ErrInvalidToken is returned for tokens that fail signature, expiry, issuer or audience checks.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrWrongTokenType is returned when a refresh token is used as an access token or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")
)

// TokenClaims are the JWT claims issued by the auth service.
type TokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *TokenClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return uint(id), nil
}

// ExpiresIn is the remaining lifetime of the token, never negative.
func (c *TokenClaims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// TokenVerifier validates signed tokens against a shared secret, issuer and audience.
type TokenVerifier struct {
	Secret   []byte
	Issuer   string
	Audience string
}

// Parse validates tokenString and checks that it carries the wanted type.
func (v TokenVerifier) Parse(tokenString, wantType string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if wantType != "" && claims.Type != wantType {
		return nil, ErrWrongTokenType
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrMalformedHeader
	}
	return parts[1], nil
}

// BlacklistKey is the Redis key marking a revoked token id.
func BlacklistKey(jti string) string {
	return "blacklist:" + jti
}

// WSTicketKey is the Redis key holding the user id behind a websocket ticket.
func WSTicketKey(ticket string) string {
	return "ws_ticket:" + ticket
}
