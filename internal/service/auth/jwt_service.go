// Package auth validates the bearer tokens that identify the principal on
// whose behalf generation work is queued and paid for. Issuing tokens for
// end users belongs to the session layer; GenerateToken exists for service
// accounts, local development, and tests.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for the principal.
	GenerateToken(ctx context.Context, principalID uuid.UUID) (string, error)

	// ValidateToken validates an access token and extracts its claims.
	// It returns ErrExpiredToken, ErrTokenNotYetValid, ErrWrongTokenType or
	// ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the validated contents of an access token.
type Claims struct {
	// PrincipalID is the principal the token was issued for.
	PrincipalID uuid.UUID `json:"pid,omitempty"`

	// TokenType is always "access" for tokens accepted by ValidateToken.
	TokenType string `json:"type,omitempty"`

	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
