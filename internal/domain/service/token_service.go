// Package service defines contracts for domain services whose concrete
// implementations live in the infrastructure layer.
package service

import (
	"time"

	"fitgate/internal/domain/entity"
)

// TokenKind discriminates the two halves of an issued pair.
type TokenKind string

const (
	// TokenKindAccess marks a short-lived API token.
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh marks a long-lived renewal token.
	TokenKindRefresh TokenKind = "refresh"
)

// SessionClaims is the verified payload of a signed session token.
// No field is trusted until the signature has been checked.
type SessionClaims struct {
	Subject   string
	Email     string
	Provider  entity.Provider
	Kind      TokenKind
	SessionID string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// TokenIssuer is the sole authority for minting and verifying the internal
// session token pair. It holds the process-wide signing secret and persists
// nothing itself.
type TokenIssuer interface {
	// Issue mints a fresh access+refresh pair bound to a verified identity.
	Issue(identity *entity.Identity) (*entity.Session, error)

	// ValidateAccess verifies an access token and returns its claims.
	// Fails with the Expired, InvalidSignature or WrongKind taxonomy errors.
	ValidateAccess(token string) (*SessionClaims, error)

	// ValidateRefresh verifies a refresh token and returns its claims.
	ValidateRefresh(token string) (*SessionClaims, error)

	// RefreshAccess mints a new access token against a valid refresh token.
	// The refresh token is reused unchanged unless it sits inside the renewal
	// window of its own expiry, in which case the whole pair is reissued and
	// rotated reports true.
	RefreshAccess(refreshToken string) (session *entity.Session, rotated bool, err error)

	// HashToken returns the hash under which a raw refresh token is persisted.
	HashToken(raw string) string

	// RefreshTokenTTL returns the configured refresh token lifetime.
	RefreshTokenTTL() time.Duration
}
