package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is an issued token pair bound to a verified identity.
// The raw tokens only exist in memory on the way to the client; the durable
// session row stores a SHA-256 hash of the refresh token. Deleting the row
// invalidates the refresh token.
type Session struct {
	ID               uuid.UUID // Unique session id, carried in the token claims as 'sid'.
	IdentitySubject  string    // The identity this session belongs to.
	AccessToken      string    // Raw signed access token (short-lived).
	RefreshToken     string    // Raw signed refresh token (long-lived).
	AccessExpiresAt  time.Time // Expiry of the access token.
	RefreshExpiresAt time.Time // Expiry of the refresh token, always after AccessExpiresAt.
	IssuedAt         time.Time // When the pair was minted.
}

// SessionRecord mirrors the persisted part of a session: the refresh token
// hash and its expiry. One row per device that completed authentication.
type SessionRecord struct {
	ID              uuid.UUID
	IdentitySubject string
	TokenHash       string    // SHA-256 hash of the raw refresh token.
	ExpiresAt       time.Time // Matches the refresh token expiry.
	CreatedAt       time.Time
}
