package repository

import (
	"context"

	"fitgate/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for session persistence.
var (
	// ErrSessionNotFound is returned when no session row matches.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when the matching session row is past its expiry.
	ErrSessionExpired = errors.New("session has expired")
)

// SessionRepository persists one row per issued refresh token. A missing row
// means the refresh token was revoked; callers translate that into the
// TOKEN_REVOKED taxonomy entry.
type SessionRepository interface {
	// Create persists a new session record.
	Create(ctx context.Context, record *entity.SessionRecord) error

	// FindByTokenHash retrieves a session record by the refresh token hash.
	FindByTokenHash(ctx context.Context, tokenHash string) (*entity.SessionRecord, error)

	// FindByID retrieves a session record by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SessionRecord, error)

	// Update replaces the token hash and expiry of an existing record.
	// Used when the refresh token rotates inside its renewal window.
	Update(ctx context.Context, record *entity.SessionRecord) error

	// Delete removes a session by ID, invalidating its refresh token.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByTokenHash removes a session by its token hash (logout).
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteExpired removes all session rows past their expiry.
	DeleteExpired(ctx context.Context) error
}
