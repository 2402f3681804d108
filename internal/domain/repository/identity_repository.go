// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"fitgate/internal/domain/entity"
)

// ErrIdentityNotFound is a domain-specific error returned when an identity is not found.
var ErrIdentityNotFound = errors.New("identity not found")

// IdentityRepository defines the standard operations for identity persistence.
// Identities are created on first successful verification; their identifying
// fields are never updated afterwards.
type IdentityRepository interface {
	// FindBySubject retrieves a single identity by its provider-scoped subject.
	FindBySubject(ctx context.Context, subject string) (*entity.Identity, error)

	// FindByEmail retrieves a single identity by its email address.
	FindByEmail(ctx context.Context, email string) (*entity.Identity, error)

	// Create persists a newly verified identity.
	Create(ctx context.Context, identity *entity.Identity) error

	// SetNeedsReauth flips the re-authentication flag for an identity.
	// This is the only mutation an identity row ever sees.
	SetNeedsReauth(ctx context.Context, subject string, needsReauth bool) error

	// List returns identities filtered by provenance. Passing both flags
	// returns everyone; passing neither returns ErrIdentityNotFound.
	List(ctx context.Context, includeTest, includeReal bool) ([]*entity.Identity, error)
}
