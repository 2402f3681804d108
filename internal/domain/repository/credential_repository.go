package repository

import (
	"context"
	"errors"

	"fitgate/internal/domain/entity"
)

// ErrCredentialNotFound is returned when no Fitness credential is stored for a subject.
var ErrCredentialNotFound = errors.New("fitness credential not found")

// CredentialRepository is the durable store for Google Fitness token pairs,
// keyed uniquely by identity subject. Upsert fully replaces the stored row;
// partial merges do not exist at this level.
type CredentialRepository interface {
	// FindBySubject retrieves the credential for an identity.
	FindBySubject(ctx context.Context, subject string) (*entity.FitnessCredential, error)

	// Upsert inserts or fully replaces the credential for an identity.
	Upsert(ctx context.Context, credential *entity.FitnessCredential) error

	// Delete removes the credential for an identity.
	Delete(ctx context.Context, subject string) error
}
