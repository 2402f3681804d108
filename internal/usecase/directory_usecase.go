// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"fitgate/internal/domain/entity"
)

// DirectoryFilter selects which identities an internal listing returns.
type DirectoryFilter struct {
	IncludeTest bool
	IncludeReal bool
}

// DirectoryUsecase defines internal, operator-facing lookups. These back the
// unauthenticated internal endpoints and never reach the public surface.
type DirectoryUsecase interface {
	// ListUsers returns known identities filtered by provenance.
	ListUsers(ctx context.Context, filter DirectoryFilter) ([]*entity.Identity, error)

	// IssueTokenByEmail mints a session pair for the identity with the given
	// email, without any credential check. Operator tooling only.
	IssueTokenByEmail(ctx context.Context, email string) (*SessionOutput, error)

	// FreshFitnessTokenByEmail returns a guaranteed-fresh Fitness access
	// token for the identity with the given email.
	FreshFitnessTokenByEmail(ctx context.Context, email string) (*FitnessTokenOutput, error)
}
