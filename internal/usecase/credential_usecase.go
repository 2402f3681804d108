// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"
	"time"
)

// FitnessTokenOutput returns a Google Fitness access token guaranteed fresh
// at the time of issue.
type FitnessTokenOutput struct {
	AccessToken string
	ExpiresAt   time.Time
	Refreshed   bool // Whether a refresh against Google happened on this call.
}

// CredentialUsecase defines the interface for Fitness credential operations.
type CredentialUsecase interface {
	// EnsureFreshToken returns a Fitness access token for the identity,
	// refreshing it against Google first if it is stale. Concurrent callers
	// for the same identity are collapsed into a single upstream refresh.
	EnsureFreshToken(ctx context.Context, subject string) (*FitnessTokenOutput, error)

	// RevokeCredential drops the stored credential and flags the identity
	// for re-authentication.
	RevokeCredential(ctx context.Context, subject string) error
}
