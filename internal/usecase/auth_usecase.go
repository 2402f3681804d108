// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"fitgate/internal/domain/entity"
)

// --- Input DTOs ---

// GoogleLoginInput defines the data required to exchange a Google
// authorization code for a session.
type GoogleLoginInput struct {
	Code        string
	RedirectURI string // Optional override of the configured redirect.
}

// TestLoginInput defines the data required for a test-account login.
type TestLoginInput struct {
	Token string
}

// RefreshInput defines the data required to renew an access token.
type RefreshInput struct {
	RefreshToken string
}

// LogoutInput defines the data required to end a session.
type LogoutInput struct {
	RefreshToken string
}

// --- Output DTOs ---

// SessionOutput returns the issued token pair after any successful login or
// refresh. RefreshToken carries the previous value unchanged when the pair
// did not rotate.
type SessionOutput struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  int64 // Unix seconds, for the mobile client's scheduler.
	RefreshExpiresAt int64
	Identity         *entity.Identity
}

// AuthUsecase defines the interface for authentication business operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	// LoginWithGoogle verifies an authorization code, provisions the identity
	// and its Fitness credential, and issues a session pair.
	LoginWithGoogle(ctx context.Context, input GoogleLoginInput) (*SessionOutput, error)

	// LoginWithTestAccount verifies a preconfigured test credential and
	// issues a session pair. Only available outside production.
	LoginWithTestAccount(ctx context.Context, input TestLoginInput) (*SessionOutput, error)

	// Refresh validates a refresh token against the session store and mints a
	// new access token, rotating the pair when it nears expiry.
	Refresh(ctx context.Context, input RefreshInput) (*SessionOutput, error)

	// Logout revokes the session behind the given refresh token.
	Logout(ctx context.Context, input LogoutInput) error
}
