package service

import (
	"context"
	"time"

	"fitgate/internal/domain/entity"
)

// VerifiedIdentity is the outcome of a successful external verification.
// Alongside the identity itself it carries the Google token grant obtained
// during the code exchange, which seeds the stored Fitness credential.
type VerifiedIdentity struct {
	Subject       string          // Provider-scoped unique user id.
	Email         string          // Verified email address.
	Name          string          // Display name, may be empty.
	Picture       string          // Profile picture URL, may be empty.
	Provider      entity.Provider // Which verification path produced this.
	EmailVerified bool            // Whether the provider vouches for the email.
	Grant         *FitnessGrant   // Fitness tokens granted with the code, nil for test accounts.
}

// FitnessGrant is the third-party token pair Google returns together with the
// ID token when the authorization code carried Fitness scopes.
type FitnessGrant struct {
	AccessToken  string
	RefreshToken string // May be empty on repeat consents; the stored credential is then kept.
	ExpiresAt    time.Time
}

// CodeVerifier validates a Google OAuth2 authorization code and returns the
// verified external identity. It performs exactly one outbound exchange and
// has no other side effects.
type CodeVerifier interface {
	// VerifyAuthorizationCode exchanges the code at the provider's token
	// endpoint and validates the returned ID token (signature chain handled
	// by the provider, issuer/audience/expiry checked here).
	// Fails with InvalidGrant for rejected codes (codes are single-use) and
	// ProviderUnavailable for transport errors and 5xx responses.
	VerifyAuthorizationCode(ctx context.Context, code, redirectURI string) (*VerifiedIdentity, error)
}

// TestCredentialVerifier validates a preconfigured test credential without any
// network call. Enabling it in production is a startup configuration error.
type TestCredentialVerifier interface {
	// VerifyTestCredential matches the token against the allow-list.
	VerifyTestCredential(token string) (*VerifiedIdentity, error)

	// Enabled reports whether the bypass is active in this configuration.
	Enabled() bool
}
