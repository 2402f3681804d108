package service

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors the Fitness token client distinguishes for callers.
var (
	// ErrGrantRevoked means Google rejected the refresh token (invalid_grant):
	// the user revoked access and must re-run the OAuth2 flow.
	ErrGrantRevoked = errors.New("google rejected the refresh token")
	// ErrProviderUnreachable covers timeouts, transport failures and 5xx
	// responses; the stored credential stays valid and the call is retryable.
	ErrProviderUnreachable = errors.New("google token endpoint unreachable")
)

// RefreshedToken is the result of one refresh call against Google.
type RefreshedToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// FitnessTokenClient talks to Google's OAuth2 token endpoint on behalf of the
// credential refresher. Every call carries an explicit timeout; the client
// never retries internally.
type FitnessTokenClient interface {
	// RefreshAccessToken exchanges a stored refresh token for a new access
	// token. Fails with ErrGrantRevoked or ErrProviderUnreachable.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*RefreshedToken, error)
}
