package auth

import (
	"crypto/subtle"

	"fitgate/config"
	"fitgate/internal/domain/entity"
	domainerrors "fitgate/internal/domain/errors"
	"fitgate/internal/domain/service"
)

// testAccountVerifier matches opaque test tokens against a static allow-list
// from configuration. No network call is involved; test identities never
// carry a Fitness grant.
type testAccountVerifier struct {
	enabled  bool
	accounts []config.TestAccount
}

// NewTestAccountVerifier is the constructor for testAccountVerifier.
// A nil config section means the bypass is disabled.
func NewTestAccountVerifier(cfg *config.Config) service.TestCredentialVerifier {
	verifier := &testAccountVerifier{}
	if cfg.TestAccounts != nil {
		verifier.enabled = cfg.TestAccounts.Enabled
		verifier.accounts = cfg.TestAccounts.Accounts
	}

	return verifier
}

// Enabled reports whether the bypass is active in this configuration.
func (v *testAccountVerifier) Enabled() bool {
	return v.enabled
}

// VerifyTestCredential matches the token against the allow-list.
// Every stored token is compared so match timing does not leak which entry,
// if any, was hit.
func (v *testAccountVerifier) VerifyTestCredential(token string) (*service.VerifiedIdentity, error) {
	if !v.enabled {
		return nil, domainerrors.ErrTestLoginDisabled
	}

	var matched *config.TestAccount
	for i := range v.accounts {
		candidate := &v.accounts[i]
		if subtle.ConstantTimeCompare([]byte(candidate.Token), []byte(token)) == 1 && matched == nil {
			matched = candidate
		}
	}

	if matched == nil {
		return nil, domainerrors.ErrInvalidTestCredential
	}

	return &service.VerifiedIdentity{
		Subject:       matched.Subject,
		Email:         matched.Email,
		Name:          matched.Name,
		Provider:      entity.ProviderTest,
		EmailVerified: true,
	}, nil
}
