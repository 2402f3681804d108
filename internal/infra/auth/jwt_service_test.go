package auth

import (
	"strings"
	"testing"
	"time"

	"fitgate/config"
	"fitgate/internal/domain/entity"
	domainerrors "fitgate/internal/domain/errors"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuerConfig() *config.Config {
	return &config.Config{
		Token: &config.TokenConfig{
			Secret:        "test_signing_secret_very_long_for_testing",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			RenewalWindow: 24 * time.Hour,
			ClockSkew:     5 * time.Second,
		},
	}
}

func testIdentity() *entity.Identity {
	return &entity.Identity{
		Subject:  "110248495921238986420",
		Email:    "runner@example.com",
		Name:     "Runner",
		Provider: entity.ProviderGoogle,
	}
}

func TestJWTIssuer_IssueAndValidateRoundTrip(t *testing.T) {
	issuer, err := NewJWTIssuer(newTestIssuerConfig())
	require.NoError(t, err)

	session, err := issuer.Issue(testIdentity())
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.True(t, session.AccessExpiresAt.Before(session.RefreshExpiresAt),
		"access expiry must precede refresh expiry")

	accessClaims, err := issuer.ValidateAccess(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "110248495921238986420", accessClaims.Subject)
	assert.Equal(t, "runner@example.com", accessClaims.Email)
	assert.Equal(t, entity.ProviderGoogle, accessClaims.Provider)
	assert.Equal(t, session.ID.String(), accessClaims.SessionID)

	refreshClaims, err := issuer.ValidateRefresh(session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, accessClaims.SessionID, refreshClaims.SessionID)
}

func TestJWTIssuer_WrongKindRejected(t *testing.T) {
	issuer, err := NewJWTIssuer(newTestIssuerConfig())
	require.NoError(t, err)

	session, err := issuer.Issue(testIdentity())
	require.NoError(t, err)

	_, err = issuer.ValidateAccess(session.RefreshToken)
	assert.True(t, errors.Is(err, domainerrors.ErrWrongTokenKind))

	_, err = issuer.ValidateRefresh(session.AccessToken)
	assert.True(t, errors.Is(err, domainerrors.ErrWrongTokenKind))
}

func TestJWTIssuer_TamperedPayloadIsInvalidSignature(t *testing.T) {
	issuer, err := NewJWTIssuer(newTestIssuerConfig())
	require.NoError(t, err)

	session, err := issuer.Issue(testIdentity())
	require.NoError(t, err)

	// Flip one byte inside the payload segment.
	parts := strings.Split(session.AccessToken, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[3] == 'A' {
		payload[3] = 'B'
	} else {
		payload[3] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = issuer.ValidateAccess(tampered)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidSignature))
}

func TestJWTIssuer_ForeignSecretIsInvalidSignature(t *testing.T) {
	issuer, err := NewJWTIssuer(newTestIssuerConfig())
	require.NoError(t, err)

	otherCfg := newTestIssuerConfig()
	otherCfg.Token.Secret = "a_completely_different_secret_value"
	other, err := NewJWTIssuer(otherCfg)
	require.NoError(t, err)

	session, err := other.Issue(testIdentity())
	require.NoError(t, err)

	_, err = issuer.ValidateAccess(session.AccessToken)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidSignature))
}

func TestJWTIssuer_ExpiredAccessToken(t *testing.T) {
	cfg := newTestIssuerConfig()
	cfg.Token.ClockSkew = time.Nanosecond
	issuer, err := NewJWTIssuer(cfg)
	require.NoError(t, err)

	impl, ok := issuer.(*jwtIssuer)
	require.True(t, ok)

	// Issue a pair whose access token died an hour ago.
	past := time.Now().Add(-time.Hour - cfg.Token.AccessTTL)
	session, err := impl.issueAt("sub-1", "a@example.com", entity.ProviderGoogle, uuid.New(), past)
	require.NoError(t, err)

	_, err = issuer.ValidateAccess(session.AccessToken)
	assert.True(t, errors.Is(err, domainerrors.ErrTokenExpired))
}

func TestJWTIssuer_RefreshReusesTokenOutsideRenewalWindow(t *testing.T) {
	issuer, err := NewJWTIssuer(newTestIssuerConfig())
	require.NoError(t, err)

	session, err := issuer.Issue(testIdentity())
	require.NoError(t, err)

	refreshed, rotated, err := issuer.RefreshAccess(session.RefreshToken)
	require.NoError(t, err)
	assert.False(t, rotated)
	assert.Equal(t, session.RefreshToken, refreshed.RefreshToken)
	assert.NotEqual(t, session.AccessToken, refreshed.AccessToken)
	assert.True(t, refreshed.AccessExpiresAt.After(session.AccessExpiresAt),
		"new access expiry must be strictly later")
	assert.Equal(t, session.ID, refreshed.ID)
}

func TestJWTIssuer_RefreshRotatesPairInsideRenewalWindow(t *testing.T) {
	cfg := newTestIssuerConfig()
	// Window wider than the whole refresh TTL: every refresh rotates.
	cfg.Token.RenewalWindow = cfg.Token.RefreshTTL + time.Hour
	issuer, err := NewJWTIssuer(cfg)
	require.NoError(t, err)

	session, err := issuer.Issue(testIdentity())
	require.NoError(t, err)

	refreshed, rotated, err := issuer.RefreshAccess(session.RefreshToken)
	require.NoError(t, err)
	assert.True(t, rotated)
	assert.NotEqual(t, session.RefreshToken, refreshed.RefreshToken)
	assert.True(t, refreshed.RefreshExpiresAt.After(session.RefreshExpiresAt))
	assert.Equal(t, session.ID, refreshed.ID, "rotation keeps the session id")
}

func TestJWTIssuer_HashTokenIsStable(t *testing.T) {
	issuer, err := NewJWTIssuer(newTestIssuerConfig())
	require.NoError(t, err)

	h1 := issuer.HashToken("raw-token")
	h2 := issuer.HashToken("raw-token")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, issuer.HashToken("other-token"))
}

func TestJWTIssuer_RejectsMissingSecret(t *testing.T) {
	cfg := newTestIssuerConfig()
	cfg.Token.Secret = ""

	issuer, err := NewJWTIssuer(cfg)
	assert.Error(t, err)
	assert.Nil(t, issuer)
}
