package impl

import (
	"context"
	"sync"
	"testing"
	"time"

	"fitgate/config"
	"fitgate/internal/domain/entity"
	domainerrors "fitgate/internal/domain/errors"
	domainservice "fitgate/internal/domain/service"
	"fitgate/internal/infra/cache"
	"fitgate/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const credSubject = "110248495921238986420"

// credentialServiceFixtures holds all test dependencies for credential service tests.
type credentialServiceFixtures struct {
	service usecase.CredentialUsecase
	store   *memStore
	client  *fakeFitnessClient
	leases  domainservice.LeaseStore
}

func createTestCredentialService(t *testing.T, client *fakeFitnessClient) credentialServiceFixtures {
	t.Helper()

	store := newMemStore()
	store.identities[credSubject] = &entity.Identity{
		Subject:  credSubject,
		Email:    "runner@example.com",
		Provider: entity.ProviderGoogle,
	}

	leases := cache.NewMemoryLeaseStore()
	cfg := &config.Config{
		Fitness: &config.FitnessConfig{
			RefreshMargin:     5 * time.Minute,
			LeaseTTL:          5 * time.Second,
			LeaseWait:         500 * time.Millisecond,
			LeasePollInterval: 10 * time.Millisecond,
		},
	}

	svc := NewCredentialService(cfg, &memTxManager{store: store}, client, leases, newDiscardLogger())

	return credentialServiceFixtures{
		service: svc,
		store:   store,
		client:  client,
		leases:  leases,
	}
}

func storedCredential(expiresIn time.Duration) *entity.FitnessCredential {
	return &entity.FitnessCredential{
		IdentitySubject: credSubject,
		AccessToken:     "ya29.stored",
		RefreshToken:    "1//stored-refresh",
		ExpiresAt:       time.Now().Add(expiresIn),
	}
}

func TestCredentialService_FreshTokenSkipsUpstream(t *testing.T) {
	client := &fakeFitnessClient{refresh: func(context.Context, string) (*domainservice.RefreshedToken, error) {
		t.Fatal("fresh credential must not hit the provider")

		return nil, nil
	}}
	fx := createTestCredentialService(t, client)
	fx.store.credentials[credSubject] = storedCredential(time.Hour)

	output, err := fx.service.EnsureFreshToken(context.Background(), credSubject)
	require.NoError(t, err)
	assert.Equal(t, "ya29.stored", output.AccessToken)
	assert.False(t, output.Refreshed)
}

func TestCredentialService_StaleTokenRefreshes(t *testing.T) {
	client := &fakeFitnessClient{refresh: func(_ context.Context, refreshToken string) (*domainservice.RefreshedToken, error) {
		assert.Equal(t, "1//stored-refresh", refreshToken)

		return &domainservice.RefreshedToken{
			AccessToken: "ya29.fresh",
			ExpiresAt:   time.Now().Add(time.Hour),
		}, nil
	}}
	fx := createTestCredentialService(t, client)
	// A minute of life left sits inside the five minute margin.
	fx.store.credentials[credSubject] = storedCredential(time.Minute)

	output, err := fx.service.EnsureFreshToken(context.Background(), credSubject)
	require.NoError(t, err)
	assert.Equal(t, "ya29.fresh", output.AccessToken)
	assert.True(t, output.Refreshed)
	assert.Equal(t, 1, fx.client.callCount())

	stored := fx.store.credentials[credSubject]
	assert.Equal(t, "ya29.fresh", stored.AccessToken)
	assert.Equal(t, "1//stored-refresh", stored.RefreshToken, "refresh token is kept")
	assert.False(t, stored.LastRefreshedAt.IsZero())
}

func TestCredentialService_ConcurrentCallersSingleRefresh(t *testing.T) {
	client := &fakeFitnessClient{refresh: func(context.Context, string) (*domainservice.RefreshedToken, error) {
		// Hold the lease long enough for every other caller to line up.
		time.Sleep(50 * time.Millisecond)

		return &domainservice.RefreshedToken{
			AccessToken: "ya29.fresh",
			ExpiresAt:   time.Now().Add(time.Hour),
		}, nil
	}}
	fx := createTestCredentialService(t, client)
	fx.store.credentials[credSubject] = storedCredential(time.Minute)

	const callers = 8

	var wg sync.WaitGroup
	outputs := make([]*usecase.FitnessTokenOutput, callers)
	errs := make([]error, callers)

	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outputs[i], errs[i] = fx.service.EnsureFreshToken(context.Background(), credSubject)
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, "ya29.fresh", outputs[i].AccessToken)
	}

	assert.Equal(t, 1, fx.client.callCount(), "concurrent callers collapse into one upstream refresh")
}

func TestCredentialService_RevokedGrantFlagsIdentity(t *testing.T) {
	client := &fakeFitnessClient{refresh: func(context.Context, string) (*domainservice.RefreshedToken, error) {
		return nil, domainservice.ErrGrantRevoked
	}}
	fx := createTestCredentialService(t, client)
	fx.store.credentials[credSubject] = storedCredential(time.Minute)

	_, err := fx.service.EnsureFreshToken(context.Background(), credSubject)
	assert.True(t, errors.Is(err, domainerrors.ErrCredentialRevoked))

	_, hasCredential := fx.store.credentials[credSubject]
	assert.False(t, hasCredential, "revoked credential is dropped")
	assert.True(t, fx.store.identities[credSubject].NeedsReauth)

	// Subsequent calls fail fast on the flag without touching the provider.
	_, err = fx.service.EnsureFreshToken(context.Background(), credSubject)
	assert.True(t, errors.Is(err, domainerrors.ErrCredentialRevoked))
	assert.Equal(t, 1, fx.client.callCount())
}

func TestCredentialService_ProviderOutageKeepsCredential(t *testing.T) {
	client := &fakeFitnessClient{refresh: func(context.Context, string) (*domainservice.RefreshedToken, error) {
		return nil, domainservice.ErrProviderUnreachable
	}}
	fx := createTestCredentialService(t, client)
	fx.store.credentials[credSubject] = storedCredential(time.Minute)

	_, err := fx.service.EnsureFreshToken(context.Background(), credSubject)
	assert.True(t, errors.Is(err, domainerrors.ErrProviderUnavailable))

	_, hasCredential := fx.store.credentials[credSubject]
	assert.True(t, hasCredential, "outage does not invalidate the stored pair")
	assert.False(t, fx.store.identities[credSubject].NeedsReauth)
}

func TestCredentialService_MissingCredential(t *testing.T) {
	client := &fakeFitnessClient{}
	fx := createTestCredentialService(t, client)

	_, err := fx.service.EnsureFreshToken(context.Background(), credSubject)
	assert.True(t, errors.Is(err, domainerrors.ErrCredentialNotFound))
}

func TestCredentialService_UnknownSubject(t *testing.T) {
	client := &fakeFitnessClient{}
	fx := createTestCredentialService(t, client)

	_, err := fx.service.EnsureFreshToken(context.Background(), "no-such-subject")
	assert.True(t, errors.Is(err, domainerrors.ErrIdentityNotFound))
}

func TestCredentialService_StuckHolderTimesOutLosers(t *testing.T) {
	client := &fakeFitnessClient{refresh: func(context.Context, string) (*domainservice.RefreshedToken, error) {
		t.Fatal("loser must not call upstream")

		return nil, nil
	}}
	fx := createTestCredentialService(t, client)
	fx.store.credentials[credSubject] = storedCredential(time.Minute)

	// Simulate a holder that died mid-refresh: the lease is taken, the
	// credential never turns fresh.
	held, err := fx.leases.Acquire(context.Background(), credSubject, time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	_, err = fx.service.EnsureFreshToken(context.Background(), credSubject)
	assert.True(t, errors.Is(err, domainerrors.ErrRefreshFailed))
}
