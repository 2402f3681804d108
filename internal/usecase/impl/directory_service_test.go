package impl

import (
	"context"
	"testing"
	"time"

	"fitgate/config"
	"fitgate/internal/domain/entity"
	domainerrors "fitgate/internal/domain/errors"
	domainservice "fitgate/internal/domain/service"
	"fitgate/internal/infra/auth"
	"fitgate/internal/infra/cache"
	"fitgate/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// directoryServiceFixtures holds all test dependencies for directory service tests.
type directoryServiceFixtures struct {
	service     usecase.DirectoryUsecase
	store       *memStore
	tokenIssuer domainservice.TokenIssuer
}

func createTestDirectoryService(t *testing.T) directoryServiceFixtures {
	t.Helper()

	store := newMemStore()
	txManager := &memTxManager{store: store}

	tokenIssuer, err := auth.NewJWTIssuer(newTestTokenConfig())
	require.NoError(t, err)

	client := &fakeFitnessClient{refresh: func(context.Context, string) (*domainservice.RefreshedToken, error) {
		return &domainservice.RefreshedToken{
			AccessToken: "ya29.fresh",
			ExpiresAt:   time.Now().Add(time.Hour),
		}, nil
	}}
	cfg := &config.Config{
		Fitness: &config.FitnessConfig{
			RefreshMargin:     5 * time.Minute,
			LeaseTTL:          5 * time.Second,
			LeaseWait:         500 * time.Millisecond,
			LeasePollInterval: 10 * time.Millisecond,
		},
	}
	credentialUC := NewCredentialService(cfg, txManager, client, cache.NewMemoryLeaseStore(), newDiscardLogger())

	svc := NewDirectoryService(txManager, tokenIssuer, credentialUC, newDiscardLogger())

	return directoryServiceFixtures{
		service:     svc,
		store:       store,
		tokenIssuer: tokenIssuer,
	}
}

func (fx *directoryServiceFixtures) seedIdentities() {
	fx.store.identities["g-1"] = &entity.Identity{
		Subject: "g-1", Email: "real@example.com", Provider: entity.ProviderGoogle,
	}
	fx.store.identities["t-1"] = &entity.Identity{
		Subject: "t-1", Email: "tester@test.local", Provider: entity.ProviderTest,
	}
}

func TestDirectoryService_ListUsersFilters(t *testing.T) {
	fx := createTestDirectoryService(t)
	fx.seedIdentities()
	ctx := context.Background()

	all, err := fx.service.ListUsers(ctx, usecase.DirectoryFilter{IncludeTest: true, IncludeReal: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	testOnly, err := fx.service.ListUsers(ctx, usecase.DirectoryFilter{IncludeTest: true})
	require.NoError(t, err)
	require.Len(t, testOnly, 1)
	assert.Equal(t, "t-1", testOnly[0].Subject)

	realOnly, err := fx.service.ListUsers(ctx, usecase.DirectoryFilter{IncludeReal: true})
	require.NoError(t, err)
	require.Len(t, realOnly, 1)
	assert.Equal(t, "g-1", realOnly[0].Subject)
}

func TestDirectoryService_IssueTokenByEmail(t *testing.T) {
	fx := createTestDirectoryService(t)
	fx.seedIdentities()
	ctx := context.Background()

	output, err := fx.service.IssueTokenByEmail(ctx, "real@example.com")
	require.NoError(t, err)

	claims, err := fx.tokenIssuer.ValidateAccess(output.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "g-1", claims.Subject)
	assert.Len(t, fx.store.sessions, 1, "operator tokens are real sessions")

	_, err = fx.service.IssueTokenByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, domainerrors.ErrIdentityNotFound))
}

func TestDirectoryService_FreshFitnessTokenByEmail(t *testing.T) {
	fx := createTestDirectoryService(t)
	fx.seedIdentities()
	ctx := context.Background()

	fx.store.credentials["g-1"] = &entity.FitnessCredential{
		IdentitySubject: "g-1",
		AccessToken:     "ya29.stale",
		RefreshToken:    "1//stored",
		ExpiresAt:       time.Now().Add(time.Minute),
	}

	output, err := fx.service.FreshFitnessTokenByEmail(ctx, "real@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ya29.fresh", output.AccessToken)
	assert.True(t, output.Refreshed)

	_, err = fx.service.FreshFitnessTokenByEmail(ctx, "tester@test.local")
	assert.True(t, errors.Is(err, domainerrors.ErrCredentialNotFound))
}
