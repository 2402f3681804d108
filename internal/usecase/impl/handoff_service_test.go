package impl

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"fitgate/config"
	"fitgate/internal/domain/entity"
	domainerrors "fitgate/internal/domain/errors"
	"fitgate/internal/domain/service"
	"fitgate/internal/infra/auth"
	"fitgate/internal/infra/cache"
	"fitgate/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// handoffServiceFixtures holds all test dependencies for handoff service tests.
type handoffServiceFixtures struct {
	service     usecase.HandoffUsecase
	store       *memStore
	tokenIssuer service.TokenIssuer
}

func createTestHandoffService(t *testing.T, ticketTTL time.Duration) handoffServiceFixtures {
	t.Helper()

	store := newMemStore()
	tokenIssuer, err := auth.NewJWTIssuer(newTestTokenConfig())
	require.NoError(t, err)

	cfg := &config.Config{
		Handoff: &config.HandoffConfig{
			TicketTTL:     ticketTTL,
			RedeemBaseURL: "https://fitgate.example.com/api/v1/auth/handoff/redeem",
		},
	}

	svc := NewHandoffService(
		cfg,
		&memTxManager{store: store},
		cache.NewMemoryTicketStore(),
		tokenIssuer,
		fakeQREncoder{},
		newDiscardLogger(),
	)

	return handoffServiceFixtures{
		service:     svc,
		store:       store,
		tokenIssuer: tokenIssuer,
	}
}

// seedSession plants an identity and a live session row, returning the
// session id as the delivery layer would read it from access token claims.
func (fx *handoffServiceFixtures) seedSession(t *testing.T) (subject, sessionID string) {
	t.Helper()

	subject = "110248495921238986420"
	fx.store.identities[subject] = &entity.Identity{
		Subject:  subject,
		Email:    "runner@example.com",
		Provider: entity.ProviderGoogle,
	}

	id := uuid.New()
	fx.store.sessions[id] = &entity.SessionRecord{
		ID:              id,
		IdentitySubject: subject,
		TokenHash:       "hash",
		ExpiresAt:       time.Now().Add(time.Hour),
	}

	return subject, id.String()
}

func TestHandoffService_CreateAndRedeem(t *testing.T) {
	fx := createTestHandoffService(t, 2*time.Minute)
	ctx := context.Background()
	subject, sessionID := fx.seedSession(t)

	ticket, err := fx.service.CreateTicket(ctx, subject, sessionID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ticket.RedeemURL, ticket.TicketID))
	assert.True(t, ticket.ExpiresAt.After(time.Now()))

	output, err := fx.service.Redeem(ctx, ticket.TicketID)
	require.NoError(t, err)

	// The new device holds its own valid session.
	claims, err := fx.tokenIssuer.ValidateAccess(output.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.NotEqual(t, sessionID, claims.SessionID, "the redeeming device gets a fresh session")
	assert.Len(t, fx.store.sessions, 2)
}

func TestHandoffService_RedeemTwiceFails(t *testing.T) {
	fx := createTestHandoffService(t, 2*time.Minute)
	ctx := context.Background()
	subject, sessionID := fx.seedSession(t)

	ticket, err := fx.service.CreateTicket(ctx, subject, sessionID)
	require.NoError(t, err)

	_, err = fx.service.Redeem(ctx, ticket.TicketID)
	require.NoError(t, err)

	_, err = fx.service.Redeem(ctx, ticket.TicketID)
	assert.True(t, errors.Is(err, domainerrors.ErrTicketConsumed))
}

func TestHandoffService_ConcurrentRedemptionSingleWinner(t *testing.T) {
	fx := createTestHandoffService(t, 2*time.Minute)
	ctx := context.Background()
	subject, sessionID := fx.seedSession(t)

	ticket, err := fx.service.CreateTicket(ctx, subject, sessionID)
	require.NoError(t, err)

	const racers = 12

	var wg sync.WaitGroup
	results := make(chan error, racers)

	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.service.Redeem(ctx, ticket.TicketID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var winners int
	for err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, domainerrors.ErrTicketConsumed):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, winners, "exactly one device adopts the session")
}

func TestHandoffService_ExpiredTicket(t *testing.T) {
	fx := createTestHandoffService(t, 20*time.Millisecond)
	ctx := context.Background()
	subject, sessionID := fx.seedSession(t)

	ticket, err := fx.service.CreateTicket(ctx, subject, sessionID)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = fx.service.Redeem(ctx, ticket.TicketID)
	assert.True(t, errors.Is(err, domainerrors.ErrTicketExpired))
}

func TestHandoffService_UnknownTicket(t *testing.T) {
	fx := createTestHandoffService(t, 2*time.Minute)

	_, err := fx.service.Redeem(context.Background(), uuid.NewString())
	assert.True(t, errors.Is(err, domainerrors.ErrTicketNotFound))
}

func TestHandoffService_RevokedSessionCannotCreateTicket(t *testing.T) {
	fx := createTestHandoffService(t, 2*time.Minute)
	ctx := context.Background()
	subject, _ := fx.seedSession(t)

	_, err := fx.service.CreateTicket(ctx, subject, uuid.NewString())
	assert.True(t, errors.Is(err, domainerrors.ErrTokenRevoked))
}

func TestHandoffService_ForeignSessionRejected(t *testing.T) {
	fx := createTestHandoffService(t, 2*time.Minute)
	ctx := context.Background()
	_, sessionID := fx.seedSession(t)

	_, err := fx.service.CreateTicket(ctx, "someone-else", sessionID)
	assert.True(t, errors.Is(err, domainerrors.ErrForbidden))
}

func TestHandoffService_RedeemAfterSessionRevocationFails(t *testing.T) {
	fx := createTestHandoffService(t, 2*time.Minute)
	ctx := context.Background()
	subject, sessionID := fx.seedSession(t)

	ticket, err := fx.service.CreateTicket(ctx, subject, sessionID)
	require.NoError(t, err)

	// Log the originating device out before the ticket is scanned.
	id, err := uuid.Parse(sessionID)
	require.NoError(t, err)
	delete(fx.store.sessions, id)

	_, err = fx.service.Redeem(ctx, ticket.TicketID)
	assert.True(t, errors.Is(err, domainerrors.ErrTokenRevoked))
}

func TestHandoffService_TicketQR(t *testing.T) {
	fx := createTestHandoffService(t, 2*time.Minute)
	ctx := context.Background()
	subject, sessionID := fx.seedSession(t)

	png, err := fx.service.TicketQR(ctx, subject, sessionID)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), png)
}
