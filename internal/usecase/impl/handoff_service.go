package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"fitgate/config"
	"fitgate/internal/domain/entity"
	domainerrors "fitgate/internal/domain/errors"
	"fitgate/internal/domain/repository"
	"fitgate/internal/domain/service"
	"fitgate/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const defaultTicketTTL = 2 * time.Minute

// handoffService implements the HandoffUsecase interface.
type handoffService struct {
	txManager   repository.TransactionManager
	tickets     service.TicketStore
	tokenIssuer service.TokenIssuer
	qrEncoder   service.QRCodeService
	logger      *slog.Logger

	ticketTTL     time.Duration
	redeemBaseURL string
}

// NewHandoffService is the constructor for handoffService.
func NewHandoffService(
	cfg *config.Config,
	txManager repository.TransactionManager,
	tickets service.TicketStore,
	tokenIssuer service.TokenIssuer,
	qrEncoder service.QRCodeService,
	logger *slog.Logger,
) usecase.HandoffUsecase {
	srv := &handoffService{
		txManager:   txManager,
		tickets:     tickets,
		tokenIssuer: tokenIssuer,
		qrEncoder:   qrEncoder,
		logger:      logger,
		ticketTTL:   defaultTicketTTL,
	}

	if cfg.Handoff != nil {
		if cfg.Handoff.TicketTTL > 0 {
			srv.ticketTTL = cfg.Handoff.TicketTTL
		}
		srv.redeemBaseURL = strings.TrimSuffix(cfg.Handoff.RedeemBaseURL, "/")
	}

	return srv
}

// CreateTicket mints a single-use ticket bound to the caller's session.
func (srv *handoffService) CreateTicket(ctx context.Context, subject, sessionID string) (*usecase.HandoffTicketOutput, error) {
	parsedSessionID, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("malformed session id")
	}

	// The session must still be live; a revoked device cannot hand itself off.
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		record, err := repoFactory.NewSessionRepository().FindByID(ctx, parsedSessionID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) || errors.Is(err, repository.ErrSessionExpired) {
				return domainerrors.ErrTokenRevoked.WrapMessage("session no longer exists")
			}

			return errors.Wrap(err, "failed to find session")
		}

		if record.IdentitySubject != subject {
			return domainerrors.ErrForbidden.WrapMessage("session belongs to another identity")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	ticket := &entity.HandoffTicket{
		ID:              uuid.New(),
		IdentitySubject: subject,
		SessionID:       parsedSessionID,
		ExpiresAt:       time.Now().Add(srv.ticketTTL),
	}

	if err := srv.tickets.Put(ctx, ticket); err != nil {
		return nil, errors.Wrap(err, "failed to store handoff ticket")
	}

	srv.logger.Info("Handoff ticket created",
		slog.String("ticketID", ticket.ID.String()),
		slog.String("subject", subject))

	return &usecase.HandoffTicketOutput{
		TicketID:  ticket.ID.String(),
		RedeemURL: srv.redeemBaseURL + "/" + ticket.ID.String(),
		ExpiresAt: ticket.ExpiresAt,
	}, nil
}

// TicketQR renders the redeem URL of a fresh ticket as a PNG QR code.
func (srv *handoffService) TicketQR(ctx context.Context, subject, sessionID string) ([]byte, error) {
	output, err := srv.CreateTicket(ctx, subject, sessionID)
	if err != nil {
		return nil, err
	}

	png, err := srv.qrEncoder.EncodePNG(output.RedeemURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render QR code")
	}

	return png, nil
}

// Redeem consumes a ticket exactly once and issues a new session pair for the
// redeeming device. The original device keeps its own session.
func (srv *handoffService) Redeem(ctx context.Context, ticketID string) (*usecase.SessionOutput, error) {
	ticket, err := srv.tickets.Consume(ctx, ticketID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTicketNotFound):
			return nil, domainerrors.ErrTicketNotFound.WrapMessage("unknown or reaped ticket")
		case errors.Is(err, service.ErrTicketConsumed):
			return nil, domainerrors.ErrTicketConsumed.WrapMessage("ticket already redeemed")
		case errors.Is(err, service.ErrTicketExpired):
			return nil, domainerrors.ErrTicketExpired.WrapMessage("ticket past its expiry")
		default:
			return nil, errors.Wrap(err, "failed to consume ticket")
		}
	}

	var identity *entity.Identity
	var session *entity.Session

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		identityRepo := repoFactory.NewIdentityRepository()
		sessionRepo := repoFactory.NewSessionRepository()

		// A ticket does not outlive the session it was minted from.
		if _, err := sessionRepo.FindByID(ctx, ticket.SessionID); err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) || errors.Is(err, repository.ErrSessionExpired) {
				return domainerrors.ErrTokenRevoked.WrapMessage("originating session no longer exists")
			}

			return errors.Wrap(err, "failed to find originating session")
		}

		identity, err = identityRepo.FindBySubject(ctx, ticket.IdentitySubject)
		if err != nil {
			if errors.Is(err, repository.ErrIdentityNotFound) {
				return domainerrors.ErrIdentityNotFound.WrapMessage("ticket identity no longer exists")
			}

			return errors.Wrap(err, "failed to find identity")
		}

		// The second device gets its own pair and its own session row.
		session, err = srv.tokenIssuer.Issue(identity)
		if err != nil {
			return errors.Wrap(err, "failed to issue session tokens")
		}

		record := &entity.SessionRecord{
			ID:              session.ID,
			IdentitySubject: identity.Subject,
			TokenHash:       srv.tokenIssuer.HashToken(session.RefreshToken),
			ExpiresAt:       session.RefreshExpiresAt,
		}
		if err := sessionRepo.Create(ctx, record); err != nil {
			return errors.Wrap(err, "failed to persist session")
		}

		return nil
	})
	if err != nil {
		srv.logger.Warn("Handoff redemption failed", "error", err, "ticketID", ticketID)

		return nil, err
	}

	srv.logger.Info("Handoff ticket redeemed",
		slog.String("ticketID", ticketID),
		slog.String("subject", identity.Subject))

	return sessionToOutput(session, identity), nil
}
