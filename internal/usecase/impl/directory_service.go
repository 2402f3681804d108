package impl

import (
	"context"
	"log/slog"

	"fitgate/internal/domain/entity"
	domainerrors "fitgate/internal/domain/errors"
	"fitgate/internal/domain/repository"
	"fitgate/internal/domain/service"
	"fitgate/internal/usecase"

	"github.com/pkg/errors"
)

// directoryService implements the DirectoryUsecase interface. It backs the
// internal operator endpoints and is never mounted on the public surface.
type directoryService struct {
	txManager    repository.TransactionManager
	tokenIssuer  service.TokenIssuer
	credentialUC usecase.CredentialUsecase
	logger       *slog.Logger
}

// NewDirectoryService is the constructor for directoryService.
func NewDirectoryService(
	txManager repository.TransactionManager,
	tokenIssuer service.TokenIssuer,
	credentialUC usecase.CredentialUsecase,
	logger *slog.Logger,
) usecase.DirectoryUsecase {
	return &directoryService{
		txManager:    txManager,
		tokenIssuer:  tokenIssuer,
		credentialUC: credentialUC,
		logger:       logger,
	}
}

// ListUsers returns known identities filtered by provenance.
func (srv *directoryService) ListUsers(ctx context.Context, filter usecase.DirectoryFilter) ([]*entity.Identity, error) {
	var identities []*entity.Identity

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.NewIdentityRepository().List(ctx, filter.IncludeTest, filter.IncludeReal)
		if err != nil {
			return errors.Wrap(err, "failed to list identities")
		}
		identities = found

		return nil
	})
	if err != nil {
		return nil, err
	}

	return identities, nil
}

// IssueTokenByEmail mints a session pair for the identity with the given
// email, without any credential check.
func (srv *directoryService) IssueTokenByEmail(ctx context.Context, email string) (*usecase.SessionOutput, error) {
	var identity *entity.Identity
	var output *usecase.SessionOutput

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		identityRepo := repoFactory.NewIdentityRepository()
		sessionRepo := repoFactory.NewSessionRepository()

		found, err := identityRepo.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrIdentityNotFound) {
				return domainerrors.ErrIdentityNotFound.WrapMessage("no identity for email")
			}

			return errors.Wrap(err, "failed to find identity")
		}
		identity = found

		session, err := srv.tokenIssuer.Issue(identity)
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

		output = sessionToOutput(session, identity)

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.logger.Info("Operator token issued", slog.String("email", email), slog.String("subject", identity.Subject))

	return output, nil
}

// FreshFitnessTokenByEmail returns a guaranteed-fresh Fitness access token
// for the identity with the given email.
func (srv *directoryService) FreshFitnessTokenByEmail(ctx context.Context, email string) (*usecase.FitnessTokenOutput, error) {
	var subject string

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		identity, err := repoFactory.NewIdentityRepository().FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrIdentityNotFound) {
				return domainerrors.ErrIdentityNotFound.WrapMessage("no identity for email")
			}

			return errors.Wrap(err, "failed to find identity")
		}
		subject = identity.Subject

		return nil
	})
	if err != nil {
		return nil, err
	}

	return srv.credentialUC.EnsureFreshToken(ctx, subject)
}
