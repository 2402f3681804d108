package impl

import (
	"context"
	"log/slog"
	"time"

	"fitgate/config"
	"fitgate/internal/domain/entity"
	domainerrors "fitgate/internal/domain/errors"
	"fitgate/internal/domain/repository"
	"fitgate/internal/domain/service"
	"fitgate/internal/usecase"

	"github.com/pkg/errors"
)

const (
	defaultRefreshMargin     = 5 * time.Minute
	defaultLeaseTTL          = 30 * time.Second
	defaultLeaseWait         = 10 * time.Second
	defaultLeasePollInterval = 200 * time.Millisecond
)

// credentialService implements the CredentialUsecase interface.
// A per-subject lease in the shared cache collapses concurrent refreshes into
// one upstream call; losers wait for the stored credential to turn fresh.
type credentialService struct {
	txManager     repository.TransactionManager
	fitnessClient service.FitnessTokenClient
	leases        service.LeaseStore
	logger        *slog.Logger

	refreshMargin     time.Duration
	leaseTTL          time.Duration
	leaseWait         time.Duration
	leasePollInterval time.Duration
}

// NewCredentialService is the constructor for credentialService.
func NewCredentialService(
	cfg *config.Config,
	txManager repository.TransactionManager,
	fitnessClient service.FitnessTokenClient,
	leases service.LeaseStore,
	logger *slog.Logger,
) usecase.CredentialUsecase {
	srv := &credentialService{
		txManager:         txManager,
		fitnessClient:     fitnessClient,
		leases:            leases,
		logger:            logger,
		refreshMargin:     defaultRefreshMargin,
		leaseTTL:          defaultLeaseTTL,
		leaseWait:         defaultLeaseWait,
		leasePollInterval: defaultLeasePollInterval,
	}

	if cfg.Fitness != nil {
		if cfg.Fitness.RefreshMargin > 0 {
			srv.refreshMargin = cfg.Fitness.RefreshMargin
		}
		if cfg.Fitness.LeaseTTL > 0 {
			srv.leaseTTL = cfg.Fitness.LeaseTTL
		}
		if cfg.Fitness.LeaseWait > 0 {
			srv.leaseWait = cfg.Fitness.LeaseWait
		}
		if cfg.Fitness.LeasePollInterval > 0 {
			srv.leasePollInterval = cfg.Fitness.LeasePollInterval
		}
	}

	return srv
}

// EnsureFreshToken returns a Fitness access token for the identity,
// refreshing it against Google first if it is stale.
func (srv *credentialService) EnsureFreshToken(ctx context.Context, subject string) (*usecase.FitnessTokenOutput, error) {
	credential, err := srv.loadCredential(ctx, subject)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if credential.FreshFor(srv.refreshMargin, now) {
		return &usecase.FitnessTokenOutput{
			AccessToken: credential.AccessToken,
			ExpiresAt:   credential.ExpiresAt,
		}, nil
	}

	acquired, err := srv.leases.Acquire(ctx, subject, srv.leaseTTL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire refresh lease")
	}

	if !acquired {
		return srv.awaitRefresh(ctx, subject)
	}

	defer func() {
		if err := srv.leases.Release(context.WithoutCancel(ctx), subject); err != nil {
			srv.logger.Warn("Failed to release refresh lease", "error", err, "subject", subject)
		}
	}()

	return srv.refreshCredential(ctx, subject, credential)
}

// loadCredential reads the stored credential and maps the not-found and
// needs-reauth states onto the error taxonomy.
func (srv *credentialService) loadCredential(ctx context.Context, subject string) (*entity.FitnessCredential, error) {
	var credential *entity.FitnessCredential

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		identityRepo := repoFactory.NewIdentityRepository()
		credentialRepo := repoFactory.NewCredentialRepository()

		identity, err := identityRepo.FindBySubject(ctx, subject)
		if err != nil {
			if errors.Is(err, repository.ErrIdentityNotFound) {
				return domainerrors.ErrIdentityNotFound.WrapMessage("unknown subject")
			}

			return errors.Wrap(err, "failed to find identity")
		}

		if identity.NeedsReauth {
			return domainerrors.ErrCredentialRevoked.WrapMessage("identity flagged for re-authentication")
		}

		credential, err = credentialRepo.FindBySubject(ctx, subject)
		if err != nil {
			if errors.Is(err, repository.ErrCredentialNotFound) {
				return domainerrors.ErrCredentialNotFound.WrapMessage("no stored fitness credential")
			}

			return errors.Wrap(err, "failed to find credential")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return credential, nil
}

// refreshCredential performs the upstream refresh while holding the lease.
func (srv *credentialService) refreshCredential(ctx context.Context, subject string, credential *entity.FitnessCredential) (*usecase.FitnessTokenOutput, error) {
	// Another holder may have finished between our staleness check and the
	// lease grant; re-read before going upstream.
	current, err := srv.loadCredential(ctx, subject)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if current.FreshFor(srv.refreshMargin, now) {
		return &usecase.FitnessTokenOutput{
			AccessToken: current.AccessToken,
			ExpiresAt:   current.ExpiresAt,
		}, nil
	}
	credential = current

	refreshed, err := srv.fitnessClient.RefreshAccessToken(ctx, credential.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGrantRevoked):
			srv.logger.Warn("Google revoked the fitness grant", "subject", subject)

			if revokeErr := srv.RevokeCredential(ctx, subject); revokeErr != nil {
				srv.logger.Error("Failed to mark credential revoked", "error", revokeErr, "subject", subject)
			}

			return nil, domainerrors.ErrCredentialRevoked.WrapMessage("refresh token rejected upstream")
		case errors.Is(err, service.ErrProviderUnreachable):
			return nil, domainerrors.ErrProviderUnavailable.WrapMessage("token refresh could not reach google")
		default:
			return nil, errors.Wrap(err, "fitness token refresh failed")
		}
	}

	updated := &entity.FitnessCredential{
		IdentitySubject: subject,
		AccessToken:     refreshed.AccessToken,
		RefreshToken:    credential.RefreshToken,
		ExpiresAt:       refreshed.ExpiresAt,
		LastRefreshedAt: time.Now(),
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.NewCredentialRepository().Upsert(ctx, updated)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to store refreshed credential")
	}

	srv.logger.Info("Fitness credential refreshed", slog.String("subject", subject))

	return &usecase.FitnessTokenOutput{
		AccessToken: updated.AccessToken,
		ExpiresAt:   updated.ExpiresAt,
		Refreshed:   true,
	}, nil
}

// awaitRefresh polls the stored credential while another caller holds the
// lease. The wait is bounded; a holder that dies leaves the losers with a
// refresh-failed answer rather than a hang.
func (srv *credentialService) awaitRefresh(ctx context.Context, subject string) (*usecase.FitnessTokenOutput, error) {
	deadline := time.Now().Add(srv.leaseWait)
	ticker := time.NewTicker(srv.leasePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "context cancelled while waiting for refresh")
		case <-ticker.C:
			credential, err := srv.loadCredential(ctx, subject)
			if err != nil {
				// The holder may have found the grant revoked meanwhile.
				return nil, err
			}

			if credential.FreshFor(srv.refreshMargin, time.Now()) {
				return &usecase.FitnessTokenOutput{
					AccessToken: credential.AccessToken,
					ExpiresAt:   credential.ExpiresAt,
				}, nil
			}

			if time.Now().After(deadline) {
				srv.logger.Warn("Timed out waiting for concurrent refresh", "subject", subject)

				return nil, domainerrors.ErrRefreshFailed.WrapMessage("timed out waiting for concurrent refresh")
			}
		}
	}
}

// RevokeCredential drops the stored credential and flags the identity for
// re-authentication.
func (srv *credentialService) RevokeCredential(ctx context.Context, subject string) error {
	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		identityRepo := repoFactory.NewIdentityRepository()
		credentialRepo := repoFactory.NewCredentialRepository()

		if err := credentialRepo.Delete(ctx, subject); err != nil &&
			!errors.Is(err, repository.ErrCredentialNotFound) {
			return errors.Wrap(err, "failed to delete credential")
		}

		if err := identityRepo.SetNeedsReauth(ctx, subject, true); err != nil {
			return errors.Wrap(err, "failed to flag identity for reauth")
		}

		return nil
	})
}
