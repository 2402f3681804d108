// Package impl contains the concrete implementations of the usecase interfaces.
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

// authService implements the AuthUsecase interface.
type authService struct {
	txManager    repository.TransactionManager
	codeVerifier service.CodeVerifier
	testVerifier service.TestCredentialVerifier
	tokenIssuer  service.TokenIssuer
	logger       *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(
	txManager repository.TransactionManager,
	codeVerifier service.CodeVerifier,
	testVerifier service.TestCredentialVerifier,
	tokenIssuer service.TokenIssuer,
	logger *slog.Logger,
) usecase.AuthUsecase {
	return &authService{
		txManager:    txManager,
		codeVerifier: codeVerifier,
		testVerifier: testVerifier,
		tokenIssuer:  tokenIssuer,
		logger:       logger,
	}
}

// LoginWithGoogle verifies an authorization code, provisions the identity and
// its Fitness credential, and issues a session pair.
func (srv *authService) LoginWithGoogle(ctx context.Context, input usecase.GoogleLoginInput) (*usecase.SessionOutput, error) {
	verified, err := srv.codeVerifier.VerifyAuthorizationCode(ctx, input.Code, input.RedirectURI)
	if err != nil {
		srv.logger.Warn("Google code verification failed", "error", err)

		return nil, err
	}

	output, err := srv.establishSession(ctx, verified)
	if err != nil {
		srv.logger.Error("Failed to establish session", "error", err, "subject", verified.Subject)

		return nil, err
	}

	srv.logger.Info("Google login completed",
		slog.String("subject", output.Identity.Subject),
		slog.String("email", output.Identity.Email))

	return output, nil
}

// LoginWithTestAccount verifies a preconfigured test credential and issues a
// session pair.
func (srv *authService) LoginWithTestAccount(ctx context.Context, input usecase.TestLoginInput) (*usecase.SessionOutput, error) {
	verified, err := srv.testVerifier.VerifyTestCredential(input.Token)
	if err != nil {
		srv.logger.Warn("Test credential rejected", "error", err)

		return nil, err
	}

	output, err := srv.establishSession(ctx, verified)
	if err != nil {
		srv.logger.Error("Failed to establish test session", "error", err, "subject", verified.Subject)

		return nil, err
	}

	srv.logger.Info("Test account login completed", slog.String("subject", output.Identity.Subject))

	return output, nil
}

// establishSession provisions the identity row, stores the Fitness grant if
// one arrived, and mints the session pair. All durable writes share one
// transaction so a failed session insert never leaves a half-provisioned
// login behind.
func (srv *authService) establishSession(ctx context.Context, verified *service.VerifiedIdentity) (*usecase.SessionOutput, error) {
	var identity *entity.Identity
	var session *entity.Session

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		identityRepo := repoFactory.NewIdentityRepository()
		sessionRepo := repoFactory.NewSessionRepository()
		credentialRepo := repoFactory.NewCredentialRepository()

		// 1. Find or create the identity. Identifying fields are immutable
		// after first creation; a changed display name upstream does not
		// propagate here.
		found, err := identityRepo.FindBySubject(ctx, verified.Subject)
		switch {
		case err == nil:
			identity = found
		case errors.Is(err, repository.ErrIdentityNotFound):
			identity = &entity.Identity{
				Subject:  verified.Subject,
				Email:    verified.Email,
				Name:     verified.Name,
				Picture:  verified.Picture,
				Provider: verified.Provider,
			}
			if err := identityRepo.Create(ctx, identity); err != nil {
				return errors.Wrap(err, "failed to create identity")
			}
		default:
			return errors.Wrap(err, "failed to find identity")
		}

		// 2. Store the Fitness grant when the exchange produced one.
		if verified.Grant != nil {
			if err := srv.storeGrant(ctx, credentialRepo, identity.Subject, verified.Grant); err != nil {
				return err
			}

			// A fresh grant with a refresh token clears a standing
			// re-authentication flag.
			if identity.NeedsReauth && verified.Grant.RefreshToken != "" {
				if err := identityRepo.SetNeedsReauth(ctx, identity.Subject, false); err != nil {
					return errors.Wrap(err, "failed to clear reauth flag")
				}
				identity.NeedsReauth = false
			}
		}

		// 3. Mint the pair and persist the session row.
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
		return nil, err
	}

	return sessionToOutput(session, identity), nil
}

// storeGrant upserts the Fitness credential. A grant without a refresh token
// (Google omits it on repeat consents) keeps the stored refresh token; if no
// credential is stored yet the grant is not persisted at all, since an access
// token alone cannot be renewed.
func (srv *authService) storeGrant(ctx context.Context, credentialRepo repository.CredentialRepository, subject string, grant *service.FitnessGrant) error {
	refreshToken := grant.RefreshToken
	if refreshToken == "" {
		stored, err := credentialRepo.FindBySubject(ctx, subject)
		if errors.Is(err, repository.ErrCredentialNotFound) {
			srv.logger.Warn("Grant carried no refresh token and none is stored, skipping",
				"subject", subject)

			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to load stored credential")
		}
		refreshToken = stored.RefreshToken
	}

	credential := &entity.FitnessCredential{
		IdentitySubject: subject,
		AccessToken:     grant.AccessToken,
		RefreshToken:    refreshToken,
		ExpiresAt:       grant.ExpiresAt,
	}
	if err := credentialRepo.Upsert(ctx, credential); err != nil {
		return errors.Wrap(err, "failed to store fitness credential")
	}

	return nil
}

// Refresh validates a refresh token against the session store and mints a new
// access token, rotating the pair when it nears expiry.
func (srv *authService) Refresh(ctx context.Context, input usecase.RefreshInput) (*usecase.SessionOutput, error) {
	// Signature and expiry first; no storage is touched for a bad token.
	claims, err := srv.tokenIssuer.ValidateRefresh(input.RefreshToken)
	if err != nil {
		return nil, err
	}

	var identity *entity.Identity
	var session *entity.Session

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		identityRepo := repoFactory.NewIdentityRepository()
		sessionRepo := repoFactory.NewSessionRepository()

		// A valid signature is not enough: the session row must still exist.
		tokenHash := srv.tokenIssuer.HashToken(input.RefreshToken)
		record, err := sessionRepo.FindByTokenHash(ctx, tokenHash)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) || errors.Is(err, repository.ErrSessionExpired) {
				return domainerrors.ErrTokenRevoked.WrapMessage("no session for refresh token")
			}

			return errors.Wrap(err, "failed to find session")
		}

		identity, err = identityRepo.FindBySubject(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, repository.ErrIdentityNotFound) {
				return domainerrors.ErrTokenRevoked.WrapMessage("identity no longer exists")
			}

			return errors.Wrap(err, "failed to find identity")
		}

		var rotated bool
		session, rotated, err = srv.tokenIssuer.RefreshAccess(input.RefreshToken)
		if err != nil {
			return err
		}

		// Rotation replaces the stored hash; the session keeps its id.
		if rotated {
			record.TokenHash = srv.tokenIssuer.HashToken(session.RefreshToken)
			record.ExpiresAt = session.RefreshExpiresAt
			if err := sessionRepo.Update(ctx, record); err != nil {
				return errors.Wrap(err, "failed to rotate session")
			}

			srv.logger.Info("Refresh token rotated", slog.String("sessionID", record.ID.String()))
		}

		return nil
	})
	if err != nil {
		srv.logger.Warn("Refresh rejected", "error", err)

		return nil, err
	}

	return sessionToOutput(session, identity), nil
}

// Logout revokes the session behind the given refresh token. The token must
// still verify; logging out with a forged token is not a way to probe the
// session store.
func (srv *authService) Logout(ctx context.Context, input usecase.LogoutInput) error {
	claims, err := srv.tokenIssuer.ValidateRefresh(input.RefreshToken)
	if err != nil {
		return err
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sessionRepo := repoFactory.NewSessionRepository()

		tokenHash := srv.tokenIssuer.HashToken(input.RefreshToken)
		if err := sessionRepo.DeleteByTokenHash(ctx, tokenHash); err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return domainerrors.ErrTokenRevoked.WrapMessage("session already revoked")
			}

			return errors.Wrap(err, "failed to delete session")
		}

		return nil
	})
	if err != nil {
		return err
	}

	srv.logger.Info("Session revoked", slog.String("subject", claims.Subject), slog.String("sessionID", claims.SessionID))

	return nil
}

// sessionToOutput converts an issued session into the delivery-facing DTO.
func sessionToOutput(session *entity.Session, identity *entity.Identity) *usecase.SessionOutput {
	return &usecase.SessionOutput{
		AccessToken:      session.AccessToken,
		RefreshToken:     session.RefreshToken,
		AccessExpiresAt:  session.AccessExpiresAt.Unix(),
		RefreshExpiresAt: session.RefreshExpiresAt.Unix(),
		Identity:         identity,
	}
}
