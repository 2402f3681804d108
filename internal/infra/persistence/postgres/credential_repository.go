package postgres

import (
	"context"

	"fitgate/internal/domain/entity"
	domainerrors "fitgate/internal/domain/errors"
	"fitgate/internal/domain/repository"
	"fitgate/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// credentialRepository implements the domain.CredentialRepository interface.
type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository is the constructor for credentialRepository.
func NewCredentialRepository(db *gorm.DB) repository.CredentialRepository {
	return &credentialRepository{db: db}
}

// FindBySubject retrieves the credential for an identity.
func (repo *credentialRepository) FindBySubject(ctx context.Context, subject string) (*entity.FitnessCredential, error) {
	var credentialM model.CredentialModel
	err := repo.db.WithContext(ctx).
		Where("identity_subject = ?", subject).
		First(&credentialM).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCredentialNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toCredentialDomain(&credentialM), nil
}

// Upsert inserts or fully replaces the credential for an identity.
// The whole row is replaced on conflict; stored fields never merge with
// incoming ones.
func (repo *credentialRepository) Upsert(ctx context.Context, credential *entity.FitnessCredential) error {
	credentialM := fromCredentialDomain(credential)

	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identity_subject"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token", "refresh_token", "expires_at", "last_refreshed_at", "updated_at",
			}),
		}).
		Create(credentialM).Error

	if err != nil {
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrInternalError.WrapMessage("invalid identity reference")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to upsert credential")
	}

	return nil
}

// Delete removes the credential for an identity.
func (repo *credentialRepository) Delete(ctx context.Context, subject string) error {
	result := repo.db.WithContext(ctx).
		Where("identity_subject = ?", subject).
		Delete(&model.CredentialModel{})

	if result.Error != nil {
		return errors.WithStack(result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrCredentialNotFound
	}

	return nil
}

// --- Mapper Functions ---

// toCredentialDomain converts a GORM CredentialModel to a domain FitnessCredential entity.
func toCredentialDomain(data *model.CredentialModel) *entity.FitnessCredential {
	if data == nil {
		return nil
	}

	return &entity.FitnessCredential{
		IdentitySubject: data.IdentitySubject,
		AccessToken:     data.AccessToken,
		RefreshToken:    data.RefreshToken,
		ExpiresAt:       data.ExpiresAt,
		LastRefreshedAt: data.LastRefreshedAt,
	}
}

// fromCredentialDomain converts a domain FitnessCredential entity to a GORM CredentialModel.
func fromCredentialDomain(data *entity.FitnessCredential) *model.CredentialModel {
	if data == nil {
		return nil
	}

	return &model.CredentialModel{
		IdentitySubject: data.IdentitySubject,
		AccessToken:     data.AccessToken,
		RefreshToken:    data.RefreshToken,
		ExpiresAt:       data.ExpiresAt,
		LastRefreshedAt: data.LastRefreshedAt,
	}
}
