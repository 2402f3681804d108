package postgres

import (
	"context"

	"fitgate/internal/domain/entity"
	domainerrors "fitgate/internal/domain/errors"
	"fitgate/internal/domain/repository"
	"fitgate/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// identityRepository implements the domain.IdentityRepository interface.
type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository is the constructor for identityRepository.
func NewIdentityRepository(db *gorm.DB) repository.IdentityRepository {
	return &identityRepository{db: db}
}

// FindBySubject retrieves a single identity by its provider-scoped subject.
func (repo *identityRepository) FindBySubject(ctx context.Context, subject string) (*entity.Identity, error) {
	var identityM model.IdentityModel
	err := repo.db.WithContext(ctx).
		Where("subject = ?", subject).
		First(&identityM).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrIdentityNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toIdentityDomain(&identityM), nil
}

// FindByEmail retrieves a single identity by its email address.
func (repo *identityRepository) FindByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	var identityM model.IdentityModel
	err := repo.db.WithContext(ctx).
		Where("email = ?", email).
		First(&identityM).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrIdentityNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toIdentityDomain(&identityM), nil
}

// Create persists a newly verified identity.
func (repo *identityRepository) Create(ctx context.Context, identity *entity.Identity) error {
	identityM := fromIdentityDomain(identity)

	if err := repo.db.WithContext(ctx).Create(identityM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrInternalError.WrapMessage("identity already exists")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrInternalError.WrapMessage("missing required identity information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create identity")
	}

	identity.CreatedAt = identityM.CreatedAt

	return nil
}

// SetNeedsReauth flips the re-authentication flag for an identity.
func (repo *identityRepository) SetNeedsReauth(ctx context.Context, subject string, needsReauth bool) error {
	result := repo.db.WithContext(ctx).
		Model(&model.IdentityModel{}).
		Where("subject = ?", subject).
		Update("needs_reauth", needsReauth)

	if result.Error != nil {
		return errors.WithStack(result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrIdentityNotFound
	}

	return nil
}

// List returns identities filtered by provenance.
func (repo *identityRepository) List(ctx context.Context, includeTest, includeReal bool) ([]*entity.Identity, error) {
	if !includeTest && !includeReal {
		return nil, repository.ErrIdentityNotFound
	}

	query := repo.db.WithContext(ctx).Model(&model.IdentityModel{})
	switch {
	case includeTest && !includeReal:
		query = query.Where("provider = ?", entity.ProviderTest.String())
	case includeReal && !includeTest:
		query = query.Where("provider <> ?", entity.ProviderTest.String())
	}

	var identityModels []model.IdentityModel
	if err := query.Order("created_at ASC").Find(&identityModels).Error; err != nil {
		return nil, errors.WithStack(err)
	}

	identities := make([]*entity.Identity, 0, len(identityModels))
	for i := range identityModels {
		identities = append(identities, toIdentityDomain(&identityModels[i]))
	}

	return identities, nil
}

// --- Mapper Functions ---

// toIdentityDomain converts a GORM IdentityModel to a domain Identity entity.
func toIdentityDomain(data *model.IdentityModel) *entity.Identity {
	if data == nil {
		return nil
	}

	return &entity.Identity{
		Subject:     data.Subject,
		Email:       data.Email,
		Name:        data.Name,
		Picture:     data.Picture,
		Provider:    entity.Provider(data.Provider),
		NeedsReauth: data.NeedsReauth,
		CreatedAt:   data.CreatedAt,
	}
}

// fromIdentityDomain converts a domain Identity entity to a GORM IdentityModel.
func fromIdentityDomain(data *entity.Identity) *model.IdentityModel {
	if data == nil {
		return nil
	}

	return &model.IdentityModel{
		Subject:     data.Subject,
		Email:       data.Email,
		Name:        data.Name,
		Picture:     data.Picture,
		Provider:    data.Provider.String(),
		NeedsReauth: data.NeedsReauth,
		CreatedAt:   data.CreatedAt,
	}
}
