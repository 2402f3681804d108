package postgres

import (
	"context"
	"time"

	"fitgate/internal/domain/entity"
	domainerrors "fitgate/internal/domain/errors"
	"fitgate/internal/domain/repository"
	"fitgate/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// sessionRepository implements the domain.SessionRepository interface.
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository is the constructor for sessionRepository.
func NewSessionRepository(db *gorm.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Create persists a new session record.
func (repo *sessionRepository) Create(ctx context.Context, record *entity.SessionRecord) error {
	sessionM := fromSessionDomain(record)

	if err := repo.db.WithContext(ctx).Create(sessionM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrInternalError.WrapMessage("session already exists")
		}
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrInternalError.WrapMessage("invalid identity reference")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create session")
	}

	record.CreatedAt = sessionM.CreatedAt

	return nil
}

// FindByTokenHash retrieves a session record by the refresh token hash.
func (repo *sessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*entity.SessionRecord, error) {
	var sessionM model.SessionModel
	err := repo.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&sessionM).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, errors.WithStack(err)
	}

	record := toSessionDomain(&sessionM)

	// Check if the session has expired
	if record.ExpiresAt.Before(time.Now()) {
		return nil, repository.ErrSessionExpired
	}

	return record, nil
}

// FindByID retrieves a session record by its unique ID.
func (repo *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SessionRecord, error) {
	var sessionM model.SessionModel
	err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sessionM).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, errors.WithStack(err)
	}

	record := toSessionDomain(&sessionM)

	if record.ExpiresAt.Before(time.Now()) {
		return nil, repository.ErrSessionExpired
	}

	return record, nil
}

// Update replaces the token hash and expiry of an existing record.
func (repo *sessionRepository) Update(ctx context.Context, record *entity.SessionRecord) error {
	result := repo.db.WithContext(ctx).
		Model(&model.SessionModel{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"token_hash": record.TokenHash,
			"expires_at": record.ExpiresAt,
		})

	if result.Error != nil {
		if isUniqueConstraintViolation(result.Error) {
			return domainerrors.ErrInternalError.WrapMessage("token hash already exists")
		}

		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update session")
	}

	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// Delete removes a session by ID, invalidating its refresh token.
func (repo *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.SessionModel{})

	if result.Error != nil {
		return errors.WithStack(result.Error)
	}

	// If no rows were affected, it means the session was not found.
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// DeleteByTokenHash removes a session by its token hash (logout).
func (repo *sessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	result := repo.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Delete(&model.SessionModel{})

	if result.Error != nil {
		return errors.WithStack(result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// DeleteExpired removes all session rows past their expiry.
func (repo *sessionRepository) DeleteExpired(ctx context.Context) error {
	if err := repo.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&model.SessionModel{}).Error; err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// --- Mapper Functions ---

// toSessionDomain converts a GORM SessionModel to a domain SessionRecord entity.
func toSessionDomain(data *model.SessionModel) *entity.SessionRecord {
	if data == nil {
		return nil
	}

	return &entity.SessionRecord{
		ID:              data.ID,
		IdentitySubject: data.IdentitySubject,
		TokenHash:       data.TokenHash,
		ExpiresAt:       data.ExpiresAt,
		CreatedAt:       data.CreatedAt,
	}
}

// fromSessionDomain converts a domain SessionRecord entity to a GORM SessionModel.
func fromSessionDomain(data *entity.SessionRecord) *model.SessionModel {
	if data == nil {
		return nil
	}

	return &model.SessionModel{
		ID:              data.ID,
		IdentitySubject: data.IdentitySubject,
		TokenHash:       data.TokenHash,
		ExpiresAt:       data.ExpiresAt,
		CreatedAt:       data.CreatedAt,
	}
}
