package persistence

import (
	"context"
	"errors"

	"github.com/conexapi/backend/internal/domain/integration"
	"github.com/conexapi/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCredentialRepository implements integration.CredentialRepository using GORM
type GormCredentialRepository struct {
	db *gorm.DB
}

// NewGormCredentialRepository creates a new GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

// FindByID finds a credential by its ID
func (r *GormCredentialRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Credential, error) {
	var model models.CredentialModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrNoCredential
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPlatformAccount finds the live credential for a (platform, account_key) pair
func (r *GormCredentialRepository) FindByPlatformAccount(ctx context.Context, platform integration.Platform, accountKey string) (*integration.Credential, error) {
	var model models.CredentialModel
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND account_key = ?", platform, accountKey).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrNoCredential
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save upserts the credential. The single INSERT ... ON CONFLICT
// statement replaces the (platform, account_key) row as a whole, so a
// concurrent reader sees either the old or the new credential, never a
// mix of both.
func (r *GormCredentialRepository) Save(ctx context.Context, cred *integration.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	model := models.CredentialModelFromDomain(cred)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "platform"}, {Name: "account_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token", "refresh_token", "expires_at",
				"refresh_margin_ns", "username", "access_key",
				"is_active", "updated_at",
			}),
		}).
		Create(model).Error
}

// List returns all stored credentials
func (r *GormCredentialRepository) List(ctx context.Context) ([]*integration.Credential, error) {
	var rows []models.CredentialModel
	if err := r.db.WithContext(ctx).
		Order("platform, account_key").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	creds := make([]*integration.Credential, 0, len(rows))
	for i := range rows {
		creds = append(creds, rows[i].ToDomain())
	}
	return creds, nil
}

// Delete removes the credential with the given ID
func (r *GormCredentialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CredentialModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrNoCredential
	}
	return nil
}

var _ integration.CredentialRepository = (*GormCredentialRepository)(nil)
