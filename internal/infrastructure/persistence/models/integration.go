package models

import (
	"time"

	"github.com/conexapi/backend/internal/domain/integration"
	"github.com/google/uuid"
)

// CredentialModel is the persistence model for the integration Credential
// entity. The composite unique index enforces the one-live-row-per-pair
// invariant at the schema level.
type CredentialModel struct {
	ID           uuid.UUID            `gorm:"type:uuid;primary_key"`
	Platform     integration.Platform `gorm:"type:varchar(20);not null;uniqueIndex:idx_credentials_platform_account,priority:1"`
	AccountKey   string               `gorm:"type:varchar(100);not null;uniqueIndex:idx_credentials_platform_account,priority:2"`
	AccessToken  string               `gorm:"type:text"`
	RefreshToken string               `gorm:"type:text"`
	ExpiresAt    *time.Time
	// RefreshMarginNS stores the safety margin as nanoseconds so the
	// round trip through the store is lossless
	RefreshMarginNS int64     `gorm:"column:refresh_margin_ns;not null;default:0"`
	Username        string    `gorm:"type:varchar(255)"`
	AccessKey       string    `gorm:"type:varchar(255)"`
	IsActive        bool      `gorm:"not null;default:true"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CredentialModel) TableName() string {
	return "integration_credentials"
}

// ToDomain converts the persistence model to a domain Credential entity.
func (m *CredentialModel) ToDomain() *integration.Credential {
	return &integration.Credential{
		ID:            m.ID,
		Platform:      m.Platform,
		AccountKey:    m.AccountKey,
		AccessToken:   m.AccessToken,
		RefreshToken:  m.RefreshToken,
		ExpiresAt:     m.ExpiresAt,
		RefreshMargin: time.Duration(m.RefreshMarginNS),
		Username:      m.Username,
		AccessKey:     m.AccessKey,
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// CredentialModelFromDomain creates a persistence model from a domain
// Credential entity.
func CredentialModelFromDomain(c *integration.Credential) *CredentialModel {
	return &CredentialModel{
		ID:              c.ID,
		Platform:        c.Platform,
		AccountKey:      c.AccountKey,
		AccessToken:     c.AccessToken,
		RefreshToken:    c.RefreshToken,
		ExpiresAt:       c.ExpiresAt,
		RefreshMarginNS: int64(c.RefreshMargin),
		Username:        c.Username,
		AccessKey:       c.AccessKey,
		IsActive:        c.IsActive,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
