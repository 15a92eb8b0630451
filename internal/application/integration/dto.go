package integration

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conexapi/backend/internal/domain/integration"
)

// CreateCredentialInput contains the input for connecting a platform
// account. The first access token is always minted through the refresh
// path, so only grant inputs are accepted here.
type CreateCredentialInput struct {
	Platform      string
	AccountKey    string
	RefreshToken  string
	Username      string
	AccessKey     string
	RefreshMargin time.Duration
}

// UpdateCredentialInput contains the input for updating a stored credential.
// Empty fields leave the stored value unchanged.
type UpdateCredentialInput struct {
	RefreshToken  string
	Username      string
	AccessKey     string
	RefreshMargin *time.Duration
	IsActive      *bool
}

// CredentialResult is the external view of a stored credential. Secrets
// are masked; raw tokens never leave the application layer.
type CredentialResult struct {
	ID            uuid.UUID     `json:"id"`
	Platform      string        `json:"platform"`
	AccountKey    string        `json:"account_key"`
	AccessToken   string        `json:"access_token"` // masked
	RefreshToken  string        `json:"refresh_token"` // masked
	HasToken      bool          `json:"has_token"`
	ExpiresAt     *time.Time    `json:"expires_at"`
	RefreshMargin time.Duration `json:"refresh_margin"`
	Username      string        `json:"username"`
	IsActive      bool          `json:"is_active"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// maskSecret hides all but the last four characters of a secret. Short
// secrets are fully masked.
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// toCredentialResult converts a domain credential to its redacted view.
func toCredentialResult(cred *integration.Credential) *CredentialResult {
	return &CredentialResult{
		ID:            cred.ID,
		Platform:      cred.Platform.String(),
		AccountKey:    cred.AccountKey,
		AccessToken:   maskSecret(cred.AccessToken),
		RefreshToken:  maskSecret(cred.RefreshToken),
		HasToken:      cred.AccessToken != "",
		ExpiresAt:     cred.ExpiresAt,
		RefreshMargin: cred.RefreshMargin,
		Username:      cred.Username,
		IsActive:      cred.IsActive,
		CreatedAt:     cred.CreatedAt,
		UpdatedAt:     cred.UpdatedAt,
	}
}

// parsePlatform normalizes and validates a platform string from the API.
func parsePlatform(raw string) (integration.Platform, error) {
	platform := integration.Platform(strings.ToUpper(strings.TrimSpace(raw)))
	if !platform.IsValid() {
		return "", integration.ErrInvalidPlatform
	}
	return platform, nil
}
