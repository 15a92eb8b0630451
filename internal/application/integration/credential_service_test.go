package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conexapi/backend/internal/domain/integration"
)

func TestCredentialService_Create(t *testing.T) {
	repo := newFakeCredentialRepo()
	service := NewCredentialService(repo, 0, zap.NewNop())
	ctx := context.Background()

	t.Run("mercadolibre account with refresh token", func(t *testing.T) {
		result, err := service.Create(ctx, CreateCredentialInput{
			Platform:     "mercadolibre",
			AccountKey:   "tenant-1",
			RefreshToken: "TG-123456789012",
		})
		require.NoError(t, err)
		assert.Equal(t, "MERCADOLIBRE", result.Platform)
		assert.Equal(t, integration.DefaultRefreshMargin, result.RefreshMargin)
		assert.False(t, result.HasToken)
		// Secrets leave the service masked
		assert.Equal(t, "****9012", result.RefreshToken)
	})

	t.Run("duplicate account is rejected", func(t *testing.T) {
		_, err := service.Create(ctx, CreateCredentialInput{
			Platform:     "MERCADOLIBRE",
			AccountKey:   "tenant-1",
			RefreshToken: "TG-other",
		})
		assert.ErrorIs(t, err, integration.ErrCredentialExists)
	})

	t.Run("mercadolibre without refresh token is rejected", func(t *testing.T) {
		_, err := service.Create(ctx, CreateCredentialInput{
			Platform:   "MERCADOLIBRE",
			AccountKey: "tenant-2",
		})
		assert.ErrorIs(t, err, integration.ErrMissingRefreshToken)
	})

	t.Run("siigo requires account identity", func(t *testing.T) {
		_, err := service.Create(ctx, CreateCredentialInput{
			Platform:   "SIIGO",
			AccountKey: "tenant-1",
			Username:   "user@example.com",
		})
		assert.ErrorIs(t, err, integration.ErrMissingAccountIdentity)

		result, err := service.Create(ctx, CreateCredentialInput{
			Platform:   "SIIGO",
			AccountKey: "tenant-1",
			Username:   "user@example.com",
			AccessKey:  "access-key-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "SIIGO", result.Platform)
	})

	t.Run("unknown platform is rejected", func(t *testing.T) {
		_, err := service.Create(ctx, CreateCredentialInput{
			Platform:   "SHOPIFY",
			AccountKey: "tenant-1",
		})
		assert.ErrorIs(t, err, integration.ErrInvalidPlatform)
	})
}

func TestCredentialService_ConfiguredDefaultMargin(t *testing.T) {
	repo := newFakeCredentialRepo()
	service := NewCredentialService(repo, 2*time.Minute, zap.NewNop())
	ctx := context.Background()

	result, err := service.Create(ctx, CreateCredentialInput{
		Platform:     "MERCADOLIBRE",
		AccountKey:   "tenant-1",
		RefreshToken: "TG-123",
	})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, result.RefreshMargin)

	// An explicit margin wins over the configured default
	result, err = service.Create(ctx, CreateCredentialInput{
		Platform:      "MERCADOLIBRE",
		AccountKey:    "tenant-2",
		RefreshToken:  "TG-456",
		RefreshMargin: 15 * time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, result.RefreshMargin)
}

func TestCredentialService_UpdateAndDelete(t *testing.T) {
	repo := newFakeCredentialRepo()
	service := NewCredentialService(repo, 0, zap.NewNop())
	ctx := context.Background()

	created, err := service.Create(ctx, CreateCredentialInput{
		Platform:     "MERCADOLIBRE",
		AccountKey:   "tenant-1",
		RefreshToken: "TG-initial",
	})
	require.NoError(t, err)

	inactive := false
	margin := 10 * time.Minute
	updated, err := service.Update(ctx, created.ID, UpdateCredentialInput{
		RefreshMargin: &margin,
		IsActive:      &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, margin, updated.RefreshMargin)
	assert.False(t, updated.IsActive)

	// Untouched fields survive the update
	stored, err := repo.FindByPlatformAccount(ctx, integration.PlatformMercadoLibre, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "TG-initial", stored.RefreshToken)

	require.NoError(t, service.Delete(ctx, created.ID))
	_, err = service.Get(ctx, created.ID)
	assert.ErrorIs(t, err, integration.ErrNoCredential)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "****6789", maskSecret("TG-0123456789"))
}
