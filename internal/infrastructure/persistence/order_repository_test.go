package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conexapi/backend/internal/domain/integration"
	"github.com/conexapi/backend/internal/domain/shared"
	"github.com/conexapi/backend/internal/domain/trade"
)

func newStoredOrder(t *testing.T, externalID string, ownerID uuid.UUID) *trade.Order {
	t.Helper()
	order, err := trade.NewOrder(externalID, integration.PlatformMercadoLibre, ownerID, 3, decimal.NewFromInt(57150))
	require.NoError(t, err)
	return order
}

func TestGormOrderRepository_CreateAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	order := newStoredOrder(t, "2000003508419013", owner)
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ExternalID, got.ExternalID)
	assert.Equal(t, integration.PlatformMercadoLibre, got.Platform)
	assert.Equal(t, trade.OrderStatusPending, got.Status)
	assert.Equal(t, 3, got.TotalQuantity)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(57150)))
	assert.Equal(t, owner, got.OwnerID)

	byExternal, err := repo.FindByExternalID(ctx, integration.PlatformMercadoLibre, order.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byExternal.ID)

	// Same external id on a different platform is a different order
	_, err = repo.FindByExternalID(ctx, integration.PlatformSiigo, order.ExternalID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_DuplicateExternalID(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	require.NoError(t, repo.Create(ctx, newStoredOrder(t, "ORD-1", owner)))
	assert.Error(t, repo.Create(ctx, newStoredOrder(t, "ORD-1", owner)))
}

func TestGormOrderRepository_Update(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	order := newStoredOrder(t, "ORD-1", uuid.New())
	require.NoError(t, repo.Create(ctx, order))

	require.NoError(t, order.TransitionTo(trade.OrderStatusProcessing))
	require.NoError(t, repo.Update(ctx, order))

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusProcessing, got.Status)
}

func TestGormOrderRepository_ListByOwner(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	mine := uuid.New()
	other := uuid.New()
	require.NoError(t, repo.Create(ctx, newStoredOrder(t, "ORD-1", mine)))
	require.NoError(t, repo.Create(ctx, newStoredOrder(t, "ORD-2", mine)))
	require.NoError(t, repo.Create(ctx, newStoredOrder(t, "ORD-3", other)))

	orders, total, err := repo.List(ctx, mine, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)

	orders, total, err = repo.List(ctx, mine, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 1)
}

func TestGormOrderRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	order := newStoredOrder(t, "ORD-1", uuid.New())
	require.NoError(t, repo.Create(ctx, order))
	require.NoError(t, repo.Delete(ctx, order.ID))

	_, err := repo.FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, order.ID), shared.ErrNotFound)
}
