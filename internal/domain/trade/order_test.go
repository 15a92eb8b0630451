package trade

import (
	"testing"

	"github.com/conexapi/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	owner := uuid.New()

	order, err := NewOrder("ML-2001", integration.PlatformMercadoLibre, owner, 3, decimal.NewFromInt(150))
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, "ML-2001", order.ExternalID)
	assert.Equal(t, owner, order.OwnerID)

	_, err = NewOrder("", integration.PlatformMercadoLibre, owner, 1, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidExternalID)

	_, err = NewOrder("ML-2002", integration.PlatformMercadoLibre, uuid.Nil, 1, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidOwner)

	_, err = NewOrder("ML-2003", integration.PlatformMercadoLibre, owner, -1, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewOrder("ML-2004", integration.PlatformMercadoLibre, owner, 1, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestOrder_TransitionTo(t *testing.T) {
	owner := uuid.New()

	order, err := NewOrder("ML-2005", integration.PlatformMercadoLibre, owner, 1, decimal.NewFromInt(10))
	require.NoError(t, err)

	require.NoError(t, order.TransitionTo(OrderStatusProcessing))
	assert.Equal(t, OrderStatusProcessing, order.Status)

	require.NoError(t, order.TransitionTo(OrderStatusCompleted))
	assert.True(t, order.Status.IsFinal())

	// Terminal states cannot be left
	assert.ErrorIs(t, order.TransitionTo(OrderStatusPending), ErrInvalidTransition)

	// Re-entering the current state is a no-op
	assert.NoError(t, order.TransitionTo(OrderStatusCompleted))

	assert.ErrorIs(t, order.TransitionTo(OrderStatus("BOGUS")), ErrInvalidTransition)
}
