package trade

import (
	"context"

	"github.com/conexapi/backend/internal/domain/integration"
	"github.com/google/uuid"
)

// OrderRepository is the persistence port for synchronized orders.
type OrderRepository interface {
	// Create creates a new order
	Create(ctx context.Context, order *Order) error

	// Update updates an existing order
	Update(ctx context.Context, order *Order) error

	// Delete deletes an order by ID
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds an order by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByExternalID finds an order by its platform order id
	FindByExternalID(ctx context.Context, platform integration.Platform, externalID string) (*Order, error)

	// List returns orders for an owner ordered by creation time
	List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*Order, int64, error)
}
