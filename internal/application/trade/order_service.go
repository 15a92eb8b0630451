package trade

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conexapi/backend/internal/domain/integration"
	"github.com/conexapi/backend/internal/domain/shared"
	"github.com/conexapi/backend/internal/domain/trade"
)

// OrderService manages locally mirrored orders and imports them from the
// marketplace.
type OrderService struct {
	orderRepo   trade.OrderRepository
	marketplace integration.MarketplaceClient
	logger      *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo trade.OrderRepository,
	marketplace integration.MarketplaceClient,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		marketplace: marketplace,
		logger:      logger,
	}
}

// Create registers an order manually.
func (s *OrderService) Create(ctx context.Context, ownerID uuid.UUID, input CreateOrderInput) (*OrderResult, error) {
	platform := integration.Platform(input.Platform)

	if existing, err := s.orderRepo.FindByExternalID(ctx, platform, input.ExternalID); err == nil && existing != nil {
		return nil, shared.ErrAlreadyExists
	} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	order, err := trade.NewOrder(input.ExternalID, platform, ownerID, input.TotalQuantity, input.TotalAmount)
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("external_id", order.ExternalID))

	return toOrderResult(order), nil
}

// Get returns an order by id, scoped to its owner.
func (s *OrderService) Get(ctx context.Context, ownerID, orderID uuid.UUID) (*OrderResult, error) {
	order, err := s.findOwned(ctx, ownerID, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderResult(order), nil
}

// List returns a page of the owner's orders and the total count.
func (s *OrderService) List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*OrderResult, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	orders, total, err := s.orderRepo.List(ctx, ownerID, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	results := make([]*OrderResult, 0, len(orders))
	for _, order := range orders {
		results = append(results, toOrderResult(order))
	}
	return results, total, nil
}

// Update modifies an order's status, quantity, or amount.
func (s *OrderService) Update(ctx context.Context, ownerID, orderID uuid.UUID, input UpdateOrderInput) (*OrderResult, error) {
	order, err := s.findOwned(ctx, ownerID, orderID)
	if err != nil {
		return nil, err
	}

	if input.Status != "" {
		if err := order.TransitionTo(trade.OrderStatus(input.Status)); err != nil {
			return nil, err
		}
	}
	if input.TotalQuantity != nil {
		if *input.TotalQuantity < 0 {
			return nil, trade.ErrInvalidQuantity
		}
		order.TotalQuantity = *input.TotalQuantity
	}
	if input.TotalAmount != nil {
		if input.TotalAmount.IsNegative() {
			return nil, trade.ErrInvalidAmount
		}
		order.TotalAmount = *input.TotalAmount
	}

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	return toOrderResult(order), nil
}

// Delete removes an order, scoped to its owner.
func (s *OrderService) Delete(ctx context.Context, ownerID, orderID uuid.UUID) error {
	if _, err := s.findOwned(ctx, ownerID, orderID); err != nil {
		return err
	}
	return s.orderRepo.Delete(ctx, orderID)
}

// ImportFromMercadoLibre pulls orders from the marketplace and mirrors
// them locally, upserting by external order id. Orders already in a
// terminal state locally are left alone.
func (s *OrderService) ImportFromMercadoLibre(ctx context.Context, ownerID uuid.UUID, input ImportInput) (*ImportResult, error) {
	fetched, err := s.marketplace.SearchOrders(ctx, input.AccountKey, input.SellerID, input.From, input.To)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Fetched: len(fetched)}
	for _, remote := range fetched {
		status := mapMarketplaceStatus(remote.Status)

		existing, err := s.orderRepo.FindByExternalID(ctx, integration.PlatformMercadoLibre, remote.OrderID)
		switch {
		case err == nil:
			if existing.Status.IsFinal() {
				result.Skipped++
				continue
			}
			existing.TotalQuantity = remote.TotalQuantity
			existing.TotalAmount = remote.TotalAmount
			if err := existing.TransitionTo(status); err != nil {
				result.Skipped++
				continue
			}
			if err := s.orderRepo.Update(ctx, existing); err != nil {
				return result, err
			}
			result.Updated++

		case errors.Is(err, shared.ErrNotFound):
			order, err := trade.NewOrder(remote.OrderID, integration.PlatformMercadoLibre, ownerID, remote.TotalQuantity, remote.TotalAmount)
			if err != nil {
				result.Skipped++
				continue
			}
			if err := order.TransitionTo(status); err != nil {
				result.Skipped++
				continue
			}
			if err := s.orderRepo.Create(ctx, order); err != nil {
				return result, err
			}
			result.Created++

		default:
			return result, err
		}
	}

	s.logger.Info("Marketplace order import finished",
		zap.String("account_key", input.AccountKey),
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped))

	return result, nil
}

func (s *OrderService) findOwned(ctx context.Context, ownerID, orderID uuid.UUID) (*trade.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.OwnerID != ownerID {
		return nil, shared.ErrForbidden
	}
	return order, nil
}

// mapMarketplaceStatus maps a MercadoLibre order status to the local
// order lifecycle.
func mapMarketplaceStatus(status string) trade.OrderStatus {
	switch status {
	case "paid", "payment_in_process":
		return trade.OrderStatusProcessing
	case "cancelled", "invalid":
		return trade.OrderStatusCancelled
	default:
		return trade.OrderStatusPending
	}
}
