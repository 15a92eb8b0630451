package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/conexapi/backend/internal/domain/trade"
)

// CreateOrderInput contains the input for creating an order manually
type CreateOrderInput struct {
	ExternalID    string
	Platform      string
	TotalQuantity int
	TotalAmount   decimal.Decimal
}

// UpdateOrderInput contains the input for updating an order
type UpdateOrderInput struct {
	Status        string
	TotalQuantity *int
	TotalAmount   *decimal.Decimal
}

// OrderResult is the external view of an order
type OrderResult struct {
	ID            uuid.UUID       `json:"id"`
	ExternalID    string          `json:"external_id"`
	Platform      string          `json:"platform"`
	Status        string          `json:"status"`
	TotalQuantity int             `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ImportInput contains the input for a marketplace order import
type ImportInput struct {
	AccountKey string
	SellerID   string
	From       *time.Time
	To         *time.Time
}

// ImportResult summarizes a marketplace order import run
type ImportResult struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// toOrderResult converts a domain order to its external view.
func toOrderResult(order *trade.Order) *OrderResult {
	return &OrderResult{
		ID:            order.ID,
		ExternalID:    order.ExternalID,
		Platform:      order.Platform.String(),
		Status:        order.Status.String(),
		TotalQuantity: order.TotalQuantity,
		TotalAmount:   order.TotalAmount,
		OwnerID:       order.OwnerID,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}
