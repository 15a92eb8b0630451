package trade

import (
	"errors"
	"time"

	"github.com/conexapi/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidExternalID = errors.New("trade: external order id is required")
	ErrInvalidOwner      = errors.New("trade: order owner is required")
	ErrInvalidQuantity   = errors.New("trade: total quantity cannot be negative")
	ErrInvalidAmount     = errors.New("trade: total amount cannot be negative")
	ErrInvalidTransition = errors.New("trade: invalid order status transition")
)

// OrderStatus represents the local processing state of a synchronized order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// IsValid returns true if the status is a known one
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsFinal returns true for terminal states
func (s OrderStatus) IsFinal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Order is a sales order mirrored locally from an external platform.
type Order struct {
	ID uuid.UUID
	// ExternalID is the order id on the source platform; unique locally
	ExternalID string
	// Platform identifies where the order came from
	Platform integration.Platform
	Status   OrderStatus
	// TotalQuantity is the summed line-item quantity
	TotalQuantity int
	// TotalAmount is what the buyer paid
	TotalAmount decimal.Decimal
	// OwnerID is the local user the order belongs to
	OwnerID   uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder creates a pending order.
func NewOrder(externalID string, platform integration.Platform, ownerID uuid.UUID, quantity int, amount decimal.Decimal) (*Order, error) {
	if externalID == "" {
		return nil, ErrInvalidExternalID
	}
	if !platform.IsValid() {
		return nil, integration.ErrInvalidPlatform
	}
	if ownerID == uuid.Nil {
		return nil, ErrInvalidOwner
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	return &Order{
		ID:            uuid.New(),
		ExternalID:    externalID,
		Platform:      platform,
		Status:        OrderStatusPending,
		TotalQuantity: quantity,
		TotalAmount:   amount,
		OwnerID:       ownerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// TransitionTo moves the order to a new status. Terminal states cannot be
// left, and re-entering the current state is a no-op.
func (o *Order) TransitionTo(status OrderStatus) error {
	if !status.IsValid() {
		return ErrInvalidTransition
	}
	if status == o.Status {
		return nil
	}
	if o.Status.IsFinal() {
		return ErrInvalidTransition
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}
