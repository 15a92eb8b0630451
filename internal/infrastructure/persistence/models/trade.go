package models

import (
	"time"

	"github.com/conexapi/backend/internal/domain/integration"
	"github.com/conexapi/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order domain entity.
type OrderModel struct {
	ID            uuid.UUID            `gorm:"type:uuid;primary_key"`
	ExternalID    string               `gorm:"type:varchar(100);not null;uniqueIndex:idx_orders_platform_external,priority:2"`
	Platform      integration.Platform `gorm:"type:varchar(20);not null;uniqueIndex:idx_orders_platform_external,priority:1"`
	Status        trade.OrderStatus    `gorm:"type:varchar(20);not null;default:'PENDING'"`
	TotalQuantity int                  `gorm:"not null;default:0"`
	TotalAmount   decimal.Decimal      `gorm:"type:numeric(18,2);not null;default:0"`
	OwnerID       uuid.UUID            `gorm:"type:uuid;not null;index:idx_orders_owner"`
	CreatedAt     time.Time            `gorm:"not null"`
	UpdatedAt     time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity.
func (m *OrderModel) ToDomain() *trade.Order {
	return &trade.Order{
		ID:            m.ID,
		ExternalID:    m.ExternalID,
		Platform:      m.Platform,
		Status:        m.Status,
		TotalQuantity: m.TotalQuantity,
		TotalAmount:   m.TotalAmount,
		OwnerID:       m.OwnerID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// OrderModelFromDomain creates a persistence model from a domain Order entity.
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	return &OrderModel{
		ID:            o.ID,
		ExternalID:    o.ExternalID,
		Platform:      o.Platform,
		Status:        o.Status,
		TotalQuantity: o.TotalQuantity,
		TotalAmount:   o.TotalAmount,
		OwnerID:       o.OwnerID,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
