package persistence

import (
	"context"
	"errors"

	"github.com/conexapi/backend/internal/domain/integration"
	"github.com/conexapi/backend/internal/domain/shared"
	"github.com/conexapi/backend/internal/domain/trade"
	"github.com/conexapi/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create creates a new order
func (r *GormOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update updates an existing order
func (r *GormOrderRepository) Update(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete deletes an order by ID
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.OrderModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds an order by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds an order by its platform order id
func (r *GormOrderRepository) FindByExternalID(ctx context.Context, platform integration.Platform, externalID string) (*trade.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND external_id = ?", platform, externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns orders for an owner ordered by creation time
func (r *GormOrderRepository) List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*trade.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	if err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]*trade.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, rows[i].ToDomain())
	}
	return orders, total, nil
}

var _ trade.OrderRepository = (*GormOrderRepository)(nil)
