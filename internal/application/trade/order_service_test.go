package trade

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conexapi/backend/internal/domain/integration"
	"github.com/conexapi/backend/internal/domain/shared"
	"github.com/conexapi/backend/internal/domain/trade"
)

// fakeOrderRepo is an in-memory order store.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*trade.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*trade.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *trade.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *fakeOrderRepo) Update(_ context.Context, order *trade.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return shared.ErrNotFound
	}
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *fakeOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*trade.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (r *fakeOrderRepo) FindByExternalID(_ context.Context, platform integration.Platform, externalID string) (*trade.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.Platform == platform && order.ExternalID == externalID {
			clone := *order
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeOrderRepo) List(_ context.Context, ownerID uuid.UUID, _, _ int) ([]*trade.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*trade.Order, 0)
	for _, order := range r.orders {
		if order.OwnerID == ownerID {
			clone := *order
			out = append(out, &clone)
		}
	}
	return out, int64(len(out)), nil
}

var _ trade.OrderRepository = (*fakeOrderRepo)(nil)

// fakeMarketplace returns a canned order search result.
type fakeMarketplace struct {
	orders []integration.MarketplaceOrder
	err    error
}

func (f *fakeMarketplace) GetProfile(_ context.Context, _ string) (*integration.MarketplaceProfile, error) {
	return &integration.MarketplaceProfile{UserID: 1}, nil
}

func (f *fakeMarketplace) SearchOrders(_ context.Context, _, _ string, _, _ *time.Time) ([]integration.MarketplaceOrder, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

func (f *fakeMarketplace) UpdateItem(_ context.Context, _, _ string, _ map[string]any) error {
	return nil
}

var _ integration.MarketplaceClient = (*fakeMarketplace)(nil)

func newOrderServiceUnderTest(marketplace *fakeMarketplace) (*OrderService, *fakeOrderRepo) {
	repo := newFakeOrderRepo()
	if marketplace == nil {
		marketplace = &fakeMarketplace{}
	}
	return NewOrderService(repo, marketplace, zap.NewNop()), repo
}

func TestOrderService_CreateAndGet(t *testing.T) {
	service, _ := newOrderServiceUnderTest(nil)
	ctx := context.Background()
	owner := uuid.New()

	created, err := service.Create(ctx, owner, CreateOrderInput{
		ExternalID:    "ML-1001",
		Platform:      "MERCADOLIBRE",
		TotalQuantity: 2,
		TotalAmount:   decimal.RequireFromString("45000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", created.Status)

	got, err := service.Get(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ML-1001", got.ExternalID)

	// Duplicate external id is rejected
	_, err = service.Create(ctx, owner, CreateOrderInput{
		ExternalID:    "ML-1001",
		Platform:      "MERCADOLIBRE",
		TotalQuantity: 1,
		TotalAmount:   decimal.Zero,
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestOrderService_OwnerScoping(t *testing.T) {
	service, _ := newOrderServiceUnderTest(nil)
	ctx := context.Background()
	owner := uuid.New()

	created, err := service.Create(ctx, owner, CreateOrderInput{
		ExternalID:    "ML-1001",
		Platform:      "MERCADOLIBRE",
		TotalQuantity: 1,
		TotalAmount:   decimal.Zero,
	})
	require.NoError(t, err)

	_, err = service.Get(ctx, uuid.New(), created.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	err = service.Delete(ctx, uuid.New(), created.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	service, _ := newOrderServiceUnderTest(nil)
	ctx := context.Background()
	owner := uuid.New()

	created, err := service.Create(ctx, owner, CreateOrderInput{
		ExternalID:    "ML-1001",
		Platform:      "MERCADOLIBRE",
		TotalQuantity: 1,
		TotalAmount:   decimal.Zero,
	})
	require.NoError(t, err)

	updated, err := service.Update(ctx, owner, created.ID, UpdateOrderInput{Status: "COMPLETED"})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", updated.Status)

	// Terminal states are locked
	_, err = service.Update(ctx, owner, created.ID, UpdateOrderInput{Status: "PENDING"})
	assert.ErrorIs(t, err, trade.ErrInvalidTransition)
}

func TestOrderService_ImportFromMercadoLibre(t *testing.T) {
	marketplace := &fakeMarketplace{
		orders: []integration.MarketplaceOrder{
			{
				OrderID:       "2000001",
				Status:        "paid",
				TotalAmount:   decimal.RequireFromString("57150.5"),
				CurrencyID:    "COP",
				TotalQuantity: 3,
				DateCreated:   time.Now().UTC(),
			},
			{
				OrderID:       "2000002",
				Status:        "cancelled",
				TotalAmount:   decimal.RequireFromString("12000"),
				TotalQuantity: 1,
				DateCreated:   time.Now().UTC(),
			},
		},
	}
	service, repo := newOrderServiceUnderTest(marketplace)
	ctx := context.Background()
	owner := uuid.New()

	result, err := service.ImportFromMercadoLibre(ctx, owner, ImportInput{AccountKey: "tenant-1", SellerID: "987"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Updated)

	stored, err := repo.FindByExternalID(ctx, integration.PlatformMercadoLibre, "2000001")
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusProcessing, stored.Status)
	assert.Equal(t, owner, stored.OwnerID)

	cancelled, err := repo.FindByExternalID(ctx, integration.PlatformMercadoLibre, "2000002")
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusCancelled, cancelled.Status)

	// Re-import updates the live order and leaves the terminal one alone
	marketplace.orders[0].TotalQuantity = 5
	result, err = service.ImportFromMercadoLibre(ctx, owner, ImportInput{AccountKey: "tenant-1", SellerID: "987"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)

	stored, err = repo.FindByExternalID(ctx, integration.PlatformMercadoLibre, "2000001")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.TotalQuantity)
}

func TestOrderService_ImportPropagatesSearchFailure(t *testing.T) {
	marketplace := &fakeMarketplace{err: integration.ErrPlatformUnavailable}
	service, _ := newOrderServiceUnderTest(marketplace)

	_, err := service.ImportFromMercadoLibre(context.Background(), uuid.New(), ImportInput{AccountKey: "tenant-1"})
	assert.ErrorIs(t, err, integration.ErrPlatformUnavailable)
}
