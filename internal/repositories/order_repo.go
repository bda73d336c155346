package repositories

import (
	"context"
	"strconv"

	"pizzeria/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id int64) error
}

// StoreOrderRepository keeps orders in the orders folder keyed by the decimal id.
type StoreOrderRepository struct {
	recs recordRepo[models.Order]
}

// NewStoreOrderRepository creates a new instance of StoreOrderRepository.
func NewStoreOrderRepository(store Store) *StoreOrderRepository {
	return &StoreOrderRepository{recs: recordRepo[models.Order]{store: store, folder: OrdersFolder}}
}

// OrderKey returns the storage key for an order id.
func OrderKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Create adds a new order.
func (r *StoreOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.recs.create(ctx, OrderKey(order.ID), order)
}

// GetByID returns an order by its id.
func (r *StoreOrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	return r.recs.get(ctx, OrderKey(id))
}

// Update overwrites an existing order.
func (r *StoreOrderRepository) Update(ctx context.Context, order *models.Order) error {
	return r.recs.update(ctx, OrderKey(order.ID), order)
}

// Delete removes an order.
func (r *StoreOrderRepository) Delete(ctx context.Context, id int64) error {
	return r.recs.delete(ctx, OrderKey(id))
}
