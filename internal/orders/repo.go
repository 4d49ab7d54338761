package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellaro-dev/sellaro-backend/pkg/db/models"
	"github.com/sellaro-dev/sellaro-backend/pkg/enums"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
)

// Repository manages persistence for orders and their vendor sub-orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderByIdempotencyKey(ctx context.Context, buyerID uuid.UUID, key string) (*models.Order, error)
	FindSubOrderByID(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error)
	ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	ListSubOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SubOrder, error)
	ListSubOrdersByVendor(ctx context.Context, vendorStoreID uuid.UUID) ([]models.SubOrder, error)
	UpdateSubOrder(ctx context.Context, subOrder *models.SubOrder, from enums.SubOrderStatus) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder persists the order together with its sub-orders and lines in
// one associated write.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("SubOrders.Lines").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderByIdempotencyKey returns nil, nil when no order carries the key.
func (r *repository) FindOrderByIdempotencyKey(ctx context.Context, buyerID uuid.UUID, key string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("SubOrders.Lines").
		Where("buyer_id = ? AND idempotency_key = ?", buyerID, key).
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindSubOrderByID(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error) {
	var subOrder models.SubOrder
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ?", subOrderID).
		First(&subOrder).Error
	if err != nil {
		return nil, err
	}
	return &subOrder, nil
}

func (r *repository) ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("SubOrders.Lines").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListSubOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SubOrder, error) {
	var subOrders []models.SubOrder
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&subOrders).Error
	if err != nil {
		return nil, err
	}
	return subOrders, nil
}

func (r *repository) ListSubOrdersByVendor(ctx context.Context, vendorStoreID uuid.UUID) ([]models.SubOrder, error) {
	var subOrders []models.SubOrder
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("vendor_store_id = ?", vendorStoreID).
		Order("created_at DESC").
		Find(&subOrders).Error
	if err != nil {
		return nil, err
	}
	return subOrders, nil
}

// UpdateSubOrder applies the transition only while the row still holds the
// status the caller read. Zero rows affected means a concurrent request won
// the transition first.
func (r *repository) UpdateSubOrder(ctx context.Context, subOrder *models.SubOrder, from enums.SubOrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.SubOrder{}).
		Where("id = ? AND status = ?", subOrder.ID, from).
		Updates(map[string]any{
			"status":       subOrder.Status,
			"payment_ref":  subOrder.PaymentRef,
			"paid_at":      subOrder.PaidAt,
			"completed_at": subOrder.CompletedAt,
			"canceled_at":  subOrder.CanceledAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "sub-order changed concurrently").
			WithDetails(map[string]any{
				"sub_order_id": subOrder.ID,
				"expected":     from,
			})
	}
	return nil
}

func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}
