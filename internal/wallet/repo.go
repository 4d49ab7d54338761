package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellaro-dev/sellaro-backend/pkg/db/models"
)

// Repository manages persistence for wallet transactions. The table is
// append-only: there is deliberately no update or delete surface here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.WalletTransaction) error
	SubOrderExists(ctx context.Context, subOrderID uuid.UUID) (bool, error)
	ListByVendor(ctx context.Context, vendorStoreID uuid.UUID, from, to *time.Time) ([]models.WalletTransaction, error)
	ListBySubOrder(ctx context.Context, subOrderID uuid.UUID) ([]models.WalletTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// SubOrderExists guards the ledger against rows referencing a sub-order that
// was never written.
func (r *repository) SubOrderExists(ctx context.Context, subOrderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SubOrder{}).
		Where("id = ?", subOrderID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByVendor(ctx context.Context, vendorStoreID uuid.UUID, from, to *time.Time) ([]models.WalletTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("vendor_store_id = ?", vendorStoreID)
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at < ?", *to)
	}

	var txns []models.WalletTransaction
	if err := query.Order("created_at ASC").Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) ListBySubOrder(ctx context.Context, subOrderID uuid.UUID) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("sub_order_id = ?", subOrderID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
