package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellaro-dev/sellaro-backend/pkg/db/models"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
)

const maxPageSize = 200

// Service is the read-only oversight surface: recent orders across all
// buyers and the raw wallet log per vendor. It never mutates anything.
type Service interface {
	ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error)
	ListVendorWalletLog(ctx context.Context, vendorStoreID uuid.UUID, since *time.Time, limit int) ([]models.WalletTransaction, error)
}

type service struct {
	db *gorm.DB
}

// NewService builds the admin read service over the shared database.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database required")
	}
	return &service{db: db}, nil
}

func (s *service) ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	limit = clampLimit(limit)

	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("SubOrders.Lines").
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) ListVendorWalletLog(ctx context.Context, vendorStoreID uuid.UUID, since *time.Time, limit int) ([]models.WalletTransaction, error) {
	if vendorStoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor store id required")
	}
	limit = clampLimit(limit)

	query := s.db.WithContext(ctx).
		Where("vendor_store_id = ?", vendorStoreID)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	var txns []models.WalletTransaction
	if err := query.Order("created_at DESC").Limit(limit).Find(&txns).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	return txns, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
