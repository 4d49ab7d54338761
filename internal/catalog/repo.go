package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellaro-dev/sellaro-backend/pkg/db/models"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
)

// Repository exposes product lookups and the guarded inventory mutations the
// reservation and order flows depend on. All quantity updates are conditional
// single-statement writes so concurrent checkouts race on the database row,
// not in application code.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.Product, error)
	ReserveStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	ReleaseStock(ctx context.Context, productID uuid.UUID, qty int) error
	ConsumeStock(ctx context.Context, productID uuid.UUID, qty int) error
	Restock(ctx context.Context, productID uuid.UUID, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Inventory").
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

func (r *repository) GetProducts(ctx context.Context, productIDs []uuid.UUID) ([]models.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Inventory").
		Where("id IN ?", productIDs).
		Find(&products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	return products, nil
}

// ReserveStock moves qty units from available to reserved. It reports false
// when the row holds fewer available units than requested; the caller decides
// whether that is fatal.
func (r *repository) ReserveStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive")
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET available_qty = available_qty - ?,
			reserved_qty = reserved_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND available_qty >= ?
	`, qty, qty, productID, qty)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
	}
	return res.RowsAffected == 1, nil
}

// ReleaseStock returns qty reserved units to the available pool. Used both by
// reservation compensation and by cancellation before fulfillment.
func (r *repository) ReleaseStock(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET available_qty = available_qty + ?,
			reserved_qty = reserved_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND reserved_qty >= ?
	`, qty, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reserved quantity underflow").
			WithDetails(map[string]any{"product_id": productID, "qty": qty})
	}
	return nil
}

// ConsumeStock burns qty reserved units once a sub-order completes; the goods
// have shipped and no longer count against either pool.
func (r *repository) ConsumeStock(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET reserved_qty = reserved_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND reserved_qty >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "consume inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reserved quantity underflow").
			WithDetails(map[string]any{"product_id": productID, "qty": qty})
	}
	return nil
}

// Restock adds qty units back to the available pool after a refund of goods
// that already shipped.
func (r *repository) Restock(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET available_qty = available_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?
	`, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restock inventory")
	}
	return nil
}
