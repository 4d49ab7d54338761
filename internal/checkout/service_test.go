package checkout

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sellaro-dev/sellaro-backend/internal/cart"
	"github.com/sellaro-dev/sellaro-backend/internal/catalog"
	"github.com/sellaro-dev/sellaro-backend/internal/orders"
	"github.com/sellaro-dev/sellaro-backend/internal/reservation"
	"github.com/sellaro-dev/sellaro-backend/pkg/db/models"
	"github.com/sellaro-dev/sellaro-backend/pkg/enums"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  vendor_store_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  title TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  compare_at_price_cents INTEGER,
  image_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE inventory_items (
  product_id TEXT PRIMARY KEY,
  available_qty INTEGER NOT NULL DEFAULT 0,
  reserved_qty INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`,
		`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  idempotency_key TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL,
  currency TEXT NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE sub_orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  vendor_store_id TEXT NOT NULL,
  status TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  commission_cents INTEGER NOT NULL,
  vendor_net_cents INTEGER NOT NULL,
  payment_ref TEXT,
  paid_at DATETIME,
  completed_at DATETIME,
  canceled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE sub_order_lines (
  id TEXT PRIMARY KEY,
  sub_order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type failingTxRunner struct {
	err error
}

func (r failingTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.err
}

type checkoutStack struct {
	db    *gorm.DB
	svc   Service
	store *memLockStore
}

func newCheckoutStack(t *testing.T, tx txRunner) *checkoutStack {
	t.Helper()

	db := setupCheckoutTestDB(t)
	if tx == nil {
		tx = gormTxRunner{db: db}
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	catalogRepo := catalog.NewRepository(db)
	cartSvc, err := cart.NewService(catalogRepo)
	require.NoError(t, err)
	reservationSvc, err := reservation.NewService(catalogRepo, logg)
	require.NoError(t, err)

	store := newMemLockStore()
	lock, err := NewBuyerLock(store, time.Second)
	require.NoError(t, err)

	svc, err := NewService(cartSvc, reservationSvc, orders.NewRepository(db), tx, lock, decimal.RequireFromString("0.10"), nil, logg)
	require.NoError(t, err)

	return &checkoutStack{db: db, svc: svc, store: store}
}

func seedProduct(t *testing.T, db *gorm.DB, vendorID uuid.UUID, priceCents, available int) models.Product {
	t.Helper()
	product := models.Product{
		ID:            uuid.New(),
		VendorStoreID: vendorID,
		SKU:           "SKU-" + uuid.NewString()[:8],
		Title:         "Checkout Product",
		PriceCents:    priceCents,
		IsActive:      true,
	}
	require.NoError(t, db.Create(&product).Error)
	require.NoError(t, db.Create(&models.InventoryItem{
		ProductID:    product.ID,
		AvailableQty: available,
	}).Error)
	return product
}

func checkoutInventory(t *testing.T, db *gorm.DB, productID uuid.UUID) models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, db.First(&item, "product_id = ?", productID).Error)
	return item
}

func TestCheckoutSplitsOrderPerVendor(t *testing.T) {
	stack := newCheckoutStack(t, nil)
	ctx := context.Background()

	vendorA := uuid.New()
	vendorB := uuid.New()
	p1 := seedProduct(t, stack.db, vendorA, 1000, 5)
	p2 := seedProduct(t, stack.db, vendorB, 500, 3)

	order, err := stack.svc.Checkout(ctx, CheckoutInput{
		BuyerID:        uuid.New(),
		IdempotencyKey: uuid.NewString(),
		Lines: []cart.Line{
			{ProductID: p1.ID, Qty: 2},
			{ProductID: p2.ID, Qty: 1},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, enums.OrderStatusAwaitingPayment, order.Status)
	assert.Equal(t, 2500, order.TotalCents)
	require.Len(t, order.SubOrders, 2)

	byVendor := map[uuid.UUID]models.SubOrder{}
	for _, subOrder := range order.SubOrders {
		byVendor[subOrder.VendorStoreID] = subOrder
	}
	subA := byVendor[vendorA]
	assert.Equal(t, 2000, subA.SubtotalCents)
	assert.Equal(t, 200, subA.CommissionCents)
	assert.Equal(t, 1800, subA.VendorNetCents)
	assert.Equal(t, enums.SubOrderStatusAwaitingPayment, subA.Status)
	require.Len(t, subA.Lines, 1)
	assert.Equal(t, 1000, subA.Lines[0].UnitPriceCents)

	subB := byVendor[vendorB]
	assert.Equal(t, 500, subB.SubtotalCents)
	assert.Equal(t, 50, subB.CommissionCents)
	assert.Equal(t, 450, subB.VendorNetCents)

	// Stock is held, not spent.
	invA := checkoutInventory(t, stack.db, p1.ID)
	assert.Equal(t, 3, invA.AvailableQty)
	assert.Equal(t, 2, invA.ReservedQty)

	// The whole tree is durable.
	var persisted models.Order
	require.NoError(t, stack.db.Preload("SubOrders.Lines").First(&persisted, "id = ?", order.ID).Error)
	require.Len(t, persisted.SubOrders, 2)
}

func TestCheckoutReplaysOnSameIdempotencyKey(t *testing.T) {
	stack := newCheckoutStack(t, nil)
	ctx := context.Background()

	product := seedProduct(t, stack.db, uuid.New(), 1000, 5)
	buyer := uuid.New()
	key := uuid.NewString()
	lines := []cart.Line{{ProductID: product.ID, Qty: 2}}

	first, err := stack.svc.Checkout(ctx, CheckoutInput{BuyerID: buyer, IdempotencyKey: key, Lines: lines})
	require.NoError(t, err)

	second, err := stack.svc.Checkout(ctx, CheckoutInput{BuyerID: buyer, IdempotencyKey: key, Lines: lines})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Stock was only held once.
	inv := checkoutInventory(t, stack.db, product.ID)
	assert.Equal(t, 3, inv.AvailableQty)
	assert.Equal(t, 2, inv.ReservedQty)

	var count int64
	require.NoError(t, stack.db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCheckoutOutOfStockLeavesNothingBehind(t *testing.T) {
	stack := newCheckoutStack(t, nil)
	ctx := context.Background()

	inStock := seedProduct(t, stack.db, uuid.New(), 1000, 5)
	scarce := seedProduct(t, stack.db, uuid.New(), 500, 1)

	_, err := stack.svc.Checkout(ctx, CheckoutInput{
		BuyerID:        uuid.New(),
		IdempotencyKey: uuid.NewString(),
		Lines: []cart.Line{
			{ProductID: inStock.ID, Qty: 2},
			{ProductID: scarce.ID, Qty: 3},
		},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeOutOfStock, typed.Code())

	// All-or-nothing: nothing stays reserved, no order row exists.
	for _, product := range []models.Product{inStock, scarce} {
		inv := checkoutInventory(t, stack.db, product.ID)
		assert.Zero(t, inv.ReservedQty, "product %s", product.ID)
	}
	var count int64
	require.NoError(t, stack.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCheckoutLockContention(t *testing.T) {
	stack := newCheckoutStack(t, nil)
	ctx := context.Background()

	product := seedProduct(t, stack.db, uuid.New(), 1000, 5)
	buyer := uuid.New()

	// Another request already holds this buyer's lock.
	key := stack.store.CheckoutLockKey(buyer.String())
	held, err := stack.store.SetNX(ctx, key, "other-owner", time.Second)
	require.NoError(t, err)
	require.True(t, held)

	_, err = stack.svc.Checkout(ctx, CheckoutInput{
		BuyerID:        buyer,
		IdempotencyKey: uuid.NewString(),
		Lines:          []cart.Line{{ProductID: product.ID, Qty: 1}},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeCheckoutInProgress, typed.Code())
}

func TestCheckoutReleasesReservationWhenPersistFails(t *testing.T) {
	boom := errors.New("write failed")
	stack := newCheckoutStack(t, failingTxRunner{err: boom})
	ctx := context.Background()

	product := seedProduct(t, stack.db, uuid.New(), 1000, 5)

	_, err := stack.svc.Checkout(ctx, CheckoutInput{
		BuyerID:        uuid.New(),
		IdempotencyKey: uuid.NewString(),
		Lines:          []cart.Line{{ProductID: product.ID, Qty: 2}},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())

	inv := checkoutInventory(t, stack.db, product.ID)
	assert.Equal(t, 5, inv.AvailableQty)
	assert.Zero(t, inv.ReservedQty)
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	stack := newCheckoutStack(t, nil)

	_, err := stack.svc.Checkout(context.Background(), CheckoutInput{
		BuyerID: uuid.New(),
		Lines:   []cart.Line{{ProductID: uuid.New(), Qty: 1}},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
