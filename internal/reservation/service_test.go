package reservation

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sellaro-dev/sellaro-backend/internal/catalog"
	"github.com/sellaro-dev/sellaro-backend/pkg/db/models"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reservation_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.InventoryItem{}); err != nil {
		t.Fatalf("migrate inventory: %v", err)
	}
	// sqlite allows one writer; a single connection keeps concurrent test
	// goroutines from tripping over SQLITE_BUSY instead of the row guards.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(catalog.NewRepository(db), logg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func seedInventory(t *testing.T, db *gorm.DB, productID uuid.UUID, available int) {
	t.Helper()
	if err := db.Create(&models.InventoryItem{ProductID: productID, AvailableQty: available}).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
}

func loadInventory(t *testing.T, db *gorm.DB, productID uuid.UUID) models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	if err := db.First(&item, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	return item
}

func TestReserveHoldsAllLines(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	productA := uuid.New()
	productB := uuid.New()
	seedInventory(t, db, productA, 5)
	seedInventory(t, db, productB, 1)

	err := svc.Reserve(ctx, []Line{
		{ProductID: productA, Qty: 3},
		{ProductID: productB, Qty: 1},
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	invA := loadInventory(t, db, productA)
	if invA.AvailableQty != 2 || invA.ReservedQty != 3 {
		t.Fatalf("unexpected inventory a state: %+v", invA)
	}
	invB := loadInventory(t, db, productB)
	if invB.AvailableQty != 0 || invB.ReservedQty != 1 {
		t.Fatalf("unexpected inventory b state: %+v", invB)
	}
}

func TestReserveCompensatesOnShortfall(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	productA := uuid.New()
	productB := uuid.New()
	seedInventory(t, db, productA, 5)
	seedInventory(t, db, productB, 1)

	err := svc.Reserve(ctx, []Line{
		{ProductID: productA, Qty: 3},
		{ProductID: productB, Qty: 2},
	})
	if err == nil {
		t.Fatal("expected out of stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["product_id"] != productB {
		t.Fatalf("expected failing product in details, got %+v", typed.Details())
	}

	// Nothing may remain held after compensation.
	for _, productID := range []uuid.UUID{productA, productB} {
		inv := loadInventory(t, db, productID)
		if inv.ReservedQty != 0 {
			t.Fatalf("expected no reserved stock for %s, got %+v", productID, inv)
		}
	}
	if inv := loadInventory(t, db, productA); inv.AvailableQty != 5 {
		t.Fatalf("expected available stock restored, got %+v", inv)
	}
}

func TestReserveLastUnitWinsOnce(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	product := uuid.New()
	seedInventory(t, db, product, 1)

	lines := []Line{{ProductID: product, Qty: 1}}
	if err := svc.Reserve(ctx, lines); err != nil {
		t.Fatalf("first buyer should win the unit: %v", err)
	}

	err := svc.Reserve(ctx, lines)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("second buyer should lose with out of stock, got %v", err)
	}

	inv := loadInventory(t, db, product)
	if inv.AvailableQty != 0 || inv.ReservedQty != 1 {
		t.Fatalf("unexpected inventory state: %+v", inv)
	}
}

func TestReserveConcurrentLastUnit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	product := uuid.New()
	seedInventory(t, db, product, 1)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = svc.Reserve(ctx, []Line{{ProductID: product, Qty: 1}})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
			t.Fatalf("loser must see out of stock, got %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}

	inv := loadInventory(t, db, product)
	if inv.AvailableQty != 0 || inv.ReservedQty != 1 {
		t.Fatalf("unexpected inventory state: %+v", inv)
	}
}

func TestReserveConcurrentDisjointProducts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	const buyers = 8
	products := make([]uuid.UUID, buyers)
	for i := range products {
		products[i] = uuid.New()
		seedInventory(t, db, products[i], 5)
	}

	var wg sync.WaitGroup
	results := make([]error, buyers)
	for i := range products {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = svc.Reserve(ctx, []Line{{ProductID: products[slot], Qty: 2}})
		}(i)
	}
	wg.Wait()

	for i, err := range results {
		if err != nil {
			t.Fatalf("buyer %d on its own product must succeed: %v", i, err)
		}
	}
	// No interleaving may have touched a neighbor's count.
	for _, productID := range products {
		inv := loadInventory(t, db, productID)
		if inv.AvailableQty != 3 || inv.ReservedQty != 2 {
			t.Fatalf("cross-contaminated inventory for %s: %+v", productID, inv)
		}
	}
}

func TestReleaseReturnsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	product := uuid.New()
	seedInventory(t, db, product, 4)

	lines := []Line{{ProductID: product, Qty: 3}}
	if err := svc.Reserve(ctx, lines); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := svc.Release(ctx, lines); err != nil {
		t.Fatalf("release: %v", err)
	}

	inv := loadInventory(t, db, product)
	if inv.AvailableQty != 4 || inv.ReservedQty != 0 {
		t.Fatalf("unexpected inventory state: %+v", inv)
	}
}

func TestReserveRejectsInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	product := uuid.New()
	seedInventory(t, db, product, 5)

	err := svc.Reserve(context.Background(), []Line{{ProductID: product, Qty: 0}})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReserveProcessesInAscendingProductOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	// Two lines submitted high-to-low; both products short on stock for the
	// second line's quantity. The lower product id must be attempted first,
	// so its units are the ones held and then compensated.
	low := uuid.UUID{0x01}
	high := uuid.UUID{0xFE}
	if bytes.Compare(low[:], high[:]) >= 0 {
		t.Fatal("test ids must be ordered")
	}
	seedInventory(t, db, low, 2)
	seedInventory(t, db, high, 1)

	err := svc.Reserve(ctx, []Line{
		{ProductID: high, Qty: 2},
		{ProductID: low, Qty: 2},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["product_id"] != high {
		t.Fatalf("expected the higher product to be the failing line, got %+v", typed.Details())
	}

	if inv := loadInventory(t, db, low); inv.AvailableQty != 2 || inv.ReservedQty != 0 {
		t.Fatalf("expected low product compensated, got %+v", inv)
	}
}
