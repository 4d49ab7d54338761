package helpers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellaro-dev/sellaro-backend/internal/cart"
)

func TestSplitByVendorAppliesCommissionPerVendor(t *testing.T) {
	vendorA := uuid.New()
	vendorB := uuid.New()
	rate := decimal.RequireFromString("0.10")

	splits := SplitByVendor([]cart.PricedLine{
		{ProductID: uuid.New(), VendorStoreID: vendorA, UnitPriceCents: 1000, Qty: 2, LineTotalCents: 2000},
		{ProductID: uuid.New(), VendorStoreID: vendorB, UnitPriceCents: 500, Qty: 1, LineTotalCents: 500},
	}, rate)

	require.Len(t, splits, 2)

	assert.Equal(t, vendorA, splits[0].VendorStoreID)
	assert.Equal(t, 2000, splits[0].SubtotalCents)
	assert.Equal(t, 200, splits[0].CommissionCents)
	assert.Equal(t, 1800, splits[0].VendorNetCents)

	assert.Equal(t, vendorB, splits[1].VendorStoreID)
	assert.Equal(t, 500, splits[1].SubtotalCents)
	assert.Equal(t, 50, splits[1].CommissionCents)
	assert.Equal(t, 450, splits[1].VendorNetCents)

	assert.Equal(t, 2500, TotalCents(splits))
}

func TestSplitByVendorPreservesCartOrderAndLineOrder(t *testing.T) {
	vendorA := uuid.New()
	vendorB := uuid.New()
	p1, p2, p3 := uuid.New(), uuid.New(), uuid.New()

	splits := SplitByVendor([]cart.PricedLine{
		{ProductID: p1, VendorStoreID: vendorB, LineTotalCents: 100},
		{ProductID: p2, VendorStoreID: vendorA, LineTotalCents: 200},
		{ProductID: p3, VendorStoreID: vendorB, LineTotalCents: 300},
	}, decimal.Zero)

	require.Len(t, splits, 2)
	assert.Equal(t, vendorB, splits[0].VendorStoreID)
	require.Len(t, splits[0].Lines, 2)
	assert.Equal(t, p1, splits[0].Lines[0].ProductID)
	assert.Equal(t, p3, splits[0].Lines[1].ProductID)
	assert.Equal(t, vendorA, splits[1].VendorStoreID)
}

func TestSplitByVendorRoundsCommissionHalfUpOnSubtotal(t *testing.T) {
	vendor := uuid.New()
	rate := decimal.RequireFromString("0.10")

	// 125 * 0.10 = 12.5 → 13 when rounded half-up on the subtotal.
	splits := SplitByVendor([]cart.PricedLine{
		{ProductID: uuid.New(), VendorStoreID: vendor, LineTotalCents: 125},
	}, rate)
	require.Len(t, splits, 1)
	assert.Equal(t, 13, splits[0].CommissionCents)
	assert.Equal(t, 112, splits[0].VendorNetCents)

	// Per-line rounding would give 12+13=25; one rounding on the combined
	// subtotal gives 25.0 → 25 as well, but with 3 lines of 125 the results
	// diverge: per-line would be 39, subtotal-level is 375*0.10 = 37.5 → 38.
	splits = SplitByVendor([]cart.PricedLine{
		{ProductID: uuid.New(), VendorStoreID: vendor, LineTotalCents: 125},
		{ProductID: uuid.New(), VendorStoreID: vendor, LineTotalCents: 125},
		{ProductID: uuid.New(), VendorStoreID: vendor, LineTotalCents: 125},
	}, rate)
	require.Len(t, splits, 1)
	assert.Equal(t, 375, splits[0].SubtotalCents)
	assert.Equal(t, 38, splits[0].CommissionCents)
	assert.Equal(t, 337, splits[0].VendorNetCents)
}

func TestSplitByVendorZeroRate(t *testing.T) {
	vendor := uuid.New()
	splits := SplitByVendor([]cart.PricedLine{
		{ProductID: uuid.New(), VendorStoreID: vendor, LineTotalCents: 999},
	}, decimal.Zero)
	require.Len(t, splits, 1)
	assert.Equal(t, 0, splits[0].CommissionCents)
	assert.Equal(t, 999, splits[0].VendorNetCents)
}

func TestSplitByVendorEmpty(t *testing.T) {
	assert.Nil(t, SplitByVendor(nil, decimal.Zero))
	assert.Equal(t, 0, TotalCents(nil))
}
