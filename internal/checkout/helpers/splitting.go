package helpers

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellaro-dev/sellaro-backend/internal/cart"
)

// VendorSplit is one vendor's slice of a checkout: the vendor's lines plus
// the money math fixed at split time. CommissionCents + VendorNetCents always
// equals SubtotalCents.
type VendorSplit struct {
	VendorStoreID   uuid.UUID
	Lines           []cart.PricedLine
	SubtotalCents   int
	CommissionCents int
	VendorNetCents  int
}

// SplitByVendor groups snapshot lines by vendor store, preserving the order
// vendors first appear in the cart, and applies the marketplace commission
// once per vendor slice. Commission is rounded half-up on the vendor
// subtotal, never per line, so the vendor net is exact to the cent.
func SplitByVendor(lines []cart.PricedLine, commissionRate decimal.Decimal) []VendorSplit {
	if len(lines) == 0 {
		return nil
	}

	order := make([]uuid.UUID, 0, len(lines))
	grouped := make(map[uuid.UUID][]cart.PricedLine, len(lines))
	for _, line := range lines {
		if _, seen := grouped[line.VendorStoreID]; !seen {
			order = append(order, line.VendorStoreID)
		}
		grouped[line.VendorStoreID] = append(grouped[line.VendorStoreID], line)
	}

	splits := make([]VendorSplit, 0, len(order))
	for _, vendorID := range order {
		vendorLines := grouped[vendorID]
		subtotal := 0
		for _, line := range vendorLines {
			subtotal += line.LineTotalCents
		}
		commission := commissionCents(subtotal, commissionRate)
		splits = append(splits, VendorSplit{
			VendorStoreID:   vendorID,
			Lines:           vendorLines,
			SubtotalCents:   subtotal,
			CommissionCents: commission,
			VendorNetCents:  subtotal - commission,
		})
	}
	return splits
}

// TotalCents sums the vendor subtotals back into the parent order total.
func TotalCents(splits []VendorSplit) int {
	total := 0
	for _, split := range splits {
		total += split.SubtotalCents
	}
	return total
}

func commissionCents(subtotalCents int, rate decimal.Decimal) int {
	return int(rate.
		Mul(decimal.NewFromInt(int64(subtotalCents))).
		Round(0).
		IntPart())
}
