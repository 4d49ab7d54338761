package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sellaro-dev/sellaro-backend/internal/catalog"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
)

// Line is a raw cart entry as submitted by the buyer: a product and a
// quantity, nothing else. Pricing always comes from the catalog.
type Line struct {
	ProductID uuid.UUID
	Qty       int
}

// PricedLine is a cart line frozen against catalog data at snapshot time.
type PricedLine struct {
	ProductID      uuid.UUID
	VendorStoreID  uuid.UUID
	Name           string
	UnitPriceCents int
	Qty            int
	LineTotalCents int
}

// Snapshot is the immutable priced view of a cart. Everything downstream of
// checkout (reservation, splitting, order rows) reads from the snapshot, never
// from live catalog rows, so a mid-checkout price change cannot skew totals.
type Snapshot struct {
	BuyerID       uuid.UUID
	Lines         []PricedLine
	SubtotalCents int
}

// Service builds priced snapshots from raw cart lines.
type Service interface {
	BuildSnapshot(ctx context.Context, buyerID uuid.UUID, lines []Line) (*Snapshot, error)
}

type service struct {
	catalog catalog.Repository
}

// NewService builds a cart snapshot service backed by the catalog.
func NewService(catalogRepo catalog.Repository) (Service, error) {
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{catalog: catalogRepo}, nil
}

func (s *service) BuildSnapshot(ctx context.Context, buyerID uuid.UUID, lines []Line) (*Snapshot, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	ids := make([]uuid.UUID, 0, len(lines))
	qtyByProduct := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID, "qty": line.Qty})
		}
		if _, seen := qtyByProduct[line.ProductID]; seen {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in cart").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		qtyByProduct[line.ProductID] = line.Qty
		ids = append(ids, line.ProductID)
	}

	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	productByID := make(map[uuid.UUID]int, len(products))
	for i := range products {
		productByID[products[i].ID] = i
	}

	snapshot := &Snapshot{
		BuyerID: buyerID,
		Lines:   make([]PricedLine, 0, len(lines)),
	}
	for _, line := range lines {
		idx, ok := productByID[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		product := products[idx]
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not purchasable").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}

		lineTotal := product.PriceCents * line.Qty
		snapshot.Lines = append(snapshot.Lines, PricedLine{
			ProductID:      product.ID,
			VendorStoreID:  product.VendorStoreID,
			Name:           product.Title,
			UnitPriceCents: product.PriceCents,
			Qty:            line.Qty,
			LineTotalCents: lineTotal,
		})
		snapshot.SubtotalCents += lineTotal
	}

	return snapshot, nil
}
