package reservation

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/sellaro-dev/sellaro-backend/internal/catalog"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
)

// Line is one product/quantity pair to reserve or release.
type Line struct {
	ProductID uuid.UUID
	Qty       int
}

// Service holds stock for a checkout attempt, all lines or none. Each line is
// a guarded single-row update committed immediately; a failed line triggers
// compensation of everything reserved before it rather than a long-lived
// multi-row transaction, so two checkouts touching different products never
// block each other.
type Service interface {
	Reserve(ctx context.Context, lines []Line) error
	Release(ctx context.Context, lines []Line) error
}

type service struct {
	catalog catalog.Repository
	logger  *logger.Logger
}

// NewService builds a reservation service over the catalog inventory surface.
func NewService(catalogRepo catalog.Repository, logg *logger.Logger) (Service, error) {
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{catalog: catalogRepo, logger: logg}, nil
}

// Reserve attempts every line in ascending product order. Processing in a
// fixed global order keeps two overlapping carts from deadlocking on each
// other's rows.
func (s *service) Reserve(ctx context.Context, lines []Line) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no lines to reserve")
	}
	for _, line := range lines {
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID, "qty": line.Qty})
		}
	}

	ordered := make([]Line, len(lines))
	copy(ordered, lines)
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i].ProductID[:], ordered[j].ProductID[:]) < 0
	})

	for i, line := range ordered {
		ok, err := s.catalog.ReserveStock(ctx, line.ProductID, line.Qty)
		if err != nil {
			return multierr.Append(err, s.compensate(ctx, ordered[:i]))
		}
		if !ok {
			outOfStock := pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").
				WithDetails(map[string]any{"product_id": line.ProductID, "qty": line.Qty})
			return multierr.Append(outOfStock, s.compensate(ctx, ordered[:i]))
		}
	}
	return nil
}

// Release returns every line's reserved units to the available pool.
func (s *service) Release(ctx context.Context, lines []Line) error {
	var err error
	for _, line := range lines {
		err = multierr.Append(err, s.catalog.ReleaseStock(ctx, line.ProductID, line.Qty))
	}
	return err
}

// compensate undoes already-held lines in reverse order. Failures here leak
// reserved stock, so each one is logged before being surfaced.
func (s *service) compensate(ctx context.Context, held []Line) error {
	var err error
	for i := len(held) - 1; i >= 0; i-- {
		line := held[i]
		if releaseErr := s.catalog.ReleaseStock(ctx, line.ProductID, line.Qty); releaseErr != nil {
			lctx := s.logger.WithFields(ctx, map[string]any{
				"product_id": line.ProductID,
				"qty":        line.Qty,
			})
			s.logger.Error(lctx, "reservation compensation failed", releaseErr)
			err = multierr.Append(err, releaseErr)
		}
	}
	return err
}
