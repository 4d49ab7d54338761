package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sellaro-dev/sellaro-backend/internal/cart"
	"github.com/sellaro-dev/sellaro-backend/internal/checkout/helpers"
	"github.com/sellaro-dev/sellaro-backend/internal/orders"
	"github.com/sellaro-dev/sellaro-backend/internal/reservation"
	"github.com/sellaro-dev/sellaro-backend/pkg/db/models"
	"github.com/sellaro-dev/sellaro-backend/pkg/enums"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
	"github.com/sellaro-dev/sellaro-backend/pkg/metrics"
)

const (
	resultCreated         = "created"
	resultReplayed        = "replayed"
	resultLockContention  = "lock_contention"
	resultOutOfStock      = "out_of_stock"
	resultValidationError = "validation_error"
	resultError           = "error"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CheckoutInput is one buyer's attempt to turn a cart into an order.
type CheckoutInput struct {
	BuyerID        uuid.UUID
	IdempotencyKey string
	Lines          []cart.Line
}

// Service is the checkout orchestrator: lock the buyer, replay on a known
// idempotency key, snapshot the cart, hold the stock, split per vendor, and
// persist the order tree. Stock is held before the database transaction and
// released again if persistence fails.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error)
}

type service struct {
	cart           cart.Service
	reservation    reservation.Service
	ordersRepo     orders.Repository
	tx             txRunner
	lock           *BuyerLock
	commissionRate decimal.Decimal
	metrics        *metrics.CheckoutMetrics
	logger         *logger.Logger
}

// NewService wires the checkout orchestrator.
func NewService(
	cartSvc cart.Service,
	reservationSvc reservation.Service,
	ordersRepo orders.Repository,
	tx txRunner,
	lock *BuyerLock,
	commissionRate decimal.Decimal,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if reservationSvc == nil {
		return nil, fmt.Errorf("reservation service required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if lock == nil {
		return nil, fmt.Errorf("buyer lock required")
	}
	if commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("commission rate out of range [0,1]")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cart:           cartSvc,
		reservation:    reservationSvc,
		ordersRepo:     ordersRepo,
		tx:             tx,
		lock:           lock,
		commissionRate: commissionRate,
		metrics:        checkoutMetrics,
		logger:         logg,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	start := time.Now()
	order, result, err := s.checkout(ctx, input)
	s.metrics.IncOutcome(result)
	s.metrics.ObserveDuration(result, time.Since(start))
	return order, err
}

func (s *service) checkout(ctx context.Context, input CheckoutInput) (*models.Order, string, error) {
	if strings.TrimSpace(input.IdempotencyKey) == "" {
		return nil, resultValidationError, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, resultValidationError, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}

	ctx = s.logger.WithBuyerID(ctx, input.BuyerID.String())

	lease, err := s.lock.Acquire(ctx, input.BuyerID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeCheckoutInProgress {
			return nil, resultLockContention, err
		}
		return nil, resultError, err
	}
	defer func() {
		if releaseErr := lease.Release(ctx); releaseErr != nil {
			s.logger.Warn(ctx, "checkout lock release failed")
		}
	}()

	// A retried request with a known key resolves to the original order
	// before any stock is touched.
	existing, err := s.ordersRepo.FindOrderByIdempotencyKey(ctx, input.BuyerID, input.IdempotencyKey)
	if err != nil {
		return nil, resultError, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup")
	}
	if existing != nil {
		return existing, resultReplayed, nil
	}

	snapshot, err := s.cart.BuildSnapshot(ctx, input.BuyerID, input.Lines)
	if err != nil {
		return nil, resultValidationError, err
	}

	reservationLines := make([]reservation.Line, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		reservationLines = append(reservationLines, reservation.Line{
			ProductID: line.ProductID,
			Qty:       line.Qty,
		})
	}
	if err := s.reservation.Reserve(ctx, reservationLines); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeOutOfStock {
			s.metrics.IncStockConflict()
			return nil, resultOutOfStock, err
		}
		return nil, resultError, err
	}

	order := s.buildOrder(input, snapshot)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, createErr := s.ordersRepo.WithTx(tx).CreateOrder(ctx, order)
		return createErr
	})
	if err != nil {
		// The order tree never landed; give the stock back before reporting.
		if releaseErr := s.reservation.Release(ctx, reservationLines); releaseErr != nil {
			s.logger.Error(ctx, "failed to release reservation after persist failure", releaseErr)
		}

		// A concurrent request may have landed the same key first; resolve to
		// that order instead of surfacing the unique violation.
		if winner, lookupErr := s.ordersRepo.FindOrderByIdempotencyKey(ctx, input.BuyerID, input.IdempotencyKey); lookupErr == nil && winner != nil {
			return winner, resultReplayed, nil
		}
		return nil, resultError, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	ctx = s.logger.WithOrderID(ctx, order.ID.String())
	s.logger.Info(ctx, "checkout completed")
	return order, resultCreated, nil
}

// buildOrder freezes the snapshot and the vendor splits into the order tree.
// Sub-orders are born awaiting payment; wallet credits only appear once a
// sub-order is actually paid.
func (s *service) buildOrder(input CheckoutInput, snapshot *cart.Snapshot) *models.Order {
	splits := helpers.SplitByVendor(snapshot.Lines, s.commissionRate)

	order := &models.Order{
		ID:             uuid.New(),
		BuyerID:        input.BuyerID,
		IdempotencyKey: input.IdempotencyKey,
		Status:         enums.OrderStatusAwaitingPayment,
		Currency:       enums.CurrencyUSD,
		TotalCents:     helpers.TotalCents(splits),
	}
	for _, split := range splits {
		subOrder := models.SubOrder{
			ID:              uuid.New(),
			OrderID:         order.ID,
			VendorStoreID:   split.VendorStoreID,
			Status:          enums.SubOrderStatusAwaitingPayment,
			SubtotalCents:   split.SubtotalCents,
			CommissionCents: split.CommissionCents,
			VendorNetCents:  split.VendorNetCents,
		}
		for _, line := range split.Lines {
			subOrder.Lines = append(subOrder.Lines, models.SubOrderLine{
				ID:             uuid.New(),
				SubOrderID:     subOrder.ID,
				ProductID:      line.ProductID,
				Name:           line.Name,
				UnitPriceCents: line.UnitPriceCents,
				Qty:            line.Qty,
				LineTotalCents: line.LineTotalCents,
			})
		}
		order.SubOrders = append(order.SubOrders, subOrder)
	}
	return order
}
