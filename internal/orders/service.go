package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellaro-dev/sellaro-backend/internal/catalog"
	"github.com/sellaro-dev/sellaro-backend/internal/wallet"
	"github.com/sellaro-dev/sellaro-backend/pkg/db/models"
	"github.com/sellaro-dev/sellaro-backend/pkg/enums"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
	"github.com/sellaro-dev/sellaro-backend/pkg/payments"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// subOrderTransitions is the whole lifecycle. A transition absent from this
// table is a state conflict, full stop.
var subOrderTransitions = map[enums.SubOrderStatus][]enums.SubOrderStatus{
	enums.SubOrderStatusCreated:         {enums.SubOrderStatusAwaitingPayment},
	enums.SubOrderStatusAwaitingPayment: {enums.SubOrderStatusPaid},
	enums.SubOrderStatusPaid:            {enums.SubOrderStatusFulfilling, enums.SubOrderStatusCancelled},
	enums.SubOrderStatusFulfilling:      {enums.SubOrderStatusCompleted, enums.SubOrderStatusCancelled},
	enums.SubOrderStatusCompleted:       {enums.SubOrderStatusRefunded},
}

func canTransition(from, to enums.SubOrderStatus) bool {
	for _, candidate := range subOrderTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// PayInput carries what a buyer submits to pay one vendor sub-order.
type PayInput struct {
	SubOrderID uuid.UUID
	SourceID   string
}

// Service drives the sub-order lifecycle. Every transition updates the
// sub-order, appends the matching wallet rows, moves stock, and recomputes
// the parent order status in a single transaction; the payment gateway is the
// one step that runs outside it.
type Service interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetSubOrder(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	ListVendorSubOrders(ctx context.Context, vendorStoreID uuid.UUID) ([]models.SubOrder, error)
	MarkPaid(ctx context.Context, input PayInput) (*models.SubOrder, error)
	StartFulfillment(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error)
	Complete(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error)
	Cancel(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error)
	Refund(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	wallet  wallet.Service
	catalog catalog.Repository
	gateway payments.Gateway
	logger  *logger.Logger
}

// NewService builds an order lifecycle service with the required dependencies.
func NewService(repo Repository, tx txRunner, walletSvc wallet.Service, catalogRepo catalog.Repository, gateway payments.Gateway, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		wallet:  walletSvc,
		catalog: catalogRepo,
		gateway: gateway,
		logger:  logg,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) GetSubOrder(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error) {
	if subOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sub-order id required")
	}
	subOrder, err := s.repo.FindSubOrderByID(ctx, subOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sub-order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sub-order")
	}
	return subOrder, nil
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	orders, err := s.repo.ListOrdersByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) ListVendorSubOrders(ctx context.Context, vendorStoreID uuid.UUID) ([]models.SubOrder, error) {
	if vendorStoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor store id required")
	}
	subOrders, err := s.repo.ListSubOrdersByVendor(ctx, vendorStoreID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sub-orders")
	}
	return subOrders, nil
}

// MarkPaid charges the buyer for one sub-order and credits the vendor's
// pending balance. A declined charge leaves the sub-order awaiting payment so
// the buyer can retry with another instrument.
func (s *service) MarkPaid(ctx context.Context, input PayInput) (*models.SubOrder, error) {
	subOrder, err := s.loadForTransition(ctx, input.SubOrderID, enums.SubOrderStatusPaid)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.Charge(ctx, payments.ChargeParams{
		SubOrderID:  subOrder.ID,
		AmountCents: subOrder.SubtotalCents,
		SourceID:    input.SourceID,
	})
	if err != nil {
		lctx := s.logger.WithFields(ctx, map[string]any{"sub_order_id": subOrder.ID})
		s.logger.Warn(lctx, "charge declined")
		return nil, err
	}

	from := subOrder.Status
	now := time.Now().UTC()
	subOrder.Status = enums.SubOrderStatusPaid
	subOrder.PaidAt = &now
	subOrder.PaymentRef = &result.PaymentRef

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateSubOrder(ctx, subOrder, from); err != nil {
			return err
		}
		if _, err := s.wallet.Append(ctx, tx, wallet.AppendInput{
			VendorStoreID: subOrder.VendorStoreID,
			SubOrderID:    subOrder.ID,
			Kind:          enums.WalletTransactionKindPendingCredit,
			AmountCents:   subOrder.VendorNetCents,
		}); err != nil {
			return err
		}
		return s.recomputeOrderStatus(ctx, repo, subOrder.OrderID)
	})
	if err != nil {
		err = persistError(err, "persist payment")
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
			// A concurrent request won the transition after our charge went
			// through; void this charge so the buyer pays exactly once.
			s.voidLosingCharge(ctx, subOrder, result.PaymentRef)
		}
		return nil, err
	}
	return subOrder, nil
}

// StartFulfillment moves a paid sub-order into the vendor's hands.
func (s *service) StartFulfillment(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error) {
	subOrder, err := s.loadForTransition(ctx, subOrderID, enums.SubOrderStatusFulfilling)
	if err != nil {
		return nil, err
	}

	from := subOrder.Status
	subOrder.Status = enums.SubOrderStatusFulfilling
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateSubOrder(ctx, subOrder, from); err != nil {
			return err
		}
		return s.recomputeOrderStatus(ctx, repo, subOrder.OrderID)
	})
	if err != nil {
		return nil, persistError(err, "persist fulfillment start")
	}
	return subOrder, nil
}

// Complete settles the sub-order: the reserved units are consumed and the
// vendor's pending credit becomes an available settled credit.
func (s *service) Complete(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error) {
	subOrder, err := s.loadForTransition(ctx, subOrderID, enums.SubOrderStatusCompleted)
	if err != nil {
		return nil, err
	}

	from := subOrder.Status
	now := time.Now().UTC()
	subOrder.Status = enums.SubOrderStatusCompleted
	subOrder.CompletedAt = &now

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)
		if err := repo.UpdateSubOrder(ctx, subOrder, from); err != nil {
			return err
		}
		for _, line := range subOrder.Lines {
			if err := catalogRepo.ConsumeStock(ctx, line.ProductID, line.Qty); err != nil {
				return err
			}
		}
		if _, err := s.wallet.Append(ctx, tx, wallet.AppendInput{
			VendorStoreID: subOrder.VendorStoreID,
			SubOrderID:    subOrder.ID,
			Kind:          enums.WalletTransactionKindSettledCredit,
			AmountCents:   subOrder.VendorNetCents,
		}); err != nil {
			return err
		}
		return s.recomputeOrderStatus(ctx, repo, subOrder.OrderID)
	})
	if err != nil {
		return nil, persistError(err, "persist completion")
	}
	return subOrder, nil
}

// Cancel aborts a paid or fulfilling sub-order: the buyer's charge is
// refunded, reserved units return to the shelf, and the vendor's credit is
// reversed, all tied to the same status change.
func (s *service) Cancel(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error) {
	subOrder, err := s.loadForTransition(ctx, subOrderID, enums.SubOrderStatusCancelled)
	if err != nil {
		return nil, err
	}

	if err := s.refundCharge(ctx, subOrder); err != nil {
		return nil, err
	}

	from := subOrder.Status
	now := time.Now().UTC()
	subOrder.Status = enums.SubOrderStatusCancelled
	subOrder.CanceledAt = &now

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)
		if err := repo.UpdateSubOrder(ctx, subOrder, from); err != nil {
			return err
		}
		for _, line := range subOrder.Lines {
			if err := catalogRepo.ReleaseStock(ctx, line.ProductID, line.Qty); err != nil {
				return err
			}
		}
		if _, err := s.wallet.Append(ctx, tx, wallet.AppendInput{
			VendorStoreID: subOrder.VendorStoreID,
			SubOrderID:    subOrder.ID,
			Kind:          enums.WalletTransactionKindReversal,
			AmountCents:   -subOrder.VendorNetCents,
		}); err != nil {
			return err
		}
		return s.recomputeOrderStatus(ctx, repo, subOrder.OrderID)
	})
	if err != nil {
		return nil, persistError(err, "persist cancellation")
	}
	return subOrder, nil
}

// Refund reverses a completed sub-order. The goods already shipped, so the
// returned units go straight back to the available pool.
func (s *service) Refund(ctx context.Context, subOrderID uuid.UUID) (*models.SubOrder, error) {
	subOrder, err := s.loadForTransition(ctx, subOrderID, enums.SubOrderStatusRefunded)
	if err != nil {
		return nil, err
	}

	if err := s.refundCharge(ctx, subOrder); err != nil {
		return nil, err
	}

	from := subOrder.Status
	subOrder.Status = enums.SubOrderStatusRefunded

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)
		if err := repo.UpdateSubOrder(ctx, subOrder, from); err != nil {
			return err
		}
		for _, line := range subOrder.Lines {
			if err := catalogRepo.Restock(ctx, line.ProductID, line.Qty); err != nil {
				return err
			}
		}
		if _, err := s.wallet.Append(ctx, tx, wallet.AppendInput{
			VendorStoreID: subOrder.VendorStoreID,
			SubOrderID:    subOrder.ID,
			Kind:          enums.WalletTransactionKindReversal,
			AmountCents:   -subOrder.VendorNetCents,
		}); err != nil {
			return err
		}
		return s.recomputeOrderStatus(ctx, repo, subOrder.OrderID)
	})
	if err != nil {
		return nil, persistError(err, "persist refund")
	}
	return subOrder, nil
}

func (s *service) loadForTransition(ctx context.Context, subOrderID uuid.UUID, target enums.SubOrderStatus) (*models.SubOrder, error) {
	if subOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sub-order id required")
	}
	subOrder, err := s.repo.FindSubOrderByID(ctx, subOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sub-order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sub-order")
	}
	if !canTransition(subOrder.Status, target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed").
			WithDetails(map[string]any{
				"sub_order_id": subOrder.ID,
				"from":         subOrder.Status,
				"to":           target,
			})
	}
	return subOrder, nil
}

// persistError keeps a lost status-guard race visible as a state conflict
// instead of masking it as a dependency failure.
func persistError(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func (s *service) voidLosingCharge(ctx context.Context, subOrder *models.SubOrder, paymentRef string) {
	lctx := s.logger.WithFields(ctx, map[string]any{
		"sub_order_id": subOrder.ID,
		"payment_ref":  paymentRef,
	})
	if err := s.gateway.Refund(ctx, payments.RefundParams{
		SubOrderID:  subOrder.ID,
		PaymentRef:  paymentRef,
		AmountCents: subOrder.SubtotalCents,
	}); err != nil {
		s.logger.Error(lctx, "refund of duplicate charge failed", err)
		return
	}
	s.logger.Warn(lctx, "duplicate charge refunded")
}

func (s *service) refundCharge(ctx context.Context, subOrder *models.SubOrder) error {
	if subOrder.PaymentRef == nil || *subOrder.PaymentRef == "" {
		return nil
	}
	return s.gateway.Refund(ctx, payments.RefundParams{
		SubOrderID:  subOrder.ID,
		PaymentRef:  *subOrder.PaymentRef,
		AmountCents: subOrder.SubtotalCents,
	})
}

func (s *service) recomputeOrderStatus(ctx context.Context, repo Repository, orderID uuid.UUID) error {
	subOrders, err := repo.ListSubOrdersByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	statuses := make([]enums.SubOrderStatus, 0, len(subOrders))
	for _, subOrder := range subOrders {
		statuses = append(statuses, subOrder.Status)
	}
	return repo.UpdateOrderStatus(ctx, orderID, enums.DeriveOrderStatus(statuses))
}
