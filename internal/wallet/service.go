package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellaro-dev/sellaro-backend/pkg/db/models"
	"github.com/sellaro-dev/sellaro-backend/pkg/enums"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
)

// AppendInput captures the immutable data a wallet transaction requires.
type AppendInput struct {
	VendorStoreID uuid.UUID
	SubOrderID    uuid.UUID
	Kind          enums.WalletTransactionKind
	AmountCents   int
}

// Balance is the folded view of a vendor's ledger. Pending money is credited
// but not yet settled; available money survived settlement without reversal.
type Balance struct {
	PendingCents   int
	AvailableCents int
}

// Service defines operations over the append-only vendor wallet.
type Service interface {
	Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.WalletTransaction, error)
	Balances(ctx context.Context, vendorStoreID uuid.UUID) (Balance, error)
	Statement(ctx context.Context, vendorStoreID uuid.UUID, from, to *time.Time) ([]models.WalletTransaction, error)
	ListBySubOrder(ctx context.Context, subOrderID uuid.UUID) ([]models.WalletTransaction, error)
}

type service struct {
	repo Repository
}

// NewService wires a wallet service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo}, nil
}

// Append writes one ledger row. Credits must be positive and reversals
// negative so the raw log sums to the vendor's lifetime position. When tx is
// non-nil the row joins the caller's transaction.
func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.WalletTransaction, error) {
	if input.VendorStoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor store id required")
	}
	if input.SubOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sub-order id required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid wallet transaction kind %q", input.Kind))
	}
	switch input.Kind {
	case enums.WalletTransactionKindReversal:
		if input.AmountCents >= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reversal amount must be negative")
		}
	default:
		if input.AmountCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
		}
	}

	repo := s.repo.WithTx(tx)
	exists, err := repo.SubOrderExists(ctx, input.SubOrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify sub-order")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sub-order not found").
			WithDetails(map[string]any{"sub_order_id": input.SubOrderID})
	}

	txn := &models.WalletTransaction{
		ID:            uuid.New(),
		VendorStoreID: input.VendorStoreID,
		SubOrderID:    input.SubOrderID,
		Kind:          input.Kind,
		AmountCents:   input.AmountCents,
	}
	if err := repo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append wallet transaction")
	}
	return txn, nil
}

// Balances folds the vendor's full log into pending and available totals.
// A sub-order's credit counts as pending until a settled_credit row appears,
// and a reversal row voids the sub-order's contribution entirely.
func (s *service) Balances(ctx context.Context, vendorStoreID uuid.UUID) (Balance, error) {
	if vendorStoreID == uuid.Nil {
		return Balance{}, pkgerrors.New(pkgerrors.CodeValidation, "vendor store id required")
	}

	txns, err := s.repo.ListByVendor(ctx, vendorStoreID, nil, nil)
	if err != nil {
		return Balance{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}

	type subOrderFold struct {
		pendingCents int
		settledCents int
		hasPending   bool
		hasSettled   bool
		hasReversal  bool
	}
	folds := make(map[uuid.UUID]*subOrderFold)
	for _, txn := range txns {
		fold, ok := folds[txn.SubOrderID]
		if !ok {
			fold = &subOrderFold{}
			folds[txn.SubOrderID] = fold
		}
		switch txn.Kind {
		case enums.WalletTransactionKindPendingCredit:
			fold.hasPending = true
			fold.pendingCents += txn.AmountCents
		case enums.WalletTransactionKindSettledCredit:
			fold.hasSettled = true
			fold.settledCents += txn.AmountCents
		case enums.WalletTransactionKindReversal:
			fold.hasReversal = true
		}
	}

	var balance Balance
	for _, fold := range folds {
		if fold.hasReversal {
			continue
		}
		if fold.hasSettled {
			balance.AvailableCents += fold.settledCents
			continue
		}
		if fold.hasPending {
			balance.PendingCents += fold.pendingCents
		}
	}
	return balance, nil
}

func (s *service) Statement(ctx context.Context, vendorStoreID uuid.UUID, from, to *time.Time) ([]models.WalletTransaction, error) {
	if vendorStoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor store id required")
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "statement range end precedes start")
	}
	txns, err := s.repo.ListByVendor(ctx, vendorStoreID, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	return txns, nil
}

func (s *service) ListBySubOrder(ctx context.Context, subOrderID uuid.UUID) ([]models.WalletTransaction, error) {
	if subOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sub-order id required")
	}
	txns, err := s.repo.ListBySubOrder(ctx, subOrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	return txns, nil
}
