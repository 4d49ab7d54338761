package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sellaro-dev/sellaro-backend/api/middleware"
	"github.com/sellaro-dev/sellaro-backend/api/responses"
	walletsvc "github.com/sellaro-dev/sellaro-backend/internal/wallet"
	"github.com/sellaro-dev/sellaro-backend/pkg/db/models"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
)

type walletBalanceResponse struct {
	VendorStoreID  uuid.UUID `json:"vendor_store_id"`
	PendingCents   int       `json:"pending_cents"`
	AvailableCents int       `json:"available_cents"`
}

type walletTransactionResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	SubOrderID    uuid.UUID `json:"sub_order_id"`
	Kind          string    `json:"kind"`
	AmountCents   int       `json:"amount_cents"`
	CreatedAt     time.Time `json:"created_at"`
}

func newWalletTransactionResponses(txns []models.WalletTransaction) []walletTransactionResponse {
	out := make([]walletTransactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, walletTransactionResponse{
			TransactionID: txn.ID,
			SubOrderID:    txn.SubOrderID,
			Kind:          txn.Kind.String(),
			AmountCents:   txn.AmountCents,
			CreatedAt:     txn.CreatedAt,
		})
	}
	return out
}

// WalletBalances returns the calling vendor's folded pending/available totals.
func WalletBalances(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, _ := middleware.VendorStoreID(r.Context())

		balance, err := svc.Balances(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, walletBalanceResponse{
			VendorStoreID:  vendorID,
			PendingCents:   balance.PendingCents,
			AvailableCents: balance.AvailableCents,
		})
	}
}

// WalletStatement returns the vendor's raw ledger rows, optionally bounded by
// RFC 3339 from/to query parameters.
func WalletStatement(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, _ := middleware.VendorStoreID(r.Context())

		from, err := queryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := queryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := svc.Statement(r.Context(), vendorID, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newWalletTransactionResponses(txns))
	}
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, name+" must be RFC 3339")
	}
	return &parsed, nil
}
