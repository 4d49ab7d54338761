package controllers

import (
	"net/http"
	"strconv"

	"github.com/sellaro-dev/sellaro-backend/api/responses"
	adminsvc "github.com/sellaro-dev/sellaro-backend/internal/admin"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
)

// AdminListOrders returns recent orders across all buyers.
func AdminListOrders(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryLimit(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListRecentOrders(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(orders))
		for i := range orders {
			out = append(out, newOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminVendorWalletLog returns one vendor's raw wallet log for oversight.
func AdminVendorWalletLog(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := pathUUID(r, "vendorStoreID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := queryLimit(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		since, err := queryTime(r, "since")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := svc.ListVendorWalletLog(r.Context(), vendorID, since, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletTransactionResponses(txns))
	}
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a non-negative integer")
	}
	return limit, nil
}
