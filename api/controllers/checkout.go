package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sellaro-dev/sellaro-backend/api/middleware"
	"github.com/sellaro-dev/sellaro-backend/api/responses"
	"github.com/sellaro-dev/sellaro-backend/api/validators"
	"github.com/sellaro-dev/sellaro-backend/internal/cart"
	checkoutsvc "github.com/sellaro-dev/sellaro-backend/internal/checkout"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
)

type checkoutRequest struct {
	IdempotencyKey string             `json:"idempotency_key" validate:"required,min=8,max=128"`
	Lines          []checkoutLineItem `json:"lines" validate:"required,min=1,dive"`
}

type checkoutLineItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

// Checkout turns the submitted cart into an order, holding stock for every
// line or failing the attempt as a whole.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, _ := middleware.BuyerID(r.Context())

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]cart.Line, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			lines = append(lines, cart.Line{ProductID: line.ProductID, Qty: line.Qty})
		}

		order, err := svc.Checkout(r.Context(), checkoutsvc.CheckoutInput{
			BuyerID:        buyerID,
			IdempotencyKey: payload.IdempotencyKey,
			Lines:          lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}
