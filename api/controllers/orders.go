package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sellaro-dev/sellaro-backend/api/middleware"
	"github.com/sellaro-dev/sellaro-backend/api/responses"
	"github.com/sellaro-dev/sellaro-backend/api/validators"
	ordersvc "github.com/sellaro-dev/sellaro-backend/internal/orders"
	"github.com/sellaro-dev/sellaro-backend/pkg/db/models"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
)

type orderResponse struct {
	OrderID    uuid.UUID          `json:"order_id"`
	BuyerID    uuid.UUID          `json:"buyer_id"`
	Status     string             `json:"status"`
	Currency   string             `json:"currency"`
	TotalCents int                `json:"total_cents"`
	SubOrders  []subOrderResponse `json:"sub_orders"`
	CreatedAt  time.Time          `json:"created_at"`
}

type subOrderResponse struct {
	SubOrderID      uuid.UUID      `json:"sub_order_id"`
	VendorStoreID   uuid.UUID      `json:"vendor_store_id"`
	Status          string         `json:"status"`
	SubtotalCents   int            `json:"subtotal_cents"`
	CommissionCents int            `json:"commission_cents"`
	VendorNetCents  int            `json:"vendor_net_cents"`
	Lines           []lineResponse `json:"lines"`
	PaidAt          *time.Time     `json:"paid_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	CanceledAt      *time.Time     `json:"canceled_at,omitempty"`
}

type lineResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	LineTotalCents int       `json:"line_total_cents"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		OrderID:    order.ID,
		BuyerID:    order.BuyerID,
		Status:     order.Status.String(),
		Currency:   order.Currency.String(),
		TotalCents: order.TotalCents,
		CreatedAt:  order.CreatedAt,
	}
	for i := range order.SubOrders {
		resp.SubOrders = append(resp.SubOrders, newSubOrderResponse(&order.SubOrders[i]))
	}
	return resp
}

func newSubOrderResponse(subOrder *models.SubOrder) subOrderResponse {
	resp := subOrderResponse{
		SubOrderID:      subOrder.ID,
		VendorStoreID:   subOrder.VendorStoreID,
		Status:          subOrder.Status.String(),
		SubtotalCents:   subOrder.SubtotalCents,
		CommissionCents: subOrder.CommissionCents,
		VendorNetCents:  subOrder.VendorNetCents,
		PaidAt:          subOrder.PaidAt,
		CompletedAt:     subOrder.CompletedAt,
		CanceledAt:      subOrder.CanceledAt,
	}
	for _, line := range subOrder.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ProductID:      line.ProductID,
			Name:           line.Name,
			UnitPriceCents: line.UnitPriceCents,
			Qty:            line.Qty,
			LineTotalCents: line.LineTotalCents,
		})
	}
	return resp
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name)
	}
	return id, nil
}

// GetOrder returns one of the caller's orders with its vendor sub-orders.
func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		buyerID, _ := middleware.BuyerID(r.Context())
		if _, isAdmin := middleware.AdminID(r.Context()); !isAdmin && order.BuyerID != buyerID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer"))
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// ListMyOrders returns the calling buyer's orders, newest first.
func ListMyOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, _ := middleware.BuyerID(r.Context())

		orders, err := svc.ListBuyerOrders(r.Context(), buyerID)
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

type paySubOrderRequest struct {
	SourceID string `json:"source_id" validate:"required"`
}

// PaySubOrder charges the buyer for one vendor sub-order.
func PaySubOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subOrderID, err := pathUUID(r, "subOrderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload paySubOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subOrder, err := svc.GetSubOrder(r.Context(), subOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		parent, err := svc.GetOrder(r.Context(), subOrder.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		buyerID, _ := middleware.BuyerID(r.Context())
		if parent.BuyerID != buyerID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer"))
			return
		}

		paid, err := svc.MarkPaid(r.Context(), ordersvc.PayInput{
			SubOrderID: subOrderID,
			SourceID:   payload.SourceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSubOrderResponse(paid))
	}
}

// ListVendorSubOrders returns the calling vendor's sub-orders, newest first.
func ListVendorSubOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, _ := middleware.VendorStoreID(r.Context())

		subOrders, err := svc.ListVendorSubOrders(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]subOrderResponse, 0, len(subOrders))
		for i := range subOrders {
			out = append(out, newSubOrderResponse(&subOrders[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// subOrderTransition wraps the vendor lifecycle endpoints that share the
// load-check-transition shape.
func subOrderTransition(svc ordersvc.Service, logg *logger.Logger, transition func(*http.Request, uuid.UUID) (*models.SubOrder, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subOrderID, err := pathUUID(r, "subOrderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subOrder, err := svc.GetSubOrder(r.Context(), subOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, isAdmin := middleware.AdminID(r.Context()); !isAdmin {
			vendorID, _ := middleware.VendorStoreID(r.Context())
			if subOrder.VendorStoreID != vendorID {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "sub-order belongs to another vendor"))
				return
			}
		}

		updated, err := transition(r, subOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSubOrderResponse(updated))
	}
}

// StartFulfillment moves a paid sub-order into fulfillment.
func StartFulfillment(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return subOrderTransition(svc, logg, func(r *http.Request, id uuid.UUID) (*models.SubOrder, error) {
		return svc.StartFulfillment(r.Context(), id)
	})
}

// CompleteSubOrder settles a fulfilling sub-order.
func CompleteSubOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return subOrderTransition(svc, logg, func(r *http.Request, id uuid.UUID) (*models.SubOrder, error) {
		return svc.Complete(r.Context(), id)
	})
}

// CancelSubOrder aborts a paid or fulfilling sub-order.
func CancelSubOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return subOrderTransition(svc, logg, func(r *http.Request, id uuid.UUID) (*models.SubOrder, error) {
		return svc.Cancel(r.Context(), id)
	})
}

// RefundSubOrder reverses a completed sub-order.
func RefundSubOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return subOrderTransition(svc, logg, func(r *http.Request, id uuid.UUID) (*models.SubOrder, error) {
		return svc.Refund(r.Context(), id)
	})
}
