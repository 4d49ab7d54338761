package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/sellaro-dev/sellaro-backend/api/responses"
	pkgerrors "github.com/sellaro-dev/sellaro-backend/pkg/errors"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
)

// Identity headers are set by the upstream gateway after it has authenticated
// the caller; this service trusts them and never sees credentials.
const (
	buyerIDHeader  = "X-Buyer-Id"
	vendorIDHeader = "X-Vendor-Store-Id"
	adminIDHeader  = "X-Admin-Id"
)

type buyerIDKey struct{}
type vendorIDKey struct{}
type adminIDKey struct{}

// Identity lifts the gateway identity headers into the request context and
// stamps them onto the request logger.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if buyerID, err := uuid.Parse(r.Header.Get(buyerIDHeader)); err == nil {
				ctx = context.WithValue(ctx, buyerIDKey{}, buyerID)
				if logg != nil {
					ctx = logg.WithBuyerID(ctx, buyerID.String())
				}
			}
			if vendorID, err := uuid.Parse(r.Header.Get(vendorIDHeader)); err == nil {
				ctx = context.WithValue(ctx, vendorIDKey{}, vendorID)
				if logg != nil {
					ctx = logg.WithVendorID(ctx, vendorID.String())
				}
			}
			if adminID, err := uuid.Parse(r.Header.Get(adminIDHeader)); err == nil {
				ctx = context.WithValue(ctx, adminIDKey{}, adminID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BuyerID returns the authenticated buyer, if any.
func BuyerID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(buyerIDKey{}).(uuid.UUID)
	return id, ok
}

// VendorStoreID returns the authenticated vendor store, if any.
func VendorStoreID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(vendorIDKey{}).(uuid.UUID)
	return id, ok
}

// AdminID returns the authenticated admin, if any.
func AdminID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(adminIDKey{}).(uuid.UUID)
	return id, ok
}

// RequireBuyer rejects requests with no buyer identity.
func RequireBuyer(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireIdentity(logg, func(ctx context.Context) bool {
		_, ok := BuyerID(ctx)
		return ok
	}, "buyer identity required")
}

// RequireVendor rejects requests with no vendor identity.
func RequireVendor(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireIdentity(logg, func(ctx context.Context) bool {
		_, ok := VendorStoreID(ctx)
		return ok
	}, "vendor identity required")
}

// RequireAdmin rejects requests with no admin identity.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireIdentity(logg, func(ctx context.Context) bool {
		_, ok := AdminID(ctx)
		return ok
	}, "admin identity required")
}

func requireIdentity(logg *logger.Logger, check func(context.Context) bool, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !check(r.Context()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, message))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
