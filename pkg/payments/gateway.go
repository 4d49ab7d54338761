package payments

import (
	"context"

	"github.com/google/uuid"
)

// ChargeParams carries the inputs for charging a sub-order.
type ChargeParams struct {
	SubOrderID  uuid.UUID
	AmountCents int
	// SourceID is the tokenized payment instrument supplied by the buyer's
	// client; the engine never sees raw card data.
	SourceID string
}

// ChargeResult reports the gateway-side reference for a successful charge.
type ChargeResult struct {
	PaymentRef string
}

// RefundParams carries the inputs for refunding a previously charged sub-order.
type RefundParams struct {
	SubOrderID  uuid.UUID
	PaymentRef  string
	AmountCents int
}

// Gateway is the opaque charge/refund capability the order lifecycle needs.
// Retry and backoff policy live behind this interface, not in the engine.
type Gateway interface {
	Charge(ctx context.Context, params ChargeParams) (*ChargeResult, error)
	Refund(ctx context.Context, params RefundParams) error
}
