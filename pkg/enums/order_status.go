package enums

import "fmt"

// OrderStatus is the derived status of a parent order. It is never set
// directly; it is recomputed from the statuses of the order's sub-orders.
type OrderStatus string

const (
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	OrderStatusPartial         OrderStatus = "partial"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusAwaitingPayment,
	OrderStatusPartial,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// DeriveOrderStatus folds sub-order statuses into the parent status.
// Cancelled only when every sub-order is cancelled; completed only when every
// sub-order finished as completed or refunded; awaiting_payment while nothing
// has progressed; partial for any other mix.
func DeriveOrderStatus(subStatuses []SubOrderStatus) OrderStatus {
	if len(subStatuses) == 0 {
		return OrderStatusAwaitingPayment
	}

	allCancelled := true
	allFinished := true
	allAwaiting := true
	for _, status := range subStatuses {
		if status != SubOrderStatusCancelled {
			allCancelled = false
		}
		if status != SubOrderStatusCompleted && status != SubOrderStatusRefunded {
			allFinished = false
		}
		if status != SubOrderStatusAwaitingPayment && status != SubOrderStatusCreated {
			allAwaiting = false
		}
	}

	switch {
	case allCancelled:
		return OrderStatusCancelled
	case allFinished:
		return OrderStatusCompleted
	case allAwaiting:
		return OrderStatusAwaitingPayment
	default:
		return OrderStatusPartial
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
