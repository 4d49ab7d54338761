package enums

import "fmt"

// SubOrderStatus tracks the lifecycle of a single vendor's portion of an order.
type SubOrderStatus string

const (
	SubOrderStatusCreated         SubOrderStatus = "created"
	SubOrderStatusAwaitingPayment SubOrderStatus = "awaiting_payment"
	SubOrderStatusPaid            SubOrderStatus = "paid"
	SubOrderStatusFulfilling      SubOrderStatus = "fulfilling"
	SubOrderStatusCompleted       SubOrderStatus = "completed"
	SubOrderStatusCancelled       SubOrderStatus = "cancelled"
	SubOrderStatusRefunded        SubOrderStatus = "refunded"
)

var validSubOrderStatuses = []SubOrderStatus{
	SubOrderStatusCreated,
	SubOrderStatusAwaitingPayment,
	SubOrderStatusPaid,
	SubOrderStatusFulfilling,
	SubOrderStatusCompleted,
	SubOrderStatusCancelled,
	SubOrderStatusRefunded,
}

// String implements fmt.Stringer.
func (s SubOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubOrderStatus.
func (s SubOrderStatus) IsValid() bool {
	for _, candidate := range validSubOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from the status.
func (s SubOrderStatus) IsTerminal() bool {
	switch s {
	case SubOrderStatusCancelled, SubOrderStatusRefunded:
		return true
	default:
		return false
	}
}

// ParseSubOrderStatus converts raw input into a SubOrderStatus.
func ParseSubOrderStatus(value string) (SubOrderStatus, error) {
	for _, candidate := range validSubOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sub-order status %q", value)
}
