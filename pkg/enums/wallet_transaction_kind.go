package enums

import "fmt"

// WalletTransactionKind classifies entries in the vendor wallet ledger.
type WalletTransactionKind string

const (
	WalletTransactionKindPendingCredit WalletTransactionKind = "pending_credit"
	WalletTransactionKindSettledCredit WalletTransactionKind = "settled_credit"
	WalletTransactionKindReversal      WalletTransactionKind = "reversal"
)

var validWalletTransactionKinds = []WalletTransactionKind{
	WalletTransactionKindPendingCredit,
	WalletTransactionKindSettledCredit,
	WalletTransactionKindReversal,
}

// String implements fmt.Stringer.
func (k WalletTransactionKind) String() string {
	return string(k)
}

// IsValid reports whether the value matches the canonical wallet kind enum.
func (k WalletTransactionKind) IsValid() bool {
	for _, candidate := range validWalletTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseWalletTransactionKind converts raw input into a WalletTransactionKind.
func ParseWalletTransactionKind(value string) (WalletTransactionKind, error) {
	for _, candidate := range validWalletTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction kind %q", value)
}
