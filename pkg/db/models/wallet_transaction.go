package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellaro-dev/sellaro-backend/pkg/enums"
)

// WalletTransaction records an immutable money lifecycle event for a vendor.
// Corrections are new rows, never edits; balances are folded from the log.
type WalletTransaction struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorStoreID uuid.UUID                   `gorm:"column:vendor_store_id;type:uuid;not null;index"`
	SubOrderID    uuid.UUID                   `gorm:"column:sub_order_id;type:uuid;not null;index"`
	Kind          enums.WalletTransactionKind `gorm:"column:kind;not null"`
	AmountCents   int                         `gorm:"column:amount_cents;not null"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime;index"`
}
