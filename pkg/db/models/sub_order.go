package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellaro-dev/sellaro-backend/pkg/enums"
)

// SubOrder is the single-vendor slice of a parent order. Money fields are
// fixed at checkout: vendor_net_cents + commission_cents = subtotal_cents.
type SubOrder struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	VendorStoreID   uuid.UUID            `gorm:"column:vendor_store_id;type:uuid;not null;index"`
	Status          enums.SubOrderStatus `gorm:"column:status;not null;default:'created'"`
	SubtotalCents   int                  `gorm:"column:subtotal_cents;not null"`
	CommissionCents int                  `gorm:"column:commission_cents;not null"`
	VendorNetCents  int                  `gorm:"column:vendor_net_cents;not null"`
	PaymentRef      *string              `gorm:"column:payment_ref"`
	Lines           []SubOrderLine       `gorm:"foreignKey:SubOrderID;constraint:OnDelete:CASCADE"`
	PaidAt          *time.Time           `gorm:"column:paid_at"`
	CompletedAt     *time.Time           `gorm:"column:completed_at"`
	CanceledAt      *time.Time           `gorm:"column:canceled_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
