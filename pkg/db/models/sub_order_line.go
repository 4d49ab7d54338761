package models

import (
	"time"

	"github.com/google/uuid"
)

// SubOrderLine is the immutable priced snapshot of one cart line. Later
// catalog price edits must not alter a placed order, so the financial truth
// lives here, not on Product.
type SubOrderLine struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubOrderID     uuid.UUID `gorm:"column:sub_order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	LineTotalCents int       `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
