package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellaro-dev/sellaro-backend/pkg/enums"
)

// Order is the parent record for one successful checkout attempt. The unique
// idempotency key makes a retried checkout resolve to this row instead of
// creating a second one.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID        uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	IdempotencyKey string            `gorm:"column:idempotency_key;not null;uniqueIndex"`
	Status         enums.OrderStatus `gorm:"column:status;not null;default:'awaiting_payment'"`
	Currency       enums.Currency    `gorm:"column:currency;not null;default:'USD'"`
	TotalCents     int               `gorm:"column:total_cents;not null"`
	SubOrders      []SubOrder        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
