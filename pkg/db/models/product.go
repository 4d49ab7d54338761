package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents the canonical vendor listing. Pricing on a placed order
// never reads back through this record; checkout snapshots the price into
// SubOrderLine rows instead.
type Product struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorStoreID       uuid.UUID      `gorm:"column:vendor_store_id;type:uuid;not null;index"`
	SKU                 string         `gorm:"column:sku;not null"`
	Title               string         `gorm:"column:title;not null"`
	PriceCents          int            `gorm:"column:price_cents;not null"`
	CompareAtPriceCents *int           `gorm:"column:compare_at_price_cents"`
	ImageURL            *string        `gorm:"column:image_url"`
	IsActive            bool           `gorm:"column:is_active;not null;default:true"`
	Inventory           *InventoryItem `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
