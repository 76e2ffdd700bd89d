package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem captures the immutable snapshot of each line within an order.
// Unit price is copied from the variant at placement time.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VariantID      uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	ProductTitle   string    `gorm:"column:product_title;not null"`
	VariantLabel   string    `gorm:"column:variant_label;not null"`
	SKU            string    `gorm:"column:sku;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	TotalCents     int       `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
