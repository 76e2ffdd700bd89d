package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant is the sellable unit (size/color) carrying authoritative stock.
type ProductVariant struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID         uuid.UUID      `gorm:"column:product_id;type:uuid;not null;index"`
	SKU               string         `gorm:"column:sku;not null;uniqueIndex"`
	Size              string         `gorm:"column:size;not null"`
	Color             string         `gorm:"column:color;not null"`
	PriceCents        int            `gorm:"column:price_cents;not null"`
	StockQuantity     int            `gorm:"column:stock_quantity;not null;default:0;check:chk_variant_stock_nonneg,stock_quantity >= 0"`
	LowStockThreshold int            `gorm:"column:low_stock_threshold;not null;default:5"`
	Position          int            `gorm:"column:position;not null;default:0"`
	InventoryLogs     []InventoryLog `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// IsLowStock reports whether the variant sits at or below its threshold
// while still having units on hand.
func (v ProductVariant) IsLowStock() bool {
	return v.StockQuantity > 0 && v.StockQuantity <= v.LowStockThreshold
}

// IsOutOfStock reports whether the variant has no units on hand.
func (v ProductVariant) IsOutOfStock() bool {
	return v.StockQuantity == 0
}
