package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velora-co/velora-backend/pkg/enums"
)

// InventoryLog is the append-only audit record of every stock movement.
// Rows are never updated or deleted; QuantityChange is signed and
// StockAfter records the resulting quantity at write time.
type InventoryLog struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VariantID      uuid.UUID              `gorm:"column:variant_id;type:uuid;not null;index"`
	Type           enums.InventoryLogType `gorm:"column:type;type:text;not null"`
	QuantityChange int                    `gorm:"column:quantity_change;not null"`
	StockAfter     int                    `gorm:"column:stock_after;not null"`
	Reason         *string                `gorm:"column:reason"`
	ActorID        *uuid.UUID             `gorm:"column:actor_id;type:uuid"`
	OrderID        *uuid.UUID             `gorm:"column:order_id;type:uuid;index"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}
