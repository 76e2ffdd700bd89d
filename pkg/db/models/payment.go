package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velora-co/velora-backend/pkg/enums"
)

// Payment tracks payment progress for an order. Exactly one per order.
type Payment struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Method            enums.PaymentMethod `gorm:"column:method;type:text;not null;default:'card'"`
	Status            enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	AmountCents       int                 `gorm:"column:amount_cents;not null"`
	Currency          enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`
	ProviderReference *string             `gorm:"column:provider_reference"`
	FailureReason     *string             `gorm:"column:failure_reason"`
	CompletedAt       *time.Time          `gorm:"column:completed_at"`
	RefundedAt        *time.Time          `gorm:"column:refunded_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
