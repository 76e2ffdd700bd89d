package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velora-co/velora-backend/pkg/enums"
	"github.com/velora-co/velora-backend/pkg/types"
)

// Order represents a customer order. Addresses are denormalized JSONB
// snapshots taken at placement so later profile edits never rewrite history.
type Order struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber       string               `gorm:"column:order_number;not null;uniqueIndex"`
	TrackingCode      string               `gorm:"column:tracking_code;not null;uniqueIndex"`
	UserID            uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Status            enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	Currency          enums.Currency       `gorm:"column:currency;type:text;not null;default:'USD'"`
	SubtotalCents     int                  `gorm:"column:subtotal_cents;not null"`
	ShippingCents     int                  `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents          int                  `gorm:"column:tax_cents;not null;default:0"`
	TotalCents        int                  `gorm:"column:total_cents;not null"`
	ShippingMethod    enums.ShippingMethod `gorm:"column:shipping_method;type:text;not null;default:'standard'"`
	ShippingAddress   types.Address        `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	BillingAddress    *types.Address       `gorm:"column:billing_address;type:jsonb;serializer:json"`
	CustomerNotes     *string              `gorm:"column:customer_notes"`
	InternalNotes     *string              `gorm:"column:internal_notes"`
	Carrier           *string              `gorm:"column:carrier"`
	CarrierTrackingID *string              `gorm:"column:carrier_tracking_id"`
	ShippedAt         *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt       *time.Time           `gorm:"column:delivered_at"`
	CancelledAt       *time.Time           `gorm:"column:cancelled_at"`
	RefundedAt        *time.Time           `gorm:"column:refunded_at"`
	Items             []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment           *Payment             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
