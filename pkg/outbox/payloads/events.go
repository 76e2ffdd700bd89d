package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/velora-co/velora-backend/pkg/enums"
)

// OrderPlacedEvent signals a new order awaiting payment.
type OrderPlacedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	TotalCents  int       `json:"total_cents"`
	Currency    string    `json:"currency"`
	ItemCount   int       `json:"item_count"`
}

// PaymentConfirmedEvent is emitted when payment settles and stock is committed.
type PaymentConfirmedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	PaymentID   uuid.UUID `json:"payment_id"`
	AmountCents int       `json:"amount_cents"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// OrderCancelledEvent is emitted whenever a pending order is cancelled.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderRefundedEvent is emitted when a paid order is refunded and stock restored.
type OrderRefundedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	AmountCents int       `json:"amount_cents"`
	RefundedAt  time.Time `json:"refunded_at"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderShippedEvent carries the carrier handoff details.
type OrderShippedEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	OrderNumber       string    `json:"order_number"`
	UserID            uuid.UUID `json:"user_id"`
	Email             string    `json:"email"`
	TrackingCode      string    `json:"tracking_code"`
	Carrier           string    `json:"carrier"`
	CarrierTrackingID string    `json:"carrier_tracking_id,omitempty"`
	ShippedAt         time.Time `json:"shipped_at"`
}

// OrderDeliveredEvent is emitted when the carrier confirms delivery.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// StockAdjustedEvent records a manual stock correction by staff.
type StockAdjustedEvent struct {
	VariantID      uuid.UUID              `json:"variant_id"`
	SKU            string                 `json:"sku"`
	Type           enums.InventoryLogType `json:"type"`
	QuantityChange int                    `json:"quantity_change"`
	StockAfter     int                    `json:"stock_after"`
	Reason         string                 `json:"reason,omitempty"`
}

// LowStockDetectedEvent flags a variant that crossed its threshold.
type LowStockDetectedEvent struct {
	VariantID         uuid.UUID `json:"variant_id"`
	SKU               string    `json:"sku"`
	ProductTitle      string    `json:"product_title"`
	StockQuantity     int       `json:"stock_quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
}

// UserRegisteredEvent signals a new customer account.
type UserRegisteredEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
}
