package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	"github.com/velora-co/velora-backend/pkg/types"
)

// OrderItemDTO is one immutable line of an order as shown to the customer.
type OrderItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	VariantID      uuid.UUID `json:"variant_id"`
	ProductTitle   string    `json:"product_title"`
	VariantLabel   string    `json:"variant_label"`
	SKU            string    `json:"sku"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int       `json:"total_cents"`
}

// PaymentDTO is the payment state attached to an order.
type PaymentDTO struct {
	ID                uuid.UUID           `json:"id"`
	Method            enums.PaymentMethod `json:"method"`
	Status            enums.PaymentStatus `json:"status"`
	AmountCents       int                 `json:"amount_cents"`
	Currency          enums.Currency      `json:"currency"`
	ProviderReference *string             `json:"provider_reference,omitempty"`
	FailureReason     *string             `json:"failure_reason,omitempty"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
	RefundedAt        *time.Time          `json:"refunded_at,omitempty"`
}

// OrderDTO is the full order detail.
type OrderDTO struct {
	ID                uuid.UUID            `json:"id"`
	OrderNumber       string               `json:"order_number"`
	TrackingCode      string               `json:"tracking_code"`
	UserID            uuid.UUID            `json:"user_id"`
	Status            enums.OrderStatus    `json:"status"`
	Currency          enums.Currency       `json:"currency"`
	SubtotalCents     int                  `json:"subtotal_cents"`
	ShippingCents     int                  `json:"shipping_cents"`
	TaxCents          int                  `json:"tax_cents"`
	TotalCents        int                  `json:"total_cents"`
	ShippingMethod    enums.ShippingMethod `json:"shipping_method"`
	ShippingAddress   types.Address        `json:"shipping_address"`
	BillingAddress    *types.Address       `json:"billing_address,omitempty"`
	CustomerNotes     *string              `json:"customer_notes,omitempty"`
	Carrier           *string              `json:"carrier,omitempty"`
	CarrierTrackingID *string              `json:"carrier_tracking_id,omitempty"`
	ShippedAt         *time.Time           `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time           `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time           `json:"cancelled_at,omitempty"`
	RefundedAt        *time.Time           `json:"refunded_at,omitempty"`
	Items             []OrderItemDTO       `json:"items"`
	Payment           *PaymentDTO          `json:"payment,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
}

// OrderSummary is one row of an order list.
type OrderSummary struct {
	ID            uuid.UUID            `json:"id"`
	OrderNumber   string               `json:"order_number"`
	Status        enums.OrderStatus    `json:"status"`
	Currency      enums.Currency       `json:"currency"`
	TotalCents    int                  `json:"total_cents"`
	ItemCount     int                  `json:"item_count"`
	PaymentStatus *enums.PaymentStatus `json:"payment_status,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// OrderList is one page of order summaries.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// TrackingItem is one order line in the public tracking view, reduced to
// what the package contains.
type TrackingItem struct {
	ProductTitle string `json:"product_title"`
	VariantLabel string `json:"variant_label"`
	Qty          int    `json:"qty"`
}

// TrackingView is the unauthenticated tracking lookup response. It carries
// shipment progress and the package contents only, never customer or money
// data.
type TrackingView struct {
	OrderNumber string            `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	Carrier     *string           `json:"carrier,omitempty"`
	ShippedAt   *time.Time        `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time        `json:"delivered_at,omitempty"`
	Items       []TrackingItem    `json:"items"`
	PlacedAt    time.Time         `json:"placed_at"`
}

// FromModel maps the order aggregate into its DTO.
func FromModel(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		TrackingCode:      order.TrackingCode,
		UserID:            order.UserID,
		Status:            order.Status,
		Currency:          order.Currency,
		SubtotalCents:     order.SubtotalCents,
		ShippingCents:     order.ShippingCents,
		TaxCents:          order.TaxCents,
		TotalCents:        order.TotalCents,
		ShippingMethod:    order.ShippingMethod,
		ShippingAddress:   order.ShippingAddress,
		BillingAddress:    order.BillingAddress,
		CustomerNotes:     order.CustomerNotes,
		Carrier:           order.Carrier,
		CarrierTrackingID: order.CarrierTrackingID,
		ShippedAt:         order.ShippedAt,
		DeliveredAt:       order.DeliveredAt,
		CancelledAt:       order.CancelledAt,
		RefundedAt:        order.RefundedAt,
		Items:             make([]OrderItemDTO, 0, len(order.Items)),
		CreatedAt:         order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			ProductTitle:   item.ProductTitle,
			VariantLabel:   item.VariantLabel,
			SKU:            item.SKU,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			TotalCents:     item.TotalCents,
		})
	}
	if order.Payment != nil {
		dto.Payment = &PaymentDTO{
			ID:                order.Payment.ID,
			Method:            order.Payment.Method,
			Status:            order.Payment.Status,
			AmountCents:       order.Payment.AmountCents,
			Currency:          order.Payment.Currency,
			ProviderReference: order.Payment.ProviderReference,
			FailureReason:     order.Payment.FailureReason,
			CompletedAt:       order.Payment.CompletedAt,
			RefundedAt:        order.Payment.RefundedAt,
		}
	}
	return dto
}

// TrackingFromModel maps an order into its public tracking view.
func TrackingFromModel(order *models.Order) *TrackingView {
	view := &TrackingView{
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Carrier:     order.Carrier,
		ShippedAt:   order.ShippedAt,
		DeliveredAt: order.DeliveredAt,
		Items:       make([]TrackingItem, 0, len(order.Items)),
		PlacedAt:    order.CreatedAt,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, TrackingItem{
			ProductTitle: item.ProductTitle,
			VariantLabel: item.VariantLabel,
			Qty:          item.Qty,
		})
	}
	return view
}
