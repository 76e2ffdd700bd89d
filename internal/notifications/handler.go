package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/velora-co/velora-backend/pkg/config"
	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/logger"
	"github.com/velora-co/velora-backend/pkg/mailer"
	"github.com/velora-co/velora-backend/pkg/outbox/payloads"
)

// Handler turns decoded domain events into transactional email. Events with
// no customer- or staff-facing mail (e.g. manual stock adjustments) are
// acknowledged without sending anything.
type Handler struct {
	sender mailer.Sender
	cfg    config.NotificationsConfig
	logg   *logger.Logger
}

// NewHandler builds the email handler. The logger may be nil.
func NewHandler(sender mailer.Sender, cfg config.NotificationsConfig, logg *logger.Logger) (*Handler, error) {
	if sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	return &Handler{sender: sender, cfg: cfg, logg: logg}, nil
}

// Handle composes and sends the email for one decoded event. The decoded
// value comes from the decoder registry, so its concrete type follows the
// event type on the row.
func (h *Handler) Handle(ctx context.Context, event models.OutboxEvent, decoded interface{}) error {
	var msg *mailer.Message

	switch payload := decoded.(type) {
	case payloads.UserRegisteredEvent:
		msg = h.welcomeEmail(payload)
	case payloads.OrderPlacedEvent:
		msg = h.orderPlacedEmail(payload)
	case payloads.PaymentConfirmedEvent:
		msg = h.paymentConfirmedEmail(payload)
	case payloads.OrderCancelledEvent:
		msg = h.orderCancelledEmail(payload)
	case payloads.OrderRefundedEvent:
		msg = h.orderRefundedEmail(payload)
	case payloads.OrderShippedEvent:
		msg = h.orderShippedEmail(payload)
	case payloads.OrderDeliveredEvent:
		msg = h.orderDeliveredEmail(payload)
	case payloads.LowStockDetectedEvent:
		msg = h.lowStockEmail(payload)
	case payloads.StockAdjustedEvent:
		// Audit-only event; the inventory log already records it.
		return nil
	default:
		h.info(ctx, fmt.Sprintf("no email template for %s", event.EventType))
		return nil
	}

	if msg == nil {
		return nil
	}
	return h.sender.Send(ctx, *msg)
}

func (h *Handler) welcomeEmail(payload payloads.UserRegisteredEvent) *mailer.Message {
	name := strings.TrimSpace(payload.FirstName)
	greeting := "Welcome to Velora"
	if name != "" {
		greeting = fmt.Sprintf("Welcome to Velora, %s", name)
	}
	return &mailer.Message{
		ToEmail: payload.Email,
		ToName:  name,
		Subject: greeting,
		HTMLVer: fmt.Sprintf(
			"<p>%s!</p><p>Your account is ready. Browse the latest drops at <a href=%q>%s</a>.</p>",
			greeting, h.cfg.StorefrontURL, h.cfg.StorefrontURL,
		),
	}
}

func (h *Handler) orderPlacedEmail(payload payloads.OrderPlacedEvent) *mailer.Message {
	return &mailer.Message{
		ToEmail: payload.Email,
		Subject: fmt.Sprintf("Order %s received", payload.OrderNumber),
		HTMLVer: fmt.Sprintf(
			"<p>Thanks for your order!</p><p>We received order <strong>%s</strong> (%d %s, %s %s). You will get a confirmation as soon as your payment settles.</p><p><a href=%q>View your order</a></p>",
			payload.OrderNumber, payload.ItemCount, pluralize("item", payload.ItemCount),
			formatCents(payload.TotalCents), payload.Currency,
			h.orderLink(payload.OrderID.String()),
		),
	}
}

func (h *Handler) paymentConfirmedEmail(payload payloads.PaymentConfirmedEvent) *mailer.Message {
	return &mailer.Message{
		ToEmail: payload.Email,
		Subject: fmt.Sprintf("Payment confirmed for order %s", payload.OrderNumber),
		HTMLVer: fmt.Sprintf(
			"<p>Your payment of <strong>%s</strong> for order <strong>%s</strong> went through. We are now preparing your items.</p><p><a href=%q>View your order</a></p>",
			formatCents(payload.AmountCents), payload.OrderNumber,
			h.orderLink(payload.OrderID.String()),
		),
	}
}

func (h *Handler) orderCancelledEmail(payload payloads.OrderCancelledEvent) *mailer.Message {
	body := fmt.Sprintf("<p>Order <strong>%s</strong> has been cancelled. You were not charged.</p>", payload.OrderNumber)
	if reason := strings.TrimSpace(payload.Reason); reason != "" {
		body += fmt.Sprintf("<p>Reason: %s</p>", reason)
	}
	return &mailer.Message{
		ToEmail: payload.Email,
		Subject: fmt.Sprintf("Order %s cancelled", payload.OrderNumber),
		HTMLVer: body,
	}
}

func (h *Handler) orderRefundedEmail(payload payloads.OrderRefundedEvent) *mailer.Message {
	return &mailer.Message{
		ToEmail: payload.Email,
		Subject: fmt.Sprintf("Refund issued for order %s", payload.OrderNumber),
		HTMLVer: fmt.Sprintf(
			"<p>We refunded <strong>%s</strong> for order <strong>%s</strong>. Depending on your bank it can take a few business days to appear.</p>",
			formatCents(payload.AmountCents), payload.OrderNumber,
		),
	}
}

func (h *Handler) orderShippedEmail(payload payloads.OrderShippedEvent) *mailer.Message {
	body := fmt.Sprintf(
		"<p>Order <strong>%s</strong> is on its way with %s.</p><p><a href=%q>Track your package</a></p>",
		payload.OrderNumber, payload.Carrier, h.trackLink(payload.TrackingCode),
	)
	if ref := strings.TrimSpace(payload.CarrierTrackingID); ref != "" {
		body += fmt.Sprintf("<p>Carrier reference: %s</p>", ref)
	}
	return &mailer.Message{
		ToEmail: payload.Email,
		Subject: fmt.Sprintf("Order %s has shipped", payload.OrderNumber),
		HTMLVer: body,
	}
}

func (h *Handler) orderDeliveredEmail(payload payloads.OrderDeliveredEvent) *mailer.Message {
	return &mailer.Message{
		ToEmail: payload.Email,
		Subject: fmt.Sprintf("Order %s was delivered", payload.OrderNumber),
		HTMLVer: fmt.Sprintf(
			"<p>Order <strong>%s</strong> was delivered. We hope you love it!</p>",
			payload.OrderNumber,
		),
	}
}

func (h *Handler) lowStockEmail(payload payloads.LowStockDetectedEvent) *mailer.Message {
	// Operational alert; without a configured recipient there is nowhere
	// to send it.
	if strings.TrimSpace(h.cfg.OpsEmail) == "" {
		return nil
	}
	return &mailer.Message{
		ToEmail: h.cfg.OpsEmail,
		Subject: fmt.Sprintf("Low stock: %s (%s)", payload.ProductTitle, payload.SKU),
		HTMLVer: fmt.Sprintf(
			"<p><strong>%s</strong> (SKU %s) is down to %d units, at or below its threshold of %d.</p>",
			payload.ProductTitle, payload.SKU, payload.StockQuantity, payload.LowStockThreshold,
		),
	}
}

func (h *Handler) orderLink(orderID string) string {
	return fmt.Sprintf("%s/orders/%s", strings.TrimRight(h.cfg.StorefrontURL, "/"), orderID)
}

func (h *Handler) trackLink(trackingCode string) string {
	return fmt.Sprintf("%s/track/%s", strings.TrimRight(h.cfg.StorefrontURL, "/"), trackingCode)
}

func (h *Handler) info(ctx context.Context, msg string) {
	if h.logg != nil {
		h.logg.Info(ctx, msg)
	}
}

func formatCents(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func pluralize(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
