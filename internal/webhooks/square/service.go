package squarewebhook

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/internal/orders"
	"github.com/velora-co/velora-backend/internal/payments"
	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/logger"
)

type paymentConfirmer interface {
	Confirm(ctx context.Context, input payments.ConfirmInput) (*orders.OrderDTO, error)
}

type orderResolver interface {
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
}

// Event is the envelope Square posts to the webhook endpoint.
type Event struct {
	MerchantID string    `json:"merchant_id"`
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	Data       EventData `json:"data"`
}

type EventData struct {
	Type   string      `json:"type"`
	ID     string      `json:"id"`
	Object EventObject `json:"object"`
}

type EventObject struct {
	Payment *PaymentObject `json:"payment"`
}

// PaymentObject carries the subset of Square's payment resource the webhook
// needs. ReferenceID holds the order number set when the charge was created.
type PaymentObject struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ReferenceID string `json:"reference_id"`
}

type ServiceParams struct {
	Payments paymentConfirmer
	Orders   orderResolver
	Logger   *logger.Logger
}

// Service maps Square payment webhooks onto local payment confirmations.
type Service struct {
	payments paymentConfirmer
	orders   orderResolver
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order resolver required")
	}
	return &Service{
		payments: params.Payments,
		orders:   params.Orders,
		logg:     params.Logger,
	}, nil
}

var settledProviderStatuses = map[string]struct{}{
	"COMPLETED": {},
	"APPROVED":  {},
}

// HandleEvent processes one Square event. Unknown event types and unsettled
// payment states are acknowledged without action; a payment that was already
// confirmed locally is treated as a successful no-op so Square stops
// retrying.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}

	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
	default:
		return nil
	}

	payment := event.Data.Object.Payment
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
	}
	if _, settled := settledProviderStatuses[strings.ToUpper(payment.Status)]; !settled {
		s.info(ctx, "ignoring unsettled square payment state")
		return nil
	}

	orderNumber := strings.TrimSpace(payment.ReferenceID)
	if orderNumber == "" {
		// A settled charge we cannot attribute to an order is not retryable.
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference id missing")
	}

	order, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment reference")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve order")
	}

	_, err = s.payments.Confirm(ctx, payments.ConfirmInput{
		OrderID:           order.ID,
		ProviderPaymentID: payment.ID,
		Actor:             orders.Actor{Role: enums.UserRoleAdmin},
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
			s.info(ctx, "square payment already confirmed")
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}
