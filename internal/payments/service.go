package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/internal/inventory"
	"github.com/velora-co/velora-backend/internal/orders"
	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/outbox"
	"github.com/velora-co/velora-backend/pkg/outbox/payloads"
	"github.com/velora-co/velora-backend/pkg/square"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type paymentProvider interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

// ConfirmInput settles the payment for a pending order. Exactly one of
// SourceID (a card token to charge now) or ProviderPaymentID (an already
// settled provider payment to verify, e.g. from a webhook) may be set;
// both empty confirms an offline payment.
type ConfirmInput struct {
	OrderID           uuid.UUID
	SourceID          string
	ProviderPaymentID string
	Actor             orders.Actor
}

// CancelInput cancels an order that has not been paid yet.
type CancelInput struct {
	OrderID uuid.UUID
	Reason  string
	Actor   orders.Actor
}

// RefundInput reverses a settled payment and restores its stock.
type RefundInput struct {
	OrderID uuid.UUID
	Reason  string
	Actor   orders.Actor
}

// Service drives the payment-side order transitions. Confirm is the only
// path that removes stock; Refund is the only path that puts it back.
type Service interface {
	Confirm(ctx context.Context, input ConfirmInput) (*orders.OrderDTO, error)
	Cancel(ctx context.Context, input CancelInput) (*orders.OrderDTO, error)
	Refund(ctx context.Context, input RefundInput) (*orders.OrderDTO, error)
}

type service struct {
	tx         txRunner
	ordersRepo *orders.Repository
	repo       *Repository
	inventory  *inventory.Repository
	users      userLoader
	outbox     outboxPublisher
	provider   paymentProvider
}

// NewService builds the payments service. The provider may be nil when the
// deployment runs without a card processor (offline payments only).
func NewService(tx txRunner, ordersRepo *orders.Repository, repo *Repository, inventoryRepo *inventory.Repository, users userLoader, outboxSvc outboxPublisher, provider paymentProvider) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if inventoryRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:         tx,
		ordersRepo: ordersRepo,
		repo:       repo,
		inventory:  inventoryRepo,
		users:      users,
		outbox:     outboxSvc,
		provider:   provider,
	}, nil
}

// Confirm settles the payment and commits the order's stock in a single
// transaction: payment pending->completed, order pending->processing, and
// one guarded decrement plus sale log per item. Any failure, including a
// single out-of-stock line, rolls the whole confirmation back.
func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*orders.OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.SourceID != "" && input.ProviderPaymentID != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source id and provider payment id are mutually exclusive")
	}

	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	// Customers may only pay their own orders, and only by presenting a card
	// token. Offline settlement and provider verification are staff paths
	// (admin surface or the webhook service).
	if !input.Actor.Role.IsStaff() {
		if order.UserID != input.Actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if input.SourceID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "settling without a card requires a staff role")
		}
	}
	user, err := s.loadUser(ctx, order.UserID)
	if err != nil {
		return nil, err
	}

	// The charge happens before the local transaction: a card is never
	// charged inside a DB transaction, and a settled charge with a failed
	// local commit is recoverable via the provider reference.
	providerRef, err := s.settleWithProvider(ctx, order, input)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		paymentUpdates := map[string]any{"completed_at": now}
		if providerRef != "" {
			paymentUpdates["provider_reference"] = providerRef
		}
		if err := s.repo.WithTx(tx).TransitionStatus(ctx, order.Payment.ID, enums.PaymentStatusPending, enums.PaymentStatusCompleted, paymentUpdates); err != nil {
			return err
		}
		if err := s.ordersRepo.WithTx(tx).TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusProcessing, nil); err != nil {
			return err
		}

		invTx := s.inventory.WithTx(tx)
		for _, item := range order.Items {
			orderID := order.ID
			variant, err := invTx.FindVariant(ctx, item.VariantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
			}
			wasLow := variant.IsLowStock() || variant.IsOutOfStock()

			stockAfter, err := invTx.RecordSale(ctx, inventory.Movement{
				VariantID: item.VariantID,
				Qty:       item.Qty,
				OrderID:   &orderID,
			})
			if err != nil {
				return err
			}

			// A sale crossing the threshold raises the replenishment alert,
			// same as a manual adjustment would.
			if stockAfter <= variant.LowStockThreshold && !wasLow {
				err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
					EventType:     enums.EventLowStockDetected,
					AggregateType: enums.AggregateInventory,
					AggregateID:   item.VariantID,
					Version:       1,
					Actor:         actorRef(input.Actor),
					Data: payloads.LowStockDetectedEvent{
						VariantID:         item.VariantID,
						SKU:               variant.SKU,
						ProductTitle:      item.ProductTitle,
						StockQuantity:     stockAfter,
						LowStockThreshold: variant.LowStockThreshold,
					},
				})
				if err != nil {
					return err
				}
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.PaymentConfirmedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				Email:       user.Email,
				PaymentID:   order.Payment.ID,
				AmountCents: order.Payment.AmountCents,
				ConfirmedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

// Cancel aborts a pending order: order pending->cancelled and payment
// pending->failed. No stock ever moved for a pending order, so none moves
// here either.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*orders.OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !input.Actor.Role.IsStaff() && order.UserID != input.Actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	user, err := s.loadUser(ctx, order.UserID)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ordersRepo.WithTx(tx).TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, map[string]any{"cancelled_at": now}); err != nil {
			return err
		}
		paymentUpdates := map[string]any{}
		if reason != "" {
			paymentUpdates["failure_reason"] = reason
		} else {
			paymentUpdates["failure_reason"] = "order cancelled"
		}
		if err := s.repo.WithTx(tx).TransitionStatus(ctx, order.Payment.ID, enums.PaymentStatusPending, enums.PaymentStatusFailed, paymentUpdates); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				Email:       user.Email,
				CancelledAt: now,
				Reason:      reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

// Refund reverses a settled order: payment completed->refunded, order
// ->refunded, and one stock restore plus return log per item, all in one
// transaction.
func (s *service) Refund(ctx context.Context, input RefundInput) (*orders.OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "refunds require a staff role")
	}

	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	user, err := s.loadUser(ctx, order.UserID)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).TransitionStatus(ctx, order.Payment.ID, enums.PaymentStatusCompleted, enums.PaymentStatusRefunded, map[string]any{"refunded_at": now}); err != nil {
			return err
		}
		if err := s.ordersRepo.WithTx(tx).TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusRefunded, map[string]any{"refunded_at": now}); err != nil {
			return err
		}

		invTx := s.inventory.WithTx(tx)
		for _, item := range order.Items {
			orderID := order.ID
			if _, err := invTx.RecordReturn(ctx, inventory.Movement{
				VariantID: item.VariantID,
				Qty:       item.Qty,
				OrderID:   &orderID,
			}); err != nil {
				return err
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderRefundedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				Email:       user.Email,
				AmountCents: order.Payment.AmountCents,
				RefundedAt:  now,
				Reason:      reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

// settledStatuses are the provider payment states accepted as paid.
var settledStatuses = map[string]struct{}{
	"COMPLETED": {},
	"APPROVED":  {},
}

func (s *service) settleWithProvider(ctx context.Context, order *models.Order, input ConfirmInput) (string, error) {
	switch {
	case input.SourceID != "":
		if s.provider == nil {
			return "", pkgerrors.New(pkgerrors.CodeDependency, "card payments are not configured")
		}
		payment, err := s.provider.CreatePayment(ctx, square.PaymentCreateParams{
			AmountCents:    int64(order.Payment.AmountCents),
			Currency:       string(order.Currency),
			SourceID:       input.SourceID,
			ReferenceID:    order.OrderNumber,
			IdempotencyKey: "pay-" + order.Payment.ID.String(),
		})
		if err != nil {
			return "", err
		}
		if !isSettled(payment) {
			return "", pkgerrors.New(pkgerrors.CodeDependency, "provider did not settle the payment").WithDetails(map[string]any{
				"provider_status": stringValue(payment.GetStatus()),
			})
		}
		return stringValue(payment.GetID()), nil

	case input.ProviderPaymentID != "":
		if s.provider == nil {
			return "", pkgerrors.New(pkgerrors.CodeDependency, "card payments are not configured")
		}
		payment, err := s.provider.GetPayment(ctx, input.ProviderPaymentID)
		if err != nil {
			return "", err
		}
		if !isSettled(payment) {
			return "", pkgerrors.New(pkgerrors.CodeStateConflict, "provider payment is not settled").WithDetails(map[string]any{
				"provider_status": stringValue(payment.GetStatus()),
			})
		}
		return input.ProviderPaymentID, nil

	default:
		// Offline settlement (bank transfer, cash on delivery) confirmed by
		// staff; there is no provider reference to record.
		return "", nil
	}
}

func isSettled(payment *sq.Payment) bool {
	if payment == nil {
		return false
	}
	_, ok := settledStatuses[strings.ToUpper(stringValue(payment.GetStatus()))]
	return ok
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return orders.FromModel(order), nil
}

func actorRef(actor orders.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
