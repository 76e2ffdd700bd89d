package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/outbox"
	"github.com/velora-co/velora-backend/pkg/outbox/payloads"
	"github.com/velora-co/velora-backend/pkg/pagination"
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

// Actor identifies who is performing an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ShipInput marks an order as handed to the carrier.
type ShipInput struct {
	OrderID           uuid.UUID
	Carrier           string
	CarrierTrackingID *string
	Actor             Actor
}

// Service exposes order reads and fulfillment transitions. Payment-driven
// transitions (confirm, cancel, refund) live in the payments service.
type Service interface {
	GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	AdminList(ctx context.Context, filters AdminListFilters, params pagination.Params) (*OrderList, error)
	Ship(ctx context.Context, input ShipInput) (*OrderDTO, error)
	Deliver(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	Track(ctx context.Context, trackingCode string) (*TrackingView, error)
}

type service struct {
	repo   *Repository
	tx     txRunner
	users  userLoader
	outbox outboxPublisher
}

// NewService builds an orders service with the required dependencies.
func NewService(repo *Repository, tx txRunner, users userLoader, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, users: users, outbox: outboxSvc}, nil
}

// GetOrder returns the order detail. Customers can only read their own
// orders; staff can read any.
func (s *service) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && order.UserID != actor.UserID {
		// Indistinguishable from a missing order to keep order IDs unguessable.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return FromModel(order), nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.ListByUser(ctx, userID, params)
}

func (s *service) AdminList(ctx context.Context, filters AdminListFilters, params pagination.Params) (*OrderList, error) {
	if filters.Status != "" && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	return s.repo.ListAdmin(ctx, filters, params)
}

// Ship moves a processing order to shipped and records the carrier handoff.
func (s *service) Ship(ctx context.Context, input ShipInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	carrier := strings.TrimSpace(input.Carrier)
	if carrier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier is required")
	}

	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, order.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{
			"carrier":    carrier,
			"shipped_at": now,
		}
		if input.CarrierTrackingID != nil && strings.TrimSpace(*input.CarrierTrackingID) != "" {
			updates["carrier_tracking_id"] = strings.TrimSpace(*input.CarrierTrackingID)
		}
		if err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, enums.OrderStatusProcessing, enums.OrderStatusShipped, updates); err != nil {
			return err
		}

		event := payloads.OrderShippedEvent{
			OrderID:      order.ID,
			OrderNumber:  order.OrderNumber,
			UserID:       order.UserID,
			Email:        user.Email,
			TrackingCode: order.TrackingCode,
			Carrier:      carrier,
			ShippedAt:    now,
		}
		if input.CarrierTrackingID != nil {
			event.CarrierTrackingID = strings.TrimSpace(*input.CarrierTrackingID)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderShipped,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data:          event,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

// Deliver moves a shipped order to delivered.
func (s *service) Deliver(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, order.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{"delivered_at": now}
		if err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, enums.OrderStatusShipped, enums.OrderStatusDelivered, updates); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderDeliveredEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				Email:       user.Email,
				DeliveredAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

// Track resolves a public tracking code without authentication.
func (s *service) Track(ctx context.Context, trackingCode string) (*TrackingView, error) {
	code := strings.TrimSpace(trackingCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking code required")
	}
	order, err := s.repo.FindByTrackingCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tracking code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tracking code")
	}
	return TrackingFromModel(order), nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
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

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}
