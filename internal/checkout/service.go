package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/internal/cart"
	"github.com/velora-co/velora-backend/internal/catalog"
	money "github.com/velora-co/velora-backend/pkg/checkout"
	"github.com/velora-co/velora-backend/pkg/config"
	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/logger"
	"github.com/velora-co/velora-backend/pkg/outbox"
	"github.com/velora-co/velora-backend/pkg/outbox/payloads"
	"github.com/velora-co/velora-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cartReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.CartView, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service turns a customer's cart into a pending order.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
}

// PlaceOrderInput is everything the customer supplies at checkout.
type PlaceOrderInput struct {
	UserID          uuid.UUID
	ShippingMethod  enums.ShippingMethod
	PaymentMethod   enums.PaymentMethod
	ShippingAddress types.Address
	BillingAddress  *types.Address
	CustomerNotes   *string
}

// PlaceOrderResult is the confirmation returned to the storefront.
type PlaceOrderResult struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	TrackingCode  string              `json:"tracking_code"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentID     uuid.UUID           `json:"payment_id"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Totals        money.Totals        `json:"totals"`
	ItemCount     int                 `json:"item_count"`
}

type service struct {
	tx      txRunner
	cart    cartReader
	users   userLoader
	catalog *catalog.Repository
	repo    *Repository
	outbox  outboxPublisher
	cfg     config.CheckoutConfig
	logg    *logger.Logger
}

// NewService builds the checkout orchestrator.
func NewService(tx txRunner, cartSvc cartReader, users userLoader, catalogRepo *catalog.Repository, repo *Repository, outboxSvc outboxPublisher, cfg config.CheckoutConfig, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:      tx,
		cart:    cartSvc,
		users:   users,
		catalog: catalogRepo,
		repo:    repo,
		outbox:  outboxSvc,
		cfg:     cfg,
		logg:    logg,
	}, nil
}

// PlaceOrder snapshots the cart into an order with a pending payment.
// Stock is validated but never decremented here; units only leave inventory
// when the payment settles.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.ShippingMethod == "" {
		input.ShippingMethod = enums.ShippingMethodStandard
	}
	if !input.ShippingMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method")
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = enums.PaymentMethodCard
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	input.ShippingAddress.Normalize()
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "shipping address")
	}
	if input.BillingAddress != nil {
		input.BillingAddress.Normalize()
		if err := input.BillingAddress.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "billing address")
		}
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	view, err := s.cart.Get(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(view.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	for _, line := range view.Lines {
		if line.Unavailable {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains unavailable items").WithDetails(map[string]any{
				"variant_id": line.VariantID.String(),
			})
		}
	}

	var result PlaceOrderResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogTx := s.catalog.WithTx(tx)

		ids := make([]uuid.UUID, 0, len(view.Lines))
		for _, line := range view.Lines {
			ids = append(ids, line.VariantID)
		}
		variants, err := catalogTx.FindVariantsByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variants")
		}
		productIDs := make([]uuid.UUID, 0, len(variants))
		for _, v := range variants {
			productIDs = append(productIDs, v.ProductID)
		}
		products, err := catalogTx.FindVariantProducts(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}

		subtotal := 0
		itemCount := 0
		items := make([]models.OrderItem, 0, len(view.Lines))
		for _, line := range view.Lines {
			variant, ok := variants[line.VariantID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "variant no longer exists").WithDetails(map[string]any{
					"variant_id": line.VariantID.String(),
				})
			}
			product, ok := products[variant.ProductID]
			if !ok || product.Status != enums.ProductStatusActive {
				return pkgerrors.New(pkgerrors.CodeValidation, "product is not available").WithDetails(map[string]any{
					"variant_id": line.VariantID.String(),
				})
			}
			if line.Qty > variant.StockQuantity {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(map[string]any{
					"variant_id": variant.ID.String(),
					"sku":        variant.SKU,
					"available":  variant.StockQuantity,
					"requested":  line.Qty,
				})
			}

			lineTotal := variant.PriceCents * line.Qty
			subtotal += lineTotal
			itemCount += line.Qty
			items = append(items, models.OrderItem{
				ProductID:      variant.ProductID,
				VariantID:      variant.ID,
				ProductTitle:   product.Title,
				VariantLabel:   variant.Size + " / " + variant.Color,
				SKU:            variant.SKU,
				UnitPriceCents: variant.PriceCents,
				Qty:            line.Qty,
				TotalCents:     lineTotal,
			})
		}

		totals, err := money.Compute(subtotal, input.ShippingMethod, s.cfg)
		if err != nil {
			return err
		}

		order := &models.Order{
			OrderNumber:     NewOrderNumber(time.Now()),
			TrackingCode:    NewTrackingCode(),
			UserID:          input.UserID,
			Status:          enums.OrderStatusPending,
			Currency:        enums.CurrencyUSD,
			SubtotalCents:   totals.SubtotalCents,
			ShippingCents:   totals.ShippingCents,
			TaxCents:        totals.TaxCents,
			TotalCents:      totals.TotalCents,
			ShippingMethod:  input.ShippingMethod,
			ShippingAddress: input.ShippingAddress,
			BillingAddress:  input.BillingAddress,
			CustomerNotes:   input.CustomerNotes,
			Items:           items,
			Payment: &models.Payment{
				Method:      input.PaymentMethod,
				Status:      enums.PaymentStatusPending,
				AmountCents: totals.TotalCents,
				Currency:    enums.CurrencyUSD,
			},
		}
		if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return err
		}

		result = PlaceOrderResult{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			TrackingCode:  order.TrackingCode,
			Status:        order.Status,
			PaymentID:     order.Payment.ID,
			PaymentStatus: order.Payment.Status,
			Totals:        totals,
			ItemCount:     itemCount,
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: string(user.Role)},
			Data: payloads.OrderPlacedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      input.UserID,
				Email:       user.Email,
				TotalCents:  totals.TotalCents,
				Currency:    string(order.Currency),
				ItemCount:   itemCount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	// The order exists either way; a stale cart is an inconvenience, not a
	// consistency problem.
	if err := s.cart.Clear(ctx, input.UserID); err != nil && s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, result.OrderID.String())
		s.logg.Warn(logCtx, "failed to clear cart after placing order")
	}

	return &result, nil
}
