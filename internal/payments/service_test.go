package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/internal/inventory"
	"github.com/velora-co/velora-backend/internal/orders"
	"github.com/velora-co/velora-backend/internal/testdb"
	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/outbox"
	"github.com/velora-co/velora-backend/pkg/square"
	"github.com/velora-co/velora-backend/pkg/types"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubUsers struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

type stubProvider struct {
	createResult *sq.Payment
	createErr    error
	getResult    *sq.Payment
	getErr       error
	createCalls  []square.PaymentCreateParams
	getCalls     []string
}

func (s *stubProvider) CreatePayment(_ context.Context, params square.PaymentCreateParams) (*sq.Payment, error) {
	s.createCalls = append(s.createCalls, params)
	return s.createResult, s.createErr
}

func (s *stubProvider) GetPayment(_ context.Context, paymentID string) (*sq.Payment, error) {
	s.getCalls = append(s.getCalls, paymentID)
	return s.getResult, s.getErr
}

func strPtr(s string) *string {
	return &s
}

func settledPayment(id string) *sq.Payment {
	return &sq.Payment{ID: strPtr(id), Status: strPtr("COMPLETED")}
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	owner    uuid.UUID
	provider *stubProvider
}

func newFixture(t *testing.T, provider *stubProvider) *fixture {
	t.Helper()
	db := testdb.Open(t)
	owner := uuid.New()
	users := &stubUsers{users: map[uuid.UUID]*models.User{
		owner: {ID: owner, Email: "shopper@example.com", Role: enums.UserRoleCustomer},
	}}

	var p paymentProvider
	if provider != nil {
		p = provider
	}
	svc, err := NewService(
		gormTxRunner{db: db},
		orders.NewRepository(db),
		NewRepository(db),
		inventory.NewRepository(db),
		users,
		outbox.NewService(outbox.NewRepository(db), nil),
		p,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{db: db, svc: svc, owner: owner, provider: provider}
}

func (fx *fixture) seedVariant(t *testing.T, stock int) models.ProductVariant {
	t.Helper()
	variant := models.ProductVariant{
		ID:                uuid.New(),
		ProductID:         uuid.New(),
		SKU:               "SKU-" + uuid.NewString()[:8],
		Size:              "M",
		Color:             "black",
		PriceCents:        2500,
		StockQuantity:     stock,
		LowStockThreshold: 5,
	}
	if err := fx.db.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant
}

type line struct {
	variant models.ProductVariant
	qty     int
}

func (fx *fixture) seedPendingOrder(t *testing.T, lines ...line) *models.Order {
	t.Helper()
	items := make([]models.OrderItem, 0, len(lines))
	subtotal := 0
	for _, l := range lines {
		total := l.variant.PriceCents * l.qty
		subtotal += total
		items = append(items, models.OrderItem{
			ProductID:      l.variant.ProductID,
			VariantID:      l.variant.ID,
			ProductTitle:   "Linen Midi Dress",
			VariantLabel:   "M / black",
			SKU:            l.variant.SKU,
			UnitPriceCents: l.variant.PriceCents,
			Qty:            l.qty,
			TotalCents:     total,
		})
	}
	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    "VL-20260827-" + uuid.NewString()[:6],
		TrackingCode:   "VLT-" + uuid.NewString()[:10],
		UserID:         fx.owner,
		Status:         enums.OrderStatusPending,
		Currency:       enums.CurrencyUSD,
		SubtotalCents:  subtotal,
		TotalCents:     subtotal,
		ShippingMethod: enums.ShippingMethodStandard,
		ShippingAddress: types.Address{
			FullName: "Ada Shopper", Line1: "1 Velora Way", City: "Portland",
			State: "OR", PostalCode: "97201", Country: "US",
		},
		Items: items,
		Payment: &models.Payment{
			Method:      enums.PaymentMethodCard,
			Status:      enums.PaymentStatusPending,
			AmountCents: subtotal,
			Currency:    enums.CurrencyUSD,
		},
	}
	if err := fx.db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func (fx *fixture) stock(t *testing.T, variantID uuid.UUID) int {
	t.Helper()
	var variant models.ProductVariant
	if err := fx.db.First(&variant, "id = ?", variantID).Error; err != nil {
		t.Fatalf("reload variant: %v", err)
	}
	return variant.StockQuantity
}

func (fx *fixture) logs(t *testing.T, variantID uuid.UUID) []models.InventoryLog {
	t.Helper()
	var logs []models.InventoryLog
	if err := fx.db.Where("variant_id = ?", variantID).Order("created_at ASC").Find(&logs).Error; err != nil {
		t.Fatalf("load logs: %v", err)
	}
	return logs
}

func (fx *fixture) eventCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	if err := fx.db.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return count
}

func (fx *fixture) orderStatus(t *testing.T, orderID uuid.UUID) (enums.OrderStatus, enums.PaymentStatus) {
	t.Helper()
	var order models.Order
	if err := fx.db.Preload("Payment").First(&order, "id = ?", orderID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return order.Status, order.Payment.Status
}

func ownerActor(fx *fixture) orders.Actor {
	return orders.Actor{UserID: fx.owner, Role: enums.UserRoleCustomer}
}

func staffActor() orders.Actor {
	return orders.Actor{UserID: uuid.New(), Role: enums.UserRoleManager}
}

func TestConfirmSettlesAtomically(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	a := fx.seedVariant(t, 5)
	b := fx.seedVariant(t, 5)
	order := fx.seedPendingOrder(t, line{a, 2}, line{b, 1})

	dto, err := fx.svc.Confirm(context.Background(), ConfirmInput{OrderID: order.ID, Actor: staffActor()})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if dto.Status != enums.OrderStatusProcessing {
		t.Fatalf("order status = %s, want processing", dto.Status)
	}
	if dto.Payment == nil || dto.Payment.Status != enums.PaymentStatusCompleted || dto.Payment.CompletedAt == nil {
		t.Fatalf("payment not settled: %+v", dto.Payment)
	}

	if got := fx.stock(t, a.ID); got != 3 {
		t.Fatalf("variant a stock = %d, want 3", got)
	}
	if got := fx.stock(t, b.ID); got != 4 {
		t.Fatalf("variant b stock = %d, want 4", got)
	}

	logsA := fx.logs(t, a.ID)
	if len(logsA) != 1 || logsA[0].Type != enums.InventoryLogTypeSale || logsA[0].QuantityChange != -2 || logsA[0].StockAfter != 3 {
		t.Fatalf("unexpected sale log: %+v", logsA)
	}
	if logsA[0].OrderID == nil || *logsA[0].OrderID != order.ID {
		t.Fatal("sale log missing order reference")
	}
	if got := fx.eventCount(t, enums.EventPaymentConfirmed); got != 1 {
		t.Fatalf("payment_confirmed events = %d, want 1", got)
	}
}

func TestConfirmRollsBackWhenAnyLineShort(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	a := fx.seedVariant(t, 5)
	b := fx.seedVariant(t, 0)
	order := fx.seedPendingOrder(t, line{a, 2}, line{b, 1})

	_, err := fx.svc.Confirm(context.Background(), ConfirmInput{OrderID: order.ID, Actor: staffActor()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// All-or-nothing: the first line's decrement must be rolled back.
	if got := fx.stock(t, a.ID); got != 5 {
		t.Fatalf("variant a stock = %d, want 5", got)
	}
	orderStatus, paymentStatus := fx.orderStatus(t, order.ID)
	if orderStatus != enums.OrderStatusPending || paymentStatus != enums.PaymentStatusPending {
		t.Fatalf("statuses changed on failed confirm: %s / %s", orderStatus, paymentStatus)
	}
	if logs := fx.logs(t, a.ID); len(logs) != 0 {
		t.Fatalf("expected no logs after rollback, got %d", len(logs))
	}
	if got := fx.eventCount(t, enums.EventPaymentConfirmed); got != 0 {
		t.Fatalf("expected no events, got %d", got)
	}
}

func TestConfirmTwiceFailsCleanly(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	a := fx.seedVariant(t, 5)
	order := fx.seedPendingOrder(t, line{a, 2})
	ctx := context.Background()

	if _, err := fx.svc.Confirm(ctx, ConfirmInput{OrderID: order.ID, Actor: staffActor()}); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	_, err := fx.svc.Confirm(ctx, ConfirmInput{OrderID: order.ID, Actor: staffActor()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on second confirm, got %v", err)
	}
	// Stock moved exactly once.
	if got := fx.stock(t, a.ID); got != 3 {
		t.Fatalf("stock = %d, want 3", got)
	}
	if got := fx.eventCount(t, enums.EventPaymentConfirmed); got != 1 {
		t.Fatalf("payment_confirmed events = %d, want 1", got)
	}
}

func TestConfirmWithProviderCharge(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{createResult: settledPayment("sq-pay-1")}
	fx := newFixture(t, provider)
	a := fx.seedVariant(t, 5)
	order := fx.seedPendingOrder(t, line{a, 1})

	dto, err := fx.svc.Confirm(context.Background(), ConfirmInput{
		OrderID:  order.ID,
		SourceID: "cnon:card-nonce",
		Actor:    ownerActor(fx),
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if dto.Payment.ProviderReference == nil || *dto.Payment.ProviderReference != "sq-pay-1" {
		t.Fatalf("provider reference not recorded: %+v", dto.Payment)
	}
	if len(provider.createCalls) != 1 {
		t.Fatalf("expected 1 charge, got %d", len(provider.createCalls))
	}
	charge := provider.createCalls[0]
	if charge.AmountCents != int64(order.TotalCents) || charge.SourceID != "cnon:card-nonce" || charge.ReferenceID != order.OrderNumber {
		t.Fatalf("unexpected charge params: %+v", charge)
	}
	if charge.IdempotencyKey == "" {
		t.Fatal("charge must carry an idempotency key")
	}
}

func TestConfirmRejectsUnsettledProviderCharge(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{createResult: &sq.Payment{ID: strPtr("sq-pay-2"), Status: strPtr("PENDING")}}
	fx := newFixture(t, provider)
	a := fx.seedVariant(t, 5)
	order := fx.seedPendingOrder(t, line{a, 1})

	_, err := fx.svc.Confirm(context.Background(), ConfirmInput{
		OrderID:  order.ID,
		SourceID: "cnon:card-nonce",
		Actor:    ownerActor(fx),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if got := fx.stock(t, a.ID); got != 5 {
		t.Fatalf("stock moved on failed charge: %d", got)
	}
	orderStatus, paymentStatus := fx.orderStatus(t, order.ID)
	if orderStatus != enums.OrderStatusPending || paymentStatus != enums.PaymentStatusPending {
		t.Fatalf("statuses changed: %s / %s", orderStatus, paymentStatus)
	}
}

func TestConfirmVerifiesProviderPayment(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{getResult: settledPayment("sq-pay-3")}
	fx := newFixture(t, provider)
	a := fx.seedVariant(t, 5)
	order := fx.seedPendingOrder(t, line{a, 1})

	dto, err := fx.svc.Confirm(context.Background(), ConfirmInput{
		OrderID:           order.ID,
		ProviderPaymentID: "sq-pay-3",
		Actor:             staffActor(),
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if dto.Payment.ProviderReference == nil || *dto.Payment.ProviderReference != "sq-pay-3" {
		t.Fatalf("provider reference not recorded: %+v", dto.Payment)
	}
	if len(provider.getCalls) != 1 || provider.getCalls[0] != "sq-pay-3" {
		t.Fatalf("unexpected provider lookups: %v", provider.getCalls)
	}
}

func TestCancelPendingOrder(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	a := fx.seedVariant(t, 5)
	order := fx.seedPendingOrder(t, line{a, 2})

	dto, err := fx.svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Reason:  "changed my mind",
		Actor:   ownerActor(fx),
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if dto.Status != enums.OrderStatusCancelled || dto.CancelledAt == nil {
		t.Fatalf("cancellation not recorded: %+v", dto)
	}
	if dto.Payment.Status != enums.PaymentStatusFailed || dto.Payment.FailureReason == nil {
		t.Fatalf("payment not failed: %+v", dto.Payment)
	}

	// A pending order never held stock, so cancelling moves none.
	if got := fx.stock(t, a.ID); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
	if logs := fx.logs(t, a.ID); len(logs) != 0 {
		t.Fatalf("expected no inventory logs, got %d", len(logs))
	}
	if got := fx.eventCount(t, enums.EventOrderCancelled); got != 1 {
		t.Fatalf("order_cancelled events = %d, want 1", got)
	}
}

func TestCancelAfterConfirmFails(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	a := fx.seedVariant(t, 5)
	order := fx.seedPendingOrder(t, line{a, 1})
	ctx := context.Background()

	if _, err := fx.svc.Confirm(ctx, ConfirmInput{OrderID: order.ID, Actor: staffActor()}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	_, err := fx.svc.Cancel(ctx, CancelInput{OrderID: order.ID, Actor: ownerActor(fx)})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if got := fx.stock(t, a.ID); got != 4 {
		t.Fatalf("stock = %d, want 4", got)
	}
}

func TestCancelStrangerSeesNotFound(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	a := fx.seedVariant(t, 5)
	order := fx.seedPendingOrder(t, line{a, 1})

	_, err := fx.svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   orders.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for stranger, got %v", err)
	}
}

func TestRefundRestoresStock(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	a := fx.seedVariant(t, 5)
	b := fx.seedVariant(t, 5)
	order := fx.seedPendingOrder(t, line{a, 2}, line{b, 1})
	ctx := context.Background()

	if _, err := fx.svc.Confirm(ctx, ConfirmInput{OrderID: order.ID, Actor: staffActor()}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	dto, err := fx.svc.Refund(ctx, RefundInput{OrderID: order.ID, Reason: "damaged on arrival", Actor: staffActor()})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if dto.Status != enums.OrderStatusRefunded || dto.RefundedAt == nil {
		t.Fatalf("refund not recorded: %+v", dto)
	}
	if dto.Payment.Status != enums.PaymentStatusRefunded || dto.Payment.RefundedAt == nil {
		t.Fatalf("payment not refunded: %+v", dto.Payment)
	}

	if got := fx.stock(t, a.ID); got != 5 {
		t.Fatalf("variant a stock = %d, want 5", got)
	}
	if got := fx.stock(t, b.ID); got != 5 {
		t.Fatalf("variant b stock = %d, want 5", got)
	}

	// History is append-only: the sale rows stay and return rows join them.
	logsA := fx.logs(t, a.ID)
	if len(logsA) != 2 {
		t.Fatalf("expected 2 log rows, got %d", len(logsA))
	}
	if logsA[0].Type != enums.InventoryLogTypeSale || logsA[1].Type != enums.InventoryLogTypeReturn {
		t.Fatalf("unexpected log sequence: %s, %s", logsA[0].Type, logsA[1].Type)
	}
	if logsA[1].QuantityChange != 2 || logsA[1].StockAfter != 5 {
		t.Fatalf("unexpected return log: %+v", logsA[1])
	}
	if got := fx.eventCount(t, enums.EventOrderRefunded); got != 1 {
		t.Fatalf("order_refunded events = %d, want 1", got)
	}
}

func TestRefundRequiresStaff(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	a := fx.seedVariant(t, 5)
	order := fx.seedPendingOrder(t, line{a, 1})

	_, err := fx.svc.Refund(context.Background(), RefundInput{OrderID: order.ID, Actor: ownerActor(fx)})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRefundBeforeSettlementFails(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	a := fx.seedVariant(t, 5)
	order := fx.seedPendingOrder(t, line{a, 1})

	_, err := fx.svc.Refund(context.Background(), RefundInput{OrderID: order.ID, Actor: staffActor()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if got := fx.stock(t, a.ID); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
}

func TestConfirmStrangerSeesNotFound(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	a := fx.seedVariant(t, 3)
	order := fx.seedPendingOrder(t, line{a, 1})

	// A customer who does not own the order must not be able to settle it,
	// with or without a card token.
	_, err := fx.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: order.ID,
		Actor:   orders.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for stranger, got %v", err)
	}
	if got := fx.stock(t, a.ID); got != 3 {
		t.Fatalf("stock moved for stranger confirm: %d", got)
	}
	orderStatus, paymentStatus := fx.orderStatus(t, order.ID)
	if orderStatus != enums.OrderStatusPending || paymentStatus != enums.PaymentStatusPending {
		t.Fatalf("statuses changed: %s / %s", orderStatus, paymentStatus)
	}
}

func TestConfirmOfflineRequiresStaff(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	a := fx.seedVariant(t, 3)
	order := fx.seedPendingOrder(t, line{a, 1})

	// The owner may pay by card, but marking the order settled with no
	// payment source is a back-office action.
	_, err := fx.svc.Confirm(context.Background(), ConfirmInput{
		OrderID: order.ID,
		Actor:   ownerActor(fx),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if got := fx.stock(t, a.ID); got != 3 {
		t.Fatalf("stock moved on forbidden confirm: %d", got)
	}
	orderStatus, paymentStatus := fx.orderStatus(t, order.ID)
	if orderStatus != enums.OrderStatusPending || paymentStatus != enums.PaymentStatusPending {
		t.Fatalf("statuses changed: %s / %s", orderStatus, paymentStatus)
	}
}

func TestConfirmEmitsLowStockOnThresholdCrossing(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	crossing := fx.seedVariant(t, 7)  // 7 -> 4 crosses the threshold of 5
	healthy := fx.seedVariant(t, 20) // 20 -> 19 stays comfortably above
	order := fx.seedPendingOrder(t, line{crossing, 3}, line{healthy, 1})

	if _, err := fx.svc.Confirm(context.Background(), ConfirmInput{OrderID: order.ID, Actor: staffActor()}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if got := fx.eventCount(t, enums.EventLowStockDetected); got != 1 {
		t.Fatalf("low_stock_detected events = %d, want 1", got)
	}
	if got := fx.eventCount(t, enums.EventPaymentConfirmed); got != 1 {
		t.Fatalf("payment_confirmed events = %d, want 1", got)
	}
}

func TestConfirmSkipsLowStockWhenAlreadyLow(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	a := fx.seedVariant(t, 4) // already at or below the threshold before the sale
	order := fx.seedPendingOrder(t, line{a, 1})

	if _, err := fx.svc.Confirm(context.Background(), ConfirmInput{OrderID: order.ID, Actor: staffActor()}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if got := fx.eventCount(t, enums.EventLowStockDetected); got != 0 {
		t.Fatalf("low_stock_detected events = %d, want 0", got)
	}
}

func TestConfirmRejectsConflictingSources(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)

	_, err := fx.svc.Confirm(context.Background(), ConfirmInput{
		OrderID:           uuid.New(),
		SourceID:          "cnon:x",
		ProviderPaymentID: "sq-pay-9",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
