package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/internal/testdb"
	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/outbox"
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

func newOrderService(t *testing.T, db *gorm.DB, userIDs ...uuid.UUID) Service {
	t.Helper()
	users := &stubUsers{users: map[uuid.UUID]*models.User{}}
	for _, id := range userIDs {
		users.users[id] = &models.User{ID: id, Email: "shopper@example.com", Role: enums.UserRoleCustomer}
	}
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, users, outbox.NewService(outbox.NewRepository(db), nil))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func countOrderEvents(t *testing.T, db *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return count
}

func TestGetOrderOwnership(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	owner := uuid.New()
	svc := newOrderService(t, db, owner)
	order := seedOrder(t, db, owner, enums.OrderStatusPending)
	ctx := context.Background()

	dto, err := svc.GetOrder(ctx, Actor{UserID: owner, Role: enums.UserRoleCustomer}, order.ID)
	if err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if dto.OrderNumber != order.OrderNumber || len(dto.Items) != 1 || dto.Payment == nil {
		t.Fatalf("incomplete dto: %+v", dto)
	}

	// Another customer sees not-found, not forbidden.
	_, err = svc.GetOrder(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}, order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for stranger, got %v", err)
	}

	if _, err := svc.GetOrder(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleSupport}, order.ID); err != nil {
		t.Fatalf("staff get: %v", err)
	}
}

func TestShipHappyPath(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	owner := uuid.New()
	svc := newOrderService(t, db, owner)
	order := seedOrder(t, db, owner, enums.OrderStatusProcessing)
	carrierRef := "1Z999AA10123456784"

	dto, err := svc.Ship(context.Background(), ShipInput{
		OrderID:           order.ID,
		Carrier:           "UPS",
		CarrierTrackingID: &carrierRef,
		Actor:             Actor{UserID: uuid.New(), Role: enums.UserRoleManager},
	})
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	if dto.Status != enums.OrderStatusShipped {
		t.Fatalf("status = %s, want shipped", dto.Status)
	}
	if dto.Carrier == nil || *dto.Carrier != "UPS" || dto.ShippedAt == nil {
		t.Fatalf("carrier handoff not recorded: %+v", dto)
	}
	if dto.CarrierTrackingID == nil || *dto.CarrierTrackingID != carrierRef {
		t.Fatalf("carrier tracking id not recorded: %+v", dto)
	}
	if got := countOrderEvents(t, db, enums.EventOrderShipped); got != 1 {
		t.Fatalf("order_shipped events = %d, want 1", got)
	}
}

func TestShipRequiresProcessing(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	owner := uuid.New()
	svc := newOrderService(t, db, owner)
	order := seedOrder(t, db, owner, enums.OrderStatusPending)

	_, err := svc.Ship(context.Background(), ShipInput{
		OrderID: order.ID,
		Carrier: "UPS",
		Actor:   Actor{UserID: uuid.New(), Role: enums.UserRoleManager},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if got := countOrderEvents(t, db, enums.EventOrderShipped); got != 0 {
		t.Fatalf("no event expected, got %d", got)
	}
}

func TestShipRequiresCarrier(t *testing.T) {
	t.Parallel()

	svc := newOrderService(t, testdb.Open(t))

	_, err := svc.Ship(context.Background(), ShipInput{OrderID: uuid.New(), Carrier: "  "})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeliverHappyPath(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	owner := uuid.New()
	svc := newOrderService(t, db, owner)
	order := seedOrder(t, db, owner, enums.OrderStatusShipped)

	dto, err := svc.Deliver(context.Background(), Actor{UserID: uuid.New(), Role: enums.UserRoleSupport}, order.ID)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if dto.Status != enums.OrderStatusDelivered || dto.DeliveredAt == nil {
		t.Fatalf("delivery not recorded: %+v", dto)
	}
	if got := countOrderEvents(t, db, enums.EventOrderDelivered); got != 1 {
		t.Fatalf("order_delivered events = %d, want 1", got)
	}
}

func TestTrackPublicView(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	owner := uuid.New()
	svc := newOrderService(t, db, owner)
	order := seedOrder(t, db, owner, enums.OrderStatusShipped)

	view, err := svc.Track(context.Background(), order.TrackingCode)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if view.OrderNumber != order.OrderNumber || view.Status != enums.OrderStatusShipped {
		t.Fatalf("unexpected view: %+v", view)
	}
	if len(view.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(view.Items))
	}
	item := view.Items[0]
	if item.ProductTitle != "Linen Midi Dress" || item.VariantLabel != "M / black" || item.Qty != 2 {
		t.Fatalf("unexpected tracking item: %+v", item)
	}
}

func TestTrackUnknownCode(t *testing.T) {
	t.Parallel()

	svc := newOrderService(t, testdb.Open(t))

	_, err := svc.Track(context.Background(), "VLT-UNKNOWN")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
