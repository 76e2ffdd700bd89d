package inventory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

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

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	outboxSvc := outbox.NewService(outbox.NewRepository(db), nil)
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, outboxSvc)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func countEvents(t *testing.T, db *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	err := db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", eventType).
		Count(&count).Error
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	return count
}

func TestAdjustRestock(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	variant := seedVariant(t, db, 10, 5)
	actorID := uuid.New()

	result, err := svc.Adjust(context.Background(), AdjustInput{
		VariantID: variant.ID,
		Delta:     15,
		Type:      enums.InventoryLogTypeRestock,
		Reason:    "supplier delivery",
		ActorID:   actorID,
		ActorRole: "manager",
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if result.StockQuantity != 25 || result.IsLowStock || result.IsOutOfStock {
		t.Fatalf("unexpected result: %+v", result)
	}

	var log models.InventoryLog
	if err := db.First(&log, "variant_id = ?", variant.ID).Error; err != nil {
		t.Fatalf("load log: %v", err)
	}
	if log.Type != enums.InventoryLogTypeRestock || log.QuantityChange != 15 || log.StockAfter != 25 {
		t.Fatalf("unexpected log: %+v", log)
	}
	if log.ActorID == nil || *log.ActorID != actorID {
		t.Fatal("log missing actor")
	}

	if got := countEvents(t, db, enums.EventStockAdjusted); got != 1 {
		t.Fatalf("stock_adjusted events = %d, want 1", got)
	}
	if got := countEvents(t, db, enums.EventLowStockDetected); got != 0 {
		t.Fatalf("low_stock_detected events = %d, want 0", got)
	}
}

func TestAdjustEventPayload(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	variant := seedVariant(t, db, 10, 5)

	if _, err := svc.Adjust(context.Background(), AdjustInput{
		VariantID: variant.ID,
		Delta:     -2,
		Reason:    "damaged in warehouse",
		ActorID:   uuid.New(),
		ActorRole: "support",
	}); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	var row models.OutboxEvent
	if err := db.First(&row, "event_type = ?", enums.EventStockAdjusted).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if row.AggregateType != enums.AggregateInventory || row.AggregateID != variant.ID {
		t.Fatalf("unexpected aggregate: %+v", row)
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var data struct {
		SKU            string `json:"sku"`
		QuantityChange int    `json:"quantity_change"`
		StockAfter     int    `json:"stock_after"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.SKU != variant.SKU || data.QuantityChange != -2 || data.StockAfter != 8 {
		t.Fatalf("unexpected payload: %+v", data)
	}
}

func TestAdjustEmitsLowStockOnCrossing(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)

	product := &models.Product{ID: uuid.New(), Slug: "silk-scarf", Title: "Silk Scarf", Category: "accessories", Status: enums.ProductStatusActive}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := seedVariant(t, db, 10, 5)
	if err := db.Model(&models.ProductVariant{}).Where("id = ?", variant.ID).Update("product_id", product.ID).Error; err != nil {
		t.Fatalf("link variant: %v", err)
	}

	// 10 -> 3 crosses the threshold: one low stock alert.
	if _, err := svc.Adjust(context.Background(), AdjustInput{VariantID: variant.ID, Delta: -7, ActorID: uuid.New(), ActorRole: "manager"}); err != nil {
		t.Fatalf("first adjust: %v", err)
	}
	if got := countEvents(t, db, enums.EventLowStockDetected); got != 1 {
		t.Fatalf("low_stock_detected events = %d, want 1", got)
	}

	// 3 -> 2 stays below: no second alert.
	if _, err := svc.Adjust(context.Background(), AdjustInput{VariantID: variant.ID, Delta: -1, ActorID: uuid.New(), ActorRole: "manager"}); err != nil {
		t.Fatalf("second adjust: %v", err)
	}
	if got := countEvents(t, db, enums.EventLowStockDetected); got != 1 {
		t.Fatalf("low_stock_detected events after second adjust = %d, want 1", got)
	}
	if got := countEvents(t, db, enums.EventStockAdjusted); got != 2 {
		t.Fatalf("stock_adjusted events = %d, want 2", got)
	}

	var row models.OutboxEvent
	if err := db.First(&row, "event_type = ?", enums.EventLowStockDetected).Error; err != nil {
		t.Fatalf("load low stock event: %v", err)
	}
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var data struct {
		ProductTitle  string `json:"product_title"`
		StockQuantity int    `json:"stock_quantity"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.ProductTitle != "Silk Scarf" || data.StockQuantity != 3 {
		t.Fatalf("unexpected low stock payload: %+v", data)
	}
}

func TestAdjustRejectsNegativeResult(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	variant := seedVariant(t, db, 2, 5)

	_, err := svc.Adjust(context.Background(), AdjustInput{VariantID: variant.ID, Delta: -5, ActorID: uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// The rejected adjustment must roll back completely.
	var reloaded models.ProductVariant
	if err := db.First(&reloaded, "id = ?", variant.ID).Error; err != nil {
		t.Fatalf("reload variant: %v", err)
	}
	if reloaded.StockQuantity != 2 {
		t.Fatalf("stock = %d, want 2", reloaded.StockQuantity)
	}
	if got := countEvents(t, db, enums.EventStockAdjusted); got != 0 {
		t.Fatalf("stock_adjusted events = %d, want 0", got)
	}
}

func TestAdjustValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input AdjustInput
	}{
		{"missing variant", AdjustInput{Delta: 1}},
		{"zero delta", AdjustInput{VariantID: uuid.New()}},
		{"negative restock", AdjustInput{VariantID: uuid.New(), Delta: -1, Type: enums.InventoryLogTypeRestock}},
		{"sale type reserved", AdjustInput{VariantID: uuid.New(), Delta: -1, Type: enums.InventoryLogTypeSale}},
	}
	for _, tc := range cases {
		_, err := svc.Adjust(ctx, tc.input)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestAdjustVariantNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.Adjust(context.Background(), AdjustInput{VariantID: uuid.New(), Delta: 1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
