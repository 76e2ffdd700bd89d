package inventory

import (
	"context"
	"errors"
	"fmt"

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

// Service exposes staff inventory management: manual corrections,
// movement history, and the replenishment dashboard.
type Service interface {
	Adjust(ctx context.Context, input AdjustInput) (*AdjustResult, error)
	ListLogs(ctx context.Context, variantID uuid.UUID, params pagination.Params) (*LogList, error)
	LowStockReport(ctx context.Context) ([]LowStockRow, error)
}

// AdjustInput captures a manual stock correction by staff.
type AdjustInput struct {
	VariantID uuid.UUID
	Delta     int
	Type      enums.InventoryLogType
	Reason    string
	ActorID   uuid.UUID
	ActorRole string
}

// AdjustResult reports the resulting stock level and derived flags.
type AdjustResult struct {
	VariantID     uuid.UUID `json:"variant_id"`
	StockQuantity int       `json:"stock_quantity"`
	IsLowStock    bool      `json:"is_low_stock"`
	IsOutOfStock  bool      `json:"is_out_of_stock"`
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an inventory service with the required dependencies.
func NewService(repo *Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*AdjustResult, error) {
	if input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta cannot be zero")
	}
	logType := input.Type
	if logType == "" {
		if input.Delta > 0 {
			logType = enums.InventoryLogTypeRestock
		} else {
			logType = enums.InventoryLogTypeAdjustment
		}
	}
	switch logType {
	case enums.InventoryLogTypeRestock, enums.InventoryLogTypeAdjustment:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "type must be restock or adjustment")
	}
	if logType == enums.InventoryLogTypeRestock && input.Delta < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock delta must be positive")
	}

	var result AdjustResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		variant, err := repo.FindVariant(ctx, input.VariantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}
		wasLow := variant.IsLowStock() || variant.IsOutOfStock()

		var reason *string
		if input.Reason != "" {
			r := input.Reason
			reason = &r
		}
		actor := input.ActorID
		stockAfter, err := repo.RecordAdjustment(ctx, Movement{
			VariantID: input.VariantID,
			Type:      logType,
			Reason:    reason,
			ActorID:   &actor,
		}, input.Delta)
		if err != nil {
			return err
		}

		result = AdjustResult{
			VariantID:     input.VariantID,
			StockQuantity: stockAfter,
			IsLowStock:    stockAfter > 0 && stockAfter <= variant.LowStockThreshold,
			IsOutOfStock:  stockAfter == 0,
		}

		actorRef := &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole}
		event := outbox.DomainEvent{
			EventType:     enums.EventStockAdjusted,
			AggregateType: enums.AggregateInventory,
			AggregateID:   input.VariantID,
			Version:       1,
			Actor:         actorRef,
			Data: payloads.StockAdjustedEvent{
				VariantID:      input.VariantID,
				SKU:            variant.SKU,
				Type:           logType,
				QuantityChange: input.Delta,
				StockAfter:     stockAfter,
				Reason:         input.Reason,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		nowLow := stockAfter <= variant.LowStockThreshold
		if nowLow && !wasLow {
			return s.emitLowStock(ctx, tx, repo, variant, stockAfter, actorRef)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) emitLowStock(ctx context.Context, tx *gorm.DB, repo *Repository, variant *models.ProductVariant, stockAfter int, actor *outbox.ActorRef) error {
	var title string
	err := repo.db.WithContext(ctx).
		Table("products").
		Select("title").
		Where("id = ?", variant.ProductID).
		Scan(&title).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product title")
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventLowStockDetected,
		AggregateType: enums.AggregateInventory,
		AggregateID:   variant.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.LowStockDetectedEvent{
			VariantID:         variant.ID,
			SKU:               variant.SKU,
			ProductTitle:      title,
			StockQuantity:     stockAfter,
			LowStockThreshold: variant.LowStockThreshold,
		},
	})
}

func (s *service) ListLogs(ctx context.Context, variantID uuid.UUID, params pagination.Params) (*LogList, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}
	return s.repo.ListLogs(ctx, variantID, params)
}

func (s *service) LowStockReport(ctx context.Context) ([]LowStockRow, error) {
	return s.repo.ListLowStock(ctx)
}
