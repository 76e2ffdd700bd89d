package inventory

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/pagination"
)

// Repository owns every stock movement. Each mutation pairs a guarded
// UPDATE on product_variants with an append-only inventory_logs row, so a
// variant's stock_quantity can always be replayed from its logs.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Movement captures the arguments for one stock mutation.
type Movement struct {
	VariantID uuid.UUID
	Qty       int
	Type      enums.InventoryLogType
	Reason    *string
	ActorID   *uuid.UUID
	OrderID   *uuid.UUID
}

// RecordSale decrements stock for a paid order line. The UPDATE is guarded
// by stock_quantity >= qty so a concurrent confirmation can never drive the
// count negative; zero rows affected means insufficient stock.
func (r *Repository) RecordSale(ctx context.Context, m Movement) (int, error) {
	if m.Qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "sale quantity must be positive")
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE product_variants
		SET stock_quantity = stock_quantity - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_quantity >= ?
	`, m.Qty, m.VariantID, m.Qty)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return 0, insufficientStock(ctx, r.db, m.VariantID, m.Qty)
	}
	return r.appendLog(ctx, m.VariantID, enums.InventoryLogTypeSale, -m.Qty, m.Reason, m.ActorID, m.OrderID)
}

// RecordReturn restores stock for a refunded order line.
func (r *Repository) RecordReturn(ctx context.Context, m Movement) (int, error) {
	if m.Qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "return quantity must be positive")
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE product_variants
		SET stock_quantity = stock_quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, m.Qty, m.VariantID)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore stock")
	}
	if res.RowsAffected == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	return r.appendLog(ctx, m.VariantID, enums.InventoryLogTypeReturn, m.Qty, m.Reason, m.ActorID, m.OrderID)
}

// RecordAdjustment applies a signed manual correction. Negative deltas are
// guarded the same way sales are.
func (r *Repository) RecordAdjustment(ctx context.Context, m Movement, delta int) (int, error) {
	if delta == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta cannot be zero")
	}
	logType := m.Type
	if logType == "" {
		logType = enums.InventoryLogTypeAdjustment
	}
	res := r.db.WithContext(ctx).Exec(`
		UPDATE product_variants
		SET stock_quantity = stock_quantity + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_quantity + ? >= 0
	`, delta, m.VariantID, delta)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust stock")
	}
	if res.RowsAffected == 0 {
		return 0, insufficientStock(ctx, r.db, m.VariantID, -delta)
	}
	return r.appendLog(ctx, m.VariantID, logType, delta, m.Reason, m.ActorID, m.OrderID)
}

func (r *Repository) appendLog(ctx context.Context, variantID uuid.UUID, logType enums.InventoryLogType, change int, reason *string, actorID, orderID *uuid.UUID) (int, error) {
	stockAfter, err := r.currentStock(ctx, variantID)
	if err != nil {
		return 0, err
	}
	row := models.InventoryLog{
		VariantID:      variantID,
		Type:           logType,
		QuantityChange: change,
		StockAfter:     stockAfter,
		Reason:         reason,
		ActorID:        actorID,
		OrderID:        orderID,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append inventory log")
	}
	return stockAfter, nil
}

func (r *Repository) currentStock(ctx context.Context, variantID uuid.UUID) (int, error) {
	var stock int
	err := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Pluck("stock_quantity", &stock).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read stock")
	}
	return stock, nil
}

func insufficientStock(ctx context.Context, db *gorm.DB, variantID uuid.UUID, requested int) error {
	var row struct {
		SKU           sql.NullString
		StockQuantity sql.NullInt64
	}
	err := db.WithContext(ctx).
		Table("product_variants").
		Select("sku, stock_quantity").
		Where("id = ?", variantID).
		Scan(&row).Error
	if err != nil || !row.SKU.Valid {
		return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(map[string]any{
		"variant_id": variantID.String(),
		"sku":        row.SKU.String,
		"available":  row.StockQuantity.Int64,
		"requested":  requested,
	})
}

// FindVariant loads the variant row.
func (r *Repository) FindVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", variantID).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// ListLogs pages a variant's movement history newest-first.
func (r *Repository) ListLogs(ctx context.Context, variantID uuid.UUID, params pagination.Params) (*LogList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Model(&models.InventoryLog{}).
		Where("variant_id = ?", variantID)
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.InventoryLog
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &LogList{Logs: rows, NextCursor: nextCursor}, nil
}

// LogList is one page of inventory history.
type LogList struct {
	Logs       []models.InventoryLog `json:"logs"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

// LowStockRow is one line of the replenishment dashboard.
type LowStockRow struct {
	VariantID         uuid.UUID `json:"variant_id"`
	ProductID         uuid.UUID `json:"product_id"`
	ProductTitle      string    `json:"product_title"`
	SKU               string    `json:"sku"`
	Size              string    `json:"size"`
	Color             string    `json:"color"`
	StockQuantity     int       `json:"stock_quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	OutOfStock        bool      `json:"out_of_stock"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ListLowStock returns every variant at or below its threshold, the most
// depleted first.
func (r *Repository) ListLowStock(ctx context.Context) ([]LowStockRow, error) {
	var rows []LowStockRow
	err := r.db.WithContext(ctx).
		Table("product_variants v").
		Select("v.id AS variant_id, p.id AS product_id, p.title AS product_title, v.sku, v.size, v.color, v.stock_quantity, v.low_stock_threshold, v.stock_quantity = 0 AS out_of_stock, v.updated_at").
		Joins("JOIN products p ON p.id = v.product_id").
		Where("v.stock_quantity <= v.low_stock_threshold").
		Order("v.stock_quantity ASC").
		Order("v.updated_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
