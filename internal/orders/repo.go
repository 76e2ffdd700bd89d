package orders

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

// Repository reads and transitions orders. Status flips are guarded by the
// current status so concurrent transitions lose cleanly instead of
// overwriting each other.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
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

// FindByID loads the full order aggregate.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByOrderNumber loads the full order aggregate by its customer-facing
// reference.
func (r *Repository) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		First(&order, "order_number = ?", orderNumber).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByTrackingCode loads the order behind a public tracking reference,
// items included so the tracking view can list the package contents.
func (r *Repository) FindByTrackingCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "tracking_code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionStatus flips the order from one status to another, applying any
// extra column updates in the same guarded UPDATE. Zero rows affected means
// the order moved on (or never existed) and surfaces as a state conflict.
func (r *Repository) TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, updates map[string]any) error {
	if !from.CanTransitionTo(to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "illegal order transition").WithDetails(map[string]any{
			"from": string(from),
			"to":   string(to),
		})
	}
	values := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(values)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "transition order")
	}
	if res.RowsAffected == 0 {
		return r.stateConflict(ctx, orderID, from, to)
	}
	return nil
}

func (r *Repository) stateConflict(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) error {
	var current sql.NullString
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Pluck("status", &current).Error
	if err != nil || !current.Valid {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in the required status").WithDetails(map[string]any{
		"order_id":        orderID.String(),
		"current_status":  current.String,
		"expected_status": string(from),
		"target_status":   string(to),
	})
}

// AdminListFilters narrows the staff order list.
type AdminListFilters struct {
	Status enums.OrderStatus
	UserID uuid.UUID
}

// ListByUser pages a customer's own orders newest-first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return r.list(ctx, AdminListFilters{UserID: userID}, params)
}

// ListAdmin pages all orders with optional filters, newest-first.
func (r *Repository) ListAdmin(ctx context.Context, filters AdminListFilters, params pagination.Params) (*OrderList, error) {
	return r.list(ctx, filters, params)
}

type orderSummaryRecord struct {
	ID            uuid.UUID      `gorm:"column:id"`
	OrderNumber   string         `gorm:"column:order_number"`
	Status        string         `gorm:"column:status"`
	Currency      string         `gorm:"column:currency"`
	TotalCents    int            `gorm:"column:total_cents"`
	ItemCount     int            `gorm:"column:item_count"`
	PaymentStatus sql.NullString `gorm:"column:payment_status"`
	CreatedAt     time.Time      `gorm:"column:created_at"`
}

func (rec orderSummaryRecord) toSummary() OrderSummary {
	summary := OrderSummary{
		ID:          rec.ID,
		OrderNumber: rec.OrderNumber,
		Status:      enums.OrderStatus(rec.Status),
		Currency:    enums.Currency(rec.Currency),
		TotalCents:  rec.TotalCents,
		ItemCount:   rec.ItemCount,
		CreatedAt:   rec.CreatedAt,
	}
	if rec.PaymentStatus.Valid {
		status := enums.PaymentStatus(rec.PaymentStatus.String)
		summary.PaymentStatus = &status
	}
	return summary
}

func (r *Repository) list(ctx context.Context, filters AdminListFilters, params pagination.Params) (*OrderList, error) {
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
		Table("orders o").
		Select(`o.id, o.order_number, o.status, o.currency, o.total_cents, o.created_at,
			(SELECT COALESCE(SUM(oi.qty), 0) FROM order_items oi WHERE oi.order_id = o.id) AS item_count,
			p.status AS payment_status`).
		Joins("LEFT JOIN payments p ON p.order_id = o.id")

	if filters.UserID != uuid.Nil {
		qb = qb.Where("o.user_id = ?", filters.UserID)
	}
	if filters.Status != "" {
		qb = qb.Where("o.status = ?", filters.Status)
	}
	if cursor != nil {
		qb = qb.Where("(o.created_at < ?) OR (o.created_at = ? AND o.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var records []orderSummaryRecord
	if err := qb.Order("o.created_at DESC").Order("o.id DESC").Limit(limitWithBuffer).Scan(&records).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	nextCursor := ""
	if len(records) > pageSize {
		records = records[:pageSize]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]OrderSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, rec.toSummary())
	}
	return &OrderList{Orders: summaries, NextCursor: nextCursor}, nil
}
