package payments

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
)

// Repository owns payment rows. Status flips are guarded by the current
// status: a payment can only be settled, failed, or refunded once.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
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

// FindByOrderID loads the payment attached to an order.
func (r *Repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return &payment, nil
}

// TransitionStatus flips the payment from one status to another together
// with any extra column updates. Zero rows affected surfaces as a state
// conflict carrying the current status.
func (r *Repository) TransitionStatus(ctx context.Context, paymentID uuid.UUID, from, to enums.PaymentStatus, updates map[string]any) error {
	values := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, from).
		Updates(values)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "transition payment")
	}
	if res.RowsAffected == 0 {
		return r.stateConflict(ctx, paymentID, from, to)
	}
	return nil
}

func (r *Repository) stateConflict(ctx context.Context, paymentID uuid.UUID, from, to enums.PaymentStatus) error {
	var current sql.NullString
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Pluck("status", &current).Error
	if err != nil || !current.Valid {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not in the required status").WithDetails(map[string]any{
		"payment_id":      paymentID.String(),
		"current_status":  current.String,
		"expected_status": string(from),
		"target_status":   string(to),
	})
}
