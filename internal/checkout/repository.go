package checkout

import (
	"context"

	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/pkg/db/models"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
)

// Repository persists the order aggregate produced by checkout.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout repository bound to the provided DB.
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

// CreateOrder inserts the order with its item snapshots and pending payment
// in one go via the association graph.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return nil
}
