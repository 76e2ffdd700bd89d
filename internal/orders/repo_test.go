package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/internal/testdb"
	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/pagination"
	"github.com/velora-co/velora-backend/pkg/types"
)

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:           uuid.New(),
		OrderNumber:  "VL-20260827-" + uuid.NewString()[:6],
		TrackingCode: "VLT-" + uuid.NewString()[:10],
		UserID:       userID,
		Status:       status,
		Currency:     enums.CurrencyUSD,
		SubtotalCents: 5000,
		ShippingCents: 599,
		TaxCents:      438,
		TotalCents:    6037,
		ShippingMethod: enums.ShippingMethodStandard,
		ShippingAddress: types.Address{
			FullName: "Ada Shopper", Line1: "1 Velora Way", City: "Portland",
			State: "OR", PostalCode: "97201", Country: "US",
		},
		Items: []models.OrderItem{{
			ProductID:      uuid.New(),
			VariantID:      uuid.New(),
			ProductTitle:   "Linen Midi Dress",
			VariantLabel:   "M / black",
			SKU:            "SKU-" + uuid.NewString()[:8],
			UnitPriceCents: 2500,
			Qty:            2,
			TotalCents:     5000,
		}},
		Payment: &models.Payment{
			Method:      enums.PaymentMethodCard,
			Status:      enums.PaymentStatusPending,
			AmountCents: 6037,
			Currency:    enums.CurrencyUSD,
		},
	}
	require.NoError(t, db.Create(order).Error, "seed order")
	return order
}

func TestTransitionStatus(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, uuid.New(), enums.OrderStatusPending)

	require.NoError(t, repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusProcessing, nil))

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusProcessing, reloaded.Status)
}

func TestTransitionStatusWrongCurrentState(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	repo := NewRepository(db)
	order := seedOrder(t, db, uuid.New(), enums.OrderStatusShipped)

	// The order already shipped; a second pending->processing flip must lose.
	err := repo.TransitionStatus(context.Background(), order.ID, enums.OrderStatusPending, enums.OrderStatusProcessing, nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestTransitionStatusMissingOrder(t *testing.T) {
	t.Parallel()

	repo := NewRepository(testdb.Open(t))

	err := repo.TransitionStatus(context.Background(), uuid.New(), enums.OrderStatusPending, enums.OrderStatusProcessing, nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestTransitionStatusIllegalEdge(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	repo := NewRepository(db)
	order := seedOrder(t, db, uuid.New(), enums.OrderStatusPending)

	err := repo.TransitionStatus(context.Background(), order.ID, enums.OrderStatusPending, enums.OrderStatusShipped, nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, reloaded.Status, "status must not change on an illegal edge")
}

func TestListByUserScopesAndPaginates(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()
	mine := uuid.New()
	other := uuid.New()

	for i := 0; i < 3; i++ {
		seedOrder(t, db, mine, enums.OrderStatusPending)
	}
	seedOrder(t, db, other, enums.OrderStatusPending)

	page, err := repo.ListByUser(ctx, mine, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.NotEmpty(t, page.NextCursor)
	for _, summary := range page.Orders {
		assert.Equal(t, 2, summary.ItemCount)
		require.NotNil(t, summary.PaymentStatus)
		assert.Equal(t, enums.PaymentStatusPending, *summary.PaymentStatus)
	}

	rest, err := repo.ListByUser(ctx, mine, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Empty(t, rest.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, summary := range append(page.Orders, rest.Orders...) {
		assert.False(t, seen[summary.ID], "order %s appeared twice", summary.ID)
		seen[summary.ID] = true
	}
}

func TestListAdminStatusFilter(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedOrder(t, db, uuid.New(), enums.OrderStatusPending)
	shipped := seedOrder(t, db, uuid.New(), enums.OrderStatusShipped)

	page, err := repo.ListAdmin(ctx, AdminListFilters{Status: enums.OrderStatusShipped}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, shipped.ID, page.Orders[0].ID)
}
