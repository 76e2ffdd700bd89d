package catalog

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
)

func mustCreateTestProduct(t *testing.T, tx *gorm.DB) *models.Product {
	t.Helper()
	product := &models.Product{
		Slug:           fmt.Sprintf("test-product-%s", uuid.NewString()),
		Title:          "Test Product",
		Category:       "dresses",
		Tags:           pq.StringArray{"summer", "new"},
		Status:         enums.ProductStatusActive,
		BasePriceCents: 4999,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func mustCreateTestVariant(t *testing.T, tx *gorm.DB, productID uuid.UUID, stock int) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ProductID:         productID,
		SKU:               fmt.Sprintf("SKU-%s", uuid.NewString()),
		Size:              "M",
		Color:             "black",
		PriceCents:        4999,
		StockQuantity:     stock,
		LowStockThreshold: 5,
	}
	if err := tx.Create(variant).Error; err != nil {
		t.Fatalf("create variant: %v", err)
	}
	return variant
}
