package catalog

import (
	"context"
	"testing"

	"gorm.io/gorm"
)

func TestListProductSummariesStockBadges(t *testing.T) {
	conn := openTestDB(t)

	err := conn.Transaction(func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		ctx := context.Background()

		inStock := mustCreateTestProduct(t, tx)
		mustCreateTestVariant(t, tx, inStock.ID, 50)

		low := mustCreateTestProduct(t, tx)
		mustCreateTestVariant(t, tx, low.ID, 3)

		out := mustCreateTestProduct(t, tx)
		mustCreateTestVariant(t, tx, out.ID, 0)

		result, err := repo.ListProductSummaries(ctx, ListProductsInput{Limit: 50})
		if err != nil {
			t.Fatalf("list products: %v", err)
		}

		found := map[string]ProductSummary{}
		for _, p := range result.Products {
			found[p.Slug] = p
		}

		if s, ok := found[inStock.Slug]; !ok || !s.InStock || s.LowStock {
			t.Errorf("in-stock product badges wrong: %+v", s)
		}
		if s, ok := found[low.Slug]; !ok || !s.InStock || !s.LowStock {
			t.Errorf("low-stock product badges wrong: %+v", s)
		}
		if s, ok := found[out.Slug]; !ok || s.InStock {
			t.Errorf("out-of-stock product badges wrong: %+v", s)
		}

		return gorm.ErrRecordNotFound // force rollback
	})
	if err != gorm.ErrRecordNotFound {
		t.Fatalf("transaction: %v", err)
	}
}

func TestListProductSummariesPagination(t *testing.T) {
	conn := openTestDB(t)

	err := conn.Transaction(func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			p := mustCreateTestProduct(t, tx)
			mustCreateTestVariant(t, tx, p.ID, 10)
		}

		first, err := repo.ListProductSummaries(ctx, ListProductsInput{Limit: 2})
		if err != nil {
			t.Fatalf("first page: %v", err)
		}
		if len(first.Products) != 2 {
			t.Fatalf("expected 2 products, got %d", len(first.Products))
		}
		if first.NextCursor == "" {
			t.Fatal("expected next cursor")
		}

		second, err := repo.ListProductSummaries(ctx, ListProductsInput{Limit: 2, Cursor: first.NextCursor})
		if err != nil {
			t.Fatalf("second page: %v", err)
		}
		for _, a := range first.Products {
			for _, b := range second.Products {
				if a.ID == b.ID {
					t.Fatalf("product %s appeared on both pages", a.ID)
				}
			}
		}

		return gorm.ErrRecordNotFound
	})
	if err != gorm.ErrRecordNotFound {
		t.Fatalf("transaction: %v", err)
	}
}
