package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
)

// ProductDTO is the transport shape for a full product with its variants.
type ProductDTO struct {
	ID                  uuid.UUID           `json:"id"`
	Slug                string              `json:"slug"`
	Title               string              `json:"title"`
	Subtitle            *string             `json:"subtitle,omitempty"`
	Description         *string             `json:"description,omitempty"`
	Category            string              `json:"category"`
	Tags                []string            `json:"tags"`
	Status              enums.ProductStatus `json:"status"`
	BasePriceCents      int                 `json:"base_price_cents"`
	CompareAtPriceCents *int                `json:"compare_at_price_cents,omitempty"`
	IsFeatured          bool                `json:"is_featured"`
	Variants            []VariantDTO        `json:"variants"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// VariantDTO exposes a sellable variant with its derived stock badges.
type VariantDTO struct {
	ID                uuid.UUID `json:"id"`
	ProductID         uuid.UUID `json:"product_id"`
	SKU               string    `json:"sku"`
	Size              string    `json:"size"`
	Color             string    `json:"color"`
	PriceCents        int       `json:"price_cents"`
	StockQuantity     int       `json:"stock_quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	IsLowStock        bool      `json:"is_low_stock"`
	IsOutOfStock      bool      `json:"is_out_of_stock"`
	Position          int       `json:"position"`
}

// ProductFromModel maps the persisted product (with preloaded variants).
func ProductFromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	variants := make([]VariantDTO, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, VariantFromModel(v))
	}
	return &ProductDTO{
		ID:                  p.ID,
		Slug:                p.Slug,
		Title:               p.Title,
		Subtitle:            p.Subtitle,
		Description:         p.Description,
		Category:            p.Category,
		Tags:                append([]string(nil), p.Tags...),
		Status:              p.Status,
		BasePriceCents:      p.BasePriceCents,
		CompareAtPriceCents: p.CompareAtPriceCents,
		IsFeatured:          p.IsFeatured,
		Variants:            variants,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

// VariantFromModel maps a variant row, deriving the stock badges.
func VariantFromModel(v models.ProductVariant) VariantDTO {
	return VariantDTO{
		ID:                v.ID,
		ProductID:         v.ProductID,
		SKU:               v.SKU,
		Size:              v.Size,
		Color:             v.Color,
		PriceCents:        v.PriceCents,
		StockQuantity:     v.StockQuantity,
		LowStockThreshold: v.LowStockThreshold,
		IsLowStock:        v.IsLowStock(),
		IsOutOfStock:      v.IsOutOfStock(),
		Position:          v.Position,
	}
}
