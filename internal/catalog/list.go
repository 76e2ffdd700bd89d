package catalog

import (
	"time"

	"github.com/google/uuid"
)

// ProductListFilters narrows the public catalog listing.
type ProductListFilters struct {
	Category      *string
	Tag           *string
	PriceMinCents *int
	PriceMaxCents *int
	FeaturedOnly  bool
	InStockOnly   bool
	Query         string
}

// ProductSummary is the flattened row returned by catalog listings.
type ProductSummary struct {
	ID                  uuid.UUID `json:"id"`
	Slug                string    `json:"slug"`
	Title               string    `json:"title"`
	Subtitle            *string   `json:"subtitle,omitempty"`
	Category            string    `json:"category"`
	BasePriceCents      int       `json:"base_price_cents"`
	CompareAtPriceCents *int      `json:"compare_at_price_cents,omitempty"`
	IsFeatured          bool      `json:"is_featured"`
	InStock             bool      `json:"in_stock"`
	LowStock            bool      `json:"low_stock"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ProductListResult bundles a page of summaries with the next cursor.
type ProductListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// ListProductsInput carries the pagination and filter inputs for listings.
type ListProductsInput struct {
	Limit   int
	Cursor  string
	Filters ProductListFilters
	// IncludeUnpublished is set for staff views that list drafts too.
	IncludeUnpublished bool
}
