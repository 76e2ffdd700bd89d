package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/velora-co/velora-backend/pkg/enums"
)

// Product represents a storefront listing. Sellable stock lives on its variants.
type Product struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug                string              `gorm:"column:slug;not null;uniqueIndex"`
	Title               string              `gorm:"column:title;not null"`
	Subtitle            *string             `gorm:"column:subtitle"`
	Description         *string             `gorm:"column:description"`
	Category            string              `gorm:"column:category;not null"`
	Tags                pq.StringArray      `gorm:"column:tags;type:text[]"`
	Status              enums.ProductStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	BasePriceCents      int                 `gorm:"column:base_price_cents;not null"`
	CompareAtPriceCents *int                `gorm:"column:compare_at_price_cents"`
	IsFeatured          bool                `gorm:"column:is_featured;not null;default:false"`
	Variants            []ProductVariant    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
