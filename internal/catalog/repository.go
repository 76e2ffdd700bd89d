package catalog

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	"github.com/velora-co/velora-backend/pkg/pagination"
)

// Repository wires together product and variant persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindDetailBySlug fetches a product with its variants ordered by position.
func (r *Repository) FindDetailBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&product, "slug = ?", slug).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindDetailByID fetches a product with its variants ordered by position.
func (r *Repository) FindDetailByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a new product row (with any attached variants).
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct updates an existing product row.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product by ID. Variants cascade.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// CreateVariant inserts a variant row.
func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if err := r.db.WithContext(ctx).Create(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

// UpdateVariant applies the provided column updates to the variant row.
// Stock is never written through here; all stock movement goes through
// the inventory package so every change leaves a log row.
func (r *Repository) UpdateVariant(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	delete(updates, "stock_quantity")
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteVariant removes a variant by ID.
func (r *Repository) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProductVariant{}).Error
}

// FindVariantByID loads a single variant.
func (r *Repository) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindVariantsByIDs loads the requested variants keyed by ID.
func (r *Repository) FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]models.ProductVariant{}, nil
	}
	var rows []models.ProductVariant
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.ProductVariant, len(rows))
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// FindVariantProducts loads the products owning the given variants.
func (r *Repository) FindVariantProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	if len(productIDs) == 0 {
		return map[uuid.UUID]models.Product{}, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", productIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// ListProductSummaries pages through the catalog newest-first with a
// (created_at, id) keyset cursor.
func (r *Repository) ListProductSummaries(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	pageSize := pagination.NormalizeLimit(input.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(input.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, err
	}

	inStockClause := "EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = p.id AND v.stock_quantity > 0)"
	lowStockClause := "EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = p.id AND v.stock_quantity > 0 AND v.stock_quantity <= v.low_stock_threshold)"

	qb := r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join([]string{
			"p.id",
			"p.slug",
			"p.title",
			"p.subtitle",
			"p.category",
			"p.base_price_cents",
			"p.compare_at_price_cents",
			"p.is_featured",
			"p.created_at",
			"p.updated_at",
			inStockClause + " AS in_stock",
			lowStockClause + " AS low_stock",
		}, ", "))

	if !input.IncludeUnpublished {
		qb = qb.Where("p.status = ?", enums.ProductStatusActive)
	}

	filter := input.Filters
	if filter.Category != nil {
		qb = qb.Where("p.category = ?", *filter.Category)
	}
	if filter.Tag != nil {
		qb = qb.Where("? = ANY(p.tags)", *filter.Tag)
	}
	if filter.PriceMinCents != nil {
		qb = qb.Where("p.base_price_cents >= ?", *filter.PriceMinCents)
	}
	if filter.PriceMaxCents != nil {
		qb = qb.Where("p.base_price_cents <= ?", *filter.PriceMaxCents)
	}
	if filter.FeaturedOnly {
		qb = qb.Where("p.is_featured = ?", true)
	}
	if filter.InStockOnly {
		qb = qb.Where(inStockClause)
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(p.title) LIKE ? OR LOWER(p.slug) LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("p.created_at DESC").Order("p.id DESC").Limit(limitWithBuffer)

	var records []productSummaryRecord
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > pageSize {
		resultRows = records[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]ProductSummary, 0, len(resultRows))
	for _, record := range resultRows {
		summaries = append(summaries, record.toSummary())
	}

	return &ProductListResult{
		Products:   summaries,
		NextCursor: nextCursor,
	}, nil
}

type productSummaryRecord struct {
	ID                  uuid.UUID
	Slug                string
	Title               string
	Subtitle            sql.NullString
	Category            string
	BasePriceCents      int
	CompareAtPriceCents sql.NullInt64
	IsFeatured          bool
	InStock             bool
	LowStock            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (r productSummaryRecord) toSummary() ProductSummary {
	return ProductSummary{
		ID:                  r.ID,
		Slug:                r.Slug,
		Title:               r.Title,
		Subtitle:            nullStringPtr(r.Subtitle),
		Category:            r.Category,
		BasePriceCents:      r.BasePriceCents,
		CompareAtPriceCents: nullIntPtr(r.CompareAtPriceCents),
		IsFeatured:          r.IsFeatured,
		InStock:             r.InStock,
		LowStock:            r.LowStock,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func nullIntPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}
