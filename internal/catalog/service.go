package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/pkg/db"
	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
)

// Service exposes catalog browsing plus staff product management.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*VariantDTO, error)
	UpdateVariant(ctx context.Context, variantID uuid.UUID, input UpdateVariantInput) (*VariantDTO, error)
	DeleteVariant(ctx context.Context, variantID uuid.UUID) error
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Slug                string
	Title               string
	Subtitle            *string
	Description         *string
	Category            string
	Tags                []string
	Status              enums.ProductStatus
	BasePriceCents      int
	CompareAtPriceCents *int
	IsFeatured          bool
	Variants            []VariantInput
}

// VariantInput defines one sellable variant at product creation.
type VariantInput struct {
	SKU               string
	Size              string
	Color             string
	PriceCents        int
	InitialStock      int
	LowStockThreshold int
	Position          int
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Slug                *string
	Title               *string
	Subtitle            *string
	Description         *string
	Category            *string
	Tags                *[]string
	Status              *enums.ProductStatus
	BasePriceCents      *int
	CompareAtPriceCents *int
	IsFeatured          *bool
}

// UpdateVariantInput holds optional mutation values for a variant.
// Stock is deliberately absent; stock moves through the inventory service.
type UpdateVariantInput struct {
	SKU               *string
	Size              *string
	Color             *string
	PriceCents        *int
	LowStockThreshold *int
	Position          *int
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	return s.repo.ListProductSummaries(ctx, input)
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	product, err := s.repo.FindDetailBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return ProductFromModel(product), nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateSlug(input.Slug); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.BasePriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
	}
	status := input.Status
	if status == "" {
		status = enums.ProductStatusDraft
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
	}
	for _, v := range input.Variants {
		if err := validateVariantInput(v); err != nil {
			return nil, err
		}
	}

	var createdID uuid.UUID
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product := &models.Product{
			Slug:                strings.TrimSpace(input.Slug),
			Title:               strings.TrimSpace(input.Title),
			Subtitle:            input.Subtitle,
			Description:         input.Description,
			Category:            strings.TrimSpace(input.Category),
			Tags:                pq.StringArray(input.Tags),
			Status:              status,
			BasePriceCents:      input.BasePriceCents,
			CompareAtPriceCents: input.CompareAtPriceCents,
			IsFeatured:          input.IsFeatured,
		}
		for _, v := range input.Variants {
			product.Variants = append(product.Variants, models.ProductVariant{
				SKU:               strings.TrimSpace(v.SKU),
				Size:              v.Size,
				Color:             v.Color,
				PriceCents:        v.PriceCents,
				StockQuantity:     v.InitialStock,
				LowStockThreshold: v.LowStockThreshold,
				Position:          v.Position,
			})
		}

		created, err := txRepo.CreateProduct(ctx, product)
		if err != nil {
			if db.IsUniqueViolation(err, "ux_products_slug") {
				return pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
		}
		createdID = created.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.repo.FindDetailByID(ctx, createdID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
	}
	return ProductFromModel(detail), nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.Slug != nil {
		if err := validateSlug(*input.Slug); err != nil {
			return nil, err
		}
		product.Slug = strings.TrimSpace(*input.Slug)
	}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		product.Title = strings.TrimSpace(*input.Title)
	}
	if input.Subtitle != nil {
		product.Subtitle = input.Subtitle
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.Tags != nil {
		product.Tags = pq.StringArray(*input.Tags)
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
		}
		product.Status = *input.Status
	}
	if input.BasePriceCents != nil {
		if *input.BasePriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
		}
		product.BasePriceCents = *input.BasePriceCents
	}
	if input.CompareAtPriceCents != nil {
		product.CompareAtPriceCents = input.CompareAtPriceCents
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}

	if _, err := s.repo.UpdateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "ux_products_slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	detail, err := s.repo.FindDetailByID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
	}
	return ProductFromModel(detail), nil
}

func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*VariantDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if err := validateVariantInput(input); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	variant := &models.ProductVariant{
		ProductID:         productID,
		SKU:               strings.TrimSpace(input.SKU),
		Size:              input.Size,
		Color:             input.Color,
		PriceCents:        input.PriceCents,
		StockQuantity:     input.InitialStock,
		LowStockThreshold: input.LowStockThreshold,
		Position:          input.Position,
	}
	created, err := s.repo.CreateVariant(ctx, variant)
	if err != nil {
		if db.IsUniqueViolation(err, "ux_product_variants_sku") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert variant")
	}
	dto := VariantFromModel(*created)
	return &dto, nil
}

func (s *service) UpdateVariant(ctx context.Context, variantID uuid.UUID, input UpdateVariantInput) (*VariantDTO, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}

	updates := map[string]any{}
	if input.SKU != nil {
		if strings.TrimSpace(*input.SKU) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
		}
		updates["sku"] = strings.TrimSpace(*input.SKU)
	}
	if input.Size != nil {
		updates["size"] = *input.Size
	}
	if input.Color != nil {
		updates["color"] = *input.Color
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price_cents"] = *input.PriceCents
	}
	if input.LowStockThreshold != nil {
		if *input.LowStockThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "low stock threshold cannot be negative")
		}
		updates["low_stock_threshold"] = *input.LowStockThreshold
	}
	if input.Position != nil {
		updates["position"] = *input.Position
	}

	if _, err := s.repo.FindVariantByID(ctx, variantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}

	if err := s.repo.UpdateVariant(ctx, variantID, updates); err != nil {
		if db.IsUniqueViolation(err, "ux_product_variants_sku") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update variant")
	}

	variant, err := s.repo.FindVariantByID(ctx, variantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload variant")
	}
	dto := VariantFromModel(*variant)
	return &dto, nil
}

func (s *service) DeleteVariant(ctx context.Context, variantID uuid.UUID) error {
	if variantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}
	if _, err := s.repo.FindVariantByID(ctx, variantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if err := s.repo.DeleteVariant(ctx, variantID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete variant")
	}
	return nil
}

func validateSlug(slug string) error {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	// Uppercase is rejected, not folded: the stored slug must match what
	// the caller sent so the URL they build from it resolves.
	if !slugPattern.MatchString(trimmed) {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug must be lowercase letters, digits, and hyphens")
	}
	return nil
}

func validateVariantInput(v VariantInput) error {
	if strings.TrimSpace(v.SKU) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant sku is required")
	}
	if v.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant price cannot be negative")
	}
	if v.InitialStock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant stock cannot be negative")
	}
	if v.LowStockThreshold < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "low stock threshold cannot be negative")
	}
	return nil
}
