package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/pkg/config"
	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
)

type catalogReader interface {
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	FindVariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProductVariant, error)
	FindVariantProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Service exposes the customer cart operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartView, error)
	UpdateQty(ctx context.Context, userID uuid.UUID, variantID uuid.UUID, qty int) (*CartView, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, variantID uuid.UUID) (*CartView, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// AddItemInput adds qty units of a variant to the cart, merging with an
// existing line for the same variant.
type AddItemInput struct {
	VariantID uuid.UUID `json:"variant_id"`
	Qty       int       `json:"qty"`
}

// CartLineView is one cart line priced against the current catalog.
type CartLineView struct {
	VariantID      uuid.UUID `json:"variant_id"`
	ProductID      uuid.UUID `json:"product_id"`
	ProductTitle   string    `json:"product_title"`
	ProductSlug    string    `json:"product_slug"`
	SKU            string    `json:"sku"`
	Size           string    `json:"size"`
	Color          string    `json:"color"`
	Qty            int       `json:"qty"`
	UnitPriceCents int       `json:"unit_price_cents"`
	LineTotalCents int       `json:"line_total_cents"`
	IsLowStock     bool      `json:"is_low_stock"`
	IsOutOfStock   bool      `json:"is_out_of_stock"`
	Unavailable    bool      `json:"unavailable"`
}

// CartView is the full cart as returned to the storefront. Unavailable
// lines stay visible but never count toward the subtotal.
type CartView struct {
	Lines         []CartLineView `json:"lines"`
	ItemCount     int            `json:"item_count"`
	SubtotalCents int            `json:"subtotal_cents"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type service struct {
	store    *Store
	catalog  catalogReader
	maxLines int
}

// NewService builds a cart service backed by Redis storage and catalog reads.
func NewService(store *Store, catalog catalogReader, cfg config.CartConfig) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	maxLines := cfg.MaxLines
	if maxLines <= 0 {
		maxLines = 100
	}
	return &service{store: store, catalog: catalog, maxLines: maxLines}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartView, error) {
	if input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	variant, _, err := s.loadSellable(ctx, input.VariantID)
	if err != nil {
		return nil, err
	}

	cart, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := lineIndex(cart, input.VariantID)
	requested := input.Qty
	if idx >= 0 {
		requested += cart.Lines[idx].Qty
	}
	if requested > variant.StockQuantity {
		return nil, insufficientStock(variant, requested)
	}

	if idx >= 0 {
		cart.Lines[idx].Qty = requested
	} else {
		if len(cart.Lines) >= s.maxLines {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line limit reached")
		}
		cart.Lines = append(cart.Lines, Line{
			VariantID: input.VariantID,
			Qty:       input.Qty,
			AddedAt:   time.Now().UTC(),
		})
	}

	if err := s.store.Save(ctx, userID, cart); err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

func (s *service) UpdateQty(ctx context.Context, userID uuid.UUID, variantID uuid.UUID, qty int) (*CartView, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if qty == 0 {
		return s.RemoveItem(ctx, userID, variantID)
	}

	cart, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := lineIndex(cart, variantID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not in cart")
	}

	variant, _, err := s.loadSellable(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if qty > variant.StockQuantity {
		return nil, insufficientStock(variant, qty)
	}

	cart.Lines[idx].Qty = qty
	if err := s.store.Save(ctx, userID, cart); err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, variantID uuid.UUID) (*CartView, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	cart, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := lineIndex(cart, variantID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not in cart")
	}
	cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)

	if len(cart.Lines) == 0 {
		if err := s.store.Clear(ctx, userID); err != nil {
			return nil, err
		}
		return &CartView{Lines: []CartLineView{}}, nil
	}
	if err := s.store.Save(ctx, userID, cart); err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.store.Clear(ctx, userID)
}

func (s *service) loadSellable(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, *models.Product, error) {
	variant, err := s.catalog.FindVariantByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	products, err := s.catalog.FindVariantProducts(ctx, []uuid.UUID{variant.ProductID})
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	product, ok := products[variant.ProductID]
	if !ok {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if product.Status != enums.ProductStatusActive {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	return variant, &product, nil
}

func (s *service) buildView(ctx context.Context, cart *Cart) (*CartView, error) {
	view := &CartView{Lines: []CartLineView{}, UpdatedAt: cart.UpdatedAt}
	if len(cart.Lines) == 0 {
		return view, nil
	}

	ids := make([]uuid.UUID, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		ids = append(ids, line.VariantID)
	}
	variants, err := s.catalog.FindVariantsByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variants")
	}

	productIDs := make([]uuid.UUID, 0, len(variants))
	for _, v := range variants {
		productIDs = append(productIDs, v.ProductID)
	}
	products, err := s.catalog.FindVariantProducts(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	for _, line := range cart.Lines {
		variant, ok := variants[line.VariantID]
		if !ok {
			view.Lines = append(view.Lines, CartLineView{VariantID: line.VariantID, Qty: line.Qty, Unavailable: true})
			continue
		}
		product, ok := products[variant.ProductID]
		unavailable := !ok || product.Status != enums.ProductStatusActive

		lineView := CartLineView{
			VariantID:      variant.ID,
			ProductID:      variant.ProductID,
			SKU:            variant.SKU,
			Size:           variant.Size,
			Color:          variant.Color,
			Qty:            line.Qty,
			UnitPriceCents: variant.PriceCents,
			LineTotalCents: variant.PriceCents * line.Qty,
			IsLowStock:     variant.IsLowStock(),
			IsOutOfStock:   variant.IsOutOfStock(),
			Unavailable:    unavailable,
		}
		if ok {
			lineView.ProductTitle = product.Title
			lineView.ProductSlug = product.Slug
		}
		view.Lines = append(view.Lines, lineView)

		if !unavailable {
			view.ItemCount += line.Qty
			view.SubtotalCents += lineView.LineTotalCents
		}
	}
	return view, nil
}

func lineIndex(cart *Cart, variantID uuid.UUID) int {
	for i, line := range cart.Lines {
		if line.VariantID == variantID {
			return i
		}
	}
	return -1
}

func insufficientStock(variant *models.ProductVariant, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(map[string]any{
		"variant_id": variant.ID.String(),
		"sku":        variant.SKU,
		"available":  variant.StockQuantity,
		"requested":  requested,
	})
}
