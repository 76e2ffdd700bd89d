package controllers

import (
	"net/http"

	"github.com/velora-co/velora-backend/api/responses"
	"github.com/velora-co/velora-backend/api/validators"
	"github.com/velora-co/velora-backend/internal/catalog"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/logger"
)

type variantBody struct {
	SKU               string `json:"sku" validate:"required"`
	Size              string `json:"size" validate:"required"`
	Color             string `json:"color" validate:"required"`
	PriceCents        int    `json:"price_cents" validate:"required,gt=0"`
	InitialStock      int    `json:"initial_stock" validate:"gte=0"`
	LowStockThreshold int    `json:"low_stock_threshold" validate:"gte=0"`
	Position          int    `json:"position" validate:"gte=0"`
}

type createProductBody struct {
	Slug                string        `json:"slug" validate:"required,max=160"`
	Title               string        `json:"title" validate:"required,max=200"`
	Subtitle            *string       `json:"subtitle,omitempty"`
	Description         *string       `json:"description,omitempty"`
	Category            string        `json:"category" validate:"required"`
	Tags                []string      `json:"tags,omitempty"`
	Status              string        `json:"status" validate:"required"`
	BasePriceCents      int           `json:"base_price_cents" validate:"required,gt=0"`
	CompareAtPriceCents *int          `json:"compare_at_price_cents,omitempty"`
	IsFeatured          bool          `json:"is_featured"`
	Variants            []variantBody `json:"variants" validate:"omitempty,dive"`
}

type updateProductBody struct {
	Slug                *string   `json:"slug,omitempty" validate:"omitempty,max=160"`
	Title               *string   `json:"title,omitempty" validate:"omitempty,max=200"`
	Subtitle            *string   `json:"subtitle,omitempty"`
	Description         *string   `json:"description,omitempty"`
	Category            *string   `json:"category,omitempty"`
	Tags                *[]string `json:"tags,omitempty"`
	Status              *string   `json:"status,omitempty"`
	BasePriceCents      *int      `json:"base_price_cents,omitempty" validate:"omitempty,gt=0"`
	CompareAtPriceCents *int      `json:"compare_at_price_cents,omitempty"`
	IsFeatured          *bool     `json:"is_featured,omitempty"`
}

type updateVariantBody struct {
	SKU               *string `json:"sku,omitempty"`
	Size              *string `json:"size,omitempty"`
	Color             *string `json:"color,omitempty"`
	PriceCents        *int    `json:"price_cents,omitempty" validate:"omitempty,gt=0"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
	Position          *int    `json:"position,omitempty" validate:"omitempty,gte=0"`
}

// AdminListProducts is the staff catalog listing; drafts and archived
// products are included.
func AdminListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		input, err := parseListProductsQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.IncludeUnpublished = true

		result, err := svc.ListProducts(r.Context(), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AdminCreateProduct creates a product, optionally with its variants.
func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var body createProductBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseProductStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}

		input := catalog.CreateProductInput{
			Slug:                body.Slug,
			Title:               body.Title,
			Subtitle:            body.Subtitle,
			Description:         body.Description,
			Category:            body.Category,
			Tags:                body.Tags,
			Status:              status,
			BasePriceCents:      body.BasePriceCents,
			CompareAtPriceCents: body.CompareAtPriceCents,
			IsFeatured:          body.IsFeatured,
		}
		for _, v := range body.Variants {
			input.Variants = append(input.Variants, variantInputFromBody(v))
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateProduct applies a partial update to a product.
func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProductBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateProductInput{
			Slug:                body.Slug,
			Title:               body.Title,
			Subtitle:            body.Subtitle,
			Description:         body.Description,
			Category:            body.Category,
			Tags:                body.Tags,
			BasePriceCents:      body.BasePriceCents,
			CompareAtPriceCents: body.CompareAtPriceCents,
			IsFeatured:          body.IsFeatured,
		}
		if body.Status != nil {
			status, parseErr := enums.ParseProductStatus(*body.Status)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, parseErr.Error()))
				return
			}
			input.Status = &status
		}

		product, err := svc.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct archives a product so it disappears from the storefront.
func AdminDeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AdminAddVariant adds a sellable variant to an existing product.
func AdminAddVariant(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body variantBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.AddVariant(r.Context(), productID, variantInputFromBody(body))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, variant)
	}
}

// AdminUpdateVariant applies a partial update to a variant. Stock never
// moves through this endpoint; staff use the inventory adjustment instead.
func AdminUpdateVariant(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		variantID, err := uuidParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateVariantBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.UpdateVariant(r.Context(), variantID, catalog.UpdateVariantInput{
			SKU:               body.SKU,
			Size:              body.Size,
			Color:             body.Color,
			PriceCents:        body.PriceCents,
			LowStockThreshold: body.LowStockThreshold,
			Position:          body.Position,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, variant)
	}
}

// AdminDeleteVariant removes a variant from sale.
func AdminDeleteVariant(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		variantID, err := uuidParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteVariant(r.Context(), variantID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func variantInputFromBody(body variantBody) catalog.VariantInput {
	return catalog.VariantInput{
		SKU:               body.SKU,
		Size:              body.Size,
		Color:             body.Color,
		PriceCents:        body.PriceCents,
		InitialStock:      body.InitialStock,
		LowStockThreshold: body.LowStockThreshold,
		Position:          body.Position,
	}
}
