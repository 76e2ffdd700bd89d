package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/velora-co/velora-backend/api/responses"
	"github.com/velora-co/velora-backend/api/validators"
	"github.com/velora-co/velora-backend/internal/catalog"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/logger"
	"github.com/velora-co/velora-backend/pkg/pagination"
)

// ListProducts serves the public storefront catalog with cursor pagination
// and optional filters. Only published products are visible here.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
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

		result, err := svc.ListProducts(r.Context(), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ProductDetail serves one published product by its storefront slug.
func ProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product slug required"))
			return
		}

		product, err := svc.GetProductBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func parseListProductsQuery(r *http.Request) (*catalog.ListProductsInput, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return nil, err
	}

	query := r.URL.Query()
	filters := catalog.ProductListFilters{
		FeaturedOnly: queryBool(query.Get("featured")),
		InStockOnly:  queryBool(query.Get("in_stock")),
		Query:        validators.SanitizeString(query.Get("q"), 128),
	}
	if v := strings.TrimSpace(query.Get("category")); v != "" {
		filters.Category = &v
	}
	if v := strings.TrimSpace(query.Get("tag")); v != "" {
		filters.Tag = &v
	}
	if query.Get("price_min_cents") != "" {
		min, parseErr := validators.ParseQueryInt(r, "price_min_cents", 0, 0, 100_000_000)
		if parseErr != nil {
			return nil, parseErr
		}
		filters.PriceMinCents = &min
	}
	if query.Get("price_max_cents") != "" {
		max, parseErr := validators.ParseQueryInt(r, "price_max_cents", 0, 0, 100_000_000)
		if parseErr != nil {
			return nil, parseErr
		}
		filters.PriceMaxCents = &max
	}

	return &catalog.ListProductsInput{
		Limit:   limit,
		Cursor:  strings.TrimSpace(query.Get("cursor")),
		Filters: filters,
	}, nil
}

func queryBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
