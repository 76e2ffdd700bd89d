package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseListProductsQueryDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	input, err := parseListProductsQuery(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input.Limit != 25 {
		t.Fatalf("expected default limit 25, got %d", input.Limit)
	}
	if input.Cursor != "" || input.IncludeUnpublished {
		t.Fatalf("expected zero-value cursor and published-only view: %+v", input)
	}
	if input.Filters.Category != nil || input.Filters.Tag != nil {
		t.Fatalf("expected no filters by default: %+v", input.Filters)
	}
}

func TestParseListProductsQueryFilters(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/products?limit=10&category=dresses&tag=summer&price_min_cents=1000&price_max_cents=5000&featured=true&in_stock=1&q=linen", nil)
	input, err := parseListProductsQuery(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input.Limit != 10 {
		t.Fatalf("expected limit 10, got %d", input.Limit)
	}
	f := input.Filters
	if f.Category == nil || *f.Category != "dresses" {
		t.Fatalf("expected category filter, got %+v", f.Category)
	}
	if f.Tag == nil || *f.Tag != "summer" {
		t.Fatalf("expected tag filter, got %+v", f.Tag)
	}
	if f.PriceMinCents == nil || *f.PriceMinCents != 1000 {
		t.Fatalf("expected min price 1000, got %+v", f.PriceMinCents)
	}
	if f.PriceMaxCents == nil || *f.PriceMaxCents != 5000 {
		t.Fatalf("expected max price 5000, got %+v", f.PriceMaxCents)
	}
	if !f.FeaturedOnly || !f.InStockOnly {
		t.Fatalf("expected featured and in-stock flags set: %+v", f)
	}
	if f.Query != "linen" {
		t.Fatalf("expected search query linen, got %q", f.Query)
	}
}

func TestParseListProductsQueryRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=oops", nil)
	if _, err := parseListProductsQuery(req); err == nil {
		t.Fatal("expected error for non-numeric limit")
	}
}
