package catalog

import (
	"testing"

	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
)

func TestValidateSlug(t *testing.T) {
	valid := []string{"linen-midi-dress", "tee", "v2-bomber-jacket"}
	for _, slug := range valid {
		if err := validateSlug(slug); err != nil {
			t.Errorf("validateSlug(%q) = %v, want nil", slug, err)
		}
	}

	invalid := []string{"", "Has Spaces", "UPPER", "trailing-", "-leading", "dots.not.ok"}
	for _, slug := range invalid {
		err := validateSlug(slug)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Errorf("validateSlug(%q) = %v, want validation error", slug, err)
		}
	}
}

func TestValidateVariantInput(t *testing.T) {
	ok := VariantInput{SKU: "VL-TEE-M-BLK", Size: "M", Color: "black", PriceCents: 2999, InitialStock: 10, LowStockThreshold: 3}
	if err := validateVariantInput(ok); err != nil {
		t.Fatalf("valid variant rejected: %v", err)
	}

	cases := []VariantInput{
		{SKU: "", PriceCents: 100},
		{SKU: "X", PriceCents: -1},
		{SKU: "X", PriceCents: 100, InitialStock: -5},
		{SKU: "X", PriceCents: 100, LowStockThreshold: -1},
	}
	for i, input := range cases {
		err := validateVariantInput(input)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}
