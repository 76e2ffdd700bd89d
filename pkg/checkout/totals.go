// Package checkout holds the money math shared by order placement and
// storefront quote previews. All amounts are integer cents; intermediate
// tax math runs on decimals so a fractional cent never leaks into a total.
package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/velora-co/velora-backend/pkg/config"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
)

var basisPointDivisor = decimal.NewFromInt(10000)

// Totals is the full money breakdown for an order.
type Totals struct {
	SubtotalCents int `json:"subtotal_cents"`
	ShippingCents int `json:"shipping_cents"`
	TaxCents      int `json:"tax_cents"`
	TotalCents    int `json:"total_cents"`
}

// TaxCents applies a basis-point rate to the taxable amount, rounding half
// away from zero to the nearest cent.
func TaxCents(taxableCents, rateBasisPoints int) int {
	if taxableCents <= 0 || rateBasisPoints <= 0 {
		return 0
	}
	tax := decimal.NewFromInt(int64(taxableCents)).
		Mul(decimal.NewFromInt(int64(rateBasisPoints))).
		Div(basisPointDivisor)
	return int(tax.Round(0).IntPart())
}

// ShippingCents returns the shipping fee for the chosen method. The free
// shipping threshold applies to standard shipping only; express is always
// charged.
func ShippingCents(method enums.ShippingMethod, subtotalCents int, cfg config.CheckoutConfig) (int, error) {
	switch method {
	case enums.ShippingMethodStandard:
		if cfg.FreeShippingMinCents > 0 && subtotalCents >= cfg.FreeShippingMinCents {
			return 0, nil
		}
		return cfg.StandardShippingCents, nil
	case enums.ShippingMethodExpress:
		return cfg.ExpressShippingCents, nil
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method")
	}
}

// Compute derives the full breakdown from a subtotal. Tax applies to the
// subtotal only, never to shipping.
func Compute(subtotalCents int, method enums.ShippingMethod, cfg config.CheckoutConfig) (Totals, error) {
	if subtotalCents < 0 {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "subtotal cannot be negative")
	}
	shipping, err := ShippingCents(method, subtotalCents, cfg)
	if err != nil {
		return Totals{}, err
	}
	tax := TaxCents(subtotalCents, cfg.TaxRateBasisPoints)
	return Totals{
		SubtotalCents: subtotalCents,
		ShippingCents: shipping,
		TaxCents:      tax,
		TotalCents:    subtotalCents + shipping + tax,
	}, nil
}
