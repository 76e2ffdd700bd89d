package controllers

import (
	"net/http"

	"github.com/velora-co/velora-backend/api/responses"
	"github.com/velora-co/velora-backend/api/validators"
	"github.com/velora-co/velora-backend/internal/checkout"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/logger"
	"github.com/velora-co/velora-backend/pkg/types"
)

type addressBody struct {
	FullName   string  `json:"full_name" validate:"required,max=120"`
	Line1      string  `json:"line1" validate:"required,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,max=100"`
	State      string  `json:"state" validate:"required,max=100"`
	PostalCode string  `json:"postal_code" validate:"required,max=20"`
	Country    string  `json:"country" validate:"omitempty,max=60"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

type checkoutBody struct {
	ShippingMethod  string       `json:"shipping_method" validate:"required"`
	PaymentMethod   string       `json:"payment_method" validate:"required"`
	ShippingAddress addressBody  `json:"shipping_address" validate:"required"`
	BillingAddress  *addressBody `json:"billing_address,omitempty"`
	CustomerNotes   *string      `json:"customer_notes,omitempty" validate:"omitempty,max=1000"`
}

// Checkout snapshots the caller's cart into a pending order. Stock is
// checked but not decremented; payment settlement moves it.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shippingMethod, err := enums.ParseShippingMethod(body.ShippingMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}
		paymentMethod, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}

		input := checkout.PlaceOrderInput{
			UserID:          actor.UserID,
			ShippingMethod:  shippingMethod,
			PaymentMethod:   paymentMethod,
			ShippingAddress: addressFromBody(body.ShippingAddress),
			CustomerNotes:   body.CustomerNotes,
		}
		if body.BillingAddress != nil {
			billing := addressFromBody(*body.BillingAddress)
			input.BillingAddress = &billing
		}

		result, err := svc.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func addressFromBody(body addressBody) types.Address {
	return types.Address{
		FullName:   body.FullName,
		Line1:      body.Line1,
		Line2:      body.Line2,
		City:       body.City,
		State:      body.State,
		PostalCode: body.PostalCode,
		Country:    body.Country,
		Phone:      body.Phone,
	}
}
