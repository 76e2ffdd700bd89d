package controllers

import (
	"net/http"

	"github.com/velora-co/velora-backend/api/responses"
	"github.com/velora-co/velora-backend/api/validators"
	"github.com/velora-co/velora-backend/internal/inventory"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/logger"
)

type adjustStockBody struct {
	Delta  int    `json:"delta" validate:"required"`
	Type   string `json:"type" validate:"required"`
	Reason string `json:"reason" validate:"required,max=500"`
}

// AdminAdjustStock applies a manual stock correction and writes the
// movement to the inventory log.
func AdminAdjustStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variantID, err := uuidParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adjustStockBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		logType, err := enums.ParseInventoryLogType(body.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}

		result, err := svc.Adjust(r.Context(), inventory.AdjustInput{
			VariantID: variantID,
			Delta:     body.Delta,
			Type:      logType,
			Reason:    body.Reason,
			ActorID:   actor.UserID,
			ActorRole: string(actor.Role),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AdminInventoryLogs pages the movement history for one variant.
func AdminInventoryLogs(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		variantID, err := uuidParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		logs, err := svc.ListLogs(r.Context(), variantID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, logs)
	}
}

// AdminLowStockReport lists variants at or below their low stock threshold.
func AdminLowStockReport(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		rows, err := svc.LowStockReport(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"variants": rows})
	}
}
