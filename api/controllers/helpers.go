package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/velora-co/velora-backend/api/middleware"
	"github.com/velora-co/velora-backend/internal/orders"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
)

// actorFromContext rebuilds the authenticated actor from the claims the
// auth middleware stashed in the request context.
func actorFromContext(r *http.Request) (orders.Actor, error) {
	rawID := middleware.UserIDFromContext(r.Context())
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing authenticated user")
	}
	return orders.Actor{
		UserID: userID,
		Role:   enums.UserRole(middleware.RoleFromContext(r.Context())),
	}, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name).
			WithDetails(map[string]any{name: raw})
	}
	return id, nil
}

func parseBearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	token := raw
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}
