package controllers

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/multierr"

	"github.com/velora-co/velora-backend/api/responses"
	"github.com/velora-co/velora-backend/pkg/config"
	"github.com/velora-co/velora-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness without touching dependencies.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "live",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady pings the database and Redis so load balancers stop routing
// to an instance that lost a dependency.
func HealthReady(cfg *config.Config, database, cache pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		var pingErr error

		if database != nil {
			if err := database.Ping(r.Context()); err != nil {
				checks["database"] = "unreachable"
				pingErr = multierr.Append(pingErr, fmt.Errorf("database: %w", err))
			} else {
				checks["database"] = "ok"
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				checks["redis"] = "unreachable"
				pingErr = multierr.Append(pingErr, fmt.Errorf("redis: %w", err))
			} else {
				checks["redis"] = "ok"
			}
		}

		payload := map[string]any{
			"status": "ready",
			"env":    cfg.App.Env,
			"checks": checks,
		}
		if pingErr != nil {
			if logg != nil {
				logg.Error(r.Context(), "readiness checks failed", pingErr)
			}
			payload["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, payload)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}
