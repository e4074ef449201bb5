package controllers

import (
	"net/http"

	"github.com/rockcreekarms/ordersync-backend/api/responses"
	"github.com/rockcreekarms/ordersync-backend/pkg/config"
	"github.com/rockcreekarms/ordersync-backend/pkg/db"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
	"github.com/rockcreekarms/ordersync-backend/pkg/redis"
)

const envHeader = "X-OrderSync-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the database and redis both answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database not ready"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis not ready"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
