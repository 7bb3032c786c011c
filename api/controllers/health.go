package controllers

import (
	"context"
	"net/http"

	"github.com/mvaldezdev/marketcart-backend/api/responses"
	"github.com/mvaldezdev/marketcart-backend/pkg/config"
	pkgerrors "github.com/mvaldezdev/marketcart-backend/pkg/errors"
	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
)

// Pinger is the health-check surface a dependency exposes.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MarketCart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every backing dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MarketCart-Env", cfg.App.Env)

		status := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				status[name] = "down"
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(status)
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			status[name] = "up"
		}
		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
