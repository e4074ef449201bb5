package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rockcreekarms/ordersync-backend/api/responses"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit caps how many requests a scope admits per window. Limiter
// errors fall through to the handler so intake keeps accepting orders
// when redis is unavailable.
func RateLimit(limiter rateLimiter, scope string, limit int64, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, _, err := limiter.FixedWindowAllow(r.Context(), scope, limit, window)
			if err != nil {
				if logg != nil {
					logg.Warn(r.Context(), "rate limiter unavailable: "+err.Error())
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
