package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"flightsurety/internal/platform/metrics"
	"flightsurety/internal/platform/ratelimiter"
	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/platform/middleware/metadata"
	"flightsurety/pkg/requestcontext"
)

// Throttle applies limiter per caller, falling back to the client IP for
// anonymous requests. A nil limiter lets everything through.
func Throttle(limiter *ratelimiter.MapLimiter, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + metadata.ClientIP(r)
			if caller, ok := requestcontext.Caller(r.Context()); ok {
				key = "caller:" + caller.String()
			}
			if !limiter.Allow(key, time.Now()) {
				route := routePattern(r)
				m.IncrementThrottled(route)
				logger.WarnContext(r.Context(), "request throttled",
					"request_id", GetRequestID(r.Context()),
					"key", key,
					"route", route,
				)
				w.Header().Set("Retry-After", "1")
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.ErrorResponse{
					Error:            "rate_limited",
					ErrorDescription: "too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
