package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/requestcontext"
)

// DevCallerHeader names the header accepted in place of a bearer token when
// development identities are enabled.
const DevCallerHeader = "X-Caller-ID"

// Authenticator resolves a bearer token to the account that holds it.
type Authenticator interface {
	Authenticate(tokenString string) (id.AccountID, error)
}

// RequireCaller attaches the calling account to the request context. With
// devHeader set, a raw account ID in X-Caller-ID is trusted when no bearer
// token is present.
func RequireCaller(auth Authenticator, devHeader bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				caller, err := auth.Authenticate(strings.TrimSpace(token))
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", requestID,
					)
					httputil.WriteError(w, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
				return
			}

			if devHeader {
				if raw := r.Header.Get(DevCallerHeader); raw != "" {
					caller, err := id.ParseAccountID(raw)
					if err != nil {
						httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid caller header"))
						return
					}
					next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
					return
				}
			}

			logger.WarnContext(ctx, "unauthorized access - missing token",
				"request_id", requestID,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
		})
	}
}
