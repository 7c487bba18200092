// Package requesttime pins one "now" per HTTP request so every timestamp a
// command writes to the ledger agrees.
package requesttime

import (
	"net/http"
	"time"

	"flightsurety/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
