// Package testutil holds helpers shared by handler and middleware tests.
package testutil

import (
	"net/http"

	id "flightsurety/pkg/domain"
	"flightsurety/pkg/requestcontext"
)

// WithCaller attaches account to the request context the way the caller
// middleware does for authenticated requests.
func WithCaller(req *http.Request, account id.AccountID) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), account))
}
