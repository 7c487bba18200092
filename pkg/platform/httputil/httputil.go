// Package httputil writes JSON responses and coded error envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "flightsurety/pkg/domain-errors"
)

// ErrorResponse is the envelope every failed request receives.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a coded error onto its HTTP status and envelope. Internal
// errors never expose their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)

	resp := ErrorResponse{Error: string(code)}
	var de *dErrors.Error
	if status != http.StatusInternalServerError && errors.As(err, &de) {
		resp.ErrorDescription = de.Message
	}
	WriteJSON(w, status, resp)
}

// StatusFor returns the HTTP status for code.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest,
		dErrors.CodeValidation,
		dErrors.CodeInvalidInput,
		dErrors.CodeInsufficientFee,
		dErrors.CodeInsufficientFunds,
		dErrors.CodePremiumExceedsCeiling,
		dErrors.CodeInvalidStatusCode:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden,
		dErrors.CodeCallerNotFunded,
		dErrors.CodeNotEntitled:
		return http.StatusForbidden
	case dErrors.CodeNotFound,
		dErrors.CodeUnknownFlight,
		dErrors.CodeNoSuchOpenRequest,
		dErrors.CodeNotRegistered:
		return http.StatusNotFound
	case dErrors.CodeConflict,
		dErrors.CodeInvariantViolation,
		dErrors.CodeAlreadyRegistered,
		dErrors.CodeFlightFinalized,
		dErrors.CodeNothingToWithdraw:
		return http.StatusConflict
	case dErrors.CodeNotOperational,
		dErrors.CodeLedgerUnavailable,
		dErrors.CodeTallyUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
