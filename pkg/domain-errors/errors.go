// Package domainerrors carries coded errors across service boundaries.
//
// Services return errors built with New or Wrap so transports can translate
// them without string matching:
//
//	if dErrors.HasCode(err, dErrors.CodeCallerNotFunded) { ... }
//
// Stores never return coded errors; they return pkg/platform/sentinel values
// which the owning service translates.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error. Codes are stable strings so they can be
// serialized in HTTP error envelopes.
type Code string

// Generic codes.
const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Protocol codes. Validation failures leave state untouched; authorization
// failures can be retried once the precondition holds; state failures mean the
// caller and the ledger disagree.
const (
	// validation
	CodeInsufficientFee       Code = "insufficient_fee"
	CodeInsufficientFunds     Code = "insufficient_funds"
	CodePremiumExceedsCeiling Code = "premium_exceeds_ceiling"
	CodeInvalidStatusCode     Code = "invalid_status_code"

	// authorization
	CodeCallerNotFunded Code = "caller_not_funded"
	CodeNotEntitled     Code = "not_entitled"

	// state
	CodeUnknownFlight     Code = "unknown_flight"
	CodeNoSuchOpenRequest Code = "no_such_open_request"
	CodeNothingToWithdraw Code = "nothing_to_withdraw"
	CodeNotRegistered     Code = "not_registered"
	CodeNotOperational    Code = "not_operational"
	CodeFlightFinalized   Code = "flight_already_finalized"
	CodeAlreadyRegistered Code = "already_registered"

	// infrastructure
	CodeLedgerUnavailable Code = "ledger_unavailable"
	CodeTallyUnavailable  Code = "tally_unavailable"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to err. A nil err yields a plain coded error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether the outermost coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Is is an alias of HasCode kept for handler readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the outermost coded error in err's chain, or
// CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
