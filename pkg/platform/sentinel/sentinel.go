package sentinel

import "errors"

// Sentinel errors for ledger and infrastructure facts. Gateways and tallies
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
// These represent factual states about records, not validation failures:
// - ErrNotFound: record does not exist in the ledger
// - ErrConflict: record already exists under the same key
// - ErrInvalidState: record is in the wrong state for the requested write
// - ErrUnavailable: the ledger or a shared cache cannot be reached
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
