package ledger

import (
	"errors"

	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/sentinel"
)

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}

// Translate maps a gateway error onto the protocol taxonomy. Unavailability
// becomes CodeLedgerUnavailable so callers can decide their own retry policy;
// coded errors raised inside transactions pass through unchanged.
func Translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, msg)
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
