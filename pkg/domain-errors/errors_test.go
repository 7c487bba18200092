package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodes(t *testing.T) {
	t.Run("outermost code wins", func(t *testing.T) {
		inner := New(CodeNotFound, "flight missing")
		outer := Wrap(inner, CodeUnknownFlight, "flight is not registered")

		assert.True(t, HasCode(outer, CodeUnknownFlight))
		assert.False(t, HasCode(outer, CodeNotFound))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("withdraw: %w", New(CodeNothingToWithdraw, "no credit"))
		assert.Equal(t, CodeNothingToWithdraw, CodeOf(err))
	})

	t.Run("uncoded errors are internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})

	t.Run("unwrap exposes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeLedgerUnavailable, "read airline")
		require.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "ledger_unavailable")
	})
}
