package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "flightsurety/pkg/domain-errors"
)

func TestNewFlightKey(t *testing.T) {
	airline := AirlineID(uuid.New())

	t.Run("trims designator", func(t *testing.T) {
		k, err := NewFlightKey(airline, "  ND1309 ", 1700000000)
		require.NoError(t, err)
		assert.Equal(t, "ND1309", k.Designator)
	})

	tests := []struct {
		name       string
		airline    AirlineID
		designator string
		timestamp  int64
	}{
		{name: "nil airline", designator: "ND1309", timestamp: 1},
		{name: "blank designator", airline: airline, designator: "  ", timestamp: 1},
		{name: "long designator", airline: airline, designator: strings.Repeat("X", maxDesignatorLength+1), timestamp: 1},
		{name: "zero timestamp", airline: airline, designator: "ND1309"},
		{name: "negative timestamp", airline: airline, designator: "ND1309", timestamp: -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFlightKey(tt.airline, tt.designator, tt.timestamp)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestFlightKeyDigest(t *testing.T) {
	airline := AirlineID(uuid.New())
	a, err := NewFlightKey(airline, "ND1309", 1700000000)
	require.NoError(t, err)
	same, err := NewFlightKey(airline, "ND1309", 1700000000)
	require.NoError(t, err)
	later, err := NewFlightKey(airline, "ND1309", 1700000001)
	require.NoError(t, err)
	other, err := NewFlightKey(airline, "ND1310", 1700000000)
	require.NoError(t, err)

	assert.Equal(t, a.Digest(), same.Digest())
	assert.NotEqual(t, a.Digest(), later.Digest())
	assert.NotEqual(t, a.Digest(), other.Digest())
}

func TestParseStatusCode(t *testing.T) {
	for _, c := range StatusCodes() {
		got, err := ParseStatusCode(int(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	for _, raw := range []int{-1, 5, 15, 60, 256} {
		_, err := ParseStatusCode(raw)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidStatusCode), "code %d", raw)
	}
}

func TestStatusCodeFinality(t *testing.T) {
	assert.False(t, StatusUnknown.IsFinal())
	assert.True(t, StatusLateAirline.IsFinal())
	assert.Equal(t, "late_airline", StatusLateAirline.String())
	assert.Equal(t, "status(7)", StatusCode(7).String())
}
