package tally

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
)

func testKey(t *testing.T, index uint8) ledger.RoundKey {
	t.Helper()
	flight, err := id.NewFlightKey(id.NewAccountID().Airline(), "TL1", 1700000000)
	require.NoError(t, err)
	return ledger.RoundKey{Request: ledger.RequestKey{Index: index, Flight: flight}}
}

func TestInMemoryRecord(t *testing.T) {
	ctx := context.Background()
	tally := NewInMemory()
	key := testKey(t, 1)
	oracle := id.NewAccountID().Oracle()

	n, err := tally.Record(ctx, key, oracle, id.StatusLateAirline)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = tally.Record(ctx, key, oracle, id.StatusLateAirline)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "an oracle counts once per code")

	n, err = tally.Record(ctx, key, oracle, id.StatusOnTime)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "codes are counted separately")

	n, err = tally.Record(ctx, key, id.NewAccountID().Oracle(), id.StatusLateAirline)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInMemoryDiscard(t *testing.T) {
	ctx := context.Background()
	tally := NewInMemory()
	key := testKey(t, 2)
	other := testKey(t, 2)

	_, err := tally.Record(ctx, key, id.NewAccountID().Oracle(), id.StatusOnTime)
	require.NoError(t, err)
	_, err = tally.Record(ctx, other, id.NewAccountID().Oracle(), id.StatusOnTime)
	require.NoError(t, err)

	require.NoError(t, tally.Discard(ctx, key))
	assert.Equal(t, 1, tally.Len())

	n, err := tally.Record(ctx, key, id.NewAccountID().Oracle(), id.StatusOnTime)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "discarded votes are gone")
}

func TestInMemoryRoundsAreSeparate(t *testing.T) {
	ctx := context.Background()
	tally := NewInMemory()
	first := testKey(t, 4)
	second := ledger.RoundKey{Request: first.Request, Round: first.Round + 1}
	oracle := id.NewAccountID().Oracle()

	_, err := tally.Record(ctx, first, oracle, id.StatusLateAirline)
	require.NoError(t, err)
	n, err := tally.Record(ctx, second, oracle, id.StatusLateAirline)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "votes do not carry into the next round")

	require.NoError(t, tally.Discard(ctx, first))
	n, err = tally.Record(ctx, second, id.NewAccountID().Oracle(), id.StatusLateAirline)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "discarding a round keeps later rounds")
}

func TestInMemoryConcurrentVoters(t *testing.T) {
	ctx := context.Background()
	tally := NewInMemory()
	key := testKey(t, 3)

	const voters = 64
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tally.Record(ctx, key, id.NewAccountID().Oracle(), id.StatusLateOther)
		}()
	}
	wg.Wait()

	n, err := tally.Record(ctx, key, id.NewAccountID().Oracle(), id.StatusLateOther)
	require.NoError(t, err)
	assert.Equal(t, voters+1, n)
}
