//go:build integration

package tally_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"flightsurety/internal/consensus/tally"
	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
	"flightsurety/pkg/testutil/containers"
)

type RedisTallySuite struct {
	suite.Suite
	redis *containers.RedisContainer
	tally *tally.Redis
	key   ledger.RoundKey
}

func TestRedisTallySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisTallySuite))
}

func (s *RedisTallySuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.tally = tally.NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisTallySuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	flight, err := id.NewFlightKey(id.NewAccountID().Airline(), "RD1", 1700000000)
	s.Require().NoError(err)
	s.key = ledger.RoundKey{Request: ledger.RequestKey{Index: 5, Flight: flight}}
}

func (s *RedisTallySuite) TestRecordCountsDistinctOracles() {
	ctx := context.Background()
	oracle := id.NewAccountID().Oracle()

	n, err := s.tally.Record(ctx, s.key, oracle, id.StatusLateAirline)
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = s.tally.Record(ctx, s.key, oracle, id.StatusLateAirline)
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = s.tally.Record(ctx, s.key, id.NewAccountID().Oracle(), id.StatusLateAirline)
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *RedisTallySuite) TestDiscardRemovesEveryCode() {
	ctx := context.Background()
	_, err := s.tally.Record(ctx, s.key, id.NewAccountID().Oracle(), id.StatusOnTime)
	s.Require().NoError(err)
	_, err = s.tally.Record(ctx, s.key, id.NewAccountID().Oracle(), id.StatusLateWeather)
	s.Require().NoError(err)

	s.Require().NoError(s.tally.Discard(ctx, s.key))

	keys, err := s.redis.Keys(ctx, "flightsurety:tally:*")
	s.Require().NoError(err)
	s.Empty(keys)
}

func (s *RedisTallySuite) TestDiscardLeavesOtherRounds() {
	ctx := context.Background()
	next := ledger.RoundKey{Request: s.key.Request, Round: s.key.Round + 1}
	_, err := s.tally.Record(ctx, s.key, id.NewAccountID().Oracle(), id.StatusOnTime)
	s.Require().NoError(err)
	oracle := id.NewAccountID().Oracle()
	_, err = s.tally.Record(ctx, next, oracle, id.StatusOnTime)
	s.Require().NoError(err)

	s.Require().NoError(s.tally.Discard(ctx, s.key))

	n, err := s.tally.Record(ctx, next, id.NewAccountID().Oracle(), id.StatusOnTime)
	s.Require().NoError(err)
	s.Equal(2, n)
}

// TestConcurrentRecordsAreAtomic verifies the script never loses a vote.
func (s *RedisTallySuite) TestConcurrentRecordsAreAtomic() {
	ctx := context.Background()
	const voters = 50

	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.tally.Record(ctx, s.key, id.NewAccountID().Oracle(), id.StatusOnTime)
		}()
	}
	wg.Wait()

	n, err := s.tally.Record(ctx, s.key, id.NewAccountID().Oracle(), id.StatusOnTime)
	s.Require().NoError(err)
	s.Equal(voters+1, n)
}
