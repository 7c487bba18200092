//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/suite"

	"flightsurety/internal/ledger"
	"flightsurety/internal/ledger/store"
	id "flightsurety/pkg/domain"
	"flightsurety/pkg/platform/sentinel"
	"flightsurety/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(store.Migrate(context.Background(), s.postgres.DB))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"transfers", "policies", "status_requests", "oracles", "flights", "admission_votes", "airlines",
		"protocol_state")
	s.Require().NoError(err)
}

func newTestAirline() *ledger.Airline {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &ledger.Airline{
		ID:        id.NewAccountID().Airline(),
		Name:      "Integration Air",
		Admission: ledger.AdmissionRegistered,
		Funding:   ledger.FundingUnfunded,
		Funds:     new(uint256.Int),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestAirlineRoundTrip() {
	ctx := context.Background()
	a := newTestAirline()
	a.ApplyFunding(id.Units(10), a.UpdatedAt)
	s.Require().NoError(s.store.WriteAirline(ctx, a))

	found, err := s.store.ReadAirline(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(a.Funding, found.Funding)
	s.Equal(a.Funds.Dec(), found.Funds.Dec(), "18-decimal amounts survive NUMERIC storage")

	_, err = s.store.ReadAirline(ctx, id.NewAccountID().Airline())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRequestLifecycle() {
	ctx := context.Background()
	a := newTestAirline()
	flight, err := id.NewFlightKey(a.ID, "PG1", 1700000000)
	s.Require().NoError(err)
	key := ledger.RequestKey{Index: 2, Flight: flight}
	opened := time.Now().UTC().Truncate(time.Microsecond)

	s.Require().NoError(s.store.WriteRequest(ctx, &ledger.StatusRequest{Key: key, Open: true, OpenedAt: opened}))

	err = s.store.RunInTx(ctx, func(txCtx context.Context) error {
		r, err := s.store.ReadRequest(txCtx, key)
		if err != nil {
			return err
		}
		r.ApplyClosure(id.StatusLateAirline, opened.Add(time.Second))
		return s.store.WriteRequest(txCtx, r)
	})
	s.Require().NoError(err)

	r, err := s.store.ReadRequest(ctx, key)
	s.Require().NoError(err)
	s.False(r.Open)
	s.Equal(id.StatusLateAirline, r.Outcome)

	open, err := s.store.ListOpenRequests(ctx)
	s.Require().NoError(err)
	s.Empty(open)

	s.Require().NoError(s.store.WriteRequest(ctx, &ledger.StatusRequest{Key: key, Round: r.Round + 1, Open: true, OpenedAt: opened}))
	open, err = s.store.ListOpenRequests(ctx)
	s.Require().NoError(err)
	s.Require().Len(open, 1)
	s.Equal(uint32(1), open[0].Round)
}

func (s *PostgresStoreSuite) TestRollback() {
	ctx := context.Background()
	a := newTestAirline()
	boom := errors.New("boom")

	err := s.store.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.WriteAirline(txCtx, a); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, err = s.store.ReadAirline(ctx, a.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestOperatingStatus() {
	ctx := context.Background()

	operational, err := s.store.ReadOperational(ctx)
	s.Require().NoError(err)
	s.True(operational, "an empty ledger is operational")

	s.Require().NoError(s.store.RunInTx(ctx, func(txCtx context.Context) error {
		return s.store.WriteOperational(txCtx, false)
	}))
	operational, err = s.store.ReadOperational(ctx)
	s.Require().NoError(err)
	s.False(operational)

	s.Require().NoError(s.store.WriteOperational(ctx, true))
	operational, err = s.store.ReadOperational(ctx)
	s.Require().NoError(err)
	s.True(operational)
}

// TestConcurrentVotes verifies a voter is counted once under concurrent inserts.
func (s *PostgresStoreSuite) TestConcurrentVotes() {
	ctx := context.Background()
	candidate := id.NewAccountID().Airline()
	voter := id.NewAccountID().Airline()
	const goroutines = 20

	var wg sync.WaitGroup
	var added atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.AddAdmissionVote(ctx, candidate, voter)
			if err == nil && ok {
				added.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), added.Load())
	count, err := s.store.CountAdmissionVotes(ctx, candidate)
	s.Require().NoError(err)
	s.Equal(1, count)
}
