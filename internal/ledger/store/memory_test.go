package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/suite"

	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
	"flightsurety/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) newAirline(name string) *ledger.Airline {
	now := time.Now()
	return &ledger.Airline{
		ID:        id.NewAccountID().Airline(),
		Name:      name,
		Admission: ledger.AdmissionRegistered,
		Funding:   ledger.FundingUnfunded,
		Funds:     new(uint256.Int),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *InMemorySuite) newFlight(airline id.AirlineID, designator string) id.FlightKey {
	key, err := id.NewFlightKey(airline, designator, 1700000000)
	s.Require().NoError(err)
	return key
}

func (s *InMemorySuite) TestAirlines() {
	s.Run("returns ErrNotFound for unknown airline", func() {
		_, err := s.store.ReadAirline(s.ctx, id.NewAccountID().Airline())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("counts only registered airlines", func() {
		registered := s.newAirline("Registered")
		pending := s.newAirline("Pending")
		pending.Admission = ledger.AdmissionPending
		s.Require().NoError(s.store.WriteAirline(s.ctx, registered))
		s.Require().NoError(s.store.WriteAirline(s.ctx, pending))

		count, err := s.store.CountRegisteredAirlines(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, count)
	})

	s.Run("returned records are copies", func() {
		a := s.newAirline("Copy")
		s.Require().NoError(s.store.WriteAirline(s.ctx, a))

		found, err := s.store.ReadAirline(s.ctx, a.ID)
		s.Require().NoError(err)
		found.Funds.SetUint64(99)

		again, err := s.store.ReadAirline(s.ctx, a.ID)
		s.Require().NoError(err)
		s.True(again.Funds.IsZero())
	})
}

func (s *InMemorySuite) TestAdmissionVotes() {
	candidate := id.NewAccountID().Airline()
	voter := id.NewAccountID().Airline()

	added, err := s.store.AddAdmissionVote(s.ctx, candidate, voter)
	s.Require().NoError(err)
	s.True(added)

	added, err = s.store.AddAdmissionVote(s.ctx, candidate, voter)
	s.Require().NoError(err)
	s.False(added, "repeat vote must not be counted twice")

	count, err := s.store.CountAdmissionVotes(s.ctx, candidate)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *InMemorySuite) TestOraclesByIndex() {
	first := &ledger.Oracle{ID: id.NewAccountID().Oracle(), Indexes: [3]uint8{1, 4, 4}, Fee: uint256.NewInt(1)}
	second := &ledger.Oracle{ID: id.NewAccountID().Oracle(), Indexes: [3]uint8{4, 5, 6}, Fee: uint256.NewInt(1)}
	s.Require().NoError(s.store.WriteOracle(s.ctx, first))
	s.Require().NoError(s.store.WriteOracle(s.ctx, second))

	s.Run("finds every oracle holding the index", func() {
		got, err := s.store.OraclesByIndex(s.ctx, 4)
		s.Require().NoError(err)
		s.ElementsMatch([]id.OracleID{first.ID, second.ID}, got)
	})

	s.Run("rewriting an oracle moves it between indexes", func() {
		moved := first.Clone()
		moved.Indexes = [3]uint8{7, 8, 9}
		s.Require().NoError(s.store.WriteOracle(s.ctx, moved))

		got, err := s.store.OraclesByIndex(s.ctx, 4)
		s.Require().NoError(err)
		s.Equal([]id.OracleID{second.ID}, got)

		got, err = s.store.OraclesByIndex(s.ctx, 7)
		s.Require().NoError(err)
		s.Equal([]id.OracleID{first.ID}, got)
	})
}

func (s *InMemorySuite) TestRequestsAndPolicies() {
	airline := id.NewAccountID().Airline()
	flight := s.newFlight(airline, "FS100")
	key := ledger.RequestKey{Index: 3, Flight: flight}
	now := time.Now()

	s.Require().NoError(s.store.WriteRequest(s.ctx, &ledger.StatusRequest{Key: key, Open: true, OpenedAt: now}))
	open, err := s.store.ListOpenRequests(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(open, 1)
	s.Equal(key, open[0].Key)

	passenger := id.NewAccountID().Passenger()
	policy := &ledger.Policy{
		Passenger: passenger,
		Flight:    flight,
		Premium:   uint256.NewInt(10),
		Credit:    new(uint256.Int),
	}
	s.Require().NoError(s.store.WritePolicy(s.ctx, policy))

	byFlight, err := s.store.ListPoliciesByFlight(s.ctx, flight)
	s.Require().NoError(err)
	s.Len(byFlight, 1)

	byPassenger, err := s.store.ListPoliciesByPassenger(s.ctx, passenger)
	s.Require().NoError(err)
	s.Len(byPassenger, 1)

	other, err := s.store.ListPoliciesByFlight(s.ctx, s.newFlight(airline, "FS200"))
	s.Require().NoError(err)
	s.Empty(other)
}

func (s *InMemorySuite) TestRunInTx() {
	s.Run("commits writes when fn succeeds", func() {
		a := s.newAirline("Committed")
		err := s.store.RunInTx(s.ctx, func(txCtx context.Context) error {
			return s.store.WriteAirline(txCtx, a)
		})
		s.Require().NoError(err)

		_, err = s.store.ReadAirline(s.ctx, a.ID)
		s.Require().NoError(err)
	})

	s.Run("discards every write when fn fails", func() {
		a := s.newAirline("Rolled back")
		to := id.NewAccountID()
		boom := errors.New("boom")
		err := s.store.RunInTx(s.ctx, func(txCtx context.Context) error {
			s.Require().NoError(s.store.WriteAirline(txCtx, a))
			s.Require().NoError(s.store.Transfer(txCtx, to, uint256.NewInt(5)))
			return boom
		})
		s.Require().ErrorIs(err, boom)

		_, err = s.store.ReadAirline(s.ctx, a.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.Empty(s.store.TransfersTo(to))
	})

	s.Run("nested calls join the outer transaction", func() {
		a := s.newAirline("Nested")
		err := s.store.RunInTx(s.ctx, func(txCtx context.Context) error {
			return s.store.RunInTx(txCtx, func(inner context.Context) error {
				return s.store.WriteAirline(inner, a)
			})
		})
		s.Require().NoError(err)

		_, err = s.store.ReadAirline(s.ctx, a.ID)
		s.Require().NoError(err)
	})

	s.Run("rejects cancelled contexts", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		err := s.store.RunInTx(ctx, func(context.Context) error { return nil })
		s.ErrorIs(err, context.Canceled)
	})
}

// TestConcurrentIncrements verifies read-modify-write transactions are serialized.
func (s *InMemorySuite) TestOperatingStatus() {
	operational, err := s.store.ReadOperational(s.ctx)
	s.Require().NoError(err)
	s.True(operational, "a fresh ledger is operational")

	boom := errors.New("boom")
	err = s.store.RunInTx(s.ctx, func(txCtx context.Context) error {
		if err := s.store.WriteOperational(txCtx, false); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)
	operational, err = s.store.ReadOperational(s.ctx)
	s.Require().NoError(err)
	s.True(operational, "rolled back pause is not visible")

	s.Require().NoError(s.store.RunInTx(s.ctx, func(txCtx context.Context) error {
		return s.store.WriteOperational(txCtx, false)
	}))
	operational, err = s.store.ReadOperational(s.ctx)
	s.Require().NoError(err)
	s.False(operational)
}

func (s *InMemorySuite) TestConcurrentIncrements() {
	a := s.newAirline("Counter")
	s.Require().NoError(s.store.WriteAirline(s.ctx, a))

	const goroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.store.RunInTx(s.ctx, func(txCtx context.Context) error {
				cur, err := s.store.ReadAirline(txCtx, a.ID)
				if err != nil {
					return err
				}
				cur.ApplyFunding(uint256.NewInt(1), time.Now())
				return s.store.WriteAirline(txCtx, cur)
			})
		}()
	}
	wg.Wait()

	final, err := s.store.ReadAirline(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(uint64(goroutines), final.Funds.Uint64())
}
