package surety

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/suite"

	"flightsurety/internal/airline"
	"flightsurety/internal/consensus"
	"flightsurety/internal/consensus/tally"
	"flightsurety/internal/events"
	"flightsurety/internal/insurance"
	"flightsurety/internal/ledger"
	"flightsurety/internal/ledger/store"
	"flightsurety/internal/oracle/dispatch"
	"flightsurety/internal/oracle/registry"
	id "flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/sentinel"
	"flightsurety/pkg/requestcontext"
)

const fixedIndex uint8 = 7

// escrowLedger fails policy listings while listFailures is positive.
type escrowLedger struct {
	*store.InMemory
	listFailures atomic.Int32
}

func (l *escrowLedger) ListPoliciesByFlight(ctx context.Context, flight id.FlightKey) ([]*ledger.Policy, error) {
	if l.listFailures.Add(-1) >= 0 {
		return nil, sentinel.ErrUnavailable
	}
	return l.InMemory.ListPoliciesByFlight(ctx, flight)
}

type SuretySuite struct {
	suite.Suite
	ledger    *store.InMemory
	escrow    *escrowLedger
	svc       *Service
	owner     id.AccountID
	founder   id.AccountID
	passenger id.AccountID
	now       time.Time
}

func TestSuretySuite(t *testing.T) {
	suite.Run(t, new(SuretySuite))
}

func (s *SuretySuite) SetupTest() {
	s.ledger = store.NewInMemory()
	s.escrow = &escrowLedger{InMemory: s.ledger}
	s.now = time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)
	bus := events.NewBus()
	pinned := func(uint8) uint8 { return fixedIndex }

	reg := registry.New(s.ledger, registry.Config{RegistrationFee: id.Units(1), IndexRange: 10},
		registry.WithPublisher(bus), registry.WithIndexSource(pinned))
	disp := dispatch.New(s.ledger, dispatch.Config{IndexRange: 10},
		dispatch.WithPublisher(bus), dispatch.WithIndexSource(pinned))
	resolver := consensus.New(s.ledger, tally.NewInMemory(), reg, consensus.WithPublisher(bus))
	airlines := airline.New(s.ledger, airline.Config{DirectAdmissionLimit: 4, FundingThreshold: id.Units(10)},
		airline.WithPublisher(bus))
	escrow := insurance.New(s.escrow, insurance.Config{
		PremiumCeiling:    id.Units(1),
		PayoutNumerator:   3,
		PayoutDenominator: 2,
	}, insurance.WithPublisher(bus))
	bus.Subscribe(events.KindFlightStatusFinalized, escrow.HandleFinalized)

	s.owner = id.NewAccountID()
	s.founder = id.NewAccountID()
	s.passenger = id.NewAccountID()
	s.Require().NoError(airlines.Bootstrap(context.Background(), s.founder.Airline(), "Founder Air"))

	s.svc = New(Deps{
		Oracles:  reg,
		Dispatch: disp,
		Resolver: resolver,
		Airlines: airlines,
		Escrow:   escrow,
		Flights:  s.ledger,
		Status:   s.ledger,
	}, WithOwner(s.owner), WithPublisher(bus))
}

func (s *SuretySuite) as(account id.AccountID) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), account)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *SuretySuite) TestLateAirlineEndToEnd() {
	founder := s.as(s.founder)
	s.Require().NoError(s.svc.FundAirline(founder, s.founder.Airline(), id.Units(10)))
	flight, err := s.svc.RegisterFlight(founder, "FS900", s.now.Add(6*time.Hour).Unix())
	s.Require().NoError(err)

	_, err = s.svc.BuyInsurance(s.as(s.passenger), flight, id.Units(1))
	s.Require().NoError(err)

	oracles := make([]id.AccountID, 3)
	for i := range oracles {
		oracles[i] = id.NewAccountID()
		indexes, err := s.svc.RegisterOracle(s.as(oracles[i]), id.Units(1))
		s.Require().NoError(err)
		s.Equal([3]uint8{fixedIndex, fixedIndex, fixedIndex}, indexes)
	}

	index, err := s.svc.FetchFlightStatus(s.as(s.passenger), flight)
	s.Require().NoError(err)
	s.Equal(fixedIndex, index)

	var last consensus.Outcome
	for _, o := range oracles {
		last, err = s.svc.SubmitOracleResponse(s.as(o), index, flight, int(id.StatusLateAirline))
		s.Require().NoError(err)
	}
	s.True(last.Finalized)

	f, err := s.svc.FlightStatus(s.as(s.passenger), flight)
	s.Require().NoError(err)
	s.Equal(id.StatusLateAirline, f.Status)

	balance, err := s.svc.GetPassengerBalance(s.as(s.passenger))
	s.Require().NoError(err)
	s.Equal("1.5", id.FormatUnits(balance))

	paid, err := s.svc.Withdraw(s.as(s.passenger))
	s.Require().NoError(err)
	s.Equal(balance, paid)

	_, err = s.svc.Withdraw(s.as(s.passenger))
	s.True(dErrors.HasCode(err, dErrors.CodeNothingToWithdraw))
}

func (s *SuretySuite) TestSettlementRetriedByLaterRound() {
	founder := s.as(s.founder)
	s.Require().NoError(s.svc.FundAirline(founder, s.founder.Airline(), id.Units(10)))
	flight, err := s.svc.RegisterFlight(founder, "FS901", s.now.Add(6*time.Hour).Unix())
	s.Require().NoError(err)
	_, err = s.svc.BuyInsurance(s.as(s.passenger), flight, id.Units(1))
	s.Require().NoError(err)

	oracles := make([]id.AccountID, 3)
	for i := range oracles {
		oracles[i] = id.NewAccountID()
		_, err := s.svc.RegisterOracle(s.as(oracles[i]), id.Units(1))
		s.Require().NoError(err)
	}
	round := func() consensus.Outcome {
		index, err := s.svc.FetchFlightStatus(s.as(s.passenger), flight)
		s.Require().NoError(err)
		var last consensus.Outcome
		for _, o := range oracles {
			last, err = s.svc.SubmitOracleResponse(s.as(o), index, flight, int(id.StatusLateAirline))
			s.Require().NoError(err)
		}
		return last
	}

	s.escrow.listFailures.Store(1)
	s.True(round().Finalized)
	balance, err := s.svc.GetPassengerBalance(s.as(s.passenger))
	s.Require().NoError(err)
	s.True(balance.IsZero(), "settlement failed with the ledger down")

	s.True(round().Finalized)
	balance, err = s.svc.GetPassengerBalance(s.as(s.passenger))
	s.Require().NoError(err)
	s.Equal("1.5", id.FormatUnits(balance))

	s.True(round().Finalized)
	balance, err = s.svc.GetPassengerBalance(s.as(s.passenger))
	s.Require().NoError(err)
	s.Equal("1.5", id.FormatUnits(balance), "settled policies are not credited twice")
}

func (s *SuretySuite) TestCommandsRequireCaller() {
	_, err := s.svc.RegisterOracle(context.Background(), id.Units(1))
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.svc.GetPassengerBalance(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *SuretySuite) TestInvalidStatusCode() {
	oracle := id.NewAccountID()
	_, err := s.svc.RegisterOracle(s.as(oracle), id.Units(1))
	s.Require().NoError(err)

	_, err = s.svc.SubmitOracleResponse(s.as(oracle), fixedIndex, id.FlightKey{}, 99)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidStatusCode))

	_, err = s.svc.SubmitOracleResponse(s.as(oracle), fixedIndex, id.FlightKey{}, 1000)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidStatusCode))

	s.Run("unregistered oracle is rejected before the code", func() {
		_, err := s.svc.SubmitOracleResponse(s.as(id.NewAccountID()), fixedIndex, id.FlightKey{}, 99)
		s.True(dErrors.HasCode(err, dErrors.CodeNotEntitled))

		_, err = s.svc.SubmitOracleResponse(s.as(id.NewAccountID()), fixedIndex, id.FlightKey{}, -1)
		s.True(dErrors.HasCode(err, dErrors.CodeNotEntitled))
	})
}

func (s *SuretySuite) TestOperationalSwitch() {
	s.Run("only the owner may pause", func() {
		err := s.svc.SetOperational(s.as(s.founder), false)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.True(s.operational(s.svc))
	})

	s.Run("paused protocol rejects mutating commands", func() {
		s.Require().NoError(s.svc.SetOperational(s.as(s.owner), false))
		s.False(s.operational(s.svc))

		err := s.svc.FundAirline(s.as(s.founder), s.founder.Airline(), id.Units(10))
		s.True(dErrors.HasCode(err, dErrors.CodeNotOperational))

		_, err = s.svc.Withdraw(s.as(s.passenger))
		s.True(dErrors.HasCode(err, dErrors.CodeNotOperational))
	})

	s.Run("reads keep working while paused", func() {
		balance, err := s.svc.GetPassengerBalance(s.as(s.passenger))
		s.Require().NoError(err)
		s.True(balance.IsZero())
	})

	s.Run("resuming restores commands", func() {
		s.Require().NoError(s.svc.SetOperational(s.as(s.owner), true))
		s.NoError(s.svc.FundAirline(s.as(s.founder), s.founder.Airline(), id.Units(10)))
	})
}

func (s *SuretySuite) operational(svc *Service) bool {
	operational, err := svc.IsOperational(context.Background())
	s.Require().NoError(err)
	return operational
}

func (s *SuretySuite) TestOperationalSwitchIsSharedThroughLedger() {
	// A second process over the same ledger.
	other := New(Deps{Status: s.ledger, Airlines: airline.New(s.ledger, airline.Config{
		DirectAdmissionLimit: 4,
		FundingThreshold:     id.Units(10),
	})}, WithOwner(s.owner))

	s.Require().NoError(s.svc.SetOperational(s.as(s.owner), false))
	s.False(s.operational(other))

	err := other.FundAirline(s.as(s.founder), s.founder.Airline(), id.Units(10))
	s.True(dErrors.HasCode(err, dErrors.CodeNotOperational))

	stored, err := s.ledger.ReadOperational(context.Background())
	s.Require().NoError(err)
	s.False(stored)

	s.Require().NoError(other.SetOperational(s.as(s.owner), true))
	s.True(s.operational(s.svc))
	s.NoError(s.svc.FundAirline(s.as(s.founder), s.founder.Airline(), id.Units(10)))
}

func (s *SuretySuite) TestAirlineCommandsUseCallerAsSponsor() {
	founder := s.as(s.founder)
	s.Require().NoError(s.svc.FundAirline(founder, s.founder.Airline(), id.Units(10)))

	candidate := id.NewAccountID().Airline()
	admission, err := s.svc.RegisterAirline(founder, candidate, "Second Air")
	s.Require().NoError(err)
	s.True(admission.Registered)

	_, err = s.svc.RegisterAirline(s.as(s.passenger), id.NewAccountID().Airline(), "Rogue Air")
	s.True(dErrors.HasCode(err, dErrors.CodeCallerNotFunded))

	a, err := s.svc.GetAirline(founder, candidate)
	s.Require().NoError(err)
	s.Equal("Second Air", a.Name)
	s.True(a.Funds.Eq(new(uint256.Int)))
}
