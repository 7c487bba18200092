package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/suite"

	"flightsurety/internal/events"
	"flightsurety/internal/ledger/store"
	id "flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

type RegistrySuite struct {
	suite.Suite
	ctx    context.Context
	ledger *store.InMemory
	bus    *events.Bus
	seen   []events.Event
	svc    *Service
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
	s.ledger = store.NewInMemory()
	s.bus = events.NewBus()
	s.seen = nil
	s.bus.SubscribeAll(func(_ context.Context, e events.Event) error {
		s.seen = append(s.seen, e)
		return nil
	})
	s.svc = New(s.ledger, Config{RegistrationFee: id.Units(1), IndexRange: 10}, WithPublisher(s.bus))
}

// sequence returns an IndexSource that replays values in order.
func sequence(values ...uint8) IndexSource {
	var mu sync.Mutex
	i := 0
	return func(uint8) uint8 {
		mu.Lock()
		defer mu.Unlock()
		v := values[i%len(values)]
		i++
		return v
	}
}

func (s *RegistrySuite) TestRegister() {
	s.Run("assigns three indexes within range", func() {
		oracle := id.NewAccountID().Oracle()
		indexes, err := s.svc.Register(s.ctx, oracle, id.Units(1))
		s.Require().NoError(err)
		for _, idx := range indexes {
			s.Less(idx, uint8(10))
		}

		got, err := s.svc.IndexesOf(s.ctx, oracle)
		s.Require().NoError(err)
		s.Equal(indexes, got)
		s.Require().NotEmpty(s.seen)
		s.Equal(events.KindOracleRegistered, s.seen[len(s.seen)-1].Kind)
	})

	s.Run("rejects a short fee", func() {
		_, err := s.svc.Register(s.ctx, id.NewAccountID().Oracle(), new(uint256.Int).Sub(id.Units(1), uint256.NewInt(1)))
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFee))
	})

	s.Run("rejects a fee above the fixed amount", func() {
		_, err := s.svc.Register(s.ctx, id.NewAccountID().Oracle(), id.Units(2))
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFee))
	})

	s.Run("rejects a missing fee", func() {
		_, err := s.svc.Register(s.ctx, id.NewAccountID().Oracle(), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFee))
	})

	s.Run("duplicate indexes are allowed", func() {
		svc := New(s.ledger, Config{RegistrationFee: id.Units(1), IndexRange: 10}, WithIndexSource(sequence(7)))
		indexes, err := svc.Register(s.ctx, id.NewAccountID().Oracle(), id.Units(1))
		s.Require().NoError(err)
		s.Equal([3]uint8{7, 7, 7}, indexes)
	})
}

func (s *RegistrySuite) TestReRegistration() {
	oracle := id.NewAccountID().Oracle()

	s.Run("rejected by default and keeps the original indexes", func() {
		svc := New(s.ledger, Config{RegistrationFee: id.Units(1), IndexRange: 10}, WithIndexSource(sequence(1, 2, 3)))
		first, err := svc.Register(s.ctx, oracle, id.Units(1))
		s.Require().NoError(err)

		_, err = svc.Register(s.ctx, oracle, id.Units(1))
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRegistered))

		got, err := svc.IndexesOf(s.ctx, oracle)
		s.Require().NoError(err)
		s.Equal(first, got)
	})

	s.Run("replaces indexes when allowed", func() {
		svc := New(s.ledger, Config{RegistrationFee: id.Units(1), IndexRange: 10, AllowReRegistration: true},
			WithIndexSource(sequence(4, 5, 6)))
		fresh, err := svc.Register(s.ctx, oracle, id.Units(1))
		s.Require().NoError(err)
		s.Equal([3]uint8{4, 5, 6}, fresh)

		old, err := svc.EligibleFor(s.ctx, 1)
		s.Require().NoError(err)
		s.NotContains(old, oracle)
	})
}

func (s *RegistrySuite) TestLookups() {
	svc := New(s.ledger, Config{RegistrationFee: id.Units(1), IndexRange: 10}, WithIndexSource(sequence(2, 5, 9)))
	oracle := id.NewAccountID().Oracle()
	_, err := svc.Register(s.ctx, oracle, id.Units(1))
	s.Require().NoError(err)

	s.Run("IndexesOf fails for unknown oracles", func() {
		_, err := svc.IndexesOf(s.ctx, id.NewAccountID().Oracle())
		s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
	})

	s.Run("Entitled matches assigned indexes only", func() {
		ok, err := svc.Entitled(s.ctx, oracle, 5)
		s.Require().NoError(err)
		s.True(ok)

		ok, err = svc.Entitled(s.ctx, oracle, 3)
		s.Require().NoError(err)
		s.False(ok)

		ok, err = svc.Entitled(s.ctx, id.NewAccountID().Oracle(), 5)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("EligibleFor is keyed by index", func() {
		got, err := svc.EligibleFor(s.ctx, 9)
		s.Require().NoError(err)
		s.Equal([]id.OracleID{oracle}, got)

		got, err = svc.EligibleFor(s.ctx, 200)
		s.Require().NoError(err)
		s.Empty(got)
	})
}
