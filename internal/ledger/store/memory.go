// Package store holds the ledger gateway implementations: an in-memory ledger
// for tests and single-process runs, and a PostgreSQL ledger for deployments
// where several processes share state.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
	"flightsurety/pkg/platform/sentinel"
)

// InMemory is a ledger gateway backed by process memory.
//
// A transaction takes the ledger lock, works on a copy of the state and swaps
// the copy in when fn succeeds, so failed transactions leave no trace.
// Calls outside a transaction lock and commit individually.
type InMemory struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

type memState struct {
	airlines  map[id.AirlineID]*ledger.Airline
	votes     map[id.AirlineID]map[id.AirlineID]struct{}
	flights   map[id.FlightKey]*ledger.Flight
	oracles   map[id.OracleID]*ledger.Oracle
	byIndex   map[uint8]map[id.OracleID]struct{}
	requests  map[ledger.RequestKey]*ledger.StatusRequest
	policies  map[policyKey]*ledger.Policy
	transfers []ledger.Transfer
	paused    bool
}

type policyKey struct {
	passenger id.PassengerID
	flight    id.FlightKey
}

type memTxKey struct{}

func NewInMemory() *InMemory {
	return &InMemory{
		state: &memState{
			airlines: make(map[id.AirlineID]*ledger.Airline),
			votes:    make(map[id.AirlineID]map[id.AirlineID]struct{}),
			flights:  make(map[id.FlightKey]*ledger.Flight),
			oracles:  make(map[id.OracleID]*ledger.Oracle),
			byIndex:  make(map[uint8]map[id.OracleID]struct{}),
			requests: make(map[ledger.RequestKey]*ledger.StatusRequest),
			policies: make(map[policyKey]*ledger.Policy),
		},
		now: time.Now,
	}
}

// RunInTx runs fn against a private copy of the ledger and commits it when fn
// returns nil. Nested calls join the outer transaction.
func (m *InMemory) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(memTxKey{}).(*memState); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.state.clone()
	if err := fn(context.WithValue(ctx, memTxKey{}, staged)); err != nil {
		return err
	}
	m.state = staged
	return nil
}

// with runs fn against the transaction's state, or against the live state
// under the lock when ctx carries no transaction.
func (m *InMemory) with(ctx context.Context, fn func(s *memState) error) error {
	if s, ok := ctx.Value(memTxKey{}).(*memState); ok {
		return fn(s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

func (s *memState) clone() *memState {
	c := &memState{
		airlines:  make(map[id.AirlineID]*ledger.Airline, len(s.airlines)),
		votes:     make(map[id.AirlineID]map[id.AirlineID]struct{}, len(s.votes)),
		flights:   make(map[id.FlightKey]*ledger.Flight, len(s.flights)),
		oracles:   make(map[id.OracleID]*ledger.Oracle, len(s.oracles)),
		byIndex:   make(map[uint8]map[id.OracleID]struct{}, len(s.byIndex)),
		requests:  make(map[ledger.RequestKey]*ledger.StatusRequest, len(s.requests)),
		policies:  make(map[policyKey]*ledger.Policy, len(s.policies)),
		transfers: append([]ledger.Transfer(nil), s.transfers...),
		paused:    s.paused,
	}
	// Stored records are never mutated in place, so sharing them between the
	// live state and a staged copy is safe.
	for k, v := range s.airlines {
		c.airlines[k] = v
	}
	for k, voters := range s.votes {
		set := make(map[id.AirlineID]struct{}, len(voters))
		for v := range voters {
			set[v] = struct{}{}
		}
		c.votes[k] = set
	}
	for k, v := range s.flights {
		c.flights[k] = v
	}
	for k, v := range s.oracles {
		c.oracles[k] = v
	}
	for k, oracles := range s.byIndex {
		set := make(map[id.OracleID]struct{}, len(oracles))
		for o := range oracles {
			set[o] = struct{}{}
		}
		c.byIndex[k] = set
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.policies {
		c.policies[k] = v
	}
	return c
}

// -----------------------------------------------------------------------------
// Airlines
// -----------------------------------------------------------------------------

func (m *InMemory) ReadAirline(ctx context.Context, airline id.AirlineID) (*ledger.Airline, error) {
	var out *ledger.Airline
	err := m.with(ctx, func(s *memState) error {
		a, ok := s.airlines[airline]
		if !ok {
			return sentinel.ErrNotFound
		}
		out = a.Clone()
		return nil
	})
	return out, err
}

func (m *InMemory) WriteAirline(ctx context.Context, airline *ledger.Airline) error {
	return m.with(ctx, func(s *memState) error {
		s.airlines[airline.ID] = airline.Clone()
		return nil
	})
}

func (m *InMemory) CountRegisteredAirlines(ctx context.Context) (int, error) {
	count := 0
	err := m.with(ctx, func(s *memState) error {
		for _, a := range s.airlines {
			if a.IsRegistered() {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (m *InMemory) AddAdmissionVote(ctx context.Context, candidate, voter id.AirlineID) (bool, error) {
	added := false
	err := m.with(ctx, func(s *memState) error {
		voters, ok := s.votes[candidate]
		if !ok {
			voters = make(map[id.AirlineID]struct{})
			s.votes[candidate] = voters
		}
		if _, dup := voters[voter]; dup {
			return nil
		}
		voters[voter] = struct{}{}
		added = true
		return nil
	})
	return added, err
}

func (m *InMemory) CountAdmissionVotes(ctx context.Context, candidate id.AirlineID) (int, error) {
	count := 0
	err := m.with(ctx, func(s *memState) error {
		count = len(s.votes[candidate])
		return nil
	})
	return count, err
}

// -----------------------------------------------------------------------------
// Flights
// -----------------------------------------------------------------------------

func (m *InMemory) ReadFlight(ctx context.Context, key id.FlightKey) (*ledger.Flight, error) {
	var out *ledger.Flight
	err := m.with(ctx, func(s *memState) error {
		f, ok := s.flights[key]
		if !ok {
			return sentinel.ErrNotFound
		}
		out = f.Clone()
		return nil
	})
	return out, err
}

func (m *InMemory) WriteFlight(ctx context.Context, flight *ledger.Flight) error {
	return m.with(ctx, func(s *memState) error {
		s.flights[flight.Key] = flight.Clone()
		return nil
	})
}

// -----------------------------------------------------------------------------
// Oracles
// -----------------------------------------------------------------------------

func (m *InMemory) ReadOracle(ctx context.Context, oracle id.OracleID) (*ledger.Oracle, error) {
	var out *ledger.Oracle
	err := m.with(ctx, func(s *memState) error {
		o, ok := s.oracles[oracle]
		if !ok {
			return sentinel.ErrNotFound
		}
		out = o.Clone()
		return nil
	})
	return out, err
}

func (m *InMemory) WriteOracle(ctx context.Context, oracle *ledger.Oracle) error {
	return m.with(ctx, func(s *memState) error {
		if prev, ok := s.oracles[oracle.ID]; ok {
			for _, idx := range prev.Indexes {
				delete(s.byIndex[idx], oracle.ID)
			}
		}
		s.oracles[oracle.ID] = oracle.Clone()
		for _, idx := range oracle.Indexes {
			set, ok := s.byIndex[idx]
			if !ok {
				set = make(map[id.OracleID]struct{})
				s.byIndex[idx] = set
			}
			set[oracle.ID] = struct{}{}
		}
		return nil
	})
}

func (m *InMemory) OraclesByIndex(ctx context.Context, index uint8) ([]id.OracleID, error) {
	var out []id.OracleID
	err := m.with(ctx, func(s *memState) error {
		for o := range s.byIndex[index] {
			out = append(out, o)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, err
}

// -----------------------------------------------------------------------------
// Status requests
// -----------------------------------------------------------------------------

func (m *InMemory) ReadRequest(ctx context.Context, key ledger.RequestKey) (*ledger.StatusRequest, error) {
	var out *ledger.StatusRequest
	err := m.with(ctx, func(s *memState) error {
		r, ok := s.requests[key]
		if !ok {
			return sentinel.ErrNotFound
		}
		out = r.Clone()
		return nil
	})
	return out, err
}

func (m *InMemory) WriteRequest(ctx context.Context, request *ledger.StatusRequest) error {
	return m.with(ctx, func(s *memState) error {
		s.requests[request.Key] = request.Clone()
		return nil
	})
}

func (m *InMemory) ListOpenRequests(ctx context.Context) ([]*ledger.StatusRequest, error) {
	var out []*ledger.StatusRequest
	err := m.with(ctx, func(s *memState) error {
		for _, r := range s.requests {
			if r.Open {
				out = append(out, r.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, err
}

// -----------------------------------------------------------------------------
// Policies and transfers
// -----------------------------------------------------------------------------

func (m *InMemory) ReadPolicy(ctx context.Context, passenger id.PassengerID, flight id.FlightKey) (*ledger.Policy, error) {
	var out *ledger.Policy
	err := m.with(ctx, func(s *memState) error {
		p, ok := s.policies[policyKey{passenger: passenger, flight: flight}]
		if !ok {
			return sentinel.ErrNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (m *InMemory) WritePolicy(ctx context.Context, policy *ledger.Policy) error {
	return m.with(ctx, func(s *memState) error {
		s.policies[policyKey{passenger: policy.Passenger, flight: policy.Flight}] = policy.Clone()
		return nil
	})
}

func (m *InMemory) ListPoliciesByFlight(ctx context.Context, flight id.FlightKey) ([]*ledger.Policy, error) {
	return m.listPolicies(ctx, func(k policyKey) bool { return k.flight == flight })
}

func (m *InMemory) ListPoliciesByPassenger(ctx context.Context, passenger id.PassengerID) ([]*ledger.Policy, error) {
	return m.listPolicies(ctx, func(k policyKey) bool { return k.passenger == passenger })
}

func (m *InMemory) listPolicies(ctx context.Context, match func(policyKey) bool) ([]*ledger.Policy, error) {
	var out []*ledger.Policy
	err := m.with(ctx, func(s *memState) error {
		for k, p := range s.policies {
			if match(k) {
				out = append(out, p.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Passenger != out[j].Passenger {
			return out[i].Passenger.String() < out[j].Passenger.String()
		}
		return out[i].Flight.String() < out[j].Flight.String()
	})
	return out, err
}

func (m *InMemory) Transfer(ctx context.Context, to id.AccountID, amount *uint256.Int) error {
	return m.with(ctx, func(s *memState) error {
		s.transfers = append(s.transfers, ledger.Transfer{
			To:     to,
			Amount: new(uint256.Int).Set(amount),
			At:     m.now(),
		})
		return nil
	})
}

// -----------------------------------------------------------------------------
// Operating status
// -----------------------------------------------------------------------------

func (m *InMemory) ReadOperational(ctx context.Context) (bool, error) {
	var operational bool
	err := m.with(ctx, func(s *memState) error {
		operational = !s.paused
		return nil
	})
	return operational, err
}

func (m *InMemory) WriteOperational(ctx context.Context, operational bool) error {
	return m.with(ctx, func(s *memState) error {
		s.paused = !operational
		return nil
	})
}

// TransfersTo returns the payouts made to an account, oldest first.
func (m *InMemory) TransfersTo(to id.AccountID) []ledger.Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ledger.Transfer
	for _, t := range m.state.transfers {
		if t.To == to {
			out = append(out, ledger.Transfer{To: t.To, Amount: new(uint256.Int).Set(t.Amount), At: t.At})
		}
	}
	return out
}
