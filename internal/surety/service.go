// Package surety binds the protocol commands 1:1 to the services behind
// them. The calling account comes from the request context; transport layers
// only translate wire formats.
package surety

import (
	"context"
	"log/slog"
	"math"

	"github.com/holiman/uint256"

	"flightsurety/internal/airline"
	"flightsurety/internal/consensus"
	"flightsurety/internal/events"
	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/requestcontext"
)

type OracleRegistry interface {
	Register(ctx context.Context, oracle id.OracleID, fee *uint256.Int) ([ledger.IndexCount]uint8, error)
	IndexesOf(ctx context.Context, oracle id.OracleID) ([ledger.IndexCount]uint8, error)
}

type Dispatcher interface {
	RequestStatus(ctx context.Context, requester id.AccountID, flight id.FlightKey) (uint8, error)
}

type Resolver interface {
	SubmitResponse(ctx context.Context, oracle id.OracleID, index uint8, flight id.FlightKey, code id.StatusCode) (consensus.Outcome, error)
}

type Airlines interface {
	RegisterAirline(ctx context.Context, sponsor, candidate id.AirlineID, name string) (*airline.Admission, error)
	FundAirline(ctx context.Context, airline id.AirlineID, amount *uint256.Int) error
	RegisterFlight(ctx context.Context, airline id.AirlineID, designator string, timestamp int64) (id.FlightKey, error)
	Get(ctx context.Context, airline id.AirlineID) (*ledger.Airline, error)
}

type Escrow interface {
	BuyInsurance(ctx context.Context, passenger id.PassengerID, flight id.FlightKey, premium *uint256.Int) (*ledger.Policy, error)
	BalanceOf(ctx context.Context, passenger id.PassengerID) (*uint256.Int, error)
	Policies(ctx context.Context, passenger id.PassengerID) ([]*ledger.Policy, error)
	Withdraw(ctx context.Context, passenger id.PassengerID) (*uint256.Int, error)
}

// FlightReader serves status polling.
type FlightReader interface {
	ReadFlight(ctx context.Context, key id.FlightKey) (*ledger.Flight, error)
}

// OperatingStatus is the ledger record of whether the protocol is paused.
// Every process sharing the ledger observes the same switch.
type OperatingStatus interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
	ReadOperational(ctx context.Context) (bool, error)
	WriteOperational(ctx context.Context, operational bool) error
}

// Service is the command surface of the protocol.
type Service struct {
	oracles   OracleRegistry
	dispatch  Dispatcher
	resolver  Resolver
	airlines  Airlines
	escrow    Escrow
	flights   FlightReader
	status    OperatingStatus
	publisher events.Publisher
	logger    *slog.Logger
	owner     id.AccountID
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithOwner names the account allowed to pause and resume the protocol.
func WithOwner(owner id.AccountID) Option {
	return func(s *Service) {
		s.owner = owner
	}
}

// Deps groups the services the façade dispatches to.
type Deps struct {
	Oracles  OracleRegistry
	Dispatch Dispatcher
	Resolver Resolver
	Airlines Airlines
	Escrow   Escrow
	Flights  FlightReader
	Status   OperatingStatus
}

func New(deps Deps, opts ...Option) *Service {
	s := &Service{
		oracles:  deps.Oracles,
		dispatch: deps.Dispatch,
		resolver: deps.Resolver,
		airlines: deps.Airlines,
		escrow:   deps.Escrow,
		flights:  deps.Flights,
		status:   deps.Status,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -----------------------------------------------------------------------------
// Operational switch
// -----------------------------------------------------------------------------

// IsOperational reports whether mutating commands are accepted.
func (s *Service) IsOperational(ctx context.Context) (bool, error) {
	operational, err := s.status.ReadOperational(ctx)
	if err != nil {
		return false, ledger.Translate(err, "failed to read operating status")
	}
	return operational, nil
}

// SetOperational pauses or resumes the protocol. Owner only.
func (s *Service) SetOperational(ctx context.Context, operational bool) error {
	caller, err := callerOf(ctx)
	if err != nil {
		return err
	}
	if s.owner.IsNil() || caller != s.owner {
		return dErrors.New(dErrors.CodeForbidden, "only the contract owner may change the operating status")
	}
	changed := false
	err = s.status.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.status.ReadOperational(txCtx)
		if err != nil || current == operational {
			return err
		}
		changed = true
		return s.status.WriteOperational(txCtx, operational)
	})
	if err != nil {
		return ledger.Translate(err, "failed to change operating status")
	}
	if !changed {
		return nil
	}
	s.logger.WarnContext(ctx, "operating status changed",
		"request_id", requestcontext.RequestID(ctx),
		"operational", operational,
		"by", caller,
	)
	if s.publisher != nil {
		s.publisher.Publish(ctx, events.OperationalChanged{Operational: operational, By: caller})
	}
	return nil
}

// mutating returns the caller for a state-changing command.
func (s *Service) mutating(ctx context.Context) (id.AccountID, error) {
	caller, err := callerOf(ctx)
	if err != nil {
		return id.AccountID{}, err
	}
	operational, err := s.IsOperational(ctx)
	if err != nil {
		return id.AccountID{}, err
	}
	if !operational {
		return id.AccountID{}, dErrors.New(dErrors.CodeNotOperational, "protocol is paused")
	}
	return caller, nil
}

func callerOf(ctx context.Context) (id.AccountID, error) {
	caller, ok := requestcontext.Caller(ctx)
	if !ok {
		return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	return caller, nil
}

// -----------------------------------------------------------------------------
// Oracle commands
// -----------------------------------------------------------------------------

func (s *Service) RegisterOracle(ctx context.Context, fee *uint256.Int) ([ledger.IndexCount]uint8, error) {
	caller, err := s.mutating(ctx)
	if err != nil {
		return [ledger.IndexCount]uint8{}, err
	}
	return s.oracles.Register(ctx, caller.Oracle(), fee)
}

func (s *Service) GetMyIndexes(ctx context.Context) ([ledger.IndexCount]uint8, error) {
	caller, err := callerOf(ctx)
	if err != nil {
		return [ledger.IndexCount]uint8{}, err
	}
	return s.oracles.IndexesOf(ctx, caller.Oracle())
}

func (s *Service) FetchFlightStatus(ctx context.Context, flight id.FlightKey) (uint8, error) {
	caller, err := s.mutating(ctx)
	if err != nil {
		return 0, err
	}
	return s.dispatch.RequestStatus(ctx, caller, flight)
}

func (s *Service) SubmitOracleResponse(ctx context.Context, index uint8, flight id.FlightKey, code int) (consensus.Outcome, error) {
	caller, err := s.mutating(ctx)
	if err != nil {
		return consensus.Outcome{}, err
	}
	// The resolver rejects unentitled oracles before unsupported codes, so
	// the code is passed through; anything outside uint8 is never defined.
	status := id.StatusCode(math.MaxUint8)
	if code >= 0 && code <= math.MaxUint8 {
		status = id.StatusCode(code)
	}
	return s.resolver.SubmitResponse(ctx, caller.Oracle(), index, flight, status)
}

// FlightStatus returns the flight record for polling.
func (s *Service) FlightStatus(ctx context.Context, flight id.FlightKey) (*ledger.Flight, error) {
	f, err := s.flights.ReadFlight(ctx, flight)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeUnknownFlight, "flight not registered")
		}
		return nil, ledger.Translate(err, "failed to read flight")
	}
	return f, nil
}

// -----------------------------------------------------------------------------
// Airline commands
// -----------------------------------------------------------------------------

func (s *Service) RegisterAirline(ctx context.Context, candidate id.AirlineID, name string) (*airline.Admission, error) {
	caller, err := s.mutating(ctx)
	if err != nil {
		return nil, err
	}
	return s.airlines.RegisterAirline(ctx, caller.Airline(), candidate, name)
}

// FundAirline deposits amount for an airline. Any caller may pay.
func (s *Service) FundAirline(ctx context.Context, airline id.AirlineID, amount *uint256.Int) error {
	if _, err := s.mutating(ctx); err != nil {
		return err
	}
	return s.airlines.FundAirline(ctx, airline, amount)
}

func (s *Service) RegisterFlight(ctx context.Context, designator string, timestamp int64) (id.FlightKey, error) {
	caller, err := s.mutating(ctx)
	if err != nil {
		return id.FlightKey{}, err
	}
	return s.airlines.RegisterFlight(ctx, caller.Airline(), designator, timestamp)
}

func (s *Service) GetAirline(ctx context.Context, airline id.AirlineID) (*ledger.Airline, error) {
	return s.airlines.Get(ctx, airline)
}

// -----------------------------------------------------------------------------
// Passenger commands
// -----------------------------------------------------------------------------

func (s *Service) BuyInsurance(ctx context.Context, flight id.FlightKey, premium *uint256.Int) (*ledger.Policy, error) {
	caller, err := s.mutating(ctx)
	if err != nil {
		return nil, err
	}
	return s.escrow.BuyInsurance(ctx, caller.Passenger(), flight, premium)
}

func (s *Service) GetPassengerBalance(ctx context.Context) (*uint256.Int, error) {
	caller, err := callerOf(ctx)
	if err != nil {
		return nil, err
	}
	return s.escrow.BalanceOf(ctx, caller.Passenger())
}

func (s *Service) GetPolicies(ctx context.Context) ([]*ledger.Policy, error) {
	caller, err := callerOf(ctx)
	if err != nil {
		return nil, err
	}
	return s.escrow.Policies(ctx, caller.Passenger())
}

func (s *Service) Withdraw(ctx context.Context) (*uint256.Int, error) {
	caller, err := s.mutating(ctx)
	if err != nil {
		return nil, err
	}
	return s.escrow.Withdraw(ctx, caller.Passenger())
}
