// Package ledger defines the gateway to the shared transactional ledger that
// is the system of record for airlines, flights, oracles, status requests and
// policies.
//
// Services never hold private copies of ledger records. Every
// check-then-write sequence runs inside RunInTx so concurrent callers, in
// this process or another, observe serializable outcomes.
package ledger

import (
	"context"

	"github.com/holiman/uint256"

	id "flightsurety/pkg/domain"
)

// Gateway is the ledger abstraction consumed by the protocol services.
//
// Reads return sentinel.ErrNotFound for missing records. Transport failures
// are reported as sentinel.ErrUnavailable and are never retried here.
//
// Calls made with a context returned by RunInTx join that transaction.
type Gateway interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error

	ReadAirline(ctx context.Context, airline id.AirlineID) (*Airline, error)
	WriteAirline(ctx context.Context, airline *Airline) error
	CountRegisteredAirlines(ctx context.Context) (int, error)
	// AddAdmissionVote records voter's vote for candidate. added is false when
	// the vote was already recorded.
	AddAdmissionVote(ctx context.Context, candidate, voter id.AirlineID) (added bool, err error)
	CountAdmissionVotes(ctx context.Context, candidate id.AirlineID) (int, error)

	ReadFlight(ctx context.Context, key id.FlightKey) (*Flight, error)
	WriteFlight(ctx context.Context, flight *Flight) error

	ReadOracle(ctx context.Context, oracle id.OracleID) (*Oracle, error)
	WriteOracle(ctx context.Context, oracle *Oracle) error
	// OraclesByIndex returns the oracles entitled to answer requests with index.
	OraclesByIndex(ctx context.Context, index uint8) ([]id.OracleID, error)

	ReadRequest(ctx context.Context, key RequestKey) (*StatusRequest, error)
	WriteRequest(ctx context.Context, request *StatusRequest) error
	ListOpenRequests(ctx context.Context) ([]*StatusRequest, error)

	ReadPolicy(ctx context.Context, passenger id.PassengerID, flight id.FlightKey) (*Policy, error)
	WritePolicy(ctx context.Context, policy *Policy) error
	ListPoliciesByFlight(ctx context.Context, flight id.FlightKey) ([]*Policy, error)
	ListPoliciesByPassenger(ctx context.Context, passenger id.PassengerID) ([]*Policy, error)

	// Transfer pays amount out of the escrow to the account.
	Transfer(ctx context.Context, to id.AccountID, amount *uint256.Int) error

	// ReadOperational reports the protocol's operating status. A ledger that
	// never recorded one is operational.
	ReadOperational(ctx context.Context) (bool, error)
	WriteOperational(ctx context.Context, operational bool) error
}
