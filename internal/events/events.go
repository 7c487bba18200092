// Package events is the protocol's notification surface. Services publish
// typed payloads after their ledger transaction commits; the escrow, the
// oracle simulator and the Kafka sink subscribe.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	id "flightsurety/pkg/domain"
)

// Kind names an event type on the wire and in subscriptions.
type Kind string

const (
	KindAirlineRegistered      Kind = "airline_registered"
	KindAirlineFunded          Kind = "airline_funded"
	KindAdmissionVoteCast      Kind = "admission_vote_cast"
	KindFlightRegistered       Kind = "flight_registered"
	KindOracleRegistered       Kind = "oracle_registered"
	KindStatusRequestOpened    Kind = "status_request_opened"
	KindStatusRequestAbandoned Kind = "status_request_abandoned"
	KindFlightStatusFinalized  Kind = "flight_status_finalized"
	KindInsurancePurchased     Kind = "insurance_purchased"
	KindInsuranceCredited      Kind = "insurance_credited"
	KindWithdrawn              Kind = "withdrawn"
	KindOperationalChanged     Kind = "operational_changed"
)

// Payload is implemented by every event body.
type Payload interface {
	Kind() Kind
}

// Event is the envelope delivered to subscribers.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Kind       Kind      `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	RequestID  string    `json:"request_id,omitempty"`
	Payload    Payload   `json:"payload"`
}

type AirlineRegistered struct {
	Airline id.AirlineID `json:"airline"`
	Name    string       `json:"name"`
	// Votes is zero for direct admissions.
	Votes int `json:"votes"`
}

func (AirlineRegistered) Kind() Kind { return KindAirlineRegistered }

type AirlineFunded struct {
	Airline id.AirlineID `json:"airline"`
	Amount  *uint256.Int `json:"amount"`
}

func (AirlineFunded) Kind() Kind { return KindAirlineFunded }

type AdmissionVoteCast struct {
	Candidate  id.AirlineID `json:"candidate"`
	Voter      id.AirlineID `json:"voter"`
	Votes      int          `json:"votes"`
	Registered int          `json:"registered"`
}

func (AdmissionVoteCast) Kind() Kind { return KindAdmissionVoteCast }

type FlightRegistered struct {
	Flight id.FlightKey `json:"flight"`
}

func (FlightRegistered) Kind() Kind { return KindFlightRegistered }

type OracleRegistered struct {
	Oracle  id.OracleID `json:"oracle"`
	Indexes [3]uint8    `json:"indexes"`
}

func (OracleRegistered) Kind() Kind { return KindOracleRegistered }

// StatusRequestOpened asks every oracle holding Index to report on Flight.
type StatusRequestOpened struct {
	Index  uint8        `json:"index"`
	Flight id.FlightKey `json:"flight"`
	Round  uint32       `json:"round"`
}

func (StatusRequestOpened) Kind() Kind { return KindStatusRequestOpened }

// StatusRequestAbandoned names the round the expiry sweep closed. Later
// rounds of the same request are unaffected.
type StatusRequestAbandoned struct {
	Index  uint8        `json:"index"`
	Flight id.FlightKey `json:"flight"`
	Round  uint32       `json:"round"`
}

func (StatusRequestAbandoned) Kind() Kind { return KindStatusRequestAbandoned }

// FlightStatusFinalized is published each time a status request closes with
// a status. Reaffirmed marks a round that closed on a flight finalized
// earlier; the status is unchanged and settlement runs again for any policy
// left unsettled.
type FlightStatusFinalized struct {
	Index      uint8         `json:"index"`
	Flight     id.FlightKey  `json:"flight"`
	Code       id.StatusCode `json:"code"`
	Reaffirmed bool          `json:"reaffirmed,omitempty"`
}

func (FlightStatusFinalized) Kind() Kind { return KindFlightStatusFinalized }

type InsurancePurchased struct {
	Passenger id.PassengerID `json:"passenger"`
	Flight    id.FlightKey   `json:"flight"`
	Premium   *uint256.Int   `json:"premium"`
}

func (InsurancePurchased) Kind() Kind { return KindInsurancePurchased }

type InsuranceCredited struct {
	Passenger id.PassengerID `json:"passenger"`
	Flight    id.FlightKey   `json:"flight"`
	Amount    *uint256.Int   `json:"amount"`
}

func (InsuranceCredited) Kind() Kind { return KindInsuranceCredited }

type Withdrawn struct {
	Passenger id.PassengerID `json:"passenger"`
	Amount    *uint256.Int   `json:"amount"`
}

func (Withdrawn) Kind() Kind { return KindWithdrawn }

type OperationalChanged struct {
	Operational bool         `json:"operational"`
	By          id.AccountID `json:"by"`
}

func (OperationalChanged) Kind() Kind { return KindOperationalChanged }
