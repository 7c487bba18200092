// Package domain holds the value types shared by every protocol component:
// participant identities, flight keys, status codes and amounts.
package domain

import (
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "flightsurety/pkg/domain-errors"
)

// AccountID identifies any participant that can sign a command. The same
// account may act as an airline, an oracle and a passenger; the typed IDs
// below keep those roles apart in signatures.
type AccountID uuid.UUID

// AirlineID identifies an airline account.
type AirlineID uuid.UUID

// OracleID identifies an oracle account.
type OracleID uuid.UUID

// PassengerID identifies a passenger account.
type PassengerID uuid.UUID

func (a AccountID) String() string   { return uuid.UUID(a).String() }
func (a AccountID) IsNil() bool      { return uuid.UUID(a) == uuid.Nil }
func (a AirlineID) String() string   { return uuid.UUID(a).String() }
func (a AirlineID) IsNil() bool      { return uuid.UUID(a) == uuid.Nil }
func (o OracleID) String() string    { return uuid.UUID(o).String() }
func (o OracleID) IsNil() bool       { return uuid.UUID(o) == uuid.Nil }
func (p PassengerID) String() string { return uuid.UUID(p).String() }
func (p PassengerID) IsNil() bool    { return uuid.UUID(p) == uuid.Nil }

// Airline views the account in its airline role.
func (a AccountID) Airline() AirlineID { return AirlineID(a) }

// Oracle views the account in its oracle role.
func (a AccountID) Oracle() OracleID { return OracleID(a) }

// Passenger views the account in its passenger role.
func (a AccountID) Passenger() PassengerID { return PassengerID(a) }

// NewAccountID returns a random account identity.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// ParseAccountID parses external input into an AccountID.
//
// Errors: CodeInvalidInput when the value is empty, not a UUID or the nil UUID.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account")
	return AccountID(u), err
}

// ParseAirlineID parses external input into an AirlineID.
func ParseAirlineID(s string) (AirlineID, error) {
	u, err := parseUUID(s, "airline")
	return AirlineID(u), err
}

// ParseOracleID parses external input into an OracleID.
func ParseOracleID(s string) (OracleID, error) {
	u, err := parseUUID(s, "oracle")
	return OracleID(u), err
}

// ParsePassengerID parses external input into a PassengerID.
func ParsePassengerID(s string) (PassengerID, error) {
	u, err := parseUUID(s, "passenger")
	return PassengerID(u), err
}

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be empty")
	}
	if !utf8.ValidString(s) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must be valid UTF-8")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return u, nil
}

func (a AccountID) MarshalText() ([]byte, error)   { return uuid.UUID(a).MarshalText() }
func (a AirlineID) MarshalText() ([]byte, error)   { return uuid.UUID(a).MarshalText() }
func (o OracleID) MarshalText() ([]byte, error)    { return uuid.UUID(o).MarshalText() }
func (p PassengerID) MarshalText() ([]byte, error) { return uuid.UUID(p).MarshalText() }

func (a *AccountID) UnmarshalText(b []byte) error {
	u, err := parseUUID(string(b), "account")
	*a = AccountID(u)
	return err
}

func (a *AirlineID) UnmarshalText(b []byte) error {
	u, err := parseUUID(string(b), "airline")
	*a = AirlineID(u)
	return err
}

func (o *OracleID) UnmarshalText(b []byte) error {
	u, err := parseUUID(string(b), "oracle")
	*o = OracleID(u)
	return err
}

func (p *PassengerID) UnmarshalText(b []byte) error {
	u, err := parseUUID(string(b), "passenger")
	*p = PassengerID(u)
	return err
}
