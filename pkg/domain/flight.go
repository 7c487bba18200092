package domain

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "flightsurety/pkg/domain-errors"
)

// maxDesignatorLength bounds flight designators such as "ND1309".
const maxDesignatorLength = 16

// FlightKey identifies a flight. The key is immutable once the flight exists.
type FlightKey struct {
	Airline    AirlineID `json:"airline"`
	Designator string    `json:"flight"`
	Timestamp  int64     `json:"timestamp"` // seconds since epoch
}

// NewFlightKey validates and builds a flight key from external input.
//
// Errors: CodeInvalidInput when the designator is blank or too long, or the
// timestamp is not positive.
func NewFlightKey(airline AirlineID, designator string, timestamp int64) (FlightKey, error) {
	designator = strings.TrimSpace(designator)
	if airline.IsNil() {
		return FlightKey{}, dErrors.New(dErrors.CodeInvalidInput, "airline is required")
	}
	if designator == "" {
		return FlightKey{}, dErrors.New(dErrors.CodeInvalidInput, "flight designator is required")
	}
	if len(designator) > maxDesignatorLength {
		return FlightKey{}, dErrors.New(dErrors.CodeInvalidInput, "flight designator is too long")
	}
	if timestamp <= 0 {
		return FlightKey{}, dErrors.New(dErrors.CodeInvalidInput, "timestamp must be positive")
	}
	return FlightKey{Airline: airline, Designator: designator, Timestamp: timestamp}, nil
}

// String renders the key as airline/designator/timestamp; used for log fields
// and store keys.
func (k FlightKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Airline, k.Designator, k.Timestamp)
}

// Digest returns keccak256(airline || designator || timestamp) over the
// packed key, with the timestamp as a 32-byte big-endian word. The digest is
// safe to embed in storage keys whatever characters the designator holds.
func (k FlightKey) Digest() [32]byte {
	var ts [32]byte
	binary.BigEndian.PutUint64(ts[24:], uint64(k.Timestamp))

	h := sha3.NewLegacyKeccak256()
	h.Write(k.Airline[:])
	h.Write([]byte(k.Designator))
	h.Write(ts[:])

	var out [32]byte
	h.Sum(out[:0])
	return out
}

// StatusCode is the status of a flight as reported by oracles.
//
// Usage: construct via ParseStatusCode at trust boundaries.
type StatusCode uint8

// Flight status codes. The numeric values are part of the wire contract.
const (
	StatusUnknown       StatusCode = 0
	StatusOnTime        StatusCode = 10
	StatusLateAirline   StatusCode = 20
	StatusLateWeather   StatusCode = 30
	StatusLateTechnical StatusCode = 40
	StatusLateOther     StatusCode = 50
)

var statusNames = map[StatusCode]string{
	StatusUnknown:       "unknown",
	StatusOnTime:        "on_time",
	StatusLateAirline:   "late_airline",
	StatusLateWeather:   "late_weather",
	StatusLateTechnical: "late_technical",
	StatusLateOther:     "late_other",
}

// StatusCodes lists every defined code in ascending order.
func StatusCodes() []StatusCode {
	return []StatusCode{
		StatusUnknown, StatusOnTime, StatusLateAirline,
		StatusLateWeather, StatusLateTechnical, StatusLateOther,
	}
}

// ParseStatusCode validates a raw code.
//
// Errors: CodeInvalidStatusCode for values outside the defined set.
func ParseStatusCode(v int) (StatusCode, error) {
	if v < 0 || v > 255 {
		return 0, dErrors.New(dErrors.CodeInvalidStatusCode, "status code out of range")
	}
	c := StatusCode(v)
	if !c.IsValid() {
		return 0, dErrors.New(dErrors.CodeInvalidStatusCode, fmt.Sprintf("unsupported status code %d", v))
	}
	return c, nil
}

// IsValid reports whether c is one of the defined codes.
func (c StatusCode) IsValid() bool {
	_, ok := statusNames[c]
	return ok
}

// IsFinal reports whether c represents a resolved flight.
func (c StatusCode) IsFinal() bool {
	return c != StatusUnknown
}

func (c StatusCode) String() string {
	if name, ok := statusNames[c]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(c))
}
