package ledger

import (
	"strconv"
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	id "flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// AdmissionStatus tracks whether an airline has been admitted.
type AdmissionStatus string

const (
	AdmissionPending    AdmissionStatus = "pending"
	AdmissionRegistered AdmissionStatus = "registered"
)

// FundingStatus tracks whether an airline has met the funding gate.
type FundingStatus string

const (
	FundingUnfunded FundingStatus = "unfunded"
	FundingFunded   FundingStatus = "funded"
)

// Airline is the ledger record of an airline.
//
// Invariants:
//   - Airlines are never deleted
//   - Admission moves pending → registered only
//   - Funding moves unfunded → funded only, and only once registered
//   - Only registered, funded airlines may register flights, vote or sponsor
type Airline struct {
	ID        id.AirlineID
	Name      string
	Admission AdmissionStatus
	Funding   FundingStatus
	Funds     *uint256.Int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsRegistered reports whether the airline completed admission.
func (a *Airline) IsRegistered() bool {
	return a.Admission == AdmissionRegistered
}

// IsFunded reports whether the airline passed the funding gate.
func (a *Airline) IsFunded() bool {
	return a.IsRegistered() && a.Funding == FundingFunded
}

// RequireParticipant enforces the funding gate.
func (a *Airline) RequireParticipant() error {
	if !a.IsFunded() {
		return dErrors.New(dErrors.CodeCallerNotFunded, "airline must be registered and funded to participate")
	}
	return nil
}

// ApplyAdmission moves a pending airline to registered(unfunded).
func (a *Airline) ApplyAdmission(now time.Time) {
	a.Admission = AdmissionRegistered
	a.UpdatedAt = now
}

// ApplyFunding records a deposit and opens the funding gate.
func (a *Airline) ApplyFunding(amount *uint256.Int, now time.Time) {
	if a.Funds == nil {
		a.Funds = new(uint256.Int)
	}
	a.Funds = new(uint256.Int).Add(a.Funds, amount)
	a.Funding = FundingFunded
	a.UpdatedAt = now
}

func (a *Airline) Clone() *Airline {
	c := *a
	c.Funds = cloneAmount(a.Funds)
	return &c
}

// Flight is the ledger record of a registered flight. Status is written
// exactly once, by the consensus resolver.
type Flight struct {
	Key          id.FlightKey
	Status       id.StatusCode
	RegisteredAt time.Time
	FinalizedAt  *time.Time
}

// IsFinalized reports whether oracles already resolved the flight.
func (f *Flight) IsFinalized() bool {
	return f.FinalizedAt != nil
}

func (f *Flight) Clone() *Flight {
	c := *f
	if f.FinalizedAt != nil {
		t := *f.FinalizedAt
		c.FinalizedAt = &t
	}
	return &c
}

// IndexCount is the number of indexes assigned to every oracle.
const IndexCount = 3

// Oracle is the ledger record of a registered oracle. Indexes are fixed for
// the lifetime of the registration and may repeat.
type Oracle struct {
	ID           id.OracleID
	Indexes      [IndexCount]uint8
	Fee          *uint256.Int
	RegisteredAt time.Time
}

// HasIndex reports whether the oracle may answer requests carrying index.
func (o *Oracle) HasIndex(index uint8) bool {
	for _, i := range o.Indexes {
		if i == index {
			return true
		}
	}
	return false
}

func (o *Oracle) Clone() *Oracle {
	c := *o
	c.Fee = cloneAmount(o.Fee)
	return &c
}

// RequestKey identifies a status request. Requests for different flights may
// share an index, so the flight is part of the key.
type RequestKey struct {
	Index  uint8
	Flight id.FlightKey
}

func (k RequestKey) String() string {
	return k.Flight.String() + "#" + strconv.Itoa(int(k.Index))
}

// Digest returns keccak256(index || flight digest).
func (k RequestKey) Digest() [32]byte {
	flight := k.Flight.Digest()
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte{k.Index})
	h.Write(flight[:])

	var out [32]byte
	h.Sum(out[:0])
	return out
}

// RoundKey identifies one open period of a status request. A request
// reopened after closing starts a new round; votes never carry across rounds.
type RoundKey struct {
	Request RequestKey
	Round   uint32
}

func (k RoundKey) String() string {
	return k.Request.String() + "/" + strconv.FormatUint(uint64(k.Round), 10)
}

// Digest returns keccak256(request digest || round), round big-endian.
func (k RoundKey) Digest() [32]byte {
	request := k.Request.Digest()
	h := sha3.NewLegacyKeccak256()
	h.Write(request[:])
	h.Write([]byte{byte(k.Round >> 24), byte(k.Round >> 16), byte(k.Round >> 8), byte(k.Round)})

	var out [32]byte
	h.Sum(out[:0])
	return out
}

// StatusRequest is the ledger record of a dispatched status request.
// Closed is terminal for the round; a new dispatch reopens it as Round+1.
type StatusRequest struct {
	Key       RequestKey
	Round     uint32
	Open      bool
	Requester id.AccountID
	OpenedAt  time.Time
	ClosedAt  *time.Time
	Outcome   id.StatusCode
	// Abandoned marks a request closed by the expiry sweep without a quorum.
	Abandoned bool
}

// ApplyClosure closes the request with the winning code.
func (r *StatusRequest) ApplyClosure(code id.StatusCode, now time.Time) {
	r.Open = false
	r.Outcome = code
	r.ClosedAt = &now
}

// ApplyAbandonment closes the request without an outcome.
func (r *StatusRequest) ApplyAbandonment(now time.Time) {
	r.Open = false
	r.Abandoned = true
	r.ClosedAt = &now
}

// CurrentRound is the key votes for this request are tallied under.
func (r *StatusRequest) CurrentRound() RoundKey {
	return RoundKey{Request: r.Key, Round: r.Round}
}

func (r *StatusRequest) Clone() *StatusRequest {
	c := *r
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

// Policy is a passenger's insurance on one flight.
//
// Invariants:
//   - 0 < Premium <= premium ceiling, in aggregate over all purchases
//   - Credit is assigned once, at settlement (Settled flips to true)
//   - Credit only decreases afterwards, to zero, on withdrawal
type Policy struct {
	Passenger   id.PassengerID
	Flight      id.FlightKey
	Premium     *uint256.Int
	Credit      *uint256.Int
	Settled     bool
	PurchasedAt time.Time
	UpdatedAt   time.Time
}

func (p *Policy) Clone() *Policy {
	c := *p
	c.Premium = cloneAmount(p.Premium)
	c.Credit = cloneAmount(p.Credit)
	return &c
}

// Transfer records a payout from the escrow to an account.
type Transfer struct {
	To     id.AccountID
	Amount *uint256.Int
	At     time.Time
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
