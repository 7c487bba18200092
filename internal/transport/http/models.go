package httptransport

import (
	"time"

	"github.com/holiman/uint256"

	"flightsurety/internal/airline"
	"flightsurety/internal/consensus"
	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// Amount is an amount given either in whole units ("1.5") or in the smallest
// unit. Exactly one form must be set.
type Amount struct {
	Units string `json:"units,omitempty"`
	Wei   string `json:"wei,omitempty"`
}

// Parse validates the amount.
func (a Amount) Parse() (*uint256.Int, error) {
	switch {
	case a.Units != "" && a.Wei != "":
		return nil, dErrors.New(dErrors.CodeInvalidInput, "give the amount in units or wei, not both")
	case a.Units != "":
		return id.ParseUnits(a.Units)
	case a.Wei != "":
		return id.ParseAmount(a.Wei)
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount is required")
	}
}

// AmountView renders an amount in both forms.
type AmountView struct {
	Units string `json:"units"`
	Wei   string `json:"wei"`
}

func newAmountView(v *uint256.Int) AmountView {
	if v == nil {
		v = new(uint256.Int)
	}
	return AmountView{Units: id.FormatUnits(v), Wei: v.Dec()}
}

type OperationalRequest struct {
	Operational *bool `json:"operational"`
}

type OperationalResponse struct {
	Operational bool `json:"operational"`
}

type RegisterOracleRequest struct {
	Fee Amount `json:"fee"`
}

type IndexesResponse struct {
	Indexes [ledger.IndexCount]uint8 `json:"indexes"`
}

type OracleResponseRequest struct {
	Index      uint8  `json:"index"`
	Airline    string `json:"airline"`
	Flight     string `json:"flight"`
	Timestamp  int64  `json:"timestamp"`
	StatusCode *int   `json:"status_code"`
}

type OutcomeResponse struct {
	Recorded  bool   `json:"recorded"`
	Stale     bool   `json:"stale"`
	Finalized bool   `json:"finalized"`
	Votes     int    `json:"votes"`
	Status    *uint8 `json:"status_code,omitempty"`
}

func newOutcomeResponse(o consensus.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		Recorded:  o.Recorded,
		Stale:     o.Stale,
		Finalized: o.Finalized,
		Votes:     o.Votes,
	}
	if o.Finalized || o.Stale {
		code := uint8(o.Status)
		resp.Status = &code
	}
	return resp
}

type RegisterAirlineRequest struct {
	Airline string `json:"airline"`
	Name    string `json:"name"`
}

type AdmissionResponse struct {
	Airline    id.AirlineID `json:"airline"`
	Registered bool         `json:"registered"`
	Votes      int          `json:"votes"`
	Required   int          `json:"required"`
	Duplicate  bool         `json:"duplicate"`
}

func newAdmissionResponse(a *airline.Admission) AdmissionResponse {
	return AdmissionResponse{
		Airline:    a.Airline,
		Registered: a.Registered,
		Votes:      a.Votes,
		Required:   a.Required,
		Duplicate:  a.Duplicate,
	}
}

type FundAirlineRequest struct {
	Amount Amount `json:"amount"`
}

type AirlineResponse struct {
	ID        id.AirlineID `json:"id"`
	Name      string       `json:"name"`
	Admission string       `json:"admission"`
	Funding   string       `json:"funding"`
	Funds     AmountView   `json:"funds"`
	CreatedAt time.Time    `json:"created_at"`
}

func newAirlineResponse(a *ledger.Airline) AirlineResponse {
	return AirlineResponse{
		ID:        a.ID,
		Name:      a.Name,
		Admission: string(a.Admission),
		Funding:   string(a.Funding),
		Funds:     newAmountView(a.Funds),
		CreatedAt: a.CreatedAt,
	}
}

type RegisterFlightRequest struct {
	Flight    string `json:"flight"`
	Timestamp int64  `json:"timestamp"`
}

type FlightResponse struct {
	id.FlightKey
	StatusCode   uint8      `json:"status_code"`
	Status       string     `json:"status"`
	Finalized    bool       `json:"finalized"`
	RegisteredAt time.Time  `json:"registered_at"`
	FinalizedAt  *time.Time `json:"finalized_at,omitempty"`
}

func newFlightResponse(f *ledger.Flight) FlightResponse {
	return FlightResponse{
		FlightKey:    f.Key,
		StatusCode:   uint8(f.Status),
		Status:       f.Status.String(),
		Finalized:    f.IsFinalized(),
		RegisteredAt: f.RegisteredAt,
		FinalizedAt:  f.FinalizedAt,
	}
}

type StatusRequestResponse struct {
	Index uint8        `json:"index"`
	Key   id.FlightKey `json:"flight"`
}

type BuyInsuranceRequest struct {
	Premium Amount `json:"premium"`
}

type PolicyResponse struct {
	Flight      id.FlightKey `json:"flight"`
	Premium     AmountView   `json:"premium"`
	Credit      AmountView   `json:"credit"`
	Settled     bool         `json:"settled"`
	PurchasedAt time.Time    `json:"purchased_at"`
}

func newPolicyResponse(p *ledger.Policy) PolicyResponse {
	return PolicyResponse{
		Flight:      p.Flight,
		Premium:     newAmountView(p.Premium),
		Credit:      newAmountView(p.Credit),
		Settled:     p.Settled,
		PurchasedAt: p.PurchasedAt,
	}
}

type BalanceResponse struct {
	Balance AmountView `json:"balance"`
}

type WithdrawalResponse struct {
	Amount AmountView `json:"amount"`
}
