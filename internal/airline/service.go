// Package airline runs airline admission (direct while the consortium is
// small, multiparty voting afterwards), the funding gate and flight
// registration.
package airline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/holiman/uint256"

	"flightsurety/internal/events"
	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/requestcontext"
)

const maxNameLength = 128

type Config struct {
	// DirectAdmissionLimit is the consortium size below which a sponsor
	// admits a candidate alone.
	DirectAdmissionLimit int
	// FundingThreshold is the minimum deposit that opens the funding gate.
	FundingThreshold *uint256.Int
}

// Admission reports where a candidate stands after a registration call.
type Admission struct {
	Airline    id.AirlineID
	Registered bool
	// Votes counts distinct sponsors; zero for direct admission.
	Votes int
	// Required is the vote count that admits the candidate at the current
	// consortium size.
	Required int
	// Duplicate is true when the sponsor had already voted for the candidate.
	Duplicate bool
}

// Service owns the airline lifecycle.
type Service struct {
	ledger    ledger.Gateway
	publisher events.Publisher
	logger    *slog.Logger
	cfg       Config
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

func New(gw ledger.Gateway, cfg Config, opts ...Option) *Service {
	s := &Service{
		ledger: gw,
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.DirectAdmissionLimit <= 0 {
		s.cfg.DirectAdmissionLimit = 4
	}
	if s.cfg.FundingThreshold == nil {
		s.cfg.FundingThreshold = id.Units(10)
	}
	return s
}

// Bootstrap registers the founding airline on an empty ledger. Calling it
// again for the same airline is a no-op.
func (s *Service) Bootstrap(ctx context.Context, airline id.AirlineID, name string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	created := false
	err = s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.ledger.ReadAirline(txCtx, airline); err == nil {
			return nil
		} else if !ledger.IsNotFound(err) {
			return err
		}
		count, err := s.ledger.CountRegisteredAirlines(txCtx)
		if err != nil {
			return err
		}
		if count > 0 {
			return dErrors.New(dErrors.CodeConflict, "consortium already has registered airlines")
		}
		created = true
		return s.ledger.WriteAirline(txCtx, &ledger.Airline{
			ID:        airline,
			Name:      name,
			Admission: ledger.AdmissionRegistered,
			Funding:   ledger.FundingUnfunded,
			Funds:     new(uint256.Int),
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return ledger.Translate(err, "failed to bootstrap airline")
	}
	if created {
		s.logger.InfoContext(ctx, "founding airline registered", "airline", airline, "name", name)
		s.publish(ctx, events.AirlineRegistered{Airline: airline, Name: name})
	}
	return nil
}

// RegisterAirline sponsors candidate on behalf of sponsor. While fewer than
// DirectAdmissionLimit airlines are registered the candidate is admitted at
// once; afterwards each call is a vote and the candidate is admitted when at
// least half of the registered airlines voted for it.
func (s *Service) RegisterAirline(ctx context.Context, sponsor, candidate id.AirlineID, name string) (*Admission, error) {
	if candidate.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "candidate airline required")
	}
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	result := &Admission{Airline: candidate}
	var registeredCount int
	err = s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requireParticipant(txCtx, sponsor); err != nil {
			return err
		}

		record, err := s.ledger.ReadAirline(txCtx, candidate)
		switch {
		case err == nil && record.IsRegistered():
			return dErrors.New(dErrors.CodeAlreadyRegistered, "airline already registered")
		case err == nil:
		case ledger.IsNotFound(err):
			record = &ledger.Airline{
				ID:        candidate,
				Name:      name,
				Admission: ledger.AdmissionPending,
				Funding:   ledger.FundingUnfunded,
				Funds:     new(uint256.Int),
				CreatedAt: now,
				UpdatedAt: now,
			}
		default:
			return err
		}

		registeredCount, err = s.ledger.CountRegisteredAirlines(txCtx)
		if err != nil {
			return err
		}

		if registeredCount < s.cfg.DirectAdmissionLimit {
			record.ApplyAdmission(now)
			result.Registered = true
			return s.ledger.WriteAirline(txCtx, record)
		}

		added, err := s.ledger.AddAdmissionVote(txCtx, candidate, sponsor)
		if err != nil {
			return err
		}
		result.Duplicate = !added
		result.Votes, err = s.ledger.CountAdmissionVotes(txCtx, candidate)
		if err != nil {
			return err
		}
		result.Required = requiredVotes(registeredCount)
		if result.Votes >= result.Required {
			record.ApplyAdmission(now)
			result.Registered = true
		}
		return s.ledger.WriteAirline(txCtx, record)
	})
	if err != nil {
		return nil, ledger.Translate(err, "failed to register airline")
	}

	if result.Votes > 0 && !result.Duplicate {
		s.publish(ctx, events.AdmissionVoteCast{
			Candidate:  candidate,
			Voter:      sponsor,
			Votes:      result.Votes,
			Registered: registeredCount,
		})
	}
	if result.Registered {
		s.logger.InfoContext(ctx, "airline registered",
			"request_id", requestcontext.RequestID(ctx),
			"airline", candidate,
			"sponsor", sponsor,
			"votes", result.Votes,
		)
		s.publish(ctx, events.AirlineRegistered{Airline: candidate, Name: name, Votes: result.Votes})
	}
	return result, nil
}

// requiredVotes is the smallest v with 2v >= registered.
func requiredVotes(registered int) int {
	return (registered + 1) / 2
}

// FundAirline deposits amount for a registered airline and opens its funding
// gate. Deposits after the gate opened add to the airline's funds.
func (s *Service) FundAirline(ctx context.Context, airline id.AirlineID, amount *uint256.Int) error {
	if amount == nil || amount.Lt(s.cfg.FundingThreshold) {
		return dErrors.New(dErrors.CodeInsufficientFunds,
			"funding must be at least "+s.cfg.FundingThreshold.Dec())
	}
	now := requestcontext.Now(ctx)
	err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		record, err := s.ledger.ReadAirline(txCtx, airline)
		if err != nil {
			if ledger.IsNotFound(err) {
				return dErrors.New(dErrors.CodeNotRegistered, "airline not registered")
			}
			return err
		}
		if !record.IsRegistered() {
			return dErrors.New(dErrors.CodeNotRegistered, "airline admission still pending")
		}
		record.ApplyFunding(amount, now)
		return s.ledger.WriteAirline(txCtx, record)
	})
	if err != nil {
		return ledger.Translate(err, "failed to fund airline")
	}
	s.logger.InfoContext(ctx, "airline funded",
		"request_id", requestcontext.RequestID(ctx),
		"airline", airline,
		"amount", amount.Dec(),
	)
	s.publish(ctx, events.AirlineFunded{Airline: airline, Amount: new(uint256.Int).Set(amount)})
	return nil
}

// RegisterFlight records a flight for a funded airline.
func (s *Service) RegisterFlight(ctx context.Context, airline id.AirlineID, designator string, timestamp int64) (id.FlightKey, error) {
	key, err := id.NewFlightKey(airline, designator, timestamp)
	if err != nil {
		return id.FlightKey{}, err
	}
	now := requestcontext.Now(ctx)
	err = s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requireParticipant(txCtx, airline); err != nil {
			return err
		}
		if _, err := s.ledger.ReadFlight(txCtx, key); err == nil {
			return dErrors.New(dErrors.CodeAlreadyRegistered, "flight already registered")
		} else if !ledger.IsNotFound(err) {
			return err
		}
		return s.ledger.WriteFlight(txCtx, &ledger.Flight{
			Key:          key,
			Status:       id.StatusUnknown,
			RegisteredAt: now,
		})
	})
	if err != nil {
		return id.FlightKey{}, ledger.Translate(err, "failed to register flight")
	}
	s.logger.InfoContext(ctx, "flight registered",
		"request_id", requestcontext.RequestID(ctx),
		"flight", key.String(),
	)
	s.publish(ctx, events.FlightRegistered{Flight: key})
	return key, nil
}

// Get returns the airline record.
func (s *Service) Get(ctx context.Context, airline id.AirlineID) (*ledger.Airline, error) {
	record, err := s.ledger.ReadAirline(ctx, airline)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeNotRegistered, "airline not registered")
		}
		return nil, ledger.Translate(err, "failed to read airline")
	}
	return record, nil
}

func (s *Service) requireParticipant(ctx context.Context, airline id.AirlineID) error {
	record, err := s.ledger.ReadAirline(ctx, airline)
	if err != nil {
		if ledger.IsNotFound(err) {
			return dErrors.New(dErrors.CodeCallerNotFunded, "caller is not a registered airline")
		}
		return err
	}
	return record.RequireParticipant()
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", dErrors.New(dErrors.CodeValidation, "airline name required")
	}
	if len(name) > maxNameLength {
		return "", dErrors.New(dErrors.CodeValidation, "airline name too long")
	}
	return name, nil
}

func (s *Service) publish(ctx context.Context, payload events.Payload) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, payload)
}
