// Package insurance is the escrow: it sells flight insurance up to a premium
// ceiling, credits insured passengers when a flight is finalized as late due
// to the airline, and pays out credits on withdrawal.
package insurance

import (
	"context"
	"log/slog"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flightsurety/internal/events"
	"flightsurety/internal/insurance/metrics"
	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/requestcontext"
)

type Config struct {
	// PremiumCeiling caps a passenger's aggregate premium per flight.
	PremiumCeiling *uint256.Int
	// Credits are Premium * PayoutNumerator / PayoutDenominator.
	PayoutNumerator   uint64
	PayoutDenominator uint64
}

// Credit is one policy's payout assigned at settlement.
type Credit struct {
	Passenger id.PassengerID
	Amount    *uint256.Int
}

// Service is the insurance escrow.
type Service struct {
	ledger    ledger.Gateway
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(gw ledger.Gateway, cfg Config, opts ...Option) *Service {
	s := &Service{
		ledger: gw,
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer("flightsurety/insurance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.PremiumCeiling == nil {
		s.cfg.PremiumCeiling = id.Units(1)
	}
	if s.cfg.PayoutNumerator == 0 || s.cfg.PayoutDenominator == 0 {
		s.cfg.PayoutNumerator, s.cfg.PayoutDenominator = 3, 2
	}
	return s
}

// BuyInsurance adds premium to passenger's policy on flight. Repeat purchases
// accumulate; the total may not exceed the premium ceiling.
func (s *Service) BuyInsurance(ctx context.Context, passenger id.PassengerID, flight id.FlightKey, premium *uint256.Int) (*ledger.Policy, error) {
	if premium == nil || premium.IsZero() {
		return nil, dErrors.New(dErrors.CodePremiumExceedsCeiling, "premium must be positive")
	}
	if premium.Gt(s.cfg.PremiumCeiling) {
		return nil, dErrors.New(dErrors.CodePremiumExceedsCeiling,
			"premium exceeds ceiling of "+s.cfg.PremiumCeiling.Dec())
	}

	now := requestcontext.Now(ctx)
	var policy *ledger.Policy
	err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		f, err := s.ledger.ReadFlight(txCtx, flight)
		if err != nil {
			if ledger.IsNotFound(err) {
				return dErrors.New(dErrors.CodeUnknownFlight, "flight not registered")
			}
			return err
		}
		if f.IsFinalized() {
			return dErrors.New(dErrors.CodeFlightFinalized, "flight status already final")
		}

		policy, err = s.ledger.ReadPolicy(txCtx, passenger, flight)
		switch {
		case err == nil:
		case ledger.IsNotFound(err):
			policy = &ledger.Policy{
				Passenger:   passenger,
				Flight:      flight,
				Premium:     new(uint256.Int),
				Credit:      new(uint256.Int),
				PurchasedAt: now,
			}
		default:
			return err
		}

		total, overflow := new(uint256.Int).AddOverflow(policy.Premium, premium)
		if overflow || total.Gt(s.cfg.PremiumCeiling) {
			return dErrors.New(dErrors.CodePremiumExceedsCeiling,
				"aggregate premium exceeds ceiling of "+s.cfg.PremiumCeiling.Dec())
		}
		policy.Premium = total
		policy.UpdatedAt = now
		return s.ledger.WritePolicy(txCtx, policy)
	})
	if err != nil {
		return nil, ledger.Translate(err, "failed to buy insurance")
	}

	s.metrics.IncPurchase()
	s.logger.InfoContext(ctx, "insurance purchased",
		"request_id", requestcontext.RequestID(ctx),
		"passenger", passenger,
		"flight", flight.String(),
		"premium", premium.Dec(),
	)
	s.publish(ctx, events.InsurancePurchased{Passenger: passenger, Flight: flight, Premium: new(uint256.Int).Set(premium)})
	return policy, nil
}

// HandleFinalized settles the flight named by a FlightStatusFinalized event.
// It satisfies events.Handler.
func (s *Service) HandleFinalized(ctx context.Context, event events.Event) error {
	finalized, ok := event.Payload.(events.FlightStatusFinalized)
	if !ok {
		return nil
	}
	_, err := s.SettleFlight(ctx, finalized.Flight, finalized.Code)
	return err
}

// SettleFlight assigns credits on every unsettled policy of flight. Only
// StatusLateAirline pays; other codes settle policies with no credit. Policies
// already settled are skipped, so a repeated settlement changes nothing.
func (s *Service) SettleFlight(ctx context.Context, flight id.FlightKey, code id.StatusCode) ([]Credit, error) {
	ctx, span := s.tracer.Start(ctx, "insurance.SettleFlight", trace.WithAttributes(
		attribute.String("flight", flight.String()),
		attribute.Int("status_code", int(code)),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	var (
		credits []Credit
		zero    int
	)
	err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		credits, zero = nil, 0
		policies, err := s.ledger.ListPoliciesByFlight(txCtx, flight)
		if err != nil {
			return err
		}
		for _, p := range policies {
			if p.Settled {
				continue
			}
			p.Settled = true
			p.UpdatedAt = now
			if code == id.StatusLateAirline {
				p.Credit = id.Scale(p.Premium, s.cfg.PayoutNumerator, s.cfg.PayoutDenominator)
				credits = append(credits, Credit{Passenger: p.Passenger, Amount: new(uint256.Int).Set(p.Credit)})
			} else {
				zero++
			}
			if err := s.ledger.WritePolicy(txCtx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.IncSettleFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement failed")
		s.logger.ErrorContext(ctx, "flight settlement failed",
			"flight", flight.String(),
			"status", code.String(),
			"error", err,
		)
		return nil, ledger.Translate(err, "failed to settle flight")
	}

	s.metrics.AddSettled(len(credits), zero)
	span.SetAttributes(attribute.Int("credited", len(credits)))
	s.logger.InfoContext(ctx, "flight settled",
		"flight", flight.String(),
		"status", code.String(),
		"credited", len(credits),
		"unpaid", zero,
	)
	for _, c := range credits {
		s.publish(ctx, events.InsuranceCredited{Passenger: c.Passenger, Flight: flight, Amount: c.Amount})
	}
	return credits, nil
}

// BalanceOf returns the credits passenger may withdraw.
func (s *Service) BalanceOf(ctx context.Context, passenger id.PassengerID) (*uint256.Int, error) {
	policies, err := s.ledger.ListPoliciesByPassenger(ctx, passenger)
	if err != nil {
		return nil, ledger.Translate(err, "failed to read policies")
	}
	return sumCredits(policies), nil
}

// Policies lists passenger's policies.
func (s *Service) Policies(ctx context.Context, passenger id.PassengerID) ([]*ledger.Policy, error) {
	policies, err := s.ledger.ListPoliciesByPassenger(ctx, passenger)
	if err != nil {
		return nil, ledger.Translate(err, "failed to read policies")
	}
	return policies, nil
}

// Withdraw pays out every credit passenger holds. Credits are zeroed before
// the transfer inside the same transaction, so concurrent withdrawals pay once.
func (s *Service) Withdraw(ctx context.Context, passenger id.PassengerID) (*uint256.Int, error) {
	ctx, span := s.tracer.Start(ctx, "insurance.Withdraw")
	defer span.End()

	now := requestcontext.Now(ctx)
	var paid *uint256.Int
	err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		policies, err := s.ledger.ListPoliciesByPassenger(txCtx, passenger)
		if err != nil {
			return err
		}
		paid = sumCredits(policies)
		if paid.IsZero() {
			return dErrors.New(dErrors.CodeNothingToWithdraw, "no credit to withdraw")
		}
		for _, p := range policies {
			if p.Credit == nil || p.Credit.IsZero() {
				continue
			}
			p.Credit = new(uint256.Int)
			p.UpdatedAt = now
			if err := s.ledger.WritePolicy(txCtx, p); err != nil {
				return err
			}
		}
		return s.ledger.Transfer(txCtx, id.AccountID(passenger), paid)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, ledger.Translate(err, "failed to withdraw")
	}

	s.metrics.IncWithdrawal()
	s.logger.InfoContext(ctx, "credits withdrawn",
		"request_id", requestcontext.RequestID(ctx),
		"passenger", passenger,
		"amount", paid.Dec(),
	)
	s.publish(ctx, events.Withdrawn{Passenger: passenger, Amount: new(uint256.Int).Set(paid)})
	return paid, nil
}

func sumCredits(policies []*ledger.Policy) *uint256.Int {
	total := new(uint256.Int)
	for _, p := range policies {
		if p.Credit != nil {
			total.Add(total, p.Credit)
		}
	}
	return total
}

func (s *Service) publish(ctx context.Context, payload events.Payload) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, payload)
}
