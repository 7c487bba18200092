// Package consensus collects oracle responses for open status requests and
// finalizes a flight's status once one status code reaches quorum.
package consensus

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flightsurety/internal/consensus/metrics"
	"flightsurety/internal/events"
	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/sentinel"
	"flightsurety/pkg/requestcontext"
)

// MinQuorum is the smallest quorum threshold the resolver accepts.
const MinQuorum = 3

// Tally holds the transient responder sets per request round and status code.
type Tally interface {
	// Record adds oracle to the responders for code and returns how many
	// distinct oracles responded with code in the round.
	Record(ctx context.Context, key ledger.RoundKey, oracle id.OracleID, code id.StatusCode) (int, error)
	// Discard drops every vote held for the round.
	Discard(ctx context.Context, key ledger.RoundKey) error
}

// Entitlements answers whether an oracle may respond with an index.
type Entitlements interface {
	Entitled(ctx context.Context, oracle id.OracleID, index uint8) (bool, error)
}

// Outcome describes what a response did.
type Outcome struct {
	// Recorded is true when the vote counted toward an open request.
	Recorded bool
	// Stale is true when the request was already closed; nothing changed.
	Stale bool
	// Finalized is true when this response closed the request.
	Finalized bool
	// Votes is the responder count for the submitted code after recording.
	Votes int
	// Status is the request's final status once closed.
	Status id.StatusCode
}

// Service is the consensus resolver.
type Service struct {
	ledger       ledger.Gateway
	tally        Tally
	entitlements Entitlements
	publisher    events.Publisher
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	quorum       int
	locks        requestLocks
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

// WithQuorum sets the responder count that finalizes a status. Values below
// MinQuorum are raised to MinQuorum.
func WithQuorum(n int) Option {
	return func(s *Service) {
		s.quorum = n
	}
}

func New(gw ledger.Gateway, tally Tally, entitlements Entitlements, opts ...Option) *Service {
	s := &Service{
		ledger:       gw,
		tally:        tally,
		entitlements: entitlements,
		logger:       slog.New(slog.DiscardHandler),
		tracer:       otel.Tracer("flightsurety/consensus"),
		quorum:       MinQuorum,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.quorum < MinQuorum {
		s.quorum = MinQuorum
	}
	return s
}

// Quorum returns the configured quorum threshold.
func (s *Service) Quorum() int {
	return s.quorum
}

// SubmitResponse records oracle's report of code for the request (index,
// flight) and closes the request when code reaches quorum. Responses to
// closed requests are accepted and change nothing.
func (s *Service) SubmitResponse(ctx context.Context, oracle id.OracleID, index uint8, flight id.FlightKey, code id.StatusCode) (Outcome, error) {
	start := time.Now()
	defer s.metrics.ObserveSubmit(start)

	ctx, span := s.tracer.Start(ctx, "consensus.SubmitResponse", trace.WithAttributes(
		attribute.String("flight", flight.String()),
		attribute.Int("index", int(index)),
		attribute.Int("status_code", int(code)),
	))
	defer span.End()

	outcome, err := s.submit(ctx, oracle, index, flight, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		s.metrics.IncResponse("rejected")
		return Outcome{}, err
	}
	span.SetAttributes(
		attribute.Bool("stale", outcome.Stale),
		attribute.Bool("finalized", outcome.Finalized),
		attribute.Int("votes", outcome.Votes),
	)
	if outcome.Stale {
		s.metrics.IncResponse("stale")
	} else {
		s.metrics.IncResponse("recorded")
	}
	return outcome, nil
}

func (s *Service) submit(ctx context.Context, oracle id.OracleID, index uint8, flight id.FlightKey, code id.StatusCode) (Outcome, error) {
	entitled, err := s.entitlements.Entitled(ctx, oracle, index)
	if err != nil {
		return Outcome{}, err
	}
	if !entitled {
		return Outcome{}, dErrors.New(dErrors.CodeNotEntitled, "oracle does not hold the request index")
	}
	if !code.IsValid() {
		return Outcome{}, dErrors.New(dErrors.CodeInvalidStatusCode, "unsupported status code")
	}

	key := ledger.RequestKey{Index: index, Flight: flight}
	unlock := s.locks.lock(key)
	defer unlock()

	request, err := s.ledger.ReadRequest(ctx, key)
	if err != nil {
		if ledger.IsNotFound(err) {
			return Outcome{}, dErrors.New(dErrors.CodeNoSuchOpenRequest, "no status request for index and flight")
		}
		return Outcome{}, ledger.Translate(err, "failed to read status request")
	}
	if !request.Open {
		return Outcome{Stale: true, Status: request.Outcome}, nil
	}

	round := request.CurrentRound()
	votes, err := s.tally.Record(ctx, round, oracle, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return Outcome{}, dErrors.Wrap(err, dErrors.CodeTallyUnavailable, "vote tally unavailable")
		}
		return Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record vote")
	}
	if votes < s.quorum {
		return Outcome{Recorded: true, Votes: votes}, nil
	}

	return s.close(ctx, round, code, votes)
}

// close finalizes the request in one ledger transaction. The first quorum to
// commit wins; a failed commit discards the tally and leaves the request open.
func (s *Service) close(ctx context.Context, round ledger.RoundKey, code id.StatusCode, votes int) (Outcome, error) {
	key := round.Request
	now := requestcontext.Now(ctx)
	var (
		final       = code
		closedHere  bool
		wroteStatus bool
	)
	err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		request, err := s.ledger.ReadRequest(txCtx, key)
		if err != nil {
			return err
		}
		// Votes only close the round they were cast in.
		if !request.Open || request.Round != round.Round {
			final = request.Outcome
			return nil
		}

		flight, err := s.ledger.ReadFlight(txCtx, key.Flight)
		if err != nil {
			return err
		}
		// A flight keeps the first status it was given; later rounds close
		// with that status.
		if flight.IsFinalized() {
			final = flight.Status
		} else {
			flight.Status = code
			flight.FinalizedAt = &now
			if err := s.ledger.WriteFlight(txCtx, flight); err != nil {
				return err
			}
			wroteStatus = true
		}

		request.ApplyClosure(final, now)
		closedHere = true
		return s.ledger.WriteRequest(txCtx, request)
	})
	if err != nil {
		s.metrics.IncClosureFailure()
		if derr := s.tally.Discard(ctx, round); derr != nil {
			err = errors.Join(err, derr)
		}
		s.logger.ErrorContext(ctx, "status request closure failed, tally discarded",
			"request_id", requestcontext.RequestID(ctx),
			"request", round.String(),
			"status", code.String(),
			"error", err,
		)
		return Outcome{}, ledger.Translate(err, "failed to finalize flight status")
	}

	if err := s.tally.Discard(ctx, round); err != nil {
		s.logger.WarnContext(ctx, "failed to discard tally after closure",
			"request", round.String(),
			"error", err,
		)
	}

	if !closedHere {
		return Outcome{Stale: true, Votes: votes, Status: final}, nil
	}

	s.logger.InfoContext(ctx, "status request closed",
		"request_id", requestcontext.RequestID(ctx),
		"request", round.String(),
		"status", final.String(),
		"votes", votes,
	)
	if wroteStatus {
		s.metrics.IncFinalized(final, votes)
	}
	s.publish(ctx, events.FlightStatusFinalized{
		Index:      key.Index,
		Flight:     key.Flight,
		Code:       final,
		Reaffirmed: !wroteStatus,
	})
	return Outcome{Recorded: true, Finalized: true, Votes: votes, Status: final}, nil
}

// HandleAbandoned drops the tally of the round the dispatcher abandoned.
// Votes of a later round of the same request are kept. It satisfies
// events.Handler.
func (s *Service) HandleAbandoned(ctx context.Context, event events.Event) error {
	abandoned, ok := event.Payload.(events.StatusRequestAbandoned)
	if !ok {
		return nil
	}
	key := ledger.RequestKey{Index: abandoned.Index, Flight: abandoned.Flight}
	unlock := s.locks.lock(key)
	defer unlock()
	return s.tally.Discard(ctx, ledger.RoundKey{Request: key, Round: abandoned.Round})
}

func (s *Service) publish(ctx context.Context, payload events.Payload) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, payload)
}
