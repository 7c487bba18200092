// Package dispatch opens flight status requests and announces them to the
// oracles holding the drawn index.
package dispatch

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"flightsurety/internal/events"
	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/requestcontext"
)

type Config struct {
	// IndexRange bounds request indexes to [0, IndexRange).
	IndexRange uint8
	// RequestTTL abandons requests left open longer than this. Zero keeps
	// requests open until a quorum forms.
	RequestTTL time.Duration
}

// Service dispatches status requests.
type Service struct {
	ledger    ledger.Gateway
	publisher events.Publisher
	logger    *slog.Logger
	cfg       Config
	draw      func(n uint8) uint8
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

// WithIndexSource replaces the random request index draw.
func WithIndexSource(draw func(n uint8) uint8) Option {
	return func(s *Service) {
		s.draw = draw
	}
}

func New(gw ledger.Gateway, cfg Config, opts ...Option) *Service {
	s := &Service{
		ledger: gw,
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
		draw: func(n uint8) uint8 {
			return uint8(rand.IntN(int(n)))
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.IndexRange == 0 {
		s.cfg.IndexRange = 10
	}
	return s
}

// RequestStatus opens a status request for flight and returns its index.
// If the drawn (index, flight) request is already open it is reused and no
// new announcement is made.
func (s *Service) RequestStatus(ctx context.Context, requester id.AccountID, flight id.FlightKey) (uint8, error) {
	index := s.draw(s.cfg.IndexRange)
	key := ledger.RequestKey{Index: index, Flight: flight}
	now := requestcontext.Now(ctx)

	opened := false
	var round uint32
	err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.ledger.ReadFlight(txCtx, flight); err != nil {
			if ledger.IsNotFound(err) {
				return dErrors.New(dErrors.CodeUnknownFlight, "flight not registered")
			}
			return err
		}

		existing, err := s.ledger.ReadRequest(txCtx, key)
		switch {
		case err == nil && existing.Open:
			return nil
		case err == nil:
			round = existing.Round + 1
		case !ledger.IsNotFound(err):
			return err
		}

		opened = true
		return s.ledger.WriteRequest(txCtx, &ledger.StatusRequest{
			Key:       key,
			Round:     round,
			Open:      true,
			Requester: requester,
			OpenedAt:  now,
		})
	})
	if err != nil {
		return 0, ledger.Translate(err, "failed to open status request")
	}

	if opened {
		s.logger.InfoContext(ctx, "status request opened",
			"request_id", requestcontext.RequestID(ctx),
			"flight", flight.String(),
			"index", index,
			"round", round,
		)
		s.publish(ctx, events.StatusRequestOpened{Index: index, Flight: flight, Round: round})
	}
	return index, nil
}

// StartSweeper abandons expired requests every interval until ctx is
// cancelled. It returns immediately when no RequestTTL is configured.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) error {
	if s.cfg.RequestTTL <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.SweepExpiredAt(ctx, time.Now()); err != nil {
				s.logger.WarnContext(ctx, "status request sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SweepExpiredAt abandons requests opened more than RequestTTL before now and
// returns how many it closed. Abandoned requests never settle.
// Exported for testability; the sweeper passes wall-clock time.
func (s *Service) SweepExpiredAt(ctx context.Context, now time.Time) (int, error) {
	if s.cfg.RequestTTL <= 0 {
		return 0, nil
	}
	open, err := s.ledger.ListOpenRequests(ctx)
	if err != nil {
		return 0, ledger.Translate(err, "failed to list open requests")
	}

	cutoff := now.Add(-s.cfg.RequestTTL)
	abandoned := 0
	for _, candidate := range open {
		if !candidate.OpenedAt.Before(cutoff) {
			continue
		}
		closed := false
		var round uint32
		err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
			r, err := s.ledger.ReadRequest(txCtx, candidate.Key)
			if err != nil {
				return err
			}
			// A quorum may have closed it since the listing.
			if !r.Open || !r.OpenedAt.Before(cutoff) {
				return nil
			}
			r.ApplyAbandonment(now)
			closed = true
			round = r.Round
			return s.ledger.WriteRequest(txCtx, r)
		})
		if err != nil {
			return abandoned, ledger.Translate(err, "failed to abandon status request")
		}
		if !closed {
			continue
		}
		abandoned++
		s.logger.InfoContext(ctx, "status request abandoned",
			"flight", candidate.Key.Flight.String(),
			"index", candidate.Key.Index,
			"round", round,
			"opened_at", candidate.OpenedAt,
		)
		s.publish(ctx, events.StatusRequestAbandoned{
			Index:  candidate.Key.Index,
			Flight: candidate.Key.Flight,
			Round:  round,
		})
	}
	return abandoned, nil
}

func (s *Service) publish(ctx context.Context, payload events.Payload) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, payload)
}
