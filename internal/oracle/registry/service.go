// Package registry admits oracles against a registration fee and assigns each
// one three request indexes it may answer for.
package registry

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/holiman/uint256"

	"flightsurety/internal/events"
	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/requestcontext"
)

// Config holds the registration rules.
type Config struct {
	RegistrationFee *uint256.Int
	// IndexRange bounds assigned indexes to [0, IndexRange).
	IndexRange uint8
	// AllowReRegistration replaces the index set of an already registered
	// oracle instead of rejecting the call.
	AllowReRegistration bool
}

// IndexSource draws a value in [0, n).
type IndexSource func(n uint8) uint8

func randomIndex(n uint8) uint8 {
	return uint8(rand.IntN(int(n)))
}

// Service owns oracle registration.
type Service struct {
	ledger    ledger.Gateway
	publisher events.Publisher
	logger    *slog.Logger
	cfg       Config
	draw      IndexSource
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

// WithIndexSource replaces the random index draw. Tests use it to pin indexes.
func WithIndexSource(draw IndexSource) Option {
	return func(s *Service) {
		s.draw = draw
	}
}

func New(gw ledger.Gateway, cfg Config, opts ...Option) *Service {
	s := &Service{
		ledger: gw,
		cfg:    cfg,
		draw:   randomIndex,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.IndexRange == 0 {
		s.cfg.IndexRange = 10
	}
	if s.cfg.RegistrationFee == nil {
		s.cfg.RegistrationFee = id.Units(1)
	}
	return s
}

// Register admits oracle after it paid exactly the registration fee and
// returns its three indexes. Indexes are drawn independently and may repeat.
func (s *Service) Register(ctx context.Context, oracle id.OracleID, fee *uint256.Int) ([ledger.IndexCount]uint8, error) {
	var indexes [ledger.IndexCount]uint8
	if oracle.IsNil() {
		return indexes, dErrors.New(dErrors.CodeUnauthorized, "oracle identity required")
	}
	if fee == nil || !fee.Eq(s.cfg.RegistrationFee) {
		return indexes, dErrors.New(dErrors.CodeInsufficientFee,
			"registration fee must be exactly "+s.cfg.RegistrationFee.Dec())
	}

	for i := range indexes {
		indexes[i] = s.draw(s.cfg.IndexRange)
	}

	now := requestcontext.Now(ctx)
	err := s.ledger.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.ledger.ReadOracle(txCtx, oracle)
		switch {
		case err == nil && !s.cfg.AllowReRegistration:
			return dErrors.New(dErrors.CodeAlreadyRegistered, "oracle already registered")
		case err == nil:
			s.logger.InfoContext(ctx, "oracle re-registered with fresh indexes",
				"oracle", oracle,
				"previous_indexes", existing.Indexes,
			)
		case !ledger.IsNotFound(err):
			return err
		}
		return s.ledger.WriteOracle(txCtx, &ledger.Oracle{
			ID:           oracle,
			Indexes:      indexes,
			Fee:          new(uint256.Int).Set(fee),
			RegisteredAt: now,
		})
	})
	if err != nil {
		return [ledger.IndexCount]uint8{}, ledger.Translate(err, "failed to register oracle")
	}

	s.logger.InfoContext(ctx, "oracle registered",
		"request_id", requestcontext.RequestID(ctx),
		"oracle", oracle,
		"indexes", indexes,
	)
	s.publish(ctx, events.OracleRegistered{Oracle: oracle, Indexes: indexes})
	return indexes, nil
}

// IndexesOf returns the indexes assigned to oracle.
func (s *Service) IndexesOf(ctx context.Context, oracle id.OracleID) ([ledger.IndexCount]uint8, error) {
	o, err := s.ledger.ReadOracle(ctx, oracle)
	if err != nil {
		if ledger.IsNotFound(err) {
			return [ledger.IndexCount]uint8{}, dErrors.New(dErrors.CodeNotRegistered, "oracle not registered")
		}
		return [ledger.IndexCount]uint8{}, ledger.Translate(err, "failed to read oracle")
	}
	return o.Indexes, nil
}

// Entitled reports whether oracle holds index. Unregistered oracles hold none.
func (s *Service) Entitled(ctx context.Context, oracle id.OracleID, index uint8) (bool, error) {
	o, err := s.ledger.ReadOracle(ctx, oracle)
	if err != nil {
		if ledger.IsNotFound(err) {
			return false, nil
		}
		return false, ledger.Translate(err, "failed to read oracle")
	}
	return o.HasIndex(index), nil
}

// EligibleFor lists the oracles that may answer a request carrying index.
func (s *Service) EligibleFor(ctx context.Context, index uint8) ([]id.OracleID, error) {
	if index >= s.cfg.IndexRange {
		return nil, nil
	}
	oracles, err := s.ledger.OraclesByIndex(ctx, index)
	if err != nil {
		return nil, ledger.Translate(err, "failed to list oracles by index")
	}
	return oracles, nil
}

func (s *Service) publish(ctx context.Context, payload events.Payload) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, payload)
}
