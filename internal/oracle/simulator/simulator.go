// Package simulator runs a fleet of in-process oracles that answer every
// status request they are entitled to.
package simulator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"flightsurety/internal/consensus"
	"flightsurety/internal/events"
	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/requestcontext"
)

// Protocol is the command surface simulated oracles use. Commands run as the
// oracle's own account.
type Protocol interface {
	RegisterOracle(ctx context.Context, fee *uint256.Int) ([ledger.IndexCount]uint8, error)
	SubmitOracleResponse(ctx context.Context, index uint8, flight id.FlightKey, code int) (consensus.Outcome, error)
}

// Directory resolves which oracles hold an index.
type Directory interface {
	EligibleFor(ctx context.Context, index uint8) ([]id.OracleID, error)
}

type Config struct {
	Count int
	Fee   *uint256.Int
	// Codes restricts the reported codes; empty draws from every defined code.
	Codes []id.StatusCode
	// Concurrency bounds in-flight registrations and submissions.
	Concurrency int
}

// Simulator owns a set of oracle accounts.
type Simulator struct {
	protocol  Protocol
	directory Directory
	cfg       Config
	logger    *slog.Logger
	pick      func(codes []id.StatusCode) id.StatusCode

	mu      sync.RWMutex
	oracles map[id.OracleID][ledger.IndexCount]uint8
}

type Option func(*Simulator)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// WithCodePicker replaces the random code choice.
func WithCodePicker(pick func(codes []id.StatusCode) id.StatusCode) Option {
	return func(s *Simulator) {
		s.pick = pick
	}
}

func New(protocol Protocol, directory Directory, cfg Config, opts ...Option) *Simulator {
	if len(cfg.Codes) == 0 {
		cfg.Codes = id.StatusCodes()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	s := &Simulator{
		protocol:  protocol,
		directory: directory,
		cfg:       cfg,
		logger:    slog.New(slog.DiscardHandler),
		pick:      randomCode,
		oracles:   make(map[id.OracleID][ledger.IndexCount]uint8),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func randomCode(codes []id.StatusCode) id.StatusCode {
	return codes[rand.IntN(len(codes))]
}

// RegisterAll registers cfg.Count fresh oracle accounts. Oracles registered
// before a failure stay registered.
func (s *Simulator) RegisterAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := 0; i < s.cfg.Count; i++ {
		account := id.NewAccountID()
		g.Go(func() error {
			indexes, err := s.protocol.RegisterOracle(requestcontext.WithCaller(gctx, account), s.cfg.Fee)
			if err != nil {
				return err
			}
			s.mu.Lock()
			s.oracles[account.Oracle()] = indexes
			s.mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	s.logger.InfoContext(ctx, "simulated oracles registered",
		"count", s.Len(),
		"requested", s.cfg.Count,
	)
	return err
}

// Len reports how many oracles the simulator owns.
func (s *Simulator) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.oracles)
}

// Indexes returns the indexes of an owned oracle.
func (s *Simulator) Indexes(oracle id.OracleID) ([ledger.IndexCount]uint8, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.oracles[oracle]
	return idx, ok
}

// HandleOpened answers a StatusRequestOpened event from every owned oracle
// holding the request index. Rejected responses are logged, not returned.
func (s *Simulator) HandleOpened(ctx context.Context, event events.Event) error {
	opened, ok := event.Payload.(events.StatusRequestOpened)
	if !ok {
		return nil
	}
	_, err := s.Respond(ctx, opened.Index, opened.Flight)
	return err
}

// Respond submits one response per eligible owned oracle and returns how many
// were accepted.
func (s *Simulator) Respond(ctx context.Context, index uint8, flight id.FlightKey) (int, error) {
	eligible, err := s.directory.EligibleFor(ctx, index)
	if err != nil {
		return 0, err
	}

	var (
		mu       sync.Mutex
		accepted int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, oracle := range eligible {
		if _, owned := s.Indexes(oracle); !owned {
			continue
		}
		code := s.pick(s.cfg.Codes)
		g.Go(func() error {
			callCtx := requestcontext.WithCaller(gctx, id.AccountID(oracle))
			outcome, err := s.protocol.SubmitOracleResponse(callCtx, index, flight, int(code))
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeLedgerUnavailable) || dErrors.HasCode(err, dErrors.CodeTallyUnavailable) {
					return err
				}
				s.logger.DebugContext(ctx, "simulated response rejected",
					"oracle", oracle,
					"flight", flight.String(),
					"error", err,
				)
				return nil
			}
			if outcome.Recorded {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
			return nil
		})
	}
	err = g.Wait()
	s.logger.InfoContext(ctx, "simulated oracles responded",
		"flight", flight.String(),
		"index", index,
		"accepted", accepted,
	)
	return accepted, err
}
