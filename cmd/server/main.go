package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"flightsurety/internal/airline"
	"flightsurety/internal/consensus"
	consensusMetrics "flightsurety/internal/consensus/metrics"
	"flightsurety/internal/consensus/tally"
	"flightsurety/internal/events"
	"flightsurety/internal/events/kafka"
	"flightsurety/internal/insurance"
	insuranceMetrics "flightsurety/internal/insurance/metrics"
	"flightsurety/internal/ledger"
	"flightsurety/internal/ledger/store"
	"flightsurety/internal/oracle/dispatch"
	"flightsurety/internal/oracle/registry"
	"flightsurety/internal/oracle/simulator"
	"flightsurety/internal/platform/config"
	"flightsurety/internal/platform/httpserver"
	"flightsurety/internal/platform/identity"
	"flightsurety/internal/platform/logger"
	"flightsurety/internal/platform/metrics"
	"flightsurety/internal/platform/ratelimiter"
	"flightsurety/internal/platform/redis"
	"flightsurety/internal/surety"
	httptransport "flightsurety/internal/transport/http"
	id "flightsurety/pkg/domain"
)

const (
	shutdownTimeout = 10 * time.Second
	eventBuffer     = 1024
	tokenIssuer     = "flightsurety"
	tokenAudience   = "flightsurety-api"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "flightsurety: %v\n", err)
		os.Exit(1)
	}
}

// run wires the ledger, the event bus, the protocol services and the HTTP
// surface, then blocks until a signal arrives.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, closeLedger, err := openLedger(ctx, cfg.Ledger, log)
	if err != nil {
		return err
	}
	defer closeLedger()

	votes, closeTally, err := openTally(cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeTally()

	bus := events.NewBus(events.WithLogger(log), events.WithAsyncBuffer(eventBuffer))
	closeSink, err := attachKafkaSink(ctx, bus, cfg.Kafka, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.New(reg)

	p := cfg.Protocol
	oracles := registry.New(gw, registry.Config{
		RegistrationFee:     p.RegistrationFee,
		IndexRange:          p.IndexRange,
		AllowReRegistration: p.AllowReRegistration,
	}, registry.WithLogger(log), registry.WithPublisher(bus))
	dispatcher := dispatch.New(gw, dispatch.Config{
		IndexRange: p.IndexRange,
		RequestTTL: p.RequestTTL,
	}, dispatch.WithLogger(log), dispatch.WithPublisher(bus))
	resolver := consensus.New(gw, votes, oracles,
		consensus.WithLogger(log),
		consensus.WithPublisher(bus),
		consensus.WithMetrics(consensusMetrics.New(reg)),
		consensus.WithQuorum(p.QuorumThreshold),
	)
	airlines := airline.New(gw, airline.Config{
		DirectAdmissionLimit: p.DirectAdmissionLimit,
		FundingThreshold:     p.FundingThreshold,
	}, airline.WithLogger(log), airline.WithPublisher(bus))
	escrow := insurance.New(gw, insurance.Config{
		PremiumCeiling:    p.PremiumCeiling,
		PayoutNumerator:   p.PayoutNumerator,
		PayoutDenominator: p.PayoutDenominator,
	}, insurance.WithLogger(log), insurance.WithPublisher(bus), insurance.WithMetrics(insuranceMetrics.New(reg)))

	bus.Subscribe(events.KindFlightStatusFinalized, escrow.HandleFinalized)
	bus.Subscribe(events.KindStatusRequestAbandoned, resolver.HandleAbandoned)

	if cfg.Server.Owner.IsNil() {
		log.Warn("no owner configured; the operational switch cannot be toggled")
	}
	svc := surety.New(surety.Deps{
		Oracles:  oracles,
		Dispatch: dispatcher,
		Resolver: resolver,
		Airlines: airlines,
		Escrow:   escrow,
		Flights:  gw,
		Status:   gw,
	}, surety.WithLogger(log), surety.WithPublisher(bus), surety.WithOwner(cfg.Server.Owner))

	if !p.FirstAirline.IsNil() {
		if err := airlines.Bootstrap(ctx, p.FirstAirline.Airline(), p.FirstAirlineName); err != nil {
			return fmt.Errorf("bootstrap first airline: %w", err)
		}
	}

	if cfg.Simulator.Enabled {
		if err := startSimulator(ctx, svc, oracles, bus, cfg, log); err != nil {
			return err
		}
	}

	tokens := identity.NewService(cfg.Server.JWTSigningKey, tokenIssuer, tokenAudience)
	handler := httptransport.New(svc, tokens,
		httptransport.WithLogger(log),
		httptransport.WithMetrics(httpMetrics),
		httptransport.WithResponseLimiter(ratelimiter.New(cfg.Server.OracleResponseRPS, cfg.Server.OracleResponseBurst, 10*time.Minute)),
		httptransport.WithDevCallerHeader(cfg.Server.DevCallerHeader),
	)
	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(handler, log, httpMetrics, reg), httpserver.WithLogger(log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting flightsurety", "addr", cfg.Server.Addr, "ledger", cfg.Ledger.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := dispatcher.StartSweeper(gctx, sweepInterval(p.RequestTTL))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info("shutting down")
		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("graceful shutdown: %w", err))
		}
		if err := bus.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("drain events: %w", err))
		}
		if err := closeSink(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("close kafka sink: %w", err))
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

func openLedger(ctx context.Context, cfg config.LedgerConfig, log *slog.Logger) (ledger.Gateway, func(), error) {
	if cfg.Driver != "postgres" {
		log.Warn("using in-memory ledger; state is lost on restart")
		return store.NewInMemory(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping ledger database: %w", err)
	}
	if err := store.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return store.NewPostgres(db, store.WithTxTimeout(cfg.TxTimeout)), func() { _ = db.Close() }, nil
}

func openTally(cfg config.RedisConfig, log *slog.Logger) (consensus.Tally, func(), error) {
	client, err := redis.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		return tally.NewInMemory(), func() {}, nil
	}
	log.Info("vote tallies stored in redis")
	return tally.NewRedis(client, cfg.TallyTTL), func() { _ = client.Close() }, nil
}

func attachKafkaSink(ctx context.Context, bus *events.Bus, cfg config.KafkaConfig, log *slog.Logger) (func(context.Context) error, error) {
	if len(cfg.Brokers) == 0 {
		return func(context.Context) error { return nil }, nil
	}
	sink, err := kafka.NewSink(cfg.Brokers, cfg.Topic, kafka.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("create kafka sink: %w", err)
	}
	if err := sink.EnsureTopic(ctx, 1, 1); err != nil {
		_ = sink.Close(ctx)
		return nil, fmt.Errorf("ensure event topic: %w", err)
	}
	bus.SubscribeAll(sink.Handle)
	log.Info("exporting events to kafka", "topic", cfg.Topic)
	return sink.Close, nil
}

func startSimulator(ctx context.Context, svc *surety.Service, oracles *registry.Service, bus *events.Bus, cfg config.Config, log *slog.Logger) error {
	codes := make([]id.StatusCode, 0, len(cfg.Simulator.Codes))
	for _, raw := range cfg.Simulator.Codes {
		code, err := id.ParseStatusCode(raw)
		if err != nil {
			return fmt.Errorf("simulator codes: %w", err)
		}
		codes = append(codes, code)
	}
	sim := simulator.New(svc, oracles, simulator.Config{
		Count: cfg.Simulator.OracleCount,
		Fee:   cfg.Protocol.RegistrationFee,
		Codes: codes,
	}, simulator.WithLogger(log))
	if err := sim.RegisterAll(ctx); err != nil {
		return fmt.Errorf("register simulated oracles: %w", err)
	}
	bus.Subscribe(events.KindStatusRequestOpened, sim.HandleOpened)
	return nil
}

func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Second)
}
