// Package kafka exports protocol events to a Kafka topic so off-process
// consumers (dashboards, the dapp UI) can follow the protocol.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"flightsurety/internal/events"
	"flightsurety/pkg/platform/circuit"
)

// Header keys set on every record.
const (
	HeaderKind      = "event_kind"
	HeaderRequestID = "request_id"
)

// ErrExportSuspended is returned while the export circuit is open and the
// retry cooldown has not elapsed.
var ErrExportSuspended = errors.New("event export suspended")

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Flush(ctx context.Context) error
	Close()
}

// Sink publishes bus events as JSON records keyed by event ID. Repeated
// produce failures open a circuit; while open, one trial event per cooldown tests
// the brokers and the rest are skipped.
type Sink struct {
	client   *kgo.Client
	producer producer
	topic    string
	logger   *slog.Logger
	breaker  *circuit.Breaker
	cooldown time.Duration
	now      func() time.Time

	mu      sync.Mutex
	retryAt time.Time
}

// Option configures a Sink.
type Option func(*Sink)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

// WithBreaker sets the failure threshold and the retry cooldown of the export
// circuit.
func WithBreaker(failures int, cooldown time.Duration) Option {
	return func(s *Sink) {
		s.breaker = circuit.New("kafka-export", circuit.WithFailureThreshold(failures), circuit.WithSuccessThreshold(1))
		s.cooldown = cooldown
	}
}

// NewSink connects a producer to brokers. The connection is lazy; errors
// surface on the first produce.
func NewSink(brokers []string, topic string, opts ...Option) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka sink requires at least one broker")
	}
	if topic == "" {
		return nil, errors.New("kafka sink requires a topic")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	s := newSink(client, topic, opts...)
	s.client = client
	return s, nil
}

func newSink(p producer, topic string, opts ...Option) *Sink {
	s := &Sink{
		producer: p,
		topic:    topic,
		logger:   slog.New(slog.DiscardHandler),
		breaker:  circuit.New("kafka-export", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(1)),
		cooldown: 30 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureTopic creates the topic when it does not exist yet.
func (s *Sink) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	if s.client == nil {
		return errors.New("kafka sink has no admin connection")
	}
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", s.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", s.topic, resp.Err)
	}
	return nil
}

// Handle produces one event. It satisfies events.Handler.
func (s *Sink) Handle(ctx context.Context, event events.Event) error {
	if !s.shouldAttempt() {
		return fmt.Errorf("%s event %s: %w", event.Kind, event.ID, ErrExportSuspended)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Kind, err)
	}
	record := &kgo.Record{
		Key:   []byte(event.ID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: HeaderKind, Value: []byte(event.Kind)},
			{Key: HeaderRequestID, Value: []byte(event.RequestID)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		s.recordFailure(ctx)
		s.logger.WarnContext(ctx, "failed to export event",
			"event_kind", event.Kind,
			"event_id", event.ID,
			"error", err,
		)
		return fmt.Errorf("produce %s event: %w", event.Kind, err)
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "event export resumed", "topic", s.topic)
	}
	return nil
}

func (s *Sink) shouldAttempt() bool {
	if !s.breaker.IsOpen() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Before(s.retryAt) {
		return false
	}
	s.retryAt = now.Add(s.cooldown)
	return true
}

func (s *Sink) recordFailure(ctx context.Context) {
	_, change := s.breaker.RecordFailure()
	if !change.Opened {
		return
	}
	s.mu.Lock()
	s.retryAt = s.now().Add(s.cooldown)
	s.mu.Unlock()
	s.logger.WarnContext(ctx, "event export suspended",
		"topic", s.topic,
		"cooldown", s.cooldown,
	)
}

// Close flushes buffered records and closes the client.
func (s *Sink) Close(ctx context.Context) error {
	err := s.producer.Flush(ctx)
	s.producer.Close()
	return err
}
