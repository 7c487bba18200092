package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"flightsurety/internal/events"
)

type fakeProducer struct {
	fail    bool
	records []*kgo.Record
	calls   int
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.calls++
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if p.fail {
			out = append(out, kgo.ProduceResult{Record: r, Err: errors.New("broker down")})
			continue
		}
		p.records = append(p.records, r)
		out = append(out, kgo.ProduceResult{Record: r})
	}
	return out
}

func (p *fakeProducer) Flush(context.Context) error { return nil }
func (p *fakeProducer) Close()                      {}

func testEvent() events.Event {
	return events.Event{
		ID:        uuid.New(),
		Kind:      events.KindWithdrawn,
		RequestID: "req-1",
		Payload:   events.Withdrawn{},
	}
}

func TestHandleProducesKeyedRecord(t *testing.T) {
	p := &fakeProducer{}
	s := newSink(p, "flightsurety.events")

	ev := testEvent()
	require.NoError(t, s.Handle(context.Background(), ev))
	require.Len(t, p.records, 1)

	r := p.records[0]
	assert.Equal(t, ev.ID.String(), string(r.Key))
	assert.Contains(t, r.Headers, kgo.RecordHeader{Key: HeaderKind, Value: []byte(events.KindWithdrawn)})
	assert.Contains(t, r.Headers, kgo.RecordHeader{Key: HeaderRequestID, Value: []byte("req-1")})
}

func TestHandleSuspendsAfterRepeatedFailures(t *testing.T) {
	p := &fakeProducer{fail: true}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newSink(p, "t", WithBreaker(2, time.Minute))
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.Error(t, s.Handle(ctx, testEvent()))
	require.Error(t, s.Handle(ctx, testEvent()))
	assert.Equal(t, 2, p.calls)

	err := s.Handle(ctx, testEvent())
	assert.ErrorIs(t, err, ErrExportSuspended)
	assert.Equal(t, 2, p.calls, "no produce while the cooldown runs")

	// After the cooldown one trial event goes out; the brokers are back.
	now = now.Add(time.Minute)
	p.fail = false
	require.NoError(t, s.Handle(ctx, testEvent()))
	assert.Equal(t, 3, p.calls)
	assert.False(t, s.breaker.IsOpen())

	require.NoError(t, s.Handle(ctx, testEvent()))
	assert.Equal(t, 4, p.calls)
}

func TestFailedTrialWaitsAnotherCooldown(t *testing.T) {
	p := &fakeProducer{fail: true}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newSink(p, "t", WithBreaker(1, time.Minute))
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.Error(t, s.Handle(ctx, testEvent()))
	now = now.Add(time.Minute)
	require.Error(t, s.Handle(ctx, testEvent()))
	assert.Equal(t, 2, p.calls)

	assert.ErrorIs(t, s.Handle(ctx, testEvent()), ErrExportSuspended)
	assert.Equal(t, 2, p.calls)
}
