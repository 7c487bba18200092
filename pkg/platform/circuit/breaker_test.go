package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome bool

const (
	fail outcome = false
	ok   outcome = true
)

func record(b *Breaker, o outcome) StateChange {
	if o == ok {
		_, change := b.RecordSuccess()
		return change
	}
	_, change := b.RecordFailure()
	return change
}

func TestBreakerNew(t *testing.T) {
	b := New("kafka-export")
	assert.Equal(t, "kafka-export", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, b.IsOpen())

	t.Run("non-positive thresholds keep defaults", func(t *testing.T) {
		b := New("x", WithFailureThreshold(0), WithSuccessThreshold(-1))
		for range 4 {
			b.RecordFailure()
		}
		assert.False(t, b.IsOpen())
		b.RecordFailure()
		assert.True(t, b.IsOpen())
	})
}

func TestBreakerSequences(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		successes int
		seq       []outcome
		wantOpen  bool
		opened    int
		closed    int
	}{
		{
			name:     "opens on the threshold failure",
			failures: 3,
			seq:      []outcome{fail, fail, fail},
			wantOpen: true,
			opened:   1,
		},
		{
			name:     "success between failures resets the streak",
			failures: 3,
			seq:      []outcome{fail, fail, ok, fail, fail},
			wantOpen: false,
		},
		{
			name:      "closes after consecutive successes",
			failures:  1,
			successes: 2,
			seq:       []outcome{fail, ok, ok},
			wantOpen:  false,
			opened:    1,
			closed:    1,
		},
		{
			name:      "failure while open restarts the recovery count",
			failures:  1,
			successes: 3,
			seq:       []outcome{fail, ok, ok, fail, ok, ok},
			wantOpen:  true,
			opened:    1,
		},
		{
			name:     "repeated failures while open report no change",
			failures: 1,
			seq:      []outcome{fail, fail, fail},
			wantOpen: true,
			opened:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("export", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.successes))
			var opened, closed int
			for _, o := range tt.seq {
				change := record(b, o)
				if change.Opened {
					opened++
				}
				if change.Closed {
					closed++
				}
			}
			assert.Equal(t, tt.wantOpen, b.IsOpen())
			assert.Equal(t, tt.opened, opened)
			assert.Equal(t, tt.closed, closed)
		})
	}
}

func TestBreakerFallbackSignals(t *testing.T) {
	b := New("export", WithFailureThreshold(1), WithSuccessThreshold(2))

	useFallback, _ := b.RecordFailure()
	require.True(t, useFallback)

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary, "one success is not enough to close")
	assert.False(t, change.Closed)

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
}

func TestBreakerReset(t *testing.T) {
	b := New("export", WithFailureThreshold(2))
	b.RecordFailure()
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())

	b.RecordFailure()
	assert.False(t, b.IsOpen(), "reset clears the failure streak")
}

func TestBreakerConcurrentFailuresOpenOnce(t *testing.T) {
	b := New("export", WithFailureThreshold(10))

	var (
		mu     sync.Mutex
		opened int
		wg     sync.WaitGroup
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, change := b.RecordFailure(); change.Opened {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.True(t, b.IsOpen())
	assert.Equal(t, 1, opened)
}
