package tally

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "flightsurety/pkg/domain"
	"flightsurety/pkg/platform/sentinel"
)

func TestRedisUnreachableIsUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	tally := NewRedis(client, time.Minute)
	key := testKey(t, 1)

	_, err := tally.Record(context.Background(), key, id.NewAccountID().Oracle(), id.StatusOnTime)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable))

	err = tally.Discard(context.Background(), key)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable))
}

func TestClassifyKeepsServerReplies(t *testing.T) {
	err := classify("record vote", redis.ErrCrossSlot)
	assert.False(t, errors.Is(err, sentinel.ErrUnavailable))
	assert.ErrorIs(t, err, redis.ErrCrossSlot)
}
