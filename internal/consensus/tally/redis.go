package tally

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
	"flightsurety/pkg/platform/sentinel"
)

const keyPrefix = "flightsurety:tally:"

// recordScript adds the voter and returns the set size in one step so
// concurrent resolvers never observe a half-applied vote. The per-request
// round index set lets Discard find every code set. Keys share a hash tag.
var recordScript = redis.NewScript(`
redis.call('SADD', KEYS[1], ARGV[1])
local n = redis.call('SCARD', KEYS[1])
redis.call('SADD', KEYS[2], KEYS[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
	redis.call('PEXPIRE', KEYS[2], ttl)
end
return n
`)

var discardScript = redis.NewScript(`
local sets = redis.call('SMEMBERS', KEYS[1])
for _, k in ipairs(sets) do
	redis.call('DEL', k)
end
redis.call('DEL', KEYS[1])
return #sets
`)

// Redis keeps tallies in Redis so several resolver processes can share them.
type Redis struct {
	client redis.Scripter
	ttl    time.Duration
}

// NewRedis builds a Redis tally. Vote sets expire after ttl of inactivity;
// zero keeps them until discarded.
func NewRedis(client redis.Scripter, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (t *Redis) Record(ctx context.Context, key ledger.RoundKey, oracle id.OracleID, code id.StatusCode) (int, error) {
	n, err := recordScript.Run(ctx, t.client,
		[]string{codeKey(key, code), indexKey(key)},
		oracle.String(), t.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return 0, classify("record vote for "+key.String(), err)
	}
	return n, nil
}

func (t *Redis) Discard(ctx context.Context, key ledger.RoundKey) error {
	if err := discardScript.Run(ctx, t.client, []string{indexKey(key)}).Err(); err != nil {
		return classify("discard tally for "+key.String(), err)
	}
	return nil
}

// classify marks everything except a server reply as ErrUnavailable: dial
// and I/O failures, pool timeouts, a closed client and expired contexts.
func classify(op string, err error) error {
	var reply redis.Error
	if errors.As(err, &reply) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}

func hashTag(key ledger.RoundKey) string {
	d := key.Digest()
	return "{" + hex.EncodeToString(d[:]) + "}"
}

func indexKey(key ledger.RoundKey) string {
	return keyPrefix + hashTag(key)
}

func codeKey(key ledger.RoundKey, code id.StatusCode) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, hashTag(key), uint8(code))
}
