package consensus

import (
	"hash/fnv"
	"sync"

	"flightsurety/internal/ledger"
)

// numRequestShards spreads per-request serialization over a fixed set of
// mutexes so unrelated requests rarely contend.
const numRequestShards = 128

type requestLocks struct {
	shards [numRequestShards]sync.Mutex
}

// lock serializes callers working on the same request and returns the unlock.
func (l *requestLocks) lock(key ledger.RequestKey) func() {
	m := &l.shards[shardFor(key)]
	m.Lock()
	return m.Unlock
}

func shardFor(key ledger.RequestKey) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.String()))
	return h.Sum32() % numRequestShards
}
