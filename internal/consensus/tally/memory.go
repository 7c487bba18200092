// Package tally keeps the transient per-request vote sets the resolver counts
// toward quorum. Tallies are not the system of record; a lost tally only
// delays closure.
package tally

import (
	"context"
	"sync"

	"flightsurety/internal/ledger"
	id "flightsurety/pkg/domain"
)

type voters map[id.OracleID]struct{}

// InMemory keeps tallies in process memory. Suitable when a single resolver
// process owns all submissions.
type InMemory struct {
	mu    sync.Mutex
	votes map[ledger.RoundKey]map[id.StatusCode]voters
}

func NewInMemory() *InMemory {
	return &InMemory{votes: make(map[ledger.RoundKey]map[id.StatusCode]voters)}
}

// Record adds oracle to the responders for code and returns the number of
// distinct responders for code.
func (t *InMemory) Record(_ context.Context, key ledger.RoundKey, oracle id.OracleID, code id.StatusCode) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	byCode, ok := t.votes[key]
	if !ok {
		byCode = make(map[id.StatusCode]voters)
		t.votes[key] = byCode
	}
	set, ok := byCode[code]
	if !ok {
		set = make(voters)
		byCode[code] = set
	}
	set[oracle] = struct{}{}
	return len(set), nil
}

// Discard forgets every vote for the request round.
func (t *InMemory) Discard(_ context.Context, key ledger.RoundKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.votes, key)
	return nil
}

// Len reports how many request rounds currently hold votes.
func (t *InMemory) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.votes)
}
