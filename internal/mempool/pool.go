// Package mempool holds transactions that have not yet been proposed on any
// fork, and assembles gas-bounded batches from them.
package mempool

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"github.com/eigerco/bilberry/internal/chain"
	"github.com/eigerco/bilberry/internal/crypto"
)

// Pool is the arrival-ordered pending transaction pool. The network layer
// feeds it asynchronously; Add and Snapshot are safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	pending []chain.PendingTransaction
	// seen remembers recently observed hashes so a transaction gossiped by
	// many peers, or already included in a proposal, is admitted only once.
	seen   *lru.Cache
	logger zerolog.Logger
}

func NewPool(seenCapacity int, logger zerolog.Logger) (*Pool, error) {
	seen, err := lru.New(seenCapacity)
	if err != nil {
		return nil, err
	}
	return &Pool{seen: seen, logger: logger}, nil
}

// Add appends a transaction to the pool in arrival order. Returns false if
// the hash was seen before.
func (p *Pool) Add(tx chain.PendingTransaction) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen.Contains(tx.Hash) {
		return false
	}
	p.seen.Add(tx.Hash, struct{}{})
	p.pending = append(p.pending, tx)
	p.logger.Trace().Str("tx", tx.Hash.String()).Msg("transaction admitted")
	return true
}

// Snapshot returns the pending transactions in arrival order.
func (p *Pool) Snapshot() []chain.PendingTransaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]chain.PendingTransaction, len(p.pending))
	copy(out, p.pending)
	return out
}

// Remove drops the given hashes from the pool, preserving the order of the
// rest. Called after a proposal lands so included transactions are not
// proposed twice.
func (p *Pool) Remove(hashes []chain.PendingTransaction) {
	if len(hashes) == 0 {
		return
	}
	drop := make(map[crypto.Hash]struct{}, len(hashes))
	for _, tx := range hashes {
		drop[tx.Hash] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.pending[:0]
	for _, tx := range p.pending {
		if _, ok := drop[tx.Hash]; !ok {
			kept = append(kept, tx)
		}
	}
	p.pending = kept
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
