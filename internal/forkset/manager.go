// Package forkset owns the set of concurrently competing candidate chain
// extensions and the rule that selects the best one. The manager's lock is
// the only shared-mutable-state boundary in the consensus core: readers take
// a shared lock, the two mutating operations take an exclusive lock.
package forkset

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eigerco/bilberry/internal/chain"
	"github.com/eigerco/bilberry/internal/crypto"
)

// Manager owns the fork map. The set is never empty: the manager is created
// with the canonical tip fork and pruning never removes the best fork.
type Manager struct {
	mu     sync.RWMutex
	forks  map[chain.ForkID]*chain.Fork
	nextID chain.ForkID

	finalizedHash   crypto.Hash
	finalizedHeight uint64
	finalizedState  crypto.Hash

	logger zerolog.Logger
}

// NewManager creates a manager whose initial fork set holds one empty fork
// branching from the finalized tip.
func NewManager(finalized crypto.Hash, finalizedHeight uint64, stateRoot crypto.Hash, logger zerolog.Logger) *Manager {
	m := &Manager{
		forks:           make(map[chain.ForkID]*chain.Fork),
		finalizedHash:   finalized,
		finalizedHeight: finalizedHeight,
		finalizedState:  stateRoot,
		logger:          logger,
	}
	m.registerLocked(&chain.Fork{
		Ancestor:       finalized,
		AncestorHeight: finalizedHeight,
		StateRoot:      stateRoot,
	})
	return m
}

// registerLocked assigns the next creation-order ID and stores the fork.
// Callers hold the write lock (or, in NewManager, exclusive access).
func (m *Manager) registerLocked(f *chain.Fork) chain.ForkID {
	f.ID = m.nextID
	m.nextID++
	m.forks[f.ID] = f
	return f.ID
}

// GenerateEmptyFork registers a new zero-block fork branching from the
// finalized tip. Used when the local node wins the lottery but has no fork of
// its own to extend, and as a deterministic baseline.
func (m *Manager) GenerateEmptyFork() chain.ForkID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.registerLocked(&chain.Fork{
		Ancestor:       m.finalizedHash,
		AncestorHeight: m.finalizedHeight,
		StateRoot:      m.finalizedState,
	})
	m.logger.Debug().Uint64("fork", uint64(id)).Msg("generated empty fork")
	return id
}

// AdoptFork registers a fork delivered by the network layer under a fresh
// local ID and returns that ID.
func (m *Manager) AdoptFork(f *chain.Fork) chain.ForkID {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	cp.Blocks = append([]chain.Block(nil), f.Blocks...)
	return m.registerLocked(&cp)
}

// BestFork selects the fork with the greatest accumulated weight; exact ties
// go to the lowest creation-order ID. The rule is total and independent of
// map iteration order, so all correct nodes observing the same fork set
// converge on the same choice.
func (m *Manager) BestFork() chain.ForkID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bestForkLocked()
}

func (m *Manager) bestForkLocked() chain.ForkID {
	var (
		bestID     chain.ForkID
		bestWeight uint64
		found      bool
	)
	for id, f := range m.forks {
		switch {
		case !found,
			f.Weight > bestWeight,
			f.Weight == bestWeight && id < bestID:
			bestID = id
			bestWeight = f.Weight
			found = true
		}
	}
	return bestID
}

// AppendBlock extends a fork with a block whose transactions have already
// been accepted by the state-transition validator. It fails with
// ErrForkExtend if the block's parent hash is not the fork's current head;
// the fork is left unchanged on any failure.
func (m *Manager) AppendBlock(id chain.ForkID, b chain.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.forks[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFork, id)
	}
	head, err := f.Head()
	if err != nil {
		return fmt.Errorf("fork %d head: %w", id, err)
	}
	if b.Header.ParentHash != head {
		return fmt.Errorf("%w: fork %d head %s, block parent %s",
			ErrForkExtend, id, head, b.Header.ParentHash)
	}

	f.Blocks = append(f.Blocks, b)
	f.StateRoot = b.Header.StateRoot
	f.Weight++

	m.logger.Debug().
		Uint64("fork", uint64(id)).
		Uint64("height", b.Header.Height).
		Uint64("weight", f.Weight).
		Msg("appended block")
	return nil
}

// Fork returns a lock-consistent snapshot of a fork.
func (m *Manager) Fork(id chain.ForkID) (chain.Fork, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.forks[id]
	if !ok {
		return chain.Fork{}, fmt.Errorf("%w: %d", ErrUnknownFork, id)
	}
	cp := *f
	cp.Blocks = append([]chain.Block(nil), f.Blocks...)
	return cp, nil
}

// Len returns the number of forks in the set. Always at least one.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.forks)
}

// ProducerCount reports how many distinct producers have a block in the
// given slot across all forks. This is the feedback signal the PID loop
// consumes: zero means the slot went unfilled, two or more means contention.
func (m *Manager) ProducerCount(slot uint64) uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	producers := make(map[crypto.Hash]struct{})
	for _, f := range m.forks {
		for i := range f.Blocks {
			if f.Blocks[i].Header.Slot == slot {
				producers[f.Blocks[i].Header.Producer] = struct{}{}
			}
		}
	}
	return uint32(len(producers))
}

// Prune drops forks whose tip has fallen more than depth blocks behind the
// best fork's tip. The best fork itself is never pruned, so the set stays
// non-empty. Returns the number of forks removed.
func (m *Manager) Prune(depth uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	best := m.bestForkLocked()
	bestHeight := m.forks[best].Height()

	removed := 0
	for id, f := range m.forks {
		if id == best {
			continue
		}
		if f.Height()+depth < bestHeight {
			delete(m.forks, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info().Int("pruned", removed).Uint64("best", uint64(best)).Msg("pruned superseded forks")
	}
	return removed
}
