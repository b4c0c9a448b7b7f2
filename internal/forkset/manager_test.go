package forkset

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/bilberry/internal/chain"
	"github.com/eigerco/bilberry/internal/crypto"
)

func newTestManager() *Manager {
	return NewManager(crypto.HashData([]byte("finalized")), 100, crypto.HashData([]byte("state")), zerolog.Nop())
}

func blockOn(t *testing.T, m *Manager, id chain.ForkID, producer string) chain.Block {
	t.Helper()
	f, err := m.Fork(id)
	require.NoError(t, err)
	head, err := f.Head()
	require.NoError(t, err)
	return chain.Block{Header: chain.Header{
		ParentHash: head,
		Height:     f.Height() + 1,
		Slot:       f.Height() + 1,
		Producer:   crypto.HashData([]byte(producer)),
	}}
}

func TestNeverEmpty(t *testing.T) {
	m := newTestManager()
	require.Equal(t, 1, m.Len())

	f, err := m.Fork(m.BestFork())
	require.NoError(t, err)
	assert.Empty(t, f.Blocks)
	assert.Equal(t, uint64(100), f.Height())
}

func TestAppendBlock(t *testing.T) {
	m := newTestManager()
	id := m.BestFork()

	b := blockOn(t, m, id, "alice")
	require.NoError(t, m.AppendBlock(id, b))

	f, err := m.Fork(id)
	require.NoError(t, err)
	assert.Len(t, f.Blocks, 1)
	assert.Equal(t, uint64(1), f.Weight)
	assert.Equal(t, uint64(101), f.Height())
}

func TestAppendBlockParentMismatch(t *testing.T) {
	m := newTestManager()
	id := m.BestFork()

	b := blockOn(t, m, id, "alice")
	b.Header.ParentHash = crypto.HashData([]byte("elsewhere"))
	err := m.AppendBlock(id, b)
	require.ErrorIs(t, err, ErrForkExtend)

	// The fork must be unchanged.
	f, err := m.Fork(id)
	require.NoError(t, err)
	assert.Empty(t, f.Blocks)
	assert.Equal(t, uint64(0), f.Weight)
}

func TestAppendBlockUnknownFork(t *testing.T) {
	m := newTestManager()
	err := m.AppendBlock(chain.ForkID(99), chain.Block{})
	require.ErrorIs(t, err, ErrUnknownFork)
}

func TestBestForkByWeight(t *testing.T) {
	m := newTestManager()
	a := m.BestFork()
	b := m.GenerateEmptyFork()

	require.NoError(t, m.AppendBlock(b, blockOn(t, m, b, "bob")))
	require.Equal(t, b, m.BestFork())

	require.NoError(t, m.AppendBlock(a, blockOn(t, m, a, "alice")))
	require.NoError(t, m.AppendBlock(a, blockOn(t, m, a, "alice")))
	require.Equal(t, a, m.BestFork())
}

// Equal weights must resolve to the earliest-created fork no matter how many
// forks contend or in which order the map iterates.
func TestBestForkTieBreak(t *testing.T) {
	m := newTestManager()
	first := m.BestFork()

	var ids []chain.ForkID
	for i := 0; i < 20; i++ {
		ids = append(ids, m.GenerateEmptyFork())
	}
	// All forks weight 1.
	require.NoError(t, m.AppendBlock(first, blockOn(t, m, first, "p0")))
	for _, id := range ids {
		require.NoError(t, m.AppendBlock(id, blockOn(t, m, id, "p")))
	}

	for i := 0; i < 50; i++ {
		require.Equal(t, first, m.BestFork())
	}
}

func TestAdoptFork(t *testing.T) {
	m := newTestManager()
	remote := &chain.Fork{
		Ancestor:       crypto.HashData([]byte("finalized")),
		AncestorHeight: 100,
		Weight:         3,
	}
	id := m.AdoptFork(remote)
	require.Equal(t, 2, m.Len())

	// Remote weight is taken as delivered and competes immediately.
	require.Equal(t, id, m.BestFork())

	// The manager holds its own copy.
	remote.Weight = 0
	f, err := m.Fork(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), f.Weight)
}

func TestProducerCount(t *testing.T) {
	m := newTestManager()
	a := m.BestFork()
	b := m.GenerateEmptyFork()
	c := m.GenerateEmptyFork()

	require.NoError(t, m.AppendBlock(a, blockOn(t, m, a, "alice")))
	require.NoError(t, m.AppendBlock(b, blockOn(t, m, b, "bob")))
	// Same producer on a third fork at the same height counts once.
	require.NoError(t, m.AppendBlock(c, blockOn(t, m, c, "alice")))

	assert.Equal(t, uint32(2), m.ProducerCount(101))
	assert.Equal(t, uint32(0), m.ProducerCount(102))
}

func TestPruneKeepsBest(t *testing.T) {
	m := newTestManager()
	best := m.BestFork()
	stale := m.GenerateEmptyFork()

	for i := 0; i < 8; i++ {
		require.NoError(t, m.AppendBlock(best, blockOn(t, m, best, "alice")))
	}

	removed := m.Prune(chain.DefaultFinalityDepth)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, m.Len())

	_, err := m.Fork(stale)
	require.ErrorIs(t, err, ErrUnknownFork)
	_, err = m.Fork(best)
	require.NoError(t, err)
}

func TestPruneWithinDepthKept(t *testing.T) {
	m := newTestManager()
	best := m.BestFork()
	trailing := m.GenerateEmptyFork()

	for i := 0; i < int(chain.DefaultFinalityDepth); i++ {
		require.NoError(t, m.AppendBlock(best, blockOn(t, m, best, "alice")))
	}

	require.Equal(t, 0, m.Prune(chain.DefaultFinalityDepth))
	_, err := m.Fork(trailing)
	require.NoError(t, err)
}

// Readers and writers racing must neither deadlock nor observe a mid-append
// fork. Run with -race.
func TestConcurrentReadersAndWriters(t *testing.T) {
	m := newTestManager()
	id := m.BestFork()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			require.NoError(t, m.AppendBlock(id, blockOn(t, m, id, "alice")))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			m.BestFork()
			m.ProducerCount(101)
			f, err := m.Fork(id)
			require.NoError(t, err)
			// A snapshot's length and weight always agree.
			require.Equal(t, uint64(len(f.Blocks)), f.Weight)
		}
	}()
	wg.Wait()
}
