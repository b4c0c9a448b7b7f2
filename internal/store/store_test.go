package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/bilberry/internal/chain"
	"github.com/eigerco/bilberry/internal/crypto"
	"github.com/eigerco/bilberry/internal/decimal"
	"github.com/eigerco/bilberry/pkg/db/pebble"
)

func newTestKV(t *testing.T) *pebble.KVStore {
	t.Helper()
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, kv.Close())
	})
	return kv
}

func TestPutGetSlot(t *testing.T) {
	slots := NewSlots(newTestKV(t), 0, 0)

	want := chain.Slot{
		Height:        7,
		Pid:           chain.PidState{F: decimal.MustFromString("0.42"), Error: decimal.Zero, PreviousError: decimal.One},
		TotalTokens:   12345,
		Reward:        50,
		ProducerCount: 1,
	}
	require.NoError(t, slots.PutSlot(want))

	got, err := slots.Slot(7)
	require.NoError(t, err)
	assert.Equal(t, want.Height, got.Height)
	assert.True(t, want.Pid.F.Equal(got.Pid.F))
	assert.Equal(t, want.TotalTokens, got.TotalTokens)

	_, err = slots.Slot(8)
	require.ErrorIs(t, err, ErrSlotNotFound)
}

func TestStakeInfoCarryForward(t *testing.T) {
	slots := NewSlots(newTestKV(t), 1000, 5)

	// Nothing recorded: genesis values.
	tokens, reward, err := slots.StakeInfo(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), tokens)
	assert.Equal(t, uint64(5), reward)

	require.NoError(t, slots.PutSlot(chain.Slot{Height: 9, TotalTokens: 2000, Reward: 7}))

	// Recorded height.
	tokens, _, err = slots.StakeInfo(9)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), tokens)

	// Successor carries the predecessor's values forward.
	tokens, _, err = slots.StakeInfo(10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), tokens)

	// A gap falls back to genesis.
	tokens, _, err = slots.StakeInfo(20)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), tokens)
}

func TestPutGetBlock(t *testing.T) {
	blocks := NewBlocks(newTestKV(t))

	b := chain.Block{
		Header: chain.Header{
			ParentHash: crypto.HashData([]byte("parent")),
			Height:     3,
			Slot:       3,
			Seal:       []byte{9},
		},
		Txs: []chain.PendingTransaction{chain.NewPendingTransaction([]byte("tx"))},
	}
	require.NoError(t, blocks.PutBlock(b))

	hash, err := b.Hash()
	require.NoError(t, err)
	got, err := blocks.Block(hash)
	require.NoError(t, err)
	assert.Equal(t, b.Header, got.Header)
	require.Len(t, got.Txs, 1)
	assert.Equal(t, b.Txs[0].Hash, got.Txs[0].Hash)

	_, err = blocks.Block(crypto.HashData([]byte("missing")))
	require.ErrorIs(t, err, ErrBlockNotFound)
}

func TestForksRoundTripAndList(t *testing.T) {
	forks := NewForks(newTestKV(t))

	for i := uint64(0); i < 3; i++ {
		f := &chain.Fork{
			ID:             chain.ForkID(i),
			Ancestor:       crypto.HashData([]byte("genesis")),
			AncestorHeight: 10,
			Weight:         i,
		}
		require.NoError(t, forks.PutFork(f))
	}

	all, err := forks.Forks()
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Big-endian keys keep ID order.
	for i, f := range all {
		assert.Equal(t, chain.ForkID(i), f.ID)
	}

	require.NoError(t, forks.DeleteFork(1))
	_, err = forks.Fork(1)
	require.ErrorIs(t, err, ErrForkNotFound)
}
