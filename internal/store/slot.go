package store

import (
	"errors"
	"fmt"

	"github.com/eigerco/bilberry/internal/chain"
	"github.com/eigerco/bilberry/pkg/db"
	"github.com/eigerco/bilberry/pkg/db/pebble"
)

// Slots persists finalized slot records keyed by height.
type Slots struct {
	db db.KVStore

	// Fallback stake values for heights with no recorded predecessor,
	// i.e. a fresh chain.
	genesisTokens uint64
	genesisReward uint64
}

func NewSlots(kv db.KVStore, genesisTokens, genesisReward uint64) *Slots {
	return &Slots{db: kv, genesisTokens: genesisTokens, genesisReward: genesisReward}
}

func (s *Slots) PutSlot(slot chain.Slot) error {
	data, err := slot.Bytes()
	if err != nil {
		return err
	}
	if err := s.db.Put(uint64Key(prefixSlot, slot.Height), data); err != nil {
		return fmt.Errorf("put slot %d: %w", slot.Height, err)
	}
	return nil
}

func (s *Slots) Slot(height uint64) (chain.Slot, error) {
	data, err := s.db.Get(uint64Key(prefixSlot, height))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return chain.Slot{}, fmt.Errorf("%w: height %d", ErrSlotNotFound, height)
		}
		return chain.Slot{}, fmt.Errorf("get slot %d: %w", height, err)
	}
	return chain.SlotFromBytes(data)
}

// StakeInfo returns the total online tokens and reward for a slot: the
// recorded values if the slot exists, otherwise carried forward from its
// predecessor, otherwise the genesis values.
func (s *Slots) StakeInfo(height uint64) (uint64, uint64, error) {
	for _, h := range []uint64{height, height - 1} {
		if h > height { // height == 0 wrapped
			break
		}
		slot, err := s.Slot(h)
		if err == nil {
			return slot.TotalTokens, slot.Reward, nil
		}
		if !errors.Is(err, ErrSlotNotFound) {
			return 0, 0, err
		}
	}
	return s.genesisTokens, s.genesisReward, nil
}
