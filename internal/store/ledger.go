package store

import "github.com/eigerco/bilberry/pkg/db"

// Ledger bundles the stores the consensus loop exchanges Slot and Block
// values with. It satisfies the loop's Ledger interface.
type Ledger struct {
	*Slots
	*Blocks
	*Forks
}

func NewLedger(kv db.KVStore, genesisTokens, genesisReward uint64) *Ledger {
	return &Ledger{
		Slots:  NewSlots(kv, genesisTokens, genesisReward),
		Blocks: NewBlocks(kv),
		Forks:  NewForks(kv),
	}
}
