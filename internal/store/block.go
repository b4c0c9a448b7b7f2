package store

import (
	"errors"
	"fmt"

	"github.com/eigerco/bilberry/internal/chain"
	"github.com/eigerco/bilberry/internal/crypto"
	"github.com/eigerco/bilberry/pkg/db"
	"github.com/eigerco/bilberry/pkg/db/pebble"
)

// Blocks persists blocks keyed by header hash.
type Blocks struct {
	db db.KVStore
}

func NewBlocks(kv db.KVStore) *Blocks {
	return &Blocks{db: kv}
}

func (b *Blocks) PutBlock(block chain.Block) error {
	hash, err := block.Hash()
	if err != nil {
		return fmt.Errorf("hash block: %w", err)
	}
	data, err := block.Bytes()
	if err != nil {
		return err
	}
	if err := b.db.Put(makeKey(prefixBlock, hash[:]), data); err != nil {
		return fmt.Errorf("put block %s: %w", hash, err)
	}
	return nil
}

func (b *Blocks) Block(hash crypto.Hash) (chain.Block, error) {
	data, err := b.db.Get(makeKey(prefixBlock, hash[:]))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return chain.Block{}, fmt.Errorf("%w: %s", ErrBlockNotFound, hash)
		}
		return chain.Block{}, fmt.Errorf("get block %s: %w", hash, err)
	}
	return chain.BlockFromBytes(data)
}
