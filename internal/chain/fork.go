package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/eigerco/bilberry/internal/crypto"
)

// ForkID identifies a fork within the local fork set. IDs are assigned
// monotonically in creation order and are never reused, so a lower ID always
// means an earlier-created fork.
type ForkID uint64

// Fork is a candidate chain extension: the ordered not-yet-finalized blocks
// since a common ancestor, a handle to the fork's speculative ledger view,
// and the accumulated weight the fork-selection rule compares.
type Fork struct {
	ID             ForkID
	Ancestor       crypto.Hash // finalized block this fork branches from
	AncestorHeight uint64
	Blocks         []Block
	StateRoot      crypto.Hash // speculative ledger view handle
	Weight         uint64
}

// Head returns the hash the next block on this fork must name as its parent:
// the last block's hash, or the ancestor for an empty fork.
func (f *Fork) Head() (crypto.Hash, error) {
	if len(f.Blocks) == 0 {
		return f.Ancestor, nil
	}
	return f.Blocks[len(f.Blocks)-1].Hash()
}

// Height returns the height of the fork tip.
func (f *Fork) Height() uint64 {
	return f.AncestorHeight + uint64(len(f.Blocks))
}

func (f *Fork) Bytes() ([]byte, error) {
	enc, err := rlp.EncodeToBytes(f)
	if err != nil {
		return nil, fmt.Errorf("marshal fork: %w", err)
	}
	return enc, nil
}

func ForkFromBytes(data []byte) (*Fork, error) {
	f := new(Fork)
	if err := rlp.DecodeBytes(data, f); err != nil {
		return nil, fmt.Errorf("unmarshal fork: %w", err)
	}
	return f, nil
}
