package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/eigerco/bilberry/internal/crypto"
)

// Header identifies a block and its position in the fork it extends.
type Header struct {
	ParentHash crypto.Hash
	StateRoot  crypto.Hash // root of the speculative ledger view after this block
	TxRoot     crypto.Hash
	Slot       uint64 // timeslot the block was produced in
	Height     uint64
	Producer   crypto.Hash // hash of the producer's public key
	Seal       []byte      // opaque proof attached by the proving component
}

// Block is a header plus its transaction batch.
type Block struct {
	Header Header
	Txs    []PendingTransaction
}

// Hash returns the Blake2b hash of the RLP-encoded header.
func (h Header) Hash() (crypto.Hash, error) {
	enc, err := rlp.EncodeToBytes(h)
	if err != nil {
		return crypto.Hash{}, fmt.Errorf("marshal header: %w", err)
	}
	return crypto.HashData(enc), nil
}

func (b Block) Hash() (crypto.Hash, error) {
	return b.Header.Hash()
}

func (b Block) Bytes() ([]byte, error) {
	enc, err := rlp.EncodeToBytes(b)
	if err != nil {
		return nil, fmt.Errorf("marshal block: %w", err)
	}
	return enc, nil
}

func BlockFromBytes(data []byte) (Block, error) {
	var b Block
	if err := rlp.DecodeBytes(data, &b); err != nil {
		return Block{}, fmt.Errorf("unmarshal block: %w", err)
	}
	return b, nil
}

// ComputeTxRoot hashes the concatenated transaction hashes, in batch order.
// An empty batch has the zero root.
func ComputeTxRoot(txs []PendingTransaction) crypto.Hash {
	if len(txs) == 0 {
		return crypto.Hash{}
	}
	data := make([]byte, 0, len(txs)*crypto.HashSize)
	for _, tx := range txs {
		data = append(data, tx.Hash[:]...)
	}
	return crypto.HashData(data)
}
