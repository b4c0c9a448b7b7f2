package chain

import "github.com/eigerco/bilberry/internal/crypto"

// PendingTransaction is an opaque transaction payload waiting for inclusion.
// Gas is only meaningful after the transaction has been validated against a
// specific fork state; it is zero until then.
type PendingTransaction struct {
	Hash    crypto.Hash
	Payload []byte
	Gas     uint64
}

// NewPendingTransaction hashes the payload and wraps it.
func NewPendingTransaction(payload []byte) PendingTransaction {
	return PendingTransaction{
		Hash:    crypto.HashData(payload),
		Payload: payload,
	}
}

// BlockProposalDraft is an assembled batch bound for a specific fork.
// TotalGas never exceeds GasLimitUnproposedTxs.
type BlockProposalDraft struct {
	ForkID   ForkID
	Txs      []PendingTransaction
	TotalGas uint64
}
