package consensus

import (
	"context"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/eigerco/bilberry/internal/chain"
	"github.com/eigerco/bilberry/internal/crypto"
)

// LotteryWin is the proof material returned by a winning lottery evaluation.
type LotteryWin struct {
	Output crypto.Hash // VRF output
	Proof  []byte
}

// Prover is the external proof/VRF component. The consensus core treats it
// as opaque: it either produces a win with proof material or it does not.
type Prover interface {
	// EvaluateLottery evaluates the local participant's lottery outcome for a
	// slot. A nil win with a nil error means the lottery was lost.
	EvaluateLottery(stake uint64, sigma1, sigma2 fr.Element, randomness crypto.Hash, slot uint64) (*LotteryWin, error)

	// ProveBlock produces the opaque seal for an assembled block. It may be
	// CPU-bound and long-running; it must honor ctx cancellation.
	ProveBlock(ctx context.Context, b chain.Block, win *LotteryWin) ([]byte, error)
}

// Ledger is the external ledger store. The core exchanges only Slot and
// Block values with it.
type Ledger interface {
	// Slot returns the recorded slot at the given height.
	Slot(height uint64) (chain.Slot, error)
	PutSlot(chain.Slot) error

	// StakeInfo supplies the total online tokens and the reward for a slot.
	StakeInfo(height uint64) (totalTokens, reward uint64, err error)

	PutBlock(chain.Block) error
}
