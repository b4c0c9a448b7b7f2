package mempool

import (
	"github.com/rs/zerolog"

	"github.com/eigerco/bilberry/internal/chain"
)

// BlockContext carries the block-level parameters a transaction is validated
// under. VerifySignatures enables the expensive cryptographic check; false is
// reserved for trusted re-derivation paths such as deterministic replay.
type BlockContext struct {
	Height           uint64
	Target           uint64
	VerifySignatures bool
}

// Validator is the external state-transition engine: a pure function from a
// transaction and a fork's speculative state to the transaction's gas cost,
// or an error if the transition is rejected.
type Validator interface {
	Verify(tx chain.PendingTransaction, fork *chain.Fork, bc BlockContext) (uint64, error)
}

// Result is one assembled batch.
type Result struct {
	Txs      []chain.PendingTransaction
	TotalGas uint64
	// Skipped counts pool entries deferred to a future slot once the gas
	// budget was hit. Errored counts transactions the validator rejected.
	Skipped int
	Errored int
}

// Selector assembles gas-bounded batches against a chosen fork.
type Selector struct {
	pool      *Pool
	validator Validator
	logger    zerolog.Logger
}

func NewSelector(pool *Pool, validator Validator, logger zerolog.Logger) *Selector {
	return &Selector{pool: pool, validator: validator, logger: logger}
}

// SelectUnproposed greedily scans the pending pool in arrival order and
// returns the longest prefix of valid transactions whose cumulative gas fits
// under chain.GasLimitUnproposedTxs.
//
// Rejected transactions are skipped without charging gas. The first
// transaction that would push the total past the limit stops the scan;
// everything after it is deferred to a future slot. No reordering or
// bin-packing: the result must be byte-identically reproducible by every
// node observing the same pool, and the scan stays linear.
//
// A consequence kept on purpose: a transaction whose own gas exceeds the
// limit is never included by any batch, from any pool that contains it.
func (s *Selector) SelectUnproposed(fork *chain.Fork, height uint64, target uint64, verifySignatures bool) Result {
	bc := BlockContext{Height: height, Target: target, VerifySignatures: verifySignatures}
	pending := s.pool.Snapshot()

	var res Result
	for i, tx := range pending {
		gas, err := s.validator.Verify(tx, fork, bc)
		if err != nil {
			s.logger.Debug().
				Str("tx", tx.Hash.String()).
				Uint64("height", height).
				Err(err).
				Msg("transaction rejected during selection")
			res.Errored++
			continue
		}
		// Phrased as a subtraction so an absurd gas value cannot wrap.
		if gas > chain.GasLimitUnproposedTxs-res.TotalGas {
			res.Skipped = len(pending) - i
			break
		}
		tx.Gas = gas
		res.Txs = append(res.Txs, tx)
		res.TotalGas += gas
	}
	return res
}
