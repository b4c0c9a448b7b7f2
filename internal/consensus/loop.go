// Package consensus orchestrates slot ticking, lottery evaluation and block
// proposal. One goroutine drives the loop; the fork set manager's lock is the
// only shared-mutable-state boundary it crosses.
package consensus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eigerco/bilberry/internal/chain"
	"github.com/eigerco/bilberry/internal/crypto"
	"github.com/eigerco/bilberry/internal/decimal"
	"github.com/eigerco/bilberry/internal/forkset"
	"github.com/eigerco/bilberry/internal/mempool"
	"github.com/eigerco/bilberry/internal/pid"
	"github.com/eigerco/bilberry/internal/slottime"
)

// outputRetention bounds how many past slots' PID outputs are kept for
// diagnostics queries.
const outputRetention = 1024

type Config struct {
	// Stake is the local participant's stake, fed to the lottery.
	Stake uint64
	// Producer identifies the local participant in block headers.
	Producer crypto.Hash
	// Target is the target difficulty handed to transaction validation.
	Target uint64
	// VerifySignatures enables full cryptographic checks during selection.
	VerifySignatures bool
	FinalityDepth    uint64
}

// Loop is the per-node consensus driver.
type Loop struct {
	cfg        Config
	controller *pid.Controller
	forks      *forkset.Manager
	pool       *mempool.Pool
	selector   *mempool.Selector
	prover     Prover
	ledger     Ledger
	logger     zerolog.Logger

	mu      sync.RWMutex
	phase   Phase
	outputs map[uint64]pid.Output
}

func New(cfg Config, controller *pid.Controller, forks *forkset.Manager, pool *mempool.Pool,
	selector *mempool.Selector, prover Prover, ledger Ledger, logger zerolog.Logger) *Loop {
	if cfg.FinalityDepth == 0 {
		cfg.FinalityDepth = chain.DefaultFinalityDepth
	}
	return &Loop{
		cfg:        cfg,
		controller: controller,
		forks:      forks,
		pool:       pool,
		selector:   selector,
		prover:     prover,
		ledger:     ledger,
		logger:     logger,
		phase:      PhaseIdle,
		outputs:    make(map[uint64]pid.Output),
	}
}

// GenesisSlot is the slot record the loop assumes when no predecessor exists.
// The bias parameter starts at the midpoint of its range and both error
// samples at zero.
func GenesisSlot(height, totalTokens, reward uint64) chain.Slot {
	return chain.Slot{
		Height: height,
		Pid: chain.PidState{
			F:             decimal.MustFromString("0.5"),
			Error:         decimal.Zero,
			PreviousError: decimal.Zero,
		},
		TotalTokens: totalTokens,
		Reward:      reward,
	}
}

// Run drives the loop until ctx is cancelled. Each slot's work is bounded by
// a deadline at the next slot boundary: a proposal still in flight when the
// boundary arrives is abandoned, never appended late.
func (l *Loop) Run(ctx context.Context) error {
	for {
		timer := time.NewTimer(slottime.UntilNext())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		slot := slottime.Current()
		slotCtx, cancel := context.WithDeadline(ctx, slot.Next().Start())
		l.ProcessSlot(slotCtx, uint64(slot))
		cancel()
	}
}

// ProcessSlot runs one slot's state machine:
//
//	Idle -> ComputingPid -> EvaluatingLottery ->
//	  not leader -> Idle
//	  leader -> SelectingFork -> AssemblingBlock -> ProducingProof ->
//	            AppendingBlock -> Idle
//
// Every failure path simply returns to Idle; externally a failed slot is
// indistinguishable from a lost lottery.
func (l *Loop) ProcessSlot(ctx context.Context, height uint64) {
	logger := l.logger.With().Uint64("slot", height).Logger()
	defer l.setPhase(PhaseIdle)

	l.setPhase(PhaseComputingPid)
	prev := l.previousSlot(height, logger)

	// Close the previous slot's record with the producer count the fork set
	// observed for it. This is the PID feedback signal: if our own block
	// never reached the network last slot, the count correctly reads zero.
	producers := l.forks.ProducerCount(prev.Height)
	prev.ProducerCount = producers
	if err := l.ledger.PutSlot(prev); err != nil {
		logger.Warn().Err(err).Msg("persist closed slot record")
	}

	out := l.controller.ComputeLotteryParameters(prev, uint64(producers))
	l.recordOutput(height, out)

	totalTokens, reward, err := l.ledger.StakeInfo(height)
	if err != nil {
		logger.Warn().Err(err).Msg("stake info unavailable, carrying forward")
		totalTokens, reward = prev.TotalTokens, prev.Reward
	}
	current := chain.Slot{
		Height:      height,
		Pid:         pid.NextPidState(prev.Pid, out),
		TotalTokens: totalTokens,
		Reward:      reward,
	}
	if err := l.ledger.PutSlot(current); err != nil {
		logger.Warn().Err(err).Msg("persist slot record")
	}

	l.setPhase(PhaseEvaluatingLottery)
	forkID := l.forks.BestFork()
	fork, err := l.forks.Fork(forkID)
	if err != nil {
		logger.Error().Err(err).Msg("best fork vanished")
		return
	}
	randomness, err := fork.Head()
	if err != nil {
		logger.Error().Err(err).Uint64("fork", uint64(forkID)).Msg("hash fork head")
		return
	}

	win, err := l.prover.EvaluateLottery(l.cfg.Stake, out.Sigma1, out.Sigma2, randomness, height)
	if err != nil {
		logger.Warn().Err(err).Msg("lottery evaluation failed, abandoning slot")
		return
	}
	if win == nil {
		logger.Debug().Str("f", out.F.String()).Msg("not leader")
		l.forks.Prune(l.cfg.FinalityDepth)
		return
	}
	logger.Info().Str("f", out.F.String()).Uint64("fork", uint64(forkID)).Msg("won block lottery")

	l.setPhase(PhaseSelectingFork)
	// If the best fork already carries a block for this slot, a remote
	// producer got there first; stacking a second block into the same slot
	// is not a valid extension. Propose on a fresh fork from the finalized
	// tip instead.
	if n := len(fork.Blocks); n > 0 && fork.Blocks[n-1].Header.Slot == height {
		forkID = l.forks.GenerateEmptyFork()
		fork, err = l.forks.Fork(forkID)
		if err != nil {
			logger.Error().Err(err).Msg("fresh fork vanished")
			return
		}
	}
	head, err := fork.Head()
	if err != nil {
		logger.Error().Err(err).Uint64("fork", uint64(forkID)).Msg("hash fork head")
		return
	}

	l.setPhase(PhaseAssemblingBlock)
	sel := l.selector.SelectUnproposed(&fork, fork.Height()+1, l.cfg.Target, l.cfg.VerifySignatures)
	draft := chain.BlockProposalDraft{ForkID: forkID, Txs: sel.Txs, TotalGas: sel.TotalGas}
	logger.Debug().
		Int("txs", len(draft.Txs)).
		Uint64("gas", draft.TotalGas).
		Int("skipped", sel.Skipped).
		Int("errored", sel.Errored).
		Msg("assembled proposal")

	block := chain.Block{
		Header: chain.Header{
			ParentHash: head,
			StateRoot:  fork.StateRoot,
			TxRoot:     chain.ComputeTxRoot(draft.Txs),
			Slot:       height,
			Height:     fork.Height() + 1,
			Producer:   l.cfg.Producer,
		},
		Txs: draft.Txs,
	}

	l.setPhase(PhaseProducingProof)
	seal, err := l.prover.ProveBlock(ctx, block, win)
	if err != nil {
		logger.Warn().Err(err).Uint64("fork", uint64(forkID)).Msg("proof failed, abandoning slot")
		return
	}
	block.Header.Seal = seal

	l.setPhase(PhaseAppendingBlock)
	// A block for slot N must never land after slot N+1 has begun.
	if ctx.Err() != nil {
		logger.Warn().Uint64("fork", uint64(forkID)).Msg("slot boundary passed, abandoning proposal")
		return
	}
	if err := l.forks.AppendBlock(draft.ForkID, block); err != nil {
		logger.Warn().Err(err).Uint64("fork", uint64(forkID)).Msg("append rejected")
		return
	}
	l.pool.Remove(draft.Txs)
	if err := l.ledger.PutBlock(block); err != nil {
		logger.Warn().Err(err).Msg("persist block")
	}
	l.forks.Prune(l.cfg.FinalityDepth)

	logger.Info().
		Uint64("fork", uint64(forkID)).
		Uint64("height", block.Header.Height).
		Int("txs", len(block.Txs)).
		Msg("block appended")
}

// previousSlot loads slot height-1, falling back to the genesis record when
// no predecessor is stored.
func (l *Loop) previousSlot(height uint64, logger zerolog.Logger) chain.Slot {
	if height == 0 {
		return GenesisSlot(0, 0, 0)
	}
	prev, err := l.ledger.Slot(height - 1)
	if err == nil {
		return prev
	}
	totalTokens, reward, serr := l.ledger.StakeInfo(height - 1)
	if serr != nil {
		logger.Warn().Err(serr).Msg("stake info unavailable for genesis record")
	}
	return GenesisSlot(height-1, totalTokens, reward)
}

func (l *Loop) setPhase(p Phase) {
	l.mu.Lock()
	l.phase = p
	l.mu.Unlock()
}

// Phase reports the loop's position within the current slot.
func (l *Loop) Phase() Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase
}

func (l *Loop) recordOutput(height uint64, out pid.Output) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outputs[height] = out
	delete(l.outputs, height-outputRetention)
}

// SlotPidOutput returns the PID output computed for a slot, for diagnostics
// and testing. Only the last outputRetention slots are kept.
func (l *Loop) SlotPidOutput(height uint64) (pid.Output, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out, ok := l.outputs[height]
	return out, ok
}

// CurrentBestFork exposes the fork-selection rule's current choice.
func (l *Loop) CurrentBestFork() chain.ForkID {
	return l.forks.BestFork()
}

// UnproposedTxs assembles a batch against an explicit fork without proposing
// it. Exposed for diagnostics and re-derivation.
func (l *Loop) UnproposedTxs(fork *chain.Fork, height, target uint64, verifySignatures bool) mempool.Result {
	return l.selector.SelectUnproposed(fork, height, target, verifySignatures)
}

// SubmitTransaction admits a transaction delivered by the network layer.
func (l *Loop) SubmitTransaction(payload []byte) bool {
	return l.pool.Add(chain.NewPendingTransaction(payload))
}

// HandleRemoteBlock extends a fork with a block delivered by the network
// layer. The caller is responsible for having validated its transactions.
func (l *Loop) HandleRemoteBlock(id chain.ForkID, b chain.Block) error {
	return l.forks.AppendBlock(id, b)
}

// HandleRemoteFork adopts a competing fork delivered by the network layer.
func (l *Loop) HandleRemoteFork(f *chain.Fork) chain.ForkID {
	return l.forks.AdoptFork(f)
}
