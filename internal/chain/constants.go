package chain

const (
	// MaxBlockGas is the execution budget of a single block.
	MaxBlockGas uint64 = 23_822_290

	// GasLimitUnproposedTxs bounds the cumulative gas of one proposed
	// transaction batch: fifty blocks' worth of execution budget.
	GasLimitUnproposedTxs uint64 = MaxBlockGas * 50

	// DefaultFinalityDepth is how many blocks a fork tip may trail the best
	// fork before the fork is pruned.
	DefaultFinalityDepth uint64 = 5
)
