package consensus

// Phase is the consensus loop's position within the current slot.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseComputingPid
	PhaseEvaluatingLottery
	PhaseSelectingFork
	PhaseAssemblingBlock
	PhaseProducingProof
	PhaseAppendingBlock
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseComputingPid:
		return "computing-pid"
	case PhaseEvaluatingLottery:
		return "evaluating-lottery"
	case PhaseSelectingFork:
		return "selecting-fork"
	case PhaseAssemblingBlock:
		return "assembling-block"
	case PhaseProducingProof:
		return "producing-proof"
	case PhaseAppendingBlock:
		return "appending-block"
	}
	return "unknown"
}
