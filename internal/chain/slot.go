package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/eigerco/bilberry/internal/decimal"
)

// PidState is the lottery-bias parameter and its last two feedback errors.
// F always lies within the tuning's [MinF, MaxF].
type PidState struct {
	F             decimal.Decimal
	Error         decimal.Decimal
	PreviousError decimal.Decimal
}

// Slot is the finalized record of one consensus time unit. It is created once
// per slot, is immutable afterwards, and is the sole input the next slot's
// PID computation reads.
type Slot struct {
	Height      uint64
	Pid         PidState
	TotalTokens uint64
	Reward      uint64
	// ProducerCount is the number of distinct valid block producers observed
	// at this height.
	ProducerCount uint32
}

// slotRLP is the storage form of Slot. Decimals travel as their canonical
// string representation.
type slotRLP struct {
	Height        uint64
	F             string
	Error         string
	PreviousError string
	TotalTokens   uint64
	Reward        uint64
	ProducerCount uint32
}

func (s Slot) Bytes() ([]byte, error) {
	enc, err := rlp.EncodeToBytes(slotRLP{
		Height:        s.Height,
		F:             s.Pid.F.String(),
		Error:         s.Pid.Error.String(),
		PreviousError: s.Pid.PreviousError.String(),
		TotalTokens:   s.TotalTokens,
		Reward:        s.Reward,
		ProducerCount: s.ProducerCount,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal slot: %w", err)
	}
	return enc, nil
}

func SlotFromBytes(data []byte) (Slot, error) {
	var enc slotRLP
	if err := rlp.DecodeBytes(data, &enc); err != nil {
		return Slot{}, fmt.Errorf("unmarshal slot: %w", err)
	}
	f, err := decimal.NewFromString(enc.F)
	if err != nil {
		return Slot{}, fmt.Errorf("slot f: %w", err)
	}
	e, err := decimal.NewFromString(enc.Error)
	if err != nil {
		return Slot{}, fmt.Errorf("slot error: %w", err)
	}
	pe, err := decimal.NewFromString(enc.PreviousError)
	if err != nil {
		return Slot{}, fmt.Errorf("slot previous error: %w", err)
	}
	return Slot{
		Height:        enc.Height,
		Pid:           PidState{F: f, Error: e, PreviousError: pe},
		TotalTokens:   enc.TotalTokens,
		Reward:        enc.Reward,
		ProducerCount: enc.ProducerCount,
	}, nil
}
