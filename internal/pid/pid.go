// Package pid computes each slot's lottery-bias parameters from the previous
// slot's recorded state. The target is exactly one block producer per slot:
// the feedback error is 1 minus the observed producer count, and the loop
// nudges the bias parameter f so the expected producer count tracks one as
// the online stake population changes.
//
// Everything runs in exact decimal arithmetic so independently running nodes
// derive bit-identical parameters from identical inputs.
package pid

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/eigerco/bilberry/internal/chain"
	"github.com/eigerco/bilberry/internal/decimal"
)

// Output is one slot's lottery parameters.
type Output struct {
	F     decimal.Decimal
	Error decimal.Decimal

	// Sigma1 and Sigma2 are the first two Taylor coefficients of the
	// stake-weighted winning-probability target 1-(1-f)^stake, scaled into
	// the field so the lottery check runs as a low-degree polynomial inside
	// the proof circuit.
	Sigma1 fr.Element
	Sigma2 fr.Element
}

// Controller derives per-slot lottery parameters. It is stateless across
// slots; all feedback state lives in the Slot records it is fed.
type Controller struct {
	tuning Tuning

	// Incremental three-term form of the PID update, using only the last two
	// error samples and avoiding unbounded integral accumulation:
	// k1 = Kp+Ki+Kd, k2 = -Kp-2Kd, k3 = Kd.
	k1, k2, k3 decimal.Decimal

	modulus     decimal.Decimal
	halfModulus decimal.Decimal
}

func NewController(t Tuning) (*Controller, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	mod := decimal.ModulusDecimal()
	return &Controller{
		tuning:      t,
		k1:          t.Kp.Add(t.Ki).Add(t.Kd),
		k2:          t.Kp.Neg().Sub(decimal.Two.Mul(t.Kd)),
		k3:          t.Kd,
		modulus:     mod,
		halfModulus: mod.Div(decimal.Two),
	}, nil
}

// ComputeLotteryParameters derives slot N's parameters from slot N-1's record
// and the number of distinct producers observed at N-1. The function is
// total: clamping keeps f inside [MinF, MaxF], so ln(1-f) never sees a
// non-positive argument.
func (c *Controller) ComputeLotteryParameters(prev chain.Slot, prevProducers uint64) Output {
	e := decimal.One.Sub(decimal.NewFromUint64(prevProducers))

	f := prev.Pid.F.
		Add(c.k1.Mul(e)).
		Add(c.k2.Mul(prev.Pid.Error)).
		Add(c.k3.Mul(prev.Pid.PreviousError)).
		Clamp(c.tuning.MinF, c.tuning.MaxF)

	// coeff = -ln(1-f) / (total_tokens + 1)
	ln, err := decimal.One.Sub(f).Ln()
	if err != nil {
		// Unreachable: 1-f is in [1-MaxF, 1-MinF], strictly positive.
		panic(err)
	}
	coeff := ln.Neg().Div(decimal.NewFromUint64(prev.TotalTokens).Add(decimal.One))

	return Output{
		F:      f,
		Error:  e,
		Sigma1: coeff.Mul(c.modulus).ToFieldElement(),
		Sigma2: coeff.Pow(2).Mul(c.halfModulus).ToFieldElement(),
	}
}

// NextPidState folds an Output into the PidState the slot record stores.
func NextPidState(prev chain.PidState, out Output) chain.PidState {
	return chain.PidState{
		F:             out.F,
		Error:         out.Error,
		PreviousError: prev.Error,
	}
}
