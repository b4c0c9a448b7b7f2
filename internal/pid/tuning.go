package pid

import (
	"errors"

	"github.com/eigerco/bilberry/internal/decimal"
)

var (
	ErrBoundsInverted = errors.New("pid: MinF must be strictly below MaxF")
	ErrBoundsOutside  = errors.New("pid: bounds must lie strictly inside (0, 1)")
)

// Tuning holds the feedback-loop constants. A Tuning is built once at startup
// and passed into NewController; there is no package-level tuning state.
type Tuning struct {
	Kp decimal.Decimal
	Ki decimal.Decimal
	Kd decimal.Decimal

	// MinF and MaxF clamp the lottery-bias parameter. They must lie strictly
	// inside (0, 1) so ln(1-f) is always defined.
	MinF decimal.Decimal
	MaxF decimal.Decimal
}

// DefaultTuning returns the production constants.
func DefaultTuning() Tuning {
	return Tuning{
		Kp:   decimal.MustFromString("0.18"),
		Ki:   decimal.MustFromString("0.02"),
		Kd:   decimal.MustFromString("-0.1"),
		MinF: decimal.MustFromString("0.01"),
		MaxF: decimal.MustFromString("0.99"),
	}
}

func (t Tuning) Validate() error {
	if t.MinF.Cmp(t.MaxF) >= 0 {
		return ErrBoundsInverted
	}
	if t.MinF.Cmp(decimal.Zero) <= 0 || t.MaxF.Cmp(decimal.One) >= 0 {
		return ErrBoundsOutside
	}
	return nil
}
