package decimal

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Modulus returns the scalar-field prime the lottery circuit operates over.
func Modulus() *big.Int {
	return fr.Modulus()
}

// ModulusDecimal returns the field prime as a Decimal.
func ModulusDecimal() Decimal {
	return NewFromBigInt(fr.Modulus(), 0)
}

// ToFieldElement encodes d into the scalar field: the integer part of
// |significand * 10^exponent| is reduced modulo the field prime, and negative
// values map to the field negation of their absolute value. Fractional digits
// are discarded by the encoding.
//
// The field carries no sign, so the encoding of a negative decimal is NOT
// inverted by FieldElementToBigInt. That asymmetry is part of the consensus
// arithmetic and must not be papered over.
func (d Decimal) ToFieldElement() fr.Element {
	var fe fr.Element
	fe.SetBigInt(d.Abs().BigInt())
	if d.IsNegative() {
		fe.Neg(&fe)
	}
	return fe
}

// FieldElementToBigInt returns the canonical representative of fe in
// [0, modulus). It inverts ToFieldElement only for values that came from
// non-negative decimals below the modulus.
func FieldElementToBigInt(fe fr.Element) *big.Int {
	var out big.Int
	fe.BigInt(&out)
	return &out
}
