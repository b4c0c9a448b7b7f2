package decimal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactArithmetic(t *testing.T) {
	a := MustFromString("0.1")
	b := MustFromString("0.2")
	require.Equal(t, "0.3", a.Add(b).String())

	// 0.18 * 3 is exact, unlike binary floating point.
	require.Equal(t, "0.54", MustFromString("0.18").Mul(New(3)).String())

	require.Equal(t, "-0.1", a.Neg().String())
	require.Equal(t, "0.1", a.Neg().Abs().String())
}

func TestDivPrecision(t *testing.T) {
	third := One.Div(New(3))
	// 40 fractional digits, rounded.
	require.Equal(t, "0."+"3333333333333333333333333333333333333333", third.String())

	// Exact divisions stay exact.
	require.True(t, New(10).Div(New(4)).Equal(MustFromString("2.5")))
}

func TestPow(t *testing.T) {
	d := MustFromString("1.5")
	require.Equal(t, "2.25", d.Pow(2).String())
	require.Equal(t, "1", d.Pow(0).String())
	require.True(t, d.Pow(-1).Equal(One.Div(d)))
	require.Equal(t, "1024", Two.Pow(10).String())
}

func TestLn(t *testing.T) {
	r, err := MustFromString("2.718281828459045235360287471352662497757").Ln()
	require.NoError(t, err)
	diff := r.Sub(One).Abs()
	assert.True(t, diff.Cmp(MustFromString("1e-38")) < 0, "ln(e) = %s", r)

	_, err = Zero.Ln()
	require.Error(t, err)
	_, err = One.Neg().Ln()
	require.Error(t, err)
}

func TestLnDeterministic(t *testing.T) {
	arg := MustFromString("0.82")
	first, err := arg.Ln()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := arg.Ln()
		require.NoError(t, err)
		require.Equal(t, first.String(), again.String())
	}
}

func TestClamp(t *testing.T) {
	min := MustFromString("0.01")
	max := MustFromString("0.99")
	assert.True(t, MustFromString("0.5").Clamp(min, max).Equal(MustFromString("0.5")))
	assert.True(t, MustFromString("-3").Clamp(min, max).Equal(min))
	assert.True(t, New(2).Clamp(min, max).Equal(max))
}

func TestBigIntTruncates(t *testing.T) {
	require.Equal(t, "3", MustFromString("3.99").BigInt().String())
	require.Equal(t, "-3", MustFromString("-3.99").BigInt().String())
}
