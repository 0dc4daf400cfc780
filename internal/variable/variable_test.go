package variable

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBernoulli(t *testing.T) {
	t.Run("valid probability", func(t *testing.T) {
		pair, err := Bernoulli("a", 0.3)
		require.NoError(t, err)
		assert.Equal(t, 0.0, pair[0].Expectation.Number())
		assert.InDelta(t, 0.7, pair[0].Probability, 1e-9)
		assert.Equal(t, 1.0, pair[1].Expectation.Number())
		assert.InDelta(t, 0.3, pair[1].Probability, 1e-9)
		assert.InDelta(t, 1.0, pair[0].Probability+pair[1].Probability, 1e-9)
	})

	t.Run("out of range probability is an error", func(t *testing.T) {
		_, err := Bernoulli("a", 1.5)
		assert.Error(t, err)
		_, err = Bernoulli("a", -0.1)
		assert.Error(t, err)
	})
}

func TestDiscrete(t *testing.T) {
	t.Run("numeric odds normalise", func(t *testing.T) {
		vs, err := Discrete(DiscreteNumeric, "a", []Value{Num(1), Num(2), Num(3)}, []float64{0.2, 0.3, 0.5})
		require.NoError(t, err)
		require.Len(t, vs, 3)
		assert.InDelta(t, 0.2, vs[0].Probability, 1e-9)
		assert.InDelta(t, 0.3, vs[1].Probability, 1e-9)
		assert.InDelta(t, 0.5, vs[2].Probability, 1e-9)
	})

	t.Run("qualitative values must be strings", func(t *testing.T) {
		_, err := Discrete(DiscreteQualitative, "a", []Value{Num(1)}, []float64{1})
		assert.Error(t, err)
	})

	t.Run("all-zero odds is an error", func(t *testing.T) {
		_, err := Discrete(DiscreteNumeric, "a", []Value{Num(1), Num(2)}, []float64{0, 0})
		assert.Error(t, err)
	})

	t.Run("mismatched lengths is an error", func(t *testing.T) {
		_, err := Discrete(DiscreteNumeric, "a", []Value{Num(1)}, []float64{1, 2})
		assert.Error(t, err)
	})
}

func TestIsTruthy(t *testing.T) {
	assert.True(t, FixedBool("t", true).IsTruthy())
	assert.False(t, FixedBool("f", false).IsTruthy())
	assert.True(t, Fixed("s", Str("hi")).IsTruthy())
	assert.False(t, Fixed("s", Str("")).IsTruthy())
}

func TestComparisons(t *testing.T) {
	a := Fixed("a", Num(1))
	b := Fixed("b", Num(2))
	c := Fixed("c", Num(2))

	assert.True(t, Less(a, b).IsTruthy())
	assert.False(t, Greater(a, b).IsTruthy())
	assert.True(t, Equal(b, c).IsTruthy())
	assert.True(t, LessEq(b, c).IsTruthy())
	assert.True(t, GreaterEq(b, c).IsTruthy())
	assert.False(t, NotEqual(b, c).IsTruthy())
}

func TestArithmetic(t *testing.T) {
	a := Fixed("a", Num(3))
	b := Fixed("b", Num(4))

	sum := Add(a, b)
	assert.Equal(t, 7.0, sum.Expectation.Number())

	diff := Sub(a, b)
	assert.Equal(t, -1.0, diff.Expectation.Number())
	// The subtraction support bound is asymmetric by design (spec.md
	// section 9): upper = u_A + l_B, not u_A - l_B.
	assert.Equal(t, a.Upper.Number()+b.Lower.Number(), diff.Upper.Number())

	prod := Mul(a, b)
	assert.Equal(t, 12.0, prod.Expectation.Number())

	quot := Div(a, b)
	assert.InDelta(t, 0.75, quot.Expectation.Number(), 1e-9)

	pow, err := Pow(a, Fixed("two", Num(2)))
	require.NoError(t, err)
	assert.Equal(t, 9.0, pow.Expectation.Number())
}

func TestPowNegativeBaseNonIntegerExponent(t *testing.T) {
	neg := Fixed("n", Num(-4))
	half := Fixed("half", Num(0.5))
	_, err := Pow(neg, half)
	assert.Error(t, err)
}

func TestDivideByZero(t *testing.T) {
	zero := Fixed("z", Num(0))
	x := Fixed("x", Num(5))

	assert.Equal(t, 0.0, divideOne(0, 0))
	assert.True(t, math.IsInf(divideOne(5, 0), 1))
	assert.True(t, math.IsInf(divideOne(-5, 0), -1))

	result := Div(x, zero)
	assert.True(t, math.IsInf(result.Lower.Number(), -1) || math.IsInf(result.Upper.Number(), 1))
}
