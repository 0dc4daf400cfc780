package variable

import (
	"testing"

	"golang.org/x/exp/rand"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRNG() *rand.Rand { return rand.New(rand.NewSource(0)) }

func TestContinuousSplitUniform(t *testing.T) {
	vs, err := ContinuousSplit(FamilyUniform, "u", []float64{0, 10}, []float64{5}, newRNG())
	require.NoError(t, err)
	require.Len(t, vs, 2)

	total := 0.0
	for _, v := range vs {
		total += v.Probability
	}
	assert.InDelta(t, 1.0, total, 1e-6)
}

func TestContinuousCountNormal(t *testing.T) {
	vs, err := ContinuousCount(FamilyNormal, "n", []float64{0, 1}, 4, newRNG())
	require.NoError(t, err)
	require.Len(t, vs, 4)

	total := 0.0
	for _, v := range vs {
		total += v.Probability
	}
	assert.InDelta(t, 1.0, total, 1e-4)
}

func TestContinuousSplitValidation(t *testing.T) {
	_, err := ContinuousSplit(FamilyUniform, "u", []float64{5, 0}, nil, newRNG())
	assert.Error(t, err, "a>b must be rejected")

	_, err = ContinuousSplit(FamilyBeta, "b", []float64{2, 2}, []float64{1.5}, newRNG())
	assert.Error(t, err, "beta split point outside [0,1] must be rejected")
}

func TestNormalConcentratesAsSigmaShrinks(t *testing.T) {
	// A normal with a very small sigma should put nearly all mass on the
	// interval containing mu (spec.md section 8, boundary behavior 11).
	vs, err := ContinuousSplit(FamilyNormal, "n", []float64{0, 0.001}, []float64{-1, 1}, newRNG())
	require.NoError(t, err)
	require.Len(t, vs, 3)
	// Middle interval [-1,1] should carry essentially all the mass.
	assert.InDelta(t, 1.0, vs[1].Probability, 1e-6)
}

func TestParetoOuterBounds(t *testing.T) {
	lo, hi, err := outerBounds(FamilyPareto, []float64{1, 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, lo)
	assert.Greater(t, hi, lo)
}
