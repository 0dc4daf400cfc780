package inference

import (
	"context"
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noderod/guillemot/internal/circuit"
	"github.com/noderod/guillemot/internal/pplang/parser"
)

func TestEnumerationScenarios(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want float64
	}{
		{"simple flip", `a ~ flip(0.3); return a;`, 0.3},
		{"observe or", `a ~ flip(0.5); b ~ flip(0.5); observe (a || b); return a;`, 0.6667},
		{"if else", `a ~ flip(0.5); if a { b = true } else { b = false }; return b;`, 0.5},
		{"nested observe", `a ~ flip(0.5); b ~ flip(0.5); c ~ flip(0.5); observe ((a || b) || c); return (a && b);`, 0.2857},
		{"discrete numeric", `a ~ discrete_numeric(1=0.2, 2=0.3, 3=0.5); return (a == 2);`, 0.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prog, err := parser.Parse(tc.src)
			require.NoError(t, err)
			c, err := circuit.Build(prog, rand.New(rand.NewSource(0)), discardWriter{})
			require.NoError(t, err)

			got, err := NewEnumeration().Run(context.Background(), c, prog.Return)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-3)
		})
	}
}

func TestEnumerationObserveFalseAfterRejectIsUndefined(t *testing.T) {
	prog, err := parser.Parse(`a ~ flip(0.2); reject a; observe false; return a;`)
	require.NoError(t, err)
	c, err := circuit.Build(prog, rand.New(rand.NewSource(0)), discardWriter{})
	require.NoError(t, err)

	got, err := NewEnumeration().Run(context.Background(), c, prog.Return)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestEnumerationDenGreaterOrEqualNum(t *testing.T) {
	prog, err := parser.Parse(`a ~ flip(0.5); b ~ flip(0.5); observe (a || b); return (a && b);`)
	require.NoError(t, err)
	c, err := circuit.Build(prog, rand.New(rand.NewSource(0)), discardWriter{})
	require.NoError(t, err)

	var num, den float64
	for _, leaf := range c.Leaves {
		den += c.ChainProbability(leaf)
	}
	got, err := NewEnumeration().Run(context.Background(), c, prog.Return)
	require.NoError(t, err)
	num = got * den
	assert.GreaterOrEqual(t, den, num)
	assert.GreaterOrEqual(t, num, 0.0)
}

func TestRejectionConvergesToEnumeration(t *testing.T) {
	src := `a ~ flip(0.5); b ~ flip(0.5); c ~ flip(0.5); observe ((a || b) || c); return (a && b);`
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(0))
	c, err := circuit.Build(prog, rng, discardWriter{})
	require.NoError(t, err)

	exact, err := NewEnumeration().Run(context.Background(), c, prog.Return)
	require.NoError(t, err)

	approx, err := NewRejection(20000, rng).Run(context.Background(), c, prog.Return)
	require.NoError(t, err)

	assert.InDelta(t, exact, approx, 0.05)
}

func TestRejectionDefaultSampleCount(t *testing.T) {
	r := NewRejection(0, rand.New(rand.NewSource(0)))
	assert.Equal(t, defaultSamples, r.Samples)

	r = NewRejection(-3, rand.New(rand.NewSource(0)))
	assert.Equal(t, defaultSamples, r.Samples)

	r = NewRejection(100, rand.New(rand.NewSource(0)))
	assert.Equal(t, 100, r.Samples)
}

func TestRejectionRespectsCancellation(t *testing.T) {
	prog, err := parser.Parse(`a ~ flip(0.5); return a;`)
	require.NoError(t, err)
	c, err := circuit.Build(prog, rand.New(rand.NewSource(0)), discardWriter{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewRejection(defaultSamples, rand.New(rand.NewSource(0))).Run(ctx, c, prog.Return)
	assert.Error(t, err)
}

// discardWriter satisfies io.Writer without importing io/ioutil just for
// this test file's print()/show_circuit() sink.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
