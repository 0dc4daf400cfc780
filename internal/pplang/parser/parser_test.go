package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noderod/guillemot/internal/pplang/ast"
)

func TestParseSimpleFlipReturn(t *testing.T) {
	prog, err := Parse(`a ~ flip(0.3); return a;`)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 1)
	sample, ok := prog.Stmts[0].(*ast.Sample)
	require.True(t, ok)
	assert.Equal(t, ast.SampleFlip, sample.Kind)
	assert.Equal(t, 0.3, sample.Literal)

	leaf, ok := prog.Return.(*ast.Leaf)
	require.True(t, ok)
	assert.Equal(t, "a", leaf.Name)
}

func TestParseObserveAndReject(t *testing.T) {
	prog, err := Parse(`a ~ flip(0.5); b ~ flip(0.5); observe (a || b); return a;`)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 3)
	obs, ok := prog.Stmts[2].(*ast.Observe)
	require.True(t, ok)
	bin, ok := obs.Cond.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpOr, bin.Op)
}

func TestParseIfElse(t *testing.T) {
	prog, err := Parse(`a ~ flip(0.5); if a { b = true } else { b = false }; return b;`)
	require.NoError(t, err)
	ifStmt, ok := prog.Stmts[1].(*ast.If)
	require.True(t, ok)
	require.Len(t, ifStmt.Branches, 1)
	require.Len(t, ifStmt.Else, 1)
}

func TestParseDiscreteNumeric(t *testing.T) {
	prog, err := Parse(`a ~ discrete_numeric(1=0.2, 2=0.3, 3=0.5); return (a == 2);`)
	require.NoError(t, err)
	sample, ok := prog.Stmts[0].(*ast.Sample)
	require.True(t, ok)
	assert.Equal(t, ast.SampleDiscreteNumeric, sample.Kind)
	assert.Len(t, sample.Values, 3)

	cmp, ok := prog.Return.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpEqual, cmp.Op)
}

func TestParseContinuousSplitForm(t *testing.T) {
	prog, err := Parse(`x ~ normal(mu=0, sigma=1, -1, 1); return x;`)
	require.NoError(t, err)
	sample, ok := prog.Stmts[0].(*ast.Sample)
	require.True(t, ok)
	assert.Equal(t, ast.SampleNormal, sample.Kind)
	assert.False(t, sample.CountMode)
	assert.Len(t, sample.Splits, 2)
}

func TestParseContinuousCountForm(t *testing.T) {
	prog, err := Parse(`x ~ uniform_num(a=0, b=10, n=5); return x;`)
	require.NoError(t, err)
	sample, ok := prog.Stmts[0].(*ast.Sample)
	require.True(t, ok)
	assert.True(t, sample.CountMode)
	require.NotNil(t, sample.Count)
}

func TestParseGreekHyperparameterAliases(t *testing.T) {
	prog, err := Parse(`x ~ beta(α=2, β=3); return x;`)
	require.NoError(t, err)
	sample, ok := prog.Stmts[0].(*ast.Sample)
	require.True(t, ok)
	assert.Len(t, sample.Params, 2)
}

func TestParseTildeAliasAndNegation(t *testing.T) {
	prog, err := Parse(`a ∼ flip(0.5); return (!a);`)
	require.NoError(t, err)
	sample, ok := prog.Stmts[0].(*ast.Sample)
	require.True(t, ok)
	assert.Equal(t, ast.SampleFlip, sample.Kind)

	unary, ok := prog.Return.(*ast.Unary)
	require.True(t, ok)
	assert.Equal(t, ast.OpNot, unary.Op)
}

func TestParseMarginalizeAndEliminate(t *testing.T) {
	prog, err := Parse(`a ~ flip(0.5); b ~ flip(0.5); marginalize(a); eliminate_variable(b); return a;`)
	require.NoError(t, err)
	_, ok := prog.Stmts[2].(*ast.Marginalize)
	require.True(t, ok)
	elim, ok := prog.Stmts[3].(*ast.EliminateVariable)
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, elim.Names)
}

func TestParseMissingReturnIsError(t *testing.T) {
	_, err := Parse(`a ~ flip(0.5);`)
	assert.Error(t, err)
}

func TestParseComments(t *testing.T) {
	prog, err := Parse("a = 1; // this sets a\nreturn a;")
	require.NoError(t, err)
	assign, ok := prog.Stmts[0].(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, "a", assign.Name)
}
