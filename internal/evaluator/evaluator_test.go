package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noderod/guillemot/internal/pplang/ast"
	"github.com/noderod/guillemot/internal/variable"
)

func leafName(n string) ast.Expr { return &ast.Leaf{Kind: ast.LeafName, Name: n} }
func leafNum(n float64) ast.Expr { return &ast.Leaf{Kind: ast.LeafNumber, Num: n} }
func leafBool(b bool) ast.Expr   { return &ast.Leaf{Kind: ast.LeafBool, Bool: b} }

func TestEvalLeafLiterals(t *testing.T) {
	env := Env{}
	v, err := Eval(leafBool(true), env)
	require.NoError(t, err)
	assert.True(t, v.IsTruthy())

	v, err = Eval(leafNum(42), env)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v.Expectation.Number())
}

func TestEvalUnresolvedNameIsPermissiveFalse(t *testing.T) {
	v, err := Eval(leafName("missing"), Env{})
	require.NoError(t, err)
	assert.False(t, v.IsTruthy())
}

func TestEvalNameLookup(t *testing.T) {
	env := Env{"x": variable.FixedBool("x", true)}
	v, err := Eval(leafName("x"), env)
	require.NoError(t, err)
	assert.True(t, v.IsTruthy())
}

func TestEvalLogicalShortCircuit(t *testing.T) {
	env := Env{}
	// `false && missingName` should short-circuit without consulting the
	// (unresolved) right operand.
	expr := &ast.Binary{Op: ast.OpAnd, Left: leafBool(false), Right: leafName("never")}
	ok, err := EvalBool(expr, env)
	require.NoError(t, err)
	assert.False(t, ok)

	orExpr := &ast.Binary{Op: ast.OpOr, Left: leafBool(true), Right: leafName("never")}
	ok, err = EvalBool(orExpr, env)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalExpectationAndVariance(t *testing.T) {
	env := Env{"x": variable.Fixed("x", variable.Num(5))}
	e, err := Eval(&ast.Unary{Op: ast.OpExpectation, Operand: leafName("x")}, env)
	require.NoError(t, err)
	assert.Equal(t, 5.0, e.Expectation.Number())

	vv, err := Eval(&ast.Unary{Op: ast.OpVariance, Operand: leafName("x")}, env)
	require.NoError(t, err)
	assert.Equal(t, 0.0, vv.Expectation.Number())
}

func TestEvalComparisonAndArithmetic(t *testing.T) {
	env := Env{}
	cmp := &ast.Binary{Op: ast.OpLess, Left: leafNum(1), Right: leafNum(2)}
	ok, err := EvalBool(cmp, env)
	require.NoError(t, err)
	assert.True(t, ok)

	sum := &ast.Binary{Op: ast.OpAdd, Left: leafNum(2), Right: leafNum(3)}
	n, err := EvalNumber(sum, env)
	require.NoError(t, err)
	assert.Equal(t, 5.0, n)
}

func TestEvalNot(t *testing.T) {
	ok, err := EvalBool(&ast.Unary{Op: ast.OpNot, Operand: leafBool(false)}, Env{})
	require.NoError(t, err)
	assert.True(t, ok)
}
