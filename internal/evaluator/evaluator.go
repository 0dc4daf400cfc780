// Package evaluator implements the expression evaluator of spec.md
// section 4.2: it recursively walks an ast.Expr against a name->Variable
// environment and produces a Variable, a logical truth value, or a raw
// number depending on which of Eval/EvalBool/EvalNumber the caller
// invokes (the source's final_result / numeric_final_result flags,
// expressed here as three entrypoints instead of two booleans).
package evaluator

import (
	"fmt"
	"strconv"

	"github.com/noderod/guillemot/internal/pplang/ast"
	"github.com/noderod/guillemot/internal/variable"
)

// Env maps a name to the Variable currently bound to it at some point in
// the circuit (a chain environment, in circuit-builder terms).
type Env map[string]*variable.Variable

// Eval evaluates expr under env and returns the resulting Variable. This
// is the "return the Variable itself" convention from spec.md section
// 4.2.
func Eval(expr ast.Expr, env Env) (*variable.Variable, error) {
	switch e := expr.(type) {
	case *ast.Leaf:
		return evalLeaf(e, env)
	case *ast.Unary:
		return evalUnary(e, env)
	case *ast.Binary:
		return evalBinary(e, env)
	default:
		return nil, fmt.Errorf("evaluator: unsupported expression node %T", expr)
	}
}

// EvalBool evaluates expr and returns its logical truth value (the
// "final_result" convention).
func EvalBool(expr ast.Expr, env Env) (bool, error) {
	v, err := Eval(expr, env)
	if err != nil {
		return false, err
	}
	return v.IsTruthy(), nil
}

// EvalNumber evaluates expr and returns its expectation as a raw number
// (the "numeric_final_result" convention).
func EvalNumber(expr ast.Expr, env Env) (float64, error) {
	v, err := Eval(expr, env)
	if err != nil {
		return 0, err
	}
	return v.Expectation.Number(), nil
}

func evalLeaf(leaf *ast.Leaf, env Env) (*variable.Variable, error) {
	switch leaf.Kind {
	case ast.LeafBool:
		return variable.FixedBool(boolName(leaf.Bool), leaf.Bool), nil
	case ast.LeafString:
		return variable.Fixed(leaf.Str, variable.Str(leaf.Str)), nil
	case ast.LeafNumber:
		return variable.Fixed(formatNumber(leaf.Num), variable.Num(leaf.Num)), nil
	case ast.LeafName:
		if v, ok := env[leaf.Name]; ok {
			return v, nil
		}
		// Permissive leaf rule (spec.md section 4.2): an unresolved name
		// does not raise, it evaluates to fixed FALSE.
		return variable.FixedBool(leaf.Name, false), nil
	default:
		return nil, fmt.Errorf("evaluator: unknown leaf kind %v", leaf.Kind)
	}
}

func boolName(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func evalUnary(u *ast.Unary, env Env) (*variable.Variable, error) {
	switch u.Op {
	case ast.OpNot:
		operand, err := Eval(u.Operand, env)
		if err != nil {
			return nil, err
		}
		return variable.FixedBool("(!"+operand.Name+")", !operand.IsTruthy()), nil
	case ast.OpExpectation:
		operand, err := Eval(u.Operand, env)
		if err != nil {
			return nil, err
		}
		return variable.Fixed("E("+operand.Name+")", operand.Expectation), nil
	case ast.OpVariance:
		operand, err := Eval(u.Operand, env)
		if err != nil {
			return nil, err
		}
		return variable.Fixed("Var("+operand.Name+")", variable.Num(operand.Variance)), nil
	default:
		return nil, fmt.Errorf("evaluator: unknown unary operator %v", u.Op)
	}
}

func evalBinary(b *ast.Binary, env Env) (*variable.Variable, error) {
	// Logical combinators short-circuit on truth values, not on the
	// operand Variables themselves (spec.md section 4.2).
	switch b.Op {
	case ast.OpAnd:
		left, err := Eval(b.Left, env)
		if err != nil {
			return nil, err
		}
		if !left.IsTruthy() {
			return variable.FixedBool("and", false), nil
		}
		right, err := Eval(b.Right, env)
		if err != nil {
			return nil, err
		}
		return variable.FixedBool("and", right.IsTruthy()), nil
	case ast.OpOr:
		left, err := Eval(b.Left, env)
		if err != nil {
			return nil, err
		}
		if left.IsTruthy() {
			return variable.FixedBool("or", true), nil
		}
		right, err := Eval(b.Right, env)
		if err != nil {
			return nil, err
		}
		return variable.FixedBool("or", right.IsTruthy()), nil
	}

	left, err := Eval(b.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := Eval(b.Right, env)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case ast.OpEqual:
		return variable.Equal(left, right), nil
	case ast.OpNotEqual:
		return variable.NotEqual(left, right), nil
	case ast.OpLess:
		return variable.Less(left, right), nil
	case ast.OpLessEq:
		return variable.LessEq(left, right), nil
	case ast.OpGreater:
		return variable.Greater(left, right), nil
	case ast.OpGreaterEq:
		return variable.GreaterEq(left, right), nil
	case ast.OpAdd:
		return variable.Add(left, right), nil
	case ast.OpSub:
		return variable.Sub(left, right), nil
	case ast.OpMul:
		return variable.Mul(left, right), nil
	case ast.OpDiv:
		return variable.Div(left, right), nil
	case ast.OpPow:
		return variable.Pow(left, right)
	default:
		return nil, fmt.Errorf("evaluator: unknown binary operator %v", b.Op)
	}
}
