// Package parser turns PPL source text into an ast.Program by recursive
// descent over the lexer.Lexer token stream.
//
// The language's own parser is an out-of-scope external collaborator per
// spec.md section 1 ("specified only by contract") — but a runnable module
// still needs one, so this package implements the grammar sketched in
// spec section 6.2 directly, lowering straight into the ast sum types
// instead of a generic parse tree (spec section 9, "sum-typed statements
// and expressions").
package parser

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/noderod/guillemot/internal/pplang/ast"
	"github.com/noderod/guillemot/internal/pplang/lexer"
)

// Parse lexes and parses src into a Program.
func Parse(src string) (*ast.Program, error) {
	toks, err := lexer.New(src).Tokenize()
	if err != nil {
		return nil, errors.Wrap(err, "parser: lexing failed")
	}
	p := &parser{toks: toks}
	prog, err := p.parseProgram()
	if err != nil {
		return nil, errors.Wrapf(err, "parser: at offset %d", p.offset())
	}
	return prog, nil
}

type parser struct {
	toks []lexer.Token
	pos  int
}

func (p *parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *parser) offset() int       { return p.cur().Pos }
func (p *parser) atEOF() bool       { return p.cur().Kind == lexer.EOF }
func (p *parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) isSymbol(s string) bool {
	return p.cur().Kind == lexer.Symbol && p.cur().Text == s
}

func (p *parser) isIdent(s string) bool {
	return p.cur().Kind == lexer.Ident && p.cur().Text == s
}

func (p *parser) expectSymbol(s string) error {
	if !p.isSymbol(s) {
		return fmt.Errorf("expected %q, got %q", s, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *parser) expectIdent(s string) error {
	if !p.isIdent(s) {
		return fmt.Errorf("expected keyword %q, got %q", s, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *parser) consumeOptionalSymbol(s string) {
	if p.isSymbol(s) {
		p.advance()
	}
}

// ---- program / statements ----

func (p *parser) parseProgram() (*ast.Program, error) {
	var stmts []ast.Stmt
	for !p.isIdent("return") {
		if p.atEOF() {
			return nil, fmt.Errorf("unexpected end of input, expected 'return'")
		}
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
		p.consumeOptionalSymbol(";")
	}
	if err := p.expectIdent("return"); err != nil {
		return nil, err
	}
	ret, err := p.parseExpr()
	if err != nil {
		return nil, errors.Wrap(err, "parsing return expression")
	}
	p.consumeOptionalSymbol(";")
	if !p.atEOF() {
		return nil, fmt.Errorf("unexpected trailing tokens after return statement: %q", p.cur().Text)
	}
	return &ast.Program{Stmts: stmts, Return: ret}, nil
}

func (p *parser) parseStmt() (ast.Stmt, error) {
	switch {
	case p.isIdent("observe"):
		p.advance()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, errors.Wrap(err, "parsing observe condition")
		}
		return &ast.Observe{Cond: cond}, nil
	case p.isIdent("reject"):
		p.advance()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, errors.Wrap(err, "parsing reject condition")
		}
		return &ast.Reject{Cond: cond}, nil
	case p.isIdent("if"):
		return p.parseIf()
	case p.isIdent("marginalize"):
		return p.parseMarginalize()
	case p.isIdent("eliminate_variable"):
		return p.parseEliminateVariable()
	case p.isIdent("print"):
		return p.parsePrint()
	case p.isIdent("show_circuit"):
		p.advance()
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return &ast.ShowCircuit{}, nil
	case p.cur().Kind == lexer.Ident:
		return p.parseAssignOrSample()
	default:
		return nil, fmt.Errorf("unexpected token %q at start of statement", p.cur().Text)
	}
}

func (p *parser) parseAssignOrSample() (ast.Stmt, error) {
	name := p.advance().Text
	switch {
	case p.isSymbol("="):
		p.advance()
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, errors.Wrapf(err, "parsing assignment to %q", name)
		}
		return &ast.Assign{Name: name, RHS: rhs}, nil
	case p.isSymbol("~"):
		p.advance()
		return p.parseSample(name)
	default:
		return nil, fmt.Errorf("expected '=' or '~' after identifier %q, got %q", name, p.cur().Text)
	}
}

func (p *parser) parseIf() (*ast.If, error) {
	var branches []ast.CondBlock
	p.advance() // 'if'
	for {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, errors.Wrap(err, "parsing if condition")
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		branches = append(branches, ast.CondBlock{Cond: cond, Body: body})
		if p.isIdent("else") {
			save := p.pos
			p.advance()
			if p.isIdent("if") {
				p.advance()
				continue
			}
			p.pos = save
			break
		}
		break
	}
	node := &ast.If{Branches: branches}
	if p.isIdent("else") {
		p.advance()
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		node.Else = body
	}
	return node, nil
}

func (p *parser) parseBlock() ([]ast.Stmt, error) {
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.isSymbol("}") {
		if p.atEOF() {
			return nil, fmt.Errorf("unterminated block, expected '}'")
		}
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
		p.consumeOptionalSymbol(";")
	}
	p.advance() // '}'
	return stmts, nil
}

func (p *parser) parseMarginalize() (*ast.Marginalize, error) {
	p.advance()
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var exprs []ast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, errors.Wrap(err, "parsing marginalize argument")
		}
		exprs = append(exprs, e)
		if p.isSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return &ast.Marginalize{Exprs: exprs}, nil
}

func (p *parser) parseEliminateVariable() (*ast.EliminateVariable, error) {
	p.advance()
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var names []string
	for {
		if p.cur().Kind != lexer.Ident {
			return nil, fmt.Errorf("expected variable name in eliminate_variable, got %q", p.cur().Text)
		}
		names = append(names, p.advance().Text)
		if p.isSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return &ast.EliminateVariable{Names: names}, nil
}

func (p *parser) parsePrint() (*ast.Print, error) {
	p.advance()
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, errors.Wrap(err, "parsing print argument")
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return &ast.Print{Expr: e}, nil
}

// ---- sampling statements ----

var hpAliases = map[string]string{
	"mu": "mu", "μ": "mu",
	"sigma": "sigma", "σ": "sigma",
	"alpha": "alpha", "α": "alpha",
	"beta": "beta", "β": "beta",
	"a": "a", "b": "b",
	"x_m": "x_m",
}

func (p *parser) parseSample(name string) (*ast.Sample, error) {
	if p.cur().Kind != lexer.Ident {
		return nil, fmt.Errorf("expected distribution name after '~', got %q", p.cur().Text)
	}
	dist := p.advance().Text
	switch dist {
	case "flip":
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		neg := false
		if p.isSymbol("-") {
			neg = true
			p.advance()
		}
		if p.cur().Kind != lexer.Number {
			return nil, fmt.Errorf("flip() requires a numeric literal argument, got %q", p.cur().Text)
		}
		lit, err := strconv.ParseFloat(p.advance().Text, 64)
		if err != nil {
			return nil, errors.Wrap(err, "parsing flip() literal")
		}
		if neg {
			lit = -lit
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return &ast.Sample{Name: name, Kind: ast.SampleFlip, Literal: lit}, nil
	case "bernoulli":
		e, err := p.parseParenExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Sample{Name: name, Kind: ast.SampleBernoulli, Param: e}, nil
	case "discrete_numeric", "discrete_qualitative":
		values, err := p.parseWeightedValues()
		if err != nil {
			return nil, err
		}
		kind := ast.SampleDiscreteNumeric
		if dist == "discrete_qualitative" {
			kind = ast.SampleDiscreteQualitative
		}
		return &ast.Sample{Name: name, Kind: kind, Values: values}, nil
	case "uniform", "uniform_num":
		return p.parseContinuousSample(name, ast.SampleUniform, dist == "uniform_num", []string{"a", "b"})
	case "normal", "normal_num", "gaussian", "gaussian_num":
		countMode := dist == "normal_num" || dist == "gaussian_num"
		return p.parseContinuousSample(name, ast.SampleNormal, countMode, []string{"mu", "sigma"})
	case "beta", "beta_num":
		return p.parseContinuousSample(name, ast.SampleBeta, dist == "beta_num", []string{"alpha", "beta"})
	case "pareto", "pareto_num":
		return p.parseContinuousSample(name, ast.SamplePareto, dist == "pareto_num", []string{"x_m", "alpha"})
	default:
		return nil, fmt.Errorf("unknown distribution %q", dist)
	}
}

func (p *parser) parseParenExpr() (ast.Expr, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *parser) parseWeightedValues() ([]ast.WeightedValue, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var values []ast.WeightedValue
	for {
		v, err := p.parseExpr()
		if err != nil {
			return nil, errors.Wrap(err, "parsing discrete value")
		}
		if err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		w, err := p.parseExpr()
		if err != nil {
			return nil, errors.Wrap(err, "parsing discrete weight")
		}
		values = append(values, ast.WeightedValue{Value: v, Weight: w})
		if p.isSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return values, nil
}

// parseContinuousSample parses the shared hp_list form for uniform, normal,
// beta, and pareto (and their _num count-form variants): a comma list where
// `name=expr` entries are hyper-parameters and bare `expr` entries are
// split points (split-list form) or the `n=expr` entry is the interval
// count (count form).
func (p *parser) parseContinuousSample(name string, kind ast.SampleKind, countMode bool, hpNames []string) (*ast.Sample, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	named := map[string]ast.Expr{}
	var splits []ast.Expr
	var count ast.Expr
	for {
		if p.isSymbol(")") {
			break
		}
		if p.cur().Kind == lexer.Ident {
			save := p.pos
			ident := p.advance().Text
			if p.isSymbol("=") {
				p.advance()
				val, err := p.parseExpr()
				if err != nil {
					return nil, errors.Wrapf(err, "parsing %q=", ident)
				}
				canon, ok := hpAliases[ident]
				if !ok {
					canon = ident
				}
				if canon == "n" {
					count = val
				} else {
					named[canon] = val
				}
				if p.isSymbol(",") {
					p.advance()
					continue
				}
				break
			}
			p.pos = save
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, errors.Wrap(err, "parsing split point")
		}
		splits = append(splits, e)
		if p.isSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	params := make([]ast.Expr, len(hpNames))
	for i, hp := range hpNames {
		v, ok := named[hp]
		if !ok {
			return nil, fmt.Errorf("%s(): missing required parameter %q", name, hp)
		}
		params[i] = v
	}
	s := &ast.Sample{Name: name, Kind: kind, Params: params, Splits: splits, CountMode: countMode}
	if countMode {
		if count == nil {
			return nil, fmt.Errorf("%s(): count form requires n=", name)
		}
		s.Count = count
	}
	return s, nil
}

// ---- expressions ----

func (p *parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isSymbol("||") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.isSymbol("&&") {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

var comparisonOps = map[string]ast.BinOp{
	"==": ast.OpEqual, "!=": ast.OpNotEqual,
	"<": ast.OpLess, "<=": ast.OpLessEq,
	">": ast.OpGreater, ">=": ast.OpGreaterEq,
}

func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.cur().Text]
		if !ok || p.cur().Kind != lexer.Symbol {
			break
		}
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isSymbol("+") || p.isSymbol("-") {
		op := ast.OpAdd
		if p.cur().Text == "-" {
			op = ast.OpSub
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.isSymbol("*") || p.isSymbol("/") {
		op := ast.OpMul
		if p.cur().Text == "/" {
			op = ast.OpDiv
		}
		p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parsePower() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.isSymbol("^") {
		p.advance()
		right, err := p.parsePower() // right-associative
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: ast.OpPow, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.isSymbol("!") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.OpNot, Operand: operand}, nil
	}
	if p.isSymbol("-") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Op: ast.OpSub, Left: &ast.Leaf{Kind: ast.LeafNumber, Num: 0}, Right: operand}, nil
	}
	return p.parsePrimary()
}

// prefixOpsInParens lists operator tokens that, seen immediately after an
// opening '(', mean the parenthesized form is the grammar's prefix-style
// binary expression `( op e1 e2 )` rather than a grouped sub-expression.
var prefixOpsInParens = map[string]ast.BinOp{
	"&&": ast.OpAnd, "||": ast.OpOr,
	"==": ast.OpEqual, "!=": ast.OpNotEqual,
	"<": ast.OpLess, "<=": ast.OpLessEq,
	">": ast.OpGreater, ">=": ast.OpGreaterEq,
	"+": ast.OpAdd, "-": ast.OpSub, "*": ast.OpMul, "/": ast.OpDiv, "^": ast.OpPow,
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	switch {
	case p.isSymbol("("):
		p.advance()
		if p.isSymbol("!") {
			p.advance()
			operand, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			return &ast.Unary{Op: ast.OpNot, Operand: operand}, nil
		}
		if op, ok := prefixOpsInParens[p.cur().Text]; ok && p.cur().Kind == lexer.Symbol {
			p.advance()
			left, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			right, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			return &ast.Binary{Op: op, Left: left, Right: right}, nil
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return inner, nil
	case p.isIdent("E"):
		p.advance()
		e, err := p.parseParenExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.OpExpectation, Operand: e}, nil
	case p.isIdent("Var"):
		p.advance()
		e, err := p.parseParenExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.OpVariance, Operand: e}, nil
	case p.isIdent("true"):
		p.advance()
		return &ast.Leaf{Kind: ast.LeafBool, Bool: true}, nil
	case p.isIdent("false"):
		p.advance()
		return &ast.Leaf{Kind: ast.LeafBool, Bool: false}, nil
	case p.cur().Kind == lexer.String:
		s := p.advance().Text
		return &ast.Leaf{Kind: ast.LeafString, Str: s}, nil
	case p.cur().Kind == lexer.Number:
		n, err := strconv.ParseFloat(p.advance().Text, 64)
		if err != nil {
			return nil, errors.Wrap(err, "parsing numeric literal")
		}
		return &ast.Leaf{Kind: ast.LeafNumber, Num: n}, nil
	case p.cur().Kind == lexer.Ident:
		name := p.advance().Text
		return &ast.Leaf{Kind: ast.LeafName, Name: name}, nil
	default:
		return nil, fmt.Errorf("unexpected token %q while parsing expression", p.cur().Text)
	}
}
