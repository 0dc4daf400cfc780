package circuit

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/rand"

	"github.com/noderod/guillemot/internal/evaluator"
	"github.com/noderod/guillemot/internal/pplang/ast"
	"github.com/noderod/guillemot/internal/variable"
)

// builder walks a parsed Program's statement list maintaining the
// "frontier" of live parent nodes described in spec.md section 4.3,
// transforming it one statement at a time.
type builder struct {
	c   *Circuit
	rng *rand.Rand
	out io.Writer
}

// Build constructs the full circuit DAG for prog. rng is the single
// seeded PRNG handle threaded through every continuous-distribution
// construction (spec.md section 5: "thread an explicit PRNG handle
// rather than relying on a global"). out receives print()/show_circuit()
// diagnostic output.
func Build(prog *ast.Program, rng *rand.Rand, out io.Writer) (*Circuit, error) {
	b := &builder{c: New(), rng: rng, out: out}
	frontier, err := b.runStmts(prog.Stmts, []NodeID{b.c.Ground})
	if err != nil {
		return nil, err
	}
	b.c.Leaves = frontier
	return b.c, nil
}

func (b *builder) runStmts(stmts []ast.Stmt, frontier []NodeID) ([]NodeID, error) {
	var err error
	for _, st := range stmts {
		frontier, err = b.runStmt(st, frontier)
		if err != nil {
			return nil, err
		}
	}
	return frontier, nil
}

func (b *builder) runStmt(st ast.Stmt, frontier []NodeID) ([]NodeID, error) {
	switch s := st.(type) {
	case *ast.Observe:
		return b.runObserve(s, frontier)
	case *ast.Reject:
		return b.runReject(s, frontier)
	case *ast.Assign:
		return b.runAssign(s, frontier)
	case *ast.Sample:
		return b.runSample(s, frontier)
	case *ast.If:
		return b.runIf(s, frontier)
	case *ast.Marginalize:
		return b.runMarginalize(s, frontier)
	case *ast.EliminateVariable:
		return b.runEliminate(s, frontier)
	case *ast.Print:
		return b.runPrint(s, frontier)
	case *ast.ShowCircuit:
		return b.runShowCircuit(frontier)
	default:
		return nil, fmt.Errorf("circuit: unsupported statement %T", st)
	}
}

func (b *builder) runObserve(s *ast.Observe, frontier []NodeID) ([]NodeID, error) {
	var next []NodeID
	for _, p := range frontier {
		env := b.c.ChainEnv(p)
		truthy, err := evaluator.EvalBool(s.Cond, env)
		if err != nil {
			return nil, fmt.Errorf("circuit: evaluating observe condition: %w", err)
		}
		if truthy {
			id := b.c.addNode(Node{Kind: KindObservation, Token: "OBSERVATION", Parents: []NodeID{p}, CurrentProbability: 1, ObservationExpr: s.Cond})
			next = append(next, id)
		} else {
			b.c.addNode(Node{Kind: KindDeadend, Token: "DEADEND", Parents: []NodeID{p}, CurrentProbability: 1, Deadend: true})
		}
	}
	return next, nil
}

func (b *builder) runReject(s *ast.Reject, frontier []NodeID) ([]NodeID, error) {
	var next []NodeID
	for _, p := range frontier {
		env := b.c.ChainEnv(p)
		truthy, err := evaluator.EvalBool(s.Cond, env)
		if err != nil {
			return nil, fmt.Errorf("circuit: evaluating reject condition: %w", err)
		}
		if !truthy {
			id := b.c.addNode(Node{Kind: KindRejection, Token: "REJECTION", Parents: []NodeID{p}, CurrentProbability: 1, ObservationExpr: s.Cond})
			next = append(next, id)
		} else {
			b.c.addNode(Node{Kind: KindDeadend, Token: "DEADEND", Parents: []NodeID{p}, CurrentProbability: 1, Deadend: true})
		}
	}
	return next, nil
}

func (b *builder) runAssign(s *ast.Assign, frontier []NodeID) ([]NodeID, error) {
	var next []NodeID
	for _, p := range frontier {
		env := b.c.ChainEnv(p)
		v, err := evaluator.Eval(s.RHS, env)
		if err != nil {
			return nil, fmt.Errorf("circuit: evaluating assignment to %q: %w", s.Name, err)
		}
		v.Name = s.Name
		// Assignment's local probability is fixed at 1.0 — unlike a
		// sampling statement, assigning does not multiply the chain
		// probability (spec.md section 4.3).
		id := b.c.addNode(Node{Kind: KindVariable, Token: s.Name, Parents: []NodeID{p}, Variable: v, CurrentProbability: 1.0})
		next = append(next, id)
	}
	return next, nil
}

func (b *builder) runSample(s *ast.Sample, frontier []NodeID) ([]NodeID, error) {
	var next []NodeID
	for _, p := range frontier {
		env := b.c.ChainEnv(p)
		vars, err := b.sampleVariables(s, env)
		if err != nil {
			return nil, fmt.Errorf("circuit: sampling %q: %w", s.Name, err)
		}
		for _, v := range vars {
			id := b.c.addNode(Node{Kind: KindVariable, Token: s.Name, Parents: []NodeID{p}, Variable: v, CurrentProbability: v.Probability})
			next = append(next, id)
		}
	}
	return next, nil
}

func evalAllNumeric(exprs []ast.Expr, env evaluator.Env) ([]float64, error) {
	out := make([]float64, len(exprs))
	for i, e := range exprs {
		n, err := evaluator.EvalNumber(e, env)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (b *builder) sampleVariables(s *ast.Sample, env evaluator.Env) ([]*variable.Variable, error) {
	switch s.Kind {
	case ast.SampleFlip:
		pair, err := variable.Bernoulli(s.Name, s.Literal)
		if err != nil {
			return nil, err
		}
		// TRUE-first then FALSE-first (spec.md section 4.3, "Ordering").
		return []*variable.Variable{pair[1], pair[0]}, nil
	case ast.SampleBernoulli:
		p, err := evaluator.EvalNumber(s.Param, env)
		if err != nil {
			return nil, err
		}
		pair, err := variable.Bernoulli(s.Name, p)
		if err != nil {
			return nil, err
		}
		return []*variable.Variable{pair[1], pair[0]}, nil
	case ast.SampleDiscreteNumeric, ast.SampleDiscreteQualitative:
		return b.sampleDiscrete(s, env)
	case ast.SampleUniform, ast.SampleNormal, ast.SampleBeta, ast.SamplePareto:
		return b.sampleContinuous(s, env)
	default:
		return nil, fmt.Errorf("unknown sample kind %v", s.Kind)
	}
}

func (b *builder) sampleDiscrete(s *ast.Sample, env evaluator.Env) ([]*variable.Variable, error) {
	qualitative := s.Kind == ast.SampleDiscreteQualitative
	values := make([]variable.Value, len(s.Values))
	odds := make([]float64, len(s.Values))
	for i, wv := range s.Values {
		if qualitative {
			v, err := evaluator.Eval(wv.Value, env)
			if err != nil {
				return nil, err
			}
			values[i] = variable.Str(v.Expectation.String())
		} else {
			n, err := evaluator.EvalNumber(wv.Value, env)
			if err != nil {
				return nil, err
			}
			values[i] = variable.Num(n)
		}
		w, err := evaluator.EvalNumber(wv.Weight, env)
		if err != nil {
			return nil, err
		}
		odds[i] = w
	}
	kind := variable.DiscreteNumeric
	if qualitative {
		kind = variable.DiscreteQualitative
	}
	return variable.Discrete(kind, s.Name, values, odds)
}

func sampleFamily(kind ast.SampleKind) variable.Family {
	switch kind {
	case ast.SampleUniform:
		return variable.FamilyUniform
	case ast.SampleNormal:
		return variable.FamilyNormal
	case ast.SampleBeta:
		return variable.FamilyBeta
	case ast.SamplePareto:
		return variable.FamilyPareto
	default:
		return variable.FamilyUniform
	}
}

func (b *builder) sampleContinuous(s *ast.Sample, env evaluator.Env) ([]*variable.Variable, error) {
	params, err := evalAllNumeric(s.Params, env)
	if err != nil {
		return nil, err
	}
	family := sampleFamily(s.Kind)
	if s.CountMode {
		n, err := evaluator.EvalNumber(s.Count, env)
		if err != nil {
			return nil, err
		}
		return variable.ContinuousCount(family, s.Name, params, int(n), b.rng)
	}
	splits, err := evalAllNumeric(s.Splits, env)
	if err != nil {
		return nil, err
	}
	return variable.ContinuousSplit(family, s.Name, params, splits, b.rng)
}

func (b *builder) runIf(s *ast.If, frontier []NodeID) ([]NodeID, error) {
	var next []NodeID
	for _, p := range frontier {
		env := b.c.ChainEnv(p)
		matched := false
		for _, branch := range s.Branches {
			truthy, err := evaluator.EvalBool(branch.Cond, env)
			if err != nil {
				return nil, fmt.Errorf("circuit: evaluating if condition: %w", err)
			}
			if truthy {
				sub, err := b.runStmts(branch.Body, []NodeID{p})
				if err != nil {
					return nil, err
				}
				next = append(next, sub...)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if s.Else != nil {
			sub, err := b.runStmts(s.Else, []NodeID{p})
			if err != nil {
				return nil, err
			}
			next = append(next, sub...)
		} else {
			// No elseif/else matched: the node passes through unchanged
			// (spec.md section 4.3).
			next = append(next, p)
		}
	}
	return next, nil
}

func valueKey(v variable.Value) string {
	if v.IsString() {
		return "s:" + v.String()
	}
	return "n:" + strconv.FormatFloat(v.Number(), 'g', -1, 64)
}

func (b *builder) runMarginalize(s *ast.Marginalize, frontier []NodeID) ([]NodeID, error) {
	groups, order, err := b.groupByExprs(s.Exprs, frontier)
	if err != nil {
		return nil, fmt.Errorf("circuit: evaluating marginalize group key: %w", err)
	}
	var next []NodeID
	for _, key := range order {
		members := groups[key]
		sum, mergedEnv := b.mergeGroup(members)
		id := b.c.addNode(Node{Kind: KindMarg, Token: "MARG", Parents: members, CurrentProbability: sum, Compressed: true, CompressedEnv: mergedEnv})
		next = append(next, id)
	}
	return next, nil
}

func (b *builder) groupByExprs(exprs []ast.Expr, frontier []NodeID) (map[string][]NodeID, []string, error) {
	groups := map[string][]NodeID{}
	var order []string
	for _, p := range frontier {
		env := b.c.ChainEnv(p)
		var sb strings.Builder
		for i, e := range exprs {
			v, err := evaluator.Eval(e, env)
			if err != nil {
				return nil, nil, err
			}
			if i > 0 {
				sb.WriteByte('\x1f')
			}
			sb.WriteString(valueKey(v.Expectation))
		}
		key := sb.String()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], p)
	}
	return groups, order, nil
}

// mergeGroup computes a compressed node's summed chain probability and
// merged chain environment (first-seen-wins, members visited in order)
// for a group of frontier nodes collapsed by marginalize/eliminate_variable.
func (b *builder) mergeGroup(members []NodeID) (float64, map[string]*variable.Variable) {
	sum := 0.0
	merged := map[string]*variable.Variable{}
	for _, m := range members {
		sum += b.c.ChainProbability(m)
		for k, v := range b.c.ChainEnv(m) {
			if _, exists := merged[k]; !exists {
				merged[k] = v
			}
		}
	}
	return sum, merged
}

func (b *builder) runEliminate(s *ast.EliminateVariable, frontier []NodeID) ([]NodeID, error) {
	excluded := map[string]bool{}
	for _, n := range s.Names {
		excluded[n] = true
	}
	groups := map[string][]NodeID{}
	var order []string
	for _, p := range frontier {
		env := b.c.ChainEnv(p)
		key := eliminateKey(env, excluded)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], p)
	}
	var next []NodeID
	for _, key := range order {
		members := groups[key]
		sum, merged := b.mergeGroup(members)
		for _, name := range s.Names {
			delete(merged, name)
		}
		id := b.c.addNode(Node{Kind: KindElim, Token: "ELIM", Parents: members, CurrentProbability: sum, Compressed: true, CompressedEnv: merged})
		next = append(next, id)
	}
	return next, nil
}

func eliminateKey(env map[string]*variable.Variable, excluded map[string]bool) string {
	names := make([]string, 0, len(env))
	for k := range env {
		if !excluded[k] {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, n := range names {
		sb.WriteString(n)
		sb.WriteByte('=')
		sb.WriteString(valueKey(env[n].Expectation))
		sb.WriteByte('\x1f')
	}
	return sb.String()
}

func (b *builder) runPrint(s *ast.Print, frontier []NodeID) ([]NodeID, error) {
	for _, p := range frontier {
		env := b.c.ChainEnv(p)
		v, err := evaluator.Eval(s.Expr, env)
		if err != nil {
			return nil, fmt.Errorf("circuit: evaluating print argument: %w", err)
		}
		// NAME: value (p=PROB), one short summary line per frontier node.
		fmt.Fprintf(b.out, "%s: %s (p=%.4f)\n", v.Name, valueString(v.Expectation), v.Probability)
	}
	return frontier, nil
}

func valueString(v variable.Value) string {
	if v.IsString() {
		return v.String()
	}
	return strconv.FormatFloat(v.Number(), 'g', -1, 64)
}

func (b *builder) runShowCircuit(frontier []NodeID) ([]NodeID, error) {
	fmt.Fprintln(b.out, b.c.ToDOT())
	return frontier, nil
}
