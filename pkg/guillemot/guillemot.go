// Package guillemot is the public entrypoint for embedding the
// interpreter: parse a program, build its circuit, and run one of the
// two inference strategies against it. cmd/guillemot is a thin CLI
// wrapper around this package.
package guillemot

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/exp/rand"

	"github.com/noderod/guillemot/internal/circuit"
	"github.com/noderod/guillemot/internal/config"
	"github.com/noderod/guillemot/internal/inference"
	"github.com/noderod/guillemot/internal/pplang/ast"
	"github.com/noderod/guillemot/internal/pplang/parser"
)

// Program is a parsed source file paired with its built circuit, ready
// for inference.
type Program struct {
	AST     *ast.Program
	Circuit *circuit.Circuit
}

// Build parses src and constructs its full circuit DAG. out receives
// print()/show_circuit() diagnostic output; rng drives every
// continuous-distribution discretisation and, later, rejection sampling.
func Build(src string, rng *rand.Rand, out io.Writer) (*Program, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("guillemot: parse: %w", err)
	}
	if prog.Return == nil {
		return nil, fmt.Errorf("guillemot: program has no return expression")
	}
	c, err := circuit.Build(prog, rng, out)
	if err != nil {
		return nil, fmt.Errorf("guillemot: build: %w", err)
	}
	return &Program{AST: prog, Circuit: c}, nil
}

// Infer runs the strategy named by method against p, returning the
// probability that p's return expression is truthy.
func Infer(ctx context.Context, p *Program, method config.Method, samples int, rng *rand.Rand) (float64, error) {
	strategy, err := strategyFor(method, samples, rng)
	if err != nil {
		return 0, err
	}
	return strategy.Run(ctx, p.Circuit, p.AST.Return)
}

func strategyFor(method config.Method, samples int, rng *rand.Rand) (inference.Strategy, error) {
	switch method {
	case config.MethodEnumerate:
		return inference.NewEnumeration(), nil
	case config.MethodRejection:
		return inference.NewRejection(samples, rng), nil
	default:
		return nil, fmt.Errorf("guillemot: unknown inference method %q", method)
	}
}

// NewRNG constructs the single seeded PRNG handle a Run threads through
// discretisation and sampling (spec.md section 5: explicit PRNG handle,
// never a package-global one).
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
