// Package inference implements the two inference algorithms of spec.md
// section 4.4: exact enumeration over the full circuit, and weighted
// rejection sampling from ground to leaf. Both are exposed behind a
// common Strategy interface, mirroring the teacher's pluggable
// LabelingStrategy/SearchStrategy split, scaled down to the two
// algorithms this language actually has.
package inference

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/noderod/guillemot/internal/circuit"
	"github.com/noderod/guillemot/internal/evaluator"
	"github.com/noderod/guillemot/internal/pplang/ast"
)

// Strategy computes P(return expression) over a built circuit.
type Strategy interface {
	// Run evaluates the probability that the program's return expression is
	// truthy, given the circuit's current frontier (leaves). ctx allows
	// cancellation of long-running sampling runs.
	Run(ctx context.Context, c *circuit.Circuit, ret ast.Expr) (float64, error)

	// Name returns a short identifier for this strategy ("enumeration",
	// "rejection").
	Name() string

	// Description returns a one-line human-readable explanation.
	Description() string
}

// leafProbabilities evaluates the return expression at every non-deadend
// leaf, pairing each truthy/falsy result with that leaf's chain
// probability.
func leafProbabilities(c *circuit.Circuit, ret ast.Expr) ([]float64, []bool, error) {
	probs := make([]float64, 0, len(c.Leaves))
	truths := make([]bool, 0, len(c.Leaves))
	for _, leaf := range c.Leaves {
		env := evaluator.Env(c.ChainEnv(leaf))
		truthy, err := evaluator.EvalBool(ret, env)
		if err != nil {
			return nil, nil, fmt.Errorf("inference: evaluating return expression: %w", err)
		}
		probs = append(probs, c.ChainProbability(leaf))
		truths = append(truths, truthy)
	}
	return probs, truths, nil
}

// Enumeration implements exact inference (spec.md section 4.4.1): the sum
// of chain probabilities over every leaf where the return expression is
// truthy, divided by the sum over every leaf.
type Enumeration struct{}

// NewEnumeration constructs the exact-enumeration strategy.
func NewEnumeration() *Enumeration { return &Enumeration{} }

func (*Enumeration) Name() string { return "enumeration" }

func (*Enumeration) Description() string {
	return "exact inference by summing chain probabilities over every circuit leaf"
}

func (e *Enumeration) Run(ctx context.Context, c *circuit.Circuit, ret ast.Expr) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	probs, truths, err := leafProbabilities(c, ret)
	if err != nil {
		return 0, err
	}
	var total, hit float64
	for i, p := range probs {
		total += p
		if truths[i] {
			hit += p
		}
	}
	if total == 0 {
		// Both numerator and denominator are zero: the posterior is
		// undefined (spec.md section 4.4, "emit the literal 0").
		return math.NaN(), nil
	}
	return hit / total, nil
}

// defaultSamples is N in spec.md section 4.4.2's rejection-sampling
// default sample count.
const defaultSamples = 5000

// Rejection implements approximate inference via weighted random walks
// from the ground node to a leaf (spec.md section 4.4.2): at each step
// a child is chosen with probability proportional to its
// CurrentProbability; a walk landing on a deadend leaf is discarded and
// does not count toward either the numerator or the denominator.
type Rejection struct {
	Samples int
	Rng     *rand.Rand
}

// NewRejection constructs the rejection-sampling strategy. n<=0 falls
// back to defaultSamples.
func NewRejection(n int, rng *rand.Rand) *Rejection {
	if n <= 0 {
		n = defaultSamples
	}
	return &Rejection{Samples: n, Rng: rng}
}

func (*Rejection) Name() string { return "rejection" }

func (r *Rejection) Description() string {
	return fmt.Sprintf("approximate inference via %d weighted random walks from ground to leaf", r.Samples)
}

func (r *Rejection) Run(ctx context.Context, c *circuit.Circuit, ret ast.Expr) (float64, error) {
	var accepted, hit int
	for i := 0; i < r.Samples; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		leaf, deadend := r.walk(c)
		if deadend {
			continue
		}
		accepted++
		env := evaluator.Env(c.ChainEnv(leaf))
		truthy, err := evaluator.EvalBool(ret, env)
		if err != nil {
			return 0, fmt.Errorf("inference: evaluating return expression: %w", err)
		}
		if truthy {
			hit++
		}
	}
	if accepted == 0 {
		return math.NaN(), nil
	}
	return float64(hit) / float64(accepted), nil
}

// walk performs one weighted random descent from the ground node,
// always choosing among a node's children with probability proportional
// to each child's own CurrentProbability, stopping at a leaf (a node
// with no children). It reports whether the leaf reached is a deadend.
func (r *Rejection) walk(c *circuit.Circuit) (circuit.NodeID, bool) {
	cur := c.Ground
	for {
		children := c.Children(cur)
		if len(children) == 0 {
			return cur, c.IsDeadend(cur)
		}
		cur = r.chooseChild(c, children)
	}
}

func (r *Rejection) chooseChild(c *circuit.Circuit, children []circuit.NodeID) circuit.NodeID {
	total := 0.0
	for _, ch := range children {
		total += c.Probability(ch)
	}
	if total <= 0 {
		return children[0]
	}
	x := r.Rng.Float64() * total
	acc := 0.0
	for _, ch := range children {
		acc += c.Probability(ch)
		if x <= acc {
			return ch
		}
	}
	return children[len(children)-1]
}
