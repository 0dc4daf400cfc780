package circuit

import (
	"fmt"

	"github.com/noderod/guillemot/internal/circuitviz"
	"github.com/noderod/guillemot/internal/variable"
)

// Circuit is the full DAG built for one program: an arena of nodes plus
// the ground root and the final frontier (leaves).
type Circuit struct {
	Nodes  []Node
	Ground NodeID
	Leaves []NodeID
}

// New creates an empty Circuit with just the ground node (spec.md section
// 3.3: "the ground node is created exactly once per program").
func New() *Circuit {
	c := &Circuit{}
	c.Nodes = append(c.Nodes, Node{ID: 0, Kind: KindGround, Token: "GROUND"})
	c.Ground = 0
	return c
}

func (c *Circuit) node(id NodeID) *Node { return &c.Nodes[id] }

// Children returns the child node ids of id.
func (c *Circuit) Children(id NodeID) []NodeID { return c.node(id).Children }

// IsDeadend reports whether id is a DEADEND node.
func (c *Circuit) IsDeadend(id NodeID) bool { return c.node(id).Deadend }

// Probability returns id's own local CurrentProbability (not the full
// chain product — see ChainProbability for that).
func (c *Circuit) Probability(id NodeID) float64 { return c.node(id).CurrentProbability }

// addNode appends a new node with the given parents, linking it into
// each parent's Children list, and returns its id.
func (c *Circuit) addNode(n Node) NodeID {
	id := NodeID(len(c.Nodes))
	n.ID = id
	c.Nodes = append(c.Nodes, n)
	for _, p := range n.Parents {
		c.node(p).Children = append(c.node(p).Children, id)
	}
	return id
}

// ChainProbability computes the product of CurrentProbability from id up
// to (excluding) the ground, always following parents[0] (spec.md
// section 9: "always follow parents[0] for chain walks"). For a
// compressed node the walk stops at that node: its CurrentProbability is
// already the sum of its parents' chain probabilities (spec.md section
// 3.2).
func (c *Circuit) ChainProbability(id NodeID) float64 {
	prob := 1.0
	cur := id
	for cur != c.Ground {
		n := c.node(cur)
		prob *= n.CurrentProbability
		if n.Compressed {
			return prob
		}
		if len(n.Parents) == 0 {
			return prob
		}
		cur = n.Parents[0]
	}
	return prob
}

// ChainEnv builds the chain environment visible at id: walking toward the
// ground via parents[0], binding each distinct token the first time it
// is seen (spec.md section 4.3, "Chain environment semantics" — the
// leaf-most binding wins). Compressed nodes supply their whole
// CompressedEnv wholesale and stop the walk, since that env was built by
// merging the full chain envs of the group they summarize.
func (c *Circuit) ChainEnv(id NodeID) map[string]*variable.Variable {
	env := map[string]*variable.Variable{}
	cur := id
	for cur != c.Ground {
		n := c.node(cur)
		if n.Compressed {
			for k, v := range n.CompressedEnv {
				if _, exists := env[k]; !exists {
					env[k] = v
				}
			}
			return env
		}
		if n.Kind == KindVariable && n.Token != "" {
			if _, exists := env[n.Token]; !exists {
				env[n.Token] = n.Variable
			}
		}
		if len(n.Parents) == 0 {
			return env
		}
		cur = n.Parents[0]
	}
	return env
}

func nodeLabel(n *Node) string {
	switch n.Kind {
	case KindGround:
		return "GROUND"
	case KindVariable:
		return fmt.Sprintf("%s\\np=%.4f", n.Token, n.CurrentProbability)
	case KindObservation:
		return "OBSERVATION"
	case KindRejection:
		return "REJECTION"
	case KindMarg:
		return fmt.Sprintf("MARG\\np=%.4f", n.CurrentProbability)
	case KindElim:
		return fmt.Sprintf("ELIM\\np=%.4f", n.CurrentProbability)
	case KindDeadend:
		return "DEADEND"
	default:
		return n.Token
	}
}

// ToDOT renders the whole circuit as Graphviz DOT source via the
// circuitviz package.
func (c *Circuit) ToDOT() string {
	nodes := make([]circuitviz.Node, len(c.Nodes))
	for i := range c.Nodes {
		n := &c.Nodes[i]
		parents := make([]int, len(n.Parents))
		for j, p := range n.Parents {
			parents[j] = int(p)
		}
		nodes[i] = circuitviz.Node{ID: int(n.ID), Label: nodeLabel(n), ParentIDs: parents, Deadend: n.Deadend}
	}
	return circuitviz.Render(nodes)
}
