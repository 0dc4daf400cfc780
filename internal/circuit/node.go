// Package circuit implements the symbolic execution engine of spec.md
// sections 3.2 and 4.3: the arena-based DAG ("circuit") that materializes
// every branch a program can take, and the frontier-transforming builder
// that constructs it from a parsed ast.Program.
package circuit

import (
	"github.com/noderod/guillemot/internal/pplang/ast"
	"github.com/noderod/guillemot/internal/variable"
)

// Kind tags a Node's reserved role, matching the GROUND | OBSERVATION |
// REJECTION | MARG | ELIM | DEADEND tokens of spec.md section 3.2, plus
// Variable for ordinary variable-bearing nodes.
type Kind int

const (
	KindGround Kind = iota
	KindVariable
	KindObservation
	KindRejection
	KindMarg
	KindElim
	KindDeadend
)

// NodeID indexes into Circuit.Nodes. The circuit is an arena (spec.md
// section 9, "Arena over pointer graph") so nodes refer to each other by
// integer id rather than by pointer, avoiding reference cycles and
// letting the whole DAG be freed in one step.
type NodeID int

// Node is one circuit DAG node (spec.md section 3.2).
type Node struct {
	ID       NodeID
	Kind     Kind
	Token    string
	Parents  []NodeID
	Children []NodeID

	Variable           *variable.Variable
	CurrentProbability float64

	// ObservationExpr holds the predicate AST for OBSERVATION/REJECTION
	// nodes (spec.md's "observation_tree").
	ObservationExpr ast.Expr

	Compressed    bool
	CompressedEnv map[string]*variable.Variable
	Deadend       bool
}
