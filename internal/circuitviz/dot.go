// Package circuitviz renders a circuit DAG as Graphviz DOT source, for
// show_circuit() and the CLI's optional --render-png output. It has no
// dependency on the circuit package itself — callers convert their own
// node representation into a []Node first — so that circuit can import
// circuitviz without creating an import cycle.
package circuitviz

import (
	"fmt"
	"os/exec"
	"strings"
)

// Node is a generic, renderer-facing view of one circuit DAG node.
type Node struct {
	ID        int
	Label     string
	ParentIDs []int
	Deadend   bool
}

// Render produces Graphviz DOT source for nodes, in the teacher's plain
// string-building style (no template engine).
func Render(nodes []Node) string {
	var sb strings.Builder
	sb.WriteString("digraph circuit {\n")
	sb.WriteString("  rankdir=TB;\n")
	for _, n := range nodes {
		shape := "box"
		style := "solid"
		if n.Deadend {
			style = "dashed"
		}
		fmt.Fprintf(&sb, "  n%d [label=%q shape=%s style=%s];\n", n.ID, n.Label, shape, style)
		for _, p := range n.ParentIDs {
			fmt.Fprintf(&sb, "  n%d -> n%d;\n", p, n.ID)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// RenderPNG shells out to the dot binary to rasterize src into outPath.
// Errors returned here always wrap the underlying *exec.Error or
// exit-status failure so the caller can report a useful message.
func RenderPNG(src string, outPath string) error {
	cmd := exec.Command("dot", "-Tpng", "-o", outPath)
	cmd.Stdin = strings.NewReader(src)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("circuitviz: dot -Tpng failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
