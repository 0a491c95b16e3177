// Package dump renders a parsed AST as a GraphViz digraph and a minimal HTML
// page wrapping it, the external debugging collaborator named in SPEC_FULL.md
// §6/§6.1 and generalized from the teacher's ast.Dotstring/EXPORT_AST
// convention (pkg/jack/parsing.go) to walk *ast.Node instead of a goparsec
// Queryable.
package dump

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Neburalis/physlablang/pkg/ast"
	"github.com/Neburalis/physlablang/pkg/varlist"
)

var log = logrus.WithField("stage", "dump")

// nodeColor and nodeShape give the GraphViz fill color and node shape per
// Kind, matching the debug-dump's own (pastel, low-contrast) palette.
var nodeColor = map[ast.Kind]string{
	ast.NumberNode:     "#fff2cc",
	ast.OperatorNode:    "#cfe2ff",
	ast.IdentifierNode: "#d4f8d4",
	ast.LiteralNode:    "#d4f8d4",
	ast.KeywordNode:    "#ffd9b3",
	ast.DelimiterNode:  "#e0e0e0",
}

var nodeShape = map[ast.Kind]string{
	ast.NumberNode:     "box",
	ast.OperatorNode:    "ellipse",
	ast.IdentifierNode: "diamond",
	ast.LiteralNode:    "diamond",
	ast.KeywordNode:    "ellipse",
	ast.DelimiterNode:  "octagon",
}

func colorOf(n *ast.Node) string {
	if n == nil {
		return "#f2f2f2"
	}
	if c, ok := nodeColor[n.Kind]; ok {
		return c
	}
	return "#f2f2f2"
}

func shapeOf(n *ast.Node) string {
	if n == nil {
		return "hexagon"
	}
	if s, ok := nodeShape[n.Kind]; ok {
		return s
	}
	return "hexagon"
}

// nodeValue formats the one line of text shown inside a node's box: the
// resolved variable/literal name when symbols is non-nil and the index
// resolves, a plain id_N fallback otherwise, and the natural Go %v spelling
// for every other Kind.
func nodeValue(n *ast.Node, symbols *varlist.VarList) string {
	switch n.Kind {
	case ast.NumberNode:
		return fmt.Sprintf("%g", n.Number)
	case ast.IdentifierNode, ast.LiteralNode:
		if symbols != nil {
			if name, ok := symbols.Get(n.Symbol); ok {
				return name
			}
		}
		return fmt.Sprintf("id_%d", n.Symbol)
	case ast.KeywordNode:
		if n.IsIOKeyword() {
			return n.Operator.String()
		}
		return n.Keyword.String()
	case ast.OperatorNode:
		return n.Operator.String()
	case ast.DelimiterNode:
		return n.Delimiter.String()
	default:
		return "-"
	}
}

// Dot renders root as a GraphViz "digraph" source string. simple selects the
// compact per-node label (value/shape/color only); the non-simple form instead
// shows each node's kind, value and element count as a record-shaped box, mirroring
// the reference dumper's write_node_full/write_node_simple distinction.
func Dot(root *ast.Node, symbols *varlist.VarList, simple bool) string {
	log.WithField("simple", simple).Debug("dot dump started")

	var b strings.Builder
	b.WriteString("digraph EquationTree {\n")
	b.WriteString("\trankdir=TB;\n")
	b.WriteString("\tnode [fontname=\"Helvetica\", fontsize=10];\n")
	b.WriteString("\tedge [arrowsize=0.8];\n")
	b.WriteString("\tgraph [splines=true, concentrate=false];\n\n")

	if root == nil {
		b.WriteString("\t// empty tree\n\n\tlabel = \"empty tree\";\n}\n")
		log.Debug("dot dump finished: empty tree")
		return b.String()
	}

	ids := map[*ast.Node]int{}
	counter := 0
	if simple {
		writeNodeSimple(&b, root, symbols, ids, &counter)
	} else {
		writeNodeFull(&b, root, symbols, ids, &counter)
	}
	b.WriteString("}\n")

	log.WithField("nodes", counter).Debug("dot dump finished")
	return b.String()
}

func nodeID(n *ast.Node, ids map[*ast.Node]int, counter *int) int {
	if id, ok := ids[n]; ok {
		return id
	}
	id := *counter
	*counter++
	ids[n] = id
	return id
}

func writeNodeSimple(b *strings.Builder, n *ast.Node, symbols *varlist.VarList, ids map[*ast.Node]int, counter *int) int {
	myID := nodeID(n, ids, counter)
	fmt.Fprintf(b, "\tnode%d [label=\"%s\", shape=%s, style=filled, fillcolor=\"%s\"];\n",
		myID, nodeValue(n, symbols), shapeOf(n), colorOf(n))

	if n.Left != nil {
		leftID := writeNodeSimple(b, n.Left, symbols, ids, counter)
		fmt.Fprintf(b, "\tnode%d -> node%d [color=\"#0c0ccc\", label=\"L\", constraint=true];\n", myID, leftID)
	}
	if n.Right != nil {
		rightID := writeNodeSimple(b, n.Right, symbols, ids, counter)
		fmt.Fprintf(b, "\tnode%d -> node%d [color=\"#3dad3d\", label=\"R\", constraint=true];\n", myID, rightID)
	}
	return myID
}

func writeNodeFull(b *strings.Builder, n *ast.Node, symbols *varlist.VarList, ids map[*ast.Node]int, counter *int) int {
	myID := nodeID(n, ids, counter)
	fmt.Fprintf(b, "\tnode%d [label=\"{ kind=%s | value=%s | elements=%d }\", shape=record, style=filled, fillcolor=\"%s\"];\n",
		myID, n.Kind, nodeValue(n, symbols), n.Elements, colorOf(n))

	if n.Left != nil {
		leftID := writeNodeFull(b, n.Left, symbols, ids, counter)
		fmt.Fprintf(b, "\tnode%d -> node%d [color=\"#0c0ccc\", label=\"L\", constraint=true];\n", myID, leftID)
	}
	if n.Right != nil {
		rightID := writeNodeFull(b, n.Right, symbols, ids, counter)
		fmt.Fprintf(b, "\tnode%d -> node%d [color=\"#3dad3d\", label=\"R\", constraint=true];\n", myID, rightID)
	}
	return myID
}
