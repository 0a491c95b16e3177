package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Neburalis/physlablang/pkg/varlist"
)

// Serialize renders root as the prefix S-expression described in SPEC_FULL.md §4.5:
//
//	node := 'nil' | '(' head left right ')'
//
// symbols resolves Literal node indices to their interned text for the quoted
// form written alongside a LITERAL head. Identifier heads carry only the index
// (no text, matching the reference implementation's on-disk format); their
// name is recoverable on reload only if the same index also appears at least
// once as a Literal head elsewhere in the tree (true of every well-formed
// program this compiler produces: declarations always write a Literal first).
func Serialize(root *Node, symbols *varlist.VarList) string {
	var b strings.Builder
	writeNode(&b, root, symbols)
	b.WriteByte('\n')
	return b.String()
}

func writeNode(b *strings.Builder, n *Node, symbols *varlist.VarList) {
	if n == nil {
		b.WriteString("nil")
		return
	}

	b.WriteByte('(')
	writeHead(b, n, symbols)
	b.WriteByte(' ')
	writeNode(b, n.Left, symbols)
	b.WriteByte(' ')
	writeNode(b, n.Right, symbols)
	b.WriteByte(')')
}

func writeHead(b *strings.Builder, n *Node, symbols *varlist.VarList) {
	switch n.Kind {
	case NumberNode:
		fmt.Fprintf(b, "%g", n.Number)
	case IdentifierNode:
		fmt.Fprintf(b, "IDENTIFIER %d", n.Symbol)
	case LiteralNode:
		text, _ := symbols.Get(n.Symbol)
		fmt.Fprintf(b, "LITERAL %d %s", n.Symbol, strconv.Quote(text))
	case KeywordNode:
		b.WriteString(n.Keyword.String())
	case OperatorNode:
		b.WriteString(n.Operator.Symbol())
	case DelimiterNode:
		b.WriteString(n.Delimiter.String())
	default:
		b.WriteString("UNKNOWN")
	}
}
