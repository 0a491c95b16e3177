package reverse

import "github.com/Neburalis/physlablang/pkg/ast"

// declaredSet marks which varlist indices are "declared" names — anything a
// reader would recognize as a variable/function introduced by the program
// itself, as opposed to a quoted string literal that merely happens to share
// the Literal node shape.
type declaredSet map[int]bool

// collectDeclared walks the whole tree once, marking every symbol a
// VAR_DECLARATION or ASSIGNMENT introduces, plus every Literal reachable as a
// function name or parameter (a Literal with a child is a function declaration
// head; a Literal whose parent is a COMA chain is a parameter or sibling
// function name).
func collectDeclared(n *ast.Node, known declaredSet) {
	if n == nil {
		return
	}

	switch {
	case n.Kind == ast.KeywordNode && n.Keyword == ast.VAR_DECLARATION:
		markIfNameable(n.Left, known)
	case n.Kind == ast.OperatorNode && n.Operator == ast.ASSIGNMENT:
		markIfNameable(n.Left, known)
	case n.Kind == ast.LiteralNode:
		if n.Parent != nil && n.Parent.Kind == ast.DelimiterNode && n.Parent.Delimiter == ast.COMA {
			known[n.Symbol] = true
		}
		if n.Left != nil || n.Right != nil {
			known[n.Symbol] = true
			markCommaChain(n.Left, known)
		}
	}

	collectDeclared(n.Left, known)
	collectDeclared(n.Right, known)
}

func markIfNameable(n *ast.Node, known declaredSet) {
	if n != nil && (n.Kind == ast.LiteralNode || n.Kind == ast.IdentifierNode) {
		known[n.Symbol] = true
	}
}

// markCommaChain descends a COMA chain (a function's parameter list), marking
// every leaf name it reaches.
func markCommaChain(n *ast.Node, known declaredSet) {
	if n == nil {
		return
	}
	if n.Kind == ast.DelimiterNode && n.Delimiter == ast.COMA {
		markCommaChain(n.Left, known)
		markCommaChain(n.Right, known)
		return
	}
	markIfNameable(n, known)
}
