package reverse

import (
	"strings"

	"github.com/Neburalis/physlablang/pkg/ast"
	"github.com/Neburalis/physlablang/pkg/diagnostic"
)

func (e *emitter) writeIndent(indent int) {
	e.b.WriteString(strings.Repeat(" ", indent))
}

// connector walks a CONNECTOR-joined statement chain (or a single bare
// statement), printing one statement per line with no trailing newline after
// the last one — the caller supplies that, matching emit_connector.
func (e *emitter) connector(n *ast.Node, indent int) error {
	if n == nil {
		return nil
	}
	if n.Kind == ast.OperatorNode && n.Operator == ast.CONNECTOR {
		if err := e.connector(n.Left, indent); err != nil {
			return err
		}
		if n.Right != nil {
			e.b.WriteByte('\n')
		}
		return e.connector(n.Right, indent)
	}
	return e.statement(n, indent)
}

// statement lowers one operator production.
func (e *emitter) statement(n *ast.Node, indent int) error {
	if n == nil {
		return &diagnostic.MalformedASTError{Cause: "nil statement node"}
	}

	if n.Kind == ast.KeywordNode {
		switch n.Keyword {
		case ast.VAR_DECLARATION:
			return e.varDecl(n, indent)
		case ast.RETURN:
			e.writeIndent(indent)
			e.b.WriteString("ВОЗВРАТИТЬ ")
			s, err := e.expr(n.Left, 0)
			if err != nil {
				return err
			}
			e.b.WriteString(s)
			return nil
		case ast.IF:
			return e.ifStatement(n, indent)
		case ast.WHILE:
			return e.whileStatement(n, indent)
		case ast.DO_WHILE:
			return e.doWhileStatement(n, indent)
		case ast.FUNC_CALL:
			e.writeIndent(indent)
			s, err := e.expr(n, 0)
			if err != nil {
				return err
			}
			e.b.WriteString(s)
			return nil
		}
		return &diagnostic.MalformedASTError{Cause: "keyword " + n.Keyword.String() + " in statement position"}
	}

	if n.Kind == ast.OperatorNode {
		switch n.Operator {
		case ast.ASSIGNMENT:
			e.writeIndent(indent)
			lhs, err := e.expr(n.Left, 0)
			if err != nil {
				return err
			}
			rhs, err := e.expr(n.Right, 0)
			if err != nil {
				return err
			}
			e.b.WriteString(lhs)
			e.b.WriteString(" = ")
			e.b.WriteString(rhs)
			return nil
		case ast.OUT, ast.IN:
			e.writeIndent(indent)
			s, err := e.expr(n, 0)
			if err != nil {
				return err
			}
			e.b.WriteString(s)
			return nil
		}
	}

	return &diagnostic.MalformedASTError{Cause: "node kind " + n.Kind.String() + " cannot stand as a statement"}
}

func (e *emitter) varDecl(n *ast.Node, indent int) error {
	e.writeIndent(indent)
	e.b.WriteString("ВЕЛИЧИНА ")
	name, err := e.nameOf(n.Left)
	if err != nil {
		return err
	}
	e.b.WriteString(name)
	if n.Right != nil {
		s, err := e.expr(n.Right, 0)
		if err != nil {
			return err
		}
		e.b.WriteString(" = ")
		e.b.WriteString(s)
	}
	return nil
}

// ifStatement lowers the IF keyword node (left=condition, right=THEN token
// whose own left/right are the then/else branches, each exactly one
// statement — see pkg/parser's if-production rationale).
func (e *emitter) ifStatement(n *ast.Node, indent int) error {
	thenTok := n.Right
	if thenTok == nil {
		return &diagnostic.MalformedASTError{Cause: "IF node missing THEN child"}
	}

	e.writeIndent(indent)
	e.b.WriteString("ЕСЛИ ")
	cond, err := e.expr(n.Left, 0)
	if err != nil {
		return err
	}
	e.b.WriteString(cond)
	e.b.WriteString(" ТО\n")

	if err := e.statement(thenTok.Left, indent+4); err != nil {
		return err
	}

	if thenTok.Right != nil {
		e.b.WriteByte('\n')
		e.writeIndent(indent)
		e.b.WriteString("ИНАЧЕ\n")
		if err := e.statement(thenTok.Right, indent+4); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) whileStatement(n *ast.Node, indent int) error {
	e.writeIndent(indent)
	e.b.WriteString("ПОКА ")
	cond, err := e.expr(n.Left, 0)
	if err != nil {
		return err
	}
	e.b.WriteString(cond)
	e.b.WriteString(" ПОВТОРЯЕМ\n")

	if err := e.connector(n.Right, indent+4); err != nil {
		return err
	}
	e.b.WriteByte('\n')
	e.writeIndent(indent)
	e.b.WriteString("СТОП")
	return nil
}

func (e *emitter) doWhileStatement(n *ast.Node, indent int) error {
	e.writeIndent(indent)
	e.b.WriteString("ПОВТОРЯЕМ\n")

	if err := e.connector(n.Left, indent+4); err != nil {
		return err
	}
	e.b.WriteByte('\n')
	e.writeIndent(indent)
	e.b.WriteString("ПОКА ")
	cond, err := e.expr(n.Right, 0)
	if err != nil {
		return err
	}
	e.b.WriteString(cond)
	e.b.WriteString(" СТОП")
	return nil
}

// functionList lowers a COMA-chained (or single) set of FORMULA
// declarations, one newline between each.
func (e *emitter) functionList(n *ast.Node) error {
	decls := collectCommaChain(n)
	for i, decl := range decls {
		if i > 0 {
			e.b.WriteByte('\n')
		}
		if err := e.function(decl); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) function(decl *ast.Node) error {
	if decl.Kind != ast.LiteralNode {
		return &diagnostic.MalformedASTError{Cause: "function declaration head must be a Literal"}
	}

	e.b.WriteString("ФОРМУЛА ")
	name, err := e.literal(decl.Symbol)
	if err != nil {
		return err
	}
	e.b.WriteString(name)
	e.b.WriteString(" (")

	for i, param := range collectCommaChain(decl.Left) {
		if i > 0 {
			e.b.WriteString(", ")
		}
		pname, err := e.nameOf(param)
		if err != nil {
			return err
		}
		e.b.WriteString(pname)
	}
	e.b.WriteString(")\n")

	if err := e.connector(decl.Right, 4); err != nil {
		return err
	}
	e.b.WriteByte('\n')
	e.b.WriteString("КОНЕЦ ФОРМУЛЫ")
	return nil
}
