// Package reverse lowers a parsed AST back to surface-syntax source text
// (SPEC_FULL.md §4.7): the mirror image of pkg/parser, used by the
// reversed-frontend tool to recover a readable program from a serialized
// .ast file.
package reverse

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Neburalis/physlablang/pkg/ast"
	"github.com/Neburalis/physlablang/pkg/diagnostic"
	"github.com/Neburalis/physlablang/pkg/varlist"
)

var log = logrus.WithField("stage", "reverse")

// builtinNames gives the symbolic call syntax for unary builtins, matching
// the spellings a fresh lexer pass must be able to recognize back as calls.
var builtinNames = map[ast.Operator]string{
	ast.SIN: "sin", ast.COS: "cos", ast.TAN: "tg", ast.CTG: "ctg",
	ast.ASIN: "arcsin", ast.ACOS: "arccos", ast.ATAN: "arctan", ast.ACTG: "arcctg",
	ast.SQRT: "sqrt", ast.LN: "ln",
}

// precedence mirrors the parser's own climbing-precedence chain (§4.4):
// OR=1, AND=2, comparisons=3, +/-=4, */%=5, ^=6, everything else (unary
// builtins, calls, atoms) =7.
func precedence(n *ast.Node) int {
	if n == nil {
		return 0
	}
	if n.Kind == ast.KeywordNode && n.Keyword == ast.FUNC_CALL {
		return 7
	}
	if n.Kind != ast.OperatorNode {
		return 7
	}
	switch n.Operator {
	case ast.OR:
		return 1
	case ast.AND:
		return 2
	case ast.EQ, ast.NEQ, ast.BELOW, ast.ABOVE, ast.BELOW_EQ, ast.ABOVE_EQ:
		return 3
	case ast.ADD, ast.SUB:
		return 4
	case ast.MUL, ast.DIV, ast.MOD:
		return 5
	case ast.POW:
		return 6
	default:
		return 7
	}
}

type emitter struct {
	symbols *varlist.VarList
	known   declaredSet
	b       strings.Builder
}

// Emit lowers root to surface-syntax source text. symbols must be the table
// root's Identifier/Literal nodes reference (the one pkg/ast's deserializer
// rebuilds when loading an .ast file from disk).
func Emit(root *ast.Node, symbols *varlist.VarList) (string, error) {
	log.Debug("reverse emission started")

	known := declaredSet{}
	collectDeclared(root, known)
	e := &emitter{symbols: symbols, known: known}

	functions, expOps, resOps := splitRoot(root)

	e.b.WriteString("ЛАБОРАТОРНАЯ РАБОТА Восстановленная\n\n")
	e.b.WriteString("АННОТАЦИЯ\nЦЕЛЬ: восстановлено из AST\nКОНЕЦ АННОТАЦИИ\n\n")

	e.b.WriteString("ТЕОРЕТИЧЕСКИЕ СВЕДЕНИЯ\n")
	if functions != nil {
		if err := e.functionList(functions); err != nil {
			return "", err
		}
	}
	e.b.WriteString("\nКОНЕЦ ТЕОРИИ\n\n")

	e.b.WriteString("ХОД РАБОТЫ\n")
	if expOps != nil {
		if err := e.connector(expOps, 0); err != nil {
			return "", err
		}
	}
	e.b.WriteString("\nКОНЕЦ РАБОТЫ\n\n")

	// Unlike the original emitter, this section is always printed, empty or
	// not: §4.4's grammar requires the RESULTS keyword pair unconditionally
	// (parseResults calls expectKeyword, not an optional match), so a
	// reverse→lexer→parser round trip would fail to reparse without it.
	e.b.WriteString("ОБСУЖДЕНИЕ РЕЗУЛЬТАТОВ\n")
	if resOps != nil {
		if err := e.connector(resOps, 0); err != nil {
			return "", err
		}
	}
	e.b.WriteString("\nКОНЕЦ РЕЗУЛЬТАТОВ\n\n")

	e.b.WriteString("ВЫВОДЫ\nВосстановлено автоматически\nКОНЕЦ ВЫВОДОВ\n")

	log.WithField("bytes", e.b.Len()).Debug("reverse emission finished")
	return e.b.String(), nil
}

// splitRoot mirrors pkg/backend's splitRoot/isFunctionList, then further
// splits the body into its experimental and results halves the same way
// extract_exp/extract_res do: a CONNECTOR body yields its left child as the
// experimental part and its right child as the results part. The tree does not
// record where the experimental section ended, so when the source had an empty
// results section the last experimental statement is printed under the results
// heading; reparsing that text yields the same tree.
func splitRoot(root *ast.Node) (functions, expOps, resOps *ast.Node) {
	rest := root
	if root != nil && root.Kind == ast.OperatorNode && root.Operator == ast.CONNECTOR && isFunctionList(root.Left) {
		functions = root.Left
		rest = root.Right
	}
	if rest != nil && rest.Kind == ast.OperatorNode && rest.Operator == ast.CONNECTOR {
		return functions, rest.Left, rest.Right
	}
	return functions, rest, nil
}

func isFunctionList(n *ast.Node) bool {
	if n == nil {
		return false
	}
	if n.Kind == ast.DelimiterNode && n.Delimiter == ast.COMA {
		return true
	}
	return n.Kind == ast.LiteralNode
}

func collectCommaChain(n *ast.Node) []*ast.Node {
	if n == nil {
		return nil
	}
	if n.Kind == ast.DelimiterNode && n.Delimiter == ast.COMA {
		return append(collectCommaChain(n.Left), collectCommaChain(n.Right)...)
	}
	return []*ast.Node{n}
}

func (e *emitter) literal(symbol int) (string, error) {
	name, ok := e.symbols.Get(symbol)
	if !ok {
		return "", &diagnostic.MalformedASTError{Cause: fmt.Sprintf("symbol index %d out of range", symbol)}
	}
	if e.known[symbol] {
		return name, nil
	}
	return `"` + name + `"`, nil
}

func (e *emitter) nameOf(n *ast.Node) (string, error) {
	if n == nil || (n.Kind != ast.LiteralNode && n.Kind != ast.IdentifierNode) {
		return "", &diagnostic.MalformedASTError{Cause: "expected a Literal or Identifier name"}
	}
	return e.literal(n.Symbol)
}

// expr lowers n as an expression, wrapping it in parentheses only when its
// own precedence is strictly lower than the context it sits in.
func (e *emitter) expr(n *ast.Node, parentPrec int) (string, error) {
	if n == nil {
		return "", &diagnostic.MalformedASTError{Cause: "nil expression node"}
	}

	myPrec := precedence(n)
	inner, err := e.exprInner(n, myPrec)
	if err != nil {
		return "", err
	}
	if myPrec < parentPrec {
		return "(" + inner + ")", nil
	}
	return inner, nil
}

func (e *emitter) exprInner(n *ast.Node, myPrec int) (string, error) {
	switch n.Kind {
	case ast.NumberNode:
		return fmt.Sprintf("%g", n.Number), nil

	case ast.IdentifierNode, ast.LiteralNode:
		return e.literal(n.Symbol)

	case ast.KeywordNode:
		if n.Keyword != ast.FUNC_CALL {
			return "", &diagnostic.MalformedASTError{Cause: "keyword " + n.Keyword.String() + " in expression position"}
		}
		name, err := e.nameOf(n.Left)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		b.WriteString(name)
		b.WriteString(" ПРИМЕНЯЕМ ")
		args := collectCommaChain(n.Right)
		for i, arg := range args {
			if i > 0 {
				b.WriteString(", ")
			}
			s, err := e.expr(arg, 7)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
		return b.String(), nil

	case ast.OperatorNode:
		return e.operatorExpr(n, myPrec)
	}
	return "", &diagnostic.MalformedASTError{Cause: "unrepresentable expression kind " + n.Kind.String()}
}

func (e *emitter) operatorExpr(n *ast.Node, myPrec int) (string, error) {
	switch n.Operator {
	case ast.ADD, ast.SUB, ast.MUL, ast.DIV, ast.MOD:
		left, err := e.expr(n.Left, myPrec)
		if err != nil {
			return "", err
		}
		right, err := e.expr(n.Right, myPrec)
		if err != nil {
			return "", err
		}
		return left + " " + n.Operator.Symbol() + " " + right, nil

	case ast.POW:
		left, err := e.expr(n.Left, myPrec)
		if err != nil {
			return "", err
		}
		right, err := e.expr(n.Right, myPrec-1)
		if err != nil {
			return "", err
		}
		return left + " ^ " + right, nil

	case ast.EQ, ast.NEQ, ast.BELOW, ast.ABOVE, ast.BELOW_EQ, ast.ABOVE_EQ:
		left, err := e.expr(n.Left, myPrec)
		if err != nil {
			return "", err
		}
		right, err := e.expr(n.Right, myPrec+1)
		if err != nil {
			return "", err
		}
		return left + " " + n.Operator.Symbol() + " " + right, nil

	case ast.AND, ast.OR:
		word := " ИЛИ "
		if n.Operator == ast.AND {
			word = " И "
		}
		left, err := e.expr(n.Left, myPrec)
		if err != nil {
			return "", err
		}
		right, err := e.expr(n.Right, myPrec+1)
		if err != nil {
			return "", err
		}
		return left + word + right, nil

	case ast.NOT:
		operand := n.Left
		if operand == nil {
			operand = n.Right
		}
		inner, err := e.expr(operand, myPrec)
		if err != nil {
			return "", err
		}
		return "НЕ " + inner, nil

	case ast.IN, ast.OUT:
		word := "ПОКАЗАТЬ "
		if n.Operator == ast.IN {
			word = "ИЗМЕРИТЬ "
		}
		inner, err := e.expr(n.Left, 7)
		if err != nil {
			return "", err
		}
		return word + inner, nil

	case ast.LN, ast.SIN, ast.COS, ast.TAN, ast.CTG, ast.ASIN, ast.ACOS, ast.ATAN, ast.ACTG, ast.SQRT:
		name := builtinNames[n.Operator]
		operand := n.Left
		if operand == nil {
			operand = n.Right
		}
		inner, err := e.expr(operand, 7)
		if err != nil {
			return "", err
		}
		return name + "(" + inner + ")", nil
	}

	return "", &diagnostic.MalformedASTError{Cause: "operator " + n.Operator.String() + " has no surface syntax"}
}
