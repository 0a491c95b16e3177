// Package backend lowers a parsed AST to the target stack+register virtual
// machine's assembly dialect (SPEC_FULL.md §4.6): one flat, ordered line list,
// main body first, then HLT, then every user function in source order.
package backend

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Neburalis/physlablang/pkg/ast"
	"github.com/Neburalis/physlablang/pkg/diagnostic"
	"github.com/Neburalis/physlablang/pkg/varlist"
)

var log = logrus.WithField("stage", "backend")

type counters struct {
	ifN, whileN, doWhileN, tempN int
}

func (c *counters) nextIf() int      { c.ifN++; return c.ifN }
func (c *counters) nextWhile() int   { c.whileN++; return c.whileN }
func (c *counters) nextDoWhile() int { c.doWhileN++; return c.doWhileN }
func (c *counters) nextTemp() int    { c.tempN++; return c.tempN }

type codeGen struct {
	symbols *varlist.VarList
	out     []string
	cur     *bindings
	curFunc string // "" while emitting the main body
	counters
}

// Generate lowers root (the parser's output) to an ordered assembly listing.
func Generate(root *ast.Node, symbols *varlist.VarList) ([]string, error) {
	log.Debug("codegen started")
	cg := &codeGen{symbols: symbols, cur: newBindings()}

	functions, body := splitRoot(root)

	if _, err := cg.emitOperators(body); err != nil {
		return nil, err
	}
	cg.emit("HLT")

	for _, decl := range collectCommaChain(functions) {
		if err := cg.emitFunction(decl); err != nil {
			return nil, err
		}
	}

	log.WithField("lines", len(cg.out)).Debug("codegen finished")
	return cg.out, nil
}

// splitRoot implements the top-level emission rule of §4.6: the function list
// lives left of a root CONNECTOR, the body right of it (or the whole root, if
// it is not itself a CONNECTOR — no functions were declared).
func splitRoot(root *ast.Node) (functions, body *ast.Node) {
	if root != nil && root.Kind == ast.OperatorNode && root.Operator == ast.CONNECTOR {
		if isFunctionList(root.Left) {
			return root.Left, root.Right
		}
	}
	return nil, root
}

// isFunctionList reports whether n looks like the theoretical section's
// comma-chain of function declarations (LITERAL heads), as opposed to an
// ordinary statement that merely happens to be the left child of the root
// CONNECTOR produced by joinConnector(experimental, results).
func isFunctionList(n *ast.Node) bool {
	if n == nil {
		return false
	}
	if n.Kind == ast.DelimiterNode && n.Delimiter == ast.COMA {
		return true
	}
	return n.Kind == ast.LiteralNode
}

// collectCommaChain flattens a COMA-joined chain (function declarations,
// parameters, call arguments) into source order. A nil root yields nil; a
// single un-chained node yields a one-element slice.
func collectCommaChain(n *ast.Node) []*ast.Node {
	if n == nil {
		return nil
	}
	if n.Kind == ast.DelimiterNode && n.Delimiter == ast.COMA {
		return append(collectCommaChain(n.Left), collectCommaChain(n.Right)...)
	}
	return []*ast.Node{n}
}

func (cg *codeGen) emit(line string) { cg.out = append(cg.out, line) }
func (cg *codeGen) label(name string) { cg.emit(":" + name) }

func (cg *codeGen) name(n *ast.Node) string {
	text, _ := cg.symbols.Get(n.Symbol)
	return text
}

// emitFunction lowers one FORMULA declaration: prologue (label, POPR per
// parameter), body, and an implicit RET if the body did not already end in one.
func (cg *codeGen) emitFunction(decl *ast.Node) error {
	fn := cg.name(decl)
	cg.cur = newBindings()
	cg.curFunc = fn

	cg.label(fn)
	for _, param := range collectCommaChain(decl.Left) {
		reg, err := cg.cur.bind(cg.name(param), fn)
		if err != nil {
			return err
		}
		cg.emit("POPR " + string(reg))
	}

	returned, err := cg.emitOperators(decl.Right)
	if err != nil {
		return err
	}
	if !returned {
		cg.emit("RET")
	}
	return nil
}

// emitOperators walks a CONNECTOR-joined statement chain (or a single bare
// statement) left to right, reporting whether the very last statement
// emitted was itself a RETURN (so the caller can skip an implicit epilogue).
func (cg *codeGen) emitOperators(n *ast.Node) (bool, error) {
	if n == nil {
		return false, nil
	}
	if n.Kind == ast.OperatorNode && n.Operator == ast.CONNECTOR {
		if _, err := cg.emitOperators(n.Left); err != nil {
			return false, err
		}
		return cg.emitOperators(n.Right)
	}
	return cg.emitStatement(n)
}

// emitStatement lowers one operator production, per the "Statement emission"
// rules of SPEC_FULL.md §4.6.
func (cg *codeGen) emitStatement(n *ast.Node) (bool, error) {
	if n.Kind == ast.KeywordNode && !n.IsIOKeyword() {
		switch n.Keyword {
		case ast.VAR_DECLARATION:
			return false, cg.emitVarDecl(n)
		case ast.IF:
			return false, cg.emitIf(n)
		case ast.WHILE:
			return false, cg.emitPreWhile(n)
		case ast.DO_WHILE:
			return false, cg.emitDoWhile(n)
		case ast.RETURN:
			if err := cg.emitExpr(n.Left); err != nil {
				return false, err
			}
			cg.emit("RET")
			return true, nil
		case ast.FUNC_CALL:
			return false, cg.emitCallStatement(n)
		}
		return false, &diagnostic.UnsupportedOpError{Operator: n.Keyword.String()}
	}

	if n.Kind == ast.OperatorNode {
		switch n.Operator {
		case ast.ASSIGNMENT:
			return false, cg.emitAssignStatement(n)
		case ast.OUT:
			if err := cg.emitExpr(n.Left); err != nil {
				return false, err
			}
			cg.emit("OUT")
			return false, nil
		case ast.IN:
			cg.emit("IN")
			target := cg.name(n.Left)
			reg, err := cg.cur.bind(target, cg.curFunc)
			if err != nil {
				return false, err
			}
			cg.emit("POPR " + string(reg))
			return false, nil
		}
	}

	// A bare expression used as a statement (e.g. a lone identifier): evaluate
	// it for any side effect and discard the one value every expression leaves.
	if err := cg.emitExpr(n); err != nil {
		return false, err
	}
	reg, err := cg.cur.temp(cg.curFunc)
	if err != nil {
		return false, err
	}
	cg.emit("POPR " + string(reg))
	return false, nil
}

func (cg *codeGen) emitVarDecl(n *ast.Node) error {
	name := cg.name(n.Left)
	reg, err := cg.cur.bind(name, cg.curFunc)
	if err != nil {
		return err
	}
	if n.Right == nil {
		return nil
	}
	if err := cg.emitExpr(n.Right); err != nil {
		return err
	}
	cg.emit("POPR " + string(reg))
	return nil
}

func (cg *codeGen) emitAssignStatement(n *ast.Node) error {
	name := cg.name(n.Left)
	if err := cg.emitExpr(n.Right); err != nil {
		return err
	}
	reg, ok := cg.cur.resolve(name)
	if !ok {
		return &diagnostic.UnknownNameError{Name: name}
	}
	cg.emit("POPR " + string(reg))
	return nil
}

// emitIf lowers the IF keyword node (left=condition, right=THEN token whose
// own left/right are the then/else branches). Label names match §8 scenario 2
// exactly: "if_N_then", "if_N" (the else target), "if_N_end".
func (cg *codeGen) emitIf(n *ast.Node) error {
	id := cg.nextIf()
	thenLbl := fmt.Sprintf("if_%d_then", id)
	elseLbl := fmt.Sprintf("if_%d", id)
	endLbl := fmt.Sprintf("if_%d_end", id)

	thenTok := n.Right
	hasElse := thenTok.Right != nil

	falseTarget := endLbl
	if hasElse {
		falseTarget = elseLbl
	}
	if err := cg.emitConditional(n.Left, thenLbl, falseTarget); err != nil {
		return err
	}

	cg.label(thenLbl)
	if _, err := cg.emitStatement(thenTok.Left); err != nil {
		return err
	}
	if hasElse {
		cg.emit("JMP :" + endLbl)
		cg.label(elseLbl)
		if _, err := cg.emitStatement(thenTok.Right); err != nil {
			return err
		}
	}
	cg.label(endLbl)
	return nil
}

// emitPreWhile lowers the pre-test loop (WHILE token: left=condition, right=body).
func (cg *codeGen) emitPreWhile(n *ast.Node) error {
	id := cg.nextWhile()
	startLbl := fmt.Sprintf("while_%d", id)
	bodyLbl := fmt.Sprintf("while_%d_body", id)
	endLbl := fmt.Sprintf("while_%d_end", id)

	cg.label(startLbl)
	if err := cg.emitConditional(n.Left, bodyLbl, endLbl); err != nil {
		return err
	}
	cg.label(bodyLbl)
	if _, err := cg.emitOperators(n.Right); err != nil {
		return err
	}
	cg.emit("JMP :" + startLbl)
	cg.label(endLbl)
	return nil
}

// emitDoWhile lowers the post-test loop (rewritten WHILE_CONDITION/DO_WHILE
// token: left=body, right=condition). The conditional jump sits after the body.
func (cg *codeGen) emitDoWhile(n *ast.Node) error {
	id := cg.nextDoWhile()
	bodyLbl := fmt.Sprintf("do-while_%d", id)
	endLbl := fmt.Sprintf("do-while_%d_end", id)

	cg.label(bodyLbl)
	if _, err := cg.emitOperators(n.Left); err != nil {
		return err
	}
	if err := cg.emitConditional(n.Right, bodyLbl, endLbl); err != nil {
		return err
	}
	cg.label(endLbl)
	return nil
}
