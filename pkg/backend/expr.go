package backend

import (
	"fmt"

	"github.com/Neburalis/physlablang/pkg/ast"
	"github.com/Neburalis/physlablang/pkg/diagnostic"
)

// binaryOpcodes are the operators with a direct VM instruction, reusing
// Operator.String() verbatim as the opcode text (ADD, SUB, MUL, DIV, MOD).
var binaryOpcodes = map[ast.Operator]bool{
	ast.ADD: true, ast.SUB: true, ast.MUL: true, ast.DIV: true, ast.MOD: true,
}

// unaryOpcodes are the builtins with a direct VM instruction.
var unaryOpcodes = map[ast.Operator]bool{
	ast.SQRT: true, ast.SIN: true, ast.COS: true,
}

// relOpcodes maps a comparison operator to the VM's matching conditional jump.
var relOpcodes = map[ast.Operator]string{
	ast.EQ: "JE", ast.NEQ: "JNE", ast.BELOW: "JB", ast.ABOVE: "JA",
	ast.BELOW_EQ: "JBE", ast.ABOVE_EQ: "JAE",
}

func isBoolOperator(op ast.Operator) bool {
	if _, ok := relOpcodes[op]; ok {
		return true
	}
	return op == ast.AND || op == ast.OR || op == ast.NOT
}

// emitExpr lowers an expression so that it leaves exactly one value on the
// VM stack, per the "Expression emission" rules of SPEC_FULL.md §4.6.
func (cg *codeGen) emitExpr(n *ast.Node) error {
	switch n.Kind {
	case ast.NumberNode:
		cg.emit(fmt.Sprintf("PUSH %.15g", n.Number))
		return nil

	case ast.IdentifierNode:
		reg, ok := cg.cur.resolve(cg.name(n))
		if !ok {
			return &diagnostic.UnknownNameError{Name: cg.name(n)}
		}
		cg.emit("PUSHR " + string(reg))
		return nil

	case ast.LiteralNode:
		// A string literal reached expression position: not representable on
		// the VM's numeric stack, reported the same way an unbound name is.
		return &diagnostic.UnknownNameError{Name: cg.name(n)}

	case ast.KeywordNode:
		if n.Keyword == ast.FUNC_CALL {
			return cg.emitCall(n)
		}
		return &diagnostic.UnsupportedOpError{Operator: n.Keyword.String()}

	case ast.OperatorNode:
		return cg.emitOperatorExpr(n)
	}

	return &diagnostic.UnsupportedOpError{Operator: n.Kind.String()}
}

func (cg *codeGen) emitOperatorExpr(n *ast.Node) error {
	switch {
	case binaryOpcodes[n.Operator]:
		if err := cg.emitExpr(n.Left); err != nil {
			return err
		}
		if err := cg.emitExpr(n.Right); err != nil {
			return err
		}
		cg.emit(n.Operator.String())
		return nil

	case unaryOpcodes[n.Operator]:
		if err := cg.emitExpr(n.Left); err != nil {
			return err
		}
		cg.emit(n.Operator.String())
		return nil

	case n.Operator == ast.CONNECTOR:
		// Only reachable from a malformed AST; tolerated rather than rejected.
		if err := cg.emitExpr(n.Left); err != nil {
			return err
		}
		return cg.emitExpr(n.Right)

	case n.Operator == ast.ASSIGNMENT:
		name := cg.name(n.Left)
		if err := cg.emitExpr(n.Right); err != nil {
			return err
		}
		reg, ok := cg.cur.resolve(name)
		if !ok {
			return &diagnostic.UnknownNameError{Name: name}
		}
		cg.emit("POPR " + string(reg))
		cg.emit("PUSHR " + string(reg)) // expression form keeps the value live
		return nil

	case isBoolOperator(n.Operator):
		return cg.materializeBool(n)

	case n.Operator == ast.POW || n.Operator == ast.LN || n.Operator == ast.TAN ||
		n.Operator == ast.CTG || n.Operator == ast.ASIN || n.Operator == ast.ACOS ||
		n.Operator == ast.ATAN || n.Operator == ast.ACTG:
		return &diagnostic.UnsupportedOpError{Operator: n.Operator.String()}
	}

	return &diagnostic.UnsupportedOpError{Operator: n.Operator.String()}
}

// materializeBool turns a comparison/logical expression into a numeric 0/1
// value by running it through emitConditional against a fresh pair of labels.
func (cg *codeGen) materializeBool(n *ast.Node) error {
	id := cg.nextTemp()
	trueLbl := fmt.Sprintf("tmp_%d_true", id)
	falseLbl := fmt.Sprintf("tmp_%d_false", id)
	endLbl := fmt.Sprintf("tmp_%d_end", id)

	if err := cg.emitConditional(n, trueLbl, falseLbl); err != nil {
		return err
	}
	cg.label(trueLbl)
	cg.emit("PUSH 1")
	cg.emit("JMP :" + endLbl)
	cg.label(falseLbl)
	cg.emit("PUSH 0")
	cg.label(endLbl)
	return nil
}

// emitConditional lowers n as a branch to trueLbl or falseLbl, per the
// "Conditional emission" rules of SPEC_FULL.md §4.6.
func (cg *codeGen) emitConditional(n *ast.Node, trueLbl, falseLbl string) error {
	if n.Kind == ast.OperatorNode {
		switch n.Operator {
		case ast.AND:
			mid := fmt.Sprintf("tmp_%d_mid", cg.nextTemp())
			if err := cg.emitConditional(n.Left, mid, falseLbl); err != nil {
				return err
			}
			cg.label(mid)
			return cg.emitConditional(n.Right, trueLbl, falseLbl)

		case ast.OR:
			mid := fmt.Sprintf("tmp_%d_mid", cg.nextTemp())
			if err := cg.emitConditional(n.Left, trueLbl, mid); err != nil {
				return err
			}
			cg.label(mid)
			return cg.emitConditional(n.Right, trueLbl, falseLbl)

		case ast.NOT:
			return cg.emitConditional(n.Left, falseLbl, trueLbl)
		}

		if jcode, ok := relOpcodes[n.Operator]; ok {
			if err := cg.emitExpr(n.Left); err != nil {
				return err
			}
			if err := cg.emitExpr(n.Right); err != nil {
				return err
			}
			cg.emit(jcode + " :" + trueLbl)
			cg.emit("JMP :" + falseLbl)
			return nil
		}
	}

	// Any other expression: non-zero is truthy.
	if err := cg.emitExpr(n); err != nil {
		return err
	}
	cg.emit("PUSH 0")
	cg.emit("JNE :" + trueLbl)
	cg.emit("JMP :" + falseLbl)
	return nil
}
