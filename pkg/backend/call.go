package backend

import (
	"fmt"

	"github.com/Neburalis/physlablang/pkg/ast"
	"github.com/Neburalis/physlablang/pkg/diagnostic"
)

// emitCallStatement lowers a function_call used directly as a statement. The
// two framebuffer intrinsics are already stack-neutral; an ordinary user call
// still pushes its return value (every RETURN pushes one), which a bare
// statement must discard to keep the "every statement leaves zero" invariant.
func (cg *codeGen) emitCallStatement(n *ast.Node) error {
	callee := cg.name(n.Left)
	switch callee {
	case "DRAW":
		return cg.emitDraw(n)
	case "SET_PIXEL":
		return cg.emitSetPixel(n)
	}

	if err := cg.emitCall(n); err != nil {
		return err
	}
	reg, err := cg.cur.temp(cg.curFunc)
	if err != nil {
		return err
	}
	cg.emit("POPR " + string(reg))
	return nil
}

// emitCall lowers a function_call in expression position: DRAW/SET_PIXEL
// never appear here (they produce no value), arguments are pushed in reverse
// surface order so the callee's sequential POPR prologue binds them in
// declared order, then CALL. The callee's own RETURN leaves the result on the
// stack, so nothing further is pushed here.
func (cg *codeGen) emitCall(n *ast.Node) error {
	callee := cg.name(n.Left)
	if callee == "DRAW" || callee == "SET_PIXEL" {
		return &diagnostic.BadBuiltinArgsError{Builtin: callee, Reason: "has no return value and cannot be used as an expression"}
	}

	args := collectCommaChain(n.Right)
	for i := len(args) - 1; i >= 0; i-- {
		if err := cg.emitExpr(args[i]); err != nil {
			return err
		}
	}
	cg.emit("CALL :" + callee)
	return nil
}

// emitDraw lowers `DRAW n`: a single numeric literal delay argument, emitted
// directly as the opcode's immediate operand (not evaluated as an expression).
func (cg *codeGen) emitDraw(n *ast.Node) error {
	args := collectCommaChain(n.Right)
	if len(args) != 1 || args[0].Kind != ast.NumberNode {
		return &diagnostic.BadBuiltinArgsError{Builtin: "DRAW", Reason: "expects exactly one numeric literal argument"}
	}
	cg.emit(fmt.Sprintf("DRAW %.0f", args[0].Number))
	return nil
}

// emitSetPixel lowers `SET_PIXEL(value, index)`: the index is resolved into a
// temp register first, then the value is pushed and popped into the memory
// cell that register addresses.
func (cg *codeGen) emitSetPixel(n *ast.Node) error {
	args := collectCommaChain(n.Right)
	if len(args) != 2 {
		return &diagnostic.BadBuiltinArgsError{Builtin: "SET_PIXEL", Reason: "expects exactly two arguments (value, index)"}
	}
	value, index := args[0], args[1]

	if err := cg.emitExpr(index); err != nil {
		return err
	}
	tmp, err := cg.cur.temp(cg.curFunc)
	if err != nil {
		return err
	}
	cg.emit("POPR " + string(tmp))

	if err := cg.emitExpr(value); err != nil {
		return err
	}
	cg.emit(fmt.Sprintf("POPM [%s]", tmp))
	return nil
}
