package ast_test

import (
	"strings"
	"testing"

	"github.com/Neburalis/physlablang/pkg/ast"
	"github.com/Neburalis/physlablang/pkg/varlist"
)

func TestRecountElementsRestoresInvariant(t *testing.T) {
	left := ast.NewNumber(1)
	right := ast.NewNumber(2)
	root := ast.NewOperator(ast.ADD, nil, nil)
	root.SetChildren(left, right)

	ast.RecountElements(root)

	if root.Elements != 2 {
		t.Fatalf("root.Elements = %d, want 2", root.Elements)
	}
	if left.Parent != root || right.Parent != root {
		t.Fatal("RecountElements did not reassert parent pointers")
	}
}

func TestRecountElementsDeepTree(t *testing.T) {
	// ((1 + 2) * 3)
	sum := ast.NewOperator(ast.ADD, ast.NewNumber(1), ast.NewNumber(2))
	root := ast.NewOperator(ast.MUL, sum, ast.NewNumber(3))

	ast.RecountElements(root)

	if root.Elements != 4 { // sum(2) + 1 for sum itself, + 1 for the "3" leaf
		t.Fatalf("root.Elements = %d, want 4", root.Elements)
	}
	if sum.Parent != root {
		t.Fatal("nested subtree's parent pointer not reasserted")
	}
}

func TestSerializeDeserializeRoundTripsShape(t *testing.T) {
	symbols := varlist.New()
	xIdx := symbols.Add("x")

	// VAR_DECLARATION(LITERAL "x") ; ASSIGNMENT(IDENTIFIER x, NUMBER 1)
	decl := ast.NewKeyword(ast.VAR_DECLARATION, ast.NewLiteral(xIdx), nil)
	assign := ast.NewOperator(ast.ASSIGNMENT, ast.NewIdentifier(xIdx), ast.NewNumber(1))
	root := ast.NewOperator(ast.CONNECTOR, decl, assign)
	ast.RecountElements(root)

	text := ast.Serialize(root, symbols)
	if !strings.Contains(text, `LITERAL`) || !strings.Contains(text, `"x"`) {
		t.Fatalf("serialized output missing LITERAL text: %s", text)
	}

	got, newSymbols, err := ast.Deserialize([]byte(text))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}

	if got.Kind != ast.OperatorNode || got.Operator != ast.CONNECTOR {
		t.Fatalf("root kind/operator = %v/%v, want Operator/CONNECTOR", got.Kind, got.Operator)
	}
	if got.Left == nil || got.Left.Kind != ast.KeywordNode || got.Left.Keyword != ast.VAR_DECLARATION {
		t.Fatal("left child is not the VAR_DECLARATION node")
	}
	if got.Right == nil || got.Right.Kind != ast.OperatorNode || got.Right.Operator != ast.ASSIGNMENT {
		t.Fatal("right child is not the ASSIGNMENT node")
	}

	assignIdentifier := got.Right.Left
	if assignIdentifier == nil || assignIdentifier.Kind != ast.IdentifierNode {
		t.Fatal("assignment lhs did not round-trip as an Identifier node")
	}
	name, ok := newSymbols.Get(assignIdentifier.Symbol)
	if !ok || name != "x" {
		t.Fatalf("identifier resolved to %q, %v, want \"x\", true", name, ok)
	}
}

func TestDeserializeNil(t *testing.T) {
	node, symbols, err := ast.Deserialize([]byte("nil\n"))
	if err != nil {
		t.Fatalf("Deserialize(nil) failed: %v", err)
	}
	if node != nil {
		t.Fatal("Deserialize(\"nil\") should yield a nil root")
	}
	if symbols.Size() != 0 {
		t.Fatalf("symbols.Size() = %d, want 0", symbols.Size())
	}
}

func TestDeserializeMalformedInput(t *testing.T) {
	if _, _, err := ast.Deserialize([]byte("not-an-sexpr garbage")); err == nil {
		t.Fatal("expected an error deserializing malformed input")
	}
}
