package reverse

import (
	"testing"

	"github.com/Neburalis/physlablang/pkg/ast"
	"github.com/Neburalis/physlablang/pkg/lexer"
	"github.com/Neburalis/physlablang/pkg/parser"
	"github.com/Neburalis/physlablang/pkg/varlist"
)

func wrapProgram(theoretical, body string) string {
	return "ЛАБОРАТОРНАЯ РАБОТА\n" +
		"АННОТАЦИЯ\nКОНЕЦ АННОТАЦИИ\n" +
		"ТЕОРЕТИЧЕСКИЕ СВЕДЕНИЯ\n" + theoretical + "\nКОНЕЦ ТЕОРИИ\n" +
		"ХОД РАБОТЫ\n" + body + "\nКОНЕЦ РАБОТЫ\n" +
		"ОБСУЖДЕНИЕ РЕЗУЛЬТАТОВ\nКОНЕЦ РЕЗУЛЬТАТОВ\n" +
		"ВЫВОДЫ\nКОНЕЦ ВЫВОДОВ\n"
}

func parseSrc(t *testing.T, src string) (*ast.Node, *varlist.VarList) {
	t.Helper()
	tokens, arena, symbols, err := lexer.Lex([]byte(src), "t.physlab")
	if err != nil {
		t.Fatalf("Lex(%q) failed: %v", src, err)
	}
	root, err := parser.Parse(tokens, arena, "t.physlab")
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return root, symbols
}

// sameShape compares two trees built from independent symbol tables: Kind,
// Keyword, Operator, Delimiter and Number must match exactly; Identifier and
// Literal nodes are compared by their resolved text, not by index.
func sameShape(t *testing.T, a *ast.Node, aSym *varlist.VarList, b *ast.Node, bSym *varlist.VarList) bool {
	t.Helper()
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		t.Logf("kind mismatch: %v vs %v", a.Kind, b.Kind)
		return false
	}
	switch a.Kind {
	case ast.NumberNode:
		if a.Number != b.Number {
			t.Logf("number mismatch: %v vs %v", a.Number, b.Number)
			return false
		}
	case ast.IdentifierNode, ast.LiteralNode:
		an, _ := aSym.Get(a.Symbol)
		bn, _ := bSym.Get(b.Symbol)
		if an != bn {
			t.Logf("name mismatch: %q vs %q", an, bn)
			return false
		}
	case ast.KeywordNode:
		if a.Keyword != b.Keyword || a.Operator != b.Operator {
			t.Logf("keyword mismatch: %v/%v vs %v/%v", a.Keyword, a.Operator, b.Keyword, b.Operator)
			return false
		}
	case ast.OperatorNode:
		if a.Operator != b.Operator {
			t.Logf("operator mismatch: %v vs %v", a.Operator, b.Operator)
			return false
		}
	case ast.DelimiterNode:
		if a.Delimiter != b.Delimiter {
			t.Logf("delimiter mismatch: %v vs %v", a.Delimiter, b.Delimiter)
			return false
		}
	}
	return sameShape(t, a.Left, aSym, b.Left, bSym) && sameShape(t, a.Right, aSym, b.Right, bSym)
}

func assertRoundTrips(t *testing.T, theoretical, body string) {
	t.Helper()
	src := wrapProgram(theoretical, body)
	root, symbols := parseSrc(t, src)

	emitted, err := Emit(root, symbols)
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	root2, symbols2 := parseSrc(t, emitted)
	if !sameShape(t, root, symbols, root2, symbols2) {
		t.Fatalf("round trip changed tree shape; emitted text:\n%s", emitted)
	}
}

func TestRoundTripIfElse(t *testing.T) {
	assertRoundTrips(t, "", "ВЕЛИЧИНА x = 3; ЕСЛИ x > 2 ТО ПОКАЗАТЬ x ИНАЧЕ ПОКАЗАТЬ 0")
}

func TestRoundTripPreTestLoop(t *testing.T) {
	assertRoundTrips(t, "", "ВЕЛИЧИНА i = 0; ПОКА i < 3 ПОВТОРЯЕМ i = i + 1 СТОП")
}

func TestRoundTripPostTestLoop(t *testing.T) {
	assertRoundTrips(t, "", "ВЕЛИЧИНА i = 0 ПОВТОРЯЕМ i = i + 1 ПОКА i < 3 СТОП")
}

func TestRoundTripUserFunctionCall(t *testing.T) {
	assertRoundTrips(t,
		"ФОРМУЛА f(a, b) ВОЗВРАТИТЬ a + b КОНЕЦ ФОРМУЛЫ",
		"ПОКАЗАТЬ f ПРИМЕНЯЕМ 2, 3")
}

func TestRoundTripBuiltinAndQuotedLiteral(t *testing.T) {
	assertRoundTrips(t, "", `ВЕЛИЧИНА x = SQRT(4); ПОКАЗАТЬ "unused"`)
}

func TestDeclaredVsQuotedPrinting(t *testing.T) {
	root, symbols := parseSrc(t, wrapProgram("", `ВЕЛИЧИНА x = 1; ПОКАЗАТЬ "quoted text"`))
	emitted, err := Emit(root, symbols)
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if !containsAll(emitted, "ВЕЛИЧИНА x", `ПОКАЗАТЬ "quoted text"`) {
		t.Fatalf("expected bare x but quoted literal text, got:\n%s", emitted)
	}
}

func containsAll(s string, want ...string) bool {
	for _, w := range want {
		if !contains(s, w) {
			return false
		}
	}
	return true
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
