package backend

import (
	"strings"
	"testing"

	"github.com/Neburalis/physlablang/pkg/lexer"
	"github.com/Neburalis/physlablang/pkg/parser"
	"github.com/Neburalis/physlablang/pkg/reverse"
)

// wrapProgram frames a theoretical-section snippet and a body snippet with
// the minimal scaffolding every program requires.
func wrapProgram(theoretical, body string) string {
	return "ЛАБОРАТОРНАЯ РАБОТА\n" +
		"АННОТАЦИЯ\nКОНЕЦ АННОТАЦИИ\n" +
		"ТЕОРЕТИЧЕСКИЕ СВЕДЕНИЯ\n" + theoretical + "\nКОНЕЦ ТЕОРИИ\n" +
		"ХОД РАБОТЫ\n" + body + "\nКОНЕЦ РАБОТЫ\n" +
		"ОБСУЖДЕНИЕ РЕЗУЛЬТАТОВ\nКОНЕЦ РЕЗУЛЬТАТОВ\n" +
		"ВЫВОДЫ\nКОНЕЦ ВЫВОДОВ\n"
}

func compile(t *testing.T, theoretical, body string) []string {
	t.Helper()
	src := wrapProgram(theoretical, body)
	tokens, arena, symbols, err := lexer.Lex([]byte(src), "t.physlab")
	if err != nil {
		t.Fatalf("Lex(%q) failed: %v", src, err)
	}
	root, err := parser.Parse(tokens, arena, "t.physlab")
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	asm, err := Generate(root, symbols)
	if err != nil {
		t.Fatalf("Generate(%q) failed: %v", src, err)
	}
	return asm
}

// assertContainsInOrder checks that each of want appears in asm, in order
// (not necessarily contiguous), matching how SPEC_FULL.md §8 phrases its
// end-to-end expectations ("Expected .asm contains ...").
func assertContainsInOrder(t *testing.T, asm []string, want ...string) {
	t.Helper()
	pos := 0
	for _, w := range want {
		found := -1
		for i := pos; i < len(asm); i++ {
			if asm[i] == w {
				found = i
				break
			}
		}
		if found == -1 {
			t.Fatalf("asm %v does not contain %q at or after position %d (looking for sequence %v)", asm, w, pos, want)
		}
		pos = found + 1
	}
}

// TestEmptyBody covers scenario 1.
func TestEmptyBody(t *testing.T) {
	asm := compile(t, "", "ВЕЛИЧИНА x = 1")
	want := []string{"PUSH 1", "POPR RAX", "HLT"}
	if len(asm) != len(want) {
		t.Fatalf("asm = %v, want exactly %v", asm, want)
	}
	assertContainsInOrder(t, asm, want...)
}

// TestIfElse covers scenario 2.
func TestIfElse(t *testing.T) {
	asm := compile(t, "", "ВЕЛИЧИНА x = 3; ЕСЛИ x > 2 ТО ПОКАЗАТЬ x ИНАЧЕ ПОКАЗАТЬ 0")
	assertContainsInOrder(t, asm,
		"PUSHR RAX", "PUSH 2", "JA :if_1_then", "JMP :if_1",
		":if_1_then", "PUSHR RAX", "OUT", "JMP :if_1_end",
		":if_1", "PUSH 0", "OUT", ":if_1_end", "HLT")
}

// TestPreTestLoop covers scenario 3.
func TestPreTestLoop(t *testing.T) {
	asm := compile(t, "", "ВЕЛИЧИНА i = 0; ПОКА i < 3 ПОВТОРЯЕМ i = i + 1 СТОП")
	assertContainsInOrder(t, asm, ":while_1", "JB :while_1_body")
	assertContainsInOrder(t, asm, ":while_1_body", "JMP :while_1")
	assertContainsInOrder(t, asm, ":while_1_end")
}

// TestPostTestLoop covers scenario 4: the conditional jump must land after
// the body, not before it.
func TestPostTestLoop(t *testing.T) {
	asm := compile(t, "", "ВЕЛИЧИНА i = 0 ПОВТОРЯЕМ i = i + 1 ПОКА i < 3 СТОП")
	bodyIdx := indexOf(asm, ":do-while_1")
	condIdx := indexOf(asm, "JB :do-while_1")
	endIdx := indexOf(asm, ":do-while_1_end")
	if bodyIdx == -1 || condIdx == -1 || endIdx == -1 {
		t.Fatalf("asm = %v, missing one of the do-while_1 labels/jump", asm)
	}
	if !(bodyIdx < condIdx && condIdx < endIdx) {
		t.Fatalf("asm = %v, want body label, then conditional jump, then end label in that order", asm)
	}
}

func indexOf(asm []string, prefix string) int {
	for i, line := range asm {
		if line == prefix || strings.HasPrefix(line, prefix+" ") {
			return i
		}
	}
	return -1
}

// TestUserFunctionCall covers scenario 5.
func TestUserFunctionCall(t *testing.T) {
	asm := compile(t,
		"ФОРМУЛА f(a, b) ВОЗВРАТИТЬ a + b КОНЕЦ ФОРМУЛЫ",
		"ПОКАЗАТЬ f ПРИМЕНЯЕМ 2, 3")

	want := []string{
		"PUSH 3", "PUSH 2", "CALL :f", "OUT", "HLT",
		":f", "POPR RAX", "POPR RBX", "PUSHR RAX", "PUSHR RBX", "ADD", "RET",
	}
	if len(asm) != len(want) {
		t.Fatalf("asm = %v, want exactly %v", asm, want)
	}
	for i := range want {
		if asm[i] != want[i] {
			t.Fatalf("asm[%d] = %q, want %q (full asm: %v)", i, asm[i], want[i], asm)
		}
	}
}

func TestTooManyLocalsFails(t *testing.T) {
	var b strings.Builder
	names := []string{"a", "b", "c", "d", "e", "f2", "g", "h", "i"}
	for _, n := range names {
		b.WriteString("ВЕЛИЧИНА " + n + " = 0 ")
	}
	if _, err := compileErr(t, "", b.String()); err == nil {
		t.Fatal("expected a TooManyLocals failure past 8 distinct names")
	}
}

func compileErr(t *testing.T, theoretical, body string) ([]string, error) {
	t.Helper()
	src := wrapProgram(theoretical, body)
	tokens, arena, symbols, err := lexer.Lex([]byte(src), "t.physlab")
	if err != nil {
		return nil, err
	}
	root, err := parser.Parse(tokens, arena, "t.physlab")
	if err != nil {
		return nil, err
	}
	return Generate(root, symbols)
}

func TestUnboundNameFails(t *testing.T) {
	if _, err := compileErr(t, "", "ПОКАЗАТЬ y"); err == nil {
		t.Fatal("expected an UnknownName failure for an undeclared identifier")
	}
}

func TestUnsupportedOperatorFails(t *testing.T) {
	if _, err := compileErr(t, "", "ВЕЛИЧИНА x = 2 ^ 3"); err == nil {
		t.Fatal("expected an UnsupportedOp failure: POW has no VM opcode")
	}
}

// assertReverseRoundTripsThroughBackend covers scenario 6: running
// frontend->reverse emitter->frontend on one of scenarios 2-5's bodies must
// reach the same codegen output as the first pass, not just a structurally
// equivalent tree — the strongest observable form of "same AST" available
// from this package, since Generate's local-slot numbering depends only on
// each name's first-seen order, not the varlist index the reverse round trip
// necessarily renumbers.
func assertReverseRoundTripsThroughBackend(t *testing.T, theoretical, body string) {
	t.Helper()
	src := wrapProgram(theoretical, body)

	tokens, arena, symbols, err := lexer.Lex([]byte(src), "t.physlab")
	if err != nil {
		t.Fatalf("Lex(%q) failed: %v", src, err)
	}
	root, err := parser.Parse(tokens, arena, "t.physlab")
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	first, err := Generate(root, symbols)
	if err != nil {
		t.Fatalf("Generate (first pass) failed: %v", err)
	}

	emitted, err := reverse.Emit(root, symbols)
	if err != nil {
		t.Fatalf("reverse.Emit failed: %v", err)
	}

	tokens2, arena2, symbols2, err := lexer.Lex([]byte(emitted), "t.physlab")
	if err != nil {
		t.Fatalf("Lex(emitted) failed: %v\nemitted:\n%s", err, emitted)
	}
	root2, err := parser.Parse(tokens2, arena2, "t.physlab")
	if err != nil {
		t.Fatalf("Parse(emitted) failed: %v\nemitted:\n%s", err, emitted)
	}
	second, err := Generate(root2, symbols2)
	if err != nil {
		t.Fatalf("Generate (second pass) failed: %v\nemitted:\n%s", err, emitted)
	}

	if len(first) != len(second) {
		t.Fatalf("instruction count changed: %v\nvs\n%v\nemitted:\n%s", first, second, emitted)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("asm[%d] = %q, want %q\nfirst:  %v\nsecond: %v\nemitted:\n%s",
				i, second[i], first[i], first, second, emitted)
		}
	}
}

func TestReverseRoundTripIfElse(t *testing.T) {
	assertReverseRoundTripsThroughBackend(t, "", "ВЕЛИЧИНА x = 3; ЕСЛИ x > 2 ТО ПОКАЗАТЬ x ИНАЧЕ ПОКАЗАТЬ 0")
}

func TestReverseRoundTripPreTestLoop(t *testing.T) {
	assertReverseRoundTripsThroughBackend(t, "", "ВЕЛИЧИНА i = 0; ПОКА i < 3 ПОВТОРЯЕМ i = i + 1 СТОП")
}

func TestReverseRoundTripPostTestLoop(t *testing.T) {
	assertReverseRoundTripsThroughBackend(t, "", "ВЕЛИЧИНА i = 0 ПОВТОРЯЕМ i = i + 1 ПОКА i < 3 СТОП")
}

func TestReverseRoundTripUserFunctionCall(t *testing.T) {
	assertReverseRoundTripsThroughBackend(t,
		"ФОРМУЛА f(a, b) ВОЗВРАТИТЬ a + b КОНЕЦ ФОРМУЛЫ",
		"ПОКАЗАТЬ f ПРИМЕНЯЕМ 2, 3")
}
