package lexer

import (
	"testing"

	"github.com/Neburalis/physlablang/pkg/ast"
)

func lex(t *testing.T, src string) []*ast.Token {
	t.Helper()
	tokens, _, _, err := Lex([]byte(src), "t.physlab")
	if err != nil {
		t.Fatalf("Lex(%q) failed: %v", src, err)
	}
	return tokens
}

func TestLexKeywordPhraseLongestMatch(t *testing.T) {
	tokens := lex(t, "ЛАБОРАТОРНАЯ РАБОТА")
	if len(tokens) != 1 {
		t.Fatalf("got %d tokens, want 1", len(tokens))
	}
	if tokens[0].Kind != ast.KeywordNode || tokens[0].Keyword != ast.LAB {
		t.Fatalf("token = %+v, want KeywordNode/LAB", tokens[0])
	}
}

func TestLexIOKeywordsCarryOperatorInKeywordSlot(t *testing.T) {
	test := func(name, src string, want ast.Operator) {
		t.Run(name, func(t *testing.T) {
			tokens := lex(t, src)
			if len(tokens) != 1 {
				t.Fatalf("got %d tokens, want 1", len(tokens))
			}
			tok := tokens[0]
			if tok.Kind != ast.KeywordNode {
				t.Fatalf("token kind = %v, want KeywordNode (the slot is shared, see IsIOKeyword)", tok.Kind)
			}
			if !tok.IsIOKeyword() || tok.Operator != want {
				t.Fatalf("token = %+v, want IsIOKeyword()==true with Operator %v", tok, want)
			}
		})
	}

	test("ПОКАЗАТЬ", "ПОКАЗАТЬ", ast.OUT)
	test("ИЗМЕРИТЬ", "ИЗМЕРИТЬ", ast.IN)
	test("ВЫВЕСТИ", "ВЫВЕСТИ", ast.OUT)
}

func TestLexWordBoundaryBlocksOnlyASCIINeighbours(t *testing.T) {
	// "ANDs" must not match AND: the trailing ASCII 's' extends the word, so
	// the whole span lexes as one ASCII identifier instead.
	tokens := lex(t, "ANDs")
	if len(tokens) != 1 || tokens[0].Kind != ast.IdentifierNode || tokens[0].Span != "ANDs" {
		t.Fatalf("tokens = %+v, want a single Identifier \"ANDs\"", tokens)
	}
}

func TestLexWordBoundaryDoesNotBlockOnNonASCIINeighbour(t *testing.T) {
	// "ЕСЛИБЫ" is a quirk of the reference lexer carried over faithfully:
	// word_boundary only inspects ASCII neighbour bytes, so the Cyrillic "БЫ"
	// immediately after "ЕСЛИ" does not block the keyword match. The
	// remaining "БЫ" falls through to the free-form literal fallback.
	tokens := lex(t, "ЕСЛИБЫ")
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(tokens))
	}
	if tokens[0].Kind != ast.KeywordNode || tokens[0].Keyword != ast.IF {
		t.Fatalf("first token = %+v, want KeywordNode/IF", tokens[0])
	}
	if tokens[1].Kind != ast.LiteralNode || tokens[1].Span != "БЫ" {
		t.Fatalf("second token = %+v, want free-form Literal \"БЫ\"", tokens[1])
	}
}

func TestLexCasefoldAppliesToASCIIOnly(t *testing.T) {
	tokens := lex(t, "and")
	if len(tokens) != 1 || tokens[0].Kind != ast.OperatorNode || tokens[0].Operator != ast.AND {
		t.Fatalf("tokens = %+v, want single OperatorNode/AND", tokens)
	}
}

func TestLexCyrillicCasefoldIsANoOp(t *testing.T) {
	// copy_upper in the reference lexer only uppercases ASCII bytes, so a
	// lowercase Cyrillic spelling never matches its uppercase table entry and
	// falls through to the free-form literal fallback instead.
	tokens := lex(t, "если")
	if len(tokens) != 1 || tokens[0].Kind != ast.LiteralNode || tokens[0].Span != "если" {
		t.Fatalf("tokens = %+v, want a single free-form Literal \"если\" (no keyword match)", tokens)
	}
}

func TestLexPowCaseSensitiveNoWordBoundary(t *testing.T) {
	lower := lex(t, "pow")
	if len(lower) != 1 || lower[0].Kind != ast.IdentifierNode {
		t.Fatalf("lowercase pow = %+v, want a single ASCII Identifier", lower)
	}

	tokens := lex(t, "POWER")
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2 (POW, ER)", len(tokens))
	}
	if tokens[0].Kind != ast.OperatorNode || tokens[0].Operator != ast.POW {
		t.Fatalf("first token = %+v, want OperatorNode/POW", tokens[0])
	}
	if tokens[1].Kind != ast.IdentifierNode || tokens[1].Span != "ER" {
		t.Fatalf("second token = %+v, want ASCII Identifier \"ER\"", tokens[1])
	}
}

func TestLexCaretOperator(t *testing.T) {
	tokens := lex(t, "x ^ 2")
	if len(tokens) != 3 {
		t.Fatalf("got %d tokens, want 3", len(tokens))
	}
	if tokens[1].Kind != ast.OperatorNode || tokens[1].Operator != ast.POW {
		t.Fatalf("middle token = %+v, want OperatorNode/POW", tokens[1])
	}
}

func TestLexNumberHasNoExponentForm(t *testing.T) {
	tokens := lex(t, "1 3.14")
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(tokens))
	}
	want := []float64{1, 3.14}
	for i, w := range want {
		if tokens[i].Kind != ast.NumberNode || tokens[i].Number != w {
			t.Fatalf("token %d = %+v, want NumberNode %v", i, tokens[i], w)
		}
	}

	// "2e10" is not an exponent form here: a digit run, then a separate ASCII
	// identifier starting at 'e' (digits and letters never merge across the
	// number/identifier boundary).
	mixed := lex(t, "2e10")
	if len(mixed) != 2 {
		t.Fatalf("got %d tokens, want 2 (NUMBER 2, identifier \"e10\")", len(mixed))
	}
	if mixed[0].Kind != ast.NumberNode || mixed[0].Number != 2 {
		t.Fatalf("first token = %+v, want NumberNode 2", mixed[0])
	}
	if mixed[1].Kind != ast.IdentifierNode || mixed[1].Span != "e10" {
		t.Fatalf("second token = %+v, want ASCII Identifier \"e10\"", mixed[1])
	}
}

func TestLexStringLiteralEmitsThreeTokens(t *testing.T) {
	tokens, _, symbols, err := Lex([]byte(`"hello"`), "t.physlab")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("got %d tokens, want 3 (QUOTE, LITERAL, QUOTE)", len(tokens))
	}
	if tokens[0].Kind != ast.DelimiterNode || tokens[0].Delimiter != ast.QUOTE {
		t.Fatalf("first token = %+v, want opening QUOTE", tokens[0])
	}
	if tokens[2].Kind != ast.DelimiterNode || tokens[2].Delimiter != ast.QUOTE {
		t.Fatalf("third token = %+v, want closing QUOTE", tokens[2])
	}
	text, ok := symbols.Get(tokens[1].Symbol)
	if !ok || text != "hello" {
		t.Fatalf("resolved literal = %q, %v, want \"hello\", true", text, ok)
	}
}

func TestLexStringLiteralHasNoEscapeProcessing(t *testing.T) {
	tokens, _, symbols, err := Lex([]byte(`"a\nb"`), "t.physlab")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	text, _ := symbols.Get(tokens[1].Symbol)
	if text != `a\nb` {
		t.Fatalf("resolved literal = %q, want the raw four-byte sequence a\\nb (no escape processing)", text)
	}
}

func TestLexUnterminatedStringIsAnError(t *testing.T) {
	if _, _, _, err := Lex([]byte(`"no closing quote`), "t.physlab"); err == nil {
		t.Fatal("expected an unterminated-string error")
	}
	if _, _, _, err := Lex([]byte("\"broken\nline\""), "t.physlab"); err == nil {
		t.Fatal("expected an unterminated-string error when a newline appears before the closing quote")
	}
}

func TestLexIdentifierInternsOnce(t *testing.T) {
	tokens, _, symbols, err := Lex([]byte("x x x"), "t.physlab")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("got %d tokens, want 3", len(tokens))
	}
	for _, tok := range tokens {
		if tok.Kind != ast.IdentifierNode {
			t.Fatalf("token = %+v, want IdentifierNode", tok)
		}
	}
	if symbols.Size() != 1 {
		t.Fatalf("symbols.Size() = %d, want 1 (all three spellings intern to the same entry)", symbols.Size())
	}
	if tokens[0].Symbol != tokens[1].Symbol || tokens[1].Symbol != tokens[2].Symbol {
		t.Fatal("repeated identical words should resolve to the same symbol index")
	}
}

func TestLexSkipsLineComments(t *testing.T) {
	tokens := lex(t, "x // this is a comment\ny")
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2 (comment text must not be tokenized)", len(tokens))
	}
}

func TestLexTracksLineAndColumn(t *testing.T) {
	tokens := lex(t, "x\n  y")
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(tokens))
	}
	if tokens[0].Line != 1 || tokens[0].Column != 1 {
		t.Fatalf("first token position = %d:%d, want 1:1", tokens[0].Line, tokens[0].Column)
	}
	if tokens[1].Line != 2 || tokens[1].Column != 3 {
		t.Fatalf("second token position = %d:%d, want 2:3", tokens[1].Line, tokens[1].Column)
	}
}

func TestLexFreeLiteralStopsAtNewline(t *testing.T) {
	tokens := lex(t, "ЦЕЛЬ:исследовать эффект\nКОНЕЦ АННОТАЦИИ")
	if len(tokens) != 4 {
		t.Fatalf("got %d tokens, want 4 (GOAL_LITERAL keyword, COLON, literal, end keyword)", len(tokens))
	}
	if tokens[2].Kind != ast.LiteralNode || tokens[2].Span != "исследовать эффект" {
		t.Fatalf("third token = %+v, want free-form Literal spanning only the first line", tokens[2])
	}
	if tokens[3].Kind != ast.KeywordNode || tokens[3].Keyword != ast.END_ANNOTATION {
		t.Fatalf("fourth token = %+v, want KeywordNode/END_ANNOTATION", tokens[3])
	}
}
