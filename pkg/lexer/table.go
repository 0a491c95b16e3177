package lexer

import "github.com/Neburalis/physlablang/pkg/ast"

// entryKind distinguishes which of fixedEntry's value fields is meaningful.
type entryKind int

const (
	kKeyword entryKind = iota
	kOperator
	kDelimiter
	// kKeywordIO marks the three entries (ПОКАЗАТЬ, ИЗМЕРИТЬ, ВЫВЕСТИ) that are
	// spelled as keywords but carry an OPERATOR value in the same slot, per
	// SPEC_FULL.md §4.3: the token they produce is tagged KeywordNode with its
	// Operator field set to IN or OUT, and its Keyword field left unused. The
	// parser's keyword_is_io check rewrites it into a true OperatorNode when it
	// materializes the I/O statement.
	kKeywordIO
)

// fixedEntry is one row of the longest-match fixed-token table, transcribed in
// priority order from the reference lexer (SPEC_FULL.md §4.3.1). casefold
// means the candidate bytes are uppercased ASCII-only (matching the reference
// copy_upper helper) before comparison: for an all-ASCII spelling this is a
// real case-insensitive match, but for a Cyrillic spelling it is a no-op, so
// casefold has no practical effect there and the source must spell the
// keyword in the same case as the table. wordBoundary rejects a match whose
// immediately preceding or following byte is an ASCII letter, digit or
// underscore; a non-ASCII neighbour never blocks the match, by design.
type fixedEntry struct {
	spelling     string
	kind         entryKind
	keyword      ast.Keyword
	operator     ast.Operator
	delimiter    ast.Delimiter
	casefold     bool
	wordBoundary bool
}

func (e fixedEntry) node() *ast.Node {
	switch e.kind {
	case kKeyword:
		return ast.NewKeyword(e.keyword, nil, nil)
	case kKeywordIO:
		return ast.NewIOKeyword(e.operator)
	case kOperator:
		return ast.NewOperator(e.operator, nil, nil)
	default:
		return ast.NewDelimiter(e.delimiter)
	}
}

// fixedTable is the longest-match-first priority-ordered table. Multi-word
// Cyrillic phrases are placed before any of their substrings so the
// longest-first scan in Lex never picks a shorter spelling by accident.
//
// Three entries recognized by the reference lexer (ВЫРАЗИМ/ПУСТЬ/БУДЕТ, all
// mapped to a LET_ASSIGNMENT keyword) are deliberately not carried into this
// table: no production in the grammar this was distilled from ever consumes a
// LET_ASSIGNMENT token, so it is dead even in the source this was translated
// from (see DESIGN.md).
var fixedTable = []fixedEntry{
	{spelling: "ТЕОРЕТИЧЕСКИЕ СВЕДЕНИЯ", kind: kKeyword, keyword: ast.THEORETICAL, casefold: true, wordBoundary: true},
	{spelling: "ОБСУЖДЕНИЕ РЕЗУЛЬТАТОВ", kind: kKeyword, keyword: ast.RESULTS, casefold: true, wordBoundary: true},
	{spelling: "ЛАБОРАТОРНАЯ РАБОТА", kind: kKeyword, keyword: ast.LAB, casefold: true, wordBoundary: true},
	{spelling: "КОНЕЦ РЕЗУЛЬТАТОВ", kind: kKeyword, keyword: ast.END_RESULTS, casefold: true, wordBoundary: true},
	{spelling: "РАССЧИТЫВАЕТСЯ ИЗ", kind: kKeyword, keyword: ast.FUNC_CALL, casefold: true, wordBoundary: true},
	{spelling: "КОНЕЦ АННОТАЦИИ", kind: kKeyword, keyword: ast.END_ANNOTATION, casefold: true, wordBoundary: true},
	{spelling: "КОНЕЦ ВЫВОДОВ", kind: kKeyword, keyword: ast.END_CONCLUSION, casefold: true, wordBoundary: true},
	{spelling: "КОНЕЦ ФОРМУЛЫ", kind: kKeyword, keyword: ast.END_FORMULA, casefold: true, wordBoundary: true},
	{spelling: "КОНЕЦ ТЕОРИИ", kind: kKeyword, keyword: ast.END_THEORETICAL, casefold: true, wordBoundary: true},
	{spelling: "КОНЕЦ РАБОТЫ", kind: kKeyword, keyword: ast.END_EXPERIMENTAL, casefold: true, wordBoundary: true},
	{spelling: "КОНЕЦ ВЫВОДА", kind: kKeyword, keyword: ast.END_CONCLUSION, casefold: true, wordBoundary: true},
	{spelling: "ХОД РАБОТЫ", kind: kKeyword, keyword: ast.EXPERIMENTAL, casefold: true, wordBoundary: true},
	{spelling: "ВОЗВРАТИТЬ", kind: kKeyword, keyword: ast.RETURN, casefold: true, wordBoundary: true},
	{spelling: "АННОТАЦИЯ", kind: kKeyword, keyword: ast.ANNOTATION, casefold: true, wordBoundary: true},
	{spelling: "ПОВТОРЯЕМ", kind: kKeyword, keyword: ast.WHILE, casefold: true, wordBoundary: true},
	{spelling: "ПРИМЕНЯЕМ", kind: kKeyword, keyword: ast.FUNC_CALL, casefold: true, wordBoundary: true},
	{spelling: "ВЫЧИСЛЯЕМ", kind: kKeyword, keyword: ast.FUNC_CALL, casefold: true, wordBoundary: true},
	{spelling: "ВЕЛИЧИНА", kind: kKeyword, keyword: ast.VAR_DECLARATION, casefold: true, wordBoundary: true},
	{spelling: "ПОКАЗАТЬ", kind: kKeywordIO, operator: ast.OUT, casefold: true, wordBoundary: true},
	{spelling: "ИЗМЕРИТЬ", kind: kKeywordIO, operator: ast.IN, casefold: true, wordBoundary: true},
	{spelling: "ФОРМУЛА", kind: kKeyword, keyword: ast.FORMULA, casefold: true, wordBoundary: true},
	{spelling: "ВЫВЕСТИ", kind: kKeywordIO, operator: ast.OUT, casefold: true, wordBoundary: true},
	{spelling: "ARCCTAN", kind: kOperator, operator: ast.ACTG, casefold: true, wordBoundary: true},
	{spelling: "ВЫВОДЫ", kind: kKeyword, keyword: ast.CONCLUSION, casefold: true, wordBoundary: true},
	{spelling: "ARCSIN", kind: kOperator, operator: ast.ASIN, casefold: true, wordBoundary: true},
	{spelling: "ARCCOS", kind: kOperator, operator: ast.ACOS, casefold: true, wordBoundary: true},
	{spelling: "ARCTAN", kind: kOperator, operator: ast.ATAN, casefold: true, wordBoundary: true},
	{spelling: "ARCCTG", kind: kOperator, operator: ast.ACTG, casefold: true, wordBoundary: true},
	{spelling: "ИНАЧЕ", kind: kKeyword, keyword: ast.ELSE, casefold: true, wordBoundary: true},
	{spelling: "ARCTG", kind: kOperator, operator: ast.ATAN, casefold: true, wordBoundary: true},
	{spelling: "ЦЕЛЬ", kind: kKeyword, keyword: ast.GOAL_LITERAL, casefold: true, wordBoundary: true},
	{spelling: "ПОКА", kind: kKeyword, keyword: ast.WHILE_CONDITION, casefold: true, wordBoundary: true},
	{spelling: "СТОП", kind: kKeyword, keyword: ast.END_WHILE, casefold: true, wordBoundary: true},
	{spelling: "ЕСЛИ", kind: kKeyword, keyword: ast.IF, casefold: true, wordBoundary: true},
	{spelling: "CTAN", kind: kOperator, operator: ast.CTG, casefold: true, wordBoundary: true},
	{spelling: "ASIN", kind: kOperator, operator: ast.ASIN, casefold: true, wordBoundary: true},
	{spelling: "ACOS", kind: kOperator, operator: ast.ACOS, casefold: true, wordBoundary: true},
	{spelling: "ATAN", kind: kOperator, operator: ast.ATAN, casefold: true, wordBoundary: true},
	{spelling: "ACTG", kind: kOperator, operator: ast.ACTG, casefold: true, wordBoundary: true},
	{spelling: "SQRT", kind: kOperator, operator: ast.SQRT, casefold: true, wordBoundary: true},
	{spelling: "COS", kind: kOperator, operator: ast.COS, casefold: true, wordBoundary: true},
	{spelling: "SIN", kind: kOperator, operator: ast.SIN, casefold: true, wordBoundary: true},
	{spelling: "POW", kind: kOperator, operator: ast.POW, casefold: false, wordBoundary: false},
	{spelling: "TAN", kind: kOperator, operator: ast.TAN, casefold: true, wordBoundary: true},
	{spelling: "CTG", kind: kOperator, operator: ast.CTG, casefold: true, wordBoundary: true},
	{spelling: "AND", kind: kOperator, operator: ast.AND, casefold: true, wordBoundary: true},
	{spelling: "NOT", kind: kOperator, operator: ast.NOT, casefold: true, wordBoundary: true},
	{spelling: "ИЛИ", kind: kOperator, operator: ast.OR, casefold: true, wordBoundary: true},
	{spelling: "ТО", kind: kKeyword, keyword: ast.THEN, casefold: true, wordBoundary: true},
	{spelling: "LN", kind: kOperator, operator: ast.LN, casefold: true, wordBoundary: true},
	{spelling: "TG", kind: kOperator, operator: ast.TAN, casefold: true, wordBoundary: true},
	{spelling: "OR", kind: kOperator, operator: ast.OR, casefold: true, wordBoundary: true},
	{spelling: "НЕ", kind: kOperator, operator: ast.NOT, casefold: true, wordBoundary: true},
	{spelling: "==", kind: kOperator, operator: ast.EQ},
	{spelling: "!=", kind: kOperator, operator: ast.NEQ},
	{spelling: "<=", kind: kOperator, operator: ast.BELOW_EQ},
	{spelling: ">=", kind: kOperator, operator: ast.ABOVE_EQ},
	{spelling: "И", kind: kOperator, operator: ast.AND, casefold: true, wordBoundary: true},
	{spelling: "=", kind: kOperator, operator: ast.ASSIGNMENT},
	{spelling: "<", kind: kOperator, operator: ast.BELOW},
	{spelling: ">", kind: kOperator, operator: ast.ABOVE},
	// Bare "^" is not part of the reference fixed table (only the word spelling
	// "POW" is); it is added here because the grammar's own power rule
	// (factor ("^" factor)*) requires the symbol directly (see SPEC_FULL.md §4.3.1).
	{spelling: "^", kind: kOperator, operator: ast.POW},
	{spelling: "+", kind: kOperator, operator: ast.ADD},
	{spelling: "-", kind: kOperator, operator: ast.SUB},
	{spelling: "*", kind: kOperator, operator: ast.MUL},
	{spelling: "/", kind: kOperator, operator: ast.DIV},
	{spelling: "%", kind: kOperator, operator: ast.MOD},
	{spelling: "(", kind: kDelimiter, delimiter: ast.PAR_OPEN},
	{spelling: ")", kind: kDelimiter, delimiter: ast.PAR_CLOSE},
	{spelling: ",", kind: kDelimiter, delimiter: ast.COMA},
	{spelling: ":", kind: kDelimiter, delimiter: ast.COLON},
}

// asciiUpper uppercases only ASCII a-z bytes, leaving every other byte
// (including every byte of a multi-byte UTF-8 Cyrillic rune) untouched. This
// mirrors the reference lexer's copy_upper helper, which is why casefold is a
// real case-insensitive match for ASCII spellings but a no-op for Cyrillic ones.
func asciiUpper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// isASCIIWord reports whether b is an ASCII letter, digit or underscore, the
// only bytes word_boundary treats as word characters. A non-ASCII byte (the
// lead or continuation byte of a Cyrillic rune) is never a word character
// here, even mid-identifier.
func isASCIIWord(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}

// matchFixed tries every fixedTable entry, in priority order, against
// src[pos:]. It returns the first match together with the number of bytes it
// consumed.
func matchFixed(src []byte, pos int) (fixedEntry, int, bool) {
	for _, e := range fixedTable {
		n := len(e.spelling)
		if pos+n > len(src) {
			continue
		}

		matched := true
		for i := 0; i < n; i++ {
			a, b := src[pos+i], e.spelling[i]
			if e.casefold {
				a, b = asciiUpper(a), asciiUpper(b)
			}
			if a != b {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}

		if e.wordBoundary {
			if pos > 0 && isASCIIWord(src[pos-1]) {
				continue
			}
			if pos+n < len(src) && isASCIIWord(src[pos+n]) {
				continue
			}
		}

		return e, n, true
	}
	return fixedEntry{}, 0, false
}
