// Package lexer turns source bytes into the flat token stream described in
// SPEC_FULL.md §4.3: a longest-match scan against the fixed table (table.go),
// falling back to numbers, ASCII identifiers, quoted strings and free-form
// line-spanning literals.
package lexer

import (
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Neburalis/physlablang/pkg/ast"
	"github.com/Neburalis/physlablang/pkg/diagnostic"
	"github.com/Neburalis/physlablang/pkg/varlist"
)

var log = logrus.WithField("stage", "lexer")

var warnCasefoldNoops sync.Once

// noopCasefoldWarning logs once per process that some fixedTable entries carry
// casefold: true over a non-ASCII spelling, where it has no practical effect
// (see the fixedEntry doc comment in table.go): a recoverable-but-noteworthy
// table property, not a per-token event.
func noopCasefoldWarning() {
	warnCasefoldNoops.Do(func() {
		n := 0
		for _, e := range fixedTable {
			if e.casefold && !isASCIIOnly(e.spelling) {
				n++
			}
		}
		if n > 0 {
			log.WithField("entries", n).Warn("casefold has no effect on non-ASCII fixed-table spellings; source must match table case exactly")
		}
	})
}

func isASCIIOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}

type lexer struct {
	src     []byte
	pos     int
	line    int
	column  int
	file    string
	arena   *ast.Arena
	symbols *varlist.VarList
}

// Lex scans src (the full contents of one source file) into a flat token
// stream, an Arena owning every produced Token, and the symbol table built up
// for identifiers and interned literal text encountered along the way.
func Lex(src []byte, file string) ([]*ast.Token, *ast.Arena, *varlist.VarList, error) {
	log.WithField("file", file).Debug("lexing started")
	noopCasefoldWarning()
	l := &lexer{
		src:     src,
		line:    1,
		column:  1,
		file:    file,
		arena:   ast.NewArena(),
		symbols: varlist.New(),
	}

	var tokens []*ast.Token
	for {
		l.skipTrivia()
		if l.pos >= len(l.src) {
			break
		}

		next, err := l.next()
		if err != nil {
			return nil, nil, nil, err
		}
		tokens = append(tokens, next...)
	}

	log.WithFields(logrus.Fields{"file": file, "tokens": len(tokens)}).Debug("lexing finished")
	return tokens, l.arena, l.symbols, nil
}

// skipTrivia consumes ASCII whitespace, "//" line comments, and the literal
// ';' statement separator, leaving l.pos at the first byte of the next real
// token (or at len(l.src) at end of input). ';' carries no token of its own:
// the CONNECTOR node the parser needs between statements is always
// fabricated synthetically (see pkg/parser), so a source ';' is exactly as
// optional as the whitespace around it — confirmed by the reference corpus,
// where some statement boundaries carry one and some don't.
func (l *lexer) skipTrivia() {
	for l.pos < len(l.src) {
		switch {
		case l.src[l.pos] == '\n':
			l.pos++
			l.line++
			l.column = 1
		case isASCIISpace(l.src[l.pos]) || l.src[l.pos] == ';':
			l.pos++
			l.column++
		case l.src[l.pos] == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

// next scans exactly one lexical item starting at l.pos, which skipTrivia has
// already positioned at a non-trivial byte. Order of attempts mirrors
// SPEC_FULL.md §4.3: fixed table, then string, then digit, then ASCII
// identifier, then free-form line-spanning literal. Most items are a single
// token; a quoted string is three (opening QUOTE, Literal, closing QUOTE).
func (l *lexer) next() ([]*ast.Token, error) {
	startLine, startCol := l.line, l.column

	if entry, n, ok := matchFixed(l.src, l.pos); ok {
		span := string(l.src[l.pos : l.pos+n])
		l.advance(n)
		return []*ast.Token{ast.NewToken(l.arena, *entry.node(), span, startLine, startCol, l.file)}, nil
	}

	if l.src[l.pos] == '"' {
		return l.scanString(startLine, startCol)
	}

	if isDigitByte(l.src[l.pos]) {
		tok, err := l.scanNumber(startLine, startCol)
		if err != nil {
			return nil, err
		}
		return []*ast.Token{tok}, nil
	}

	if isASCIIAlpha(l.src[l.pos]) || l.src[l.pos] == '_' {
		return []*ast.Token{l.scanIdentifier(startLine, startCol)}, nil
	}

	return []*ast.Token{l.scanFreeLiteral(startLine, startCol)}, nil
}

// scanString consumes a "..." literal verbatim (no escape processing,
// matching the reference lexer) and emits three tokens: an opening QUOTE
// delimiter, a Literal referencing the interned body, and a closing QUOTE
// delimiter.
func (l *lexer) scanString(startLine, startCol int) ([]*ast.Token, error) {
	openLine, openCol := startLine, startCol
	l.advance(1) // opening quote

	contentStart := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != '"' {
		if l.src[l.pos] == '\n' {
			return nil, &diagnostic.UnterminatedStringError{
				Pos: diagnostic.Position{File: l.file, Line: openLine, Column: openCol},
			}
		}
		l.advance(1)
	}
	if l.pos >= len(l.src) {
		return nil, &diagnostic.UnterminatedStringError{
			Pos: diagnostic.Position{File: l.file, Line: openLine, Column: openCol},
		}
	}
	content := string(l.src[contentStart:l.pos])
	closeLine, closeCol := l.line, l.column
	l.advance(1) // closing quote

	open := ast.NewToken(l.arena, *ast.NewDelimiter(ast.QUOTE), `"`, openLine, openCol, l.file)
	idx := l.symbols.Add(content)
	lit := ast.NewToken(l.arena, *ast.NewLiteral(idx), content, openLine, openCol, l.file)
	closeTok := ast.NewToken(l.arena, *ast.NewDelimiter(ast.QUOTE), `"`, closeLine, closeCol, l.file)
	return []*ast.Token{open, lit, closeTok}, nil
}

// scanNumber consumes digits with an optional fractional part (no exponent,
// no sign: a leading '-' is left for the parser to fold as unary negation).
func (l *lexer) scanNumber(startLine, startCol int) (*ast.Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigitByte(l.src[l.pos]) {
		l.advance(1)
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.advance(1)
		for l.pos < len(l.src) && isDigitByte(l.src[l.pos]) {
			l.advance(1)
		}
	}

	span := string(l.src[start:l.pos])
	v, err := strconv.ParseFloat(span, 64)
	if err != nil {
		return nil, &diagnostic.EncodingError{
			Pos:   diagnostic.Position{File: l.file, Line: startLine, Column: startCol},
			Cause: "malformed numeric literal " + span,
		}
	}
	return ast.NewToken(l.arena, *ast.NewNumber(v), span, startLine, startCol, l.file), nil
}

// scanIdentifier consumes [A-Za-z_][A-Za-z0-9_]*, interns it and emits it as
// an Identifier. Declaration sites (VAR_DECLARATION, FORMULA name, parameter
// lists) are responsible for cloning this into a Literal node so the name has
// recoverable text on the serializer's side (see pkg/parser).
func (l *lexer) scanIdentifier(startLine, startCol int) *ast.Token {
	start := l.pos
	l.advance(1) // first char already checked by the caller
	for l.pos < len(l.src) && isASCIIWord(l.src[l.pos]) {
		l.advance(1)
	}

	span := string(l.src[start:l.pos])
	idx := l.symbols.Add(span)
	return ast.NewToken(l.arena, *ast.NewIdentifier(idx), span, startLine, startCol, l.file)
}

// scanFreeLiteral consumes every remaining byte of the current line as a
// single interned Literal: the fallback used for section titles (the lab name
// after "ЛАБОРАТОРНАЯ РАБОТА"), goal/conclusion text, and any Cyrillic word
// that did not exactly match the fixed table.
func (l *lexer) scanFreeLiteral(startLine, startCol int) *ast.Token {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.advance(1)
	}

	span := string(l.src[start:l.pos])
	idx := l.symbols.Add(span)
	return ast.NewToken(l.arena, *ast.NewLiteral(idx), span, startLine, startCol, l.file)
}

// advance steps n bytes forward, assuming none of them is '\n' (true for
// every caller: fixed-table spellings, quote bytes, digits/identifiers, and
// scanFreeLiteral stops itself at the newline rather than consuming it).
func (l *lexer) advance(n int) {
	l.pos += n
	l.column += n
}

func isASCIISpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\v' || b == '\f' }
func isDigitByte(b byte) bool  { return b >= '0' && b <= '9' }
func isASCIIAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
