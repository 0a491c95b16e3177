package parser

import (
	"github.com/Neburalis/physlablang/pkg/ast"
	"github.com/Neburalis/physlablang/pkg/diagnostic"
)

// current returns the token at the parser's position, or nil at end of input.
func (p *parser) current() *ast.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return p.tokens[p.pos]
}

// advance returns the current token and steps the position forward by one.
// Callers only reach it once a production already knows it wants this token
// (a prior peek/match succeeded), so it never advances past end of input.
func (p *parser) advance() *ast.Token {
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

func (p *parser) atEOF() bool { return p.pos >= len(p.tokens) }

// eofPos reports a diagnostic position for an error raised at end of input,
// reusing the last real token's position when one exists.
func (p *parser) eofPos() diagnostic.Position {
	if len(p.tokens) == 0 {
		return diagnostic.Position{File: p.file, Line: 1, Column: 1}
	}
	last := p.tokens[len(p.tokens)-1]
	return diagnostic.Position{File: p.file, Line: last.Line, Column: last.Column + len(last.Span)}
}

func (p *parser) peekKind(k ast.Kind) bool {
	tok := p.current()
	return tok != nil && tok.Kind == k
}

func (p *parser) peekKeyword(kw ast.Keyword) bool {
	tok := p.current()
	return tok != nil && tok.Kind == ast.KeywordNode && !tok.IsIOKeyword() && tok.Keyword == kw
}

func (p *parser) peekDelimiter(d ast.Delimiter) bool {
	tok := p.current()
	return tok != nil && tok.Kind == ast.DelimiterNode && tok.Delimiter == d
}

func (p *parser) matchKeyword(kw ast.Keyword) (*ast.Token, bool) {
	if !p.peekKeyword(kw) {
		return nil, false
	}
	return p.advance(), true
}

// matchIOKeyword consumes a ПОКАЗАТЬ/ИЗМЕРИТЬ/ВЫВЕСТИ token, still shaped as a
// KeywordNode carrying its real operator in the Operator slot (Node.IsIOKeyword).
func (p *parser) matchIOKeyword() (*ast.Token, bool) {
	tok := p.current()
	if tok == nil || !tok.IsIOKeyword() {
		return nil, false
	}
	return p.advance(), true
}

func (p *parser) matchOperator(op ast.Operator) (*ast.Token, bool) {
	tok := p.current()
	if tok == nil || tok.Kind != ast.OperatorNode || tok.Operator != op {
		return nil, false
	}
	return p.advance(), true
}

func (p *parser) matchOperatorAny(ops ...ast.Operator) (*ast.Token, bool) {
	tok := p.current()
	if tok == nil || tok.Kind != ast.OperatorNode {
		return nil, false
	}
	for _, op := range ops {
		if tok.Operator == op {
			return p.advance(), true
		}
	}
	return nil, false
}

func (p *parser) matchDelimiter(d ast.Delimiter) (*ast.Token, bool) {
	if !p.peekDelimiter(d) {
		return nil, false
	}
	return p.advance(), true
}

func (p *parser) expectKeyword(kw ast.Keyword) (*ast.Token, error) {
	if tok, ok := p.matchKeyword(kw); ok {
		return tok, nil
	}
	return nil, p.unexpected(kw.String())
}

func (p *parser) expectDelimiter(d ast.Delimiter) (*ast.Token, error) {
	if tok, ok := p.matchDelimiter(d); ok {
		return tok, nil
	}
	return nil, p.unexpected(d.String())
}

func (p *parser) expectIdentifier() (*ast.Token, error) {
	if !p.peekKind(ast.IdentifierNode) {
		return nil, p.unexpected("identifier")
	}
	return p.advance(), nil
}

// unexpected builds an UnexpectedTokenError describing what was found (or end
// of input) against what the caller was trying to match.
func (p *parser) unexpected(expected string) error {
	tok := p.current()
	if tok == nil {
		return &diagnostic.UnexpectedTokenError{Pos: p.eofPos(), Got: "end of input", Expected: expected}
	}
	pos := diagnostic.Position{File: tok.File, Line: tok.Line, Column: tok.Column}
	got := tok.Span
	if got == "" {
		got = tok.Kind.String()
	}
	return &diagnostic.UnexpectedTokenError{Pos: pos, Got: got, Expected: expected}
}

// synthConnector fabricates a CONNECTOR operator joining two statements that
// appeared back to back with no separator token in the source.
func (p *parser) synthConnector(left, right *ast.Node) *ast.Node {
	tok := ast.NewSynthetic(p.arena, *ast.NewOperator(ast.CONNECTOR, nil, nil))
	node := &tok.Node
	node.SetChildren(left, right)
	return node
}

// synthComma fabricates a COMA delimiter joining two declarations in a list
// built up without a source-level separator (the theoretical section's
// function-declaration chain).
func (p *parser) synthComma(left, right *ast.Node) *ast.Node {
	tok := ast.NewSynthetic(p.arena, *ast.NewDelimiter(ast.COMA))
	node := &tok.Node
	node.SetChildren(left, right)
	return node
}

// synthKeyword fabricates a bare keyword node (used for an implicit FUNC_CALL
// when the call syntax omitted it, e.g. `DRAW(1)`).
func (p *parser) synthKeyword(kw ast.Keyword) *ast.Node {
	tok := ast.NewSynthetic(p.arena, *ast.NewKeyword(kw, nil, nil))
	return &tok.Node
}

// synthNumber fabricates a Number leaf (used as the implicit left operand of a
// folded unary minus).
func (p *parser) synthNumber(v float64) *ast.Node {
	tok := ast.NewSynthetic(p.arena, *ast.NewNumber(v))
	return &tok.Node
}

// cloneIdentifierLiteral copies an already-lexed Identifier's symbol index
// into a fresh Literal node, used at every declaration site (var_decl,
// function_decl, ident_list) so the declared name keeps recoverable text
// distinct from the Identifier token still referenced elsewhere as a use-site.
func (p *parser) cloneIdentifierLiteral(identTok *ast.Token) *ast.Node {
	tok := ast.NewSynthetic(p.arena, *ast.NewLiteral(identTok.Symbol))
	return &tok.Node
}
