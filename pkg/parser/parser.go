// Package parser builds the full AST from a flat token stream (see
// SPEC_FULL.md §4.4) with a hand-written recursive-descent grammar. Most tree
// nodes are the very tokens the lexer already produced, reused in place and
// wired together with SetChildren; only structural glue absent from the
// surface syntax (CONNECTOR chains, comma chains inside a declaration,
// cloned-to-Literal names) is fabricated and appended to the arena as
// synthetic tokens.
package parser

import (
	"github.com/sirupsen/logrus"

	"github.com/Neburalis/physlablang/pkg/ast"
	"github.com/Neburalis/physlablang/pkg/diagnostic"
)

var log = logrus.WithField("stage", "parser")

type parser struct {
	tokens []*ast.Token
	pos    int
	arena  *ast.Arena
	file   string
}

// Parse consumes the full token stream and returns the program's AST root, per
// SPEC_FULL.md §4.4: either a single statement/expression node, or a
// CONNECTOR operator whose left child is an optional comma-chain of function
// declarations and whose right child is the main body.
func Parse(tokens []*ast.Token, arena *ast.Arena, file string) (*ast.Node, error) {
	log.WithFields(logrus.Fields{"file": file, "tokens": len(tokens)}).Debug("parsing started")
	p := &parser{tokens: tokens, arena: arena, file: file}

	root, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	if !p.atEOF() {
		return nil, p.unexpected("end of input")
	}

	ast.RecountElements(root)
	log.WithField("file", file).Debug("parsing finished")
	return root, nil
}

// parseProgram implements:
//
//	program = LAB literal? annotation theoretical experimental results conclusion
func (p *parser) parseProgram() (*ast.Node, error) {
	if _, err := p.expectKeyword(ast.LAB); err != nil {
		return nil, err
	}
	if p.peekKind(ast.LiteralNode) {
		p.advance() // optional report title, not represented in the tree
	}
	if err := p.parseAnnotation(); err != nil {
		return nil, err
	}

	functions, err := p.parseTheoretical()
	if err != nil {
		return nil, err
	}
	experimental, err := p.parseExperimental()
	if err != nil {
		return nil, err
	}
	results, err := p.parseResults()
	if err != nil {
		return nil, err
	}
	if err := p.parseConclusion(); err != nil {
		return nil, err
	}

	body := p.joinConnector(experimental, results)
	return p.joinConnector(functions, body), nil
}

// parseAnnotation matches ANNOTATION .. END_ANNOTATION, discarding everything
// in between: the annotation's free-form text has no bearing on codegen.
func (p *parser) parseAnnotation() error {
	if _, err := p.expectKeyword(ast.ANNOTATION); err != nil {
		return err
	}
	for {
		if p.atEOF() {
			return &diagnostic.MissingKeywordError{Pos: p.eofPos(), Keyword: ast.END_ANNOTATION.String()}
		}
		if _, ok := p.matchKeyword(ast.END_ANNOTATION); ok {
			return nil
		}
		p.advance()
	}
}

// parseConclusion matches CONCLUSION literal? END_CONCLUSION, discarding the
// optional text the same way parseAnnotation does.
func (p *parser) parseConclusion() error {
	if _, err := p.expectKeyword(ast.CONCLUSION); err != nil {
		return err
	}
	for {
		if p.atEOF() {
			return &diagnostic.MissingKeywordError{Pos: p.eofPos(), Keyword: ast.END_CONCLUSION.String()}
		}
		if _, ok := p.matchKeyword(ast.END_CONCLUSION); ok {
			return nil
		}
		p.advance()
	}
}

// parseTheoretical matches THEORETICAL (literal | function_decl)* END_THEORETICAL,
// collecting the function declarations (and skipping stray free-form text) into
// a comma-chain, distinct from the CONNECTOR chain used for statement lists.
func (p *parser) parseTheoretical() (*ast.Node, error) {
	if _, err := p.expectKeyword(ast.THEORETICAL); err != nil {
		return nil, err
	}

	var chain *ast.Node
	for {
		if p.atEOF() {
			return nil, &diagnostic.MissingKeywordError{Pos: p.eofPos(), Keyword: ast.END_THEORETICAL.String()}
		}
		if _, ok := p.matchKeyword(ast.END_THEORETICAL); ok {
			break
		}
		if p.peekKind(ast.LiteralNode) {
			p.advance()
			continue
		}
		formulaTok, ok := p.matchKeyword(ast.FORMULA)
		if !ok {
			return nil, p.unexpected("FORMULA or end of theoretical background")
		}
		decl, err := p.parseFunctionDecl(formulaTok)
		if err != nil {
			return nil, err
		}
		if chain == nil {
			chain = decl
		} else {
			chain = p.synthComma(chain, decl)
		}
	}
	return chain, nil
}

// parseFunctionDecl implements:
//
//	function_decl = FORMULA IDENT '(' ident_list? ')' operators END_FORMULA
//
// and becomes a LITERAL node holding the function name (the FORMULA keyword
// token itself is discarded once recognized), with params in left and body in
// right.
func (p *parser) parseFunctionDecl(formulaTok *ast.Token) (*ast.Node, error) {
	_ = formulaTok
	nameTok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	nameLit := p.cloneIdentifierLiteral(nameTok)

	if _, err := p.expectDelimiter(ast.PAR_OPEN); err != nil {
		return nil, err
	}
	var params *ast.Node
	if !p.peekDelimiter(ast.PAR_CLOSE) {
		params, err = p.parseIdentList()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expectDelimiter(ast.PAR_CLOSE); err != nil {
		return nil, err
	}

	body, err := p.parseOperators(ast.END_FORMULA)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword(ast.END_FORMULA); err != nil {
		return nil, err
	}

	nameLit.SetChildren(params, body)
	return nameLit, nil
}

func (p *parser) parseExperimental() (*ast.Node, error) {
	if _, err := p.expectKeyword(ast.EXPERIMENTAL); err != nil {
		return nil, err
	}
	body, err := p.parseOperators(ast.END_EXPERIMENTAL)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword(ast.END_EXPERIMENTAL); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *parser) parseResults() (*ast.Node, error) {
	if _, err := p.expectKeyword(ast.RESULTS); err != nil {
		return nil, err
	}
	body, err := p.parseOperators(ast.END_RESULTS)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword(ast.END_RESULTS); err != nil {
		return nil, err
	}
	return body, nil
}

// parseOperators implements `operators = operator*`, joining the statements
// left-associatively with a synthetic CONNECTOR until the stop keyword is
// seen (not consumed; the caller consumes its own terminator).
func (p *parser) parseOperators(stop ast.Keyword) (*ast.Node, error) {
	var chain *ast.Node
	for {
		if p.atEOF() {
			return nil, &diagnostic.MissingKeywordError{Pos: p.eofPos(), Keyword: stop.String()}
		}
		if p.peekKeyword(stop) {
			break
		}
		stmt, err := p.parseOperator()
		if err != nil {
			return nil, err
		}
		if chain == nil {
			chain = stmt
		} else {
			chain = p.synthConnector(chain, stmt)
		}
	}
	return chain, nil
}

// parseOperator implements:
//
//	operator = var_decl | assignment | function_call | if | loop | io_stmt
//	         | return_stmt | expression
func (p *parser) parseOperator() (*ast.Node, error) {
	if kwTok, ok := p.matchKeyword(ast.VAR_DECLARATION); ok {
		return p.parseVarDecl(kwTok)
	}
	if kwTok, ok := p.matchKeyword(ast.IF); ok {
		return p.parseIf(kwTok)
	}
	if kwTok, ok := p.matchKeyword(ast.WHILE_CONDITION); ok {
		return p.parsePreTestLoop(kwTok)
	}
	if kwTok, ok := p.matchKeyword(ast.WHILE); ok {
		return p.parsePostTestLoop(kwTok)
	}
	if kwTok, ok := p.matchKeyword(ast.RETURN); ok {
		return p.parseReturn(kwTok)
	}
	if ioTok, ok := p.matchIOKeyword(); ok {
		return p.parseIOStatement(ioTok)
	}
	if p.peekKind(ast.IdentifierNode) {
		return p.parseIdentifierStatement()
	}
	return p.parseExpression()
}

// parseVarDecl implements `var_decl = VAR_DECLARATION IDENT ('=' expression)?`.
// The declared name is cloned into a Literal and attached as the keyword
// token's left child, matching get_variable_declaration.
func (p *parser) parseVarDecl(kwTok *ast.Token) (*ast.Node, error) {
	nameTok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	nameLit := p.cloneIdentifierLiteral(nameTok)

	var init *ast.Node
	if _, ok := p.matchOperator(ast.ASSIGNMENT); ok {
		init, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}

	node := &kwTok.Node
	node.SetChildren(nameLit, init)
	return node, nil
}

// parseIf implements `if = IF expression THEN operators (ELSE operators)?`.
// Since the grammar has no END_IF terminator, each branch is a single
// statement (matching every observed example: a branch needing more than one
// statement is written as a function call). The IF token is the tree root;
// its right child is the THEN token, whose own children are the two branches.
func (p *parser) parseIf(ifTok *ast.Token) (*ast.Node, error) {
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	thenTok, err := p.expectKeyword(ast.THEN)
	if err != nil {
		return nil, err
	}
	thenBranch, err := p.parseOperator()
	if err != nil {
		return nil, err
	}

	var elseBranch *ast.Node
	if _, ok := p.matchKeyword(ast.ELSE); ok {
		elseBranch, err = p.parseOperator()
		if err != nil {
			return nil, err
		}
	}

	thenNode := &thenTok.Node
	thenNode.SetChildren(thenBranch, elseBranch)
	ifNode := &ifTok.Node
	ifNode.SetChildren(cond, thenNode)
	return ifNode, nil
}

// parsePreTestLoop implements `WHILE_COND expression WHILE operators END_WHILE`.
// condMarker (ПОКА) only disambiguates the pre-test form from the post-test
// one; per the tree shape in SPEC_FULL.md §4.4 the root is instead the WHILE
// (ПОВТОРЯЕМ) token that follows the condition.
func (p *parser) parsePreTestLoop(condMarker *ast.Token) (*ast.Node, error) {
	_ = condMarker
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	whileTok, err := p.expectKeyword(ast.WHILE)
	if err != nil {
		return nil, err
	}
	body, err := p.parseOperators(ast.END_WHILE)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword(ast.END_WHILE); err != nil {
		return nil, err
	}

	node := &whileTok.Node
	node.SetChildren(cond, body)
	return node, nil
}

// parsePostTestLoop implements `WHILE operators WHILE_COND expression END_WHILE`,
// becoming DO_WHILE. whileMarker (ПОВТОРЯЕМ) only disambiguates the post-test
// form; the root is instead the WHILE_CONDITION (ПОКА) token that follows the
// body, with its Keyword rewritten to DO_WHILE in place.
func (p *parser) parsePostTestLoop(whileMarker *ast.Token) (*ast.Node, error) {
	_ = whileMarker
	body, err := p.parseOperators(ast.WHILE_CONDITION)
	if err != nil {
		return nil, err
	}
	condTok, err := p.expectKeyword(ast.WHILE_CONDITION)
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword(ast.END_WHILE); err != nil {
		return nil, err
	}

	condTok.Keyword = ast.DO_WHILE
	node := &condTok.Node
	node.SetChildren(body, cond)
	return node, nil
}

func (p *parser) parseReturn(kwTok *ast.Token) (*ast.Node, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	node := &kwTok.Node
	node.SetChildren(expr, nil)
	return node, nil
}

// parseIOStatement implements `io_stmt = (OUT | IN) target`. ioTok was lexed
// as a KeywordNode carrying the real operator in its Operator field
// (Node.IsIOKeyword); this is the point where the parser "materializes" it by
// rewriting Kind to OperatorNode in place, mirroring the reference
// get_io_statement's KEYWORD_T -> OPERATOR_T rewrite.
func (p *parser) parseIOStatement(ioTok *ast.Token) (*ast.Node, error) {
	node := &ioTok.Node
	op := node.Operator
	node.Kind = ast.OperatorNode

	if op == ast.IN {
		targetTok, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		target := p.cloneIdentifierLiteral(targetTok)
		node.SetChildren(target, nil)
		return node, nil
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	node.SetChildren(expr, nil)
	return node, nil
}

// parseIdentifierStatement resolves the one-token lookahead called for in
// SPEC_FULL.md §4.4: an IDENT followed by '=' is an assignment statement;
// otherwise it is a (possibly argument-less) function call, or, failing
// both, a bare identifier used as an expression statement.
func (p *parser) parseIdentifierStatement() (*ast.Node, error) {
	nameTok := p.advance()

	if eqTok, ok := p.matchOperator(ast.ASSIGNMENT); ok {
		rhs, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		node := &eqTok.Node
		node.SetChildren(&nameTok.Node, rhs)
		return node, nil
	}

	if p.canStartCall() {
		return p.parseCallTail(nameTok)
	}
	return &nameTok.Node, nil
}

// parseExpression implements `expression = assignment | logical`: the
// reused '=' token is also the expression form, not just the statement form
// already handled above (e.g. a VAR_DECLARATION initializer or a function
// argument may itself be an assignment).
func (p *parser) parseExpression() (*ast.Node, error) {
	lhs, err := p.parseLogical()
	if err != nil {
		return nil, err
	}
	if eqTok, ok := p.matchOperator(ast.ASSIGNMENT); ok {
		rhs, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		node := &eqTok.Node
		node.SetChildren(lhs, rhs)
		return node, nil
	}
	return lhs, nil
}

// parseLogical implements `logical = comparison ((AND|OR) comparison)*`, left
// to right at a single precedence level (matching the source, which has one
// logical level; the codegen short-circuit layout is where AND/OR actually
// differ, not the parser).
func (p *parser) parseLogical() (*ast.Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for {
		opTok, ok := p.matchOperatorAny(ast.AND, ast.OR)
		if !ok {
			return left, nil
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		node := &opTok.Node
		node.SetChildren(left, right)
		left = node
	}
}

// parseComparison implements `comparison = additive (relop additive)?`: at
// most one comparison per expression, non-associative.
func (p *parser) parseComparison() (*ast.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	opTok, ok := p.matchOperatorAny(ast.EQ, ast.NEQ, ast.BELOW, ast.ABOVE, ast.BELOW_EQ, ast.ABOVE_EQ)
	if !ok {
		return left, nil
	}
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	node := &opTok.Node
	node.SetChildren(left, right)
	return node, nil
}

func (p *parser) parseAdditive() (*ast.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		opTok, ok := p.matchOperatorAny(ast.ADD, ast.SUB)
		if !ok {
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		node := &opTok.Node
		node.SetChildren(left, right)
		left = node
	}
}

func (p *parser) parseTerm() (*ast.Node, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		opTok, ok := p.matchOperatorAny(ast.MUL, ast.DIV, ast.MOD)
		if !ok {
			return left, nil
		}
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		node := &opTok.Node
		node.SetChildren(left, right)
		left = node
	}
}

// parsePower implements `power = factor ('^' factor)*`, right-associative.
func (p *parser) parsePower() (*ast.Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	opTok, ok := p.matchOperator(ast.POW)
	if !ok {
		return left, nil
	}
	right, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	node := &opTok.Node
	node.SetChildren(left, right)
	return node, nil
}

// parseFactor implements:
//
//	factor       = builtin_call | function_call | '(' expression ')' | NUMBER | LITERAL | IDENT
//	builtin_call = UNARY_FN '(' expression ')'
//
// A leading '-' not covered by the grammar above is folded here as
// `0 - operand`, reusing the lexed '-' token as the SUB node and a fabricated
// zero Number as its left child (there is no dedicated unary-negate opcode in
// the OPERATOR set, so this keeps the backend's job limited to binary SUB).
func (p *parser) parseFactor() (*ast.Node, error) {
	tok := p.current()
	if tok == nil {
		return nil, p.unexpected("expression")
	}

	switch {
	case tok.Kind == ast.OperatorNode && isUnaryBuiltin(tok.Operator):
		p.advance()
		if _, err := p.expectDelimiter(ast.PAR_OPEN); err != nil {
			return nil, err
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectDelimiter(ast.PAR_CLOSE); err != nil {
			return nil, err
		}
		node := &tok.Node
		node.SetChildren(arg, nil)
		return node, nil

	case tok.Kind == ast.OperatorNode && tok.Operator == ast.SUB:
		p.advance()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		node := &tok.Node
		node.SetChildren(p.synthNumber(0), operand)
		return node, nil

	case tok.Kind == ast.DelimiterNode && tok.Delimiter == ast.PAR_OPEN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectDelimiter(ast.PAR_CLOSE); err != nil {
			return nil, err
		}
		return expr, nil

	case tok.Kind == ast.DelimiterNode && tok.Delimiter == ast.QUOTE:
		p.advance()
		litTok := p.current()
		if litTok == nil || litTok.Kind != ast.LiteralNode {
			return nil, p.unexpected("quoted string literal")
		}
		p.advance()
		if _, err := p.expectDelimiter(ast.QUOTE); err != nil {
			return nil, err
		}
		return &litTok.Node, nil

	case tok.Kind == ast.NumberNode:
		p.advance()
		return &tok.Node, nil

	case tok.Kind == ast.IdentifierNode:
		p.advance()
		if p.canStartCall() {
			return p.parseCallTail(tok)
		}
		return &tok.Node, nil

	default:
		return nil, p.unexpected("expression")
	}
}

// canStartCall reports whether the tokens at the current position can only be
// explained as the start of a function_call tail (an explicit FUNC_CALL
// keyword or an opening parenthesis right after the callee name).
func (p *parser) canStartCall() bool {
	return p.peekKeyword(ast.FUNC_CALL) || p.peekDelimiter(ast.PAR_OPEN)
}

// parseCallTail implements the three accepted function_call syntaxes —
// `name(args)`, `name FUNC_CALL args`, `name args` once a FUNC_CALL keyword or
// '(' has already confirmed a call is present — given the already-consumed
// callee token.
func (p *parser) parseCallTail(nameTok *ast.Token) (*ast.Node, error) {
	var kwTok *ast.Token
	if t, ok := p.matchKeyword(ast.FUNC_CALL); ok {
		kwTok = t
	}

	hasParen := false
	if _, ok := p.matchDelimiter(ast.PAR_OPEN); ok {
		hasParen = true
	}

	var args *ast.Node
	if p.canStartExpression() {
		a, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		args = a
	}

	if hasParen {
		if _, err := p.expectDelimiter(ast.PAR_CLOSE); err != nil {
			return nil, err
		}
	}

	var root *ast.Node
	if kwTok != nil {
		root = &kwTok.Node
	} else {
		root = p.synthKeyword(ast.FUNC_CALL)
	}
	root.SetChildren(&nameTok.Node, args)
	return root, nil
}

// canStartExpression reports whether the current token can legally begin an
// `expression`, used to tell an empty argument list apart from a real one.
func (p *parser) canStartExpression() bool {
	tok := p.current()
	if tok == nil {
		return false
	}
	switch tok.Kind {
	case ast.NumberNode, ast.IdentifierNode:
		return true
	case ast.DelimiterNode:
		return tok.Delimiter == ast.PAR_OPEN || tok.Delimiter == ast.QUOTE
	case ast.OperatorNode:
		return tok.Operator == ast.SUB || isUnaryBuiltin(tok.Operator)
	}
	return false
}

// parseArguments implements `arguments = expression (',' expression)*`,
// building a right-leaning chain joined by the lexed comma tokens themselves.
func (p *parser) parseArguments() (*ast.Node, error) {
	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	commaTok, ok := p.matchDelimiter(ast.COMA)
	if !ok {
		return first, nil
	}
	rest, err := p.parseArguments()
	if err != nil {
		return nil, err
	}
	node := &commaTok.Node
	node.SetChildren(first, rest)
	return node, nil
}

// parseIdentList implements `ident_list = IDENT (',' IDENT)*`, cloning each
// name to a Literal the same way a declaration site does.
func (p *parser) parseIdentList() (*ast.Node, error) {
	nameTok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	first := p.cloneIdentifierLiteral(nameTok)

	commaTok, ok := p.matchDelimiter(ast.COMA)
	if !ok {
		return first, nil
	}
	rest, err := p.parseIdentList()
	if err != nil {
		return nil, err
	}
	node := &commaTok.Node
	node.SetChildren(first, rest)
	return node, nil
}

func isUnaryBuiltin(op ast.Operator) bool {
	switch op {
	case ast.LN, ast.SIN, ast.COS, ast.TAN, ast.CTG, ast.ASIN, ast.ACOS, ast.ATAN, ast.ACTG, ast.SQRT:
		return true
	}
	return false
}

// joinConnector wires left and right under a synthetic CONNECTOR, or returns
// whichever side is non-nil unchanged (so a program with no functions, or an
// empty section, does not manufacture a spurious CONNECTOR wrapping a single
// child — see SPEC_FULL.md §8's "single node" root property).
func (p *parser) joinConnector(left, right *ast.Node) *ast.Node {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return p.synthConnector(left, right)
}
