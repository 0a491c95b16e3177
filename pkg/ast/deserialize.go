package ast

import (
	"fmt"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"

	"github.com/Neburalis/physlablang/pkg/diagnostic"
	"github.com/Neburalis/physlablang/pkg/varlist"
)

// pcTree is the goparsec AST-tracking root used to build the traversable
// pc.Queryable tree for a .ast file, mirroring the teacher's own
// `var ast = pc.NewAST(...)` convention (renamed here to avoid colliding with
// this package's own name).
var pcTree = pc.NewAST("physlab_ast_file", 256)

// pNodeRef is a lazily-resolved reference to pNode, used so pSexpr can refer to
// itself recursively without creating a variable-initialization cycle: the
// closure captures the pNode variable, not its (not-yet-assigned) value, and is
// only invoked once parsing actually begins.
func pNodeRef(s pc.Scanner) (pc.ParsecNode, pc.Scanner) { return pNode(s) }

var pNode pc.Parser

var (
	pNilHead = pc.Atom("nil", "NIL")
	pLParen  = pc.Atom("(", "(")
	pRParen  = pc.Atom(")", ")")

	// Numeric head, printed with %g by Serialize: optional sign, digits, optional
	// fraction, optional exponent.
	pNumberHead = pc.Token(`-?[0-9]+(\.[0-9]+)?([eE][-+]?[0-9]+)?`, "NUMBER")

	pIdentifierHead = pcTree.And("identifier_head", nil, pc.Atom("IDENTIFIER", "IDENTIFIER"), pc.Int())
	pLiteralHead    = pcTree.And("literal_head", nil,
		pc.Atom("LITERAL", "LITERAL"), pc.Int(), pc.Token(`"(?:\\.|[^"\\])*"`, "STRING"))

	// Operator heads that print as a symbol rather than a name (see operatorSymbols).
	pOperatorSymbolHead = pc.Token(`==|!=|<=|>=|[+\-*/^%=<>;]`, "OPSYM")
	// Every other head (KEYWORD/DELIMITER enumerator names, and OPERATOR names
	// without a symbolic spelling such as LN, SIN, AND, IN, OUT, SQRT, SET_PIXEL, DRAW).
	pWordHead = pc.Token(`[A-Za-z][A-Za-z0-9_-]*`, "WORD")

	pHead = pcTree.OrdChoice("head", nil,
		pLiteralHead, pIdentifierHead, pOperatorSymbolHead, pNumberHead, pWordHead)

	pSexpr = pcTree.And("sexpr", nil, pLParen, pHead, pc.Parser(pNodeRef), pc.Parser(pNodeRef), pRParen)
)

func init() {
	pNode = pcTree.OrdChoice("node", nil, pNilHead, pSexpr)
}

var keywordByName = invertKeywordNames()
var delimiterByName = invertDelimiterNames()
var operatorByWord = invertOperatorNames()
var operatorBySymbol = invertOperatorSymbols()

func invertKeywordNames() map[string]Keyword {
	m := make(map[string]Keyword, len(keywordNames))
	for k, v := range keywordNames {
		m[v] = k
	}
	return m
}

func invertDelimiterNames() map[string]Delimiter {
	m := make(map[string]Delimiter, len(delimiterNames))
	for k, v := range delimiterNames {
		m[v] = k
	}
	return m
}

func invertOperatorNames() map[string]Operator {
	m := make(map[string]Operator, len(operatorNames))
	for k, v := range operatorNames {
		m[v] = k
	}
	return m
}

func invertOperatorSymbols() map[string]Operator {
	m := make(map[string]Operator, len(operatorSymbols))
	for k, v := range operatorSymbols {
		m[v] = k
	}
	return m
}

// deserializer carries the remap state needed to rebuild a fresh symbol table
// while walking the goparsec tree: identifiers only carry an on-disk index, so
// their name is recovered from whichever Literal head first established that
// same on-disk index (always the declaration site in a well-formed program).
type deserializer struct {
	symbols  *varlist.VarList
	remapped map[int]int // on-disk idx -> fresh varlist idx, populated by Literal heads
}

// Deserialize parses data (the contents of a .ast file) back into a Node tree
// and a freshly built symbol table, per SPEC_FULL.md §4.5/§4.5.1.
func Deserialize(data []byte) (*Node, *varlist.VarList, error) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		pcTree.SetDebug()
	}

	root, _ := pcTree.Parsewith(pNode, pc.NewScanner(data))
	if root == nil {
		return nil, nil, &diagnostic.MalformedASTError{Cause: "empty or unparsable input"}
	}

	if os.Getenv("PRINT_AST") != "" {
		pcTree.Prettyprint()
	}

	d := &deserializer{symbols: varlist.New(), remapped: make(map[int]int)}
	node, err := d.build(root)
	if err != nil {
		return nil, nil, err
	}

	RecountElements(node)
	return node, d.symbols, nil
}

func (d *deserializer) build(q pc.Queryable) (*Node, error) {
	switch q.GetName() {
	case "node":
		children := q.GetChildren()
		if len(children) != 1 {
			return nil, &diagnostic.MalformedASTError{Cause: "node wrapper did not resolve to exactly one alternative"}
		}
		return d.build(children[0])

	case "NIL":
		return nil, nil

	case "sexpr":
		children := q.GetChildren()
		if len(children) != 5 {
			return nil, &diagnostic.MalformedASTError{Cause: fmt.Sprintf("expected 5 elements in '( head left right )', got %d", len(children))}
		}
		head, leftQ, rightQ := children[1], children[2], children[3]

		// The head is built before its children so that a Literal head (e.g. a
		// function name) is registered before any identifier beneath it.
		n, err := d.buildHead(head)
		if err != nil {
			return nil, err
		}

		left, err := d.build(leftQ)
		if err != nil {
			return nil, err
		}
		right, err := d.build(rightQ)
		if err != nil {
			return nil, err
		}
		n.SetChildren(left, right)
		return n, nil

	default:
		return nil, &diagnostic.MalformedASTError{Cause: fmt.Sprintf("unrecognized AST element %q", q.GetName())}
	}
}

func (d *deserializer) buildHead(head pc.Queryable) (*Node, error) {
	switch head.GetName() {
	case "literal_head":
		parts := head.GetChildren()
		if len(parts) != 3 {
			return nil, &diagnostic.MalformedASTError{Cause: "malformed LITERAL head"}
		}
		oldIdx, err := strconv.Atoi(parts[1].GetValue())
		if err != nil {
			return nil, &diagnostic.MalformedASTError{Cause: "LITERAL head index is not an integer"}
		}
		text, err := strconv.Unquote(parts[2].GetValue())
		if err != nil {
			return nil, &diagnostic.MalformedASTError{Cause: "LITERAL head text is not a valid quoted string"}
		}

		newIdx := d.symbols.Add(text)
		d.remapped[oldIdx] = newIdx
		return NewLiteral(newIdx), nil

	case "identifier_head":
		parts := head.GetChildren()
		if len(parts) != 2 {
			return nil, &diagnostic.MalformedASTError{Cause: "malformed IDENTIFIER head"}
		}
		oldIdx, err := strconv.Atoi(parts[1].GetValue())
		if err != nil {
			return nil, &diagnostic.MalformedASTError{Cause: "IDENTIFIER head index is not an integer"}
		}

		newIdx, known := d.remapped[oldIdx]
		if !known {
			// No Literal head ever established this on-disk index (a malformed or
			// hand-edited .ast file); synthesize a recognizable placeholder name
			// rather than failing the whole load.
			newIdx = d.symbols.Add(fmt.Sprintf("id_%d", oldIdx))
			d.remapped[oldIdx] = newIdx
		}
		return NewIdentifier(newIdx), nil

	case "NUMBER":
		v, err := strconv.ParseFloat(head.GetValue(), 64)
		if err != nil {
			return nil, &diagnostic.MalformedASTError{Cause: "NUMBER head is not a valid float"}
		}
		return NewNumber(v), nil

	case "OPSYM":
		op, ok := operatorBySymbol[head.GetValue()]
		if !ok {
			return nil, &diagnostic.MalformedASTError{Cause: fmt.Sprintf("unrecognized operator symbol %q", head.GetValue())}
		}
		return &Node{Kind: OperatorNode, Operator: op, sig: signature}, nil

	case "WORD":
		word := head.GetValue()
		if kw, ok := keywordByName[word]; ok {
			return &Node{Kind: KeywordNode, Keyword: kw, sig: signature}, nil
		}
		if op, ok := operatorByWord[word]; ok {
			return &Node{Kind: OperatorNode, Operator: op, sig: signature}, nil
		}
		if d2, ok := delimiterByName[word]; ok {
			return &Node{Kind: DelimiterNode, Delimiter: d2, sig: signature}, nil
		}
		return nil, &diagnostic.MalformedASTError{Cause: fmt.Sprintf("unrecognized head word %q", word)}

	default:
		return nil, &diagnostic.MalformedASTError{Cause: fmt.Sprintf("unrecognized head element %q", head.GetName())}
	}
}
