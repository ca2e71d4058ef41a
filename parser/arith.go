package parser

import (
	"strings"

	"wsh/ast"
)

// arithToken is the small, separate token set used only inside $((...))
// bodies (spec.md §4.C treats arithmetic as its own mini-grammar rather
// than reusing the shell's own operator tokens, since e.g. "<<" means
// shift-left here but here-doc everywhere else).
type arithToken struct {
	kind string // "num", "name", or the operator spelling itself
	val  string
}

type arithLexer struct {
	s   string
	pos int
}

func (al *arithLexer) peekByte() byte {
	if al.pos >= len(al.s) {
		return 0
	}
	return al.s[al.pos]
}

func (al *arithLexer) next() (arithToken, bool) {
	for al.pos < len(al.s) && (al.s[al.pos] == ' ' || al.s[al.pos] == '\t' || al.s[al.pos] == '\n') {
		al.pos++
	}
	if al.pos >= len(al.s) {
		return arithToken{}, false
	}
	start := al.pos
	c := al.s[al.pos]
	switch {
	case c >= '0' && c <= '9':
		for al.pos < len(al.s) && isArithWordByte(al.s[al.pos]) {
			al.pos++
		}
		return arithToken{kind: "num", val: al.s[start:al.pos]}, true
	case isArithNameStart(c):
		for al.pos < len(al.s) && isArithWordByte(al.s[al.pos]) {
			al.pos++
		}
		return arithToken{kind: "name", val: al.s[start:al.pos]}, true
	case c == '$':
		al.pos++
		for al.pos < len(al.s) && isArithWordByte(al.s[al.pos]) {
			al.pos++
		}
		return arithToken{kind: "name", val: al.s[start:al.pos]}, true
	}
	// operator: try the longest known spelling first.
	for _, op := range arithOpsLongToShort {
		if strings.HasPrefix(al.s[al.pos:], op) {
			al.pos += len(op)
			return arithToken{kind: op}, true
		}
	}
	al.pos++
	return arithToken{kind: string(c)}, true
}

func isArithNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isArithWordByte(c byte) bool {
	return isArithNameStart(c) || (c >= '0' && c <= '9') || c == '#' || c == '.'
}

var arithOpsLongToShort = []string{
	"<<=", ">>=",
	"**", "&&", "||", "==", "!=", "<=", ">=", "<<", ">>",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"++", "--",
	"+", "-", "*", "/", "%", "&", "|", "^", "~", "!", "<", ">", "=", "?", ":", ",", "(", ")",
}

// arithParser is a precedence-climbing parser over the arithmetic mini
// grammar, grounded on the same recursive-descent style as the rest of the
// package rather than a table-driven Pratt parser, to match the teacher's
// preference for explicit per-precedence-level functions.
type arithParser struct {
	lx   *arithLexer
	tok  arithToken
	have bool
}

func newArithParser(s string) *arithParser {
	p := &arithParser{lx: &arithLexer{s: s}}
	p.advance()
	return p
}

func (p *arithParser) advance() {
	p.tok, p.have = p.lx.next()
}

func (p *arithParser) is(kind string) bool { return p.have && p.tok.kind == kind }

// parseArith parses a full arithmetic expression string, as used for
// $((...)), $[...], (( ... )), and arithmetic for-clauses.
func (l *Lexer) parseArith(s string) (ast.ArithmExpr, error) {
	p := newArithParser(s)
	x, err := p.comma()
	if err != nil {
		return nil, err
	}
	if p.have {
		return nil, l.errorf(l.pos(), "unexpected token %q in arithmetic expression", p.tok.val+p.tok.kind)
	}
	return x, nil
}

func (p *arithParser) comma() (ast.ArithmExpr, error) {
	left, err := p.assign()
	if err != nil {
		return nil, err
	}
	for p.is(",") {
		p.advance()
		right, err := p.assign()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryArithm{Op: ast.ArithComma, X: left, Y: right}
	}
	return left, nil
}

var arithAssignOps = map[string]ast.ArithOp{
	"=": ast.ArithAssign, "+=": ast.ArithAddAssign, "-=": ast.ArithSubAssign,
	"*=": ast.ArithMulAssign, "/=": ast.ArithQuoAssign, "%=": ast.ArithRemAssign,
	"&=": ast.ArithAndAssign, "|=": ast.ArithOrAssign, "^=": ast.ArithXorAssign,
	"<<=": ast.ArithShlAssign, ">>=": ast.ArithShrAssign,
}

func (p *arithParser) assign() (ast.ArithmExpr, error) {
	left, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if p.have {
		if op, ok := arithAssignOps[p.tok.kind]; ok {
			p.advance()
			right, err := p.assign()
			if err != nil {
				return nil, err
			}
			return &ast.BinaryArithm{Op: op, X: left, Y: right}, nil
		}
	}
	return left, nil
}

func (p *arithParser) ternary() (ast.ArithmExpr, error) {
	cond, err := p.binary(0)
	if err != nil {
		return nil, err
	}
	if p.is("?") {
		p.advance()
		x, err := p.assign()
		if err != nil {
			return nil, err
		}
		if !p.is(":") {
			return nil, errArith("expected : in ternary expression")
		}
		p.advance()
		y, err := p.assign()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryArithm{Op: ast.ArithTernary, X: cond, Y: x, Else: y}, nil
	}
	return cond, nil
}

// binaryPrec lists the binary operators from lowest to highest precedence,
// mirroring C's arithmetic-expression precedence table as POSIX shells do.
var binaryPrec = [][]struct {
	kind string
	op   ast.ArithOp
}{
	{{"||", ast.ArithLor}},
	{{"&&", ast.ArithLand}},
	{{"|", ast.ArithOr}},
	{{"^", ast.ArithXor}},
	{{"&", ast.ArithAnd}},
	{{"==", ast.ArithEql}, {"!=", ast.ArithNeq}},
	{{"<", ast.ArithLss}, {">", ast.ArithGtr}, {"<=", ast.ArithLeq}, {">=", ast.ArithGeq}},
	{{"<<", ast.ArithShl}, {">>", ast.ArithShr}},
	{{"+", ast.ArithAdd}, {"-", ast.ArithSub}},
	{{"*", ast.ArithMul}, {"/", ast.ArithQuo}, {"%", ast.ArithRem}},
}

func (p *arithParser) binary(level int) (ast.ArithmExpr, error) {
	if level >= len(binaryPrec) {
		return p.power()
	}
	left, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for p.have {
		matched := false
		for _, cand := range binaryPrec[level] {
			if p.tok.kind == cand.kind {
				p.advance()
				right, err := p.binary(level + 1)
				if err != nil {
					return nil, err
				}
				left = &ast.BinaryArithm{Op: cand.op, X: left, Y: right}
				matched = true
				break
			}
		}
		if !matched {
			break
		}
	}
	return left, nil
}

func (p *arithParser) power() (ast.ArithmExpr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	if p.is("**") {
		p.advance()
		right, err := p.power()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryArithm{Op: ast.ArithPow, X: left, Y: right}, nil
	}
	return left, nil
}

func (p *arithParser) unary() (ast.ArithmExpr, error) {
	switch {
	case p.is("-"):
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryArithm{Op: ast.ArithUnaryMinus, X: x}, nil
	case p.is("+"):
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryArithm{Op: ast.ArithUnaryPlus, X: x}, nil
	case p.is("!"):
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryArithm{Op: ast.ArithNot, X: x}, nil
	case p.is("~"):
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryArithm{Op: ast.ArithBitNot, X: x}, nil
	case p.is("++"):
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryArithm{Op: ast.ArithInc, X: x}, nil
	case p.is("--"):
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryArithm{Op: ast.ArithDec, X: x}, nil
	}
	return p.postfix()
}

func (p *arithParser) postfix() (ast.ArithmExpr, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		if p.is("++") {
			p.advance()
			x = &ast.UnaryArithm{Op: ast.ArithInc, Post: true, X: x}
			continue
		}
		if p.is("--") {
			p.advance()
			x = &ast.UnaryArithm{Op: ast.ArithDec, Post: true, X: x}
			continue
		}
		break
	}
	return x, nil
}

func (p *arithParser) primary() (ast.ArithmExpr, error) {
	if !p.have {
		return nil, errArith("unexpected end of arithmetic expression")
	}
	if p.is("(") {
		p.advance()
		x, err := p.comma()
		if err != nil {
			return nil, err
		}
		if !p.is(")") {
			return nil, errArith("expected ) in arithmetic expression")
		}
		p.advance()
		return &ast.ParenArithm{X: x}, nil
	}
	if p.tok.kind == "num" || p.tok.kind == "name" {
		lit := &ast.Lit{Value: p.tok.val}
		p.advance()
		return &ast.Word{Parts: []ast.WordPart{lit}}, nil
	}
	return nil, errArith("unexpected token in arithmetic expression: " + p.tok.kind)
}

type arithError string

func (e arithError) Error() string { return string(e) }
func errArith(msg string) error    { return arithError(msg) }
