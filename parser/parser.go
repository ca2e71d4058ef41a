// Package parser implements the wsh front end: component A (Source, an
// input push-down stack), component B (Lexer, tokenizing plus matched-pair
// word structure building), and component C (Parser, the recursive-descent
// grammar below) all live here rather than as three separate packages,
// because B and C are naturally mutually recursive (a "$(...)" word part
// needs a full statement parse; a parenthesized subshell needs the lexer's
// word/operator stream) and keeping them in one package lets that
// recursion happen directly instead of through an exported seam neither
// side actually needs. See ../DESIGN.md for the grounding of each piece.
package parser

import (
	"fmt"

	"wsh/ast"
	"wsh/token"
)

// ParseError reports a syntax error at a source position, in the
// Filename:Line: message shape the teacher's own parser errors use.
type ParseError struct {
	Filename string
	Pos      ast.Pos
	Line     int
	Msg      string
}

func (e *ParseError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("%s:%d: %s", e.Filename, e.Line, e.Msg)
	}
	return fmt.Sprintf("%d: %s", e.Line, e.Msg)
}

// Parser drives the Lexer through the shell grammar, producing an *ast.File.
type Parser struct {
	lx  *Lexer
	tok Tok

	// KeepComments / other knobs could go here; spec.md's parser has none.
}

// New creates a Parser reading from src.
func New(src *Source) *Parser {
	return &Parser{lx: NewLexer(src)}
}

// Parse parses a complete program (spec.md §4.C's top-level entry point).
func Parse(src *Source, name string) (*ast.File, error) {
	p := New(src)
	if err := p.next(); err != nil {
		return nil, err
	}
	stmts, err := p.stmtList(token.EOF)
	if err != nil {
		return nil, err
	}
	return &ast.File{Name: name, Stmts: stmts}, nil
}

func (p *Parser) next() error {
	t, err := p.lx.Next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{Filename: p.lx.src.Name(), Pos: p.tok.Pos, Line: p.lx.src.Line(), Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(k token.Token) (Tok, error) {
	if p.tok.Kind != k {
		return Tok{}, p.errorf("unexpected token %s, wanted %s", p.tok.Kind, k)
	}
	t := p.tok
	if err := p.next(); err != nil {
		return Tok{}, err
	}
	return t, nil
}

func (p *Parser) skipNewlines() error {
	for p.tok.Kind == token.NEWLINE {
		if err := p.next(); err != nil {
			return err
		}
	}
	return nil
}

// stmtList parses statements until a token in end (or EOF) is seen, used
// both at top level and for compound-command bodies whose terminator set
// varies (spec.md §4.C).
func (p *Parser) stmtList(end ...token.Token) ([]*ast.Stmt, error) {
	var stmts []*ast.Stmt
	for {
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		if p.atAny(end...) {
			return stmts, nil
		}
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		if s != nil {
			stmts = append(stmts, s)
		}
		switch p.tok.Kind {
		case token.SEMICOLON, token.NEWLINE:
			if err := p.next(); err != nil {
				return nil, err
			}
		case token.AND:
			if s != nil {
				s.Background = true
			}
			if err := p.next(); err != nil {
				return nil, err
			}
		default:
			if err := p.skipNewlines(); err != nil {
				return nil, err
			}
			if p.atAny(end...) {
				return stmts, nil
			}
			if p.tok.Kind == token.EOF {
				return stmts, nil
			}
		}
	}
}

func (p *Parser) atAny(ks ...token.Token) bool {
	for _, k := range ks {
		if p.tok.Kind == k {
			return true
		}
	}
	return false
}

// statement parses one and-or list optionally preceded by "time"/"!" and
// followed by ";"/"&"/newline, per spec.md §4.C.
func (p *Parser) statement() (*ast.Stmt, error) {
	pos := p.tok.Pos
	negated := false
	if p.tok.Kind == token.BANG {
		negated = true
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if p.tok.Kind == token.TIME {
		if err := p.next(); err != nil {
			return nil, err
		}
		// The keyword is consumed and dropped: nothing in the AST records
		// it, so the pipeline that follows runs untimed and no timing is
		// reported.
	}
	andOr, err := p.andOr()
	if err != nil {
		return nil, err
	}
	if andOr == nil {
		return nil, nil
	}
	andOr.Position = pos
	andOr.Negated = andOr.Negated || negated
	return andOr, nil
}

// andOr parses a pipeline chain joined by "&&"/"||".
func (p *Parser) andOr() (*ast.Stmt, error) {
	left, err := p.pipeline()
	if err != nil {
		return nil, err
	}
	if left == nil {
		return nil, nil
	}
	for p.tok.Kind == token.LAND || p.tok.Kind == token.LOR {
		op := ast.ConnAndIf
		if p.tok.Kind == token.LOR {
			op = ast.ConnOrIf
		}
		opPos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		right, err := p.pipeline()
		if err != nil {
			return nil, err
		}
		if right == nil {
			return nil, p.errorf("expected command after %s", op)
		}
		left = &ast.Stmt{Position: left.Position, Cmd: &ast.Connection{OpPos: opPos, Op: op, X: left, Y: right}}
	}
	return left, nil
}

// pipeline parses "[!] cmd1 | cmd2 | ...".
func (p *Parser) pipeline() (*ast.Stmt, error) {
	negated := false
	if p.tok.Kind == token.BANG {
		negated = true
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	first, err := p.compoundOrSimple()
	if err != nil {
		return nil, err
	}
	if first == nil {
		if negated {
			return nil, p.errorf("expected command after !")
		}
		return nil, nil
	}
	var stmts = []*ast.Stmt{first}
	var connectors []ast.PipeConnector
	for p.tok.Kind == token.OR || p.tok.Kind == token.PIPEALL {
		conn := ast.PipeStdout
		if p.tok.Kind == token.PIPEALL {
			conn = ast.PipeBoth
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		next, err := p.compoundOrSimple()
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, p.errorf("expected command after |")
		}
		connectors = append(connectors, conn)
		stmts = append(stmts, next)
	}
	if len(stmts) == 1 && !negated {
		return stmts[0], nil
	}
	return &ast.Stmt{Position: stmts[0].Position, Cmd: &ast.Pipeline{Stmts: stmts, Connector: connectors, Negated: negated}}, nil
}

// compoundOrSimple parses one command word: a compound command if the
// current token starts one, otherwise a simple command with its leading
// assignments/redirections, per spec.md §4.C.
func (p *Parser) compoundOrSimple() (*ast.Stmt, error) {
	pos := p.tok.Pos
	var assigns []*ast.Assign
	var redirs []*ast.Redirect

	for {
		switch p.tok.Kind {
		case token.ASSIGNMENT_WORD:
			a, err := p.assignment()
			if err != nil {
				return nil, err
			}
			assigns = append(assigns, a)
			continue
		}
		if r, ok, err := p.tryRedirect(); err != nil {
			return nil, err
		} else if ok {
			redirs = append(redirs, r)
			continue
		}
		break
	}

	cmd, err := p.maybeCompound()
	if err != nil {
		return nil, err
	}
	if cmd != nil {
		trailing, err := p.redirects()
		if err != nil {
			return nil, err
		}
		redirs = append(redirs, trailing...)
		return &ast.Stmt{Position: pos, Cmd: cmd, Assigns: assigns, Redirs: redirs}, nil
	}

	if p.tok.Kind != token.WORD {
		if len(assigns) > 0 || len(redirs) > 0 {
			return &ast.Stmt{Position: pos, Cmd: &ast.SimpleCmd{}, Assigns: assigns, Redirs: redirs}, nil
		}
		return nil, nil
	}

	var args []ast.Word
	for {
		if p.tok.Kind == token.WORD {
			if lit, ok := p.tok.Word.Literal(); ok && isFileDescriptor(lit) {
				// an fd number written right before a redirection operator
				// ("1>&2") is part of that redirection, not an argument
				if b, err := p.lx.getc(); err == nil {
					p.lx.ungetc(b)
					if b == '<' || b == '>' {
						r, ok, err := p.tryRedirect()
						if err != nil {
							return nil, err
						}
						if ok {
							redirs = append(redirs, r)
							continue
						}
					}
				}
			}
			args = append(args, *p.tok.Word)
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		if p.tok.Kind == token.ASSIGNMENT_WORD {
			// bash allows "cmd FOO=bar more" to just mean a literal arg
			// word here, since assignment form is only special before the
			// command name; treat it as an ordinary word.
			args = append(args, *p.tok.Word)
			if err := p.next(); err != nil {
				return nil, err
			}
			continue
		}
		if r, ok, err := p.tryRedirect(); err != nil {
			return nil, err
		} else if ok {
			redirs = append(redirs, r)
			continue
		}
		break
	}
	return &ast.Stmt{Position: pos, Cmd: &ast.SimpleCmd{Args: args}, Assigns: assigns, Redirs: redirs}, nil
}

func (p *Parser) assignment() (*ast.Assign, error) {
	t := p.tok
	a := &ast.Assign{
		Name:   &ast.Lit{Value: t.AssignName, ValuePos: t.Pos},
		Append: t.AssignAppend,
		Value:  *t.Word,
	}
	if t.AssignIndex != nil {
		a.Index = *t.AssignIndex
	}
	if len(t.Word.Parts) == 1 {
		if ae, ok := t.Word.Parts[0].(*ast.ArrayExpr); ok {
			a.Array = ae
			a.Value = ast.Word{}
		}
	}
	if len(t.Word.Parts) == 0 {
		a.Naked = true
	}
	return a, p.next()
}

// redirects consumes zero or more trailing redirections.
func (p *Parser) redirects() ([]*ast.Redirect, error) {
	var out []*ast.Redirect
	for {
		r, ok, err := p.tryRedirect()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, r)
	}
}

var redirOps = map[token.Token]ast.RedirOp{
	token.LSS:      ast.RedirIn,
	token.GTR:      ast.RedirOut,
	token.SHR:      ast.RedirAppend,
	token.RDRINOUT: ast.RedirRW,
	token.CLBOUT:   ast.RedirClobber,
	token.DPLIN:    ast.RedirDupIn,
	token.DPLOUT:   ast.RedirDupOut,
	token.WHEREDOC: ast.RedirHerestring,
	token.RDRALL:   ast.RedirAllOut,
	token.APPALL:   ast.RedirAllAppend,
	token.CMDIN:    ast.RedirProcIn,
	token.CMDOUT:   ast.RedirProcOut,
}

func (p *Parser) tryRedirect() (*ast.Redirect, bool, error) {
	var n *ast.Lit
	if p.tok.Kind == token.WORD {
		if lit, ok := p.tok.Word.Literal(); ok && isFileDescriptor(lit) {
			save := p.tok
			if err := p.next(); err != nil {
				return nil, false, err
			}
			if isRedirTok(p.tok.Kind) {
				n = &ast.Lit{Value: lit, ValuePos: save.Pos}
			} else {
				return nil, false, p.errorf("internal: fd-redirect backtrack unsupported")
			}
		}
	}

	if !isRedirTok(p.tok.Kind) {
		return nil, false, nil
	}
	opPos := p.tok.Pos
	opTok := p.tok.Kind

	if opTok == token.SHL || opTok == token.DHEREDOC {
		return p.hereDoc(opPos, opTok, n)
	}

	op, ok := redirOps[opTok]
	if !ok {
		return nil, false, p.errorf("unsupported redirection operator %s", opTok)
	}
	if err := p.next(); err != nil {
		return nil, false, err
	}
	if p.tok.Kind != token.WORD {
		return nil, false, p.errorf("expected word after redirection operator")
	}
	w := *p.tok.Word
	if err := p.next(); err != nil {
		return nil, false, err
	}
	return &ast.Redirect{OpPos: opPos, Op: op, N: n, Word: w}, true, nil
}

func isRedirTok(k token.Token) bool {
	switch k {
	case token.LSS, token.GTR, token.SHL, token.SHR, token.DHEREDOC, token.WHEREDOC,
		token.RDRINOUT, token.DPLIN, token.DPLOUT, token.CLBOUT, token.RDRALL, token.APPALL,
		token.CMDIN, token.CMDOUT:
		return true
	}
	return false
}

func isFileDescriptor(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (p *Parser) hereDoc(opPos ast.Pos, opTok token.Token, n *ast.Lit) (*ast.Redirect, bool, error) {
	strip := opTok == token.DHEREDOC
	op := ast.RedirHeredoc
	if strip {
		op = ast.RedirHeredocStrip
	}
	if err := p.next(); err != nil {
		return nil, false, err
	}
	if p.tok.Kind != token.WORD {
		return nil, false, p.errorf("expected here-document delimiter")
	}
	delimWord := *p.tok.Word
	delim, quoted := delimLiteral(delimWord)
	if quoted {
		op = ast.RedirHeredocQuoted
	}
	// register the body before lexing past the delimiter, so the newline
	// that follows it triggers the gather
	r := &ast.Redirect{OpPos: opPos, Op: op, N: n, Word: delimWord}
	p.lx.AddHeredoc(r, delim, quoted, strip)
	if err := p.next(); err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// delimLiteral returns a here-doc delimiter's comparison text and whether
// any part of it was quoted (which disables backslash processing and
// parameter expansion in the body, per POSIX).
func delimLiteral(w ast.Word) (string, bool) {
	quoted := false
	s := ""
	for _, part := range w.Parts {
		switch x := part.(type) {
		case *ast.Lit:
			s += x.Value
		case *ast.SglQuoted:
			quoted = true
			s += x.Value
		case *ast.DblQuoted:
			quoted = true
			for _, pp := range x.Parts {
				if lit, ok := pp.(*ast.Lit); ok {
					s += lit.Value
				}
			}
		}
	}
	return s, quoted
}

// maybeCompound dispatches on the current token to parse a compound
// command, returning nil if the token doesn't start one (spec.md §4.C).
func (p *Parser) maybeCompound() (ast.Command, error) {
	switch p.tok.Kind {
	case token.LBRACE:
		return p.group()
	case token.LPAREN:
		return p.subshell()
	case token.IF:
		return p.ifClause()
	case token.WHILE:
		return p.whileClause(false)
	case token.UNTIL:
		return p.whileClause(true)
	case token.FOR:
		return p.forClause()
	case token.SELECT:
		return p.selectClause()
	case token.CASE:
		return p.caseClause()
	case token.DLPAREN:
		return p.arithCmd()
	case token.DLBRCK:
		return p.condCmd()
	case token.FUNCTION:
		return p.funcDecl(true)
	case token.COPROC:
		return p.coprocClause()
	case token.WORD:
		if p.tok.FuncParens {
			return p.funcDecl(false)
		}
	}
	return nil, nil
}

func (p *Parser) group() (*ast.Group, error) {
	lb := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	stmts, err := p.stmtList(token.RBRACE)
	if err != nil {
		return nil, err
	}
	rb, err := p.expect(token.RBRACE)
	if err != nil {
		return nil, err
	}
	return &ast.Group{Lbrace: lb, Rbrace: rb.Pos, Stmts: stmts}, nil
}

func (p *Parser) subshell() (*ast.Subshell, error) {
	lp := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	stmts, err := p.stmtList(token.RPAREN)
	if err != nil {
		return nil, err
	}
	rp, err := p.expect(token.RPAREN)
	if err != nil {
		return nil, err
	}
	return &ast.Subshell{Lparen: lp, Rparen: rp.Pos, Stmts: stmts}, nil
}

func (p *Parser) ifClause() (*ast.IfClause, error) {
	ifPos := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	cond, err := p.stmtList(token.THEN)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.THEN); err != nil {
		return nil, err
	}
	then, err := p.stmtList(token.ELIF, token.ELSE, token.FI)
	if err != nil {
		return nil, err
	}
	ic := &ast.IfClause{If: ifPos, Cond: cond, Then: then}
	for p.tok.Kind == token.ELIF {
		elifPos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		ec, err := p.stmtList(token.THEN)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.THEN); err != nil {
			return nil, err
		}
		et, err := p.stmtList(token.ELIF, token.ELSE, token.FI)
		if err != nil {
			return nil, err
		}
		ic.Elifs = append(ic.Elifs, &ast.Elif{Elif: elifPos, Cond: ec, Then: et})
	}
	if p.tok.Kind == token.ELSE {
		if err := p.next(); err != nil {
			return nil, err
		}
		elseStmts, err := p.stmtList(token.FI)
		if err != nil {
			return nil, err
		}
		ic.Else = elseStmts
		ic.HasElse = true
	}
	fi, err := p.expect(token.FI)
	if err != nil {
		return nil, err
	}
	ic.Fi = fi.Pos
	return ic, nil
}

func (p *Parser) whileClause(until bool) (ast.Command, error) {
	start := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	cond, err := p.stmtList(token.DO)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.DO); err != nil {
		return nil, err
	}
	body, err := p.stmtList(token.DONE)
	if err != nil {
		return nil, err
	}
	done, err := p.expect(token.DONE)
	if err != nil {
		return nil, err
	}
	if until {
		return &ast.UntilClause{Until: start, Done: done.Pos, Cond: cond, Do: body}, nil
	}
	return &ast.WhileClause{While: start, Done: done.Pos, Cond: cond, Do: body}, nil
}

func (p *Parser) forClause() (ast.Command, error) {
	forPos := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	// "for" does not start a command, so "((" after it lexes as two "("
	if p.tok.Kind == token.LPAREN {
		return p.arithForClause(forPos)
	}
	if p.tok.Kind != token.WORD {
		return nil, p.errorf("expected name after for")
	}
	lit, _ := p.tok.Word.Literal()
	name := ast.Lit{Value: lit, ValuePos: p.tok.Pos}
	if err := p.next(); err != nil {
		return nil, err
	}
	var items []ast.Word
	hasIn := false
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if p.tok.Kind == token.WORD {
		// "in" after the loop name lexes as a plain word
		if lit, ok := p.tok.Word.Literal(); ok && lit == "in" {
			p.tok.Kind = token.IN
		}
	}
	if p.tok.Kind == token.IN {
		hasIn = true
		if err := p.next(); err != nil {
			return nil, err
		}
		for p.tok.Kind == token.WORD {
			items = append(items, *p.tok.Word)
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	if p.tok.Kind == token.SEMICOLON || p.tok.Kind == token.NEWLINE {
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.DO); err != nil {
		return nil, err
	}
	body, err := p.stmtList(token.DONE)
	if err != nil {
		return nil, err
	}
	done, err := p.expect(token.DONE)
	if err != nil {
		return nil, err
	}
	return &ast.ForClause{For: forPos, Done: done.Pos, Name: name, HasIn: hasIn, Items: items, Do: body}, nil
}

func (p *Parser) arithForClause(forPos ast.Pos) (ast.Command, error) {
	if err := p.next(); err != nil { // consume the first "(" of "(("
		return nil, err
	}
	raw, err := p.lx.readBalancedArith()
	if err != nil {
		return nil, err
	}
	parts := splitArithForClauses(raw)
	afc := &ast.ArithForClause{For: forPos}
	if parts[0] != "" {
		if afc.Init, err = p.lx.parseArith(parts[0]); err != nil {
			return nil, err
		}
	}
	if parts[1] != "" {
		if afc.Cond, err = p.lx.parseArith(parts[1]); err != nil {
			return nil, err
		}
	}
	if parts[2] != "" {
		if afc.Post, err = p.lx.parseArith(parts[2]); err != nil {
			return nil, err
		}
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if p.tok.Kind == token.SEMICOLON {
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.DO); err != nil {
		return nil, err
	}
	body, err := p.stmtList(token.DONE)
	if err != nil {
		return nil, err
	}
	done, err := p.expect(token.DONE)
	if err != nil {
		return nil, err
	}
	afc.Done = done.Pos
	afc.Do = body
	return afc, nil
}

// splitArithForClauses splits "init;cond;post" on top-level semicolons.
func splitArithForClauses(s string) [3]string {
	var parts [3]string
	idx, depth, start := 0, 0, 0
	for i := 0; i < len(s) && idx < 2; i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ';':
			if depth == 0 {
				parts[idx] = s[start:i]
				idx++
				start = i + 1
			}
		}
	}
	parts[idx] = s[start:]
	return parts
}

func (p *Parser) selectClause() (ast.Command, error) {
	selPos := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	if p.tok.Kind != token.WORD {
		return nil, p.errorf("expected name after select")
	}
	lit, _ := p.tok.Word.Literal()
	name := ast.Lit{Value: lit, ValuePos: p.tok.Pos}
	if err := p.next(); err != nil {
		return nil, err
	}
	var items []ast.Word
	hasIn := false
	if p.tok.Kind == token.IN {
		hasIn = true
		if err := p.next(); err != nil {
			return nil, err
		}
		for p.tok.Kind == token.WORD {
			items = append(items, *p.tok.Word)
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	if p.tok.Kind == token.SEMICOLON || p.tok.Kind == token.NEWLINE {
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.DO); err != nil {
		return nil, err
	}
	body, err := p.stmtList(token.DONE)
	if err != nil {
		return nil, err
	}
	done, err := p.expect(token.DONE)
	if err != nil {
		return nil, err
	}
	return &ast.SelectClause{Select: selPos, Done: done.Pos, Name: name, HasIn: hasIn, Items: items, Do: body}, nil
}

func (p *Parser) caseClause() (ast.Command, error) {
	casePos := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	if p.tok.Kind != token.WORD {
		return nil, p.errorf("expected word after case")
	}
	w := *p.tok.Word
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if p.tok.Kind == token.WORD {
		// "in" after the case word lexes as a plain word
		if lit, ok := p.tok.Word.Literal(); ok && lit == "in" {
			p.tok.Kind = token.IN
		}
	}
	if _, err := p.expect(token.IN); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	cc := &ast.CaseClause{Case: casePos, Word: w}
	p.lx.SetCasePattern(true)
	for p.tok.Kind != token.ESAC {
		if p.tok.Kind == token.LPAREN {
			if err := p.next(); err != nil {
				return nil, err
			}
		}
		var patterns []ast.Word
		for {
			if p.tok.Kind != token.WORD {
				return nil, p.errorf("expected case pattern")
			}
			patterns = append(patterns, *p.tok.Word)
			if err := p.next(); err != nil {
				return nil, err
			}
			if p.tok.Kind == token.OR {
				if err := p.next(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		p.lx.SetCasePattern(false)
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		stmts, err := p.stmtList(token.DSEMICOLON, token.SEMIFALL, token.DSEMIFALL, token.ESAC)
		if err != nil {
			return nil, err
		}
		op := ast.CaseBreak
		switch p.tok.Kind {
		case token.SEMIFALL:
			op = ast.CaseFallthru
		case token.DSEMIFALL:
			op = ast.CaseTestNext
		}
		if p.tok.Kind != token.ESAC {
			if err := p.next(); err != nil {
				return nil, err
			}
		}
		cc.Arms = append(cc.Arms, &ast.CaseArm{Patterns: patterns, Stmts: stmts, Op: op})
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		p.lx.SetCasePattern(true)
	}
	p.lx.SetCasePattern(false)
	esac, err := p.expect(token.ESAC)
	if err != nil {
		return nil, err
	}
	cc.Esac = esac.Pos
	return cc, nil
}

func (p *Parser) arithCmd() (ast.Command, error) {
	lp := p.tok.Pos
	raw, err := p.lx.readBalancedArith()
	if err != nil {
		return nil, err
	}
	x, err := p.lx.parseArith(raw)
	if err != nil {
		return nil, err
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	return &ast.ArithCmd{Left: lp, Right: p.tok.Pos, X: x}, nil
}

func (p *Parser) condCmd() (ast.Command, error) {
	lb := p.tok.Pos
	p.lx.SetCondExpr(true)
	if err := p.next(); err != nil {
		return nil, err
	}
	x, err := p.condOr()
	if err != nil {
		return nil, err
	}
	p.lx.SetCondExpr(false)
	rb, err := p.expect(token.DRBRCK)
	if err != nil {
		return nil, err
	}
	return &ast.CondCmd{Left: lb, Right: rb.Pos, X: x}, nil
}

func (p *Parser) funcDecl(bashStyle bool) (ast.Command, error) {
	pos := p.tok.Pos
	if bashStyle {
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if p.tok.Kind != token.WORD {
		return nil, p.errorf("expected function name")
	}
	lit, _ := p.tok.Word.Literal()
	name := ast.Lit{Value: lit, ValuePos: p.tok.Pos}
	if err := p.next(); err != nil {
		return nil, err
	}
	if p.tok.Kind == token.LPAREN {
		if err := p.next(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if p.tok.Kind == token.WORD {
		// "{" right after "name()" lexes as a plain word
		if lit, ok := p.tok.Word.Literal(); ok && lit == "{" {
			p.tok.Kind = token.LBRACE
			p.lx.prevTok = token.LBRACE
		}
	}
	body, err := p.compoundOrSimple()
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, p.errorf("expected function body")
	}
	return &ast.FuncDecl{Position: pos, BashStyle: bashStyle, Name: name, Body: body}, nil
}

func (p *Parser) coprocClause() (ast.Command, error) {
	pos := p.tok.Pos
	if err := p.next(); err != nil {
		return nil, err
	}
	var name *ast.Lit
	if p.tok.Kind == token.WORD {
		if lit, ok := p.tok.Word.Literal(); ok {
			name = &ast.Lit{Value: lit, ValuePos: p.tok.Pos}
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	stmt, err := p.compoundOrSimple()
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		return nil, p.errorf("expected command after coproc")
	}
	return &ast.CoprocClause{Coproc: pos, Name: name, Stmt: stmt}, nil
}

// parseSubStmts parses text as a fresh nested program, used for $(...) and
// `...` command substitutions (spec.md §9's matched-pair recursion).
func (l *Lexer) parseSubStmts(text, name string) ([]*ast.Stmt, error) {
	sub := New(NewSourceString(text, name))
	if err := sub.next(); err != nil {
		return nil, err
	}
	return sub.stmtList(token.EOF)
}

// ParseWords parses src as a bare, command-less sequence of words
// separated by blanks (no reserved-word or redirection handling applies),
// for callers that only need field-split/expanded words out of a string
// rather than a full statement tree (e.g. the shell package's Fields).
func ParseWords(src *Source, name string) ([]ast.Word, error) {
	p := New(src)
	// no word is in command position, so none lexes as a reserved word
	// or an assignment
	p.lx.prevTok = token.WORD
	if err := p.next(); err != nil {
		return nil, err
	}
	var words []ast.Word
	for p.tok.Kind == token.WORD {
		words = append(words, *p.tok.Word)
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if p.tok.Kind != token.EOF {
		return words, p.errorf("unexpected token after word list")
	}
	return words, nil
}

// parseSubWords parses text as a sequence of words, used for array
// subscripts and a handful of other word-only contexts.
func (l *Lexer) parseSubWords(text, name string) ([]ast.Word, bool, error) {
	sub := New(NewSourceString(text, name))
	if err := sub.next(); err != nil {
		return nil, false, err
	}
	var words []ast.Word
	for sub.tok.Kind == token.WORD {
		words = append(words, *sub.tok.Word)
		if err := sub.next(); err != nil {
			return nil, false, err
		}
	}
	return words, true, nil
}
