// Package printer renders an *ast.File back to shell source text,
// satisfying the parse/print round-trip spec.md §8 requires of the core.
// Grounded on the teacher's own printer (bufio.Writer-backed, per-node
// switch, explicit indent-level bookkeeping) but much simpler: our ast
// carries no comment or exact-column metadata to re-align, so this printer
// reproduces semantics and conventional formatting rather than
// byte-for-byte original layout.
package printer

import (
	"bufio"
	"io"

	"wsh/ast"
)

// Config controls output formatting.
type Config struct {
	Spaces int // 0 (default) for tabs, >0 for number of spaces
}

// Fprint pretty-prints f to w using the default configuration.
func Fprint(w io.Writer, f *ast.File) error {
	return Config{}.Fprint(w, f)
}

// Fprint pretty-prints f to w.
func (c Config) Fprint(w io.Writer, f *ast.File) error {
	p := &printer{c: c, bw: bufio.NewWriter(w)}
	p.stmtList(f.Stmts)
	return p.bw.Flush()
}

type printer struct {
	c     Config
	bw    *bufio.Writer
	level int
}

func (p *printer) indent() {
	if p.c.Spaces > 0 {
		for i := 0; i < p.level*p.c.Spaces; i++ {
			p.bw.WriteByte(' ')
		}
		return
	}
	for i := 0; i < p.level; i++ {
		p.bw.WriteByte('\t')
	}
}

func (p *printer) stmtList(stmts []*ast.Stmt) {
	for i, s := range stmts {
		if i > 0 {
			p.bw.WriteByte('\n')
		}
		p.indent()
		p.stmt(s)
	}
}

func (p *printer) stmt(s *ast.Stmt) {
	if s.Negated {
		p.bw.WriteString("! ")
	}
	for i, a := range s.Assigns {
		if i > 0 {
			p.bw.WriteByte(' ')
		}
		p.assign(a)
		p.bw.WriteByte(' ')
	}
	if s.Cmd != nil {
		p.command(s.Cmd)
	}
	for _, r := range s.Redirs {
		p.bw.WriteByte(' ')
		p.redirect(r)
	}
	if s.Background {
		p.bw.WriteString(" &")
	}
}

func (p *printer) assign(a *ast.Assign) {
	p.bw.WriteString(a.Name.Value)
	if a.Index.Parts != nil || len(a.Index.Parts) > 0 {
		p.bw.WriteByte('[')
		p.word(a.Index)
		p.bw.WriteByte(']')
	}
	if a.Append {
		p.bw.WriteByte('+')
	}
	p.bw.WriteByte('=')
	if a.Array != nil {
		p.bw.WriteByte('(')
		for i, e := range a.Array.Elems {
			if i > 0 {
				p.bw.WriteByte(' ')
			}
			if len(e.Index.Parts) > 0 {
				p.bw.WriteByte('[')
				p.word(e.Index)
				p.bw.WriteString("]=")
			}
			p.word(e.Value)
		}
		p.bw.WriteByte(')')
	} else if !a.Naked {
		p.word(a.Value)
	}
}

var redirSpelling = map[ast.RedirOp]string{
	ast.RedirOut: ">", ast.RedirIn: "<", ast.RedirAppend: ">>",
	ast.RedirRW: "<>", ast.RedirClobber: ">|",
	ast.RedirDupIn: "<&", ast.RedirDupOut: ">&",
	ast.RedirHeredoc: "<<", ast.RedirHeredocStrip: "<<-", ast.RedirHeredocQuoted: "<<",
	ast.RedirHerestring: "<<<",
	ast.RedirAllOut:      "&>", ast.RedirAllAppend: "&>>",
	ast.RedirProcIn: "<(", ast.RedirProcOut: ">(",
}

func (p *printer) redirect(r *ast.Redirect) {
	if r.N != nil {
		p.bw.WriteString(r.N.Value)
	}
	p.bw.WriteString(redirSpelling[r.Op])
	p.word(r.Word)
}

func (p *printer) command(cmd ast.Command) {
	switch x := cmd.(type) {
	case *ast.SimpleCmd:
		for i, a := range x.Args {
			if i > 0 {
				p.bw.WriteByte(' ')
			}
			p.word(a)
		}
	case *ast.Pipeline:
		if x.Negated {
			p.bw.WriteString("! ")
		}
		for i, s := range x.Stmts {
			if i > 0 {
				if x.Connector[i-1] == ast.PipeBoth {
					p.bw.WriteString(" |& ")
				} else {
					p.bw.WriteString(" | ")
				}
			}
			p.stmt(s)
		}
	case *ast.Connection:
		p.stmt(x.X)
		switch x.Op {
		case ast.ConnAndIf:
			p.bw.WriteString(" && ")
		case ast.ConnOrIf:
			p.bw.WriteString(" || ")
		}
		p.stmt(x.Y)
	case *ast.Group:
		p.bw.WriteString("{ ")
		p.nested(x.Stmts)
		p.indent()
		p.bw.WriteString("; }")
	case *ast.Subshell:
		p.bw.WriteByte('(')
		p.nested(x.Stmts)
		p.indent()
		p.bw.WriteByte(')')
	case *ast.IfClause:
		p.bw.WriteString("if ")
		p.stmtList(x.Cond)
		p.bw.WriteString("; then\n")
		p.nested(x.Then)
		for _, e := range x.Elifs {
			p.indent()
			p.bw.WriteString("elif ")
			p.stmtList(e.Cond)
			p.bw.WriteString("; then\n")
			p.nested(e.Then)
		}
		if x.HasElse {
			p.indent()
			p.bw.WriteString("else\n")
			p.nested(x.Else)
		}
		p.indent()
		p.bw.WriteString("fi")
	case *ast.WhileClause:
		p.bw.WriteString("while ")
		p.stmtList(x.Cond)
		p.bw.WriteString("; do\n")
		p.nested(x.Do)
		p.indent()
		p.bw.WriteString("done")
	case *ast.UntilClause:
		p.bw.WriteString("until ")
		p.stmtList(x.Cond)
		p.bw.WriteString("; do\n")
		p.nested(x.Do)
		p.indent()
		p.bw.WriteString("done")
	case *ast.ForClause:
		p.bw.WriteString("for ")
		p.bw.WriteString(x.Name.Value)
		if x.HasIn {
			p.bw.WriteString(" in")
			for _, w := range x.Items {
				p.bw.WriteByte(' ')
				p.word(w)
			}
		}
		p.bw.WriteString("; do\n")
		p.nested(x.Do)
		p.indent()
		p.bw.WriteString("done")
	case *ast.ArithForClause:
		p.bw.WriteString("for ((")
		if x.Init != nil {
			p.arithm(x.Init)
		}
		p.bw.WriteString("; ")
		if x.Cond != nil {
			p.arithm(x.Cond)
		}
		p.bw.WriteString("; ")
		if x.Post != nil {
			p.arithm(x.Post)
		}
		p.bw.WriteString(")); do\n")
		p.nested(x.Do)
		p.indent()
		p.bw.WriteString("done")
	case *ast.SelectClause:
		p.bw.WriteString("select ")
		p.bw.WriteString(x.Name.Value)
		if x.HasIn {
			p.bw.WriteString(" in")
			for _, w := range x.Items {
				p.bw.WriteByte(' ')
				p.word(w)
			}
		}
		p.bw.WriteString("; do\n")
		p.nested(x.Do)
		p.indent()
		p.bw.WriteString("done")
	case *ast.CaseClause:
		p.bw.WriteString("case ")
		p.word(x.Word)
		p.bw.WriteString(" in\n")
		p.level++
		for _, arm := range x.Arms {
			p.indent()
			for i, pat := range arm.Patterns {
				if i > 0 {
					p.bw.WriteString(" | ")
				}
				p.word(pat)
			}
			p.bw.WriteString(")\n")
			p.nested(arm.Stmts)
			p.level++
			p.indent()
			switch arm.Op {
			case ast.CaseFallthru:
				p.bw.WriteString(";&\n")
			case ast.CaseTestNext:
				p.bw.WriteString(";;&\n")
			default:
				p.bw.WriteString(";;\n")
			}
			p.level--
		}
		p.level--
		p.indent()
		p.bw.WriteString("esac")
	case *ast.FuncDecl:
		if x.BashStyle {
			p.bw.WriteString("function ")
		}
		p.bw.WriteString(x.Name.Value)
		p.bw.WriteString("() ")
		p.stmt(x.Body)
	case *ast.ArithCmd:
		p.bw.WriteString("((")
		if x.X != nil {
			p.arithm(x.X)
		}
		p.bw.WriteString("))")
	case *ast.CondCmd:
		p.bw.WriteString("[[ ")
		if x.X != nil {
			p.condExpr(x.X)
		}
		p.bw.WriteString(" ]]")
	case *ast.CoprocClause:
		p.bw.WriteString("coproc ")
		if x.Name != nil {
			p.bw.WriteString(x.Name.Value)
			p.bw.WriteByte(' ')
		}
		p.stmt(x.Stmt)
	}
}

func (p *printer) nested(stmts []*ast.Stmt) {
	p.level++
	for _, s := range stmts {
		p.indent()
		p.stmt(s)
		p.bw.WriteByte('\n')
	}
	p.level--
}

func (p *printer) word(w ast.Word) {
	for _, part := range w.Parts {
		p.wordPart(part)
	}
}

func (p *printer) wordPart(wp ast.WordPart) {
	switch x := wp.(type) {
	case *ast.Lit:
		p.bw.WriteString(x.Value)
	case *ast.SglQuoted:
		if x.Dollar {
			p.bw.WriteByte('$')
		}
		p.bw.WriteByte('\'')
		p.bw.WriteString(x.Value)
		p.bw.WriteByte('\'')
	case *ast.DblQuoted:
		if x.Dollar {
			p.bw.WriteByte('$')
		}
		p.bw.WriteByte('"')
		for _, n := range x.Parts {
			p.wordPart(n)
		}
		p.bw.WriteByte('"')
	case *ast.CmdSubst:
		if x.Backquotes {
			p.bw.WriteByte('`')
			p.stmtList(x.Stmts)
			p.bw.WriteByte('`')
		} else {
			p.bw.WriteString("$(")
			p.stmtList(x.Stmts)
			p.bw.WriteByte(')')
		}
	case *ast.ParamExp:
		if x.Short {
			p.bw.WriteByte('$')
			p.bw.WriteString(x.Param.Value)
			return
		}
		p.bw.WriteString("${")
		if x.Length {
			p.bw.WriteByte('#')
		}
		if x.Indirect {
			p.bw.WriteByte('!')
		}
		p.bw.WriteString(x.Param.Value)
		if x.Index != nil {
			p.bw.WriteByte('[')
			p.word(x.Index.Word)
			p.bw.WriteByte(']')
		}
		if x.Slice != nil {
			p.bw.WriteByte(':')
			p.word(x.Slice.Offset)
			if len(x.Slice.Length.Parts) > 0 {
				p.bw.WriteByte(':')
				p.word(x.Slice.Length)
			}
		}
		if x.Repl != nil {
			if x.Repl.All {
				p.bw.WriteByte('/')
			}
			p.bw.WriteByte('/')
			p.word(x.Repl.Orig)
			p.bw.WriteByte('/')
			p.word(x.Repl.With)
		} else if x.Exp != nil {
			p.expansionOp(x.Exp.Op)
			p.word(x.Exp.Word)
		}
		p.bw.WriteByte('}')
	case *ast.ArithmExp:
		if x.Bracket {
			p.bw.WriteByte('$')
			p.bw.WriteByte('[')
			p.arithm(x.X)
			p.bw.WriteByte(']')
		} else {
			p.bw.WriteString("$((")
			p.arithm(x.X)
			p.bw.WriteString("))")
		}
	case *ast.ProcSubst:
		if x.Op == ast.ProcIn {
			p.bw.WriteString("<(")
		} else {
			p.bw.WriteString(">(")
		}
		p.stmtList(x.Stmts)
		p.bw.WriteByte(')')
	case *ast.ArrayExpr:
		p.bw.WriteByte('(')
		for i, e := range x.Elems {
			if i > 0 {
				p.bw.WriteByte(' ')
			}
			if len(e.Index.Parts) > 0 {
				p.bw.WriteByte('[')
				p.word(e.Index)
				p.bw.WriteString("]=")
			}
			p.word(e.Value)
		}
		p.bw.WriteByte(')')
	case *ast.ExtGlob:
		p.bw.WriteString(globOpSpelling(x.Op))
		p.bw.WriteString(x.Pattern.Value)
		p.bw.WriteByte(')')
	}
}

func globOpSpelling(op ast.GlobOp) string {
	switch op {
	case ast.GlobZeroOrMore:
		return "*("
	case ast.GlobOneOrMore:
		return "+("
	case ast.GlobZeroOrOne:
		return "?("
	case ast.GlobAny:
		return "@("
	default:
		return "!("
	}
}

var parExpOpSpelling = map[ast.ParExpOperator]string{
	ast.ParExpColonMinus: ":-", ast.ParExpMinus: "-",
	ast.ParExpColonPlus: ":+", ast.ParExpPlus: "+",
	ast.ParExpColonEquals: ":=", ast.ParExpEquals: "=",
	ast.ParExpColonQuestion: ":?", ast.ParExpQuestion: "?",
	ast.ParExpRemoveShortSuffix: "%", ast.ParExpRemoveLongSuffix: "%%",
	ast.ParExpRemoveShortPrefix: "#", ast.ParExpRemoveLongPrefix: "##",
	ast.ParExpUpperFirst: "^", ast.ParExpUpperAll: "^^",
	ast.ParExpLowerFirst: ",", ast.ParExpLowerAll: ",,",
}

func (p *printer) expansionOp(op ast.ParExpOperator) {
	p.bw.WriteString(parExpOpSpelling[op])
}

var arithOpSpelling = map[ast.ArithOp]string{
	ast.ArithAdd: "+", ast.ArithSub: "-", ast.ArithMul: "*", ast.ArithQuo: "/",
	ast.ArithRem: "%", ast.ArithPow: "**", ast.ArithAnd: "&", ast.ArithOr: "|",
	ast.ArithXor: "^", ast.ArithShl: "<<", ast.ArithShr: ">>",
	ast.ArithLand: "&&", ast.ArithLor: "||",
	ast.ArithEql: "==", ast.ArithNeq: "!=", ast.ArithLeq: "<=", ast.ArithGeq: ">=",
	ast.ArithLss: "<", ast.ArithGtr: ">", ast.ArithAssign: "=",
	ast.ArithAddAssign: "+=", ast.ArithSubAssign: "-=", ast.ArithMulAssign: "*=",
	ast.ArithQuoAssign: "/=", ast.ArithRemAssign: "%=", ast.ArithAndAssign: "&=",
	ast.ArithOrAssign: "|=", ast.ArithXorAssign: "^=", ast.ArithShlAssign: "<<=",
	ast.ArithShrAssign: ">>=", ast.ArithComma: ",",
}

func (p *printer) arithm(x ast.ArithmExpr) {
	switch v := x.(type) {
	case *ast.Word:
		p.word(*v)
	case *ast.BinaryArithm:
		if v.Op == ast.ArithTernary {
			p.arithm(v.X)
			p.bw.WriteString(" ? ")
			p.arithm(v.Y)
			p.bw.WriteString(" : ")
			p.arithm(v.Else)
			return
		}
		p.arithm(v.X)
		p.bw.WriteString(arithOpSpelling[v.Op])
		p.arithm(v.Y)
	case *ast.UnaryArithm:
		if v.Post {
			p.arithm(v.X)
			p.bw.WriteString(unaryArithSpelling(v.Op))
		} else {
			p.bw.WriteString(unaryArithSpelling(v.Op))
			p.arithm(v.X)
		}
	case *ast.ParenArithm:
		p.bw.WriteByte('(')
		p.arithm(v.X)
		p.bw.WriteByte(')')
	}
}

func unaryArithSpelling(op ast.ArithOp) string {
	switch op {
	case ast.ArithInc:
		return "++"
	case ast.ArithDec:
		return "--"
	case ast.ArithNot:
		return "!"
	case ast.ArithBitNot:
		return "~"
	case ast.ArithUnaryMinus:
		return "-"
	default:
		return "+"
	}
}

func (p *printer) condExpr(x ast.CondExpr) {
	switch v := x.(type) {
	case *ast.CondWord:
		p.word(v.W)
	case *ast.UnaryCond:
		p.bw.WriteString(condUnarySpelling(v.Op))
		p.bw.WriteByte(' ')
		p.condExpr(v.X)
	case *ast.BinaryCond:
		p.condExpr(v.X)
		p.bw.WriteByte(' ')
		p.bw.WriteString(condBinarySpelling(v.Op))
		p.bw.WriteByte(' ')
		p.condExpr(v.Y)
	case *ast.ParenCond:
		p.bw.WriteByte('(')
		p.condExpr(v.X)
		p.bw.WriteByte(')')
	}
}

func condUnarySpelling(op ast.CondUnaryOp) string {
	switch op {
	case ast.CondNot:
		return "!"
	case ast.CondExists:
		return "-e"
	case ast.CondRegFile:
		return "-f"
	case ast.CondDirectory:
		return "-d"
	case ast.CondCharSpecial:
		return "-c"
	case ast.CondBlockSpecial:
		return "-b"
	case ast.CondNamedPipe:
		return "-p"
	case ast.CondSocket:
		return "-S"
	case ast.CondSymlink:
		return "-L"
	case ast.CondSetGID:
		return "-g"
	case ast.CondSetUID:
		return "-u"
	case ast.CondReadable:
		return "-r"
	case ast.CondWritable:
		return "-w"
	case ast.CondExecutable:
		return "-x"
	case ast.CondNonEmpty:
		return "-s"
	case ast.CondTermFD:
		return "-t"
	case ast.CondOptionSet:
		return "-o"
	case ast.CondVarSet:
		return "-v"
	case ast.CondNameref:
		return "-R"
	case ast.CondStringEmpty:
		return "-z"
	default: // CondStringNonEmpty
		return "-n"
	}
}

func condBinarySpelling(op ast.CondBinaryOp) string {
	switch op {
	case ast.CondAnd:
		return "&&"
	case ast.CondOr:
		return "||"
	case ast.CondStrEql:
		return "=="
	case ast.CondStrNeq:
		return "!="
	case ast.CondStrLss:
		return "<"
	case ast.CondStrGtr:
		return ">"
	case ast.CondRegexMatch:
		return "=~"
	case ast.CondNewer:
		return "-nt"
	case ast.CondOlder:
		return "-ot"
	case ast.CondSameFile:
		return "-ef"
	case ast.CondNumEq:
		return "-eq"
	case ast.CondNumNe:
		return "-ne"
	case ast.CondNumLe:
		return "-le"
	case ast.CondNumGe:
		return "-ge"
	case ast.CondNumLt:
		return "-lt"
	default: // CondNumGt
		return "-gt"
	}
}
