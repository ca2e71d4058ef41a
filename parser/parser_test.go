package parser_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"wsh/ast"
	"wsh/parser"
)

func parseOne(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := parser.Parse(parser.NewSourceString(src, "<test>"), "<test>")
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return f
}

func litArgs(t *testing.T, s *ast.SimpleCmd) []string {
	t.Helper()
	var out []string
	for _, w := range s.Args {
		lit, ok := w.Literal()
		if !ok {
			t.Fatalf("arg %+v is not a plain literal", w)
		}
		out = append(out, lit)
	}
	return out
}

func TestParseSimpleCmd(t *testing.T) {
	c := qt.New(t)
	f := parseOne(t, "echo hello world\n")
	c.Assert(f.Stmts, qt.HasLen, 1)
	sc, ok := f.Stmts[0].Cmd.(*ast.SimpleCmd)
	c.Assert(ok, qt.IsTrue)
	c.Assert(litArgs(t, sc), qt.DeepEquals, []string{"echo", "hello", "world"})
}

func TestParsePipeline(t *testing.T) {
	c := qt.New(t)
	f := parseOne(t, "a | b | c\n")
	pl, ok := f.Stmts[0].Cmd.(*ast.Pipeline)
	c.Assert(ok, qt.IsTrue)
	c.Assert(pl.Stmts, qt.HasLen, 3)
}

func TestParseAndOr(t *testing.T) {
	c := qt.New(t)
	f := parseOne(t, "a && b || c\n")
	conn, ok := f.Stmts[0].Cmd.(*ast.Connection)
	c.Assert(ok, qt.IsTrue)
	c.Assert(conn.Op, qt.Equals, ast.ConnOrIf)
}

func TestParseIfClause(t *testing.T) {
	c := qt.New(t)
	f := parseOne(t, "if true; then echo yes; else echo no; fi\n")
	ic, ok := f.Stmts[0].Cmd.(*ast.IfClause)
	c.Assert(ok, qt.IsTrue)
	c.Assert(ic.HasElse, qt.IsTrue)
	c.Assert(ic.Then, qt.HasLen, 1)
}

func TestParseForClause(t *testing.T) {
	c := qt.New(t)
	f := parseOne(t, "for x in a b c; do echo $x; done\n")
	fc, ok := f.Stmts[0].Cmd.(*ast.ForClause)
	c.Assert(ok, qt.IsTrue)
	c.Assert(fc.Name.Value, qt.Equals, "x")
	c.Assert(fc.Items, qt.HasLen, 3)
}

func TestParseAssignment(t *testing.T) {
	c := qt.New(t)
	f := parseOne(t, "FOO=bar echo hi\n")
	c.Assert(f.Stmts[0].Assigns, qt.HasLen, 1)
	c.Assert(f.Stmts[0].Assigns[0].Name.Value, qt.Equals, "FOO")
}

func TestParseRedirect(t *testing.T) {
	c := qt.New(t)
	f := parseOne(t, "echo hi > out.txt\n")
	c.Assert(f.Stmts[0].Redirs, qt.HasLen, 1)
	c.Assert(f.Stmts[0].Redirs[0].Op, qt.Equals, ast.RedirOut)
}

func TestParseHeredoc(t *testing.T) {
	c := qt.New(t)
	f := parseOne(t, "cat <<EOF\nhello\nEOF\n")
	c.Assert(f.Stmts[0].Redirs, qt.HasLen, 1)
	lit, _ := f.Stmts[0].Redirs[0].Hdoc.Literal()
	c.Assert(lit, qt.Equals, "hello\n")
}

func TestParseCmdSubst(t *testing.T) {
	c := qt.New(t)
	f := parseOne(t, "echo $(echo hi)\n")
	sc := f.Stmts[0].Cmd.(*ast.SimpleCmd)
	c.Assert(sc.Args, qt.HasLen, 2)
	_, ok := sc.Args[1].Parts[0].(*ast.CmdSubst)
	c.Assert(ok, qt.IsTrue)
}

func TestParseArithCmd(t *testing.T) {
	c := qt.New(t)
	f := parseOne(t, "((x = 1 + 2))\n")
	ac, ok := f.Stmts[0].Cmd.(*ast.ArithCmd)
	c.Assert(ok, qt.IsTrue)
	bin, ok := ac.X.(*ast.BinaryArithm)
	c.Assert(ok, qt.IsTrue)
	c.Assert(bin.Op, qt.Equals, ast.ArithAssign)
}

func TestParseCondCmd(t *testing.T) {
	c := qt.New(t)
	f := parseOne(t, "[[ -f foo.txt ]]\n")
	cc, ok := f.Stmts[0].Cmd.(*ast.CondCmd)
	c.Assert(ok, qt.IsTrue)
	uc, ok := cc.X.(*ast.UnaryCond)
	c.Assert(ok, qt.IsTrue)
	c.Assert(uc.Op, qt.Equals, ast.CondRegFile)
}

func TestParseFuncDecl(t *testing.T) {
	c := qt.New(t)
	f := parseOne(t, "greet() { echo hi; }\n")
	fd, ok := f.Stmts[0].Cmd.(*ast.FuncDecl)
	c.Assert(ok, qt.IsTrue)
	c.Assert(fd.Name.Value, qt.Equals, "greet")
}

func TestParseCaseClause(t *testing.T) {
	c := qt.New(t)
	f := parseOne(t, "case $x in a) echo A;; b|c) echo BC;; esac\n")
	cc, ok := f.Stmts[0].Cmd.(*ast.CaseClause)
	c.Assert(ok, qt.IsTrue)
	c.Assert(cc.Arms, qt.HasLen, 2)
	c.Assert(cc.Arms[1].Patterns, qt.HasLen, 2)
}
