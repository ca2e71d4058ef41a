// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"wsh/ast"
	"wsh/parser"
	"wsh/vars"
)

// parseWord parses src as the sole argument of a dummy command and returns
// its Word, so tests can exercise expansion against real parser output
// instead of hand-built AST literals.
func parseWord(t *testing.T, src string) ast.Word {
	t.Helper()
	f, err := parser.Parse(parser.NewSourceString("x "+src+"\n", "<test>"), "<test>")
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	sc := f.Stmts[0].Cmd.(*ast.SimpleCmd)
	return sc.Args[1]
}

func newTestConfig() *Config {
	e := vars.New()
	e.Bind("foo", vars.Variable{Value: vars.StringVal("bar")})
	e.Bind("empty", vars.Variable{Value: vars.StringVal("")})
	return &Config{Vars: e}
}

func TestLiteralParamExp(t *testing.T) {
	c := qt.New(t)
	cfg := newTestConfig()
	w := parseWord(t, "$foo")
	got, err := Literal(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "bar")
}

func TestLiteralDefaultExpansion(t *testing.T) {
	c := qt.New(t)
	cfg := newTestConfig()
	w := parseWord(t, "${missing:-fallback}")
	got, err := Literal(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "fallback")
}

func TestLiteralColonMinusVsMinus(t *testing.T) {
	c := qt.New(t)
	cfg := newTestConfig()
	w1 := parseWord(t, "${empty:-fallback}")
	got1, err := Literal(cfg, w1)
	c.Assert(err, qt.IsNil)
	c.Assert(got1, qt.Equals, "fallback")

	w2 := parseWord(t, "${empty-fallback}")
	got2, err := Literal(cfg, w2)
	c.Assert(err, qt.IsNil)
	c.Assert(got2, qt.Equals, "")
}

func TestFieldsSplitsOnIFS(t *testing.T) {
	c := qt.New(t)
	cfg := newTestConfig()
	cfg.Vars.Bind("list", vars.Variable{Value: vars.StringVal("a b  c")})
	w := parseWord(t, "$list")
	got, err := Fields(cfg, w, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []string{"a", "b", "c"})
}

func TestFieldsQuotedNoSplit(t *testing.T) {
	c := qt.New(t)
	cfg := newTestConfig()
	cfg.Vars.Bind("list", vars.Variable{Value: vars.StringVal("a b c")})
	w := parseWord(t, `"$list"`)
	got, err := Fields(cfg, w, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []string{"a b c"})
}

func TestArithmetic(t *testing.T) {
	c := qt.New(t)
	cfg := newTestConfig()
	w := parseWord(t, "$((1 + 2 * 3))")
	got, err := Literal(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "7")
}

func TestTrimPrefixSuffix(t *testing.T) {
	c := qt.New(t)
	cfg := newTestConfig()
	cfg.Vars.Bind("path", vars.Variable{Value: vars.StringVal("/a/b/c.txt")})
	w := parseWord(t, "${path##*/}")
	got, err := Literal(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "c.txt")
}
