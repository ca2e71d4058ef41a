// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"wsh/ast"
)

func litWord(s string) ast.Word {
	return ast.Word{Parts: []ast.WordPart{&ast.Lit{Value: s}}}
}

func wordTexts(words []ast.Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		lit, _ := w.Literal()
		out[i] = lit
	}
	return out
}

var braceTests = []struct {
	in   string
	want []string
}{
	{"a{b", []string{"a{b"}},
	{"a}b", []string{"a}b"}},
	{"{a,b}", []string{"a", "b"}},
	{"a{b,c}d", []string{"abd", "acd"}},
	{"{a,b{c,d}}", []string{"a", "bc", "bd"}},
	{"{1..3}", []string{"1", "2", "3"}},
	{"{3..1}", []string{"3", "2", "1"}},
	{"{a..c}", []string{"a", "b", "c"}},
	{"{01..03}", []string{"01", "02", "03"}},
	{"{1..5..2}", []string{"1", "3", "5"}},
	{"foo{}", []string{"foo{}"}},
}

func TestBraces(t *testing.T) {
	c := qt.New(t)
	for _, tc := range braceTests {
		got := wordTexts(Braces(litWord(tc.in)))
		c.Assert(got, qt.DeepEquals, tc.want, qt.Commentf("input: %q", tc.in))
	}
}
