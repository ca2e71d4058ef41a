package ast_test

import (
	"testing"

	"wsh/ast"
)

type countVisitor struct{ n int }

func (c *countVisitor) Visit(node ast.Node) ast.Visitor {
	if node == nil {
		return nil
	}
	c.n++
	return c
}

func TestWalkCountsSimpleCmd(t *testing.T) {
	file := &ast.File{
		Stmts: []*ast.Stmt{
			{
				Cmd: &ast.SimpleCmd{
					Args: []ast.Word{
						{Parts: []ast.WordPart{&ast.Lit{Value: "echo"}}},
						{Parts: []ast.WordPart{&ast.Lit{Value: "hi"}}},
					},
				},
			},
		},
	}
	c := &countVisitor{}
	ast.Walk(c, file)
	// File, Stmt, SimpleCmd, 2 Words, 2 Lits = 7
	if c.n != 7 {
		t.Errorf("visited %d nodes, want 7", c.n)
	}
}

func TestWordLiteral(t *testing.T) {
	w := ast.Word{Parts: []ast.WordPart{
		&ast.Lit{Value: "foo"},
		&ast.SglQuoted{Value: "bar"},
	}}
	got, ok := w.Literal()
	if !ok || got != "foobar" {
		t.Errorf("Literal() = %q, %v; want %q, true", got, ok, "foobar")
	}

	w2 := ast.Word{Parts: []ast.WordPart{&ast.ParamExp{Short: true, Param: ast.Lit{Value: "x"}}}}
	if _, ok := w2.Literal(); ok {
		t.Error("Literal() on a word with a ParamExp should fail")
	}
}
