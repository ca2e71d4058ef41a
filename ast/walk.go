package ast

// Visitor holds a Visit method invoked for each node encountered by Walk.
// If the returned visitor w is non-nil, Walk visits each child of node with
// w, followed by a call to w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

func walkStmts(v Visitor, stmts []*Stmt) {
	for _, s := range stmts {
		Walk(v, s)
	}
}

func walkWords(v Visitor, words []Word) {
	for i := range words {
		Walk(v, &words[i])
	}
}

// Walk traverses an AST in depth-first order, matching spec.md §9's closed,
// exhaustively-matched variant set: every Command/WordPart/ArithmExpr/
// CondExpr case below corresponds 1:1 to a commandNode()/wordPartNode()/
// arithmExprNode()/condExprNode() implementation in types.go.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch x := node.(type) {
	case *File:
		walkStmts(v, x.Stmts)
	case *Stmt:
		if x.Cmd != nil {
			Walk(v, x.Cmd)
		}
		for _, a := range x.Assigns {
			Walk(v, a)
		}
		for _, r := range x.Redirs {
			Walk(v, r)
		}
	case *Assign:
		if x.Name != nil {
			Walk(v, x.Name)
		}
		if x.Array != nil {
			Walk(v, x.Array)
		}
		Walk(v, &x.Value)
	case *Redirect:
		if x.N != nil {
			Walk(v, x.N)
		}
		Walk(v, &x.Word)
		if len(x.Hdoc.Parts) > 0 {
			Walk(v, &x.Hdoc)
		}

	case *SimpleCmd:
		walkWords(v, x.Args)
	case *Pipeline:
		walkStmts(v, x.Stmts)
	case *Connection:
		Walk(v, x.X)
		Walk(v, x.Y)
	case *Group:
		walkStmts(v, x.Stmts)
	case *Subshell:
		walkStmts(v, x.Stmts)
	case *IfClause:
		walkStmts(v, x.Cond)
		walkStmts(v, x.Then)
		for _, e := range x.Elifs {
			walkStmts(v, e.Cond)
			walkStmts(v, e.Then)
		}
		walkStmts(v, x.Else)
	case *WhileClause:
		walkStmts(v, x.Cond)
		walkStmts(v, x.Do)
	case *UntilClause:
		walkStmts(v, x.Cond)
		walkStmts(v, x.Do)
	case *ForClause:
		Walk(v, &x.Name)
		walkWords(v, x.Items)
		walkStmts(v, x.Do)
	case *ArithForClause:
		if x.Init != nil {
			Walk(v, x.Init)
		}
		if x.Cond != nil {
			Walk(v, x.Cond)
		}
		if x.Post != nil {
			Walk(v, x.Post)
		}
		walkStmts(v, x.Do)
	case *SelectClause:
		Walk(v, &x.Name)
		walkWords(v, x.Items)
		walkStmts(v, x.Do)
	case *CaseClause:
		Walk(v, &x.Word)
		for _, arm := range x.Arms {
			walkWords(v, arm.Patterns)
			walkStmts(v, arm.Stmts)
		}
	case *FuncDecl:
		Walk(v, &x.Name)
		Walk(v, x.Body)
	case *ArithCmd:
		if x.X != nil {
			Walk(v, x.X)
		}
	case *CondCmd:
		if x.X != nil {
			Walk(v, x.X)
		}
	case *CoprocClause:
		if x.Name != nil {
			Walk(v, x.Name)
		}
		Walk(v, x.Stmt)

	case *Word:
		for _, p := range x.Parts {
			Walk(v, p)
		}
	case *Lit:
		// leaf
	case *SglQuoted:
		// leaf
	case *DblQuoted:
		for _, p := range x.Parts {
			Walk(v, p)
		}
	case *CmdSubst:
		walkStmts(v, x.Stmts)
	case *ParamExp:
		Walk(v, &x.Param)
		if x.Index != nil {
			Walk(v, &x.Index.Word)
		}
		if x.Slice != nil {
			Walk(v, &x.Slice.Offset)
			Walk(v, &x.Slice.Length)
		}
		if x.Repl != nil {
			Walk(v, &x.Repl.Orig)
			Walk(v, &x.Repl.With)
		}
		if x.Exp != nil {
			Walk(v, &x.Exp.Word)
		}
	case *ArithmExp:
		if x.X != nil {
			Walk(v, x.X)
		}
	case *ProcSubst:
		walkStmts(v, x.Stmts)
	case *ArrayExpr:
		for _, e := range x.Elems {
			if len(e.Index.Parts) > 0 {
				Walk(v, &e.Index)
			}
			Walk(v, &e.Value)
		}
	case *ExtGlob:
		Walk(v, &x.Pattern)

	case *BinaryArithm:
		Walk(v, x.X)
		Walk(v, x.Y)
		if x.Else != nil {
			Walk(v, x.Else)
		}
	case *UnaryArithm:
		Walk(v, x.X)
	case *ParenArithm:
		Walk(v, x.X)

	case *CondWord:
		Walk(v, &x.W)
	case *UnaryCond:
		Walk(v, x.X)
	case *BinaryCond:
		Walk(v, x.X)
		Walk(v, x.Y)
	case *ParenCond:
		Walk(v, x.X)

	default:
		panic("ast.Walk: unexpected node type")
	}

	v.Visit(nil)
}
