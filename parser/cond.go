package parser

import (
	"wsh/ast"
	"wsh/token"
)

// condOr/condAnd/condNot/condPrimary implement the `[[ ... ]]` conditional
// expression grammar (spec.md §4.C's cond-expr sub-grammar), a small
// precedence-climbing parser separate from the general word grammar since
// `[[ ]]` bodies have their own unary/binary test operators.
func (p *Parser) condOr() (ast.CondExpr, error) {
	left, err := p.condAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == token.LOR {
		opPos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.condAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryCond{OpPos: opPos, Op: ast.CondOr, X: left, Y: right}
	}
	return left, nil
}

func (p *Parser) condAnd() (ast.CondExpr, error) {
	left, err := p.condNot()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == token.LAND {
		opPos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.condNot()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryCond{OpPos: opPos, Op: ast.CondAnd, X: left, Y: right}
	}
	return left, nil
}

func (p *Parser) condNot() (ast.CondExpr, error) {
	if p.tok.Kind == token.NOT {
		opPos := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		x, err := p.condNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryCond{OpPos: opPos, Op: ast.CondNot, X: x}, nil
	}
	return p.condPrimary()
}

var condUnaryOps = map[string]ast.CondUnaryOp{
	"-e": ast.CondExists, "-f": ast.CondRegFile, "-d": ast.CondDirectory,
	"-c": ast.CondCharSpecial, "-b": ast.CondBlockSpecial, "-p": ast.CondNamedPipe,
	"-S": ast.CondSocket, "-L": ast.CondSymlink, "-h": ast.CondSymlink,
	"-g": ast.CondSetGID, "-u": ast.CondSetUID,
	"-r": ast.CondReadable, "-w": ast.CondWritable, "-x": ast.CondExecutable,
	"-s": ast.CondNonEmpty, "-t": ast.CondTermFD,
	"-o": ast.CondOptionSet, "-v": ast.CondVarSet, "-R": ast.CondNameref,
	"-z": ast.CondStringEmpty, "-n": ast.CondStringNonEmpty,
}

var condBinaryOps = map[string]ast.CondBinaryOp{
	"==": ast.CondStrEql, "=": ast.CondStrEql, "!=": ast.CondStrNeq,
	"<": ast.CondStrLss, ">": ast.CondStrGtr, "=~": ast.CondRegexMatch,
	"-nt": ast.CondNewer, "-ot": ast.CondOlder, "-ef": ast.CondSameFile,
	"-eq": ast.CondNumEq, "-ne": ast.CondNumNe, "-le": ast.CondNumLe,
	"-ge": ast.CondNumGe, "-lt": ast.CondNumLt, "-gt": ast.CondNumGt,
}

func (p *Parser) condPrimary() (ast.CondExpr, error) {
	if p.tok.Kind == token.LPAREN {
		lp := p.tok.Pos
		if err := p.next(); err != nil {
			return nil, err
		}
		x, err := p.condOr()
		if err != nil {
			return nil, err
		}
		rp, err := p.expect(token.RPAREN)
		if err != nil {
			return nil, err
		}
		return &ast.ParenCond{Lparen: lp, Rparen: rp.Pos, X: x}, nil
	}

	if p.tok.Kind != token.WORD {
		return nil, p.errorf("expected conditional expression operand")
	}
	lit, isLit := p.tok.Word.Literal()
	if isLit {
		if op, ok := condUnaryOps[lit]; ok {
			opPos := p.tok.Pos
			if err := p.next(); err != nil {
				return nil, err
			}
			operand, err := p.condOperandWord()
			if err != nil {
				return nil, err
			}
			return &ast.UnaryCond{OpPos: opPos, Op: op, X: &ast.CondWord{W: operand}}, nil
		}
	}

	left, err := p.condOperandWord()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == token.WORD {
		if blit, ok := p.tok.Word.Literal(); ok {
			if op, ok := condBinaryOps[blit]; ok {
				opPos := p.tok.Pos
				if err := p.next(); err != nil {
					return nil, err
				}
				right, err := p.condOperandWord()
				if err != nil {
					return nil, err
				}
				return &ast.BinaryCond{OpPos: opPos, Op: op, X: &ast.CondWord{W: left}, Y: &ast.CondWord{W: right}}, nil
			}
		}
	}
	return &ast.CondWord{W: left}, nil
}

func (p *Parser) condOperandWord() (ast.Word, error) {
	if p.tok.Kind != token.WORD {
		return ast.Word{}, p.errorf("expected word in conditional expression")
	}
	w := *p.tok.Word
	return w, p.next()
}
