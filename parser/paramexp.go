package parser

import (
	"io"
	"strings"

	"wsh/ast"
)

// parseWordText parses s as a single word whose content runs to the end of
// the string: unlike lexWord, blanks are literal (used for ${...} operand
// text, which is not field-split until expansion time).
func (l *Lexer) parseWordText(s string) (ast.Word, error) {
	sub := NewLexer(NewSourceString(s, "<param>"))
	w := &ast.Word{}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			w.Parts = append(w.Parts, &ast.Lit{Value: lit.String()})
			lit.Reset()
		}
	}
	for {
		b, err := sub.getc()
		if err == io.EOF {
			break
		}
		switch b {
		case '\\':
			nb, err := sub.getc()
			if err != nil {
				lit.WriteByte(b)
				continue
			}
			lit.WriteByte(nb)
		case '\'':
			flush()
			q, err := sub.lexSingleQuoted(false)
			if err != nil {
				return ast.Word{}, err
			}
			w.Parts = append(w.Parts, q)
		case '"':
			flush()
			q, err := sub.lexDoubleQuoted()
			if err != nil {
				return ast.Word{}, err
			}
			w.Parts = append(w.Parts, q)
		case '`':
			flush()
			cs, err := sub.lexBackquote()
			if err != nil {
				return ast.Word{}, err
			}
			w.Parts = append(w.Parts, cs)
		case '$':
			flush()
			part, consumed, err := sub.lexDollar()
			if err != nil {
				return ast.Word{}, err
			}
			if !consumed {
				lit.WriteByte('$')
			} else {
				w.Parts = append(w.Parts, part)
			}
		default:
			lit.WriteByte(b)
		}
	}
	flush()
	return *w, nil
}

// splitTopLevel finds the first occurrence of any of seps at bracket/quote
// depth 0 and returns (before, sep, after, found).
func splitTopLevel(s string, seps ...string) (before, sep, after string, found bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		case '\'':
			for i++; i < len(s) && s[i] != '\''; i++ {
			}
		case '"':
			for i++; i < len(s) && s[i] != '"'; i++ {
				if s[i] == '\\' {
					i++
				}
			}
		case '\\':
			i++
		}
		if depth == 0 {
			for _, sp := range seps {
				if strings.HasPrefix(s[i:], sp) {
					return s[:i], sp, s[i+len(sp):], true
				}
			}
		}
	}
	return s, "", "", false
}

var parExpOps = map[string]ast.ParExpOperator{
	":-": ast.ParExpColonMinus, "-": ast.ParExpMinus,
	":+": ast.ParExpColonPlus, "+": ast.ParExpPlus,
	":=": ast.ParExpColonEquals, "=": ast.ParExpEquals,
	":?": ast.ParExpColonQuestion, "?": ast.ParExpQuestion,
	"%%": ast.ParExpRemoveLongSuffix, "%": ast.ParExpRemoveShortSuffix,
	"##": ast.ParExpRemoveLongPrefix, "#": ast.ParExpRemoveShortPrefix,
	"^^": ast.ParExpUpperAll, "^": ast.ParExpUpperFirst,
	",,": ast.ParExpLowerAll, ",": ast.ParExpLowerFirst,
}

// parseParamExpBody parses the text captured between "${" and "}" into a
// ParamExp, covering length/indirect prefixes, array indices, slices,
// substring replacement, case conversion, and the default/alternate/error
// family of operators (spec.md §4.B's "Dollar forms").
func (l *Lexer) parseParamExpBody(dollarPos ast.Pos, raw string) (*ast.ParamExp, error) {
	pe := &ast.ParamExp{Dollar: dollarPos}
	i := 0
	if i < len(raw) && raw[i] == '#' && len(raw) > 1 && raw[1:] != "" && !isOnlyOperatorStart(raw) {
		pe.Length = true
		i++
	}
	if i < len(raw) && raw[i] == '!' {
		pe.Indirect = true
		i++
	}
	start := i
	for i < len(raw) && isNameByte(raw[i]) {
		i++
	}
	if start == i && i < len(raw) && isShortParamChar(raw[i]) {
		i++
	}
	pe.Param = ast.Lit{Value: raw[start:i]}
	rest := raw[i:]

	if strings.HasPrefix(rest, "[") {
		depth := 1
		j := 1
		for j < len(rest) && depth > 0 {
			switch rest[j] {
			case '[':
				depth++
			case ']':
				depth--
			}
			j++
		}
		idxText := rest[1 : j-1]
		idxWord, err := l.parseWordText(idxText)
		if err != nil {
			return nil, err
		}
		pe.Index = &ast.Index{Word: idxWord}
		rest = rest[j:]
	}

	if rest == "" {
		return pe, nil
	}

	if strings.HasPrefix(rest, ":") && !strings.HasPrefix(rest, ":-") && !strings.HasPrefix(rest, ":+") &&
		!strings.HasPrefix(rest, ":=") && !strings.HasPrefix(rest, ":?") {
		before, _, after, found := splitTopLevel(rest[1:], ":")
		offsetText, lengthText := rest[1:], ""
		if found {
			offsetText, lengthText = before, after
		}
		offW, err := l.parseWordText(offsetText)
		if err != nil {
			return nil, err
		}
		lenW, err := l.parseWordText(lengthText)
		if err != nil {
			return nil, err
		}
		pe.Slice = &ast.Slice{Offset: offW, Length: lenW}
		return pe, nil
	}

	if strings.HasPrefix(rest, "/") {
		all := false
		body := rest[1:]
		if strings.HasPrefix(body, "/") {
			all = true
			body = body[1:]
		}
		orig, _, repl, found := splitTopLevel(body, "/")
		if !found {
			orig, repl = body, ""
		}
		origW, err := l.parseWordText(orig)
		if err != nil {
			return nil, err
		}
		replW, err := l.parseWordText(repl)
		if err != nil {
			return nil, err
		}
		pe.Repl = &ast.Replace{All: all, Orig: origW, With: replW}
		return pe, nil
	}

	for _, spelling := range []string{":-", ":+", ":=", ":?", "%%", "%", "##", "#", "^^", "^", ",,", ",", "-", "+", "="} {
		if strings.HasPrefix(rest, spelling) {
			op := parExpOps[spelling]
			opW, err := l.parseWordText(rest[len(spelling):])
			if err != nil {
				return nil, err
			}
			pe.Exp = &ast.Expansion{Op: op, Word: opW}
			return pe, nil
		}
	}

	opW, err := l.parseWordText(rest)
	if err != nil {
		return nil, err
	}
	pe.Exp = &ast.Expansion{Op: ast.ParExpNone, Word: opW}
	return pe, nil
}

func isOnlyOperatorStart(s string) bool {
	// "${#}" means length-of-nothing in our simplified grammar; treat a
	// lone "#" as the special parameter rather than the length prefix.
	return s == "#"
}
