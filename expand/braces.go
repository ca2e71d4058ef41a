// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"strconv"
	"strings"

	"wsh/ast"
)

// Braces performs brace expansion on w, e.g. turning the single-literal
// word "foo{bar,baz}" into the two words "foobar" and "foobaz", and
// "{1..3}" into "1", "2", "3". Malformed brace expressions are left
// unexpanded, matching bash's own forgiving behavior.
//
// Simplification: unlike the teacher's Braces (which walks the AST and so
// can expand braces that sit next to a parameter expansion or other word
// part), this operates on a word's literal spelling, so brace expansion
// here only fires for words made entirely of literal/quoted text. A word
// like "{a,b}$x" is returned unexpanded. Brace expansion happening before
// any other expansion — and thus never seeing variables that haven't been
// substituted yet — makes this the common case in practice.
func Braces(w ast.Word) []ast.Word {
	lit, ok := w.Literal()
	if !ok {
		return []ast.Word{w}
	}
	texts := expandBraceText(lit)
	if len(texts) == 1 && texts[0] == lit {
		return []ast.Word{w}
	}
	out := make([]ast.Word, len(texts))
	for i, t := range texts {
		out[i] = ast.Word{Parts: []ast.WordPart{&ast.Lit{Value: t}}}
	}
	return out
}

func expandBraceText(s string) []string {
	start, end, ok := findBraceSpan(s)
	if !ok {
		return []string{s}
	}
	prefix, body, suffix := s[:start], s[start+1:end], s[end+1:]
	alts := splitBraceAlternatives(body)
	if len(alts) < 2 {
		if lo, hi, step, ok := parseBraceRange(body); ok {
			alts = nil
			for _, v := range expandBraceRange(lo, hi, step) {
				alts = append(alts, v)
			}
		}
	}
	if len(alts) < 2 {
		return []string{s}
	}
	var out []string
	for _, a := range alts {
		for _, ax := range expandBraceText(a) {
			for _, tail := range expandBraceText(suffix) {
				for _, pre := range expandBraceText(prefix) {
					out = append(out, pre+ax+tail)
				}
			}
		}
	}
	return out
}

// findBraceSpan finds the first top-level "{...}" span (depth-aware, so
// nested braces in the body are kept intact for the recursive call).
func findBraceSpan(s string) (start, end int, ok bool) {
	start = -1
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			if start == -1 {
				start = i
			} else {
				depth++
			}
		case '}':
			if start == -1 {
				continue
			}
			if depth == 0 {
				return start, i, true
			}
			depth--
		}
	}
	return 0, 0, false
}

// splitBraceAlternatives splits body on top-level commas.
func splitBraceAlternatives(body string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, body[start:])
	return parts
}

// parseBraceRange parses "lo..hi" or "lo..hi..step", numeric or
// single-letter, per bash's {1..5}/{a..e}/{1..10..2} forms.
func parseBraceRange(body string) (lo, hi string, step int, ok bool) {
	parts := strings.Split(body, "..")
	if len(parts) < 2 || len(parts) > 3 {
		return "", "", 0, false
	}
	step = 1
	if len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil || n == 0 {
			return "", "", 0, false
		}
		step = n
	}
	return parts[0], parts[1], step, true
}

func expandBraceRange(lo, hi string, step int) []string {
	if len(lo) == 1 && len(hi) == 1 && !isDigit(lo[0]) && !isDigit(hi[0]) {
		a, b := rune(lo[0]), rune(hi[0])
		if step < 0 {
			step = -step
		}
		var out []string
		if a <= b {
			for c := a; c <= b; c += rune(step) {
				out = append(out, string(c))
			}
		} else {
			for c := a; c >= b; c -= rune(step) {
				out = append(out, string(c))
			}
		}
		return out
	}
	loN, err1 := strconv.Atoi(lo)
	hiN, err2 := strconv.Atoi(hi)
	if err1 != nil || err2 != nil {
		return nil
	}
	width := 0
	if (strings.HasPrefix(lo, "0") && len(lo) > 1) || (strings.HasPrefix(hi, "0") && len(hi) > 1) {
		width = len(lo)
		if len(hi) > width {
			width = len(hi)
		}
	}
	if step < 0 {
		step = -step
	}
	if step == 0 {
		step = 1
	}
	var out []string
	fmtN := func(n int) string {
		s := strconv.Itoa(n)
		if width > 0 {
			neg := strings.HasPrefix(s, "-")
			if neg {
				s = s[1:]
			}
			for len(s) < width {
				s = "0" + s
			}
			if neg {
				s = "-" + s
			}
		}
		return s
	}
	if loN <= hiN {
		for n := loN; n <= hiN; n += step {
			out = append(out, fmtN(n))
		}
	} else {
		for n := loN; n >= hiN; n -= step {
			out = append(out, fmtN(n))
		}
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
