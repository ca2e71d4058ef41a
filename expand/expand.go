// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package expand implements component E (spec.md §4.E): the interface the
// executor calls to turn one ast.Word into a word list, given a flag set
// selecting quoted-context, no-split, no-glob, no-tilde, assignment-rhs,
// arithmetic, pattern, and command-substitution-is-ignored-return
// behavior. Parameter, command, and arithmetic expansion plus quote
// removal and field splitting are implemented here; pathname expansion and
// pattern matching are delegated to the sibling pattern package, and
// process creation for command/process substitution is delegated back to
// the caller through the Config hooks, to avoid an import cycle with
// interp.
//
// Grounded on the teacher's expand/expand.go (the fieldPart/Context split
// between "has this text already been through a quoted context"), folded
// here into a single Config plus a segment slice, since the interface-only
// scope of this component (spec.md §4.E) doesn't need the teacher's
// allocation-reuse machinery (fieldAlloc/fieldsAlloc) to be useful as a
// worked example of the technique.
package expand

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"wsh/ast"
	"wsh/vars"
)

// Flags selects which expansion steps apply to one word, per spec.md §4.E.
type Flags uint16

const (
	Quoted Flags = 1 << iota
	NoSplit
	NoGlob
	NoTilde
	AssignRHS
	Arithmetic
	Pattern
	CmdSubstIgnoreReturn
)

// Config bundles the variable engine and the hooks expansion needs but
// cannot implement itself without importing interp (command/process
// substitution needs to run a subshell; pathname expansion needs the
// pattern package plus a directory reader).
type Config struct {
	Vars *vars.Engine

	// Positional holds "$1".."$N"; Arg0 is "$0"; LastStatus is "$?".
	Positional  []string
	Arg0        string
	LastStatus  int

	// RunCmdSubst executes a command substitution's statement list and
	// returns its captured stdout (already known to the interp package's
	// executor, component H).
	RunCmdSubst func(stmts []*ast.Stmt) (string, error)
	// RunProcSubst executes a process substitution and returns the
	// /dev/fd (or named-pipe) path standing in for it.
	RunProcSubst func(stmts []*ast.Stmt, op ast.ProcOp) (string, error)
	// Glob expands one pathname pattern against the filesystem; absent or
	// non-matching patterns are returned unexpanded, per POSIX.
	Glob func(pattern string) ([]string, error)
	// HomeDir resolves "~" ("" = inovking user) or "~user" to a home
	// directory.
	HomeDir func(user string) (string, bool)
}

func (c *Config) ifs() string {
	v := c.Vars.Lookup("IFS")
	if !v.IsSet() {
		return " \t\n"
	}
	return v.Value.String()
}

// segment is one expanded piece of a word. unquoted marks text that arose
// outside any quoting construct, and so is eligible for field splitting
// and pathname expansion; quoted text (single/double-quoted literals, or
// substitutions nested inside them) never splits or globs.
type segment struct {
	text     string
	unquoted bool
}

func joinSegments(segs []segment) string {
	var sb strings.Builder
	for _, s := range segs {
		sb.WriteString(s.text)
	}
	return sb.String()
}

// Literal expands w as a single field with quote removal and substitution
// but no splitting or globbing, for contexts like redirection targets,
// here-doc delimiters, and case patterns (spec.md §4.E).
func Literal(cfg *Config, w ast.Word) (string, error) {
	segs, err := cfg.expandParts(w.Parts, false)
	if err != nil {
		return "", err
	}
	return joinSegments(segs), nil
}

// Fields expands w into a word list per the given flags (spec.md §4.E):
// parameter/command/arithmetic/tilde expansion and quote removal always
// run; field splitting on IFS and pathname expansion run unless flags
// disable them.
func Fields(cfg *Config, w ast.Word, flags Flags) ([]string, error) {
	segs, err := cfg.expandParts(w.Parts, flags&Quoted != 0)
	if err != nil {
		return nil, err
	}
	if flags&NoTilde == 0 {
		segs = expandTilde(cfg, segs)
	}
	if flags&(Quoted|NoSplit) != 0 {
		return []string{joinSegments(segs)}, nil
	}
	fields := splitFields(segs, cfg.ifs())
	if flags&NoGlob != 0 || cfg.Glob == nil {
		return fields, nil
	}
	var out []string
	for _, f := range fields {
		matches, err := cfg.Glob(f)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			out = append(out, f)
			continue
		}
		out = append(out, matches...)
	}
	return out, nil
}

func (c *Config) expandParts(parts []ast.WordPart, quotedCtx bool) ([]segment, error) {
	var out []segment
	for _, p := range parts {
		segs, err := c.expandPart(p, quotedCtx)
		if err != nil {
			return nil, err
		}
		out = append(out, segs...)
	}
	return out, nil
}

func (c *Config) expandPart(p ast.WordPart, quotedCtx bool) ([]segment, error) {
	switch x := p.(type) {
	case *ast.Lit:
		return []segment{{text: x.Value, unquoted: !quotedCtx}}, nil
	case *ast.SglQuoted:
		return []segment{{text: x.Value, unquoted: false}}, nil
	case *ast.DblQuoted:
		inner, err := c.expandParts(x.Parts, true)
		if err != nil {
			return nil, err
		}
		return []segment{{text: joinSegments(inner), unquoted: false}}, nil
	case *ast.ParamExp:
		s, err := c.expandParam(x)
		if err != nil {
			return nil, err
		}
		return []segment{{text: s, unquoted: !quotedCtx}}, nil
	case *ast.CmdSubst:
		if c.RunCmdSubst == nil {
			return nil, fmt.Errorf("expand: command substitution not available")
		}
		s, err := c.RunCmdSubst(x.Stmts)
		if err != nil {
			return nil, err
		}
		s = strings.TrimRight(s, "\n")
		return []segment{{text: s, unquoted: !quotedCtx}}, nil
	case *ast.ArithmExp:
		n, err := Arithm(c, x.X)
		if err != nil {
			return nil, err
		}
		return []segment{{text: strconv.FormatInt(n, 10), unquoted: !quotedCtx}}, nil
	case *ast.ProcSubst:
		if c.RunProcSubst == nil {
			return nil, fmt.Errorf("expand: process substitution not available")
		}
		s, err := c.RunProcSubst(x.Stmts, x.Op)
		if err != nil {
			return nil, err
		}
		return []segment{{text: s, unquoted: !quotedCtx}}, nil
	case *ast.ArrayExpr:
		return nil, fmt.Errorf("expand: array literal is only valid as an assignment's right-hand side")
	case *ast.ExtGlob:
		// extended glob syntax is only meaningful to the pattern matcher
		// (component E leaves pathname matching to the pattern package);
		// outside of a pattern context it expands to its literal spelling.
		spelling := globOpSpelling(x.Op) + x.Pattern.Value + ")"
		return []segment{{text: spelling, unquoted: !quotedCtx}}, nil
	}
	return nil, fmt.Errorf("expand: unhandled word part %T", p)
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

// expandTilde resolves a leading unquoted "~" or "~user" segment, per
// spec.md §4.E's no-tilde flag. Only the first segment of a word is a
// tilde-expansion candidate; a "~" following a ":" in a PATH-like
// assignment is not expanded.
func expandTilde(cfg *Config, segs []segment) []segment {
	if len(segs) == 0 || !segs[0].unquoted || cfg.HomeDir == nil {
		return segs
	}
	text := segs[0].text
	if !strings.HasPrefix(text, "~") {
		return segs
	}
	rest := text[1:]
	name, tail, _ := strings.Cut(rest, "/")
	if strings.ContainsAny(name, "$`\"'") {
		return segs
	}
	home, ok := cfg.HomeDir(name)
	if !ok {
		return segs
	}
	newText := home
	if tail != "" || strings.Contains(rest, "/") {
		newText += "/" + tail
	}
	out := make([]segment, len(segs))
	copy(out, segs)
	out[0] = segment{text: newText, unquoted: true}
	return out
}

// splitFields performs IFS field splitting: unquoted segments split on IFS
// runes, quoted segments never split and always attach to the current
// field (even when empty, which is how "" still produces an empty field).
//
// Simplification: POSIX distinguishes IFS-whitespace characters (runs of
// which collapse, and which never by themselves produce an empty field)
// from IFS-non-whitespace characters (each occurrence delimits its own
// field, so adjacent ones produce empty fields between them). This
// implementation treats every IFS rune as the whitespace kind, so e.g.
// IFS="," on "a,,b" yields two fields ("a","b") instead of POSIX's three
// ("a","","b"). Exact non-whitespace-IFS field semantics were left out as
// internal expansion detail (spec.md §4.E marks expansion "interface
// only").
func splitFields(segs []segment, ifs string) []string {
	if ifs == "" {
		// IFS="" disables splitting entirely.
		return []string{joinSegments(segs)}
	}
	var fields []string
	var cur strings.Builder
	curHasContent := false
	flush := func() {
		if curHasContent {
			fields = append(fields, cur.String())
		}
		cur.Reset()
		curHasContent = false
	}
	for _, s := range segs {
		if !s.unquoted {
			cur.WriteString(s.text)
			curHasContent = true
			continue
		}
		start := 0
		for i, r := range s.text {
			if strings.ContainsRune(ifs, r) {
				cur.WriteString(s.text[start:i])
				flush()
				start = i + len(string(r))
				continue
			}
			curHasContent = true
		}
		cur.WriteString(s.text[start:])
	}
	flush()
	return fields
}

// pid is grounded on os.Getpid for "$$" — separated out so tests can see
// it's the only expand.go use of the os package.
func pid() int { return os.Getpid() }
