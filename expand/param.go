// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"wsh/ast"
	"wsh/pattern"
	"wsh/vars"
)

// UnsetParameterError is raised by "${name:?message}" and "${name?message}"
// when name is unset (or empty, for the colon form), per spec.md §4.E's
// typed-transfer-on-failure requirement.
type UnsetParameterError struct {
	Name    string
	Message string
}

func (u UnsetParameterError) Error() string {
	if u.Message != "" {
		return fmt.Sprintf("%s: %s", u.Name, u.Message)
	}
	return fmt.Sprintf("%s: parameter not set", u.Name)
}

// lookup resolves name to (value, isSet), special-casing the dynamic
// positional-parameter and status names the vars.Engine doesn't itself
// know about (it's seeded with ordinary variables; these are per-call
// expansion state instead, e.g. "$1"/"$#"/"$?" change with every function
// call without a Bind).
func (c *Config) lookup(name string) (string, bool) {
	switch name {
	case "?":
		return strconv.Itoa(c.LastStatus), true
	case "$":
		return strconv.Itoa(pid()), true
	case "#":
		return strconv.Itoa(len(c.Positional)), true
	case "@", "*":
		return strings.Join(c.Positional, " "), len(c.Positional) > 0
	case "0":
		return c.Arg0, true
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 {
		if n-1 < len(c.Positional) {
			return c.Positional[n-1], true
		}
		return "", false
	}
	v := c.Vars.Lookup(name)
	return v.Value.String(), v.IsSet()
}

func (c *Config) expandParam(p *ast.ParamExp) (string, error) {
	name := p.Param.Value
	if p.Indirect {
		target, _ := c.lookup(name)
		name = target
	}

	if p.Length {
		if name == "@" || name == "*" {
			return strconv.Itoa(len(c.Positional)), nil
		}
		val, _ := c.lookup(name)
		return strconv.Itoa(utf8.RuneCountInString(val)), nil
	}

	val, set := c.lookup(name)

	if p.Index != nil {
		idx, err := Literal(c, p.Index.Word)
		if err != nil {
			return "", err
		}
		if v := c.Vars.Lookup(name); v.IsSet() {
			if arr, ok := v.Value.(vars.IndexArray); ok {
				switch idx {
				case "@":
					return strings.Join(arr, " "), nil
				case "*":
					return strings.Join(arr, c.oneIFS()), nil
				}
				if i, err := strconv.Atoi(idx); err == nil && i >= 0 && i < len(arr) {
					val, set = arr[i], true
				} else {
					val, set = "", false
				}
			} else if assoc, ok := v.Value.(vars.AssocArray); ok {
				val, set = assoc[idx], assoc[idx] != ""
			}
		}
	}

	switch {
	case p.Slice != nil:
		off, err := c.arithWord(p.Slice.Offset)
		if err != nil {
			return "", err
		}
		length := -1
		if p.Slice.Length.Parts != nil {
			length, err = c.arithWord(p.Slice.Length)
			if err != nil {
				return "", err
			}
		}
		val = sliceString(val, off, length)
	case p.Repl != nil:
		orig, err := Literal(c, p.Repl.Orig)
		if err != nil {
			return "", err
		}
		with, err := Literal(c, p.Repl.With)
		if err != nil {
			return "", err
		}
		val = replacePattern(val, orig, with, p.Repl.All)
	case p.Exp != nil:
		return c.applyExpansion(name, val, set, p.Exp)
	}
	return val, nil
}

func (c *Config) oneIFS() string {
	ifs := c.ifs()
	if ifs == "" {
		return " "
	}
	return ifs[:1]
}

func (c *Config) arithWord(w ast.Word) (int, error) {
	s, err := Literal(c, w)
	if err != nil {
		return 0, err
	}
	return int(atoi(s)), nil
}

// sliceString implements "${name:offset:length}", including bash's
// negative-offset ("from the end") convention.
func sliceString(s string, offset, length int) string {
	r := []rune(s)
	n := len(r)
	if offset < 0 {
		offset += n
		if offset < 0 {
			offset = 0
		}
	}
	if offset > n {
		offset = n
	}
	end := n
	if length >= 0 {
		end = offset + length
		if end > n {
			end = n
		}
	}
	if end < offset {
		end = offset
	}
	return string(r[offset:end])
}

func replacePattern(s, pat, with string, all bool) string {
	expr, err := pattern.Regexp(pat, 0)
	if err != nil {
		return s
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return s
	}
	if all {
		return rx.ReplaceAllString(s, regexp.QuoteMeta(with))
	}
	loc := rx.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + with + s[loc[1]:]
}

func (c *Config) applyExpansion(name, val string, set bool, e *ast.Expansion) (string, error) {
	arg, err := Literal(c, e.Word)
	if err != nil {
		return "", err
	}
	unsetOrEmpty := !set || val == ""
	switch e.Op {
	case ast.ParExpColonMinus:
		if unsetOrEmpty {
			return arg, nil
		}
		return val, nil
	case ast.ParExpMinus:
		if !set {
			return arg, nil
		}
		return val, nil
	case ast.ParExpColonPlus:
		if unsetOrEmpty {
			return "", nil
		}
		return arg, nil
	case ast.ParExpPlus:
		if set {
			return arg, nil
		}
		return "", nil
	case ast.ParExpColonEquals:
		if unsetOrEmpty {
			if err := c.assign(name, arg); err != nil {
				return "", err
			}
			return arg, nil
		}
		return val, nil
	case ast.ParExpEquals:
		if !set {
			if err := c.assign(name, arg); err != nil {
				return "", err
			}
			return arg, nil
		}
		return val, nil
	case ast.ParExpColonQuestion:
		if unsetOrEmpty {
			return "", UnsetParameterError{Name: name, Message: arg}
		}
		return val, nil
	case ast.ParExpQuestion:
		if !set {
			return "", UnsetParameterError{Name: name, Message: arg}
		}
		return val, nil
	case ast.ParExpRemoveShortPrefix, ast.ParExpRemoveLongPrefix:
		return trimPattern(val, arg, false, e.Op == ast.ParExpRemoveLongPrefix), nil
	case ast.ParExpRemoveShortSuffix, ast.ParExpRemoveLongSuffix:
		return trimPattern(val, arg, true, e.Op == ast.ParExpRemoveLongSuffix), nil
	case ast.ParExpUpperFirst, ast.ParExpUpperAll:
		return convertCase(val, arg, unicode.ToUpper, e.Op == ast.ParExpUpperAll), nil
	case ast.ParExpLowerFirst, ast.ParExpLowerAll:
		return convertCase(val, arg, unicode.ToLower, e.Op == ast.ParExpLowerAll), nil
	}
	return val, nil
}

func (c *Config) assign(name, val string) error {
	if !c.Vars.Bind(name, vars.Variable{Value: vars.StringVal(val)}) {
		return fmt.Errorf("%s: readonly variable", name)
	}
	return nil
}

// trimPattern removes the shortest (or longest, when greedy) match of pat
// from the start (fromEnd=false) or end of s, implementing "${v#pat}",
// "${v##pat}", "${v%pat}", "${v%%pat}".
func trimPattern(s, pat string, fromEnd, greedy bool) string {
	if pat == "" {
		return s
	}
	mode := pattern.Mode(0)
	if greedy {
		mode = 0
	} else {
		mode = pattern.Shortest
	}
	expr, err := pattern.Regexp(pat, mode)
	if err != nil {
		return s
	}
	if fromEnd && !greedy {
		// shortest suffix: try the latest start position first
		full, err := regexp.Compile("^(?:" + expr + ")$")
		if err != nil {
			return s
		}
		for i := len(s); i >= 0; i-- {
			if (i == len(s) || utf8.RuneStart(s[i])) && full.MatchString(s[i:]) {
				return s[:i]
			}
		}
		return s
	}
	switch {
	case fromEnd:
		expr = "(?:" + expr + ")$"
	default:
		expr = "^(?:" + expr + ")"
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return s
	}
	if loc := rx.FindStringIndex(s); loc != nil {
		return s[:loc[0]] + s[loc[1]:]
	}
	return s
}

// convertCase applies caseFunc to runes of s that match glob pattern pat
// (empty pat matches every rune), to the first matching rune only unless
// all is set.
func convertCase(s, pat string, caseFunc func(rune) rune, all bool) string {
	var rx *regexp.Regexp
	if pat != "" {
		expr, err := pattern.Regexp(pat, 0)
		if err == nil {
			rx = regexp.MustCompile(expr)
		}
	}
	rs := []rune(s)
	for i, r := range rs {
		if rx != nil && !rx.MatchString(string(r)) {
			continue
		}
		rs[i] = caseFunc(r)
		if !all {
			break
		}
	}
	return string(rs)
}

// namesByPrefix lists every bound variable name starting with prefix,
// sorted (spec.md §4.D's namesByPrefix operation). No expansion calls it:
// "${!prefix*}" and "${!prefix@}" are not expanded through it.
func (c *Config) namesByPrefix(prefix string) []string {
	var names []string
	c.Vars.Each(func(name string, vr vars.Variable) bool {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return true
	})
	sort.Strings(names)
	return names
}
