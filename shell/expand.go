// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package shell

import (
	"fmt"
	"os"
	"strings"

	"wsh/ast"
	"wsh/expand"
	"wsh/parser"
	"wsh/vars"
)

// Expand performs shell expansion on s, using env to resolve variables.
// The expansion applies to parameter expansions like $var and ${#var},
// arithmetic expansions like $((var + 3)), and brace expressions like
// foo{1,2,3}. The words of s are expanded and split as Fields does, then
// joined with single spaces.
//
// If env is nil, the current environment variables are used.
//
// Subshells like $(echo foo) aren't supported to avoid running arbitrary
// code; use the interp package directly for those.
//
// An error is reported if the input string had invalid syntax.
func Expand(s string, env func(string) string) (string, error) {
	fields, err := expandFields(s, env)
	if err != nil {
		return "", err
	}
	return strings.Join(fields, " "), nil
}

// Fields performs shell expansion on s, using env to resolve variables,
// and returns the separate fields that result from the expansion. It is
// similar to Expand, but the resulting fields are not joined.
//
// If env is nil, the current environment variables are used.
//
// An error is reported if the input string had invalid syntax.
func Fields(s string, env func(string) string) ([]string, error) {
	return expandFields(s, env)
}

func expandFields(s string, env func(string) string) ([]string, error) {
	words, err := parser.ParseWords(parser.NewSourceString(s, ""), "")
	if err != nil {
		return nil, err
	}
	if env == nil {
		env = os.Getenv
	}
	e := vars.New()
	for _, name := range referencedNames(words) {
		e.Bind(name, vars.Variable{Value: vars.StringVal(env(name))})
	}
	cfg := &expand.Config{
		Vars: e,
		Glob: func(string) ([]string, error) { return nil, nil },
		HomeDir: func(user string) (string, bool) {
			if user != "" {
				return "", false
			}
			if h := env("HOME"); h != "" {
				return h, true
			}
			return "", false
		},
		RunCmdSubst: func([]*ast.Stmt) (string, error) {
			return "", fmt.Errorf("shell.Expand/Fields do not support command substitution")
		},
	}

	var fields []string
	for _, w := range words {
		fs, err := expand.Fields(cfg, w, 0)
		if err != nil {
			return nil, err
		}
		fields = append(fields, fs...)
	}
	return fields, nil
}

// referencedNames collects every parameter name a word list reads, so the
// throwaway vars.Engine built for one Expand/Fields call only resolves
// names the caller's env function actually needs to answer for.
func referencedNames(words []ast.Word) []string {
	var names []string
	seen := map[string]bool{}
	v := paramCollector{add: func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}}
	for i := range words {
		ast.Walk(v, &words[i])
	}
	return names
}

type paramCollector struct {
	add func(name string)
}

func (c paramCollector) Visit(node ast.Node) ast.Visitor {
	if p, ok := node.(*ast.ParamExp); ok {
		c.add(p.Param.Value)
	}
	return c
}
