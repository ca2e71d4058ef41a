// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package shell

import (
	"context"
	"fmt"
	"io"
	"os"

	"wsh/ast"
	"wsh/interp"
	"wsh/parser"
	"wsh/vars"
)

// SourceFile sources a shell file from disk and returns the variables
// declared in it. It is a convenience function that uses a default
// parser, parses a file from disk, and calls SourceNode.
func SourceFile(ctx context.Context, path string) (map[string]vars.Variable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open: %v", err)
	}
	defer f.Close()
	file, err := parser.Parse(parser.NewSourceReader(f, path), path)
	if err != nil {
		return nil, fmt.Errorf("could not parse: %v", err)
	}
	return SourceNode(ctx, file)
}

// internalVars lists the variables a fresh Runner seeds before any user
// code runs; a caller asking "what did this script declare" is never
// interested in these, matching the teacher's purpose-built delete list.
var internalVars = []string{"PWD", "HOME", "PATH", "IFS", "OPTIND"}

// SourceNode sources a parsed file and returns the variables it declares,
// excluding the small set of internal variables every Runner starts with.
//
// Unlike the teacher's SourceNode, this does not sandbox external command
// execution: this module's interp.Runner has no exec/open middleware hook
// to whitelist against (spec.md places built-in and external command
// *implementations* out of scope, not a sandboxing policy), so a sourced
// script runs arbitrary programs exactly as cmd/wsh would. Callers
// sourcing untrusted scripts should review them first.
func SourceNode(ctx context.Context, file *ast.File) (map[string]vars.Variable, error) {
	devNull, err := os.OpenFile(os.DevNull, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %v", os.DevNull, err)
	}
	defer devNull.Close()

	r, err := interp.New(io.Discard, io.Discard, devNull)
	if err != nil {
		return nil, err
	}
	if err := r.Run(ctx, file); err != nil {
		return nil, fmt.Errorf("could not run: %v", err)
	}

	out := map[string]vars.Variable{}
	r.Vars.Each(func(name string, v vars.Variable) bool {
		out[name] = v
		return true
	})
	for _, name := range internalVars {
		delete(out, name)
	}
	return out, nil
}
