// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package shell

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"wsh/ast"
	"wsh/parser"
	"wsh/vars"
)

var mapTests = []struct {
	in   string
	want map[string]vars.Variable
}{
	{
		"a=x; b=y",
		map[string]vars.Variable{
			"a": {Value: vars.StringVal("x")},
			"b": {Value: vars.StringVal("y")},
		},
	},
	{
		"a=x; a=y",
		map[string]vars.Variable{
			"a": {Value: vars.StringVal("y")},
		},
	},
	{
		"a=$(echo foo | sed 's/o/a/g')",
		map[string]vars.Variable{
			"a": {Value: vars.StringVal("faa")},
		},
	},
}

var errTests = []struct {
	in   string
	want string
}{
	{
		"a=b; exit 1",
		"exit status 1",
	},
}

func parseNode(t *testing.T, src string) *ast.File {
	f, err := parser.Parse(parser.NewSourceString(src, ""), "")
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestSourceNode(t *testing.T) {
	for i := range mapTests {
		t.Run(fmt.Sprintf("%02d", i), func(t *testing.T) {
			tc := mapTests[i]
			file := parseNode(t, tc.in)
			got, err := SourceNode(context.Background(), file)
			if err != nil {
				t.Fatal(err)
			}
			for name, want := range tc.want {
				gv, ok := got[name]
				if !ok {
					t.Fatalf("missing variable %q in %v", name, got)
				}
				if gv.Value.String() != want.Value.String() {
					t.Fatalf("%s: want %q, got %q", name, want.Value, gv.Value)
				}
			}
		})
	}
}

func TestSourceNodeErr(t *testing.T) {
	for i := range errTests {
		t.Run(fmt.Sprintf("%02d", i), func(t *testing.T) {
			tc := errTests[i]
			file := parseNode(t, tc.in)
			_, err := SourceNode(context.Background(), file)
			if err == nil {
				t.Fatal("wanted non-nil error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not match %q", err, tc.want)
			}
		})
	}
}

func TestSourceFileContext(t *testing.T) {
	t.Parallel()
	tf, err := os.CreateTemp("", "sh-shell")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tf.Name())
	const src = "cat" // block forever
	if _, err := tf.WriteString(src); err != nil {
		t.Fatal(err)
	}
	if err := tf.Close(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := SourceFile(ctx, tf.Name())
		errc <- err
	}()
	cancel()
	err = <-errc
	want := "context canceled"
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("error %q does not match %q", err, want)
	}
}
