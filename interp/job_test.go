// Copyright (c) 2019, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/creack/pty"

	"wsh/parser"
)

// runScriptStdin is runScript (interp_test.go) with a caller-supplied
// stdin, so "[[ -t 0 ]]" can observe a real pty or pipe fd instead of the
// zero-value nil Stdin every other test uses.
func runScriptStdin(t *testing.T, src string, stdin *os.File) string {
	t.Helper()
	f, perr := parser.Parse(parser.NewSourceString(src, ""), "")
	if perr != nil {
		t.Fatalf("parse %q: %v", src, perr)
	}
	var outBuf bytes.Buffer
	r, rerr := New(&outBuf, &outBuf, stdin)
	if rerr != nil {
		t.Fatalf("New: %v", rerr)
	}
	if err := r.Run(context.Background(), f); err != nil {
		if _, ok := err.(ExitStatus); !ok {
			t.Fatalf("Run: %v", err)
		}
	}
	return outBuf.String()
}

// TestCondTermFDUsesRunnerStdin exercises spec.md's "-t fd" unary
// condition (ast.CondTermFD) against this Runner's own Stdin rather than
// the test process's stdin, the same distinction the teacher's
// interp/terminal_test.go draws with a pty vs. a plain pipe.
func TestCondTermFDUsesRunnerStdin(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	if got := runScriptStdin(t, "[[ -t 0 ]] && echo yes || echo no", tty); got != "yes\n" {
		t.Fatalf("pty stdin: want %q, got %q", "yes\n", got)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer pr.Close()
	defer pw.Close()

	if got := runScriptStdin(t, "[[ -t 0 ]] && echo yes || echo no", pr); got != "no\n" {
		t.Fatalf("pipe stdin: want %q, got %q", "no\n", got)
	}
}

// TestPgroupJoinSharesProcessGroup checks spec.md §4.G's process-group
// discipline directly against pgroup.join: the first command forked
// through a shared pgroup becomes the group leader, and every later
// command joins that same pgid instead of starting its own.
func TestPgroupJoinSharesProcessGroup(t *testing.T) {
	pg := &pgroup{}

	newSleep := func() *exec.Cmd {
		cmd := exec.Command("sleep", "0.3")
		return cmd
	}

	pid1, err := pg.join(newSleep(), false, false, -1)
	if err != nil {
		t.Fatalf("join 1: %v", err)
	}
	pid2, err := pg.join(newSleep(), false, false, -1)
	if err != nil {
		t.Fatalf("join 2: %v", err)
	}

	pgid1, err := syscall.Getpgid(pid1)
	if err != nil {
		t.Fatalf("Getpgid(%d): %v", pid1, err)
	}
	pgid2, err := syscall.Getpgid(pid2)
	if err != nil {
		t.Fatalf("Getpgid(%d): %v", pid2, err)
	}
	if pgid1 != pgid2 {
		t.Fatalf("pipeline members in different process groups: %d != %d", pgid1, pgid2)
	}
	if pgid1 != pid1 {
		t.Fatalf("leader's pgid should be its own pid: pgid=%d pid=%d", pgid1, pid1)
	}

	if err := killPgid(pg.pgid, syscall.SIGKILL); err != nil {
		t.Logf("killPgid cleanup: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
}
