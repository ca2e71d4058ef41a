// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"wsh/ast"
)

// captureStmts backs expand.Config.RunCmdSubst (spec.md §4.E's
// "$(...)"/backtick command substitution): stmts run in a subshell
// whose stdout is captured into a buffer instead of this Runner's own
// (expand.go's caller trims the trailing newlines POSIX says command
// substitution drops). Grounded on the teacher's fillExpandConfig
// CmdSubst closure (interp/runner.go), which forks a subshell with its
// stdout swapped for an io.Writer the caller supplies; this module uses
// a bytes.Buffer directly rather than the teacher's io.Writer-plus-
// io.Copy shortcut for "$(<file)", which this simpler executor does not
// special-case.
func (r *Runner) captureStmts(stmts []*ast.Stmt) (string, error) {
	sub := r.subshell()
	var buf bytes.Buffer
	sub.Stdout = &buf
	err := sub.runStmts(r.ctx, stmts)
	if !isControlTransfer(err) {
		err = nil
	}
	return buf.String(), err
}

// procSubst backs expand.Config.RunProcSubst (spec.md §3.1/§4.E's
// "<(...)"/">(...)" process substitution): stmts run in a subshell
// wired to one end of a named pipe, and the pipe's path is handed back
// as the substitution's expansion — the caller (usually an external
// command's argument list) opens the other end itself. Grounded on the
// teacher's fillExpandConfig ProcSubst closure (interp/runner.go and
// its os_unix.go mkfifo helper), which creates a FIFO in a scratch
// directory and backgrounds the subshell the same way.
func (r *Runner) procSubst(stmts []*ast.Stmt, op ast.ProcOp) (string, error) {
	tmp, err := os.CreateTemp("", "wsh-procsubst-*")
	if err != nil {
		return "", fmt.Errorf("process substitution: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	os.Remove(path)
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return "", fmt.Errorf("process substitution: cannot create fifo: %w", err)
	}

	sub := r.subshell()
	go func() {
		defer os.Remove(path)
		switch op {
		case ast.ProcIn:
			// "<(cmd)": cmd's stdout feeds the reader that opens path.
			f, err := os.OpenFile(path, os.O_WRONLY, 0)
			if err != nil {
				return
			}
			defer f.Close()
			sub.Stdout = f
		default: // ast.ProcOut, ">(cmd)": cmd reads from the writer that opens path.
			f, err := os.OpenFile(path, os.O_RDONLY, 0)
			if err != nil {
				return
			}
			defer f.Close()
			sub.Stdin = f
		}
		_ = sub.runStmts(r.ctx, stmts)
	}()
	return path, nil
}
