// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"fmt"

	"wsh/parser"
)

// The executor's non-local transfers (spec.md §4.J) are modeled as a
// closed set of typed errors threaded back up through runStmts/runStmt,
// rather than panics, matching the ast package's preference for
// exhaustive type switches over control-flow-by-panic (spec.md §9).
// Anything else reaching runStmts is a genuine error to report, not a
// control-flow signal.
type (
	// ctrlBreak unwinds N enclosing loops ("break N").
	ctrlBreak struct{ n int }
	// ctrlContinue re-enters the Nth enclosing loop ("continue N").
	ctrlContinue struct{ n int }
	// ctrlReturn is caught at a function or sourced-file boundary.
	ctrlReturn struct{ status int }
	// ctrlExit exits the whole shell, via the "exit" builtin or a
	// special builtin's error in a non-interactive shell (runSimple).
	ctrlExit struct{ status int }
	// ctrlErrExit is raised by set -e; caught at the top level or at a
	// subshell boundary (runSubshellStmts). Function calls and command
	// substitutions pass it through.
	ctrlErrExit struct{ status int }
)

func (c ctrlBreak) Error() string    { return fmt.Sprintf("break %d", c.n) }
func (c ctrlContinue) Error() string { return fmt.Sprintf("continue %d", c.n) }
func (c ctrlReturn) Error() string   { return fmt.Sprintf("return %d", c.status) }
func (c ctrlExit) Error() string     { return fmt.Sprintf("exit %d", c.status) }
func (c ctrlErrExit) Error() string  { return fmt.Sprintf("errexit %d", c.status) }

// runTrap runs the command string registered for name (a signal name or
// one of the pseudo-signals EXIT/ERR/DEBUG/RETURN), ignoring absent
// traps. Re-entrancy is blocked per spec.md §4.J ("traps … prevents
// re-entry of a trap handler by itself").
func (r *Runner) runTrap(ctx context.Context, name string) {
	cmd, ok := r.traps[name]
	if !ok || cmd == "" || r.trapsRunning[name] {
		return
	}
	f, err := parser.Parse(parser.NewSourceString(cmd, "trap"), "trap")
	if err != nil {
		fmt.Fprintf(r.Stderr, "trap %s: %v\n", name, err)
		return
	}
	r.trapsRunning[name] = true
	defer delete(r.trapsRunning, name)
	savedStatus := r.lastStatus
	_ = r.runStmts(ctx, f.Stmts)
	if name != "ERR" {
		// EXIT/signal traps don't perturb $? seen by later commands in
		// the script; ERR traps are allowed to, matching bash.
		r.lastStatus = savedStatus
	}
}

// runErrTrap runs the ERR trap exactly once per failing command, guarded
// against recursion through a command that itself fails inside the trap
// body (spec.md §4.J's "distinguishes … running line number").
func (r *Runner) runErrTrap(ctx context.Context) {
	if r.handlingErr {
		return
	}
	r.handlingErr = true
	defer func() { r.handlingErr = false }()
	r.runTrap(ctx, "ERR")
}

// checkErrExit raises ctrlErrExit when set -e is on, the given status is
// a failure, and ignoreReturn is false. Every current caller passes
// false; if/while conditions are exempt because runCondList turns
// errexit off while they run.
func (r *Runner) checkErrExit(ctx context.Context, status int, ignoreReturn bool) error {
	if status == 0 || ignoreReturn || !r.opts.errexit {
		return nil
	}
	r.runErrTrap(ctx)
	return ctrlErrExit{status: status}
}
