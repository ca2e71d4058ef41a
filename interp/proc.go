// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// job is one background statement the shell is tracking for `wait`/
// `jobs` (spec.md §3.4/§4.G): its process group, its per-element exit
// statuses once its subshell finishes, and a done channel `wait` blocks
// on.
type job struct {
	id         int
	pgid       int
	background bool
	pipeStatus []int
	done       chan struct{}
}

// jobTable is the shell's view of spec.md §3.4: background jobs it can
// still `wait` for by number.
type jobTable struct {
	mu   sync.Mutex
	next int
	jobs map[int]*job
}

func newJobTable() *jobTable {
	return &jobTable{jobs: map[int]*job{}}
}

func (t *jobTable) add(j *job) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	j.id = t.next
	t.jobs[j.id] = j
	return j.id
}

func (t *jobTable) remove(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, id)
}

func (t *jobTable) get(id int) (*job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	return j, ok
}

// startProcess forks (via os/exec's fork+exec) one element of a
// pipeline. pgid, if non-zero, is the process group to join; a zero
// pgid means "become the group leader", per spec.md §4.G's process-group
// discipline. ttyFd is the controlling-terminal fd consulted when
// foreground is set (the Runner's own Stdin, not necessarily the shell
// process's os.Stdin — see pgroup.join). Grounded on the teacher's
// interp/handler_unix.go (syscall.SysProcAttr{Setpgid: true}),
// generalized here to join an existing group rather than only ever
// creating a new one, since a full pipeline needs every element in one
// group.
func startProcess(cmd *exec.Cmd, pgid int, foreground bool, async bool, ttyFd int) (int, error) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    pgid,
	}
	if async {
		// asynchronous commands are immune to SIGINT/SIGQUIT from the
		// controlling terminal (spec.md §4.G) and read from /dev/null
		// unless given an explicit stdin.
		if cmd.Stdin == nil {
			if devNull, err := os.Open(os.DevNull); err == nil {
				cmd.Stdin = devNull
			}
		}
	}
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	newPgid := pgid
	if newPgid == 0 {
		newPgid = cmd.Process.Pid
	}
	if foreground {
		setForeground(ttyFd, newPgid)
	}
	return newPgid, nil
}

// setForeground assigns the terminal's controlling process group,
// ignoring errors: most non-interactive invocations have no controlling
// terminal at all, in which case this is a harmless no-op (spec.md §4.G
// only requires it "when job control is on and the job is foreground").
func setForeground(ttyFd, pgid int) {
	_ = unix.IoctlSetPointerInt(ttyFd, unix.TIOCSPGRP, pgid)
}

// pgroup coordinates process-group membership across one pipeline's
// elements: spec.md §4.G says "the first child of a pipeline becomes
// the group leader; subsequent children join". Since runPipeline forks
// each element from its own goroutine (DESIGN.md's concurrent-dispatch
// choice), joining needs to serialize exactly the fork/Setpgid step —
// everything after Start() still runs concurrently, matching spec.md
// §5's "forked left-to-right but execute concurrently".
type pgroup struct {
	mu   sync.Mutex
	pgid int
}

// join starts cmd as a member of g, assigning it the terminal's
// foreground process group once the leader's pgid is known.
func (g *pgroup) join(cmd *exec.Cmd, foreground bool, async bool, ttyFd int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	newPgid, err := startProcess(cmd, g.pgid, foreground, async, ttyFd)
	if err != nil {
		return 0, err
	}
	if g.pgid == 0 {
		g.pgid = newPgid
	}
	return newPgid, nil
}

// waitAll runs every fn concurrently via errgroup and blocks until all
// have returned, ignoring individual errors (a plain errgroup.Group
// never cancels sibling goroutines on a first error, so this is just
// its fan-out/wait-all shape without the fail-fast part runPipeline
// doesn't want: every element of a pipeline must still be reaped even
// when an earlier one fails). Grounded on the teacher's use of
// golang.org/x/sync/errgroup-style fan-out in its interactive job
// control, replacing this package's former hand-rolled done-channel
// loop in runPipeline.
func waitAll(fns []func() error) {
	var g errgroup.Group
	for _, fn := range fns {
		fn := fn
		g.Go(fn)
	}
	_ = g.Wait()
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return ee.ExitCode()
	}
	return 126
}

// pipefailStatus applies spec.md §4.G's pipefail rule: "$? takes the
// status of the last (rightmost) element unless pipefail is set, in
// which case it is the rightmost non-zero status or zero".
func pipefailStatus(statuses []int, pipefail bool) int {
	if len(statuses) == 0 {
		return 0
	}
	if !pipefail {
		return statuses[len(statuses)-1]
	}
	for i := len(statuses) - 1; i >= 0; i-- {
		if statuses[i] != 0 {
			return statuses[i]
		}
	}
	return 0
}

// pipe is a thin wrapper so pipeline.go's pipeline dispatch reads like
// spec.md §4.G's operation list ("pipe()", "open-pipes-between(a,b)").
func pipe() (r, w *os.File, err error) {
	return os.Pipe()
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}

// killPgid sends sig to every process in pgid. No builtin calls it; only
// the job tests use it.
func killPgid(pgid int, sig syscall.Signal) error {
	return syscall.Kill(-pgid, sig)
}
