// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"os"
	"strconv"

	"wsh/ast"
	"wsh/vars"
)

// subshell returns an independent Runner sharing this one's I/O streams
// and options but with its own variable scope (vars.Engine.Clone) and
// job table, per spec.md §4.D/§4.G's subshell-isolation rules. Grounded
// on the teacher's api.go Subshell/subshell(background) pattern.
func (r *Runner) subshell() *Runner {
	cp := *r
	cp.Vars = r.Vars.Clone()
	cp.Funcs = make(map[string]*ast.Stmt, len(r.Funcs))
	for k, v := range r.Funcs {
		cp.Funcs[k] = v
	}
	cp.traps = make(map[string]string, len(r.traps))
	for k, v := range r.traps {
		cp.traps[k] = v
	}
	cp.trapsRunning = map[string]bool{}
	cp.jobs = newJobTable()
	cp.dirStack = append([]string(nil), r.dirStack...)
	cp.fillExpandConfig()
	return &cp
}

func mustArray(statuses []int) vars.Variable {
	arr := make(vars.IndexArray, len(statuses))
	for i, s := range statuses {
		arr[i] = strconv.Itoa(s)
	}
	return vars.Variable{Value: arr}
}

// runPipeline executes p.Stmts (spec.md §4.G): every stage runs in its
// own subshell, wired stdout-to-stdin by an os.Pipe per junction, all
// running concurrently so none can deadlock waiting for another to
// drain. A single-stage pipeline (used only for a bare "!cmd") still
// forks, matching spec.md's invariant that a subshell fork always gives
// independent variable state.
func (r *Runner) runPipeline(ctx context.Context, p *ast.Pipeline) (int, error) {
	n := len(p.Stmts)
	subs := make([]*Runner, n)
	var pipeFiles []*os.File
	var prevRead *os.File
	pg := &pgroup{}
	for i := 0; i < n; i++ {
		sub := r.subshell()
		sub.pgroup = pg
		if prevRead != nil {
			sub.Stdin = prevRead
		}
		if i < n-1 {
			pr, pw, err := pipe()
			if err != nil {
				closeAll(pipeFiles...)
				return 1, err
			}
			sub.Stdout = pw
			pipeFiles = append(pipeFiles, pr, pw)
			prevRead = pr
		}
		subs[i] = sub
	}

	results := make([]error, n)
	fns := make([]func() error, n)
	for i, sub := range subs {
		i, sub := i, sub
		fns[i] = func() error {
			results[i] = sub.runStmt(ctx, p.Stmts[i])
			return nil
		}
	}
	waitAll(fns)
	closeAll(pipeFiles...)

	statuses := make([]int, n)
	for i, sub := range subs {
		statuses[i] = sub.lastStatus
	}
	r.pipeStatus = statuses
	r.Vars.Bind("PIPESTATUS", mustArray(statuses))
	status := pipefailStatus(statuses, r.opts.pipefail)
	if p.Negated {
		status = boolToStatus(status != 0)
	}
	for _, e := range results {
		if isControlTransfer(e) {
			return status, e
		}
	}
	return status, nil
}
