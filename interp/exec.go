// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"wsh/ast"
	"wsh/expand"
	"wsh/vars"
)

// runStmts executes a sequential statement list — the top level of a
// File, Group, Subshell, or clause body — per spec.md §4.H: each Stmt
// already encodes its own ";"/"&&"/"||"/"&" relationship to its
// neighbors via ast.Connection, so this is a plain left-to-right walk.
func (r *Runner) runStmts(ctx context.Context, stmts []*ast.Stmt) error {
	for _, s := range stmts {
		if err := r.runStmt(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// runStmt is spec.md §4.H's top-level per-command operation: flag
// evaluation, the subshell-fork check, redirections with an undo list,
// variant dispatch, and the invert/errexit/trap tail.
func (r *Runner) runStmt(ctx context.Context, s *ast.Stmt) error {
	if s.Background {
		return r.runBackground(ctx, s)
	}

	restore, err := r.applyTempAssigns(s)
	if err != nil {
		return err
	}
	defer restore()

	var frame *redirFrame
	if len(s.Redirs) > 0 {
		frame, err = r.applyRedirs(s.Redirs)
		if err != nil {
			r.setStatus(1)
			fmt.Fprintln(r.Stderr, err)
			return r.checkErrExit(ctx, 1, false)
		}
		defer r.undoRedirs(frame)
	}

	status, cmdErr := r.runCommand(ctx, s.Cmd)
	if isControlTransfer(cmdErr) {
		return cmdErr
	}
	if cmdErr != nil {
		fmt.Fprintln(r.Stderr, cmdErr)
		status = 1
	}

	if s.Negated {
		status = boolToStatus(status != 0)
	}
	r.setStatus(status)

	if status != 0 && !r.opts.errexit {
		// under set -e, checkErrExit runs the ERR trap itself
		r.runErrTrap(ctx)
	}
	return r.checkErrExit(ctx, status, false)
}

func isControlTransfer(err error) bool {
	switch err.(type) {
	case ctrlBreak, ctrlContinue, ctrlReturn, ctrlExit, ctrlErrExit:
		return true
	}
	return false
}

func boolToStatus(b bool) int {
	if b {
		return 0
	}
	return 1
}

// runBackground runs s asynchronously: a new job is recorded so `wait`
// and `jobs` can observe it later, per spec.md §3.4/§4.G. Since this
// module's Runner is not safe for concurrent use, the background
// command gets its own subshell copy (see pipeline.go), matching how a
// forked child would see an independent, non-shared copy of shell state.
func (r *Runner) runBackground(ctx context.Context, s *ast.Stmt) error {
	sub := r.subshell()
	sub.async = true
	sub.pgroup = nil // a background job starts its own process group
	done := make(chan struct{})
	j := &job{background: true, done: done}
	r.jobs.add(j)
	go func() {
		defer close(done)
		s2 := *s
		s2.Background = false
		_ = sub.runStmt(ctx, &s2)
		if len(sub.pipeStatus) > 0 {
			j.pipeStatus = sub.pipeStatus
		} else {
			j.pipeStatus = []int{sub.lastStatus}
		}
	}()
	r.setStatus(0)
	return nil
}

// runCommand dispatches one Command variant, per spec.md §4.H step 6.
func (r *Runner) runCommand(ctx context.Context, cmd ast.Command) (int, error) {
	switch c := cmd.(type) {
	case *ast.SimpleCmd:
		return r.runSimple(ctx, c)
	case *ast.Pipeline:
		return r.runPipeline(ctx, c)
	case *ast.Connection:
		return r.runConnection(ctx, c)
	case *ast.Group:
		return r.runBody(ctx, c.Stmts)
	case *ast.Subshell:
		return r.runSubshellStmts(ctx, c.Stmts)
	case *ast.IfClause:
		return r.runIf(ctx, c)
	case *ast.WhileClause:
		return r.runWhile(ctx, c, false)
	case *ast.UntilClause:
		return r.runWhile(ctx, &ast.WhileClause{Cond: c.Cond, Do: c.Do}, true)
	case *ast.ForClause:
		return r.runFor(ctx, c)
	case *ast.ArithForClause:
		return r.runArithFor(ctx, c)
	case *ast.SelectClause:
		return r.runSelect(ctx, c)
	case *ast.CaseClause:
		return r.runCase(ctx, c)
	case *ast.FuncDecl:
		r.Funcs[c.Name.Value] = c.Body
		return 0, nil
	case *ast.ArithCmd:
		n, err := expand.Arithm(r.ecfg, c.X)
		if err != nil {
			return 1, err
		}
		return boolToStatus(n != 0), nil
	case *ast.CondCmd:
		ok, err := r.evalCond(c.X)
		if err != nil {
			return 2, err
		}
		return boolToStatus(ok), nil
	case *ast.CoprocClause:
		return r.runCoproc(ctx, c)
	default:
		return 1, fmt.Errorf("interp: unhandled command %T", cmd)
	}
}

func (r *Runner) runBody(ctx context.Context, stmts []*ast.Stmt) (int, error) {
	err := r.runStmts(ctx, stmts)
	if isControlTransfer(err) {
		return r.lastStatus, err
	}
	return r.lastStatus, err
}

func (r *Runner) runConnection(ctx context.Context, c *ast.Connection) (int, error) {
	switch c.Op {
	case ast.ConnAndThen:
		if err := r.runStmt(ctx, c.X); err != nil {
			return r.lastStatus, err
		}
		if err := r.runStmt(ctx, c.Y); err != nil {
			return r.lastStatus, err
		}
		return r.lastStatus, nil
	case ast.ConnBackground:
		x := *c.X
		x.Background = true
		if err := r.runStmt(ctx, &x); err != nil {
			return r.lastStatus, err
		}
		if err := r.runStmt(ctx, c.Y); err != nil {
			return r.lastStatus, err
		}
		return r.lastStatus, nil
	case ast.ConnAndIf:
		if err := r.runStmt(ctx, c.X); err != nil {
			return r.lastStatus, err
		}
		if r.lastStatus != 0 {
			return r.lastStatus, nil
		}
		if err := r.runStmt(ctx, c.Y); err != nil {
			return r.lastStatus, err
		}
		return r.lastStatus, nil
	default: // ast.ConnOrIf
		if err := r.runStmt(ctx, c.X); err != nil {
			return r.lastStatus, err
		}
		if r.lastStatus == 0 {
			return r.lastStatus, nil
		}
		if err := r.runStmt(ctx, c.Y); err != nil {
			return r.lastStatus, err
		}
		return r.lastStatus, nil
	}
}

func (r *Runner) runIf(ctx context.Context, c *ast.IfClause) (int, error) {
	ok, err := r.runCondList(ctx, c.Cond)
	if err != nil {
		return r.lastStatus, err
	}
	if ok {
		return r.runBody(ctx, c.Then)
	}
	for _, e := range c.Elifs {
		ok, err := r.runCondList(ctx, e.Cond)
		if err != nil {
			return r.lastStatus, err
		}
		if ok {
			return r.runBody(ctx, e.Then)
		}
	}
	if c.HasElse {
		return r.runBody(ctx, c.Else)
	}
	return 0, nil
}

// runCondList runs a condition statement list (an if/while/until test)
// with errexit suppressed, per spec.md §4.H's noErrExit carve-out for
// condition contexts.
func (r *Runner) runCondList(ctx context.Context, stmts []*ast.Stmt) (bool, error) {
	saved := r.opts.errexit
	r.opts.errexit = false
	err := r.runStmts(ctx, stmts)
	r.opts.errexit = saved
	if isControlTransfer(err) {
		return false, err
	}
	return r.lastStatus == 0, nil
}

func (r *Runner) runWhile(ctx context.Context, c *ast.WhileClause, until bool) (int, error) {
	r.loopLevel++
	defer func() { r.loopLevel-- }()
	status := 0
	for {
		ok, err := r.runCondList(ctx, c.Cond)
		if err != nil {
			return status, err
		}
		if until {
			ok = !ok
		}
		if !ok {
			break
		}
		status, err = r.runBody(ctx, c.Do)
		if cont, brk, rerr := r.loopSignal(err); rerr != nil {
			return status, rerr
		} else if brk {
			break
		} else if cont {
			continue
		}
	}
	return status, nil
}

// loopSignal interprets a body's returned error for the enclosing loop:
// it absorbs a break/continue targeting this loop level (decrementing
// N), reports whether to break or continue, and re-raises anything that
// must keep unwinding further (a deeper break N>1, a return, an exit).
func (r *Runner) loopSignal(err error) (cont, brk bool, rerr error) {
	if err == nil {
		return false, false, nil
	}
	var b ctrlBreak
	if errors.As(err, &b) {
		if b.n > 1 {
			return false, true, ctrlBreak{n: b.n - 1}
		}
		return false, true, nil
	}
	var c ctrlContinue
	if errors.As(err, &c) {
		if c.n > 1 {
			return false, true, ctrlContinue{n: c.n - 1}
		}
		return true, false, nil
	}
	return false, false, err
}

func (r *Runner) runFor(ctx context.Context, c *ast.ForClause) (int, error) {
	items := c.Items
	if !c.HasIn {
		items = nil
		for _, p := range r.Params {
			items = append(items, ast.Word{Parts: []ast.WordPart{&ast.Lit{Value: p}}})
		}
	}
	r.loopLevel++
	defer func() { r.loopLevel-- }()
	status := 0
	for _, w := range items {
		fields, err := expand.Fields(r.ecfg, w, 0)
		if err != nil {
			return status, err
		}
		for _, f := range fields {
			r.Vars.Bind(c.Name.Value, vars.Variable{Value: vars.StringVal(f)})
			status, err = r.runBody(ctx, c.Do)
			cont, brk, rerr := r.loopSignal(err)
			if rerr != nil {
				return status, rerr
			}
			if brk {
				return status, nil
			}
			if cont {
				continue
			}
		}
	}
	return status, nil
}

func (r *Runner) runArithFor(ctx context.Context, c *ast.ArithForClause) (int, error) {
	if c.Init != nil {
		if _, err := expand.Arithm(r.ecfg, c.Init); err != nil {
			return 1, err
		}
	}
	r.loopLevel++
	defer func() { r.loopLevel-- }()
	status := 0
	for {
		if c.Cond != nil {
			n, err := expand.Arithm(r.ecfg, c.Cond)
			if err != nil {
				return status, err
			}
			if n == 0 {
				break
			}
		}
		var err error
		status, err = r.runBody(ctx, c.Do)
		cont, brk, rerr := r.loopSignal(err)
		if rerr != nil {
			return status, rerr
		}
		if brk {
			break
		}
		_ = cont
		if c.Post != nil {
			if _, err := expand.Arithm(r.ecfg, c.Post); err != nil {
				return status, err
			}
		}
	}
	return status, nil
}

func (r *Runner) runSelect(ctx context.Context, c *ast.SelectClause) (int, error) {
	items := c.Items
	if !c.HasIn {
		items = nil
		for _, p := range r.Params {
			items = append(items, ast.Word{Parts: []ast.WordPart{&ast.Lit{Value: p}}})
		}
	}
	var choices []string
	for _, w := range items {
		s, err := expand.Literal(r.ecfg, w)
		if err != nil {
			return 1, err
		}
		choices = append(choices, s)
	}
	ps3 := "#? "
	if v := r.Vars.Lookup("PS3"); v.IsSet() {
		ps3 = v.Value.String()
	}
	buf := make([]byte, 256)
	for {
		for i, c := range choices {
			fmt.Fprintf(r.Stdout, "%d) %s\n", i+1, c)
		}
		fmt.Fprint(r.Stdout, ps3)
		n, err := r.Stdin.Read(buf)
		if err != nil || n == 0 {
			return 0, nil
		}
		line := string(buf[:n])
		for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
			line = line[:len(line)-1]
		}
		r.Vars.Bind("REPLY", vars.Variable{Value: vars.StringVal(line)})
		idx, _ := strconv.Atoi(line)
		choice := ""
		if idx >= 1 && idx <= len(choices) {
			choice = choices[idx-1]
		}
		r.Vars.Bind(c.Name.Value, vars.Variable{Value: vars.StringVal(choice)})
		status, err := r.runBody(ctx, c.Do)
		if isControlTransfer(err) {
			if _, brk, rerr := r.loopSignal(err); rerr != nil {
				return status, rerr
			} else if brk {
				return status, nil
			}
			continue
		}
		if err != nil {
			return status, err
		}
	}
}

func (r *Runner) runCase(ctx context.Context, c *ast.CaseClause) (int, error) {
	str, err := expand.Literal(r.ecfg, c.Word)
	if err != nil {
		return 1, err
	}
	fall := false
	for i := 0; i < len(c.Arms); i++ {
		arm := c.Arms[i]
		if !fall && !r.caseArmMatches(arm, str) {
			continue
		}
		fall = false
		status, err := r.runBody(ctx, arm.Stmts)
		switch arm.Op {
		case ast.CaseFallthru:
			if i+1 < len(c.Arms) {
				fall = true
				continue
			}
			return status, err
		case ast.CaseTestNext:
			continue
		default:
			return status, err
		}
	}
	return 0, nil
}

func (r *Runner) caseArmMatches(arm *ast.CaseArm, str string) bool {
	for _, pat := range arm.Patterns {
		lit, err := expand.Literal(r.ecfg, pat)
		if err != nil {
			continue
		}
		if matchPattern(lit, str) {
			return true
		}
	}
	return false
}

func (r *Runner) runSubshellStmts(ctx context.Context, stmts []*ast.Stmt) (int, error) {
	sub := r.subshell()
	err := sub.runStmts(ctx, stmts)
	r.lastStatus = sub.lastStatus
	if isControlTransfer(err) {
		var ex ctrlExit
		if errors.As(err, &ex) {
			return ex.status, nil
		}
		return r.lastStatus, nil
	}
	return r.lastStatus, err
}

// applyTempAssigns binds s.Assigns for the duration of the statement
// when the statement is a SimpleCmd with a command name ("FOO=bar cmd"),
// restoring the prior bindings afterwards; otherwise (a bare assignment,
// or any compound command) the bindings persist in the current scope,
// matching POSIX's distinction.
func (r *Runner) applyTempAssigns(s *ast.Stmt) (func(), error) {
	if len(s.Assigns) == 0 {
		return func() {}, nil
	}
	sc, isSimple := s.Cmd.(*ast.SimpleCmd)
	temporary := isSimple && len(sc.Args) > 0

	var saved []struct {
		name string
		vr   vars.Variable
		was  bool
	}
	for _, a := range s.Assigns {
		if temporary {
			old := r.Vars.Lookup(a.Name.Value)
			saved = append(saved, struct {
				name string
				vr   vars.Variable
				was  bool
			}{a.Name.Value, old, old.IsSet()})
		}
		if err := r.applyAssign(a); err != nil {
			return func() {}, err
		}
	}
	if !temporary {
		return func() {}, nil
	}
	return func() {
		for _, s := range saved {
			if s.was {
				r.Vars.Bind(s.name, s.vr)
			} else {
				r.Vars.Unset(s.name)
			}
		}
	}, nil
}

func (r *Runner) applyAssign(a *ast.Assign) error {
	if a.Array != nil {
		arr := vars.IndexArray{}
		for _, e := range a.Array.Elems {
			v, err := expand.Literal(r.ecfg, e.Value)
			if err != nil {
				return err
			}
			arr = append(arr, v)
		}
		r.Vars.Bind(a.Name.Value, vars.Variable{Value: arr})
		return nil
	}
	val, err := expand.Literal(r.ecfg, a.Value)
	if err != nil {
		return err
	}
	if a.Append {
		cur := r.Vars.Lookup(a.Name.Value)
		if cur.IsSet() {
			val = cur.Value.String() + val
		}
	}
	if !r.Vars.Bind(a.Name.Value, vars.Variable{Value: vars.StringVal(val)}) {
		return fmt.Errorf("%s: readonly variable", a.Name.Value)
	}
	return nil
}

// runSimple is spec.md §4.H step 6's Simple case: expand words, then
// dispatch as a special builtin, a function, a regular builtin, or an
// external program found on $PATH.
func (r *Runner) runSimple(ctx context.Context, sc *ast.SimpleCmd) (int, error) {
	if _, err := r.applyTempAssigns(&ast.Stmt{Assigns: nil}); err != nil {
		return 1, err
	}
	var args []string
	for _, w := range sc.Args {
		fields, err := expand.Fields(r.ecfg, w, 0)
		if err != nil {
			return 1, err
		}
		args = append(args, fields...)
	}
	if len(args) == 0 {
		return 0, nil // side-effect-only: assignments already applied by the caller
	}
	name := args[0]
	bypassFuncs := false
	viaCommand := false
	for name == "command" || name == "builtin" {
		// both "command" and "builtin" bypass shell functions (POSIX).
		bypassFuncs = true
		if name == "command" {
			// "command" also strips a special builtin's fatal-error rule
			viaCommand = true
		}
		args = args[1:]
		if len(args) == 0 {
			return 0, nil
		}
		name = args[0]
		if name == "builtin" {
			continue
		}
		break
	}
	if body, ok := r.Funcs[name]; ok && !bypassFuncs && !isSpecialBuiltin(name) {
		return r.callFunc(ctx, body, args)
	}
	if fn, ok := builtins[name]; ok {
		status, err := fn(ctx, r, args[1:])
		if err != nil && !isControlTransfer(err) && isSpecialBuiltin(name) && !viaCommand && !r.Interactive {
			// POSIX: a special builtin's own error is fatal to a
			// non-interactive shell, unlike a regular command's.
			if status == 0 {
				status = 1
			}
			fmt.Fprintln(r.Stderr, err)
			return status, ctrlExit{status: status}
		}
		return status, err
	}
	path, err := r.execPath(name)
	if err != nil {
		fmt.Fprintln(r.Stderr, err)
		return 127, nil
	}
	cmd := newExtCmd(ctx, path, args, r.Dir, r.Vars.ExportEnv(), r.Stdin, r.Stdout, r.Stderr)
	ttyFd := int(os.Stdin.Fd())
	if r.Stdin != nil {
		ttyFd = int(r.Stdin.Fd())
	}
	foreground := r.opts.monitor && !r.async
	var startErr error
	if r.pgroup != nil {
		_, startErr = r.pgroup.join(cmd, foreground, r.async, ttyFd)
	} else {
		_, startErr = startProcess(cmd, 0, foreground, r.async, ttyFd)
	}
	if startErr != nil {
		if errors.Is(startErr, exec.ErrNotFound) || os.IsPermission(startErr) {
			return 126, nil
		}
		return 1, startErr
	}
	return exitCodeOf(cmd.Wait()), nil
}

// callFunc implements spec.md §4.H's function-call protocol: a new
// variable context, new positional parameters, and a caught `return`.
func (r *Runner) callFunc(ctx context.Context, body *ast.Stmt, args []string) (int, error) {
	r.Vars.PushContext()
	defer r.Vars.PopContext()
	savedParams, savedArg0 := r.Params, r.Arg0
	r.Params = args[1:]
	r.Arg0 = args[0]
	r.fillExpandConfig()
	defer func() {
		r.Params, r.Arg0 = savedParams, savedArg0
		r.fillExpandConfig()
	}()
	r.funcDepth++
	defer func() { r.funcDepth-- }()

	status, err := r.runCommand(ctx, body.Cmd)
	var ret ctrlReturn
	if errors.As(err, &ret) {
		r.runTrap(ctx, "RETURN")
		return ret.status, nil
	}
	return status, err
}

func (r *Runner) runCoproc(ctx context.Context, c *ast.CoprocClause) (int, error) {
	name := "COPROC"
	if c.Name != nil {
		name = c.Name.Value
	}
	inR, inW, err := pipe()
	if err != nil {
		return 1, err
	}
	outR, outW, err := pipe()
	if err != nil {
		return 1, err
	}
	sub := r.subshell()
	sub.Stdin = outR
	sub.Stdout = inW
	go func() {
		defer closeAll(inW, outR)
		_ = sub.runStmt(ctx, c.Stmt)
	}()
	r.Vars.Bind(name, vars.Variable{Value: vars.IndexArray{
		strconv.Itoa(int(outW.Fd())), strconv.Itoa(int(inR.Fd())),
	}})
	return 0, nil
}
