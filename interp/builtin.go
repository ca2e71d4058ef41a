// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"wsh/ast"
	"wsh/parser"
	"wsh/vars"
)

// parseShellString parses src as a standalone script, used by "eval" and
// "source"/"." to turn a runtime string back into a statement list.
func parseShellString(src string) ([]*ast.Stmt, error) {
	f, err := parser.Parse(parser.NewSourceString(src, "eval"), "eval")
	if err != nil {
		return nil, err
	}
	return f.Stmts, nil
}

// builtinFunc implements one builtin; args excludes the builtin's own
// name. Grounded on the teacher's interp/builtin.go dispatch switch,
// restructured as a lookup table (this module's Runner doesn't need the
// teacher's HandlerContext indirection since it has no pluggable
// CallHandler).
type builtinFunc func(ctx context.Context, r *Runner, args []string) (int, error)

var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		":":        func(ctx context.Context, r *Runner, a []string) (int, error) { return 0, nil },
		"true":     func(ctx context.Context, r *Runner, a []string) (int, error) { return 0, nil },
		"false":    func(ctx context.Context, r *Runner, a []string) (int, error) { return 1, nil },
		"echo":     biEcho,
		"exit":     biExit,
		"return":   biReturn,
		"break":    biBreak,
		"continue": biContinue,
		"cd":       biCd,
		"pwd":      biPwd,
		"export":   biExport,
		"unset":    biUnset,
		"readonly": biReadonly,
		"local":    biLocal,
		"declare":  biLocal,
		"typeset":  biLocal,
		"set":      biSet,
		"shift":    biShift,
		"read":     biRead,
		"trap":     biTrap,
		"wait":     biWait,
		"eval":     biEval,
		"source":   biSource,
		".":        biSource,
		"test":     biTest,
		"[":        biBracket,
		"jobs":     biJobs,
	}
}

// specialBuiltin is the POSIX special-builtin set this module
// implements: an error from one of these (not merely a non-zero exit
// status) is fatal to a non-interactive shell, per runSimple's
// isSpecialBuiltin check. "exec" and "times" are special builtins too
// but this module does not implement either one.
var specialBuiltin = map[string]bool{
	":":        true,
	"break":    true,
	"continue": true,
	".":        true,
	"eval":     true,
	"exit":     true,
	"export":   true,
	"readonly": true,
	"return":   true,
	"set":      true,
	"shift":    true,
	"trap":     true,
	"unset":    true,
}

func isSpecialBuiltin(name string) bool { return specialBuiltin[name] }

func biEcho(ctx context.Context, r *Runner, args []string) (int, error) {
	nflag := false
	for len(args) > 0 && args[0] == "-n" {
		nflag = true
		args = args[1:]
	}
	fmt.Fprint(r.Stdout, strings.Join(args, " "))
	if !nflag {
		fmt.Fprintln(r.Stdout)
	}
	return 0, nil
}

func biExit(ctx context.Context, r *Runner, args []string) (int, error) {
	status := r.lastStatus
	if len(args) > 0 {
		status, _ = strconv.Atoi(args[0])
	}
	return status, ctrlExit{status: status}
}

func biReturn(ctx context.Context, r *Runner, args []string) (int, error) {
	status := r.lastStatus
	if len(args) > 0 {
		status, _ = strconv.Atoi(args[0])
	}
	return status, ctrlReturn{status: status}
}

func biBreak(ctx context.Context, r *Runner, args []string) (int, error) {
	n := 1
	if len(args) > 0 {
		n, _ = strconv.Atoi(args[0])
	}
	if n < 1 {
		n = 1
	}
	return 0, ctrlBreak{n: n}
}

func biContinue(ctx context.Context, r *Runner, args []string) (int, error) {
	n := 1
	if len(args) > 0 {
		n, _ = strconv.Atoi(args[0])
	}
	if n < 1 {
		n = 1
	}
	return 0, ctrlContinue{n: n}
}

func biCd(ctx context.Context, r *Runner, args []string) (int, error) {
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	} else if v := r.Vars.Lookup("HOME"); v.IsSet() {
		dir = v.Value.String()
	}
	if dir == "-" {
		if v := r.Vars.Lookup("OLDPWD"); v.IsSet() {
			dir = v.Value.String()
		}
	}
	if !strings.HasPrefix(dir, "/") {
		dir = joinDir(r.Dir, dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(r.Stderr, "cd: %s: not a directory\n", dir)
		return 1, nil
	}
	r.Vars.Bind("OLDPWD", vars.Variable{Value: vars.StringVal(r.Dir)})
	r.Dir = dir
	r.Vars.Bind("PWD", vars.Variable{Value: vars.StringVal(dir)})
	return 0, nil
}

func joinDir(base, rel string) string {
	if rel == "" {
		return base
	}
	if strings.HasPrefix(rel, "/") {
		return rel
	}
	return base + "/" + rel
}

func biPwd(ctx context.Context, r *Runner, args []string) (int, error) {
	fmt.Fprintln(r.Stdout, r.Dir)
	return 0, nil
}

func biExport(ctx context.Context, r *Runner, args []string) (int, error) {
	if len(args) == 0 {
		for _, e := range r.Vars.ExportEnv() {
			fmt.Fprintln(r.Stdout, "export "+e)
		}
		return 0, nil
	}
	for _, a := range args {
		name, val, hasVal := strings.Cut(a, "=")
		vr := r.Vars.Lookup(name)
		if hasVal {
			vr.Value = vars.StringVal(val)
		}
		vr.Attrs |= vars.Exported
		r.Vars.Bind(name, vr)
	}
	return 0, nil
}

func biUnset(ctx context.Context, r *Runner, args []string) (int, error) {
	for _, a := range args {
		r.Vars.Unset(a)
	}
	return 0, nil
}

func biReadonly(ctx context.Context, r *Runner, args []string) (int, error) {
	for _, a := range args {
		name, val, hasVal := strings.Cut(a, "=")
		vr := r.Vars.Lookup(name)
		if hasVal {
			vr.Value = vars.StringVal(val)
		}
		vr.Attrs |= vars.ReadOnly
		r.Vars.Bind(name, vr)
	}
	return 0, nil
}

func biLocal(ctx context.Context, r *Runner, args []string) (int, error) {
	for _, a := range args {
		name, val, hasVal := strings.Cut(a, "=")
		vr := r.Vars.Lookup(name)
		if hasVal {
			vr.Value = vars.StringVal(val)
		} else if vr.Value == nil {
			vr.Value = vars.StringVal("")
		}
		vr.Attrs |= vars.Local
		r.Vars.Bind(name, vr)
	}
	return 0, nil
}

// biSet implements "set": leading "-"/"+" flag words toggle options (with
// "-o"/"+o name" taking the option name from the following word), a bare
// "--" ends option processing unconditionally, and whatever operands
// remain become the new positional parameters. With no operands and no
// "--", the existing parameters are left alone (POSIX's "set" with zero
// non-option arguments); "set --" alone clears them.
func biSet(ctx context.Context, r *Runner, args []string) (int, error) {
	i := 0
	sawOperands := false
	var operands []string
	for i < len(args) {
		a := args[i]
		if len(a) < 2 || (a[0] != '-' && a[0] != '+') {
			break
		}
		on := a[0] == '-'
		if a == "--" {
			i++
			sawOperands = true
			break
		}
		if a == "-o" || a == "+o" {
			i++
			if i < len(args) {
				if args[i] == "pipefail" {
					r.opts.pipefail = on
				}
				i++
			}
			continue
		}
		for _, f := range a[1:] {
			switch f {
			case 'e':
				r.opts.errexit = on
			case 'u':
				r.opts.nounset = on
			case 'f':
				r.opts.noglob = on
			case 'x':
				r.opts.xtrace = on
			case 'n':
				r.opts.noexec = on
			case 'a':
				r.opts.allexport = on
			case 'm':
				r.opts.monitor = on
			}
		}
		i++
	}
	for ; i < len(args); i++ {
		sawOperands = true
		operands = append(operands, args[i])
	}
	if sawOperands {
		r.Params = operands
		r.fillExpandConfig()
	}
	return 0, nil
}

func biShift(ctx context.Context, r *Runner, args []string) (int, error) {
	n := 1
	if len(args) > 0 {
		n, _ = strconv.Atoi(args[0])
	}
	if n > len(r.Params) {
		return 1, nil
	}
	r.Params = r.Params[n:]
	r.fillExpandConfig()
	return 0, nil
}

func biRead(ctx context.Context, r *Runner, args []string) (int, error) {
	if len(args) == 0 {
		args = []string{"REPLY"}
	}
	reader := bufio.NewReader(r.Stdin)
	line, err := reader.ReadString('\n')
	line = strings.TrimRight(line, "\n")
	fields := strings.Fields(line)
	for i, name := range args {
		val := ""
		switch {
		case i == len(args)-1:
			val = strings.Join(fields[minInt(i, len(fields)):], " ")
		case i < len(fields):
			val = fields[i]
		}
		r.Vars.Bind(name, vars.Variable{Value: vars.StringVal(val)})
	}
	if err != nil {
		return 1, nil
	}
	return 0, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func biTrap(ctx context.Context, r *Runner, args []string) (int, error) {
	if len(args) == 0 {
		names := make([]string, 0, len(r.traps))
		for n := range r.traps {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(r.Stdout, "trap -- %q %s\n", r.traps[n], n)
		}
		return 0, nil
	}
	cmd := args[0]
	for _, sig := range args[1:] {
		r.traps[sig] = cmd
	}
	return 0, nil
}

func biWait(ctx context.Context, r *Runner, args []string) (int, error) {
	status := 0
	if len(args) == 0 {
		for _, j := range r.jobsSnapshot() {
			<-j.done
		}
		return status, nil
	}
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			continue
		}
		if j, ok := r.jobs.get(n); ok {
			<-j.done
			if len(j.pipeStatus) > 0 {
				status = j.pipeStatus[len(j.pipeStatus)-1]
			}
		}
	}
	return status, nil
}

func (r *Runner) jobsSnapshot() []*job {
	r.jobs.mu.Lock()
	defer r.jobs.mu.Unlock()
	out := make([]*job, 0, len(r.jobs.jobs))
	for _, j := range r.jobs.jobs {
		out = append(out, j)
	}
	return out
}

func biJobs(ctx context.Context, r *Runner, args []string) (int, error) {
	for _, j := range r.jobsSnapshot() {
		fmt.Fprintf(r.Stdout, "[%d]\n", j.id)
	}
	return 0, nil
}

func biEval(ctx context.Context, r *Runner, args []string) (int, error) {
	src := strings.Join(args, " ")
	stmts, err := parseShellString(src)
	if err != nil {
		return 1, err
	}
	err = r.runStmts(ctx, stmts)
	if isControlTransfer(err) {
		return r.lastStatus, err
	}
	if err != nil {
		return 1, err
	}
	return r.lastStatus, nil
}

func biSource(ctx context.Context, r *Runner, args []string) (int, error) {
	if len(args) == 0 {
		return 1, fmt.Errorf("source: filename argument required")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return 1, err
	}
	stmts, err := parseShellString(string(data))
	if err != nil {
		return 1, err
	}
	savedParams := r.Params
	if len(args) > 1 {
		r.Params = args[1:]
		r.fillExpandConfig()
	}
	err = r.runStmts(ctx, stmts)
	r.Params = savedParams
	r.fillExpandConfig()
	var ret ctrlReturn
	if ok := asReturn(err, &ret); ok {
		return ret.status, nil
	}
	if isControlTransfer(err) {
		return r.lastStatus, err
	}
	if err != nil {
		return 1, err
	}
	return r.lastStatus, nil
}

func asReturn(err error, ret *ctrlReturn) bool {
	r, ok := err.(ctrlReturn)
	if ok {
		*ret = r
	}
	return ok
}

func biTest(ctx context.Context, r *Runner, args []string) (int, error) {
	ok, err := evalTestArgs(args)
	if err != nil {
		return 2, err
	}
	return boolToStatus(ok), nil
}

func biBracket(ctx context.Context, r *Runner, args []string) (int, error) {
	if len(args) == 0 || args[len(args)-1] != "]" {
		return 2, fmt.Errorf("[: missing closing ]")
	}
	return biTest(ctx, r, args[:len(args)-1])
}

// evalTestArgs implements a minimal POSIX "test"/"[" over already-expanded
// string args, covering the same condition vocabulary cond.go evaluates
// for "[[ ]]" — test's grammar is a word-level subset of it.
func evalTestArgs(args []string) (bool, error) {
	switch len(args) {
	case 0:
		return false, nil
	case 1:
		return args[0] != "", nil
	case 2:
		return evalTestUnary(args[0], args[1])
	case 3:
		return evalTestBinary(args[0], args[1], args[2])
	default:
		return false, fmt.Errorf("test: too many arguments")
	}
}

func evalTestUnary(op, val string) (bool, error) {
	switch op {
	case "-z":
		return val == "", nil
	case "-n":
		return val != "", nil
	case "-e":
		return statExists(val), nil
	case "-f":
		return statMode(val, func(fi os.FileInfo) bool { return fi.Mode().IsRegular() }), nil
	case "-d":
		return statMode(val, func(fi os.FileInfo) bool { return fi.IsDir() }), nil
	case "-r":
		return accessible(val, unix.R_OK), nil
	case "-w":
		return accessible(val, unix.W_OK), nil
	case "-x":
		fi, err := os.Stat(val)
		return err == nil && fi.Mode()&0o111 != 0, nil
	default:
		return false, fmt.Errorf("test: unknown unary operator %q", op)
	}
}

func evalTestBinary(x, op, y string) (bool, error) {
	switch op {
	case "=", "==":
		return matchPattern(y, x), nil
	case "!=":
		return !matchPattern(y, x), nil
	case "-eq", "-ne", "-le", "-ge", "-lt", "-gt":
		nx, _ := strconv.Atoi(x)
		ny, _ := strconv.Atoi(y)
		switch op {
		case "-eq":
			return nx == ny, nil
		case "-ne":
			return nx != ny, nil
		case "-le":
			return nx <= ny, nil
		case "-ge":
			return nx >= ny, nil
		case "-lt":
			return nx < ny, nil
		default:
			return nx > ny, nil
		}
	default:
		return false, fmt.Errorf("test: unknown binary operator %q", op)
	}
}
