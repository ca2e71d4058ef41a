// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"golang.org/x/sys/unix"

	"wsh/ast"
	"wsh/expand"
	"wsh/vars"
)

// accessible wraps unix.Access (there is no os.Access in the standard
// library) for the "-r"/"-w" [[ ]] and test operators ("-x" checks the
// mode bits instead).
func accessible(path string, mode uint32) bool {
	return unix.Access(path, mode) == nil
}

// evalCond evaluates a "[[ ]]" expression tree. Grounded on the teacher's
// interp/test.go (bashTest/binTest/unTest), adapted from its
// string-returning recursive style to a bool-returning one over this
// module's ast.CondExpr hierarchy.
func (r *Runner) evalCond(x ast.CondExpr) (bool, error) {
	switch c := x.(type) {
	case *ast.CondWord:
		s, err := expand.Literal(r.ecfg, c.W)
		if err != nil {
			return false, err
		}
		return s != "", nil
	case *ast.ParenCond:
		return r.evalCond(c.X)
	case *ast.UnaryCond:
		return r.evalUnaryCond(c)
	case *ast.BinaryCond:
		return r.evalBinaryCond(c)
	default:
		return false, fmt.Errorf("interp: unhandled cond expr %T", x)
	}
}

func (r *Runner) evalUnaryCond(u *ast.UnaryCond) (bool, error) {
	if u.Op == ast.CondNot {
		ok, err := r.evalCond(u.X)
		return !ok, err
	}
	w, ok := u.X.(*ast.CondWord)
	if !ok {
		ok2, err := r.evalCond(u.X)
		return ok2, err
	}
	s, err := expand.Literal(r.ecfg, w.W)
	if err != nil {
		return false, err
	}
	switch u.Op {
	case ast.CondExists:
		return statExists(s), nil
	case ast.CondRegFile:
		return statMode(s, func(fi os.FileInfo) bool { return fi.Mode().IsRegular() }), nil
	case ast.CondDirectory:
		return statMode(s, func(fi os.FileInfo) bool { return fi.IsDir() }), nil
	case ast.CondSymlink:
		fi, err := os.Lstat(s)
		return err == nil && fi.Mode()&os.ModeSymlink != 0, nil
	case ast.CondNamedPipe:
		return statMode(s, func(fi os.FileInfo) bool { return fi.Mode()&os.ModeNamedPipe != 0 }), nil
	case ast.CondSocket:
		return statMode(s, func(fi os.FileInfo) bool { return fi.Mode()&os.ModeSocket != 0 }), nil
	case ast.CondCharSpecial:
		return statMode(s, func(fi os.FileInfo) bool { return fi.Mode()&os.ModeCharDevice != 0 }), nil
	case ast.CondBlockSpecial:
		return statMode(s, func(fi os.FileInfo) bool { return fi.Mode()&os.ModeDevice != 0 && fi.Mode()&os.ModeCharDevice == 0 }), nil
	case ast.CondReadable:
		return accessible(s, unix.R_OK), nil
	case ast.CondWritable:
		return accessible(s, unix.W_OK), nil
	case ast.CondExecutable:
		fi, err := os.Stat(s)
		return err == nil && fi.Mode()&0o111 != 0, nil
	case ast.CondNonEmpty:
		fi, err := os.Stat(s)
		return err == nil && fi.Size() > 0, nil
	case ast.CondSetUID:
		return statMode(s, func(fi os.FileInfo) bool { return fi.Mode()&os.ModeSetuid != 0 }), nil
	case ast.CondSetGID:
		return statMode(s, func(fi os.FileInfo) bool { return fi.Mode()&os.ModeSetgid != 0 }), nil
	case ast.CondTermFD:
		n, _ := strconv.Atoi(s)
		f := r.termFile(n)
		if f == nil {
			return false, nil
		}
		fi, err := f.Stat()
		return err == nil && fi.Mode()&os.ModeCharDevice != 0, nil
	case ast.CondOptionSet:
		return false, nil
	case ast.CondVarSet:
		return r.Vars.Lookup(s).IsSet(), nil
	case ast.CondNameref:
		v := r.Vars.Lookup(s)
		return v.IsSet() && v.Attrs.Has(vars.NameRef), nil
	case ast.CondStringEmpty:
		return s == "", nil
	case ast.CondStringNonEmpty:
		return s != "", nil
	default:
		return false, fmt.Errorf("interp: unhandled unary cond op %v", u.Op)
	}
}

// termFile resolves a small integer fd to the *os.File backing it, for
// "-t fd" (spec.md's CondTermFD): fd 0/1/2 map to this Runner's own
// Stdin/Stdout/Stderr rather than the process's, so a redirected or
// pipeline-internal stream is tested correctly instead of always
// reporting the shell process's own stdio. Other fds have no tracked
// *os.File in this module's fd model and are never a terminal.
func (r *Runner) termFile(n int) *os.File {
	switch n {
	case 0:
		if r.Stdin != nil {
			return r.Stdin
		}
		return os.Stdin
	case 1:
		if f, ok := r.Stdout.(*os.File); ok {
			return f
		}
	case 2:
		if f, ok := r.Stderr.(*os.File); ok {
			return f
		}
	}
	return nil
}

func statExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func statMode(path string, pred func(os.FileInfo) bool) bool {
	fi, err := os.Stat(path)
	return err == nil && pred(fi)
}

func (r *Runner) evalBinaryCond(b *ast.BinaryCond) (bool, error) {
	if b.Op == ast.CondAnd {
		x, err := r.evalCond(b.X)
		if err != nil || !x {
			return false, err
		}
		return r.evalCond(b.Y)
	}
	if b.Op == ast.CondOr {
		x, err := r.evalCond(b.X)
		if err != nil {
			return false, err
		}
		if x {
			return true, nil
		}
		return r.evalCond(b.Y)
	}

	xs, err := condOperand(r, b.X)
	if err != nil {
		return false, err
	}
	ys, err := condOperand(r, b.Y)
	if err != nil {
		return false, err
	}
	switch b.Op {
	case ast.CondStrEql:
		return matchPattern(ys, xs), nil
	case ast.CondStrNeq:
		return !matchPattern(ys, xs), nil
	case ast.CondStrLss:
		return xs < ys, nil
	case ast.CondStrGtr:
		return xs > ys, nil
	case ast.CondRegexMatch:
		re, err := regexp.Compile(ys)
		if err != nil {
			return false, err
		}
		return re.MatchString(xs), nil
	case ast.CondNewer:
		return fileNewer(xs, ys), nil
	case ast.CondOlder:
		return fileNewer(ys, xs), nil
	case ast.CondSameFile:
		fx, errx := os.Stat(xs)
		fy, erry := os.Stat(ys)
		return errx == nil && erry == nil && os.SameFile(fx, fy), nil
	case ast.CondNumEq, ast.CondNumNe, ast.CondNumLe, ast.CondNumGe, ast.CondNumLt, ast.CondNumGt:
		nx, _ := strconv.Atoi(xs)
		ny, _ := strconv.Atoi(ys)
		switch b.Op {
		case ast.CondNumEq:
			return nx == ny, nil
		case ast.CondNumNe:
			return nx != ny, nil
		case ast.CondNumLe:
			return nx <= ny, nil
		case ast.CondNumGe:
			return nx >= ny, nil
		case ast.CondNumLt:
			return nx < ny, nil
		default:
			return nx > ny, nil
		}
	default:
		return false, fmt.Errorf("interp: unhandled binary cond op %v", b.Op)
	}
}

func condOperand(r *Runner, x ast.CondExpr) (string, error) {
	w, ok := x.(*ast.CondWord)
	if !ok {
		return "", fmt.Errorf("interp: expected a word operand")
	}
	return expand.Literal(r.ecfg, w.W)
}

func fileNewer(a, b string) bool {
	fa, erra := os.Stat(a)
	fb, errb := os.Stat(b)
	if erra != nil || errb != nil {
		return false
	}
	return fa.ModTime().After(fb.ModTime())
}
