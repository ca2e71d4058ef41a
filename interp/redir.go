// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"fmt"
	"os"
	"strconv"

	"wsh/ast"
	"wsh/expand"
)

// redirFrame is the per-command undo list spec.md §4.F requires: one
// savedFD entry per fd the redirection list touched, so a failure
// partway through (or the end of the command) can restore the pre-image
// byte-for-byte.
type redirFrame struct {
	saved []savedFD
	// hdocFiles collects here-doc temp files created with O_EXCL so
	// they can be removed once the command has read them.
	hdocFiles []*os.File
}

type savedFD struct {
	fd  int
	old *os.File // nil means "was closed"
}

// applyRedirs opens and dup2's every redirection in list against r's
// current stdin/stdout/stderr, recording an undo list. Grounded on
// spec.md §4.F's ACTIVE|UNDOABLE mode: this package only ever needs that
// mode, since EXPAND-ONLY (used by callers that just want to know what a
// redirect's target word expands to, e.g. command -v) is handled by
// calling expand.Literal directly instead of going through here.
func (r *Runner) applyRedirs(list []*ast.Redirect) (*redirFrame, error) {
	frame := &redirFrame{}
	for _, rd := range list {
		if err := r.applyOneRedir(frame, rd); err != nil {
			r.undoRedirs(frame)
			return nil, err
		}
	}
	return frame, nil
}

func (r *Runner) applyOneRedir(frame *redirFrame, rd *ast.Redirect) error {
	fd := defaultFD(rd.Op)
	if rd.N != nil {
		n, err := strconv.Atoi(rd.N.Value)
		if err == nil {
			fd = n
		}
	}
	switch rd.Op {
	case ast.RedirHeredoc, ast.RedirHeredocStrip, ast.RedirHeredocQuoted:
		body, err := expand.Literal(r.ecfg, rd.Hdoc)
		if err != nil {
			return err
		}
		f, err := r.heredocFile(body)
		if err != nil {
			return err
		}
		frame.hdocFiles = append(frame.hdocFiles, f)
		return r.dupInto(frame, fd, f)
	case ast.RedirDupIn, ast.RedirDupOut:
		target, err := expand.Literal(r.ecfg, rd.Word)
		if err != nil {
			return err
		}
		if target == "-" {
			return r.closeFD(frame, fd)
		}
		srcFD, err := strconv.Atoi(target)
		if err != nil {
			return fmt.Errorf("invalid fd: %q", target)
		}
		src := r.fdFile(srcFD)
		if src == nil {
			return fmt.Errorf("bad file descriptor: %d", srcFD)
		}
		return r.dupInto(frame, fd, src)
	default:
		path, err := expand.Literal(r.ecfg, rd.Word)
		if err != nil {
			return err
		}
		flag, err := redirFlags(rd.Op)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(path, flag, 0o644)
		if err != nil {
			return fmt.Errorf("redirect %s: %w", path, err)
		}
		if rd.Op == ast.RedirAllOut || rd.Op == ast.RedirAllAppend {
			// "&>file"/"&>>file" redirect both stdout and stderr to the
			// same file (spec.md §3.1's all-output redirect pair).
			if err := r.dupInto(frame, 1, f); err != nil {
				return err
			}
			return r.dupInto(frame, 2, f)
		}
		return r.dupInto(frame, fd, f)
	}
}

func defaultFD(op ast.RedirOp) int {
	switch op {
	case ast.RedirIn, ast.RedirRW, ast.RedirDupIn, ast.RedirHeredoc, ast.RedirHeredocStrip, ast.RedirHerestring:
		return 0
	default:
		return 1
	}
}

func redirFlags(op ast.RedirOp) (int, error) {
	switch op {
	case ast.RedirOut, ast.RedirAllOut:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case ast.RedirClobber:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case ast.RedirAppend, ast.RedirAllAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case ast.RedirIn:
		return os.O_RDONLY, nil
	case ast.RedirRW:
		return os.O_RDWR | os.O_CREATE, nil
	default:
		return 0, fmt.Errorf("unsupported redirection operator %v", op)
	}
}

// fdFile returns the *os.File this Runner currently has bound to fd
// 0/1/2; other fds are not yet individually tracked outside of a
// redirFrame, matching this module's "three standard streams plus
// whatever the current frame overlays" model.
func (r *Runner) fdFile(fd int) *os.File {
	switch fd {
	case 0:
		return r.Stdin
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

func (r *Runner) dupInto(frame *redirFrame, fd int, f *os.File) error {
	frame.saved = append(frame.saved, savedFD{fd: fd, old: r.fdFile(fd)})
	switch fd {
	case 0:
		r.Stdin = f
	case 1:
		r.Stdout = f
	case 2:
		r.Stderr = f
	default:
		return fmt.Errorf("file descriptors beyond 0-2 are not supported")
	}
	return nil
}

func (r *Runner) closeFD(frame *redirFrame, fd int) error {
	frame.saved = append(frame.saved, savedFD{fd: fd, old: r.fdFile(fd)})
	switch fd {
	case 0:
		r.Stdin = nil
	case 1:
		r.Stdout = nil
	case 2:
		r.Stderr = nil
	}
	return nil
}

// undoRedirs restores every fd a redirFrame touched to its pre-image, in
// reverse order, then removes any here-doc temp files — the invariant
// spec.md §4.F states explicitly ("undo restores byte-for-byte").
func (r *Runner) undoRedirs(frame *redirFrame) {
	for i := len(frame.saved) - 1; i >= 0; i-- {
		s := frame.saved[i]
		switch s.fd {
		case 0:
			r.Stdin = s.old
		case 1:
			if s.old != nil {
				r.Stdout = s.old
			}
		case 2:
			if s.old != nil {
				r.Stderr = s.old
			}
		}
	}
	for _, f := range frame.hdocFiles {
		name := f.Name()
		f.Close()
		os.Remove(name)
	}
}

// heredocFile writes body to a unique O_EXCL temp file and reopens it
// for reading, per spec.md §4.F's "written to a pipe (preferred) or a
// temp file created with O_EXCL" — this module takes the temp-file path
// since it doesn't need the extra goroutine a pipe would cost for what
// is almost always a small, bounded body.
func (r *Runner) heredocFile(body string) (*os.File, error) {
	f, err := os.CreateTemp("", "wsh-heredoc-*")
	if err != nil {
		return nil, err
	}
	name := f.Name()
	if _, err := f.WriteString(body); err != nil {
		f.Close()
		os.Remove(name)
		return nil, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		os.Remove(name)
		return nil, err
	}
	os.Remove(name) // unlinked immediately; the open fd keeps it alive
	return f, nil
}
