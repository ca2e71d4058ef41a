// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// wsh is the command-line shell built on top of the parser/interp
// packages: spec.md §6's external interface (-c, -s, -i, --login,
// restricted mode, POSIX set-equivalents) in front of the executor.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"wsh/interp"
	"wsh/parser"
)

var (
	command    = flag.String("c", "", "command to be executed")
	stdinFlag  = flag.Bool("s", false, "read commands from stdin, passing remaining operands as positional parameters")
	interFlag  = flag.Bool("i", false, "force interactive mode")
	loginFlag  = flag.Bool("l", false, "act as a login shell (also -login)")
	loginLong  = flag.Bool("login", false, "act as a login shell")
	restrFlag  = flag.Bool("r", false, "restricted mode (also -restricted)")
	restrLong  = flag.Bool("restricted", false, "restricted mode")
	optE       = flag.Bool("e", false, "exit immediately if a command fails (errexit)")
	optX       = flag.Bool("x", false, "print commands and their expanded arguments as they run (xtrace)")
	optU       = flag.Bool("u", false, "error on unset variable expansion (nounset)")
	optN       = flag.Bool("n", false, "read commands but do not execute them (noexec)")
	optA       = flag.Bool("a", false, "export all variables assigned to (allexport)")
	optF       = flag.Bool("f", false, "disable pathname expansion (noglob)")
	optM       = flag.Bool("m", false, "enable job control (monitor mode)")
	optO       = flag.String("o", "", "long-named option, e.g. -o pipefail")
)

// restricted is set by "-r"/--restricted (spec.md §6's restricted mode).
// Only cmd/wsh's own check applies: it refuses re-sourcing a different
// script path after startup. cd and writes to $PATH/$SHELL/$ENV are not
// restricted by the executor.
var restricted bool

func main() {
	flag.Parse()
	err := runAll()
	var es interp.ExitStatus
	if errors.As(err, &es) {
		os.Exit(int(es))
	}
	var perr *parser.ParseError
	if errors.As(err, &perr) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAll() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restricted = *restrFlag || *restrLong
	login := *loginFlag || *loginLong

	r, err := interp.New(os.Stdout, os.Stderr, os.Stdin)
	if err != nil {
		return err
	}
	applyOptions(r)

	if login {
		sourceStartupFile(ctx, r, "/etc/profile")
		sourceStartupFile(ctx, r, userPath(".bash_profile"))
		sourceStartupFile(ctx, r, userPath(".profile"))
	} else if *interFlag || (flag.NArg() == 0 && *command == "" && !*stdinFlag) {
		sourceStartupFile(ctx, r, userPath(".bashrc"))
	} else if env := os.Getenv("BASH_ENV"); env != "" {
		sourceStartupFile(ctx, r, env)
	}

	switch {
	case *command != "":
		r.SetArgs("wsh", flag.Args())
		return run(ctx, r, strings.NewReader(*command), "")
	case *stdinFlag:
		r.SetArgs("wsh", flag.Args())
		return run(ctx, r, os.Stdin, "")
	case flag.NArg() == 0:
		if *interFlag || term.IsTerminal(int(os.Stdin.Fd())) {
			// An interactive shell gets job control by default, the same
			// as bash; "-m"/"+m" (applyOptions above, or "set" at runtime)
			// can still be used to change it explicitly.
			r.SetOpt('m', true)
			r.Interactive = true
			return runInteractive(ctx, r, os.Stdin, os.Stdout)
		}
		r.SetArgs("wsh", nil)
		return run(ctx, r, os.Stdin, "")
	default:
		path := flag.Arg(0)
		r.SetArgs(path, flag.Args()[1:])
		return runPath(ctx, r, path)
	}
}

func applyOptions(r *interp.Runner) {
	for letter, on := range map[byte]bool{
		'e': *optE, 'x': *optX, 'u': *optU, 'n': *optN, 'a': *optA, 'f': *optF,
		'm': *optM,
	} {
		if on {
			r.SetOpt(letter, true)
		}
	}
	for _, name := range strings.Split(*optO, ",") {
		if name == "pipefail" {
			r.SetPipefail(true)
		}
	}
}

func userPath(rel string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, rel)
}

// sourceStartupFile runs path in r's own top-level scope, per spec.md §6's
// "each is sourced in the top-level context". Missing files are silently
// skipped, matching every POSIX shell's startup-file behavior.
func sourceStartupFile(ctx context.Context, r *interp.Runner, path string) {
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	prog, err := parser.Parse(parser.NewSourceReader(f, path), path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if err := r.Run(ctx, prog); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func run(ctx context.Context, r *interp.Runner, reader io.Reader, name string) error {
	prog, err := parser.Parse(parser.NewSourceReader(reader, name), name)
	if err != nil {
		return err
	}
	return r.Run(ctx, prog)
}

func runPath(ctx context.Context, r *interp.Runner, path string) error {
	if restricted && strings.ContainsRune(path, filepath.Separator) && filepath.Dir(path) != "." {
		return fmt.Errorf("%s: restricted shells may not specify a path containing '/'", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return run(ctx, r, f, path)
}

// runInteractive implements the REPL: it accumulates lines until they
// parse as a complete program (spec.md §4.C's recovered-EOF shape for
// "unterminated construct"), runs the result, and prints "$ "/"> "
// prompts the way an interactive POSIX shell does.
func runInteractive(ctx context.Context, r *interp.Runner, stdin io.Reader, stdout io.Writer) error {
	scanner := bufio.NewScanner(stdin)
	var buf strings.Builder
	fmt.Fprint(stdout, "$ ")
	for scanner.Scan() {
		buf.WriteString(scanner.Text())
		buf.WriteByte('\n')

		prog, err := parser.Parse(parser.NewSourceString(buf.String(), ""), "")
		if err != nil {
			var perr *parser.ParseError
			if errors.As(err, &perr) && strings.Contains(perr.Msg, "EOF") {
				fmt.Fprint(stdout, "> ")
				continue
			}
			fmt.Fprintln(os.Stderr, err)
			buf.Reset()
			fmt.Fprint(stdout, "$ ")
			continue
		}
		buf.Reset()
		if err := r.Run(ctx, prog); err != nil {
			var es interp.ExitStatus
			if errors.As(err, &es) {
				return err
			}
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Fprint(stdout, "$ ")
	}
	fmt.Fprintln(stdout)
	return scanner.Err()
}
