// Package maincmd implements talon's command-line driver: argument parsing
// and dispatch to the run/repl/tokenize/disasm subcommands, and mapping
// their outcome onto a process exit code. It mirrors the teacher's own
// internal/maincmd package: a single Cmd struct whose exported methods are
// discovered by reflection and dispatched by lowercased name, parsed with
// github.com/mna/mainer.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "talon"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and virtual machine for the %[1]s scripting language.

The <command> can be one of:
       run                       Compile and run a script file.
       repl                      Start an interactive read-eval-print loop.
       tokenize                  Run the scanner phase only and print the
                                 resulting tokens.
       disasm                    Compile a script and print its
                                 disassembled bytecode instead of running
                                 it.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

Valid flag options for the <run> and <repl> commands are:
       --stress-gc               Run a full garbage collection before every
                                 heap allocation, instead of waiting for
                                 the byte threshold (slow; for shaking out
                                 missing mark roots).
       --log-gc                  Print a line to stderr at the start and
                                 end of every garbage collection cycle.
       --max-steps=<n>           Abort the program with a runtime error
                                 after executing <n> instructions. 0 (the
                                 default) means unbounded.
`, binName)
)

// Cmd holds the parsed command line and dispatches to the subcommand it
// names. The zero value is not ready to use; construct via Main.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	StressGC bool `flag:"stress-gc"`
	LogGC    bool `flag:"log-gc"`
	MaxSteps int  `flag:"max-steps"`

	args  []string
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string)      { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]
	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	if cmdName != "repl" && len(c.args[1:]) == 0 {
		return fmt.Errorf("%s: a script file must be provided", cmdName)
	}
	if (c.StressGC || c.LogGC || c.MaxSteps != 0) && cmdName != "run" && cmdName != "repl" {
		return fmt.Errorf("%s: invalid flag '--stress-gc'/'--log-gc'/'--max-steps'", cmdName)
	}
	return nil
}

// Main parses args and dispatches to the named subcommand, returning the
// process exit code to use. Each subcommand is responsible for printing
// its own errors (via internal/talonerr) before returning one, and for
// returning an exitCoder when it needs a code other than Success/Failure.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	err := c.cmdFn(ctx, stdio, c.args[1:])
	var ec exitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	if err != nil {
		return mainer.Failure
	}
	return mainer.Success
}

// exitCoder lets a subcommand request a specific exit code (65 compile
// error, 70 runtime error, 74 I/O error) instead of the generic Failure
// mainer.Main would otherwise return.
type exitCoder interface {
	error
	ExitCode() mainer.ExitCode
}

const (
	// ExitCompileError is returned when the compiler reported one or more
	// errors and nothing ran.
	ExitCompileError mainer.ExitCode = 65
	// ExitRuntimeError is returned when the VM aborted a script with an
	// uncaught runtime error.
	ExitRuntimeError mainer.ExitCode = 70
	// ExitIOError is returned when reading the script file itself failed.
	ExitIOError mainer.ExitCode = 74
)

type codedError struct {
	err  error
	code mainer.ExitCode
}

func (e *codedError) Error() string             { return e.err.Error() }
func (e *codedError) Unwrap() error             { return e.err }
func (e *codedError) ExitCode() mainer.ExitCode { return e.code }

// valid commands are those that take a context.Context, a mainer.Stdio and
// a slice of strings as input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
