package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/mna/talon/internal/talonerr"
	"github.com/mna/talon/lang/machine"
)

// Repl reads one line at a time from stdio.Stdin, compiling and running
// each as its own program against a single long-lived VM so that globals
// declared on one line stay visible to the next, the way clox's main.c
// repl() function works.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, _ []string) error {
	reporter := talonerr.New(stdio.Stderr)
	vm := machine.New(c.StressGC, c.LogGC)
	vm.MaxSteps = c.MaxSteps
	vm.Stdout = stdio.Stdout
	vm.Stderr = stdio.Stderr

	scan := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !scan.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return scan.Err()
		}

		line := scan.Text()
		if line == "" {
			continue
		}

		if _, err := vm.Interpret([]byte(line)); err != nil {
			if cerrs, ok := err.(machine.CompileErrors); ok {
				reporter.CompileErrors([]error(cerrs))
			} else {
				reporter.RuntimeError(err)
			}
		}
	}
}
