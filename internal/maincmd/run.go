package maincmd

import (
	"context"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/talon/internal/talonerr"
	"github.com/mna/talon/lang/machine"
)

// Run compiles and executes the single script named by args[0], reporting
// compile errors or an uncaught runtime error to stdio.Stderr and mapping
// the outcome onto the exit codes spec.md §6 defines.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFile(ctx, stdio, c.StressGC, c.LogGC, c.MaxSteps, args[0])
}

func RunFile(_ context.Context, stdio mainer.Stdio, stressGC, logGC bool, maxSteps int, file string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return &codedError{err: err, code: ExitIOError}
	}

	reporter := talonerr.New(stdio.Stderr)
	vm := machine.New(stressGC, logGC)
	vm.MaxSteps = maxSteps
	vm.Stdout = stdio.Stdout
	vm.Stderr = stdio.Stderr

	_, rerr := vm.Interpret(src)
	if rerr != nil {
		if cerrs, ok := rerr.(machine.CompileErrors); ok {
			reporter.CompileErrors([]error(cerrs))
			return &codedError{err: rerr, code: ExitCompileError}
		}
		reporter.RuntimeError(rerr)
		return &codedError{err: rerr, code: ExitRuntimeError}
	}
	return nil
}
