package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/talon/internal/disasm"
	"github.com/mna/talon/internal/talonerr"
	"github.com/mna/talon/lang/compiler"
)

// Disasm compiles args[0] and prints its disassembled bytecode instead of
// running it, the driver-level equivalent of clox's main.c -disasm flag.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return DisasmFile(ctx, stdio, args[0])
}

func DisasmFile(_ context.Context, stdio mainer.Stdio, file string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return &codedError{err: err, code: ExitIOError}
	}

	proto, errs := compiler.Compile(src)
	if len(errs) > 0 {
		talonerr.New(stdio.Stderr).CompileErrors(errs)
		return &codedError{err: errs[0], code: ExitCompileError}
	}

	fmt.Fprint(stdio.Stdout, disasm.Function("script", proto))
	return nil
}
