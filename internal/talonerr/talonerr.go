// Package talonerr centralises how talon reports its two kinds of
// diagnostic to the user: compile-time errors (one per
// lang/compiler.CompileError, already formatted as "[line N] Error at
// 'lexeme': message") and the single runtime error (if any) that aborted
// a run, with its call-stack trace. It is a formatting/writing sink only:
// recovery policy (panicMode/synchronize) lives in lang/compiler, and
// deciding the process exit code lives in internal/maincmd.
//
// This mirrors the shape of the teacher's own scanner.PrintError, a thin
// function that writes a go/scanner.ErrorList's accumulated errors to an
// io.Writer one per line; talon has exactly two error shapes instead of
// one general list type, so Reporter exposes one method per shape rather
// than reusing go/scanner.ErrorList directly.
package talonerr

import (
	"fmt"
	"io"
)

// Reporter writes diagnostics to Stderr. A zero Reporter is not usable;
// construct one with New.
type Reporter struct {
	Stderr io.Writer
}

// New returns a Reporter writing to w.
func New(w io.Writer) *Reporter { return &Reporter{Stderr: w} }

// CompileErrors writes one line per compile error, in the order the
// compiler reported them.
func (r *Reporter) CompileErrors(errs []error) {
	for _, err := range errs {
		fmt.Fprintln(r.Stderr, err)
	}
}

// RuntimeError writes a single runtime failure, including its call-stack
// trace if the error carries one (see machine.RuntimeError).
func (r *Reporter) RuntimeError(err error) {
	fmt.Fprintln(r.Stderr, err)
}
