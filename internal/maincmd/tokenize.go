package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/talon/lang/scanner"
	"github.com/mna/talon/lang/token"
)

// Tokenize runs only the scanner phase over args[0] and prints one line per
// token: its line number, its kind and its quoted lexeme.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFile(ctx, stdio, args[0])
}

func TokenizeFile(_ context.Context, stdio mainer.Stdio, file string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return &codedError{err: err, code: ExitIOError}
	}

	var firstErr error
	var s scanner.Scanner
	s.Init(src, func(line int, msg string) {
		if firstErr == nil {
			firstErr = fmt.Errorf("[line %d] Error: %s", line, msg)
		}
	})

	for {
		tok := s.Next()
		fmt.Fprintf(stdio.Stdout, "%4d %-12s '%s'\n", tok.Line, tok.Kind, tok.Lexeme)
		if tok.Kind == token.EOF {
			break
		}
	}

	if firstErr != nil {
		fmt.Fprintln(stdio.Stderr, firstErr)
		return &codedError{err: firstErr, code: ExitCompileError}
	}
	return nil
}
