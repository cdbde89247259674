package talonerr_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mna/talon/internal/talonerr"
	"github.com/mna/talon/lang/machine"
	"github.com/stretchr/testify/require"
)

func TestCompileErrorsWritesOnePerLine(t *testing.T) {
	var buf bytes.Buffer
	r := talonerr.New(&buf)

	r.CompileErrors([]error{errors.New("first"), errors.New("second")})

	require.Equal(t, "first\nsecond\n", buf.String())
}

func TestRuntimeErrorWritesMessageAndTrace(t *testing.T) {
	var buf bytes.Buffer
	r := talonerr.New(&buf)

	_, err := machine.New(false, false).Interpret([]byte(`
		fun boom() {
			return 1 + "nope";
		}
		boom();
	`))
	require.Error(t, err)

	r.RuntimeError(err)
	out := buf.String()
	require.Contains(t, out, "Operands must be two numbers or two strings")
	require.Contains(t, out, "in boom()")
	require.Contains(t, out, "in script")
}
