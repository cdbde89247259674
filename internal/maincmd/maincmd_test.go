package maincmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/mna/talon/internal/maincmd"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "script.talon")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRunFilePrintsOutput(t *testing.T) {
	path := writeScript(t, `print 1 + 2;`)
	var out, eout bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &eout}

	err := maincmd.RunFile(context.Background(), stdio, false, false, 0, path)
	require.NoError(t, err)
	require.Equal(t, "3\n", out.String())
}

func TestRunFileReportsCompileError(t *testing.T) {
	path := writeScript(t, `var x = ;`)
	var out, eout bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &eout}

	err := maincmd.RunFile(context.Background(), stdio, false, false, 0, path)
	require.Error(t, err)
	require.Equal(t, maincmd.ExitCompileError, err.(interface{ ExitCode() mainer.ExitCode }).ExitCode())
	require.NotEmpty(t, eout.String())
}

func TestRunFileReportsRuntimeError(t *testing.T) {
	path := writeScript(t, `print 1 + "nope";`)
	var out, eout bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &eout}

	err := maincmd.RunFile(context.Background(), stdio, false, false, 0, path)
	require.Error(t, err)
	require.Equal(t, maincmd.ExitRuntimeError, err.(interface{ ExitCode() mainer.ExitCode }).ExitCode())
	require.Contains(t, eout.String(), "Operands must be two numbers or two strings")
}

func TestRunFileMaxStepsAbortsRunawayLoop(t *testing.T) {
	path := writeScript(t, `while (true) {}`)
	var out, eout bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &eout}

	err := maincmd.RunFile(context.Background(), stdio, false, false, 1000, path)
	require.Error(t, err)
	require.Equal(t, maincmd.ExitRuntimeError, err.(interface{ ExitCode() mainer.ExitCode }).ExitCode())
	require.Contains(t, eout.String(), "step limit exceeded")
}

func TestRunFileReportsIOError(t *testing.T) {
	var out, eout bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &eout}

	err := maincmd.RunFile(context.Background(), stdio, false, false, 0, filepath.Join(t.TempDir(), "missing.talon"))
	require.Error(t, err)
	require.Equal(t, maincmd.ExitIOError, err.(interface{ ExitCode() mainer.ExitCode }).ExitCode())
}

func TestTokenizeFilePrintsOneLinePerToken(t *testing.T) {
	path := writeScript(t, `var x = 1;`)
	var out, eout bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &eout}

	err := maincmd.TokenizeFile(context.Background(), stdio, path)
	require.NoError(t, err)
	require.Contains(t, out.String(), "var")
	require.Contains(t, out.String(), "'x'")
	require.Contains(t, out.String(), "end of file")
}

func TestDisasmFilePrintsBytecode(t *testing.T) {
	path := writeScript(t, `print 1 + 2;`)
	var out, eout bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &eout}

	err := maincmd.DisasmFile(context.Background(), stdio, path)
	require.NoError(t, err)
	require.Contains(t, out.String(), "== script ==")
	require.Contains(t, out.String(), "OP_ADD")
}
