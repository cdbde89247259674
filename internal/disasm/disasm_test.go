package disasm_test

import (
	"testing"

	"github.com/kylelemons/godebug/diff"
	"github.com/mna/talon/internal/disasm"
	"github.com/mna/talon/lang/compiler"
	"github.com/stretchr/testify/require"
)

func compileOK(t *testing.T, src string) *compiler.FunctionProto {
	t.Helper()
	proto, errs := compiler.Compile([]byte(src))
	require.Empty(t, errs)
	return proto
}

func TestFunctionHeaderAndSimpleOps(t *testing.T) {
	proto := compileOK(t, `print 1 + 2;`)
	out := disasm.Function("script", proto)

	require.Contains(t, out, "== script ==\n")
	require.Contains(t, out, "OP_CONSTANT")
	require.Contains(t, out, "OP_ADD")
	require.Contains(t, out, "OP_PRINT")
	require.Contains(t, out, "OP_RETURN")
}

func TestClosureInstructionRecursesIntoNestedFunction(t *testing.T) {
	proto := compileOK(t, `
		fun outer() {
			var x = 1;
			fun inner() {
				return x;
			}
			return inner;
		}
	`)
	out := disasm.Function("script", proto)

	require.Contains(t, out, "OP_CLOSURE")
	require.Contains(t, out, "<fn inner>")
	require.Contains(t, out, "== inner ==")
	require.Contains(t, out, "local 1") // inner captures outer's local x by slot (slot 0 is reserved)
}

func TestJumpInstructionsShowTargetOffset(t *testing.T) {
	proto := compileOK(t, `
		if (true) {
			print 1;
		} else {
			print 2;
		}
	`)
	out := disasm.Function("script", proto)

	require.Contains(t, out, "OP_JUMP_IF_FALSE")
	require.Contains(t, out, "OP_JUMP")
	require.Contains(t, out, "->")
}

func TestConstantInstructionDescribesStringAndNumber(t *testing.T) {
	proto := compileOK(t, `
		var greeting = "hi";
		print 3.5;
	`)
	out := disasm.Function("script", proto)

	require.Contains(t, out, "'hi'")
	require.Contains(t, out, "3.5")
}

// TestListingIsDeterministic compiles the same source twice and checks the
// two disassembly listings are identical, printing a readable diff (rather
// than testify's default value dump) if a change to the compiler or
// disassembler ever makes instruction numbering non-deterministic.
func TestListingIsDeterministic(t *testing.T) {
	src := `
		class Shape {
			area() {
				return 0;
			}
		}
		fun describe(s) {
			return "area=" + s.area();
		}
		print describe(Shape());
	`
	want := disasm.Function("script", compileOK(t, src))
	got := disasm.Function("script", compileOK(t, src))

	if want != got {
		t.Fatalf("two compilations of the same source produced different listings:\n%s", diff.Diff(want, got))
	}
}
