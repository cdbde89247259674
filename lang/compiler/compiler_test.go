package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func compileOK(t *testing.T, src string) *FunctionProto {
	t.Helper()
	fn, errs := Compile([]byte(src))
	require.Empty(t, errs)
	require.NotNil(t, fn)
	return fn
}

// opsOf walks a compiled chunk's instruction stream and returns just the
// opcodes, skipping over operand bytes. OP_CLOSURE's operand is variable
// width (one constant-index byte, then two bytes per upvalue), so it looks
// up the referenced FunctionProto's upvalue count to know how far to skip.
func opsOf(fn *FunctionProto) []OpCode {
	var ops []OpCode
	code := fn.Chunk.Code
	for i := 0; i < len(code); {
		op := OpCode(code[i])
		ops = append(ops, op)
		i++
		if op == OP_CLOSURE {
			constIdx := code[i]
			i++
			proto, _ := fn.Chunk.Constants[constIdx].(*FunctionProto)
			if proto != nil {
				i += 2 * proto.UpvalueCount
			}
			continue
		}
		i += operandWidth(op)
	}
	return ops
}

// operandWidth mirrors the fixed operand sizes documented in opcode.go,
// used only to walk the instruction stream in tests.
func operandWidth(op OpCode) int {
	switch op {
	case OP_CONSTANT, OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_GLOBAL, OP_DEFINE_GLOBAL,
		OP_SET_GLOBAL, OP_GET_UPVALUE, OP_SET_UPVALUE, OP_GET_PROPERTY, OP_SET_PROPERTY,
		OP_CALL, OP_CLASS, OP_METHOD:
		return 1
	case OP_JUMP, OP_JUMP_IF_FALSE, OP_LOOP, OP_INVOKE:
		return 2
	default:
		return 0
	}
}

func TestCompileNumberLiteralExpressionStatement(t *testing.T) {
	fn := compileOK(t, "1 + 2;")
	require.Equal(t, []OpCode{OP_CONSTANT, OP_CONSTANT, OP_ADD, OP_POP, OP_NIL, OP_RETURN}, opsOf(fn))
	require.Equal(t, []any{1.0, 2.0}, fn.Chunk.Constants)
}

func TestCompileStringLiteralStripsQuotes(t *testing.T) {
	fn := compileOK(t, `"hi";`)
	require.Equal(t, []any{"hi"}, fn.Chunk.Constants)
}

func TestCompilePrintStatement(t *testing.T) {
	fn := compileOK(t, `print "hi";`)
	require.Equal(t, []OpCode{OP_CONSTANT, OP_PRINT, OP_NIL, OP_RETURN}, opsOf(fn))
}

func TestCompileGlobalVarDeclarationAndUse(t *testing.T) {
	fn := compileOK(t, "var x = 1; print x;")
	require.Equal(t, []OpCode{
		OP_CONSTANT, OP_DEFINE_GLOBAL,
		OP_GET_GLOBAL, OP_PRINT,
		OP_NIL, OP_RETURN,
	}, opsOf(fn))
}

func TestCompileLocalVarUsesGetSetLocalNotGlobal(t *testing.T) {
	fn := compileOK(t, "{ var x = 1; x = 2; print x; }")
	ops := opsOf(fn)
	require.Contains(t, ops, OP_GET_LOCAL)
	require.Contains(t, ops, OP_SET_LOCAL)
	require.NotContains(t, ops, OP_DEFINE_GLOBAL)
	require.NotContains(t, ops, OP_GET_GLOBAL)
}

func TestCompileBlockEndScopePopsLocals(t *testing.T) {
	fn := compileOK(t, "{ var a = 1; var b = 2; }")
	ops := opsOf(fn)
	// two locals pushed, two POPs emitted at end of scope before the
	// implicit OP_NIL; OP_RETURN epilogue.
	popCount := 0
	for _, op := range ops {
		if op == OP_POP {
			popCount++
		}
	}
	require.Equal(t, 2, popCount)
}

func TestCompileIfElseEmitsJumps(t *testing.T) {
	fn := compileOK(t, `if (true) { print 1; } else { print 2; }`)
	ops := opsOf(fn)
	require.Contains(t, ops, OP_JUMP_IF_FALSE)
	require.Contains(t, ops, OP_JUMP)
}

func TestCompileWhileEmitsLoop(t *testing.T) {
	fn := compileOK(t, `while (true) { print 1; }`)
	require.Contains(t, opsOf(fn), OP_LOOP)
}

func TestCompileForDesugarsToLoop(t *testing.T) {
	fn := compileOK(t, `for (var i = 0; i < 3; i = i + 1) print i;`)
	ops := opsOf(fn)
	require.Contains(t, ops, OP_LOOP)
	require.Contains(t, ops, OP_JUMP_IF_FALSE)
}

func TestCompileFunctionDeclarationEmitsClosure(t *testing.T) {
	fn := compileOK(t, "fun f(a, b) { return a + b; }")
	require.Contains(t, opsOf(fn), OP_CLOSURE)

	var proto *FunctionProto
	for _, c := range fn.Chunk.Constants {
		if p, ok := c.(*FunctionProto); ok {
			proto = p
		}
	}
	require.NotNil(t, proto)
	require.Equal(t, "f", proto.Name)
	require.Equal(t, 2, proto.Arity)
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	fn := compileOK(t, `
fun outer() {
  var x = 1;
  fun inner() { return x; }
  return inner;
}
`)
	var outerProto *FunctionProto
	for _, c := range fn.Chunk.Constants {
		if p, ok := c.(*FunctionProto); ok {
			outerProto = p
		}
	}
	require.NotNil(t, outerProto)

	var innerProto *FunctionProto
	for _, c := range outerProto.Chunk.Constants {
		if p, ok := c.(*FunctionProto); ok {
			innerProto = p
		}
	}
	require.NotNil(t, innerProto)
	require.Equal(t, 1, innerProto.UpvalueCount)
	require.True(t, innerProto.Upvalues[0].IsLocal)
}

func TestCompileClassWithMethodAndInit(t *testing.T) {
	fn := compileOK(t, `
class Greeter {
  init(name) { this.name = name; }
  greet() { print this.name; }
}
`)
	ops := opsOf(fn)
	require.Contains(t, ops, OP_CLASS)
	require.Contains(t, ops, OP_METHOD)
}

func TestCompileMethodCallUsesInvoke(t *testing.T) {
	fn := compileOK(t, `
class C { m() { return 1; } }
var c = C();
c.m();
`)
	require.Contains(t, opsOf(fn), OP_INVOKE)
}

func TestCompileReturnAtTopLevelIsError(t *testing.T) {
	_, errs := Compile([]byte("return 1;"))
	require.NotEmpty(t, errs)
	require.Contains(t, errs[0].Error(), "Can't return from top-level code")
}

func TestCompileInitializerCannotReturnValue(t *testing.T) {
	_, errs := Compile([]byte(`
class C { init() { return 1; } }
`))
	require.NotEmpty(t, errs)
	require.Contains(t, errs[0].Error(), "Can't return a value from an initializer")
}

func TestCompileThisOutsideClassIsError(t *testing.T) {
	_, errs := Compile([]byte("print this;"))
	require.NotEmpty(t, errs)
	require.Contains(t, errs[0].Error(), "Can't use 'this' outside of a class")
}

func TestCompileTooManyConstantsIsError(t *testing.T) {
	var src string
	for i := 0; i < MaxConstants+1; i++ {
		src += "1;\n"
	}
	_, errs := Compile([]byte(src))
	require.NotEmpty(t, errs)
	require.Contains(t, errs[len(errs)-1].Error(), "Too many constants in one chunk")
}

func TestCompileMissingSemicolonReportsErrorAndRecovers(t *testing.T) {
	_, errs := Compile([]byte("print 1\nprint 2;"))
	require.NotEmpty(t, errs)
	// synchronize stops at the second 'print', so it compiles cleanly and
	// no follow-on error is reported.
	require.Len(t, errs, 1)
}

func TestCompileErrorMessageFormat(t *testing.T) {
	_, errs := Compile([]byte("1 +;"))
	require.NotEmpty(t, errs)
	require.Regexp(t, `^\[line \d+\] Error at `, errs[0].Error())
}
