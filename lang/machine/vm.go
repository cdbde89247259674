package machine

import (
	"fmt"
	"io"
	"os"

	"github.com/mna/talon/lang/compiler"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// CallFrame records one active invocation of a Closure (or the top-level
// script, itself wrapped as a Closure): its bytecode position and the
// region of the VM's operand stack holding its locals. Native calls never
// push a CallFrame; they run to completion inside the CALL opcode.
type CallFrame struct {
	closure *Closure
	ip      int
	slots   int // base index into vm.stack for this frame's locals
}

// VM is a single-threaded bytecode interpreter: an operand stack, a call
// frame stack, the global variable table, the string intern table, and
// the tracing collector that owns every heap object reachable from them.
// Unlike the teacher's Thread, which can run concurrently with other
// threads sharing Predeclared state, a VM here is never shared: the
// language has no concurrency primitives (see Non-goals), so one VM
// serves exactly one program run.
type VM struct {
	Stdout io.Writer
	Stderr io.Writer

	// MaxSteps bounds the number of executed instructions before the
	// VM aborts the run with a runtime error, a safety valve for
	// pathological or runaway scripts. A value <= 0 means no limit.
	MaxSteps int

	stack []Value
	sp    int

	frames     [framesMax]CallFrame
	frameCount int

	globals *Table
	strings *Table

	openUpvalues *Upvalue
	initString   *ObjString

	gc *gc

	steps uint64
}

// New creates a VM ready to Interpret a compiled program. stressGC forces
// a full collection on every heap allocation instead of waiting for the
// byte threshold, which is invaluable for shaking out missing mark roots
// but far too slow for normal use.
func New(stressGC, logGC bool) *VM {
	vm := &VM{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		stack:   make([]Value, stackMax),
		globals: &Table{},
		strings: &Table{},
	}
	vm.gc = newGC(vm)
	vm.gc.stressMode = stressGC
	vm.gc.logMode = logGC
	vm.initString = vm.internString("init")
	vm.defineNative("clock", nativeClock)
	return vm
}

func (vm *VM) debugf(format string, args ...any) {
	fmt.Fprintf(vm.Stderr, format, args...)
}

func (vm *VM) push(v Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// CompileErrors wraps every error the compiler reported for a single
// source, so a caller that wants to print all of them (rather than just
// the first) can type-assert Interpret's error return to this type.
type CompileErrors []error

func (e CompileErrors) Error() string {
	if len(e) == 0 {
		return "compile error"
	}
	return e[0].Error()
}

// Interpret compiles and runs source to completion, returning the
// top-level script's implicit return value (always Nil, since a script
// cannot itself contain a return statement) or the error that aborted
// compilation or execution. A compilation failure is returned as a
// CompileErrors holding every error the compiler collected; a failure
// during execution is returned as a *RuntimeError.
func (vm *VM) Interpret(source []byte) (Value, error) {
	proto, errs := compiler.Compile(source)
	if len(errs) > 0 {
		return nil, CompileErrors(errs)
	}

	fn := vm.loadFunction(proto)
	closure := vm.newClosure(fn)
	vm.push(closure)
	if err := vm.callValue(closure, 0); err != nil {
		return nil, err
	}

	return vm.run()
}

func (vm *VM) newClosure(fn *ObjFunction) *Closure {
	upvalues := make([]*Upvalue, len(fn.Upvalues))
	c := &Closure{Function: fn, Upvalues: upvalues}
	vm.gc.track(c, int64(32+8*len(upvalues)))
	return c
}

// defineNative registers fn under name in globals. Per clox's own
// defineNative, the name string and the Native value are pushed as roots
// before the table insert: both exist only as local variables up to that
// point, so a collection triggered by the Native's allocation must not
// sweep the name string first.
func (vm *VM) defineNative(name string, fn NativeFn) {
	nameStr := vm.internString(name)
	vm.gc.pushRoot(nameStr)
	defer vm.gc.popRoot()

	n := &Native{Name: name, Fn: fn}
	vm.gc.track(n, 32)
	vm.gc.pushRoot(n)
	defer vm.gc.popRoot()

	vm.globals.Set(nameStr, n)
}

func (vm *VM) runtimeError(format string, args ...any) *RuntimeError {
	err := newRuntimeError(format, args...)
	for i := vm.frameCount - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		fn := fr.closure.Function
		line := 0
		if fr.ip-1 >= 0 && fr.ip-1 < len(fn.Proto.Chunk.Lines) {
			line = fn.Proto.Chunk.Lines[fr.ip-1]
		}
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars + "()"
		}
		err.Trace = append(err.Trace, fmt.Sprintf("[line %d] in %s", line, name))
	}
	vm.resetStack()
	return err
}

// run executes bytecode until the outermost CallFrame returns or a
// runtime error aborts execution. It is the only place CallFrame.ip is
// advanced; every opcode case reads its operands through the current
// frame's bytecode and advances ip by exactly the bytes it consumed.
func (vm *VM) run() (Value, error) {
	fr := &vm.frames[vm.frameCount-1]
	code := fr.closure.Function.Proto.Chunk.Code

	readByte := func() byte {
		b := code[fr.ip]
		fr.ip++
		return b
	}
	readShort := func() int {
		hi, lo := code[fr.ip], code[fr.ip+1]
		fr.ip += 2
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() Value {
		return fr.closure.Function.Constants[readByte()]
	}
	readString := func() *ObjString {
		return readConstant().(*ObjString)
	}

	for {
		vm.steps++
		if vm.MaxSteps > 0 && vm.steps > uint64(vm.MaxSteps) {
			return nil, vm.runtimeError("step limit exceeded")
		}

		op := compiler.OpCode(readByte())
		switch op {
		case compiler.OP_CONSTANT:
			vm.push(readConstant())

		case compiler.OP_NIL:
			vm.push(Nil{})
		case compiler.OP_TRUE:
			vm.push(Bool(true))
		case compiler.OP_FALSE:
			vm.push(Bool(false))
		case compiler.OP_POP:
			vm.pop()

		case compiler.OP_GET_LOCAL:
			slot := int(readByte())
			vm.push(vm.stack[fr.slots+slot])
		case compiler.OP_SET_LOCAL:
			slot := int(readByte())
			vm.stack[fr.slots+slot] = vm.peek(0)

		case compiler.OP_GET_GLOBAL:
			name := readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return nil, vm.runtimeError("Undefined variable '%s'", name.Chars)
			}
			vm.push(v)
		case compiler.OP_DEFINE_GLOBAL:
			name := readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case compiler.OP_SET_GLOBAL:
			name := readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return nil, vm.runtimeError("Undefined variable '%s'", name.Chars)
			}

		case compiler.OP_GET_UPVALUE:
			slot := int(readByte())
			vm.push(*fr.closure.Upvalues[slot].Location)
		case compiler.OP_SET_UPVALUE:
			slot := int(readByte())
			*fr.closure.Upvalues[slot].Location = vm.peek(0)

		case compiler.OP_GET_PROPERTY:
			inst, ok := vm.peek(0).(*Instance)
			if !ok {
				return nil, vm.runtimeError("Only instances have properties")
			}
			name := readString()
			if v, ok := inst.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if !vm.bindMethod(inst.Klass, name) {
				return nil, vm.runtimeError("Undefined property '%s'", name.Chars)
			}

		case compiler.OP_SET_PROPERTY:
			inst, ok := vm.peek(1).(*Instance)
			if !ok {
				return nil, vm.runtimeError("Only instances have fields")
			}
			name := readString()
			inst.Fields.Set(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case compiler.OP_EQUAL:
			b, a := vm.pop(), vm.pop()
			vm.push(Bool(Equal(a, b)))
		case compiler.OP_GREATER, compiler.OP_LESS:
			if err := vm.binaryCompare(op); err != nil {
				return nil, err
			}
		case compiler.OP_ADD:
			if err := vm.add(); err != nil {
				return nil, err
			}
		case compiler.OP_SUBTRACT, compiler.OP_MULTIPLY, compiler.OP_DIVIDE:
			if err := vm.binaryArith(op); err != nil {
				return nil, err
			}

		case compiler.OP_NOT:
			vm.push(Bool(!Truth(vm.pop())))
		case compiler.OP_NEGATE:
			n, ok := vm.peek(0).(Number)
			if !ok {
				return nil, vm.runtimeError("Operand must be a number")
			}
			vm.pop()
			vm.push(-n)

		case compiler.OP_PRINT:
			fmt.Fprintln(vm.Stdout, vm.pop().String())

		case compiler.OP_JUMP:
			offset := readShort()
			fr.ip += offset
		case compiler.OP_JUMP_IF_FALSE:
			offset := readShort()
			if !Truth(vm.peek(0)) {
				fr.ip += offset
			}
		case compiler.OP_LOOP:
			offset := readShort()
			fr.ip -= offset

		case compiler.OP_CALL:
			argc := int(readByte())
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return nil, err
			}
			fr = &vm.frames[vm.frameCount-1]
			code = fr.closure.Function.Proto.Chunk.Code

		case compiler.OP_INVOKE:
			name := readString()
			argc := int(readByte())
			if err := vm.invoke(name, argc); err != nil {
				return nil, err
			}
			fr = &vm.frames[vm.frameCount-1]
			code = fr.closure.Function.Proto.Chunk.Code

		case compiler.OP_CLOSURE:
			fn := readConstant().(*ObjFunction)
			closure := vm.newClosure(fn)
			for i := range closure.Upvalues {
				isLocal := readByte() != 0
				index := int(readByte())
				if isLocal {
					closure.Upvalues[i] = vm.captureUpvalue(fr.slots + index)
				} else {
					closure.Upvalues[i] = fr.closure.Upvalues[index]
				}
			}
			vm.push(closure)

		case compiler.OP_CLOSE_UPVALUE:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case compiler.OP_RETURN:
			retval := vm.pop()
			vm.closeUpvalues(fr.slots)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return retval, nil
			}
			vm.sp = fr.slots
			vm.push(retval)
			fr = &vm.frames[vm.frameCount-1]
			code = fr.closure.Function.Proto.Chunk.Code

		case compiler.OP_CLASS:
			name := readString()
			cls := &Class{Name: name, Methods: &Table{}}
			vm.gc.track(cls, 48)
			vm.push(cls)

		case compiler.OP_METHOD:
			name := readString()
			vm.defineMethod(name)

		default:
			return nil, vm.runtimeError("unimplemented opcode %s", op)
		}
	}
}
