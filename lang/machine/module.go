package machine

import (
	"fmt"

	"github.com/mna/talon/lang/compiler"
)

// loadFunction converts a compiler.FunctionProto into a runtime
// *ObjFunction, generalizing the single-shot "make the toplevel function"
// conversion some bytecode VMs only perform once for the top of a
// compiled program: here it is called recursively, once per
// compiler.FunctionProto reachable transitively through OP_CLOSURE
// constants, so that every nested function in the program is converted
// exactly once each time Interpret loads the compiled script. Strings are
// interned through vm.internString as they are encountered, so the same
// string literal appearing in two chunks becomes the same *ObjString.
func (vm *VM) loadFunction(proto *compiler.FunctionProto) *ObjFunction {
	fn := vm.newFunction(proto)
	// fn.Constants is not populated yet, so fn is reachable from nowhere a
	// root scan would find it (the caller, possibly another in-progress
	// loadFunction, hasn't stored it anywhere either). Root it here so a
	// collection triggered by interning or loading one of its own
	// constants below does not sweep it out from under this function.
	vm.gc.pushRoot(fn)
	pushed := 1

	constants := make([]Value, len(proto.Chunk.Constants))
	for i, c := range proto.Chunk.Constants {
		switch c := c.(type) {
		case float64:
			constants[i] = Number(c)
		case string:
			s := vm.internString(c)
			vm.gc.pushRoot(s)
			pushed++
			constants[i] = s
		case *compiler.FunctionProto:
			nested := vm.loadFunction(c)
			vm.gc.pushRoot(nested)
			pushed++
			constants[i] = nested
		default:
			panic(fmt.Sprintf("unexpected chunk constant %T: %[1]v", c))
		}
	}
	fn.Constants = constants
	for i := 0; i < pushed; i++ {
		vm.gc.popRoot()
	}
	return fn
}

// newFunction allocates the ObjFunction shell for proto, before its
// constant pool has been converted; split out of loadFunction so the
// function exists (and can be marked during GC) before its own constants
// possibly reference it back, even though this language has no facility
// for a function to appear in its own constant pool.
func (vm *VM) newFunction(proto *compiler.FunctionProto) *ObjFunction {
	var name *ObjString
	if proto.Name != "" {
		name = vm.internString(proto.Name)
		// name is reachable only from this local until fn.Name is set
		// below; interning it may itself have allocated, and the
		// allocation of fn right after it can trigger another collection
		// before name is stored anywhere a root scan would see.
		vm.gc.pushRoot(name)
		defer vm.gc.popRoot()
	}
	fn := &ObjFunction{
		Name:     name,
		Arity:    proto.Arity,
		Proto:    proto,
		Upvalues: proto.Upvalues,
	}
	vm.gc.track(fn, 64)
	return fn
}
