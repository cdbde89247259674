package machine

import (
	"fmt"

	"github.com/mna/talon/lang/compiler"
)

// gcObject is implemented by every heap-allocated Value. It gives the
// collector a uniform way to walk the all-objects list and to mark/unmark
// an object without a type switch, mirroring clox's Obj struct-inheritance
// header (next pointer, isMarked flag) applied to Go via embedding instead
// of C's first-field-aliasing trick.
type gcObject interface {
	Value
	header() *objHeader
}

// objHeader is embedded (by value) as the first field of every heap object
// type, the way every clox Obj starts with an Obj header. next threads the
// object onto the VM's all-objects list, the list the sweep phase walks;
// marked is this object's tri-colour mark bit (grey objects are also
// tracked by the GC's separate gray stack while marked is already true).
type objHeader struct {
	next    gcObject
	marked  bool
}

func (h *objHeader) header() *objHeader { return h }

// ObjString is an interned, immutable string. Two ObjStrings with the same
// contents are always the same pointer once interned, so equality and hash
// lookups never need to compare bytes.
type ObjString struct {
	objHeader
	Chars string
	Hash  uint32
}

func (s *ObjString) String() string { return s.Chars }
func (*ObjString) Type() string     { return "string" }

// ObjFunction is the runtime counterpart of a compiler.FunctionProto: an
// immutable, already-compiled function body, shared by every Closure
// created from it (each closure differs only in which upvalues it
// captures).
type ObjFunction struct {
	objHeader
	Name     *ObjString // nil for the top-level script
	Arity    int
	Proto    *compiler.FunctionProto // for its Chunk: bytecode and line table
	Upvalues []compiler.UpvalueDesc

	// Constants mirrors Proto.Chunk.Constants, but with every element
	// converted to a machine Value exactly once (strings interned, nested
	// FunctionProtos recursively converted to *ObjFunction constants of
	// their own), so the dispatch loop never repeats that conversion.
	Constants []Value
}

func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}
func (*ObjFunction) Type() string { return "function" }

// NativeFn is the Go implementation of a native (host-provided) function,
// such as clock(). It receives its already-evaluated arguments and returns
// a result or a runtime error message.
type NativeFn func(vm *VM, args []Value) (Value, error)

// Native wraps a NativeFn as a heap Value so it can be stored in globals
// and called from bytecode exactly like a user-defined Closure.
type Native struct {
	objHeader
	Name string
	Fn   NativeFn
}

func (n *Native) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }
func (*Native) Type() string     { return "native" }

// Upvalue is a reference cell for a closed-over local variable. While the
// upvalue is open, Location points into a live call frame's stack slot;
// closeUpvalues copies the slot's value into the Upvalue itself and
// repoints Location at it, so the variable survives its owning frame's
// return.
type Upvalue struct {
	objHeader
	Location *Value
	Closed   Value
	Next     *Upvalue // intrusive link in the VM's open-upvalues list

	// slot is the stack slot index Location points at while the upvalue is
	// open; bookkeeping only, used to keep the VM's open-upvalues list
	// ordered and to find where to stop when closing upvalues at or above
	// a given slot.
	slot int
}

func (u *Upvalue) String() string { return "upvalue" }
func (*Upvalue) Type() string     { return "upvalue" }

// Closure pairs an ObjFunction with the live Upvalue cells it captures. A
// bare ObjFunction is never called directly; OP_CLOSURE always wraps one
// in a Closure first, even when it captures nothing.
type Closure struct {
	objHeader
	Function *ObjFunction
	Upvalues []*Upvalue
}

func (c *Closure) String() string { return c.Function.String() }
func (*Closure) Type() string     { return "closure" }

// Class is a runtime class value: its name and its method table, keyed by
// method name and holding *Closure values. There is no superclass field:
// inheritance is out of scope for this language.
type Class struct {
	objHeader
	Name    *ObjString
	Methods *Table
}

func (c *Class) String() string { return c.Name.Chars }
func (*Class) Type() string     { return "class" }

// Instance is a runtime instance of a Class, holding its own field table.
// Method lookup falls back to Klass.Methods when a name is absent from
// Fields, the "fields shadow methods" rule OP_GET_PROPERTY and OP_INVOKE
// both implement.
type Instance struct {
	objHeader
	Klass  *Class
	Fields *Table
}

func (i *Instance) String() string { return fmt.Sprintf("%s instance", i.Klass.Name.Chars) }
func (*Instance) Type() string     { return "instance" }

// BoundMethod pairs a receiver Instance with the Closure implementing the
// method it was looked up from, materialized by OP_GET_PROPERTY whenever
// the looked-up name resolves to a method rather than a field. Calling it
// runs the closure with the receiver bound to local slot 0 ("this").
type BoundMethod struct {
	objHeader
	Receiver Value
	Method   *Closure
}

func (b *BoundMethod) String() string { return b.Method.String() }
func (*BoundMethod) Type() string     { return "bound method" }
