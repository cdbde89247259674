package compiler

// UpvalueDesc records, for one upvalue slot of a FunctionProto, whether it
// captures a local slot of the immediately enclosing function (IsLocal) or
// one of that function's own upvalues (by Index into its Upvalues table).
type UpvalueDesc struct {
	Index   uint8
	IsLocal bool
}

// A FunctionProto is the compile-time, immutable description of a function
// body: its arity, the chunk of bytecode implementing it, and the
// description of the upvalues it closes over. lang/machine wraps a
// FunctionProto (reachable as a Chunk constant, or as the result of Compile
// for the top-level script) into a runtime *ObjFunction when it loads the
// compiled script for a run, and instantiates one *Closure per OP_CLOSURE
// execution.
type FunctionProto struct {
	Name         string
	Arity        int
	UpvalueCount int
	Upvalues     []UpvalueDesc
	Chunk        Chunk
}
