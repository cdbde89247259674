// Package disasm renders a compiled lang/compiler.Chunk as human-readable
// text, purely for diagnostics (the disasm driver command and test
// fixtures); it never sits on the execution path, which reads the same
// bytecode directly.
package disasm

import (
	"bytes"
	"fmt"

	"github.com/mna/talon/lang/compiler"
)

// Function disassembles a single compiled function, then recursively
// disassembles every nested *compiler.FunctionProto referenced by one of
// its OP_CLOSURE instructions. Nested listings follow the complete listing
// of the enclosing function, in the order their OP_CLOSURE instructions
// appear.
func Function(name string, proto *compiler.FunctionProto) string {
	d := &dasm{buf: new(bytes.Buffer)}
	d.function(name, proto)
	return d.buf.String()
}

type dasm struct {
	buf *bytes.Buffer
}

func (d *dasm) writef(format string, args ...any) { fmt.Fprintf(d.buf, format, args...) }

func (d *dasm) function(name string, proto *compiler.FunctionProto) {
	d.writef("== %s ==\n", name)

	code := proto.Chunk.Code
	lines := proto.Chunk.Lines
	var nested []*compiler.FunctionProto

	for offset := 0; offset < len(code); {
		offset = d.instruction(proto, code, lines, offset, &nested)
	}

	for _, fn := range nested {
		d.writef("\n")
		nestedName := fn.Name
		if nestedName == "" {
			nestedName = "<anonymous>"
		}
		d.function(nestedName, fn)
	}
}

func (d *dasm) instruction(proto *compiler.FunctionProto, code []byte, lines []int, offset int, nested *[]*compiler.FunctionProto) int {
	d.writef("%04d ", offset)
	if offset > 0 && lines[offset] == lines[offset-1] {
		d.writef("   | ")
	} else {
		d.writef("%4d ", lines[offset])
	}

	op := compiler.OpCode(code[offset])
	switch op {
	case compiler.OP_CONSTANT, compiler.OP_GET_GLOBAL, compiler.OP_DEFINE_GLOBAL,
		compiler.OP_SET_GLOBAL, compiler.OP_GET_PROPERTY, compiler.OP_SET_PROPERTY,
		compiler.OP_CLASS, compiler.OP_METHOD:
		return d.constantInstruction(op, proto, code, offset, nested)

	case compiler.OP_GET_LOCAL, compiler.OP_SET_LOCAL, compiler.OP_GET_UPVALUE,
		compiler.OP_SET_UPVALUE, compiler.OP_CALL:
		return d.byteInstruction(op, code, offset)

	case compiler.OP_JUMP, compiler.OP_JUMP_IF_FALSE:
		return d.jumpInstruction(op, 1, code, offset)
	case compiler.OP_LOOP:
		return d.jumpInstruction(op, -1, code, offset)

	case compiler.OP_INVOKE:
		return d.invokeInstruction(op, proto, code, offset, nested)

	case compiler.OP_CLOSURE:
		return d.closureInstruction(proto, code, offset, nested)

	default:
		return d.simple(op, offset)
	}
}

func (d *dasm) simple(op compiler.OpCode, offset int) int {
	d.writef("%s\n", op)
	return offset + 1
}

func (d *dasm) byteInstruction(op compiler.OpCode, code []byte, offset int) int {
	slot := code[offset+1]
	d.writef("%-16s %4d\n", op, slot)
	return offset + 2
}

func (d *dasm) jumpInstruction(op compiler.OpCode, sign int, code []byte, offset int) int {
	jump := int(code[offset+1])<<8 | int(code[offset+2])
	target := offset + 3 + sign*jump
	d.writef("%-16s %4d -> %d\n", op, offset, target)
	return offset + 3
}

func (d *dasm) constantInstruction(op compiler.OpCode, proto *compiler.FunctionProto, code []byte, offset int, nested *[]*compiler.FunctionProto) int {
	idx := code[offset+1]
	d.writef("%-16s %4d '%s'\n", op, idx, describeConstant(proto, idx, nested))
	return offset + 2
}

func (d *dasm) invokeInstruction(op compiler.OpCode, proto *compiler.FunctionProto, code []byte, offset int, nested *[]*compiler.FunctionProto) int {
	idx := code[offset+1]
	argc := code[offset+2]
	d.writef("%-16s (%d args) %4d '%s'\n", op, argc, idx, describeConstant(proto, idx, nested))
	return offset + 3
}

func (d *dasm) closureInstruction(proto *compiler.FunctionProto, code []byte, offset int, nested *[]*compiler.FunctionProto) int {
	idx := code[offset+1]
	offset += 2
	d.writef("%-16s %4d '%s'\n", compiler.OP_CLOSURE, idx, describeConstant(proto, idx, nested))

	fn, ok := proto.Chunk.Constants[idx].(*compiler.FunctionProto)
	if ok {
		*nested = append(*nested, fn)
		for i := 0; i < fn.UpvalueCount; i++ {
			isLocal := code[offset]
			index := code[offset+1]
			offset += 2
			kind := "upvalue"
			if isLocal != 0 {
				kind = "local"
			}
			d.writef("%04d      |                     %s %d\n", offset-2, kind, index)
		}
	}
	return offset
}

func describeConstant(proto *compiler.FunctionProto, idx byte, nested *[]*compiler.FunctionProto) string {
	c := proto.Chunk.Constants[idx]
	switch c := c.(type) {
	case float64:
		return fmt.Sprintf("%g", c)
	case string:
		return c
	case *compiler.FunctionProto:
		name := c.Name
		if name == "" {
			name = "<anonymous>"
		}
		return fmt.Sprintf("<fn %s>", name)
	default:
		return fmt.Sprintf("%v", c)
	}
}
