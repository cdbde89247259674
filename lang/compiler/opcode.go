package compiler

import "fmt"

// OpCode identifies a single bytecode instruction. Every OpCode is encoded
// as one byte; operand widths are noted alongside each constant below and
// are fixed per opcode, except for OP_CLOSURE, whose trailing upvalue
// descriptors depend on the function it closes over.
type OpCode uint8

//nolint:revive
const (
	OP_CONSTANT OpCode = iota // u8 constant index
	OP_NIL
	OP_TRUE
	OP_FALSE
	OP_POP

	OP_GET_LOCAL // u8 local slot
	OP_SET_LOCAL // u8 local slot

	OP_GET_GLOBAL    // u8 name constant
	OP_DEFINE_GLOBAL // u8 name constant
	OP_SET_GLOBAL    // u8 name constant

	OP_GET_UPVALUE // u8 upvalue index
	OP_SET_UPVALUE // u8 upvalue index

	OP_GET_PROPERTY // u8 name constant
	OP_SET_PROPERTY // u8 name constant

	OP_EQUAL
	OP_GREATER
	OP_LESS

	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE

	OP_NOT
	OP_NEGATE

	OP_PRINT

	OP_JUMP          // u16 big-endian forward offset
	OP_JUMP_IF_FALSE // u16 big-endian forward offset
	OP_LOOP          // u16 big-endian backward offset

	OP_CALL // u8 argument count

	OP_CLOSURE // u8 function constant index, then 2*upvalueCount bytes of {isLocal, index}

	OP_CLOSE_UPVALUE

	OP_RETURN

	OP_CLASS  // u8 name constant
	OP_METHOD // u8 name constant

	OP_INVOKE // u8 name constant, u8 argument count

	opCodeMax
)

var opCodeNames = [...]string{
	OP_CONSTANT:       "OP_CONSTANT",
	OP_NIL:            "OP_NIL",
	OP_TRUE:           "OP_TRUE",
	OP_FALSE:          "OP_FALSE",
	OP_POP:            "OP_POP",
	OP_GET_LOCAL:      "OP_GET_LOCAL",
	OP_SET_LOCAL:      "OP_SET_LOCAL",
	OP_GET_GLOBAL:     "OP_GET_GLOBAL",
	OP_DEFINE_GLOBAL:  "OP_DEFINE_GLOBAL",
	OP_SET_GLOBAL:     "OP_SET_GLOBAL",
	OP_GET_UPVALUE:    "OP_GET_UPVALUE",
	OP_SET_UPVALUE:    "OP_SET_UPVALUE",
	OP_GET_PROPERTY:   "OP_GET_PROPERTY",
	OP_SET_PROPERTY:   "OP_SET_PROPERTY",
	OP_EQUAL:          "OP_EQUAL",
	OP_GREATER:        "OP_GREATER",
	OP_LESS:           "OP_LESS",
	OP_ADD:            "OP_ADD",
	OP_SUBTRACT:       "OP_SUBTRACT",
	OP_MULTIPLY:       "OP_MULTIPLY",
	OP_DIVIDE:         "OP_DIVIDE",
	OP_NOT:            "OP_NOT",
	OP_NEGATE:         "OP_NEGATE",
	OP_PRINT:          "OP_PRINT",
	OP_JUMP:           "OP_JUMP",
	OP_JUMP_IF_FALSE:  "OP_JUMP_IF_FALSE",
	OP_LOOP:           "OP_LOOP",
	OP_CALL:           "OP_CALL",
	OP_CLOSURE:        "OP_CLOSURE",
	OP_CLOSE_UPVALUE:  "OP_CLOSE_UPVALUE",
	OP_RETURN:         "OP_RETURN",
	OP_CLASS:          "OP_CLASS",
	OP_METHOD:         "OP_METHOD",
	OP_INVOKE:         "OP_INVOKE",
}

func (op OpCode) String() string {
	if op < opCodeMax {
		if name := opCodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal opcode (%d)", op)
}
