package machine

import "github.com/mna/talon/lang/compiler"

// callValue dispatches a CALL or invocation target according to its
// runtime type: a Closure pushes a new CallFrame, a Native runs to
// completion immediately, a Class constructs an Instance (and runs its
// init method, if any), and a BoundMethod rebinds its receiver before
// calling its underlying Closure. Any other callee is a runtime error.
func (vm *VM) callValue(callee Value, argc int) error {
	switch c := callee.(type) {
	case *Closure:
		return vm.call(c, argc)
	case *Native:
		args := vm.stack[vm.sp-argc : vm.sp]
		result, err := c.Fn(vm, args)
		if err != nil {
			return vm.runtimeError("%s", err.Error())
		}
		vm.sp -= argc + 1
		vm.push(result)
		return nil
	case *Class:
		inst := &Instance{Klass: c, Fields: &Table{}}
		vm.gc.track(inst, 48)
		vm.stack[vm.sp-argc-1] = inst
		if initializer, ok := c.Methods.Get(vm.initString); ok {
			return vm.call(initializer.(*Closure), argc)
		}
		if argc != 0 {
			return vm.runtimeError("Expected 0 arguments but got %d", argc)
		}
		return nil
	case *BoundMethod:
		vm.stack[vm.sp-argc-1] = c.Receiver
		return vm.call(c.Method, argc)
	default:
		return vm.runtimeError("Can only call functions and classes")
	}
}

// call pushes a new CallFrame for closure, running it with the argc
// arguments already sitting on top of the stack (along with the callee
// itself, at slot 0 of the new frame).
func (vm *VM) call(closure *Closure, argc int) error {
	if argc != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d", closure.Function.Arity, argc)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("Stack overflow")
	}

	fr := &vm.frames[vm.frameCount]
	vm.frameCount++
	fr.closure = closure
	fr.ip = 0
	fr.slots = vm.sp - argc - 1
	return nil
}

// invoke implements OP_INVOKE's fused "look up and call" fast path for
// method calls (receiver.name(args...)): it checks the receiver's own
// fields before falling back to its class's method table, exactly
// mirroring the field-shadows-method rule OP_GET_PROPERTY applies, but
// without materializing a BoundMethod when the lookup does resolve to a
// method.
func (vm *VM) invoke(name *ObjString, argc int) error {
	receiver := vm.peek(argc)
	inst, ok := receiver.(*Instance)
	if !ok {
		return vm.runtimeError("Only instances have methods")
	}

	if v, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.sp-argc-1] = v
		return vm.callValue(v, argc)
	}
	return vm.invokeFromClass(inst.Klass, name, argc)
}

func (vm *VM) invokeFromClass(klass *Class, name *ObjString, argc int) error {
	method, ok := klass.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'", name.Chars)
	}
	return vm.call(method.(*Closure), argc)
}

// bindMethod looks up name in klass's method table and, if found,
// replaces the receiver on top of the stack with a BoundMethod pairing it
// with that method. Returns false (without modifying the stack) if no
// such method exists.
func (vm *VM) bindMethod(klass *Class, name *ObjString) bool {
	method, ok := klass.Methods.Get(name)
	if !ok {
		return false
	}
	bound := &BoundMethod{Receiver: vm.peek(0), Method: method.(*Closure)}
	vm.gc.track(bound, 32)
	vm.pop()
	vm.push(bound)
	return true
}

// defineMethod pops a Closure off the stack and stores it in the class
// beneath it (still on the stack, left there by OP_CLASS) under name,
// exactly where class-body compilation leaves each method's closure
// right after it is emitted.
func (vm *VM) defineMethod(name *ObjString) {
	method := vm.pop()
	cls := vm.peek(0).(*Class)
	cls.Methods.Set(name, method)
}

// captureUpvalue returns the existing open Upvalue for the stack slot at
// slotIndex if one is already on the VM's open-upvalues list, or creates
// and links in a new one. The list is kept sorted by descending slot
// index so closeUpvalues can stop as soon as it passes the target slot.
func (vm *VM) captureUpvalue(slotIndex int) *Upvalue {
	var prev *Upvalue
	uv := vm.openUpvalues
	for uv != nil && uv.slot > slotIndex {
		prev = uv
		uv = uv.Next
	}
	if uv != nil && uv.slot == slotIndex {
		return uv
	}

	created := &Upvalue{Location: &vm.stack[slotIndex], slot: slotIndex, Next: uv}
	vm.gc.track(created, 32)
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above lastSlot: it copies
// the stack slot's current value into the Upvalue itself and repoints
// Location at that copy, so the captured variable keeps working after the
// frame that owned the stack slot returns (or after the block that
// declared it ends, for OP_CLOSE_UPVALUE).
func (vm *VM) closeUpvalues(lastSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.slot >= lastSlot {
		uv := vm.openUpvalues
		uv.Closed = *uv.Location
		uv.Location = &uv.Closed
		vm.openUpvalues = uv.Next
	}
}

func (vm *VM) binaryCompare(op compiler.OpCode) error {
	y, ok1 := vm.peek(0).(Number)
	x, ok2 := vm.peek(1).(Number)
	if !ok1 || !ok2 {
		return vm.runtimeError("Operands must be numbers")
	}
	vm.pop()
	vm.pop()
	switch op {
	case compiler.OP_GREATER:
		vm.push(Bool(x > y))
	case compiler.OP_LESS:
		vm.push(Bool(x < y))
	}
	return nil
}

func (vm *VM) binaryArith(op compiler.OpCode) error {
	y, ok1 := vm.peek(0).(Number)
	x, ok2 := vm.peek(1).(Number)
	if !ok1 || !ok2 {
		return vm.runtimeError("Operands must be numbers")
	}
	vm.pop()
	vm.pop()
	switch op {
	case compiler.OP_SUBTRACT:
		vm.push(x - y)
	case compiler.OP_MULTIPLY:
		vm.push(x * y)
	case compiler.OP_DIVIDE:
		vm.push(x / y)
	}
	return nil
}

// add implements OP_ADD's operator overload: number+number adds, and
// string+string concatenates. Any other operand pairing is a runtime
// error. Concatenation interns its result through internString just like
// any other string value, so it participates in identity equality and
// GC tracking the same way a literal would.
func (vm *VM) add() error {
	b, a := vm.peek(0), vm.peek(1)

	switch a := a.(type) {
	case Number:
		bn, ok := b.(Number)
		if !ok {
			return vm.runtimeError("Operands must be two numbers or two strings")
		}
		vm.pop()
		vm.pop()
		vm.push(a + bn)
		return nil
	case *ObjString:
		bs, ok := b.(*ObjString)
		if !ok {
			return vm.runtimeError("Operands must be two numbers or two strings")
		}
		// Both operands stay on the stack (and so remain GC roots) while
		// internString may allocate, exactly as clox's concatenate() peeks
		// both operands and only pops them after the new ObjString exists.
		result := vm.internString(a.Chars + bs.Chars)
		vm.pop()
		vm.pop()
		vm.push(result)
		return nil
	default:
		return vm.runtimeError("Operands must be two numbers or two strings")
	}
}
