package machine

// gcHeapGrowFactor sets the next cycle's threshold: after a collection,
// nextGC becomes the bytes still allocated times this factor, the same
// factor clox's memory.c uses to keep collection frequency roughly
// proportional to live-set growth instead of triggering on every allocation.
const gcHeapGrowFactor = 2

// gcInitialThreshold is nextGC's starting value, chosen (as in clox) to be
// large enough that a short-lived script never collects at all.
const gcInitialThreshold = 1 << 20

// gc is the VM's tracing, tri-colour mark-sweep collector. It owns the
// linked list of every heap object the VM has allocated (objects) and
// decides, once bytesAllocated crosses nextGC, to pause the world (there
// is nothing else running) and reclaim everything unreached from the
// roots.
//
// Colour is represented without a three-state field: white is "not in
// objects' reachable set as of the last sweep", grey is "marked but not
// yet blackened, currently sitting on gray", and black is "marked and
// blackened" (objHeader.marked == true and no longer on gray).
type gc struct {
	vm     *VM
	objects gcObject
	gray    []gcObject

	// pendingRoots holds objects allocated mid-load (module conversion,
	// native registration) that are not yet reachable from the stack,
	// globals, or any frame: a function's constant pool under
	// construction, a native's name string before it lands in globals.
	// markRoots scans this the same way clox protects an in-flight
	// allocation by pushing it onto the VM stack around the call that
	// might trigger the next collection.
	pendingRoots []gcObject

	bytesAllocated int64
	nextGC         int64

	// stressMode, when set, runs a full collection before every
	// allocation instead of waiting for nextGC; wired to the
	// -stress-gc driver flag for exercising collector bugs deterministically.
	stressMode bool
	// logMode prints a line to the VM's stderr at the start and end of each
	// collection cycle, wired to -log-gc for interactive debugging.
	logMode bool
}

func newGC(vm *VM) *gc {
	return &gc{vm: vm, nextGC: gcInitialThreshold}
}

// pushRoot temporarily protects obj from collection until a matching
// popRoot, for an object reachable only from a local variable that will
// be stored somewhere markRoots already scans (the stack, globals, a
// Closure, a Chunk's Constants) once the caller finishes building it.
func (g *gc) pushRoot(obj gcObject) {
	g.pendingRoots = append(g.pendingRoots, obj)
}

// popRoot releases the most recently pushed pending root.
func (g *gc) popRoot() {
	g.pendingRoots = g.pendingRoots[:len(g.pendingRoots)-1]
}

// track registers a freshly allocated heap object with the collector,
// threading it onto the all-objects list and accounting for its estimated
// size. Every allocation site of a gcObject value must call this exactly
// once.
//
// The threshold/stress check runs BEFORE obj is linked onto the
// all-objects list, not after: obj is not yet reachable from any root at
// this point (its own constructor hasn't returned, let alone stored it
// anywhere), so a collection triggered after linking it would see it as
// an unreached white object and sweep it on the spot. Checking first, the
// way clox's reallocate() does for every allocation, means the new object
// simply does not exist yet as far as that collection is concerned.
func (g *gc) track(obj gcObject, size int64) {
	if g.stressMode {
		g.collect()
	} else if g.bytesAllocated+size > g.nextGC {
		g.collect()
	}

	*obj.header() = objHeader{next: g.objects}
	g.objects = obj
	g.bytesAllocated += size
}

func (g *gc) collect() {
	if g.logMode {
		g.vm.debugf("-- gc begin\n")
	}
	before := g.bytesAllocated

	g.markRoots()
	g.traceReferences()
	g.vm.strings.removeWhite()
	g.sweep()

	g.nextGC = g.bytesAllocated * gcHeapGrowFactor
	if g.nextGC < gcInitialThreshold {
		g.nextGC = gcInitialThreshold
	}

	if g.logMode {
		g.vm.debugf("-- gc end, collected %d bytes (from %d to %d), next at %d\n",
			before-g.bytesAllocated, before, g.bytesAllocated, g.nextGC)
	}
}

func (g *gc) markValue(v Value) {
	obj, ok := v.(gcObject)
	if !ok || obj == nil {
		return
	}
	h := obj.header()
	if h.marked {
		return
	}
	h.marked = true
	g.gray = append(g.gray, obj)
}

// markRoots marks every value directly reachable from outside the heap:
// the VM's operand stack, its call frames' closures, open upvalues, the
// globals table, the string-intern table's own keys are handled later via
// removeWhite rather than marked as roots (an unreferenced interned string
// must NOT survive), and the reserved "init" string.
func (g *gc) markRoots() {
	vm := g.vm
	for i := 0; i < vm.sp; i++ {
		g.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		g.markValue(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		g.markValue(uv)
	}
	vm.globals.forEach(func(k *ObjString, v Value) {
		g.markValue(k)
		g.markValue(v)
	})
	if vm.initString != nil {
		g.markValue(vm.initString)
	}
	for _, obj := range g.pendingRoots {
		g.markValue(obj)
	}
}

func (g *gc) traceReferences() {
	for len(g.gray) > 0 {
		n := len(g.gray) - 1
		obj := g.gray[n]
		g.gray = g.gray[:n]
		g.blacken(obj)
	}
}

// blacken marks every Value an object itself refers to, the traversal
// step that turns a grey object black. Dispatch is a type switch over the
// concrete heap types, the same shape the interpreter's own opcode
// dispatch loop uses elsewhere in this package.
func (g *gc) blacken(obj gcObject) {
	switch o := obj.(type) {
	case *ObjString:
		// no outgoing references
	case *ObjFunction:
		if o.Name != nil {
			g.markValue(o.Name)
		}
		for _, c := range o.Constants {
			g.markValue(c)
		}
	case *Native:
		// no outgoing references
	case *Upvalue:
		g.markValue(o.Closed)
	case *Closure:
		g.markValue(o.Function)
		for _, uv := range o.Upvalues {
			g.markValue(uv)
		}
	case *Class:
		g.markValue(o.Name)
		o.Methods.forEach(func(k *ObjString, v Value) {
			g.markValue(k)
			g.markValue(v)
		})
	case *Instance:
		g.markValue(o.Klass)
		o.Fields.forEach(func(k *ObjString, v Value) {
			g.markValue(k)
			g.markValue(v)
		})
	case *BoundMethod:
		g.markValue(o.Receiver)
		g.markValue(o.Method)
	}
}

// sweep walks the all-objects list, reclaiming every object whose mark bit
// is still false (it is unreachable, i.e. white) and unmarking every
// survivor in preparation for the next cycle.
func (g *gc) sweep() {
	var prev gcObject
	obj := g.objects
	for obj != nil {
		h := obj.header()
		if h.marked {
			h.marked = false
			prev = obj
			obj = h.next
			continue
		}

		unreached := obj
		obj = h.next
		if prev == nil {
			g.objects = obj
		} else {
			prev.header().next = obj
		}
		g.free(unreached)
	}
}

// free accounts for an object's reclaimed memory. Go's own garbage
// collector actually frees the backing memory once nothing references
// unreached anymore; this collector's job is purely to decide reachability
// and to keep bytesAllocated an accurate trigger for the next cycle, not
// to manage raw memory itself.
func (g *gc) free(obj gcObject) {
	g.bytesAllocated -= sizeOf(obj)
}

func sizeOf(obj gcObject) int64 {
	switch o := obj.(type) {
	case *ObjString:
		return int64(24 + len(o.Chars))
	case *ObjFunction:
		return 64
	case *Native:
		return 32
	case *Upvalue:
		return 32
	case *Closure:
		return int64(32 + 8*len(o.Upvalues))
	case *Class:
		return 48
	case *Instance:
		return 48
	case *BoundMethod:
		return 32
	default:
		return 16
	}
}
