package machine

// fnv1aHash computes the 32-bit FNV-1a hash of s, the same hash clox uses
// for every ObjString, chosen for being fast and simple rather than for
// any resistance to crafted collisions (strings here are never attacker
// keyed into the global namespace in a way that would make that matter).
func fnv1aHash(s string) uint32 {
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	hash := uint32(offsetBasis)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= prime
	}
	return hash
}

// internString returns the single canonical *ObjString for s, allocating
// and registering a new one in vm.strings only the first time s's exact
// contents are seen. Every string literal, identifier name, and runtime
// string concatenation result flows through this function, which is what
// lets Equal use pointer identity for strings instead of content
// comparison.
func (vm *VM) internString(s string) *ObjString {
	hash := fnv1aHash(s)
	if interned := vm.strings.findString(s, hash); interned != nil {
		return interned
	}

	obj := &ObjString{Chars: s, Hash: hash}
	vm.gc.track(obj, int64(24+len(s)))
	// The string table doubles as an interning Set: the key is the object
	// itself, the value is an unused sentinel (Bool(true), matching
	// clox's NIL_VAL placeholder).
	vm.strings.Set(obj, Bool(true))
	return obj
}
