package machine

// tableMaxLoad is the load factor past which a Table grows. clox uses the
// same constant (0.75); staying well under 1.0 keeps probe sequences short
// even with the table's simple linear-probing open addressing.
const tableMaxLoad = 0.75

type entry struct {
	key   *ObjString // nil key with Value == Bool(true) marks a tombstone
	value Value
}

// Table is an open-addressed hash table keyed by interned strings, used
// for the VM's global variables, a Class's method table, and an
// Instance's field table. Modeled on clox's table.c: linear probing, with
// tombstones (a deleted-but-still-probed-through slot) left behind by
// Delete so that probe chains through a deleted key remain intact.
type Table struct {
	count   int // live entries + tombstones
	entries []entry
}

// Get looks up key, returning its value and true if present.
func (t *Table) Get(key *ObjString) (Value, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, returning true if this created a new entry
// (as opposed to overwriting an existing one).
func (t *Table) Set(key *ObjString, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow()
	}

	e := t.findEntry(t.entries, key)
	isNew := e.key == nil
	if isNew && e.value == nil {
		// brand new slot, not a reused tombstone
		t.count++
	}
	e.key = key
	e.value = value
	return isNew
}

// Delete removes key from the table, leaving a tombstone in its slot (a
// nil key paired with a sentinel Bool(true) value) so that later probes
// for other keys that collided with this one still find them.
func (t *Table) Delete(key *ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = Bool(true)
	return true
}

// findEntry returns a pointer to the slot where key is stored, or the
// first empty-or-tombstone slot where it could be inserted, probing
// linearly from key's hash. The first tombstone seen along the probe chain
// is remembered and returned in place of a later true-empty slot, so
// repeated insert/delete churn does not grow the live chain length.
func (t *Table) findEntry(entries []entry, key *ObjString) *entry {
	mask := uint32(len(entries) - 1)
	idx := key.Hash & mask
	var tombstone *entry

	for {
		e := &entries[idx]
		switch {
		case e.key == nil:
			if e.value == nil {
				// truly empty: return the tombstone we found earlier, if any
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		case e.key == key:
			return e
		}
		idx = (idx + 1) & mask
	}
}

// findString looks up an interned string by its content rather than by
// pointer identity: it is how the VM de-duplicates a freshly scanned or
// concatenated string against the intern table before allocating a new
// ObjString. It probes the same way findEntry does, but compares hash,
// length, and bytes instead of pointer identity, since the very string
// being searched for may not be interned yet.
func (t *Table) findString(chars string, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask

	for {
		e := &t.entries[idx]
		switch {
		case e.key == nil:
			if e.value == nil {
				return nil
			}
		case e.key.Hash == hash && e.key.Chars == chars:
			return e.key
		}
		idx = (idx + 1) & mask
	}
}

func (t *Table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	newEntries := make([]entry, newCap)

	t.count = 0
	for _, e := range t.entries {
		if e.key == nil {
			continue
		}
		dst := t.findEntry(newEntries, e.key)
		dst.key = e.key
		dst.value = e.value
		t.count++
	}
	t.entries = newEntries
}

// forEach calls fn for every live (non-tombstone) entry. Used by the
// garbage collector to mark table contents.
func (t *Table) forEach(fn func(key *ObjString, value Value)) {
	for _, e := range t.entries {
		if e.key != nil {
			fn(e.key, e.value)
		}
	}
}

// removeWhite deletes every entry whose key is a currently-unmarked
// (white) ObjString. Called once per GC cycle on the VM's string-intern
// table between the mark and sweep phases, exactly as clox's
// tableRemoveWhite does for its own intern table: an interned string with
// no other references is otherwise immortal, since the intern table's own
// reference to it would keep it alive forever.
func (t *Table) removeWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.marked {
			e.key = nil
			e.value = Bool(true)
		}
	}
}
