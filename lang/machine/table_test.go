package machine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func internedKey(s string) *ObjString {
	return &ObjString{Chars: s, Hash: fnv1aHash(s)}
}

func TestTableSetGetDelete(t *testing.T) {
	var tbl Table

	k1, k2 := internedKey("foo"), internedKey("bar")

	require.True(t, tbl.Set(k1, Number(1)))
	require.False(t, tbl.Set(k1, Number(2)), "overwriting an existing key is not a new entry")

	v, ok := tbl.Get(k1)
	require.True(t, ok)
	require.Equal(t, Number(2), v)

	_, ok = tbl.Get(k2)
	require.False(t, ok, "key never set must not be found")

	require.True(t, tbl.Set(k2, Bool(true)))
	require.True(t, tbl.Delete(k1))
	_, ok = tbl.Get(k1)
	require.False(t, ok, "deleted key must not be found")

	v, ok = tbl.Get(k2)
	require.True(t, ok, "deleting one key must not disturb another live key")
	require.Equal(t, Bool(true), v)

	require.False(t, tbl.Delete(k1), "deleting an already-deleted key reports no-op")
}

func TestTableTombstoneKeepsProbingIntact(t *testing.T) {
	var tbl Table

	// Force everything into the same 8-slot bucket layout by using keys
	// whose hashes collide mod 8, then delete the middle one and confirm
	// the tail of the probe chain is still reachable through the tombstone.
	keys := make([]*ObjString, 0, 4)
	for i := 0; len(keys) < 4; i++ {
		k := internedKey(string(rune('a' + i)))
		if k.Hash%8 == 0 {
			keys = append(keys, k)
		}
	}
	for i, k := range keys {
		tbl.Set(k, Number(float64(i)))
	}

	require.True(t, tbl.Delete(keys[1]))
	for i, k := range keys {
		if i == 1 {
			continue
		}
		v, ok := tbl.Get(k)
		require.True(t, ok, "key %d must survive an unrelated delete", i)
		require.Equal(t, Number(float64(i)), v)
	}
}

func TestTableGrowRehashesAllLiveEntries(t *testing.T) {
	var tbl Table
	const n = 200

	keys := make([]*ObjString, n)
	for i := 0; i < n; i++ {
		keys[i] = internedKey(string(rune(i)))
		tbl.Set(keys[i], Number(float64(i)))
	}
	for i := 0; i < n; i++ {
		v, ok := tbl.Get(keys[i])
		require.True(t, ok)
		require.Equal(t, Number(float64(i)), v)
	}
}

func TestTableFindStringMatchesByContentNotIdentity(t *testing.T) {
	var tbl Table
	obj := &ObjString{Chars: "hello", Hash: fnv1aHash("hello")}
	tbl.Set(obj, Bool(true))

	found := tbl.findString("hello", fnv1aHash("hello"))
	require.Same(t, obj, found, "findString must return the original pointer for matching content")

	require.Nil(t, tbl.findString("goodbye", fnv1aHash("goodbye")))
}

func TestTableForEachVisitsOnlyLiveEntries(t *testing.T) {
	var tbl Table
	k1, k2 := internedKey("x"), internedKey("y")
	tbl.Set(k1, Number(1))
	tbl.Set(k2, Number(2))
	tbl.Delete(k1)

	seen := map[string]Value{}
	tbl.forEach(func(k *ObjString, v Value) { seen[k.Chars] = v })

	require.Len(t, seen, 1)
	require.Equal(t, Number(2), seen["y"])
}

func TestTableRemoveWhitePrunesUnmarkedKeysOnly(t *testing.T) {
	var tbl Table
	marked, white := internedKey("marked"), internedKey("white")
	marked.marked = true

	tbl.Set(marked, Bool(true))
	tbl.Set(white, Bool(true))

	tbl.removeWhite()

	_, ok := tbl.Get(marked)
	require.True(t, ok, "marked key must survive removeWhite")
	_, ok = tbl.Get(white)
	require.False(t, ok, "unmarked key must be pruned by removeWhite")
}
