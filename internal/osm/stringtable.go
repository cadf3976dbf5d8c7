package osm

import "fmt"

// StringTable is a deduplicated UTF-8 string arena addressed by a dense,
// stable uint32 index. Bytes are never removed once added.
type StringTable struct {
	values  []string
	forward map[string]uint32 // nil after hydration until first Add/Find
}

// NewStringTable returns an empty table ready for fill.
func NewStringTable() *StringTable {
	return &StringTable{forward: make(map[string]uint32)}
}

// NewStringTableFromValues hydrates a table from already-decoded values
// (e.g. after transport import), without eagerly building the reverse map.
func NewStringTableFromValues(values []string) *StringTable {
	return &StringTable{values: values}
}

// Add returns the existing index for s if present, else appends it.
func (t *StringTable) Add(s string) uint32 {
	if t.forward == nil {
		t.rebuildForward()
	}
	if i, ok := t.forward[s]; ok {
		return i
	}
	i := uint32(len(t.values))
	t.values = append(t.values, s)
	t.forward[s] = i
	return i
}

// Get decodes the string at index i. Out-of-range i is a programmer error.
func (t *StringTable) Get(i uint32) string {
	if int(i) >= len(t.values) {
		panic(fmt.Sprintf("osm: stringtable index %d out of range (len %d)", i, len(t.values)))
	}
	return t.values[i]
}

// Find returns the index of s, or -1 if absent. Never fails; triggers a
// lazy reverse-map rebuild if the table was hydrated without one.
func (t *StringTable) Find(s string) int32 {
	if t.forward == nil {
		t.rebuildForward()
	}
	if i, ok := t.forward[s]; ok {
		return int32(i)
	}
	return -1
}

// Len returns the number of unique strings in the table.
func (t *StringTable) Len() int { return len(t.values) }

// Iter calls fn for every string in index order.
func (t *StringTable) Iter(fn func(i uint32, s string)) {
	for i, s := range t.values {
		fn(uint32(i), s)
	}
}

func (t *StringTable) rebuildForward() {
	t.forward = make(map[string]uint32, len(t.values))
	for i, s := range t.values {
		t.forward[s] = uint32(i)
	}
}
