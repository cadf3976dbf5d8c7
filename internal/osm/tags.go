package osm

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Tags holds, for each entity index e, a packed (tag_start[e], tag_count[e])
// view into parallel key/value string-table index arrays, plus a reverse
// index from string-table key index to the entities that carry it.
type Tags struct {
	strings *StringTable

	tagStart []int32
	tagCount []uint8 // capped at 255 tags per entity

	tagKeys []uint32
	tagVals []uint32

	// building is the transient per-key builder: a key's bitmap of entity
	// indexes, deduped and kept sorted for cheap flattening at Finalize.
	building map[uint32]*roaring.Bitmap

	keyIndexStart []int32
	keyIndexCount []int32
	keyEntities   []int32

	finalized bool
}

// NewTags returns an empty Tags bound to the shared StringTable strings.
func NewTags(strings *StringTable) *Tags {
	return &Tags{strings: strings, building: make(map[uint32]*roaring.Bitmap)}
}

// AddTags records entity e's tags by string value, interning each key/value
// into the shared StringTable. Every entity must have exactly one AddTags
// (or AddTagKeyVals) call, in entity-index order, even if kv is empty.
func (t *Tags) AddTags(e int32, kv map[string]string) {
	if t.finalized {
		panic("osm: Tags.AddTags after finalize")
	}
	if len(kv) > 255 {
		panic("osm: entity exceeds 255 tags")
	}
	start := int32(len(t.tagKeys))
	for k, v := range kv {
		ki := t.strings.Add(k)
		vi := t.strings.Add(v)
		t.tagKeys = append(t.tagKeys, ki)
		t.tagVals = append(t.tagVals, vi)
		t.noteKey(ki, e)
	}
	t.appendRow(start, len(kv))
}

// AddTagKeyVals records tags already resolved to string-table indexes, the
// PBF ingest path where keys/vals arrive as block-local indexes translated
// through a string map.
func (t *Tags) AddTagKeyVals(e int32, keys, vals []uint32) {
	if t.finalized {
		panic("osm: Tags.AddTagKeyVals after finalize")
	}
	if len(keys) != len(vals) {
		panic("osm: Tags.AddTagKeyVals: mismatched key/val lengths")
	}
	if len(keys) > 255 {
		panic("osm: entity exceeds 255 tags")
	}
	start := int32(len(t.tagKeys))
	for i, ki := range keys {
		t.tagKeys = append(t.tagKeys, ki)
		t.tagVals = append(t.tagVals, vals[i])
		t.noteKey(ki, e)
	}
	t.appendRow(start, len(keys))
}

func (t *Tags) appendRow(start int32, count int) {
	t.tagStart = append(t.tagStart, start)
	t.tagCount = append(t.tagCount, uint8(count))
}

func (t *Tags) noteKey(key uint32, e int32) {
	bm, ok := t.building[key]
	if !ok {
		bm = roaring.New()
		t.building[key] = bm
	}
	bm.Add(uint32(e))
}

// Finalize compacts the tag columns and flattens the per-key builder
// bitmaps into the reverse index, in ascending string-table-index order. A
// second call is a no-op.
func (t *Tags) Finalize() {
	if t.finalized {
		return
	}
	t.tagStart = compact(t.tagStart)
	t.tagCount = compact(t.tagCount)
	t.tagKeys = compact(t.tagKeys)
	t.tagVals = compact(t.tagVals)

	var maxKey uint32
	for k := range t.building {
		if k+1 > maxKey {
			maxKey = k + 1
		}
	}
	t.keyIndexStart = make([]int32, maxKey)
	t.keyIndexCount = make([]int32, maxKey)

	keys := make([]uint32, 0, len(t.building))
	for k := range t.building {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		bm := t.building[k]
		start := int32(len(t.keyEntities))
		it := bm.Iterator()
		count := 0
		for it.HasNext() {
			t.keyEntities = append(t.keyEntities, int32(it.Next()))
			count++
		}
		t.keyIndexStart[k] = start
		t.keyIndexCount[k] = int32(count)
	}

	t.building = nil
	t.finalized = true
}

// Cardinality returns the tag count of entity e.
func (t *Tags) Cardinality(e int32) int { return int(t.tagCount[e]) }

// GetTags materializes entity e's tags as a string map, or nil if it
// carries none.
func (t *Tags) GetTags(e int32) map[string]string {
	count := t.tagCount[e]
	if count == 0 {
		return nil
	}
	start := t.tagStart[e]
	out := make(map[string]string, count)
	for i := int32(0); i < int32(count); i++ {
		k := t.tagKeys[start+i]
		v := t.tagVals[start+i]
		out[t.strings.Get(k)] = t.strings.Get(v)
	}
	return out
}

// Row returns the raw key/value string-table index slices for entity e.
func (t *Tags) Row(e int32) (keys, vals []uint32) {
	start := t.tagStart[e]
	count := int32(t.tagCount[e])
	return t.tagKeys[start : start+count], t.tagVals[start : start+count]
}

// HasKey returns the entity indexes that carry string-table key keyIdx.
// Empty (not an error) for an out-of-range or negative keyIdx.
func (t *Tags) HasKey(keyIdx int32) []int32 {
	if keyIdx < 0 || int(keyIdx) >= len(t.keyIndexStart) {
		return nil
	}
	start := t.keyIndexStart[keyIdx]
	count := t.keyIndexCount[keyIdx]
	return t.keyEntities[start : start+count]
}

// KVToIndex returns a dense composite key for a (key, value) string-table
// index pair, for callers that want a single comparable/hashable value.
func (t *Tags) KVToIndex(k, v uint32) uint64 {
	return uint64(k)*uint64(t.strings.Len()) + uint64(v)
}
