package pbf

import (
	"fmt"

	"github.com/conveyal/osmix/internal/osm"
)

// defaultBlockSize is the number of entities grouped into one
// PrimitiveBlock per emitted group, matching the ~8k block sizing typical
// real PBF writers use to keep per-block zlib blobs reasonably sized.
const defaultBlockSize = 8000

// EmitOptions configures Emit.
type EmitOptions struct {
	BlockSize int // 0 uses defaultBlockSize
}

// Emit writes a finalized Store's entities to w, nodes then ways then
// relations, each kind in storage (insertion) order; entities are not
// re-sorted by id. Each kind is split into PrimitiveBlocks of
// opts.BlockSize entities (defaultBlockSize when unset), each block
// carrying its own block-local string table (re-delta-encoding ids,
// coordinates, and refs from scratch -- the Store's global columns are
// absolute, not delta-coded).
func Emit(store *osm.Store, w Writer, opts EmitOptions) error {
	if !store.Finalized() {
		return fmt.Errorf("pbf: Emit requires a finalized Store")
	}
	blockSize := opts.BlockSize
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}

	b := store.Nodes.BBox()
	if err := w.WriteHeader(Header{
		Bbox:             [4]float64{b[0], b[1], b[2], b[3]},
		WritingProgram:   store.Header.WritingProgram,
		Timestamp:        store.Header.Timestamp,
		RequiredFeatures: append([]string{"OsmSchema-V0.6", "DenseNodes"}, store.Header.RequiredFeatures...),
		OptionalFeatures: store.Header.OptionalFeatures,
	}); err != nil {
		return fmt.Errorf("pbf: writing header: %w", err)
	}

	if err := emitNodeBlocks(store, w, blockSize); err != nil {
		return err
	}
	if err := emitWayBlocks(store, w, blockSize); err != nil {
		return err
	}
	if err := emitRelationBlocks(store, w, blockSize); err != nil {
		return err
	}
	return w.Close()
}

// blockStringTable interns strings into a per-block table and returns
// their block-local index, building re-delta-coded columns against it.
type blockStringTable struct {
	values  []string
	forward map[string]int32
}

func newBlockStringTable() *blockStringTable {
	b := &blockStringTable{forward: make(map[string]int32)}
	b.intern("") // index 0 is reserved: it terminates each node's run in DenseNodes.KeysVals
	return b
}

func (b *blockStringTable) intern(s string) uint32 {
	if i, ok := b.forward[s]; ok {
		return uint32(i)
	}
	i := int32(len(b.values))
	b.values = append(b.values, s)
	b.forward[s] = i
	return uint32(i)
}

func emitNodeBlocks(store *osm.Store, w Writer, blockSize int) error {
	n := store.Nodes.Len()
	for start := 0; start < n; start += blockSize {
		end := min(start+blockSize, n)
		bst := newBlockStringTable()
		dense := &DenseNodes{}
		var prevID, prevLat, prevLon int64

		for i := start; i < end; i++ {
			idx := int32(i)
			id := store.Nodes.Ids.At(idx)
			lon, lat := store.Nodes.GetLonLat(idx)
			latMicro, lonMicro := int64(lat*1e7), int64(lon*1e7)

			dense.DeltaIDs = append(dense.DeltaIDs, id-prevID)
			dense.DeltaLat = append(dense.DeltaLat, latMicro-prevLat)
			dense.DeltaLon = append(dense.DeltaLon, lonMicro-prevLon)
			prevID, prevLat, prevLon = id, latMicro, lonMicro

			tags := store.Nodes.Tags.GetTags(idx)
			for k, v := range tags {
				dense.KeysVals = append(dense.KeysVals, int32(bst.intern(k)), int32(bst.intern(v)))
			}
			dense.KeysVals = append(dense.KeysVals, 0)
		}

		if err := w.WriteBlock(PrimitiveBlock{
			StringTable: bst.values,
			Dense:       dense,
			Granularity: 1e7,
		}); err != nil {
			return fmt.Errorf("pbf: writing node block: %w", err)
		}
	}
	return nil
}

func emitWayBlocks(store *osm.Store, w Writer, blockSize int) error {
	n := store.Ways.Len()
	for start := 0; start < n; start += blockSize {
		end := min(start+blockSize, n)
		bst := newBlockStringTable()
		g := &WayGroup{}

		for i := start; i < end; i++ {
			idx := int32(i)
			g.IDs = append(g.IDs, store.Ways.Ids.At(idx))

			refs := store.Ways.GetRefIDs(idx)
			deltas := make([]int64, len(refs))
			var prev int64
			for j, ref := range refs {
				deltas[j] = ref - prev
				prev = ref
			}
			g.Refs = append(g.Refs, deltas)

			keys, vals := store.Ways.Tags.Row(idx)
			bKeys := make([]uint32, len(keys))
			bVals := make([]uint32, len(vals))
			for j, k := range keys {
				bKeys[j] = bst.intern(store.Strings.Get(k))
			}
			for j, v := range vals {
				bVals[j] = bst.intern(store.Strings.Get(v))
			}
			g.Keys = append(g.Keys, bKeys)
			g.Vals = append(g.Vals, bVals)
		}

		if err := w.WriteBlock(PrimitiveBlock{StringTable: bst.values, Ways: g}); err != nil {
			return fmt.Errorf("pbf: writing way block: %w", err)
		}
	}
	return nil
}

func emitRelationBlocks(store *osm.Store, w Writer, blockSize int) error {
	n := store.Relations.Len()
	for start := 0; start < n; start += blockSize {
		end := min(start+blockSize, n)
		bst := newBlockStringTable()
		g := &RelationGroup{}

		for i := start; i < end; i++ {
			idx := int32(i)
			g.IDs = append(g.IDs, store.Relations.Ids.At(idx))

			members := store.Relations.GetMembers(idx)
			deltas := make([]int64, len(members))
			types := make([]RelationMemberType, len(members))
			roles := make([]uint32, len(members))
			var prev int64
			for j, m := range members {
				deltas[j] = m.Ref - prev
				prev = m.Ref
				types[j] = RelationMemberType(m.Type)
				roles[j] = bst.intern(m.Role)
			}
			g.MemIDs = append(g.MemIDs, deltas)
			g.MemTypes = append(g.MemTypes, types)
			g.MemRoles = append(g.MemRoles, roles)

			keys, vals := store.Relations.Tags.Row(idx)
			bKeys := make([]uint32, len(keys))
			bVals := make([]uint32, len(vals))
			for j, k := range keys {
				bKeys[j] = bst.intern(store.Strings.Get(k))
			}
			for j, v := range vals {
				bVals[j] = bst.intern(store.Strings.Get(v))
			}
			g.Keys = append(g.Keys, bKeys)
			g.Vals = append(g.Vals, bVals)
		}

		if err := w.WriteBlock(PrimitiveBlock{StringTable: bst.values, Relations: g}); err != nil {
			return fmt.Errorf("pbf: writing relation block: %w", err)
		}
	}
	return nil
}
