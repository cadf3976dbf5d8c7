package osm

import "fmt"

// Ways is the columnar Way collection: Ids + Tags plus a CSR node-ref
// sequence, a per-way bbox, and (after BuildIndex) a static STR-packed
// bbox R-tree. Ways holds a non-owning reference to Nodes for coordinate
// resolution.
type Ways struct {
	Base

	refStart []int32
	refCount []uint16 // capped at 65535 refs per way
	refs     []int64

	bboxes []BBox

	nodes *Nodes

	finalized bool
	index     *rTree
}

// NewWays returns an empty Ways collection. nodes is used to resolve refs
// to coordinates during bbox computation and spatial-index build.
func NewWays(strings *StringTable, nodes *Nodes) *Ways {
	return &Ways{Base: newBase(strings), nodes: nodes}
}

// AddWay appends a way and returns its local index.
func (w *Ways) AddWay(id int64, refs []int64, tags map[string]string) int32 {
	if w.finalized {
		panic("osm: Ways.AddWay after finalize")
	}
	if len(refs) > 65535 {
		panic("osm: way exceeds 65535 refs")
	}
	idx := w.Ids.Add(id)
	w.Tags.AddTags(idx, tags)
	start := int32(len(w.refs))
	w.refs = append(w.refs, refs...)
	w.refStart = append(w.refStart, start)
	w.refCount = append(w.refCount, uint16(len(refs)))
	return idx
}

// AddWays decodes a PBF way primitive group. Each way's refs are delta
// encoded (refs[i] += refs[i-1], running sum reset per way); keys/vals are
// block-local string indexes translated through stringMap. filter, if
// non-nil, is applied to each resolved ref id (e.g. to drop refs that do
// not exist in Nodes after node filtering); a way that loses every ref is
// dropped entirely.
func (w *Ways) AddWays(wayIDs []int64, deltaRefs [][]int64, keys, vals [][]uint32, stringMap []uint32, filter func(refID int64) bool) {
	if w.finalized {
		panic("osm: Ways.AddWays after finalize")
	}
	for i, id := range wayIDs {
		var refID int64
		refs := make([]int64, 0, len(deltaRefs[i]))
		for _, d := range deltaRefs[i] {
			refID += d
			if filter != nil && !filter(refID) {
				continue
			}
			refs = append(refs, refID)
		}
		if len(refs) == 0 {
			continue
		}

		tagKeys := make([]uint32, len(keys[i]))
		for j, k := range keys[i] {
			tagKeys[j] = stringMap[k]
		}
		tagVals := make([]uint32, len(vals[i]))
		for j, v := range vals[i] {
			tagVals[j] = stringMap[v]
		}

		idx := w.Ids.Add(id)
		w.Tags.AddTagKeyVals(idx, tagKeys, tagVals)
		start := int32(len(w.refs))
		w.refs = append(w.refs, refs...)
		w.refStart = append(w.refStart, start)
		w.refCount = append(w.refCount, uint16(len(refs)))
	}
}

// SetBBoxes hydrates the per-way bbox column directly (e.g. from transport
// import), so Finalize does not need to recompute it from refs.
func (w *Ways) SetBBoxes(boxes []BBox) {
	if w.finalized {
		panic("osm: Ways.SetBBoxes after finalize")
	}
	w.bboxes = boxes
}

// Finalize compacts the ref columns and the base Ids/Tags, then computes
// per-way bboxes (unless already hydrated via SetBBoxes). A second call is
// a no-op.
func (w *Ways) Finalize() {
	if w.finalized {
		return
	}
	w.Ids.Finalize()
	w.Tags.Finalize()
	w.refStart = compact(w.refStart)
	w.refCount = compact(w.refCount)
	w.refs = compact(w.refs)

	if w.bboxes == nil {
		w.bboxes = make([]BBox, w.Len())
		for i := 0; i < w.Len(); i++ {
			w.bboxes[i] = w.computeBBox(int32(i))
		}
	}
	w.finalized = true
}

func (w *Ways) computeBBox(idx int32) BBox {
	b := EmptyBBox()
	for _, ref := range w.GetRefIDs(idx) {
		ni := w.nodes.Ids.GetIndexFromID(ref)
		if ni == -1 {
			continue // missing ref tolerated, excluded from the bbox
		}
		lon, lat := w.nodes.GetLonLat(ni)
		b.ExpandPoint(lon, lat)
	}
	return b
}

// BuildIndex constructs the static STR-packed R-tree over per-way bboxes.
func (w *Ways) BuildIndex() {
	if !w.finalized {
		panic("osm: Ways.BuildIndex before finalize")
	}
	w.index = newRTree(w.bboxes)
}

// GetRefIDs returns way idx's node ref ids.
func (w *Ways) GetRefIDs(idx int32) []int64 {
	start := w.refStart[idx]
	count := int32(w.refCount[idx])
	return w.refs[start : start+count]
}

// BBoxAt returns way idx's bbox.
func (w *Ways) BBoxAt(idx int32) BBox { return w.bboxes[idx] }

// GetCoordinates dereferences every ref of way idx via Nodes, in order. A
// missing ref is a recoverable data error.
func (w *Ways) GetCoordinates(idx int32) ([][2]float64, error) {
	refs := w.GetRefIDs(idx)
	out := make([][2]float64, 0, len(refs))
	for _, ref := range refs {
		ni := w.nodes.Ids.GetIndexFromID(ref)
		if ni == -1 {
			return nil, fmt.Errorf("osm: way ref %d not found in nodes", ref)
		}
		lon, lat := w.nodes.GetLonLat(ni)
		out = append(out, [2]float64{lon, lat})
	}
	return out, nil
}

// Intersects returns way indexes whose bbox intersects b, short-circuited
// per candidate by filter (nil accepts all).
func (w *Ways) Intersects(b BBox, filter func(idx int32) bool) []int32 {
	if w.index == nil {
		panic("osm: Ways spatial index not built")
	}
	return w.index.Search(b, filter)
}

// Neighbors returns way indexes nearest to (lon, lat) by great-circle
// distance to bbox, up to maxResults (0 = unbounded) within maxDistKm
// (0 = unbounded).
func (w *Ways) Neighbors(lon, lat float64, maxResults int, maxDistKm float64) []int32 {
	if w.index == nil {
		panic("osm: Ways spatial index not built")
	}
	return w.index.Nearest(lon, lat, maxResults, maxDistKm)
}
