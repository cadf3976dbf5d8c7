package osm

import "sort"

// idsBlockSize is the anchor block width for the two-level binary search.
const idsBlockSize = 256

// Ids is an append-only vector of entity ids. After Finalize, id->index
// lookup is a two-level binary search: an anchors array locates the
// 256-wide block, then a binary search within the block.
type Ids struct {
	ids    []int64
	sorted bool

	finalized bool

	sortedIDs   []int64
	sortedToIdx []int32 // identity if sorted, else original insertion index
	anchors     []int64
}

// NewIds returns an empty, append-only id vector.
func NewIds() *Ids {
	return &Ids{sorted: true}
}

// Add appends id, returning its insertion index.
func (ids *Ids) Add(id int64) int32 {
	if ids.finalized {
		panic("osm: Ids.Add after finalize")
	}
	if len(ids.ids) > 0 && id < ids.ids[len(ids.ids)-1] {
		ids.sorted = false
	}
	idx := int32(len(ids.ids))
	ids.ids = append(ids.ids, id)
	return idx
}

// Len returns the number of ids.
func (ids *Ids) Len() int { return len(ids.ids) }

// At returns the id at insertion index idx.
func (ids *Ids) At(idx int32) int64 {
	if idx < 0 || int(idx) >= len(ids.ids) {
		panic("osm: Ids.At index out of range")
	}
	return ids.ids[idx]
}

// Finalize compacts the backing storage, builds the sorted view (reusing
// the original array in place if it was already non-decreasing), and the
// anchors array. A second call is a no-op.
func (ids *Ids) Finalize() {
	if ids.finalized {
		return
	}
	n := len(ids.ids)
	ids.ids = compact(ids.ids)

	if ids.sorted {
		ids.sortedIDs = ids.ids
		ids.sortedToIdx = make([]int32, n)
		for i := range ids.sortedToIdx {
			ids.sortedToIdx[i] = int32(i)
		}
	} else {
		order := make([]int32, n)
		for i := range order {
			order[i] = int32(i)
		}
		sort.SliceStable(order, func(a, b int) bool {
			return ids.ids[order[a]] < ids.ids[order[b]]
		})
		sortedIDs := make([]int64, n)
		for i, orig := range order {
			sortedIDs[i] = ids.ids[orig]
		}
		ids.sortedIDs = sortedIDs
		ids.sortedToIdx = order
	}

	numAnchors := 0
	if n > 0 {
		numAnchors = (n + idsBlockSize - 1) / idsBlockSize
	}
	ids.anchors = make([]int64, numAnchors)
	for j := 0; j < numAnchors; j++ {
		p := j * idsBlockSize
		if p >= n {
			p = n - 1
		}
		ids.anchors[j] = ids.sortedIDs[p]
	}
	ids.finalized = true
}

// GetIndexFromID returns the original insertion index for id, or -1 if
// absent. If duplicate ids were inserted (which should not occur), any one
// of their insertion indexes may be returned.
func (ids *Ids) GetIndexFromID(id int64) int32 {
	if !ids.finalized {
		panic("osm: Ids.GetIndexFromID before finalize")
	}
	n := len(ids.sortedIDs)
	if n == 0 {
		return -1
	}

	// Largest j with anchors[j] <= id.
	j := sort.Search(len(ids.anchors), func(i int) bool { return ids.anchors[i] > id }) - 1
	if j < 0 {
		return -1
	}

	start := j * idsBlockSize
	end := start + idsBlockSize
	if end > n {
		end = n
	}
	window := ids.sortedIDs[start:end]
	p := sort.Search(len(window), func(i int) bool { return window[i] >= id })
	if p == len(window) || window[p] != id {
		return -1
	}

	pos := start + p
	if ids.sorted {
		return int32(pos)
	}
	return ids.sortedToIdx[pos]
}
