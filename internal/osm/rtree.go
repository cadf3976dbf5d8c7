package osm

import (
	"container/heap"
	"math"
	"sort"
)

// rtreeLeafCapacity bounds both leaf and internal node fan-out.
const rtreeLeafCapacity = 16

// rTreeNode is either an internal node (children set) or a leaf (items set).
type rTreeNode struct {
	bbox     BBox
	children []*rTreeNode
	items    []int32
}

// rTree is a static, bulk-loaded bbox index (sort-tile-recursive packing,
// in the spirit of a Flatbush-style R-tree) over way (or relation) bboxes.
type rTree struct {
	root  *rTreeNode
	boxes []BBox // original per-item bboxes, for exact leaf-item distances
}

// newRTree bulk-loads an R-tree over boxes via STR packing.
func newRTree(boxes []BBox) *rTree {
	if len(boxes) == 0 {
		return &rTree{root: &rTreeNode{bbox: EmptyBBox()}, boxes: boxes}
	}
	items := make([]int32, len(boxes))
	for i := range items {
		items[i] = int32(i)
	}
	leaves := strBuildLeaves(items, boxes, rtreeLeafCapacity)
	nodes := leaves
	for len(nodes) > 1 {
		nodes = strBuildLevel(nodes, rtreeLeafCapacity)
	}
	return &rTree{root: nodes[0], boxes: boxes}
}

func centerX(b BBox) float64 { return (b[0] + b[2]) / 2 }
func centerY(b BBox) float64 { return (b[1] + b[3]) / 2 }

func strSliceCapacity(n, capacity int) int {
	groupCount := (n + capacity - 1) / capacity
	slices := int(math.Ceil(math.Sqrt(float64(groupCount))))
	if slices < 1 {
		slices = 1
	}
	return slices * capacity
}

func strBuildLeaves(items []int32, boxes []BBox, capacity int) []*rTreeNode {
	sliceCapacity := strSliceCapacity(len(items), capacity)

	sorted := append([]int32(nil), items...)
	sort.Slice(sorted, func(i, j int) bool {
		return centerX(boxes[sorted[i]]) < centerX(boxes[sorted[j]])
	})

	var leaves []*rTreeNode
	for s := 0; s < len(sorted); s += sliceCapacity {
		end := min(s+sliceCapacity, len(sorted))
		slice := sorted[s:end]
		sort.Slice(slice, func(i, j int) bool {
			return centerY(boxes[slice[i]]) < centerY(boxes[slice[j]])
		})
		for l := 0; l < len(slice); l += capacity {
			lend := min(l+capacity, len(slice))
			leafItems := append([]int32(nil), slice[l:lend]...)
			bbox := EmptyBBox()
			for _, it := range leafItems {
				bbox.Expand(boxes[it])
			}
			leaves = append(leaves, &rTreeNode{bbox: bbox, items: leafItems})
		}
	}
	return leaves
}

func strBuildLevel(nodes []*rTreeNode, capacity int) []*rTreeNode {
	sliceCapacity := strSliceCapacity(len(nodes), capacity)

	sorted := append([]*rTreeNode(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool {
		return centerX(sorted[i].bbox) < centerX(sorted[j].bbox)
	})

	var parents []*rTreeNode
	for s := 0; s < len(sorted); s += sliceCapacity {
		end := min(s+sliceCapacity, len(sorted))
		slice := sorted[s:end]
		sort.Slice(slice, func(i, j int) bool {
			return centerY(slice[i].bbox) < centerY(slice[j].bbox)
		})
		for l := 0; l < len(slice); l += capacity {
			lend := min(l+capacity, len(slice))
			children := append([]*rTreeNode(nil), slice[l:lend]...)
			bbox := EmptyBBox()
			for _, c := range children {
				bbox.Expand(c.bbox)
			}
			parents = append(parents, &rTreeNode{bbox: bbox, children: children})
		}
	}
	return parents
}

// Search returns item indexes whose bbox intersects b, short-circuited per
// candidate by filter (nil accepts all).
func (t *rTree) Search(b BBox, filter func(idx int32) bool) []int32 {
	var out []int32
	var rec func(n *rTreeNode)
	rec = func(n *rTreeNode) {
		if n == nil || !n.bbox.Intersects(b) {
			return
		}
		if n.items != nil {
			for _, it := range n.items {
				if filter == nil || filter(it) {
					out = append(out, it)
				}
			}
			return
		}
		for _, c := range n.children {
			rec(c)
		}
	}
	rec(t.root)
	return out
}

func bboxDistanceKm(b BBox, lon, lat float64) float64 {
	clampedLon := math.Min(math.Max(lon, b[0]), b[2])
	clampedLat := math.Min(math.Max(lat, b[1]), b[3])
	return HaversineKm(lon, lat, clampedLon, clampedLat)
}

type rTreeHeapItem struct {
	dist   float64
	node   *rTreeNode
	leaf   int32
	isLeaf bool
}

type rTreeHeap []rTreeHeapItem

func (h rTreeHeap) Len() int            { return len(h) }
func (h rTreeHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h rTreeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *rTreeHeap) Push(x interface{}) { *h = append(*h, x.(rTreeHeapItem)) }
func (h *rTreeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Nearest performs a best-first k-nearest-neighbor search by great-circle
// distance to each item's bbox, stopping at maxResults items (0 = no limit)
// or once the nearest remaining candidate exceeds maxDistKm (0 = no limit).
func (t *rTree) Nearest(lon, lat float64, maxResults int, maxDistKm float64) []int32 {
	h := &rTreeHeap{}
	if t.root != nil {
		heap.Init(h)
		heap.Push(h, rTreeHeapItem{dist: bboxDistanceKm(t.root.bbox, lon, lat), node: t.root})
	}

	var out []int32
	for h.Len() > 0 {
		if maxResults > 0 && len(out) >= maxResults {
			break
		}
		top := heap.Pop(h).(rTreeHeapItem)
		if maxDistKm > 0 && top.dist > maxDistKm {
			break
		}
		if top.isLeaf {
			out = append(out, top.leaf)
			continue
		}
		n := top.node
		if n.items != nil {
			for _, it := range n.items {
				heap.Push(h, rTreeHeapItem{dist: bboxDistanceKm(t.boxes[it], lon, lat), leaf: it, isLeaf: true})
			}
		} else {
			for _, c := range n.children {
				heap.Push(h, rTreeHeapItem{dist: bboxDistanceKm(c.bbox, lon, lat), node: c})
			}
		}
	}
	return out
}
