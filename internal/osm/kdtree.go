package osm

import (
	"math"
	"sort"
)

// kdTree is a static, KDBush-style point index over node coordinates
// (degrees). Leaves address node indexes; the tree is built once and never
// mutated.
type kdTree struct {
	idx  []int32
	lons []float64
	lats []float64
}

// newKDTree builds a balanced k-d tree over parallel lon/lat columns.
func newKDTree(lons, lats []float64) *kdTree {
	n := len(lons)
	idx := make([]int32, n)
	for i := range idx {
		idx[i] = int32(i)
	}
	t := &kdTree{idx: idx, lons: lons, lats: lats}
	t.build(0, n-1, 0)
	return t
}

func (t *kdTree) build(lo, hi, depth int) {
	if lo >= hi {
		return
	}
	axis := depth % 2
	sub := t.idx[lo : hi+1]
	sort.Slice(sub, func(i, j int) bool {
		return t.coord(sub[i], axis) < t.coord(sub[j], axis)
	})
	mid := (lo + hi) / 2
	t.build(lo, mid-1, depth+1)
	t.build(mid+1, hi, depth+1)
}

func (t *kdTree) coord(i int32, axis int) float64 {
	if axis == 0 {
		return t.lons[i]
	}
	return t.lats[i]
}

// RangeBBox returns node indexes whose coordinates lie within b.
func (t *kdTree) RangeBBox(b BBox) []int32 {
	var out []int32
	var rec func(lo, hi, depth int)
	rec = func(lo, hi, depth int) {
		if lo > hi {
			return
		}
		mid := (lo + hi) / 2
		i := t.idx[mid]
		lon, lat := t.lons[i], t.lats[i]
		if b.ContainsPoint(lon, lat) {
			out = append(out, i)
		}
		axis := depth % 2
		coord := lon
		minB, maxB := b[0], b[2]
		if axis == 1 {
			coord = lat
			minB, maxB = b[1], b[3]
		}
		if minB <= coord {
			rec(lo, mid-1, depth+1)
		}
		if maxB >= coord {
			rec(mid+1, hi, depth+1)
		}
	}
	rec(0, len(t.idx)-1, 0)
	return out
}

// RangeRadius returns node indexes within radiusKm great-circle distance of
// (lon, lat). A coarse bbox prune (using a flat-earth degree approximation)
// is followed by exact haversine filtering.
func (t *kdTree) RangeRadius(lon, lat, radiusKm float64) []int32 {
	latDelta := radiusKm / 111.0
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 1e-9 {
		cosLat = 1e-9
	}
	lonDelta := radiusKm / (111.320 * cosLat)
	bbox := BBox{lon - lonDelta, lat - latDelta, lon + lonDelta, lat + latDelta}

	candidates := t.RangeBBox(bbox)
	out := candidates[:0]
	for _, i := range candidates {
		if HaversineKm(lon, lat, t.lons[i], t.lats[i]) <= radiusKm {
			out = append(out, i)
		}
	}
	return out
}
