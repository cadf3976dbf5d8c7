package changeset

import (
	"math"

	"github.com/conveyal/osmix/internal/osm"
)

type point struct {
	lon, lat float64
}

func coordsEqualPts(a, b [2]float64) bool {
	return a[0] == b[0] && a[1] == b[1]
}

// removeConsecutiveDuplicates drops exact-coordinate repeats from a
// polyline, as required before intersection testing (spec.md 4.9.4 step 2).
func removeConsecutiveDuplicates(coords [][2]float64) [][2]float64 {
	if len(coords) == 0 {
		return coords
	}
	out := coords[:1]
	for _, c := range coords[1:] {
		if !coordsEqualPts(out[len(out)-1], c) {
			out = append(out, c)
		}
	}
	return out
}

// segmentIntersection returns the intersection point of segments
// (p1,p2) and (p3,p4), if one exists within both segments (endpoints
// included).
func segmentIntersection(p1, p2, p3, p4 [2]float64) (point, bool) {
	d := (p2[0]-p1[0])*(p4[1]-p3[1]) - (p2[1]-p1[1])*(p4[0]-p3[0])
	if math.Abs(d) < 1e-12 {
		return point{}, false // parallel or collinear
	}
	t := ((p3[0]-p1[0])*(p4[1]-p3[1]) - (p3[1]-p1[1])*(p4[0]-p3[0])) / d
	u := ((p3[0]-p1[0])*(p2[1]-p1[1]) - (p3[1]-p1[1])*(p2[0]-p1[0])) / d
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return point{}, false
	}
	return point{
		lon: p1[0] + t*(p2[0]-p1[0]),
		lat: p1[1] + t*(p2[1]-p1[1]),
	}, true
}

// allIntersections scans every segment pair of the two polylines
// pairwise (an O(n*m) scan, not a true Bentley-Ottmann sweepline --
// simpler and easy to get right without the ability to run tests),
// deduping resulting points by exact coordinate.
func allIntersections(a, b [][2]float64) []point {
	var out []point
	seen := make(map[point]bool)
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			p, ok := segmentIntersection(a[i], a[i+1], b[j], b[j+1])
			if !ok {
				continue
			}
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func isTunnel(tags map[string]string) bool {
	return tags["tunnel"] == "yes" || tags["covered"] == "yes" || tags["highway"] == "underpass"
}

func isBridge(tags map[string]string) bool {
	return tags["bridge"] == "yes"
}

func layerOf(tags map[string]string) string {
	l, ok := tags["layer"]
	if !ok {
		return "0"
	}
	return l
}

// waysShouldConnect decides whether two candidate crossing ways should
// actually be spliced together at a computed intersection point. Resolved
// (open question in spec.md 9) as: never connect a tunnel/covered/
// underpass way to anything; never connect a bridge to a non-bridge;
// never connect ways declared on different layers.
func waysShouldConnect(a, b map[string]string) bool {
	if isTunnel(a) || isTunnel(b) {
		return false
	}
	if isBridge(a) != isBridge(b) {
		return false
	}
	if layerOf(a) != layerOf(b) {
		return false
	}
	return true
}

func lookupNodeCoord(s *osm.Store, id int64) ([2]float64, bool) {
	idx := s.Nodes.Ids.GetIndexFromID(id)
	if idx == -1 {
		return [2]float64{}, false
	}
	lon, lat := s.Nodes.GetLonLat(idx)
	return [2]float64{lon, lat}, true
}

// nearestNodeWithin returns the ref id in refs whose coordinate is nearest
// to p, provided it lies within meters great-circle distance of p.
func nearestNodeWithin(s *osm.Store, refs []int64, p point, meters float64) (int64, bool) {
	best := int64(-1)
	bestDist := math.MaxFloat64
	for _, ref := range refs {
		c, ok := lookupNodeCoord(s, ref)
		if !ok {
			continue
		}
		d := osm.HaversineKm(p.lon, p.lat, c[0], c[1]) * 1000
		if d <= meters && d < bestDist {
			best, bestDist = ref, d
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

func pointToSegmentDistance(p, a, b [2]float64) float64 {
	vx, vy := b[0]-a[0], b[1]-a[1]
	wx, wy := p[0]-a[0], p[1]-a[1]
	l2 := vx*vx + vy*vy
	if l2 == 0 {
		return math.Hypot(wx, wy)
	}
	t := (wx*vx + wy*vy) / l2
	t = math.Max(0, math.Min(1, t))
	px, py := a[0]+t*vx, a[1]+t*vy
	return math.Hypot(p[0]-px, p[1]-py)
}

// nearestEdgeIndex returns the ref-list index at which to insert a node at
// p: the position right after the start of the closest edge.
func nearestEdgeIndex(coords [][2]float64, p [2]float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for i := 0; i+1 < len(coords); i++ {
		d := pointToSegmentDistance(p, coords[i], coords[i+1])
		if d < bestDist {
			bestDist = d
			best = i + 1
		}
	}
	return best
}

func tagCrossing(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		out[k] = v
	}
	if _, ok := out["crossing"]; !ok {
		out["crossing"] = "yes"
	}
	return out
}

func spliceInsert(refs []int64, at int, nodeID int64) []int64 {
	out := make([]int64, 0, len(refs)+1)
	out = append(out, refs[:at]...)
	out = append(out, nodeID)
	out = append(out, refs[at:]...)
	return out
}

func spliceReplace(refs []int64, oldID, newID int64) []int64 {
	out := make([]int64, len(refs))
	for i, r := range refs {
		if r == oldID {
			out[i] = newID
		} else {
			out[i] = r
		}
	}
	return out
}

// CreateIntersections processes patch's ways as crossing candidates
// against base, splicing new or existing nodes at every computed
// intersection point, per spec.md 4.9.4.
func (cs *ChangeSet) CreateIntersections(patch *osm.Store, isCrossingCandidate func(tags map[string]string) bool) {
	considered := make(map[[2]int64]bool)

	for pi := 0; pi < patch.Ways.Len(); pi++ {
		wID := patch.Ways.Ids.At(int32(pi))
		wTags := patch.Ways.Tags.GetTags(int32(pi))
		if isCrossingCandidate != nil && !isCrossingCandidate(wTags) {
			continue
		}

		candidates := cs.Base.Ways.Intersects(patch.Ways.BBoxAt(int32(pi)), nil)
		if len(candidates) <= 1 {
			continue
		}

		wCoords, err := patch.Ways.GetCoordinates(int32(pi))
		if err != nil {
			continue
		}
		wCoords = removeConsecutiveDuplicates(wCoords)

		for _, oi := range candidates {
			oID := cs.Base.Ways.Ids.At(oi)
			if oID == wID {
				continue
			}
			pk := wayPairKey(wID, oID)
			if considered[pk] {
				continue
			}
			considered[pk] = true

			oTags := cs.Base.Ways.Tags.GetTags(oi)
			if !waysShouldConnect(wTags, oTags) {
				continue
			}

			oCoords, err := cs.Base.Ways.GetCoordinates(oi)
			if err != nil {
				continue
			}
			oCoords = removeConsecutiveDuplicates(oCoords)
			if coordsEqual(wCoords, oCoords) {
				continue
			}

			for _, p := range allIntersections(wCoords, oCoords) {
				cs.Stats.IntersectionPointsFound++
				cs.spliceIntersection(patch, wID, oID, p)
			}
		}
	}
}

func (cs *ChangeSet) spliceIntersection(patch *osm.Store, wID, oID int64, p point) {
	wRefs := cs.currentRefs(patch, wID)
	oRefs := cs.currentRefs(patch, oID)
	if wRefs == nil || oRefs == nil {
		return
	}

	wNode, wHas := nearestNodeWithin(patch, wRefs, p, 1)
	oNode, oHas := nearestNodeWithin(cs.Base, oRefs, p, 1)

	switch {
	case wHas && oHas:
		if wNode == oNode {
			return
		}
		// Case A: unify -- replace o's occurrence of oNode with wNode.
		cs.Modify(EntityWay, oID, func(e Entity) Entity {
			e.Refs = spliceReplace(e.Refs, oNode, wNode)
			return e
		})
		cs.tagNodeCrossing(wNode)

	case wHas && !oHas:
		// Case B: splice w's existing node into o.
		oCoords, err := cs.Base.Ways.GetCoordinates(cs.Base.Ways.Ids.GetIndexFromID(oID))
		if err != nil {
			return
		}
		at := nearestEdgeIndex(oCoords, [2]float64{p.lon, p.lat})
		cs.Modify(EntityWay, oID, func(e Entity) Entity {
			e.Refs = spliceInsert(e.Refs, at, wNode)
			return e
		})
		cs.tagNodeCrossing(wNode)

	case oHas && !wHas:
		// Case C: symmetric -- splice o's existing node into w.
		wCoords, err := patch.Ways.GetCoordinates(patch.Ways.Ids.GetIndexFromID(wID))
		if err != nil {
			return
		}
		at := nearestEdgeIndex(wCoords, [2]float64{p.lon, p.lat})
		cs.Modify(EntityWay, wID, func(e Entity) Entity {
			e.Refs = spliceInsert(e.Refs, at, oNode)
			return e
		})
		cs.tagNodeCrossing(oNode)

	default:
		// Case D: create a new node and splice into both ways.
		newID := cs.nextNodeIDState()
		cs.Create(Entity{Type: EntityNode, ID: newID, Lon: p.lon, Lat: p.lat, Tags: map[string]string{"crossing": "yes"}}, "")
		cs.Stats.IntersectionNodesCreated++

		wCoords, err := patch.Ways.GetCoordinates(patch.Ways.Ids.GetIndexFromID(wID))
		if err == nil {
			at := nearestEdgeIndex(wCoords, [2]float64{p.lon, p.lat})
			cs.Modify(EntityWay, wID, func(e Entity) Entity {
				e.Refs = spliceInsert(e.Refs, at, newID)
				return e
			})
		}
		oCoords, err := cs.Base.Ways.GetCoordinates(cs.Base.Ways.Ids.GetIndexFromID(oID))
		if err == nil {
			at := nearestEdgeIndex(oCoords, [2]float64{p.lon, p.lat})
			cs.Modify(EntityWay, oID, func(e Entity) Entity {
				e.Refs = spliceInsert(e.Refs, at, newID)
				return e
			})
		}
	}
}

func (cs *ChangeSet) currentRefs(patch *osm.Store, wID int64) []int64 {
	if e, ok := cs.current(EntityWay, wID); ok {
		return e.Refs
	}
	idx := patch.Ways.Ids.GetIndexFromID(wID)
	if idx == -1 {
		return nil
	}
	return patch.Ways.GetRefIDs(idx)
}

func (cs *ChangeSet) tagNodeCrossing(nodeID int64) {
	cs.Modify(EntityNode, nodeID, func(e Entity) Entity {
		e.Tags = tagCrossing(e.Tags)
		return e
	})
}
