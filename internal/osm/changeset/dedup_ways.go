package changeset

import (
	"strconv"

	"github.com/conveyal/osmix/internal/osm"
)

func wayPairKey(a, b int64) [2]int64 {
	x, y := sortedPair(a, b)
	return [2]int64{x, y}
}

func osmVersion(tags map[string]string) int {
	v, ok := tags["ext:osm_version"]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func tagsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func refsEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func coordsEqual(a, b [][2]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DedupeWays walks patch, scheduling a delete(w) with back-references to
// every base way that is a duplicate (by exact tags+refs, or by equal
// dereferenced coordinates with version tie-break), per spec.md's
// way-deduplication algorithm.
func (cs *ChangeSet) DedupeWays(patch *osm.Store) {
	considered := make(map[[2]int64]bool)

	for pi := 0; pi < patch.Ways.Len(); pi++ {
		wID := patch.Ways.Ids.At(int32(pi))
		wRefs := patch.Ways.GetRefIDs(int32(pi))
		wTags := patch.Ways.Tags.GetTags(int32(pi))
		wCoords, err := patch.Ways.GetCoordinates(int32(pi))
		if err != nil {
			continue
		}

		candidates := cs.Base.Ways.Intersects(patch.Ways.BBoxAt(int32(pi)), nil)
		var winners []BackRef
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

			oRefs := cs.Base.Ways.GetRefIDs(oi)
			oTags := cs.Base.Ways.Tags.GetTags(oi)

			if tagsEqual(wTags, oTags) && refsEqual(wRefs, oRefs) {
				winners = append(winners, BackRef{Type: EntityWay, ID: oID})
				continue
			}

			oCoords, err := cs.Base.Ways.GetCoordinates(oi)
			if err != nil || !coordsEqual(wCoords, oCoords) {
				continue
			}

			wv, ov := osmVersion(wTags), osmVersion(oTags)
			switch {
			case ov < wv:
				continue // o is not a duplicate winner
			case ov > wv:
				winners = append(winners, BackRef{Type: EntityWay, ID: oID})
			default:
				if len(oTags) >= len(wTags) {
					winners = append(winners, BackRef{Type: EntityWay, ID: oID})
				}
			}
		}

		if len(winners) > 0 {
			cs.Delete(EntityWay, wID, winners...)
			cs.Stats.DeduplicatedWays++
		}
	}
}
