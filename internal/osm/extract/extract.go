// Package extract selects a geographic subset of a finalized Store into a
// new Store, by one of two strategies.
package extract

import "github.com/conveyal/osmix/internal/osm"

// Strategy controls how ways (and their ref nodes) are retained across the
// bbox boundary.
type Strategy uint8

const (
	// StrategySimple retains only nodes within the bbox and trims way ref
	// lists to the refs that survived -- a way straddling the boundary
	// ends up with a partial ref list.
	StrategySimple Strategy = iota
	// StrategyCompleteWays additionally pulls in every node referenced by
	// a way whose bbox intersects the extract bbox, so every such way keeps
	// its full ref list intact.
	StrategyCompleteWays
)

// Extract selects every node within bbox, every way with (per Strategy)
// at least one surviving ref, and every relation with at least one
// surviving member, into a new Store. A relation's node and way members
// survive only if retained; its relation-typed members are kept without
// filtering, so a relation with any such member is always retained.
// Sub-relations are not pulled in transitively: a kept relation-typed
// member may name a relation that is absent from the new Store.
func Extract(src *osm.Store, bbox osm.BBox, strategy Strategy) *osm.Store {
	out := osm.NewStore("")
	out.Header = src.Header
	out.Header.Bbox = bbox

	keptNodes := make(map[int64]bool)
	nodeIdxs := src.Nodes.FindIndexesWithinBBox(bbox)
	for _, idx := range nodeIdxs {
		keptNodes[src.Nodes.Ids.At(idx)] = true
	}

	if strategy == StrategyCompleteWays {
		wayIdxs := src.Ways.Intersects(bbox, nil)
		for _, wi := range wayIdxs {
			for _, ref := range src.Ways.GetRefIDs(wi) {
				keptNodes[ref] = true
			}
		}
	}

	keptWays := make(map[int64]bool)
	for i := 0; i < src.Ways.Len(); i++ {
		idx := int32(i)
		refs := src.Ways.GetRefIDs(idx)
		var survivors []int64
		for _, ref := range refs {
			if keptNodes[ref] {
				survivors = append(survivors, ref)
			}
		}
		if len(survivors) == 0 {
			continue
		}
		id := src.Ways.Ids.At(idx)
		keptWays[id] = true
		if strategy == StrategyCompleteWays {
			out.Ways.AddWay(id, refs, src.Ways.Tags.GetTags(idx))
		} else {
			out.Ways.AddWay(id, survivors, src.Ways.Tags.GetTags(idx))
		}
	}

	for id := range keptNodes {
		idx := src.Nodes.Ids.GetIndexFromID(id)
		if idx == -1 {
			continue
		}
		lon, lat := src.Nodes.GetLonLat(idx)
		out.Nodes.AddNode(id, lon, lat, src.Nodes.Tags.GetTags(idx))
	}

	for i := 0; i < src.Relations.Len(); i++ {
		idx := int32(i)
		members := src.Relations.GetMembers(idx)
		var survivors []osm.Member
		for _, m := range members {
			switch m.Type {
			case osm.MemberNode:
				if keptNodes[m.Ref] {
					survivors = append(survivors, m)
				}
			case osm.MemberWay:
				if keptWays[m.Ref] {
					survivors = append(survivors, m)
				}
			case osm.MemberRelation:
				survivors = append(survivors, m) // sub-relation refs are not bbox-filtered
			}
		}
		if len(survivors) == 0 {
			continue
		}
		out.Relations.AddRelation(src.Relations.Ids.At(idx), survivors, src.Relations.Tags.GetTags(idx))
	}

	out.Finalize()
	return out
}
