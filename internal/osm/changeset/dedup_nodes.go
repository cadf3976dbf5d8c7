package changeset

import "github.com/conveyal/osmix/internal/osm"

func sortedPair(a, b int64) (int64, int64) {
	if a <= b {
		return a, b
	}
	return b, a
}

// DedupeNodes walks patch (which may equal the ChangeSet's own base --
// a self-merge pass) and schedules deletes/modifies for every
// coordinate-exact duplicate pair found against the base, per
// spec.md's node-deduplication algorithm.
func (cs *ChangeSet) DedupeNodes(patch *osm.Store) {
	deleted := make(map[int64]bool)
	considered := make(map[[2]int64]bool)

	for pi := 0; pi < patch.Nodes.Len(); pi++ {
		pID := patch.Nodes.Ids.At(int32(pi))
		if deleted[pID] {
			continue
		}
		lon, lat := patch.Nodes.GetLonLat(int32(pi))

		candidates := cs.Base.Nodes.FindIndexesWithinRadiusKm(lon, lat, 0)
		for _, ei := range candidates {
			eID := cs.Base.Nodes.Ids.At(ei)
			if eID == pID {
				continue
			}
			a, b := sortedPair(pID, eID)
			pk := [2]int64{a, b}
			if considered[pk] {
				continue
			}
			considered[pk] = true
			if deleted[eID] {
				continue
			}
			cs.dedupeNodePair(pID, eID, deleted)
		}
	}
}

// dedupeNodePair attempts to replace eID with pID everywhere (ways,
// relations), then schedules eID's deletion. Aborts (no entries queued)
// if any candidate way/relation ambiguously contains both ids already.
func (cs *ChangeSet) dedupeNodePair(pID, eID int64, deleted map[int64]bool) {
	lon, lat := 0.0, 0.0
	if idx := cs.Base.Nodes.Ids.GetIndexFromID(eID); idx != -1 {
		lon, lat = cs.Base.Nodes.GetLonLat(idx)
	}

	candidateWays := cs.Base.Ways.Neighbors(lon, lat, 20, 0)
	var affectedWays []int64
	for _, wi := range candidateWays {
		refs := cs.Base.Ways.GetRefIDs(wi)
		hasE, hasP := false, false
		for _, r := range refs {
			if r == eID {
				hasE = true
			}
			if r == pID {
				hasP = true
			}
		}
		if !hasE {
			continue
		}
		if hasP {
			return // abort: merging would create adjacent duplicate refs
		}
		affectedWays = append(affectedWays, cs.Base.Ways.Ids.At(wi))
	}

	var affectedRelations []int64
	for ri := 0; ri < cs.Base.Relations.Len(); ri++ {
		idx := int32(ri)
		hasE := cs.Base.Relations.IncludesMember(idx, osm.MemberNode, eID)
		if !hasE {
			continue
		}
		if cs.Base.Relations.IncludesMember(idx, osm.MemberNode, pID) {
			return // abort, same ambiguity as above
		}
		affectedRelations = append(affectedRelations, cs.Base.Relations.Ids.At(idx))
	}

	for _, wID := range affectedWays {
		cs.Modify(EntityWay, wID, func(e Entity) Entity {
			out := make([]int64, len(e.Refs))
			for i, r := range e.Refs {
				if r == eID {
					out[i] = pID
				} else {
					out[i] = r
				}
			}
			e.Refs = out
			return e
		})
		cs.Stats.DeduplicatedNodesReplaced++
	}

	for _, rID := range affectedRelations {
		cs.Modify(EntityRelation, rID, func(e Entity) Entity {
			out := make([]osm.Member, len(e.Members))
			for i, m := range e.Members {
				if m.Type == osm.MemberNode && m.Ref == eID {
					m.Ref = pID
				}
				out[i] = m
			}
			e.Members = out
			return e
		})
		cs.Stats.DeduplicatedNodesReplaced++
	}

	cs.Delete(EntityNode, eID, BackRef{Type: EntityNode, ID: pID})
	deleted[eID] = true
	cs.Stats.DeduplicatedNodes++
}
