package changeset

import "github.com/conveyal/osmix/internal/osm"

func membersEqual(a, b []osm.Member) bool {
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

// removeDuplicateAdjacentRefs drops consecutive duplicate node refs from a
// way's ref list, the way-level counterpart of removeConsecutiveDuplicates
// on coordinates -- required so dedup replacements never leave a way with
// two adjacent refs pointing at the same node.
func removeDuplicateAdjacentRefs(refs []int64) []int64 {
	if len(refs) == 0 {
		return refs
	}
	out := refs[:1]
	for _, r := range refs[1:] {
		if out[len(out)-1] != r {
			out = append(out, r)
		}
	}
	return out
}

// DirectMerge schedules create/modify entries for every way, then node,
// then relation in patch that is new or differs from its base
// counterpart, in that order so node dedup has maximal way/relation
// context to work with (spec.md 4.9.5).
func (cs *ChangeSet) DirectMerge(patch *osm.Store) {
	cs.mergeWays(patch)
	cs.mergeNodes(patch)
	cs.mergeRelations(patch)
}

func (cs *ChangeSet) mergeWays(patch *osm.Store) {
	for i := 0; i < patch.Ways.Len(); i++ {
		idx := int32(i)
		id := patch.Ways.Ids.At(idx)
		refs := removeDuplicateAdjacentRefs(patch.Ways.GetRefIDs(idx))
		tags := patch.Ways.Tags.GetTags(idx)

		base, ok := cs.lookupBase(EntityWay, id)
		if !ok {
			cs.Create(Entity{Type: EntityWay, ID: id, Refs: refs, Tags: tags}, "")
			continue
		}
		if tagsEqual(base.Tags, tags) && refsEqual(base.Refs, refs) {
			continue
		}
		cs.Modify(EntityWay, id, func(Entity) Entity {
			return Entity{Type: EntityWay, ID: id, Refs: refs, Tags: tags}
		})
	}
}

func (cs *ChangeSet) mergeNodes(patch *osm.Store) {
	for i := 0; i < patch.Nodes.Len(); i++ {
		idx := int32(i)
		id := patch.Nodes.Ids.At(idx)
		lon, lat := patch.Nodes.GetLonLat(idx)
		tags := patch.Nodes.Tags.GetTags(idx)

		base, ok := cs.lookupBase(EntityNode, id)
		if !ok {
			cs.Create(Entity{Type: EntityNode, ID: id, Lon: lon, Lat: lat, Tags: tags}, "")
			continue
		}
		if base.Lon == lon && base.Lat == lat && tagsEqual(base.Tags, tags) {
			continue
		}
		cs.Modify(EntityNode, id, func(Entity) Entity {
			return Entity{Type: EntityNode, ID: id, Lon: lon, Lat: lat, Tags: tags}
		})
	}
}

func (cs *ChangeSet) mergeRelations(patch *osm.Store) {
	for i := 0; i < patch.Relations.Len(); i++ {
		idx := int32(i)
		id := patch.Relations.Ids.At(idx)
		members := patch.Relations.GetMembers(idx)
		tags := patch.Relations.Tags.GetTags(idx)

		base, ok := cs.lookupBase(EntityRelation, id)
		if !ok {
			cs.Create(Entity{Type: EntityRelation, ID: id, Members: members, Tags: tags}, "")
			continue
		}
		if tagsEqual(base.Tags, tags) && membersEqual(base.Members, members) {
			continue
		}
		cs.Modify(EntityRelation, id, func(Entity) Entity {
			return Entity{Type: EntityRelation, ID: id, Members: members, Tags: tags}
		})
	}
}
