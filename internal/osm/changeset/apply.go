package changeset

import "github.com/conveyal/osmix/internal/osm"

// Apply produces a new Store: every base entity in storage order is
// written as-is unless the change-set has a matching entry (delete:
// skip, modify: write the modified entity); any entries left over after
// the base pass must be creates, which are appended. A create entry that
// targets an id already present in base, or a non-create entry left over
// after the base pass, is a programmer-error invariant violation and
// panics rather than returning an error (spec.md 7's fail-fast taxonomy).
func (cs *ChangeSet) Apply(id string) *osm.Store {
	out := osm.NewStore(id)
	out.Header = cs.Base.Header

	remaining := make(map[key]*entry, len(cs.entries))
	for k, e := range cs.entries {
		remaining[k] = e
	}

	cs.applyNodes(out, remaining)
	cs.applyWays(out, remaining)
	cs.applyRelations(out, remaining)

	for k, e := range remaining {
		if e.change != ChangeCreate {
			panic("osm/changeset: Apply: non-create entry left over after base pass")
		}
		cs.applyCreate(out, k.t, e.entity)
	}

	out.Finalize()
	return out
}

func (cs *ChangeSet) applyNodes(out *osm.Store, remaining map[key]*entry) {
	for i := 0; i < cs.Base.Nodes.Len(); i++ {
		idx := int32(i)
		id := cs.Base.Nodes.Ids.At(idx)
		k := key{EntityNode, id}
		e, ok := remaining[k]
		if !ok {
			lon, lat := cs.Base.Nodes.GetLonLat(idx)
			out.Nodes.AddNode(id, lon, lat, cs.Base.Nodes.Tags.GetTags(idx))
			continue
		}
		delete(remaining, k)
		switch e.change {
		case ChangeDelete:
			// omitted from the new store
		case ChangeCreate:
			panic("osm/changeset: Apply: create targets an id already present in base")
		case ChangeModify:
			out.Nodes.AddNode(e.entity.ID, e.entity.Lon, e.entity.Lat, e.entity.Tags)
		}
	}
}

func (cs *ChangeSet) applyWays(out *osm.Store, remaining map[key]*entry) {
	for i := 0; i < cs.Base.Ways.Len(); i++ {
		idx := int32(i)
		id := cs.Base.Ways.Ids.At(idx)
		k := key{EntityWay, id}
		e, ok := remaining[k]
		if !ok {
			out.Ways.AddWay(id, cs.Base.Ways.GetRefIDs(idx), cs.Base.Ways.Tags.GetTags(idx))
			continue
		}
		delete(remaining, k)
		switch e.change {
		case ChangeDelete:
		case ChangeCreate:
			panic("osm/changeset: Apply: create targets an id already present in base")
		case ChangeModify:
			out.Ways.AddWay(e.entity.ID, e.entity.Refs, e.entity.Tags)
		}
	}
}

func (cs *ChangeSet) applyRelations(out *osm.Store, remaining map[key]*entry) {
	for i := 0; i < cs.Base.Relations.Len(); i++ {
		idx := int32(i)
		id := cs.Base.Relations.Ids.At(idx)
		k := key{EntityRelation, id}
		e, ok := remaining[k]
		if !ok {
			out.Relations.AddRelation(id, cs.Base.Relations.GetMembers(idx), cs.Base.Relations.Tags.GetTags(idx))
			continue
		}
		delete(remaining, k)
		switch e.change {
		case ChangeDelete:
		case ChangeCreate:
			panic("osm/changeset: Apply: create targets an id already present in base")
		case ChangeModify:
			out.Relations.AddRelation(e.entity.ID, e.entity.Members, e.entity.Tags)
		}
	}
}

func (cs *ChangeSet) applyCreate(out *osm.Store, t EntityType, e Entity) {
	switch t {
	case EntityNode:
		out.Nodes.AddNode(e.ID, e.Lon, e.Lat, e.Tags)
	case EntityWay:
		out.Ways.AddWay(e.ID, e.Refs, e.Tags)
	case EntityRelation:
		out.Relations.AddRelation(e.ID, e.Members, e.Tags)
	}
}
