// Package changeset computes and applies diffs between a base Store and
// a patch Store: node/way deduplication, intersection-point creation, and
// direct-merge generation, culminating in Apply producing a new Store.
package changeset

import (
	"log"

	"github.com/conveyal/osmix/internal/osm"
)

// EntityType distinguishes the three OSM primitive kinds a change-set
// entry can refer to.
type EntityType uint8

const (
	EntityNode EntityType = iota
	EntityWay
	EntityRelation
)

// ChangeType is the kind of edit a change-set entry represents.
type ChangeType uint8

const (
	ChangeCreate ChangeType = iota
	ChangeModify
	ChangeDelete
)

// BackRef is a cross-entity audit pointer recorded alongside a delete or
// modify, e.g. "node 3 replaced node 1" or "way 20 superseded by way 10".
type BackRef struct {
	Type  EntityType
	ID    int64
	OsmID string
}

// Entity is a change-set's in-flight representation of a node, way, or
// relation: enough to apply without re-reading the patch/base Store.
type Entity struct {
	Type EntityType
	ID   int64

	Lon, Lat float64          // EntityNode
	Refs     []int64          // EntityWay
	Members  []osm.Member     // EntityRelation
	Tags     map[string]string
}

type entry struct {
	change  ChangeType
	entity  Entity
	backRef []BackRef
}

type key struct {
	t  EntityType
	id int64
}

// Stats accumulates counters describing what a change-set computation
// did, surfaced to callers for logging/diagnostics.
type Stats struct {
	DeduplicatedNodes         int
	DeduplicatedNodesReplaced int
	DeduplicatedWays          int
	IntersectionPointsFound   int
	IntersectionNodesCreated  int
	Created                   int
	Modified                  int
	Deleted                   int
}

// ChangeSet is a sparse map of pending create/modify/delete entries bound
// to a base Store. It is an imperative builder: entries are mutated in
// place during analysis and the whole map is discarded after Apply.
type ChangeSet struct {
	Base  *osm.Store
	Stats Stats

	entries map[key]*entry

	nextNodeID int64
}

// New returns an empty ChangeSet bound to base. nextNodeIDSeed is the
// starting point for synthetic node ids minted during intersection
// creation; callers typically pass max(base.max_node_id, patch.max_node_id)+1.
func New(base *osm.Store, nextNodeIDSeed int64) *ChangeSet {
	return &ChangeSet{
		Base:       base,
		entries:    make(map[key]*entry),
		nextNodeID: nextNodeIDSeed,
	}
}

func (cs *ChangeSet) nextNodeIDState() int64 {
	id := cs.nextNodeID
	cs.nextNodeID++
	return id
}

// Create requires that id not already exist in the base Store. refs, if
// given, are recorded as back-references for audit.
func (cs *ChangeSet) Create(e Entity, osmID string, refs ...BackRef) {
	if cs.baseHasID(e.Type, e.ID) {
		panic("osm/changeset: Create targets an id already present in base")
	}
	cs.entries[key{e.Type, e.ID}] = &entry{change: ChangeCreate, entity: e, backRef: refs}
	cs.Stats.Created++
}

// Modify reads the most recent in-flight entity for (t, id) -- a prior
// queued modify/create, or else the base entity -- applies fn, and stores
// the result. A modify on top of a delete is refused: logged and
// ignored, per spec.md's "modify-after-delete is a no-op".
func (cs *ChangeSet) Modify(t EntityType, id int64, fn func(Entity) Entity) {
	k := key{t, id}
	if ex, ok := cs.entries[k]; ok {
		if ex.change == ChangeDelete {
			log.Printf("osm/changeset: modify after delete on %v/%d ignored", t, id)
			return
		}
		ex.entity = fn(ex.entity)
		cs.Stats.Modified++
		return
	}
	base, ok := cs.lookupBase(t, id)
	if !ok {
		panic("osm/changeset: Modify references an id absent from base and not yet created")
	}
	cs.entries[k] = &entry{change: ChangeModify, entity: fn(base)}
	cs.Stats.Modified++
}

// Delete overrides any prior modify on (t, id); a delete following a
// create simply removes the create (nothing to delete downstream).
func (cs *ChangeSet) Delete(t EntityType, id int64, refs ...BackRef) {
	k := key{t, id}
	if ex, ok := cs.entries[k]; ok && ex.change == ChangeCreate {
		delete(cs.entries, k)
		return
	}
	cs.entries[k] = &entry{change: ChangeDelete, backRef: refs}
	cs.Stats.Deleted++
}

func (cs *ChangeSet) baseHasID(t EntityType, id int64) bool {
	_, ok := cs.lookupBase(t, id)
	return ok
}

func (cs *ChangeSet) lookupBase(t EntityType, id int64) (Entity, bool) {
	switch t {
	case EntityNode:
		idx := cs.Base.Nodes.Ids.GetIndexFromID(id)
		if idx == -1 {
			return Entity{}, false
		}
		lon, lat := cs.Base.Nodes.GetLonLat(idx)
		return Entity{Type: EntityNode, ID: id, Lon: lon, Lat: lat, Tags: cs.Base.Nodes.Tags.GetTags(idx)}, true
	case EntityWay:
		idx := cs.Base.Ways.Ids.GetIndexFromID(id)
		if idx == -1 {
			return Entity{}, false
		}
		refs := append([]int64(nil), cs.Base.Ways.GetRefIDs(idx)...)
		return Entity{Type: EntityWay, ID: id, Refs: refs, Tags: cs.Base.Ways.Tags.GetTags(idx)}, true
	case EntityRelation:
		idx := cs.Base.Relations.Ids.GetIndexFromID(id)
		if idx == -1 {
			return Entity{}, false
		}
		return Entity{Type: EntityRelation, ID: id, Members: cs.Base.Relations.GetMembers(idx), Tags: cs.Base.Relations.Tags.GetTags(idx)}, true
	}
	return Entity{}, false
}

// current returns the most recent in-flight entity for (t, id): a queued
// entry if present (reported as absent, ok == false, if deleted), else the
// base entity.
func (cs *ChangeSet) current(t EntityType, id int64) (Entity, bool) {
	if ex, ok := cs.entries[key{t, id}]; ok {
		if ex.change == ChangeDelete {
			return Entity{}, false
		}
		return ex.entity, true
	}
	return cs.lookupBase(t, id)
}

// EntriesByChange returns every queued entry of the given change type, in
// no particular order (map iteration order), for callers that need to
// walk pending creates/modifies/deletes. A delete entry carries no entity,
// so deletes come back as zero Entity values.
func (cs *ChangeSet) EntriesByChange(c ChangeType) []Entity {
	var out []Entity
	for _, e := range cs.entries {
		if e.change == c {
			out = append(out, e.entity)
		}
	}
	return out
}

// Change is a materialized (type, id, change, entity) view of one entry,
// used by callers (OSC emission) that need the key alongside the
// queued entity -- a delete entry carries no entity, so its key is the
// only identifying information available.
type Change struct {
	Type   EntityType
	ID     int64
	Change ChangeType
	Entity Entity
}

// AllEntries returns every queued entry as a Change, in no particular
// order.
func (cs *ChangeSet) AllEntries() []Change {
	out := make([]Change, 0, len(cs.entries))
	for k, e := range cs.entries {
		out = append(out, Change{Type: k.t, ID: k.id, Change: e.change, Entity: e.entity})
	}
	return out
}
