package osm

// MemberType identifies the kind of entity a relation member points at.
type MemberType uint8

const (
	MemberNode MemberType = iota
	MemberWay
	MemberRelation
)

// Member is a single relation member, resolved to its role string.
type Member struct {
	Type MemberType
	Ref  int64
	Role string
}

// RelationKind is the coarse geometric classification of a relation,
// derived from its type tag (see Relations.Kind).
type RelationKind uint8

const (
	RelationLogic RelationKind = iota
	RelationArea
	RelationLine
	RelationPoint
	RelationSuper
)

// relationMaxDepth bounds BBox's recursive descent into sub-relations.
const relationMaxDepth = 10

// Relations is the columnar Relation collection: Ids + Tags plus a CSR
// member sequence (type, ref, role per member). Relations holds non-owning
// references to Nodes and Ways for bbox computation and containment checks.
type Relations struct {
	Base

	memberStart []int32
	memberCount []uint16
	memberRefs  []int64
	memberTypes []uint8
	memberRoles []uint32 // StringTable index, or -1 encoded as ^uint32(0) for empty role

	nodes *Nodes
	ways  *Ways

	finalized bool
}

const emptyRole = ^uint32(0)

// NewRelations returns an empty Relations collection.
func NewRelations(strings *StringTable, nodes *Nodes, ways *Ways) *Relations {
	return &Relations{Base: newBase(strings), nodes: nodes, ways: ways}
}

// AddRelation appends a relation and returns its local index.
func (r *Relations) AddRelation(id int64, members []Member, tags map[string]string) int32 {
	if r.finalized {
		panic("osm: Relations.AddRelation after finalize")
	}
	if len(members) > 65535 {
		panic("osm: relation exceeds 65535 members")
	}
	idx := r.Ids.Add(id)
	r.Tags.AddTags(idx, tags)
	start := int32(len(r.memberRefs))
	for _, m := range members {
		r.memberRefs = append(r.memberRefs, m.Ref)
		r.memberTypes = append(r.memberTypes, uint8(m.Type))
		if m.Role == "" {
			r.memberRoles = append(r.memberRoles, emptyRole)
		} else {
			r.memberRoles = append(r.memberRoles, r.Tags.strings.Add(m.Role))
		}
	}
	r.memberStart = append(r.memberStart, start)
	r.memberCount = append(r.memberCount, uint16(len(members)))
	return idx
}

// AddRelations decodes a PBF relation primitive group. memids are delta
// encoded (running sum reset per relation); roles, types, and memids are
// parallel per-member arrays already split by relation. stringMap
// translates block-local role string indexes to global StringTable
// indexes. Unlike Ways, a relation that loses all members after filtering
// is still retained with a zero member count.
func (r *Relations) AddRelations(relIDs []int64, deltaMemIDs [][]int64, memTypes [][]MemberType, memRoles [][]uint32, keys, vals [][]uint32, stringMap []uint32, filter func(t MemberType, ref int64) bool) {
	if r.finalized {
		panic("osm: Relations.AddRelations after finalize")
	}
	for i, id := range relIDs {
		var ref int64
		start := int32(len(r.memberRefs))
		count := 0
		for j, d := range deltaMemIDs[i] {
			ref += d
			t := memTypes[i][j]
			if filter != nil && !filter(t, ref) {
				continue
			}
			r.memberRefs = append(r.memberRefs, ref)
			r.memberTypes = append(r.memberTypes, uint8(t))
			role := memRoles[i][j]
			if role == emptyRole {
				r.memberRoles = append(r.memberRoles, emptyRole)
			} else {
				r.memberRoles = append(r.memberRoles, stringMap[role])
			}
			count++
		}

		tagKeys := make([]uint32, len(keys[i]))
		for j, k := range keys[i] {
			tagKeys[j] = stringMap[k]
		}
		tagVals := make([]uint32, len(vals[i]))
		for j, v := range vals[i] {
			tagVals[j] = stringMap[v]
		}

		idx := r.Ids.Add(id)
		r.Tags.AddTagKeyVals(idx, tagKeys, tagVals)
		r.memberStart = append(r.memberStart, start)
		r.memberCount = append(r.memberCount, uint16(count))
	}
}

// Finalize compacts the member columns and the base Ids/Tags. A second
// call is a no-op.
func (r *Relations) Finalize() {
	if r.finalized {
		return
	}
	r.Ids.Finalize()
	r.Tags.Finalize()
	r.memberStart = compact(r.memberStart)
	r.memberCount = compact(r.memberCount)
	r.memberRefs = compact(r.memberRefs)
	r.memberTypes = compact(r.memberTypes)
	r.memberRoles = compact(r.memberRoles)
	r.finalized = true
}

// GetMembers returns the resolved member list of relation idx.
func (r *Relations) GetMembers(idx int32) []Member {
	start := r.memberStart[idx]
	count := int32(r.memberCount[idx])
	out := make([]Member, count)
	for i := int32(0); i < count; i++ {
		role := r.memberRoles[start+i]
		roleStr := ""
		if role != emptyRole {
			roleStr = r.Tags.strings.Get(role)
		}
		out[i] = Member{
			Type: MemberType(r.memberTypes[start+i]),
			Ref:  r.memberRefs[start+i],
			Role: roleStr,
		}
	}
	return out
}

// GetWayMemberIDs returns just the way-typed member ref ids of relation idx.
func (r *Relations) GetWayMemberIDs(idx int32) []int64 {
	start := r.memberStart[idx]
	count := int32(r.memberCount[idx])
	var out []int64
	for i := int32(0); i < count; i++ {
		if MemberType(r.memberTypes[start+i]) == MemberWay {
			out = append(out, r.memberRefs[start+i])
		}
	}
	return out
}

// IncludesMember reports whether relation idx directly references (t, ref).
func (r *Relations) IncludesMember(idx int32, t MemberType, ref int64) bool {
	start := r.memberStart[idx]
	count := int32(r.memberCount[idx])
	for i := int32(0); i < count; i++ {
		if MemberType(r.memberTypes[start+i]) == t && r.memberRefs[start+i] == ref {
			return true
		}
	}
	return false
}

// Kind classifies relation idx by its type tag: multipolygon/boundary/site
// are areas, route/waterway/multilinestring/canal are lines, multipoint is
// a point, restriction/route_master/network/collection are logic relations
// with no standalone geometry. Anything else not otherwise classified is a
// super-relation if any of its members is itself a relation, else logic.
func (r *Relations) Kind(idx int32) RelationKind {
	switch r.Tags.GetTags(idx)["type"] {
	case "multipolygon", "boundary", "site":
		return RelationArea
	case "route", "waterway", "multilinestring", "canal":
		return RelationLine
	case "multipoint":
		return RelationPoint
	case "restriction", "route_master", "network", "collection":
		return RelationLogic
	}
	for _, m := range r.GetMembers(idx) {
		if m.Type == MemberRelation {
			return RelationSuper
		}
	}
	return RelationLogic
}

// BBox computes relation idx's bbox by recursively expanding over its
// node, way, and sub-relation members, guarded against cycles and capped
// at relationMaxDepth.
func (r *Relations) BBox(idx int32) BBox {
	visited := make(map[int64]bool)
	return r.bboxRec(idx, visited, 0)
}

func (r *Relations) bboxRec(idx int32, visited map[int64]bool, depth int) BBox {
	b := EmptyBBox()
	if depth > relationMaxDepth {
		return b
	}
	selfID := r.Ids.At(idx)
	if visited[selfID] {
		return b
	}
	visited[selfID] = true

	for _, m := range r.GetMembers(idx) {
		switch m.Type {
		case MemberNode:
			ni := r.nodes.Ids.GetIndexFromID(m.Ref)
			if ni == -1 {
				continue
			}
			lon, lat := r.nodes.GetLonLat(ni)
			b.ExpandPoint(lon, lat)
		case MemberWay:
			wi := r.ways.Ids.GetIndexFromID(m.Ref)
			if wi == -1 {
				continue
			}
			b.Expand(r.ways.BBoxAt(wi))
		case MemberRelation:
			ri := r.Ids.GetIndexFromID(m.Ref)
			if ri == -1 {
				continue
			}
			b.Expand(r.bboxRec(ri, visited, depth+1))
		}
	}
	return b
}

// Intersects returns relation indexes whose bbox (as computed by BBox over
// node, way, and sub-relation members) intersects b, short-circuited per
// candidate by filter. Every relation's bbox is recomputed on each call;
// the Ways R-tree is not used.
func (r *Relations) Intersects(b BBox, filter func(idx int32) bool) []int32 {
	seen := make(map[int32]bool)
	var out []int32
	for i := 0; i < r.Len(); i++ {
		if filter != nil && !filter(int32(i)) {
			continue
		}
		if seen[int32(i)] {
			continue
		}
		if r.BBox(int32(i)).Intersects(b) {
			seen[int32(i)] = true
			out = append(out, int32(i))
		}
	}
	return out
}
