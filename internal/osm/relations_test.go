package osm

import "testing"

func TestRelationsRetainsZeroMemberRelationAfterFilter(t *testing.T) {
	strs := NewStringTable()
	nodes := NewNodes(strs)
	ways := NewWays(strs, nodes)
	rels := NewRelations(strs, nodes, ways)

	rels.AddRelations(
		[]int64{20},
		[][]int64{{10}}, // one way member, delta-coded
		[][]MemberType{{MemberWay}},
		[][]uint32{{emptyRole}},
		[][]uint32{nil},
		[][]uint32{nil},
		nil,
		func(t MemberType, ref int64) bool { return false }, // filters everything out
	)
	rels.Finalize()

	if rels.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (relation retained even with zero members)", rels.Len())
	}
	if got := len(rels.GetMembers(0)); got != 0 {
		t.Errorf("GetMembers(0) has %d members, want 0", got)
	}
}

func TestRelationsKindClassification(t *testing.T) {
	strs := NewStringTable()
	nodes := NewNodes(strs)
	ways := NewWays(strs, nodes)
	rels := NewRelations(strs, nodes, ways)

	rels.AddRelation(1, nil, map[string]string{"type": "multipolygon"})
	rels.AddRelation(2, nil, map[string]string{"type": "route"})
	rels.AddRelation(3, nil, map[string]string{"type": "restriction"})
	rels.AddRelation(4, nil, map[string]string{"type": "site"})
	rels.AddRelation(5, nil, map[string]string{"type": "route_master"})
	rels.AddRelation(6, nil, map[string]string{"type": "network"})
	rels.AddRelation(7, nil, map[string]string{"type": "multilinestring"})
	rels.AddRelation(8, nil, map[string]string{"type": "canal"})
	rels.AddRelation(9, nil, map[string]string{"type": "multipoint"})
	// untyped, with a relation member: structural super-relation rule.
	rels.AddRelation(10, []Member{{Type: MemberRelation, Ref: 1}}, nil)
	// untyped, no relation members: falls through to logic.
	rels.AddRelation(11, []Member{{Type: MemberWay, Ref: 1}}, nil)
	rels.Finalize()

	cases := []struct {
		idx  int32
		want RelationKind
	}{
		{0, RelationArea},  // multipolygon
		{1, RelationLine},  // route
		{2, RelationLogic}, // restriction
		{3, RelationArea},  // site
		{4, RelationLogic}, // route_master
		{5, RelationLogic}, // network
		{6, RelationLine},  // multilinestring
		{7, RelationLine},  // canal
		{8, RelationPoint}, // multipoint
		{9, RelationSuper},  // untyped + relation member
		{10, RelationLogic}, // untyped + no relation member
	}
	for _, c := range cases {
		if got := rels.Kind(c.idx); got != c.want {
			t.Errorf("Kind(%d) = %v, want %v", c.idx, got, c.want)
		}
	}
}

func TestRelationsBBoxGuardsCycles(t *testing.T) {
	strs := NewStringTable()
	nodes := NewNodes(strs)
	nodes.Finalize()
	ways := NewWays(strs, nodes)
	ways.Finalize()
	rels := NewRelations(strs, nodes, ways)

	rels.AddRelation(1, []Member{{Type: MemberRelation, Ref: 2}}, nil)
	rels.AddRelation(2, []Member{{Type: MemberRelation, Ref: 1}}, nil)
	rels.Finalize()

	b := rels.BBox(0)
	if b.Valid() {
		t.Errorf("expected an empty bbox for a cyclic relation pair, got %v", b)
	}
}
