package changeset

import (
	"testing"

	"github.com/conveyal/osmix/internal/osm"
	"github.com/stretchr/testify/require"
)

func newBaseStore() *osm.Store {
	s := osm.NewStore("base")
	s.Nodes.AddNode(1, 0, 0, nil)
	s.Nodes.AddNode(2, 0.009, 0, nil) // ~1km east
	s.Ways.AddWay(10, []int64{1, 2}, map[string]string{"highway": "primary"})
	s.Finalize()
	s.BuildSpatialIndexes()
	return s
}

// Scenario 1 — node dedup across way boundary.
func TestDedupeNodesAcrossWayBoundary(t *testing.T) {
	base := newBaseStore()

	patch := osm.NewStore("patch")
	patch.Nodes.AddNode(3, 0, 0, map[string]string{"crossing": "yes"})
	patch.Nodes.AddNode(4, 0.009, 0, nil)
	patch.Ways.AddWay(20, []int64{3, 4}, map[string]string{"highway": "secondary"})
	patch.Finalize()
	patch.BuildSpatialIndexes()

	cs := New(base, 1000)
	cs.DirectMerge(patch)
	cs.DedupeNodes(patch)

	require.GreaterOrEqual(t, cs.Stats.DeduplicatedNodes, 1)
	require.GreaterOrEqual(t, cs.Stats.DeduplicatedNodesReplaced, 1)

	out := cs.Apply("merged")
	require.Equal(t, 2, out.Ways.Len())

	// base node 1 (coordinate-exact duplicate of patch node 3) must have
	// been deleted and every way ref that pointed at it rewritten to node 3,
	// per spec.md's node-dedup tie-break.
	idx := out.Nodes.Ids.GetIndexFromID(1)
	require.Equal(t, int32(-1), idx, "node 1 should have been replaced by its coordinate-exact patch duplicate")
}

// Scenario 2 — way dedup by version.
func TestDedupeWaysByVersion(t *testing.T) {
	base := osm.NewStore("base")
	base.Nodes.AddNode(1, 0, 0, nil)
	base.Nodes.AddNode(2, 1, 0, nil)
	base.Ways.AddWay(10, []int64{1, 2}, map[string]string{"highway": "primary", "ext:osm_version": "1"})
	base.Finalize()
	base.BuildSpatialIndexes()

	patch := osm.NewStore("patch")
	patch.Nodes.AddNode(1, 0, 0, nil)
	patch.Nodes.AddNode(2, 1, 0, nil)
	patch.Ways.AddWay(10, []int64{1, 2}, map[string]string{"highway": "primary", "ext:osm_version": "2"})
	patch.Finalize()
	patch.BuildSpatialIndexes()

	cs := New(base, 1000)
	cs.DirectMerge(patch)

	out := cs.Apply("merged")
	require.Equal(t, 1, out.Ways.Len())
	idx := out.Ways.Ids.GetIndexFromID(10)
	require.NotEqual(t, int32(-1), idx)
	require.Equal(t, "2", out.Ways.Tags.GetTags(idx)["ext:osm_version"])
}

// Scenario 3 — intersection creation.
func TestCreateIntersections(t *testing.T) {
	base := osm.NewStore("base")
	base.Nodes.AddNode(1, -120.505898, 46.60207, nil)
	base.Nodes.AddNode(2, -120.519, 46.60207, nil)
	base.Ways.AddWay(1, []int64{1, 2}, map[string]string{"highway": "primary"})
	base.Finalize()
	base.BuildSpatialIndexes()

	patch := osm.NewStore("patch")
	patch.Nodes.AddNode(4, -120.5026, 46.593, nil)
	patch.Nodes.AddNode(5, -120.5026, 46.611, nil)
	patch.Ways.AddWay(3, []int64{4, 5}, map[string]string{"highway": "secondary"})
	patch.Finalize()
	patch.BuildSpatialIndexes()

	cs := New(base, 1000)
	cs.DirectMerge(patch)
	cs.CreateIntersections(patch, func(tags map[string]string) bool {
		return tags["highway"] != ""
	})

	require.Equal(t, 1, cs.Stats.IntersectionPointsFound)
	require.Equal(t, 1, cs.Stats.IntersectionNodesCreated)
}

// Scenario 4 — underpass not connected.
func TestCreateIntersectionsSkipsUnderpass(t *testing.T) {
	base := osm.NewStore("base")
	base.Nodes.AddNode(1, -120.505898, 46.60207, nil)
	base.Nodes.AddNode(2, -120.519, 46.60207, nil)
	base.Ways.AddWay(1, []int64{1, 2}, map[string]string{"highway": "primary"})
	base.Finalize()
	base.BuildSpatialIndexes()

	patch := osm.NewStore("patch")
	patch.Nodes.AddNode(6, -120.5026, 46.593, nil)
	patch.Nodes.AddNode(7, -120.5026, 46.611, nil)
	patch.Ways.AddWay(4, []int64{6, 7}, map[string]string{"highway": "underpass", "tunnel": "yes"})
	patch.Finalize()
	patch.BuildSpatialIndexes()

	cs := New(base, 1000)
	cs.DirectMerge(patch)
	cs.CreateIntersections(patch, func(tags map[string]string) bool {
		return tags["highway"] != ""
	})

	require.Equal(t, 0, cs.Stats.IntersectionNodesCreated)
}

func TestApplyEmptyChangesetIsIdentity(t *testing.T) {
	base := newBaseStore()
	cs := New(base, 1000)
	out := cs.Apply("copy")
	require.Equal(t, base.Nodes.Len(), out.Nodes.Len())
	require.Equal(t, base.Ways.Len(), out.Ways.Len())
}

func TestApplyCreateTargetingExistingBaseEntityPanics(t *testing.T) {
	base := newBaseStore()
	cs := New(base, 1000)
	cs.entries[key{EntityNode, 1}] = &entry{change: ChangeCreate, entity: Entity{Type: EntityNode, ID: 1}}

	defer func() {
		if recover() == nil {
			t.Error("expected panic on create targeting existing base id")
		}
	}()
	cs.Apply("x")
}
