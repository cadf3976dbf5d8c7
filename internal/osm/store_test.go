package osm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildSampleStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore("")
	s.Nodes.AddNode(1, 0, 0, map[string]string{"amenity": "cafe"})
	s.Nodes.AddNode(2, 1, 0, nil)
	s.Nodes.AddNode(3, 1, 1, nil)
	s.Ways.AddWay(10, []int64{1, 2, 3}, map[string]string{"highway": "primary"})
	s.Relations.AddRelation(20, []Member{{Type: MemberWay, Ref: 10, Role: "outer"}}, map[string]string{"type": "multipolygon"})
	s.Finalize()
	s.BuildSpatialIndexes()
	return s
}

func TestStoreFinalizeIdempotent(t *testing.T) {
	s := buildSampleStore(t)
	require.True(t, s.Finalized())
	s.Finalize() // second call is a no-op, must not panic
}

func TestStoreWayBBoxMatchesCoordinates(t *testing.T) {
	s := buildSampleStore(t)
	coords, err := s.Ways.GetCoordinates(0)
	require.NoError(t, err)

	want := EmptyBBox()
	for _, c := range coords {
		want.ExpandPoint(c[0], c[1])
	}
	require.Equal(t, want, s.Ways.BBoxAt(0))
}

func TestStoreIdIndexInvariant(t *testing.T) {
	s := buildSampleStore(t)
	for i := 0; i < s.Nodes.Len(); i++ {
		idx := int32(i)
		id := s.Nodes.Ids.At(idx)
		require.Equal(t, idx, s.Nodes.Ids.GetIndexFromID(id))
	}
}

func TestStoreStats(t *testing.T) {
	s := buildSampleStore(t)
	stats := s.Stats()
	require.Equal(t, 3, stats.NodeCount)
	require.Equal(t, 1, stats.WayCount)
	require.Equal(t, 1, stats.RelationCount)
	require.Equal(t, 3.0, stats.MaxWayRefCount)
}

func TestStoreSpatialQueries(t *testing.T) {
	s := buildSampleStore(t)
	idxs := s.Nodes.FindIndexesWithinBBox(BBox{-0.5, -0.5, 0.5, 0.5})
	require.Len(t, idxs, 1)
	require.Equal(t, int64(1), s.Nodes.Ids.At(idxs[0]))

	wayIdxs := s.Ways.Intersects(BBox{0.9, 0.9, 1.1, 1.1}, nil)
	require.Len(t, wayIdxs, 1)
}
