package transport

import (
	"testing"

	"github.com/conveyal/osmix/internal/osm"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func buildRoundTripStore(t *testing.T) *osm.Store {
	t.Helper()
	s := osm.NewStore("rt-store")
	s.Nodes.AddNode(1, 0, 0, map[string]string{"amenity": "cafe"})
	s.Nodes.AddNode(2, 1, 1, nil)
	s.Ways.AddWay(10, []int64{1, 2}, map[string]string{"highway": "primary"})
	s.Relations.AddRelation(20, []osm.Member{{Type: osm.MemberWay, Ref: 10, Role: "outer"}}, map[string]string{"type": "multipolygon"})
	s.Finalize()
	s.BuildSpatialIndexes()
	return s
}

func TestExportImportRoundTrip(t *testing.T) {
	src := buildRoundTripStore(t)

	data, err := Export(src)
	require.NoError(t, err)

	out, err := Import(data)
	require.NoError(t, err)

	require.Equal(t, src.ID, out.ID)
	require.Equal(t, src.Nodes.Len(), out.Nodes.Len())
	require.Equal(t, src.Ways.Len(), out.Ways.Len())
	require.Equal(t, src.Relations.Len(), out.Relations.Len())

	for i := 0; i < src.Nodes.Len(); i++ {
		idx := int32(i)
		id := src.Nodes.Ids.At(idx)
		oidx := out.Nodes.Ids.GetIndexFromID(id)
		require.NotEqual(t, int32(-1), oidx)

		slon, slat := src.Nodes.GetLonLat(idx)
		olon, olat := out.Nodes.GetLonLat(oidx)
		require.InDelta(t, slon, olon, 1e-6)
		require.InDelta(t, slat, olat, 1e-6)

		if diff := cmp.Diff(src.Nodes.Tags.GetTags(idx), out.Nodes.Tags.GetTags(oidx)); diff != "" {
			t.Errorf("node %d tags mismatch (-src +out):\n%s", id, diff)
		}
	}
}

func TestExportRequiresFinalized(t *testing.T) {
	s := osm.NewStore("")
	s.Nodes.AddNode(1, 0, 0, nil)
	_, err := Export(s)
	require.Error(t, err)
}
