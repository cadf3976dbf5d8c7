package extract

import (
	"testing"

	"github.com/conveyal/osmix/internal/osm"
	"github.com/stretchr/testify/require"
)

func buildScenarioStore(t *testing.T) *osm.Store {
	t.Helper()
	s := osm.NewStore("src")
	s.Nodes.AddNode(1, 0, 0, nil)
	s.Nodes.AddNode(2, 2, 0, nil)
	s.Nodes.AddNode(3, 0.5, 0.5, nil)
	s.Nodes.AddNode(4, 1.5, 0.5, nil)
	s.Ways.AddWay(10, []int64{1, 2}, nil)
	s.Ways.AddWay(11, []int64{3, 4}, nil)
	s.Relations.AddRelation(20, []osm.Member{{Type: osm.MemberWay, Ref: 10, Role: "outer"}}, map[string]string{"type": "multipolygon"})
	s.Finalize()
	s.BuildSpatialIndexes()
	return s
}

// Scenario 5 — bbox extract "simple" strategy.
func TestExtractSimple(t *testing.T) {
	src := buildScenarioStore(t)
	bbox := osm.BBox{-0.1, -0.1, 1, 1}

	out := Extract(src, bbox, StrategySimple)

	require.Equal(t, 2, out.Nodes.Len())
	for i := 0; i < out.Ways.Len(); i++ {
		require.Len(t, out.Ways.GetRefIDs(int32(i)), 1)
	}
	require.Equal(t, 1, out.Relations.Len())
}

// Scenario 6 — bbox extract "complete_ways" strategy.
func TestExtractCompleteWays(t *testing.T) {
	src := buildScenarioStore(t)
	bbox := osm.BBox{-0.1, -0.1, 1, 1}

	out := Extract(src, bbox, StrategyCompleteWays)

	require.Equal(t, 4, out.Nodes.Len())
	idx := out.Ways.Ids.GetIndexFromID(10)
	require.NotEqual(t, int32(-1), idx)
	require.Len(t, out.Ways.GetRefIDs(idx), 2)
	require.Equal(t, 1, out.Relations.Len())
}
