package osm

import "testing"

func TestWaysDropsWayThatLosesAllRefs(t *testing.T) {
	strs := NewStringTable()
	nodes := NewNodes(strs)
	nodes.AddNode(1, 0, 0, nil)
	nodes.Finalize()

	ways := NewWays(strs, nodes)
	ways.AddWays(
		[]int64{10, 20},
		[][]int64{{1}, {999}}, // way 10 refs node 1, way 20 refs a node that will be filtered out
		[][]uint32{nil, nil},
		[][]uint32{nil, nil},
		nil,
		func(refID int64) bool { return refID != 999 },
	)
	ways.Finalize()

	if ways.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (way 20 should be dropped)", ways.Len())
	}
	if ways.Ids.At(0) != 10 {
		t.Errorf("surviving way id = %d, want 10", ways.Ids.At(0))
	}
}

func TestWaysGetCoordinatesMissingRefErrors(t *testing.T) {
	strs := NewStringTable()
	nodes := NewNodes(strs)
	nodes.AddNode(1, 0, 0, nil)
	nodes.Finalize()

	ways := NewWays(strs, nodes)
	ways.AddWay(10, []int64{1, 2}, nil) // ref 2 does not exist
	ways.Finalize()

	_, err := ways.GetCoordinates(0)
	if err == nil {
		t.Error("expected an error for a missing ref")
	}
}

func TestWaysBuildIndexBeforeFinalizePanics(t *testing.T) {
	strs := NewStringTable()
	nodes := NewNodes(strs)
	nodes.Finalize()
	ways := NewWays(strs, nodes)

	defer func() {
		if recover() == nil {
			t.Error("expected panic calling BuildIndex before Finalize")
		}
	}()
	ways.BuildIndex()
}
