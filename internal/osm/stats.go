package osm

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes entity counts and tag/ref cardinality across the Store,
// useful for sizing downstream exports and sanity-checking ingest.
type Stats struct {
	NodeCount     int
	WayCount      int
	RelationCount int

	MeanTagCardinality float64
	MaxTagCardinality  float64

	MeanWayRefCount float64
	MaxWayRefCount  float64
}

// Stats computes summary statistics over the finalized Store.
func (s *Store) Stats() Stats {
	st := Stats{
		NodeCount:     s.Nodes.Len(),
		WayCount:      s.Ways.Len(),
		RelationCount: s.Relations.Len(),
	}

	tagCounts := make([]float64, 0, s.Nodes.Len()+s.Ways.Len()+s.Relations.Len())
	for i := 0; i < s.Nodes.Len(); i++ {
		tagCounts = append(tagCounts, float64(s.Nodes.Tags.Cardinality(int32(i))))
	}
	for i := 0; i < s.Ways.Len(); i++ {
		tagCounts = append(tagCounts, float64(s.Ways.Tags.Cardinality(int32(i))))
	}
	for i := 0; i < s.Relations.Len(); i++ {
		tagCounts = append(tagCounts, float64(s.Relations.Tags.Cardinality(int32(i))))
	}
	if len(tagCounts) > 0 {
		st.MeanTagCardinality = stat.Mean(tagCounts, nil)
		st.MaxTagCardinality = floats.Max(tagCounts)
	}

	refCounts := make([]float64, s.Ways.Len())
	for i := range refCounts {
		refCounts[i] = float64(len(s.Ways.GetRefIDs(int32(i))))
	}
	if len(refCounts) > 0 {
		st.MeanWayRefCount = stat.Mean(refCounts, nil)
		st.MaxWayRefCount = floats.Max(refCounts)
	}

	return st
}
