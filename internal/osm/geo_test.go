package osm

import (
	"math"
	"testing"
)

func TestLonLatMicroRoundTrip(t *testing.T) {
	lon, lat := -120.505898, 46.60207
	lonM, latM := LonLatToMicro(lon, lat)
	gotLon, gotLat := MicroToLonLat(lonM, latM)
	if math.Abs(gotLon-lon) > 1e-7 {
		t.Errorf("lon round-trip = %v, want %v", gotLon, lon)
	}
	if math.Abs(gotLat-lat) > 1e-7 {
		t.Errorf("lat round-trip = %v, want %v", gotLat, lat)
	}
}

func TestBBoxExpandAndContains(t *testing.T) {
	b := EmptyBBox()
	if b.Valid() {
		t.Error("empty bbox should not be valid before any expansion")
	}
	b.ExpandPoint(0, 0)
	b.ExpandPoint(1, 1)
	if !b.Valid() {
		t.Error("bbox should be valid after expansion")
	}
	if !b.ContainsPoint(0.5, 0.5) {
		t.Error("bbox should contain its own center")
	}
	if b.ContainsPoint(2, 2) {
		t.Error("bbox should not contain a point outside its range")
	}
}

func TestBBoxIntersects(t *testing.T) {
	a := BBox{0, 0, 1, 1}
	b := BBox{0.5, 0.5, 1.5, 1.5}
	c := BBox{2, 2, 3, 3}
	if !a.Intersects(b) {
		t.Error("overlapping bboxes should intersect")
	}
	if a.Intersects(c) {
		t.Error("disjoint bboxes should not intersect")
	}
}

func TestHaversineKmKnownDistance(t *testing.T) {
	// Roughly 111km per degree of latitude at the equator.
	d := HaversineKm(0, 0, 0, 1)
	if math.Abs(d-111.19) > 1.0 {
		t.Errorf("HaversineKm(0,0,0,1) = %v, want ~111.19", d)
	}
}
