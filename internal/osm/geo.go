package osm

import "math"

const microDegreeScale = 1e7

const earthRadiusKm = 6371.0088

// LonLatToMicro converts floating-degree coordinates to the microdegree
// integer representation used for column storage (round(deg * 1e7)).
func LonLatToMicro(lon, lat float64) (int32, int32) {
	return int32(math.Round(lon * microDegreeScale)), int32(math.Round(lat * microDegreeScale))
}

// MicroToLonLat converts microdegree columns back to floating degrees.
func MicroToLonLat(lonMicro, latMicro int32) (float64, float64) {
	return float64(lonMicro) / microDegreeScale, float64(latMicro) / microDegreeScale
}

// BBox is an axis-aligned bounding box in degrees: [minLon, minLat, maxLon, maxLat].
type BBox [4]float64

// EmptyBBox returns a bbox whose Expand/ExpandPoint calls behave as the
// identity element (any expansion widens it from nothing).
func EmptyBBox() BBox {
	return BBox{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
}

// Valid reports whether the bbox has been expanded at least once.
func (b BBox) Valid() bool {
	return b[0] <= b[2] && b[1] <= b[3]
}

// ExpandPoint widens b to include (lon, lat).
func (b *BBox) ExpandPoint(lon, lat float64) {
	if lon < b[0] {
		b[0] = lon
	}
	if lat < b[1] {
		b[1] = lat
	}
	if lon > b[2] {
		b[2] = lon
	}
	if lat > b[3] {
		b[3] = lat
	}
}

// Expand widens b to include o. A non-valid o leaves b unchanged.
func (b *BBox) Expand(o BBox) {
	if !o.Valid() {
		return
	}
	if o[0] < b[0] {
		b[0] = o[0]
	}
	if o[1] < b[1] {
		b[1] = o[1]
	}
	if o[2] > b[2] {
		b[2] = o[2]
	}
	if o[3] > b[3] {
		b[3] = o[3]
	}
}

// Intersects reports whether b and o share at least one point.
func (b BBox) Intersects(o BBox) bool {
	return b[0] <= o[2] && o[0] <= b[2] && b[1] <= o[3] && o[1] <= b[3]
}

// ContainsPoint reports whether (lon, lat) lies within b, inclusive of edges.
func (b BBox) ContainsPoint(lon, lat float64) bool {
	return lon >= b[0] && lon <= b[2] && lat >= b[1] && lat <= b[3]
}

// HaversineKm returns the great-circle distance between two points in
// degrees, in kilometers.
func HaversineKm(lon1, lat1, lon2, lat2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dLat := rlat2 - rlat1
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
