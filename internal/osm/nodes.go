package osm

// Nodes is the columnar Node collection: Ids + Tags plus microdegree
// lon/lat columns, an accumulating world bbox, and (after BuildIndex) a
// static point k-d tree over node coordinates.
type Nodes struct {
	Base

	lonMicro []int32
	latMicro []int32
	bbox     BBox

	finalized bool
	index     *kdTree
}

// NewNodes returns an empty Nodes collection sharing strings with the rest
// of the Store.
func NewNodes(strings *StringTable) *Nodes {
	return &Nodes{Base: newBase(strings), bbox: EmptyBBox()}
}

// AddNode appends a node and returns its local index.
func (n *Nodes) AddNode(id int64, lon, lat float64, tags map[string]string) int32 {
	if n.finalized {
		panic("osm: Nodes.AddNode after finalize")
	}
	idx := n.Ids.Add(id)
	n.Tags.AddTags(idx, tags)
	lonM, latM := LonLatToMicro(lon, lat)
	n.lonMicro = append(n.lonMicro, lonM)
	n.latMicro = append(n.latMicro, latM)
	n.bbox.ExpandPoint(lon, lat)
	return idx
}

// AddDense drives the dense-node delta-decoding state machine: id, lat, and
// lon deltas are accumulated as running sums reset at the start of this
// call (a PBF running sum must never be assumed to carry across groups).
// keysVals is the interleaved (key, value) block-local string-index stream,
// with each node's run terminated by a 0 sentinel; stringMap translates
// block-local indexes to global StringTable indexes. filter, if non-nil, is
// applied to each decoded (id, coordinate) pair and may reject the node.
func (n *Nodes) AddDense(deltaIDs, deltaLat, deltaLon []int64, keysVals []int32, stringMap []uint32, latOffset, lonOffset float64, granularity int64, filter func(id int64, lon, lat float64) bool) {
	if n.finalized {
		panic("osm: Nodes.AddDense after finalize")
	}
	if len(deltaIDs) != len(deltaLat) || len(deltaIDs) != len(deltaLon) {
		panic("osm: Nodes.AddDense: dense column length mismatch")
	}
	if granularity == 0 {
		granularity = 1e7
	}

	var id, lat, lon int64
	kvPos := 0
	for i := range deltaIDs {
		id += deltaIDs[i]
		lat += deltaLat[i]
		lon += deltaLon[i]
		latDeg := latOffset + float64(lat)/float64(granularity)
		lonDeg := lonOffset + float64(lon)/float64(granularity)

		var tags map[string]string
		if len(keysVals) > 0 {
			tags = make(map[string]string)
			for kvPos < len(keysVals) && keysVals[kvPos] != 0 {
				k := uint32(keysVals[kvPos])
				v := uint32(keysVals[kvPos+1])
				kvPos += 2
				tags[n.Tags.strings.Get(stringMap[k])] = n.Tags.strings.Get(stringMap[v])
			}
			if kvPos < len(keysVals) {
				kvPos++ // skip the 0 sentinel
			}
		}

		if filter != nil && !filter(id, lonDeg, latDeg) {
			continue
		}
		n.AddNode(id, lonDeg, latDeg, tags)
	}
}

// Finalize compacts the coordinate columns and the base Ids/Tags. A second
// call is a no-op.
func (n *Nodes) Finalize() {
	if n.finalized {
		return
	}
	n.Ids.Finalize()
	n.Tags.Finalize()
	n.lonMicro = compact(n.lonMicro)
	n.latMicro = compact(n.latMicro)
	n.finalized = true
}

// BuildIndex constructs the static point k-d tree over node coordinates.
func (n *Nodes) BuildIndex() {
	if !n.finalized {
		panic("osm: Nodes.BuildIndex before finalize")
	}
	lons := make([]float64, n.Len())
	lats := make([]float64, n.Len())
	for i := 0; i < n.Len(); i++ {
		lons[i], lats[i] = n.GetLonLat(int32(i))
	}
	n.index = newKDTree(lons, lats)
}

// GetLonLat converts the stored microdegree coordinates of node idx back to
// floating degrees.
func (n *Nodes) GetLonLat(idx int32) (float64, float64) {
	return MicroToLonLat(n.lonMicro[idx], n.latMicro[idx])
}

// BBox returns the accumulated world bbox of all nodes added so far.
func (n *Nodes) BBox() BBox { return n.bbox }

// FindIndexesWithinBBox returns node indexes within b.
func (n *Nodes) FindIndexesWithinBBox(b BBox) []int32 {
	if n.index == nil {
		panic("osm: Nodes spatial index not built")
	}
	return n.index.RangeBBox(b)
}

// FindIndexesWithinRadiusKm returns node indexes within radiusKm
// great-circle distance of (lon, lat).
func (n *Nodes) FindIndexesWithinRadiusKm(lon, lat, radiusKm float64) []int32 {
	if n.index == nil {
		panic("osm: Nodes spatial index not built")
	}
	return n.index.RangeRadius(lon, lat, radiusKm)
}

// NodesXY is a compact (ids, flat xy positions) pair intended for
// zero-copy transport of a bbox selection.
type NodesXY struct {
	IDs []int64
	XY  []float64 // interleaved lon, lat pairs
}

// WithinBBox returns a compact id/coordinate pair for nodes in b, optionally
// narrowed by filter.
func (n *Nodes) WithinBBox(b BBox, filter func(idx int32) bool) NodesXY {
	idxs := n.FindIndexesWithinBBox(b)
	out := NodesXY{IDs: make([]int64, 0, len(idxs)), XY: make([]float64, 0, len(idxs)*2)}
	for _, idx := range idxs {
		if filter != nil && !filter(idx) {
			continue
		}
		lon, lat := n.GetLonLat(idx)
		out.IDs = append(out.IDs, n.Ids.At(idx))
		out.XY = append(out.XY, lon, lat)
	}
	return out
}
