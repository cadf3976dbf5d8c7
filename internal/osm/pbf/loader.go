package pbf

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/conveyal/osmix/internal/osm"
)

// Filter narrows ingest to a bbox and/or explicit entity-kind skip. A nil
// Filter loads everything. Construct with NewFilter, not a bare literal:
// the zero value of osm.BBox is not the same as "no bbox set" (it
// satisfies Valid() as a degenerate single point at 0,0).
type Filter struct {
	Bbox          osm.BBox
	SkipNodes     bool
	SkipWays      bool
	SkipRelations bool
}

// NewFilter returns a Filter with no bbox restriction and nothing skipped.
func NewFilter() *Filter {
	return &Filter{Bbox: osm.EmptyBBox()}
}

func (f *Filter) nodeOK(lon, lat float64) bool {
	if f == nil {
		return true
	}
	if f.SkipNodes {
		return false
	}
	if f.Bbox.Valid() {
		return f.Bbox.ContainsPoint(lon, lat)
	}
	return true
}

// LoadOptions configures Load.
type LoadOptions struct {
	// Filter, if non-nil, is applied to nodes as they are decoded and to
	// the explicit entity-kind skips. It does not control ref-existence
	// filtering -- that always happens (see Load).
	Filter *Filter
}

// Load drains r fully into a new Store: Header, then every PrimitiveBlock
// dispatched by populated group (Dense nodes, Ways, or Relations), ending
// with Finalize. It does not build spatial indexes -- call
// Store.BuildSpatialIndexes after Load if queries are needed.
//
// Per spec.md 4.7, Nodes is finalized as soon as the first way block
// appears (so ids.has() works) and Ways.AddWays is given a ref-existence
// filter that drops refs whose node was skipped by the bbox filter (or
// never existed at all), dropping any way that loses every ref in the
// process. Likewise Ways is finalized as soon as the first relation block
// appears, and Relations.AddRelations filters node- and way-typed members
// the same way; relation-typed members pass through unfiltered, since
// Relations is not finalized until the whole file has been read. This
// relies on the standard PBF convention that node blocks precede way
// blocks precede relation blocks within a file -- Load rejects a dense
// node block arriving after Nodes has already been finalized.
func Load(r Reader, opts LoadOptions) (*osm.Store, error) {
	hdr, err := r.Header()
	if err != nil {
		return nil, fmt.Errorf("pbf: reading header: %w", err)
	}

	store := osm.NewStore("")
	store.Header = osm.Header{
		Bbox:             osm.BBox{hdr.Bbox[0], hdr.Bbox[1], hdr.Bbox[2], hdr.Bbox[3]},
		WritingProgram:   hdr.WritingProgram,
		Timestamp:        hdr.Timestamp,
		RequiredFeatures: hdr.RequiredFeatures,
		OptionalFeatures: hdr.OptionalFeatures,
	}

	filter := opts.Filter
	nodesFinalized := false
	waysFinalized := false

	for {
		block, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("pbf: reading block: %w", err)
		}
		if block.NonDenseNodes {
			return nil, errors.New("pbf: plain (non-dense) node groups are not supported")
		}

		stringMap := make([]uint32, len(block.StringTable))
		for i, s := range block.StringTable {
			stringMap[i] = store.Strings.Add(s)
		}

		switch {
		case block.Dense != nil:
			if nodesFinalized {
				return nil, errors.New("pbf: dense node block arrived after a way or relation block")
			}
			if filter != nil && filter.SkipNodes {
				continue
			}
			d := block.Dense
			var nodeFilter func(id int64, lon, lat float64) bool
			if filter != nil {
				nodeFilter = func(_ int64, lon, lat float64) bool { return filter.nodeOK(lon, lat) }
			}
			store.Nodes.AddDense(d.DeltaIDs, d.DeltaLat, d.DeltaLon, d.KeysVals, stringMap, block.LatOffset, block.LonOffset, block.Granularity, nodeFilter)

		case block.Ways != nil:
			if filter != nil && filter.SkipWays {
				continue
			}
			if !nodesFinalized {
				store.Nodes.Finalize()
				nodesFinalized = true
			}
			w := block.Ways
			refFilter := func(refID int64) bool { return store.Nodes.Ids.GetIndexFromID(refID) != -1 }
			store.Ways.AddWays(w.IDs, w.Refs, w.Keys, w.Vals, stringMap, refFilter)

		case block.Relations != nil:
			if filter != nil && filter.SkipRelations {
				continue
			}
			if !nodesFinalized {
				store.Nodes.Finalize()
				nodesFinalized = true
			}
			if !waysFinalized {
				store.Ways.Finalize()
				waysFinalized = true
			}
			g := block.Relations
			memTypes := make([][]osm.MemberType, len(g.MemTypes))
			for i, row := range g.MemTypes {
				out := make([]osm.MemberType, len(row))
				for j, t := range row {
					out[j] = osm.MemberType(t)
				}
				memTypes[i] = out
			}
			memberFilter := func(t osm.MemberType, ref int64) bool {
				switch t {
				case osm.MemberNode:
					return store.Nodes.Ids.GetIndexFromID(ref) != -1
				case osm.MemberWay:
					return store.Ways.Ids.GetIndexFromID(ref) != -1
				default:
					return true
				}
			}
			store.Relations.AddRelations(g.IDs, g.MemIDs, memTypes, g.MemRoles, g.Keys, g.Vals, stringMap, memberFilter)

		default:
			log.Printf("pbf: primitive block with no populated group, skipping")
		}
	}

	store.Finalize()
	return store, nil
}
