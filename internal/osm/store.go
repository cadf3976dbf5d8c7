package osm

import (
	"time"

	"github.com/google/uuid"
)

// Header carries the PBF file-level metadata that is not itself an
// entity: the declared bbox, writer program, export timestamp, and the
// OSMHeader feature negotiation lists.
type Header struct {
	Bbox             BBox
	WritingProgram   string
	Timestamp        time.Time
	RequiredFeatures []string
	OptionalFeatures []string
}

// Store is the top-level in-memory index: a shared StringTable plus the
// three columnar entity collections, in the fill -> Finalize ->
// BuildSpatialIndexes lifecycle.
type Store struct {
	ID     string
	Header Header

	Strings   *StringTable
	Nodes     *Nodes
	Ways      *Ways
	Relations *Relations

	finalized bool
	indexed   bool
}

// NewStore returns an empty Store. If id is empty, a random UUID is
// generated.
func NewStore(id string) *Store {
	if id == "" {
		id = uuid.NewString()
	}
	strings := NewStringTable()
	nodes := NewNodes(strings)
	ways := NewWays(strings, nodes)
	relations := NewRelations(strings, nodes, ways)
	return &Store{
		ID:        id,
		Strings:   strings,
		Nodes:     nodes,
		Ways:      ways,
		Relations: relations,
	}
}

// Finalize finalizes Nodes, then Ways, then Relations, in that order:
// Ways' per-way bbox computation depends on Nodes.Ids being searchable,
// and a (currently absent) Relations bbox cache would analogously depend
// on Ways. A second call is a no-op.
func (s *Store) Finalize() {
	if s.finalized {
		return
	}
	s.Nodes.Finalize()
	s.Ways.Finalize()
	s.Relations.Finalize()
	s.finalized = true
}

// BuildSpatialIndexes builds the k-d tree over Nodes and the R-tree over
// Ways. Finalize must have been called first.
func (s *Store) BuildSpatialIndexes() {
	if !s.finalized {
		panic("osm: Store.BuildSpatialIndexes before Finalize")
	}
	s.Nodes.BuildIndex()
	s.Ways.BuildIndex()
	s.indexed = true
}

// Finalized reports whether Finalize has run.
func (s *Store) Finalized() bool { return s.finalized }

// Indexed reports whether BuildSpatialIndexes has run.
func (s *Store) Indexed() bool { return s.indexed }
