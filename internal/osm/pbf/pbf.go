// Package pbf defines the collaborator types and interfaces the osm
// package's ingest/emit pipeline speaks to. It does not implement actual
// PBF framing, zlib blob decompression, or protobuf bit-layout parsing --
// that remains an out-of-scope collaborator a caller supplies (see
// MemBlockReader/MemBlockWriter for an in-memory stand-in used by tests).
package pbf

import "time"

// Header is the file-level OSMHeader: declared bbox and writer metadata,
// plus the required/optional feature negotiation strings a real codec
// would check against ("OsmSchema-V0.6", "DenseNodes", ...).
type Header struct {
	Bbox             [4]float64 // minLon, minLat, maxLon, maxLat
	WritingProgram   string
	Timestamp        time.Time
	RequiredFeatures []string
	OptionalFeatures []string
}

// DenseNodes mirrors the OSM-PBF DenseNodes message: parallel delta-coded
// id/lat/lon columns plus a flattened, 0-terminated-per-node keys_vals
// stream of block-local string-table indexes.
type DenseNodes struct {
	DeltaIDs  []int64
	DeltaLat  []int64
	DeltaLon  []int64
	KeysVals  []int32
}

// WayGroup mirrors a PBF Way primitive group: one entry per way, with refs
// delta-coded per way and keys/vals as block-local string indexes.
type WayGroup struct {
	IDs     []int64
	Refs    [][]int64 // delta-coded node refs, per way
	Keys    [][]uint32
	Vals    [][]uint32
}

// RelationMemberType mirrors the PBF Relation.MemberType enum.
type RelationMemberType uint8

const (
	RelationMemberNode RelationMemberType = iota
	RelationMemberWay
	RelationMemberRelation
)

// RelationGroup mirrors a PBF Relation primitive group: one entry per
// relation, with member ids delta-coded per relation.
type RelationGroup struct {
	IDs      []int64
	MemIDs   [][]int64 // delta-coded member refs, per relation
	MemTypes [][]RelationMemberType
	MemRoles [][]uint32 // block-local string indexes
	Keys     [][]uint32
	Vals     [][]uint32
}

// PrimitiveBlock is one decoded PBF PrimitiveBlock: a block-local string
// table plus at most one populated primitive group kind. NonDenseNodes
// signals a plain (non-dense) Node group, which this module does not
// support decoding (spec.md requires dense nodes only); a Reader that
// yields one should set it so Load can reject the block with a clear
// error instead of silently misreading it.
type PrimitiveBlock struct {
	StringTable []string

	Dense         *DenseNodes
	Ways          *WayGroup
	Relations     *RelationGroup
	NonDenseNodes bool

	LatOffset   float64
	LonOffset   float64
	Granularity int64
}

// Reader yields decoded PrimitiveBlocks from a PBF byte stream.
type Reader interface {
	Header() (Header, error)
	Next() (PrimitiveBlock, error) // io.EOF when exhausted
}

// Writer accepts PrimitiveBlocks to encode to a PBF byte stream.
type Writer interface {
	WriteHeader(Header) error
	WriteBlock(PrimitiveBlock) error
	Close() error
}
