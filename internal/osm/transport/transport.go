// Package transport implements a cross-process byte envelope for a
// finalized Store, built on protowire's varint/length-delimited wire
// primitives. Spatial indexes are never included; Import always rebuilds
// them (spec.md 5's "Transport protocol" leaves the rebuild-vs-transport
// choice to the receiver -- this package always rebuilds, a documented
// simplification).
package transport

import (
	"fmt"

	"github.com/conveyal/osmix/internal/osm"
	"google.golang.org/protobuf/encoding/protowire"
)

const formatVersion = 1

const (
	fieldString uint64 = iota + 1
	fieldNode
	fieldWay
	fieldRelation
)

func appendString(b []byte, s string) []byte {
	return protowire.AppendBytes(b, []byte(s))
}

func consumeString(b []byte) (string, int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return "", 0, fmt.Errorf("transport: malformed string: %w", protowire.ParseError(n))
	}
	return string(v), n, nil
}

func appendTags(b []byte, tags map[string]string) []byte {
	b = protowire.AppendVarint(b, uint64(len(tags)))
	for k, v := range tags {
		b = appendString(b, k)
		b = appendString(b, v)
	}
	return b
}

func consumeTags(b []byte) (map[string]string, int, error) {
	count, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("transport: malformed tag count: %w", protowire.ParseError(n))
	}
	pos := n
	tags := make(map[string]string, count)
	for i := uint64(0); i < count; i++ {
		k, kn, err := consumeString(b[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += kn
		v, vn, err := consumeString(b[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += vn
		tags[k] = v
	}
	return tags, pos, nil
}

// Export serializes a finalized Store to a self-contained byte envelope:
// a header (format version, id, entity counts), then one
// varint-length-prefixed record per node, way, and relation, each built
// with protowire's Append primitives.
func Export(store *osm.Store) ([]byte, error) {
	if !store.Finalized() {
		return nil, fmt.Errorf("transport: Export requires a finalized Store")
	}

	var b []byte
	b = protowire.AppendVarint(b, formatVersion)
	b = appendString(b, store.ID)
	b = protowire.AppendVarint(b, uint64(store.Nodes.Len()))
	b = protowire.AppendVarint(b, uint64(store.Ways.Len()))
	b = protowire.AppendVarint(b, uint64(store.Relations.Len()))

	for i := 0; i < store.Nodes.Len(); i++ {
		idx := int32(i)
		lon, lat := store.Nodes.GetLonLat(idx)
		rec := protowire.AppendVarint(nil, uint64(store.Nodes.Ids.At(idx)))
		rec = protowire.AppendFixed64(rec, uint64(int64(lon*1e7)))
		rec = protowire.AppendFixed64(rec, uint64(int64(lat*1e7)))
		rec = appendTags(rec, store.Nodes.Tags.GetTags(idx))
		b = protowire.AppendTag(b, protowire.Number(fieldNode), protowire.BytesType)
		b = protowire.AppendBytes(b, rec)
	}

	for i := 0; i < store.Ways.Len(); i++ {
		idx := int32(i)
		refs := store.Ways.GetRefIDs(idx)
		rec := protowire.AppendVarint(nil, uint64(store.Ways.Ids.At(idx)))
		rec = protowire.AppendVarint(rec, uint64(len(refs)))
		for _, ref := range refs {
			rec = protowire.AppendVarint(rec, uint64(ref))
		}
		rec = appendTags(rec, store.Ways.Tags.GetTags(idx))
		bb := store.Ways.BBoxAt(idx)
		for _, c := range bb {
			rec = protowire.AppendFixed64(rec, uint64(int64(c*1e7)))
		}
		b = protowire.AppendTag(b, protowire.Number(fieldWay), protowire.BytesType)
		b = protowire.AppendBytes(b, rec)
	}

	for i := 0; i < store.Relations.Len(); i++ {
		idx := int32(i)
		members := store.Relations.GetMembers(idx)
		rec := protowire.AppendVarint(nil, uint64(store.Relations.Ids.At(idx)))
		rec = protowire.AppendVarint(rec, uint64(len(members)))
		for _, m := range members {
			rec = protowire.AppendVarint(rec, uint64(m.Type))
			rec = protowire.AppendVarint(rec, uint64(m.Ref))
			rec = appendString(rec, m.Role)
		}
		rec = appendTags(rec, store.Relations.Tags.GetTags(idx))
		b = protowire.AppendTag(b, protowire.Number(fieldRelation), protowire.BytesType)
		b = protowire.AppendBytes(b, rec)
	}

	return b, nil
}

// Import decodes an envelope produced by Export into a new finalized
// Store, then rebuilds its spatial indexes.
func Import(data []byte) (*osm.Store, error) {
	version, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, fmt.Errorf("transport: malformed format version: %w", protowire.ParseError(n))
	}
	if version != formatVersion {
		return nil, fmt.Errorf("transport: unsupported format version %d", version)
	}
	pos := n

	id, sn, err := consumeString(data[pos:])
	if err != nil {
		return nil, err
	}
	pos += sn

	nodeCount, n := protowire.ConsumeVarint(data[pos:])
	if n < 0 {
		return nil, fmt.Errorf("transport: malformed node count: %w", protowire.ParseError(n))
	}
	pos += n
	wayCount, n := protowire.ConsumeVarint(data[pos:])
	if n < 0 {
		return nil, fmt.Errorf("transport: malformed way count: %w", protowire.ParseError(n))
	}
	pos += n
	relCount, n := protowire.ConsumeVarint(data[pos:])
	if n < 0 {
		return nil, fmt.Errorf("transport: malformed relation count: %w", protowire.ParseError(n))
	}
	pos += n

	store := osm.NewStore(id)
	wayBBoxes := make([]osm.BBox, 0, wayCount)

	for pos < len(data) {
		num, typ, n := protowire.ConsumeTag(data[pos:])
		if n < 0 {
			return nil, fmt.Errorf("transport: malformed record tag: %w", protowire.ParseError(n))
		}
		pos += n
		if typ != protowire.BytesType {
			return nil, fmt.Errorf("transport: unexpected wire type %v", typ)
		}
		rec, n := protowire.ConsumeBytes(data[pos:])
		if n < 0 {
			return nil, fmt.Errorf("transport: malformed record bytes: %w", protowire.ParseError(n))
		}
		pos += n

		switch uint64(num) {
		case fieldNode:
			if err := importNode(store, rec); err != nil {
				return nil, err
			}
		case fieldWay:
			bb, err := importWay(store, rec)
			if err != nil {
				return nil, err
			}
			wayBBoxes = append(wayBBoxes, bb)
		case fieldRelation:
			if err := importRelation(store, rec); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("transport: unknown field number %d", num)
		}
	}

	if len(wayBBoxes) > 0 {
		store.Ways.SetBBoxes(wayBBoxes)
	}

	_ = nodeCount
	_ = relCount

	store.Finalize()
	store.BuildSpatialIndexes()
	return store, nil
}

func importNode(store *osm.Store, rec []byte) error {
	id, n := protowire.ConsumeVarint(rec)
	if n < 0 {
		return fmt.Errorf("transport: malformed node id: %w", protowire.ParseError(n))
	}
	pos := n
	lonRaw, n := protowire.ConsumeFixed64(rec[pos:])
	if n < 0 {
		return fmt.Errorf("transport: malformed node lon: %w", protowire.ParseError(n))
	}
	pos += n
	latRaw, n := protowire.ConsumeFixed64(rec[pos:])
	if n < 0 {
		return fmt.Errorf("transport: malformed node lat: %w", protowire.ParseError(n))
	}
	pos += n
	tags, tn, err := consumeTags(rec[pos:])
	if err != nil {
		return err
	}
	_ = tn

	lon := float64(int64(lonRaw)) / 1e7
	lat := float64(int64(latRaw)) / 1e7
	store.Nodes.AddNode(int64(id), lon, lat, tags)
	return nil
}

func importWay(store *osm.Store, rec []byte) (osm.BBox, error) {
	id, n := protowire.ConsumeVarint(rec)
	if n < 0 {
		return osm.BBox{}, fmt.Errorf("transport: malformed way id: %w", protowire.ParseError(n))
	}
	pos := n
	refCount, n := protowire.ConsumeVarint(rec[pos:])
	if n < 0 {
		return osm.BBox{}, fmt.Errorf("transport: malformed way ref count: %w", protowire.ParseError(n))
	}
	pos += n

	refs := make([]int64, refCount)
	for i := range refs {
		ref, n := protowire.ConsumeVarint(rec[pos:])
		if n < 0 {
			return osm.BBox{}, fmt.Errorf("transport: malformed way ref: %w", protowire.ParseError(n))
		}
		pos += n
		refs[i] = int64(ref)
	}

	tags, tn, err := consumeTags(rec[pos:])
	if err != nil {
		return osm.BBox{}, err
	}
	pos += tn

	var bb osm.BBox
	for i := range bb {
		raw, n := protowire.ConsumeFixed64(rec[pos:])
		if n < 0 {
			return osm.BBox{}, fmt.Errorf("transport: malformed way bbox: %w", protowire.ParseError(n))
		}
		pos += n
		bb[i] = float64(int64(raw)) / 1e7
	}

	store.Ways.AddWay(int64(id), refs, tags)
	return bb, nil
}

func importRelation(store *osm.Store, rec []byte) error {
	id, n := protowire.ConsumeVarint(rec)
	if n < 0 {
		return fmt.Errorf("transport: malformed relation id: %w", protowire.ParseError(n))
	}
	pos := n
	memberCount, n := protowire.ConsumeVarint(rec[pos:])
	if n < 0 {
		return fmt.Errorf("transport: malformed relation member count: %w", protowire.ParseError(n))
	}
	pos += n

	members := make([]osm.Member, memberCount)
	for i := range members {
		t, n := protowire.ConsumeVarint(rec[pos:])
		if n < 0 {
			return fmt.Errorf("transport: malformed member type: %w", protowire.ParseError(n))
		}
		pos += n
		ref, n := protowire.ConsumeVarint(rec[pos:])
		if n < 0 {
			return fmt.Errorf("transport: malformed member ref: %w", protowire.ParseError(n))
		}
		pos += n
		role, rn, err := consumeString(rec[pos:])
		if err != nil {
			return err
		}
		pos += rn
		members[i] = osm.Member{Type: osm.MemberType(t), Ref: int64(ref), Role: role}
	}

	tags, _, err := consumeTags(rec[pos:])
	if err != nil {
		return err
	}

	store.Relations.AddRelation(int64(id), members, tags)
	return nil
}
