package osm

// Base holds the two collections every entity type extends: the id vector
// and the tag table. Nodes, Ways, and Relations each embed Base.
type Base struct {
	Ids  *Ids
	Tags *Tags
}

func newBase(strings *StringTable) Base {
	return Base{Ids: NewIds(), Tags: NewTags(strings)}
}

// Len returns the number of entities filled so far.
func (b Base) Len() int { return b.Ids.Len() }
