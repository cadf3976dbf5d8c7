package osm

// compact trims a slice's backing array to its exact length, the Go
// equivalent of the spec's growable-buffer compact() step performed during
// finalize.
func compact[T any](s []T) []T {
	if cap(s) == len(s) {
		return s
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
