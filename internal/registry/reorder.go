package registry

// remapAfterMove returns where a position-based reference lands after the
// element at index from moves to index to. The moved element tracks to its
// destination; references strictly between the two indices shift by one in
// the opposite direction of the move; everything else is unchanged.
func remapAfterMove(ref, from, to int) int {
	switch {
	case ref == from:
		return to
	case from < to && ref > from && ref <= to:
		return ref - 1
	case from > to && ref >= to && ref < from:
		return ref + 1
	default:
		return ref
	}
}

// remapAfterRemove returns where a reference lands after the element at
// index removed is deleted. ok is false when the reference pointed at the
// removed element itself and must be cleared.
func remapAfterRemove(ref, removed int) (int, bool) {
	switch {
	case ref == removed:
		return 0, false
	case ref > removed:
		return ref - 1, true
	default:
		return ref, true
	}
}

// RemapAfterMove is the exported form of the move remap rule, usable by
// callers tracking their own position-based references.
func RemapAfterMove(ref, from, to int) int {
	return remapAfterMove(ref, from, to)
}

// RemapAfterRemove is the exported form of the removal remap rule.
func RemapAfterRemove(ref, removed int) (int, bool) {
	return remapAfterRemove(ref, removed)
}
