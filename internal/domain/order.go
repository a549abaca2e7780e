package domain

import "sort"

// NormalizeOrder makes entry order canonical. Any entry missing a
// position receives its current array index, then the whole set is
// stable-sorted by position ascending (missing sorts last). The input
// slice is not modified; changed reports whether any assignment
// happened so callers can persist the corrected positions.
//
// Response order must always be position-derived, never
// array-insertion-derived, even immediately after a reorder.
func NormalizeOrder(entries []*UrlEntry) (sorted []*UrlEntry, changed bool) {
	sorted = make([]*UrlEntry, len(entries))
	copy(sorted, entries)

	for i, e := range sorted {
		if e.Position == nil {
			idx := i
			e.Position = &idx
			changed = true
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := sorted[i].Position, sorted[j].Position
		if pi == nil {
			return false
		}
		if pj == nil {
			return true
		}
		return *pi < *pj
	})

	return sorted, changed
}

// OrderOf returns the entry id list in the given order, the
// client-verification contract of the unified read.
func OrderOf(entries []*UrlEntry) []string {
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		order = append(order, e.ID)
	}
	return order
}
