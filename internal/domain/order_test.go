package domain

import "testing"

func intPtr(i int) *int { return &i }

func entryWithPosition(id string, pos *int) *UrlEntry {
	return &UrlEntry{ID: id, ListID: "list-1", Address: "https://example.com/" + id, Position: pos}
}

func TestNormalizeOrder(t *testing.T) {
	tests := []struct {
		name          string
		entries       []*UrlEntry
		expectedOrder []string
		expectChanged bool
	}{
		{
			name: "all positions present, storage order scrambled",
			entries: []*UrlEntry{
				entryWithPosition("c", intPtr(2)),
				entryWithPosition("a", intPtr(0)),
				entryWithPosition("b", intPtr(1)),
			},
			expectedOrder: []string{"a", "b", "c"},
			expectChanged: false,
		},
		{
			name: "no positions, insertion order preserved",
			entries: []*UrlEntry{
				entryWithPosition("a", nil),
				entryWithPosition("b", nil),
				entryWithPosition("c", nil),
			},
			expectedOrder: []string{"a", "b", "c"},
			expectChanged: true,
		},
		{
			name: "mixed, assigned index competes with persisted positions",
			entries: []*UrlEntry{
				entryWithPosition("a", intPtr(5)),
				entryWithPosition("b", nil), // receives index 1
				entryWithPosition("c", intPtr(0)),
			},
			expectedOrder: []string{"c", "b", "a"},
			expectChanged: true,
		},
		{
			name:          "empty set",
			entries:       nil,
			expectedOrder: []string{},
			expectChanged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sorted, changed := NormalizeOrder(tt.entries)

			if changed != tt.expectChanged {
				t.Errorf("changed = %v, want %v", changed, tt.expectChanged)
			}

			order := OrderOf(sorted)
			if len(order) != len(tt.expectedOrder) {
				t.Fatalf("order length = %d, want %d", len(order), len(tt.expectedOrder))
			}
			for i := range order {
				if order[i] != tt.expectedOrder[i] {
					t.Errorf("order[%d] = %s, want %s", i, order[i], tt.expectedOrder[i])
				}
			}

			// Every entry must carry a position afterwards.
			for _, e := range sorted {
				if e.Position == nil {
					t.Errorf("entry %s still missing position after normalization", e.ID)
				}
			}
		})
	}
}

// Normalization is deterministic: a second pass over the same set
// returns the identical order and reports no further change.
func TestNormalizeOrderIdempotent(t *testing.T) {
	entries := []*UrlEntry{
		entryWithPosition("a", nil),
		entryWithPosition("b", nil),
		entryWithPosition("c", nil),
	}

	first, changed := NormalizeOrder(entries)
	if !changed {
		t.Fatal("first pass should assign positions")
	}

	second, changed := NormalizeOrder(first)
	if changed {
		t.Error("second pass should not change anything")
	}

	firstOrder, secondOrder := OrderOf(first), OrderOf(second)
	for i := range firstOrder {
		if firstOrder[i] != secondOrder[i] {
			t.Errorf("order diverged at %d: %s vs %s", i, firstOrder[i], secondOrder[i])
		}
	}
}

// Repeated reads return entries in non-decreasing position regardless of
// how many mutations scrambled the storage order.
func TestNormalizeOrderAlwaysSorted(t *testing.T) {
	entries := []*UrlEntry{
		entryWithPosition("e", intPtr(9)),
		entryWithPosition("d", nil),
		entryWithPosition("a", intPtr(1)),
		entryWithPosition("c", intPtr(7)),
		entryWithPosition("b", intPtr(3)),
	}

	sorted, _ := NormalizeOrder(entries)
	for i := 1; i < len(sorted); i++ {
		if *sorted[i-1].Position > *sorted[i].Position {
			t.Errorf("positions not ascending at %d: %d > %d", i, *sorted[i-1].Position, *sorted[i].Position)
		}
	}
}
