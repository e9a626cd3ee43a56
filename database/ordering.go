package database

// The ordering engine computes the minimal set of sibling shifts needed to
// relocate one item inside a dense zero-based ordering, without renumbering
// the whole group. It is pure computation; the move transaction in tasks.go
// translates the resulting windows into SQL updates.

// ShiftWindow describes one contiguous band of siblings, identified by their
// current order values, that must all shift by Delta.
type ShiftWindow struct {
	FromOrder int // inclusive lower bound
	ToOrder   int // inclusive upper bound, ignored when Unbounded
	Unbounded bool
	Delta     int
}

// Contains reports whether a sibling currently at order is inside the window.
// Comparison is by relative order, so it behaves correctly even if earlier
// deletions left gaps in the stored sequence.
func (w ShiftWindow) Contains(order int) bool {
	return order >= w.FromOrder && (w.Unbounded || order <= w.ToOrder)
}

// MovePlan is the outcome of planning a single move. Source windows apply to
// the group the item is leaving, Dest windows to the group it lands in. For a
// same-group move only Dest is populated. The moving item itself is excluded
// from every window and simply takes Target as its new order.
type MovePlan struct {
	NoOp   bool
	Source []ShiftWindow
	Dest   []ShiftWindow
	Target int
}

// PlanMove computes the shifts required to move an item from currentIndex to
// targetIndex. When sameGroup is true both indexes are within one sibling
// group; otherwise the item leaves its source group (closing the gap behind
// it) and is inserted into the destination group (opening a slot).
func PlanMove(currentIndex, targetIndex int, sameGroup bool) MovePlan {
	if sameGroup {
		switch {
		case targetIndex == currentIndex:
			return MovePlan{NoOp: true, Target: targetIndex}
		case targetIndex < currentIndex:
			// Moving earlier: everything in [target, current) slides down one.
			return MovePlan{
				Dest:   []ShiftWindow{{FromOrder: targetIndex, ToOrder: currentIndex - 1, Delta: 1}},
				Target: targetIndex,
			}
		default:
			// Moving later: everything in (current, target] slides up one.
			return MovePlan{
				Dest:   []ShiftWindow{{FromOrder: currentIndex + 1, ToOrder: targetIndex, Delta: -1}},
				Target: targetIndex,
			}
		}
	}

	return MovePlan{
		Source: []ShiftWindow{{FromOrder: currentIndex + 1, Unbounded: true, Delta: -1}},
		Dest:   []ShiftWindow{{FromOrder: targetIndex, Unbounded: true, Delta: 1}},
		Target: targetIndex,
	}
}

// ClampTarget bounds a requested target index to [0, destinationSize].
// Anything past the end of the destination group means append at the tail.
func ClampTarget(targetIndex, destinationSize int) int {
	if targetIndex > destinationSize {
		return destinationSize
	}
	return targetIndex
}

// ApplyShifts returns the new order values after applying windows to a sibling
// group, leaving values outside every window untouched. Used by tests to check
// plans against synthetic sibling lists.
func ApplyShifts(orders []int, windows []ShiftWindow) []int {
	out := make([]int, len(orders))
	copy(out, orders)
	for _, w := range windows {
		for i, o := range orders {
			if w.Contains(o) {
				out[i] += w.Delta
			}
		}
	}
	return out
}
