package annotate

import "fmt"

// History is a linear list of snapshots. Entry 0 is always the empty set and
// the index always points at the current snapshot.
type History struct {
	snapshots []Set
	index     int
}

// NewHistory returns a history holding only the empty set.
func NewHistory() *History {
	return &History{snapshots: []Set{{}}}
}

// Current returns the snapshot at the index.
func (h *History) Current() Set { return h.snapshots[h.index] }

// Len is the number of snapshots, including the initial empty one.
func (h *History) Len() int { return len(h.snapshots) }

// Index is the position of the current snapshot.
func (h *History) Index() int { return h.index }

// CanUndo reports whether an earlier snapshot exists.
func (h *History) CanUndo() bool { return h.index > 0 }

// CanRedo reports whether a later snapshot exists.
func (h *History) CanRedo() bool { return h.index < len(h.snapshots)-1 }

// Append records c on page dest as a new snapshot. Anything after the
// current index is discarded first.
func (h *History) Append(dest int, c Callout) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if dest < 0 {
		return fmt.Errorf("%w: destination page %d", ErrInvalidCallout, dest)
	}
	h.push(h.Current().With(dest, c))
	return nil
}

// Remove records the deletion of one callout as a new snapshot.
func (h *History) Remove(dest, index int) error {
	next, ok := h.Current().Without(dest, index)
	if !ok {
		return fmt.Errorf("annotate: no callout %d on page %d", index, dest)
	}
	h.push(next)
	return nil
}

func (h *History) push(next Set) {
	h.snapshots = append(h.snapshots[:h.index+1:h.index+1], next)
	h.index = len(h.snapshots) - 1
}

// Undo steps back one snapshot. It reports false at the start.
func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	h.index--
	return true
}

// Redo steps forward one snapshot. It reports false at the end.
func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	h.index++
	return true
}

// Reset drops every snapshot but the initial empty one.
func (h *History) Reset() {
	h.snapshots = []Set{{}}
	h.index = 0
}

// Reachable returns every callout present in any retained snapshot, keyed by
// value. Undo and redo can only ever show these.
func (h *History) Reachable() map[Callout]bool {
	out := map[Callout]bool{}
	for _, s := range h.snapshots {
		s.Each(func(_, _ int, c Callout) { out[c] = true })
	}
	return out
}
