// Package selection tracks the checked file rows of the displayed listing.
package selection

import (
	"evidence-explorer/internal/model"
)

const noAnchor = -1

// Tracker holds the checked paths and the index of the last plain click. It
// is not safe for concurrent use; the owning session serializes access.
type Tracker struct {
	visible  []string
	position map[string]int
	selected map[string]bool
	anchor   int
}

func NewTracker() *Tracker {
	t := &Tracker{}
	t.Reset(nil)
	return t
}

// Reset replaces the visible file rows and clears the selection. It runs on
// every container, folder or page change.
func (t *Tracker) Reset(visible []string) {
	t.setVisible(visible)
	t.selected = make(map[string]bool)
	t.anchor = noAnchor
}

// Reorder replaces the visible rows after a re-sort of the same listing. Paths
// still visible stay checked; the range anchor is dropped since indexes moved.
func (t *Tracker) Reorder(visible []string) {
	t.setVisible(visible)
	for path := range t.selected {
		if _, ok := t.position[path]; !ok {
			delete(t.selected, path)
		}
	}
	t.anchor = noAnchor
}

// Toggle flips one file row. With shift held and a previous click recorded,
// every row between the previous click and index takes the new value of the
// clicked row instead.
func (t *Tracker) Toggle(path string, index int, shift bool) error {
	actual, ok := t.position[path]
	if !ok {
		return model.ErrNotSelectable
	}
	if index != actual {
		index = actual
	}

	checked := !t.selected[path]

	if shift && t.anchor != noAnchor {
		lo, hi := t.anchor, index
		if lo > hi {
			lo, hi = hi, lo
		}
		for i := lo; i <= hi; i++ {
			t.set(t.visible[i], checked)
		}
		return nil
	}

	t.set(path, checked)
	t.anchor = index
	return nil
}

// SelectAll checks every visible file row, or clears the selection.
func (t *Tracker) SelectAll(checked bool) {
	t.selected = make(map[string]bool)
	if !checked {
		return
	}

	for _, path := range t.visible {
		t.selected[path] = true
	}
}

// Selected returns the checked paths in display order.
func (t *Tracker) Selected() []string {
	out := make([]string, 0, len(t.selected))
	for _, path := range t.visible {
		if t.selected[path] {
			out = append(out, path)
		}
	}

	return out
}

func (t *Tracker) IsSelected(path string) bool {
	return t.selected[path]
}

func (t *Tracker) Len() int {
	return len(t.selected)
}

func (t *Tracker) set(path string, checked bool) {
	if checked {
		t.selected[path] = true
		return
	}
	delete(t.selected, path)
}

func (t *Tracker) setVisible(visible []string) {
	t.visible = append([]string(nil), visible...)
	t.position = make(map[string]int, len(visible))
	for i, path := range t.visible {
		if _, dup := t.position[path]; !dup {
			t.position[path] = i
		}
	}
}
