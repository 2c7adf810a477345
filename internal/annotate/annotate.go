// Package annotate stores placed callouts as immutable page-indexed snapshots
// with a linear undo/redo history.
package annotate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/csheth/magnifier/internal/geom"
)

// ErrInvalidCallout is returned when a callout would have no area or a
// non-positive scale.
var ErrInvalidCallout = errors.New("annotate: invalid callout")

// Callout is a magnified copy of a source region placed at Dest on the page
// that owns it. Source is in the source page's document space; Dest is the
// top-left corner in the destination page's document space.
type Callout struct {
	SourcePage int
	Source     geom.Rect
	Dest       geom.Point
	Scale      float64
}

// NewCallout validates and builds a callout.
func NewCallout(sourcePage int, source geom.Rect, dest geom.Point, scale float64) (Callout, error) {
	c := Callout{SourcePage: sourcePage, Source: source, Dest: dest, Scale: scale}
	return c, c.Validate()
}

// Validate checks the callout invariants.
func (c Callout) Validate() error {
	switch {
	case c.SourcePage < 0:
		return fmt.Errorf("%w: source page %d", ErrInvalidCallout, c.SourcePage)
	case c.Scale <= 0:
		return fmt.Errorf("%w: scale %v", ErrInvalidCallout, c.Scale)
	case c.Source.Width <= 0 || c.Source.Height <= 0:
		return fmt.Errorf("%w: source %vx%v", ErrInvalidCallout, c.Source.Width, c.Source.Height)
	}
	return nil
}

// DestSize is the magnified size of the source region.
func (c Callout) DestSize() geom.Size {
	return geom.Size{Width: c.Source.Width * c.Scale, Height: c.Source.Height * c.Scale}
}

// Footprint is the rect the callout covers on its destination page.
func (c Callout) Footprint() geom.Rect {
	size := c.DestSize()
	return geom.Rect{X: c.Dest.X, Y: c.Dest.Y, Width: size.Width, Height: size.Height}
}

// Set maps page index to its callouts in z-order. The zero value is the
// empty set. A Set is never modified after construction; With and Without
// return new sets that share untouched pages.
type Set struct {
	pages map[int][]Callout
}

// Page returns a copy of the callouts on page.
func (s Set) Page(page int) []Callout {
	return append([]Callout(nil), s.pages[page]...)
}

// Pages returns the indices holding at least one callout, ascending.
func (s Set) Pages() []int {
	out := make([]int, 0, len(s.pages))
	for p, list := range s.pages {
		if len(list) > 0 {
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}

// Len counts callouts across all pages.
func (s Set) Len() int {
	n := 0
	for _, list := range s.pages {
		n += len(list)
	}
	return n
}

// Each visits every callout in page order, then z-order.
func (s Set) Each(fn func(page, index int, c Callout)) {
	for _, p := range s.Pages() {
		for i, c := range s.pages[p] {
			fn(p, i, c)
		}
	}
}

// With returns a copy of s with c appended to page.
func (s Set) With(page int, c Callout) Set {
	next := s.shallowCopy()
	list := make([]Callout, 0, len(s.pages[page])+1)
	list = append(list, s.pages[page]...)
	next.pages[page] = append(list, c)
	return next
}

// Without returns a copy of s with the callout at index removed from page.
func (s Set) Without(page, index int) (Set, bool) {
	list := s.pages[page]
	if index < 0 || index >= len(list) {
		return s, false
	}
	next := s.shallowCopy()
	trimmed := make([]Callout, 0, len(list)-1)
	trimmed = append(trimmed, list[:index]...)
	trimmed = append(trimmed, list[index+1:]...)
	if len(trimmed) == 0 {
		delete(next.pages, page)
	} else {
		next.pages[page] = trimmed
	}
	return next, true
}

func (s Set) shallowCopy() Set {
	pages := make(map[int][]Callout, len(s.pages)+1)
	for p, list := range s.pages {
		pages[p] = list
	}
	return Set{pages: pages}
}
