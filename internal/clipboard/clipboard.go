// Package clipboard holds a captured selection waiting to be placed on
// another page.
package clipboard

import (
	"github.com/google/uuid"

	"github.com/csheth/magnifier/internal/annotate"
	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/snippet"
)

// Item is a captured selection.
type Item struct {
	ID         string
	SourcePage int
	Source     geom.Rect
	Scale      float64
	Preview    *snippet.Snippet
}

// DestSize is the size the item will occupy once placed.
func (it Item) DestSize() geom.Size {
	return geom.Size{Width: it.Source.Width * it.Scale, Height: it.Source.Height * it.Scale}
}

// Callout places the item with its center on at.
func (it Item) Callout(at geom.Point) (annotate.Callout, error) {
	size := it.DestSize()
	dest := geom.Point{X: at.X - size.Width/2, Y: at.Y - size.Height/2}
	return annotate.NewCallout(it.SourcePage, it.Source, dest, it.Scale)
}

// Clipboard holds zero or one item. The zero value is empty.
type Clipboard struct {
	item *Item
}

// Capture stores item, replacing anything pending, and returns it with an ID
// assigned.
func (c *Clipboard) Capture(item Item) Item {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	c.item = &item
	return item
}

// Peek returns the pending item.
func (c *Clipboard) Peek() (Item, bool) {
	if c == nil || c.item == nil {
		return Item{}, false
	}
	return *c.item, true
}

// Active reports whether an item is pending.
func (c *Clipboard) Active() bool { return c != nil && c.item != nil }

// Clear drops the pending item.
func (c *Clipboard) Clear() { c.item = nil }
