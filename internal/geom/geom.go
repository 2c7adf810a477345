// Package geom holds the value types shared by every coordinate space in the
// viewer and the affine pan/zoom transform that maps between them.
package geom

import "math"

// Point is a position in a single coordinate space. Screen and document
// points share the type; conversions always go through a Transform.
type Point struct {
	X float64
	Y float64
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Mul scales both coordinates by f.
func (p Point) Mul(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// Size is a width/height pair, used for pages and viewports.
type Size struct {
	Width  float64
	Height float64
}

// Known reports whether both dimensions are positive.
func (s Size) Known() bool { return s.Width > 0 && s.Height > 0 }

// Landscape returns s with the longer edge horizontal.
func (s Size) Landscape() Size {
	if s.Width >= s.Height {
		return s
	}
	return Size{Width: s.Height, Height: s.Width}
}

// Rect is an axis-aligned rectangle with a top-left origin. Width and Height
// are never negative once a rect has been through Normalize.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Normalize builds the rect spanned by two drag endpoints: the origin is the
// element-wise minimum and the dimensions are the absolute differences.
func Normalize(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// Origin returns the top-left corner.
func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }

// Size returns the rect dimensions.
func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Scale multiplies every component by f. Used to move a document-space rect
// into device pixels.
func (r Rect) Scale(f float64) Rect {
	return Rect{X: r.X * f, Y: r.Y * f, Width: r.Width * f, Height: r.Height * f}
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Inside reports whether r lies entirely within a page of the given size.
func (r Rect) Inside(page Size) bool {
	return r.X >= 0 && r.Y >= 0 && r.X+r.Width <= page.Width && r.Y+r.Height <= page.Height
}

// CenteredAt returns a rect of size s whose center is c.
func CenteredAt(c Point, s Size) Rect {
	return Rect{X: c.X - s.Width/2, Y: c.Y - s.Height/2, Width: s.Width, Height: s.Height}
}
