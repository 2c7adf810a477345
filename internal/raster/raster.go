// Package raster is the boundary to the page-rasterization service. The
// viewer never parses page content itself; it asks a Service to open the
// source bytes and to paint pages into images under an affine transform.
package raster

import (
	"context"
	"errors"
	"image/color"
	"image/draw"

	"github.com/csheth/magnifier/internal/geom"
)

var (
	// ErrOpen reports that the source bytes could not be opened as a document.
	ErrOpen = errors.New("raster: open document")
	// ErrPageRange reports a page number outside [1, NumPages].
	ErrPageRange = errors.New("raster: page out of range")
)

// Service opens documents.
type Service interface {
	Open(ctx context.Context, data []byte) (Document, error)
}

// Document is an opened source. Page numbers are 1-based at this boundary.
type Document interface {
	NumPages() int
	Page(n int) (Page, error)
	Close() error
}

// Page paints one page.
type Page interface {
	// Viewport returns the page size at the given scale, in device pixels.
	Viewport(scale float64) geom.Size
	// Render paints the page into dst with t applied: a document point p
	// lands on t.ToScreen(p) in dst's coordinate space. Pixels outside the
	// page are left untouched.
	Render(ctx context.Context, dst draw.Image, t geom.Transform) error
}

// Paper is the page background color.
var Paper = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
