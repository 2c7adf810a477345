package export

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log"

	"github.com/csheth/magnifier/internal/annotate"
	"github.com/csheth/magnifier/internal/geom"
)

// Document export styling, in points.
const (
	docArrowWidth  = 2.0
	docArrowHead   = 15.0
	docLabelSize   = 10.0
	docLabelOffset = 14.0
)

// Document export colors.
var (
	DocArrowColor = color.RGBA{R: 207, G: 102, B: 120, A: 0xff}
	DocLabelColor = color.RGBA{R: 51, G: 51, B: 51, A: 0xff}
)

// Box is a page-local rectangle with a bottom-left origin, in points.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// ToPDF flips a top-left document rect into the crop box's bottom-left space.
func (b Box) ToPDF(r geom.Rect) Box {
	return Box{
		X:      b.X + r.X,
		Y:      (b.Y + b.Height) - r.Y - r.Height,
		Width:  r.Width,
		Height: r.Height,
	}
}

// PointToPDF flips a top-left document point into the crop box's space.
func (b Box) PointToPDF(p geom.Point) geom.Point {
	return geom.Point{X: b.X + p.X, Y: (b.Y + b.Height) - p.Y}
}

// DocumentBuilder constructs the output document one page at a time. All
// drawing goes to the most recently appended page, in that page's
// bottom-left coordinates.
type DocumentBuilder interface {
	// Load reads the source document and returns its page count.
	Load(src []byte) (int, error)
	// AppendSourcePage copies 1-based page n and returns its crop box.
	AppendSourcePage(n int) (Box, error)
	// AppendBlankPage adds an empty page of size.
	AppendBlankPage(size geom.Size) (Box, error)
	EmbedImage(name string, png []byte) error
	DrawImage(name string, r Box)
	DrawLine(from, to geom.Point, width float64, col color.RGBA)
	DrawText(text string, at geom.Point, size float64, col color.RGBA)
	Save(w io.Writer) error
}

// DocumentExporter rebuilds the source with callouts drawn on each page.
// It drives a single builder sequentially and must not be run concurrently.
type DocumentExporter struct {
	NewBuilder func() DocumentBuilder
}

// Export writes the rebuilt document to w. Source pages are copied in order,
// then composition pages are appended. Any builder failure aborts the export
// before anything is written.
func (e *DocumentExporter) Export(ctx context.Context, src []byte, pages []Page, set annotate.Set, snips Snippets, w io.Writer) ([]Drawn, error) {
	b := e.NewBuilder()
	count, err := b.Load(src)
	if err != nil {
		return nil, fmt.Errorf("%w: load source: %w", ErrExport, err)
	}

	var drawn []Drawn
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExport, err)
		}
		var box Box
		if page.Composition {
			box, err = b.AppendBlankPage(page.Size)
		} else {
			if page.Index >= count {
				return nil, fmt.Errorf("%w: page %d missing from source", ErrExport, page.Index+1)
			}
			box, err = b.AppendSourcePage(page.Index + 1)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrExport, page.Index+1, err)
		}

		for i, c := range set.Page(page.Index) {
			p := Resolve(page.Index, c)
			snip, err := snips.Snippet(ctx, c)
			if err != nil {
				log.Printf("[export] page %d callout skipped: %v", page.Index+1, err)
				continue
			}
			data, err := snip.PNG()
			if err != nil {
				log.Printf("[export] page %d callout skipped: %v", page.Index+1, err)
				continue
			}
			name := fmt.Sprintf("callout-%d-%d", page.Index, i)
			if err := b.EmbedImage(name, data); err != nil {
				return nil, fmt.Errorf("%w: embed %s: %w", ErrExport, name, err)
			}
			r := box.ToPDF(p.Dest)
			b.DrawImage(name, r)
			drawn = append(drawn, Drawn{Page: page.Index, Callout: c, Rect: geom.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}})
			if p.Arrow {
				from := box.PointToPDF(p.SourceCenter)
				to := box.PointToPDF(p.DestCenter)
				left, right := ArrowHead(from, to, docArrowHead)
				b.DrawLine(from, to, docArrowWidth, DocArrowColor)
				b.DrawLine(to, left, docArrowWidth, DocArrowColor)
				b.DrawLine(to, right, docArrowWidth, DocArrowColor)
			}
			if p.Label != "" {
				bottom := box.ToPDF(p.Dest).Y
				b.DrawText(p.Label, geom.Point{X: box.X + p.Dest.X, Y: bottom - docLabelOffset}, docLabelSize, DocLabelColor)
			}
		}
	}

	if err := b.Save(w); err != nil {
		return nil, fmt.Errorf("%w: save: %w", ErrExport, err)
	}
	return drawn, nil
}

// DocumentToLocal converts a rect recorded by the document exporter back to
// top-left document space for the given crop box.
func DocumentToLocal(box Box, r geom.Rect) geom.Rect {
	return geom.Rect{
		X:      r.X - box.X,
		Y:      (box.Y + box.Height) - r.Y - r.Height,
		Width:  r.Width,
		Height: r.Height,
	}
}
