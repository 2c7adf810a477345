package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"math"

	"golang.org/x/image/draw"

	"github.com/csheth/magnifier/internal/annotate"
	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/raster"
)

// DefaultExportDPI is the resolution of exported page images.
const DefaultExportDPI = 300

// Image export styling, in points; multiplied by the export scale.
const (
	imageArrowWidth  = 6.0 / (DefaultExportDPI / 72.0)
	imageArrowHead   = 40.0 / (DefaultExportDPI / 72.0)
	imageLabelSize   = 12.0
	imageLabelOffset = 16.0
)

// ImageExporter renders each page with its callouts into a PNG.
type ImageExporter struct {
	DPI float64
	// Arrow colors same-page arrows; the zero value means ArrowColor.
	Arrow color.RGBA
}

// NewImageExporter returns an exporter at dpi, or DefaultExportDPI when zero.
func NewImageExporter(dpi float64) *ImageExporter {
	if dpi <= 0 {
		dpi = DefaultExportDPI
	}
	return &ImageExporter{DPI: dpi, Arrow: ArrowColor}
}

// Scale is device pixels per document unit.
func (e *ImageExporter) Scale() float64 { return e.DPI / 72 }

// PageImage is one rendered output page.
type PageImage struct {
	Index int
	Image *image.RGBA
}

// Name is the archive entry name for the page.
func (p PageImage) Name() string { return fmt.Sprintf("page_%d.png", p.Index+1) }

// Render draws every page. A page that fails to render stays white and a
// callout whose snippet fails is skipped along with its arrow and label.
// Both are logged and the rest of the export continues.
func (e *ImageExporter) Render(ctx context.Context, pages []Page, set annotate.Set, snips Snippets) ([]PageImage, []Drawn, error) {
	scale := e.Scale()
	arrow := e.Arrow
	if arrow.A == 0 {
		arrow = ArrowColor
	}
	face, err := LabelFace(imageLabelSize * scale)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: label font: %w", ErrExport, err)
	}
	defer face.Close()

	out := make([]PageImage, 0, len(pages))
	var drawn []Drawn
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrExport, err)
		}
		w := int(math.Ceil(page.Size.Width * scale))
		h := int(math.Ceil(page.Size.Height * scale))
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(img, img.Bounds(), image.NewUniform(raster.Paper), image.Point{}, draw.Src)

		t := geom.Transform{Scale: scale}
		if page.Raster != nil {
			if err := page.Raster.Render(ctx, img, t); err != nil {
				log.Printf("[export] page %d render failed: %v", page.Index+1, err)
			}
		}

		canvas := Canvas{Image: img, Transform: t}
		for _, c := range set.Page(page.Index) {
			p := Resolve(page.Index, c)
			snip, err := snips.Snippet(ctx, c)
			if err != nil {
				log.Printf("[export] page %d callout skipped: %v", page.Index+1, err)
				continue
			}
			canvas.DrawImage(snip.Image, p.Dest)
			drawn = append(drawn, Drawn{Page: page.Index, Callout: c, Rect: p.Dest.Scale(scale)})
			if p.Arrow {
				canvas.Arrow(p.SourceCenter, p.DestCenter, imageArrowWidth*scale, imageArrowHead*scale, arrow)
			}
			if p.Label != "" {
				canvas.Label(p.Label, p.DestCenter.X, p.Dest.Y+p.Dest.Height+imageLabelOffset, face, LabelColor)
			}
		}
		out = append(out, PageImage{Index: page.Index, Image: img})
	}
	return out, drawn, nil
}

// Export renders the pages and packs them as page_N.png entries.
func (e *ImageExporter) Export(ctx context.Context, pages []Page, set annotate.Set, snips Snippets, archive Archive) ([]Drawn, error) {
	images, drawn, err := e.Render(ctx, pages, set, snips)
	if err != nil {
		return nil, err
	}
	for _, page := range images {
		var buf bytes.Buffer
		if err := png.Encode(&buf, page.Image); err != nil {
			return nil, fmt.Errorf("%w: encode %s: %w", ErrExport, page.Name(), err)
		}
		if err := archive.Add(page.Name(), buf.Bytes()); err != nil {
			return nil, fmt.Errorf("%w: archive %s: %w", ErrExport, page.Name(), err)
		}
	}
	return drawn, nil
}
