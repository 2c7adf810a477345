// Package snippet renders magnified copies of page regions.
package snippet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"

	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/raster"
)

// ErrRender wraps every failure surfaced by the renderer.
var ErrRender = errors.New("snippet: render failed")

// Tier selects the resolution of a render.
type Tier int

const (
	// Preview is the fast tier used while the user is placing a callout.
	Preview Tier = iota
	// High is used for stored callouts and exports.
	High
)

func (t Tier) String() string {
	if t == High {
		return "high"
	}
	return "preview"
}

// Default tier resolutions.
const (
	DefaultPreviewDPI = 96
	DefaultHighDPI    = 300
)

// Snippet is an immutable rendered region.
type Snippet struct {
	Image *image.RGBA
	Tier  Tier
	// Scale is the total device-pixels-per-document-unit factor used.
	Scale float64
}

// PNG encodes the snippet.
func (s *Snippet) PNG() ([]byte, error) {
	if s == nil || s.Image == nil {
		return nil, fmt.Errorf("%w: empty snippet", ErrRender)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.Image); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}

// Renderer produces snippets at two resolution tiers.
type Renderer struct {
	PreviewDPI float64
	HighDPI    float64
}

// NewRenderer returns a renderer with the given tier resolutions; zero values
// fall back to the defaults.
func NewRenderer(previewDPI, highDPI float64) *Renderer {
	if previewDPI <= 0 {
		previewDPI = DefaultPreviewDPI
	}
	if highDPI <= 0 {
		highDPI = DefaultHighDPI
	}
	return &Renderer{PreviewDPI: previewDPI, HighDPI: highDPI}
}

// TotalScale is DPI/72 * magnification for the tier.
func (r *Renderer) TotalScale(magnification float64, tier Tier) float64 {
	dpi := r.PreviewDPI
	if tier == High {
		dpi = r.HighDPI
	}
	return dpi / 72 * magnification
}

// Render paints exactly source (document space) of page into a new image
// sized ceil(w*scale) x ceil(h*scale). It never panics; any failure comes
// back wrapped in ErrRender.
func (r *Renderer) Render(ctx context.Context, page raster.Page, source geom.Rect, magnification float64, tier Tier) (snip *Snippet, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			snip = nil
			err = fmt.Errorf("%w: %v", ErrRender, rec)
		}
	}()
	switch {
	case page == nil:
		return nil, fmt.Errorf("%w: no page", ErrRender)
	case source.Empty():
		return nil, fmt.Errorf("%w: empty region", ErrRender)
	case magnification <= 0:
		return nil, fmt.Errorf("%w: magnification %v", ErrRender, magnification)
	}
	scale := r.TotalScale(magnification, tier)
	w := int(math.Ceil(source.Width * scale))
	h := int(math.Ceil(source.Height * scale))
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(raster.Paper), image.Point{}, draw.Src)

	t := geom.Transform{Scale: scale, X: -source.X * scale, Y: -source.Y * scale}
	if err := page.Render(ctx, canvas, t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return &Snippet{Image: canvas, Tier: tier, Scale: scale}, nil
}
