package raster

import (
	"context"
	"image"
	"image/draw"
	"math"

	"github.com/csheth/magnifier/internal/geom"
)

// Blank is an empty white page of a fixed size. Composition pages use it.
type Blank struct {
	Size geom.Size
}

// Viewport implements Page.
func (b Blank) Viewport(scale float64) geom.Size {
	return geom.Size{Width: b.Size.Width * scale, Height: b.Size.Height * scale}
}

// Render fills the transformed page area with white.
func (b Blank) Render(ctx context.Context, dst draw.Image, t geom.Transform) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	area := PixelBounds(geom.Rect{Width: b.Size.Width, Height: b.Size.Height}, t).Intersect(dst.Bounds())
	draw.Draw(dst, area, image.NewUniform(Paper), image.Point{}, draw.Src)
	return nil
}

// PixelBounds returns the device pixel rectangle covered by a document rect
// under t, rounding outwards.
func PixelBounds(r geom.Rect, t geom.Transform) image.Rectangle {
	s := t.RectToScreen(r)
	return image.Rect(
		int(math.Floor(s.X)),
		int(math.Floor(s.Y)),
		int(math.Ceil(s.X+s.Width)),
		int(math.Ceil(s.Y+s.Height)),
	)
}
