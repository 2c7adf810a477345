package export

import (
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/csheth/magnifier/internal/geom"
)

// Raster styling shared by the image export and the live view.
var (
	ArrowColor = color.RGBA{R: 0xcf, G: 0x66, B: 0x79, A: 0xff}
	LabelColor = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
)

var (
	fontOnce sync.Once
	fontData *opentype.Font
	fontErr  error
)

// LabelFace returns the label font at size pixels.
func LabelFace(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		fontData, fontErr = opentype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}
	return opentype.NewFace(fontData, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Canvas draws document-space geometry onto an image through a transform.
type Canvas struct {
	Image     *image.RGBA
	Transform geom.Transform
}

// DrawImage scales src into the document rect dest.
func (c Canvas) DrawImage(src image.Image, dest geom.Rect) {
	s := c.Transform.RectToScreen(dest)
	r := image.Rect(
		int(math.Round(s.X)),
		int(math.Round(s.Y)),
		int(math.Round(s.X+s.Width)),
		int(math.Round(s.Y+s.Height)),
	)
	if r.Empty() {
		return
	}
	draw.CatmullRom.Scale(c.Image, r, src, src.Bounds(), draw.Over, nil)
}

// Line strokes a line between document points with a width in device pixels.
func (c Canvas) Line(from, to geom.Point, width float64, col color.Color) {
	a := c.Transform.ToScreen(from)
	b := c.Transform.ToScreen(to)
	strokeLine(c.Image, a, b, width, col)
}

// Arrow strokes a line plus arrowhead. head is in device pixels.
func (c Canvas) Arrow(from, to geom.Point, width, head float64, col color.Color) {
	a := c.Transform.ToScreen(from)
	b := c.Transform.ToScreen(to)
	strokeLine(c.Image, a, b, width, col)
	left, right := ArrowHead(a, b, head)
	strokeLine(c.Image, b, left, width, col)
	strokeLine(c.Image, b, right, width, col)
}

// Label draws text horizontally centered on the document x with its baseline
// on the document y.
func (c Canvas) Label(text string, centerX, baseline float64, face font.Face, col color.Color) {
	at := c.Transform.ToScreen(geom.Point{X: centerX, Y: baseline})
	width := font.MeasureString(face, text)
	d := &font.Drawer{
		Dst:  c.Image,
		Src:  image.NewUniform(col),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(int(math.Round(at.X))) - width/2,
			Y: fixed.I(int(math.Round(at.Y))),
		},
	}
	d.DrawString(text)
}

// strokeLine stamps a square brush of the given width along the segment.
func strokeLine(img *image.RGBA, a, b geom.Point, width float64, col color.Color) {
	if width < 1 {
		width = 1
	}
	half := width / 2
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps < 1 {
		steps = 1
	}
	bounds := img.Bounds()
	src := image.NewUniform(col)
	for i := 0; i <= steps; i++ {
		f := float64(i) / float64(steps)
		x := a.X + dx*f
		y := a.Y + dy*f
		brush := image.Rect(
			int(math.Floor(x-half)),
			int(math.Floor(y-half)),
			int(math.Ceil(x+half)),
			int(math.Ceil(y+half)),
		).Intersect(bounds)
		if brush.Empty() {
			continue
		}
		draw.Draw(img, brush, src, image.Point{}, draw.Src)
	}
}
