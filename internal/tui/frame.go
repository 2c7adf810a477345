package tui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nfnt/resize"

	"github.com/csheth/magnifier/internal/export"
	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/interact"
)

var (
	selectionColor = color.RGBA{R: 0x4c, G: 0x9a, B: 0xff, A: 0xff}
	validColor     = color.RGBA{R: 0x3f, G: 0xb9, B: 0x50, A: 0xff}
	invalidColor   = color.RGBA{R: 0xe5, G: 0x48, B: 0x4d, A: 0xff}
)

// composeFrame copies the base page image and draws the page's callouts,
// the live selection and the placement preview over it. Everything is drawn
// through the base frame's transform so overlays stay glued to the page.
func (m *model) composeFrame(vp *interact.Viewport) *image.RGBA {
	if m.base == nil || m.base.page != vp.Page() {
		return nil
	}
	img := image.NewRGBA(m.base.image.Bounds())
	copy(img.Pix, m.base.image.Pix)
	canvas := export.Canvas{Image: img, Transform: m.base.transform}

	for _, c := range m.session.Snapshot().Page(vp.Page()) {
		p := export.Resolve(vp.Page(), c)
		if snip, ok := m.session.Cached(c); ok {
			canvas.DrawImage(snip.Image, p.Dest)
		}
		if p.Arrow {
			canvas.Arrow(p.SourceCenter, p.DestCenter, liveArrowWidth, liveArrowHead, m.arrowColor)
		}
	}

	if sel, ok := vp.SelectionRect(); ok {
		outline(canvas, sel, selectionColor)
	}

	if rect, valid, ok := vp.Placement(m.session); ok {
		preview := vp.Preview()
		if item, has := m.session.Peek(); has {
			preview = item.Preview
		}
		if preview != nil {
			canvas.DrawImage(preview.Image, rect)
		}
		col := validColor
		if !valid {
			col = invalidColor
		}
		outline(canvas, rect, col)
	}
	return img
}

func outline(c export.Canvas, r geom.Rect, col color.Color) {
	tl := r.Origin()
	tr := geom.Point{X: r.X + r.Width, Y: r.Y}
	br := geom.Point{X: r.X + r.Width, Y: r.Y + r.Height}
	bl := geom.Point{X: r.X, Y: r.Y + r.Height}
	c.Line(tl, tr, 1, col)
	c.Line(tr, br, 1, col)
	c.Line(br, bl, 1, col)
	c.Line(bl, tl, 1, col)
}

// halfBlocks renders img two pixel rows per terminal line using the upper
// half block: foreground is the top pixel, background the bottom one.
func halfBlocks(img image.Image) string {
	b := img.Bounds()
	styles := map[[2]string]lipgloss.Style{}
	var out strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			out.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top := hexColor(img.At(x, y))
			bottom := top
			if y+1 < b.Max.Y {
				bottom = hexColor(img.At(x, y+1))
			}
			key := [2]string{top, bottom}
			style, ok := styles[key]
			if !ok {
				style = lipgloss.NewStyle().Foreground(lipgloss.Color(top)).Background(lipgloss.Color(bottom))
				styles[key] = style
			}
			out.WriteString(style.Render("▀"))
		}
	}
	return out.String()
}

func hexColor(c color.Color) string {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

// thumbnail shrinks img to fit cols x rows cells.
func thumbnail(img image.Image, cols, rows int) string {
	if img == nil {
		return ""
	}
	small := resize.Thumbnail(uint(cols*pixelsPerCol), uint(rows*pixelsPerRow), img, resize.Bilinear)
	return halfBlocks(small)
}
