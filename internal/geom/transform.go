package geom

// Zoom limits applied by ZoomAt.
const (
	MinScale = 0.1
	MaxScale = 20.0
)

// DefaultPanStep is the arrow-key pan distance in screen pixels.
const DefaultPanStep = 20.0

// Wheel zoom factors.
const (
	ZoomInFactor  = 1.2
	ZoomOutFactor = 0.8
)

// WheelFactor maps a wheel delta to a zoom factor: 1 - sign(delta)*0.2.
// Negative deltas (wheel up) zoom in.
func WheelFactor(deltaY float64) float64 {
	switch {
	case deltaY < 0:
		return ZoomInFactor
	case deltaY > 0:
		return ZoomOutFactor
	default:
		return 1
	}
}

// Transform maps document space to screen space:
// screen = document*Scale + (X, Y).
type Transform struct {
	Scale float64
	X     float64
	Y     float64
}

// Identity is the unit transform.
var Identity = Transform{Scale: 1}

// ToDocument converts a screen point to document space.
func (t Transform) ToDocument(p Point) Point {
	return Point{X: (p.X - t.X) / t.Scale, Y: (p.Y - t.Y) / t.Scale}
}

// ToScreen converts a document point to screen space.
func (t Transform) ToScreen(p Point) Point {
	return Point{X: p.X*t.Scale + t.X, Y: p.Y*t.Scale + t.Y}
}

// RectToScreen converts a document rect to screen space.
func (t Transform) RectToScreen(r Rect) Rect {
	o := t.ToScreen(r.Origin())
	return Rect{X: o.X, Y: o.Y, Width: r.Width * t.Scale, Height: r.Height * t.Scale}
}

// Direction is an arrow-key pan direction.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Frame pairs a page size with the screen area it is drawn into. A frame with
// an unknown dimension leaves transforms untouched.
type Frame struct {
	Page   Size
	Screen Size
}

// Known reports whether both sizes are available for clamping.
func (f Frame) Known() bool { return f.Page.Known() && f.Screen.Known() }

// Clamp keeps the page reachable: on an axis where the scaled page overflows
// the screen the offset is limited to [screen-scaled, 0], otherwise the page
// is centered.
func (f Frame) Clamp(t Transform) Transform {
	if !f.Known() {
		return t
	}
	t.X = clampAxis(t.X, f.Page.Width*t.Scale, f.Screen.Width)
	t.Y = clampAxis(t.Y, f.Page.Height*t.Scale, f.Screen.Height)
	return t
}

func clampAxis(offset, scaled, screen float64) float64 {
	if scaled > screen {
		lo := screen - scaled
		if offset < lo {
			return lo
		}
		if offset > 0 {
			return 0
		}
		return offset
	}
	return (screen - scaled) / 2
}

// ZoomAt rescales t by factor while keeping the document point under anchor
// fixed, limits the scale to [MinScale, MaxScale] and clamps the result.
func (f Frame) ZoomAt(t Transform, anchor Point, factor float64) Transform {
	doc := t.ToDocument(anchor)
	scale := t.Scale * factor
	if scale < MinScale {
		scale = MinScale
	}
	if scale > MaxScale {
		scale = MaxScale
	}
	next := Transform{
		Scale: scale,
		X:     anchor.X - doc.X*scale,
		Y:     anchor.Y - doc.Y*scale,
	}
	return f.Clamp(next)
}

// FitToWidth scales the page to the screen width with zero pan, then clamps.
func (f Frame) FitToWidth() Transform {
	if f.Page.Width <= 0 || f.Screen.Width <= 0 {
		return Identity
	}
	return f.Clamp(Transform{Scale: f.Screen.Width / f.Page.Width})
}

// Pan shifts t by a screen-space delta and clamps.
func (f Frame) Pan(t Transform, dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return f.Clamp(t)
}

// Step pans by a fixed distance. Up and Left move the page down and right,
// revealing content above and to the left.
func (f Frame) Step(t Transform, dir Direction, step float64) Transform {
	switch dir {
	case Up:
		return f.Pan(t, 0, step)
	case Down:
		return f.Pan(t, 0, -step)
	case Left:
		return f.Pan(t, step, 0)
	case Right:
		return f.Pan(t, -step, 0)
	}
	return t
}
