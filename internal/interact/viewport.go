package interact

import (
	"github.com/csheth/magnifier/internal/annotate"
	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/snippet"
)

// State is the viewport interaction state.
type State int

const (
	Idle State = iota
	Selecting
	Placing
	Panning
)

func (s State) String() string {
	switch s {
	case Selecting:
		return "selecting"
	case Placing:
		return "placing"
	case Panning:
		return "panning"
	default:
		return "idle"
	}
}

// Viewport is the interaction state for one page.
type Viewport struct {
	page        int
	composition bool
	frame       geom.Frame
	transform   geom.Transform
	fitted      bool

	state   State
	start   geom.Point
	end     geom.Point
	panFrom geom.Point

	cursor     geom.Point
	hovering   bool
	placeValid bool

	seq     uint64
	pending RequestPreview
	preview *snippet.Snippet
}

// New returns an idle viewport for page (0-based) of the given document
// size. Composition pages accept placements but never start a selection.
func New(page int, size geom.Size, composition bool) *Viewport {
	return &Viewport{
		page:        page,
		composition: composition,
		frame:       geom.Frame{Page: size},
		transform:   geom.Identity,
	}
}

// Page is the index of the page shown.
func (v *Viewport) Page() int { return v.page }

// Composition reports whether the page is a blank composition page.
func (v *Viewport) Composition() bool { return v.composition }

// State is the current interaction state.
func (v *Viewport) State() State { return v.state }

// Transform maps document space to screen space.
func (v *Viewport) Transform() geom.Transform { return v.transform }

// Frame holds the page and screen sizes used for clamping.
func (v *Viewport) Frame() geom.Frame { return v.frame }

// Resize records the screen size. The first known size fits the page to the
// width; later sizes only re-clamp.
func (v *Viewport) Resize(screen geom.Size) []Effect {
	if screen == v.frame.Screen {
		return nil
	}
	v.frame.Screen = screen
	if !v.fitted && v.frame.Known() {
		v.transform = v.frame.FitToWidth()
		v.fitted = true
	} else {
		v.transform = v.frame.Clamp(v.transform)
	}
	return []Effect{Redraw{}}
}

// ResetView fits the page to the width again.
func (v *Viewport) ResetView() []Effect {
	v.transform = v.frame.FitToWidth()
	return []Effect{Redraw{}}
}

// ZoomCentered zooms by factor around the middle of the screen.
func (v *Viewport) ZoomCentered(factor float64) []Effect {
	if v.state == Selecting || v.state == Panning {
		return nil
	}
	center := geom.Point{X: v.frame.Screen.Width / 2, Y: v.frame.Screen.Height / 2}
	v.transform = v.frame.ZoomAt(v.transform, center, factor)
	return []Effect{Redraw{}}
}

// Cancel discards any selection, pan or pending placement.
func (v *Viewport) Cancel() {
	v.state = Idle
	v.pending = RequestPreview{}
	v.preview = nil
	v.placeValid = false
}

// Handle advances the state machine.
func (v *Viewport) Handle(ev Event, env Env) []Effect {
	env = env.withDefaults()
	switch ev.Kind {
	case PointerDown:
		return v.pointerDown(ev, env)
	case PointerMove:
		return v.pointerMove(ev, env)
	case PointerUp:
		return v.pointerUp(env)
	case PointerLeave:
		v.hovering = false
		switch v.state {
		case Selecting, Panning:
			v.state = Idle
		case Placing:
			v.placeValid = false
		}
	case Wheel:
		if !ev.Alt || v.state == Selecting || v.state == Panning {
			return nil
		}
		v.transform = v.frame.ZoomAt(v.transform, ev.Pos, geom.WheelFactor(ev.DeltaY))
		return []Effect{Redraw{}}
	case KeyPress:
		return v.key(ev.Key, env)
	}
	return nil
}

func (v *Viewport) pointerDown(ev Event, env Env) []Effect {
	if ev.Button == ButtonMiddle {
		v.Cancel()
		return v.ResetView()
	}
	if ev.Button != ButtonLeft {
		return nil
	}
	doc := v.transform.ToDocument(ev.Pos)
	v.track(doc)

	if item, ok := env.pending(); ok {
		c, err := item.Callout(doc)
		if err != nil {
			return nil
		}
		return []Effect{PlaceCallout{Page: v.page, Callout: c, FromClipboard: true}}
	}

	switch v.state {
	case Idle:
		if ev.Alt {
			v.state = Panning
			v.panFrom = ev.Pos
			return nil
		}
		if v.composition {
			return nil
		}
		v.state = Selecting
		v.start, v.end = doc, doc
	case Placing:
		if !v.placeValid {
			return nil
		}
		rect, _, _ := v.Placement(nil)
		c, err := annotate.NewCallout(v.page, v.pending.Source, rect.Origin(), v.pending.Scale)
		if err != nil {
			return nil
		}
		v.Cancel()
		return []Effect{PlaceCallout{Page: v.page, Callout: c}}
	}
	return nil
}

func (v *Viewport) pointerMove(ev Event, env Env) []Effect {
	doc := v.transform.ToDocument(ev.Pos)
	v.track(doc)
	switch v.state {
	case Selecting:
		v.end = doc
	case Panning:
		delta := ev.Pos.Sub(v.panFrom)
		v.panFrom = ev.Pos
		v.transform = v.frame.Pan(v.transform, delta.X, delta.Y)
		return []Effect{Redraw{}}
	}
	return nil
}

func (v *Viewport) pointerUp(env Env) []Effect {
	switch v.state {
	case Selecting:
		v.state = Idle
		rect := geom.Normalize(v.start, v.end)
		if rect.Width < env.MinSelection || rect.Height < env.MinSelection {
			return nil
		}
		v.seq++
		req := RequestPreview{
			Seq:     v.seq,
			Page:    v.page,
			Source:  rect,
			Scale:   env.Magnification,
			Capture: env.CrossPage,
		}
		if !env.CrossPage {
			v.state = Placing
			v.pending = req
			v.preview = nil
			v.track(v.cursor)
		}
		return []Effect{req}
	case Panning:
		v.state = Idle
	}
	return nil
}

func (v *Viewport) key(k Key, env Env) []Effect {
	_, clip := env.pending()
	switch k {
	case KeyEscape:
		var effects []Effect
		if clip {
			effects = append(effects, ClearClipboard{})
		}
		v.Cancel()
		return effects
	case KeyUp, KeyDown, KeyLeft, KeyRight:
		if v.state != Idle && !clip {
			return nil
		}
		v.transform = v.frame.Step(v.transform, direction(k), env.PanStep)
		return []Effect{Redraw{}}
	}
	return nil
}

func direction(k Key) geom.Direction {
	switch k {
	case KeyDown:
		return geom.Down
	case KeyLeft:
		return geom.Left
	case KeyRight:
		return geom.Right
	default:
		return geom.Up
	}
}

// track moves the cursor and recomputes same-page placement validity.
func (v *Viewport) track(doc geom.Point) {
	v.cursor = doc
	v.hovering = true
	if v.state == Placing {
		rect := geom.CenteredAt(doc, v.pendingSize())
		v.placeValid = rect.Inside(v.frame.Page)
	}
}

func (v *Viewport) pendingSize() geom.Size {
	return geom.Size{
		Width:  v.pending.Source.Width * v.pending.Scale,
		Height: v.pending.Source.Height * v.pending.Scale,
	}
}

// PreviewReady attaches a finished preview. It reports false when the result
// is stale: the viewport left Placing or started a newer request.
func (v *Viewport) PreviewReady(seq uint64, s *snippet.Snippet) bool {
	if v.state != Placing || seq != v.pending.Seq {
		return false
	}
	v.preview = s
	return true
}

// Preview returns the attached preview image, if any.
func (v *Viewport) Preview() *snippet.Snippet { return v.preview }

// Pending returns the request behind the current placement.
func (v *Viewport) Pending() (RequestPreview, bool) {
	return v.pending, v.state == Placing
}

// SelectionRect is the normalized in-progress selection.
func (v *Viewport) SelectionRect() (geom.Rect, bool) {
	if v.state != Selecting {
		return geom.Rect{}, false
	}
	return geom.Normalize(v.start, v.end), true
}

// Cursor returns the last document point under the pointer.
func (v *Viewport) Cursor() (geom.Point, bool) { return v.cursor, v.hovering }

// Placement returns the footprint that a click would place, centered on the
// cursor, and whether a click there would be accepted. Clipboard placements
// are never bounds checked.
func (v *Viewport) Placement(clip ClipboardView) (rect geom.Rect, valid bool, ok bool) {
	if clip != nil {
		if item, has := clip.Peek(); has {
			if !v.hovering {
				return geom.Rect{}, false, false
			}
			return geom.CenteredAt(v.cursor, item.DestSize()), true, true
		}
	}
	if v.state != Placing {
		return geom.Rect{}, false, false
	}
	return geom.CenteredAt(v.cursor, v.pendingSize()), v.placeValid, true
}
