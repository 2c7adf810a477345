// Package interact is the per-page pointer and keyboard state machine. A
// Viewport owns its page's pan/zoom transform and turns raw input into
// effects for the session to act on; it never renders or stores anything.
package interact

import (
	"github.com/csheth/magnifier/internal/annotate"
	"github.com/csheth/magnifier/internal/clipboard"
	"github.com/csheth/magnifier/internal/geom"
)

// Kind is the event type.
type Kind int

const (
	PointerDown Kind = iota
	PointerMove
	PointerUp
	PointerLeave
	Wheel
	KeyPress
)

// Button identifies the pointer button for PointerDown.
type Button int

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight
)

// Key is a keyboard key the viewport understands.
type Key int

const (
	KeyNone Key = iota
	KeyEscape
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
)

// Event is one input delivered to a viewport. Pos is in screen space
// relative to the viewport's top-left corner.
type Event struct {
	Kind   Kind
	Pos    geom.Point
	Button Button
	Alt    bool
	DeltaY float64
	Key    Key
}

// ClipboardView is the read-only clipboard access a viewport gets.
type ClipboardView interface {
	Peek() (clipboard.Item, bool)
}

// Default interaction limits.
const (
	DefaultMinSelection  = 5.0
	DefaultMagnification = 3.0
)

// Env carries the session state a viewport needs to interpret an event.
type Env struct {
	Magnification float64
	Clipboard     ClipboardView
	// CrossPage sends finished selections to the clipboard instead of
	// placing them on the same page.
	CrossPage bool
	// MinSelection is the smallest accepted selection edge in document units.
	MinSelection float64
	// PanStep is the arrow-key pan distance in screen pixels.
	PanStep float64
}

func (e Env) withDefaults() Env {
	if e.Magnification <= 0 {
		e.Magnification = DefaultMagnification
	}
	if e.MinSelection <= 0 {
		e.MinSelection = DefaultMinSelection
	}
	if e.PanStep <= 0 {
		e.PanStep = geom.DefaultPanStep
	}
	return e
}

func (e Env) pending() (clipboard.Item, bool) {
	if e.Clipboard == nil {
		return clipboard.Item{}, false
	}
	return e.Clipboard.Peek()
}

// Effect is something the session must do in response to an event.
type Effect interface {
	isEffect()
}

// RequestPreview asks for a preview-tier render of Source. Results must be
// handed back with the same Seq; anything else is stale.
type RequestPreview struct {
	Seq    uint64
	Page   int
	Source geom.Rect
	Scale  float64
	// Capture routes the finished preview into the clipboard.
	Capture bool
}

// PlaceCallout asks the session to append Callout to Page.
type PlaceCallout struct {
	Page          int
	Callout       annotate.Callout
	FromClipboard bool
}

// ClearClipboard asks the session to drop the pending clipboard item.
type ClearClipboard struct{}

// Redraw reports that the transform changed.
type Redraw struct{}

func (RequestPreview) isEffect() {}
func (PlaceCallout) isEffect()   {}
func (ClearClipboard) isEffect() {}
func (Redraw) isEffect()         {}
