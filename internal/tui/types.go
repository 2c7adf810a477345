package tui

import (
	"image"

	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/interact"
	"github.com/csheth/magnifier/internal/session"
	"github.com/csheth/magnifier/internal/snippet"
)

type stage int

const (
	stageLoading stage = iota
	stageDisplay
	stageFailed
)

const heroTagline = "magnifier: lift details out of a page and pin them where they help."

const placingMessage = "Placing detail… Click on a page to place or press Esc to cancel."

const exportLockedMessage = "Export in progress… editing resumes when it finishes."

// Each terminal cell shows two vertically stacked pixels.
const (
	pixelsPerCol = 1
	pixelsPerRow = 2
)

const (
	minViewportWidth  = 20
	minViewportHeight = 5
	thumbCols         = 16
	thumbRows         = 4
)

// Live overlay strokes, in screen pixels.
const (
	liveArrowWidth = 1.0
	liveArrowHead  = 6.0
)

type exportKind int

const (
	exportImages exportKind = iota
	exportDocument
)

func (k exportKind) String() string {
	if k == exportDocument {
		return "document"
	}
	return "images"
}

type documentLoadedMsg struct {
	path  string
	id    string
	pages int
	err   error
}

type previewResultMsg struct {
	docID   string
	req     interact.RequestPreview
	snippet *snippet.Snippet
	err     error
}

type frameTickMsg struct {
	gen uint64
}

type frameResultMsg struct {
	gen       uint64
	page      int
	transform geom.Transform
	image     *image.RGBA
	err       error
}

type warmResultMsg struct {
	docID string
	page  int
	count int
	err   error
}

type exportResultMsg struct {
	kind   exportKind
	result session.Result
	err    error
}

// baseFrame is a rendered page without overlays.
type baseFrame struct {
	page      int
	transform geom.Transform
	image     *image.RGBA
}
