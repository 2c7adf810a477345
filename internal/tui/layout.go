package tui

import "github.com/csheth/magnifier/internal/geom"

// Rows around the page view: header, status bar, the message block (tall
// enough for the clipboard thumbnail) and the help line.
const (
	headerRows = 1
	footerRows = 1 + thumbRows + 1
)

type pageLayout struct {
	windowWidth  int
	windowHeight int
	// Page view in cells; it starts on row top.
	top  int
	cols int
	rows int
}

func newPageLayout() pageLayout {
	return pageLayout{top: headerRows, cols: 80, rows: 20}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	l.top = headerRows
	l.cols = width
	if l.cols < minViewportWidth {
		l.cols = minViewportWidth
	}
	l.rows = height - headerRows - footerRows
	if l.rows < minViewportHeight {
		l.rows = minViewportHeight
	}
}

// Screen is the page view size in pixels.
func (l pageLayout) Screen() geom.Size {
	return geom.Size{Width: float64(l.cols * pixelsPerCol), Height: float64(l.rows * pixelsPerRow)}
}

// ToScreen maps a terminal cell to the pixel at its center and reports
// whether the cell lies on the page view.
func (l pageLayout) ToScreen(x, y int) (geom.Point, bool) {
	row := y - l.top
	if x < 0 || x >= l.cols || row < 0 || row >= l.rows {
		return geom.Point{}, false
	}
	return geom.Point{
		X: (float64(x) + 0.5) * pixelsPerCol,
		Y: (float64(row) + 0.5) * pixelsPerRow,
	}, true
}
