// Package export turns the current annotation snapshot into output files:
// one PNG per page bundled in an archive, or a rebuilt document with the
// callouts drawn on its pages.
package export

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/csheth/magnifier/internal/annotate"
	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/raster"
	"github.com/csheth/magnifier/internal/snippet"
)

// ErrExport wraps failures that abort an export.
var ErrExport = errors.New("export failed")

// Output file names.
const (
	ImagesBundleName = "detailed_pages.zip"
	DocumentName     = "detailed_document.pdf"
)

// barbAngle is the arrowhead half-angle.
const barbAngle = math.Pi / 6

// Placement is a callout resolved into page-local geometry with a top-left
// origin. Both exporters and the live view draw from it.
type Placement struct {
	Callout      annotate.Callout
	Dest         geom.Rect
	SourceCenter geom.Point
	DestCenter   geom.Point
	// Arrow is set for same-page callouts.
	Arrow bool
	// Label is set for callouts copied from another page.
	Label string
}

// Resolve computes where a callout stored on destPage is drawn.
func Resolve(destPage int, c annotate.Callout) Placement {
	dest := c.Footprint()
	p := Placement{
		Callout:      c,
		Dest:         dest,
		SourceCenter: c.Source.Center(),
		DestCenter:   dest.Center(),
	}
	if c.SourcePage == destPage {
		p.Arrow = true
	} else {
		p.Label = LabelFor(c.SourcePage)
	}
	return p
}

// LabelFor names a 0-based source page for people.
func LabelFor(sourcePage int) string {
	return fmt.Sprintf("Detail from Page %d", sourcePage+1)
}

// ArrowHead returns the two barb end points for an arrow ending at to.
func ArrowHead(from, to geom.Point, length float64) (geom.Point, geom.Point) {
	angle := math.Atan2(to.Y-from.Y, to.X-from.X)
	left := geom.Point{
		X: to.X - length*math.Cos(angle-barbAngle),
		Y: to.Y - length*math.Sin(angle-barbAngle),
	}
	right := geom.Point{
		X: to.X - length*math.Cos(angle+barbAngle),
		Y: to.Y - length*math.Sin(angle+barbAngle),
	}
	return left, right
}

// Page is one page of the output.
type Page struct {
	Index       int
	Size        geom.Size
	Composition bool
	// Raster paints the page. A nil Raster leaves the page blank.
	Raster raster.Page
}

// Snippets supplies high-tier callout images.
type Snippets interface {
	Snippet(ctx context.Context, c annotate.Callout) (*snippet.Snippet, error)
}

// Drawn records where an exporter put a callout image, in that exporter's
// own output space.
type Drawn struct {
	Page    int
	Callout annotate.Callout
	Rect    geom.Rect
}
