package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/magnifier/internal/annotate"
	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/raster"
	"github.com/csheth/magnifier/internal/raster/rastertest"
	"github.com/csheth/magnifier/internal/snippet"
)

var snippetBlue = color.RGBA{B: 0xff, A: 0xff}

type fakeSnippets struct {
	fail map[annotate.Callout]bool
}

func (f fakeSnippets) Snippet(ctx context.Context, c annotate.Callout) (*snippet.Snippet, error) {
	if f.fail[c] {
		return nil, snippet.ErrRender
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, snippetBlue)
		}
	}
	return &snippet.Snippet{Image: img, Tier: snippet.High, Scale: 1}, nil
}

type builderOp struct {
	Kind string
	Name string
	Box  Box
	From geom.Point
	To   geom.Point
	Text string
}

type fakeBuilder struct {
	crop    Box
	pages   int
	boxes   []Box
	ops     []builderOp
	saveErr error
	images  map[string][]byte
}

func (b *fakeBuilder) Load(src []byte) (int, error) {
	if len(src) == 0 {
		return 0, errors.New("empty")
	}
	return b.pages, nil
}

func (b *fakeBuilder) AppendSourcePage(n int) (Box, error) {
	b.boxes = append(b.boxes, b.crop)
	b.ops = append(b.ops, builderOp{Kind: "source"})
	return b.crop, nil
}

func (b *fakeBuilder) AppendBlankPage(size geom.Size) (Box, error) {
	box := Box{Width: size.Width, Height: size.Height}
	b.boxes = append(b.boxes, box)
	b.ops = append(b.ops, builderOp{Kind: "blank", Box: box})
	return box, nil
}

func (b *fakeBuilder) EmbedImage(name string, data []byte) error {
	if b.images == nil {
		b.images = map[string][]byte{}
	}
	b.images[name] = data
	return nil
}

func (b *fakeBuilder) DrawImage(name string, r Box) {
	b.ops = append(b.ops, builderOp{Kind: "image", Name: name, Box: r})
}

func (b *fakeBuilder) DrawLine(from, to geom.Point, width float64, col color.RGBA) {
	b.ops = append(b.ops, builderOp{Kind: "line", From: from, To: to})
}

func (b *fakeBuilder) DrawText(text string, at geom.Point, size float64, col color.RGBA) {
	b.ops = append(b.ops, builderOp{Kind: "text", Text: text, From: at})
}

func (b *fakeBuilder) Save(w io.Writer) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	_, err := w.Write([]byte("%PDF-fake"))
	return err
}

func (b *fakeBuilder) count(kind string) int {
	n := 0
	for _, op := range b.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

func testPages() []Page {
	size := geom.Size{Width: 200, Height: 300}
	return []Page{
		{Index: 0, Size: size, Raster: &rastertest.Page{Number: 1, Size: size}},
		{Index: 1, Size: size, Raster: &rastertest.Page{Number: 2, Size: size}},
		{Index: 2, Size: geom.Size{Width: 120, Height: 100}, Composition: true, Raster: raster.Blank{Size: geom.Size{Width: 120, Height: 100}}},
	}
}

func testSet(t *testing.T) (annotate.Set, annotate.Callout, annotate.Callout) {
	t.Helper()
	same, err := annotate.NewCallout(0, geom.Rect{X: 10, Y: 10, Width: 20, Height: 10}, geom.Point{X: 100, Y: 150}, 3)
	require.NoError(t, err)
	cross, err := annotate.NewCallout(0, geom.Rect{X: 40, Y: 40, Width: 10, Height: 10}, geom.Point{X: 20, Y: 20}, 2)
	require.NoError(t, err)
	var set annotate.Set
	set = set.With(0, same)
	set = set.With(2, cross)
	return set, same, cross
}

func TestResolve(t *testing.T) {
	t.Parallel()
	c := annotate.Callout{SourcePage: 0, Source: geom.Rect{X: 100, Y: 100, Width: 50, Height: 40}, Dest: geom.Point{X: 325, Y: 240}, Scale: 3}
	same := Resolve(0, c)
	assert.True(t, same.Arrow)
	assert.Empty(t, same.Label)
	assert.Equal(t, geom.Rect{X: 325, Y: 240, Width: 150, Height: 120}, same.Dest)
	assert.Equal(t, geom.Point{X: 125, Y: 120}, same.SourceCenter)
	assert.Equal(t, geom.Point{X: 400, Y: 300}, same.DestCenter)

	cross := Resolve(4, c)
	assert.False(t, cross.Arrow)
	assert.Equal(t, "Detail from Page 1", cross.Label)
}

func TestArrowHead(t *testing.T) {
	t.Parallel()
	left, right := ArrowHead(geom.Point{X: 0, Y: 0}, geom.Point{X: 100, Y: 0}, 10)
	assert.InDelta(t, 100-10*math.Cos(math.Pi/6), left.X, 1e-9)
	assert.InDelta(t, 10*math.Sin(math.Pi/6), left.Y, 1e-9)
	assert.InDelta(t, left.X, right.X, 1e-9)
	assert.InDelta(t, -left.Y, right.Y, 1e-9)
}

func TestBoxFlip(t *testing.T) {
	t.Parallel()
	box := Box{X: 10, Y: 20, Width: 200, Height: 300}
	got := box.ToPDF(geom.Rect{X: 5, Y: 30, Width: 40, Height: 50})
	assert.Equal(t, Box{X: 15, Y: 320 - 30 - 50, Width: 40, Height: 50}, got)
	assert.Equal(t, geom.Point{X: 15, Y: 290}, box.PointToPDF(geom.Point{X: 5, Y: 30}))
	assert.Equal(t, geom.Rect{X: 5, Y: 30, Width: 40, Height: 50},
		DocumentToLocal(box, geom.Rect{X: got.X, Y: got.Y, Width: got.Width, Height: got.Height}))
}

func TestImageExportDrawsCallouts(t *testing.T) {
	t.Parallel()
	set, same, _ := testSet(t)
	e := NewImageExporter(144)
	images, drawn, err := e.Render(context.Background(), testPages(), set, fakeSnippets{})
	require.NoError(t, err)
	require.Len(t, images, 3)
	require.Len(t, drawn, 2)

	first := images[0].Image
	assert.Equal(t, image.Rect(0, 0, 400, 600), first.Bounds())
	dest := same.Footprint().Scale(2)
	center := dest.Center()
	inside := first.RGBAAt(int(center.X)+10, int(center.Y)+10)
	assert.Greater(t, inside.B, uint8(0xf0))
	assert.Less(t, inside.R, uint8(0x10))

	// The arrow runs from the source center toward the footprint.
	mid := geom.Point{X: (20*2 + center.X) / 2, Y: (15*2 + center.Y) / 2}
	assert.Equal(t, ArrowColor, first.RGBAAt(int(mid.X), int(mid.Y)))

	// Composition pages are white apart from their callouts, and carry a label.
	comp := images[2].Image
	assert.Equal(t, raster.Paper, comp.RGBAAt(1, 1))
	labelRow := int((20 + 20 + 16) * 2)
	dark := 0
	for y := labelRow - 20; y <= labelRow; y++ {
		for x := 0; x < comp.Bounds().Dx(); x++ {
			if c := comp.RGBAAt(x, y); c.R < 0x80 && c.B < 0x80 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 0, "label should be drawn under the cross-page callout")
}

func TestImageExportSkipsFailedSnippets(t *testing.T) {
	t.Parallel()
	set, same, cross := testSet(t)
	snips := fakeSnippets{fail: map[annotate.Callout]bool{same: true}}
	_, drawn, err := NewImageExporter(72).Render(context.Background(), testPages(), set, snips)
	require.NoError(t, err)
	require.Len(t, drawn, 1)
	assert.Equal(t, cross, drawn[0].Callout)
}

func TestImageExportSkipsArrowAndLabelOfFailedSnippet(t *testing.T) {
	t.Parallel()
	set, same, cross := testSet(t)
	snips := fakeSnippets{fail: map[annotate.Callout]bool{same: true, cross: true}}
	images, drawn, err := NewImageExporter(144).Render(context.Background(), testPages(), set, snips)
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Empty(t, drawn)

	center := same.Footprint().Scale(2).Center()
	mid := geom.Point{X: (20*2 + center.X) / 2, Y: (15*2 + center.Y) / 2}
	assert.NotEqual(t, ArrowColor, images[0].Image.RGBAAt(int(mid.X), int(mid.Y)))

	comp := images[2].Image
	b := comp.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if c := comp.RGBAAt(x, y); c != raster.Paper {
				t.Fatalf("composition page pixel (%d,%d) = %v, want paper", x, y, c)
			}
		}
	}
}

func TestImageExportKeepsGoingWhenAPageFails(t *testing.T) {
	t.Parallel()
	svc := rastertest.New(2, geom.Size{Width: 200, Height: 300})
	svc.FailPages = map[int]bool{1: true}
	doc, err := svc.Open(context.Background(), []byte("x"))
	require.NoError(t, err)
	p1, _ := doc.Page(1)
	p2, _ := doc.Page(2)
	pages := []Page{
		{Index: 0, Size: geom.Size{Width: 200, Height: 300}, Raster: p1},
		{Index: 1, Size: geom.Size{Width: 200, Height: 300}, Raster: p2},
	}
	set, _, _ := testSet(t)
	images, drawn, err := NewImageExporter(72).Render(context.Background(), pages, set, fakeSnippets{})
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Len(t, drawn, 1)
	assert.Equal(t, raster.Paper, images[0].Image.RGBAAt(199, 299))
}

func TestImageExportArchive(t *testing.T) {
	t.Parallel()
	set, _, _ := testSet(t)
	archive := NewZipArchive()
	_, err := NewImageExporter(72).Export(context.Background(), testPages(), set, fakeSnippets{}, archive)
	require.NoError(t, err)
	data, err := archive.Finalize()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"page_1.png", "page_2.png", "page_3.png"}, names)
}

func TestDocumentExportGeometry(t *testing.T) {
	t.Parallel()
	set, same, cross := testSet(t)
	b := &fakeBuilder{pages: 2, crop: Box{X: 5, Y: 7, Width: 200, Height: 300}}
	e := &DocumentExporter{NewBuilder: func() DocumentBuilder { return b }}
	var out bytes.Buffer
	drawn, err := e.Export(context.Background(), []byte("%PDF"), testPages(), set, fakeSnippets{}, &out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake", out.String())

	assert.Equal(t, 2, b.count("source"))
	assert.Equal(t, 1, b.count("blank"))
	assert.Equal(t, 2, b.count("image"))
	assert.Equal(t, 3, b.count("line"))
	assert.Equal(t, 1, b.count("text"))

	require.Len(t, drawn, 2)
	// destY = (cropY + cropH) - dest.y - destH
	assert.Equal(t, geom.Rect{X: 5 + 100, Y: 307 - 150 - 30, Width: 60, Height: 30}, drawn[0].Rect)
	assert.Equal(t, same, drawn[0].Callout)
	assert.Equal(t, geom.Rect{X: 20, Y: 100 - 20 - 20, Width: 20, Height: 20}, drawn[1].Rect)
	assert.Equal(t, cross, drawn[1].Callout)

	for _, op := range b.ops {
		if op.Kind == "text" {
			assert.Equal(t, "Detail from Page 1", op.Text)
			assert.Equal(t, geom.Point{X: 20, Y: 60 - 14}, op.From)
		}
	}
	assert.Len(t, b.images, 2)
}

func TestDocumentExportSkipsArrowAndLabelOfFailedSnippet(t *testing.T) {
	t.Parallel()
	set, same, cross := testSet(t)
	cases := []struct {
		name   string
		fail   annotate.Callout
		images int
		lines  int
		texts  int
	}{
		{name: "same page", fail: same, images: 1, lines: 0, texts: 1},
		{name: "cross page", fail: cross, images: 1, lines: 3, texts: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &fakeBuilder{pages: 2}
			e := &DocumentExporter{NewBuilder: func() DocumentBuilder { return b }}
			snips := fakeSnippets{fail: map[annotate.Callout]bool{tc.fail: true}}
			drawn, err := e.Export(context.Background(), []byte("%PDF"), testPages(), set, snips, io.Discard)
			require.NoError(t, err)
			assert.Len(t, drawn, 1)
			assert.Equal(t, tc.images, b.count("image"))
			assert.Equal(t, tc.lines, b.count("line"))
			assert.Equal(t, tc.texts, b.count("text"))
		})
	}
}

func TestDocumentExportAbortsOnSaveFailure(t *testing.T) {
	t.Parallel()
	set, _, _ := testSet(t)
	b := &fakeBuilder{pages: 2, saveErr: errors.New("disk full")}
	e := &DocumentExporter{NewBuilder: func() DocumentBuilder { return b }}
	var out bytes.Buffer
	drawn, err := e.Export(context.Background(), []byte("%PDF"), testPages(), set, fakeSnippets{}, &out)
	assert.Nil(t, drawn)
	assert.True(t, errors.Is(err, ErrExport))
	assert.Zero(t, out.Len())
}

func TestDocumentExportRejectsMissingSourcePage(t *testing.T) {
	t.Parallel()
	set, _, _ := testSet(t)
	b := &fakeBuilder{pages: 1}
	e := &DocumentExporter{NewBuilder: func() DocumentBuilder { return b }}
	_, err := e.Export(context.Background(), []byte("%PDF"), testPages(), set, fakeSnippets{}, io.Discard)
	assert.True(t, errors.Is(err, ErrExport))
}

func TestExportersAgreeOnPlacement(t *testing.T) {
	t.Parallel()
	set, _, _ := testSet(t)
	set = set.With(1, annotate.Callout{SourcePage: 1, Source: geom.Rect{X: 3.5, Y: 7.25, Width: 11, Height: 13}, Dest: geom.Point{X: 90.5, Y: 17}, Scale: 4.5})

	imgExp := NewImageExporter(300)
	_, rasterDrawn, err := imgExp.Render(context.Background(), testPages(), set, fakeSnippets{})
	require.NoError(t, err)

	b := &fakeBuilder{pages: 2, crop: Box{X: 12, Y: 30, Width: 200, Height: 300}}
	docExp := &DocumentExporter{NewBuilder: func() DocumentBuilder { return b }}
	docDrawn, err := docExp.Export(context.Background(), []byte("%PDF"), testPages(), set, fakeSnippets{}, io.Discard)
	require.NoError(t, err)
	require.Len(t, docDrawn, len(rasterDrawn))

	fromRaster := make([]geom.Rect, len(rasterDrawn))
	for i, d := range rasterDrawn {
		fromRaster[i] = d.Rect.Scale(1 / imgExp.Scale())
	}
	fromDoc := make([]geom.Rect, len(docDrawn))
	for i, d := range docDrawn {
		fromDoc[i] = DocumentToLocal(b.boxes[d.Page], d.Rect)
	}
	if diff := cmp.Diff(fromRaster, fromDoc, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("exporters disagree (-raster +document):\n%s", diff)
	}
}
