package pdfbuild

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/magnifier/internal/annotate"
	"github.com/csheth/magnifier/internal/export"
	"github.com/csheth/magnifier/internal/geom"
	"github.com/csheth/magnifier/internal/snippet"
)

func sourcePDF(t *testing.T, sizes ...geom.Size) []byte {
	t.Helper()
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for i, s := range sizes {
		doc.AddPageFormat("P", fpdf.SizeType{Wd: s.Width, Ht: s.Height})
		doc.Text(20, 40, "page")
		doc.Rect(10, 10, 20+float64(i)*10, 20, "F")
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{B: 0xff, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pageCount(t *testing.T, data []byte) int {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return r.NumPage()
}

func TestBuilderRebuildsSourceAndBlankPages(t *testing.T) {
	src := sourcePDF(t, geom.Size{Width: 300, Height: 400}, geom.Size{Width: 500, Height: 200})

	b := New()
	n, err := b.Load(src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	box, err := b.AppendSourcePage(1)
	require.NoError(t, err)
	assert.InDelta(t, 300, box.Width, 0.01)
	assert.InDelta(t, 400, box.Height, 0.01)

	require.NoError(t, b.EmbedImage("blue", pngBytes(t)))
	b.DrawImage("blue", box.ToPDF(geom.Rect{X: 10, Y: 10, Width: 40, Height: 40}))
	b.DrawLine(geom.Point{X: 10, Y: 10}, geom.Point{X: 100, Y: 100}, 2, export.DocArrowColor)
	b.DrawText("Detail from Page 2", geom.Point{X: 10, Y: 300}, 10, export.DocLabelColor)

	box, err = b.AppendSourcePage(2)
	require.NoError(t, err)
	assert.InDelta(t, 500, box.Width, 0.01)
	assert.InDelta(t, 200, box.Height, 0.01)

	box, err = b.AppendBlankPage(geom.Size{Width: 595, Height: 842})
	require.NoError(t, err)
	assert.Equal(t, export.Box{Width: 595, Height: 842}, box)

	var out bytes.Buffer
	require.NoError(t, b.Save(&out))
	assert.Equal(t, 3, pageCount(t, out.Bytes()))
	require.NoError(t, api.Validate(bytes.NewReader(out.Bytes()), model.NewDefaultConfiguration()))
}

func TestBuilderRejectsBadInput(t *testing.T) {
	b := New()
	_, err := b.AppendSourcePage(1)
	assert.Error(t, err)

	_, err = b.Load([]byte("not a pdf"))
	assert.Error(t, err)

	_, err = New().AppendBlankPage(geom.Size{})
	assert.Error(t, err)

	b = New()
	_, err = b.Load(sourcePDF(t, geom.Size{Width: 100, Height: 100}))
	require.NoError(t, err)
	_, err = b.AppendSourcePage(2)
	assert.Error(t, err)
}

type solidSnippets struct{}

func (solidSnippets) Snippet(_ context.Context, c annotate.Callout) (*snippet.Snippet, error) {
	size := c.DestSize()
	img := image.NewRGBA(image.Rect(0, 0, int(size.Width), int(size.Height)))
	return &snippet.Snippet{Image: img, Tier: snippet.High, Scale: 1}, nil
}

func TestDocumentExportThroughBuilder(t *testing.T) {
	src := sourcePDF(t, geom.Size{Width: 300, Height: 400})
	c, err := annotate.NewCallout(0, geom.Rect{X: 20, Y: 20, Width: 30, Height: 20}, geom.Point{X: 150, Y: 200}, 3)
	require.NoError(t, err)
	set := annotate.Set{}.With(0, c).With(1, c)

	pages := []export.Page{
		{Index: 0, Size: geom.Size{Width: 300, Height: 400}},
		{Index: 1, Size: geom.Size{Width: 595, Height: 842}, Composition: true},
	}
	exp := &export.DocumentExporter{NewBuilder: func() export.DocumentBuilder { return New() }}

	var out bytes.Buffer
	drawn, err := exp.Export(context.Background(), src, pages, set, solidSnippets{}, &out)
	require.NoError(t, err)
	assert.Len(t, drawn, 2)
	assert.Equal(t, 2, pageCount(t, out.Bytes()))
	require.NoError(t, api.Validate(bytes.NewReader(out.Bytes()), model.NewDefaultConfiguration()))
}
